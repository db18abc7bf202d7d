package wire

import (
	"bytes"
	"testing"

	"github.com/tideline-io/tideline/internal/identifier"
)

func TestCreateTopicBinaryRoundTrip(t *testing.T) {
	original := CreateTopic{
		StreamId:          identifier.FromNumeric(7),
		TopicId:           3,
		PartitionsCount:   4,
		MessageExpirySecs: 3600,
		MaxTopicSizeBytes: 1 << 30,
		ReplicationFactor: 2,
		Name:              "orders",
	}

	decoded, err := DecodeCreateTopicBinary(original.EncodeBinary())
	if err != nil {
		t.Fatalf("DecodeCreateTopicBinary: %v", err)
	}
	if decoded != original {
		t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestCreateTopicTextRoundTrip(t *testing.T) {
	original := CreateTopic{
		StreamId:          identifier.FromNumeric(7),
		TopicId:           3,
		PartitionsCount:   4,
		MessageExpirySecs: 3600,
		MaxTopicSizeBytes: 1 << 30,
		ReplicationFactor: 2,
		Name:              "orders",
	}

	decoded, err := DecodeCreateTopicText(original.EncodeText())
	if err != nil {
		t.Fatalf("DecodeCreateTopicText: %v", err)
	}
	if decoded != original {
		t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestUpdateTopicBinaryRoundTrip(t *testing.T) {
	original := UpdateTopic{
		StreamId:          identifier.FromNumeric(7),
		TopicId:           identifier.FromNumeric(3),
		MessageExpirySecs: 7200,
		MaxTopicSizeBytes: 2 << 30,
		ReplicationFactor: 3,
		Name:              "renamed-orders",
	}

	decoded, err := DecodeUpdateTopicBinary(original.EncodeBinary())
	if err != nil {
		t.Fatalf("DecodeUpdateTopicBinary: %v", err)
	}
	if decoded != original {
		t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestUpdateTopicTextRoundTripByName(t *testing.T) {
	topicID, err := identifier.FromName("orders")
	if err != nil {
		t.Fatalf("FromName: %v", err)
	}

	original := UpdateTopic{
		StreamId:          identifier.FromNumeric(7),
		TopicId:           topicID,
		MessageExpirySecs: 7200,
		MaxTopicSizeBytes: 2 << 30,
		ReplicationFactor: 3,
		Name:              "renamed-orders",
	}

	decoded, err := DecodeUpdateTopicText(original.EncodeText())
	if err != nil {
		t.Fatalf("DecodeUpdateTopicText: %v", err)
	}
	if decoded != original {
		t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestDecodeCreateTopicTextRejectsWrongFieldCount(t *testing.T) {
	if _, err := DecodeCreateTopicText("only|three|fields"); err == nil {
		t.Fatal("expected error for malformed textual payload")
	}
}

func TestDeleteStreamUDPRoundTrip(t *testing.T) {
	encoded := EncodeDeleteStreamUDP(42)
	streamID, err := DecodeDeleteStreamUDP(encoded)
	if err != nil {
		t.Fatalf("DecodeDeleteStreamUDP: %v", err)
	}
	if streamID != 42 {
		t.Fatalf("got stream id %d, want 42", streamID)
	}
}

func TestDecodeDeleteStreamUDPRejectsShortInput(t *testing.T) {
	if _, err := DecodeDeleteStreamUDP([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for short input")
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	var frame bytes.Buffer
	body := []byte("create-topic-payload")

	var sizeBuf [4]byte
	packet := make([]byte, commandIDSize+correlationSize+len(body))
	packet[0] = 0
	packet[1] = CommandCreateTopic
	packet[2], packet[3], packet[4], packet[5] = 0, 0, 0, 99
	copy(packet[commandIDSize+correlationSize:], body)

	writeUint32BigEndian(sizeBuf[:], uint32(len(packet)))
	frame.Write(sizeBuf[:])
	frame.Write(packet)

	env, err := ReadEnvelope(&frame)
	if err != nil {
		t.Fatalf("ReadEnvelope: %v", err)
	}
	defer env.Release()

	if env.CommandId != CommandCreateTopic {
		t.Fatalf("got command id %d, want %d", env.CommandId, CommandCreateTopic)
	}
	if env.CorrelationId != 99 {
		t.Fatalf("got correlation id %d, want 99", env.CorrelationId)
	}
	if string(env.Body) != string(body) {
		t.Fatalf("got body %q, want %q", env.Body, body)
	}
}

func TestWriteResponseFraming(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResponse(&buf, 7, 0, []byte("ok")); err != nil {
		t.Fatalf("WriteResponse: %v", err)
	}

	out := buf.Bytes()
	if len(out) != 4+4+1+2 {
		t.Fatalf("got %d bytes, want %d", len(out), 4+4+1+2)
	}
}

func writeUint32BigEndian(dst []byte, v uint32) {
	dst[0] = byte(v >> 24)
	dst[1] = byte(v >> 16)
	dst[2] = byte(v >> 8)
	dst[3] = byte(v)
}
