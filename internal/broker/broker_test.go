package broker

import (
	"net"
	"testing"
	"time"

	"github.com/tideline-io/tideline/internal/identifier"
	"github.com/tideline-io/tideline/internal/partition"
	"github.com/tideline-io/tideline/internal/storage"
	"github.com/tideline-io/tideline/internal/system"
	"github.com/tideline-io/tideline/internal/wire"
)

func startTestBroker(t *testing.T) (*Broker, string) {
	t.Helper()
	dir := t.TempDir()
	sys := system.New(dir, storage.NewFileSegmentStorage(), nil, nil)
	cfg := Config{
		ListenAddr:      "127.0.0.1:0",
		BaseDir:         dir,
		PartitionConfig: partition.DefaultConfig(),
	}
	b := New(cfg, sys, nil, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	b.Config.ListenAddr = ln.Addr().String()
	ln.Close()

	go func() {
		_ = b.Start()
	}()
	time.Sleep(50 * time.Millisecond)
	t.Cleanup(b.Stop)

	return b, b.Config.ListenAddr
}

// testResponse mirrors the frame WriteResponse writes: correlation_id,
// status byte, body.
type testResponse struct {
	CorrelationId uint32
	Status        byte
	Body          []byte
}

func sendEnvelope(t *testing.T, conn net.Conn, commandID uint16, correlationID uint32, body []byte) testResponse {
	t.Helper()
	packet := make([]byte, 2+4+len(body))
	packet[0] = byte(commandID >> 8)
	packet[1] = byte(commandID)
	packet[2] = byte(correlationID >> 24)
	packet[3] = byte(correlationID >> 16)
	packet[4] = byte(correlationID >> 8)
	packet[5] = byte(correlationID)
	copy(packet[6:], body)

	var sizeBuf [4]byte
	size := uint32(len(packet))
	sizeBuf[0] = byte(size >> 24)
	sizeBuf[1] = byte(size >> 16)
	sizeBuf[2] = byte(size >> 8)
	sizeBuf[3] = byte(size)

	if _, err := conn.Write(sizeBuf[:]); err != nil {
		t.Fatalf("write size: %v", err)
	}
	if _, err := conn.Write(packet); err != nil {
		t.Fatalf("write packet: %v", err)
	}

	var respSizeBuf [4]byte
	if _, err := readFull(conn, respSizeBuf[:]); err != nil {
		t.Fatalf("read response size: %v", err)
	}
	respSize := uint32(respSizeBuf[0])<<24 | uint32(respSizeBuf[1])<<16 | uint32(respSizeBuf[2])<<8 | uint32(respSizeBuf[3])
	respPacket := make([]byte, respSize)
	if _, err := readFull(conn, respPacket); err != nil {
		t.Fatalf("read response: %v", err)
	}

	return testResponse{
		CorrelationId: uint32(respPacket[0])<<24 | uint32(respPacket[1])<<16 | uint32(respPacket[2])<<8 | uint32(respPacket[3]),
		Status:        respPacket[4],
		Body:          respPacket[5:],
	}
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func TestBrokerCreateStreamTopicAppendPoll(t *testing.T) {
	_, addr := startTestBroker(t)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("net.Dial: %v", err)
	}
	defer conn.Close()

	createStreamBody := wire.CreateStream{StreamId: 1, Name: "orders-stream"}.EncodeBinary()
	resp := sendEnvelope(t, conn, wire.CommandCreateStream, 1, createStreamBody)
	assertStatusOk(t, resp)

	createTopicBody := wire.CreateTopic{
		StreamId:          identifier.FromNumeric(1),
		TopicId:           10,
		PartitionsCount:   1,
		MessageExpirySecs: 0,
		MaxTopicSizeBytes: 0,
		ReplicationFactor: 1,
		Name:              "orders",
	}.EncodeBinary()
	resp = sendEnvelope(t, conn, wire.CommandCreateTopic, 2, createTopicBody)
	assertStatusOk(t, resp)

	appendBody := wire.AppendRequest{
		StreamId:    identifier.FromNumeric(1),
		TopicId:     identifier.FromNumeric(10),
		PartitionId: 1,
		Compression: 0,
		Payloads:    [][]byte{[]byte("hello"), []byte("world")},
	}.EncodeBinary()
	resp = sendEnvelope(t, conn, wire.CommandAppendMessages, 3, appendBody)
	assertStatusOk(t, resp)

	first, last, err := wire.DecodeAppendResponse(resp.Body)
	if err != nil {
		t.Fatalf("DecodeAppendResponse: %v", err)
	}
	if first != 0 || last != 1 {
		t.Fatalf("got offsets [%d, %d], want [0, 1]", first, last)
	}

	pollBody := wire.PollRequest{
		StreamId:    identifier.FromNumeric(1),
		TopicId:     identifier.FromNumeric(10),
		PartitionId: 1,
		Offset:      0,
		Count:       10,
	}.EncodeBinary()
	resp = sendEnvelope(t, conn, wire.CommandPollMessages, 4, pollBody)
	assertStatusOk(t, resp)

	msgs, err := wire.DecodePollResponse(resp.Body)
	if err != nil {
		t.Fatalf("DecodePollResponse: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if string(msgs[0].Payload) != "hello" || string(msgs[1].Payload) != "world" {
		t.Fatalf("unexpected payloads: %q, %q", msgs[0].Payload, msgs[1].Payload)
	}
}

func assertStatusOk(t *testing.T, resp testResponse) {
	t.Helper()
	if resp.Status != wire.StatusOk {
		t.Fatalf("got status %d, want StatusOk; body=%q", resp.Status, resp.Body)
	}
}

func TestBrokerGetTopicThenDeleteTopic(t *testing.T) {
	_, addr := startTestBroker(t)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("net.Dial: %v", err)
	}
	defer conn.Close()

	createStreamBody := wire.CreateStream{StreamId: 1, Name: "orders-stream"}.EncodeBinary()
	assertStatusOk(t, sendEnvelope(t, conn, wire.CommandCreateStream, 1, createStreamBody))

	createTopicBody := wire.CreateTopic{
		StreamId:          identifier.FromNumeric(1),
		TopicId:           10,
		PartitionsCount:   2,
		MessageExpirySecs: 60,
		MaxTopicSizeBytes: 0,
		ReplicationFactor: 1,
		Name:              "orders",
	}.EncodeBinary()
	assertStatusOk(t, sendEnvelope(t, conn, wire.CommandCreateTopic, 2, createTopicBody))

	getTopicBody := wire.GetTopic{
		StreamId: identifier.FromNumeric(1),
		TopicId:  identifier.FromNumeric(10),
	}.EncodeBinary()
	resp := sendEnvelope(t, conn, wire.CommandGetTopic, 3, getTopicBody)
	assertStatusOk(t, resp)

	info, err := wire.DecodeTopicInfo(resp.Body)
	if err != nil {
		t.Fatalf("DecodeTopicInfo: %v", err)
	}
	if info.Name != "orders" || info.PartitionsCount != 2 || info.MessageExpirySecs != 60 {
		t.Fatalf("unexpected TopicInfo: %+v", info)
	}

	deleteTopicBody := wire.DeleteTopic{
		StreamId: identifier.FromNumeric(1),
		TopicId:  10,
	}.EncodeBinary()
	assertStatusOk(t, sendEnvelope(t, conn, wire.CommandDeleteTopic, 4, deleteTopicBody))

	resp = sendEnvelope(t, conn, wire.CommandGetTopic, 5, getTopicBody)
	if resp.Status == wire.StatusOk {
		t.Fatalf("expected GetTopic to fail after delete, got status ok")
	}
}

func TestBrokerLegacyUDPDeleteStream(t *testing.T) {
	dir := t.TempDir()
	sys := system.New(dir, storage.NewFileSegmentStorage(), nil, nil)
	if _, err := sys.CreateStream(0, 1, "orders-stream"); err != nil {
		t.Fatalf("CreateStream: %v", err)
	}

	cfg := Config{
		ListenAddr:      "127.0.0.1:0",
		LegacyUDPAddr:   "127.0.0.1:0",
		BaseDir:         dir,
		PartitionConfig: partition.DefaultConfig(),
	}
	b := New(cfg, sys, nil, nil)

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.ListenPacket: %v", err)
	}
	addr := pc.LocalAddr().String()
	pc.Close()
	b.Config.LegacyUDPAddr = addr

	go func() {
		_ = b.StartUDP(b.Config.LegacyUDPAddr)
	}()
	time.Sleep(50 * time.Millisecond)
	t.Cleanup(b.Stop)

	conn, err := net.Dial("udp", addr)
	if err != nil {
		t.Fatalf("net.Dial: %v", err)
	}
	defer conn.Close()

	packet := append([]byte{wire.DeleteStreamCommandId}, wire.EncodeDeleteStreamUDP(1)...)
	if _, err := conn.Write(packet); err != nil {
		t.Fatalf("write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(time.Second))
	reply := make([]byte, 16)
	n, err := conn.Read(reply)
	if err != nil {
		t.Fatalf("read reply: %v", err)
	}
	if string(reply[:n]) != string(wire.StatusOK) {
		t.Fatalf("reply = %v, want %v", reply[:n], wire.StatusOK)
	}

	if _, err := sys.GetStream(0, 1); err == nil {
		t.Fatalf("expected stream 1 to be deleted")
	}
}
