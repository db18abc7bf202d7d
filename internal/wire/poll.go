package wire

import (
	"encoding/binary"

	"github.com/tideline-io/tideline/internal/brokerrors"
	"github.com/tideline-io/tideline/internal/identifier"
	"github.com/tideline-io/tideline/internal/message"
)

// PollRequest addresses one partition and a starting offset.
type PollRequest struct {
	StreamId    identifier.Identifier
	TopicId     identifier.Identifier
	PartitionId uint32
	Offset      uint64
	Count       uint32
}

// EncodeBinary serializes a PollRequest: stream_id:Identifier |
// topic_id:Identifier | partition_id:u32 | offset:u64 | count:u32.
func (p PollRequest) EncodeBinary() []byte {
	streamBytes := p.StreamId.AsBytes()
	topicBytes := p.TopicId.AsBytes()

	buf := make([]byte, 0, len(streamBytes)+len(topicBytes)+4+8+4)
	buf = append(buf, streamBytes...)
	buf = append(buf, topicBytes...)

	var u32buf [4]byte
	binary.LittleEndian.PutUint32(u32buf[:], p.PartitionId)
	buf = append(buf, u32buf[:]...)

	var u64buf [8]byte
	binary.LittleEndian.PutUint64(u64buf[:], p.Offset)
	buf = append(buf, u64buf[:]...)

	binary.LittleEndian.PutUint32(u32buf[:], p.Count)
	buf = append(buf, u32buf[:]...)
	return buf
}

// DecodePollRequestBinary parses a PollRequest payload.
func DecodePollRequestBinary(data []byte) (PollRequest, error) {
	streamID, n, err := identifier.FromBytes(data)
	if err != nil {
		return PollRequest{}, err
	}
	data = data[n:]

	topicID, n, err := identifier.FromBytes(data)
	if err != nil {
		return PollRequest{}, err
	}
	data = data[n:]

	if len(data) < 4+8+4 {
		return PollRequest{}, brokerrors.ErrInvalidCommand
	}
	return PollRequest{
		StreamId:    streamID,
		TopicId:     topicID,
		PartitionId: binary.LittleEndian.Uint32(data[0:4]),
		Offset:      binary.LittleEndian.Uint64(data[4:12]),
		Count:       binary.LittleEndian.Uint32(data[12:16]),
	}, nil
}

// EncodePollResponse renders the returned messages: message_count:u32 |
// (offset:u64 | timestamp:u64 | id:16 | payload_len:u32 | payload)*.
func EncodePollResponse(messages []message.Message) []byte {
	size := 4
	for _, m := range messages {
		size += 8 + 8 + 16 + 4 + len(m.Payload)
	}

	buf := make([]byte, 0, size)
	var u32buf [4]byte
	binary.LittleEndian.PutUint32(u32buf[:], uint32(len(messages)))
	buf = append(buf, u32buf[:]...)

	var u64buf [8]byte
	for _, m := range messages {
		binary.LittleEndian.PutUint64(u64buf[:], m.Offset)
		buf = append(buf, u64buf[:]...)
		binary.LittleEndian.PutUint64(u64buf[:], m.Timestamp)
		buf = append(buf, u64buf[:]...)
		idBytes, _ := m.Id.MarshalBinary()
		buf = append(buf, idBytes...)
		binary.LittleEndian.PutUint32(u32buf[:], uint32(len(m.Payload)))
		buf = append(buf, u32buf[:]...)
		buf = append(buf, m.Payload...)
	}
	return buf
}

// DecodePollResponse parses the payload produced by EncodePollResponse.
func DecodePollResponse(data []byte) ([]message.Message, error) {
	if len(data) < 4 {
		return nil, brokerrors.ErrInvalidCommand
	}
	count := binary.LittleEndian.Uint32(data[0:4])
	data = data[4:]

	messages := make([]message.Message, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(data) < 8+8+16+4 {
			return nil, brokerrors.ErrInvalidCommand
		}
		var m message.Message
		m.Offset = binary.LittleEndian.Uint64(data[0:8])
		m.Timestamp = binary.LittleEndian.Uint64(data[8:16])
		if err := m.Id.UnmarshalBinary(data[16:32]); err != nil {
			return nil, err
		}
		payloadLen := binary.LittleEndian.Uint32(data[32:36])
		data = data[36:]
		if uint32(len(data)) < payloadLen {
			return nil, brokerrors.ErrInvalidCommand
		}
		m.Payload = data[:payloadLen]
		data = data[payloadLen:]
		messages = append(messages, m)
	}
	return messages, nil
}
