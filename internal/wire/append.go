package wire

import (
	"encoding/binary"

	"github.com/tideline-io/tideline/internal/brokerrors"
	"github.com/tideline-io/tideline/internal/identifier"
)

// AppendRequest addresses one partition and carries the raw payloads to
// append to it. Headers are omitted from the wire form, so messages
// appended through it carry no headers.
type AppendRequest struct {
	StreamId    identifier.Identifier
	TopicId     identifier.Identifier
	PartitionId uint32
	Compression uint8
	Payloads    [][]byte
}

// EncodeBinary serializes an AppendRequest: stream_id:Identifier |
// topic_id:Identifier | partition_id:u32 | compression:u8 |
// message_count:u32 | (payload_len:u32 | payload)*.
func (a AppendRequest) EncodeBinary() []byte {
	streamBytes := a.StreamId.AsBytes()
	topicBytes := a.TopicId.AsBytes()

	size := len(streamBytes) + len(topicBytes) + 4 + 1 + 4
	for _, p := range a.Payloads {
		size += 4 + len(p)
	}

	buf := make([]byte, 0, size)
	buf = append(buf, streamBytes...)
	buf = append(buf, topicBytes...)

	var u32buf [4]byte
	binary.LittleEndian.PutUint32(u32buf[:], a.PartitionId)
	buf = append(buf, u32buf[:]...)
	buf = append(buf, a.Compression)
	binary.LittleEndian.PutUint32(u32buf[:], uint32(len(a.Payloads)))
	buf = append(buf, u32buf[:]...)

	for _, p := range a.Payloads {
		binary.LittleEndian.PutUint32(u32buf[:], uint32(len(p)))
		buf = append(buf, u32buf[:]...)
		buf = append(buf, p...)
	}
	return buf
}

// DecodeAppendRequestBinary parses an AppendRequest payload.
func DecodeAppendRequestBinary(data []byte) (AppendRequest, error) {
	streamID, n, err := identifier.FromBytes(data)
	if err != nil {
		return AppendRequest{}, err
	}
	data = data[n:]

	topicID, n, err := identifier.FromBytes(data)
	if err != nil {
		return AppendRequest{}, err
	}
	data = data[n:]

	if len(data) < 4+1+4 {
		return AppendRequest{}, brokerrors.ErrInvalidCommand
	}
	a := AppendRequest{StreamId: streamID, TopicId: topicID}
	a.PartitionId = binary.LittleEndian.Uint32(data[0:4])
	a.Compression = data[4]
	count := binary.LittleEndian.Uint32(data[5:9])
	data = data[9:]

	payloads := make([][]byte, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(data) < 4 {
			return AppendRequest{}, brokerrors.ErrInvalidCommand
		}
		payloadLen := binary.LittleEndian.Uint32(data[0:4])
		data = data[4:]
		if uint32(len(data)) < payloadLen {
			return AppendRequest{}, brokerrors.ErrInvalidCommand
		}
		payloads = append(payloads, data[:payloadLen])
		data = data[payloadLen:]
	}
	a.Payloads = payloads
	return a, nil
}

// EncodeAppendResponse renders the offsets assigned to a successful
// append: first_offset:u64 | last_offset:u64.
func EncodeAppendResponse(firstOffset, lastOffset uint64) []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[0:8], firstOffset)
	binary.LittleEndian.PutUint64(buf[8:16], lastOffset)
	return buf
}

// DecodeAppendResponse parses the offsets returned by EncodeAppendResponse.
func DecodeAppendResponse(data []byte) (first, last uint64, err error) {
	if len(data) != 16 {
		return 0, 0, brokerrors.ErrInvalidCommand
	}
	return binary.LittleEndian.Uint64(data[0:8]), binary.LittleEndian.Uint64(data[8:16]), nil
}
