package wire

import (
	"encoding/binary"

	"github.com/tideline-io/tideline/internal/brokerrors"
	"github.com/tideline-io/tideline/internal/identifier"
)

// DeleteTopic addresses a topic for removal: stream_id:Identifier |
// topic_id:u32. The topic id stays numeric-only here, matching
// Stream.DeleteTopic's signature.
type DeleteTopic struct {
	StreamId identifier.Identifier
	TopicId  uint32
}

// EncodeBinary serializes DeleteTopic.
func (d DeleteTopic) EncodeBinary() []byte {
	streamBytes := d.StreamId.AsBytes()
	buf := make([]byte, 0, len(streamBytes)+4)
	buf = append(buf, streamBytes...)
	var u32buf [4]byte
	binary.LittleEndian.PutUint32(u32buf[:], d.TopicId)
	buf = append(buf, u32buf[:]...)
	return buf
}

// DecodeDeleteTopicBinary parses a DeleteTopic payload.
func DecodeDeleteTopicBinary(data []byte) (DeleteTopic, error) {
	streamID, n, err := identifier.FromBytes(data)
	if err != nil {
		return DeleteTopic{}, err
	}
	data = data[n:]
	if len(data) != 4 {
		return DeleteTopic{}, brokerrors.ErrInvalidCommand
	}
	return DeleteTopic{StreamId: streamID, TopicId: binary.LittleEndian.Uint32(data)}, nil
}
