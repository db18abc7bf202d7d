package wire

import (
	"encoding/binary"

	"github.com/tideline-io/tideline/internal/brokerrors"
)

// CreateStream is the wire payload for creating a stream. It mirrors
// CreateTopic's shape (numeric id, length-prefixed name) since streams
// are the same kind of named, numerically addressed resource.
type CreateStream struct {
	StreamId uint32
	Name     string
}

// EncodeBinary serializes CreateStream: stream_id:u32 | name_len:u8 | name.
func (c CreateStream) EncodeBinary() []byte {
	buf := make([]byte, 0, 4+1+len(c.Name))
	var u32buf [4]byte
	binary.LittleEndian.PutUint32(u32buf[:], c.StreamId)
	buf = append(buf, u32buf[:]...)
	buf = append(buf, byte(len(c.Name)))
	buf = append(buf, c.Name...)
	return buf
}

// DecodeCreateStreamBinary parses a CreateStream payload.
func DecodeCreateStreamBinary(data []byte) (CreateStream, error) {
	if len(data) < 4+1 {
		return CreateStream{}, brokerrors.ErrInvalidCommand
	}
	streamID := binary.LittleEndian.Uint32(data[0:4])
	nameLen := int(data[4])
	data = data[5:]
	if len(data) != nameLen {
		return CreateStream{}, brokerrors.ErrInvalidCommand
	}
	return CreateStream{StreamId: streamID, Name: string(data)}, nil
}
