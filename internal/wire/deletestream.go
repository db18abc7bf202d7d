package wire

import (
	"encoding/binary"

	"github.com/tideline-io/tideline/internal/brokerrors"
)

// DeleteStreamCommandId is the legacy single-byte UDP command id for
// deleting a stream.
const DeleteStreamCommandId = 12

// StatusOK is the fixed reply byte sequence the legacy UDP handler
// writes back to the client on success.
var StatusOK = []byte{0}

// DecodeDeleteStreamUDP parses the legacy envelope: a u32 stream id,
// little-endian, with no other payload.
func DecodeDeleteStreamUDP(input []byte) (uint32, error) {
	if len(input) != 4 {
		return 0, brokerrors.ErrInvalidCommand
	}
	return binary.LittleEndian.Uint32(input), nil
}

// EncodeDeleteStreamUDP renders the request body (command id is sent
// separately by the caller, matching the legacy framing where the
// command byte prefixes the payload at the transport layer).
func EncodeDeleteStreamUDP(streamID uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, streamID)
	return buf
}
