// Package message implements the per-message binary layout carried inside
// a batch payload: a fixed header followed by a header map and an opaque
// payload.
package message

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
	"github.com/tideline-io/tideline/internal/brokerrors"
)

// State mirrors the single reserved state byte in the wire layout. Only
// Available is produced by this broker; the byte exists so a future state
// machine (e.g. tombstones) has somewhere to live without a format change.
type State uint8

const (
	StateAvailable State = 0
)

// HeaderKind tags the type of a header value so a consumer can decode it
// without guessing. Only Raw bytes and String are produced here; the
// remaining kinds are reserved wire-compatible extension points.
type HeaderKind uint8

const (
	HeaderKindRaw    HeaderKind = 0
	HeaderKindString HeaderKind = 1
	HeaderKindBool   HeaderKind = 2
	HeaderKindUint64 HeaderKind = 3
	HeaderKindInt64  HeaderKind = 4
)

type HeaderValue struct {
	Kind  HeaderKind
	Value []byte
}

// Message is one record inside a MessagesBatch payload.
type Message struct {
	Offset    uint64
	State     State
	Timestamp uint64
	Id        uuid.UUID
	Checksum  uint32
	Headers   map[string]HeaderValue
	Payload   []byte
}

// NewMessage stamps a fresh id for a producer-supplied payload; the
// checksum is computed when the message is encoded, and Offset and
// Timestamp are filled in by the partition/segment at append time.
func NewMessage(payload []byte, headers map[string]HeaderValue) Message {
	return Message{
		Id:      uuid.New(),
		Payload: payload,
		Headers: headers,
	}
}

func (m Message) checksum() uint32 {
	var sum uint32
	for _, b := range m.Payload {
		sum = sum*31 + uint32(b)
	}
	return sum
}

// EncodedSize returns the exact number of bytes Encode will write.
func (m Message) EncodedSize() int {
	size := 8 + 1 + 8 + 16 + 4 + 4 + 4 + len(m.Payload)
	for name, hv := range m.Headers {
		size += 4 + len(name) + 1 + 4 + len(hv.Value)
	}
	return size
}

// Encode appends the little-endian wire form of m to dst and returns the
// extended slice.
func (m Message) Encode(dst []byte) []byte {
	var fixed [8 + 1 + 8 + 16 + 4]byte
	binary.LittleEndian.PutUint64(fixed[0:8], m.Offset)
	fixed[8] = byte(m.State)
	binary.LittleEndian.PutUint64(fixed[9:17], m.Timestamp)
	idBytes := m.Id
	copy(fixed[17:33], idBytes[:])
	checksum := m.checksum()
	binary.LittleEndian.PutUint32(fixed[33:37], checksum)
	dst = append(dst, fixed[:]...)

	headersBuf := encodeHeaders(m.Headers)
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(headersBuf)))
	dst = append(dst, lenBuf[:]...)
	dst = append(dst, headersBuf...)

	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(m.Payload)))
	dst = append(dst, lenBuf[:]...)
	dst = append(dst, m.Payload...)
	return dst
}

func encodeHeaders(headers map[string]HeaderValue) []byte {
	if len(headers) == 0 {
		return nil
	}
	var buf []byte
	for name, hv := range headers {
		var nameLen [4]byte
		binary.LittleEndian.PutUint32(nameLen[:], uint32(len(name)))
		buf = append(buf, nameLen[:]...)
		buf = append(buf, name...)
		buf = append(buf, byte(hv.Kind))
		var valLen [4]byte
		binary.LittleEndian.PutUint32(valLen[:], uint32(len(hv.Value)))
		buf = append(buf, valLen[:]...)
		buf = append(buf, hv.Value...)
	}
	return buf
}

// Decode parses one Message from the front of data and returns the number
// of bytes consumed. Any short read or malformed field fails with
// ErrInvalidMessage.
func Decode(data []byte) (Message, int, error) {
	const fixedLen = 8 + 1 + 8 + 16 + 4
	if len(data) < fixedLen+4 {
		return Message{}, 0, brokerrors.ErrInvalidMessage
	}
	m := Message{}
	m.Offset = binary.LittleEndian.Uint64(data[0:8])
	stateCode := data[8]
	if stateCode != byte(StateAvailable) {
		return Message{}, 0, fmt.Errorf("%w: invalid state code %d", brokerrors.ErrInvalidMessage, stateCode)
	}
	m.State = State(stateCode)
	m.Timestamp = binary.LittleEndian.Uint64(data[9:17])
	copy(m.Id[:], data[17:33])
	m.Checksum = binary.LittleEndian.Uint32(data[33:37])

	offset := fixedLen
	headersLen := int(binary.LittleEndian.Uint32(data[offset : offset+4]))
	offset += 4
	if headersLen < 0 || len(data) < offset+headersLen {
		return Message{}, 0, brokerrors.ErrInvalidMessage
	}
	headers, err := decodeHeaders(data[offset : offset+headersLen])
	if err != nil {
		return Message{}, 0, err
	}
	m.Headers = headers
	offset += headersLen

	if len(data) < offset+4 {
		return Message{}, 0, brokerrors.ErrInvalidMessage
	}
	payloadLen := int(binary.LittleEndian.Uint32(data[offset : offset+4]))
	offset += 4
	if payloadLen < 0 || len(data) < offset+payloadLen {
		return Message{}, 0, brokerrors.ErrInvalidMessage
	}
	m.Payload = append([]byte(nil), data[offset:offset+payloadLen]...)
	offset += payloadLen

	if computed := m.checksum(); computed != m.Checksum {
		return Message{}, 0, fmt.Errorf("%w: checksum mismatch", brokerrors.ErrInvalidMessage)
	}

	return m, offset, nil
}

func decodeHeaders(data []byte) (map[string]HeaderValue, error) {
	if len(data) == 0 {
		return nil, nil
	}
	headers := make(map[string]HeaderValue)
	offset := 0
	for offset < len(data) {
		if offset+4 > len(data) {
			return nil, brokerrors.ErrInvalidMessage
		}
		nameLen := int(binary.LittleEndian.Uint32(data[offset : offset+4]))
		offset += 4
		if nameLen < 0 || offset+nameLen > len(data) {
			return nil, brokerrors.ErrInvalidMessage
		}
		name := string(data[offset : offset+nameLen])
		offset += nameLen

		if offset+1 > len(data) {
			return nil, brokerrors.ErrInvalidMessage
		}
		kind := HeaderKind(data[offset])
		offset++
		if kind > HeaderKindInt64 {
			return nil, fmt.Errorf("%w: invalid header kind %d", brokerrors.ErrInvalidMessage, kind)
		}

		if offset+4 > len(data) {
			return nil, brokerrors.ErrInvalidMessage
		}
		valLen := int(binary.LittleEndian.Uint32(data[offset : offset+4]))
		offset += 4
		if valLen < 0 || offset+valLen > len(data) {
			return nil, brokerrors.ErrInvalidMessage
		}
		value := append([]byte(nil), data[offset:offset+valLen]...)
		offset += valLen

		headers[name] = HeaderValue{Kind: kind, Value: value}
	}
	if offset != len(data) {
		return nil, fmt.Errorf("%w: trailing header bytes", brokerrors.ErrInvalidMessage)
	}
	return headers, nil
}
