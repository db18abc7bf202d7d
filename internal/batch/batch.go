// Package batch implements the MessagesBatch wire frame (C3): N messages
// framed together under one base offset, one compression choice, and one
// length prefix.
package batch

import (
	"encoding/binary"

	"github.com/tideline-io/tideline/internal/brokerrors"
	"github.com/tideline-io/tideline/internal/compression"
	"github.com/tideline-io/tideline/internal/message"
)

// MetadataBytesLen is base_offset(8) + length(4) + last_offset_delta(4) +
// attributes(1). length is defined as MetadataBytesLen + len(payload), so
// it also equals the total on-disk size of the frame.
const MetadataBytesLen = 8 + 4 + 4 + 1

const (
	compressionShift = 6
	compressionMask  = 0b1100_0000
)

// MessagesBatch is both the on-disk and in-memory frame.
type MessagesBatch struct {
	BaseOffset      uint64
	Length          uint32
	LastOffsetDelta uint32
	Attributes      uint8
	Messages        []byte
}

func (b MessagesBatch) LastOffset() uint64 {
	return b.BaseOffset + uint64(b.LastOffsetDelta)
}

// SizeBytes is the total number of bytes this batch occupies in the
// segment log, header included.
func (b MessagesBatch) SizeBytes() uint32 {
	return b.Length
}

func attributesFor(alg compression.Algorithm) uint8 {
	return (alg.Code() << compressionShift) & compressionMask
}

// CompressionAlgorithm extracts the algorithm from the attributes byte.
func CompressionAlgorithm(attributes uint8) (compression.Algorithm, error) {
	code := (attributes & compressionMask) >> compressionShift
	return compression.FromCode(code)
}

// Encode serializes messages, optionally compresses the result with alg,
// and frames it under baseOffset/lastOffsetDelta.
func Encode(baseOffset uint64, lastOffsetDelta uint32, alg compression.Algorithm, messages []message.Message) (MessagesBatch, error) {
	var serialized []byte
	for _, m := range messages {
		serialized = m.Encode(serialized)
	}

	effectiveAlg := alg
	payload := serialized
	if alg != compression.None && len(serialized) > alg.MinDataSize() {
		compressed, err := alg.Compress(serialized)
		if err != nil {
			return MessagesBatch{}, err
		}
		payload = compressed
	} else {
		effectiveAlg = compression.None
	}

	return MessagesBatch{
		BaseOffset:      baseOffset,
		Length:          uint32(MetadataBytesLen + len(payload)),
		LastOffsetDelta: lastOffsetDelta,
		Attributes:      attributesFor(effectiveAlg),
		Messages:        payload,
	}, nil
}

// Decode decompresses and parses every message out of the batch payload.
func Decode(b MessagesBatch) ([]message.Message, error) {
	alg, err := CompressionAlgorithm(b.Attributes)
	if err != nil {
		return nil, err
	}
	decompressed, err := alg.Decompress(b.Messages)
	if err != nil {
		return nil, brokerrors.WrapIO(err, "decompress batch")
	}

	var out []message.Message
	offset := 0
	for offset < len(decompressed) {
		m, n, err := message.Decode(decompressed[offset:])
		if err != nil {
			return nil, err
		}
		out = append(out, m)
		offset += n
	}
	return out, nil
}

// IsContainedOrOverlapping reports whether the batch's offset interval
// [BaseOffset, LastOffset()] intersects [start, end], i.e. whether the
// batch holds at least one offset in that range.
func (b MessagesBatch) IsContainedOrOverlapping(start, end uint64) bool {
	return b.BaseOffset <= end && b.LastOffset() >= start
}

// EncodeFrame serializes the full on-disk frame: the fixed header
// followed by the (possibly compressed) message payload.
func EncodeFrame(b MessagesBatch) []byte {
	frame := make([]byte, MetadataBytesLen, int(b.Length))
	binary.LittleEndian.PutUint64(frame[0:8], b.BaseOffset)
	binary.LittleEndian.PutUint32(frame[8:12], b.Length)
	binary.LittleEndian.PutUint32(frame[12:16], b.LastOffsetDelta)
	frame[16] = b.Attributes
	frame = append(frame, b.Messages...)
	return frame
}

// DecodeFrame parses one on-disk frame from the front of data and returns
// the number of bytes consumed (always equal to the parsed Length).
func DecodeFrame(data []byte) (MessagesBatch, int, error) {
	if len(data) < MetadataBytesLen {
		return MessagesBatch{}, 0, brokerrors.ErrInvalidCommand
	}
	b := MessagesBatch{
		BaseOffset:      binary.LittleEndian.Uint64(data[0:8]),
		Length:          binary.LittleEndian.Uint32(data[8:12]),
		LastOffsetDelta: binary.LittleEndian.Uint32(data[12:16]),
		Attributes:      data[16],
	}
	if b.Length < MetadataBytesLen || len(data) < int(b.Length) {
		return MessagesBatch{}, 0, brokerrors.ErrInvalidCommand
	}
	payloadLen := int(b.Length) - MetadataBytesLen
	b.Messages = append([]byte(nil), data[MetadataBytesLen:MetadataBytesLen+payloadLen]...)
	return b, int(b.Length), nil
}
