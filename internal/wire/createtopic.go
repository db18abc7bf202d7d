// Package wire implements the admin command codecs named in the
// external interfaces contract (§6): binary and textual encodings for
// CreateTopic/UpdateTopic (there is no JSON encoding), plus the legacy UDP delete-stream
// envelope and a length-prefixed request/response frame for everything
// else.
package wire

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/tideline-io/tideline/internal/brokerrors"
	"github.com/tideline-io/tideline/internal/identifier"
)

// CreateTopic is the wire payload for creating a topic in a stream.
type CreateTopic struct {
	StreamId          identifier.Identifier
	TopicId           uint32
	PartitionsCount   uint32
	MessageExpirySecs uint32
	MaxTopicSizeBytes uint64
	ReplicationFactor uint8
	Name              string
}

// EncodeBinary serializes CreateTopic per §6: stream_id:Identifier |
// topic_id:u32 | partitions_count:u32 | message_expiry_secs:u32 |
// max_topic_size_bytes:u64 | replication_factor:u8 | name_len:u8 | name.
func (c CreateTopic) EncodeBinary() []byte {
	idBytes := c.StreamId.AsBytes()
	buf := make([]byte, 0, len(idBytes)+4+4+4+8+1+1+len(c.Name))
	buf = append(buf, idBytes...)

	var u32buf [4]byte
	binary.LittleEndian.PutUint32(u32buf[:], c.TopicId)
	buf = append(buf, u32buf[:]...)
	binary.LittleEndian.PutUint32(u32buf[:], c.PartitionsCount)
	buf = append(buf, u32buf[:]...)
	binary.LittleEndian.PutUint32(u32buf[:], c.MessageExpirySecs)
	buf = append(buf, u32buf[:]...)

	var u64buf [8]byte
	binary.LittleEndian.PutUint64(u64buf[:], c.MaxTopicSizeBytes)
	buf = append(buf, u64buf[:]...)

	buf = append(buf, c.ReplicationFactor)
	buf = append(buf, byte(len(c.Name)))
	buf = append(buf, c.Name...)
	return buf
}

// DecodeCreateTopicBinary parses a CreateTopic payload, failing with
// ErrInvalidCommand on any short read or trailing bytes.
func DecodeCreateTopicBinary(data []byte) (CreateTopic, error) {
	id, n, err := identifier.FromBytes(data)
	if err != nil {
		return CreateTopic{}, err
	}
	data = data[n:]
	if len(data) < 4+4+4+8+1+1 {
		return CreateTopic{}, brokerrors.ErrInvalidCommand
	}

	c := CreateTopic{StreamId: id}
	c.TopicId = binary.LittleEndian.Uint32(data[0:4])
	c.PartitionsCount = binary.LittleEndian.Uint32(data[4:8])
	c.MessageExpirySecs = binary.LittleEndian.Uint32(data[8:12])
	c.MaxTopicSizeBytes = binary.LittleEndian.Uint64(data[12:20])
	c.ReplicationFactor = data[20]
	nameLen := int(data[21])
	data = data[22:]
	if len(data) != nameLen {
		return CreateTopic{}, brokerrors.ErrInvalidCommand
	}
	c.Name = string(data)
	return c, nil
}

// EncodeText renders the 7-field `|`-separated textual form.
func (c CreateTopic) EncodeText() string {
	return strings.Join([]string{
		c.StreamId.ToString(),
		strconv.FormatUint(uint64(c.TopicId), 10),
		strconv.FormatUint(uint64(c.PartitionsCount), 10),
		strconv.FormatUint(uint64(c.MessageExpirySecs), 10),
		strconv.FormatUint(c.MaxTopicSizeBytes, 10),
		strconv.FormatUint(uint64(c.ReplicationFactor), 10),
		c.Name,
	}, "|")
}

// DecodeCreateTopicText parses the 7-field textual form.
func DecodeCreateTopicText(s string) (CreateTopic, error) {
	parts := strings.Split(s, "|")
	if len(parts) != 7 {
		return CreateTopic{}, brokerrors.ErrInvalidCommand
	}

	streamID, err := identifier.FromString(parts[0])
	if err != nil {
		return CreateTopic{}, err
	}
	topicID, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return CreateTopic{}, fmt.Errorf("%w: topic_id", brokerrors.ErrInvalidCommand)
	}
	partitionsCount, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil {
		return CreateTopic{}, fmt.Errorf("%w: partitions_count", brokerrors.ErrInvalidCommand)
	}
	expiry, err := strconv.ParseUint(parts[3], 10, 32)
	if err != nil {
		return CreateTopic{}, fmt.Errorf("%w: message_expiry_secs", brokerrors.ErrInvalidCommand)
	}
	maxSize, err := strconv.ParseUint(parts[4], 10, 64)
	if err != nil {
		return CreateTopic{}, fmt.Errorf("%w: max_topic_size_bytes", brokerrors.ErrInvalidCommand)
	}
	replication, err := strconv.ParseUint(parts[5], 10, 8)
	if err != nil {
		return CreateTopic{}, fmt.Errorf("%w: replication_factor", brokerrors.ErrInvalidCommand)
	}

	return CreateTopic{
		StreamId:          streamID,
		TopicId:           uint32(topicID),
		PartitionsCount:   uint32(partitionsCount),
		MessageExpirySecs: uint32(expiry),
		MaxTopicSizeBytes: maxSize,
		ReplicationFactor: uint8(replication),
		Name:              parts[6],
	}, nil
}
