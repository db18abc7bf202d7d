package wire

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/tideline-io/tideline/internal/brokerrors"
	"github.com/tideline-io/tideline/internal/identifier"
)

// UpdateTopic is the wire payload for renaming/retuning an existing
// topic. Unlike CreateTopic, the topic itself is addressed by
// Identifier, not a bare numeric id.
type UpdateTopic struct {
	StreamId          identifier.Identifier
	TopicId           identifier.Identifier
	MessageExpirySecs uint32
	MaxTopicSizeBytes uint64
	ReplicationFactor uint8
	Name              string
}

// EncodeBinary serializes UpdateTopic per §6: stream_id:Identifier |
// topic_id:Identifier | message_expiry_secs:u32 | max_topic_size_bytes:u64
// | replication_factor:u8 | name_len:u8 | name.
func (u UpdateTopic) EncodeBinary() []byte {
	streamBytes := u.StreamId.AsBytes()
	topicBytes := u.TopicId.AsBytes()
	buf := make([]byte, 0, len(streamBytes)+len(topicBytes)+4+8+1+1+len(u.Name))
	buf = append(buf, streamBytes...)
	buf = append(buf, topicBytes...)

	var u32buf [4]byte
	binary.LittleEndian.PutUint32(u32buf[:], u.MessageExpirySecs)
	buf = append(buf, u32buf[:]...)

	var u64buf [8]byte
	binary.LittleEndian.PutUint64(u64buf[:], u.MaxTopicSizeBytes)
	buf = append(buf, u64buf[:]...)

	buf = append(buf, u.ReplicationFactor)
	buf = append(buf, byte(len(u.Name)))
	buf = append(buf, u.Name...)
	return buf
}

// DecodeUpdateTopicBinary parses an UpdateTopic payload.
func DecodeUpdateTopicBinary(data []byte) (UpdateTopic, error) {
	streamID, n, err := identifier.FromBytes(data)
	if err != nil {
		return UpdateTopic{}, err
	}
	data = data[n:]

	topicID, n, err := identifier.FromBytes(data)
	if err != nil {
		return UpdateTopic{}, err
	}
	data = data[n:]

	if len(data) < 4+8+1+1 {
		return UpdateTopic{}, brokerrors.ErrInvalidCommand
	}
	u := UpdateTopic{StreamId: streamID, TopicId: topicID}
	u.MessageExpirySecs = binary.LittleEndian.Uint32(data[0:4])
	u.MaxTopicSizeBytes = binary.LittleEndian.Uint64(data[4:12])
	u.ReplicationFactor = data[12]
	nameLen := int(data[13])
	data = data[14:]
	if len(data) != nameLen {
		return UpdateTopic{}, brokerrors.ErrInvalidCommand
	}
	u.Name = string(data)
	return u, nil
}

// EncodeText renders the 6-field `|`-separated textual form.
func (u UpdateTopic) EncodeText() string {
	return strings.Join([]string{
		u.StreamId.ToString(),
		u.TopicId.ToString(),
		strconv.FormatUint(uint64(u.MessageExpirySecs), 10),
		strconv.FormatUint(u.MaxTopicSizeBytes, 10),
		strconv.FormatUint(uint64(u.ReplicationFactor), 10),
		u.Name,
	}, "|")
}

// DecodeUpdateTopicText parses the 6-field textual form.
func DecodeUpdateTopicText(s string) (UpdateTopic, error) {
	parts := strings.Split(s, "|")
	if len(parts) != 6 {
		return UpdateTopic{}, brokerrors.ErrInvalidCommand
	}

	streamID, err := identifier.FromString(parts[0])
	if err != nil {
		return UpdateTopic{}, err
	}
	topicID, err := identifier.FromString(parts[1])
	if err != nil {
		return UpdateTopic{}, err
	}
	expiry, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil {
		return UpdateTopic{}, fmt.Errorf("%w: message_expiry_secs", brokerrors.ErrInvalidCommand)
	}
	maxSize, err := strconv.ParseUint(parts[3], 10, 64)
	if err != nil {
		return UpdateTopic{}, fmt.Errorf("%w: max_topic_size_bytes", brokerrors.ErrInvalidCommand)
	}
	replication, err := strconv.ParseUint(parts[4], 10, 8)
	if err != nil {
		return UpdateTopic{}, fmt.Errorf("%w: replication_factor", brokerrors.ErrInvalidCommand)
	}

	return UpdateTopic{
		StreamId:          streamID,
		TopicId:           topicID,
		MessageExpirySecs: uint32(expiry),
		MaxTopicSizeBytes: maxSize,
		ReplicationFactor: uint8(replication),
		Name:              parts[5],
	}, nil
}
