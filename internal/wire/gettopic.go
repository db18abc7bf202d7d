package wire

import (
	"encoding/binary"

	"github.com/tideline-io/tideline/internal/brokerrors"
	"github.com/tideline-io/tideline/internal/identifier"
)

// GetTopic addresses a topic for a metadata lookup, by either numeric id
// or name.
type GetTopic struct {
	StreamId identifier.Identifier
	TopicId  identifier.Identifier
}

// EncodeBinary serializes GetTopic.
func (g GetTopic) EncodeBinary() []byte {
	streamBytes := g.StreamId.AsBytes()
	topicBytes := g.TopicId.AsBytes()
	buf := make([]byte, 0, len(streamBytes)+len(topicBytes))
	buf = append(buf, streamBytes...)
	buf = append(buf, topicBytes...)
	return buf
}

// DecodeGetTopicBinary parses a GetTopic payload.
func DecodeGetTopicBinary(data []byte) (GetTopic, error) {
	streamID, n, err := identifier.FromBytes(data)
	if err != nil {
		return GetTopic{}, err
	}
	data = data[n:]
	topicID, _, err := identifier.FromBytes(data)
	if err != nil {
		return GetTopic{}, err
	}
	return GetTopic{StreamId: streamID, TopicId: topicID}, nil
}

// TopicInfo is the metadata GetTopic returns: topic_id:u32 | stream_id:u32
// | partitions_count:u32 | message_expiry_secs:u32 |
// max_topic_size_bytes:u64 | replication_factor:u8 | size_bytes:u64 |
// messages_count:u64 | name_len:u8 | name.
type TopicInfo struct {
	TopicId           uint32
	StreamId          uint32
	PartitionsCount   uint32
	MessageExpirySecs uint32
	MaxTopicSizeBytes uint64
	ReplicationFactor uint8
	SizeBytes         uint64
	MessagesCount     uint64
	Name              string
}

const topicInfoFixedSize = 4 + 4 + 4 + 4 + 8 + 1 + 8 + 8 + 1

// EncodeTopicInfo serializes a GetTopic response.
func EncodeTopicInfo(info TopicInfo) []byte {
	buf := make([]byte, 0, topicInfoFixedSize+len(info.Name))

	var u32buf [4]byte
	binary.LittleEndian.PutUint32(u32buf[:], info.TopicId)
	buf = append(buf, u32buf[:]...)
	binary.LittleEndian.PutUint32(u32buf[:], info.StreamId)
	buf = append(buf, u32buf[:]...)
	binary.LittleEndian.PutUint32(u32buf[:], info.PartitionsCount)
	buf = append(buf, u32buf[:]...)
	binary.LittleEndian.PutUint32(u32buf[:], info.MessageExpirySecs)
	buf = append(buf, u32buf[:]...)

	var u64buf [8]byte
	binary.LittleEndian.PutUint64(u64buf[:], info.MaxTopicSizeBytes)
	buf = append(buf, u64buf[:]...)

	buf = append(buf, info.ReplicationFactor)

	binary.LittleEndian.PutUint64(u64buf[:], info.SizeBytes)
	buf = append(buf, u64buf[:]...)
	binary.LittleEndian.PutUint64(u64buf[:], info.MessagesCount)
	buf = append(buf, u64buf[:]...)

	buf = append(buf, byte(len(info.Name)))
	buf = append(buf, info.Name...)
	return buf
}

// DecodeTopicInfo parses a GetTopic response.
func DecodeTopicInfo(data []byte) (TopicInfo, error) {
	if len(data) < topicInfoFixedSize {
		return TopicInfo{}, brokerrors.ErrInvalidCommand
	}
	var info TopicInfo
	info.TopicId = binary.LittleEndian.Uint32(data[0:4])
	info.StreamId = binary.LittleEndian.Uint32(data[4:8])
	info.PartitionsCount = binary.LittleEndian.Uint32(data[8:12])
	info.MessageExpirySecs = binary.LittleEndian.Uint32(data[12:16])
	info.MaxTopicSizeBytes = binary.LittleEndian.Uint64(data[16:24])
	info.ReplicationFactor = data[24]
	info.SizeBytes = binary.LittleEndian.Uint64(data[25:33])
	info.MessagesCount = binary.LittleEndian.Uint64(data[33:41])
	nameLen := int(data[41])
	rest := data[topicInfoFixedSize:]
	if len(rest) != nameLen {
		return TopicInfo{}, brokerrors.ErrInvalidCommand
	}
	info.Name = string(rest)
	return info, nil
}
