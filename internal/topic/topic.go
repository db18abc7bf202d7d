// Package topic implements a fixed set of partitions sharing an
// expiry/size policy (C5): create, rename/update, delete, and the
// aggregate size/message-count queries.
package topic

import (
	"strconv"
	"time"

	"github.com/tideline-io/tideline/internal/brokerrors"
	"github.com/tideline-io/tideline/internal/identifier"
	"github.com/tideline-io/tideline/internal/partition"
	"github.com/tideline-io/tideline/internal/storage"
)

// Topic is a named group of partitions with a shared retention/size
// policy. message_expiry_secs and max_topic_size_bytes of 0 mean
// unlimited.
type Topic struct {
	StreamId          uint32
	TopicId           uint32
	Name              string
	MessageExpirySecs uint32
	MaxTopicSizeBytes uint64
	ReplicationFactor uint8
	CreatedAt         int64

	dir        string
	storage    storage.SegmentStorage
	partitions map[uint32]*partition.Partition
}

// Create validates the requested policy and opens partitionsCount
// partitions numbered 1..=partitionsCount under dir.
func Create(dir string, streamID, topicID uint32, name string, partitionsCount uint32, messageExpirySecs uint32, maxTopicSizeBytes uint64, replicationFactor uint8, segmentSizeBytes uint32, strg storage.SegmentStorage) (*Topic, error) {
	normalized := identifier.NormalizeName(name)
	if len(normalized) == 0 || len(normalized) > identifier.MaxNameLength {
		return nil, brokerrors.ErrInvalidTopicName
	}
	if replicationFactor < 1 {
		return nil, brokerrors.ErrInvalidReplicationFactor
	}
	if maxTopicSizeBytes != 0 && maxTopicSizeBytes < uint64(segmentSizeBytes) {
		return nil, brokerrors.ErrInvalidMaxTopicSize
	}

	t := &Topic{
		StreamId:          streamID,
		TopicId:           topicID,
		Name:              normalized,
		MessageExpirySecs: messageExpirySecs,
		MaxTopicSizeBytes: maxTopicSizeBytes,
		ReplicationFactor: replicationFactor,
		CreatedAt:         time.Now().UnixMicro(),
		dir:               dir,
		storage:           strg,
		partitions:        make(map[uint32]*partition.Partition, partitionsCount),
	}

	pcfg := partition.DefaultConfig()
	pcfg.SegmentConfig.MaxSegmentSizeBytes = segmentSizeBytes
	for i := uint32(1); i <= partitionsCount; i++ {
		pdir := partitionDir(dir, i)
		p, err := partition.New(pdir, streamID, topicID, i, messageExpirySecs, pcfg, strg)
		if err != nil {
			return nil, err
		}
		t.partitions[i] = p
	}
	return t, nil
}

func partitionDir(topicDir string, partitionID uint32) string {
	return topicDir + "/" + strconv.FormatUint(uint64(partitionID), 10)
}

// Update renames the topic and propagates the expiry policy down to
// every partition, so the next retention sweep picks up the new value.
func (t *Topic) Update(name string, messageExpirySecs uint32, maxTopicSizeBytes uint64, replicationFactor uint8) error {
	normalized := identifier.NormalizeName(name)
	if len(normalized) == 0 || len(normalized) > identifier.MaxNameLength {
		return brokerrors.ErrInvalidTopicName
	}
	if replicationFactor < 1 {
		return brokerrors.ErrInvalidReplicationFactor
	}

	t.Name = normalized
	t.MessageExpirySecs = messageExpirySecs
	t.MaxTopicSizeBytes = maxTopicSizeBytes
	t.ReplicationFactor = replicationFactor
	for _, p := range t.partitions {
		p.MessageExpirySecs = messageExpirySecs
	}
	return nil
}

// Delete closes every partition's segment handles. The partitions' log,
// index and metadata files are left on disk.
func (t *Topic) Delete() error {
	for _, p := range t.partitions {
		if err := p.Close(); err != nil {
			return err
		}
	}
	return nil
}

// Partition returns the partition numbered id, or ErrPartitionNotFound.
func (t *Topic) Partition(id uint32) (*partition.Partition, error) {
	p, ok := t.partitions[id]
	if !ok {
		return nil, brokerrors.ErrPartitionNotFound
	}
	return p, nil
}

// Partitions returns every partition, keyed by id.
func (t *Topic) Partitions() map[uint32]*partition.Partition {
	return t.partitions
}

// SizeBytes is the sum of every partition's on-disk+buffered size.
func (t *Topic) SizeBytes() uint64 {
	var total uint64
	for _, p := range t.partitions {
		total += p.SizeBytes()
	}
	return total
}

// GetMessagesCount is the sum of every partition's message count.
func (t *Topic) GetMessagesCount() uint64 {
	var total uint64
	for _, p := range t.partitions {
		total += p.MessagesCount()
	}
	return total
}
