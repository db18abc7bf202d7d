// Package stream implements the owner of a fixed set of topics (C6):
// create/update/delete/get with the stream-wide id<->name uniqueness
// invariant kept in lockstep across two maps.
package stream

import (
	"strconv"
	"time"

	"github.com/tideline-io/tideline/internal/brokerrors"
	"github.com/tideline-io/tideline/internal/identifier"
	"github.com/tideline-io/tideline/internal/storage"
	"github.com/tideline-io/tideline/internal/topic"
)

// Stream owns a set of topics by id, with a parallel name index kept in
// lockstep so no two topics share an id or a normalized name.
type Stream struct {
	StreamId  uint32
	Name      string
	CreatedAt int64

	dir          string
	storage      storage.SegmentStorage
	topics       map[uint32]*topic.Topic
	topicsByName map[string]uint32
}

func New(dir string, streamID uint32, name string, strg storage.SegmentStorage) (*Stream, error) {
	normalized := identifier.NormalizeName(name)
	if len(normalized) == 0 || len(normalized) > identifier.MaxNameLength {
		return nil, brokerrors.ErrInvalidStreamName
	}
	return &Stream{
		StreamId:     streamID,
		Name:         normalized,
		CreatedAt:    time.Now().UnixMicro(),
		dir:          dir,
		storage:      strg,
		topics:       make(map[uint32]*topic.Topic),
		topicsByName: make(map[string]uint32),
	}, nil
}

// CreateTopic fails with TopicIdAlreadyExists / TopicNameAlreadyExists if
// either key is already taken, otherwise inserts into both maps.
func (s *Stream) CreateTopic(topicID uint32, name string, partitionsCount uint32, messageExpirySecs uint32, maxTopicSizeBytes uint64, replicationFactor uint8, segmentSizeBytes uint32) (*topic.Topic, error) {
	if _, ok := s.topics[topicID]; ok {
		return nil, &brokerrors.TopicIdAlreadyExists{TopicId: topicID, StreamId: s.StreamId}
	}
	normalized := identifier.NormalizeName(name)
	if _, ok := s.topicsByName[normalized]; ok {
		return nil, &brokerrors.TopicNameAlreadyExists{Name: normalized, StreamId: s.StreamId}
	}

	dir := s.dir + "/" + strconv.FormatUint(uint64(topicID), 10)
	t, err := topic.Create(dir, s.StreamId, topicID, name, partitionsCount, messageExpirySecs, maxTopicSizeBytes, replicationFactor, segmentSizeBytes, s.storage)
	if err != nil {
		return nil, err
	}

	s.topics[topicID] = t
	s.topicsByName[t.Name] = topicID
	return t, nil
}

// UpdateTopic renames a topic, allowing the rename only if the target
// name is free or already points to this same topic id.
func (s *Stream) UpdateTopic(topicID uint32, name string, messageExpirySecs uint32, maxTopicSizeBytes uint64, replicationFactor uint8) error {
	t, ok := s.topics[topicID]
	if !ok {
		return &brokerrors.TopicIdNotFound{TopicId: topicID, StreamId: s.StreamId}
	}

	normalized := identifier.NormalizeName(name)
	if owner, taken := s.topicsByName[normalized]; taken && owner != topicID {
		return &brokerrors.TopicNameAlreadyExists{Name: normalized, StreamId: s.StreamId}
	}

	oldName := t.Name
	if err := t.Update(name, messageExpirySecs, maxTopicSizeBytes, replicationFactor); err != nil {
		return err
	}
	delete(s.topicsByName, oldName)
	s.topicsByName[t.Name] = topicID
	return nil
}

// DeleteTopic removes topicID from both maps and returns the removed
// topic so the caller can update metrics.
func (s *Stream) DeleteTopic(topicID uint32) (*topic.Topic, error) {
	t, ok := s.topics[topicID]
	if !ok {
		return nil, &brokerrors.TopicIdNotFound{TopicId: topicID, StreamId: s.StreamId}
	}
	if err := t.Delete(); err != nil {
		return nil, brokerrors.WrapIO(err, "delete topic")
	}
	delete(s.topics, topicID)
	delete(s.topicsByName, t.Name)
	return t, nil
}

// GetTopic dispatches on the identifier's kind.
func (s *Stream) GetTopic(id identifier.Identifier) (*topic.Topic, error) {
	if id.IsNumeric() {
		t, ok := s.topics[id.Value]
		if !ok {
			return nil, &brokerrors.TopicIdNotFound{TopicId: id.Value, StreamId: s.StreamId}
		}
		return t, nil
	}
	normalized := identifier.NormalizeName(id.Name)
	topicID, ok := s.topicsByName[normalized]
	if !ok {
		return nil, &brokerrors.TopicNameNotFound{Name: normalized, StreamId: s.StreamId}
	}
	return s.topics[topicID], nil
}

// Topics returns every topic keyed by id.
func (s *Stream) Topics() map[uint32]*topic.Topic {
	return s.topics
}
