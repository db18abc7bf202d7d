// Package system implements the root aggregate (C7): the stream map,
// session/permission checks ahead of every operation, and the
// process-wide counters. The permission matrix itself and metrics
// counters are treated as external collaborators per the contract;
// System only defines the interfaces it consults before delegating.
package system

import (
	"sync"

	"github.com/tideline-io/tideline/internal/brokerrors"
	"github.com/tideline-io/tideline/internal/identifier"
	"github.com/tideline-io/tideline/internal/partition"
	"github.com/tideline-io/tideline/internal/storage"
	"github.com/tideline-io/tideline/internal/stream"
	"github.com/tideline-io/tideline/internal/topic"
)

// RetentionRegistrar receives every partition opened by CreateTopic so it
// can be swept for expired segments. A nil registrar (the default)
// disables background retention.
type RetentionRegistrar interface {
	Register(p *partition.Partition)
}

// Permissioner is consulted after authentication and before every
// operation that touches a stream/topic. A nil Permissioner allows
// everything, matching a single-tenant deployment with auth disabled.
type Permissioner interface {
	Check(userID uint32, streamID uint32, topicID *uint32) error
}

// SessionRegistry answers whether userID currently holds an
// authenticated session.
type SessionRegistry interface {
	IsAuthenticated(userID uint32) bool
}

// Counters tracks the process-wide monotonic-except-at-deletion
// totals named in §4.7.
type Counters struct {
	Streams    int64
	Topics     int64
	Partitions int64
	Segments   int64
	Messages   int64
}

// System is the root: it owns every stream by id and gates every public
// operation behind authentication and permission checks before
// delegating to the owning stream/topic/partition.
type System struct {
	mu      sync.RWMutex
	streams map[uint32]*stream.Stream

	dir          string
	storage      storage.SegmentStorage
	permissioner Permissioner
	sessions     SessionRegistry
	retention    RetentionRegistrar

	countersMu sync.Mutex
	counters   Counters
}

func New(dir string, strg storage.SegmentStorage, permissioner Permissioner, sessions SessionRegistry) *System {
	return &System{
		streams:      make(map[uint32]*stream.Stream),
		dir:          dir,
		storage:      strg,
		permissioner: permissioner,
		sessions:     sessions,
	}
}

// SetRetentionRegistrar wires a background retention sweeper; every
// partition CreateTopic opens from then on is registered with it.
func (s *System) SetRetentionRegistrar(r RetentionRegistrar) {
	s.retention = r
}

func (s *System) authorize(userID uint32, streamID uint32, topicID *uint32) error {
	if s.sessions != nil && !s.sessions.IsAuthenticated(userID) {
		return brokerrors.ErrUnauthenticated
	}
	if s.permissioner != nil {
		if err := s.permissioner.Check(userID, streamID, topicID); err != nil {
			return err
		}
	}
	return nil
}

// CreateStream validates and inserts a new stream.
func (s *System) CreateStream(userID, streamID uint32, name string) (*stream.Stream, error) {
	if err := s.authorize(userID, streamID, nil); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.streams[streamID]; ok {
		return nil, brokerrors.ErrInvalidStreamId
	}

	dir := s.dir + "/" + identifier.FromNumeric(streamID).String()
	st, err := stream.New(dir, streamID, name, s.storage)
	if err != nil {
		return nil, err
	}
	s.streams[streamID] = st

	s.countersMu.Lock()
	s.counters.Streams++
	s.countersMu.Unlock()
	return st, nil
}

// GetStream returns the stream by numeric id, authorized against userID.
func (s *System) GetStream(userID, streamID uint32) (*stream.Stream, error) {
	if err := s.authorize(userID, streamID, nil); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.streams[streamID]
	if !ok {
		return nil, brokerrors.ErrInvalidStreamId
	}
	return st, nil
}

// DeleteStream removes a stream and deletes every topic in it, adjusting
// counters by the topics/partitions/segments they held. Topic deletion
// closes partitions without removing their files from disk.
func (s *System) DeleteStream(userID, streamID uint32) error {
	if err := s.authorize(userID, streamID, nil); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.streams[streamID]
	if !ok {
		return brokerrors.ErrInvalidStreamId
	}
	for topicID := range st.Topics() {
		tp, err := st.DeleteTopic(topicID)
		if err != nil {
			return err
		}
		partitionsCount := int64(len(tp.Partitions()))
		s.countersMu.Lock()
		s.counters.Topics--
		s.counters.Partitions -= partitionsCount
		s.counters.Segments -= partitionsCount
		s.countersMu.Unlock()
	}
	delete(s.streams, streamID)

	s.countersMu.Lock()
	s.counters.Streams--
	s.countersMu.Unlock()
	return nil
}

// CreateTopic authorizes against (userID, streamID, topicID) and
// delegates to the owning stream.
func (s *System) CreateTopic(userID, streamID, topicID uint32, name string, partitionsCount, messageExpirySecs uint32, maxTopicSizeBytes uint64, replicationFactor uint8, segmentSizeBytes uint32) error {
	tid := topicID
	if err := s.authorize(userID, streamID, &tid); err != nil {
		return err
	}

	s.mu.RLock()
	st, ok := s.streams[streamID]
	s.mu.RUnlock()
	if !ok {
		return brokerrors.ErrInvalidStreamId
	}

	if partitionsCount > MaxPartitionsCount {
		return brokerrors.ErrTooManyPartitions
	}

	tp, err := st.CreateTopic(topicID, name, partitionsCount, messageExpirySecs, maxTopicSizeBytes, replicationFactor, segmentSizeBytes)
	if err != nil {
		return err
	}

	if s.retention != nil {
		for _, p := range tp.Partitions() {
			s.retention.Register(p)
		}
	}

	s.countersMu.Lock()
	s.counters.Topics++
	s.counters.Partitions += int64(partitionsCount)
	s.counters.Segments += int64(partitionsCount)
	s.countersMu.Unlock()
	return nil
}

// DeleteTopic authorizes against (userID, streamID, topicID) and removes
// the topic from its owning stream, adjusting counters by the
// partitions/segments it held.
func (s *System) DeleteTopic(userID, streamID, topicID uint32) error {
	tid := topicID
	if err := s.authorize(userID, streamID, &tid); err != nil {
		return err
	}

	s.mu.RLock()
	st, ok := s.streams[streamID]
	s.mu.RUnlock()
	if !ok {
		return brokerrors.ErrInvalidStreamId
	}

	tp, err := st.DeleteTopic(topicID)
	if err != nil {
		return err
	}

	partitionsCount := int64(len(tp.Partitions()))
	s.countersMu.Lock()
	s.counters.Topics--
	s.counters.Partitions -= partitionsCount
	s.counters.Segments -= partitionsCount
	s.countersMu.Unlock()
	return nil
}

// GetTopic authorizes against (userID, streamID) and resolves topicID
// (numeric or named) within the owning stream.
func (s *System) GetTopic(userID, streamID uint32, topicID identifier.Identifier) (*topic.Topic, error) {
	if err := s.authorize(userID, streamID, nil); err != nil {
		return nil, err
	}

	s.mu.RLock()
	st, ok := s.streams[streamID]
	s.mu.RUnlock()
	if !ok {
		return nil, brokerrors.ErrInvalidStreamId
	}
	return st.GetTopic(topicID)
}

// MaxPartitionsCount bounds CreateTopic's partitions_count per §7.
const MaxPartitionsCount = 1000

// Snapshot returns a copy of the current counters.
func (s *System) Snapshot() Counters {
	s.countersMu.Lock()
	defer s.countersMu.Unlock()
	return s.counters
}

// RecordMessagesAppended bumps the global message counter; called by
// the request handler after a successful append.
func (s *System) RecordMessagesAppended(n int64) {
	s.countersMu.Lock()
	s.counters.Messages += n
	s.countersMu.Unlock()
}
