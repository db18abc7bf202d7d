// Package brokerrors defines the typed domain errors returned by the
// streaming core. Call sites compare against the sentinel values with
// errors.Is, or errors.As into the parameterized variants below.
package brokerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrInvalidCommand              = errors.New("invalid command")
	ErrInvalidTopicId              = errors.New("invalid topic id")
	ErrInvalidTopicName            = errors.New("invalid topic name")
	ErrInvalidStreamId             = errors.New("invalid stream id")
	ErrInvalidStreamName           = errors.New("invalid stream name")
	ErrTooManyPartitions           = errors.New("too many partitions")
	ErrInvalidReplicationFactor    = errors.New("invalid replication factor")
	ErrInvalidMaxTopicSize         = errors.New("max topic size smaller than segment size")
	ErrPartitionNotFound           = errors.New("partition not found")
	ErrInvalidCompressionAlgorithm = errors.New("invalid compression algorithm")
	ErrInvalidMessage              = errors.New("invalid message")
	ErrUnauthenticated             = errors.New("unauthenticated")
	ErrPermissionDenied            = errors.New("permission denied")
	ErrCannotDeleteTopic           = errors.New("cannot delete topic")
)

// TopicIdAlreadyExists is returned when a topic id is already present in
// the owning stream.
type TopicIdAlreadyExists struct {
	TopicId  uint32
	StreamId uint32
}

func (e *TopicIdAlreadyExists) Error() string {
	return fmt.Sprintf("topic id %d already exists in stream %d", e.TopicId, e.StreamId)
}

// TopicNameAlreadyExists is returned when a normalized topic name is
// already present in the owning stream.
type TopicNameAlreadyExists struct {
	Name     string
	StreamId uint32
}

func (e *TopicNameAlreadyExists) Error() string {
	return fmt.Sprintf("topic name %q already exists in stream %d", e.Name, e.StreamId)
}

// TopicIdNotFound is returned on a lookup miss by numeric id.
type TopicIdNotFound struct {
	TopicId  uint32
	StreamId uint32
}

func (e *TopicIdNotFound) Error() string {
	return fmt.Sprintf("topic id %d not found in stream %d", e.TopicId, e.StreamId)
}

// TopicNameNotFound is returned on a lookup miss by normalized name.
type TopicNameNotFound struct {
	Name     string
	StreamId uint32
}

func (e *TopicNameNotFound) Error() string {
	return fmt.Sprintf("topic name %q not found in stream %d", e.Name, e.StreamId)
}

// SegmentClosed is returned when append_messages targets a closed segment.
type SegmentClosed struct {
	StartOffset uint64
	PartitionId uint32
}

func (e *SegmentClosed) Error() string {
	return fmt.Sprintf("segment %d in partition %d is closed", e.StartOffset, e.PartitionId)
}

// IoError wraps any failure surfaced by the SegmentStorage boundary. It is
// always constructed with WrapIO so the original cause survives for
// errors.Cause / errors.Unwrap.
type IoError struct {
	cause error
}

func (e *IoError) Error() string { return "io error: " + e.cause.Error() }
func (e *IoError) Unwrap() error { return e.cause }
func (e *IoError) Cause() error  { return e.cause }

// WrapIO wraps a storage-layer failure into the core's IoError kind,
// attaching msg as context via github.com/pkg/errors so the original
// stack trace and cause remain inspectable.
func WrapIO(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &IoError{cause: errors.Wrap(err, msg)}
}
