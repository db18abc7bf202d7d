package wire

import (
	"errors"

	"github.com/tideline-io/tideline/internal/brokerrors"
)

// Response status codes, the byte WriteResponse prepends to the body.
const (
	StatusOk                  byte = 0
	StatusInvalidCommand      byte = 1
	StatusInvalidTopicId      byte = 2
	StatusInvalidTopicName    byte = 3
	StatusInvalidStreamId     byte = 4
	StatusTooManyPartitions   byte = 5
	StatusInvalidReplication  byte = 6
	StatusInvalidMaxTopicSize byte = 7
	StatusPartitionNotFound   byte = 8
	StatusUnauthenticated     byte = 9
	StatusPermissionDenied    byte = 10
	StatusTopicAlreadyExists  byte = 11
	StatusTopicNotFound       byte = 12
	StatusSegmentClosed       byte = 13
	StatusInternalError       byte = 255
)

// StatusForError maps a domain error to its wire status code. Errors
// without a dedicated code below (I/O failures, ErrInvalidStreamName,
// ErrInvalidCompressionAlgorithm, ErrCannotDeleteTopic and anything
// unknown) map to StatusInternalError; callers should log the underlying error
// separately since the wire status carries no message detail.
func StatusForError(err error) byte {
	if err == nil {
		return StatusOk
	}

	var topicIDExists *brokerrors.TopicIdAlreadyExists
	var topicNameExists *brokerrors.TopicNameAlreadyExists
	var topicIDNotFound *brokerrors.TopicIdNotFound
	var topicNameNotFound *brokerrors.TopicNameNotFound
	var segClosed *brokerrors.SegmentClosed

	switch {
	case errors.As(err, &topicIDExists), errors.As(err, &topicNameExists):
		return StatusTopicAlreadyExists
	case errors.As(err, &topicIDNotFound), errors.As(err, &topicNameNotFound):
		return StatusTopicNotFound
	case errors.As(err, &segClosed):
		return StatusSegmentClosed
	case errors.Is(err, brokerrors.ErrInvalidCommand):
		return StatusInvalidCommand
	case errors.Is(err, brokerrors.ErrInvalidTopicId):
		return StatusInvalidTopicId
	case errors.Is(err, brokerrors.ErrInvalidTopicName):
		return StatusInvalidTopicName
	case errors.Is(err, brokerrors.ErrInvalidStreamId):
		return StatusInvalidStreamId
	case errors.Is(err, brokerrors.ErrTooManyPartitions):
		return StatusTooManyPartitions
	case errors.Is(err, brokerrors.ErrInvalidReplicationFactor):
		return StatusInvalidReplication
	case errors.Is(err, brokerrors.ErrInvalidMaxTopicSize):
		return StatusInvalidMaxTopicSize
	case errors.Is(err, brokerrors.ErrPartitionNotFound):
		return StatusPartitionNotFound
	case errors.Is(err, brokerrors.ErrUnauthenticated):
		return StatusUnauthenticated
	case errors.Is(err, brokerrors.ErrPermissionDenied):
		return StatusPermissionDenied
	default:
		return StatusInternalError
	}
}
