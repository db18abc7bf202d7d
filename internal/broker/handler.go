package broker

import (
	"time"

	"go.uber.org/zap"

	"github.com/tideline-io/tideline/internal/brokerrors"
	"github.com/tideline-io/tideline/internal/compression"
	"github.com/tideline-io/tideline/internal/identifier"
	"github.com/tideline-io/tideline/internal/message"
	"github.com/tideline-io/tideline/internal/partition"
	"github.com/tideline-io/tideline/internal/wire"
)

// defaultUserID is the user every request is issued as; there is no
// session negotiation on the wire, so every connection acts as user 0,
// matching a single-tenant deployment with System.sessions == nil.
const defaultUserID uint32 = 0

func (b *Broker) handleRequest(env *wire.Envelope) (status byte, body []byte) {
	var err error
	switch env.CommandId {
	case wire.CommandCreateStream:
		body, err = b.handleCreateStream(env.Body)
	case wire.CommandCreateTopic:
		body, err = b.handleCreateTopic(env.Body)
	case wire.CommandUpdateTopic:
		body, err = b.handleUpdateTopic(env.Body)
	case wire.CommandDeleteTopic:
		body, err = b.handleDeleteTopic(env.Body)
	case wire.CommandGetTopic:
		body, err = b.handleGetTopic(env.Body)
	case wire.CommandAppendMessages:
		body, err = b.handleAppend(env.Body)
	case wire.CommandPollMessages:
		body, err = b.handlePoll(env.Body)
	default:
		err = brokerrors.ErrInvalidCommand
	}

	if err != nil {
		b.Logger.Debug("request failed", zap.Uint16("command", env.CommandId), zap.Error(err))
		return wire.StatusForError(err), []byte(err.Error())
	}
	return wire.StatusOk, body
}

func (b *Broker) handleCreateStream(payload []byte) ([]byte, error) {
	req, err := wire.DecodeCreateStreamBinary(payload)
	if err != nil {
		return nil, err
	}
	if _, err := b.System.CreateStream(defaultUserID, req.StreamId, req.Name); err != nil {
		return nil, err
	}
	return nil, nil
}

func (b *Broker) handleCreateTopic(payload []byte) ([]byte, error) {
	req, err := wire.DecodeCreateTopicBinary(payload)
	if err != nil {
		return nil, err
	}
	if !req.StreamId.IsNumeric() {
		return nil, brokerrors.ErrInvalidStreamId
	}
	err = b.System.CreateTopic(
		defaultUserID, req.StreamId.Value, req.TopicId, req.Name,
		req.PartitionsCount, req.MessageExpirySecs, req.MaxTopicSizeBytes,
		req.ReplicationFactor, b.Config.PartitionConfig.SegmentConfig.MaxSegmentSizeBytes,
	)
	return nil, err
}

func (b *Broker) handleUpdateTopic(payload []byte) ([]byte, error) {
	req, err := wire.DecodeUpdateTopicBinary(payload)
	if err != nil {
		return nil, err
	}
	if !req.StreamId.IsNumeric() {
		return nil, brokerrors.ErrInvalidStreamId
	}
	st, err := b.System.GetStream(defaultUserID, req.StreamId.Value)
	if err != nil {
		return nil, err
	}
	tp, err := st.GetTopic(req.TopicId)
	if err != nil {
		return nil, err
	}
	return nil, st.UpdateTopic(tp.TopicId, req.Name, req.MessageExpirySecs, req.MaxTopicSizeBytes, req.ReplicationFactor)
}

func (b *Broker) handleDeleteTopic(payload []byte) ([]byte, error) {
	req, err := wire.DecodeDeleteTopicBinary(payload)
	if err != nil {
		return nil, err
	}
	if !req.StreamId.IsNumeric() {
		return nil, brokerrors.ErrInvalidStreamId
	}
	return nil, b.System.DeleteTopic(defaultUserID, req.StreamId.Value, req.TopicId)
}

func (b *Broker) handleGetTopic(payload []byte) ([]byte, error) {
	req, err := wire.DecodeGetTopicBinary(payload)
	if err != nil {
		return nil, err
	}
	if !req.StreamId.IsNumeric() {
		return nil, brokerrors.ErrInvalidStreamId
	}
	tp, err := b.System.GetTopic(defaultUserID, req.StreamId.Value, req.TopicId)
	if err != nil {
		return nil, err
	}
	info := wire.TopicInfo{
		TopicId:           tp.TopicId,
		StreamId:          tp.StreamId,
		PartitionsCount:   uint32(len(tp.Partitions())),
		MessageExpirySecs: tp.MessageExpirySecs,
		MaxTopicSizeBytes: tp.MaxTopicSizeBytes,
		ReplicationFactor: tp.ReplicationFactor,
		SizeBytes:         tp.SizeBytes(),
		MessagesCount:     tp.GetMessagesCount(),
		Name:              tp.Name,
	}
	return wire.EncodeTopicInfo(info), nil
}

func (b *Broker) handleAppend(payload []byte) ([]byte, error) {
	req, err := wire.DecodeAppendRequestBinary(payload)
	if err != nil {
		return nil, err
	}

	part, err := b.resolvePartition(req.StreamId, req.TopicId, req.PartitionId)
	if err != nil {
		return nil, err
	}

	alg, err := compression.FromCode(req.Compression)
	if err != nil {
		return nil, err
	}

	msgs := make([]message.Message, 0, len(req.Payloads))
	for _, p := range req.Payloads {
		msgs = append(msgs, message.NewMessage(p, nil))
	}

	start := time.Now()
	lastOffset, err := part.Append(msgs, alg)
	elapsed := time.Since(start).Seconds()
	if b.Metrics != nil {
		b.Metrics.RecordAppend(len(msgs), elapsed, err)
	}
	if err != nil {
		return nil, err
	}

	b.System.RecordMessagesAppended(int64(len(msgs)))
	firstOffset := lastOffset - uint64(len(msgs)) + 1
	return wire.EncodeAppendResponse(firstOffset, lastOffset), nil
}

func (b *Broker) handlePoll(payload []byte) ([]byte, error) {
	req, err := wire.DecodePollRequestBinary(payload)
	if err != nil {
		return nil, err
	}

	part, err := b.resolvePartition(req.StreamId, req.TopicId, req.PartitionId)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	msgs, err := part.PollMessages(req.Offset, req.Count)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		return nil, err
	}
	if b.Metrics != nil {
		b.Metrics.RecordPoll(len(msgs), elapsed)
	}
	return wire.EncodePollResponse(msgs), nil
}

func (b *Broker) resolvePartition(streamID, topicID identifier.Identifier, partitionID uint32) (*partition.Partition, error) {
	if !streamID.IsNumeric() {
		return nil, brokerrors.ErrInvalidStreamId
	}
	st, err := b.System.GetStream(defaultUserID, streamID.Value)
	if err != nil {
		return nil, err
	}
	tp, err := st.GetTopic(topicID)
	if err != nil {
		return nil, err
	}
	return tp.Partition(partitionID)
}
