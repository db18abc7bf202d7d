// Package partition implements the per-partition segment list: strictly
// monotonic offset assignment, append/flush/rollover, and multi-segment
// reads (C4).
package partition

import (
	"sort"
	"sync"
	"time"

	"github.com/tideline-io/tideline/internal/batch"
	"github.com/tideline-io/tideline/internal/compression"
	"github.com/tideline-io/tideline/internal/message"
	"github.com/tideline-io/tideline/internal/segment"
	"github.com/tideline-io/tideline/internal/storage"
)

// segmentMeta is the on-disk record persisted alongside a partition's
// segment list, recovered at startup and updated on every rollover.
type segmentMeta struct {
	StartOffset     uint64 `json:"start_offset"`
	IsClosed        bool   `json:"is_closed"`
	CreatedAtMillis int64  `json:"created_at_millis"`
}

type partitionMeta struct {
	CurrentOffset     uint64        `json:"current_offset"`
	MessageExpirySecs uint32        `json:"message_expiry_secs"`
	MessageCount      uint64        `json:"message_count"`
	Segments          []segmentMeta `json:"segments"`
}

// Partition owns a sorted list of segments, exactly one of which (the
// last) is active. Offsets are assigned here, never by the caller.
type Partition struct {
	mu sync.RWMutex

	Dir               string
	StreamId          uint32
	TopicId           uint32
	PartitionId       uint32
	CurrentOffset     uint64
	MessageExpirySecs uint32
	MessageCount      uint64

	config  Config
	storage storage.SegmentStorage

	segments    []*segment.Segment
	segMeta     []segmentMeta
	appendCount int
}

func metaPath(dir string) string { return dir + "/partition.info" }

// New creates or recovers the partition rooted at dir.
func New(dir string, streamID, topicID, partitionID uint32, messageExpirySecs uint32, cfg Config, strg storage.SegmentStorage) (*Partition, error) {
	p := &Partition{
		Dir:               dir,
		StreamId:          streamID,
		TopicId:           topicID,
		PartitionId:       partitionID,
		MessageExpirySecs: messageExpirySecs,
		config:            cfg,
		storage:           strg,
	}

	var meta partitionMeta
	err := strg.LoadMetadata(metaPath(dir), &meta)
	switch {
	case err == nil:
		if err := p.recoverFrom(meta); err != nil {
			return nil, err
		}
	default:
		if err := p.createFirstSegment(); err != nil {
			return nil, err
		}
		if err := p.persistMeta(); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Partition) recoverFrom(meta partitionMeta) error {
	p.CurrentOffset = meta.CurrentOffset
	p.MessageCount = meta.MessageCount
	if meta.MessageExpirySecs != 0 {
		p.MessageExpirySecs = meta.MessageExpirySecs
	}
	for _, sm := range meta.Segments {
		handle, err := p.storage.OpenSegment(p.Dir, sm.StartOffset, int64(p.config.SegmentConfig.MaxSegmentSizeBytes))
		if err != nil {
			return err
		}
		seg, err := segment.Recover(p.PartitionId, sm.StartOffset, sm.IsClosed, p.config.SegmentConfig, handle)
		if err != nil {
			return err
		}
		p.segments = append(p.segments, seg)
		p.segMeta = append(p.segMeta, sm)
	}
	if len(p.segments) == 0 {
		return p.createFirstSegment()
	}
	return nil
}

func (p *Partition) createFirstSegment() error {
	return p.openNewSegment(0)
}

func (p *Partition) openNewSegment(startOffset uint64) error {
	handle, err := p.storage.OpenSegment(p.Dir, startOffset, int64(p.config.SegmentConfig.MaxSegmentSizeBytes))
	if err != nil {
		return err
	}
	seg := segment.New(p.PartitionId, startOffset, p.config.SegmentConfig, handle)
	p.segments = append(p.segments, seg)
	p.segMeta = append(p.segMeta, segmentMeta{StartOffset: startOffset, CreatedAtMillis: time.Now().UnixMilli()})
	return nil
}

func (p *Partition) active() *segment.Segment {
	return p.segments[len(p.segments)-1]
}

func (p *Partition) persistMeta() error {
	meta := partitionMeta{
		CurrentOffset:     p.CurrentOffset,
		MessageExpirySecs: p.MessageExpirySecs,
		MessageCount:      p.MessageCount,
		Segments:          make([]segmentMeta, len(p.segments)),
	}
	for i, seg := range p.segments {
		sm := p.segMeta[i]
		sm.IsClosed = seg.IsClosed
		p.segMeta[i] = sm
		meta.Segments[i] = sm
	}
	return p.storage.PersistMetadata(metaPath(p.Dir), meta)
}

// Append assigns monotonic offsets to msgs, frames them into a single
// batch on the active segment, and flushes per the configured policy.
// Rollover to a new active segment happens transparently when the flush
// leaves the active segment full.
func (p *Partition) Append(msgs []message.Message, alg compression.Algorithm) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(msgs) == 0 {
		return p.CurrentOffset, nil
	}

	baseOffset := p.CurrentOffset + 1
	if p.MessageCount == 0 {
		baseOffset = 0
	}
	now := uint64(time.Now().UnixMilli())
	for i := range msgs {
		msgs[i].Offset = baseOffset + uint64(i)
		msgs[i].Timestamp = now
	}
	lastOffset := msgs[len(msgs)-1].Offset

	b, err := batch.Encode(baseOffset, uint32(len(msgs)-1), alg, msgs)
	if err != nil {
		return 0, err
	}

	if err := p.active().AppendMessages(b, lastOffset); err != nil {
		return 0, err
	}
	p.CurrentOffset = lastOffset
	p.MessageCount += uint64(len(msgs))
	p.appendCount++

	if p.config.FlushEvery <= 0 || p.appendCount >= p.config.FlushEvery {
		p.appendCount = 0
		if err := p.flushActive(); err != nil {
			return 0, err
		}
	}
	return lastOffset, nil
}

func (p *Partition) flushActive() error {
	active := p.active()
	if err := active.PersistMessages(); err != nil {
		return err
	}
	if active.IsClosed {
		if err := p.openNewSegment(p.CurrentOffset + 1); err != nil {
			return err
		}
	}
	return p.persistMeta()
}

// Flush forces any buffered batches in the active segment to storage,
// independent of the configured FlushEvery cadence.
func (p *Partition) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flushActive()
}

// PollMessages walks the segment list starting from the first one that
// could contain offset, accumulating messages across segment boundaries
// until count is satisfied or segments run out.
func (p *Partition) PollMessages(offset uint64, count uint32) ([]message.Message, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if count == 0 || len(p.segments) == 0 {
		return nil, nil
	}

	startIdx := p.findSegmentIndex(offset)
	if startIdx < 0 {
		return nil, nil
	}

	var out []message.Message
	remaining := count
	for i := startIdx; i < len(p.segments) && remaining > 0; i++ {
		seg := p.segments[i]
		readOffset := offset
		if i > startIdx {
			readOffset = seg.StartOffset
		}
		msgs, err := seg.GetMessages(readOffset, remaining)
		if err != nil {
			return nil, err
		}
		out = append(out, msgs...)
		remaining = count - uint32(len(out))
	}
	return out, nil
}

// findSegmentIndex returns the index of the first segment whose
// [start_offset, end_offset_or_current] range could contain offset.
func (p *Partition) findSegmentIndex(offset uint64) int {
	idx := sort.Search(len(p.segments), func(i int) bool {
		return p.segments[i].StartOffset > offset
	}) - 1
	if idx < 0 {
		idx = 0
	}
	upper := p.segments[idx].EndOffset
	if !p.segments[idx].IsClosed {
		upper = p.segments[idx].CurrentOffset
	}
	if offset > upper && idx == len(p.segments)-1 {
		return -1
	}
	return idx
}

// DeleteExpiredSegments removes every closed segment, except the active
// one, whose age since creation exceeds MessageExpirySecs. A zero
// MessageExpirySecs means "unlimited" and disables the sweep.
func (p *Partition) DeleteExpiredSegments(now time.Time) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.MessageExpirySecs == 0 {
		return 0, nil
	}
	cutoff := now.Add(-time.Duration(p.MessageExpirySecs) * time.Second).UnixMilli()

	deleted := 0
	for len(p.segments) > 1 {
		oldest := p.segments[0]
		if !oldest.IsClosed || p.segMeta[0].CreatedAtMillis > cutoff {
			break
		}
		if err := oldest.Delete(); err != nil {
			return deleted, err
		}
		p.segments = p.segments[1:]
		p.segMeta = p.segMeta[1:]
		deleted++
	}
	if deleted > 0 {
		if err := p.persistMeta(); err != nil {
			return deleted, err
		}
	}
	return deleted, nil
}

// Close releases every segment handle.
func (p *Partition) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, seg := range p.segments {
		if err := seg.Close(); err != nil {
			return err
		}
	}
	return nil
}

// MessagesCount returns the total number of messages ever appended to
// this partition.
func (p *Partition) MessagesCount() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.MessageCount
}

// SizeBytes sums the on-disk+buffered size of every segment.
func (p *Partition) SizeBytes() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var total uint64
	for _, seg := range p.segments {
		total += uint64(seg.CurrentSizeBytes)
	}
	return total
}
