// Package segment implements the Active->Full->Closed append/read unit
// that backs one partition's offset range. It frames nothing itself;
// batches arrive already framed by the partition and are handed to the
// storage collaborator for persistence.
package segment

import (
	"github.com/tideline-io/tideline/internal/batch"
	"github.com/tideline-io/tideline/internal/brokerrors"
	"github.com/tideline-io/tideline/internal/message"
	"github.com/tideline-io/tideline/internal/storage"
)

// Segment is the in-memory view of one partition's offset range: a log
// file, an offset index and a time index, plus the not-yet-flushed
// batches still sitting in memory.
type Segment struct {
	PartitionId      uint32
	StartOffset      uint64
	EndOffset        uint64
	CurrentOffset    uint64
	CurrentSizeBytes uint32
	IsClosed         bool

	config  Config
	handle  storage.SegmentHandle
	indexes []storage.IndexEntry

	unsavedMessages     []batch.MessagesBatch
	unsavedIndexEntries []storage.IndexEntry
}

// New opens a brand-new active segment starting at startOffset.
func New(partitionID uint32, startOffset uint64, cfg Config, handle storage.SegmentHandle) *Segment {
	return &Segment{
		PartitionId:   partitionID,
		StartOffset:   startOffset,
		EndOffset:     startOffset,
		CurrentOffset: startOffset,
		config:        cfg,
		handle:        handle,
	}
}

// Recover reconstructs a segment's in-memory state from its persisted
// index and log size, for use when a partition is loaded at startup.
func Recover(partitionID uint32, startOffset uint64, isClosed bool, cfg Config, handle storage.SegmentHandle) (*Segment, error) {
	s := New(partitionID, startOffset, cfg, handle)
	s.IsClosed = isClosed

	entries, err := handle.LoadIndex()
	if err != nil {
		return nil, err
	}
	if cfg.EnableIndexCache {
		s.indexes = entries
	}

	s.CurrentSizeBytes = uint32(handle.LogSize())
	if n := len(entries); n > 0 {
		s.CurrentOffset = startOffset + uint64(entries[n-1].RelativeOffset)
	}
	if isClosed {
		s.EndOffset = s.CurrentOffset
	}
	return s, nil
}

// AppendMessages buffers an already-framed batch. One index entry is
// recorded per call, covering the batch's last offset, not one per
// message: this trades index density for write throughput.
func (s *Segment) AppendMessages(b batch.MessagesBatch, lastMessageOffset uint64) error {
	if s.IsClosed {
		return &brokerrors.SegmentClosed{StartOffset: s.StartOffset, PartitionId: s.PartitionId}
	}

	entry := storage.IndexEntry{
		RelativeOffset: uint32(lastMessageOffset - s.StartOffset),
		Position:       s.CurrentSizeBytes,
	}
	if s.config.EnableIndexCache {
		s.indexes = append(s.indexes, entry)
	}
	s.unsavedIndexEntries = append(s.unsavedIndexEntries, entry)

	s.CurrentSizeBytes += b.SizeBytes()
	s.CurrentOffset = lastMessageOffset
	s.unsavedMessages = append(s.unsavedMessages, b)
	return nil
}

// PersistMessages flushes the buffered batches and their index entries
// to storage. It is a no-op when nothing is buffered. If the flush
// leaves the segment full, it closes: end_offset is pinned to the
// current offset and the buffer is dropped, since a closed segment
// never buffers again.
func (s *Segment) PersistMessages() error {
	if len(s.unsavedMessages) == 0 {
		return nil
	}

	frames := make([][]byte, len(s.unsavedMessages))
	for i, b := range s.unsavedMessages {
		frames[i] = batch.EncodeFrame(b)
	}
	if _, err := s.handle.SaveMessages(frames); err != nil {
		return err
	}
	if err := s.handle.SaveIndex(s.unsavedIndexEntries); err != nil {
		return err
	}
	s.unsavedIndexEntries = nil

	if s.IsFull() {
		s.EndOffset = s.CurrentOffset
		s.IsClosed = true
		s.unsavedMessages = nil
	} else {
		s.unsavedMessages = s.unsavedMessages[:0]
	}
	return nil
}

// IsFull reports whether the segment has reached its configured ceiling
// and should roll over on the next persist.
func (s *Segment) IsFull() bool {
	return s.CurrentSizeBytes >= s.config.MaxSegmentSizeBytes
}

// Close releases the segment's log and index file handles without
// removing them from disk.
func (s *Segment) Close() error {
	return s.handle.Close()
}

// Delete removes the segment's on-disk log and index files. Used by
// retention to drop closed segments whose creation time is older than
// the partition's message expiry.
func (s *Segment) Delete() error {
	return s.handle.Delete()
}

// GetMessages returns up to count messages starting at offset, merging
// the on-disk log with whatever is still sitting in the unsaved buffer.
func (s *Segment) GetMessages(offset uint64, count uint32) ([]message.Message, error) {
	if count == 0 {
		return nil, nil
	}
	if offset < s.StartOffset {
		offset = s.StartOffset
	}
	end := offset + uint64(count) - 1

	if len(s.unsavedMessages) == 0 {
		return s.readDisk(offset, end)
	}

	first := s.unsavedMessages[0]
	last := s.unsavedMessages[len(s.unsavedMessages)-1]

	switch {
	case end < first.BaseOffset:
		return s.readDisk(offset, end)
	case offset >= first.BaseOffset && end <= last.LastOffset():
		return s.readBuffer(offset, end)
	default:
		disk, err := s.readDisk(offset, first.BaseOffset-1)
		if err != nil {
			return nil, err
		}
		bufStart := first.BaseOffset
		if offset > bufStart {
			bufStart = offset
		}
		buffered, err := s.readBuffer(bufStart, end)
		if err != nil {
			return nil, err
		}
		return append(disk, buffered...), nil
	}
}

func (s *Segment) readBuffer(offset, end uint64) ([]message.Message, error) {
	var out []message.Message
	for _, b := range s.unsavedMessages {
		if !b.IsContainedOrOverlapping(offset, end) {
			continue
		}
		msgs, err := batch.Decode(b)
		if err != nil {
			return nil, err
		}
		for _, m := range msgs {
			if m.Offset >= offset && m.Offset <= end {
				out = append(out, m)
			}
		}
	}
	return out, nil
}

func (s *Segment) readDisk(offset, end uint64) ([]message.Message, error) {
	if offset > end {
		return nil, nil
	}
	relStart := uint32(offset - s.StartOffset)
	relEnd := uint32(end - s.StartOffset)

	r, ok := s.loadHighestLowerBoundIndex(relStart, relEnd)
	if !ok {
		return nil, nil
	}
	// The upper bracket only names where a batch *starts*; read through to
	// the end of the log so that batch's full bytes are included.
	r.End.Position = uint32(s.handle.LogSize())

	raw, err := s.handle.LoadMessages(r)
	if err != nil {
		return nil, err
	}

	var out []message.Message
	for len(raw) > 0 {
		b, n, err := batch.DecodeFrame(raw)
		if err != nil {
			return nil, err
		}
		raw = raw[n:]
		if !b.IsContainedOrOverlapping(offset, end) {
			continue
		}
		msgs, err := batch.Decode(b)
		if err != nil {
			return nil, err
		}
		for _, m := range msgs {
			if m.Offset >= offset && m.Offset <= end {
				out = append(out, m)
			}
		}
	}
	return out, nil
}

// loadHighestLowerBoundIndex finds the greatest index entry whose
// relative_offset <= relStart as the lower bracket, and the smallest
// whose relative_offset >= relEnd (or the last entry) as the upper
// bracket. A missing or empty index yields no range.
func (s *Segment) loadHighestLowerBoundIndex(relStart, relEnd uint32) (storage.IndexRange, bool) {
	entries := s.indexes
	if len(entries) == 0 {
		var err error
		entries, err = s.handle.LoadIndex()
		if err != nil || len(entries) == 0 {
			return storage.IndexRange{}, false
		}
	}

	lower := entries[0]
	for _, e := range entries {
		if e.RelativeOffset <= relStart {
			lower = e
		} else {
			break
		}
	}

	upper := entries[len(entries)-1]
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].RelativeOffset >= relEnd {
			upper = entries[i]
		} else {
			break
		}
	}

	return storage.IndexRange{Start: lower, End: upper}, true
}
