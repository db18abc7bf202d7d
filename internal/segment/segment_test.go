package segment

import (
	"testing"

	"github.com/tideline-io/tideline/internal/batch"
	"github.com/tideline-io/tideline/internal/brokerrors"
	"github.com/tideline-io/tideline/internal/compression"
	"github.com/tideline-io/tideline/internal/message"
	"github.com/tideline-io/tideline/internal/storage"
)

func openTestSegment(t *testing.T, startOffset uint64, maxSize uint32) (*Segment, storage.SegmentHandle) {
	t.Helper()
	dir := t.TempDir()
	fs := storage.NewFileSegmentStorage()
	handle, err := fs.OpenSegment(dir, startOffset, 1<<20)
	if err != nil {
		t.Fatalf("OpenSegment: %v", err)
	}
	t.Cleanup(func() { handle.Close() })

	cfg := Config{MaxSegmentSizeBytes: maxSize, EnableIndexCache: true}
	return New(0, startOffset, cfg, handle), handle
}

func makeBatch(t *testing.T, baseOffset uint64, payloads ...string) (batch.MessagesBatch, uint64) {
	t.Helper()
	msgs := make([]message.Message, len(payloads))
	offset := baseOffset
	for i, p := range payloads {
		m := message.NewMessage([]byte(p), nil)
		m.Offset = offset
		msgs[i] = m
		offset++
	}
	b, err := batch.Encode(baseOffset, uint32(len(payloads)-1), compression.None, msgs)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return b, offset - 1
}

func TestSegmentAppendAndPersist(t *testing.T) {
	s, _ := openTestSegment(t, 0, 1<<20)

	b, last := makeBatch(t, 0, "a", "b", "c")
	if err := s.AppendMessages(b, last); err != nil {
		t.Fatalf("AppendMessages: %v", err)
	}
	if s.CurrentOffset != 2 {
		t.Errorf("CurrentOffset = %d, want 2", s.CurrentOffset)
	}
	if err := s.PersistMessages(); err != nil {
		t.Fatalf("PersistMessages: %v", err)
	}
	if len(s.unsavedMessages) != 0 {
		t.Errorf("expected buffer cleared after persist")
	}
	if s.IsClosed {
		t.Errorf("segment should still be active below its size ceiling")
	}
}

func TestSegmentRollsOverWhenFull(t *testing.T) {
	s, _ := openTestSegment(t, 0, 10)

	b, last := makeBatch(t, 0, "a", "b")
	if err := s.AppendMessages(b, last); err != nil {
		t.Fatalf("AppendMessages: %v", err)
	}
	if err := s.PersistMessages(); err != nil {
		t.Fatalf("PersistMessages: %v", err)
	}
	if !s.IsClosed {
		t.Fatalf("expected segment to close once full")
	}
	if s.EndOffset != s.CurrentOffset {
		t.Errorf("EndOffset = %d, want %d", s.EndOffset, s.CurrentOffset)
	}

	b2, last2 := makeBatch(t, s.CurrentOffset+1, "c")
	err := s.AppendMessages(b2, last2)
	if err == nil {
		t.Fatalf("expected SegmentClosed on a closed segment")
	}
	if _, ok := err.(*brokerrors.SegmentClosed); !ok {
		t.Fatalf("expected *brokerrors.SegmentClosed, got %T", err)
	}
}

func TestSegmentGetMessagesCountZero(t *testing.T) {
	s, _ := openTestSegment(t, 0, 1<<20)
	msgs, err := s.GetMessages(0, 0)
	if err != nil {
		t.Fatalf("GetMessages: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("expected no messages for count=0, got %d", len(msgs))
	}
}

func TestSegmentGetMessagesClampsBelowStart(t *testing.T) {
	s, _ := openTestSegment(t, 5, 1<<20)

	b, last := makeBatch(t, 5, "a", "b")
	if err := s.AppendMessages(b, last); err != nil {
		t.Fatalf("AppendMessages: %v", err)
	}

	below, err := s.GetMessages(0, 2)
	if err != nil {
		t.Fatalf("GetMessages: %v", err)
	}
	atStart, err := s.GetMessages(5, 2)
	if err != nil {
		t.Fatalf("GetMessages: %v", err)
	}
	if len(below) != len(atStart) {
		t.Fatalf("offset below start_offset should behave like start_offset: got %d vs %d", len(below), len(atStart))
	}
}

func TestSegmentGetMessagesFromBufferOnly(t *testing.T) {
	s, _ := openTestSegment(t, 0, 1<<20)

	b, last := makeBatch(t, 0, "a", "b", "c")
	if err := s.AppendMessages(b, last); err != nil {
		t.Fatalf("AppendMessages: %v", err)
	}

	msgs, err := s.GetMessages(0, 3)
	if err != nil {
		t.Fatalf("GetMessages: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	for i, m := range msgs {
		if m.Offset != uint64(i) {
			t.Errorf("message %d has offset %d", i, m.Offset)
		}
	}
}

func TestSegmentGetMessagesMergesDiskAndBuffer(t *testing.T) {
	s, _ := openTestSegment(t, 0, 1<<20)

	first, firstLast := makeBatch(t, 0, "a", "b", "c", "d", "e")
	if err := s.AppendMessages(first, firstLast); err != nil {
		t.Fatalf("AppendMessages: %v", err)
	}
	if err := s.PersistMessages(); err != nil {
		t.Fatalf("PersistMessages: %v", err)
	}

	second, secondLast := makeBatch(t, s.CurrentOffset+1, "f", "g")
	if err := s.AppendMessages(second, secondLast); err != nil {
		t.Fatalf("AppendMessages: %v", err)
	}

	msgs, err := s.GetMessages(3, 4)
	if err != nil {
		t.Fatalf("GetMessages: %v", err)
	}
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages spanning disk and buffer, got %d", len(msgs))
	}
	want := []uint64{3, 4, 5, 6}
	for i, m := range msgs {
		if m.Offset != want[i] {
			t.Errorf("message %d has offset %d, want %d", i, m.Offset, want[i])
		}
	}
}
