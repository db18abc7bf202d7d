package storage

import (
	"fmt"
	"path/filepath"

	"github.com/tideline-io/tideline/internal/brokerrors"
)

// segmentLog is the append-only ".log" file for one segment: a
// concatenation of MessagesBatch frames (each frame's own Length field is
// the frame's total byte size, so frames pack with no extra delimiter).
type segmentLog struct {
	mm *mmapFile
}

func openSegmentLog(dir string, startOffset uint64, maxBytes int64) (*segmentLog, error) {
	path := filepath.Join(dir, fmt.Sprintf("%020d.log", startOffset))
	mm, err := openMmapFile(path, maxBytes)
	if err != nil {
		return nil, brokerrors.WrapIO(err, "open segment log")
	}
	return &segmentLog{mm: mm}, nil
}

// append writes frames as one contiguous region starting at the log's
// current end. It is append-atomic: either every byte lands, or none do
// and the logical size is unchanged.
func (l *segmentLog) append(frames [][]byte) (startPos int64, bytesWritten int, err error) {
	total := 0
	for _, f := range frames {
		total += len(f)
	}
	if l.mm.size+int64(total) > l.mm.capacity {
		return 0, 0, ErrStorageFull
	}

	pos := l.mm.size
	cursor := pos
	for _, f := range frames {
		if err := l.mm.writeAt(cursor, f); err != nil {
			return 0, 0, err
		}
		cursor += int64(len(f))
	}
	l.mm.size = cursor
	return pos, total, nil
}

// readRange returns the raw bytes in [startPos, endPos), copied out of the
// mapped region.
func (l *segmentLog) readRange(startPos, endPos int64) ([]byte, error) {
	if endPos > l.mm.size {
		endPos = l.mm.size
	}
	if startPos >= endPos {
		return nil, nil
	}
	return l.mm.readAt(startPos, endPos-startPos), nil
}

func (l *segmentLog) size() int64 { return l.mm.size }

func (l *segmentLog) close() error  { return l.mm.close(true) }
func (l *segmentLog) delete() error { return l.mm.delete() }
