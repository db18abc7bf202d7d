package storage

import (
	"encoding/binary"
	"fmt"
	"path/filepath"

	"github.com/tideline-io/tideline/internal/brokerrors"
)

// IndexEntry is one offset->position mapping, 8 bytes on disk.
type IndexEntry struct {
	RelativeOffset uint32
	Position       uint32
}

// TimeIndexEntry is one offset->timestamp mapping, 12 bytes on disk.
type TimeIndexEntry struct {
	RelativeOffset uint32
	Timestamp      uint64
}

const (
	indexEntryWidth     = 8
	timeIndexEntryWidth = 12

	defaultIndexCapacityEntries = 128 * 1024
)

// entryTable is a fixed-width-record mmap file shared by the offset index
// and the time index; only the (de)serialization of one entry differs.
type entryTable struct {
	mm    *mmapFile
	width int64
}

func openEntryTable(path string, width int64, maxEntries int64) (*entryTable, error) {
	mm, err := openMmapFile(path, width*maxEntries)
	if err != nil {
		return nil, brokerrors.WrapIO(err, "open index file")
	}
	return &entryTable{mm: mm, width: width}, nil
}

func (t *entryTable) append(raw []byte) error {
	if int64(len(raw))%t.width != 0 {
		return fmt.Errorf("%w: %d bytes is not a multiple of entry width %d", ErrIndexEntryBad, len(raw), t.width)
	}
	if err := t.mm.writeAt(t.mm.size, raw); err != nil {
		return err
	}
	t.mm.size += int64(len(raw))
	return nil
}

func (t *entryTable) readAll() []byte {
	return t.mm.readAt(0, t.mm.size)
}

func (t *entryTable) close() error  { return t.mm.close(true) }
func (t *entryTable) delete() error { return t.mm.delete() }

// offsetIndex is the ".index" file: 8-byte {relative_offset, position}
// entries in non-decreasing relative_offset order.
type offsetIndex struct{ t *entryTable }

func openOffsetIndex(dir string, startOffset uint64) (*offsetIndex, error) {
	path := filepath.Join(dir, fmt.Sprintf("%020d.index", startOffset))
	t, err := openEntryTable(path, indexEntryWidth, defaultIndexCapacityEntries)
	if err != nil {
		return nil, err
	}
	return &offsetIndex{t: t}, nil
}

func (idx *offsetIndex) appendEntries(entries []IndexEntry) error {
	buf := make([]byte, 0, len(entries)*indexEntryWidth)
	for _, e := range entries {
		var raw [indexEntryWidth]byte
		binary.LittleEndian.PutUint32(raw[0:4], e.RelativeOffset)
		binary.LittleEndian.PutUint32(raw[4:8], e.Position)
		buf = append(buf, raw[:]...)
	}
	return idx.t.append(buf)
}

func (idx *offsetIndex) loadAll() ([]IndexEntry, error) {
	raw := idx.t.readAll()
	n := len(raw) / indexEntryWidth
	out := make([]IndexEntry, n)
	for i := 0; i < n; i++ {
		off := i * indexEntryWidth
		out[i] = IndexEntry{
			RelativeOffset: binary.LittleEndian.Uint32(raw[off : off+4]),
			Position:       binary.LittleEndian.Uint32(raw[off+4 : off+8]),
		}
	}
	return out, nil
}

func (idx *offsetIndex) close() error  { return idx.t.close() }
func (idx *offsetIndex) delete() error { return idx.t.delete() }

// timeIndex is the ".timeindex" file: 12-byte {relative_offset,
// timestamp} entries. Never populated by any call site yet; an
// extension point, not a bug.
type timeIndex struct{ t *entryTable }

func openTimeIndex(dir string, startOffset uint64) (*timeIndex, error) {
	path := filepath.Join(dir, fmt.Sprintf("%020d.timeindex", startOffset))
	t, err := openEntryTable(path, timeIndexEntryWidth, defaultIndexCapacityEntries)
	if err != nil {
		return nil, err
	}
	return &timeIndex{t: t}, nil
}

func (ti *timeIndex) appendEntries(entries []TimeIndexEntry) error {
	buf := make([]byte, 0, len(entries)*timeIndexEntryWidth)
	for _, e := range entries {
		var raw [timeIndexEntryWidth]byte
		binary.LittleEndian.PutUint32(raw[0:4], e.RelativeOffset)
		binary.LittleEndian.PutUint64(raw[4:12], e.Timestamp)
		buf = append(buf, raw[:]...)
	}
	return ti.t.append(buf)
}

func (ti *timeIndex) loadAll() ([]TimeIndexEntry, error) {
	raw := ti.t.readAll()
	n := len(raw) / timeIndexEntryWidth
	out := make([]TimeIndexEntry, n)
	for i := 0; i < n; i++ {
		off := i * timeIndexEntryWidth
		out[i] = TimeIndexEntry{
			RelativeOffset: binary.LittleEndian.Uint32(raw[off : off+4]),
			Timestamp:      binary.LittleEndian.Uint64(raw[off+4 : off+12]),
		}
	}
	return out, nil
}

func (ti *timeIndex) close() error  { return ti.t.close() }
func (ti *timeIndex) delete() error { return ti.t.delete() }
