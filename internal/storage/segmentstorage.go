package storage

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/tideline-io/tideline/internal/brokerrors"
)

// IndexRange brackets the byte positions a disk read should cover, per
// §4.3's load_highest_lower_bound_index.
type IndexRange struct {
	Start IndexEntry
	End   IndexEntry
}

// SegmentHandle is the per-segment half of the SegmentStorage contract
// (§4.1): everything C2 (internal/segment) needs to persist and reload
// one segment's batches and indices. The core holds a SegmentHandle for
// its own lifetime and never opens a file itself.
type SegmentHandle interface {
	SaveMessages(frames [][]byte) (bytesWritten int, err error)
	LoadMessages(r IndexRange) (raw []byte, err error)
	SaveIndex(entries []IndexEntry) error
	LoadIndex() ([]IndexEntry, error)
	SaveTimeIndex(entries []TimeIndexEntry) error
	LoadTimeIndex() ([]TimeIndexEntry, error)
	LogSize() int64
	Close() error
	Delete() error
}

// SegmentStorage is the interface the core consumes (C1). It is
// deliberately narrow: open/delete a segment's files, and persist/load
// the small metadata documents for streams/topics/partitions. A single
// concrete implementation (FileSegmentStorage) backs it in this repo.
type SegmentStorage interface {
	OpenSegment(dir string, startOffset uint64, maxSegmentBytes int64) (SegmentHandle, error)
	DeleteSegment(dir string, startOffset uint64) error

	PersistMetadata(path string, v any) error
	LoadMetadata(path string, v any) error
	DeleteMetadata(path string) error
}

// FileSegmentStorage is the sole concrete SegmentStorage: mmap-backed log
// and index files for segment data, JSON documents for the small
// stream/topic/partition metadata records (§6's persisted state layout).
type FileSegmentStorage struct{}

func NewFileSegmentStorage() *FileSegmentStorage { return &FileSegmentStorage{} }

func (s *FileSegmentStorage) OpenSegment(dir string, startOffset uint64, maxSegmentBytes int64) (SegmentHandle, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, brokerrors.WrapIO(err, "create segment directory")
	}
	log, err := openSegmentLog(dir, startOffset, maxSegmentBytes)
	if err != nil {
		return nil, err
	}
	idx, err := openOffsetIndex(dir, startOffset)
	if err != nil {
		log.close()
		return nil, err
	}
	ti, err := openTimeIndex(dir, startOffset)
	if err != nil {
		log.close()
		idx.close()
		return nil, err
	}
	return &fileSegmentHandle{log: log, idx: idx, timeIdx: ti}, nil
}

func (s *FileSegmentStorage) DeleteSegment(dir string, startOffset uint64) error {
	h, err := s.OpenSegment(dir, startOffset, 0)
	if err == nil {
		return h.Delete()
	}
	return nil
}

func (s *FileSegmentStorage) PersistMetadata(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return brokerrors.WrapIO(err, "create metadata directory")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return brokerrors.WrapIO(err, "marshal metadata")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return brokerrors.WrapIO(err, "write metadata file")
	}
	return nil
}

func (s *FileSegmentStorage) LoadMetadata(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return brokerrors.WrapIO(err, "read metadata file")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return brokerrors.WrapIO(err, "unmarshal metadata")
	}
	return nil
}

func (s *FileSegmentStorage) DeleteMetadata(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return brokerrors.WrapIO(err, "delete metadata file")
	}
	return nil
}

type fileSegmentHandle struct {
	log     *segmentLog
	idx     *offsetIndex
	timeIdx *timeIndex
}

func (h *fileSegmentHandle) SaveMessages(frames [][]byte) (int, error) {
	_, n, err := h.log.append(frames)
	if err != nil {
		return 0, brokerrors.WrapIO(err, "save messages")
	}
	return n, nil
}

func (h *fileSegmentHandle) LoadMessages(r IndexRange) ([]byte, error) {
	raw, err := h.log.readRange(int64(r.Start.Position), int64(r.End.Position))
	if err != nil {
		return nil, brokerrors.WrapIO(err, "load messages")
	}
	return raw, nil
}

func (h *fileSegmentHandle) SaveIndex(entries []IndexEntry) error {
	if err := h.idx.appendEntries(entries); err != nil {
		return brokerrors.WrapIO(err, "save index")
	}
	return nil
}

func (h *fileSegmentHandle) LoadIndex() ([]IndexEntry, error) {
	entries, err := h.idx.loadAll()
	if err != nil {
		return nil, brokerrors.WrapIO(err, "load index")
	}
	return entries, nil
}

func (h *fileSegmentHandle) SaveTimeIndex(entries []TimeIndexEntry) error {
	if err := h.timeIdx.appendEntries(entries); err != nil {
		return brokerrors.WrapIO(err, "save time index")
	}
	return nil
}

func (h *fileSegmentHandle) LoadTimeIndex() ([]TimeIndexEntry, error) {
	entries, err := h.timeIdx.loadAll()
	if err != nil {
		return nil, brokerrors.WrapIO(err, "load time index")
	}
	return entries, nil
}

func (h *fileSegmentHandle) LogSize() int64 { return h.log.size() }

func (h *fileSegmentHandle) Close() error {
	errLog := h.log.close()
	errIdx := h.idx.close()
	errTi := h.timeIdx.close()
	if errLog != nil {
		return brokerrors.WrapIO(errLog, "close segment log")
	}
	if errIdx != nil {
		return brokerrors.WrapIO(errIdx, "close segment index")
	}
	return brokerrors.WrapIO(errTi, "close segment time index")
}

func (h *fileSegmentHandle) Delete() error {
	errLog := h.log.delete()
	errIdx := h.idx.delete()
	errTi := h.timeIdx.delete()
	if errLog != nil {
		return brokerrors.WrapIO(errLog, "delete segment log")
	}
	if errIdx != nil {
		return brokerrors.WrapIO(errIdx, "delete segment index")
	}
	return brokerrors.WrapIO(errTi, "delete segment time index")
}
