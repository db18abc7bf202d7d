package partition

import "github.com/tideline-io/tideline/internal/segment"

// Config bounds one partition's segment size and the policy for when
// buffered batches are flushed to storage.
type Config struct {
	SegmentConfig segment.Config

	// FlushEvery controls how often PersistMessages runs after Append:
	// 1 means every append, N means every Nth append.
	FlushEvery int

	// RetentionCheckIntervalMs is how often the retention sweep runs; 0
	// disables the background sweep entirely.
	RetentionCheckIntervalMs int64
}

func DefaultConfig() Config {
	return Config{
		SegmentConfig:            segment.DefaultConfig(),
		FlushEvery:               1,
		RetentionCheckIntervalMs: 30_000,
	}
}
