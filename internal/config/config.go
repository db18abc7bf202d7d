// Package config loads broker configuration from an optional file and
// environment variables via viper, and resolves it into one Config that
// embeds the concrete config structs of internal/partition and
// internal/segment.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/tideline-io/tideline/internal/partition"
	"github.com/tideline-io/tideline/internal/segment"
)

// Config is the fully resolved broker configuration.
type Config struct {
	ListenAddr string
	DataDir    string

	LogLevel       string
	LogDevelopment bool

	MetricsAddr string

	// LegacyUDPAddr serves the single-command delete-stream UDP
	// protocol kept for callers that predate the TCP admin commands.
	LegacyUDPAddr string

	MaxPartitionsPerTopic int

	Partition partition.Config
}

// Defaults mirrors the zero-flag, zero-file configuration the broker
// starts with when nothing else is supplied.
func Defaults() Config {
	return Config{
		ListenAddr:            ":8090",
		DataDir:               "./data",
		LogLevel:              "info",
		LogDevelopment:        false,
		MetricsAddr:           ":9090",
		LegacyUDPAddr:         ":8091",
		MaxPartitionsPerTopic: 1000,
		Partition:             partition.DefaultConfig(),
	}
}

// Load builds a viper instance bound to environment variables
// (TIDELINE_* prefix, nested keys like partition.segment.max_segment_size_bytes
// become TIDELINE_PARTITION_SEGMENT_MAX_SEGMENT_SIZE_BYTES) and an
// optional config file. An empty configFile is not an error; it just
// means defaults and environment variables apply.
func Load(configFile string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("tideline")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := Defaults()
	v.SetDefault("listen_addr", def.ListenAddr)
	v.SetDefault("data_dir", def.DataDir)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("log_development", def.LogDevelopment)
	v.SetDefault("metrics_addr", def.MetricsAddr)
	v.SetDefault("legacy_udp_addr", def.LegacyUDPAddr)
	v.SetDefault("max_partitions_per_topic", def.MaxPartitionsPerTopic)
	v.SetDefault("partition.flush_every", def.Partition.FlushEvery)
	v.SetDefault("partition.retention_check_interval_ms", def.Partition.RetentionCheckIntervalMs)
	v.SetDefault("partition.segment.max_segment_size_bytes", def.Partition.SegmentConfig.MaxSegmentSizeBytes)
	v.SetDefault("partition.segment.enable_index_cache", def.Partition.SegmentConfig.EnableIndexCache)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file %q: %w", configFile, err)
		}
	}

	cfg := Config{
		ListenAddr:            v.GetString("listen_addr"),
		DataDir:               v.GetString("data_dir"),
		LogLevel:              v.GetString("log_level"),
		LogDevelopment:        v.GetBool("log_development"),
		MetricsAddr:           v.GetString("metrics_addr"),
		LegacyUDPAddr:         v.GetString("legacy_udp_addr"),
		MaxPartitionsPerTopic: v.GetInt("max_partitions_per_topic"),
		Partition: partition.Config{
			FlushEvery:               v.GetInt("partition.flush_every"),
			RetentionCheckIntervalMs: v.GetInt64("partition.retention_check_interval_ms"),
			SegmentConfig: segment.Config{
				MaxSegmentSizeBytes: uint32(v.GetUint("partition.segment.max_segment_size_bytes")),
				EnableIndexCache:    v.GetBool("partition.segment.enable_index_cache"),
			},
		},
	}

	if cfg.MaxPartitionsPerTopic <= 0 {
		return Config{}, fmt.Errorf("max_partitions_per_topic must be positive, got %d", cfg.MaxPartitionsPerTopic)
	}
	if cfg.Partition.SegmentConfig.MaxSegmentSizeBytes == 0 {
		return Config{}, fmt.Errorf("partition.segment.max_segment_size_bytes must be positive")
	}

	return cfg, nil
}
