package broker

import "github.com/tideline-io/tideline/internal/partition"

// Config wires a listen address and partition policy into one broker.
// Of PartitionConfig, only SegmentConfig.MaxSegmentSizeBytes reaches the
// topics the broker creates; internal/topic takes every other partition
// setting from partition.DefaultConfig().
type Config struct {
	ListenAddr      string
	LegacyUDPAddr   string
	BaseDir         string
	PartitionConfig partition.Config
}
