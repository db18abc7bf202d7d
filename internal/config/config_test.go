package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaultsWithNoFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":8090" {
		t.Fatalf("got listen addr %q, want :8090", cfg.ListenAddr)
	}
	if cfg.Partition.SegmentConfig.MaxSegmentSizeBytes != 100*1024*1024 {
		t.Fatalf("got max segment size %d, want default", cfg.Partition.SegmentConfig.MaxSegmentSizeBytes)
	}
	if cfg.LegacyUDPAddr != ":8091" {
		t.Fatalf("got legacy udp addr %q, want :8091", cfg.LegacyUDPAddr)
	}
}

func TestLoadReadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tideline.yaml")
	contents := "listen_addr: \":9999\"\ndata_dir: \"/var/lib/tideline\"\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":9999" {
		t.Fatalf("got listen addr %q, want :9999", cfg.ListenAddr)
	}
	if cfg.DataDir != "/var/lib/tideline" {
		t.Fatalf("got data dir %q, want /var/lib/tideline", cfg.DataDir)
	}
}

func TestLoadRejectsZeroMaxSegmentSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tideline.yaml")
	contents := "partition:\n  segment:\n    max_segment_size_bytes: 0\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for zero max segment size")
	}
}
