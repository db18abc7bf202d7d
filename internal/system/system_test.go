package system

import (
	"testing"

	"github.com/tideline-io/tideline/internal/brokerrors"
	"github.com/tideline-io/tideline/internal/identifier"
	"github.com/tideline-io/tideline/internal/storage"
)

type fakeSessions struct{ allowed map[uint32]bool }

func (f *fakeSessions) IsAuthenticated(userID uint32) bool { return f.allowed[userID] }

func TestCreateStreamRequiresAuthentication(t *testing.T) {
	sessions := &fakeSessions{allowed: map[uint32]bool{}}
	sys := New(t.TempDir(), storage.NewFileSegmentStorage(), nil, sessions)

	_, err := sys.CreateStream(1, 1, "orders")
	if err != brokerrors.ErrUnauthenticated {
		t.Fatalf("err = %v, want ErrUnauthenticated", err)
	}

	sessions.allowed[1] = true
	if _, err := sys.CreateStream(1, 1, "orders"); err != nil {
		t.Fatalf("CreateStream once authenticated: %v", err)
	}
}

type denyingPermissioner struct{}

func (denyingPermissioner) Check(userID, streamID uint32, topicID *uint32) error {
	return brokerrors.ErrPermissionDenied
}

func TestPermissionCheckedAfterAuthentication(t *testing.T) {
	sessions := &fakeSessions{allowed: map[uint32]bool{1: true}}
	sys := New(t.TempDir(), storage.NewFileSegmentStorage(), denyingPermissioner{}, sessions)

	_, err := sys.CreateStream(1, 1, "orders")
	if err != brokerrors.ErrPermissionDenied {
		t.Fatalf("err = %v, want ErrPermissionDenied", err)
	}
}

func TestCreateTopicBumpsCounters(t *testing.T) {
	sessions := &fakeSessions{allowed: map[uint32]bool{1: true}}
	sys := New(t.TempDir(), storage.NewFileSegmentStorage(), nil, sessions)

	if _, err := sys.CreateStream(1, 1, "orders"); err != nil {
		t.Fatalf("CreateStream: %v", err)
	}
	if err := sys.CreateTopic(1, 1, 1, "events", 3, 0, 0, 1, 1<<20); err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}

	snap := sys.Snapshot()
	if snap.Streams != 1 || snap.Topics != 1 || snap.Partitions != 3 {
		t.Fatalf("Snapshot = %+v, want Streams=1 Topics=1 Partitions=3", snap)
	}
}

func TestCreateTopicRejectsTooManyPartitions(t *testing.T) {
	sessions := &fakeSessions{allowed: map[uint32]bool{1: true}}
	sys := New(t.TempDir(), storage.NewFileSegmentStorage(), nil, sessions)

	if _, err := sys.CreateStream(1, 1, "orders"); err != nil {
		t.Fatalf("CreateStream: %v", err)
	}
	err := sys.CreateTopic(1, 1, 1, "events", MaxPartitionsCount+1, 0, 0, 1, 1<<20)
	if err != brokerrors.ErrTooManyPartitions {
		t.Fatalf("err = %v, want ErrTooManyPartitions", err)
	}
}

func TestGetTopicThenDeleteTopicDropsCounters(t *testing.T) {
	sessions := &fakeSessions{allowed: map[uint32]bool{1: true}}
	sys := New(t.TempDir(), storage.NewFileSegmentStorage(), nil, sessions)

	if _, err := sys.CreateStream(1, 1, "orders"); err != nil {
		t.Fatalf("CreateStream: %v", err)
	}
	if err := sys.CreateTopic(1, 1, 1, "events", 3, 0, 0, 1, 1<<20); err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}

	tp, err := sys.GetTopic(1, 1, identifier.FromNumeric(1))
	if err != nil {
		t.Fatalf("GetTopic: %v", err)
	}
	if tp.Name != "events" {
		t.Fatalf("GetTopic Name = %q, want events", tp.Name)
	}

	if err := sys.DeleteTopic(1, 1, 1); err != nil {
		t.Fatalf("DeleteTopic: %v", err)
	}

	snap := sys.Snapshot()
	if snap.Topics != 0 || snap.Partitions != 0 {
		t.Fatalf("Snapshot = %+v, want Topics=0 Partitions=0", snap)
	}

	if _, err := sys.GetTopic(1, 1, identifier.FromNumeric(1)); err == nil {
		t.Fatalf("expected GetTopic to fail after DeleteTopic")
	}
}
