package stream

import (
	"testing"

	"github.com/tideline-io/tideline/internal/brokerrors"
	"github.com/tideline-io/tideline/internal/identifier"
	"github.com/tideline-io/tideline/internal/storage"
)

func newTestStream(t *testing.T) *Stream {
	t.Helper()
	s, err := New(t.TempDir(), 1, "orders-stream", storage.NewFileSegmentStorage())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestCreateTopicRejectsDuplicateId(t *testing.T) {
	s := newTestStream(t)
	if _, err := s.CreateTopic(2, "a", 1, 0, 0, 1, 1<<20); err != nil {
		t.Fatalf("first CreateTopic: %v", err)
	}
	_, err := s.CreateTopic(2, "b", 1, 0, 0, 1, 1<<20)
	if _, ok := err.(*brokerrors.TopicIdAlreadyExists); !ok {
		t.Fatalf("err = %v, want *TopicIdAlreadyExists", err)
	}
}

func TestCreateTopicRejectsDuplicateName(t *testing.T) {
	s := newTestStream(t)
	if _, err := s.CreateTopic(1, "shared", 1, 0, 0, 1, 1<<20); err != nil {
		t.Fatalf("first CreateTopic: %v", err)
	}
	_, err := s.CreateTopic(2, "Shared", 1, 0, 0, 1, 1<<20)
	if _, ok := err.(*brokerrors.TopicNameAlreadyExists); !ok {
		t.Fatalf("err = %v, want *TopicNameAlreadyExists", err)
	}
}

func TestUpdateTopicAllowsRenameToOwnName(t *testing.T) {
	s := newTestStream(t)
	if _, err := s.CreateTopic(1, "orders", 2, 0, 0, 1, 1<<20); err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}
	if err := s.UpdateTopic(1, "orders", 30, 0, 1); err != nil {
		t.Fatalf("UpdateTopic to own name: %v", err)
	}
}

func TestGetTopicByIdAndName(t *testing.T) {
	s := newTestStream(t)
	if _, err := s.CreateTopic(5, "clicks", 1, 0, 0, 1, 1<<20); err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}

	byID, err := s.GetTopic(identifier.FromNumeric(5))
	if err != nil {
		t.Fatalf("GetTopic by id: %v", err)
	}
	byNameID, err := identifier.FromName("clicks")
	if err != nil {
		t.Fatalf("FromName: %v", err)
	}
	byName, err := s.GetTopic(byNameID)
	if err != nil {
		t.Fatalf("GetTopic by name: %v", err)
	}
	if byID != byName {
		t.Fatalf("GetTopic by id and by name returned different topics")
	}

	if _, err := s.GetTopic(identifier.FromNumeric(99)); err == nil {
		t.Fatalf("expected TopicIdNotFound for missing id")
	}
}

func TestDeleteTopicRemovesFromBothMaps(t *testing.T) {
	s := newTestStream(t)
	if _, err := s.CreateTopic(1, "orders", 1, 0, 0, 1, 1<<20); err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}
	if _, err := s.DeleteTopic(1); err != nil {
		t.Fatalf("DeleteTopic: %v", err)
	}
	if _, err := s.GetTopic(identifier.FromNumeric(1)); err == nil {
		t.Fatalf("expected topic to be gone after delete")
	}
	if len(s.topicsByName) != 0 {
		t.Fatalf("topicsByName not cleared: %v", s.topicsByName)
	}
}
