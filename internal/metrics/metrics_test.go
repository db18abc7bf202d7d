package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tideline-io/tideline/internal/system"
)

func TestObserveSnapshotUpdatesGauges(t *testing.T) {
	reg := New()
	reg.ObserveSnapshot(system.Counters{Streams: 2, Topics: 5, Partitions: 20, Segments: 40})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	reg.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "tideline_partitions 20") {
		t.Fatalf("expected partitions gauge in output, got:\n%s", body)
	}
}

func TestRecordAppendAndPoll(t *testing.T) {
	reg := New()
	reg.RecordAppend(3, 0.001, nil)
	reg.RecordPoll(3, 0.0005)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	reg.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "tideline_messages_appended_total 3") {
		t.Fatalf("expected messages_appended_total in output, got:\n%s", body)
	}
	if !strings.Contains(body, "tideline_messages_polled_total 3") {
		t.Fatalf("expected messages_polled_total in output, got:\n%s", body)
	}
}
