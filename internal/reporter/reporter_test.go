package reporter

import (
	"testing"
	"time"

	"smartmailr/internal/repository"
)

func strPtr(s string) *string { return &s }

func TestAggregateGroupsByDayStateAndAction(t *testing.T) {
	day1 := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

	records := []repository.CaseRecord{
		{State: "completed", ActionKind: strPtr("email_sent"), FinishedAt: day1},
		{State: "completed", ActionKind: strPtr("email_sent"), FinishedAt: day1.Add(2 * time.Hour)},
		{State: "completed", ActionKind: strPtr("event_created"), FinishedAt: day1},
		{State: "failed", FinishedAt: day1},
		{State: "completed", ActionKind: strPtr("email_sent"), FinishedAt: day2},
	}

	entries := Aggregate(records)

	want := []DigestEntry{
		{Day: "2025-06-01", State: "completed", ActionKind: "email_sent", Count: 2},
		{Day: "2025-06-01", State: "completed", ActionKind: "event_created", Count: 1},
		{Day: "2025-06-01", State: "failed", ActionKind: "", Count: 1},
		{Day: "2025-06-02", State: "completed", ActionKind: "email_sent", Count: 1},
	}

	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d: %+v", len(want), len(entries), entries)
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entry %d: got %+v, want %+v", i, entries[i], want[i])
		}
	}
}

func TestAggregateEmpty(t *testing.T) {
	entries := Aggregate(nil)
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %+v", entries)
	}
}

func TestAggregateNormalizesToUTCDays(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*60*60)
	// 2025-06-02 01:00 +09:00 is 2025-06-01 16:00 UTC.
	records := []repository.CaseRecord{
		{State: "completed", ActionKind: strPtr("email_sent"), FinishedAt: time.Date(2025, 6, 2, 1, 0, 0, 0, loc)},
	}

	entries := Aggregate(records)
	if len(entries) != 1 || entries[0].Day != "2025-06-01" {
		t.Errorf("expected UTC day bucketing, got %+v", entries)
	}
}
