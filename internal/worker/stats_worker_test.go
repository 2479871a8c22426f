package worker

import (
	"testing"
	"time"

	"github.com/stemsi/exstem-qbank/internal/broker"
)

func TestAggregate_FoldsPerLearner(t *testing.T) {
	day1 := time.Date(2026, 3, 2, 23, 30, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 3, 0, 15, 0, 0, time.UTC)

	batch := []*broker.StatsPayload{
		{SessionID: "s1", LearnerID: "bob", Answered: 5, Correct: 3, GradedAt: day2},
		{SessionID: "s2", LearnerID: "ann", Answered: 10, Correct: 7, GradedAt: day1},
		{SessionID: "s3", LearnerID: "bob", Answered: 2, Correct: 2, GradedAt: day1},
	}

	deltas := aggregate(batch)
	if len(deltas) != 2 {
		t.Fatalf("deltas = %d, want 2", len(deltas))
	}
	if deltas[0].LearnerID != "ann" || deltas[1].LearnerID != "bob" {
		t.Fatalf("order = %s, %s; want ann, bob", deltas[0].LearnerID, deltas[1].LearnerID)
	}

	bob := deltas[1]
	if bob.Answered != 7 || bob.Correct != 5 {
		t.Errorf("bob = %d/%d, want 7/5", bob.Correct, bob.Answered)
	}
	if want := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC); !bob.Day.Equal(want) {
		t.Errorf("bob day = %v, want latest day %v", bob.Day, want)
	}
	if len(bob.payloads) != 2 {
		t.Errorf("bob keeps %d payloads for requeue, want 2", len(bob.payloads))
	}
}

func TestTruncateDay_UsesUTC(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)
	local := time.Date(2026, 3, 3, 5, 0, 0, 0, jakarta) // 2026-03-02 22:00 UTC

	got := truncateDay(local)
	want := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("truncateDay = %v, want %v", got, want)
	}
}
