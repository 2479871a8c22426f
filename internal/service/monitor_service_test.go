package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-qbank/internal/model"
	"github.com/stemsi/exstem-qbank/internal/repository"
)

type fakeSessionLister struct {
	rows []repository.SessionSummary
}

func (f *fakeSessionLister) ListByPaper(_ context.Context, _ uuid.UUID) ([]repository.SessionSummary, error) {
	return f.rows, nil
}

func TestMonitorService_SnapshotDerivesExpired(t *testing.T) {
	paper := samplePaper()
	score := 3.0
	lister := &fakeSessionLister{rows: []repository.SessionSummary{
		{SessionID: uuid.New(), Status: model.SessionStatusInProgress, Deadline: testStart.Add(time.Hour)},
		{SessionID: uuid.New(), Status: model.SessionStatusInProgress, Deadline: testStart},
		{SessionID: uuid.New(), Status: model.SessionStatusSubmitted, Deadline: testStart.Add(-time.Hour), TotalScore: &score},
	}}
	svc := NewMonitorService(newFakePaperStore(paper), lister, newFakeClock(testStart))

	snap, err := svc.Snapshot(context.Background(), paper.ID)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.TotalStarted != 3 || snap.TotalInProgress != 1 || snap.TotalExpired != 1 || snap.TotalSubmitted != 1 {
		t.Errorf("snapshot totals = %+v", snap)
	}
	if snap.Sessions[1].Status != model.SessionStatusExpired {
		t.Errorf("session at deadline reported %s", snap.Sessions[1].Status)
	}
	if snap.TotalQuestions != len(paper.Questions) {
		t.Errorf("total questions = %d", snap.TotalQuestions)
	}

	if _, err := svc.Snapshot(context.Background(), uuid.New()); !errors.Is(err, ErrPaperNotFound) {
		t.Errorf("unknown paper: err = %v", err)
	}
}
