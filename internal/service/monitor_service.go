package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-qbank/internal/model"
	"github.com/stemsi/exstem-qbank/internal/repository"
)

// SessionLister lists the sessions started on a paper.
type SessionLister interface {
	ListByPaper(ctx context.Context, paperID uuid.UUID) ([]repository.SessionSummary, error)
}

// MonitorService builds live snapshots of a paper's sessions for its author.
type MonitorService struct {
	papers   PaperStore
	sessions SessionLister
	clock    Clock
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(papers PaperStore, sessions SessionLister, clock Clock) *MonitorService {
	return &MonitorService{papers: papers, sessions: sessions, clock: clock}
}

// MonitorSnapshot is the initial state sent to a live monitor.
type MonitorSnapshot struct {
	PaperID         uuid.UUID                   `json:"paper_id"`
	Title           string                      `json:"title"`
	TotalQuestions  int                         `json:"total_questions"`
	TotalStarted    int                         `json:"total_started"`
	TotalInProgress int                         `json:"total_in_progress"`
	TotalSubmitted  int                         `json:"total_submitted"`
	TotalExpired    int                         `json:"total_expired"`
	Sessions        []repository.SessionSummary `json:"sessions"`
}

// Snapshot loads the paper and its sessions concurrently. Sessions past their
// deadline but not yet sealed are reported as EXPIRED.
func (s *MonitorService) Snapshot(ctx context.Context, paperID uuid.UUID) (*MonitorSnapshot, error) {
	var (
		paper       *model.Paper
		summaries   []repository.SessionSummary
		paperErr    error
		sessionsErr error
		wg          sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		paper, paperErr = s.papers.GetByID(ctx, paperID)
	}()
	go func() {
		defer wg.Done()
		summaries, sessionsErr = s.sessions.ListByPaper(ctx, paperID)
	}()
	wg.Wait()

	if paperErr != nil {
		return nil, mapPaperErr(paperErr)
	}
	if sessionsErr != nil {
		return nil, fmt.Errorf("list sessions: %w", sessionsErr)
	}

	now := s.clock.Now()
	snap := &MonitorSnapshot{
		PaperID:        paper.ID,
		Title:          paper.Title,
		TotalQuestions: len(paper.Questions),
		TotalStarted:   len(summaries),
		Sessions:       make([]repository.SessionSummary, 0, len(summaries)),
	}
	for _, sum := range summaries {
		if sum.Status == model.SessionStatusInProgress && !now.Before(sum.Deadline) {
			sum.Status = model.SessionStatusExpired
		}
		switch sum.Status {
		case model.SessionStatusInProgress:
			snap.TotalInProgress++
		case model.SessionStatusSubmitted:
			snap.TotalSubmitted++
		case model.SessionStatusExpired:
			snap.TotalExpired++
		}
		snap.Sessions = append(snap.Sessions, sum)
	}

	return snap, nil
}
