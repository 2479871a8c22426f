package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-qbank/internal/model"
	"github.com/stemsi/exstem-qbank/internal/repository"
)

var testStart = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

// fakeClock is a settable Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeSessionStore keeps JSON copies so callers never share memory with the store,
// matching what a database round-trip gives.
type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID][]byte
	results  map[uuid.UUID][]byte
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		sessions: make(map[uuid.UUID][]byte),
		results:  make(map[uuid.UUID][]byte),
	}
}

func (f *fakeSessionStore) Create(_ context.Context, s *model.ExamSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[s.ID]; ok {
		return fmt.Errorf("duplicate session %s", s.ID)
	}
	return f.put(s, s.Version)
}

func (f *fakeSessionStore) GetByID(_ context.Context, id uuid.UUID) (*model.ExamSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.get(id)
}

func (f *fakeSessionStore) SaveAnswers(_ context.Context, s *model.ExamSession, expectedVersion int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkVersion(s.ID, expectedVersion); err != nil {
		return err
	}
	return f.put(s, expectedVersion+1)
}

func (f *fakeSessionStore) Finalize(_ context.Context, s *model.ExamSession, result *model.GradeResult, expectedVersion int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkVersion(s.ID, expectedVersion); err != nil {
		return err
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	f.results[s.ID] = raw
	return f.put(s, expectedVersion+1)
}

func (f *fakeSessionStore) GetResult(_ context.Context, sessionID uuid.UUID) (*model.GradeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.results[sessionID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	var r model.GradeResult
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (f *fakeSessionStore) get(id uuid.UUID) (*model.ExamSession, error) {
	raw, ok := f.sessions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	var s model.ExamSession
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	if s.Answers == nil {
		s.Answers = make(map[uuid.UUID][]string)
	}
	return &s, nil
}

func (f *fakeSessionStore) put(s *model.ExamSession, version int64) error {
	cp := *s
	cp.Version = version
	raw, err := json.Marshal(&cp)
	if err != nil {
		return err
	}
	f.sessions[s.ID] = raw
	return nil
}

func (f *fakeSessionStore) checkVersion(id uuid.UUID, expected int64) error {
	cur, err := f.get(id)
	if err != nil {
		return err
	}
	if cur.Version != expected {
		return repository.ErrVersionConflict
	}
	return nil
}

// fakePaperStore is an in-memory PaperStore.
type fakePaperStore struct {
	mu     sync.Mutex
	papers map[uuid.UUID]*model.Paper
	gets   int
}

func newFakePaperStore(papers ...*model.Paper) *fakePaperStore {
	f := &fakePaperStore{papers: make(map[uuid.UUID]*model.Paper)}
	for _, p := range papers {
		f.papers[p.ID] = p
	}
	return f
}

func (f *fakePaperStore) Create(_ context.Context, p *model.Paper) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.papers[p.ID] = p
	return nil
}

func (f *fakePaperStore) GetByID(_ context.Context, id uuid.UUID) (*model.Paper, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	p, ok := f.papers[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *p
	cp.Questions = append([]model.PaperQuestion(nil), p.Questions...)
	return &cp, nil
}

// recordingPublisher captures published events and results.
type recordingPublisher struct {
	mu      sync.Mutex
	events  []model.SessionEvent
	results []*model.GradeResult
}

func (p *recordingPublisher) PublishEvent(_ context.Context, ev model.SessionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) PublishResult(_ context.Context, _ *model.ExamSession, result *model.GradeResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results = append(p.results, result)
	return nil
}

func (p *recordingPublisher) eventTypes() []model.SessionEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.SessionEventType, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

func (p *recordingPublisher) resultCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.results)
}

// fakeQuestionSource returns its pool for any filter.
type fakeQuestionSource struct {
	pool    []model.Question
	filters []model.QuestionFilter
}

func (f *fakeQuestionSource) Query(_ context.Context, filter model.QuestionFilter) ([]model.Question, error) {
	f.filters = append(f.filters, filter)
	return append([]model.Question(nil), f.pool...), nil
}

// ─── Fixtures ──────────────────────────────────────────────────────────

func nopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func abcOptions() []model.Option {
	return []model.Option{{ID: "A", Text: "alpha"}, {ID: "B", Text: "beta"}, {ID: "C", Text: "gamma"}}
}

// newQuestion returns an APPROVED single-choice question in subject "math".
func newQuestion(d model.Difficulty, kps ...string) model.Question {
	return model.Question{
		ID:              uuid.New(),
		SubjectID:       "math",
		Type:            model.QuestionTypeSingleChoice,
		Stem:            "stem",
		Options:         abcOptions(),
		AnswerKey:       []string{"A"},
		Difficulty:      d,
		KnowledgePoints: kps,
		Status:          model.QuestionStatusApproved,
	}
}

// buildPool returns questions grouped by difficulty in the given order.
func buildPool(t *testing.T, counts map[model.Difficulty]int) []model.Question {
	t.Helper()
	var pool []model.Question
	for _, d := range model.Difficulties {
		for i := 0; i < counts[d]; i++ {
			pool = append(pool, newQuestion(d))
		}
	}
	return pool
}

// samplePaper has one question of each graded shape.
func samplePaper() *model.Paper {
	return &model.Paper{
		ID:        uuid.New(),
		Title:     "Sample",
		SubjectID: "math",
		Questions: []model.PaperQuestion{
			{ID: uuid.New(), Type: model.QuestionTypeSingleChoice, Options: abcOptions(), AnswerKey: []string{"B"}, Difficulty: model.DifficultyEasy, Points: 1},
			{ID: uuid.New(), Type: model.QuestionTypeMultiChoice, Options: abcOptions(), AnswerKey: []string{"A", "C"}, Difficulty: model.DifficultyMedium, Points: 2},
			{ID: uuid.New(), Type: model.QuestionTypeEssay, Difficulty: model.DifficultyHard, Points: 5},
		},
		CreatedAt: testStart.Add(-time.Hour),
	}
}
