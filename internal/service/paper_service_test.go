package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-qbank/internal/config"
	"github.com/stemsi/exstem-qbank/internal/model"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestPaperService_GenerateStoresPaperWithSeed(t *testing.T) {
	excluded := uuid.New()
	source := &fakeQuestionSource{pool: buildPool(t, map[model.Difficulty]int{model.DifficultyEasy: 8})}
	papers := newFakePaperStore()
	svc := NewPaperService(source, papers, newFakeClock(testStart), nopLogger())

	paper, err := svc.Generate(context.Background(), model.PaperSpec{
		SubjectID: "math",
		Total:     4,
		Excluding: []uuid.UUID{excluded},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if paper.Seed == nil {
		t.Fatal("generated paper has no seed")
	}

	if len(source.filters) != 1 {
		t.Fatalf("queries = %d, want 1", len(source.filters))
	}
	f := source.filters[0]
	if f.SubjectID != "math" || len(f.Excluding) != 1 || f.Excluding[0] != excluded {
		t.Errorf("filter = %+v", f)
	}

	stored, err := svc.Get(context.Background(), paper.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(stored.Questions) != 4 {
		t.Errorf("stored questions = %d, want 4", len(stored.Questions))
	}

	// Replaying the recorded seed reproduces the selection.
	replay, err := NewPaperGenerator(NewSeededRandom(*paper.Seed), newFakeClock(testStart)).Generate(
		model.PaperSpec{SubjectID: "math", Total: 4, Seed: paper.Seed}, source.pool)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	for i := range replay.Questions {
		if replay.Questions[i].ID != paper.Questions[i].ID {
			t.Fatalf("replay differs at %d", i)
		}
	}
}

func TestPaperService_RejectedSpecStoresNothing(t *testing.T) {
	source := &fakeQuestionSource{pool: buildPool(t, map[model.Difficulty]int{model.DifficultyEasy: 2})}
	papers := newFakePaperStore()
	svc := NewPaperService(source, papers, newFakeClock(testStart), nopLogger())

	_, err := svc.Generate(context.Background(), model.PaperSpec{Total: 3})
	if !errors.Is(err, ErrInsufficientPool) {
		t.Fatalf("err = %v, want ErrInsufficientPool", err)
	}
	if len(papers.papers) != 0 {
		t.Errorf("stored %d papers after a rejected spec", len(papers.papers))
	}

	if _, err := svc.Get(context.Background(), uuid.New()); !errors.Is(err, ErrPaperNotFound) {
		t.Errorf("Get unknown: err = %v, want ErrPaperNotFound", err)
	}
}

func TestCachedPaperStore_ReadThrough(t *testing.T) {
	mr, rdb := newTestRedis(t)
	paper := samplePaper()
	backing := newFakePaperStore(paper)
	cache := NewCachedPaperStore(backing, rdb, time.Minute, nopLogger())
	ctx := context.Background()

	first, err := cache.GetByID(ctx, paper.ID)
	if err != nil {
		t.Fatalf("first GetByID: %v", err)
	}
	if !mr.Exists(config.CacheKey.PaperPayloadKey(paper.ID.String())) {
		t.Fatal("paper not written to cache")
	}

	first.Questions[0].AnswerKey = []string{"Z"}

	second, err := cache.GetByID(ctx, paper.ID)
	if err != nil {
		t.Fatalf("second GetByID: %v", err)
	}
	if backing.gets != 1 {
		t.Errorf("backing store reads = %d, want 1", backing.gets)
	}
	if second.Questions[0].AnswerKey[0] != "B" {
		t.Errorf("cached copy was mutated through a caller: %v", second.Questions[0].AnswerKey)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := cache.GetByID(ctx, paper.ID); err != nil {
		t.Fatalf("after expiry: %v", err)
	}
	if backing.gets != 2 {
		t.Errorf("backing store reads after ttl = %d, want 2", backing.gets)
	}
}

func TestCachedPaperStore_MissAndRedisDown(t *testing.T) {
	mr, rdb := newTestRedis(t)
	paper := samplePaper()
	cache := NewCachedPaperStore(newFakePaperStore(paper), rdb, time.Minute, nopLogger())
	ctx := context.Background()

	if _, err := cache.GetByID(ctx, uuid.New()); !errors.Is(mapPaperErr(err), ErrPaperNotFound) {
		t.Errorf("unknown paper: err = %v", err)
	}

	mr.Close()
	got, err := cache.GetByID(ctx, paper.ID)
	if err != nil {
		t.Fatalf("with redis down: %v", err)
	}
	if got.ID != paper.ID {
		t.Errorf("got paper %s", got.ID)
	}
}
