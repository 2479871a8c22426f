package service

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-qbank/internal/model"
)

func newTestGenerator(seed uint64) *PaperGenerator {
	return NewPaperGenerator(NewSeededRandom(seed), newFakeClock(testStart))
}

func questionIDs(p *model.Paper) []uuid.UUID {
	ids := make([]uuid.UUID, len(p.Questions))
	for i, q := range p.Questions {
		ids[i] = q.ID
	}
	return ids
}

func countByDifficulty(p *model.Paper) map[model.Difficulty]int {
	out := make(map[model.Difficulty]int)
	for _, q := range p.Questions {
		out[q.Difficulty]++
	}
	return out
}

func TestGenerate_HonorsDifficultyCounts(t *testing.T) {
	pool := buildPool(t, map[model.Difficulty]int{
		model.DifficultyEasy:   30,
		model.DifficultyMedium: 20,
		model.DifficultyHard:   10,
	})
	spec := model.PaperSpec{
		SubjectID: "math",
		Total:     20,
		DifficultyCounts: map[model.Difficulty]int{
			model.DifficultyEasy:   10,
			model.DifficultyMedium: 6,
			model.DifficultyHard:   4,
		},
	}

	paper, err := newTestGenerator(7).Generate(spec, pool)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(paper.Questions) != 20 {
		t.Fatalf("len(questions) = %d, want 20", len(paper.Questions))
	}

	seen := make(map[uuid.UUID]bool)
	for _, id := range questionIDs(paper) {
		if seen[id] {
			t.Fatalf("question %s selected twice", id)
		}
		seen[id] = true
	}

	got := countByDifficulty(paper)
	for d, want := range spec.DifficultyCounts {
		if got[d] != want {
			t.Errorf("%s count = %d, want %d", d, got[d], want)
		}
	}
	if paper.Title != defaultPaperTitle {
		t.Errorf("title = %q, want default", paper.Title)
	}
	if !paper.CreatedAt.Equal(testStart) {
		t.Errorf("created_at = %v, want %v", paper.CreatedAt, testStart)
	}
}

func typedQuestion(d model.Difficulty, typ model.QuestionType) model.Question {
	q := newQuestion(d)
	q.Type = typ
	if !typ.HasOptions() {
		q.Options, q.AnswerKey = nil, nil
	}
	return q
}

func countByType(p *model.Paper) map[model.QuestionType]int {
	out := make(map[model.QuestionType]int)
	for _, q := range p.Questions {
		out[q.Type]++
	}
	return out
}

func TestGenerate_HonorsTypeCounts(t *testing.T) {
	tests := []struct {
		name       string
		pool       func() []model.Question
		spec       model.PaperSpec
		wantByDiff map[model.Difficulty]int
	}{
		{
			name: "types only",
			pool: func() []model.Question {
				var pool []model.Question
				for i := 0; i < 12; i++ {
					pool = append(pool, typedQuestion(model.DifficultyEasy, model.QuestionTypeSingleChoice))
				}
				for i := 0; i < 4; i++ {
					pool = append(pool, typedQuestion(model.DifficultyMedium, model.QuestionTypeEssay))
				}
				return pool
			},
			spec: model.PaperSpec{
				Total:      5,
				TypeCounts: map[model.QuestionType]int{model.QuestionTypeEssay: 2},
			},
		},
		{
			name: "types inside a difficulty stratum",
			pool: func() []model.Question {
				var pool []model.Question
				for i := 0; i < 20; i++ {
					pool = append(pool, typedQuestion(model.DifficultyEasy, model.QuestionTypeSingleChoice))
				}
				pool = append(pool,
					typedQuestion(model.DifficultyEasy, model.QuestionTypeTrueFalse),
					typedQuestion(model.DifficultyEasy, model.QuestionTypeTrueFalse),
				)
				for i := 0; i < 5; i++ {
					pool = append(pool, typedQuestion(model.DifficultyHard, model.QuestionTypeMultiChoice))
				}
				return pool
			},
			spec: model.PaperSpec{
				Total: 6,
				DifficultyCounts: map[model.Difficulty]int{
					model.DifficultyEasy: 4,
					model.DifficultyHard: 2,
				},
				TypeCounts: map[model.QuestionType]int{model.QuestionTypeTrueFalse: 2},
			},
			wantByDiff: map[model.Difficulty]int{model.DifficultyEasy: 4, model.DifficultyHard: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := tt.pool()
			for seed := uint64(0); seed < 25; seed++ {
				paper, err := newTestGenerator(seed).Generate(tt.spec, pool)
				if err != nil {
					t.Fatalf("seed %d: Generate: %v", seed, err)
				}
				if len(paper.Questions) != tt.spec.Total {
					t.Fatalf("seed %d: len = %d, want %d", seed, len(paper.Questions), tt.spec.Total)
				}
				byType := countByType(paper)
				for typ, min := range tt.spec.TypeCounts {
					if byType[typ] < min {
						t.Fatalf("seed %d: %s count = %d, want at least %d", seed, typ, byType[typ], min)
					}
				}
				byDiff := countByDifficulty(paper)
				for d, want := range tt.wantByDiff {
					if byDiff[d] != want {
						t.Fatalf("seed %d: %s count = %d, want %d", seed, d, byDiff[d], want)
					}
				}
			}
		})
	}
}

func TestGenerate_TypeShortfall(t *testing.T) {
	pool := buildPool(t, map[model.Difficulty]int{model.DifficultyEasy: 10})
	pool = append(pool, typedQuestion(model.DifficultyEasy, model.QuestionTypeShortAnswer))

	spec := model.PaperSpec{
		Total:      3,
		TypeCounts: map[model.QuestionType]int{model.QuestionTypeShortAnswer: 2},
	}

	_, err := newTestGenerator(1).Generate(spec, pool)
	var poolErr *InsufficientPoolError
	if !errors.As(err, &poolErr) {
		t.Fatalf("err = %v, want *InsufficientPoolError", err)
	}
	if poolErr.TypeShortfalls[model.QuestionTypeShortAnswer] != 1 {
		t.Errorf("type shortfalls = %v, want SHORT_ANSWER:1", poolErr.TypeShortfalls)
	}
}

func TestGenerate_SameSeedSameSelection(t *testing.T) {
	pool := buildPool(t, map[model.Difficulty]int{
		model.DifficultyEasy: 40,
		model.DifficultyHard: 40,
	})
	seed := uint64(20260302)
	spec := model.PaperSpec{
		Total:            12,
		DifficultyCounts: map[model.Difficulty]int{model.DifficultyEasy: 6, model.DifficultyHard: 4},
		Seed:             &seed,
	}

	a, err := newTestGenerator(seed).Generate(spec, pool)
	if err != nil {
		t.Fatalf("first Generate: %v", err)
	}
	b, err := newTestGenerator(seed).Generate(spec, pool)
	if err != nil {
		t.Fatalf("second Generate: %v", err)
	}

	ida, idb := questionIDs(a), questionIDs(b)
	for i := range ida {
		if ida[i] != idb[i] {
			t.Fatalf("selection differs at %d: %s vs %s", i, ida[i], idb[i])
		}
	}
	if a.Seed == nil || *a.Seed != seed {
		t.Errorf("paper seed = %v, want %d", a.Seed, seed)
	}
}

func TestGenerate_InsufficientPool(t *testing.T) {
	pool := buildPool(t, map[model.Difficulty]int{
		model.DifficultyEasy: 8,
		model.DifficultyHard: 10,
	})
	spec := model.PaperSpec{
		Total: 15,
		DifficultyCounts: map[model.Difficulty]int{
			model.DifficultyEasy: 10,
			model.DifficultyHard: 5,
		},
	}

	paper, err := newTestGenerator(1).Generate(spec, pool)
	if paper != nil {
		t.Fatalf("expected no paper, got %d questions", len(paper.Questions))
	}
	if !errors.Is(err, ErrInsufficientPool) {
		t.Fatalf("err = %v, want ErrInsufficientPool", err)
	}
	var poolErr *InsufficientPoolError
	if !errors.As(err, &poolErr) {
		t.Fatalf("err is %T, want *InsufficientPoolError", err)
	}
	if poolErr.Shortfalls[model.DifficultyEasy] != 2 {
		t.Errorf("EASY shortfall = %d, want 2", poolErr.Shortfalls[model.DifficultyEasy])
	}
	if _, ok := poolErr.Shortfalls[model.DifficultyHard]; ok {
		t.Errorf("HARD should not be short: %v", poolErr.Shortfalls)
	}
}

func TestGenerate_TotalLargerThanPool(t *testing.T) {
	pool := buildPool(t, map[model.Difficulty]int{model.DifficultyMedium: 4})

	_, err := newTestGenerator(1).Generate(model.PaperSpec{Total: 5}, pool)
	if !errors.Is(err, ErrInsufficientPool) {
		t.Fatalf("err = %v, want ErrInsufficientPool", err)
	}
}

func TestGenerate_RepairsKnowledgePointCoverage(t *testing.T) {
	pool := buildPool(t, map[model.Difficulty]int{model.DifficultyEasy: 19})
	rare := newQuestion(model.DifficultyEasy, "fractions")
	pool = append(pool, rare)

	spec := model.PaperSpec{
		Total:            5,
		DifficultyCounts: map[model.Difficulty]int{model.DifficultyEasy: 5},
		KnowledgePoints:  map[string]int{"fractions": 1},
	}

	for seed := uint64(0); seed < 25; seed++ {
		paper, err := newTestGenerator(seed).Generate(spec, pool)
		if err != nil {
			t.Fatalf("seed %d: Generate: %v", seed, err)
		}
		if len(paper.Questions) != 5 {
			t.Fatalf("seed %d: len = %d, want 5", seed, len(paper.Questions))
		}
		if _, ok := paper.Question(rare.ID); !ok {
			t.Fatalf("seed %d: knowledge point question missing from paper", seed)
		}
	}
}

func TestGenerate_FillPrefersUncoveredKnowledgePoints(t *testing.T) {
	pool := buildPool(t, map[model.Difficulty]int{model.DifficultyMedium: 10})
	tagged := newQuestion(model.DifficultyHard, "vectors")
	pool = append(pool, tagged)

	spec := model.PaperSpec{
		Total:            3,
		DifficultyCounts: map[model.Difficulty]int{model.DifficultyMedium: 2},
		KnowledgePoints:  map[string]int{"vectors": 1},
	}

	paper, err := newTestGenerator(3).Generate(spec, pool)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, ok := paper.Question(tagged.ID); !ok {
		t.Fatal("free slot should go to the question covering the knowledge point")
	}
}

func TestGenerate_UnmetKnowledgePoint(t *testing.T) {
	pool := buildPool(t, map[model.Difficulty]int{model.DifficultyEasy: 10})
	spec := model.PaperSpec{
		Total:           4,
		KnowledgePoints: map[string]int{"geometry": 1},
	}

	_, err := newTestGenerator(1).Generate(spec, pool)
	var poolErr *InsufficientPoolError
	if !errors.As(err, &poolErr) {
		t.Fatalf("err = %v, want *InsufficientPoolError", err)
	}
	if poolErr.UnmetKnowledgePoints["geometry"] != 1 {
		t.Errorf("unmet = %v, want geometry:1", poolErr.UnmetKnowledgePoints)
	}
}

func TestGenerate_RepeatedTagCountsOnce(t *testing.T) {
	pool := []model.Question{newQuestion(model.DifficultyEasy, "algebra", "algebra")}
	spec := model.PaperSpec{
		Total:           1,
		KnowledgePoints: map[string]int{"algebra": 2},
	}

	paper, err := newTestGenerator(1).Generate(spec, pool)
	if paper != nil {
		t.Fatal("one question must not satisfy a minimum of two")
	}
	var poolErr *InsufficientPoolError
	if !errors.As(err, &poolErr) {
		t.Fatalf("err = %v, want *InsufficientPoolError", err)
	}
	if poolErr.UnmetKnowledgePoints["algebra"] != 1 {
		t.Errorf("unmet = %v, want algebra:1", poolErr.UnmetKnowledgePoints)
	}

	spec.KnowledgePoints["algebra"] = 1
	paper, err = newTestGenerator(1).Generate(spec, pool)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if kps := paper.Questions[0].KnowledgePoints; len(kps) != 1 || kps[0] != "algebra" {
		t.Errorf("snapshot knowledge points = %v, want [algebra]", kps)
	}
}

func TestGenerate_Ratios(t *testing.T) {
	pool := buildPool(t, map[model.Difficulty]int{
		model.DifficultyEasy:   20,
		model.DifficultyMedium: 20,
		model.DifficultyHard:   20,
	})
	spec := model.PaperSpec{
		Total: 10,
		DifficultyRatios: map[model.Difficulty]float64{
			model.DifficultyEasy: 0.5,
			model.DifficultyHard: 0.3,
		},
	}

	paper, err := newTestGenerator(11).Generate(spec, pool)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(paper.Questions) != 10 {
		t.Fatalf("len = %d, want 10", len(paper.Questions))
	}
	got := countByDifficulty(paper)
	if got[model.DifficultyEasy] < 5 || got[model.DifficultyHard] < 3 {
		t.Errorf("counts = %v, want at least 5 EASY and 3 HARD", got)
	}
}

func TestGenerate_InvalidSpec(t *testing.T) {
	pool := buildPool(t, map[model.Difficulty]int{model.DifficultyEasy: 10})

	tests := []struct {
		name string
		spec model.PaperSpec
	}{
		{"zero total", model.PaperSpec{Total: 0}},
		{"counts exceed total", model.PaperSpec{
			Total:            3,
			DifficultyCounts: map[model.Difficulty]int{model.DifficultyEasy: 4},
		}},
		{"counts and ratios", model.PaperSpec{
			Total:            3,
			DifficultyCounts: map[model.Difficulty]int{model.DifficultyEasy: 1},
			DifficultyRatios: map[model.Difficulty]float64{model.DifficultyHard: 0.5},
		}},
		{"ratio above one", model.PaperSpec{
			Total:            3,
			DifficultyRatios: map[model.Difficulty]float64{model.DifficultyEasy: 1.5},
		}},
		{"unknown difficulty", model.PaperSpec{
			Total:            3,
			DifficultyCounts: map[model.Difficulty]int{"IMPOSSIBLE": 1},
		}},
		{"negative knowledge point", model.PaperSpec{
			Total:           3,
			KnowledgePoints: map[string]int{"algebra": -1},
		}},
		{"unknown type", model.PaperSpec{
			Total:      3,
			TypeCounts: map[model.QuestionType]int{"ORAL": 1},
		}},
		{"type counts exceed total", model.PaperSpec{
			Total: 3,
			TypeCounts: map[model.QuestionType]int{
				model.QuestionTypeSingleChoice: 2,
				model.QuestionTypeEssay:        2,
			},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestGenerator(1).Generate(tt.spec, pool)
			if !errors.Is(err, ErrInvalidSpec) {
				t.Fatalf("err = %v, want ErrInvalidSpec", err)
			}
		})
	}
}

func TestGenerate_FiltersIneligibleQuestions(t *testing.T) {
	eligibleQs := buildPool(t, map[model.Difficulty]int{model.DifficultyEasy: 3})

	draft := newQuestion(model.DifficultyEasy)
	draft.Status = model.QuestionStatusDraft
	archived := newQuestion(model.DifficultyEasy)
	archived.Status = model.QuestionStatusArchived
	otherSubject := newQuestion(model.DifficultyEasy)
	otherSubject.SubjectID = "physics"
	excluded := newQuestion(model.DifficultyEasy)

	pool := append([]model.Question{draft, archived, otherSubject, excluded}, eligibleQs...)
	pool = append(pool, eligibleQs[0]) // duplicate row

	spec := model.PaperSpec{
		SubjectID: "math",
		Total:     3,
		Excluding: []uuid.UUID{excluded.ID},
	}

	paper, err := newTestGenerator(5).Generate(spec, pool)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, q := range eligibleQs {
		if _, ok := paper.Question(q.ID); !ok {
			t.Errorf("eligible question %s missing", q.ID)
		}
	}

	spec.Total = 4
	if _, err := newTestGenerator(5).Generate(spec, pool); !errors.Is(err, ErrInsufficientPool) {
		t.Fatalf("err = %v, want ErrInsufficientPool with only 3 eligible", err)
	}
}

func TestGenerate_SnapshotIsIndependent(t *testing.T) {
	pool := buildPool(t, map[model.Difficulty]int{model.DifficultyEasy: 2})
	pool[0].Type = model.QuestionTypeMultiChoice
	pool[0].AnswerKey = []string{"A", "B"}

	spec := model.PaperSpec{
		Title:        "Quiz",
		Total:        2,
		PointsByType: map[model.QuestionType]float64{model.QuestionTypeMultiChoice: 3},
	}
	paper, err := newTestGenerator(2).Generate(spec, pool)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	pool[0].Stem = "edited"
	pool[0].AnswerKey[0] = "C"
	pool[0].Options[0].Text = "changed"

	q, ok := paper.Question(pool[0].ID)
	if !ok {
		t.Fatal("question missing")
	}
	if q.Stem != "stem" || q.AnswerKey[0] != "A" || q.Options[0].Text != "alpha" {
		t.Errorf("snapshot changed with the bank: %+v", q)
	}
	if q.Points != 3 {
		t.Errorf("multi-choice points = %v, want 3", q.Points)
	}
	other, _ := paper.Question(pool[1].ID)
	if other.Points != 1 {
		t.Errorf("default points = %v, want 1", other.Points)
	}
	if paper.Title != "Quiz" {
		t.Errorf("title = %q", paper.Title)
	}
}
