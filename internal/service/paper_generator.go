package service

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-qbank/internal/model"
)

const defaultPaperTitle = "Generated Paper"

// PaperGenerator assembles papers by stratified sampling over a candidate pool.
// It holds no shared mutable state besides its random source, so callers
// should create one generator per generation when the source is seeded.
type PaperGenerator struct {
	rnd   RandomSource
	clock Clock
	newID func() uuid.UUID
}

// NewPaperGenerator creates a PaperGenerator.
func NewPaperGenerator(rnd RandomSource, clock Clock) *PaperGenerator {
	return &PaperGenerator{
		rnd:   rnd,
		clock: clock,
		newID: uuid.New,
	}
}

// Generate selects spec.Total distinct questions from pool and freezes them into a Paper.
// Pool order is significant: it is the tie-break order for every greedy choice.
// On any unsatisfiable constraint it returns an *InsufficientPoolError and no paper.
func (g *PaperGenerator) Generate(spec model.PaperSpec, pool []model.Question) (*model.Paper, error) {
	targets, err := resolveDifficultyTargets(spec)
	if err != nil {
		return nil, err
	}
	for kp, n := range spec.KnowledgePoints {
		if kp == "" || n < 0 {
			return nil, fmt.Errorf("%w: knowledge point target %q=%d", ErrInvalidSpec, kp, n)
		}
	}
	typeSum := 0
	for t, n := range spec.TypeCounts {
		if !t.IsKnown() || n < 0 {
			return nil, fmt.Errorf("%w: type target %q=%d", ErrInvalidSpec, t, n)
		}
		typeSum += n
	}
	if typeSum > spec.Total {
		return nil, fmt.Errorf("%w: type targets sum to %d, total is %d", ErrInvalidSpec, typeSum, spec.Total)
	}

	sel := newSelection(eligible(spec, pool), spec.KnowledgePoints, spec.TypeCounts)

	// 1. Partition by difficulty, keeping pool order inside each partition.
	partitions := make(map[model.Difficulty][]int, len(model.Difficulties))
	for i := range sel.pool {
		d := sel.pool[i].Difficulty
		partitions[d] = append(partitions[d], i)
	}

	// 2. Draw each difficulty target from its partition.
	shortfalls := make(map[model.Difficulty]int)
	for _, d := range model.Difficulties {
		want := targets[d]
		if want == 0 {
			continue
		}
		part := partitions[d]
		if len(part) < want {
			shortfalls[d] = want - len(part)
			continue
		}
		for _, idx := range g.draw(part, want) {
			sel.add(idx)
		}
	}
	if len(shortfalls) > 0 {
		return nil, &InsufficientPoolError{
			Requested:  spec.Total,
			Available:  len(sel.pool),
			Shortfalls: shortfalls,
		}
	}

	// 3. Repair knowledge-point and type coverage by swapping within targeted partitions.
	for sel.hasDeficit() {
		if !sel.swapBest(targets) {
			break
		}
	}

	// 4. Fill the unconstrained remainder: unmet coverage targets first, then uniformly.
	remaining := spec.Total - len(sel.picked)
	for remaining > 0 && sel.hasDeficit() {
		idx, gain := sel.bestCandidate(nil)
		if gain == 0 {
			break
		}
		sel.add(idx)
		remaining--
	}
	if remaining > 0 {
		rest := sel.unpicked(nil)
		if len(rest) < remaining {
			return nil, &InsufficientPoolError{
				Requested: spec.Total,
				Available: len(sel.pool),
			}
		}
		for _, idx := range g.draw(rest, remaining) {
			sel.add(idx)
		}
	}

	// 5. Whatever coverage is still missing makes the paper spec unsatisfiable for this pool.
	if kps, types := sel.deficits(); len(kps) > 0 || len(types) > 0 {
		return nil, &InsufficientPoolError{
			Requested:            spec.Total,
			Available:            len(sel.pool),
			UnmetKnowledgePoints: kps,
			TypeShortfalls:       types,
		}
	}

	return g.freeze(spec, sel), nil
}

// draw picks k distinct entries of part at random with a partial Fisher-Yates shuffle.
func (g *PaperGenerator) draw(part []int, k int) []int {
	buf := append([]int(nil), part...)
	for i := 0; i < k; i++ {
		j := i + g.rnd.IntN(len(buf)-i)
		buf[i], buf[j] = buf[j], buf[i]
	}
	return buf[:k]
}

func (g *PaperGenerator) freeze(spec model.PaperSpec, sel *selection) *model.Paper {
	questions := make([]model.PaperQuestion, len(sel.picked))
	for i, idx := range sel.picked {
		questions[i] = snapshot(&sel.pool[idx], spec.PointsByType)
	}

	title := spec.Title
	if title == "" {
		title = defaultPaperTitle
	}

	var seed *uint64
	if spec.Seed != nil {
		v := *spec.Seed
		seed = &v
	}

	return &model.Paper{
		ID:        g.newID(),
		Title:     title,
		SubjectID: spec.SubjectID,
		Questions: questions,
		Seed:      seed,
		CreatedAt: g.clock.Now(),
	}
}

// snapshot deep-copies the fields needed to display, answer and grade a question.
func snapshot(q *model.Question, pointsByType map[model.QuestionType]float64) model.PaperQuestion {
	points := 1.0
	if p, ok := pointsByType[q.Type]; ok && p > 0 {
		points = p
	}
	return model.PaperQuestion{
		ID:              q.ID,
		Type:            q.Type,
		Stem:            q.Stem,
		Options:         append([]model.Option(nil), q.Options...),
		AnswerKey:       append([]string(nil), q.AnswerKey...),
		Difficulty:      q.Difficulty,
		KnowledgePoints: append([]string(nil), q.KnowledgePoints...),
		Points:          points,
	}
}

// resolveDifficultyTargets validates the paper spec and converts ratios into counts.
func resolveDifficultyTargets(spec model.PaperSpec) (map[model.Difficulty]int, error) {
	if spec.Total <= 0 {
		return nil, fmt.Errorf("%w: total must be positive, got %d", ErrInvalidSpec, spec.Total)
	}
	if len(spec.DifficultyCounts) > 0 && len(spec.DifficultyRatios) > 0 {
		return nil, fmt.Errorf("%w: give difficulty counts or ratios, not both", ErrInvalidSpec)
	}

	targets := make(map[model.Difficulty]int, len(model.Difficulties))
	sum := 0
	for d, n := range spec.DifficultyCounts {
		if d.Rank() < 0 {
			return nil, fmt.Errorf("%w: unknown difficulty %q", ErrInvalidSpec, d)
		}
		if n < 0 {
			return nil, fmt.Errorf("%w: negative count for %s", ErrInvalidSpec, d)
		}
		targets[d] = n
		sum += n
	}

	ratioSum := 0.0
	for d, r := range spec.DifficultyRatios {
		if d.Rank() < 0 {
			return nil, fmt.Errorf("%w: unknown difficulty %q", ErrInvalidSpec, d)
		}
		if r < 0 || r > 1 || math.IsNaN(r) {
			return nil, fmt.Errorf("%w: ratio for %s out of range", ErrInvalidSpec, d)
		}
		ratioSum += r
		n := int(math.Floor(r*float64(spec.Total) + 1e-9))
		targets[d] = n
		sum += n
	}
	if ratioSum > 1+1e-9 {
		return nil, fmt.Errorf("%w: difficulty ratios sum to %.3f", ErrInvalidSpec, ratioSum)
	}

	if sum > spec.Total {
		return nil, fmt.Errorf("%w: difficulty targets sum to %d, total is %d", ErrInvalidSpec, sum, spec.Total)
	}
	return targets, nil
}

// eligible applies the generator's own filter on top of whatever the repository did.
// Duplicate ids keep their first occurrence and repeated knowledge-point tags collapse,
// so one question never counts twice toward the same knowledge point.
func eligible(spec model.PaperSpec, pool []model.Question) []model.Question {
	excluded := make(map[uuid.UUID]struct{}, len(spec.Excluding))
	for _, id := range spec.Excluding {
		excluded[id] = struct{}{}
	}

	seen := make(map[uuid.UUID]struct{}, len(pool))
	out := make([]model.Question, 0, len(pool))
	for _, q := range pool {
		if q.Status != model.QuestionStatusApproved || q.Difficulty.Rank() < 0 {
			continue
		}
		if spec.SubjectID != "" && q.SubjectID != spec.SubjectID {
			continue
		}
		if _, ok := excluded[q.ID]; ok {
			continue
		}
		if _, ok := seen[q.ID]; ok {
			continue
		}
		seen[q.ID] = struct{}{}
		q.KnowledgePoints = uniqueStrings(q.KnowledgePoints)
		out = append(out, q)
	}
	return out
}

func uniqueStrings(in []string) []string {
	if len(in) < 2 {
		return append([]string(nil), in...)
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

type targetKind uint8

const (
	targetKnowledgePoint targetKind = iota
	targetType
)

// target is one minimum-coverage constraint.
type target struct {
	kind targetKind
	name string
}

// selection tracks the picked questions and coverage of every target.
// tags[i] lists the distinct targets pool[i] contributes to.
type selection struct {
	pool     []model.Question
	tags     [][]target
	picked   []int
	chosen   []bool
	targets  map[target]int
	coverage map[target]int
}

func newSelection(pool []model.Question, kps map[string]int, types map[model.QuestionType]int) *selection {
	targets := make(map[target]int, len(kps)+len(types))
	for kp, n := range kps {
		targets[target{targetKnowledgePoint, kp}] = n
	}
	for t, n := range types {
		targets[target{targetType, string(t)}] = n
	}

	tags := make([][]target, len(pool))
	for i := range pool {
		for _, kp := range pool[i].KnowledgePoints {
			if tg := (target{targetKnowledgePoint, kp}); hasTarget(targets, tg) {
				tags[i] = append(tags[i], tg)
			}
		}
		if tg := (target{targetType, string(pool[i].Type)}); hasTarget(targets, tg) {
			tags[i] = append(tags[i], tg)
		}
	}

	return &selection{
		pool:     pool,
		tags:     tags,
		chosen:   make([]bool, len(pool)),
		targets:  targets,
		coverage: make(map[target]int, len(targets)),
	}
}

func hasTarget(targets map[target]int, tg target) bool {
	_, ok := targets[tg]
	return ok
}

func (s *selection) add(idx int) {
	s.picked = append(s.picked, idx)
	s.chosen[idx] = true
	s.cover(idx, 1)
}

// replace swaps victim for candidate, keeping the victim's position.
func (s *selection) replace(victim, candidate int) {
	for i, idx := range s.picked {
		if idx == victim {
			s.picked[i] = candidate
			break
		}
	}
	s.chosen[victim] = false
	s.chosen[candidate] = true
	s.cover(victim, -1)
	s.cover(candidate, 1)
}

func (s *selection) cover(idx, delta int) {
	for _, tg := range s.tags[idx] {
		s.coverage[tg] += delta
	}
}

func (s *selection) hasDeficit() bool {
	for tg, min := range s.targets {
		if s.coverage[tg] < min {
			return true
		}
	}
	return false
}

// deficits splits the unmet targets into knowledge points and question types.
func (s *selection) deficits() (map[string]int, map[model.QuestionType]int) {
	var kps map[string]int
	var types map[model.QuestionType]int
	for tg, min := range s.targets {
		d := min - s.coverage[tg]
		if d <= 0 {
			continue
		}
		switch tg.kind {
		case targetKnowledgePoint:
			if kps == nil {
				kps = make(map[string]int)
			}
			kps[tg.name] = d
		case targetType:
			if types == nil {
				types = make(map[model.QuestionType]int)
			}
			types[model.QuestionType(tg.name)] = d
		}
	}
	return kps, types
}

// gain counts the unmet targets that adding idx would move forward.
func (s *selection) gain(idx int) int {
	n := 0
	for _, tg := range s.tags[idx] {
		if s.coverage[tg] < s.targets[tg] {
			n++
		}
	}
	return n
}

// loss counts the targets that removing victim would set back once candidate is in.
func (s *selection) loss(victim, candidate int) int {
	n := 0
	for _, tg := range s.tags[victim] {
		cov := s.coverage[tg]
		if s.contributes(candidate, tg) {
			cov++
		}
		if cov <= s.targets[tg] {
			n++
		}
	}
	return n
}

func (s *selection) contributes(idx int, tg target) bool {
	for _, v := range s.tags[idx] {
		if v == tg {
			return true
		}
	}
	return false
}

// bestCandidate returns the unpicked question with the highest gain.
// When diff is set only that difficulty is considered. Ties keep pool order.
func (s *selection) bestCandidate(diff *model.Difficulty) (int, int) {
	best, bestGain := -1, 0
	for i := range s.pool {
		if s.chosen[i] || (diff != nil && s.pool[i].Difficulty != *diff) {
			continue
		}
		if g := s.gain(i); g > bestGain {
			best, bestGain = i, g
		}
	}
	return best, bestGain
}

// unpicked lists pool indices not yet selected, optionally for one difficulty.
func (s *selection) unpicked(diff *model.Difficulty) []int {
	var out []int
	for i := range s.pool {
		if s.chosen[i] || (diff != nil && s.pool[i].Difficulty != *diff) {
			continue
		}
		out = append(out, i)
	}
	return out
}

// swapBest performs the single swap with the largest net coverage gain across
// all targeted difficulties. It is a greedy heuristic: it never backtracks and
// reports false when no swap improves coverage.
func (s *selection) swapBest(targets map[model.Difficulty]int) bool {
	bestNet, bestVictim, bestCandidate := 0, -1, -1

	for _, d := range model.Difficulties {
		if targets[d] == 0 {
			continue
		}
		d := d
		cand, gain := s.bestCandidate(&d)
		if gain == 0 {
			continue
		}

		victim, victimLoss := -1, math.MaxInt
		for _, idx := range s.picked {
			if s.pool[idx].Difficulty != d {
				continue
			}
			if l := s.loss(idx, cand); l < victimLoss {
				victim, victimLoss = idx, l
			}
		}
		if victim < 0 {
			continue
		}

		if net := gain - victimLoss; net > bestNet {
			bestNet, bestVictim, bestCandidate = net, victim, cand
		}
	}

	if bestVictim < 0 {
		return false
	}
	s.replace(bestVictim, bestCandidate)
	return true
}
