package worker

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-qbank/internal/broker"
	"github.com/stemsi/exstem-qbank/internal/config"
)

const (
	StatsBatchSize    = 50
	StatsBatchTimeout = 2 * time.Second
	StatsPollTimeout  = 1 * time.Second
)

type StatsWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewStatsWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *StatsWorker {
	return &StatsWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "stats_worker").Logger(),
	}
}

// learnerDelta is the batch's combined contribution for one learner.
type learnerDelta struct {
	LearnerID string
	Answered  int
	Correct   int
	Day       time.Time
	payloads  []*broker.StatsPayload
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *StatsWorker) Start(ctx context.Context) {
	w.log.Info().Msg("StatsWorker started")

	batch := make([]*broker.StatsPayload, 0, StatsBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= StatsBatchSize || time.Since(lastFlush) >= StatsBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, StatsPollTimeout, config.WorkerKey.PersistStatsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var p broker.StatsPayload
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &p)
		}
	}
}

// ----------------------------------------------------------------
// Batch upsert wrapper
// ----------------------------------------------------------------

func (w *StatsWorker) flushSafe(ctx context.Context, batch []*broker.StatsPayload) {
	if len(batch) == 0 {
		return
	}

	deltas := aggregate(batch)

	if err := w.bulkUpsertStats(ctx, deltas); err != nil {
		w.log.Warn().Err(err).Msg("bulk stats upsert failed, using fallback")

		for _, d := range deltas {
			if err := w.upsertSingle(ctx, d); err != nil {
				w.log.Error().Err(err).Str("learner_id", d.LearnerID).Msg("upsertSingle failed, requeueing")
				for _, p := range d.payloads {
					raw, _ := json.Marshal(p)
					w.rdb.RPush(ctx, config.WorkerKey.PersistStatsQueue, raw)
				}
			}
		}
		return
	}

	w.log.Debug().Int("payloads", len(batch)).Int("learners", len(deltas)).Msg("Stats flushed")
}

// aggregate folds payloads per learner so one upsert never touches a row twice.
// The practice day is the UTC date of the latest graded session.
func aggregate(batch []*broker.StatsPayload) []*learnerDelta {
	byLearner := make(map[string]*learnerDelta, len(batch))
	for _, p := range batch {
		d, ok := byLearner[p.LearnerID]
		if !ok {
			d = &learnerDelta{LearnerID: p.LearnerID}
			byLearner[p.LearnerID] = d
		}
		d.Answered += p.Answered
		d.Correct += p.Correct
		day := truncateDay(p.GradedAt)
		if day.After(d.Day) {
			d.Day = day
		}
		d.payloads = append(d.payloads, p)
	}

	out := make([]*learnerDelta, 0, len(byLearner))
	for _, d := range byLearner {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LearnerID < out[j].LearnerID })
	return out
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// streakUpsert keeps the streak when practising again the same day, extends it
// on the following day and restarts it after a gap.
const streakUpsert = `
	ON CONFLICT (learner_id) DO UPDATE SET
		total_answered = ls.total_answered + EXCLUDED.total_answered,
		correct_answers = ls.correct_answers + EXCLUDED.correct_answers,
		current_streak = CASE
			WHEN ls.last_practice_date IS NULL THEN 1
			WHEN EXCLUDED.last_practice_date <= ls.last_practice_date THEN ls.current_streak
			WHEN EXCLUDED.last_practice_date = ls.last_practice_date + 1 THEN ls.current_streak + 1
			ELSE 1
		END,
		last_practice_date = GREATEST(ls.last_practice_date, EXCLUDED.last_practice_date),
		updated_at = NOW()
`

// ----------------------------------------------------------------
// BULK PostgreSQL UPSERT using UNNEST
// ----------------------------------------------------------------

func (w *StatsWorker) bulkUpsertStats(ctx context.Context, deltas []*learnerDelta) error {
	n := len(deltas)

	learners := make([]string, 0, n)
	answered := make([]int32, 0, n)
	correct := make([]int32, 0, n)
	days := make([]time.Time, 0, n)

	for _, d := range deltas {
		learners = append(learners, d.LearnerID)
		answered = append(answered, int32(d.Answered))
		correct = append(correct, int32(d.Correct))
		days = append(days, d.Day)
	}

	query := `
		INSERT INTO learner_stats AS ls
			(learner_id, total_answered, correct_answers, current_streak, last_practice_date, updated_at)
		SELECT u.learner_id, u.answered, u.correct, 1, u.day, NOW()
		FROM UNNEST(
			$1::text[],
			$2::int[],
			$3::int[],
			$4::date[]
		) AS u (learner_id, answered, correct, day)
	` + streakUpsert

	_, err := w.pool.Exec(ctx, query, learners, answered, correct, days)
	return err
}

// ----------------------------------------------------------------
// FALLBACK single upsert
// ----------------------------------------------------------------

func (w *StatsWorker) upsertSingle(ctx context.Context, d *learnerDelta) error {
	_, err := w.pool.Exec(ctx,
		`INSERT INTO learner_stats AS ls
			(learner_id, total_answered, correct_answers, current_streak, last_practice_date, updated_at)
		 VALUES ($1, $2, $3, 1, $4, NOW())`+streakUpsert,
		d.LearnerID, d.Answered, d.Correct, d.Day,
	)
	return err
}
