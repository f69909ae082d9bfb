// internal/historian/historian.go pops battle actions from the Redis queue and persists them to Postgres
// in batches, marking battles abandoned once they go quiet.
package historian

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/battlecards/internal/bus"
	"github.com/jason-s-yu/battlecards/internal/cache"
	"github.com/jason-s-yu/battlecards/internal/database"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Sink is where batches end up.
type Sink interface {
	InsertActions(ctx context.Context, batch []cache.ActionRecord) error
	MarkAbandoned(ctx context.Context, battleID uuid.UUID) (bool, error)
}

// DBSink writes through the global database pool.
type DBSink struct{}

func (DBSink) InsertActions(ctx context.Context, batch []cache.ActionRecord) error {
	return database.InsertActions(ctx, batch)
}

func (DBSink) MarkAbandoned(ctx context.Context, battleID uuid.UUID) (bool, error) {
	return database.MarkBattleAbandoned(ctx, battleID)
}

// Options tunes batching and the inactivity threshold.
type Options struct {
	Queue      string
	BatchSize  int
	FlushDelay time.Duration
	Inactivity time.Duration // duration until a battle is marked "abandoned"
}

// maxPending bounds how many records are retained while the sink keeps failing, in batches.
const maxPending = 50

// activity is what the historian knows about one battle's liveness.
type activity struct {
	last  time.Time
	index int  // highest action_index seen
	ended bool // the record with the highest index was battle_end
}

// Service encapsulates the Redis + DB logic for capturing battle actions.
type Service struct {
	rdb    *redis.Client
	sink   Sink
	opts   Options
	logger logrus.FieldLogger

	actMu    sync.Mutex
	activity map[uuid.UUID]*activity

	batchMu sync.Mutex
	batch   []cache.ActionRecord
}

func New(rdb *redis.Client, sink Sink, opts Options, logger logrus.FieldLogger) *Service {
	if opts.Queue == "" {
		opts.Queue = cache.QueueName
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 20
	}
	if opts.FlushDelay <= 0 {
		opts.FlushDelay = 500 * time.Millisecond
	}
	if opts.Inactivity <= 0 {
		opts.Inactivity = 10 * time.Minute
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		rdb:    rdb,
		sink:   sink,
		opts:   opts,
		logger:   logger,
		activity: make(map[uuid.UUID]*activity),
		batch:    make([]cache.ActionRecord, 0, opts.BatchSize),
	}
}

// Run starts the read, flush and inactivity loops and blocks until ctx is done.
// The pending batch is flushed on the way out.
func (s *Service) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); s.readLoop(ctx) }()
	go func() { defer wg.Done(); s.flushLoop(ctx) }()
	go func() { defer wg.Done(); s.inactivityLoop(ctx) }()

	s.logger.Infof("historian started on queue %s", s.opts.Queue)
	<-ctx.Done()
	wg.Wait()

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Flush(flushCtx); err != nil {
		s.logger.WithError(err).Error("final flush failed")
	}
	s.logger.Info("historian stopped")
}

// readLoop uses BLPop with a short timeout so cancellation is noticed.
func (s *Service) readLoop(ctx context.Context) {
	for ctx.Err() == nil {
		res, err := s.rdb.BLPop(ctx, 3*time.Second, s.opts.Queue).Result()
		if errors.Is(err, redis.Nil) || ctx.Err() != nil {
			continue
		}
		if err != nil {
			s.logger.WithError(err).Error("BLPop")
			time.Sleep(time.Second)
			continue
		}
		// res[0] is the queue name and res[1] the payload.
		if len(res) < 2 {
			continue
		}
		s.HandlePayload(ctx, []byte(res[1]))
	}
}

func (s *Service) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(s.opts.FlushDelay)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Flush(ctx); err != nil {
				s.logger.WithError(err).Error("flush failed")
			}
		}
	}
}

func (s *Service) inactivityLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.SweepInactive(ctx, now)
		}
	}
}

// HandlePayload decodes one queued record and adds it to the batch.
func (s *Service) HandlePayload(ctx context.Context, payload []byte) {
	rec, err := cache.DecodeAction(payload)
	if err != nil {
		s.logger.WithError(err).Warn("dropping queued record")
		return
	}
	s.Record(ctx, rec)
}

// Record tracks activity for the record's battle and flushes once the batch is full.
// Whether a battle has ended is decided by its highest action_index, not by arrival order.
func (s *Service) Record(ctx context.Context, rec cache.ActionRecord) {
	s.actMu.Lock()
	a := s.track(rec.BattleID)
	a.last = time.Now()
	if rec.ActionIndex >= a.index {
		a.index = rec.ActionIndex
		a.ended = rec.ActionType == "battle_end"
	}
	s.actMu.Unlock()

	s.batchMu.Lock()
	s.batch = append(s.batch, rec)
	full := len(s.batch) >= s.opts.BatchSize
	s.batchMu.Unlock()

	if full {
		if err := s.Flush(ctx); err != nil {
			s.logger.WithError(err).Error("flush failed")
		}
	}
}

// track returns the battle's entry, creating it. Assumes actMu is held.
func (s *Service) track(battleID uuid.UUID) *activity {
	a, ok := s.activity[battleID]
	if !ok {
		a = &activity{}
		s.activity[battleID] = a
	}
	return a
}

// Touch marks a battle as active at t.
func (s *Service) Touch(battleID uuid.UUID, t time.Time) {
	s.actMu.Lock()
	defer s.actMu.Unlock()
	s.track(battleID).last = t
}

// TouchSubject is a bus handler that refreshes activity from a live action subject.
func (s *Service) TouchSubject(subject string, _ []byte) {
	id, err := uuid.Parse(strings.TrimPrefix(subject, bus.SubjectPrefix+"."))
	if err != nil {
		return
	}
	s.actMu.Lock()
	defer s.actMu.Unlock()
	if a, tracked := s.activity[id]; tracked {
		a.last = time.Now()
	}
}

// tracked returns a copy of the battle's activity entry.
func (s *Service) tracked(battleID uuid.UUID) (activity, bool) {
	s.actMu.Lock()
	defer s.actMu.Unlock()
	a, ok := s.activity[battleID]
	if !ok {
		return activity{}, false
	}
	return *a, true
}

// Pending returns how many records wait for the next flush.
func (s *Service) Pending() int {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	return len(s.batch)
}

// Flush writes the current batch in one transaction. On failure the records stay queued
// for the next attempt, up to maxPending batches.
func (s *Service) Flush(ctx context.Context) error {
	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return nil
	}
	batchCopy := make([]cache.ActionRecord, len(s.batch))
	copy(batchCopy, s.batch)
	s.batch = s.batch[:0]
	s.batchMu.Unlock()

	if err := s.sink.InsertActions(ctx, batchCopy); err != nil {
		s.batchMu.Lock()
		s.batch = append(batchCopy, s.batch...)
		if limit := maxPending * s.opts.BatchSize; len(s.batch) > limit {
			dropped := len(s.batch) - limit
			s.batch = s.batch[dropped:]
			s.logger.Warnf("dropped %d oldest actions after repeated flush failures", dropped)
		}
		s.batchMu.Unlock()
		return err
	}
	s.logger.Debugf("Flushed %d actions to DB.", len(batchCopy))
	return nil
}

// SweepInactive marks every battle idle for longer than the threshold as abandoned.
// Ended battles are only forgotten.
func (s *Service) SweepInactive(ctx context.Context, now time.Time) []uuid.UUID {
	cutoff := now.Add(-s.opts.Inactivity)

	var idle []uuid.UUID
	s.actMu.Lock()
	for id, a := range s.activity {
		if !a.last.Before(cutoff) {
			continue
		}
		if a.ended {
			delete(s.activity, id)
			continue
		}
		idle = append(idle, id)
	}
	s.actMu.Unlock()

	var abandoned []uuid.UUID
	for _, battleID := range idle {
		changed, err := s.sink.MarkAbandoned(ctx, battleID)
		if err != nil {
			s.logger.WithError(err).Warnf("failed to mark battle %v abandoned", battleID)
			continue
		}
		s.actMu.Lock()
		if a, ok := s.activity[battleID]; ok && a.last.Before(cutoff) {
			delete(s.activity, battleID)
		}
		s.actMu.Unlock()
		if changed {
			s.logger.Infof("Marked battle %v as 'abandoned' due to inactivity.", battleID)
			abandoned = append(abandoned, battleID)
		}
	}
	return abandoned
}
