// Package poller drains ingestion sets: it lists each source directory on a
// fixed cadence, forwards rolled-over files to their sink and deletes them once
// the sink has accepted them.
//
// A file is marked in the dedupe cache before it is attempted, so failed
// attempts are retried no sooner than the cache TTL.
package poller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/GabrielNunesIT/blob-ingestor/internal/config"
	"github.com/GabrielNunesIT/blob-ingestor/internal/dedupe"
	"github.com/GabrielNunesIT/blob-ingestor/internal/model"
	"github.com/GabrielNunesIT/blob-ingestor/internal/sink"
	"github.com/GabrielNunesIT/blob-ingestor/internal/source"
	"github.com/GabrielNunesIT/go-libs/logger"
)

// Option configures the Poller.
type Option func(*Poller)

// WithClock sets the time source used for rollover decisions.
func WithClock(now func() time.Time) Option {
	return func(p *Poller) {
		p.now = now
	}
}

// WithHeartbeat registers fn to be called after every completed cycle.
func WithHeartbeat(fn func()) Option {
	return func(p *Poller) {
		p.heartbeat = fn
	}
}

// WithCache replaces the dedupe cache built from the poller configuration.
func WithCache(c *dedupe.Cache) Option {
	return func(p *Poller) {
		p.cache = c
	}
}

// SetStats summarizes one set's pass within a cycle.
type SetStats struct {
	Set             string
	Listed          int
	Directories     int
	Excluded        int
	SkippedCached   int
	SkippedRollover int
	Attempted       int
	Ingested        int
	Failed          int
	Vanished        int
	DeleteFailed    int

	// Capped is set when eligible files were left for a later cycle because
	// MaxFilesPerRun was reached.
	Capped bool

	// Err is the listing error that aborted the set, if any.
	Err error
}

// CycleStats summarizes one pass over every set.
type CycleStats struct {
	ID       string
	Sets     []SetStats
	Duration time.Duration
}

// Poller is the poll loop. It is safe to call RunCycle and ProcessSet from
// tests without Run; Run adds sink lifecycle and the inter-cycle delay.
type Poller struct {
	cfg       config.PollerConfig
	sets      []*IngestionSet
	cache     *dedupe.Cache
	rollover  Rollover
	now       func() time.Time
	heartbeat func()
	logger    logger.ILogger
}

// New creates a poller over sets.
func New(cfg config.PollerConfig, sets []*IngestionSet, log logger.ILogger, opts ...Option) *Poller {
	p := &Poller{
		cfg:      cfg,
		sets:     sets,
		rollover: Rollover{Delay: cfg.RolloverDelay},
		now:      time.Now,
		logger:   log.SubLogger("Poller"),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.cache == nil {
		p.cache = dedupe.New(cfg.CacheTTL, cfg.CacheMaxEntries)
	}

	return p
}

// Run starts the sinks and polls until ctx is cancelled. In-flight file
// operations are allowed to finish; sinks are then stopped within
// ShutdownTimeout and sources are closed. A clean stop returns nil.
func (p *Poller) Run(ctx context.Context) error {
	if len(p.sets) == 0 {
		return errors.New("no ingestion sets")
	}

	p.startSinks(ctx)
	defer p.shutdown()

	if len(p.sets) == 0 {
		return errors.New("no ingestion set has a working sink")
	}

	p.logger.Infof("poller started: sets=%d, interval=%v, rollover=%v, cachettl=%v, maxfiles=%d, concurrency=%d",
		len(p.sets), p.cfg.PollInterval, p.cfg.RolloverDelay, p.cache.TTL(), p.cfg.MaxFilesPerRun, p.cfg.Concurrency)

	timer := time.NewTimer(p.cfg.PollInterval)
	defer timer.Stop()

	for {
		if ctx.Err() != nil {
			break
		}

		p.RunCycle(ctx)

		if p.heartbeat != nil {
			p.heartbeat()
		}

		timer.Reset(p.cfg.PollInterval)
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
	}

	p.logger.Info("poller stopping")
	return nil
}

// startSinks starts every distinct sink. Sets whose sink fails to start are
// dropped; the others keep running.
func (p *Poller) startSinks(ctx context.Context) {
	failed := make(map[sink.Sink]error)
	started := make(map[sink.Sink]bool)

	for _, set := range p.sets {
		s := set.Sink
		if started[s] || failed[s] != nil {
			continue
		}
		if err := s.Start(ctx); err != nil {
			failed[s] = err
			continue
		}
		started[s] = true
		p.logger.Debugf("started sink: %s", s.Name())
	}

	kept := make([]*IngestionSet, 0, len(p.sets))
	for _, set := range p.sets {
		if err := failed[set.Sink]; err != nil {
			p.logger.Errorf("ingestion set disabled, sink failed to start: set=%s, sink=%s, error=%v",
				set.Name, set.Sink.Name(), err)
			_ = set.Source.Close()
			continue
		}
		kept = append(kept, set)
	}
	p.sets = kept
}

// shutdown stops every distinct sink and closes every source.
func (p *Poller) shutdown() {
	ctx := context.Background()
	if p.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.ShutdownTimeout)
		defer cancel()
	}

	stopped := make(map[sink.Sink]bool)
	for _, set := range p.sets {
		if stopped[set.Sink] {
			continue
		}
		stopped[set.Sink] = true
		if err := set.Sink.Stop(ctx); err != nil {
			p.logger.Warningf("sink stop error: name=%s, error=%v", set.Sink.Name(), err)
		}
	}

	for _, set := range p.sets {
		if err := set.Source.Close(); err != nil {
			p.logger.Warningf("source close error: set=%s, error=%v", set.Name, err)
		}
	}
	p.logger.Debug("all sinks stopped")
}

// RunCycle processes every set once, in configuration order. With
// Concurrency above one, up to that many sets are processed in parallel.
func (p *Poller) RunCycle(ctx context.Context) CycleStats {
	start := time.Now()
	cycle := CycleStats{
		ID:   uuid.NewString(),
		Sets: make([]SetStats, len(p.sets)),
	}

	if p.cfg.Concurrency > 1 {
		ran := make([]bool, len(p.sets))
		var g errgroup.Group
		g.SetLimit(p.cfg.Concurrency)
		for i, set := range p.sets {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				// Go may have waited for a free slot; a stop could have arrived meanwhile.
				if ctx.Err() != nil {
					return nil
				}
				cycle.Sets[i] = p.ProcessSet(ctx, set)
				ran[i] = true
				return nil
			})
		}
		_ = g.Wait()

		kept := cycle.Sets[:0]
		for i, s := range cycle.Sets {
			if ran[i] {
				kept = append(kept, s)
			}
		}
		cycle.Sets = kept
	} else {
		for i, set := range p.sets {
			if ctx.Err() != nil {
				cycle.Sets = cycle.Sets[:i]
				break
			}
			cycle.Sets[i] = p.ProcessSet(ctx, set)
		}
	}

	cycle.Duration = time.Since(start)
	p.logCycle(cycle)
	return cycle
}

func (p *Poller) logCycle(cycle CycleStats) {
	var attempted int
	for _, s := range cycle.Sets {
		attempted += s.Attempted
		if s.Attempted == 0 && s.Err == nil && !s.Capped {
			p.logger.Debugf("set polled: cycle=%s, set=%s, listed=%d, cached=%d, pending=%d",
				cycle.ID, s.Set, s.Listed, s.SkippedCached, s.SkippedRollover)
			continue
		}
		p.logger.Infof("set polled: cycle=%s, set=%s, listed=%d, dirs=%d, excluded=%d, cached=%d, pending=%d, attempted=%d, ingested=%d, failed=%d, vanished=%d, deletefailed=%d, capped=%t, error=%v",
			cycle.ID, s.Set, s.Listed, s.Directories, s.Excluded, s.SkippedCached, s.SkippedRollover,
			s.Attempted, s.Ingested, s.Failed, s.Vanished, s.DeleteFailed, s.Capped, s.Err)
	}
	p.logger.Debugf("cycle done: cycle=%s, sets=%d, attempted=%d, duration=%v",
		cycle.ID, len(cycle.Sets), attempted, cycle.Duration)
}

// ProcessSet lists the set's directory once and handles each file in listing
// order. A listing error aborts the set for this cycle; a file error only
// aborts that file.
func (p *Poller) ProcessSet(ctx context.Context, set *IngestionSet) SetStats {
	stats := SetStats{Set: set.Name}

	budget := newListBudget(ctx, p.cfg.ListTimeout)
	defer budget.stop()

	for entry, err := range set.Source.List(budget.ctx, set.Directory) {
		if ctx.Err() != nil {
			break
		}
		if err != nil {
			if cause := context.Cause(budget.ctx); cause != nil && !errors.Is(cause, context.Canceled) {
				err = cause
			}
			stats.Err = err
			p.logger.Errorf("listing failed, set skipped this cycle: set=%s, source=%s, directory=%s, error=%v",
				set.Name, set.Source.Name(), set.Directory, err)
			break
		}

		stats.Listed++
		if entry.IsDir {
			stats.Directories++
			continue
		}
		if set.excluded(entry.Name) {
			stats.Excluded++
			continue
		}

		key := dedupe.Key{Set: set.Name, Name: entry.Name}
		if p.cache.Contains(key) {
			stats.SkippedCached++
			continue
		}
		if !p.rollover.Eligible(entry.CreatedAt, p.now()) {
			stats.SkippedRollover++
			continue
		}
		if stats.Attempted >= p.cfg.MaxFilesPerRun {
			stats.Capped = true
			break
		}

		p.cache.Add(key)
		stats.Attempted++

		budget.pause()
		result := p.processFile(ctx, set, entry)
		budget.resume()

		switch result {
		case outcomeIngested:
			stats.Ingested++
		case outcomeVanished:
			stats.Vanished++
		case outcomeDeleteFailed:
			stats.Ingested++
			stats.DeleteFailed++
		default:
			stats.Failed++
		}
	}

	return stats
}

type outcome int

const (
	outcomeFailed outcome = iota
	outcomeIngested
	outcomeVanished
	outcomeDeleteFailed
)

// processFile opens, ingests and deletes one file. It runs detached from ctx's
// cancellation so a stop request never interrupts a file half-way; FileTimeout
// bounds it instead.
func (p *Poller) processFile(ctx context.Context, set *IngestionSet, entry model.Entry) (result outcome) {
	fileCtx, cancel := withTimeout(context.WithoutCancel(ctx), p.cfg.FileTimeout)
	defer cancel()

	var body *onceCloser
	defer func() {
		if r := recover(); r != nil {
			if body != nil {
				_ = body.Close()
			}
			p.logger.Errorf("file handling panicked: set=%s, file=%s, panic=%v", set.Name, entry.Name, r)
			result = outcomeFailed
		}
	}()

	rc, err := set.Source.Open(fileCtx, entry.Name)
	if err != nil {
		if errors.Is(err, source.ErrNotFound) {
			p.logger.Infof("file vanished before read: set=%s, file=%s", set.Name, entry.Name)
			return outcomeVanished
		}
		p.logger.Errorf("open failed, retry after %v: set=%s, file=%s, error=%v",
			p.cache.TTL(), set.Name, entry.Name, err)
		return outcomeFailed
	}

	body = &onceCloser{ReadCloser: rc}
	if err := set.Sink.Ingest(fileCtx, body, set.Destination); err != nil {
		p.logger.Errorf("ingest failed, file kept, retry after %v: set=%s, file=%s, destination=%s, error=%v",
			p.cache.TTL(), set.Name, entry.Name, set.Destination, err)
		return outcomeFailed
	}

	if err := set.Source.Delete(fileCtx, entry.Name); err != nil && !errors.Is(err, source.ErrNotFound) {
		p.logger.Warningf("delete failed, file will be ingested again: set=%s, file=%s, error=%v",
			set.Name, entry.Name, err)
		return outcomeDeleteFailed
	}

	p.logger.Infof("file ingested: set=%s, file=%s, size=%d, destination=%s",
		set.Name, entry.Name, entry.Size, set.Destination)
	return outcomeIngested
}

// withTimeout bounds ctx by d; a non-positive d means no bound.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// onceCloser makes Close idempotent so the stream can be released after a
// panic without closing it twice.
type onceCloser struct {
	io.ReadCloser
	once sync.Once
	err  error
}

func (c *onceCloser) Close() error {
	c.once.Do(func() {
		c.err = c.ReadCloser.Close()
	})
	return c.err
}

// listBudget bounds the time a lazy listing spends fetching entries. The clock
// is paused while a yielded file is being handled, so slow ingestion never
// shows up as a listing failure.
type listBudget struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
	limit  time.Duration
	left   time.Duration
	since  time.Time
	timer  *time.Timer
}

func newListBudget(parent context.Context, limit time.Duration) *listBudget {
	ctx, cancel := context.WithCancelCause(parent)
	b := &listBudget{ctx: ctx, cancel: cancel, limit: limit, left: limit}
	b.resume()
	return b
}

func (b *listBudget) resume() {
	if b.limit <= 0 {
		return
	}
	b.since = time.Now()
	b.timer = time.AfterFunc(b.left, func() {
		b.cancel(fmt.Errorf("listing exceeded %v: %w", b.limit, context.DeadlineExceeded))
	})
}

func (b *listBudget) pause() {
	if b.timer == nil {
		return
	}
	b.timer.Stop()
	b.timer = nil
	b.left -= time.Since(b.since)
	if b.left < 0 {
		b.left = 0
	}
}

func (b *listBudget) stop() {
	b.pause()
	b.cancel(context.Canceled)
}
