package recommend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dukerupert/pantry/internal/apperr"
	"github.com/dukerupert/pantry/internal/metrics"
	"github.com/dukerupert/pantry/internal/model"
)

// Engine maps an ingredient list to recipes.
type Engine interface {
	Recommend(ctx context.Context, ingredients []string) ([]model.Recipe, error)
}

// Loader reads a household's current roster.
type Loader func(ctx context.Context, householdID int64) ([]string, error)

type Status string

const (
	// StatusIdle means nothing has been requested for the household yet.
	StatusIdle        Status = "idle"
	StatusPending     Status = "pending"
	StatusReady       Status = "ready"
	StatusUnavailable Status = "unavailable"
)

// Result is what a household currently sees. Recipes always belong to
// Ingredients; Requested is the newest roster sent to the engine, which
// differs from Ingredients while a call is pending or after one failed.
type Result struct {
	Status      Status         `json:"status"`
	Recipes     []model.Recipe `json:"recipes"`
	Ingredients []string       `json:"ingredients"`
	Requested   []string       `json:"requested"`
	Code        apperr.Code    `json:"code,omitempty"`
	Reason      string         `json:"reason,omitempty"`
	Stale       bool           `json:"stale"`
	Seq         uint64         `json:"seq"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (r Result) clone() Result {
	r.Recipes = append([]model.Recipe{}, r.Recipes...)
	r.Ingredients = append([]string{}, r.Ingredients...)
	r.Requested = append([]string{}, r.Requested...)
	return r
}

type householdState struct {
	seq    uint64
	cancel context.CancelFunc
	result Result
}

// Pipeline turns roster changes into engine calls. Each household has a
// sequence number that grows with every change; only the completion carrying
// the current number is applied, so the exposed result always matches the
// most recent roster no matter which call returns first.
type Pipeline struct {
	engine Engine
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	states map[int64]*householdState
	wg     sync.WaitGroup
}

func NewPipeline(engine Engine, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		engine: engine,
		logger: logger.With("component", "recommend_pipeline"),
		now:    time.Now,
		states: make(map[int64]*householdState),
	}
}

// RosterChanged starts an engine call for snapshot, superseding any call in
// flight for the household. An empty snapshot clears the result without a
// call.
func (p *Pipeline) RosterChanged(householdID int64, snapshot []string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	st, ok := p.states[householdID]
	if !ok {
		st = &householdState{result: emptyResult(StatusIdle)}
		p.states[householdID] = st
	}
	p.trigger(householdID, st, snapshot)
}

// trigger must be called with p.mu held.
func (p *Pipeline) trigger(householdID int64, st *householdState, snapshot []string) {
	st.seq++
	seq := st.seq
	if st.cancel != nil {
		st.cancel()
		st.cancel = nil
	}

	snapshot = append([]string{}, snapshot...)
	if len(snapshot) == 0 {
		st.result = emptyResult(StatusReady)
		st.result.Seq = seq
		st.result.UpdatedAt = p.now()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	st.cancel = cancel
	st.result.Status = StatusPending
	st.result.Code = ""
	st.result.Reason = ""
	st.result.Requested = snapshot
	st.result.Seq = seq

	p.wg.Add(1)
	go p.run(ctx, cancel, householdID, st, seq, snapshot)
}

func (p *Pipeline) run(ctx context.Context, cancel context.CancelFunc, householdID int64, st *householdState, seq uint64, snapshot []string) {
	defer p.wg.Done()
	defer cancel()

	recipes, err := p.engine.Recommend(ctx, snapshot)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.states[householdID] != st || st.seq != seq {
		metrics.RecommendCalls.WithLabelValues("superseded").Inc()
		p.logger.Debug("discarding superseded recommendation", "household_id", householdID, "seq", seq)
		return
	}
	st.cancel = nil

	if err != nil {
		st.result.Status = StatusUnavailable
		st.result.Code = apperr.CodeRecommendationUnavailable
		st.result.Reason = reason(err)
		st.result.Stale = len(st.result.Recipes) > 0
		st.result.UpdatedAt = p.now()
		p.logger.Warn("recommendation unavailable", "household_id", householdID, "seq", seq, "error", err)
		return
	}

	if recipes == nil {
		recipes = []model.Recipe{}
	}
	st.result = Result{
		Status:      StatusReady,
		Recipes:     recipes,
		Ingredients: snapshot,
		Requested:   snapshot,
		Seq:         seq,
		UpdatedAt:   p.now(),
	}
}

// Latest returns the household's current result. Households the pipeline is
// not tracking report StatusIdle.
func (p *Pipeline) Latest(householdID int64) Result {
	p.mu.Lock()
	defer p.mu.Unlock()

	st, ok := p.states[householdID]
	if !ok {
		return emptyResult(StatusIdle)
	}
	return st.result.clone()
}

// Ensure starts tracking a household the pipeline has no state for, loading
// its roster and requesting recommendations for it. Tracked households are
// left alone.
func (p *Pipeline) Ensure(ctx context.Context, householdID int64, load Loader) error {
	p.mu.Lock()
	if _, ok := p.states[householdID]; ok {
		p.mu.Unlock()
		return nil
	}
	st := &householdState{result: emptyResult(StatusPending)}
	p.states[householdID] = st
	p.mu.Unlock()

	snapshot, err := load(ctx, householdID)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.states[householdID] != st {
		return nil
	}
	if err != nil {
		delete(p.states, householdID)
		return fmt.Errorf("load roster: %w", err)
	}
	// A roster change that landed while loading already carries a newer
	// snapshot.
	if st.seq != 0 {
		return nil
	}
	p.trigger(householdID, st, snapshot)
	return nil
}

// Release stops tracking a household. A call still in flight is cancelled
// and its result, if it arrives, is dropped.
func (p *Pipeline) Release(householdID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.release(householdID)
}

// release must be called with p.mu held.
func (p *Pipeline) release(householdID int64) {
	st, ok := p.states[householdID]
	if !ok {
		return
	}
	if st.cancel != nil {
		st.cancel()
	}
	delete(p.states, householdID)
	p.logger.Debug("released household", "household_id", householdID)
}

// Evict releases households whose last result is older than idle and that
// have no call in flight. It returns how many were released. The next read
// of an evicted household rebuilds its state through Ensure.
func (p *Pipeline) Evict(idle time.Duration) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	cutoff := p.now().Add(-idle)
	n := 0
	for id, st := range p.states {
		if st.cancel != nil || st.result.Status == StatusPending {
			continue
		}
		if st.result.UpdatedAt.After(cutoff) {
			continue
		}
		p.release(id)
		n++
	}
	return n
}

// Run calls Evict every interval until ctx is done.
func (p *Pipeline) Run(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := p.Evict(idle); n > 0 {
				p.logger.Debug("evicted idle households", "count", n)
			}
		}
	}
}

// Recommend is a one-off engine call that does not touch any household's
// state. Blank names are dropped; an empty list returns no recipes without a
// call.
func (p *Pipeline) Recommend(ctx context.Context, ingredients []string) ([]model.Recipe, error) {
	cleaned := make([]string, 0, len(ingredients))
	for _, in := range ingredients {
		if s := strings.TrimSpace(in); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	if len(cleaned) == 0 {
		return []model.Recipe{}, nil
	}
	recipes, err := p.engine.Recommend(ctx, cleaned)
	if err != nil {
		return nil, err
	}
	if recipes == nil {
		recipes = []model.Recipe{}
	}
	return recipes, nil
}

// Close cancels every call in flight and waits for them to return.
func (p *Pipeline) Close() {
	p.mu.Lock()
	for id, st := range p.states {
		if st.cancel != nil {
			st.cancel()
		}
		delete(p.states, id)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func emptyResult(status Status) Result {
	return Result{
		Status:      status,
		Recipes:     []model.Recipe{},
		Ingredients: []string{},
		Requested:   []string{},
	}
}

func reason(err error) string {
	var e *apperr.Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "recommendation engine timed out"
	}
	return "recommendation engine failed: " + err.Error()
}
