package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/thermobook/internal/extract"
	"github.com/ppiankov/thermobook/internal/model"
)

// State is a page walker position
type State int

const (
	StateRoot State = iota
	StateGasPhase
	StateCondensedPhase
	StatePhaseChange
	StateDone
)

func (s State) String() string {
	switch s {
	case StateRoot:
		return "root"
	case StateGasPhase:
		return "gas"
	case StateCondensedPhase:
		return "condensed"
	case StatePhaseChange:
		return "phase-change"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// phase returns the extraction phase of a section state
func (s State) phase() model.Phase {
	switch s {
	case StateGasPhase:
		return model.PhaseGas
	case StateCondensedPhase:
		return model.PhaseLiquid
	}
	return model.PhaseChange
}

// transitions lists, per state, the candidate next states in priority order.
// A candidate is taken only when the current page links to it.
var transitions = map[State][]State{
	StateRoot:           {StateGasPhase, StateCondensedPhase, StatePhaseChange},
	StateGasPhase:       {StateCondensedPhase, StatePhaseChange},
	StateCondensedPhase: {StatePhaseChange},
	StatePhaseChange:    nil,
}

func linkFor(s State, links extract.Links) string {
	switch s {
	case StateGasPhase:
		return links.GasPhase
	case StateCondensedPhase:
		return links.CondensedPhase
	case StatePhaseChange:
		return links.PhaseChange
	}
	return ""
}

// next picks the first linked candidate after s, or StateDone
func next(s State, links extract.Links) (State, string) {
	for _, candidate := range transitions[s] {
		if target := linkFor(candidate, links); target != "" {
			return candidate, target
		}
	}
	return StateDone, ""
}

// WalkError wraps a walk failure with the stage it happened in
type WalkError struct {
	URL   string
	Stage State
	Err   error
}

func (e *WalkError) Error() string {
	return fmt.Sprintf("walk %s: %s: %v", e.URL, e.Stage, e.Err)
}

func (e *WalkError) Unwrap() error {
	return e.Err
}

// FetchFunc fetches one page. The walker never retries; retry belongs to the fetcher.
type FetchFunc func(ctx context.Context, rawURL string) (*FetchResult, error)

// Accumulator carries one substance's record and walk bookkeeping between steps.
// Each step owns it exclusively and hands it to the next.
type Accumulator struct {
	Record *model.Record // nil until the root page yields an identity

	WalkID          string
	Depth           int
	Fetches         int
	DownloadLatency time.Duration
	DownloadSlot    string // Host the walk fetches from
	Visited         []State
}

func newAccumulator(rootURL string) *Accumulator {
	acc := &Accumulator{WalkID: uuid.NewString()}
	if u, err := url.Parse(rootURL); err == nil {
		acc.DownloadSlot = u.Host
	}
	return acc
}

// WalkResult is the outcome of one substance walk
type WalkResult struct {
	Substance *model.Substance // nil when the root page has no substance
	WalkID    string
	Visited   []State
	Fetches   int
	Latency   time.Duration
}

// Walker drives the root, gas, condensed and phase change page sequence for a substance
type Walker struct {
	fetch  FetchFunc
	logger *slog.Logger
}

// NewWalker creates a walker fetching pages through fetch
func NewWalker(fetch FetchFunc, logger *slog.Logger) *Walker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Walker{fetch: fetch, logger: logger}
}

// Walk visits the substance pages starting at rootURL and returns the finished record.
// Any failure aborts the walk and discards the partial record.
func (w *Walker) Walk(ctx context.Context, rootURL string) (*WalkResult, error) {
	acc := newAccumulator(rootURL)
	state, pageURL := StateRoot, rootURL

	for state != StateDone {
		if err := ctx.Err(); err != nil {
			return nil, &WalkError{URL: pageURL, Stage: state, Err: err}
		}

		current := state
		var err error
		state, pageURL, acc, err = w.step(ctx, current, pageURL, acc)
		if err != nil {
			w.logger.Warn("walk failed", "walk_id", acc.WalkID, "stage", current.String(), "url", pageURL, "err", err)
			return nil, &WalkError{URL: pageURL, Stage: current, Err: err}
		}
		if acc.Record == nil {
			w.logger.Info("no substance on root page", "walk_id", acc.WalkID, "url", rootURL)
			return &WalkResult{WalkID: acc.WalkID, Visited: acc.Visited, Fetches: acc.Fetches, Latency: acc.DownloadLatency}, nil
		}
	}

	result := &WalkResult{
		Substance: Normalize(acc),
		WalkID:    acc.WalkID,
		Visited:   acc.Visited,
		Fetches:   acc.Fetches,
		Latency:   acc.DownloadLatency,
	}
	w.logger.Info("walk done", "walk_id", acc.WalkID, "cas", result.Substance.CAS, "pages", acc.Depth, "fields", len(result.Substance.Properties))
	return result, nil
}

// step fetches and extracts one page, then returns the next state and URL.
// On error the returned URL is the page that failed.
func (w *Walker) step(ctx context.Context, state State, pageURL string, acc *Accumulator) (State, string, *Accumulator, error) {
	fetched, err := w.fetch(ctx, pageURL)
	if err != nil {
		return state, pageURL, acc, err
	}
	acc.Fetches++
	acc.Depth++
	acc.DownloadLatency += fetched.Meta.Latency
	acc.Visited = append(acc.Visited, state)

	base := fetched.FinalURL
	if base == "" {
		base = pageURL
	}
	page, err := extract.NewPage(fetched.HTML, base)
	if err != nil {
		return state, pageURL, acc, err
	}

	if state == StateRoot {
		identity, err := extract.ParseIdentity(page)
		if err != nil {
			return state, pageURL, acc, fmt.Errorf("identity: %w", err)
		}
		if identity == nil {
			return StateDone, "", acc, nil
		}
		acc.Record = model.NewRecord(*identity)
	} else {
		frag, err := extract.ExtractPhase(page, state.phase())
		if err != nil {
			return state, pageURL, acc, err
		}
		if skipped := acc.Record.Merge(frag); len(skipped) > 0 {
			w.logger.Debug("fields already set", "walk_id", acc.WalkID, "stage", state.String(), "fields", skipped)
		}
	}

	nextState, nextURL := next(state, extract.ParseLinks(page))
	w.logger.Debug("page done", "walk_id", acc.WalkID, "stage", state.String(), "url", pageURL, "next", nextState.String(), "fields", acc.Record.Len())
	return nextState, nextURL, acc, nil
}
