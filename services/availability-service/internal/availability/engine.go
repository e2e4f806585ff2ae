package availability

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// RuleStore is the read side of wherever rules, overrides and bookings live. Implementations
// should return a consistent snapshot; the engine never retries a failed read.
type RuleStore interface {
	Read(ctx context.Context, organizerID string, dr DateRange) (Snapshot, error)
}

type Request struct {
	OrganizerID     string
	Event           EventTypeConfig
	Range           DateRange
	InviteeTimezone string
	// NotBefore hides slots starting before it. Zero keeps every slot.
	NotBefore time.Time
}

type Config struct {
	Policy LocalTimePolicy
	// MaxRangeDays caps the requested span; zero disables the cap.
	MaxRangeDays int
	// Parallelism bounds the per-date and per-slot fan-out; values below 2 run sequentially.
	Parallelism int
}

func DefaultConfig() Config {
	return Config{
		Policy:       DefaultLocalTimePolicy(),
		MaxRangeDays: 62,
		Parallelism:  4,
	}
}

// Engine sequences resolve, conflict subtraction, slot generation and projection. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	store RuleStore
	cfg   Config
}

func NewEngine(store RuleStore, cfg Config) *Engine {
	return &Engine{store: store, cfg: cfg}
}

// AvailableSlots reads the organizer snapshot and computes its bookable slots. Input errors are
// returned before the store is touched.
func (e *Engine) AvailableSlots(ctx context.Context, req Request) ([]TimeSlot, error) {
	if err := req.Event.Validate(); err != nil {
		return nil, err
	}
	if err := validateRange(req.Range, e.cfg.MaxRangeDays); err != nil {
		return nil, err
	}
	if _, err := LoadZone("invitee_timezone", req.InviteeTimezone); err != nil {
		return nil, err
	}

	snap, err := e.store.Read(ctx, req.OrganizerID, req.Range)
	if err != nil {
		return nil, &UpstreamError{OrganizerID: req.OrganizerID, Err: err}
	}
	return Compute(snap, req, e.cfg)
}

// Compute runs the pipeline over an already fetched snapshot.
func Compute(snap Snapshot, req Request, cfg Config) ([]TimeSlot, error) {
	if err := req.Event.Validate(); err != nil {
		return nil, err
	}
	projector, err := NewProjector(snap.Timezone, req.InviteeTimezone)
	if err != nil {
		return nil, err
	}

	days, err := NewResolver(cfg.Policy, cfg.Parallelism).Resolve(snap.Timezone, snap.Rules, snap.Overrides, req.Range)
	if err != nil {
		return nil, err
	}
	var windows []Interval
	for _, d := range days {
		windows = append(windows, d.Windows...)
	}

	free := Subtract(Normalize(windows), snap.Bookings)
	slots := NotBefore(Generate(free, req.Event), req.NotBefore)
	if len(slots) == 0 {
		return []TimeSlot{}, nil
	}
	return projectAll(projector, slots, cfg.Parallelism), nil
}

// projectAll writes each projection at its slot's index so the output order never depends on
// which worker finished first.
func projectAll(p *Projector, slots []Interval, parallelism int) []TimeSlot {
	out := make([]TimeSlot, len(slots))
	if parallelism < 2 || len(slots) < 64 {
		for i, s := range slots {
			out[i] = p.Project(s)
		}
		return out
	}

	chunk := (len(slots) + parallelism - 1) / parallelism
	var g errgroup.Group
	for lo := 0; lo < len(slots); lo += chunk {
		hi := min(lo+chunk, len(slots))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				out[i] = p.Project(slots[i])
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}
