package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/example/glovo-scheduler/internal/glovo"
	"github.com/example/glovo-scheduler/internal/internaltypes"
	"github.com/example/glovo-scheduler/internal/notify"
	"github.com/example/glovo-scheduler/internal/selection"
)

// Session keeps the upstream credential valid.
type Session interface {
	EnsureFresh(ctx context.Context) error
	Expiry() (time.Time, error)
}

type CalendarSource interface {
	Calendar(ctx context.Context) (glovo.Calendar, error)
}

type SlotBooker interface {
	BookSlot(ctx context.Context, slotID int64) error
}

// Notifier must not block the loop on delivery problems; it reports nothing back.
type Notifier interface {
	Send(ctx context.Context, text string)
}

type State int

const (
	StateEnsureAuth State = iota
	StateFetchAndSelect
	StateBook
	StateSummarize
	StateSleep
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateEnsureAuth:
		return "ensure_auth"
	case StateFetchAndSelect:
		return "fetch_and_select"
	case StateBook:
		return "book"
	case StateSummarize:
		return "summarize"
	case StateSleep:
		return "sleep"
	case StateTerminated:
		return "terminated"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Reason tells why Run returned.
type Reason string

const (
	ReasonAllSecured  Reason = "all_secured"
	ReasonAuthFailure Reason = "auth_failure"
	ReasonCanceled    Reason = "canceled"
)

// MaxJitter is added on top of Interval between cycles.
const MaxJitter = 10 * time.Second

// CycleResult holds the counters of one poll cycle. Secured includes the
// slots booked during the cycle.
type CycleResult struct {
	Target  int
	Secured int
	Booked  []Outcome
}

// Done reports whether every slot the schedule cares about is booked.
// A schedule matching nothing is never done.
func (r CycleResult) Done() bool {
	return r.Target > 0 && r.Secured == r.Target
}

// Scheduler polls the calendar and books the slots the schedule asks for
// until all of them are secured or the session cannot be refreshed.
type Scheduler struct {
	Session  Session
	Calendar CalendarSource
	Slots    SlotBooker
	Notifier Notifier

	Schedule     selection.Schedule
	AllowNonRush bool
	Interval     time.Duration
	// DryRun selects slots and reports them without booking.
	DryRun bool

	Sleep func(ctx context.Context, d time.Duration) error
	Rand  *rand.Rand

	state State
}

func (s *Scheduler) State() State { return s.state }

func (s *Scheduler) defaults() {
	if s.Sleep == nil {
		s.Sleep = sleepCtx
	}
	if s.Rand == nil {
		s.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
}

// Run drives the poll loop until a terminal state. Only an auth refresh
// failure or context cancellation stop it early; every other failure is
// contained in its cycle.
func (s *Scheduler) Run(ctx context.Context) (Reason, error) {
	s.defaults()
	log.Printf("scheduler: started (interval=%s, book_non_rush=%t, zones=%d)", s.Interval, s.AllowNonRush, len(s.Schedule))

	var (
		sel selection.Result
		res CycleResult
	)
	s.state = StateEnsureAuth
	for {
		if err := ctx.Err(); err != nil {
			s.state = StateTerminated
			return ReasonCanceled, err
		}

		switch s.state {
		case StateEnsureAuth:
			if err := s.ensureAuth(ctx); err != nil {
				s.state = StateTerminated
				if ctx.Err() != nil {
					return ReasonCanceled, ctx.Err()
				}
				return ReasonAuthFailure, err
			}
			s.state = StateFetchAndSelect

		case StateFetchAndSelect:
			var err error
			sel, err = s.fetchAndSelect(ctx)
			if err != nil {
				if ctx.Err() == nil {
					log.Printf("scheduler: checking slots failed: %v", err)
					s.Notifier.Send(ctx, "❌ An error occurred while checking slots:\n"+notify.Code(err))
				}
				s.state = StateSleep
				continue
			}
			s.state = StateBook

		case StateBook:
			booked := s.bookAll(ctx, sel.Eligible)
			res = CycleResult{Target: sel.Target, Secured: sel.Secured + len(booked), Booked: booked}
			s.state = StateSummarize

		case StateSummarize:
			s.summarize(ctx, res)
			if res.Done() {
				log.Printf("scheduler: all %d desired slots are booked", res.Target)
				s.Notifier.Send(ctx, fmt.Sprintf("🎉 All %d desired slots are booked, stopping.", res.Target))
				s.state = StateTerminated
				return ReasonAllSecured, nil
			}
			s.state = StateSleep

		case StateSleep:
			d := s.pollDelay()
			log.Printf("scheduler: next check in %s", d.Round(time.Millisecond))
			if err := s.Sleep(ctx, d); err != nil {
				s.state = StateTerminated
				return ReasonCanceled, err
			}
			s.state = StateEnsureAuth

		default:
			return ReasonCanceled, fmt.Errorf("scheduler: unexpected state %s", s.state)
		}
	}
}

// RunCycle runs one cycle without sleeping: auth, fetch, select, book and
// summarize. Errors are returned instead of being notified.
func (s *Scheduler) RunCycle(ctx context.Context) (CycleResult, error) {
	s.defaults()
	if err := s.ensureAuth(ctx); err != nil {
		return CycleResult{}, err
	}
	sel, err := s.fetchAndSelect(ctx)
	if err != nil {
		return CycleResult{}, err
	}
	booked := s.bookAll(ctx, sel.Eligible)
	res := CycleResult{Target: sel.Target, Secured: sel.Secured + len(booked), Booked: booked}
	s.summarize(ctx, res)
	return res, nil
}

func (s *Scheduler) ensureAuth(ctx context.Context) error {
	err := s.Session.EnsureFresh(ctx)
	switch {
	case err == nil:
	case errors.Is(err, internaltypes.ErrPersist):
		// the new tokens are live in memory, only the store is behind
		log.Printf("scheduler: %v", err)
		s.Notifier.Send(ctx, "⚠️ Failed to save refreshed credentials:\n"+notify.Code(err))
	default:
		log.Printf("scheduler: failed to refresh token: %v", err)
		if ctx.Err() == nil {
			s.Notifier.Send(ctx, "❌ Failed to refresh token:\n"+notify.Code(err))
		}
		return err
	}

	if exp, err := s.Session.Expiry(); err == nil {
		log.Printf("scheduler: token valid until %s", exp.Format(time.RFC3339))
	}
	return nil
}

func (s *Scheduler) fetchAndSelect(ctx context.Context) (selection.Result, error) {
	log.Printf("scheduler: pulling calendar")
	cal, err := s.Calendar.Calendar(ctx)
	if err != nil {
		return selection.Result{}, err
	}
	for _, d := range cal.Days {
		log.Printf("scheduler: checking available slots for %s", d.Time().Format("Monday, 02 January 2006"))
	}
	res := selection.Select(cal, s.Schedule, s.AllowNonRush)
	log.Printf("scheduler: %d eligible, %d/%d desired slots booked", len(res.Eligible), res.Secured, res.Target)
	return res, nil
}

func (s *Scheduler) summarize(ctx context.Context, res CycleResult) {
	if len(res.Booked) == 0 {
		return
	}
	s.Notifier.Send(ctx, SummaryMessage(res.Booked))
}

// SummaryMessage renders the booked-slots notification in Telegram Markdown.
func SummaryMessage(booked []Outcome) string {
	var b strings.Builder
	b.WriteString("✅ Following slots have been booked:")
	for _, o := range booked {
		fmt.Fprintf(&b, "\n- %d: *%s* at *%s*", o.SlotID, o.Date, o.StartTime)
	}
	return b.String()
}

func (s *Scheduler) pollDelay() time.Duration {
	return s.Interval + time.Duration(s.Rand.Int63n(int64(MaxJitter/time.Millisecond)+1))*time.Millisecond
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
