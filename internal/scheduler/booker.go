package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/example/glovo-scheduler/internal/notify"
	"github.com/example/glovo-scheduler/internal/selection"
)

const (
	minBookDelay = 1000 * time.Millisecond
	maxBookDelay = 2500 * time.Millisecond
)

// Outcome records a slot booked in the current cycle.
type Outcome struct {
	SlotID    int64
	Date      string
	StartTime string
}

// bookAll tries every candidate once, in order. A failed slot is logged and
// notified and never stops the rest of the batch. Each attempt is followed by
// a random 1.00-2.50s pause so the upstream API is not hit in bursts.
func (s *Scheduler) bookAll(ctx context.Context, cands []selection.Candidate) []Outcome {
	var booked []Outcome
	for i, c := range cands {
		if s.DryRun {
			log.Printf("scheduler: dry run, would book slot %d on %s at %s (%s)", c.Slot.ID, c.Day.Label(), c.Slot.StartTime, c.Zone)
			continue
		}

		if o, err := s.bookOne(ctx, c); err == nil {
			booked = append(booked, o)
		} else if ctx.Err() == nil {
			log.Printf("scheduler: booking slot %d failed: %v", c.Slot.ID, err)
			s.Notifier.Send(ctx, fmt.Sprintf("❌ An error occurred while booking slot %d:\n%s", c.Slot.ID, notify.Code(err)))
		}

		if err := s.Sleep(ctx, s.bookDelay()); err != nil {
			log.Printf("scheduler: booking interrupted, %d of %d slots attempted", i+1, len(cands))
			break
		}
	}
	return booked
}

func (s *Scheduler) bookOne(ctx context.Context, c selection.Candidate) (Outcome, error) {
	log.Printf("scheduler: booking slot %d on %s at %s (%s)", c.Slot.ID, c.Day.Label(), c.Slot.StartTime, c.Zone)
	if err := s.Slots.BookSlot(ctx, c.Slot.ID); err != nil {
		return Outcome{}, err
	}
	log.Printf("scheduler: slot %d booked", c.Slot.ID)
	return Outcome{SlotID: c.Slot.ID, Date: c.Day.Label(), StartTime: c.Slot.StartTime}, nil
}

// bookDelay is uniform over 1.00..2.50s in 10ms steps.
func (s *Scheduler) bookDelay() time.Duration {
	steps := int64((maxBookDelay - minBookDelay) / (10 * time.Millisecond))
	return minBookDelay + time.Duration(s.Rand.Int63n(steps+1))*10*time.Millisecond
}
