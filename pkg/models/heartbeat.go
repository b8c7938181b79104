package models

import (
	"errors"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidHeartbeat is returned when a heartbeat schedule cannot be parsed.
var ErrInvalidHeartbeat = errors.New("invalid heartbeat schedule")

var heartbeatParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Heartbeat is the cycle schedule of a running pipeline. Every tick ends a
// cycle: worker and local collector state is cleared, global state survives.
type Heartbeat struct {
	// Expression is a cron expression with optional seconds, or a descriptor
	// such as "@every 10s".
	Expression string `json:"expression" validate:"required"`

	// NextDueAt is the precomputed time of the next tick.
	NextDueAt time.Time `json:"next_due_at"`

	// Cycles counts the ticks seen so far.
	Cycles int `json:"cycles"`

	schedule cron.Schedule
}

// NewHeartbeat parses expression and computes the first tick from now.
func NewHeartbeat(expression string, now time.Time) (*Heartbeat, error) {
	h := &Heartbeat{Expression: expression}
	if err := h.Validate(); err != nil {
		return nil, err
	}

	h.NextDueAt = h.schedule.Next(now)

	return h, nil
}

// Validate parses the expression.
func (h *Heartbeat) Validate() error {
	if h.Expression == "" {
		return ErrInvalidHeartbeat
	}

	schedule, err := heartbeatParser.Parse(h.Expression)
	if err != nil {
		return errors.Join(ErrInvalidHeartbeat, err)
	}

	h.schedule = schedule

	return nil
}

// Schedule returns the parsed schedule. It is nil until Validate succeeds.
func (h *Heartbeat) Schedule() cron.Schedule {
	return h.schedule
}

// IsDue reports whether a tick is due at now.
func (h *Heartbeat) IsDue(now time.Time) bool {
	return !h.NextDueAt.After(now)
}

// Tick records a cycle end and schedules the next one after now.
func (h *Heartbeat) Tick(now time.Time) {
	h.Cycles++
	h.NextDueAt = h.schedule.Next(now)
}
