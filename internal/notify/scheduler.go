// Package notify schedules and delivers task reminders. A reminder is a
// one-shot cron entry that sends through the configured Sender and
// removes itself after firing.
package notify

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pixelverse-studios/domani-app-sub000/internal/model"
)

// Sender delivers a reminder for a task to its owner.
type Sender interface {
	SendTaskReminder(ctx context.Context, task *model.Task) error
}

// Scheduler wraps cron-based jobs: one-shot task reminders and recurring
// daily jobs such as the evening planning push.
type Scheduler struct {
	cron *cron.Cron
	loc  *time.Location

	mu      sync.Mutex
	sender  Sender
	seq     int
	entries map[string]cron.EntryID
}

func NewScheduler(loc *time.Location) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc), cron.WithSeconds()),
		loc:     loc,
		entries: make(map[string]cron.EntryID),
	}
}

// SetSender wires the delivery channel. The bot session has to exist
// before the sender can, so this runs after construction; reminders that
// fire earlier are dropped with a log line.
func (s *Scheduler) SetSender(sender Sender) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sender = sender
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// ScheduleTaskReminder registers a one-shot reminder at the task's
// ReminderAt and returns its identifier. Tasks without a reminder, or
// with one already behind the clock, are a no-op returning an empty
// identifier.
func (s *Scheduler) ScheduleTaskReminder(_ context.Context, task *model.Task) (string, error) {
	if task.ReminderAt == nil {
		return "", nil
	}
	at := task.ReminderAt.In(s.loc)
	if at.Before(time.Now().In(s.loc)) {
		return "", nil
	}

	// cron format: second minute hour dom month dow
	spec := fmt.Sprintf("%d %d %d %d %d *", at.Second(), at.Minute(), at.Hour(), at.Day(), int(at.Month()))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	id := fmt.Sprintf("reminder-%d-%d", task.ID, s.seq)
	taskCopy := *task
	entryID, err := s.cron.AddFunc(spec, func() {
		s.fire(id, &taskCopy)
	})
	if err != nil {
		return "", fmt.Errorf("schedule reminder: %w", err)
	}
	s.entries[id] = entryID
	return id, nil
}

// fire delivers the reminder once and retires its entry so the yearly
// cron spec never repeats.
func (s *Scheduler) fire(id string, task *model.Task) {
	s.mu.Lock()
	sender := s.sender
	s.mu.Unlock()

	if sender == nil {
		log.Printf("[warn] no sender wired, dropping reminder for task %d", task.ID)
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := sender.SendTaskReminder(ctx, task); err != nil {
			log.Printf("[warn] send reminder for task %d: %v", task.ID, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if entryID, ok := s.entries[id]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, id)
	}
}

// CancelTaskReminder removes a scheduled reminder. Unknown identifiers
// are a no-op.
func (s *Scheduler) CancelTaskReminder(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entryID, ok := s.entries[id]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, id)
	}
	return nil
}

// Pending reports how many one-shot reminders are still scheduled.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// ScheduleDaily registers a recurring job at the given HH:MM or HH:MM:SS
// time of day and returns the entry for later removal.
func (s *Scheduler) ScheduleDaily(timeOfDay string, job func()) (cron.EntryID, error) {
	spec, err := buildDailySpec(timeOfDay)
	if err != nil {
		return 0, err
	}
	return s.cron.AddFunc(spec, job)
}

// RemoveDaily unregisters a recurring job.
func (s *Scheduler) RemoveDaily(id cron.EntryID) {
	s.cron.Remove(id)
}

func buildDailySpec(timeOfDay string) (string, error) {
	parts := strings.Split(timeOfDay, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return "", fmt.Errorf("invalid time %q, expected HH:MM or HH:MM:SS", timeOfDay)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour in %q", timeOfDay)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute in %q", timeOfDay)
	}
	second := 0
	if len(parts) == 3 {
		second, err = strconv.Atoi(parts[2])
		if err != nil || second < 0 || second > 59 {
			return "", fmt.Errorf("invalid second in %q", timeOfDay)
		}
	}
	// cron format: second minute hour dom month dow
	return fmt.Sprintf("%d %d %d * * *", second, minute, hour), nil
}
