package rollover

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/pixelverse-studios/domani-app-sub000/internal/model"
)

// Gate is the read-only eligibility logic for the rollover prompts. It
// never writes to the store; its only side effects are the latch setters
// and the session claim.
type Gate struct {
	plans PlanStore
	tasks TaskStore
}

func NewGate(plans PlanStore, tasks TaskStore) *Gate {
	return &Gate{plans: plans, tasks: tasks}
}

// MorningStatus is the outcome of the morning check against yesterday's
// plan.
type MorningStatus struct {
	ShouldShowPrompt      bool
	ShouldShowCelebration bool
	// Incomplete holds yesterday's unfinished tasks, MIT first.
	Incomplete []Task
	// PlanID is yesterday's plan, zero if the day was never planned.
	PlanID uint
}

// Morning inspects yesterday's plan and decides which morning prompt is
// due: the leftovers prompt when unfinished tasks remain, the celebration
// when every task was completed. The two checks are independent, each
// gated only by its own daily latch.
func (g *Gate) Morning(ctx context.Context, user *model.User, latches Latches, now time.Time) (MorningStatus, error) {
	var status MorningStatus
	if user == nil {
		return status, ErrNotAuthenticated
	}

	yesterday := now.AddDate(0, 0, -1).Format(model.DateFormat)
	plan, err := g.plans.FindByDate(ctx, user.ID, yesterday)
	if err != nil {
		return status, fmt.Errorf("find yesterday plan: %w", err)
	}
	if plan == nil {
		return status, nil
	}
	status.PlanID = plan.ID

	all, err := g.tasks.ListByPlan(ctx, plan.ID)
	if err != nil {
		return status, fmt.Errorf("list yesterday tasks: %w", err)
	}
	for _, t := range all {
		if !t.Completed() {
			status.Incomplete = append(status.Incomplete, projectTask(t))
		}
	}
	status.Incomplete = mitFirst(status.Incomplete)

	status.ShouldShowPrompt = !latches.MorningPrompted.IsSetToday(now) && len(status.Incomplete) > 0
	status.ShouldShowCelebration = !latches.CelebrationShown.IsSetToday(now) &&
		len(all) > 0 && len(status.Incomplete) == 0
	return status, nil
}

// EveningStatus is the outcome of an evening trigger against today's plan.
type EveningStatus struct {
	ShouldShow bool
	// Eligible holds today's incomplete tasks, MIT first.
	Eligible []Task
	// PlanID is today's plan, zero if the day was never planned.
	PlanID uint
}

// EveningNotification is the notification-tap trigger. The tap itself is
// the eligibility signal, so it claims the session immediately and skips
// the time-of-day re-check.
func (g *Gate) EveningNotification(ctx context.Context, user *model.User, claim *SessionClaim, latches Latches, now time.Time) (EveningStatus, error) {
	if user == nil {
		return EveningStatus{}, ErrNotAuthenticated
	}
	claim.Claim(ClaimNotification)
	return g.eveningStatus(ctx, user, latches, now)
}

// EveningAppOpen is the passive trigger, run on every foreground
// transition. Its checks short-circuit in order: session not claimed by
// the notification path, not already prompted today, a planning reminder
// time is configured, and that time has passed.
func (g *Gate) EveningAppOpen(ctx context.Context, user *model.User, claim *SessionClaim, latches Latches, now time.Time) (EveningStatus, error) {
	var status EveningStatus
	if user == nil {
		return status, ErrNotAuthenticated
	}
	if claim.ClaimedBy(ClaimNotification) {
		return status, nil
	}
	if latches.EveningPrompted.IsSetToday(now) {
		return status, nil
	}
	if user.PlanningReminderAt == "" {
		return status, nil
	}
	remindAt, err := timeOfDayOn(now, user.PlanningReminderAt)
	if err != nil {
		log.Printf("[warn] user %d has invalid planning reminder %q: %v", user.ID, user.PlanningReminderAt, err)
		return status, nil
	}
	if now.Before(remindAt) {
		return status, nil
	}
	if !claim.Claim(ClaimAppOpen) {
		return status, nil
	}
	return g.eveningStatus(ctx, user, latches, now)
}

func (g *Gate) eveningStatus(ctx context.Context, user *model.User, latches Latches, now time.Time) (EveningStatus, error) {
	var status EveningStatus

	today := now.Format(model.DateFormat)
	plan, err := g.plans.FindByDate(ctx, user.ID, today)
	if err != nil {
		return status, fmt.Errorf("find today plan: %w", err)
	}
	if plan == nil {
		return status, nil
	}
	status.PlanID = plan.ID

	incomplete, err := g.tasks.ListIncompleteByPlan(ctx, plan.ID)
	if err != nil {
		return status, fmt.Errorf("list incomplete tasks: %w", err)
	}
	for _, t := range incomplete {
		status.Eligible = append(status.Eligible, projectTask(t))
	}
	status.Eligible = mitFirst(status.Eligible)

	status.ShouldShow = !latches.EveningPrompted.IsSetToday(now) && len(status.Eligible) > 0
	return status, nil
}

// MarkMorningPrompted latches the morning leftovers prompt for today.
func (g *Gate) MarkMorningPrompted(latches Latches, now time.Time) {
	latches.MorningPrompted.SetToday(now)
}

// MarkCelebrationShown latches the morning celebration for today.
func (g *Gate) MarkCelebrationShown(latches Latches, now time.Time) {
	latches.CelebrationShown.SetToday(now)
}

// MarkEveningPrompted latches the evening prompt for today and releases
// the session claim so a later independent trigger can still run.
func (g *Gate) MarkEveningPrompted(claim *SessionClaim, latches Latches, now time.Time) {
	latches.EveningPrompted.SetToday(now)
	claim.Release()
}

// timeOfDayOn parses an HH:MM or HH:MM:SS string onto now's date in now's
// location.
func timeOfDayOn(now time.Time, timeOfDay string) (time.Time, error) {
	parts := strings.Split(timeOfDay, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return time.Time{}, fmt.Errorf("invalid time %q, expected HH:MM or HH:MM:SS", timeOfDay)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return time.Time{}, fmt.Errorf("invalid hour in %q", timeOfDay)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("invalid minute in %q", timeOfDay)
	}
	second := 0
	if len(parts) == 3 {
		second, err = strconv.Atoi(parts[2])
		if err != nil || second < 0 || second > 59 {
			return time.Time{}, fmt.Errorf("invalid second in %q", timeOfDay)
		}
	}
	return time.Date(now.Year(), now.Month(), now.Day(), hour, minute, second, 0, now.Location()), nil
}
