// Package bot is the Telegram surface for the planner. Incoming messages
// play the role of app-foreground transitions: each one runs the morning
// gate and the evening app-open check. The evening planning push carries
// a button that acts as the notification-tap trigger.
package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/robfig/cron/v3"

	"github.com/pixelverse-studios/domani-app-sub000/internal/latch"
	"github.com/pixelverse-studios/domani-app-sub000/internal/model"
	"github.com/pixelverse-studios/domani-app-sub000/internal/notify"
	"github.com/pixelverse-studios/domani-app-sub000/internal/repository"
	"github.com/pixelverse-studios/domani-app-sub000/internal/rollover"
	"github.com/pixelverse-studios/domani-app-sub000/internal/service"
)

type promptKind int

const (
	morningPrompt promptKind = iota
	eveningPrompt
)

const (
	cbTogglePrefix = "toggle:"
	cbOptionMIT    = "opt:mit"
	cbOptionTimes  = "opt:times"
	cbConfirm      = "roll:confirm"
	cbSkip         = "roll:skip"
	cbEveningStart = "evening:start"
)

// selection tracks one open rollover prompt per chat.
type selection struct {
	kind      promptKind
	userID    uint
	tasks     []rollover.Task
	selected  map[uint]bool
	hasMIT    bool
	makeMIT   bool
	keepTimes bool
	messageID int
}

// Bot aggregates the Telegram API with the rollover core and planner
// services.
type Bot struct {
	api        *tgbotapi.BotAPI
	users      *repository.UserRepository
	planner    *service.PlannerService
	categories *service.CategoryService
	gate       *rollover.Gate
	carry      *rollover.CarryForward
	latches    *latch.Store
	scheduler  *notify.Scheduler
	loc        *time.Location

	mu         sync.Mutex
	claims     map[int64]*rollover.SessionClaim
	selections map[int64]*selection
	reminders  map[uint]cron.EntryID
}

func New(token string, users *repository.UserRepository, planner *service.PlannerService, categories *service.CategoryService, gate *rollover.Gate, carry *rollover.CarryForward, latches *latch.Store, scheduler *notify.Scheduler, loc *time.Location) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	return &Bot{
		api:        api,
		users:      users,
		planner:    planner,
		categories: categories,
		gate:       gate,
		carry:      carry,
		latches:    latches,
		scheduler:  scheduler,
		loc:        loc,
		claims:     make(map[int64]*rollover.SessionClaim),
		selections: make(map[int64]*selection),
		reminders:  make(map[uint]cron.EntryID),
	}, nil
}

// API exposes the underlying client for senders that share the session.
func (b *Bot) API() *tgbotapi.BotAPI {
	return b.api
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	if err := b.schedulePlanningReminders(ctx); err != nil {
		log.Printf("[warn] schedule planning reminders: %v", err)
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update := <-updates:
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	from := msg.From
	if from == nil {
		return
	}
	user, err := b.users.UpsertFromTelegram(ctx, from.ID, msg.Chat.ID, from.FirstName, from.LastName, from.UserName)
	if err != nil {
		log.Printf("[warn] upsert user %d: %v", from.ID, err)
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, user, msg)
	} else if strings.TrimSpace(msg.Text) != "" {
		b.send(msg.Chat.ID, "Use /add to capture a task, /today to see your plan, /help for everything else.")
	}

	// Every message doubles as a foreground transition.
	b.onForeground(ctx, user, msg.Chat.ID)
}

func (b *Bot) handleCommand(ctx context.Context, user *model.User, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start", "help":
		b.send(chatID, helpText)
	case "add":
		b.cmdAdd(ctx, user, chatID, args)
	case "today":
		b.cmdToday(ctx, user, chatID)
	case "categories":
		b.cmdCategories(ctx, user, chatID)
	case "done":
		b.cmdDone(ctx, user, chatID, args)
	case "remind":
		b.cmdRemind(ctx, user, chatID, args)
	default:
		b.send(chatID, "Unknown command, try /help.")
	}
}

const helpText = `🗓 <b>Domani</b> — plan tomorrow, tonight.

/add &lt;title&gt; [#category] — add a task to today's plan
/today — show today's plan
/categories — list your categories
/done &lt;id&gt; — complete a task
/remind HH:MM — evening planning reminder time

In the morning I offer to roll yesterday's unfinished tasks into today.
In the evening, after your reminder time, I help you plan tomorrow.`

func (b *Bot) cmdAdd(ctx context.Context, user *model.User, chatID int64, args string) {
	title, category := splitCategory(args)
	if title == "" {
		b.send(chatID, "Usage: /add Buy groceries #errands")
		return
	}
	plan, err := b.planner.PlanOn(ctx, user, time.Now().In(b.loc))
	if err != nil {
		log.Printf("[warn] plan for today: %v", err)
		b.send(chatID, "Could not open today's plan, try again.")
		return
	}
	task, err := b.planner.AddTask(ctx, user, plan.ID, service.TaskInput{Title: title, Category: category})
	switch {
	case errors.Is(err, rollover.ErrTaskLimitReached):
		b.send(chatID, "Today's plan is full. Complete something first, or trim the list.")
	case err != nil:
		log.Printf("[warn] add task: %v", err)
		b.send(chatID, "Could not add the task, try again.")
	case category != "":
		b.send(chatID, fmt.Sprintf("Added <b>%s</b> to <i>%s</i> (id %d).", html.EscapeString(task.Title), html.EscapeString(category), task.ID))
	default:
		b.send(chatID, fmt.Sprintf("Added <b>%s</b> (id %d).", html.EscapeString(task.Title), task.ID))
	}
}

// splitCategory peels a trailing #category tag off a task title.
func splitCategory(args string) (title, category string) {
	idx := strings.LastIndex(args, "#")
	if idx < 0 {
		return strings.TrimSpace(args), ""
	}
	return strings.TrimSpace(args[:idx]), strings.TrimSpace(args[idx+1:])
}

func (b *Bot) cmdCategories(ctx context.Context, user *model.User, chatID int64) {
	system, err := b.categories.ListSystem(ctx)
	if err != nil {
		log.Printf("[warn] list system categories: %v", err)
		b.send(chatID, "Could not load categories, try again.")
		return
	}
	own, err := b.categories.List(ctx, user)
	if err != nil {
		log.Printf("[warn] list categories for user %d: %v", user.ID, err)
		b.send(chatID, "Could not load categories, try again.")
		return
	}

	var sb strings.Builder
	sb.WriteString("🗂 <b>Categories</b>\n\n")
	for _, c := range system {
		sb.WriteString(fmt.Sprintf("%s %s\n", c.Icon, html.EscapeString(c.Name)))
	}
	for _, c := range own {
		sb.WriteString(fmt.Sprintf("• %s\n", html.EscapeString(c.Name)))
	}
	sb.WriteString("\nTag a task when adding it: /add Buy milk #errands")
	b.send(chatID, sb.String())
}

func (b *Bot) cmdToday(ctx context.Context, user *model.User, chatID int64) {
	now := time.Now().In(b.loc)
	plan, err := b.planner.PlanOn(ctx, user, now)
	if err != nil {
		log.Printf("[warn] plan for today: %v", err)
		b.send(chatID, "Could not open today's plan, try again.")
		return
	}
	tasks, err := b.planner.Tasks(ctx, user, plan.ID)
	if err != nil {
		log.Printf("[warn] list tasks: %v", err)
		b.send(chatID, "Could not load today's tasks, try again.")
		return
	}
	if len(tasks) == 0 {
		b.send(chatID, "Today's plan is empty. /add something!")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📋 <b>Today</b> · %s\n\n", now.Format("Mon, Jan 2")))
	for _, t := range tasks {
		sb.WriteString(formatTaskLine(t))
	}
	b.send(chatID, strings.TrimSpace(sb.String()))
}

func formatTaskLine(t model.Task) string {
	box := "⬜"
	if t.Completed() {
		box = "✅"
	}
	line := fmt.Sprintf("%s %s", box, html.EscapeString(t.Title))
	if t.IsMIT {
		line = "⭐ " + line
	}
	if t.ReminderAt != nil {
		line += fmt.Sprintf(" · ⏰ %s", t.ReminderAt.Format("15:04"))
	}
	return fmt.Sprintf("%s <i>(id %d)</i>\n", line, t.ID)
}

func (b *Bot) cmdDone(ctx context.Context, user *model.User, chatID int64, args string) {
	id, err := strconv.ParseUint(args, 10, 32)
	if err != nil {
		b.send(chatID, "Usage: /done 12 (ids are shown by /today)")
		return
	}
	task, err := b.planner.CompleteTask(ctx, user, uint(id), time.Now().In(b.loc))
	if err != nil {
		log.Printf("[warn] complete task %d: %v", id, err)
		b.send(chatID, "Could not complete that task. Check the id with /today.")
		return
	}
	b.send(chatID, fmt.Sprintf("Done: <b>%s</b> 🎉", html.EscapeString(task.Title)))
}

func (b *Bot) cmdRemind(ctx context.Context, user *model.User, chatID int64, args string) {
	if args == "" {
		b.send(chatID, "Usage: /remind 21:30")
		return
	}
	if err := b.reschedulePlanningReminder(user.ID, chatID, args); err != nil {
		b.send(chatID, "That doesn't look like a time. Try /remind 21:30")
		return
	}
	if err := b.users.SetPlanningReminder(ctx, user.ID, args); err != nil {
		log.Printf("[warn] set planning reminder: %v", err)
		b.send(chatID, "Could not save the reminder time, try again.")
		return
	}
	b.send(chatID, fmt.Sprintf("🌙 I'll nudge you to plan tomorrow at <b>%s</b>.", html.EscapeString(args)))
}

// onForeground runs the two eligibility gates, mirroring what the mobile
// app does on every cold start and background-to-foreground transition.
func (b *Bot) onForeground(ctx context.Context, user *model.User, chatID int64) {
	if b.hasOpenPrompt(chatID) {
		return
	}

	now := time.Now().In(b.loc)
	latches := b.latchesFor(user.ID)

	morning, err := b.gate.Morning(ctx, user, latches, now)
	if err != nil {
		log.Printf("[warn] morning gate for user %d: %v", user.ID, err)
	} else {
		if morning.ShouldShowCelebration {
			b.send(chatID, "🎉 You finished everything yesterday. Clean slate!")
			b.gate.MarkCelebrationShown(latches, now)
		}
		if morning.ShouldShowPrompt {
			b.sendRolloverPrompt(chatID, user, morningPrompt, morning.Incomplete,
				"🌅 Yesterday left some tasks behind. Roll them into today?")
			return
		}
	}

	evening, err := b.gate.EveningAppOpen(ctx, user, b.claim(chatID), latches, now)
	if err != nil {
		log.Printf("[warn] evening gate for user %d: %v", user.ID, err)
		return
	}
	if evening.ShouldShow {
		b.sendRolloverPrompt(chatID, user, eveningPrompt, evening.Eligible,
			"🌙 Time to plan tomorrow. Carry today's leftovers over?")
	}
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.Message == nil || cq.From == nil {
		return
	}
	chatID := cq.Message.Chat.ID
	user, err := b.users.FindByTelegramID(ctx, cq.From.ID)
	if err != nil {
		log.Printf("[warn] resolve callback user %d: %v", cq.From.ID, err)
		b.answer(cq.ID, "")
		return
	}

	data := cq.Data
	switch {
	case data == cbEveningStart:
		b.onEveningTap(ctx, user, chatID, cq.ID)
	case strings.HasPrefix(data, cbTogglePrefix):
		b.onToggle(chatID, cq, strings.TrimPrefix(data, cbTogglePrefix))
	case data == cbOptionMIT, data == cbOptionTimes:
		b.onOption(chatID, cq, data)
	case data == cbConfirm:
		b.onConfirm(ctx, user, chatID, cq)
	case data == cbSkip:
		b.onSkip(chatID, cq)
	default:
		b.answer(cq.ID, "")
	}
}

// onEveningTap is the notification-tap activation path: the button on the
// planning push claims the session before any re-check.
func (b *Bot) onEveningTap(ctx context.Context, user *model.User, chatID int64, callbackID string) {
	now := time.Now().In(b.loc)
	latches := b.latchesFor(user.ID)

	status, err := b.gate.EveningNotification(ctx, user, b.claim(chatID), latches, now)
	if err != nil {
		log.Printf("[warn] evening notification gate for user %d: %v", user.ID, err)
		b.answer(callbackID, "Something went wrong, try again.")
		return
	}
	if !status.ShouldShow {
		b.answer(callbackID, "Nothing left to carry over. 🎉")
		return
	}
	b.answer(callbackID, "")
	if !b.hasOpenPrompt(chatID) {
		b.sendRolloverPrompt(chatID, user, eveningPrompt, status.Eligible,
			"🌙 Time to plan tomorrow. Carry today's leftovers over?")
	}
}

func (b *Bot) onToggle(chatID int64, cq *tgbotapi.CallbackQuery, rawID string) {
	id, err := strconv.ParseUint(rawID, 10, 32)
	if err != nil {
		b.answer(cq.ID, "")
		return
	}

	b.mu.Lock()
	sel, ok := b.selections[chatID]
	if ok {
		sel.selected[uint(id)] = !sel.selected[uint(id)]
	}
	b.mu.Unlock()

	b.answer(cq.ID, "")
	if ok {
		b.refreshKeyboard(chatID, sel)
	}
}

func (b *Bot) onOption(chatID int64, cq *tgbotapi.CallbackQuery, option string) {
	b.mu.Lock()
	sel, ok := b.selections[chatID]
	if ok {
		switch option {
		case cbOptionMIT:
			sel.makeMIT = !sel.makeMIT
		case cbOptionTimes:
			sel.keepTimes = !sel.keepTimes
		}
	}
	b.mu.Unlock()

	b.answer(cq.ID, "")
	if ok {
		b.refreshKeyboard(chatID, sel)
	}
}

func (b *Bot) onConfirm(ctx context.Context, user *model.User, chatID int64, cq *tgbotapi.CallbackQuery) {
	b.mu.Lock()
	sel, ok := b.selections[chatID]
	b.mu.Unlock()
	if !ok {
		b.answer(cq.ID, "")
		return
	}

	var ids []uint
	for _, t := range sel.tasks {
		if sel.selected[t.ID] {
			ids = append(ids, t.ID)
		}
	}
	if len(ids) == 0 {
		b.answer(cq.ID, "Select at least one task first.")
		return
	}

	now := time.Now().In(b.loc)
	targetDay := now
	if sel.kind == eveningPrompt {
		targetDay = now.AddDate(0, 0, 1)
	}
	plan, err := b.planner.PlanOn(ctx, user, targetDay)
	if err != nil {
		log.Printf("[warn] target plan for carry-forward: %v", err)
		b.answer(cq.ID, "Something went wrong, try again.")
		return
	}

	created, err := b.carry.Run(ctx, user, rollover.Input{
		SelectedTaskIDs:   ids,
		TargetPlanID:      plan.ID,
		MakeMIT:           sel.makeMIT,
		KeepReminderTimes: sel.keepTimes,
	})
	switch {
	case errors.Is(err, rollover.ErrTaskLimitReached):
		// No latch on failure: leave the prompt open so a retry with
		// fewer tasks still works.
		b.answer(cq.ID, "That day's plan is full. Deselect a few tasks and try again.")
		return
	case err != nil:
		log.Printf("[warn] carry-forward for user %d: %v", user.ID, err)
		b.answer(cq.ID, "Something went wrong. Nothing was copied, try again.")
		return
	}

	latches := b.latchesFor(user.ID)
	if sel.kind == morningPrompt {
		b.gate.MarkMorningPrompted(latches, now)
	} else {
		b.gate.MarkEveningPrompted(b.claim(chatID), latches, now)
	}

	b.mu.Lock()
	delete(b.selections, chatID)
	b.mu.Unlock()

	b.answer(cq.ID, "")
	b.editText(chatID, sel.messageID, fmt.Sprintf("➡️ Rolled %d task(s) into %s.", len(created), targetDay.Format("Mon, Jan 2")))
}

func (b *Bot) onSkip(chatID int64, cq *tgbotapi.CallbackQuery) {
	b.mu.Lock()
	sel, ok := b.selections[chatID]
	if ok {
		delete(b.selections, chatID)
	}
	b.mu.Unlock()
	b.answer(cq.ID, "")
	if !ok {
		return
	}

	now := time.Now().In(b.loc)
	latches := b.latchesFor(sel.userID)
	if sel.kind == morningPrompt {
		b.gate.MarkMorningPrompted(latches, now)
	} else {
		b.gate.MarkEveningPrompted(b.claim(chatID), latches, now)
	}
	b.editText(chatID, sel.messageID, "Skipped. Fresh start!")
}

func (b *Bot) sendRolloverPrompt(chatID int64, user *model.User, kind promptKind, tasks []rollover.Task, intro string) {
	if len(tasks) == 0 {
		return
	}
	sel := &selection{
		kind:      kind,
		userID:    user.ID,
		tasks:     tasks,
		selected:  make(map[uint]bool, len(tasks)),
		keepTimes: true,
	}
	for _, t := range tasks {
		sel.selected[t.ID] = true
		if t.IsMIT {
			sel.hasMIT = true
			sel.makeMIT = true
		}
	}

	msg := tgbotapi.NewMessage(chatID, intro)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = buildKeyboard(sel)
	sent, err := b.api.Send(msg)
	if err != nil {
		log.Printf("[warn] send rollover prompt: %v", err)
		return
	}
	sel.messageID = sent.MessageID

	b.mu.Lock()
	b.selections[chatID] = sel
	b.mu.Unlock()
}

func buildKeyboard(sel *selection) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, t := range sel.tasks {
		box := "⬜"
		if sel.selected[t.ID] {
			box = "✅"
		}
		label := fmt.Sprintf("%s %s", box, t.Title)
		if t.IsMIT {
			label = "⭐ " + label
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, cbTogglePrefix+strconv.FormatUint(uint64(t.ID), 10)),
		))
	}
	if sel.hasMIT {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(optionLabel("⭐ Keep as MIT", sel.makeMIT), cbOptionMIT),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(optionLabel("⏰ Keep reminder times", sel.keepTimes), cbOptionTimes),
	))
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("➡️ Roll over", cbConfirm),
		tgbotapi.NewInlineKeyboardButtonData("✖️ Skip", cbSkip),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func optionLabel(label string, on bool) string {
	if on {
		return label + ": on"
	}
	return label + ": off"
}

func (b *Bot) refreshKeyboard(chatID int64, sel *selection) {
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, sel.messageID, buildKeyboard(sel))
	if _, err := b.api.Request(edit); err != nil {
		log.Printf("[warn] refresh keyboard: %v", err)
	}
}

// schedulePlanningReminders arms the daily evening push for every user
// with a configured reminder time.
func (b *Bot) schedulePlanningReminders(ctx context.Context) error {
	users, err := b.users.ListAll(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		if u.PlanningReminderAt == "" || u.ChatID == 0 {
			continue
		}
		if err := b.reschedulePlanningReminder(u.ID, u.ChatID, u.PlanningReminderAt); err != nil {
			log.Printf("[warn] planning reminder for user %d: %v", u.ID, err)
		}
	}
	return nil
}

func (b *Bot) reschedulePlanningReminder(userID uint, chatID int64, timeOfDay string) error {
	entryID, err := b.scheduler.ScheduleDaily(timeOfDay, func() {
		b.sendPlanningPush(chatID)
	})
	if err != nil {
		return err
	}

	b.mu.Lock()
	if old, ok := b.reminders[userID]; ok {
		b.scheduler.RemoveDaily(old)
	}
	b.reminders[userID] = entryID
	b.mu.Unlock()
	return nil
}

// sendPlanningPush is the evening notification. Its button is the
// notification-tap path into the evening rollover flow.
func (b *Bot) sendPlanningPush(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, "🌙 Time to plan tomorrow!")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Review today's leftovers", cbEveningStart),
		),
	)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("[warn] send planning push: %v", err)
	}
}

// claim returns the per-chat session claim, creating it on first use.
func (b *Bot) claim(chatID int64) *rollover.SessionClaim {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.claims[chatID]
	if !ok {
		c = rollover.NewSessionClaim()
		b.claims[chatID] = c
	}
	return c
}

func (b *Bot) hasOpenPrompt(chatID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.selections[chatID]
	return ok
}

func (b *Bot) latchesFor(userID uint) rollover.Latches {
	morning, celebration, evening := b.latches.ForUser(userID)
	return rollover.Latches{
		MorningPrompted:  morning,
		CelebrationShown: celebration,
		EveningPrompted:  evening,
	}
}

func (b *Bot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("[warn] send message: %v", err)
	}
}

func (b *Bot) answer(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		log.Printf("[warn] answer callback: %v", err)
	}
}

func (b *Bot) editText(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if _, err := b.api.Request(edit); err != nil {
		log.Printf("[warn] edit message: %v", err)
	}
}
