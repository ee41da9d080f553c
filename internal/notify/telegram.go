package notify

import (
	"context"
	"fmt"
	"html"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/pixelverse-studios/domani-app-sub000/internal/model"
	"github.com/pixelverse-studios/domani-app-sub000/internal/repository"
)

// TelegramSender delivers task reminders as Telegram messages.
type TelegramSender struct {
	api   *tgbotapi.BotAPI
	users *repository.UserRepository
}

func NewTelegramSender(api *tgbotapi.BotAPI, users *repository.UserRepository) *TelegramSender {
	return &TelegramSender{api: api, users: users}
}

func (s *TelegramSender) SendTaskReminder(ctx context.Context, task *model.Task) error {
	user, err := s.users.FindByID(ctx, task.UserID)
	if err != nil {
		return fmt.Errorf("resolve reminder recipient: %w", err)
	}
	if user.ChatID == 0 {
		return fmt.Errorf("user %d has no chat", user.ID)
	}

	text := fmt.Sprintf("⏰ <b>%s</b>", html.EscapeString(task.Title))
	if task.Notes != "" {
		text += fmt.Sprintf("\n📝 %s", html.EscapeString(task.Notes))
	}
	msg := tgbotapi.NewMessage(user.ChatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := s.api.Send(msg); err != nil {
		return fmt.Errorf("send reminder: %w", err)
	}
	return nil
}
