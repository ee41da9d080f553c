package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pixelverse-studios/domani-app-sub000/internal/bot"
	"github.com/pixelverse-studios/domani-app-sub000/internal/config"
	"github.com/pixelverse-studios/domani-app-sub000/internal/latch"
	"github.com/pixelverse-studios/domani-app-sub000/internal/notify"
	"github.com/pixelverse-studios/domani-app-sub000/internal/repository"
	"github.com/pixelverse-studios/domani-app-sub000/internal/rollover"
	"github.com/pixelverse-studios/domani-app-sub000/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := &cobra.Command{
		Use:           "domani",
		Short:         "Domani evening-planning service",
		Long:          "Domani plans tomorrow tonight: task plans per day, reminders, and morning/evening rollover of unfinished tasks.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context())
		},
	}

	if err := root.ExecuteContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("domani: %v", err)
	}
	log.Println("Shutdown complete.")
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := repository.NewDB(cfg.DatabaseURL, repository.Options{TaskLimit: cfg.TaskLimit})
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	userRepo := repository.NewUserRepository(db)
	planRepo := repository.NewPlanRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)

	latches := latch.Open(cfg.LatchDir)

	scheduler := notify.NewScheduler(cfg.Location)

	planner := service.NewPlannerService(planRepo, taskRepo, categoryRepo)
	categories := service.NewCategoryService(categoryRepo)
	gate := rollover.NewGate(planRepo, taskRepo)
	carry := rollover.NewCarryForward(planRepo, taskRepo, scheduler)

	telegramBot, err := bot.New(cfg.TelegramToken, userRepo, planner, categories, gate, carry, latches, scheduler, cfg.Location)
	if err != nil {
		return err
	}
	// The sender rides the bot's API session, which only exists now.
	scheduler.SetSender(notify.NewTelegramSender(telegramBot.API(), userRepo))

	scheduler.Start()
	defer scheduler.Stop()

	log.Println("Domani service started.")
	return telegramBot.Start(ctx)
}
