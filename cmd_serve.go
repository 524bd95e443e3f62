package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Coin333/courage-reps/internal/api"
	"github.com/Coin333/courage-reps/internal/bot"
	"github.com/Coin333/courage-reps/internal/scheduler"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	noBot       bool
	noAPI       bool
	noScheduler bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot, the HTTP API and the scheduler",
	Long: `Starts every delivery surface against one coach service:
  - the Telegram bot, when TELEGRAM_BOT_TOKEN is set
  - the HTTP API on HTTP_ADDR
  - the daily rollover and hourly reminder jobs, when ENABLE_SCHEDULER is true

Stops gracefully on SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&noBot, "no-bot", false, "do not start the Telegram bot")
	serveCmd.Flags().BoolVar(&noAPI, "no-api", false, "do not start the HTTP API")
	serveCmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "do not run scheduled jobs")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("Error during shutdown", zap.Error(err))
		}
	}()

	var botAPI *tgbotapi.BotAPI
	switch {
	case noBot:
	case cfg.TelegramToken == "":
		logger.Warn("TELEGRAM_BOT_TOKEN is not set, bot disabled")
	default:
		botAPI, err = tgbotapi.NewBotAPI(cfg.TelegramToken)
		if err != nil {
			return fmt.Errorf("unable to create bot: %w", err)
		}
		logger.Info("Authorized on Telegram", zap.String("account", botAPI.Self.UserName))
	}

	runScheduler := cfg.EnableScheduler && !noScheduler
	if err := checkSurfaces(botAPI != nil, !noAPI, runScheduler); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	var notifier scheduler.Notifier

	if botAPI != nil {
		botConfig := bot.DefaultConfig()
		botConfig.AdminUserIDs = cfg.AdminUserIDs
		b := bot.New(botAPI, a.coach, a.users, a.catalog, botConfig, logger.Named("bot"))
		notifier = b
		g.Go(func() error {
			return b.Run(gctx)
		})
	}

	if !noAPI {
		srv := api.NewServer(a.coach, a.catalog, api.Options{
			RateLimit: cfg.HTTPRateLimit,
			RateBurst: cfg.HTTPRateBurst,
		}, logger.Named("api"))
		g.Go(func() error {
			return srv.Run(gctx, cfg.HTTPAddr)
		})
	}

	if runScheduler {
		loc, _ := cfg.Location() // validated on load
		sched := scheduler.New(a.coach, a.users, notifier, scheduler.Options{
			StartHour: cfg.NotificationStartHour,
			EndHour:   cfg.NotificationEndHour,
			Location:  loc,
		}, logger.Named("scheduler"))
		if err := sched.Start(gctx); err != nil {
			stop()
			_ = g.Wait()
			return err
		}
		g.Go(func() error {
			<-gctx.Done()
			sched.Stop()
			return nil
		})
	}

	logger.Info("Courage Reps started. Press Ctrl+C to stop.")
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info("Courage Reps stopped")
	return nil
}

// checkSurfaces fails when serve would have nothing to run
func checkSurfaces(bot, api, sched bool) error {
	if !bot && !api && !sched {
		return errors.New("nothing to serve: the bot, the HTTP API and the scheduler are all disabled")
	}
	return nil
}

var rolloverCmd = &cobra.Command{
	Use:   "rollover",
	Short: "Assign today's challenge to every user still on an older day",
	Long: `Runs the midnight sweep once and exits. Useful from an external cron when
the built-in scheduler is disabled.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.coach.RolloverAll(ctx)
		fmt.Fprintf(cmd.OutOrStdout(), "Rolled over %d user(s)\n", n)
		return err
	},
}
