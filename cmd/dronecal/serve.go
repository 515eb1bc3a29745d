package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tazhate/dronecal/config"
	"github.com/tazhate/dronecal/internal/api"
	"github.com/tazhate/dronecal/internal/calendar"
	"github.com/tazhate/dronecal/internal/clients/caldav"
	"github.com/tazhate/dronecal/internal/notify"
	"github.com/tazhate/dronecal/internal/realtime"
	"github.com/tazhate/dronecal/internal/scheduler"
	"github.com/tazhate/dronecal/internal/service"
	"github.com/tazhate/dronecal/internal/storage"
)

func addServe(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the calendar API, live views and scheduled jobs.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			return serve()
		},
	}
	topLevel.AddCommand(cmd)
}

func serve() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required for serve")
	}

	hub := realtime.NewHub()
	store, err := storage.New(cfg.DatabasePath, hub)
	if err != nil {
		return err
	}
	defer store.Close()

	customSvc := service.NewCustomEventService(store)

	var caldavClient *caldav.Client
	if cfg.CalDAVEnabled() {
		caldavClient = caldav.NewClient(cfg.CalDAVURL, cfg.CalDAVUsername, cfg.CalDAVPassword)
	}
	calendarSvc := service.NewCalendarService(caldavClient, cfg.Timezone)
	calendarSvc.SetCalendarPath(cfg.CalDAVCalendar)
	if calendarSvc.IsConfigured() {
		discoverCtx, discoverCancel := context.WithTimeout(context.Background(), 30*time.Second)
		checkCalendar(discoverCtx, calendarSvc, cfg.CalDAVCalendar)
		discoverCancel()
	}

	var notifier calendar.FailureNotifier = notify.LogNotifier{}
	var tg *notify.Telegram
	if cfg.TelegramEnabled() {
		tg, err = notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			log.Printf("Telegram disabled: %v", err)
		} else {
			notifier = tg
		}
	}

	dashboard := calendar.NewDashboard(calendar.NewReaders(store, cfg.Timezone), customSvc, hub, calendar.Options{
		Location:    cfg.Timezone,
		ReadTimeout: cfg.ReadTimeout,
		Notifier:    notifier,
	})
	defer dashboard.Close()

	sched := scheduler.New(cfg, dashboard, calendarSvc)
	if tg != nil {
		sched.SetSender(tg)
	}

	server := api.New(cfg.JWTSecret, dashboard, store, customSvc, calendarSvc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := sched.Start(ctx); err != nil {
			log.Printf("Scheduler error: %v", err)
		}
	}()

	go func() {
		if err := server.Start(":" + cfg.ServerPort); err != nil {
			log.Printf("API error: %v", err)
		}
	}()

	log.Println("dronecal started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")

	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error stopping API: %v", err)
	}

	log.Println("dronecal stopped")
	return nil
}
