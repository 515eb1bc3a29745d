package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/tazhate/dronecal/config"
	"github.com/tazhate/dronecal/internal/calendar"
	"github.com/tazhate/dronecal/internal/domain"
	"github.com/tazhate/dronecal/internal/service"
)

// exportHorizon bounds the CalDAV mirror around today.
const (
	exportBehind = 30 * 24 * time.Hour
	exportAhead  = 365 * 24 * time.Hour
)

type MessageSender interface {
	SendMessage(chatID int64, text string) error
}

type Scheduler struct {
	cron            *cron.Cron
	cfg             *config.Config
	dashboard       *calendar.Dashboard
	calendarService *service.CalendarService
	sender          MessageSender
	now             func() time.Time
}

func New(cfg *config.Config, dashboard *calendar.Dashboard, calendarSvc *service.CalendarService) *Scheduler {
	location := cfg.Timezone

	c := cron.New(cron.WithLocation(location))

	return &Scheduler{
		cron:            c,
		cfg:             cfg,
		dashboard:       dashboard,
		calendarService: calendarSvc,
		now:             time.Now,
	}
}

func (s *Scheduler) SetSender(sender MessageSender) {
	s.sender = sender
}

func (s *Scheduler) Start(ctx context.Context) error {
	// Safety net for notifications lost while a view was mounted
	if _, err := s.cron.AddFunc(s.cfg.RefreshCron, func() { s.refreshAll(ctx) }); err != nil {
		return fmt.Errorf("add refresh: %w", err)
	}

	if _, err := s.cron.AddFunc(s.cfg.MorningSpec(), s.morningDigest); err != nil {
		return fmt.Errorf("add morning digest: %w", err)
	}

	if s.cfg.CalDAVEnabled() {
		if _, err := s.cron.AddFunc(s.cfg.RefreshCron, func() { s.exportCalDAV(ctx) }); err != nil {
			return fmt.Errorf("add caldav export: %w", err)
		}
	}

	s.cron.Start()
	log.Printf("Scheduler started (TZ: %s, refresh: %s, morning: %s)",
		s.cfg.Timezone, s.cfg.RefreshCron, s.cfg.MorningTime)

	<-ctx.Done()
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Scheduler stopped")
}

func (s *Scheduler) refreshAll(ctx context.Context) {
	for company, report := range s.dashboard.RefreshAll(ctx) {
		if !report.OK() {
			log.Printf("Scheduled refresh of %s: %s", company, report.Message())
		}
	}
}

func (s *Scheduler) morningDigest() {
	if s.sender == nil || s.cfg.TelegramChatID == 0 {
		return
	}

	today := s.now().In(s.cfg.Timezone)
	for _, live := range s.dashboard.Mounted() {
		text := s.digestFor(live.Tenant(), live.Snapshot(), today)
		if text == "" {
			continue
		}
		if err := s.sender.SendMessage(s.cfg.TelegramChatID, text); err != nil {
			log.Printf("Error sending morning digest for %s: %v", live.Tenant().CompanyID, err)
		}
	}
}

// digestFor returns the morning message of one company, or "" when the day
// is empty.
func (s *Scheduler) digestFor(tenant domain.Tenant, view *calendar.View, today time.Time) string {
	briefing := s.calendarService.FormatTodayBriefing(view.EventsOnDate(today))
	if briefing == "" {
		return ""
	}
	return fmt.Sprintf("☀️ <b>God morgen!</b> (%s)\n\n%s", tenant.CompanyID, briefing)
}

func (s *Scheduler) exportCalDAV(ctx context.Context) {
	live, report, err := s.dashboard.Mount(ctx, domain.Tenant{CompanyID: s.cfg.CalDAVCompanyID})
	if err != nil {
		log.Printf("Error mounting %s for export: %v", s.cfg.CalDAVCompanyID, err)
		return
	}
	if !report.OK() {
		log.Printf("Export of %s uses stale data: %s", s.cfg.CalDAVCompanyID, report.Message())
	}

	now := s.now()
	result, err := s.calendarService.Export(ctx, live.Snapshot(), now.Add(-exportBehind), now.Add(exportAhead))
	if err != nil {
		log.Printf("Error exporting calendar: %v", err)
		return
	}
	for _, e := range result.Errors {
		log.Printf("Export: %s", e)
	}
	log.Printf("Exported calendar of %s: %d added, %d updated, %d deleted",
		s.cfg.CalDAVCompanyID, result.Added, result.Updated, result.Deleted)
}
