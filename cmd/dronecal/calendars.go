package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
	"github.com/tazhate/dronecal/config"
	"github.com/tazhate/dronecal/internal/clients/caldav"
	"github.com/tazhate/dronecal/internal/service"
)

func addCalendars(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "calendars",
		Short: "List the calendars of the configured CalDAV account.",
		Example: `
CALDAV_URL=https://caldav.icloud.com dronecal calendars
`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			svc := service.NewCalendarService(caldav.NewClient(cfg.CalDAVURL, cfg.CalDAVUsername, cfg.CalDAVPassword), cfg.Timezone)
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cals, err := svc.DiscoverCalendars(ctx)
			if err != nil {
				return err
			}
			return printCalendars(color.Output, cals, cfg.CalDAVCalendar)
		},
	}
	topLevel.AddCommand(cmd)
}

func samePath(a, b string) bool {
	return strings.TrimSuffix(a, "/") == strings.TrimSuffix(b, "/")
}

func hasCalendar(cals []caldav.Calendar, path string) bool {
	for _, c := range cals {
		if samePath(c.URL, path) {
			return true
		}
	}
	return false
}

func printCalendars(w io.Writer, cals []caldav.Calendar, configured string) error {
	if len(cals) == 0 {
		_, err := fmt.Fprintln(w, "Ingen kalendere")
		return err
	}
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow("", "NAVN", "STI")
	for _, c := range cals {
		mark := ""
		if configured != "" && samePath(c.URL, configured) {
			mark = color.GreenString("*")
		}
		tbl.AddRow(mark, c.DisplayName, c.URL)
	}
	_, err := fmt.Fprintln(w, tbl)
	return err
}

// checkCalendar warns when CALDAV_CALENDAR is not one of the account's
// calendars. Discovery errors are logged and do not stop the server.
func checkCalendar(ctx context.Context, svc *service.CalendarService, path string) {
	cals, err := svc.DiscoverCalendars(ctx)
	if err != nil {
		log.Printf("CalDAV discovery failed: %v", err)
		return
	}
	if !hasCalendar(cals, path) {
		log.Printf("CalDAV calendar %s not found among %d calendars; run `dronecal calendars`", path, len(cals))
	}
}
