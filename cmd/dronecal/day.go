package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
	"github.com/tazhate/dronecal/config"
	"github.com/tazhate/dronecal/internal/calendar"
	"github.com/tazhate/dronecal/internal/domain"
	"github.com/tazhate/dronecal/internal/service"
	"github.com/tazhate/dronecal/internal/storage"
)

type dayOptions struct {
	CompanyID string
	Output    string
}

func addDay(topLevel *cobra.Command) {
	opts := &dayOptions{}
	cmd := &cobra.Command{
		Use:   "day [YYYY-MM-DD]",
		Short: "Print the agenda of one day.",
		Example: `
dronecal day --company acme
dronecal day 2025-03-10 --company acme -o json
dronecal day --company acme -o text
`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			date := time.Now().In(cfg.Timezone)
			if len(args) == 1 {
				date, err = time.ParseInLocation("2006-01-02", args[0], cfg.Timezone)
				if err != nil {
					return fmt.Errorf("invalid date %q", args[0])
				}
			}
			return runDay(cmd.Context(), cfg, opts, date, color.Output)
		},
	}
	cmd.Flags().StringVar(&opts.CompanyID, "company", "", "company id")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "table", "output format: table, text or json")
	_ = cmd.MarkFlagRequired("company")

	topLevel.AddCommand(cmd)
}

func runDay(ctx context.Context, cfg *config.Config, opts *dayOptions, date time.Time, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// No publisher: a one-shot read needs no change feed.
	store, err := storage.New(cfg.DatabasePath, nil)
	if err != nil {
		return err
	}
	defer store.Close()

	tenant := domain.Tenant{CompanyID: opts.CompanyID}
	live, err := calendar.NewLive(tenant, calendar.NewReaders(store, cfg.Timezone), service.NewCustomEventService(store), nil, calendar.Options{
		Location:    cfg.Timezone,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return err
	}
	defer live.Close()

	report := live.Start(ctx)
	if !report.OK() {
		_, _ = fmt.Fprintln(w, color.YellowString(report.Message()))
	}

	return printAgenda(w, date, live.Snapshot().EventsOnDate(date), opts.Output)
}

var categoryColors = map[string]func(format string, a ...interface{}) string{
	domain.CategoryMission:     color.CyanString,
	domain.CategoryDocument:    color.YellowString,
	domain.CategoryMaintenance: color.MagentaString,
	domain.CategoryIncident:    color.RedString,
}

func printAgenda(w io.Writer, date time.Time, events []domain.CalendarEvent, output string) error {
	switch output {
	case "json":
		type row struct {
			Source   string `json:"source"`
			ID       string `json:"id"`
			Time     string `json:"time"`
			Title    string `json:"title"`
			Category string `json:"category"`
		}
		rows := make([]row, 0, len(events))
		for _, e := range events {
			rows = append(rows, row{Source: string(e.SourceType), ID: e.SourceID, Time: e.FormatTime(), Title: e.Title, Category: e.Category})
		}
		b, err := json.Marshal(rows)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err

	case "text":
		_, err := fmt.Fprint(w, service.NewCalendarService(nil, date.Location()).FormatEventList(events))
		if err == nil && len(events) == 0 {
			_, err = fmt.Fprintln(w)
		}
		return err

	case "table", "":
		_, _ = fmt.Fprintln(w, color.New(color.Bold).Sprint(date.Format("Monday 02.01.2006")))
		if len(events) == 0 {
			_, err := fmt.Fprintln(w, "Ingen hendelser")
			return err
		}
		tbl := uitable.New()
		tbl.Separator = "  "
		tbl.AddRow("TID", "KATEGORI", "TITTEL")
		for _, e := range events {
			category := e.Category
			if paint, ok := categoryColors[category]; ok {
				category = paint(category)
			}
			tbl.AddRow(e.FormatTime(), category, e.Title)
		}
		_, err := fmt.Fprintln(w, tbl)
		return err
	}
	return fmt.Errorf("unknown output format %q", output)
}
