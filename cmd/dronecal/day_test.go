package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/tazhate/dronecal/config"
	"github.com/tazhate/dronecal/internal/clients/caldav"
	"github.com/tazhate/dronecal/internal/domain"
	"github.com/tazhate/dronecal/internal/storage"
)

func TestPrintAgendaTable(t *testing.T) {
	color.NoColor = true
	date := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	events := []domain.CalendarEvent{
		{SourceType: domain.SourceDocument, SourceID: "d1", Title: "Forsikring utgår", OccursAt: date, Category: domain.CategoryDocument, AllDay: true},
		{SourceType: domain.SourceMission, SourceID: "m1", Title: "Inspeksjon Oslo", OccursAt: date.Add(9 * time.Hour), Category: domain.CategoryMission},
	}

	var buf bytes.Buffer
	if err := printAgenda(&buf, date, events, "table"); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Monday 10.03.2025", "Hele dagen", "09:00", "Inspeksjon Oslo", "Oppdrag"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := printAgenda(&buf, date, nil, "table"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Ingen hendelser") {
		t.Errorf("empty day:\n%s", buf.String())
	}

	buf.Reset()
	if err := printAgenda(&buf, date, events, "text"); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"mandag, 10.03:", "Forsikring utgår (hele dagen) [Dokument]", "09:00 Inspeksjon Oslo [Oppdrag]"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("text output missing %q:\n%s", want, buf.String())
		}
	}

	if err := printAgenda(&buf, date, nil, "yaml"); err == nil {
		t.Error("expected error for unknown output")
	}
}

func TestSeedThenDay(t *testing.T) {
	color.NoColor = true
	cfg := &config.Config{
		DatabasePath: filepath.Join(t.TempDir(), "cli.db"),
		Timezone:     time.UTC,
		ReadTimeout:  time.Second,
	}
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	tenant := domain.Tenant{CompanyID: "demo", UserID: "u"}

	store, err := storage.New(cfg.DatabasePath, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := seed(context.Background(), store, tenant, now); err != nil {
		t.Fatalf("seed: %v", err)
	}
	_ = store.Close()

	var buf bytes.Buffer
	if err := runDay(context.Background(), cfg, &dayOptions{CompanyID: "demo", Output: "json"}, now, &buf); err != nil {
		t.Fatalf("runDay: %v", err)
	}
	var rows []struct {
		Source string `json:"source"`
		Title  string `json:"title"`
		Time   string `json:"time"`
	}
	if err := json.Unmarshal(buf.Bytes(), &rows); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if len(rows) != 1 || rows[0].Title != "Sikkerhetsmøte" || rows[0].Time != "13:00" {
		t.Errorf("today = %+v", rows)
	}

	buf.Reset()
	tomorrow := now.AddDate(0, 0, 1)
	if err := runDay(context.Background(), cfg, &dayOptions{CompanyID: "demo", Output: "json"}, tomorrow, &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Inspeksjon av høyspentlinje") {
		t.Errorf("tomorrow = %s", buf.String())
	}
}

func TestRootCommandWiring(t *testing.T) {
	root := newRootCommand()
	for _, name := range []string{"serve", "day", "seed", "calendars"} {
		if c, _, err := root.Find([]string{name}); err != nil || c.Name() != name {
			t.Errorf("subcommand %s missing: %v", name, err)
		}
	}
}

func TestPrintCalendars(t *testing.T) {
	color.NoColor = true
	cals := []caldav.Calendar{
		{ID: "/cal/home/", DisplayName: "Hjem", URL: "/cal/home/"},
		{ID: "/cal/drift/", DisplayName: "Drift", URL: "/cal/drift/"},
	}

	if !hasCalendar(cals, "/cal/drift") {
		t.Error("configured path without trailing slash not matched")
	}
	if hasCalendar(cals, "/cal/other/") {
		t.Error("unknown path matched")
	}

	var buf bytes.Buffer
	if err := printCalendars(&buf, cals, "/cal/drift/"); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(strings.TrimSpace(lines[2]), "*") || strings.Contains(lines[1], "*") {
		t.Errorf("configured calendar not marked:\n%s", buf.String())
	}

	buf.Reset()
	if err := printCalendars(&buf, nil, ""); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Ingen kalendere") {
		t.Errorf("empty list = %q", buf.String())
	}
}
