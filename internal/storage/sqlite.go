package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tazhate/dronecal/internal/realtime"

	_ "github.com/mattn/go-sqlite3"
)

// Storage is the tenant-scoped row store. Every committed write is announced
// to the configured realtime.Publisher.
type Storage struct {
	db        *sql.DB
	publisher realtime.Publisher
}

func New(dbPath string, publisher realtime.Publisher) (*Storage, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Storage{db: db, publisher: publisher}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS missions (
			id TEXT PRIMARY KEY,
			company_id TEXT NOT NULL,
			tittel TEXT NOT NULL,
			lokasjon TEXT DEFAULT '',
			tidspunkt TEXT,
			status TEXT DEFAULT 'Planlagt',
			beskrivelse TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_missions_company ON missions(company_id)`,
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			company_id TEXT NOT NULL,
			tittel TEXT NOT NULL,
			kategori TEXT DEFAULT '',
			gyldig_til TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_company ON documents(company_id)`,
		`CREATE TABLE IF NOT EXISTS drones (
			id TEXT PRIMARY KEY,
			company_id TEXT NOT NULL,
			modell TEXT NOT NULL,
			serienummer TEXT DEFAULT '',
			neste_inspeksjon TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_drones_company ON drones(company_id)`,
		`CREATE TABLE IF NOT EXISTS equipment (
			id TEXT PRIMARY KEY,
			company_id TEXT NOT NULL,
			navn TEXT NOT NULL,
			type TEXT DEFAULT '',
			neste_vedlikehold TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_equipment_company ON equipment(company_id)`,
		`CREATE TABLE IF NOT EXISTS incidents (
			id TEXT PRIMARY KEY,
			company_id TEXT NOT NULL,
			tittel TEXT NOT NULL,
			beskrivelse TEXT DEFAULT '',
			alvorlighetsgrad TEXT DEFAULT 'Lav',
			status TEXT DEFAULT 'Åpen',
			hendelsestidspunkt TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_incidents_company ON incidents(company_id)`,
		// User-authored calendar entries
		`CREATE TABLE IF NOT EXISTS calendar_events (
			id TEXT PRIMARY KEY,
			company_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			type TEXT NOT NULL DEFAULT 'Annet',
			event_date TEXT NOT NULL,
			event_time TEXT,
			description TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_calendar_events_company ON calendar_events(company_id)`,
		`CREATE INDEX IF NOT EXISTS idx_calendar_events_date ON calendar_events(event_date)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			// Ignore "duplicate column" errors for ALTER TABLE
			if !strings.Contains(err.Error(), "duplicate column") {
				return fmt.Errorf("exec migration: %w", err)
			}
		}
	}
	return nil
}

// publish announces a committed change. Storage without a publisher stays silent.
func (s *Storage) publish(table realtime.Table, kind realtime.Kind, companyID, rowID string, newRow, oldRow any) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(realtime.Change{
		Table:     table,
		Kind:      kind,
		CompanyID: companyID,
		RowID:     rowID,
		New:       newRow,
		Old:       oldRow,
		At:        time.Now(),
	})
}

func affected(res sql.Result) bool {
	n, err := res.RowsAffected()
	return err == nil && n > 0
}
