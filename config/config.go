package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabasePath string
	Timezone     *time.Location
	ServerPort   string
	JWTSecret    string
	ReadTimeout  time.Duration
	RefreshCron  string
	MorningTime  string

	TelegramToken  string
	TelegramChatID int64

	CalDAVURL       string
	CalDAVUsername  string
	CalDAVPassword  string
	CalDAVCalendar  string
	CalDAVCompanyID string
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./data/dronecal.db"
	}

	tzName := os.Getenv("TIMEZONE")
	if tzName == "" {
		tzName = "Europe/Oslo"
	}
	tz, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "8080"
	}

	readTimeout := 10 * time.Second
	if v := os.Getenv("READ_TIMEOUT"); v != "" {
		readTimeout, err = time.ParseDuration(v)
		if err != nil || readTimeout <= 0 {
			return nil, fmt.Errorf("invalid READ_TIMEOUT %q", v)
		}
	}

	refreshCron := os.Getenv("REFRESH_CRON")
	if refreshCron == "" {
		refreshCron = "*/15 * * * *"
	}

	morningTime := os.Getenv("MORNING_TIME")
	if morningTime == "" {
		morningTime = "07:00"
	}
	if _, err := time.Parse("15:04", morningTime); err != nil {
		return nil, fmt.Errorf("invalid MORNING_TIME %q", morningTime)
	}

	var chatID int64
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		chatID, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("TELEGRAM_CHAT_ID must be a number")
		}
	}

	return &Config{
		DatabasePath:    dbPath,
		Timezone:        tz,
		ServerPort:      serverPort,
		JWTSecret:       os.Getenv("JWT_SECRET"),
		ReadTimeout:     readTimeout,
		RefreshCron:     refreshCron,
		MorningTime:     morningTime,
		TelegramToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:  chatID,
		CalDAVURL:       os.Getenv("CALDAV_URL"),
		CalDAVUsername:  os.Getenv("CALDAV_USERNAME"),
		CalDAVPassword:  os.Getenv("CALDAV_PASSWORD"),
		CalDAVCalendar:  os.Getenv("CALDAV_CALENDAR"),
		CalDAVCompanyID: os.Getenv("CALDAV_COMPANY_ID"),
	}, nil
}

// TelegramEnabled reports whether digests and failure notices can be sent.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

// CalDAVEnabled reports whether the aggregated calendar should be mirrored.
func (c *Config) CalDAVEnabled() bool {
	return c.CalDAVURL != "" && c.CalDAVCalendar != "" && c.CalDAVCompanyID != ""
}

// MorningSpec converts MorningTime into a cron spec.
func (c *Config) MorningSpec() string {
	t, err := time.Parse("15:04", c.MorningTime)
	if err != nil {
		return "0 7 * * *"
	}
	return fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour())
}
