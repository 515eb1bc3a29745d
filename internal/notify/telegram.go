package notify

import (
	"fmt"
	"html"
	"log"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/tazhate/dronecal/internal/calendar"
	"github.com/tazhate/dronecal/internal/domain"
)

// DefaultRepeatAfter is how long an identical failure notice is suppressed.
const DefaultRepeatAfter = 30 * time.Minute

// chattable is the part of *tgbotapi.BotAPI the notifier needs.
type chattable interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram delivers digests and refresh failure notices to one chat.
type Telegram struct {
	api         chattable
	chatID      int64
	repeatAfter time.Duration
	now         func() time.Time

	mu   sync.Mutex
	last map[string]notice
}

type notice struct {
	text string
	at   time.Time
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	log.Printf("Authorized as @%s", api.Self.UserName)
	return newTelegram(api, chatID), nil
}

func newTelegram(api chattable, chatID int64) *Telegram {
	return &Telegram{
		api:         api,
		chatID:      chatID,
		repeatAfter: DefaultRepeatAfter,
		now:         time.Now,
		last:        make(map[string]notice),
	}
}

func (t *Telegram) SendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "HTML"
	_, err := t.api.Send(msg)
	return err
}

// Send posts text to the configured chat.
func (t *Telegram) Send(text string) error {
	return t.SendMessage(t.chatID, text)
}

// NotifyRefreshFailures sends one notice per refresh with failing sources.
// The same notice for the same company is repeated at most every repeatAfter.
func (t *Telegram) NotifyRefreshFailures(tenant domain.Tenant, report calendar.RefreshReport) {
	if report.OK() {
		return
	}
	text := fmt.Sprintf("⚠️ <b>Kalender</b> (%s)\n%s", html.EscapeString(tenant.CompanyID), html.EscapeString(report.Message()))

	now := t.now()
	t.mu.Lock()
	prev, seen := t.last[tenant.CompanyID]
	if seen && prev.text == text && now.Sub(prev.at) < t.repeatAfter {
		t.mu.Unlock()
		return
	}
	t.last[tenant.CompanyID] = notice{text: text, at: now}
	t.mu.Unlock()

	if err := t.Send(text); err != nil {
		log.Printf("Error sending failure notice for %s: %v", tenant.CompanyID, err)
	}
}

// LogNotifier writes failure notices to the log. It is used when no chat
// is configured.
type LogNotifier struct{}

func (LogNotifier) NotifyRefreshFailures(tenant domain.Tenant, report calendar.RefreshReport) {
	if report.OK() {
		return
	}
	reasons := make([]string, 0, len(report.Failures))
	for _, f := range report.Failures {
		reasons = append(reasons, f.Error())
	}
	log.Printf("Refresh of company %s incomplete: %s", tenant.CompanyID, strings.Join(reasons, "; "))
}
