package notify

import (
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/tazhate/dronecal/internal/calendar"
	"github.com/tazhate/dronecal/internal/domain"
)

type fakeAPI struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, f.err
}

func failing(sources ...domain.SourceType) calendar.RefreshReport {
	var r calendar.RefreshReport
	for _, s := range sources {
		r.Failures = append(r.Failures, calendar.SourceFailure{Source: s, Err: errors.New("timeout")})
	}
	return r
}

func TestSendUsesHTML(t *testing.T) {
	api := &fakeAPI{}
	tg := newTelegram(api, 42)

	if err := tg.Send("<b>hei</b>"); err != nil {
		t.Fatal(err)
	}
	if len(api.sent) != 1 || api.sent[0].ChatID != 42 || api.sent[0].ParseMode != "HTML" {
		t.Errorf("sent = %+v", api.sent)
	}
}

func TestNotifyRefreshFailures(t *testing.T) {
	api := &fakeAPI{}
	tg := newTelegram(api, 42)
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	tg.now = func() time.Time { return now }
	tenant := domain.Tenant{CompanyID: "acme<1>"}

	tg.NotifyRefreshFailures(tenant, calendar.RefreshReport{})
	if len(api.sent) != 0 {
		t.Fatal("notified for a clean refresh")
	}

	tg.NotifyRefreshFailures(tenant, failing(domain.SourceDrone))
	if len(api.sent) != 1 {
		t.Fatalf("sent %d messages", len(api.sent))
	}
	text := api.sent[0].Text
	if !strings.Contains(text, "acme&lt;1&gt;") || !strings.Contains(text, "Kunne ikke oppdatere: drone") {
		t.Errorf("text = %q", text)
	}

	// Same failure again shortly after is suppressed, a different one is not.
	now = now.Add(time.Minute)
	tg.NotifyRefreshFailures(tenant, failing(domain.SourceDrone))
	tg.NotifyRefreshFailures(tenant, failing(domain.SourceDrone, domain.SourceMission))
	if len(api.sent) != 2 {
		t.Errorf("sent %d messages, want 2", len(api.sent))
	}

	now = now.Add(DefaultRepeatAfter)
	tg.NotifyRefreshFailures(tenant, failing(domain.SourceDrone, domain.SourceMission))
	if len(api.sent) != 3 {
		t.Errorf("sent %d messages after repeat window, want 3", len(api.sent))
	}
}
