package caldav

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"
)

const productID = "-//dronecal//Calendar//NO"

// Client mirrors calendar events to a CalDAV server
type Client struct {
	baseURL    string
	username   string
	password   string
	calendarID string
	client     *caldav.Client
}

// NewClient creates a new CalDAV client
func NewClient(baseURL, username, password string) *Client {
	return &Client{
		baseURL:  baseURL,
		username: username,
		password: password,
	}
}

// IsConfigured returns true if the client has an endpoint and credentials
func (c *Client) IsConfigured() bool {
	return c.baseURL != "" && c.username != "" && c.password != ""
}

// SetCalendarID sets the calendar to use
func (c *Client) SetCalendarID(id string) {
	c.calendarID = id
}

// connect establishes connection to CalDAV server
func (c *Client) connect() (*caldav.Client, error) {
	if c.client != nil {
		return c.client, nil
	}

	httpClient := &http.Client{
		Transport: &basicAuthTransport{
			username: c.username,
			password: c.password,
		},
		Timeout: 30 * time.Second,
	}

	client, err := caldav.NewClient(httpClient, c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to CalDAV: %w", err)
	}

	c.client = client
	return client, nil
}

// basicAuthTransport adds Basic Auth to HTTP requests
type basicAuthTransport struct {
	username string
	password string
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.username, t.password)
	return http.DefaultTransport.RoundTrip(req)
}

// DiscoverCalendars returns all calendars for the user
func (c *Client) DiscoverCalendars(ctx context.Context) ([]Calendar, error) {
	client, err := c.connect()
	if err != nil {
		return nil, err
	}

	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("find principal: %w", err)
	}

	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("find home set: %w", err)
	}

	cals, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return nil, fmt.Errorf("find calendars: %w", err)
	}

	var result []Calendar
	for _, cal := range cals {
		result = append(result, Calendar{
			ID:          cal.Path,
			DisplayName: cal.Name,
			URL:         cal.Path,
		})
	}

	return result, nil
}

// GetEvents returns events in the specified time range
func (c *Client) GetEvents(ctx context.Context, from, to time.Time) ([]Event, error) {
	client, err := c.connect()
	if err != nil {
		return nil, err
	}
	if c.calendarID == "" {
		return nil, fmt.Errorf("calendar path not specified")
	}

	query := &caldav.CalendarQuery{
		CompFilter: caldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []caldav.CompFilter{
				{
					Name:  "VEVENT",
					Start: from,
					End:   to,
				},
			},
		},
	}

	objects, err := client.QueryCalendar(ctx, c.calendarID, query)
	if err != nil {
		return nil, fmt.Errorf("query calendar: %w", err)
	}

	var events []Event
	for _, obj := range objects {
		event, err := parseCalendarObject(&obj)
		if err != nil {
			continue // Skip invalid events
		}
		events = append(events, event)
	}

	return events, nil
}

// PutEvent creates or replaces an event
func (c *Client) PutEvent(ctx context.Context, event *Event) error {
	client, err := c.connect()
	if err != nil {
		return err
	}
	if c.calendarID == "" {
		return fmt.Errorf("calendar path not specified")
	}
	if event.UID == "" {
		return fmt.Errorf("event without UID")
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Children = append(cal.Children, EventComponent(event))

	if _, err := client.PutCalendarObject(ctx, c.eventPath(event.UID), cal); err != nil {
		return fmt.Errorf("put event: %w", err)
	}
	return nil
}

// DeleteEvent deletes an event by UID
func (c *Client) DeleteEvent(ctx context.Context, uid string) error {
	client, err := c.connect()
	if err != nil {
		return err
	}

	if err := client.RemoveAll(ctx, c.eventPath(uid)); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

func (c *Client) eventPath(uid string) string {
	p := c.calendarID
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p + uid + ".ics"
}

// parseCalendarObject parses a CalDAV object into an Event
func parseCalendarObject(obj *caldav.CalendarObject) (Event, error) {
	event := Event{}

	if obj.Data == nil {
		return event, fmt.Errorf("no data in calendar object")
	}

	for _, comp := range obj.Data.Children {
		if comp.Name != ical.CompEvent {
			continue
		}

		if prop := comp.Props.Get(ical.PropUID); prop != nil {
			event.UID = prop.Value
		}
		if prop := comp.Props.Get(ical.PropSummary); prop != nil {
			event.Summary = prop.Value
		}
		if prop := comp.Props.Get(ical.PropDescription); prop != nil {
			event.Description = prop.Value
		}
		if prop := comp.Props.Get(ical.PropCategories); prop != nil {
			event.Category = prop.Value
		}
		if prop := comp.Props.Get(ical.PropDateTimeStart); prop != nil {
			if t, err := prop.DateTime(time.UTC); err == nil {
				event.StartTime = t
			}
			if prop.Params.Get(ical.ParamValue) == string(ical.ValueDate) {
				event.AllDay = true
			}
		}
		if prop := comp.Props.Get(ical.PropDateTimeEnd); prop != nil {
			if t, err := prop.DateTime(time.UTC); err == nil {
				event.EndTime = t
			}
		}

		break // Only process first VEVENT
	}

	if event.UID == "" {
		return event, fmt.Errorf("event without UID")
	}
	return event, nil
}

// EventComponent converts an Event to a VEVENT component
func EventComponent(event *Event) *ical.Component {
	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, event.UID)
	vevent.Props.SetText(ical.PropSummary, event.Summary)

	if event.Description != "" {
		vevent.Props.SetText(ical.PropDescription, event.Description)
	}
	if event.Category != "" {
		vevent.Props.SetText(ical.PropCategories, event.Category)
	}

	if event.AllDay {
		vevent.Props.SetDate(ical.PropDateTimeStart, event.StartTime)
		if !event.EndTime.IsZero() {
			vevent.Props.SetDate(ical.PropDateTimeEnd, event.EndTime)
		}
	} else {
		// UTC keeps the Z suffix and avoids VTIMEZONE blocks
		vevent.Props.SetDateTime(ical.PropDateTimeStart, event.StartTime.UTC())
		if !event.EndTime.IsZero() {
			vevent.Props.SetDateTime(ical.PropDateTimeEnd, event.EndTime.UTC())
		}
	}

	vevent.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	return vevent.Component
}

// NewFeed builds a complete VCALENDAR holding the given events
func NewFeed(name string, events []Event) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	if name != "" {
		cal.Props.SetText("X-WR-CALNAME", name)
	}
	for i := range events {
		cal.Children = append(cal.Children, EventComponent(&events[i]))
	}
	return cal
}

// SerializeCalendar encodes a calendar as iCalendar text
func SerializeCalendar(cal *ical.Calendar) (string, error) {
	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return "", err
	}
	return buf.String(), nil
}
