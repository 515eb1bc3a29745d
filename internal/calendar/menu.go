package calendar

import (
	"errors"
	"fmt"
	"time"
)

// CreationKind is an entity type that can be created from a day click.
type CreationKind string

const (
	CreateMission  CreationKind = "mission"
	CreateIncident CreationKind = "incident"
	CreateDocument CreationKind = "document"
	CreateCustom   CreationKind = "custom"
)

// CreationDialogs opens create dialogs pre-seeded with a date. done is
// called once the entity has been saved.
type CreationDialogs interface {
	OpenCreate(kind CreationKind, date time.Time, done func())
}

type CreationOption struct {
	Kind  CreationKind `json:"kind"`
	Label string       `json:"label"`
}

// CreationMenu is offered when a day is clicked without a selected event.
type CreationMenu struct {
	Date    time.Time        `json:"date"`
	Options []CreationOption `json:"options"`

	dialogs   CreationDialogs
	onCreated func()
}

var creationOptions = []CreationOption{
	{Kind: CreateMission, Label: "Nytt oppdrag"},
	{Kind: CreateIncident, Label: "Ny hendelse"},
	{Kind: CreateDocument, Label: "Nytt dokument"},
	{Kind: CreateCustom, Label: "Ny kalenderoppføring"},
}

var ErrNoCreationDialogs = errors.New("no creation dialogs configured")

// OnDateClick builds the creation menu for a day. onCreated runs after the
// chosen dialog reports completion; callers use it to trigger a refresh.
func (r *Resolver) OnDateClick(date time.Time, onCreated func()) CreationMenu {
	opts := make([]CreationOption, len(creationOptions))
	copy(opts, creationOptions)

	y, m, d := date.Date()
	return CreationMenu{
		Date:      time.Date(y, m, d, 0, 0, 0, 0, date.Location()),
		Options:   opts,
		dialogs:   r.creation,
		onCreated: onCreated,
	}
}

// Select opens the create dialog for kind.
func (m CreationMenu) Select(kind CreationKind) error {
	found := false
	for _, o := range m.Options {
		if o.Kind == kind {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("unknown creation kind %q", kind)
	}
	if m.dialogs == nil {
		return ErrNoCreationDialogs
	}

	m.dialogs.OpenCreate(kind, m.Date, func() {
		if m.onCreated != nil {
			m.onCreated()
		}
	})
	return nil
}
