package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/tazhate/dronecal/internal/domain"
	"github.com/tazhate/dronecal/internal/realtime"
)

// Entity writes exist so the dashboard's own dialogs (and tests) can change
// source rows; the calendar engine only reads these tables.

// === Missions ===

const missionColumns = `id, company_id, tittel, lokasjon, tidspunkt, status, beskrivelse, created_at`

func scanMission(row interface{ Scan(...any) error }) (*domain.Mission, error) {
	m := &domain.Mission{}
	err := row.Scan(&m.ID, &m.CompanyID, &m.Title, &m.Location, &m.StartsAt, &m.Status, &m.Description, &m.CreatedAt)
	return m, err
}

func (s *Storage) CreateMission(ctx context.Context, m *domain.Mission) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Status == "" {
		m.Status = domain.MissionPlanned
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO missions (id, company_id, tittel, lokasjon, tidspunkt, status, beskrivelse) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.CompanyID, m.Title, m.Location, m.StartsAt, m.Status, m.Description,
	)
	if err != nil {
		return err
	}
	m.CreatedAt = time.Now()
	cp := *m
	s.publish(realtime.TableMissions, realtime.Insert, m.CompanyID, m.ID, &cp, nil)
	return nil
}

func (s *Storage) GetMission(ctx context.Context, companyID, id string) (*domain.Mission, error) {
	m, err := scanMission(s.db.QueryRowContext(ctx,
		`SELECT `+missionColumns+` FROM missions WHERE id = ? AND company_id = ?`, id, companyID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

// ListScheduledMissions returns missions with a start time.
func (s *Storage) ListScheduledMissions(ctx context.Context, companyID string) ([]*domain.Mission, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+missionColumns+` FROM missions WHERE company_id = ? AND tidspunkt IS NOT NULL ORDER BY tidspunkt`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var missions []*domain.Mission
	for rows.Next() {
		m, err := scanMission(rows)
		if err != nil {
			return nil, err
		}
		missions = append(missions, m)
	}
	return missions, rows.Err()
}

func (s *Storage) UpdateMission(ctx context.Context, m *domain.Mission) error {
	old, err := s.GetMission(ctx, m.CompanyID, m.ID)
	if err != nil || old == nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE missions SET tittel = ?, lokasjon = ?, tidspunkt = ?, status = ?, beskrivelse = ? WHERE id = ? AND company_id = ?`,
		m.Title, m.Location, m.StartsAt, m.Status, m.Description, m.ID, m.CompanyID,
	)
	if err != nil {
		return err
	}
	cp := *m
	s.publish(realtime.TableMissions, realtime.Update, m.CompanyID, m.ID, &cp, old)
	return nil
}

func (s *Storage) DeleteMission(ctx context.Context, companyID, id string) error {
	old, err := s.GetMission(ctx, companyID, id)
	if err != nil || old == nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM missions WHERE id = ? AND company_id = ?`, id, companyID); err != nil {
		return err
	}
	s.publish(realtime.TableMissions, realtime.Delete, companyID, id, nil, old)
	return nil
}

// === Documents ===

const documentColumns = `id, company_id, tittel, kategori, gyldig_til, created_at`

func scanDocument(row interface{ Scan(...any) error }) (*domain.Document, error) {
	d := &domain.Document{}
	err := row.Scan(&d.ID, &d.CompanyID, &d.Title, &d.Category, &d.ValidUntil, &d.CreatedAt)
	return d, err
}

func (s *Storage) CreateDocument(ctx context.Context, d *domain.Document) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, company_id, tittel, kategori, gyldig_til) VALUES (?, ?, ?, ?, ?)`,
		d.ID, d.CompanyID, d.Title, d.Category, d.ValidUntil,
	)
	if err != nil {
		return err
	}
	d.CreatedAt = time.Now()
	cp := *d
	s.publish(realtime.TableDocuments, realtime.Insert, d.CompanyID, d.ID, &cp, nil)
	return nil
}

func (s *Storage) GetDocument(ctx context.Context, companyID, id string) (*domain.Document, error) {
	d, err := scanDocument(s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ? AND company_id = ?`, id, companyID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return d, err
}

// ListExpiringDocuments returns documents with an expiry date.
func (s *Storage) ListExpiringDocuments(ctx context.Context, companyID string) ([]*domain.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE company_id = ? AND gyldig_til IS NOT NULL ORDER BY gyldig_til`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *Storage) UpdateDocument(ctx context.Context, d *domain.Document) error {
	old, err := s.GetDocument(ctx, d.CompanyID, d.ID)
	if err != nil || old == nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE documents SET tittel = ?, kategori = ?, gyldig_til = ? WHERE id = ? AND company_id = ?`,
		d.Title, d.Category, d.ValidUntil, d.ID, d.CompanyID,
	)
	if err != nil {
		return err
	}
	cp := *d
	s.publish(realtime.TableDocuments, realtime.Update, d.CompanyID, d.ID, &cp, old)
	return nil
}

func (s *Storage) DeleteDocument(ctx context.Context, companyID, id string) error {
	old, err := s.GetDocument(ctx, companyID, id)
	if err != nil || old == nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ? AND company_id = ?`, id, companyID); err != nil {
		return err
	}
	s.publish(realtime.TableDocuments, realtime.Delete, companyID, id, nil, old)
	return nil
}

// === Drones ===

const droneColumns = `id, company_id, modell, serienummer, neste_inspeksjon, created_at`

func scanDrone(row interface{ Scan(...any) error }) (*domain.Drone, error) {
	d := &domain.Drone{}
	err := row.Scan(&d.ID, &d.CompanyID, &d.Model, &d.SerialNumber, &d.NextInspection, &d.CreatedAt)
	return d, err
}

func (s *Storage) CreateDrone(ctx context.Context, d *domain.Drone) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO drones (id, company_id, modell, serienummer, neste_inspeksjon) VALUES (?, ?, ?, ?, ?)`,
		d.ID, d.CompanyID, d.Model, d.SerialNumber, d.NextInspection,
	)
	if err != nil {
		return err
	}
	d.CreatedAt = time.Now()
	cp := *d
	s.publish(realtime.TableDrones, realtime.Insert, d.CompanyID, d.ID, &cp, nil)
	return nil
}

func (s *Storage) GetDrone(ctx context.Context, companyID, id string) (*domain.Drone, error) {
	d, err := scanDrone(s.db.QueryRowContext(ctx,
		`SELECT `+droneColumns+` FROM drones WHERE id = ? AND company_id = ?`, id, companyID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return d, err
}

// ListDronesDueInspection returns drones with a next inspection date.
func (s *Storage) ListDronesDueInspection(ctx context.Context, companyID string) ([]*domain.Drone, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+droneColumns+` FROM drones WHERE company_id = ? AND neste_inspeksjon IS NOT NULL ORDER BY neste_inspeksjon`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drones []*domain.Drone
	for rows.Next() {
		d, err := scanDrone(rows)
		if err != nil {
			return nil, err
		}
		drones = append(drones, d)
	}
	return drones, rows.Err()
}

func (s *Storage) UpdateDrone(ctx context.Context, d *domain.Drone) error {
	old, err := s.GetDrone(ctx, d.CompanyID, d.ID)
	if err != nil || old == nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE drones SET modell = ?, serienummer = ?, neste_inspeksjon = ? WHERE id = ? AND company_id = ?`,
		d.Model, d.SerialNumber, d.NextInspection, d.ID, d.CompanyID,
	)
	if err != nil {
		return err
	}
	cp := *d
	s.publish(realtime.TableDrones, realtime.Update, d.CompanyID, d.ID, &cp, old)
	return nil
}

func (s *Storage) DeleteDrone(ctx context.Context, companyID, id string) error {
	old, err := s.GetDrone(ctx, companyID, id)
	if err != nil || old == nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM drones WHERE id = ? AND company_id = ?`, id, companyID); err != nil {
		return err
	}
	s.publish(realtime.TableDrones, realtime.Delete, companyID, id, nil, old)
	return nil
}

// === Equipment ===

const equipmentColumns = `id, company_id, navn, type, neste_vedlikehold, created_at`

func scanEquipment(row interface{ Scan(...any) error }) (*domain.Equipment, error) {
	e := &domain.Equipment{}
	err := row.Scan(&e.ID, &e.CompanyID, &e.Name, &e.Type, &e.NextMaintenance, &e.CreatedAt)
	return e, err
}

func (s *Storage) CreateEquipment(ctx context.Context, e *domain.Equipment) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO equipment (id, company_id, navn, type, neste_vedlikehold) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.CompanyID, e.Name, e.Type, e.NextMaintenance,
	)
	if err != nil {
		return err
	}
	e.CreatedAt = time.Now()
	cp := *e
	s.publish(realtime.TableEquipment, realtime.Insert, e.CompanyID, e.ID, &cp, nil)
	return nil
}

func (s *Storage) GetEquipment(ctx context.Context, companyID, id string) (*domain.Equipment, error) {
	e, err := scanEquipment(s.db.QueryRowContext(ctx,
		`SELECT `+equipmentColumns+` FROM equipment WHERE id = ? AND company_id = ?`, id, companyID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

// ListEquipmentDueMaintenance returns equipment with a next maintenance date.
func (s *Storage) ListEquipmentDueMaintenance(ctx context.Context, companyID string) ([]*domain.Equipment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+equipmentColumns+` FROM equipment WHERE company_id = ? AND neste_vedlikehold IS NOT NULL ORDER BY neste_vedlikehold`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.Equipment
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func (s *Storage) UpdateEquipment(ctx context.Context, e *domain.Equipment) error {
	old, err := s.GetEquipment(ctx, e.CompanyID, e.ID)
	if err != nil || old == nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE equipment SET navn = ?, type = ?, neste_vedlikehold = ? WHERE id = ? AND company_id = ?`,
		e.Name, e.Type, e.NextMaintenance, e.ID, e.CompanyID,
	)
	if err != nil {
		return err
	}
	cp := *e
	s.publish(realtime.TableEquipment, realtime.Update, e.CompanyID, e.ID, &cp, old)
	return nil
}

func (s *Storage) DeleteEquipment(ctx context.Context, companyID, id string) error {
	old, err := s.GetEquipment(ctx, companyID, id)
	if err != nil || old == nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM equipment WHERE id = ? AND company_id = ?`, id, companyID); err != nil {
		return err
	}
	s.publish(realtime.TableEquipment, realtime.Delete, companyID, id, nil, old)
	return nil
}

// === Incidents ===

const incidentColumns = `id, company_id, tittel, beskrivelse, alvorlighetsgrad, status, hendelsestidspunkt, created_at`

func scanIncident(row interface{ Scan(...any) error }) (*domain.Incident, error) {
	i := &domain.Incident{}
	err := row.Scan(&i.ID, &i.CompanyID, &i.Title, &i.Description, &i.Severity, &i.Status, &i.OccurredAt, &i.CreatedAt)
	return i, err
}

func (s *Storage) CreateIncident(ctx context.Context, i *domain.Incident) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Severity == "" {
		i.Severity = domain.SeverityLow
	}
	if i.Status == "" {
		i.Status = "Åpen"
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO incidents (id, company_id, tittel, beskrivelse, alvorlighetsgrad, status, hendelsestidspunkt) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		i.ID, i.CompanyID, i.Title, i.Description, i.Severity, i.Status, i.OccurredAt,
	)
	if err != nil {
		return err
	}
	i.CreatedAt = time.Now()
	cp := *i
	s.publish(realtime.TableIncidents, realtime.Insert, i.CompanyID, i.ID, &cp, nil)
	return nil
}

func (s *Storage) GetIncident(ctx context.Context, companyID, id string) (*domain.Incident, error) {
	i, err := scanIncident(s.db.QueryRowContext(ctx,
		`SELECT `+incidentColumns+` FROM incidents WHERE id = ? AND company_id = ?`, id, companyID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return i, err
}

// ListDatedIncidents returns incidents with an occurrence time.
func (s *Storage) ListDatedIncidents(ctx context.Context, companyID string) ([]*domain.Incident, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+incidentColumns+` FROM incidents WHERE company_id = ? AND hendelsestidspunkt IS NOT NULL ORDER BY hendelsestidspunkt DESC`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var incidents []*domain.Incident
	for rows.Next() {
		i, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		incidents = append(incidents, i)
	}
	return incidents, rows.Err()
}

func (s *Storage) UpdateIncident(ctx context.Context, i *domain.Incident) error {
	old, err := s.GetIncident(ctx, i.CompanyID, i.ID)
	if err != nil || old == nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE incidents SET tittel = ?, beskrivelse = ?, alvorlighetsgrad = ?, status = ?, hendelsestidspunkt = ? WHERE id = ? AND company_id = ?`,
		i.Title, i.Description, i.Severity, i.Status, i.OccurredAt, i.ID, i.CompanyID,
	)
	if err != nil {
		return err
	}
	cp := *i
	s.publish(realtime.TableIncidents, realtime.Update, i.CompanyID, i.ID, &cp, old)
	return nil
}

func (s *Storage) DeleteIncident(ctx context.Context, companyID, id string) error {
	old, err := s.GetIncident(ctx, companyID, id)
	if err != nil || old == nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM incidents WHERE id = ? AND company_id = ?`, id, companyID); err != nil {
		return err
	}
	s.publish(realtime.TableIncidents, realtime.Delete, companyID, id, nil, old)
	return nil
}
