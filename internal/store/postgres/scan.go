package postgres

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/alfredjeanlab/dealdesk/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanDossier scans a single row laid out as dossierProjection.
func scanDossier(row scannable) (*model.Dossier, error) {
	d, _, err := scanDossierInto(row, false)
	return d, err
}

// scanDossierWithTotal scans a row with a leading total_count column,
// as produced by COUNT(*) OVER() in queryListDossiers.
func scanDossierWithTotal(row scannable) (*model.Dossier, int, error) {
	return scanDossierInto(row, true)
}

func scanDossierInto(row scannable, withTotal bool) (*model.Dossier, int, error) {
	var (
		d            model.Dossier
		total        int
		closeDate    sql.NullTime
		lastActivity sql.NullTime
		role         sql.NullString
	)

	dest := []any{
		&d.ID,
		&d.Name,
		&d.Type,
		&d.Status,
		&d.Stage,
		&d.StartDate,
		&closeDate,
		&d.Description,
		&d.CreatedBy,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.CompanyCount,
		&d.InteractionCount,
		&lastActivity,
		&role,
	}
	if withTotal {
		dest = append([]any{&total}, dest...)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, 0, err
	}

	if closeDate.Valid {
		t := closeDate.Time
		d.CloseDate = &t
	}
	if lastActivity.Valid {
		t := lastActivity.Time
		d.LastActivity = &t
	}
	d.Role = role.String
	d.IsMember = role.Valid

	return &d, total, nil
}

// scanCompanies scans rows laid out as companyColumns.
func scanCompanies(rows *sql.Rows) ([]*model.Company, error) {
	var companies []*model.Company
	for rows.Next() {
		var c model.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.Sector, &c.Country, &c.CreatedAt); err != nil {
			return nil, err
		}
		companies = append(companies, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return companies, nil
}

func scanInteraction(row scannable) (*model.Interaction, error) {
	var i model.Interaction
	var contactID sql.NullString
	err := row.Scan(
		&i.ID,
		&i.DossierID,
		&i.CompanyID,
		&contactID,
		&i.Type,
		&i.Date,
		&i.Notes,
		&i.Author,
		&i.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	i.ContactID = contactID.String
	return &i, nil
}

// scanInteractions scans multiple rows into a slice of model.Interaction pointers.
func scanInteractions(rows *sql.Rows) ([]*model.Interaction, error) {
	var out []*model.Interaction
	for rows.Next() {
		i, err := scanInteraction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanReminder(row scannable) (*model.Reminder, error) {
	var r model.Reminder
	var dossierID sql.NullString
	err := row.Scan(&r.ID, &dossierID, &r.Title, &r.DueAt, &r.Done, &r.CreatedBy, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	r.DossierID = dossierID.String
	return &r, nil
}

func scanReminders(rows *sql.Rows) ([]*model.Reminder, error) {
	var out []*model.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// nullTimePtr converts a *time.Time to a sql.NullTime.
func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// nullString converts a string to sql.NullString; empty string is null.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// jsonbBytes converts json.RawMessage to a []byte suitable for JSONB columns.
func jsonbBytes(m json.RawMessage) []byte {
	if len(m) == 0 {
		return []byte("{}")
	}
	return []byte(m)
}
