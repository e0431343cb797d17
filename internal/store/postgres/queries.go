package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/alfredjeanlab/dealdesk/internal/model"
)

// dossierProjection lists the stored dossier columns followed by the
// computed ones. It must stay in sync with scanDossierInto.
const dossierProjection = `d.id, d.nom, d.type, d.statut, d.etape_kanban,
	d.date_debut, d.date_cloture, d.description, d.created_by, d.created_at, d.updated_at,
	(SELECT COUNT(*) FROM dossier_societes ds WHERE ds.dossier_id = d.id) AS nb_societes,
	(SELECT COUNT(*) FROM interactions i WHERE i.dossier_id = d.id) AS nb_interactions,
	(SELECT MAX(i.date) FROM interactions i WHERE i.dossier_id = d.id) AS derniere_activite,
	m.role`

// dossierFrom joins the viewer's membership row; $1 is always the viewer.
const dossierFrom = ` FROM dossiers d
	LEFT JOIN dossier_membres m ON m.dossier_id = d.id AND m.user_id = $1`

const companyColumns = `id, nom, secteur, pays, created_at`

const interactionColumns = `id, dossier_id, societe_id, contact_id, type, date, notes, auteur, created_at`

const reminderColumns = `id, dossier_id, titre, echeance, fait, created_by, created_at`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryCreateDossier(ctx context.Context, db executor, d *model.Dossier) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO dossiers (
			id, nom, type, statut, etape_kanban, date_debut, date_cloture,
			description, created_by, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11
		)`,
		d.ID,
		d.Name,
		string(d.Type),
		string(d.Status),
		string(d.Stage),
		d.StartDate,
		nullTimePtr(d.CloseDate),
		d.Description,
		d.CreatedBy,
		d.CreatedAt,
		d.UpdatedAt,
	)
	return err
}

func queryGetDossier(ctx context.Context, db executor, id, viewer string) (*model.Dossier, error) {
	row := db.QueryRowContext(ctx, `SELECT `+dossierProjection+dossierFrom+` WHERE d.id = $2`, viewer, id)
	return scanDossier(row)
}

func queryListDossiers(ctx context.Context, db executor, filter model.DossierFilter) ([]*model.Dossier, int, error) {
	var whereClauses []string
	args := []any{filter.Viewer}
	argIdx := 1

	nextArg := func() string {
		argIdx++
		return fmt.Sprintf("$%d", argIdx)
	}

	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, s := range filter.Status {
			placeholders[i] = nextArg()
			args = append(args, string(s))
		}
		whereClauses = append(whereClauses, "d.statut IN ("+strings.Join(placeholders, ", ")+")")
	}

	if filter.Search != "" {
		p := nextArg()
		whereClauses = append(whereClauses,
			fmt.Sprintf("(d.nom ILIKE '%%' || %s || '%%' OR d.description ILIKE '%%' || %s || '%%')", p, p))
		args = append(args, filter.Search)
	}

	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = " WHERE " + strings.Join(whereClauses, " AND ")
	}

	dataQuery := "SELECT COUNT(*) OVER() AS total_count, " + dossierProjection + dossierFrom + whereSQL +
		" ORDER BY " + parseSortClause(filter.Sort)

	if filter.Limit > 0 {
		dataQuery += " LIMIT " + nextArg()
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		dataQuery += " OFFSET " + nextArg()
		args = append(args, filter.Offset)
	}

	rows, err := db.QueryContext(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list dossiers: %w", err)
	}
	defer rows.Close()

	var dossiers []*model.Dossier
	var total int
	for rows.Next() {
		d, t, err := scanDossierWithTotal(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan dossiers: %w", err)
		}
		total = t
		dossiers = append(dossiers, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("scan dossiers: %w", err)
	}

	return dossiers, total, nil
}

func queryUpdateDossier(ctx context.Context, db executor, d *model.Dossier) error {
	return db.QueryRowContext(ctx, `
		UPDATE dossiers SET
			nom = $2,
			type = $3,
			statut = $4,
			etape_kanban = $5,
			date_debut = $6,
			date_cloture = $7,
			description = $8,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		d.ID,
		d.Name,
		string(d.Type),
		string(d.Status),
		string(d.Stage),
		d.StartDate,
		nullTimePtr(d.CloseDate),
		d.Description,
	).Scan(&d.UpdatedAt)
}

// queryUpdateDossierStatus applies the status in one statement so concurrent
// changes resolve to the last write. Closing stamps date_cloture once; any
// other status clears it.
func queryUpdateDossierStatus(ctx context.Context, db executor, id string, status model.Status) (*model.Dossier, error) {
	res, err := db.ExecContext(ctx, `
		UPDATE dossiers
		SET statut = $2,
			date_cloture = CASE WHEN $2 = 'clos' THEN COALESCE(date_cloture, NOW()) ELSE NULL END,
			updated_at = NOW()
		WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, sql.ErrNoRows
	}
	return queryGetDossier(ctx, db, id, "")
}

func queryDeleteDossier(ctx context.Context, db executor, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM dossiers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func queryAddMember(ctx context.Context, db executor, m *model.Member) error {
	return db.QueryRowContext(ctx, `
		INSERT INTO dossier_membres (dossier_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (dossier_id, user_id) DO UPDATE SET role = EXCLUDED.role
		RETURNING created_at`,
		m.DossierID, m.UserID, m.Role,
	).Scan(&m.CreatedAt)
}

func queryCreateCompany(ctx context.Context, db executor, c *model.Company) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO societes (id, nom, secteur, pays, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.Name, c.Sector, c.Country, c.CreatedAt,
	)
	return err
}

func queryListCompanies(ctx context.Context, db executor) ([]*model.Company, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+companyColumns+` FROM societes ORDER BY nom ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCompanies(rows)
}

func queryLinkCompany(ctx context.Context, db executor, dossierID, companyID string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO dossier_societes (dossier_id, societe_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`,
		dossierID, companyID,
	)
	return err
}

func queryGetDossierCompanies(ctx context.Context, db executor, dossierID string) ([]*model.Company, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT s.id, s.nom, s.secteur, s.pays, s.created_at
		FROM societes s
		JOIN dossier_societes ds ON ds.societe_id = s.id
		WHERE ds.dossier_id = $1
		ORDER BY s.nom ASC`,
		dossierID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCompanies(rows)
}

func queryCreateInteraction(ctx context.Context, db executor, i *model.Interaction) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO interactions (`+interactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		i.ID,
		i.DossierID,
		i.CompanyID,
		nullString(i.ContactID),
		string(i.Type),
		i.Date,
		i.Notes,
		i.Author,
		i.CreatedAt,
	)
	return err
}

func queryListInteractions(ctx context.Context, db executor, dossierID string) ([]*model.Interaction, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if dossierID == "" {
		rows, err = db.QueryContext(ctx, `SELECT `+interactionColumns+` FROM interactions ORDER BY date DESC`)
	} else {
		rows, err = db.QueryContext(ctx, `
			SELECT `+interactionColumns+`
			FROM interactions
			WHERE dossier_id = $1
			ORDER BY date DESC`,
			dossierID,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInteractions(rows)
}

func queryCreateReminder(ctx context.Context, db executor, r *model.Reminder) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO rappels (`+reminderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID,
		nullString(r.DossierID),
		r.Title,
		r.DueAt,
		r.Done,
		r.CreatedBy,
		r.CreatedAt,
	)
	return err
}

func queryListReminders(ctx context.Context, db executor, overdueAt *time.Time) ([]*model.Reminder, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if overdueAt == nil {
		rows, err = db.QueryContext(ctx, `SELECT `+reminderColumns+` FROM rappels ORDER BY echeance ASC`)
	} else {
		rows, err = db.QueryContext(ctx, `
			SELECT `+reminderColumns+`
			FROM rappels
			WHERE NOT fait AND echeance < $1
			ORDER BY echeance ASC`,
			*overdueAt,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReminders(rows)
}

func queryCompleteReminder(ctx context.Context, db executor, id string) (*model.Reminder, error) {
	row := db.QueryRowContext(ctx, `
		UPDATE rappels SET fait = TRUE
		WHERE id = $1
		RETURNING `+reminderColumns,
		id,
	)
	return scanReminder(row)
}

func queryGetStats(ctx context.Context, db executor, now time.Time) (*model.DashboardStats, error) {
	stats := &model.DashboardStats{ByStatus: make(map[model.Status]int, len(model.Statuses))}
	for _, s := range model.Statuses {
		stats.ByStatus[s] = 0
	}

	rows, err := db.QueryContext(ctx, `SELECT statut, COUNT(*) FROM dossiers GROUP BY statut`)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("stats: %w", err)
		}
		stats.ByStatus[model.Status(status)] = n
		stats.Total += n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}

	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM interactions WHERE date >= $1`,
		now.AddDate(0, 0, -30),
	).Scan(&stats.RecentInteractions); err != nil {
		return nil, fmt.Errorf("stats interactions: %w", err)
	}

	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM rappels WHERE NOT fait AND echeance < $1`,
		now,
	).Scan(&stats.OverdueReminders); err != nil {
		return nil, fmt.Errorf("stats reminders: %w", err)
	}

	return stats, nil
}

func queryRecordEvent(ctx context.Context, db executor, e *model.Event) error {
	return db.QueryRowContext(ctx, `
		INSERT INTO events (topic, dossier_id, actor, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		e.Topic, nullString(e.DossierID), nullString(e.Actor), jsonbBytes(e.Payload),
	).Scan(&e.ID, &e.CreatedAt)
}

func parseSortClause(sort string) string {
	if sort == "" {
		return "d.updated_at DESC"
	}
	desc := strings.HasPrefix(sort, "-")
	col := strings.TrimPrefix(sort, "-")
	allowed := map[string]string{
		"nom": "d.nom", "statut": "d.statut", "etape_kanban": "d.etape_kanban",
		"date_debut": "d.date_debut", "created_at": "d.created_at", "updated_at": "d.updated_at",
		"derniere_activite": "derniere_activite",
	}
	expr, ok := allowed[col]
	if !ok {
		return "d.updated_at DESC"
	}
	if desc {
		return expr + " DESC NULLS LAST"
	}
	return expr + " ASC"
}
