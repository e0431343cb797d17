package model

import "time"

// Reminder is a dated follow-up, optionally attached to a dossier.
type Reminder struct {
	ID        string    `json:"id"`
	DossierID string    `json:"dossier_id,omitempty"`
	Title     string    `json:"titre"`
	DueAt     time.Time `json:"echeance"`
	Done      bool      `json:"fait"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Overdue reports whether the reminder is still open past its due time.
func (r *Reminder) Overdue(now time.Time) bool {
	return !r.Done && r.DueAt.Before(now)
}

// DashboardStats aggregates the figures shown on the dashboard header.
type DashboardStats struct {
	Total              int            `json:"total"`
	ByStatus           map[Status]int `json:"par_statut"`
	RecentInteractions int            `json:"interactions_30j"`
	OverdueReminders   int            `json:"rappels_echus"`
}
