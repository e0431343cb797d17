package model

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a dossier as exchanged with the API.
type Status string

const (
	StatusActive  Status = "actif"
	StatusClosed  Status = "clos"
	StatusStandBy Status = "stand_by"
	StatusFailed  Status = "echoue"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusActive, StatusClosed, StatusStandBy, StatusFailed}

// String returns the wire value of the status.
func (s Status) String() string {
	return string(s)
}

// IsValid checks whether the status is a known value.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusClosed, StatusStandBy, StatusFailed:
		return true
	}
	return false
}

// Label returns the user-facing label of the status. The labels differ from
// the wire values sent to the API.
func (s Status) Label() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusClosed:
		return "Closed"
	case StatusStandBy:
		return "Stand-by"
	case StatusFailed:
		return "Failed"
	}
	return string(s)
}

// ParseStatus resolves either a wire value or a label (case-insensitive) to a Status.
// "paused" is accepted as an alias of stand-by.
func ParseStatus(v string) (Status, bool) {
	norm := strings.ToLower(strings.TrimSpace(v))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	switch norm {
	case "actif", "active":
		return StatusActive, true
	case "clos", "closed":
		return StatusClosed, true
	case "stand_by", "standby", "paused", "pause", "en_pause":
		return StatusStandBy, true
	case "echoue", "échoué", "failed":
		return StatusFailed, true
	}
	return "", false
}

// DossierType categorizes the mandate.
type DossierType string

const (
	TypeSellSide    DossierType = "cession"
	TypeBuySide     DossierType = "acquisition"
	TypeFundraising DossierType = "levee_fonds"
	TypeOther       DossierType = "autre"
)

// IsValid checks whether the dossier type is a known value.
func (t DossierType) IsValid() bool {
	switch t {
	case TypeSellSide, TypeBuySide, TypeFundraising, TypeOther:
		return true
	}
	return false
}

// Stage is a phase of the deal pipeline shown as a column on the board.
type Stage string

const (
	StageOrigination  Stage = "origination"
	StagePreparation  Stage = "preparation"
	StageMarketing    Stage = "marketing"
	StageOffers       Stage = "offres"
	StageDueDiligence Stage = "due_diligence"
	StageNegotiation  Stage = "negociation"
	StageSigning      Stage = "signing"
	StageClosing      Stage = "closing"
)

// Stages lists the pipeline stages in board order.
var Stages = []Stage{
	StageOrigination, StagePreparation, StageMarketing, StageOffers,
	StageDueDiligence, StageNegotiation, StageSigning, StageClosing,
}

// IsValid checks whether the stage is a known value.
func (s Stage) IsValid() bool {
	for _, st := range Stages {
		if s == st {
			return true
		}
	}
	return false
}

// Dossier is a tracked M&A mandate.
type Dossier struct {
	ID          string      `json:"id"`
	Name        string      `json:"nom"`
	Type        DossierType `json:"type"`
	Status      Status      `json:"statut"`
	Stage       Stage       `json:"etape_kanban"`
	StartDate   time.Time   `json:"date_debut"`
	CloseDate   *time.Time  `json:"date_cloture,omitempty"`
	Description string      `json:"description,omitempty"`
	CreatedBy   string      `json:"created_by,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`

	// Computed by queries, not stored in the dossiers table.
	CompanyCount     int        `json:"nb_societes"`
	InteractionCount int        `json:"nb_interactions"`
	LastActivity     *time.Time `json:"derniere_activite,omitempty"`
	IsMember         bool       `json:"est_membre"`
	Role             string     `json:"role,omitempty"`
}

// DossierFilter holds criteria for querying dossiers.
type DossierFilter struct {
	Status []Status `json:"statut,omitempty"`
	Search string   `json:"search,omitempty"` // matches name or description
	Sort   string   `json:"sort,omitempty"`   // e.g. "-updated_at", "nom"; prefix "-" = descending
	Limit  int      `json:"limit,omitempty"`
	Offset int      `json:"offset,omitempty"`

	// Viewer resolves est_membre / role; empty means no membership lookup.
	Viewer string `json:"-"`
}

// Member grants a user a role on a dossier.
type Member struct {
	DossierID string    `json:"dossier_id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
