package model

import "time"

// InteractionType is the kind of contact event logged against a company.
type InteractionType string

const (
	InteractionCall       InteractionType = "appel"
	InteractionEmail      InteractionType = "email"
	InteractionMeeting    InteractionType = "reunion"
	InteractionNDASent    InteractionType = "nda_envoye"
	InteractionTeaserSent InteractionType = "teaser_envoye"
	InteractionOther      InteractionType = "autre"
)

// InteractionTypes lists the accepted interaction types.
var InteractionTypes = []InteractionType{
	InteractionCall, InteractionEmail, InteractionMeeting,
	InteractionNDASent, InteractionTeaserSent, InteractionOther,
}

// IsValid checks whether the interaction type is a known value.
func (t InteractionType) IsValid() bool {
	for _, it := range InteractionTypes {
		if t == it {
			return true
		}
	}
	return false
}

// Interaction is a logged contact event. Interactions are immutable once created.
type Interaction struct {
	ID        string          `json:"id"`
	DossierID string          `json:"dossier_id"`
	CompanyID string          `json:"societe_id"`
	ContactID string          `json:"contact_id,omitempty"`
	Type      InteractionType `json:"type"`
	Date      time.Time       `json:"date"`
	Notes     string          `json:"notes"`
	Author    string          `json:"auteur"`
	CreatedAt time.Time       `json:"created_at"`
}

// Company is a counterparty approached during a mandate.
type Company struct {
	ID        string    `json:"id"`
	Name      string    `json:"nom"`
	Sector    string    `json:"secteur,omitempty"`
	Country   string    `json:"pays,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Roadshow is the detail view of a dossier: the dossier itself, the companies
// approached and the interactions logged against them.
type Roadshow struct {
	Dossier      *Dossier       `json:"dossier"`
	Companies    []*Company     `json:"societes"`
	Interactions []*Interaction `json:"interactions"`
}
