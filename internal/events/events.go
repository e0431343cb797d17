package events

import (
	"context"
	"strings"

	"github.com/alfredjeanlab/dealdesk/internal/model"
)

// Prefix is the subject namespace shared by every dealdesk topic.
const Prefix = "dealdesk."

// Event topic constants
const (
	TopicDossierCreated       = "dealdesk.dossier.created"
	TopicDossierUpdated       = "dealdesk.dossier.updated"
	TopicDossierStatusChanged = "dealdesk.dossier.status_changed"
	TopicDossierDeleted       = "dealdesk.dossier.deleted"
	TopicCompanyCreated       = "dealdesk.company.created"
	TopicCompanyLinked        = "dealdesk.company.linked"
	TopicInteractionCreated   = "dealdesk.interaction.created"
	TopicReminderCreated      = "dealdesk.reminder.created"
	TopicReminderCompleted    = "dealdesk.reminder.completed"
)

// Topics lists every topic the server emits.
var Topics = []string{
	TopicDossierCreated,
	TopicDossierUpdated,
	TopicDossierStatusChanged,
	TopicDossierDeleted,
	TopicCompanyCreated,
	TopicCompanyLinked,
	TopicInteractionCreated,
	TopicReminderCreated,
	TopicReminderCompleted,
}

// Event types

type DossierCreated struct {
	Dossier *model.Dossier `json:"dossier"`
}

type DossierUpdated struct {
	Dossier *model.Dossier `json:"dossier"`
	Changes map[string]any `json:"changes,omitempty"` // field name -> new value
}

type DossierStatusChanged struct {
	Dossier *model.Dossier `json:"dossier"`
}

type DossierDeleted struct {
	DossierID string `json:"dossier_id"`
}

type CompanyCreated struct {
	Company *model.Company `json:"societe"`
}

type CompanyLinked struct {
	DossierID string `json:"dossier_id"`
	CompanyID string `json:"societe_id"`
}

type InteractionCreated struct {
	Interaction *model.Interaction `json:"interaction"`
}

type ReminderCreated struct {
	Reminder *model.Reminder `json:"rappel"`
}

type ReminderCompleted struct {
	Reminder *model.Reminder `json:"rappel"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// MatchTopic reports whether topic matches a NATS-style pattern. "*" matches
// exactly one token and a trailing ">" matches one or more.
func MatchTopic(pattern, topic string) bool {
	if pattern == "" || pattern == topic {
		return pattern == topic
	}
	pt := strings.Split(pattern, ".")
	tt := strings.Split(topic, ".")
	for i, p := range pt {
		if p == ">" {
			return i == len(pt)-1 && len(tt) > i
		}
		if i >= len(tt) {
			return false
		}
		if p != "*" && p != tt[i] {
			return false
		}
	}
	return len(pt) == len(tt)
}
