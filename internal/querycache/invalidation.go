package querycache

import (
	"sort"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/alfredjeanlab/dealdesk/internal/events"
)

// Mutation names a write the views can issue.
type Mutation string

const (
	MutationUpdateStatus      Mutation = "update-status"
	MutationUpdateDossier     Mutation = "update-dossier"
	MutationCreateDossier     Mutation = "create-dossier"
	MutationDeleteDossier     Mutation = "delete-dossier"
	MutationCreateInteraction Mutation = "create-interaction"
	MutationCreateReminder    Mutation = "create-reminder"
	MutationCompleteReminder  Mutation = "complete-reminder"
	MutationLinkCompany       Mutation = "link-company"
	MutationCreateCompany     Mutation = "create-company"
)

// dossierPlaceholder is replaced by the dossier id when keys are expanded.
const dossierPlaceholder = "{dossier}"

var roadshowPattern = Key(roadshowPrefix + dossierPlaceholder)

// invalidationTable declares which keys each mutation makes stale.
var invalidationTable = map[Mutation][]Key{
	MutationUpdateStatus:      {KeyDossiers, KeyDashboardStats},
	MutationUpdateDossier:     {KeyDossiers, roadshowPattern},
	MutationCreateDossier:     {KeyDossiers, KeyDashboardStats},
	MutationDeleteDossier:     {KeyDossiers, KeyDashboardStats},
	MutationCreateInteraction: {roadshowPattern, KeyInteractions},
	MutationCreateReminder:    {KeyReminders, KeyRemindersOverdue, KeyDashboardStats},
	MutationCompleteReminder:  {KeyReminders, KeyRemindersOverdue, KeyDashboardStats},
	MutationLinkCompany:       {roadshowPattern, KeyDossiers},
	MutationCreateCompany:     {KeyCompanies},
}

// KeysFor returns the keys invalidated by m. Keys scoped to a dossier are
// dropped when dossierID is empty. Unknown mutations invalidate nothing.
func KeysFor(m Mutation, dossierID string) []Key {
	patterns := invalidationTable[m]
	keys := make([]Key, 0, len(patterns))
	for _, p := range patterns {
		if !strings.Contains(string(p), dossierPlaceholder) {
			keys = append(keys, p)
			continue
		}
		if dossierID == "" {
			continue
		}
		keys = append(keys, Key(strings.ReplaceAll(string(p), dossierPlaceholder, dossierID)))
	}
	return keys
}

// Mutations lists every mutation in the table, sorted.
func Mutations() []Mutation {
	out := make([]Mutation, 0, len(invalidationTable))
	for m := range invalidationTable {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

var topicMutations = map[string]Mutation{
	events.TopicDossierCreated:       MutationCreateDossier,
	events.TopicDossierUpdated:       MutationUpdateDossier,
	events.TopicDossierStatusChanged: MutationUpdateStatus,
	events.TopicDossierDeleted:       MutationDeleteDossier,
	events.TopicCompanyCreated:       MutationCreateCompany,
	events.TopicCompanyLinked:        MutationLinkCompany,
	events.TopicInteractionCreated:   MutationCreateInteraction,
	events.TopicReminderCreated:      MutationCreateReminder,
	events.TopicReminderCompleted:    MutationCompleteReminder,
}

// MutationForTopic maps a server event topic to the mutation it reports.
func MutationForTopic(topic string) (Mutation, bool) {
	m, ok := topicMutations[topic]
	return m, ok
}

// ApplyRemote invalidates the keys affected by a change another client made,
// as reported by the server's event stream. It reports whether the topic was
// recognised.
func (c *Cache) ApplyRemote(topic string, payload []byte) bool {
	m, ok := MutationForTopic(topic)
	if !ok {
		return false
	}
	c.InvalidateFor(m, dossierIDFromPayload(payload))
	return true
}

// dossierIDFromPayload finds the dossier an event payload refers to, or "".
func dossierIDFromPayload(payload []byte) string {
	var p struct {
		DossierID string `json:"dossier_id"`
		Dossier   *struct {
			ID string `json:"id"`
		} `json:"dossier"`
		Interaction *struct {
			DossierID string `json:"dossier_id"`
		} `json:"interaction"`
		Reminder *struct {
			DossierID string `json:"dossier_id"`
		} `json:"rappel"`
	}
	if len(payload) == 0 || json.Unmarshal(payload, &p) != nil {
		return ""
	}
	switch {
	case p.DossierID != "":
		return p.DossierID
	case p.Dossier != nil:
		return p.Dossier.ID
	case p.Interaction != nil:
		return p.Interaction.DossierID
	case p.Reminder != nil:
		return p.Reminder.DossierID
	}
	return ""
}
