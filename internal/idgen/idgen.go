// Package idgen mints record IDs: a short kind prefix and a nanoid.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Kind is the record family an ID belongs to.
type Kind string

const (
	Dossier     Kind = "dos"
	Company     Kind = "soc"
	Interaction Kind = "int"
	Reminder    Kind = "rap"
)

const (
	alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	size     = 10
)

// New returns a fresh ID such as "dos-V1StGXR8Z5".
func New(k Kind) (string, error) {
	id, err := nanoid.Generate(alphabet, size)
	if err != nil {
		return "", fmt.Errorf("idgen %s: %w", k, err)
	}
	return string(k) + "-" + id, nil
}
