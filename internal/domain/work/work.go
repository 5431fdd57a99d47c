// Package work identifies a billable work item: an order or an editing project.
package work

import (
	"errors"
	"fmt"
	"strings"
)

type Kind string

const (
	KindOrder   Kind = "order"
	KindProject Kind = "project"
)

var ErrInvalidKind = errors.New("work kind must be order or project")

// Ref points at exactly one order or one project.
type Ref struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id"`
}

func Order(id string) Ref   { return Ref{Kind: KindOrder, ID: id} }
func Project(id string) Ref { return Ref{Kind: KindProject, ID: id} }

// ParseKind accepts the kind names used by clients, including "editing" for projects.
func ParseKind(raw string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "order":
		return KindOrder, nil
	case "project", "editing":
		return KindProject, nil
	default:
		return "", ErrInvalidKind
	}
}

func (r Ref) Valid() bool {
	return (r.Kind == KindOrder || r.Kind == KindProject) && r.ID != ""
}

func (r Ref) String() string {
	return fmt.Sprintf("%s:%s", r.Kind, r.ID)
}
