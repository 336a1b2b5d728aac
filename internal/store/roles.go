package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/peter-marien/grindsync/internal/model"
)

// Role identifies a well-known custom attribute by what it is for,
// instead of scattering display-name lookups across call sites.
type Role int

const (
	// RoleIssueKey is the attribute holding a work item's issue key.
	RoleIssueKey Role = iota
	// RoleConnection is the attribute naming the connection a work item
	// was imported from.
	RoleConnection
)

// roleNames are the display names the host application knows these
// attributes by. Renaming them outside the engine breaks the linkage;
// the names are the only contract there is.
var roleNames = map[Role]string{
	RoleIssueKey:   "Jira Key",
	RoleConnection: "Jira Connection",
}

// Roles maps attribute roles to their resolved definition ids, resolved
// once per session.
type Roles map[Role]uuid.UUID

// IssueKey is a convenience accessor for the issue-key attribute id.
func (r Roles) IssueKey() uuid.UUID { return r[RoleIssueKey] }

// Connection is a convenience accessor for the connection attribute id.
func (r Roles) Connection() uuid.UUID { return r[RoleConnection] }

// ResolveRoles resolves the well-known attributes by display name,
// creating any missing definitions through one change-set.
func ResolveRoles(ctx context.Context, st Store) (Roles, error) {
	snap, err := st.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	roles := Roles{}
	target := snap.Clone()
	for role, name := range roleNames {
		id := findAttributeByName(snap, name)
		if id == uuid.Nil {
			id = uuid.New()
			target.Attributes[id] = model.Attribute{ID: id, Name: name}
		}
		roles[role] = id
	}

	cs := Diff(snap, target)
	if !cs.Empty() {
		if err := st.Apply(ctx, cs); err != nil {
			return nil, fmt.Errorf("creating attribute definitions: %w", err)
		}
	}
	return roles, nil
}

func findAttributeByName(snap *Snapshot, name string) uuid.UUID {
	for id, attr := range snap.Attributes {
		if attr.Name == name {
			return id
		}
	}
	return uuid.Nil
}
