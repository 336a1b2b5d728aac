// Package store holds the local transactional entity store the engine
// reconciles against: work items, people, periods, and custom attribute
// values, mutated through snapshot/change-set application.
package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/peter-marien/grindsync/internal/model"
)

// AttrKey addresses one attribute value: (attribute definition, entity).
type AttrKey struct {
	AttributeID uuid.UUID
	ItemID      uuid.UUID
}

// Snapshot is a value copy of the store's current entities. Callers
// build a target snapshot from a Clone and let Diff compute the
// change-set; a Snapshot is never written back directly.
type Snapshot struct {
	Items           map[uuid.UUID]model.WorkItem
	People          map[uuid.UUID]model.Person
	Periods         map[uuid.UUID]model.Period
	Attributes      map[uuid.UUID]model.Attribute
	AttributeValues map[AttrKey]string
}

// NewSnapshot returns an empty snapshot with all maps allocated.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Items:           map[uuid.UUID]model.WorkItem{},
		People:          map[uuid.UUID]model.Person{},
		Periods:         map[uuid.UUID]model.Period{},
		Attributes:      map[uuid.UUID]model.Attribute{},
		AttributeValues: map[AttrKey]string{},
	}
}

// Clone deep-copies s so a target snapshot can be built without
// touching the current one.
func (s *Snapshot) Clone() *Snapshot {
	c := NewSnapshot()
	for k, v := range s.Items {
		c.Items[k] = v
	}
	for k, v := range s.People {
		c.People[k] = v
	}
	for k, v := range s.Periods {
		c.Periods[k] = v
	}
	for k, v := range s.Attributes {
		c.Attributes[k] = v
	}
	for k, v := range s.AttributeValues {
		c.AttributeValues[k] = v
	}
	return c
}

// ItemAttribute returns the attribute value for (attributeID, itemID),
// or "" when unset.
func (s *Snapshot) ItemAttribute(attributeID, itemID uuid.UUID) string {
	return s.AttributeValues[AttrKey{AttributeID: attributeID, ItemID: itemID}]
}

// ChangeSet is the unit of mutation: everything to upsert and delete to
// turn the snapshot it was computed from into the target snapshot.
type ChangeSet struct {
	PutItems           []model.WorkItem
	PutPeople          []model.Person
	PutPeriods         []model.Period
	PutAttributes      []model.Attribute
	PutAttributeValues map[AttrKey]string

	DeleteItems           []uuid.UUID
	DeletePeople          []uuid.UUID
	DeletePeriods         []uuid.UUID
	DeleteAttributeValues []AttrKey
}

// Empty reports whether applying c would change nothing.
func (c *ChangeSet) Empty() bool {
	return len(c.PutItems) == 0 && len(c.PutPeople) == 0 && len(c.PutPeriods) == 0 &&
		len(c.PutAttributes) == 0 && len(c.PutAttributeValues) == 0 &&
		len(c.DeleteItems) == 0 && len(c.DeletePeople) == 0 &&
		len(c.DeletePeriods) == 0 && len(c.DeleteAttributeValues) == 0
}

// Diff computes the change-set turning current into target.
func Diff(current, target *Snapshot) *ChangeSet {
	cs := &ChangeSet{PutAttributeValues: map[AttrKey]string{}}

	for id, item := range target.Items {
		if have, ok := current.Items[id]; !ok || have != item {
			cs.PutItems = append(cs.PutItems, item)
		}
	}
	for id := range current.Items {
		if _, ok := target.Items[id]; !ok {
			cs.DeleteItems = append(cs.DeleteItems, id)
		}
	}

	for id, p := range target.People {
		if have, ok := current.People[id]; !ok || have != p {
			cs.PutPeople = append(cs.PutPeople, p)
		}
	}
	for id := range current.People {
		if _, ok := target.People[id]; !ok {
			cs.DeletePeople = append(cs.DeletePeople, id)
		}
	}

	for id, p := range target.Periods {
		if have, ok := current.Periods[id]; !ok || !samePeriod(have, p) {
			cs.PutPeriods = append(cs.PutPeriods, p)
		}
	}
	for id := range current.Periods {
		if _, ok := target.Periods[id]; !ok {
			cs.DeletePeriods = append(cs.DeletePeriods, id)
		}
	}

	for id, a := range target.Attributes {
		if have, ok := current.Attributes[id]; !ok || have != a {
			cs.PutAttributes = append(cs.PutAttributes, a)
		}
	}

	for k, v := range target.AttributeValues {
		if have, ok := current.AttributeValues[k]; !ok || have != v {
			cs.PutAttributeValues[k] = v
		}
	}
	for k := range current.AttributeValues {
		if _, ok := target.AttributeValues[k]; !ok {
			cs.DeleteAttributeValues = append(cs.DeleteAttributeValues, k)
		}
	}

	return cs
}

// samePeriod compares periods with time.Time equality instead of ==,
// which would also compare monotonic clock readings.
func samePeriod(a, b model.Period) bool {
	return a.ID == b.ID && a.ItemID == b.ItemID && a.PersonID == b.PersonID &&
		a.Start.Equal(b.Start) && a.End.Equal(b.End) && a.Notes == b.Notes
}

// Store is the external collaborator contract: read a snapshot, apply a
// change-set. The read-modify-apply sequence is best-effort, not
// compare-and-swap; concurrent writers can interleave between Snapshot
// and Apply (see the race note on Apply).
type Store interface {
	// Snapshot reads a value copy of all current entities.
	Snapshot(ctx context.Context) (*Snapshot, error)
	// Apply commits a change-set atomically. It does not verify that
	// the store still matches the snapshot the change-set was computed
	// from; callers racing on the same entities may clobber each other.
	Apply(ctx context.Context, cs *ChangeSet) error
	Close() error
}
