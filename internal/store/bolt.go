package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/peter-marien/grindsync/internal/model"
)

const (
	bucketItems      = "items"            // key: item id -> WorkItem JSON
	bucketPeople     = "people"           // key: person id -> Person JSON
	bucketPeriods    = "periods"          // key: period id -> Period JSON
	bucketAttributes = "attributes"       // key: attribute id -> Attribute JSON
	bucketAttrValues = "attribute_values" // key: attrID/itemID -> string value
	bucketBlobs      = "blobs"            // key: blob name -> opaque JSON blob
)

// connectionsKey is the single key the whole connection list lives under.
const connectionsKey = "connections"

// Bolt is the bbolt-backed Store implementation.
type Bolt struct {
	db *bbolt.DB
}

// Open opens (or creates) the database at path and ensures all buckets
// exist. A fresh database is seeded with one default person, since
// periods must correlate to somebody.
func Open(path string) (*Bolt, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{bucketItems, bucketPeople, bucketPeriods, bucketAttributes, bucketAttrValues, bucketBlobs} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}

		people := tx.Bucket([]byte(bucketPeople))
		if people.Stats().KeyN == 0 {
			p := model.Person{ID: uuid.New(), Name: "Default"}
			data, err := json.Marshal(p)
			if err != nil {
				return err
			}
			return people.Put(p.ID[:], data)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing database: %w", err)
	}

	return &Bolt{db: db}, nil
}

// Close closes the database.
func (b *Bolt) Close() error {
	return b.db.Close()
}

// Snapshot reads a value copy of all entities in one read transaction.
func (b *Bolt) Snapshot(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap := NewSnapshot()
	err := b.db.View(func(tx *bbolt.Tx) error {
		if err := readBucket(tx, bucketItems, func(item model.WorkItem) {
			snap.Items[item.ID] = item
		}); err != nil {
			return err
		}
		if err := readBucket(tx, bucketPeople, func(p model.Person) {
			snap.People[p.ID] = p
		}); err != nil {
			return err
		}
		if err := readBucket(tx, bucketPeriods, func(p model.Period) {
			snap.Periods[p.ID] = p
		}); err != nil {
			return err
		}
		if err := readBucket(tx, bucketAttributes, func(a model.Attribute) {
			snap.Attributes[a.ID] = a
		}); err != nil {
			return err
		}

		return tx.Bucket([]byte(bucketAttrValues)).ForEach(func(k, v []byte) error {
			key, err := parseAttrKey(string(k))
			if err != nil {
				return err
			}
			snap.AttributeValues[key] = string(v)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	return snap, nil
}

// Apply commits a change-set in one write transaction. There is no
// generation check against the snapshot the change-set came from; the
// last writer wins.
func (b *Bolt) Apply(ctx context.Context, cs *ChangeSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if cs == nil || cs.Empty() {
		return nil
	}

	err := b.db.Update(func(tx *bbolt.Tx) error {
		for _, item := range cs.PutItems {
			if err := putJSON(tx, bucketItems, item.ID, item); err != nil {
				return err
			}
		}
		for _, p := range cs.PutPeople {
			if err := putJSON(tx, bucketPeople, p.ID, p); err != nil {
				return err
			}
		}
		for _, p := range cs.PutPeriods {
			if err := putJSON(tx, bucketPeriods, p.ID, p); err != nil {
				return err
			}
		}
		for _, a := range cs.PutAttributes {
			if err := putJSON(tx, bucketAttributes, a.ID, a); err != nil {
				return err
			}
		}
		for key, value := range cs.PutAttributeValues {
			if err := tx.Bucket([]byte(bucketAttrValues)).Put([]byte(attrKeyString(key)), []byte(value)); err != nil {
				return err
			}
		}

		for _, id := range cs.DeleteItems {
			if err := tx.Bucket([]byte(bucketItems)).Delete(id[:]); err != nil {
				return err
			}
		}
		for _, id := range cs.DeletePeople {
			if err := tx.Bucket([]byte(bucketPeople)).Delete(id[:]); err != nil {
				return err
			}
		}
		for _, id := range cs.DeletePeriods {
			if err := tx.Bucket([]byte(bucketPeriods)).Delete(id[:]); err != nil {
				return err
			}
		}
		for _, key := range cs.DeleteAttributeValues {
			if err := tx.Bucket([]byte(bucketAttrValues)).Delete([]byte(attrKeyString(key))); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("applying change-set: %w", err)
	}
	return nil
}

// Connections loads the stored connection list. An absent blob is an
// empty list.
func (b *Bolt) Connections() ([]model.Connection, error) {
	var conns []model.Connection
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketBlobs)).Get([]byte(connectionsKey))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &conns)
	})
	if err != nil {
		return nil, fmt.Errorf("reading connection list: %w", err)
	}
	return conns, nil
}

// SaveConnections persists the whole connection list as one blob under
// one key.
func (b *Bolt) SaveConnections(conns []model.Connection) error {
	data, err := json.Marshal(conns)
	if err != nil {
		return fmt.Errorf("encoding connection list: %w", err)
	}
	err = b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketBlobs)).Put([]byte(connectionsKey), data)
	})
	if err != nil {
		return fmt.Errorf("saving connection list: %w", err)
	}
	return nil
}

func putJSON(tx *bbolt.Tx, bucket string, id uuid.UUID, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return tx.Bucket([]byte(bucket)).Put(id[:], data)
}

func readBucket[T any](tx *bbolt.Tx, bucket string, add func(T)) error {
	return tx.Bucket([]byte(bucket)).ForEach(func(_, v []byte) error {
		var entity T
		if err := json.Unmarshal(v, &entity); err != nil {
			return fmt.Errorf("corrupt record in %s: %w", bucket, err)
		}
		add(entity)
		return nil
	})
}

func attrKeyString(k AttrKey) string {
	return k.AttributeID.String() + "/" + k.ItemID.String()
}

func parseAttrKey(s string) (AttrKey, error) {
	attrID, itemID, ok := strings.Cut(s, "/")
	if !ok {
		return AttrKey{}, fmt.Errorf("malformed attribute value key %q", s)
	}
	a, err := uuid.Parse(attrID)
	if err != nil {
		return AttrKey{}, fmt.Errorf("malformed attribute id in key %q: %w", s, err)
	}
	i, err := uuid.Parse(itemID)
	if err != nil {
		return AttrKey{}, fmt.Errorf("malformed item id in key %q: %w", s, err)
	}
	return AttrKey{AttributeID: a, ItemID: i}, nil
}
