package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Tx reads and writes documents inside a transaction. All reads must happen
// before the first write.
type Tx interface {
	Get(collection, id string, dst any) error
	Set(collection, id string, doc any) error
}

// Store is a keyed document store. Collections may be nested paths such as
// "users/{uid}/meals".
type Store interface {
	Get(ctx context.Context, collection, id string, dst any) error
	Set(ctx context.Context, collection, id string, doc any) error
	List(ctx context.Context, collection string) ([]Document, error)
	// RunTransaction commits every write made through tx atomically, or none
	// of them if fn returns an error. Conflicting transactions are serialized
	// or retried by the driver, so fn may run more than once.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Ping(ctx context.Context) error
	Close() error
}

// Document is a listed document whose payload is decoded on demand.
type Document struct {
	ID     string
	decode func(dst any) error
}

func (d Document) DataTo(dst any) error {
	return d.decode(dst)
}

func jsonDocument(id string, raw []byte) Document {
	return Document{
		ID: id,
		decode: func(dst any) error {
			return json.Unmarshal(raw, dst)
		},
	}
}

func encode(doc any) ([]byte, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return raw, nil
}

func decode(raw []byte, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	return nil
}

const (
	DriverMemory    = "memory"
	DriverFirestore = "firestore"
	DriverPostgres  = "postgres"
	DriverSQLite    = "sqlite"
)
