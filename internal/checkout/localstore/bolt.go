// Package localstore persists the checkout agent's payment confirmation in a
// single-file BoltDB database, so access survives restarts even when the
// backend is unreachable.
package localstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	bolt "github.com/boltdb/bolt"

	"github.com/maiavyxen-hub/telapriv/internal/app/service/payments"
)

const (
	bucketName = "checkout"
	recordKey  = "confirmed_payment"
)

// ErrNotFound is returned when no confirmation has been saved.
var ErrNotFound = errors.New("no confirmed payment stored")

// Store holds at most one confirmed payment record.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the database file and ensures the bucket exists.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Save writes the confirmation record. Writing an identical record again is
// skipped so repeated confirmations stay idempotent.
func (s *Store) Save(rec *payments.Record) error {
	if rec == nil || rec.TransactionID == "" {
		return errors.New("record requires a transaction id")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if existing := b.Get([]byte(recordKey)); bytes.Equal(existing, data) {
			return nil
		}
		return b.Put([]byte(recordKey), data)
	})
}

// Load returns the stored confirmation, or ErrNotFound.
func (s *Store) Load() (*payments.Record, error) {
	var rec payments.Record
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(bucketName)).Get([]byte(recordKey))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Clear removes the stored confirmation. Clearing an empty store is a no-op.
func (s *Store) Clear() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete([]byte(recordKey))
	})
}
