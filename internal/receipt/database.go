package receipt

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const transactionsBucket = "transactions"

// DB defines the interface for transaction persistence
type DB interface {
	SaveTransaction(tx *Transaction) error

	// GetTransaction returns ErrNotFound when id is unknown
	GetTransaction(id string) (*Transaction, error)

	ListTransactions() ([]*Transaction, error)

	// DeleteTransaction returns ErrNotFound when id is unknown
	DeleteTransaction(id string) error

	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB opens (or creates) the database at path
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(transactionsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveTransaction inserts or replaces a transaction
func (b *BoltDB) SaveTransaction(t *Transaction) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshaling transaction: %w", err)
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(transactionsBucket)).Put([]byte(t.ID), data)
	})
}

// GetTransaction retrieves a transaction by ID
func (b *BoltDB) GetTransaction(id string) (*Transaction, error) {
	var t Transaction
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(transactionsBucket)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return json.Unmarshal(data, &t)
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTransactions returns all transactions in key order
func (b *BoltDB) ListTransactions() ([]*Transaction, error) {
	transactions := make([]*Transaction, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(transactionsBucket)).ForEach(func(k, v []byte) error {
			var t Transaction
			if err := json.Unmarshal(v, &t); err != nil {
				return fmt.Errorf("unmarshaling transaction %s: %w", k, err)
			}
			transactions = append(transactions, &t)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return transactions, nil
}

// DeleteTransaction removes a transaction
func (b *BoltDB) DeleteTransaction(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(transactionsBucket))
		if bucket.Get([]byte(id)) == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return bucket.Delete([]byte(id))
	})
}

// Close closes the database
func (b *BoltDB) Close() error {
	return b.db.Close()
}
