// Sentinel - Adaptive Login Risk Analysis
// Copyright 2026 AuthBuilder
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/authbuilder/sentinel

package signals

import (
	"context"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/authbuilder/sentinel/internal/risk"
)

// BadgerHistory stores login records in an embedded Badger database. Each
// attempt lives under attempt:<user>:<nano> with a retention TTL; the nano
// component is fixed-width hex so lexicographic key order is time order.
type BadgerHistory struct {
	db        *badger.DB
	retention time.Duration
}

// NewBadgerHistory opens the database at path. An empty path opens an
// in-memory instance, used by tests.
func NewBadgerHistory(path string, retention time.Duration) (*BadgerHistory, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger history at %q: %w", path, err)
	}
	return &BadgerHistory{db: db, retention: retention}, nil
}

// Close releases the database.
func (b *BadgerHistory) Close() error { return b.db.Close() }

func attemptKey(userID string, ts time.Time) []byte {
	return []byte(fmt.Sprintf("attempt:%s:%016x", userID, ts.UnixNano()))
}

func attemptPrefix(userID string) []byte {
	return []byte("attempt:" + userID + ":")
}

func (b *BadgerHistory) RecordLogin(_ context.Context, rec risk.LoginRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal login record: %w", err)
	}
	err = b.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(attemptKey(rec.UserID, rec.Timestamp), data)
		if b.retention > 0 {
			entry = entry.WithTTL(b.retention)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("record login for user %s: %w", rec.UserID, err)
	}
	return nil
}

func (b *BadgerHistory) LastLogin(_ context.Context, userID string, before time.Time) (*risk.LoginRecord, error) {
	prefix := attemptPrefix(userID)
	var found *risk.LoginRecord

	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		// Seek just below the cutoff; reverse iteration lands on the
		// newest key strictly before it.
		seek := attemptKey(userID, before)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			if string(item.Key()) >= string(seek) {
				continue
			}
			return item.Value(func(val []byte) error {
				var rec risk.LoginRecord
				if err := json.Unmarshal(val, &rec); err != nil {
					return fmt.Errorf("unmarshal login record: %w", err)
				}
				found = &rec
				return nil
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("last login for user %s: %w", userID, err)
	}
	return found, nil
}

func (b *BadgerHistory) CountAttempts(_ context.Context, userID string, since, until time.Time) (int, error) {
	prefix := attemptPrefix(userID)
	low := string(attemptKey(userID, since))
	high := string(attemptKey(userID, until))
	count := 0

	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(low)); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			if key <= low {
				continue // window is half-open: (since, until]
			}
			if key > high {
				break
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count attempts for user %s: %w", userID, err)
	}
	return count, nil
}
