// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package database

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
)

var ErrAuditRecordNotFound = errors.New("audit record not found")

var auditKeyPrefix = []byte("audit/")

// AuditStore is the Badger-backed blob store holding the full claim
// payload and draw inputs per purchase, keyed by burn transaction
// reference. Revealing these blobs lets a third party re-run the
// provably-fair draw.
type AuditStore struct {
	db     *badger.DB
	logger *slog.Logger
}

// NewAuditStore creates a Badger audit store. Uses an in-memory store if
// dataDir is empty.
func NewAuditStore(
	dataDir string,
	logger *slog.Logger,
) (*AuditStore, error) {
	var opts badger.Options
	if dataDir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(filepath.Join(dataDir, "audit"))
	}
	// Badger logs through our logger at debug level
	opts = opts.WithLogger(newBadgerLogger(logger))
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &AuditStore{
		db:     db,
		logger: logger,
	}, nil
}

func auditKey(burnTxRef string) []byte {
	return append(auditKeyPrefix, []byte(burnTxRef)...)
}

// Put stores an audit blob for the given burn transaction reference.
func (s *AuditStore) Put(burnTxRef string, value []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(auditKey(burnTxRef), value)
	})
}

// Get returns the audit blob for the given burn transaction reference.
func (s *AuditStore) Get(burnTxRef string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(auditKey(burnTxRef))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrAuditRecordNotFound
			}
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Close cleans up the audit store
func (s *AuditStore) Close() error {
	return s.db.Close()
}

// badgerLogger adapts badger's logger interface to slog
type badgerLogger struct {
	logger *slog.Logger
}

func newBadgerLogger(logger *slog.Logger) *badgerLogger {
	return &badgerLogger{
		logger: logger.With("component", "audit-store"),
	}
}

func (b *badgerLogger) Errorf(format string, args ...any) {
	b.logger.Error(badgerLogMessage(format, args...))
}

func (b *badgerLogger) Warningf(format string, args ...any) {
	b.logger.Warn(badgerLogMessage(format, args...))
}

func (b *badgerLogger) Infof(format string, args ...any) {
	b.logger.Debug(badgerLogMessage(format, args...))
}

func (b *badgerLogger) Debugf(format string, args ...any) {
	b.logger.Debug(badgerLogMessage(format, args...))
}

func badgerLogMessage(format string, args ...any) string {
	return strings.TrimSuffix(fmt.Sprintf(format, args...), "\n")
}
