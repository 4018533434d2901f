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
	"io"
	"log/slog"
)

// Config describes the database configuration.
type Config struct {
	Logger *slog.Logger
	// DataDir is the persistent storage location. Empty means everything
	// is kept in memory, which is useful for testing.
	DataDir string
}

// Database combines the relational metadata store (purchases, stock,
// delivery errors) with the audit blob store (raw claim payloads kept for
// fairness verification).
type Database struct {
	logger   *slog.Logger
	metadata *MetadataStore
	audit    *AuditStore
	dataDir  string
}

// New creates a new database instance with optional persistence using the
// provided data directory.
func New(cfg *Config) (*Database, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	logger := cfg.Logger
	if logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	metadataDb, err := NewMetadataStore(cfg.DataDir, logger)
	if err != nil {
		return nil, err
	}
	auditDb, err := NewAuditStore(cfg.DataDir, logger)
	if err != nil {
		// Don't leak the metadata store handle
		metadataErr := metadataDb.Close()
		return nil, errors.Join(err, metadataErr)
	}
	return &Database{
		logger:   logger,
		metadata: metadataDb,
		audit:    auditDb,
		dataDir:  cfg.DataDir,
	}, nil
}

// DataDir returns the path to the data directory used for storage
func (d *Database) DataDir() string {
	return d.dataDir
}

// Logger returns the logger instance
func (d *Database) Logger() *slog.Logger {
	return d.logger
}

// Metadata returns the underlying metadata store instance
func (d *Database) Metadata() *MetadataStore {
	return d.metadata
}

// Audit returns the underlying audit blob store instance
func (d *Database) Audit() *AuditStore {
	return d.audit
}

// Close cleans up the database connections
func (d *Database) Close() error {
	var err error
	metadataErr := d.metadata.Close()
	err = errors.Join(err, metadataErr)
	auditErr := d.audit.Close()
	err = errors.Join(err, auditErr)
	return err
}
