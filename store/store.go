/*
Copyright © 2025 the chamberflux authors.
This file is part of chamberflux.

chamberflux is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

chamberflux is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with chamberflux.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package store persists cycles and their fitted fluxes to a
// relational database and rehydrates them. One wide row per
// (cycle, gas) embeds all three models' coefficients and quality
// metrics; updates archive the prior row into a history table.
//
// All access goes through a single connection guarded by a mutex:
// every batch write is one transaction, every read holds the mutex
// for the query's lifetime only.
package store

import (
	"context"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v4"
	"github.com/sirupsen/logrus"
)

// Store is a handle to the flux database.
type Store struct {
	mu   sync.Mutex
	conn *pgx.Conn
	log  *logrus.Logger
}

// Open connects to the database at url, retrying with exponential
// backoff while the server comes up, and ensures the schema exists.
func Open(ctx context.Context, url string, log *logrus.Logger) (*Store, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	var conn *pgx.Conn
	err := backoff.Retry(func() error {
		var err error
		conn, err = pgx.Connect(ctx, url)
		if err != nil {
			log.WithError(err).Debug("store: connect failed, retrying")
			return err
		}
		return nil
	}, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 10))
	if err != nil {
		return nil, err
	}

	s := &Store{conn: conn, log: log}
	if err := s.EnsureSchema(ctx); err != nil {
		conn.Close(ctx)
		return nil, err
	}
	return s, nil
}

// Close releases the connection.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close(ctx)
}

// EnsureSchema creates every table the store uses if absent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ddl := range schemaDDL {
		if _, err := s.conn.Exec(ctx, ddl); err != nil {
			return err
		}
	}
	return nil
}
