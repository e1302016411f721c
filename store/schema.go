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

package store

import (
	"fmt"
	"strings"
)

// fluxColumns is the wide row written per (cycle, gas). Order matters:
// the insert, update and history statements are generated from it.
var fluxColumns = []string{
	// identity
	"start_time",
	"chamber_id",
	"main_instrument_link",
	"instrument_link",
	"main_gas",
	"gas",
	"project_link",
	"cycle_link",
	// timing
	"close_offset",
	"open_offset",
	"end_offset",
	"open_lag_s",
	"close_lag_s",
	"end_lag_s",
	"start_lag_s",
	"min_calc_len",
	// environment
	"air_pressure",
	"air_temperature",
	"chamber_height",
	"snow_depth_m",
	// state
	"error_code",
	"measurement_is_valid",
	"gas_is_valid",
	"manual_adjusted",
	"manual_valid",
	"deadband",
	// per-gas scalars
	"t0_concentration",
	"measurement_r2",
	// linear model
	"lin_flux", "lin_r2", "lin_adj_r2", "lin_intercept", "lin_slope",
	"lin_sigma", "lin_p_value", "lin_aic", "lin_rmse", "lin_cv",
	"lin_range_start", "lin_range_end",
	// polynomial model
	"poly_flux", "poly_r2", "poly_adj_r2", "poly_sigma", "poly_aic",
	"poly_rmse", "poly_cv", "poly_a0", "poly_a1", "poly_a2",
	"poly_range_start", "poly_range_end",
	// robust linear model
	"roblin_flux", "roblin_r2", "roblin_adj_r2", "roblin_intercept",
	"roblin_slope", "roblin_sigma", "roblin_aic", "roblin_rmse",
	"roblin_cv", "roblin_range_start", "roblin_range_end",
}

// fluxKeyColumns is the idempotency key of a flux row.
var fluxKeyColumns = []string{
	"start_time", "chamber_id", "project_link", "instrument_link", "gas",
}

var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS projects (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		timezone TEXT NOT NULL DEFAULT 'UTC',
		main_gas SMALLINT NOT NULL,
		main_instrument_link BIGINT,
		deadband DOUBLE PRECISION NOT NULL DEFAULT 0,
		min_calc_len DOUBLE PRECISION NOT NULL DEFAULT 180,
		mode TEXT NOT NULL DEFAULT 'fixed'
	)`,
	`CREATE TABLE IF NOT EXISTS instruments (
		id BIGSERIAL PRIMARY KEY,
		instrument_model TEXT NOT NULL,
		instrument_serial TEXT NOT NULL,
		project_link BIGINT NOT NULL,
		UNIQUE (project_link, instrument_model, instrument_serial)
	)`,
	`CREATE TABLE IF NOT EXISTS cycles (
		id BIGSERIAL PRIMARY KEY,
		start_time BIGINT NOT NULL,
		close_offset BIGINT NOT NULL,
		open_offset BIGINT NOT NULL,
		end_offset BIGINT NOT NULL,
		chamber_id TEXT NOT NULL,
		snow_depth DOUBLE PRECISION NOT NULL DEFAULT 0,
		project_link BIGINT NOT NULL,
		instrument_link BIGINT NOT NULL,
		UNIQUE (start_time, chamber_id, project_link)
	)`,
	`CREATE TABLE IF NOT EXISTS gas (
		datetime BIGINT NOT NULL,
		instrument_link BIGINT NOT NULL,
		gas SMALLINT NOT NULL,
		value DOUBLE PRECISION,
		diag BIGINT NOT NULL DEFAULT 0,
		project_link BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS gas_time_idx ON gas (project_link, instrument_link, datetime)`,
	`CREATE TABLE IF NOT EXISTS meteo (
		datetime BIGINT NOT NULL,
		temperature DOUBLE PRECISION NOT NULL,
		pressure DOUBLE PRECISION NOT NULL,
		project_link BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS heights (
		datetime BIGINT NOT NULL,
		chamber_id TEXT NOT NULL,
		height DOUBLE PRECISION NOT NULL,
		project_link BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS chambers (
		chamber_id TEXT NOT NULL,
		project_link BIGINT NOT NULL,
		shape TEXT NOT NULL,
		radius_m DOUBLE PRECISION NOT NULL DEFAULT 0,
		width_m DOUBLE PRECISION NOT NULL DEFAULT 0,
		length_m DOUBLE PRECISION NOT NULL DEFAULT 0,
		height_m DOUBLE PRECISION NOT NULL DEFAULT 0,
		PRIMARY KEY (project_link, chamber_id)
	)`,
	`CREATE TABLE IF NOT EXISTS fluxes (` + fluxColumnDDL() + `,
		UNIQUE (start_time, chamber_id, project_link, instrument_link, gas)
	)`,
	`CREATE TABLE IF NOT EXISTS fluxes_history (
		archived_at TEXT NOT NULL,` + fluxColumnDDL() + `
	)`,
	`CREATE TABLE IF NOT EXISTS flux_results (
		cycle_link BIGINT NOT NULL,
		fit_id TEXT NOT NULL,
		gas TEXT NOT NULL,
		flux DOUBLE PRECISION NOT NULL,
		r2 DOUBLE PRECISION NOT NULL,
		intercept DOUBLE PRECISION NOT NULL,
		slope DOUBLE PRECISION NOT NULL,
		range_start DOUBLE PRECISION NOT NULL,
		range_end DOUBLE PRECISION NOT NULL
	)`,
}

// fluxColumnDDL renders the flux columns with their types.
func fluxColumnDDL() string {
	types := map[string]string{
		"start_time":           "BIGINT NOT NULL",
		"chamber_id":           "TEXT NOT NULL",
		"main_instrument_link": "BIGINT NOT NULL",
		"instrument_link":      "BIGINT NOT NULL",
		"main_gas":             "SMALLINT NOT NULL",
		"gas":                  "SMALLINT NOT NULL",
		"project_link":         "BIGINT NOT NULL",
		"cycle_link":           "BIGINT NOT NULL",
		"close_offset":         "BIGINT NOT NULL",
		"open_offset":          "BIGINT NOT NULL",
		"end_offset":           "BIGINT NOT NULL",
		"error_code":           "INTEGER NOT NULL",
		"measurement_is_valid": "BOOLEAN NOT NULL",
		"gas_is_valid":         "BOOLEAN NOT NULL",
		"manual_adjusted":      "BOOLEAN NOT NULL",
		"manual_valid":         "BOOLEAN NOT NULL",
	}
	parts := make([]string, len(fluxColumns))
	for i, col := range fluxColumns {
		typ, ok := types[col]
		if !ok {
			typ = "DOUBLE PRECISION NOT NULL DEFAULT 0"
		}
		parts[i] = col + " " + typ
	}
	return strings.Join(parts, ",\n\t\t")
}

// placeholders renders $from..$to.
func placeholders(from, to int) string {
	parts := make([]string, 0, to-from+1)
	for i := from; i <= to; i++ {
		parts = append(parts, fmt.Sprintf("$%d", i))
	}
	return strings.Join(parts, ", ")
}

// makeInsertOrIgnoreFluxes is the bulk-ingest statement: duplicates
// by the idempotency key are silently skipped.
func makeInsertOrIgnoreFluxes() string {
	return fmt.Sprintf(
		"INSERT INTO fluxes (%s) VALUES (%s) ON CONFLICT (%s) DO NOTHING",
		strings.Join(fluxColumns, ", "),
		placeholders(1, len(fluxColumns)),
		strings.Join(fluxKeyColumns, ", "),
	)
}

// makeUpdateFluxes overwrites a row in place, addressed by the
// idempotency key. Arguments keep the fluxColumns order; key columns
// are left out of the SET list and appear only in the WHERE clause, at
// their fluxColumns positions.
func makeUpdateFluxes() string {
	keySet := make(map[string]bool, len(fluxKeyColumns))
	for _, k := range fluxKeyColumns {
		keySet[k] = true
	}
	var sets []string
	for i, col := range fluxColumns {
		if keySet[col] {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", col, i+1))
	}
	var wheres []string
	for _, k := range fluxKeyColumns {
		for i, col := range fluxColumns {
			if col == k {
				wheres = append(wheres, fmt.Sprintf("%s = $%d", col, i+1))
			}
		}
	}
	return fmt.Sprintf("UPDATE fluxes SET %s WHERE %s",
		strings.Join(sets, ", "), strings.Join(wheres, " AND "))
}

// makeInsertFluxHistory appends a row to the history table with its
// archival timestamp first.
func makeInsertFluxHistory() string {
	return fmt.Sprintf(
		"INSERT INTO fluxes_history (archived_at, %s) VALUES (%s)",
		strings.Join(fluxColumns, ", "),
		placeholders(1, len(fluxColumns)+1),
	)
}

// makeArchiveFluxRow copies the current row into the history table,
// addressed by the idempotency key.
func makeArchiveFluxRow() string {
	var wheres []string
	for i, k := range fluxKeyColumns {
		wheres = append(wheres, fmt.Sprintf("%s = $%d", k, i+2))
	}
	return fmt.Sprintf(
		"INSERT INTO fluxes_history (archived_at, %s) SELECT $1, %s FROM fluxes WHERE %s",
		strings.Join(fluxColumns, ", "),
		strings.Join(fluxColumns, ", "),
		strings.Join(wheres, " AND "),
	)
}
