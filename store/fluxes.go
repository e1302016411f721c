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
	"context"
	"time"

	chamberflux "github.com/fluxlab/chamberflux"
	"github.com/fluxlab/chamberflux/flux"
)

// fluxRowArgs flattens one (cycle, gas) into the fluxColumns order.
// ok is false when none of the three models fitted; such rows are
// skipped, never written with zeros.
func fluxRowArgs(c *chamberflux.Cycle, key chamberflux.GasKey, projectID int64) ([]interface{}, bool) {
	lin, linOK := c.Model(key, flux.Linear)
	poly, polyOK := c.Model(key, flux.Poly)
	rob, robOK := c.Model(key, flux.RobLin)
	if !linOK && !polyOK && !robOK {
		return nil, false
	}

	linValid := false
	if rec, ok := c.Fluxes[chamberflux.FluxTarget{Key: key, Kind: flux.Linear}]; ok {
		linValid = rec.IsValid
	}

	val := func(m flux.Model, ok bool, f func(flux.Model) float64) float64 {
		if !ok {
			return 0
		}
		return f(m)
	}
	linP := 1.0
	if linOK {
		if p, ok := lin.PValue(); ok {
			linP = p
		}
	}
	var a0, a1, a2 float64
	if polyOK {
		if pf, ok := poly.(*flux.PolyFlux); ok {
			a0, a1, a2 = pf.Curve.A0, pf.Curve.A1, pf.Curve.A2
		}
	}

	args := []interface{}{
		// identity
		c.Timing.StartTs(),
		c.ChamberID,
		c.MainInstrument.ID,
		key.InstrumentID,
		c.MainGas.Int(),
		key.Gas.Int(),
		projectID,
		c.ID,
		// timing
		c.Timing.CloseOffset(),
		c.Timing.OpenOffset(),
		c.Timing.EndOffset(),
		int64(c.Timing.OpenLag()),
		int64(c.Timing.CloseLag()),
		int64(c.Timing.EndLag()),
		int64(c.Timing.StartLag()),
		c.Timing.MinCalcLen(),
		// environment
		c.AirPressure,
		c.AirTemperature,
		c.ChamberHeight,
		c.SnowDepth,
		// state
		int32(c.ErrorCode),
		c.IsValid,
		linValid,
		c.ManualAdjusted,
		c.ManualValid,
		c.Deadband(key),
		// per-gas scalars
		c.T0Concentration[key],
		c.MeasurementR2[key],
		// linear
		val(lin, linOK, flux.Model.Flux),
		val(lin, linOK, flux.Model.R2),
		val(lin, linOK, flux.Model.AdjR2),
		val(lin, linOK, flux.Model.Intercept),
		val(lin, linOK, flux.Model.Slope),
		val(lin, linOK, flux.Model.Sigma),
		linP,
		val(lin, linOK, flux.Model.AIC),
		val(lin, linOK, flux.Model.RMSE),
		val(lin, linOK, flux.Model.CV),
		val(lin, linOK, flux.Model.RangeStart),
		val(lin, linOK, flux.Model.RangeEnd),
		// polynomial
		val(poly, polyOK, flux.Model.Flux),
		val(poly, polyOK, flux.Model.R2),
		val(poly, polyOK, flux.Model.AdjR2),
		val(poly, polyOK, flux.Model.Sigma),
		val(poly, polyOK, flux.Model.AIC),
		val(poly, polyOK, flux.Model.RMSE),
		val(poly, polyOK, flux.Model.CV),
		a0, a1, a2,
		val(poly, polyOK, flux.Model.RangeStart),
		val(poly, polyOK, flux.Model.RangeEnd),
		// robust linear
		val(rob, robOK, flux.Model.Flux),
		val(rob, robOK, flux.Model.R2),
		val(rob, robOK, flux.Model.AdjR2),
		val(rob, robOK, flux.Model.Intercept),
		val(rob, robOK, flux.Model.Slope),
		val(rob, robOK, flux.Model.Sigma),
		val(rob, robOK, flux.Model.AIC),
		val(rob, robOK, flux.Model.RMSE),
		val(rob, robOK, flux.Model.CV),
		val(rob, robOK, flux.Model.RangeStart),
		val(rob, robOK, flux.Model.RangeEnd),
	}
	return args, true
}

// InsertFluxes bulk-inserts every (cycle, gas) row, silently skipping
// duplicates and cycle-gases without any successful fit. Nil cycles
// in the batch count as skipped.
func (s *Store) InsertFluxes(ctx context.Context, cycles []*chamberflux.Cycle, projectID int64) (inserted, skipped int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback(ctx)

	sql := makeInsertOrIgnoreFluxes()
	for _, c := range cycles {
		if c == nil {
			skipped++
			continue
		}
		for _, key := range c.Gases {
			args, ok := fluxRowArgs(c, key, projectID)
			if !ok {
				skipped++
				continue
			}
			tag, err := tx.Exec(ctx, sql, args...)
			if err != nil {
				rowsFailed.Inc()
				return 0, 0, err
			}
			if tag.RowsAffected() > 0 {
				inserted++
			} else {
				skipped++
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, err
	}
	rowsInserted.Add(float64(inserted))
	rowsSkipped.Add(float64(skipped))
	return inserted, skipped, nil
}

// UpdateFluxes overwrites the rows of the given cycles, archiving
// each prior row into the history table first.
func (s *Store) UpdateFluxes(ctx context.Context, cycles []*chamberflux.Cycle, projectID int64) (updated, skipped int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback(ctx)

	archivedAt := time.Now().UTC().Format(time.RFC3339)
	archiveSQL := makeArchiveFluxRow()
	updateSQL := makeUpdateFluxes()

	for _, c := range cycles {
		if c == nil {
			skipped++
			continue
		}
		for _, key := range c.Gases {
			args, ok := fluxRowArgs(c, key, projectID)
			if !ok {
				skipped++
				continue
			}
			if _, err := tx.Exec(ctx, archiveSQL,
				archivedAt, c.Timing.StartTs(), c.ChamberID, projectID,
				key.InstrumentID, key.Gas.Int()); err != nil {
				s.log.WithError(err).Error("store: archiving flux row")
			}
			tag, err := tx.Exec(ctx, updateSQL, args...)
			if err != nil {
				rowsFailed.Inc()
				return 0, 0, err
			}
			if tag.RowsAffected() > 0 {
				updated++
			} else {
				skipped++
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, err
	}
	return updated, skipped, nil
}

// InsertFluxHistory explicitly archives the given cycles' rows.
func (s *Store) InsertFluxHistory(ctx context.Context, cycles []*chamberflux.Cycle, projectID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	archivedAt := time.Now().UTC().Format(time.RFC3339)
	sql := makeInsertFluxHistory()
	for _, c := range cycles {
		if c == nil {
			continue
		}
		for _, key := range c.Gases {
			args, ok := fluxRowArgs(c, key, projectID)
			if !ok {
				continue
			}
			all := append([]interface{}{archivedAt}, args...)
			if _, err := tx.Exec(ctx, sql, all...); err != nil {
				return err
			}
		}
	}
	return tx.Commit(ctx)
}

// InsertFluxResults persists the linear fits of a single cycle into
// the ad-hoc flux_results table.
func (s *Store) InsertFluxResults(ctx context.Context, c *chamberflux.Cycle) (inserted, skipped int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback(ctx)

	const sql = `INSERT INTO flux_results
		(cycle_link, fit_id, gas, flux, r2, intercept, slope, range_start, range_end)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for target, rec := range c.Fluxes {
		m, ok := rec.Model.(*flux.LinearFlux)
		if !ok {
			skipped++
			continue
		}
		if isNaN(m.Value) || isNaN(m.R2Val) {
			skipped++
			continue
		}
		if _, err := tx.Exec(ctx, sql,
			c.ID, target.Kind.String(), target.Key.Gas.String(),
			m.Value, m.R2Val, m.Line.Intercept, m.Line.Slope,
			m.Start, m.End); err != nil {
			return 0, 0, err
		}
		inserted++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, err
	}
	return inserted, skipped, nil
}

func isNaN(f float64) bool { return f != f }
