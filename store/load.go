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
	"fmt"
	"sort"
	"strings"
	"time"

	chamberflux "github.com/fluxlab/chamberflux"
	"github.com/fluxlab/chamberflux/chamber"
	"github.com/fluxlab/chamberflux/flux"
	"github.com/fluxlab/chamberflux/gas"
	"github.com/fluxlab/chamberflux/stats"
)

// cycleKey identifies one cycle across its per-gas rows during
// rehydration.
type cycleKey struct {
	startTime  int64
	mainSerial string
	projectID  int64
	chamberID  string
}

// fluxRow is one scanned row of the fluxes table.
type fluxRow struct {
	startTime                            int64
	chamberID                            string
	mainInstrumentID, instrumentID       int64
	mainGas, gasType                     gas.Type
	projectID, cycleID                   int64
	closeOffset, openOffset, endOffset   int64
	openLag, closeLag, endLag, startLag  float64
	minCalcLen                           float64
	airPressure, airTemperature          float64
	chamberHeight, snowDepth             float64
	errorCode                            int32
	isValid, gasIsValid                  bool
	manualAdjusted, manualValid          bool
	deadband, t0, measurementR2          float64
	lin, poly, roblin                    modelBlock
	polyA0, polyA1, polyA2               float64
	mainModel, mainSerial, model, serial string
}

// modelBlock is the per-model column group of a flux row.
type modelBlock struct {
	flux, r2, adjR2, intercept, slope float64
	sigma, pValue, aic, rmse, cv      float64
	rangeStart, rangeEnd              float64
}

// present reports whether the block holds a real fit; absent models
// persist as all zeros and a zero-width range.
func (b modelBlock) present() bool { return b.rangeEnd > b.rangeStart }

// LoadCycles rehydrates the cycles of a project between start and
// end from their persisted flux rows in a single pass: the first row
// of a cycle builds its skeleton, keyed by (start, main serial,
// project, chamber), and every row then attaches its per-gas state and
// fitted models to that skeleton. Raw samples are not loaded; the returned cycles
// carry the store as their sample source, so ReloadGasData restores
// them on demand.
func (s *Store) LoadCycles(ctx context.Context, project chamberflux.Project, start, end time.Time, events chan<- chamberflux.Event) ([]*chamberflux.Cycle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chamberflux.Emit(events, chamberflux.QueryStarted{})
	chambers, err := s.chambersLocked(ctx, project.ID)
	if err != nil {
		return nil, err
	}

	sql := `SELECT f.` + strings.Join(fluxColumns, ", f.") + `,
		mi.instrument_model, mi.instrument_serial,
		i.instrument_model, i.instrument_serial
		FROM fluxes f
		LEFT JOIN instruments mi ON f.main_instrument_link = mi.id
		LEFT JOIN instruments i ON f.instrument_link = i.id
		WHERE f.project_link = $1 AND f.start_time BETWEEN $2 AND $3
		ORDER BY f.start_time`

	rows, err := s.conn.Query(ctx, sql, project.ID, start.Unix(), end.Unix())
	if err != nil {
		return nil, fmt.Errorf("store: loading cycles: %w", err)
	}
	defer rows.Close()

	loc := project.Location()
	cycles := make(map[cycleKey]*chamberflux.Cycle)
	var lastDay string

	for rows.Next() {
		var r fluxRow
		var mainGasInt, gasInt int16
		if err := rows.Scan(
			&r.startTime, &r.chamberID, &r.mainInstrumentID, &r.instrumentID,
			&mainGasInt, &gasInt, &r.projectID, &r.cycleID,
			&r.closeOffset, &r.openOffset, &r.endOffset,
			&r.openLag, &r.closeLag, &r.endLag, &r.startLag, &r.minCalcLen,
			&r.airPressure, &r.airTemperature, &r.chamberHeight, &r.snowDepth,
			&r.errorCode, &r.isValid, &r.gasIsValid, &r.manualAdjusted, &r.manualValid,
			&r.deadband, &r.t0, &r.measurementR2,
			&r.lin.flux, &r.lin.r2, &r.lin.adjR2, &r.lin.intercept, &r.lin.slope,
			&r.lin.sigma, &r.lin.pValue, &r.lin.aic, &r.lin.rmse, &r.lin.cv,
			&r.lin.rangeStart, &r.lin.rangeEnd,
			&r.poly.flux, &r.poly.r2, &r.poly.adjR2, &r.poly.sigma, &r.poly.aic,
			&r.poly.rmse, &r.poly.cv, &r.polyA0, &r.polyA1, &r.polyA2,
			&r.poly.rangeStart, &r.poly.rangeEnd,
			&r.roblin.flux, &r.roblin.r2, &r.roblin.adjR2, &r.roblin.intercept,
			&r.roblin.slope, &r.roblin.sigma, &r.roblin.aic, &r.roblin.rmse,
			&r.roblin.cv, &r.roblin.rangeStart, &r.roblin.rangeEnd,
			&r.mainModel, &r.mainSerial, &r.model, &r.serial,
		); err != nil {
			return nil, err
		}

		r.mainGas, err = gas.FromInt(int64(mainGasInt))
		if err != nil {
			return nil, err
		}
		r.gasType, err = gas.FromInt(int64(gasInt))
		if err != nil {
			return nil, err
		}

		day := time.Unix(r.startTime, 0).In(loc).Format("2006-01-02")
		if day != lastDay {
			chamberflux.Emit(events, chamberflux.DayEvent{Day: day})
			lastDay = day
		}

		key := cycleKey{r.startTime, r.mainSerial, r.projectID, r.chamberID}
		cycle, ok := cycles[key]
		if !ok {
			cycle, err = s.skeletonFromRow(&r, project, loc, chambers)
			if err != nil {
				s.log.WithError(err).Warn("store: skipping unreadable cycle row")
				continue
			}
			cycles[key] = cycle
		}

		s.attachRow(cycle, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]*chamberflux.Cycle, 0, len(cycles))
	for _, c := range cycles {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timing.StartTs() < out[j].Timing.StartTs()
	})
	chamberflux.Emit(events, chamberflux.QueryComplete{})

	if len(out) == 0 {
		return nil, fmt.Errorf("store: no cycles found between %s and %s",
			start.In(loc), end.In(loc))
	}
	return out, nil
}

// skeletonFromRow builds the shared per-cycle state of a flux row.
func (s *Store) skeletonFromRow(r *fluxRow, project chamberflux.Project,
	loc *time.Location, chambers map[string]chamber.Shape) (*chamberflux.Cycle, error) {

	mainModel, err := chamberflux.ParseInstrumentModel(r.mainModel)
	if err != nil {
		return nil, err
	}
	model, err := chamberflux.ParseInstrumentModel(r.model)
	if err != nil {
		return nil, err
	}

	cycle, err := chamberflux.NewCycleBuilder().
		ChamberID(r.chamberID).
		StartTime(time.Unix(r.startTime, 0).In(loc)).
		CloseOffset(r.closeOffset).
		OpenOffset(r.openOffset).
		EndOffset(r.endOffset).
		SnowDepth(r.snowDepth).
		InstrumentID(r.instrumentID).
		Project(project).
		MinCalcLen(r.minCalcLen).
		ID(r.cycleID).
		Build()
	if err != nil {
		return nil, err
	}

	cycle.MainGas = r.mainGas
	cycle.MainInstrument = chamberflux.Instrument{ID: r.mainInstrumentID, Model: mainModel, Serial: r.mainSerial}
	cycle.Instrument = chamberflux.Instrument{ID: r.instrumentID, Model: model, Serial: r.serial}

	shape, ok := chambers[r.chamberID]
	if !ok {
		shape = chamber.Default()
	}
	cycle.Chamber = shape.WithSnowHeight(r.snowDepth).WithHeight(r.chamberHeight)
	cycle.AirPressure = r.airPressure
	cycle.AirTemperature = r.airTemperature
	cycle.ChamberHeight = r.chamberHeight

	cycle.ErrorCode = chamberflux.ErrorMask(r.errorCode)
	cycle.IsValid = r.isValid
	cycle.ManualValid = r.manualValid
	cycle.ManualAdjusted = r.manualAdjusted
	if r.manualValid {
		v := r.isValid
		cycle.OverrideValid = &v
	}

	cycle.Timing.RestoreLags(r.startLag, r.closeLag, r.openLag, r.endLag)
	cycle.Samples = s
	return cycle, nil
}

// attachRow adds a row's gas channel, window, scalars and fitted
// models to its cycle.
func (s *Store) attachRow(c *chamberflux.Cycle, r *fluxRow) {
	key := chamberflux.GasKey{Gas: r.gasType, InstrumentID: r.instrumentID}

	if model, err := chamberflux.ParseInstrumentModel(r.model); err == nil {
		if ch, ok := model.Channel(r.gasType); ok {
			c.Channels[key] = ch
		}
	}
	found := false
	for _, k := range c.Gases {
		if k == key {
			found = true
			break
		}
	}
	if !found {
		c.Gases = append(c.Gases, key)
	}

	c.Timing.SetDeadband(key, r.deadband)
	ws, we := c.Timing.MeasurementStart(), c.Timing.MeasurementEnd()
	switch {
	case r.lin.present():
		ws, we = r.lin.rangeStart, r.lin.rangeEnd
	case r.poly.present():
		ws, we = r.poly.rangeStart, r.poly.rangeEnd
	case r.roblin.present():
		ws, we = r.roblin.rangeStart, r.roblin.rangeEnd
	}
	c.Timing.RestoreCalcWindow(key, ws, we)

	c.T0Concentration[key] = r.t0
	c.MeasurementR2[key] = r.measurementR2

	ch := c.Channels[key]
	if r.lin.present() {
		c.Fluxes[chamberflux.FluxTarget{Key: key, Kind: flux.Linear}] = &flux.Record{
			Model: &flux.LinearFlux{
				Ch:       ch,
				Line:     stats.LinReg{Intercept: r.lin.intercept, Slope: r.lin.slope},
				Value:    r.lin.flux,
				R2Val:    r.lin.r2,
				AdjR2Val: r.lin.adjR2,
				PVal:     r.lin.pValue,
				SigmaVal: r.lin.sigma,
				AICVal:   r.lin.aic,
				RMSEVal:  r.lin.rmse,
				CVVal:    r.lin.cv,
				Start:    r.lin.rangeStart,
				End:      r.lin.rangeEnd,
			},
			IsValid: r.gasIsValid,
		}
	}
	if r.poly.present() {
		c.Fluxes[chamberflux.FluxTarget{Key: key, Kind: flux.Poly}] = &flux.Record{
			Model: &flux.PolyFlux{
				Ch:       ch,
				Curve:    stats.PolyReg{A0: r.polyA0, A1: r.polyA1, A2: r.polyA2},
				Value:    r.poly.flux,
				XOffset:  r.poly.rangeStart,
				R2Val:    r.poly.r2,
				AdjR2Val: r.poly.adjR2,
				SigmaVal: r.poly.sigma,
				AICVal:   r.poly.aic,
				RMSEVal:  r.poly.rmse,
				CVVal:    r.poly.cv,
				Start:    r.poly.rangeStart,
				End:      r.poly.rangeEnd,
			},
			IsValid: r.gasIsValid,
		}
	}
	if r.roblin.present() {
		c.Fluxes[chamberflux.FluxTarget{Key: key, Kind: flux.RobLin}] = &flux.Record{
			Model: &flux.RobustFlux{
				Ch:       ch,
				Line:     stats.RobReg{Intercept: r.roblin.intercept, Slope: r.roblin.slope},
				Value:    r.roblin.flux,
				R2Val:    r.roblin.r2,
				AdjR2Val: r.roblin.adjR2,
				SigmaVal: r.roblin.sigma,
				AICVal:   r.roblin.aic,
				RMSEVal:  r.roblin.rmse,
				CVVal:    r.roblin.cv,
				Start:    r.roblin.rangeStart,
				End:      r.roblin.rangeEnd,
			},
			IsValid: r.gasIsValid,
		}
	}
}
