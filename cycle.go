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

package chamberflux

import (
	"math"
	"time"

	"github.com/fluxlab/chamberflux/chamber"
	"github.com/fluxlab/chamberflux/flux"
	"github.com/fluxlab/chamberflux/gas"
	"github.com/fluxlab/chamberflux/stats"
)

// FluxTarget addresses one fitted model inside a cycle.
type FluxTarget struct {
	Key  GasKey
	Kind flux.Kind
}

// SampleSource supplies raw gas samples for a time range. The cycle
// uses it to re-slice its sample window after a start- or end-lag
// change; a nil source leaves the samples untouched.
type SampleSource interface {
	GasSamples(start, end time.Time, projectID int64) (*GasData, error)
}

// Cycle is one closed-chamber measurement run: its timing, per-channel
// sample series, calculation windows, fitted fluxes and quality state.
// A cycle is never shared between goroutines; all mutation is
// single-threaded.
type Cycle struct {
	ID             int64
	ChamberID      string
	ProjectID      int64
	MainInstrument Instrument
	Instrument     Instrument
	MainGas        gas.Type

	Chamber        chamber.Shape
	AirTemperature float64 // °C
	AirPressure    float64 // hPa
	ChamberHeight  float64 // m
	SnowDepth      float64 // m

	ErrorCode      ErrorMask
	IsValid        bool
	OverrideValid  *bool
	ManualValid    bool
	ManualAdjusted bool

	Gases    []GasKey
	Timing   CycleTiming
	Channels map[GasKey]gas.Channel

	// Sample storage: timestamps and diagnostics per instrument,
	// concentrations per (gas, instrument). All slices of one
	// instrument have equal length; missing concentrations are NaN.
	DtV   map[int64][]float64
	DiagV map[int64][]int64
	GasV  map[GasKey][]float64

	T0Concentration map[GasKey]float64
	MeasurementR2   map[GasKey]float64
	MinY            map[GasKey]float64
	MaxY            map[GasKey]float64

	Fluxes map[FluxTarget]*flux.Record

	// Samples supplies raw data when the sample window itself moves.
	Samples SampleSource
}

// MainKey is the gas key quality decisions are made on.
func (c *Cycle) MainKey() GasKey {
	return GasKey{Gas: c.MainGas, InstrumentID: c.MainInstrument.ID}
}

// Deadband returns the deadband of a gas in seconds.
func (c *Cycle) Deadband(key GasKey) float64 { return c.Timing.Deadband(key) }

// MeasurementData returns the (timestamp, concentration) pairs inside
// the measurement window [adjusted close, adjusted open), skipping
// missing samples.
func (c *Cycle) MeasurementData(key GasKey) (dt, y []float64) {
	return c.windowData(key, c.Timing.AdjustedClose(), c.Timing.AdjustedOpen())
}

// CalcData returns the (timestamp, concentration) pairs inside the
// gas's calculation window, skipping missing samples.
func (c *Cycle) CalcData(key GasKey) (dt, y []float64) {
	return c.windowData(key, c.Timing.CalcStart(key), c.Timing.CalcEnd(key))
}

func (c *Cycle) windowData(key GasKey, start, end float64) (dt, y []float64) {
	dtV := c.DtV[key.InstrumentID]
	gasV := c.GasV[key]
	for i, t := range dtV {
		if t < start || t >= end {
			continue
		}
		var v float64 = math.NaN()
		if i < len(gasV) {
			v = gasV[i]
		}
		if math.IsNaN(v) {
			continue
		}
		dt = append(dt, t)
		y = append(y, v)
	}
	return dt, y
}

// MeasurementDiag returns the diagnostic values inside the
// measurement window for the key's instrument.
func (c *Cycle) MeasurementDiag(key GasKey) []int64 {
	start := c.Timing.AdjustedClose()
	end := c.Timing.AdjustedOpen()
	dtV := c.DtV[key.InstrumentID]
	diagV := c.DiagV[key.InstrumentID]

	var out []int64
	for i, t := range dtV {
		if t < start || t >= end {
			continue
		}
		var d int64
		if i < len(diagV) {
			d = diagV[i]
		}
		out = append(out, d)
	}
	return out
}

// CalcT0Concentrations records each gas's concentration at the start
// of the measurement window.
func (c *Cycle) CalcT0Concentrations() {
	for _, key := range c.Gases {
		_, y := c.MeasurementData(key)
		if len(y) == 0 {
			c.T0Concentration[key] = 0
		} else {
			c.T0Concentration[key] = y[0]
		}
	}
}

// CalcMeasurementR2s computes the squared Pearson correlation of time
// against concentration over the measurement window for every gas.
func (c *Cycle) CalcMeasurementR2s() {
	for _, key := range c.Gases {
		dt, y := c.MeasurementData(key)
		r, ok := stats.Pearson(dt, y)
		if !ok {
			r = 0
		}
		c.MeasurementR2[key] = r * r
	}
}

// CalcMinMaxY records the extreme concentrations of every gas over the
// whole sample window.
func (c *Cycle) CalcMinMaxY() {
	for key, values := range c.GasV {
		minV, maxV := math.Inf(1), math.Inf(-1)
		for _, v := range values {
			if math.IsNaN(v) {
				continue
			}
			if v < minV {
				minV = v
			}
			if v > maxV {
				maxV = v
			}
		}
		c.MinY[key] = minV
		c.MaxY[key] = maxV
	}
}

// addError sets a quality bit and invalidates the cycle.
func (c *Cycle) addError(code ErrorCode) {
	c.ErrorCode = c.ErrorCode.With(code)
	c.IsValid = false
}

// removeError clears a quality bit; a clean mask revalidates.
func (c *Cycle) removeError(code ErrorCode) {
	c.ErrorCode = c.ErrorCode.Without(code)
	if c.ErrorCode == 0 {
		c.IsValid = true
	}
}

// HasError reports whether the cycle carries the given quality bit.
func (c *Cycle) HasError(code ErrorCode) bool { return c.ErrorCode.Has(code) }

// CheckMainR marks the cycle LowR when the main gas tracks time
// poorly over the measurement window.
func (c *Cycle) CheckMainR() {
	r2, ok := c.MeasurementR2[c.MainKey()]
	if !ok || r2 < R2MainGasThreshold {
		c.addError(LowR)
	} else {
		c.removeError(LowR)
	}
}

// CheckMeasurementDiag marks the cycle when the instrument reported
// any nonzero diagnostic inside the measurement window.
func (c *Cycle) CheckMeasurementDiag() bool {
	var nonzero int
	for _, d := range c.MeasurementDiag(c.MainKey()) {
		if d != 0 {
			nonzero++
		}
	}
	if nonzero > 0 {
		c.addError(ErrorsInMeasurement)
		return true
	}
	c.removeError(ErrorsInMeasurement)
	return false
}

// CheckMissing marks the cycle when the main gas series is too short
// or too sparse for the cycle's nominal length.
func (c *Cycle) CheckMissing() {
	values, ok := c.GasV[c.MainKey()]
	if !ok {
		c.addError(TooFewMeasurements)
		return
	}
	var valid int
	for _, v := range values {
		if !math.IsNaN(v) {
			valid++
		}
	}
	expected := float64(c.Timing.EndOffset())
	if float64(valid) < expected*MissingValidRatio || float64(len(values)) < expected*MissingLenRatio {
		c.addError(TooFewMeasurements)
	} else {
		c.removeError(TooFewMeasurements)
	}
}

// CheckErrors re-evaluates every engine-owned quality bit and derives
// cycle validity. Manual bits are left to the user operations.
func (c *Cycle) CheckErrors() {
	c.CheckMainR()
	c.CheckMeasurementDiag()
	c.CheckMissing()
	if c.ErrorCode == 0 || (c.OverrideValid != nil && *c.OverrideValid) {
		c.IsValid = true
	}
}

// SearchOpenLag finds the concentration peak in the last quarter of
// the gas series and sets the open lag so the declared open time
// lands on it. It aborts on series shorter than two minutes.
func (c *Cycle) SearchOpenLag(key GasKey) (peakTime float64, ok bool) {
	gasV := c.GasV[key]
	if len(gasV) < minLagSearchPoints {
		return 0, false
	}
	dtV := c.DtV[key.InstrumentID]

	searchLen := len(gasV) / 4
	startIdx := len(gasV) - searchLen
	maxIdx := -1
	for i := startIdx; i < len(gasV); i++ {
		if math.IsNaN(gasV[i]) {
			continue
		}
		if maxIdx == -1 || gasV[i] > gasV[maxIdx] {
			maxIdx = i
		}
	}
	if maxIdx == -1 || maxIdx >= len(dtV) {
		return 0, false
	}

	peakTime = dtV[maxIdx]
	lag := peakTime - float64(c.Timing.StartTs()+c.Timing.OpenOffset())
	c.Timing.SetOpenLag(lag)
	return peakTime, true
}

// PeakNearTimestamp finds the concentration peak within
// ±PeakSearchWindow samples of the sample closest to target and
// applies the resulting open lag with a full recompute.
func (c *Cycle) PeakNearTimestamp(key GasKey, target int64) (peakTime float64, ok bool) {
	gasV := c.GasV[key]
	if len(gasV) < minLagSearchPoints {
		return 0, false
	}
	dtV := c.DtV[key.InstrumentID]

	targetIdx := -1
	var bestDiff float64
	for i, t := range dtV {
		diff := math.Abs(t - float64(target))
		if targetIdx == -1 || diff < bestDiff {
			targetIdx, bestDiff = i, diff
		}
	}
	if targetIdx == -1 {
		return 0, false
	}

	lo := targetIdx - PeakSearchWindow
	if lo < 0 {
		lo = 0
	}
	hi := targetIdx + PeakSearchWindow
	if hi > len(gasV)-1 {
		hi = len(gasV) - 1
	}

	maxIdx := -1
	for i := lo; i <= hi; i++ {
		if math.IsNaN(gasV[i]) {
			continue
		}
		if maxIdx == -1 || gasV[i] > gasV[maxIdx] {
			maxIdx = i
		}
	}
	if maxIdx == -1 || maxIdx >= len(dtV) {
		return 0, false
	}

	peakTime = dtV[maxIdx]
	c.SetOpenLag(peakTime - float64(c.Timing.StartTs()+c.Timing.OpenOffset()))
	return peakTime, true
}

// SetCalcRanges places every gas's calculation window at the deadband
// end with the minimum length (FixedWindow mode).
func (c *Cycle) SetCalcRanges() {
	for _, key := range c.Gases {
		start := c.Timing.MeasurementStart() + c.Deadband(key)
		c.Timing.setCalcWindow(key, start, start+c.Timing.MinCalcLen())
	}
	c.Timing.AdjustCalcRangeAll(c.Gases)
}

// FindBestRWindows sets each gas's calculation window to the
// gap-free sub-window of the measurement data with the highest
// correlation (BestPearsonsR mode). Gases whose windows cannot be
// searched keep their current window.
func (c *Cycle) FindBestRWindows() {
	minLen := int(c.Timing.MinCalcLen())
	for _, key := range c.Gases {
		dt, y := c.MeasurementData(key)
		if len(dt) < minLen {
			continue
		}
		gaps := make([]bool, len(dt)-1)
		for i := 0; i+1 < len(dt); i++ {
			gaps[i] = math.Abs(dt[i+1]-dt[i]) > gapThreshold
		}
		start, end, _, found := BestWindow(dt, y, gaps, minLen, WindowIncrement)
		if !found {
			continue
		}
		c.Timing.setCalcWindow(key, dt[start], dt[end-1])
	}
	c.Timing.AdjustCalcRangeAll(c.Gases)
}

// Init resets the cycle's lags and deadbands and runs the automatic
// pipeline: completeness check, open-lag search, window selection per
// mode, statistics, all fits, and the quality re-evaluation.
func (c *Cycle) Init(mode Mode, deadband float64) {
	c.ManualAdjusted = false
	c.Timing.SetCloseLag(0)
	c.Timing.SetOpenLag(0)
	for _, key := range c.Gases {
		c.Timing.SetDeadband(key, deadband)
	}

	c.CheckMissing()
	if c.HasError(TooFewMeasurements) {
		return
	}

	c.SearchOpenLag(c.MainKey())
	if mode == BestPearsonsR {
		c.FindBestRWindows()
	} else {
		c.SetCalcRanges()
	}
	c.CheckMeasurementDiag()
	c.CalcT0Concentrations()
	c.CalcMeasurementR2s()
	c.CheckMainR()
	c.ComputeAllFluxes()
	c.CalcMinMaxY()
	c.CheckErrors()
}

// ComputeAllFluxes refits every model for every gas on the current
// calculation windows.
func (c *Cycle) ComputeAllFluxes() {
	for _, key := range c.Gases {
		c.ComputeSingleFlux(key)
	}
}

// ComputeSingleFlux refits the three models for one gas. A failed fit
// removes the stale record so the flux map only ever reflects the
// current window.
func (c *Cycle) ComputeSingleFlux(key GasKey) {
	x, y := c.CalcData(key)
	ch, ok := c.Channels[key]
	if !ok {
		return
	}
	var start, end float64
	if len(x) > 0 {
		start, end = x[0], x[len(x)-1]
	}

	if m, err := flux.FitLinear(ch, x, y, start, end, c.AirTemperature, c.AirPressure, c.Chamber); err == nil {
		c.Fluxes[FluxTarget{key, flux.Linear}] = &flux.Record{Model: m, IsValid: true}
	} else {
		delete(c.Fluxes, FluxTarget{key, flux.Linear})
	}
	if m, err := flux.FitPoly(ch, x, y, start, end, c.AirTemperature, c.AirPressure, c.Chamber); err == nil {
		c.Fluxes[FluxTarget{key, flux.Poly}] = &flux.Record{Model: m, IsValid: true}
	} else {
		delete(c.Fluxes, FluxTarget{key, flux.Poly})
	}
	if m, err := flux.FitRobust(ch, x, y, start, end, c.AirTemperature, c.AirPressure, c.Chamber); err == nil {
		c.Fluxes[FluxTarget{key, flux.RobLin}] = &flux.Record{Model: m, IsValid: true}
	} else {
		delete(c.Fluxes, FluxTarget{key, flux.RobLin})
	}
}

// recompute is the shared tail of every interactive mutation.
func (c *Cycle) recompute() {
	c.Timing.AdjustCalcRangeAll(c.Gases)
	c.CheckErrors()
	c.CalcMeasurementR2s()
	c.ComputeAllFluxes()
}

// checkOpenClose records whether a user-applied lag pushed the close
// past the open before the clamps repaired it. Only the lag
// operations toggle this bit; CheckErrors leaves it alone.
func (c *Cycle) checkOpenClose() {
	if c.Timing.AdjustedClose() > c.Timing.AdjustedOpen() {
		c.addError(BadOpenClose)
	} else {
		c.removeError(BadOpenClose)
	}
}

// SetOpenLag applies a new open lag and recomputes everything that
// depends on the measurement window.
func (c *Cycle) SetOpenLag(lag float64) {
	c.Timing.SetOpenLag(lag)
	c.checkOpenClose()
	c.recompute()
}

// IncrementOpenLag shifts the open lag by delta.
func (c *Cycle) IncrementOpenLag(delta float64) {
	c.Timing.IncrementOpenLag(delta)
	c.checkOpenClose()
	c.Timing.AdjustCalcRangeAll(c.Gases)
	c.CheckErrors()
	c.CalcMeasurementR2s()
	c.CalcT0Concentrations()
	c.ComputeAllFluxes()
}

// SetCloseLag applies a new close lag.
func (c *Cycle) SetCloseLag(lag float64) {
	c.Timing.SetCloseLag(lag)
	c.checkOpenClose()
	c.recompute()
}

// IncrementCloseLag shifts the close lag by delta.
func (c *Cycle) IncrementCloseLag(delta float64) {
	c.Timing.IncrementCloseLag(delta)
	c.checkOpenClose()
	c.Timing.AdjustCalcRangeAll(c.Gases)
	c.CheckErrors()
	c.CalcMeasurementR2s()
	c.CalcT0Concentrations()
	c.ComputeAllFluxes()
}

// SetStartLag moves the sample window's start; raw samples are
// reloaded because the window itself changed.
func (c *Cycle) SetStartLag(lag float64) error {
	c.Timing.SetStartLag(lag)
	return c.ReloadGasData()
}

// SetEndLag moves the sample window's end; raw samples are reloaded.
func (c *Cycle) SetEndLag(lag float64) error {
	c.Timing.SetEndLag(lag)
	return c.ReloadGasData()
}

// SetDeadband changes one gas's deadband; the deadband absorbs any
// window deficit.
func (c *Cycle) SetDeadband(key GasKey, deadband float64) {
	c.Timing.SetDeadband(key, deadband)
	c.Timing.AdjustCalcRangeAllDeadband(c.Gases)
	c.CheckErrors()
	c.CalcMeasurementR2s()
	c.ComputeAllFluxes()
}

// IncrementDeadband shifts one gas's deadband by delta.
func (c *Cycle) IncrementDeadband(key GasKey, delta float64) {
	c.SetDeadband(key, c.Timing.Deadband(key)+delta)
}

// SetDeadbandConstantCalc shifts every deadband and calculation
// window by delta together.
func (c *Cycle) SetDeadbandConstantCalc(delta float64) {
	c.Timing.SetDeadbandConstantCalc(c.Gases, delta)
	c.recompute()
}

// SetCalcStart moves one gas's window start and refits that gas.
func (c *Cycle) SetCalcStart(key GasKey, v float64) {
	c.Timing.SetCalcStart(key, v)
	c.CalcT0Concentrations()
	c.ComputeSingleFlux(key)
}

// SetCalcEnd moves one gas's window end and refits that gas.
func (c *Cycle) SetCalcEnd(key GasKey, v float64) {
	c.Timing.SetCalcEnd(key, v)
	c.CalcT0Concentrations()
	c.ComputeSingleFlux(key)
}

// DragCalcTo translates one gas's window, keeping its width, and
// refits that gas.
func (c *Cycle) DragCalcTo(key GasKey, newStart float64) {
	c.Timing.DragLeftTo(key, newStart)
	c.CalcT0Concentrations()
	c.ComputeSingleFlux(key)
}

// SearchNewOpenLag re-runs the open-lag peak search for a gas and
// recomputes.
func (c *Cycle) SearchNewOpenLag(key GasKey) {
	c.SearchOpenLag(key)
	c.recompute()
}

// ToggleManualValid flips the cycle's validity by hand. Forcing a
// cycle valid overrides every diagnostic; forcing it invalid records
// ManualInvalid. The ManualAdjusted flag is set whenever the toggle
// actually changed state.
func (c *Cycle) ToggleManualValid() {
	beforeValid := c.IsValid
	beforeOverride := c.OverrideValid
	beforeErrors := c.ErrorCode

	if c.OverrideValid != nil {
		c.OverrideValid = nil
	} else {
		v := !c.IsValid
		c.OverrideValid = &v
	}

	c.IsValid = !c.IsValid
	c.ManualValid = c.OverrideValid != nil
	if c.ManualValid && !*c.OverrideValid {
		c.addError(ManualInvalid)
	} else {
		c.removeError(ManualInvalid)
	}
	if c.ManualValid && *c.OverrideValid {
		c.ErrorCode = 0
	}

	changed := beforeValid != c.IsValid ||
		!overrideEqual(beforeOverride, c.OverrideValid) ||
		beforeErrors != c.ErrorCode
	if changed {
		c.ManualAdjusted = true
	}
}

func overrideEqual(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// MarkFluxValid and MarkFluxInvalid gate one fitted model without
// touching cycle-level validity.
func (c *Cycle) MarkFluxValid(key GasKey, kind flux.Kind) {
	if r, ok := c.Fluxes[FluxTarget{key, kind}]; ok {
		r.IsValid = true
	}
}

func (c *Cycle) MarkFluxInvalid(key GasKey, kind flux.Kind) {
	if r, ok := c.Fluxes[FluxTarget{key, kind}]; ok {
		r.IsValid = false
	}
}

// Model returns the fitted model for (key, kind), if present.
func (c *Cycle) Model(key GasKey, kind flux.Kind) (flux.Model, bool) {
	r, ok := c.Fluxes[FluxTarget{key, kind}]
	if !ok {
		return nil, false
	}
	return r.Model, true
}

// Flux returns the fitted flux for (key, kind), if present.
func (c *Cycle) Flux(key GasKey, kind flux.Kind) (float64, bool) {
	m, ok := c.Model(key, kind)
	if !ok {
		return 0, false
	}
	return m.Flux(), true
}

// BestModelByAIC returns the kind with the lowest AIC among the
// models present for a gas.
func (c *Cycle) BestModelByAIC(key GasKey) (flux.Kind, bool) {
	var best flux.Kind
	bestAIC := math.Inf(1)
	found := false
	for _, kind := range flux.Kinds() {
		m, ok := c.Model(key, kind)
		if !ok {
			continue
		}
		if !found || m.AIC() < bestAIC {
			best, bestAIC, found = kind, m.AIC(), true
		}
	}
	return best, found
}

// BestFluxByAIC returns the flux of the AIC-best model for a gas.
func (c *Cycle) BestFluxByAIC(key GasKey) (float64, bool) {
	kind, ok := c.BestModelByAIC(key)
	if !ok {
		return 0, false
	}
	return c.Flux(key, kind)
}

// IsValidByThreshold evaluates one fit against a user quality policy.
func (c *Cycle) IsValidByThreshold(key GasKey, kind flux.Kind, pMax, r2Min, rmseMax, t0Max float64) bool {
	m, ok := c.Model(key, kind)
	if !ok {
		return false
	}
	p, _ := m.PValue()
	rmse := m.RMSE()

	r2, ok := c.MeasurementR2[key]
	if !ok {
		return false
	}
	t0, ok := c.T0Concentration[key]
	if !ok {
		return false
	}
	return p < pMax && r2 > r2Min && rmse < rmseMax && t0 < t0Max
}

// ReloadGasData re-slices the raw samples from the cycle's sample
// source after the sample window moved.
func (c *Cycle) ReloadGasData() error {
	if c.Samples == nil {
		return nil
	}
	start := time.Unix(int64(c.Timing.Start()), 0).UTC()
	end := time.Unix(int64(c.Timing.End())-1, 0).UTC()
	data, err := c.Samples.GasSamples(start, end, c.ProjectID)
	if err != nil {
		return err
	}
	c.DtV = data.Datetime
	c.GasV = data.Gas
	c.DiagV = data.Diag
	c.CalcMinMaxY()
	return nil
}

// MoleConcentration converts a gas's concentration series from its
// native mole fraction to nmol inside the chamber headspace, using
// the ideal gas law and the cycle's air state.
func (c *Cycle) MoleConcentration(key GasKey) []float64 {
	const r = 8.314462618 // J/(mol·K)
	pressurePa := c.AirPressure * 100
	temperatureK := c.AirTemperature + 273.15
	volumeM3 := c.Chamber.AdjustedVolume()

	ch, ok := c.Channels[key]
	if !ok {
		return nil
	}
	// native unit → mol fraction → mol in headspace → nmol.
	perMol := 1e-6 / ch.Unit.PerPpm()
	factor := perMol * (pressurePa * volumeM3) / (r * temperatureK) * 1e9

	src := c.GasV[key]
	out := make([]float64, len(src))
	for i, v := range src {
		out[i] = v * factor
	}
	return out
}
