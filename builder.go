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
	"fmt"
	"time"

	"github.com/fluxlab/chamberflux/chamber"
	"github.com/fluxlab/chamberflux/flux"
	"github.com/fluxlab/chamberflux/gas"
)

// CycleBuilder assembles an empty Cycle from a cycle-definition row.
// Build fails fast on missing required fields; everything else gets a
// neutral default and is filled in by the orchestrator.
type CycleBuilder struct {
	chamberID    *string
	startTime    *time.Time
	closeOffset  *int64
	openOffset   *int64
	endOffset    *int64
	minCalcLen   *float64
	snowDepth    *float64
	project      *Project
	instrument   *Instrument
	instrumentID *int64
	id           int64
	samples      SampleSource
}

// NewCycleBuilder returns an empty builder.
func NewCycleBuilder() *CycleBuilder { return &CycleBuilder{} }

func (b *CycleBuilder) ChamberID(id string) *CycleBuilder {
	b.chamberID = &id
	return b
}

func (b *CycleBuilder) StartTime(t time.Time) *CycleBuilder {
	b.startTime = &t
	return b
}

func (b *CycleBuilder) CloseOffset(s int64) *CycleBuilder {
	b.closeOffset = &s
	return b
}

func (b *CycleBuilder) OpenOffset(s int64) *CycleBuilder {
	b.openOffset = &s
	return b
}

func (b *CycleBuilder) EndOffset(s int64) *CycleBuilder {
	b.endOffset = &s
	return b
}

func (b *CycleBuilder) MinCalcLen(s float64) *CycleBuilder {
	b.minCalcLen = &s
	return b
}

func (b *CycleBuilder) SnowDepth(m float64) *CycleBuilder {
	b.snowDepth = &m
	return b
}

func (b *CycleBuilder) Project(p Project) *CycleBuilder {
	b.project = &p
	return b
}

func (b *CycleBuilder) Instrument(i Instrument) *CycleBuilder {
	b.instrument = &i
	return b
}

func (b *CycleBuilder) InstrumentID(id int64) *CycleBuilder {
	b.instrumentID = &id
	return b
}

func (b *CycleBuilder) ID(id int64) *CycleBuilder {
	b.id = id
	return b
}

// Samples attaches the raw-sample source used for window reloads.
func (b *CycleBuilder) Samples(s SampleSource) *CycleBuilder {
	b.samples = s
	return b
}

// Build validates the required fields and returns the empty cycle.
func (b *CycleBuilder) Build() (*Cycle, error) {
	switch {
	case b.startTime == nil:
		return nil, fmt.Errorf("chamberflux: start time is required")
	case b.chamberID == nil:
		return nil, fmt.Errorf("chamberflux: chamber ID is required")
	case b.closeOffset == nil:
		return nil, fmt.Errorf("chamberflux: close offset is required")
	case b.openOffset == nil:
		return nil, fmt.Errorf("chamberflux: open offset is required")
	case b.endOffset == nil:
		return nil, fmt.Errorf("chamberflux: end offset is required")
	case b.snowDepth == nil:
		return nil, fmt.Errorf("chamberflux: snow depth is required")
	case b.instrumentID == nil:
		return nil, fmt.Errorf("chamberflux: instrument ID is required")
	case b.project == nil:
		return nil, fmt.Errorf("chamberflux: project is required")
	case b.minCalcLen == nil:
		return nil, fmt.Errorf("chamberflux: minimum calculation length is required")
	}

	instrument := b.project.MainInstrument
	if b.instrument != nil {
		instrument = *b.instrument
	}
	instrument.ID = *b.instrumentID

	timing := NewCycleTiming(*b.startTime, *b.closeOffset, *b.openOffset, *b.endOffset, *b.minCalcLen)

	return &Cycle{
		ID:              b.id,
		ChamberID:       *b.chamberID,
		ProjectID:       b.project.ID,
		MainInstrument:  b.project.MainInstrument,
		Instrument:      instrument,
		MainGas:         b.project.MainGas,
		Chamber:         chamber.Default(),
		AirTemperature:  10,
		AirPressure:     1000,
		ChamberHeight:   1,
		SnowDepth:       *b.snowDepth,
		IsValid:         true,
		Timing:          timing,
		Channels:        make(map[GasKey]gas.Channel),
		DtV:             make(map[int64][]float64),
		DiagV:           make(map[int64][]int64),
		GasV:            make(map[GasKey][]float64),
		T0Concentration: make(map[GasKey]float64),
		MeasurementR2:   make(map[GasKey]float64),
		MinY:            make(map[GasKey]float64),
		MaxY:            make(map[GasKey]float64),
		Fluxes:          make(map[FluxTarget]*flux.Record),
		Samples:         b.samples,
	}, nil
}
