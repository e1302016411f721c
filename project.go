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

	"github.com/fluxlab/chamberflux/gas"
)

// Mode selects how the calculation window is placed inside the
// measurement window.
type Mode int

const (
	// FixedWindow places the window at the deadband end with the
	// minimum length.
	FixedWindow Mode = iota + 1
	// BestPearsonsR searches all candidate windows for the maximum
	// correlation.
	BestPearsonsR
)

func (m Mode) String() string {
	switch m {
	case FixedWindow:
		return "fixed"
	case BestPearsonsR:
		return "best-r"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode converts a stored mode name back to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "fixed":
		return FixedWindow, nil
	case "best-r":
		return BestPearsonsR, nil
	}
	return 0, fmt.Errorf("chamberflux: invalid mode %q", s)
}

// InstrumentModel is a stable enumeration of supported analyzer
// types, each with a fixed set of reporting channels.
type InstrumentModel int

const (
	Li7810 InstrumentModel = iota + 1 // CH4/CO2/H2O trace gas analyzer
	Li7820                            // N2O/H2O trace gas analyzer
)

func (m InstrumentModel) String() string {
	switch m {
	case Li7810:
		return "LI7810"
	case Li7820:
		return "LI7820"
	}
	return fmt.Sprintf("instrument(%d)", int(m))
}

// ParseInstrumentModel converts a model string to an InstrumentModel.
func ParseInstrumentModel(s string) (InstrumentModel, error) {
	switch s {
	case "LI7810":
		return Li7810, nil
	case "LI7820":
		return Li7820, nil
	}
	return 0, fmt.Errorf("chamberflux: invalid instrument model %q", s)
}

// Channels lists the channels the model reports, with their native
// concentration units.
func (m InstrumentModel) Channels() []gas.Channel {
	switch m {
	case Li7810:
		return []gas.Channel{
			{Gas: gas.CH4, Unit: gas.Ppb, Label: "ch4"},
			{Gas: gas.CO2, Unit: gas.Ppm, Label: "co2"},
			{Gas: gas.H2O, Unit: gas.Ppm, Label: "h2o"},
		}
	case Li7820:
		return []gas.Channel{
			{Gas: gas.N2O, Unit: gas.Ppb, Label: "n2o"},
			{Gas: gas.H2O, Unit: gas.Ppm, Label: "h2o"},
		}
	}
	return nil
}

// AvailableGases lists the gases the model reports.
func (m InstrumentModel) AvailableGases() []gas.Type {
	chans := m.Channels()
	gases := make([]gas.Type, len(chans))
	for i, c := range chans {
		gases[i] = c.Gas
	}
	return gases
}

// Channel returns the model's channel for a gas, if it reports one.
func (m InstrumentModel) Channel(g gas.Type) (gas.Channel, bool) {
	for _, c := range m.Channels() {
		if c.Gas == g {
			return c, true
		}
	}
	return gas.Channel{}, false
}

// Instrument is one physical analyzer.
type Instrument struct {
	ID     int64
	Model  InstrumentModel
	Serial string
}

// Project is the configuration envelope the engine consumes
// read-only.
type Project struct {
	ID             int64
	Name           string
	Timezone       string // IANA zone name
	MainInstrument Instrument
	MainGas        gas.Type
	Deadband       float64 // seconds
	MinCalcLen     float64 // seconds
	Mode           Mode
}

// Location resolves the project's IANA time zone, falling back to UTC
// when the name is empty or unknown.
func (p Project) Location() *time.Location {
	if p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// GasKey addresses one gas channel within a cycle: the same gas
// measured by two instruments is two keys.
type GasKey struct {
	Gas          gas.Type
	InstrumentID int64
}

func (k GasKey) String() string {
	return fmt.Sprintf("%s@%d", k.Gas, k.InstrumentID)
}
