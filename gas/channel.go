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

package gas

import "fmt"

// ConcentrationUnit is the unit an instrument channel reports in.
type ConcentrationUnit int

const (
	Ppm ConcentrationUnit = iota + 1
	Ppb
	Ppt
)

func (u ConcentrationUnit) String() string {
	switch u {
	case Ppm:
		return "ppm"
	case Ppb:
		return "ppb"
	case Ppt:
		return "ppt"
	}
	return fmt.Sprintf("unit(%d)", int(u))
}

// ParseUnit converts a unit name to a ConcentrationUnit.
func ParseUnit(s string) (ConcentrationUnit, error) {
	switch s {
	case "ppm":
		return Ppm, nil
	case "ppb":
		return Ppb, nil
	case "ppt":
		return Ppt, nil
	}
	return 0, fmt.Errorf("gas: invalid concentration unit %q", s)
}

// PerPpm returns how many of this unit make up one ppm.
func (u ConcentrationUnit) PerPpm() float64 {
	switch u {
	case Ppm:
		return 1
	case Ppb:
		return 1e3
	case Ppt:
		return 1e6
	}
	return 1
}

// Channel is one reporting channel of an instrument: which gas it
// measures and in what unit. Label carries the instrument's own name
// for the channel.
type Channel struct {
	Gas   Type
	Unit  ConcentrationUnit
	Label string
}

// SlopePpmPerS converts a regression slope from the channel's native
// unit per second to ppm per second.
func (c Channel) SlopePpmPerS(slope float64) float64 {
	return slope / c.Unit.PerPpm()
}
