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

// Package gas defines the greenhouse gases the system measures, their
// physical constants, and the instrument channels that report them.
package gas

import "fmt"

// Type identifies a measured gas species.
type Type int

// The gases instruments report.
const (
	CH4 Type = iota + 1
	CO2
	H2O
	N2O
)

// Molar masses [grams per mole]
const (
	mwCH4 = 16.043
	mwCO2 = 44.009
	mwH2O = 18.015
	mwN2O = 44.013
)

// MolMass returns the molar mass of the gas in g/mol.
func (t Type) MolMass() float64 {
	switch t {
	case CH4:
		return mwCH4
	case CO2:
		return mwCO2
	case H2O:
		return mwH2O
	case N2O:
		return mwN2O
	}
	return 0
}

func (t Type) String() string {
	switch t {
	case CH4:
		return "CH4"
	case CO2:
		return "CO2"
	case H2O:
		return "H2O"
	case N2O:
		return "N2O"
	}
	return fmt.Sprintf("gas(%d)", int(t))
}

// Int returns the stable integer encoding used in database rows.
func (t Type) Int() int64 { return int64(t) }

// FromInt converts a stored integer back to a gas Type.
func FromInt(i int64) (Type, error) {
	t := Type(i)
	switch t {
	case CH4, CO2, H2O, N2O:
		return t, nil
	}
	return 0, fmt.Errorf("gas: invalid gas code %d", i)
}

// Parse converts a gas name to its Type.
func Parse(s string) (Type, error) {
	switch s {
	case "CH4":
		return CH4, nil
	case "CO2":
		return CO2, nil
	case "H2O":
		return H2O, nil
	case "N2O":
		return N2O, nil
	}
	return 0, fmt.Errorf("gas: invalid gas name %q", s)
}

// All lists every gas type the system knows about.
func All() []Type { return []Type{CH4, CO2, H2O, N2O} }
