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

package flux

import (
	"fmt"

	"github.com/fluxlab/chamberflux/gas"
)

// Unit is a display unit for flux values. The base unit everything is
// computed in is µmol m⁻² s⁻¹.
type Unit int

const (
	UmolPerM2S Unit = iota
	UmolPerM2H
	MmolPerM2S
	MmolPerM2H
	MgPerM2S
	MgPerM2H
)

// Units lists every supported display unit.
func Units() []Unit {
	return []Unit{UmolPerM2S, UmolPerM2H, MmolPerM2S, MmolPerM2H, MgPerM2S, MgPerM2H}
}

func (u Unit) String() string {
	switch u {
	case UmolPerM2S:
		return "µmol/m2/s"
	case UmolPerM2H:
		return "µmol/m2/h"
	case MmolPerM2S:
		return "mmol/m2/s"
	case MmolPerM2H:
		return "mmol/m2/h"
	case MgPerM2S:
		return "mg/m2/s"
	case MgPerM2H:
		return "mg/m2/h"
	}
	return fmt.Sprintf("unit(%d)", int(u))
}

// Suffix is the unit's column-name suffix in exported tables.
func (u Unit) Suffix() string {
	switch u {
	case UmolPerM2S:
		return "umol_m2_s"
	case UmolPerM2H:
		return "umol_m2_h"
	case MmolPerM2S:
		return "mmol_m2_s"
	case MmolPerM2H:
		return "mmol_m2_h"
	case MgPerM2S:
		return "mg_m2_s"
	case MgPerM2H:
		return "mg_m2_h"
	}
	return ""
}

// ParseUnit converts a display name back to a Unit.
func ParseUnit(s string) (Unit, error) {
	for _, u := range Units() {
		if u.String() == s {
			return u, nil
		}
	}
	return 0, fmt.Errorf("flux: invalid unit %q", s)
}

// Convert rescales a flux from µmol m⁻² s⁻¹ to this unit. Mass units
// use the molar mass of the given gas.
func (u Unit) Convert(valueUmolM2S float64, g gas.Type) float64 {
	switch u {
	case UmolPerM2S:
		return valueUmolM2S
	case UmolPerM2H:
		return valueUmolM2S * 3600
	case MmolPerM2S:
		return valueUmolM2S / 1000
	case MmolPerM2H:
		return valueUmolM2S / 1000 * 3600
	case MgPerM2S:
		return valueUmolM2S * g.MolMass() / 1000
	case MgPerM2H:
		return valueUmolM2S * g.MolMass() / 1000 * 3600
	}
	return valueUmolM2S
}
