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

import "testing"

// The bit positions are part of the persistence contract.
func TestErrorCodeBitPositions(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want uint16
	}{
		{ErrorsInMeasurement, 1 << 0},
		{LowR, 1 << 1},
		{FewUnique, 1 << 2},
		{TooManyMeasurements, 1 << 3},
		{TooFewMeasurements, 1 << 4},
		{ManualInvalid, 1 << 5},
		{TooManyDiagErrors, 1 << 6},
		{BadOpenClose, 1 << 7},
	}
	for _, c := range cases {
		if uint16(c.code) != c.want {
			t.Errorf("%s: have %d, want %d", c.code, uint16(c.code), c.want)
		}
	}
}

func TestErrorMaskOps(t *testing.T) {
	var m ErrorMask
	m = m.With(LowR).With(ManualInvalid)
	if !m.Has(LowR) || !m.Has(ManualInvalid) {
		t.Error("bits should be set")
	}
	if m.Has(BadOpenClose) {
		t.Error("unset bit reported set")
	}
	m = m.Without(LowR)
	if m.Has(LowR) {
		t.Error("bit should be cleared")
	}
	if uint16(m) != uint16(ManualInvalid) {
		t.Errorf("mask: have %d, want %d", uint16(m), uint16(ManualInvalid))
	}
}
