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
	"testing"
	"time"
)

func TestBuilderRequiresFields(t *testing.T) {
	_, err := NewCycleBuilder().Build()
	if err == nil {
		t.Fatal("empty builder must fail")
	}

	// Everything but the instrument ID.
	_, err = NewCycleBuilder().
		ChamberID("CH1").
		StartTime(time.Unix(testStartTs, 0).UTC()).
		CloseOffset(60).
		OpenOffset(540).
		EndOffset(600).
		SnowDepth(0).
		Project(testProject()).
		MinCalcLen(180).
		Build()
	if err == nil {
		t.Fatal("missing instrument ID must fail")
	}
}

func TestBuilderDefaults(t *testing.T) {
	c, err := NewCycleBuilder().
		ChamberID("CH1").
		StartTime(time.Unix(testStartTs, 0).UTC()).
		CloseOffset(60).
		OpenOffset(540).
		EndOffset(600).
		SnowDepth(0.2).
		InstrumentID(7).
		Project(testProject()).
		MinCalcLen(180).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	if !c.IsValid {
		t.Error("fresh cycle should start valid")
	}
	if c.AirTemperature != 10 || c.AirPressure != 1000 {
		t.Errorf("default air state: have (%g, %g), want (10, 1000)", c.AirTemperature, c.AirPressure)
	}
	if c.SnowDepth != 0.2 {
		t.Errorf("snow depth: have %g, want 0.2", c.SnowDepth)
	}
	if c.Instrument.ID != 7 {
		t.Errorf("instrument ID: have %d, want 7", c.Instrument.ID)
	}
	if c.Chamber.AreaM2() != 1 || c.Chamber.AdjustedVolume() != 1 {
		t.Errorf("default chamber: have area %g, volume %g, want 1, 1",
			c.Chamber.AreaM2(), c.Chamber.AdjustedVolume())
	}
	if v := c.Timing.MinCalcLen(); v != 180 {
		t.Errorf("min calc len: have %g, want 180", v)
	}
}
