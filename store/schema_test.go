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
	"math"
	"strings"
	"testing"
	"time"

	chamberflux "github.com/fluxlab/chamberflux"
	"github.com/fluxlab/chamberflux/gas"
)

func countPlaceholders(sql string) int {
	count := 0
	for i := 1; ; i++ {
		if !strings.Contains(sql, placeholder(i)) {
			return count
		}
		count++
	}
}

func placeholder(i int) string {
	return "$" + itoa(i)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var digits []byte
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	return string(digits)
}

func TestInsertStatementMatchesColumns(t *testing.T) {
	sql := makeInsertOrIgnoreFluxes()
	if have := countPlaceholders(sql); have != len(fluxColumns) {
		t.Errorf("placeholders: have %d, want %d", have, len(fluxColumns))
	}
	for _, key := range fluxKeyColumns {
		if !strings.Contains(sql, key) {
			t.Errorf("conflict key column %s missing from statement", key)
		}
	}
}

func TestUpdateStatementAddressesKey(t *testing.T) {
	sql := makeUpdateFluxes()
	for _, key := range fluxKeyColumns {
		if !strings.Contains(sql, "WHERE") || !strings.Contains(sql, key+" = $") {
			t.Errorf("key column %s not addressed: %s", key, sql)
		}
	}
	// Key columns must not be overwritten.
	setPart := strings.TrimPrefix(sql[:strings.Index(sql, " WHERE ")], "UPDATE fluxes SET ")
	for _, assignment := range strings.Split(setPart, ", ") {
		col := strings.TrimSpace(strings.SplitN(assignment, " = ", 2)[0])
		for _, key := range fluxKeyColumns {
			if col == key {
				t.Errorf("key column %s appears in the SET list", key)
			}
		}
	}
}

func TestHistoryStatementHasArchiveColumn(t *testing.T) {
	sql := makeInsertFluxHistory()
	if !strings.Contains(sql, "archived_at") {
		t.Error("history insert must carry archived_at")
	}
	if have := countPlaceholders(sql); have != len(fluxColumns)+1 {
		t.Errorf("placeholders: have %d, want %d", have, len(fluxColumns)+1)
	}
}

// testCycle builds a small fitted cycle without a database.
func testCycle(t *testing.T) (*chamberflux.Cycle, chamberflux.GasKey) {
	t.Helper()
	project := chamberflux.Project{
		ID:             1,
		Timezone:       "UTC",
		MainInstrument: chamberflux.Instrument{ID: 1, Model: chamberflux.Li7810, Serial: "TG10-01169"},
		MainGas:        gas.CH4,
		MinCalcLen:     180,
		Mode:           chamberflux.FixedWindow,
	}
	key := chamberflux.GasKey{Gas: gas.CH4, InstrumentID: 1}

	cycle, err := chamberflux.NewCycleBuilder().
		ChamberID("CH1").
		StartTime(time.Unix(1600000000, 0).UTC()).
		CloseOffset(60).
		OpenOffset(540).
		EndOffset(600).
		SnowDepth(0).
		InstrumentID(1).
		Project(project).
		MinCalcLen(project.MinCalcLen).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	n := 601
	dt := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		dt[i] = float64(1600000000 + int64(i))
		y[i] = 400 + 0.1*float64(i) + 1e-6*math.Sin(float64(i))
	}
	cycle.DtV[1] = dt
	cycle.DiagV[1] = make([]int64, n)
	cycle.GasV[key] = y
	ch, _ := chamberflux.Li7810.Channel(gas.CH4)
	cycle.Channels[key] = ch
	cycle.Gases = []chamberflux.GasKey{key}
	cycle.Init(chamberflux.FixedWindow, 0)
	return cycle, key
}

func TestFluxRowArgsMatchColumns(t *testing.T) {
	cycle, key := testCycle(t)
	args, ok := fluxRowArgs(cycle, key, 1)
	if !ok {
		t.Fatal("expected a row for a fitted cycle")
	}
	if len(args) != len(fluxColumns) {
		t.Errorf("args: have %d, want %d columns", len(args), len(fluxColumns))
	}
}

func TestFluxRowArgsSkipsUnfitted(t *testing.T) {
	cycle, key := testCycle(t)
	for target := range cycle.Fluxes {
		delete(cycle.Fluxes, target)
	}
	if _, ok := fluxRowArgs(cycle, key, 1); ok {
		t.Error("a gas without any fit must be skipped")
	}
}

func TestModelBlockPresence(t *testing.T) {
	var b modelBlock
	if b.present() {
		t.Error("zero block should read as absent")
	}
	b.rangeStart, b.rangeEnd = 100, 280
	if !b.present() {
		t.Error("real range should read as present")
	}
}
