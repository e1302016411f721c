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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// In-process counters for the batch pipeline. They are registered on
// the default registry; a serving surface may expose them, headless
// runs just ignore them.
var (
	cyclesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chamberflux_cycles_processed_total",
		Help: "Cycles successfully built and initialized.",
	})
	cyclesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chamberflux_cycles_failed_total",
		Help: "Cycle rows of chunks whose cycle definitions failed to build; rows without gas data are not counted.",
	})
)
