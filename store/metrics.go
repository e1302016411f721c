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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rowsInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chamberflux_store_rows_inserted_total",
		Help: "Flux rows written to the store.",
	})
	rowsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chamberflux_store_rows_skipped_total",
		Help: "Flux rows skipped as duplicates or without any fit.",
	})
	rowsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chamberflux_store_rows_failed_total",
		Help: "Flux row writes that errored.",
	})
)
