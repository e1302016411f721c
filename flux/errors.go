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

import "fmt"

// FitErrorKind classifies why a single model fit was rejected.
type FitErrorKind int

const (
	LengthMismatch FitErrorKind = iota + 1
	NotEnoughPoints
	NonPositiveY
	DegenerateX
	NonFiniteSigma
	NonFiniteSE
	NonFiniteTStat
	StatError
)

// FitError is a local, per-(gas, kind) failure: the cycle drops that
// single fit and continues. Fit errors are never persisted and never
// set a cycle-level quality bit.
type FitError struct {
	Kind   FitErrorKind
	Detail string
}

func (e *FitError) Error() string {
	switch e.Kind {
	case LengthMismatch:
		return fmt.Sprintf("flux: length mismatch: %s", e.Detail)
	case NotEnoughPoints:
		return fmt.Sprintf("flux: not enough points: %s", e.Detail)
	case NonPositiveY:
		return "flux: non-positive y value"
	case DegenerateX:
		return "flux: no variance in x"
	case NonFiniteSigma:
		return "flux: non-finite sigma"
	case NonFiniteSE:
		return "flux: non-finite standard error"
	case NonFiniteTStat:
		return "flux: non-finite t-statistic"
	case StatError:
		return fmt.Sprintf("flux: %s", e.Detail)
	}
	return "flux: fit error"
}

func errLengthMismatch(lenX, lenY int) error {
	return &FitError{Kind: LengthMismatch, Detail: fmt.Sprintf("len(x)=%d len(y)=%d", lenX, lenY)}
}

func errNotEnoughPoints(n, needed int) error {
	return &FitError{Kind: NotEnoughPoints, Detail: fmt.Sprintf("have %d, need %d", n, needed)}
}
