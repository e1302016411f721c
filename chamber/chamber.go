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

// Package chamber describes the geometry of measurement chambers.
// Fluxes scale with the ratio of enclosed air volume to footprint
// area, so the shapes expose exactly those two quantities, with the
// volume reduced by any snow inside the chamber.
package chamber

import "math"

// Shape is the geometry of a chamber. Shapes are small values and are
// copied freely; the With* methods return modified copies.
type Shape interface {
	// AreaM2 is the footprint area in m².
	AreaM2() float64
	// AdjustedVolume is the interior volume in m³ with the snow
	// volume subtracted.
	AdjustedVolume() float64
	// HeightM is the interior height in m.
	HeightM() float64
	// WithHeight returns a copy with the interior height replaced.
	WithHeight(h float64) Shape
	// WithSnowHeight returns a copy with the snow height replaced.
	WithSnowHeight(h float64) Shape
}

// Cylinder is a circular chamber.
type Cylinder struct {
	RadiusM    float64
	HeightMVal float64
	SnowM      float64
}

func (c Cylinder) AreaM2() float64 { return math.Pi * c.RadiusM * c.RadiusM }

func (c Cylinder) AdjustedVolume() float64 {
	h := c.HeightMVal - c.SnowM
	if h < 0 {
		h = 0
	}
	return c.AreaM2() * h
}

func (c Cylinder) HeightM() float64 { return c.HeightMVal }

func (c Cylinder) WithHeight(h float64) Shape {
	c.HeightMVal = h
	return c
}

func (c Cylinder) WithSnowHeight(h float64) Shape {
	c.SnowM = h
	return c
}

// Box is a rectangular chamber.
type Box struct {
	WidthM     float64
	LengthM    float64
	HeightMVal float64
	SnowM      float64
}

func (b Box) AreaM2() float64 { return b.WidthM * b.LengthM }

func (b Box) AdjustedVolume() float64 {
	h := b.HeightMVal - b.SnowM
	if h < 0 {
		h = 0
	}
	return b.AreaM2() * h
}

func (b Box) HeightM() float64 { return b.HeightMVal }

func (b Box) WithHeight(h float64) Shape {
	b.HeightMVal = h
	return b
}

func (b Box) WithSnowHeight(h float64) Shape {
	b.SnowM = h
	return b
}

// Default is the fallback geometry used before a chamber definition
// has been attached: a 1 m × 1 m × 1 m box with no snow.
func Default() Shape {
	return Box{WidthM: 1, LengthM: 1, HeightMVal: 1}
}
