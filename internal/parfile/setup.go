package parfile

import (
	"fmt"
	"math"

	"github.com/mwerling/thornweld/internal/grid"
)

// setup carries the driver/grid/time parameters with their defaults while
// the hierarchy is derived. Field defaults mirror the standard components'
// declared parameter defaults.
type setup struct {
	globalNSize int
	global      [3]int
	localNSize  int
	local       [3]int

	gridType       string
	domain         string
	avoidOriginAll bool
	avoidOrigin    [3]bool
	dxyz           float64
	d              [3]float64
	hasRangeMax    bool
	hasRangeMin    bool
	rangeMax       float64
	rangeMin       float64
	min            [3]float64
	max            [3]float64

	timeMethod     string
	dtfac          float64
	courantFac     float64
	courantSpeed   float64
	courantMinTime float64
}

func defaults() setup {
	return setup{
		globalNSize: -1,
		global:      [3]int{10, 10, 10},
		localNSize:  -1,
		local:       [3]int{-1, -1, -1},

		gridType:       "box",
		domain:         "full",
		avoidOriginAll: true,
		avoidOrigin:    [3]bool{true, true, true},
		d:              [3]float64{0.3, 0.3, 0.3},
		min:            [3]float64{-1.0, -1.0, -1.0},
		max:            [3]float64{1.0, 1.0, 1.0},

		timeMethod: "courant_static",
		courantFac: 0.9,
	}
}

// Setup derives a configured grid hierarchy from parsed parameters: grid
// sizes from the driver section, spacing and origin from the grid section
// (including domain symmetry), and the time step from the time section.
func Setup(v *Values, dim int) (*grid.Hierarchy, error) {
	h, err := grid.New(dim)
	if err != nil {
		return nil, err
	}

	s := defaults()
	if err := s.driver(v, h); err != nil {
		return nil, err
	}
	if err := s.cartGrid(v, h); err != nil {
		return nil, err
	}
	if err := s.time(v, h); err != nil {
		return nil, err
	}
	return h, nil
}

// getInt overwrites dst only when the parameter is given.
func getInt(v *Values, key string, dst *int) error {
	val, ok, err := v.Int(key)
	if err != nil {
		return err
	}
	if ok {
		*dst = val
	}
	return nil
}

func getReal(v *Values, key string, dst *float64) error {
	val, ok, err := v.Real(key)
	if err != nil {
		return err
	}
	if ok {
		*dst = val
	}
	return nil
}

func getBool(v *Values, key string, dst *bool) error {
	val, ok, err := v.Bool(key)
	if err != nil {
		return err
	}
	if ok {
		*dst = val
	}
	return nil
}

func getString(v *Values, key string, dst *string) error {
	if val, ok := v.Lookup(key); ok {
		*dst = val
	}
	return nil
}

// driver sets the global and local grid sizes. Local sizes win when fully
// given; the single-process driver keeps global and local equal.
func (s *setup) driver(v *Values, h *grid.Hierarchy) error {
	if err := getInt(v, "driver::global_nsize", &s.globalNSize); err != nil {
		return err
	}
	if err := getInt(v, "driver::global_nx", &s.global[0]); err != nil {
		return err
	}
	if err := getInt(v, "driver::global_ny", &s.global[1]); err != nil {
		return err
	}
	if err := getInt(v, "driver::global_nz", &s.global[2]); err != nil {
		return err
	}
	if err := getInt(v, "driver::local_nsize", &s.localNSize); err != nil {
		return err
	}
	if err := getInt(v, "driver::local_nx", &s.local[0]); err != nil {
		return err
	}
	if err := getInt(v, "driver::local_ny", &s.local[1]); err != nil {
		return err
	}
	if err := getInt(v, "driver::local_nz", &s.local[2]); err != nil {
		return err
	}

	if s.localNSize > 0 {
		s.local[0], s.local[1], s.local[2] = s.localNSize, s.localNSize, s.localNSize
	}
	if s.local[0] > 0 && s.local[1] > 0 && s.local[2] > 0 {
		for i := 0; i < h.Dim && i < 3; i++ {
			h.GSH[i] = s.local[i]
			h.LSH[i] = s.local[i]
		}
		return nil
	}

	if s.globalNSize > 0 {
		s.global[0], s.global[1], s.global[2] = s.globalNSize, s.globalNSize, s.globalNSize
	}
	for i := 0; i < h.Dim && i < 3; i++ {
		h.GSH[i] = s.global[i]
		h.LSH[i] = s.global[i]
	}
	return nil
}

// cartGrid sets spacing and origin from the grid type, then applies the
// domain symmetry.
func (s *setup) cartGrid(v *Values, h *grid.Hierarchy) error {
	if err := getString(v, "grid::type", &s.gridType); err != nil {
		return err
	}
	if err := getString(v, "grid::domain", &s.domain); err != nil {
		return err
	}
	if err := getBool(v, "grid::avoid_origin", &s.avoidOriginAll); err != nil {
		return err
	}
	if err := getBool(v, "grid::avoid_originx", &s.avoidOrigin[0]); err != nil {
		return err
	}
	if err := getBool(v, "grid::avoid_originy", &s.avoidOrigin[1]); err != nil {
		return err
	}
	if err := getBool(v, "grid::avoid_originz", &s.avoidOrigin[2]); err != nil {
		return err
	}
	if !s.avoidOriginAll {
		s.avoidOrigin = [3]bool{false, false, false}
	}

	switch {
	case equalsAny(s.gridType, "box"):
		// Unit box: xyzmin = -0.5, xyzmax = +0.5.
		for i := 0; i < h.Dim; i++ {
			h.OriginSpace[i] = -0.5
			h.DeltaSpace[i] = 1.0 / float64(h.GSH[i])
		}

	case equalsAny(s.gridType, "byrange"):
		if err := s.byRange(v, h); err != nil {
			return err
		}

	case equalsAny(s.gridType, "byspacing"):
		if err := s.bySpacing(v, h); err != nil {
			return err
		}

	default:
		return fmt.Errorf("unknown grid type %q", s.gridType)
	}

	return s.symmetry(h)
}

func (s *setup) byRange(v *Values, h *grid.Hierarchy) error {
	var err error
	if s.rangeMax, s.hasRangeMax, err = v.Real("grid::xyzmax"); err != nil {
		return err
	}
	if s.rangeMin, s.hasRangeMin, err = v.Real("grid::xyzmin"); err != nil {
		return err
	}
	if err := getReal(v, "grid::xmax", &s.max[0]); err != nil {
		return err
	}
	if err := getReal(v, "grid::ymax", &s.max[1]); err != nil {
		return err
	}
	if err := getReal(v, "grid::zmax", &s.max[2]); err != nil {
		return err
	}
	if err := getReal(v, "grid::xmin", &s.min[0]); err != nil {
		return err
	}
	if err := getReal(v, "grid::ymin", &s.min[1]); err != nil {
		return err
	}
	if err := getReal(v, "grid::zmin", &s.min[2]); err != nil {
		return err
	}

	if s.hasRangeMax {
		s.max[0], s.max[1], s.max[2] = s.rangeMax, s.rangeMax, s.rangeMax
	}
	if s.hasRangeMin {
		s.min[0], s.min[1], s.min[2] = s.rangeMin, s.rangeMin, s.rangeMin
	}

	for i := 0; i < h.Dim && i < 3; i++ {
		// Spacing divides by GSH-1; a one-point grid has no range to span.
		if h.GSH[i] < 2 {
			return fmt.Errorf("byrange grid needs at least 2 points per direction, got %d", h.GSH[i])
		}
		h.OriginSpace[i] = s.min[i]
		h.DeltaSpace[i] = (s.max[i] - s.min[i]) / float64(h.GSH[i]-1)
	}
	return nil
}

func (s *setup) bySpacing(v *Values, h *grid.Hierarchy) error {
	if err := getReal(v, "grid::dxyz", &s.dxyz); err != nil {
		return err
	}
	if err := getReal(v, "grid::dx", &s.d[0]); err != nil {
		return err
	}
	if err := getReal(v, "grid::dy", &s.d[1]); err != nil {
		return err
	}
	if err := getReal(v, "grid::dz", &s.d[2]); err != nil {
		return err
	}
	if s.dxyz > 0 {
		s.d[0], s.d[1], s.d[2] = s.dxyz, s.dxyz, s.dxyz
	}

	for i := 0; i < h.Dim && i < 3; i++ {
		h.DeltaSpace[i] = s.d[i]
		span := h.GSH[i] - 1
		if s.avoidOrigin[i] {
			span -= h.GSH[i] % 2
		}
		h.OriginSpace[i] = -0.5 * float64(span) * h.DeltaSpace[i]
	}
	return nil
}

// symmetry shifts the origin on the axes the domain keyword reflects:
// bitant reflects z, quadrant reflects x and y, octant reflects all three.
func (s *setup) symmetry(h *grid.Hierarchy) error {
	var axes []int
	switch {
	case equalsAny(s.domain, "full"):
		return nil
	case equalsAny(s.domain, "bitant"):
		axes = []int{2}
	case equalsAny(s.domain, "quadrant"):
		axes = []int{0, 1}
	case equalsAny(s.domain, "octant"):
		axes = []int{0, 1, 2}
	default:
		return fmt.Errorf("unknown domain %q", s.domain)
	}

	for _, x := range axes {
		if x >= h.Dim {
			continue
		}
		if s.avoidOrigin[x] {
			h.OriginSpace[x] = -h.DeltaSpace[x] / 2.0
		} else {
			h.OriginSpace[x] = -h.DeltaSpace[x]
		}
	}
	return nil
}

// time derives the time step from the configured method.
func (s *setup) time(v *Values, h *grid.Hierarchy) error {
	if err := getString(v, "time::timestep_method", &s.timeMethod); err != nil {
		return err
	}
	if err := getReal(v, "time::dtfac", &s.dtfac); err != nil {
		return err
	}
	if err := getReal(v, "time::courant_fac", &s.courantFac); err != nil {
		return err
	}
	if err := getReal(v, "time::courant_speed", &s.courantSpeed); err != nil {
		return err
	}
	if err := getReal(v, "time::courant_min_time", &s.courantMinTime); err != nil {
		return err
	}

	switch {
	case equalsAny(s.timeMethod, "given"):
		return getReal(v, "time::timestep", &h.DeltaTime)
	case equalsAny(s.timeMethod, "courant_static"):
		h.DeltaTime = s.dtfac * h.MinDeltaSpace()
	case equalsAny(s.timeMethod, "courant_speed"):
		h.DeltaTime = s.courantFac * h.MinDeltaSpace() / s.courantSpeed / math.Sqrt(float64(h.Dim))
	case equalsAny(s.timeMethod, "courant_time"):
		h.DeltaTime = s.courantFac * s.courantMinTime / math.Sqrt(float64(h.Dim))
	default:
		return fmt.Errorf("unknown timestep method %q", s.timeMethod)
	}
	return nil
}
