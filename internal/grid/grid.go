// Package grid models the host framework's grid hierarchy: the per-run
// geometry and time-stepping state the generated code threads through every
// scheduled step.
package grid

import "fmt"

// Hierarchy is the grid hierarchy value object. All slice fields are sized
// by Dim at construction; BBox holds two entries per dimension (one per
// face). Conversion level and factor fields of the original framework are
// fixed values and are intentionally absent.
type Hierarchy struct {
	Dim       int
	Iteration int

	GSH  []int // global grid size
	LSH  []int // local grid size
	LBnd []int // lower bound
	UBnd []int // upper bound

	DeltaSpace  []float64
	OriginSpace []float64
	DeltaTime   float64
	Time        float64

	BBox        []int // which faces are real borders
	LevFac      []int
	LevOff      []int
	LevOffDenom []int
	NGhostZones []int

	Identity string
}

// New creates a hierarchy with dim dimensions and the framework defaults:
// iteration and time zero, refinement factors 1, one ghost zone per face.
func New(dim int) (*Hierarchy, error) {
	if dim < 1 {
		return nil, fmt.Errorf("grid dimension must be positive, got %d", dim)
	}
	h := &Hierarchy{
		Dim:         dim,
		GSH:         make([]int, dim),
		LSH:         make([]int, dim),
		LBnd:        make([]int, dim),
		UBnd:        make([]int, dim),
		DeltaSpace:  make([]float64, dim),
		OriginSpace: make([]float64, dim),
		BBox:        make([]int, 2*dim),
		LevFac:      make([]int, dim),
		LevOff:      make([]int, dim),
		LevOffDenom: make([]int, dim),
		NGhostZones: make([]int, dim),
	}
	for i := 0; i < dim; i++ {
		h.LevFac[i] = 1
		h.LevOffDenom[i] = 1
		h.NGhostZones[i] = 1
	}
	return h, nil
}

// SetGlobalSize sets both global and local grid sizes to n in every
// direction; the single-process driver keeps them equal.
func (h *Hierarchy) SetGlobalSize(n int) {
	for i := range h.GSH {
		h.GSH[i] = n
		h.LSH[i] = n
	}
}

// MinDeltaSpace returns the smallest grid spacing across dimensions, used
// to derive the time step.
func (h *Hierarchy) MinDeltaSpace() float64 {
	min := h.DeltaSpace[0]
	for _, d := range h.DeltaSpace[1:] {
		if d < min {
			min = d
		}
	}
	return min
}
