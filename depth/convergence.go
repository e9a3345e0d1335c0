package depth

// ConvergenceState classifies whether iterative depth refinement has settled
// on a reliable value for a pixel.
type ConvergenceState int32

// Possible convergence states. Only Converged pixels are eligible for point
// emission.
const (
	Updating ConvergenceState = iota
	Border
	Converged
	Diverged
	NotVisible

	// Unknown is the fallback for codes outside the enumeration; the filter
	// treats it as not converged.
	Unknown ConvergenceState = -1
)

// StateFromCode maps a raw per-pixel code to a ConvergenceState. Codes
// outside the enumeration map to Unknown.
func StateFromCode(code int32) ConvergenceState {
	switch s := ConvergenceState(code); s {
	case Updating, Border, Converged, Diverged, NotVisible:
		return s
	default:
		return Unknown
	}
}

// String returns the state name.
func (s ConvergenceState) String() string {
	switch s {
	case Updating:
		return "updating"
	case Border:
		return "border"
	case Converged:
		return "converged"
	case Diverged:
		return "diverged"
	case NotVisible:
		return "not_visible"
	default:
		return "unknown"
	}
}

// ConvergenceMap holds a per-pixel convergence code, row major.
type ConvergenceMap struct {
	width  int
	height int

	data []int32
}

// NewConvergenceMap returns an all-Updating map of the given dimensions.
func NewConvergenceMap(width, height int) *ConvergenceMap {
	return &ConvergenceMap{width: width, height: height, data: make([]int32, width*height)}
}

// HasData returns whether the map has been allocated.
func (cm *ConvergenceMap) HasData() bool {
	return cm.width > 0 && cm.data != nil
}

// Width returns the horizontal width of the map.
func (cm *ConvergenceMap) Width() int {
	return cm.width
}

// Height returns the vertical height of the map.
func (cm *ConvergenceMap) Height() int {
	return cm.height
}

// Code returns the raw code at (x,y).
func (cm *ConvergenceMap) Code(x, y int) int32 {
	return cm.data[(y*cm.width)+x]
}

// State returns the classified state at (x,y), total over all codes.
func (cm *ConvergenceMap) State(x, y int) ConvergenceState {
	return StateFromCode(cm.Code(x, y))
}

// SetCode sets the raw code at (x,y).
func (cm *ConvergenceMap) SetCode(x, y int, code int32) {
	cm.data[(y*cm.width)+x] = code
}

// SetState sets the state at (x,y).
func (cm *ConvergenceMap) SetState(x, y int, s ConvergenceState) {
	cm.SetCode(x, y, int32(s))
}

// Fill sets every pixel to the given state.
func (cm *ConvergenceMap) Fill(s ConvergenceState) {
	for i := range cm.data {
		cm.data[i] = int32(s)
	}
}

// Clone returns a deep copy.
func (cm *ConvergenceMap) Clone() *ConvergenceMap {
	out := NewConvergenceMap(cm.width, cm.height)
	copy(out.data, cm.data)
	return out
}
