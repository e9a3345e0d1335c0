// Package depth models the shared state of a dense depth estimation engine:
// per-pixel depth and convergence buffers, reference imagery, camera pose and
// intrinsics, all guarded by one lock and read out as consistent snapshots.
package depth

import (
	"image"
	"sync"
	"time"

	"github.com/tbabende/rpg-open-remode/rimage"
	"github.com/tbabende/rpg-open-remode/rimage/transform"
	"github.com/tbabende/rpg-open-remode/spatialmath"
)

// Source yields consistent snapshots of an estimation engine's current state.
// This is all a consumer needs; the engine keeps ownership of the canonical
// buffers.
type Source interface {
	Snapshot() *Snapshot
}

// Snapshot is a momentarily frozen copy of shared per-frame state, taken
// under lock. All buffers share the same dimensions, and the pose and
// intrinsics belong to the same instant as the buffers.
type Snapshot struct {
	Depth        *rimage.DepthMap
	Convergence  *ConvergenceMap
	Reference    *image.Gray
	ReferenceRGB *rimage.Image
	Mask         *rimage.Mask
	PoseWorldRef *spatialmath.Pose
	Intrinsics   transform.PinholeCameraIntrinsics
	CapturedAt   time.Time
}

// Empty reports whether the snapshot carries no usable frame, e.g. before the
// engine has produced its first estimate.
func (s *Snapshot) Empty() bool {
	return s == nil || s.Depth == nil || !s.Depth.HasData() ||
		s.Convergence == nil || !s.Convergence.HasData()
}

// Width returns the frame width, 0 when empty.
func (s *Snapshot) Width() int {
	if s.Empty() {
		return 0
	}
	return s.Depth.Width()
}

// Height returns the frame height, 0 when empty.
func (s *Snapshot) Height() int {
	if s.Empty() {
		return 0
	}
	return s.Depth.Height()
}

// State is the canonical shared estimation state. The engine mutates it
// through Update/setters; readers take copies through Snapshot. One mutex
// guards every field so a snapshot never mixes two writer generations.
type State struct {
	mu sync.Mutex

	depth        *rimage.DepthMap
	convergence  *ConvergenceMap
	reference    *image.Gray
	referenceRGB *rimage.Image
	mask         *rimage.Mask
	poseWorldRef *spatialmath.Pose
	intrinsics   transform.PinholeCameraIntrinsics
}

// NewState returns an uninitialized state with the given intrinsics. Until
// the first Update, snapshots are empty.
func NewState(intrinsics transform.PinholeCameraIntrinsics) *State {
	return &State{
		intrinsics:   intrinsics,
		poseWorldRef: spatialmath.NewZeroPose(),
	}
}

// Width returns the frame width.
func (st *State) Width() int {
	return st.intrinsics.Width
}

// Height returns the frame height.
func (st *State) Height() int {
	return st.intrinsics.Height
}

// Intrinsics returns the camera intrinsics.
func (st *State) Intrinsics() transform.PinholeCameraIntrinsics {
	return st.intrinsics
}

// Update replaces the per-frame buffers and pose in one locked step. Nil
// optional buffers (mask, color reference) clear the previous ones.
func (st *State) Update(
	depth *rimage.DepthMap,
	convergence *ConvergenceMap,
	reference *image.Gray,
	referenceRGB *rimage.Image,
	mask *rimage.Mask,
	poseWorldRef *spatialmath.Pose,
) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.depth = depth
	st.convergence = convergence
	st.reference = reference
	st.referenceRGB = referenceRGB
	st.mask = mask
	if poseWorldRef != nil {
		st.poseWorldRef = poseWorldRef
	}
}

// Depthmap returns the current depth buffer.
func (st *State) Depthmap() *rimage.DepthMap {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.depth
}

// ConvergenceMap returns the current convergence buffer.
func (st *State) ConvergenceMap() *ConvergenceMap {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.convergence
}

// ReferenceImage returns the current grayscale reference image.
func (st *State) ReferenceImage() *image.Gray {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.reference
}

// ReferenceImageRGB returns the current color reference image, if any.
func (st *State) ReferenceImageRGB() *rimage.Image {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.referenceRGB
}

// ReferenceMask returns the current validity mask, if any.
func (st *State) ReferenceMask() *rimage.Mask {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.mask
}

// PoseWorldRef returns the current camera-to-world pose.
func (st *State) PoseWorldRef() *spatialmath.Pose {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.poseWorldRef
}

// SetPose updates only the camera-to-world pose.
func (st *State) SetPose(poseWorldRef *spatialmath.Pose) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.poseWorldRef = poseWorldRef
}

// Snapshot deep-copies the current buffers, pose and intrinsics under the
// lock and stamps the copy with the current time. The lock is held only for
// the copy; callers do per-pixel work on the returned snapshot afterward.
func (st *State) Snapshot() *Snapshot {
	st.mu.Lock()
	defer st.mu.Unlock()

	snap := &Snapshot{
		PoseWorldRef: st.poseWorldRef,
		Intrinsics:   st.intrinsics,
		CapturedAt:   time.Now(),
	}
	if st.depth != nil {
		snap.Depth = st.depth.Clone()
	}
	if st.convergence != nil {
		snap.Convergence = st.convergence.Clone()
	}
	if st.reference != nil {
		snap.Reference = rimage.CloneGray(st.reference)
	}
	if st.referenceRGB != nil {
		snap.ReferenceRGB = st.referenceRGB.Clone()
	}
	if st.mask != nil {
		snap.Mask = st.mask.Clone()
	}
	return snap
}
