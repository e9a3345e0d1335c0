package publisher

import (
	"context"
	"image"
	"math"
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/tbabende/rpg-open-remode/depth"
	"github.com/tbabende/rpg-open-remode/pointcloud"
	"github.com/tbabende/rpg-open-remode/rimage"
	"github.com/tbabende/rpg-open-remode/rimage/transform"
	"github.com/tbabende/rpg-open-remode/spatialmath"
)

type fakeDepthPort struct {
	ready bool
	msgs  []StampedDepth
}

func (f *fakeDepthPort) Ready() bool { return f.ready }
func (f *fakeDepthPort) PublishDepth(ctx context.Context, msg StampedDepth) error {
	f.msgs = append(f.msgs, msg)
	return nil
}

type fakeImagePort struct {
	ready bool
	msgs  []StampedImage
}

func (f *fakeImagePort) Ready() bool { return f.ready }
func (f *fakeImagePort) PublishImage(ctx context.Context, msg StampedImage) error {
	f.msgs = append(f.msgs, msg)
	return nil
}

type fakeCloudPort struct {
	ready bool
	msgs  []StampedCloud
}

func (f *fakeCloudPort) Ready() bool { return f.ready }
func (f *fakeCloudPort) PublishCloud(ctx context.Context, msg StampedCloud) error {
	f.msgs = append(f.msgs, msg)
	return nil
}

var testIntrinsics = transform.PinholeCameraIntrinsics{
	Width:  4,
	Height: 3,
	Fx:     120,
	Fy:     120,
	Ppx:    2,
	Ppy:    1.5,
}

type stateOpts struct {
	pose *spatialmath.Pose
	rgb  bool
	mask func(x, y int) bool
	conv func(x, y int) depth.ConvergenceState
}

func buildState(opts stateOpts) *depth.State {
	w, h := testIntrinsics.Width, testIntrinsics.Height
	dm := rimage.NewEmptyDepthMap(w, h)
	cm := depth.NewConvergenceMap(w, h)
	gray := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dm.Set(x, y, float32(1+x)+float32(y)/10)
			gray.Pix[gray.PixOffset(x, y)] = uint8(10*y + x)
			if opts.conv != nil {
				cm.SetState(x, y, opts.conv(x, y))
			}
		}
	}

	var rgbImg *rimage.Image
	var mask *rimage.Mask
	if opts.rgb {
		rgbImg = rimage.NewImage(w, h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				rgbImg.SetXY(x, y, rimage.NewColor(uint8(x), uint8(y), uint8(x+y)))
			}
		}
		mask = rimage.NewFilledMask(w, h)
		if opts.mask != nil {
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					mask.Set(x, y, opts.mask(x, y))
				}
			}
		}
	}

	st := depth.NewState(testIntrinsics)
	st.Update(dm, cm, gray, rgbImg, mask, opts.pose)
	return st
}

func allConverged(x, y int) depth.ConvergenceState { return depth.Converged }

func newTestPublisher(t *testing.T, st *depth.State) (*Publisher, *fakeDepthPort, *fakeImagePort, *fakeCloudPort, *fakeCloudPort) {
	t.Helper()
	dp := &fakeDepthPort{ready: true}
	ip := &fakeImagePort{ready: true}
	cp := &fakeCloudPort{ready: true}
	crgb := &fakeCloudPort{ready: true}
	pub := New(st, Ports{Depth: dp, Convergence: ip, Cloud: cp, CloudRGB: crgb}, golog.NewTestLogger(t))
	return pub, dp, ip, cp, crgb
}

func TestCameraFrameDistanceEqualsDepth(t *testing.T) {
	// identity pose: world == camera frame, so the emitted point's norm
	// must equal the pixel's metric depth
	st := buildState(stateOpts{conv: allConverged})
	pub, _, _, cp, _ := newTestPublisher(t, st)

	pub.PublishPointCloud(context.Background())
	test.That(t, len(cp.msgs), test.ShouldEqual, 1)

	snap := st.Snapshot()
	i := 0
	cp.msgs[0].Cloud.Iterate(0, 0, func(p r3.Vector, d pointcloud.Data) bool {
		x, y := i%testIntrinsics.Width, i/testIntrinsics.Width
		test.That(t, p.Norm(), test.ShouldAlmostEqual, float64(snap.Depth.GetDepth(x, y)), 1e-5)
		i++
		return true
	})
	test.That(t, i, test.ShouldEqual, testIntrinsics.Width*testIntrinsics.Height)
}

func TestNonConvergedPixelsEmitNothing(t *testing.T) {
	st := buildState(stateOpts{conv: func(x, y int) depth.ConvergenceState {
		if x == 1 && y == 1 {
			return depth.Converged
		}
		// every other classification, including out-of-range codes
		states := []depth.ConvergenceState{depth.Updating, depth.Border, depth.Diverged, depth.NotVisible, depth.ConvergenceState(57)}
		return states[(y*testIntrinsics.Width+x)%len(states)]
	}})
	pub, _, _, cp, _ := newTestPublisher(t, st)

	pub.PublishPointCloud(context.Background())
	test.That(t, len(cp.msgs), test.ShouldEqual, 1)
	test.That(t, cp.msgs[0].Cloud.Size(), test.ShouldEqual, 1)
	test.That(t, cp.msgs[0].FrameID, test.ShouldEqual, FrameWorld)
}

func TestEmptyCloudSuppressed(t *testing.T) {
	st := buildState(stateOpts{conv: func(x, y int) depth.ConvergenceState { return depth.Updating }})
	pub, _, _, cp, crgb := newTestPublisher(t, st)

	pub.PublishPointCloud(context.Background())
	pub.PublishPointCloudRGB(context.Background())
	test.That(t, cp.msgs, test.ShouldBeEmpty)
	test.That(t, crgb.msgs, test.ShouldBeEmpty)
}

func TestRGBMaskGating(t *testing.T) {
	// (0,0) converged but masked out; (1,0) masked in but not converged;
	// (2,0) converged and masked in
	st := buildState(stateOpts{
		rgb: true,
		conv: func(x, y int) depth.ConvergenceState {
			if y == 0 && (x == 0 || x == 2) {
				return depth.Converged
			}
			return depth.Updating
		},
		mask: func(x, y int) bool { return !(x == 0 && y == 0) },
	})
	pub, _, _, _, crgb := newTestPublisher(t, st)

	pub.PublishPointCloudRGB(context.Background())
	test.That(t, len(crgb.msgs), test.ShouldEqual, 1)
	test.That(t, crgb.msgs[0].Cloud.Size(), test.ShouldEqual, 1)

	crgb.msgs[0].Cloud.Iterate(0, 0, func(p r3.Vector, d pointcloud.Data) bool {
		r, g, b := d.RGB255()
		test.That(t, r, test.ShouldEqual, uint8(2))
		test.That(t, g, test.ShouldEqual, uint8(0))
		test.That(t, b, test.ShouldEqual, uint8(2))
		return true
	})
}

func TestRGBWithoutMaskEmitsAllConverged(t *testing.T) {
	w, h := testIntrinsics.Width, testIntrinsics.Height
	dm := rimage.NewEmptyDepthMap(w, h)
	cm := depth.NewConvergenceMap(w, h)
	rgbImg := rimage.NewImage(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dm.Set(x, y, 1)
		}
	}
	cm.SetState(0, 0, depth.Converged)
	cm.SetState(1, 2, depth.Converged)

	st := depth.NewState(testIntrinsics)
	st.Update(dm, cm, image.NewGray(image.Rect(0, 0, w, h)), rgbImg, nil, nil)
	pub, _, _, _, crgb := newTestPublisher(t, st)

	pub.PublishPointCloudRGB(context.Background())
	test.That(t, len(crgb.msgs), test.ShouldEqual, 1)
	test.That(t, crgb.msgs[0].Cloud.Size(), test.ShouldEqual, 2)
}

func TestIntensityComesFromReference(t *testing.T) {
	st := buildState(stateOpts{conv: func(x, y int) depth.ConvergenceState {
		if x == 3 && y == 2 {
			return depth.Converged
		}
		return depth.Updating
	}})
	pub, _, _, cp, _ := newTestPublisher(t, st)

	pub.PublishPointCloud(context.Background())
	test.That(t, len(cp.msgs), test.ShouldEqual, 1)
	cp.msgs[0].Cloud.Iterate(0, 0, func(p r3.Vector, d pointcloud.Data) bool {
		test.That(t, d.Value(), test.ShouldEqual, 23) // 10*y + x
		return true
	})
}

func TestPoseIsApplied(t *testing.T) {
	translation := r3.Vector{X: 10, Y: -5, Z: 2}
	st := buildState(stateOpts{
		conv: allConverged,
		pose: spatialmath.NewPoseFromAxisAngle(translation, spatialmath.NewR4AA()),
	})
	pub, _, _, cp, _ := newTestPublisher(t, st)

	pub.PublishPointCloud(context.Background())
	test.That(t, len(cp.msgs), test.ShouldEqual, 1)

	snap := st.Snapshot()
	i := 0
	cp.msgs[0].Cloud.Iterate(0, 0, func(p r3.Vector, d pointcloud.Data) bool {
		x, y := i%testIntrinsics.Width, i/testIntrinsics.Width
		dist := p.Sub(translation).Norm()
		test.That(t, dist, test.ShouldAlmostEqual, float64(snap.Depth.GetDepth(x, y)), 1e-5)
		i++
		return true
	})
}

func TestRotationAppliedBeforeTranslation(t *testing.T) {
	// with a quarter turn about z the emitted point must match rotating
	// the camera-frame point first and translating after
	translation := r3.Vector{X: 1, Y: 2, Z: 3}
	pose := spatialmath.NewPoseFromAxisAngle(translation, &spatialmath.R4AA{Theta: math.Pi / 2, RZ: 1})
	st := buildState(stateOpts{pose: pose, conv: func(x, y int) depth.ConvergenceState {
		if x == 2 && y == 1 {
			return depth.Converged
		}
		return depth.Updating
	}})
	pub, _, _, cp, _ := newTestPublisher(t, st)

	pub.PublishPointCloud(context.Background())
	test.That(t, len(cp.msgs), test.ShouldEqual, 1)

	snap := st.Snapshot()
	camera := snap.Intrinsics.PixelToPointOnRay(2, 1, float64(snap.Depth.GetDepth(2, 1)))
	want := pose.TransformPoint(camera)
	cp.msgs[0].Cloud.Iterate(0, 0, func(p r3.Vector, d pointcloud.Data) bool {
		test.That(t, p.X, test.ShouldAlmostEqual, want.X, 1e-9)
		test.That(t, p.Y, test.ShouldAlmostEqual, want.Y, 1e-9)
		test.That(t, p.Z, test.ShouldAlmostEqual, want.Z, 1e-9)
		return true
	})
}

func TestNotReadyPortSkipped(t *testing.T) {
	st := buildState(stateOpts{conv: allConverged, rgb: true})
	dp := &fakeDepthPort{ready: false}
	ip := &fakeImagePort{ready: false}
	cp := &fakeCloudPort{ready: false}
	crgb := &fakeCloudPort{ready: false}
	pub := New(st, Ports{Depth: dp, Convergence: ip, Cloud: cp, CloudRGB: crgb}, golog.NewTestLogger(t))

	ctx := context.Background()
	pub.PublishAll(ctx)
	pub.PublishConvergenceMap(ctx)
	test.That(t, dp.msgs, test.ShouldBeEmpty)
	test.That(t, ip.msgs, test.ShouldBeEmpty)
	test.That(t, cp.msgs, test.ShouldBeEmpty)
	test.That(t, crgb.msgs, test.ShouldBeEmpty)
}

func TestNilPortsNoPanic(t *testing.T) {
	st := buildState(stateOpts{conv: allConverged, rgb: true})
	pub := New(st, Ports{}, golog.NewTestLogger(t))
	ctx := context.Background()
	pub.PublishAll(ctx)
	pub.PublishConvergenceMap(ctx)
}

func TestEmptyStateNoOp(t *testing.T) {
	st := depth.NewState(testIntrinsics)
	pub, dp, ip, cp, crgb := newTestPublisher(t, st)

	ctx := context.Background()
	pub.PublishAll(ctx)
	pub.PublishConvergenceMap(ctx)
	test.That(t, dp.msgs, test.ShouldBeEmpty)
	test.That(t, ip.msgs, test.ShouldBeEmpty)
	test.That(t, cp.msgs, test.ShouldBeEmpty)
	test.That(t, crgb.msgs, test.ShouldBeEmpty)
}

func TestPublishDepthmap(t *testing.T) {
	st := buildState(stateOpts{conv: allConverged})
	pub, dp, _, _, _ := newTestPublisher(t, st)

	pub.PublishDepthmap(context.Background())
	test.That(t, len(dp.msgs), test.ShouldEqual, 1)
	test.That(t, dp.msgs[0].FrameID, test.ShouldEqual, FrameDepthmap)
	test.That(t, dp.msgs[0].Depth.GetDepth(1, 0), test.ShouldEqual, float32(2))
	test.That(t, dp.msgs[0].CapturedAt.IsZero(), test.ShouldBeFalse)
}

func TestPublishAllSendsEachChannel(t *testing.T) {
	st := buildState(stateOpts{conv: allConverged, rgb: true})
	pub, dp, _, cp, crgb := newTestPublisher(t, st)

	pub.PublishAll(context.Background())
	test.That(t, len(dp.msgs), test.ShouldEqual, 1)
	test.That(t, len(cp.msgs), test.ShouldEqual, 1)
	test.That(t, len(crgb.msgs), test.ShouldEqual, 1)
}
