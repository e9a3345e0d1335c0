package publisher

import (
	"context"
	"image"
	"testing"

	"go.viam.com/test"

	"github.com/tbabende/rpg-open-remode/depth"
	"github.com/tbabende/rpg-open-remode/rimage"
)

func TestRenderConvergenceOverlay(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 3, 1))
	gray.Pix[0] = 100
	gray.Pix[1] = 120
	gray.Pix[2] = 140

	cm := depth.NewConvergenceMap(3, 1)
	cm.SetState(0, 0, depth.Converged)
	cm.SetState(1, 0, depth.Diverged)
	cm.SetState(2, 0, depth.Updating)

	overlay := RenderConvergenceOverlay(gray, cm)

	// converged pixel gets the cold channel saturated
	test.That(t, overlay.GetXY(0, 0), test.ShouldResemble, rimage.NewColor(100, 100, 255))
	// diverged pixel gets the warm channel saturated
	test.That(t, overlay.GetXY(1, 0), test.ShouldResemble, rimage.NewColor(255, 120, 120))
	// anything else stays plain gray
	test.That(t, overlay.GetXY(2, 0), test.ShouldResemble, rimage.NewColor(140, 140, 140))
}

func TestRenderConvergenceOverlayUnknownCode(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 1, 1))
	gray.Pix[0] = 55

	cm := depth.NewConvergenceMap(1, 1)
	cm.SetCode(0, 0, 999)

	overlay := RenderConvergenceOverlay(gray, cm)
	test.That(t, overlay.GetXY(0, 0), test.ShouldResemble, rimage.NewColor(55, 55, 55))
}

func TestPublishConvergenceMap(t *testing.T) {
	st := buildState(stateOpts{conv: func(x, y int) depth.ConvergenceState {
		if x == 0 && y == 0 {
			return depth.Converged
		}
		if x == 1 && y == 0 {
			return depth.Diverged
		}
		return depth.Updating
	}})
	pub, _, ip, _, _ := newTestPublisher(t, st)

	pub.PublishConvergenceMap(context.Background())
	test.That(t, len(ip.msgs), test.ShouldEqual, 1)
	test.That(t, ip.msgs[0].FrameID, test.ShouldEqual, FrameConvergence)

	img := ip.msgs[0].Image
	test.That(t, img.GetXY(0, 0).B, test.ShouldEqual, uint8(255))
	test.That(t, img.GetXY(1, 0).R, test.ShouldEqual, uint8(255))
}
