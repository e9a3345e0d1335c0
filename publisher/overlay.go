package publisher

import (
	"image"

	"github.com/golang/geo/r3"

	"github.com/tbabende/rpg-open-remode/depth"
	"github.com/tbabende/rpg-open-remode/rimage"
)

// projectPixel back-projects pixel (x,y) along its unit viewing ray by the
// pixel's metric depth and transforms the result into the world frame.
func projectPixel(snap *depth.Snapshot, x, y int) r3.Vector {
	d := float64(snap.Depth.GetDepth(x, y))
	pCamera := snap.Intrinsics.PixelToPointOnRay(float64(x), float64(y), d)
	return snap.PoseWorldRef.TransformPoint(pCamera)
}

// RenderConvergenceOverlay colors a grayscale reference image by convergence
// state: converged pixels get a saturated blue channel, diverged pixels a
// saturated red channel, everything else keeps its gray value.
func RenderConvergenceOverlay(reference *image.Gray, conv *depth.ConvergenceMap) *rimage.Image {
	out := rimage.ConvertGrayToColor(reference)
	for y := 0; y < out.Height(); y++ {
		for x := 0; x < out.Width(); x++ {
			switch conv.State(x, y) {
			case depth.Converged:
				c := out.GetXY(x, y)
				c.B = 255
				out.SetXY(x, y, c)
			case depth.Diverged:
				c := out.GetXY(x, y)
				c.R = 255
				out.SetXY(x, y, c)
			default:
			}
		}
	}
	return out
}
