// Package publisher turns snapshots of dense depth estimation state into
// point clouds, a depth image, and a convergence overlay, and hands them to
// injected output ports.
package publisher

import (
	"context"
	"image/color"

	"github.com/edaniels/golog"

	"github.com/tbabende/rpg-open-remode/depth"
	"github.com/tbabende/rpg-open-remode/pointcloud"
)

// Publisher reads snapshots from a depth source and publishes derived
// products. A Publisher instance is not safe for concurrent use; the source
// it reads from is.
type Publisher struct {
	source depth.Source
	ports  Ports
	logger golog.Logger
}

// New returns a Publisher reading from the given source and writing to the
// given ports.
func New(source depth.Source, ports Ports, logger golog.Logger) *Publisher {
	return &Publisher{source: source, ports: ports, logger: logger}
}

// PublishDepthmap hands the current depth image to the depth port.
func (p *Publisher) PublishDepthmap(ctx context.Context) {
	port := p.ports.Depth
	if port == nil || !port.Ready() {
		return
	}
	snap := p.source.Snapshot()
	if snap.Empty() {
		return
	}
	msg := StampedDepth{FrameID: FrameDepthmap, CapturedAt: snap.CapturedAt, Depth: snap.Depth}
	if err := port.PublishDepth(ctx, msg); err != nil {
		p.logger.Errorw("failed to publish depth image", "error", err)
	}
}

// PublishPointCloud back-projects every converged pixel into the world frame
// and hands the resulting intensity cloud to the cloud port. An empty result
// is suppressed.
func (p *Publisher) PublishPointCloud(ctx context.Context) {
	port := p.ports.Cloud
	if port == nil || !port.Ready() {
		return
	}
	snap := p.source.Snapshot()
	if snap.Empty() || snap.Reference == nil {
		return
	}

	pc := pointcloud.NewWithPrealloc(snap.Width() * snap.Height() / 4)
	for y := 0; y < snap.Height(); y++ {
		for x := 0; x < snap.Width(); x++ {
			if snap.Convergence.State(x, y) != depth.Converged {
				continue
			}
			world := projectPixel(snap, x, y)
			intensity := snap.Reference.GrayAt(x, y).Y
			if err := pc.Set(world, pointcloud.NewValueData(int(intensity))); err != nil {
				p.logger.Errorw("failed to assemble point", "x", x, "y", y, "error", err)
				return
			}
		}
	}
	if pc.Size() == 0 {
		return
	}

	msg := StampedCloud{FrameID: FrameWorld, CapturedAt: snap.CapturedAt, Cloud: pc}
	if err := port.PublishCloud(ctx, msg); err != nil {
		p.logger.Errorw("failed to publish point cloud", "size", pc.Size(), "error", err)
	}
}

// PublishPointCloudRGB is like PublishPointCloud but emits packed-color
// points from the color reference image, additionally gated by the validity
// mask. The cloud is rebuilt from scratch on every call.
func (p *Publisher) PublishPointCloudRGB(ctx context.Context) {
	port := p.ports.CloudRGB
	if port == nil || !port.Ready() {
		return
	}
	snap := p.source.Snapshot()
	if snap.Empty() || snap.ReferenceRGB == nil {
		return
	}

	pc := pointcloud.NewWithPrealloc(snap.Width() * snap.Height() / 4)
	for y := 0; y < snap.Height(); y++ {
		for x := 0; x < snap.Width(); x++ {
			if snap.Convergence.State(x, y) != depth.Converged {
				continue
			}
			// a missing mask marks every pixel valid
			if snap.Mask != nil && !snap.Mask.Get(x, y) {
				continue
			}
			world := projectPixel(snap, x, y)
			r, g, b := snap.ReferenceRGB.GetXY(x, y).RGB255()
			if err := pc.Set(world, pointcloud.NewColoredData(color.NRGBA{R: r, G: g, B: b, A: 255})); err != nil {
				p.logger.Errorw("failed to assemble point", "x", x, "y", y, "error", err)
				return
			}
		}
	}
	if pc.Size() == 0 {
		return
	}

	msg := StampedCloud{FrameID: FrameWorld, CapturedAt: snap.CapturedAt, Cloud: pc}
	if err := port.PublishCloud(ctx, msg); err != nil {
		p.logger.Errorw("failed to publish color point cloud", "size", pc.Size(), "error", err)
	}
}

// PublishConvergenceMap renders the convergence overlay over the grayscale
// reference image and hands it to the convergence port.
func (p *Publisher) PublishConvergenceMap(ctx context.Context) {
	port := p.ports.Convergence
	if port == nil || !port.Ready() {
		return
	}
	snap := p.source.Snapshot()
	if snap.Empty() || snap.Reference == nil {
		return
	}

	overlay := RenderConvergenceOverlay(snap.Reference, snap.Convergence)
	msg := StampedImage{FrameID: FrameConvergence, CapturedAt: snap.CapturedAt, Image: overlay}
	if err := port.PublishImage(ctx, msg); err != nil {
		p.logger.Errorw("failed to publish convergence overlay", "error", err)
	}
}

// PublishAll publishes the depth image, the intensity cloud, and the color
// cloud in sequence. Each sub-call takes its own snapshot, so they may differ
// slightly in capture time.
func (p *Publisher) PublishAll(ctx context.Context) {
	p.PublishDepthmap(ctx)
	p.PublishPointCloud(ctx)
	p.PublishPointCloudRGB(ctx)
}
