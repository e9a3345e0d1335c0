package publisher

import (
	"context"
	"time"

	"github.com/tbabende/rpg-open-remode/pointcloud"
	"github.com/tbabende/rpg-open-remode/rimage"
)

// Frame identifiers stamped onto outgoing messages.
const (
	FrameWorld       = "world"
	FrameDepthmap    = "depthmap"
	FrameConvergence = "convergence_map"
)

// StampedDepth is a depth image tagged with a frame and capture time.
type StampedDepth struct {
	FrameID    string
	CapturedAt time.Time
	Depth      *rimage.DepthMap
}

// StampedImage is a color image tagged with a frame and capture time.
type StampedImage struct {
	FrameID    string
	CapturedAt time.Time
	Image      *rimage.Image
}

// StampedCloud is a point cloud tagged with a frame and capture time.
type StampedCloud struct {
	FrameID    string
	CapturedAt time.Time
	Cloud      pointcloud.PointCloud
}

// DepthPort is an output channel for depth images. Publishing is a
// best-effort hand-off; a port that is not Ready is skipped, never retried.
type DepthPort interface {
	Ready() bool
	PublishDepth(ctx context.Context, msg StampedDepth) error
}

// ImagePort is an output channel for color images.
type ImagePort interface {
	Ready() bool
	PublishImage(ctx context.Context, msg StampedImage) error
}

// CloudPort is an output channel for point clouds.
type CloudPort interface {
	Ready() bool
	PublishCloud(ctx context.Context, msg StampedCloud) error
}

// Ports bundles the four output channels. Any nil port disables its channel.
type Ports struct {
	Depth       DepthPort
	Convergence ImagePort
	Cloud       CloudPort
	CloudRGB    CloudPort
}
