// Package natspub provides NATS-backed output ports for the publisher: one
// subject per channel, best-effort core publishes, skipped while the
// connection is unhealthy.
package natspub

import (
	"bytes"
	"context"
	"image/png"
	"time"

	"github.com/edaniels/golog"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"

	"github.com/tbabende/rpg-open-remode/pointcloud"
	"github.com/tbabende/rpg-open-remode/publisher"
)

// DefaultSubjectPrefix is the subject prefix used when none is configured.
const DefaultSubjectPrefix = "depth"

// Header keys carrying message metadata.
const (
	HeaderFrameID    = "Frame-Id"
	HeaderCapturedAt = "Captured-At"
)

// Subject suffixes, one per channel.
const (
	SubjectDepth         = "depth"
	SubjectConvergence   = "convergence"
	SubjectPointCloud    = "pointcloud"
	SubjectPointCloudRGB = "pointcloud_rgb"
)

// New returns publisher ports publishing to the given connection under the
// given subject prefix. The caller keeps ownership of the connection.
func New(conn *nats.Conn, prefix string, logger golog.Logger) publisher.Ports {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return publisher.Ports{
		Depth:       &depthPort{port{conn, prefix + "." + SubjectDepth, logger}},
		Convergence: &imagePort{port{conn, prefix + "." + SubjectConvergence, logger}},
		Cloud:       &cloudPort{port{conn, prefix + "." + SubjectPointCloud, logger}},
		CloudRGB:    &cloudPort{port{conn, prefix + "." + SubjectPointCloudRGB, logger}},
	}
}

type port struct {
	conn    *nats.Conn
	subject string
	logger  golog.Logger
}

// Ready reports whether the connection is currently healthy. Publishes while
// not ready are skipped by the caller rather than queued.
func (p *port) Ready() bool {
	return p.conn != nil && p.conn.Status() == nats.CONNECTED
}

func (p *port) publish(frameID string, capturedAt time.Time, payload []byte) error {
	msg := nats.NewMsg(p.subject)
	msg.Header.Set(HeaderFrameID, frameID)
	msg.Header.Set(HeaderCapturedAt, capturedAt.Format(time.RFC3339Nano))
	msg.Data = payload
	return p.conn.PublishMsg(msg)
}

type depthPort struct{ port }

func (p *depthPort) PublishDepth(ctx context.Context, msg publisher.StampedDepth) error {
	payload, err := EncodeDepth(msg)
	if err != nil {
		return err
	}
	return p.publish(msg.FrameID, msg.CapturedAt, payload)
}

type imagePort struct{ port }

func (p *imagePort) PublishImage(ctx context.Context, msg publisher.StampedImage) error {
	payload, err := EncodeImage(msg)
	if err != nil {
		return err
	}
	return p.publish(msg.FrameID, msg.CapturedAt, payload)
}

type cloudPort struct{ port }

func (p *cloudPort) PublishCloud(ctx context.Context, msg publisher.StampedCloud) error {
	payload, err := EncodeCloud(msg)
	if err != nil {
		return err
	}
	return p.publish(msg.FrameID, msg.CapturedAt, payload)
}

// EncodeDepth serializes a depth image in the rimage binary depth format.
func EncodeDepth(msg publisher.StampedDepth) ([]byte, error) {
	if msg.Depth == nil {
		return nil, errors.New("no depth map to encode")
	}
	var buf bytes.Buffer
	if _, err := msg.Depth.WriteTo(&buf); err != nil {
		return nil, errors.Wrap(err, "cannot encode depth map")
	}
	return buf.Bytes(), nil
}

// EncodeImage serializes a color image as PNG.
func EncodeImage(msg publisher.StampedImage) ([]byte, error) {
	if msg.Image == nil {
		return nil, errors.New("no image to encode")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, msg.Image); err != nil {
		return nil, errors.Wrap(err, "cannot encode image")
	}
	return buf.Bytes(), nil
}

// EncodeCloud serializes a point cloud as a binary PCD.
func EncodeCloud(msg publisher.StampedCloud) ([]byte, error) {
	if msg.Cloud == nil {
		return nil, errors.New("no cloud to encode")
	}
	var buf bytes.Buffer
	if err := pointcloud.ToPCD(msg.Cloud, &buf, pointcloud.PCDBinary); err != nil {
		return nil, errors.Wrap(err, "cannot encode point cloud")
	}
	return buf.Bytes(), nil
}
