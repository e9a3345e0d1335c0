// Package main is a command that projects a stored depth frame into point
// clouds and publishes the results to files or to a NATS server.
package main

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"github.com/tbabende/rpg-open-remode/depth"
	"github.com/tbabende/rpg-open-remode/pointcloud"
	"github.com/tbabende/rpg-open-remode/publisher"
	"github.com/tbabende/rpg-open-remode/rimage"
	"github.com/tbabende/rpg-open-remode/rimage/transform"
	"github.com/tbabende/rpg-open-remode/spatialmath"
	"github.com/tbabende/rpg-open-remode/transport/natspub"
)

var logger = golog.NewDevelopmentLogger("depthcloud")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	Intrinsics string  `flag:"intrinsics,usage=path to camera intrinsics JSON"`
	DepthFile  string  `flag:"depth,usage=path to binary depth map (.dat or .dat.gz)"`
	ImageFile  string  `flag:"image,usage=path to reference image (PNG)"`
	OutDir     string  `flag:"out,usage=directory to write outputs to"`
	NATSURL    string  `flag:"nats,usage=NATS server URL to publish to instead of writing files"`
	Subject    string  `flag:"subject,default=depth,usage=NATS subject prefix"`
	LAS        bool    `flag:"las,usage=also write the color cloud as LAS"`
	TX         float64 `flag:"tx,default=0,usage=camera x in world (meters)"`
	TY         float64 `flag:"ty,default=0,usage=camera y in world (meters)"`
	TZ         float64 `flag:"tz,default=0,usage=camera z in world (meters)"`
	RX         float64 `flag:"rx,default=0,usage=camera rotation axis-angle x (radians)"`
	RY         float64 `flag:"ry,default=0,usage=camera rotation axis-angle y (radians)"`
	RZ         float64 `flag:"rz,default=0,usage=camera rotation axis-angle z (radians)"`
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}
	if argsParsed.Intrinsics == "" || argsParsed.DepthFile == "" {
		return errors.New("need -intrinsics and -depth")
	}
	if argsParsed.OutDir == "" && argsParsed.NATSURL == "" {
		return errors.New("need one of -out or -nats")
	}

	intrinsics, err := transform.NewPinholeCameraIntrinsicsFromJSONFile(argsParsed.Intrinsics)
	if err != nil {
		return err
	}
	if err := intrinsics.CheckValid(); err != nil {
		return err
	}

	dm, err := rimage.ParseDepthMap(argsParsed.DepthFile)
	if err != nil {
		return err
	}
	if dm.Width() != intrinsics.Width || dm.Height() != intrinsics.Height {
		return errors.Errorf("depth map dimensions and intrinsics don't match Depth(%d,%d) != Intrinsics(%d,%d)",
			dm.Width(), dm.Height(), intrinsics.Width, intrinsics.Height)
	}

	gray, colorImg, err := loadReference(argsParsed.ImageFile, dm)
	if err != nil {
		return err
	}

	cm := depth.NewConvergenceMap(dm.Width(), dm.Height())
	cm.Fill(depth.Converged)
	mask := rimage.NewFilledMask(dm.Width(), dm.Height())
	pose := spatialmath.NewPoseFromAxisAngle(
		r3.Vector{X: argsParsed.TX, Y: argsParsed.TY, Z: argsParsed.TZ},
		spatialmath.R3ToR4(r3.Vector{X: argsParsed.RX, Y: argsParsed.RY, Z: argsParsed.RZ}),
	)

	st := depth.NewState(*intrinsics)
	st.Update(dm, cm, gray, colorImg, mask, pose)

	var ports publisher.Ports
	if argsParsed.NATSURL != "" {
		conn, err := nats.Connect(argsParsed.NATSURL, nats.Name("depthcloud"))
		if err != nil {
			return errors.Wrap(err, "cannot connect to NATS")
		}
		defer utils.UncheckedErrorFunc(conn.Drain)
		ports = natspub.New(conn, argsParsed.Subject, logger)
	} else {
		if err := os.MkdirAll(argsParsed.OutDir, 0o750); err != nil {
			return err
		}
		fp := &filePorts{dir: argsParsed.OutDir, las: argsParsed.LAS}
		ports = publisher.Ports{
			Depth:       fp,
			Convergence: fp,
			Cloud:       &fileCloudPort{filePorts: fp, name: "pointcloud"},
			CloudRGB:    &fileCloudPort{filePorts: fp, name: "pointcloud_rgb"},
		}
	}

	pub := publisher.New(st, ports, logger)
	pub.PublishAll(ctx)
	pub.PublishConvergenceMap(ctx)
	logger.Infow("published frame", "width", dm.Width(), "height", dm.Height())
	return nil
}

// loadReference loads the reference image, or synthesizes a flat one when no
// path is given.
func loadReference(fn string, dm *rimage.DepthMap) (gray *image.Gray, colorImg *rimage.Image, err error) {
	if fn == "" {
		gray = image.NewGray(dm.Bounds())
		for i := range gray.Pix {
			gray.Pix[i] = 128
		}
		return gray, rimage.ConvertGrayToColor(gray), nil
	}

	//nolint:gosec
	f, err := os.Open(fn)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	img, err := png.Decode(f)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "cannot decode %q", fn)
	}
	if img.Bounds() != dm.Bounds() {
		return nil, nil, errors.Errorf("reference image and depth map dimensions don't match %v != %v",
			img.Bounds(), dm.Bounds())
	}
	colorImg = rimage.NewImageFromStdImage(img)
	return rimage.MakeGray(colorImg), colorImg, nil
}

// filePorts writes each channel to a file in the output directory.
type filePorts struct {
	dir string
	las bool
}

func (fp *filePorts) Ready() bool { return true }

func (fp *filePorts) PublishDepth(ctx context.Context, msg publisher.StampedDepth) error {
	if err := msg.Depth.WriteToFile(filepath.Join(fp.dir, "depth.dat")); err != nil {
		return err
	}
	return rimage.WriteImageToFile(filepath.Join(fp.dir, "depth.png"), msg.Depth.ToGray16Picture())
}

func (fp *filePorts) PublishImage(ctx context.Context, msg publisher.StampedImage) error {
	return msg.Image.WriteTo(filepath.Join(fp.dir, "convergence.png"))
}

type fileCloudPort struct {
	*filePorts
	name string
}

func (fp *fileCloudPort) PublishCloud(ctx context.Context, msg publisher.StampedCloud) (err error) {
	//nolint:gosec
	f, err := os.Create(filepath.Join(fp.dir, fp.name+".pcd"))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	if err := pointcloud.ToPCD(msg.Cloud, f, pointcloud.PCDAscii); err != nil {
		return err
	}
	if fp.las && msg.Cloud.MetaData().HasColor {
		return pointcloud.WriteToLASFile(msg.Cloud, filepath.Join(fp.dir, fp.name+".las"))
	}
	return nil
}
