package pointcloud

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// PCDType is the format of a pcd file.
type PCDType int

const (
	// PCDAscii ascii format for pcd.
	PCDAscii PCDType = 0
	// PCDBinary binary format for pcd.
	PCDBinary PCDType = 1
)

// PackRGB packs 8-bit color channels into the low 24 bits of a uint32, red in
// the highest of the three bytes.
func PackRGB(r, g, b uint8) uint32 {
	return uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

// UnpackRGB recovers the channels packed by PackRGB.
func UnpackRGB(rgb uint32) (r, g, b uint8) {
	return uint8(rgb >> 16), uint8(rgb >> 8), uint8(rgb)
}

// ToPCD writes the cloud to the given writer as a PCD. Clouds with color get
// an "rgb" field carrying the packed 24-bit color; clouds with values get an
// "intensity" field instead.
func ToPCD(cloud PointCloud, out io.Writer, outputType PCDType) error {
	meta := cloud.MetaData()

	var fields, types string
	switch {
	case meta.HasColor:
		fields, types = "x y z rgb", "F F F I"
	case meta.HasValue:
		fields, types = "x y z intensity", "F F F F"
	default:
		fields, types = "x y z", "F F F"
	}

	var dataType string
	switch outputType {
	case PCDAscii:
		dataType = "ascii"
	case PCDBinary:
		dataType = "binary"
	default:
		return errors.Errorf("unknown pcd type %d", outputType)
	}

	nFields := 3
	if meta.HasColor || meta.HasValue {
		nFields = 4
	}
	sizes := "4 4 4"
	counts := "1 1 1"
	if nFields == 4 {
		sizes = "4 4 4 4"
		counts = "1 1 1 1"
	}

	w := bufio.NewWriter(out)
	_, err := fmt.Fprintf(w, "VERSION .7\n"+
		"FIELDS %s\n"+
		"SIZE %s\n"+
		"TYPE %s\n"+
		"COUNT %s\n"+
		"WIDTH %d\n"+
		"HEIGHT 1\n"+
		"VIEWPOINT 0 0 0 1 0 0 0\n"+
		"POINTS %d\n"+
		"DATA %s\n",
		fields, sizes, types, counts, cloud.Size(), cloud.Size(), dataType)
	if err != nil {
		return err
	}

	cloud.Iterate(0, 0, func(p r3.Vector, d Data) bool {
		switch outputType {
		case PCDAscii:
			err = writePointASCII(w, meta, p, d)
		case PCDBinary:
			err = writePointBinary(w, meta, p, d)
		}
		return err == nil
	})
	if err != nil {
		return err
	}
	return w.Flush()
}

func writePointASCII(w io.Writer, meta MetaData, p r3.Vector, d Data) error {
	var err error
	switch {
	case meta.HasColor:
		var rgb uint32
		if d != nil && d.HasColor() {
			r, g, b := d.RGB255()
			rgb = PackRGB(r, g, b)
		}
		_, err = fmt.Fprintf(w, "%f %f %f %d\n", p.X, p.Y, p.Z, rgb)
	case meta.HasValue:
		var v float64
		if d != nil && d.HasValue() {
			v = float64(d.Value())
		}
		_, err = fmt.Fprintf(w, "%f %f %f %f\n", p.X, p.Y, p.Z, v)
	default:
		_, err = fmt.Fprintf(w, "%f %f %f\n", p.X, p.Y, p.Z)
	}
	return err
}

func writePointBinary(w io.Writer, meta MetaData, p r3.Vector, d Data) error {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(p.X)))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(p.Y)))
	binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(float32(p.Z)))
	n := 12
	switch {
	case meta.HasColor:
		var rgb uint32
		if d != nil && d.HasColor() {
			r, g, b := d.RGB255()
			rgb = PackRGB(r, g, b)
		}
		binary.LittleEndian.PutUint32(buf[12:], rgb)
		n = 16
	case meta.HasValue:
		var v float32
		if d != nil && d.HasValue() {
			v = float32(d.Value())
		}
		binary.LittleEndian.PutUint32(buf[12:], math.Float32bits(v))
		n = 16
	}
	_, err := w.Write(buf[:n])
	return err
}
