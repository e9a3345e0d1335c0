package pointcloud

import (
	"github.com/golang/geo/r3"
)

// storage is a buffer of points and associated data.
type storage interface {
	Size() int
	Set(p r3.Vector, d Data) error
	At(x, y, z float64) (Data, bool)
	Iterate(numBatches, myBatch int, fn func(p r3.Vector, d Data) bool)
}

// matrixStorage keeps points in insertion order in a slice, with a position
// index for lookups.
type matrixStorage struct {
	points   []PointAndData
	indexMap map[r3.Vector]uint
}

func (ms *matrixStorage) Size() int {
	return len(ms.points)
}

func (ms *matrixStorage) Set(p r3.Vector, d Data) error {
	if i, found := ms.indexMap[p]; found {
		ms.points[i].D = d
		return nil
	}
	ms.indexMap[p] = uint(len(ms.points))
	ms.points = append(ms.points, PointAndData{P: p, D: d})
	return nil
}

func (ms *matrixStorage) At(x, y, z float64) (Data, bool) {
	i, found := ms.indexMap[r3.Vector{X: x, Y: y, Z: z}]
	if !found {
		return nil, false
	}
	return ms.points[i].D, true
}

func (ms *matrixStorage) Iterate(numBatches, myBatch int, fn func(p r3.Vector, d Data) bool) {
	if numBatches <= 0 {
		for _, pd := range ms.points {
			if !fn(pd.P, pd.D) {
				return
			}
		}
		return
	}
	batchSize := (len(ms.points) + numBatches - 1) / numBatches
	start := myBatch * batchSize
	end := start + batchSize
	if end > len(ms.points) {
		end = len(ms.points)
	}
	if start >= end {
		return
	}
	for _, pd := range ms.points[start:end] {
		if !fn(pd.P, pd.D) {
			return
		}
	}
}
