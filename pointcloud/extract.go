package pointcloud

// NoReturnSentinel is the coordinate value a depth sensor writes for a sample
// that produced no return. A sample with any coordinate equal to it is
// dropped during extraction, which also drops genuine samples lying exactly on
// one of the coordinate planes through the sensor origin.
const NoReturnSentinel = 0

// FromBuffers builds a point cloud from the flat position and color buffers
// delivered by a depth sensor. Both buffers hold 3 values per sample. Samples
// that carry the no return sentinel on any axis are dropped; the survivors
// keep their relative order. Buffers shorter than 3*numPoints are clamped to
// the samples they hold and missing colors read as black.
func FromBuffers(numPoints int, positions, colors []float32) PointCloud {
	if numPoints < 0 {
		numPoints = 0
	}
	if available := len(positions) / 3; available < numPoints {
		numPoints = available
	}

	cloud := NewWithPrealloc(numPoints)
	for i := 0; i < numPoints; i++ {
		x, y, z := positions[3*i], positions[3*i+1], positions[3*i+2]
		if x == NoReturnSentinel || y == NoReturnSentinel || z == NoReturnSentinel {
			continue
		}
		var c Color
		if 3*i+2 < len(colors) {
			c = Color{R: float64(colors[3*i]), G: float64(colors[3*i+1]), B: float64(colors[3*i+2])}
		}
		cloud.Append(NewColoredPoint(float64(x), float64(y), float64(z), c))
	}
	return cloud
}

// ToBuffers flattens a cloud back into position and color buffers. It is the
// inverse of FromBuffers for clouds without sentinel samples.
func ToBuffers(cloud PointCloud) (positions, colors []float32) {
	positions = make([]float32, 0, 3*cloud.Size())
	colors = make([]float32, 0, 3*cloud.Size())
	cloud.Iterate(func(_ int, p Point) bool {
		positions = append(positions, float32(p.Position.X), float32(p.Position.Y), float32(p.Position.Z))
		colors = append(colors, float32(p.Color.R), float32(p.Color.G), float32(p.Color.B))
		return true
	})
	return positions, colors
}
