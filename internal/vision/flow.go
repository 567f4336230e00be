package vision

import "math"

// Lucas-Kanade tracking parameters.
const (
	lkWindowRadius  = 10   // half-width of the tracking window
	lkMaxIterations = 20   // refinement iterations per pyramid level
	lkEpsilon       = 0.01 // convergence threshold in pixels
	lkPyramidLevels = 3
	lkMinEigenvalue = 1e-4 // reject untrackable (flat) windows

	// denseFlowStep is the grid spacing at which sparse flow is sampled
	// before interpolation to a per-pixel field.
	denseFlowStep = 8
)

// pyramid builds a coarse-to-fine stack of downsampled planes,
// level 0 being full resolution.
func pyramid(g *Gray, levels int) []*Gray {
	pyr := make([]*Gray, 0, levels)
	cur := g
	for i := 0; i < levels; i++ {
		pyr = append(pyr, cur)
		if cur.Width < 2*lkWindowRadius+2 || cur.Height < 2*lkWindowRadius+2 {
			break
		}
		cur = cur.Blur(3).Downsample()
	}
	return pyr
}

// lkStep refines a displacement estimate for a single point at one
// pyramid level using iterative Lucas-Kanade. Returns the refined
// displacement and whether the window was trackable.
func lkStep(prev, curr *Gray, px, py, dx, dy float64) (float64, float64, bool) {
	// Spatial gradients of the previous frame around the point.
	n := 2*lkWindowRadius + 1
	ix := make([]float64, n*n)
	iy := make([]float64, n*n)
	iv := make([]float64, n*n)
	var gxx, gxy, gyy float64
	idx := 0
	for wy := -lkWindowRadius; wy <= lkWindowRadius; wy++ {
		for wx := -lkWindowRadius; wx <= lkWindowRadius; wx++ {
			x := px + float64(wx)
			y := py + float64(wy)
			ix[idx] = (prev.Bilinear(x+1, y) - prev.Bilinear(x-1, y)) / 2
			iy[idx] = (prev.Bilinear(x, y+1) - prev.Bilinear(x, y-1)) / 2
			iv[idx] = prev.Bilinear(x, y)
			gxx += ix[idx] * ix[idx]
			gxy += ix[idx] * iy[idx]
			gyy += iy[idx] * iy[idx]
			idx++
		}
	}

	det := gxx*gyy - gxy*gxy
	tr := gxx + gyy
	minEig := (tr - math.Sqrt(tr*tr-4*det)) / 2
	if minEig < lkMinEigenvalue*float64(n*n) {
		return dx, dy, false
	}

	for iter := 0; iter < lkMaxIterations; iter++ {
		var bx, by float64
		idx = 0
		for wy := -lkWindowRadius; wy <= lkWindowRadius; wy++ {
			for wx := -lkWindowRadius; wx <= lkWindowRadius; wx++ {
				diff := curr.Bilinear(px+float64(wx)+dx, py+float64(wy)+dy) - iv[idx]
				bx += diff * ix[idx]
				by += diff * iy[idx]
				idx++
			}
		}
		// Solve the 2x2 normal equations for the update.
		ux := -(gyy*bx - gxy*by) / det
		uy := -(gxx*by - gxy*bx) / det
		dx += ux
		dy += uy
		if math.Hypot(ux, uy) < lkEpsilon {
			break
		}
	}
	return dx, dy, true
}

// trackPoint runs pyramidal LK for one point and reports the landing
// position in curr, or ok=false if the track failed.
func trackPoint(prevPyr, currPyr []*Gray, p Point) (Point, bool) {
	levels := len(prevPyr)
	if len(currPyr) < levels {
		levels = len(currPyr)
	}
	scale := math.Pow(2, float64(levels-1))
	dx, dy := 0.0, 0.0
	tracked := false
	for lv := levels - 1; lv >= 0; lv-- {
		px := p.X / scale
		py := p.Y / scale
		var ok bool
		dx, dy, ok = lkStep(prevPyr[lv], currPyr[lv], px, py, dx, dy)
		if ok {
			tracked = true
		}
		if lv > 0 {
			dx *= 2
			dy *= 2
			scale /= 2
		}
	}
	if !tracked {
		return p, false
	}
	out := Point{X: p.X + dx, Y: p.Y + dy}
	// Tracks that leave the frame are failures.
	w := float64(prevPyr[0].Width)
	h := float64(prevPyr[0].Height)
	if out.X < 0 || out.X >= w || out.Y < 0 || out.Y >= h {
		return p, false
	}
	return out, true
}

// TrackFeatures tracks each point from prev into curr with pyramidal
// Lucas-Kanade optical flow.
func (pureEngine) TrackFeatures(prev, curr *Gray, pts []Point) ([]Point, []bool) {
	prevPyr := pyramid(prev, lkPyramidLevels)
	currPyr := pyramid(curr, lkPyramidLevels)
	tracked := make([]Point, len(pts))
	status := make([]bool, len(pts))
	for i, p := range pts {
		tracked[i], status[i] = trackPoint(prevPyr, currPyr, p)
	}
	return tracked, status
}

// DenseFlow estimates a per-pixel displacement field by tracking a
// regular grid of points and bilinearly interpolating the sparse results.
// Failed grid tracks contribute zero motion.
func (e pureEngine) DenseFlow(prev, curr *Gray) *FlowField {
	w, h := prev.Width, prev.Height
	flow := NewFlowField(w, h)

	gw := (w + denseFlowStep - 1) / denseFlowStep
	gh := (h + denseFlowStep - 1) / denseFlowStep
	if gw < 2 || gh < 2 {
		return flow
	}

	gridDX := make([]float64, gw*gh)
	gridDY := make([]float64, gw*gh)

	prevPyr := pyramid(prev, lkPyramidLevels)
	currPyr := pyramid(curr, lkPyramidLevels)
	for gy := 0; gy < gh; gy++ {
		for gx := 0; gx < gw; gx++ {
			p := Point{X: float64(gx * denseFlowStep), Y: float64(gy * denseFlowStep)}
			if p.X >= float64(w) {
				p.X = float64(w - 1)
			}
			if p.Y >= float64(h) {
				p.Y = float64(h - 1)
			}
			t, ok := trackPoint(prevPyr, currPyr, p)
			if ok {
				gridDX[gy*gw+gx] = t.X - p.X
				gridDY[gy*gw+gx] = t.Y - p.Y
			}
		}
	}

	gridAt := func(g []float64, x, y int) float64 {
		if x < 0 {
			x = 0
		} else if x >= gw {
			x = gw - 1
		}
		if y < 0 {
			y = 0
		} else if y >= gh {
			y = gh - 1
		}
		return g[y*gw+x]
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			fx := float64(x) / denseFlowStep
			fy := float64(y) / denseFlowStep
			x0 := int(fx)
			y0 := int(fy)
			ax := fx - float64(x0)
			ay := fy - float64(y0)
			i := y*w + x
			flow.DX[i] = (1-ay)*((1-ax)*gridAt(gridDX, x0, y0)+ax*gridAt(gridDX, x0+1, y0)) +
				ay*((1-ax)*gridAt(gridDX, x0, y0+1)+ax*gridAt(gridDX, x0+1, y0+1))
			flow.DY[i] = (1-ay)*((1-ax)*gridAt(gridDY, x0, y0)+ax*gridAt(gridDY, x0+1, y0)) +
				ay*((1-ax)*gridAt(gridDY, x0, y0+1)+ax*gridAt(gridDY, x0+1, y0+1))
		}
	}
	return flow
}
