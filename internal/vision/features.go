package vision

import (
	"math"
	"sort"
)

// featureBorderMargin keeps detected corners away from the frame edge so
// their tracking windows stay inside the image.
const featureBorderMargin = 8

type scoredPoint struct {
	p     Point
	score float64
}

// GoodFeatures implements Shi-Tomasi corner detection: the minimum
// eigenvalue of the windowed structure tensor, thresholded at a fraction
// of the strongest response, with greedy minimum-distance suppression.
func (e pureEngine) GoodFeatures(g *Gray, maxCorners int, quality float64, minDistance int) []Point {
	if g.Width < 2*featureBorderMargin || g.Height < 2*featureBorderMargin {
		return nil
	}
	gx, gy := g.gradients()

	// Structure tensor summed over a 3x3 window.
	score := make([]float64, g.Width*g.Height)
	maxScore := 0.0
	for y := featureBorderMargin; y < g.Height-featureBorderMargin; y++ {
		for x := featureBorderMargin; x < g.Width-featureBorderMargin; x++ {
			var sxx, sxy, syy float64
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					ix := gx.At(x+dx, y+dy)
					iy := gy.At(x+dx, y+dy)
					sxx += ix * ix
					sxy += ix * iy
					syy += iy * iy
				}
			}
			// Minimum eigenvalue of [[sxx, sxy], [sxy, syy]].
			tr := sxx + syy
			det := math.Sqrt((sxx-syy)*(sxx-syy) + 4*sxy*sxy)
			score[y*g.Width+x] = (tr - det) / 2
			if score[y*g.Width+x] > maxScore {
				maxScore = score[y*g.Width+x]
			}
		}
	}
	if maxScore <= 0 {
		return nil
	}

	threshold := quality * maxScore
	candidates := make([]scoredPoint, 0, 256)
	for y := featureBorderMargin; y < g.Height-featureBorderMargin; y++ {
		for x := featureBorderMargin; x < g.Width-featureBorderMargin; x++ {
			s := score[y*g.Width+x]
			if s < threshold {
				continue
			}
			// Local 3x3 non-max suppression.
			isMax := true
			for dy := -1; dy <= 1 && isMax; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					nx, ny := x+dx, y+dy
					if nx >= 0 && nx < g.Width && ny >= 0 && ny < g.Height && score[ny*g.Width+nx] > s {
						isMax = false
						break
					}
				}
			}
			if isMax {
				candidates = append(candidates, scoredPoint{p: Point{X: float64(x), Y: float64(y)}, score: s})
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	minDistSq := float64(minDistance * minDistance)
	out := make([]Point, 0, maxCorners)
	for _, c := range candidates {
		if len(out) >= maxCorners {
			break
		}
		ok := true
		for _, p := range out {
			dx := p.X - c.p.X
			dy := p.Y - c.p.Y
			if dx*dx+dy*dy < minDistSq {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, c.p)
		}
	}
	return out
}
