package pipeline

import (
	"math"

	"github.com/recastvideo/recast/internal/video"
)

// poseRenderMinConfidence drops joints the detector was not sure about
// from the rendered skeleton.
const poseRenderMinConfidence = 0.2

// cocoLimbs are the joint index pairs drawn as skeleton limbs, following
// the standard COCO layout.
var cocoLimbs = [][2]int{
	{5, 7}, {7, 9}, // left arm
	{6, 8}, {8, 10}, // right arm
	{5, 6},            // shoulders
	{5, 11}, {6, 12}, // torso
	{11, 12},           // hips
	{11, 13}, {13, 15}, // left leg
	{12, 14}, {14, 16}, // right leg
	{0, 5}, {0, 6}, // head to shoulders
}

// RenderPoseImage rasterises keypoints into a white-on-black skeleton
// control image for the synthesizer: joints as filled discs, limbs as
// lines between confident joints.
func RenderPoseImage(pose video.Keypoints, width, height int) *video.Frame {
	img := video.NewFrame(width, height)

	confident := func(i int) bool {
		return i < len(pose) && pose[i].Confidence >= poseRenderMinConfidence
	}

	for _, limb := range cocoLimbs {
		a, b := limb[0], limb[1]
		if !confident(a) || !confident(b) {
			continue
		}
		drawLine(img, pose[a].X, pose[a].Y, pose[b].X, pose[b].Y)
	}
	for i := range pose {
		if confident(i) {
			drawDisc(img, pose[i].X, pose[i].Y, 3)
		}
	}
	return img
}

func drawLine(img *video.Frame, x0, y0, x1, y1 float64) {
	steps := int(math.Hypot(x1-x0, y1-y0)) + 1
	for s := 0; s <= steps; s++ {
		t := float64(s) / float64(steps)
		x := int(x0 + t*(x1-x0) + 0.5)
		y := int(y0 + t*(y1-y0) + 0.5)
		img.SetRGB(x, y, 255, 255, 255)
	}
}

func drawDisc(img *video.Frame, cx, cy float64, r int) {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy > r*r {
				continue
			}
			img.SetRGB(int(cx)+dx, int(cy)+dy, 255, 255, 255)
		}
	}
}
