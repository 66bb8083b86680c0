package reframe

import "image"

// ResizePlan letterboxes the whole frame over a blurred, cover-scaled copy.
type ResizePlan struct {
	Fg    image.Point // foreground size
	FgAt  image.Point // foreground offset on the canvas
	Bg    image.Point // background size before the centre crop
	BgCut image.Point // top-left of the centre crop
}

// CropPlan cover-scales the frame and cuts a window around the speaker.
type CropPlan struct {
	Scaled image.Point
	Origin image.Point
}

// PlanResize fits src inside target for the foreground and covers target
// with the background.
func PlanResize(src image.Point, target Aspect) ResizePlan {
	tw, th := target.Width, target.Height
	fit := min(float64(tw)/float64(src.X), float64(th)/float64(src.Y))
	cover := max(float64(tw)/float64(src.X), float64(th)/float64(src.Y))

	fg := image.Pt(min(int(float64(src.X)*fit), tw), min(int(float64(src.Y)*fit), th))
	bg := image.Pt(max(int(float64(src.X)*cover), tw), max(int(float64(src.Y)*cover), th))
	return ResizePlan{
		Fg:    fg,
		FgAt:  image.Pt((tw-fg.X)/2, (th-fg.Y)/2),
		Bg:    bg,
		BgCut: image.Pt((bg.X-tw)/2, (bg.Y-th)/2),
	}
}

// PlanCrop centres a target-sized window on the face at (x, y) in source
// pixels, clamped to the scaled frame.
func PlanCrop(src image.Point, target Aspect, x, y float64) CropPlan {
	tw, th := target.Width, target.Height
	scale := max(float64(tw)/float64(src.X), float64(th)/float64(src.Y))
	scaled := image.Pt(max(int(float64(src.X)*scale), tw), max(int(float64(src.Y)*scale), th))

	cx := int(x * scale)
	cy := int(y * scale)
	return CropPlan{
		Scaled: scaled,
		Origin: image.Pt(clamp(cx-tw/2, 0, scaled.X-tw), clamp(cy-th/2, 0, scaled.Y-th)),
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
