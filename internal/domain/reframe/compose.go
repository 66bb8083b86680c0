package reframe

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

const (
	DefaultBlurSigma   = 24.0
	DefaultJPEGQuality = 90
)

// FramePattern is the printf pattern of composited frame files, usable as an
// ffmpeg image2 input.
const FramePattern = "%06d.jpg"

// Compositor renders per-frame reframing decisions into JPEG frames.
type Compositor struct {
	BlurSigma   float64
	JPEGQuality int
}

type Stats struct {
	Frames  int
	Cropped int
	Resized int
	Skipped int
}

// Render composes each frame in order and writes it to outDir at exactly the
// target size. Frames that cannot be decoded are skipped; output numbering
// stays contiguous.
func (c Compositor) Render(ctx context.Context, frames []string, cands [][]Candidate, target Aspect, outDir string) (Stats, error) {
	sigma := c.BlurSigma
	if sigma <= 0 {
		sigma = DefaultBlurSigma
	}
	quality := c.JPEGQuality
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Stats{}, err
	}
	var st Stats
	for i, path := range frames {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		img, err := imaging.Open(path)
		if err != nil {
			st.Skipped++
			continue
		}
		var frameCands []Candidate
		if i < len(cands) {
			frameCands = cands[i]
		}

		var out *image.NRGBA
		if best, ok := Select(frameCands); ok {
			out = composeCrop(img, target, best)
			st.Cropped++
		} else {
			out = composeResize(img, target, sigma)
			st.Resized++
		}

		dst := filepath.Join(outDir, fmt.Sprintf(FramePattern, st.Frames+1))
		if err := imaging.Save(out, dst, imaging.JPEGQuality(quality)); err != nil {
			return st, fmt.Errorf("save frame %d: %w", i, err)
		}
		st.Frames++
	}
	return st, nil
}

func composeCrop(img image.Image, target Aspect, c Candidate) *image.NRGBA {
	plan := PlanCrop(img.Bounds().Size(), target, c.X, c.Y)
	scaled := imaging.Resize(img, plan.Scaled.X, plan.Scaled.Y, imaging.Lanczos)
	rect := image.Rect(plan.Origin.X, plan.Origin.Y, plan.Origin.X+target.Width, plan.Origin.Y+target.Height)
	return imaging.Crop(scaled, rect)
}

func composeResize(img image.Image, target Aspect, sigma float64) *image.NRGBA {
	plan := PlanResize(img.Bounds().Size(), target)
	bg := imaging.Resize(img, plan.Bg.X, plan.Bg.Y, imaging.Box)
	bg = imaging.Blur(bg, sigma)
	bg = imaging.Crop(bg, image.Rect(plan.BgCut.X, plan.BgCut.Y, plan.BgCut.X+target.Width, plan.BgCut.Y+target.Height))
	fg := imaging.Resize(img, plan.Fg.X, plan.Fg.Y, imaging.Lanczos)
	return imaging.Paste(bg, fg, plan.FgAt)
}
