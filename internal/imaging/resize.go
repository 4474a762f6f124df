package imaging

import (
	"image"

	"github.com/disintegration/imaging"
)

// Downscale shrinks img so that neither side exceeds maxDim.
//
// It returns the (possibly unchanged) image and the scale factor applied
// (resized / original). Images already within the limit, or a maxDim <= 0,
// are returned untouched with a factor of 1.
func Downscale(img image.Image, maxDim int) (image.Image, float64) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return img, 1.0
	}
	resized := imaging.Fit(img, maxDim, maxDim, imaging.Linear)
	return resized, float64(resized.Bounds().Dx()) / float64(w)
}
