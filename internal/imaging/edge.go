package imaging

import (
	"fmt"
	"image"
	"math"

	"github.com/anthonynsimon/bild/convolution"
	"github.com/anthonynsimon/bild/effect"
)

// EdgeMap is the output of Canny edge detection.
//
// Edge marks thinned, hysteresis-accepted edge pixels. GX and GY hold the
// Sobel gradient of the blurred intensity (0-1 scale) at every pixel and are
// kept because the circle Hough votes along the gradient direction.
type EdgeMap struct {
	Width  int
	Height int
	Edge   []bool
	GX     []float64
	GY     []float64
}

// At reports whether (x, y) is an edge pixel.
func (e *EdgeMap) At(x, y int) bool {
	if x < 0 || y < 0 || x >= e.Width || y >= e.Height {
		return false
	}
	return e.Edge[y*e.Width+x]
}

// Count returns the number of edge pixels.
func (e *EdgeMap) Count() int {
	n := 0
	for _, b := range e.Edge {
		if b {
			n++
		}
	}
	return n
}

// Mask returns the edge pixels as a Mask.
func (e *EdgeMap) Mask() *Mask {
	m := NewMask(e.Width, e.Height)
	copy(m.Bits, e.Edge)
	return m
}

// EdgeDetectResult contains an edge-detected image encoded as base64 PNG.
//
// The result is a grayscale image where white pixels (255) represent detected
// edges and black pixels (0) represent non-edges.
type EdgeDetectResult struct {
	// Width of the output image in pixels (same as input).
	Width int `json:"width"`

	// Height of the output image in pixels (same as input).
	Height int `json:"height"`

	// EdgePixels is the number of accepted edge pixels.
	EdgePixels int `json:"edge_pixels"`

	// ImageBase64 is the edge image encoded as base64 PNG.
	ImageBase64 string `json:"image_base64"`

	// MimeType is always "image/png" for edge detection results.
	MimeType string `json:"mime_type"`
}

// EdgeDetect runs Canny and encodes the edge map as a PNG for inspection.
//
// This is the same detector the utensil locator uses, exposed so a caller can
// see why a frame did or did not yield a boundary.
func EdgeDetect(img image.Image, thresholdLow, thresholdHigh int, sigma float64) (*EdgeDetectResult, error) {
	edges := Canny(img, thresholdLow, thresholdHigh, sigma)
	encoded, err := EncodePNGBase64(edges.Mask().Gray())
	if err != nil {
		return nil, fmt.Errorf("failed to encode edge image: %w", err)
	}
	return &EdgeDetectResult{
		Width:       edges.Width,
		Height:      edges.Height,
		EdgePixels:  edges.Count(),
		ImageBase64: encoded,
		MimeType:    "image/png",
	}, nil
}

// Canny performs Canny-style edge detection on an image.
//
// Parameters:
//   - img: Source image (color or grayscale).
//   - thresholdLow: Low hysteresis threshold (0-255 scale of gradient magnitude).
//   - thresholdHigh: High hysteresis threshold (0-255 scale).
//   - sigma: Gaussian blur radius applied before differentiation; 0 disables blur.
//
// # Algorithm
//
//  1. Grayscale conversion (bild effect.Grayscale)
//
//  2. Gaussian blur (separable bild convolution, odd-length kernel) to
//     suppress low-gradient noise
//
//  3. Gradient computation: Sobel operators for X and Y gradients
//     magnitude = sqrt(Gx² + Gy²)
//     direction = atan2(Gy, Gx)
//
//  4. Non-maximum suppression: Thin edges to 1-pixel width by keeping only
//     local maxima in the gradient direction
//
//  5. Hysteresis thresholding:
//     - Pixels above thresholdHigh are strong edges (always kept)
//     - Pixels between thresholdLow and thresholdHigh are weak edges,
//     kept only when 8-connected (transitively) to a strong edge
//     - Pixels below thresholdLow are discarded
func Canny(img image.Image, thresholdLow, thresholdHigh int, sigma float64) *EdgeMap {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	gray := effect.Grayscale(img)
	var src image.Image = gray
	if sigma > 0 {
		src = gaussianBlur(gray, sigma)
	}
	intensity := intensityPlane(src, width, height)

	sobelX := [3][3]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY := [3][3]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}

	n := width * height
	gradX := make([]float64, n)
	gradY := make([]float64, n)
	magnitude := make([]float64, n)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					py := clamp(y+ky, 0, height-1)
					px := clamp(x+kx, 0, width-1)
					v := intensity[py*width+px]
					gx += v * sobelX[ky+1][kx+1]
					gy += v * sobelY[ky+1][kx+1]
				}
			}
			i := y*width + x
			gradX[i] = gx
			gradY[i] = gy
			magnitude[i] = math.Sqrt(gx*gx + gy*gy)
		}
	}

	// Non-maximum suppression
	suppressed := make([]float64, n)
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			i := y*width + x
			mag := magnitude[i]
			if mag == 0 {
				continue
			}
			angle := math.Atan2(gradY[i], gradX[i])

			var n1, n2 float64
			if (angle >= -math.Pi/8 && angle < math.Pi/8) || (angle >= 7*math.Pi/8 || angle < -7*math.Pi/8) {
				n1 = magnitude[i-1]
				n2 = magnitude[i+1]
			} else if (angle >= math.Pi/8 && angle < 3*math.Pi/8) || (angle >= -7*math.Pi/8 && angle < -5*math.Pi/8) {
				n1 = magnitude[i-width-1]
				n2 = magnitude[i+width+1]
			} else if (angle >= 3*math.Pi/8 && angle < 5*math.Pi/8) || (angle >= -5*math.Pi/8 && angle < -3*math.Pi/8) {
				n1 = magnitude[i-width]
				n2 = magnitude[i+width]
			} else {
				n1 = magnitude[i-width+1]
				n2 = magnitude[i+width-1]
			}

			// Ties go to the lower-index pixel so plateaus stay one pixel wide.
			if mag > n1 && mag >= n2 {
				suppressed[i] = mag
			}
		}
	}

	// Double threshold and edge tracking by hysteresis
	lowThresh := float64(thresholdLow) / 255.0
	highThresh := float64(thresholdHigh) / 255.0
	edges := make([]bool, n)
	stack := make([]int, 0, 1024)
	for i, v := range suppressed {
		if v >= highThresh && !edges[i] {
			edges[i] = true
			stack = append(stack, i)
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				px, py := p%width, p/width
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						qx, qy := px+dx, py+dy
						if qx < 0 || qy < 0 || qx >= width || qy >= height {
							continue
						}
						q := qy*width + qx
						if !edges[q] && suppressed[q] >= lowThresh {
							edges[q] = true
							stack = append(stack, q)
						}
					}
				}
			}
		}
	}

	return &EdgeMap{
		Width:  width,
		Height: height,
		Edge:   edges,
		GX:     gradX,
		GY:     gradY,
	}
}

// gaussianBlur applies bild's Gaussian falloff, exp(-x²/4σ), with a kernel
// of odd length 2·ceil(σ)+1 centered on the pixel. bild's own blur.Gaussian
// sizes the kernel as ceil(2σ+1), which is even for σ = 1.4 and shifts the
// result by half a pixel.
func gaussianBlur(img image.Image, sigma float64) image.Image {
	half := int(math.Ceil(sigma))
	k := convolution.NewKernel(2*half+1, 1)
	for i := range k.Matrix {
		x := float64(i - half)
		k.Matrix[i] = math.Exp(-x * x / 4 / sigma)
	}
	norm := k.Normalized()

	opts := convolution.Options{Bias: 0, Wrap: false, KeepAlpha: false}
	out := convolution.Convolve(img, norm, &opts)
	return convolution.Convolve(out, norm.Transposed(), &opts)
}

// intensityPlane reads the first channel of a grayscale-derived image into a
// 0-1 float plane.
func intensityPlane(img image.Image, width, height int) []float64 {
	plane := make([]float64, width*height)
	b := img.Bounds()
	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				plane[y*width+x] = float64(src.Pix[y*src.Stride+x]) / 255.0
			}
		}
	case *image.RGBA:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				plane[y*width+x] = float64(src.Pix[y*src.Stride+x*4]) / 255.0
			}
		}
	default:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				r, _, _, _ := img.At(x+b.Min.X, y+b.Min.Y).RGBA()
				plane[y*width+x] = float64(r>>8) / 255.0
			}
		}
	}
	return plane
}

// clamp constrains an integer value to the range [min, max].
// Used for boundary handling in convolution operations.
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
