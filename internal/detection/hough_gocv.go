//go:build gocv

package detection

import (
	"math"

	"gocv.io/x/gocv"

	"github.com/ironsheep/plate-fill-mcp/internal/imaging"
)

// OpenCVHough detects circles with OpenCV's HoughCircles (HOUGH_GRADIENT).
// Available only when built with the gocv tag.
type OpenCVHough struct {
	// Param1 is the upper Canny threshold OpenCV uses internally.
	Param1 float64
	// Param2 is the accumulator threshold; lower finds more circles.
	Param2 float64
}

// DefaultOpenCVHough returns the parameters the camera loop uses.
func DefaultOpenCVHough() OpenCVHough {
	return OpenCVHough{Param1: 100, Param2: 40}
}

// Name implements Strategy.
func (OpenCVHough) Name() string { return "opencv-hough" }

// Detect implements Strategy.
func (o OpenCVHough) Detect(in Input) (Boundary, bool) {
	src, err := gocv.ImageToMatRGB(in.Image)
	if err != nil {
		return Boundary{}, false
	}
	defer src.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
	gocv.MedianBlur(gray, &gray, 5)

	circles := gocv.NewMat()
	defer circles.Close()
	minDist := math.Max(in.MinRadius, 1)
	gocv.HoughCirclesWithParams(gray, &circles, gocv.HoughGradient, 1.2, minDist,
		o.Param1, o.Param2, int(in.MinRadius), int(math.Ceil(in.MaxRadius)))

	width, height := in.Edges.Width, in.Edges.Height
	candidates := make([]Boundary, 0, circles.Cols())
	for i := 0; i < circles.Cols(); i++ {
		v := circles.GetVecfAt(0, i)
		c := imaging.Circle(float64(v[0]), float64(v[1]), float64(v[2]))
		if c.SemiMajor <= 0 || !c.Within(width, height) {
			continue
		}
		// OpenCV returns circles strongest first.
		candidates = append(candidates, Boundary{
			Ellipse: c,
			Score:   float64(circles.Cols() - i),
		})
	}
	return selectBest(candidates)
}
