//go:build gocv

// Command plate-fill-cam measures plate fill live from a webcam.
//
// Keys: p plate, b bowl, a auto, d toggle food-mask view, q or Esc quit.
package main

import (
	"flag"
	"fmt"
	"image"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/hybridgroup/mjpeg"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	"gocv.io/x/gocv"

	"github.com/ironsheep/plate-fill-mcp/internal/config"
	"github.com/ironsheep/plate-fill-mcp/internal/detection"
	"github.com/ironsheep/plate-fill-mcp/internal/imaging"
	"github.com/ironsheep/plate-fill-mcp/internal/log"
	"github.com/ironsheep/plate-fill-mcp/internal/measure"
)

const keyEsc = 27

func main() {
	device := flag.Int("device", 0, "Video capture device index")
	configFile := flag.String("config", "", "Path to pipeline YAML config (default $PLATE_FILL_CONFIG)")
	mjpegPort := flag.Int("mjpeg-port", 0, "Also serve the overlay as MJPEG on this port (0 disables)")
	flag.Parse()

	log.InitFromEnv()
	log.Info("opencv", "gocv", gocv.Version(), "opencv", gocv.OpenCVVersion())

	cfg, err := config.Resolve(*configFile)
	if err != nil {
		log.Error("configuration error", "error", err)
		os.Exit(1)
	}
	if err := run(cfg, *device, *mjpegPort); err != nil {
		log.Error("camera loop stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, device, mjpegPort int) error {
	strategies := append([]detection.Strategy{detection.DefaultOpenCVHough()}, detection.DefaultStrategies(cfg.Detection)...)
	p, err := measure.New(cfg)
	if err != nil {
		return err
	}
	p = p.WithLocator(detection.NewLocator(cfg.Detection, strategies...))

	webcam, err := gocv.VideoCaptureDevice(device)
	if err != nil {
		return errors.Wrapf(err, "can't open video capture device %d", device)
	}
	defer webcam.Close()

	window := gocv.NewWindow("plate-fill")
	defer window.Close()

	var stream *mjpeg.Stream
	if mjpegPort > 0 {
		stream = startMJPEGStream(mjpegPort)
	}

	frame := gocv.NewMat()
	defer frame.Close()

	var state detection.SmoothingState
	scale := cfg.Scale
	showMask := false
	fmt.Println("Keys: p plate, b bowl, a auto, d mask view, q/Esc quit")

	for {
		if ok := webcam.Read(&frame); !ok {
			return errors.New("can't read next frame")
		}
		if frame.Empty() {
			continue
		}
		img, err := frame.ToImage()
		if err != nil {
			log.Warn("can't convert frame", "error", err)
			continue
		}

		res, err := p.WithScale(scale).Measure(img, &state)
		if err != nil && !errors.Is(err, measure.ErrNoUtensil) && !errors.Is(err, measure.ErrDegenerateInterior) {
			log.Warn("measure failed", "error", err)
			continue
		}

		var view image.Image = imaging.Render(img, res.Annotation())
		if showMask && res.Food != nil {
			view = res.Food.Gray()
		}
		if err := show(window, stream, view); err != nil {
			log.Warn("can't display frame", "error", err)
		}

		switch key := window.WaitKey(1); key {
		case 'p':
			scale.Kind = config.KindPlate
			state.Reset()
		case 'b':
			scale.Kind = config.KindBowl
			state.Reset()
		case 'a':
			scale.Kind = config.KindAuto
			state.Reset()
		case 'd':
			showMask = !showMask
		case 'q', keyEsc:
			return nil
		}
	}
}

func show(window *gocv.Window, stream *mjpeg.Stream, view image.Image) error {
	mat, err := gocv.ImageToMatRGB(view)
	if err != nil {
		return err
	}
	defer mat.Close()
	window.IMShow(mat)

	if stream != nil {
		jpeg, err := imaging.EncodeJPEG(view, 85)
		if err != nil {
			return err
		}
		stream.UpdateJPEG(jpeg)
	}
	return nil
}

// startMJPEGStream serves the overlay stream in a separate goroutine.
func startMJPEGStream(port int) *mjpeg.Stream {
	stream := mjpeg.NewStream()

	go func() {
		log.Info("starting MJPEG stream", "url", fmt.Sprintf("http://localhost:%d/", port))

		router := mux.NewRouter()
		router.Handle("/", stream)
		c := cors.New(cors.Options{AllowedOrigins: []string{"*"}})

		if err := http.ListenAndServe(fmt.Sprintf("0.0.0.0:%d", port), c.Handler(router)); err != nil {
			log.Error("MJPEG server stopped", "error", err)
		}
	}()
	return stream
}
