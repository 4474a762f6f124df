package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"strings"
	"testing"
)

func TestRender_FoodTint(t *testing.T) {
	frame := createInMemoryImage(60, 60, color.RGBA{0, 0, 255, 255})
	food := NewMask(60, 60)
	food.Set(30, 30, true)

	out := Render(frame, Annotation{Food: food})

	tinted := out.NRGBAAt(30, 30)
	// 0.7·blue + 0.3·red
	if tinted.R < 70 || tinted.R > 85 || tinted.B < 170 || tinted.B > 185 {
		t.Errorf("tinted pixel: got %v, want ≈(77,0,178)", tinted)
	}
	plain := out.NRGBAAt(10, 50)
	if plain.R > 1 || plain.B < 253 {
		t.Errorf("untouched pixel: got %v, want pure blue", plain)
	}
}

func TestRender_Boundary(t *testing.T) {
	frame := createInMemoryImage(100, 100, color.Black)
	e := Circle(50, 50, 30)

	out := Render(frame, Annotation{Boundary: &e})

	onRing := out.NRGBAAt(80, 50)
	if onRing != BoundaryColor {
		t.Errorf("pixel on the ring: got %v, want %v", onRing, BoundaryColor)
	}
	center := out.NRGBAAt(50, 50)
	if center.R != 0 || center.G != 0 || center.B != 0 {
		t.Errorf("center pixel: got %v, want black", center)
	}
}

func TestRender_Text(t *testing.T) {
	frame := createInMemoryImage(200, 80, color.Black)

	out := Render(frame, Annotation{Lines: []string{"Fill: 25.0%"}})

	lit := 0
	for y := hudTop - 13; y <= hudTop; y++ {
		for x := hudLeft; x < hudLeft+80; x++ {
			if out.NRGBAAt(x, y).R > 0 {
				lit++
			}
		}
	}
	if lit == 0 {
		t.Error("HUD text should light up pixels near the first baseline")
	}
}

func TestRender_DoesNotMutateFrame(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 20, 20))
	food := NewMask(20, 20)
	food.Set(5, 5, true)
	Render(src, Annotation{Food: food, Lines: []string{"x"}})
	if src.NRGBAAt(5, 5).R != 0 {
		t.Error("Render should draw on a copy")
	}
}

func TestEncodeJPEGDataURL(t *testing.T) {
	img := createInMemoryImage(32, 24, color.RGBA{200, 100, 50, 255})

	url, err := EncodeJPEGDataURL(img, 85)
	if err != nil {
		t.Fatalf("EncodeJPEGDataURL failed: %v", err)
	}
	const prefix = "data:image/jpeg;base64,"
	if !strings.HasPrefix(url, prefix) {
		t.Fatalf("missing data URL prefix: %.30s", url)
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, prefix))
	if err != nil {
		t.Fatalf("invalid base64: %v", err)
	}
	decoded, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("invalid jpeg: %v", err)
	}
	if decoded.Bounds().Dx() != 32 || decoded.Bounds().Dy() != 24 {
		t.Errorf("decoded size: got %v", decoded.Bounds())
	}
}

func TestDownscale(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		maxDim        int
		wantW, wantH  int
		wantScale     float64
	}{
		{"within limit", 300, 200, 640, 300, 200, 1},
		{"disabled", 2000, 1000, 0, 2000, 1000, 1},
		{"landscape", 1280, 720, 640, 640, 360, 0.5},
		{"portrait", 600, 1200, 300, 150, 300, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := image.NewNRGBA(image.Rect(0, 0, tt.width, tt.height))
			out, scale := Downscale(img, tt.maxDim)
			if out.Bounds().Dx() != tt.wantW || out.Bounds().Dy() != tt.wantH {
				t.Errorf("size: got %dx%d, want %dx%d", out.Bounds().Dx(), out.Bounds().Dy(), tt.wantW, tt.wantH)
			}
			if scale != tt.wantScale {
				t.Errorf("scale: got %f, want %f", scale, tt.wantScale)
			}
		})
	}
}
