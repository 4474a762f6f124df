package server

import (
	"encoding/json"
	"fmt"
	"image"
	"time"

	"github.com/pkg/errors"

	"github.com/ironsheep/plate-fill-mcp/internal/config"
	"github.com/ironsheep/plate-fill-mcp/internal/detection"
	"github.com/ironsheep/plate-fill-mcp/internal/imaging"
	"github.com/ironsheep/plate-fill-mcp/internal/log"
	"github.com/ironsheep/plate-fill-mcp/internal/measure"
	"github.com/ironsheep/plate-fill-mcp/internal/segmentation"
)

// overlayQuality is the JPEG quality of returned overlays.
const overlayQuality = 85

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "plate_measure").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
// A frame without a utensil is not a tool error: plate_measure reports it in
// the result so a client streaming frames can keep going.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		log.Warn("tool failed", "tool", params.Name, "error", err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	switch name {
	// Frame Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_edge_detect":
		return s.handleImageEdgeDetect(args)

	// Pipeline Stages
	case "plate_detect_utensil":
		return s.handleDetectUtensil(args)
	case "plate_sample_rim":
		return s.handleSampleRim(args)
	case "plate_measure":
		return s.handleMeasure(args)

	// Sessions
	case "plate_session_start":
		return s.handleSessionStart(args)
	case "plate_session_end":
		return s.handleSessionEnd(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Argument Helpers ===

type frameArgs struct {
	Path  string `json:"path"`
	Image string `json:"image"`
}

// loadFrame reads a frame from the cache by path, or decodes it inline.
func (s *Server) loadFrame(a frameArgs) (*image.NRGBA, error) {
	switch {
	case a.Path != "":
		return s.cache.Load(a.Path)
	case a.Image != "":
		img, err := imaging.DecodeBase64(a.Image)
		if err != nil {
			return nil, errors.Wrap(err, "bad image")
		}
		return img, nil
	default:
		return nil, errors.New("path or image is required")
	}
}

type radiusArgs struct {
	MinRadius int `json:"min_radius"`
	MaxRadius int `json:"max_radius"`
}

type scaleArgs struct {
	Utensil    string  `json:"utensil"`
	DiameterMM float64 `json:"diameter_mm"`
	HeightMM   float64 `json:"assumed_height_mm"`
	radiusArgs
}

// resolve overlays the non-zero arguments on base.
func (a scaleArgs) resolve(base config.ScaleContext) (config.ScaleContext, error) {
	sc := base
	if a.Utensil != "" {
		k, err := config.ParseKind(a.Utensil)
		if err != nil {
			return sc, err
		}
		sc.Kind = k
	}
	if a.DiameterMM != 0 {
		sc.DiameterMM = a.DiameterMM
	}
	if a.HeightMM != 0 {
		sc.HeightMM = a.HeightMM
	}
	if a.MinRadius != 0 {
		sc.MinRadius = a.MinRadius
	}
	if a.MaxRadius != 0 {
		sc.MaxRadius = a.MaxRadius
	}
	if err := sc.Validate(); err != nil {
		return sc, err
	}
	return sc, nil
}

type baseColorOutput struct {
	Lab           imaging.Lab `json:"lab"`
	Hex           string      `json:"hex"`
	Samples       int         `json:"samples"`
	LowConfidence bool        `json:"low_confidence"`
	Source        string      `json:"source"`
}

func newBaseColorOutput(b segmentation.BaseColor) *baseColorOutput {
	return &baseColorOutput{
		Lab:           b.Color,
		Hex:           b.Color.Hex(),
		Samples:       b.Samples,
		LowConfidence: b.LowConfidence,
		Source:        b.Source,
	}
}

// === Frame Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

type imageEdgeDetectArgs struct {
	Path          string  `json:"path"`
	ThresholdLow  int     `json:"threshold_low"`
	ThresholdHigh int     `json:"threshold_high"`
	Sigma         float64 `json:"sigma"`
}

func (s *Server) handleImageEdgeDetect(args json.RawMessage) (interface{}, error) {
	var a imageEdgeDetectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.ThresholdLow == 0 {
		a.ThresholdLow = s.cfg.Detection.CannyLow
	}
	if a.ThresholdHigh == 0 {
		a.ThresholdHigh = s.cfg.Detection.CannyHigh
	}
	if a.Sigma == 0 {
		a.Sigma = s.cfg.Detection.Sigma
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.EdgeDetect(img, a.ThresholdLow, a.ThresholdHigh, a.Sigma)
}

// === Pipeline Stage Handlers ===

type detectUtensilArgs struct {
	frameArgs
	radiusArgs
}

type detectUtensilOutput struct {
	Detected   bool                `json:"detected"`
	Boundary   *detection.Boundary `json:"boundary,omitempty"`
	Strategies []string            `json:"strategies"`
	Width      int                 `json:"width"`
	Height     int                 `json:"height"`
}

// locate runs the locator and folds ErrNoUtensil into a not-detected result.
func (s *Server) locate(a detectUtensilArgs) (*image.NRGBA, *detectUtensilOutput, error) {
	frame, err := s.loadFrame(a.frameArgs)
	if err != nil {
		return nil, nil, err
	}
	out := &detectUtensilOutput{
		Strategies: s.locator.Strategies(),
		Width:      frame.Rect.Dx(),
		Height:     frame.Rect.Dy(),
	}
	det, err := s.locator.Locate(frame, a.MinRadius, a.MaxRadius)
	if errors.Is(err, detection.ErrNoUtensil) {
		return frame, out, nil
	}
	if err != nil {
		return nil, nil, err
	}
	out.Detected = true
	out.Boundary = &det.Boundary
	return frame, out, nil
}

func (s *Server) handleDetectUtensil(args json.RawMessage) (interface{}, error) {
	var a detectUtensilArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	_, out, err := s.locate(a)
	return out, err
}

type sampleRimOutput struct {
	detectUtensilOutput
	BaseColor *baseColorOutput `json:"base_color,omitempty"`
}

func (s *Server) handleSampleRim(args json.RawMessage) (interface{}, error) {
	var a detectUtensilArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	frame, det, err := s.locate(a)
	if err != nil {
		return nil, err
	}
	out := &sampleRimOutput{detectUtensilOutput: *det}
	if !det.Detected {
		return out, nil
	}
	interior := det.Boundary.Interior(det.Width, det.Height, s.cfg.Detection.InteriorMargin)
	base := segmentation.SampleRim(frame, det.Boundary.Ellipse, interior, nil, s.cfg.Rim)
	out.BaseColor = newBaseColorOutput(base)
	return out, nil
}

type measureArgs struct {
	frameArgs
	scaleArgs
	SessionID string `json:"session_id"`
	Overlay   bool   `json:"overlay"`
	Debug     bool   `json:"debug"`
}

type measureOutput struct {
	PercentFill *float64            `json:"percent_fill"`
	VolumeML    *float64            `json:"volume_ml"`
	Detected    bool                `json:"detected"`
	Utensil     config.Kind         `json:"utensil"`
	Boundary    *detection.Boundary `json:"boundary,omitempty"`
	BaseColor   *baseColorOutput    `json:"base_color,omitempty"`
	Warnings    []string            `json:"warnings,omitempty"`
	Error       string              `json:"error,omitempty"`
	SessionID   string              `json:"session_id,omitempty"`
	Frame       int                 `json:"frame,omitempty"`
	Overlay     string              `json:"overlay,omitempty"`
	Debug       map[string]string   `json:"debug,omitempty"`
}

func (s *Server) handleMeasure(args json.RawMessage) (interface{}, error) {
	var a measureArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	frame, err := s.loadFrame(a.frameArgs)
	if err != nil {
		return nil, err
	}

	out := &measureOutput{SessionID: a.SessionID}
	var state *detection.SmoothingState
	var scale config.ScaleContext
	if a.SessionID != "" {
		sess, err := s.session(a.SessionID)
		if err != nil {
			return nil, err
		}
		sess.mu.Lock()
		defer sess.mu.Unlock()
		sess.frames++
		out.Frame = sess.frames
		scale = sess.scale
		state = &sess.state
	} else {
		scale, err = a.scaleArgs.resolve(s.cfg.Scale)
		if err != nil {
			return nil, err
		}
	}

	res, err := s.pipeline.WithScale(scale).WithDebug(a.Debug).Measure(frame, state)
	switch {
	case errors.Is(err, measure.ErrNoUtensil), errors.Is(err, measure.ErrDegenerateInterior):
		out.Error = err.Error()
	case err != nil:
		return nil, err
	}

	out.Utensil = res.Kind
	out.Warnings = res.Warnings
	if res.Boundary.Valid {
		b := res.Boundary
		out.Detected = true
		out.Boundary = &b
	}
	if res.Base != nil {
		out.BaseColor = newBaseColorOutput(*res.Base)
	}
	if m := res.Measurement; m != nil {
		fill := m.FillPercent
		out.PercentFill = &fill
		out.VolumeML = m.VolumeML
	}

	if a.Overlay {
		out.Overlay, err = imaging.EncodeJPEGDataURL(imaging.Render(frame, res.Annotation()), overlayQuality)
		if err != nil {
			return nil, errors.Wrap(err, "overlay")
		}
	}
	if res.Debug != nil {
		out.Debug, err = encodeDebug(res.Debug)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// encodeDebug renders each available intermediate stage as a base64 PNG.
func encodeDebug(d *measure.Debug) (map[string]string, error) {
	stages := map[string]image.Image{}
	if d.Edges != nil {
		stages["edges"] = d.Edges.Gray()
	}
	if d.Coarse != nil {
		stages["coarse"] = d.Coarse.Gray()
	}
	if d.Trimap != nil {
		stages["trimap"] = d.Trimap.Gray()
	}
	out := make(map[string]string, len(stages))
	for name, img := range stages {
		enc, err := imaging.EncodePNGBase64(img)
		if err != nil {
			return nil, errors.Wrapf(err, "debug %s", name)
		}
		out[name] = enc
	}
	return out, nil
}

// === Session Handlers ===

type sessionStartOutput struct {
	SessionID string              `json:"session_id"`
	Scale     config.ScaleContext `json:"scale"`
}

func (s *Server) handleSessionStart(args json.RawMessage) (interface{}, error) {
	var a scaleArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	scale, err := a.resolve(s.cfg.Scale)
	if err != nil {
		return nil, err
	}
	sess := s.startSession(scale)
	log.Info("session started", "session", sess.id, "utensil", scale.Kind, "open", s.sessionCount())
	return &sessionStartOutput{SessionID: sess.id, Scale: scale}, nil
}

type sessionEndArgs struct {
	SessionID string `json:"session_id"`
}

type sessionEndOutput struct {
	SessionID       string  `json:"session_id"`
	Frames          int     `json:"frames"`
	Resets          int     `json:"resets"`
	DurationSeconds float64 `json:"duration_seconds"`
}

func (s *Server) handleSessionEnd(args json.RawMessage) (interface{}, error) {
	var a sessionEndArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	sess, err := s.endSession(a.SessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	out := &sessionEndOutput{
		SessionID:       sess.id,
		Frames:          sess.frames,
		Resets:          sess.state.Resets(),
		DurationSeconds: time.Since(sess.created).Seconds(),
	}
	log.Info("session ended", "session", sess.id, "frames", sess.frames, "resets", out.Resets)
	return out, nil
}
