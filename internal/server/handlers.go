package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ironsheep/signscan/internal/detection"
	"github.com/ironsheep/signscan/internal/imaging"
	"github.com/ironsheep/signscan/internal/pipeline"
	"github.com/ironsheep/signscan/internal/signtext"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "sign_detect", "image_load").
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
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.log.Warn("tool failed", "tool", params.Name, "error", err)
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
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Frame Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_sample_color":
		return s.handleImageSampleColor(args)

	// Detection
	case "sign_detect":
		return s.handleSignDetect(ctx, args)
	case "sign_candidate_stats":
		return s.handleSignCandidateStats(args)
	case "sign_red_bbox":
		return s.handleSignRedBBox(args)
	case "sign_crop_tile":
		return s.handleSignCropTile(args)
	case "sign_annotate":
		return s.handleSignAnnotate(ctx, args)
	case "sign_read_text":
		return s.handleSignReadText(args)
	case "sign_info":
		return s.handleSignInfo()

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
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
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
	return imaging.LoadFrameInfo(s.cache, a.Path)
}

type imageSampleColorArgs struct {
	Path string `json:"path"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

func (s *Server) handleImageSampleColor(args json.RawMessage) (interface{}, error) {
	var a imageSampleColorArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.SampleColor(img, a.X, a.Y)
}

// === Detection Handlers ===

type signDetectArgs struct {
	Path     string `json:"path"`
	ReadText bool   `json:"read_text"`
}

func (s *Server) handleSignDetect(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a signDetectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	rep, _, err := s.pipe.DetectFile(ctx, a.Path, pipeline.Options{ReadText: a.ReadText})
	if err != nil {
		return nil, err
	}
	return rep, nil
}

type tileArgs struct {
	Path string `json:"path"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Size int    `json:"size"`
}

// loadTile loads the frame named by a and checks the tile lies inside it.
func (s *Server) loadTile(args json.RawMessage, a *tileArgs) (*imaging.Image, error) {
	if err := json.Unmarshal(args, a); err != nil {
		return nil, err
	}
	if a.Size < 1 {
		return nil, fmt.Errorf("tile size must be positive, got %d", a.Size)
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	if !img.Contains(a.X, a.Y, a.Size) {
		return nil, fmt.Errorf("tile (%d,%d)+%d outside frame bounds %dx%d",
			a.X, a.Y, a.Size, img.Width, img.Height)
	}
	return img, nil
}

func (s *Server) handleSignCandidateStats(args json.RawMessage) (interface{}, error) {
	var a tileArgs
	img, err := s.loadTile(args, &a)
	if err != nil {
		return nil, err
	}
	return s.pipe.Detector().Filter().Measure(img, a.X, a.Y, a.Size), nil
}

// RedBBoxResult is the outcome of sign_red_bbox.
type RedBBoxResult struct {
	Found bool            `json:"found"`
	BBox  *detection.BBox `json:"bbox,omitempty"`
}

func (s *Server) handleSignRedBBox(args json.RawMessage) (interface{}, error) {
	var a tileArgs
	img, err := s.loadTile(args, &a)
	if err != nil {
		return nil, err
	}
	box, ok, err := pipeline.LocateRedBBox(img, detection.Tile{X: a.X, Y: a.Y, Size: a.Size})
	if err != nil {
		return nil, err
	}
	if !ok {
		return &RedBBoxResult{}, nil
	}
	return &RedBBoxResult{Found: true, BBox: &box}, nil
}

type signCropTileArgs struct {
	tileArgs
	Scale float64 `json:"scale"`
}

func (s *Server) handleSignCropTile(args json.RawMessage) (interface{}, error) {
	var a signCropTileArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	img, err := s.loadTile(args, &a.tileArgs)
	if err != nil {
		return nil, err
	}
	return imaging.Crop(img, a.X, a.Y, a.Size, a.Scale)
}

type signAnnotateArgs struct {
	Path       string `json:"path"`
	OutputPath string `json:"output_path"`
}

// AnnotateResult is the outcome of sign_annotate.
type AnnotateResult struct {
	OutputPath string      `json:"output_path"`
	Report     interface{} `json:"report"`
}

func (s *Server) handleSignAnnotate(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a signAnnotateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.OutputPath == "" {
		return nil, errors.New("output_path is required")
	}

	rep, frame, err := s.pipe.DetectFile(ctx, a.Path, pipeline.Options{})
	if err != nil {
		return nil, err
	}
	out, err := pipeline.Overlay(frame, rep)
	if err != nil {
		return nil, err
	}
	if err := imaging.SaveImage(a.OutputPath, out); err != nil {
		return nil, err
	}
	return &AnnotateResult{OutputPath: a.OutputPath, Report: rep}, nil
}

type signReadTextArgs struct {
	tileArgs
	Language string `json:"language"`
}

func (s *Server) handleSignReadText(args json.RawMessage) (interface{}, error) {
	var a signReadTextArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadTile(args, &a.tileArgs)
	if err != nil {
		return nil, err
	}
	crop, err := imaging.CropTile(img, a.X, a.Y, a.Size, 1.0)
	if err != nil {
		return nil, err
	}

	opts := s.pipe.TextOptions()
	if a.Language != "" {
		opts.Language = a.Language
	}
	return signtext.Read(crop, opts)
}

// InfoResult describes the detector configuration.
type InfoResult struct {
	Version     string            `json:"version"`
	Detector    detection.Config  `json:"detector"`
	MinTileSize int               `json:"min_tile_size"`
	FrameSize   imaging.FrameSize `json:"frame_size"`
	Labels      detection.Labels  `json:"labels"`
	OCR         signtext.Info     `json:"ocr"`
}

func (s *Server) handleSignInfo() (interface{}, error) {
	det := s.pipe.Detector()
	return &InfoResult{
		Version:     s.version,
		Detector:    det.Config(),
		MinTileSize: det.MinTileSize(),
		FrameSize:   s.cache.Size(),
		Labels:      s.pipe.Labels(),
		OCR:         signtext.Describe(),
	}, nil
}
