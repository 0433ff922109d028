package server

import (
	"encoding/json"
	"fmt"
	"image"

	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/wire-analysis/internal/aggregate"
	"github.com/ironsheep/wire-analysis/internal/config"
	apperrors "github.com/ironsheep/wire-analysis/internal/errors"
	"github.com/ironsheep/wire-analysis/internal/imaging"
	"github.com/ironsheep/wire-analysis/internal/mask"
	"github.com/ironsheep/wire-analysis/internal/pipeline"
	"github.com/ironsheep/wire-analysis/internal/scalebar"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "wire_mask_info", "wire_small_features").
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
// Tool execution errors return a JSON-RPC error response with code -32000
// whose data carries the error text and its kind.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	s.log.Debug().Str("tool", params.Name).Msg("tool call")
	result, err := s.executeTool(params.Name, params.Arguments)
	var text string
	if err == nil {
		text, err = encodeResult(result)
	}
	if err != nil {
		kind := apperrors.KindOf(err)
		s.log.Warn().Err(err).Str("tool", params.Name).Str("kind", string(kind)).Msg("tool failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", map[string]string{
			"error": err.Error(),
			"kind":  string(kind),
		})
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": text,
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Overlays per-call settings on the server configuration
//  3. Loads masks through the image cache
//  4. Runs the pipeline, map or calibration step
//  5. Writes any requested files and returns a JSON-friendly result
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Inputs
	case "wire_mask_info":
		return s.handleMaskInfo(args)
	case "wire_scale_bar":
		return s.handleScaleBar(args)

	// Pipelines
	case "wire_small_features":
		return s.handleSmallFeatures(args)
	case "wire_large_features":
		return s.handleLargeFeatures(args)
	case "wire_inspect_component":
		return s.handleInspectComponent(args)

	// Diameter maps
	case "wire_merge_maps":
		return s.handleMergeMaps(args)
	case "wire_render_diameter_map":
		return s.handleRenderDiameterMap(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message string, data interface{}) *MCPResponse {
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

// encodeResult renders a tool result as pretty-printed JSON. A result that
// cannot be encoded (a NaN measurement, say) is an Internal failure.
func encodeResult(v interface{}) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", apperrors.NewInternal("failed to encode tool result", err)
	}
	return string(b), nil
}

func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	if err := json.Unmarshal(args, v); err != nil {
		return apperrors.NewInvalidInput("invalid arguments", err)
	}
	return nil
}

// === Shared settings ===

// pipelineArgs are the configuration overrides every pipeline tool accepts.
// Absent fields keep the server configuration.
type pipelineArgs struct {
	AreaThreshold       *int     `json:"area_threshold,omitempty"`
	Iterations          *int     `json:"iterations,omitempty"`
	SmoothingIterations *int     `json:"smoothing_iterations,omitempty"`
	ExtraIterations     *int     `json:"extra_iterations,omitempty"`
	PixelsPerMicron     *float64 `json:"pixels_per_micron,omitempty"`
}

func (s *Server) configFor(a pipelineArgs) (*config.Config, error) {
	cfg := *s.cfg
	if a.AreaThreshold != nil {
		cfg.AreaThreshold = *a.AreaThreshold
	}
	if a.Iterations != nil {
		cfg.Iterations = *a.Iterations
	}
	if a.SmoothingIterations != nil {
		cfg.SmoothingIterations = *a.SmoothingIterations
	}
	if a.ExtraIterations != nil {
		cfg.ExtraIterations = *a.ExtraIterations
	}
	if a.PixelsPerMicron != nil {
		cfg.PixelsPerMicron = *a.PixelsPerMicron
	}
	if err := cfg.Validate(); err != nil {
		return nil, apperrors.NewInvalidInput("invalid pipeline settings", err)
	}
	return &cfg, nil
}

// maskLevel returns the threshold for decoding masks; zero means the
// configured level.
func (s *Server) maskLevel(level int) (uint8, error) {
	if level == 0 {
		return s.cfg.MaskLevel, nil
	}
	if level < 1 || level > 255 {
		return 0, apperrors.NewInvalidInput(fmt.Sprintf("level must be in 1..255 (got %d)", level), nil)
	}
	return uint8(level), nil
}

func (s *Server) loadMask(path string, level int, featuresWhite bool) (*mask.Mask, error) {
	lv, err := s.maskLevel(level)
	if err != nil {
		return nil, err
	}
	return imaging.LoadMask(s.cache, path, lv, featuresWhite)
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

type region struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

func (r region) rect() image.Rectangle {
	return image.Rect(r.X1, r.Y1, r.X2, r.Y2)
}

func (r region) empty() bool {
	return r.X1 == 0 && r.Y1 == 0 && r.X2 == 0 && r.Y2 == 0
}

// === Input Handlers ===

type maskInfoArgs struct {
	Path          string `json:"path"`
	FeaturesWhite bool   `json:"features_white"`
	Level         int    `json:"level"`
}

func (s *Server) handleMaskInfo(args json.RawMessage) (interface{}, error) {
	var a maskInfoArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	lv, err := s.maskLevel(a.Level)
	if err != nil {
		return nil, err
	}
	return imaging.LoadMaskInfo(s.cache, a.Path, lv, a.FeaturesWhite)
}

type scaleBarArgs struct {
	Path      string `json:"path"`
	Region    region `json:"region"`
	Dark      bool   `json:"dark"`
	Level     int    `json:"level"`
	MinLength int    `json:"min_length"`
	Label     string `json:"label"`
}

// labelText is a Reader that returns caller-supplied text.
type labelText string

func (l labelText) ReadText(image.Image) (string, error) {
	return string(l), nil
}

func (s *Server) handleScaleBar(args json.RawMessage) (interface{}, error) {
	var a scaleBarArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	opts := scalebar.Options{Dark: a.Dark, MinLength: a.MinLength}
	if !a.Region.empty() {
		opts.Region = a.Region.rect()
	}
	if a.Level != 0 {
		if opts.Level, err = s.maskLevel(a.Level); err != nil {
			return nil, err
		}
	}

	var reader scalebar.Reader = s.reader
	if a.Label != "" {
		reader = labelText(a.Label)
	}
	return scalebar.Detect(img, reader, opts)
}

// === Pipeline Handlers ===

// featuresResult is the tool view of a pipeline run.
type featuresResult struct {
	Pipeline   string            `json:"pipeline"`
	Width      int               `json:"width"`
	Height     int               `json:"height"`
	Components int               `json:"components"`
	Measured   int               `json:"measured"`
	Forwarded  int               `json:"forwarded,omitempty"`
	Ignored    int               `json:"ignored,omitempty"`
	Merged     bool              `json:"merged,omitempty"`
	Report     pipeline.Report   `json:"report"`
	Outputs    map[string]string `json:"outputs,omitempty"`
}

func newFeaturesResult(res *pipeline.Result, cfg *config.Config) *featuresResult {
	return &featuresResult{
		Pipeline:   res.Pipeline,
		Width:      res.Width,
		Height:     res.Height,
		Components: res.Components,
		Measured:   len(res.Features),
		Report:     res.Report(cfg),
	}
}

type smallFeaturesArgs struct {
	Path          string `json:"path"`
	FeaturesWhite bool   `json:"features_white"`
	Level         int    `json:"level"`
	WriteOutputs  bool   `json:"write_outputs"`
	OutputDir     string `json:"output_dir"`
	pipelineArgs
}

func (s *Server) handleSmallFeatures(args json.RawMessage) (interface{}, error) {
	var a smallFeaturesArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	cfg, err := s.configFor(a.pipelineArgs)
	if err != nil {
		return nil, err
	}
	m, err := s.loadMask(a.Path, a.Level, a.FeaturesWhite)
	if err != nil {
		return nil, err
	}

	res, err := pipeline.Small(m, cfg, s.log)
	if err != nil {
		return nil, err
	}
	out := newFeaturesResult(&res.Result, cfg)
	out.Forwarded = res.Forwarded

	if a.WriteOutputs {
		files := pipeline.OutputsFor(a.Path, a.OutputDir)
		if err := aggregate.SaveNPY(files.SmallMap, res.Map); err != nil {
			return nil, err
		}
		// The residual keeps the input polarity; the wires file always holds
		// white features.
		if err := imaging.SaveMask(files.Wires, res.Residual, true); err != nil {
			return nil, err
		}
		s.cache.Evict(files.Wires)
		out.Outputs = map[string]string{
			"small_map": files.SmallMap,
			"wires":     files.Wires,
		}
	}
	return out, nil
}

type largeFeaturesArgs struct {
	Path          string `json:"path"`
	FeaturesWhite *bool  `json:"features_white"`
	Level         int    `json:"level"`
	SmallMap      string `json:"small_map"`
	DiametersOut  string `json:"diameters_output"`
	ReportOut     string `json:"report_output"`
	pipelineArgs
}

func (s *Server) handleLargeFeatures(args json.RawMessage) (interface{}, error) {
	var a largeFeaturesArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	cfg, err := s.configFor(a.pipelineArgs)
	if err != nil {
		return nil, err
	}
	m, err := s.loadMask(a.Path, a.Level, boolOr(a.FeaturesWhite, true))
	if err != nil {
		return nil, err
	}

	// Load the small map first so a bad path fails before the slow run.
	var small *mat.Dense
	if a.SmallMap != "" {
		if small, err = aggregate.LoadNPY(a.SmallMap); err != nil {
			return nil, err
		}
	}

	res, err := pipeline.Large(m, cfg, s.log)
	if err != nil {
		return nil, err
	}
	if small != nil {
		if err := res.MergeMap(small); err != nil {
			return nil, err
		}
	}

	out := newFeaturesResult(&res.Result, cfg)
	out.Ignored = res.Ignored
	out.Merged = small != nil

	outputs := map[string]string{}
	if a.DiametersOut != "" {
		if err := aggregate.SaveNPY(a.DiametersOut, res.Map); err != nil {
			return nil, err
		}
		outputs["diameters"] = a.DiametersOut
	}
	if a.ReportOut != "" {
		if err := out.Report.Save(a.ReportOut); err != nil {
			return nil, err
		}
		outputs["report"] = a.ReportOut
	}
	if len(outputs) > 0 {
		out.Outputs = outputs
	}
	return out, nil
}

type inspectComponentArgs struct {
	Path          string `json:"path"`
	Pipeline      string `json:"pipeline"`
	Index         int    `json:"index"`
	FeaturesWhite *bool  `json:"features_white"`
	Level         int    `json:"level"`
	Scale         int    `json:"scale"`
	pipelineArgs
}

type point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type inspectComponentResult struct {
	Index      int                   `json:"index"`
	Seed       point                 `json:"seed"`
	Area       int                   `json:"area"`
	Diameter   float64               `json:"diameter_px"`
	DiameterNm float64               `json:"diameter_nm"`
	Vertices   int                   `json:"vertices"`
	Rotation   float64               `json:"rotation,omitempty"`
	Aligned    *bool                 `json:"aligned,omitempty"`
	Component  *imaging.RenderResult `json:"component"`
	Canonical  *imaging.RenderResult `json:"canonical,omitempty"`
}

func (s *Server) handleInspectComponent(args json.RawMessage) (interface{}, error) {
	var a inspectComponentArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Pipeline == "" {
		a.Pipeline = "large"
	}
	if a.Pipeline != "small" && a.Pipeline != "large" {
		return nil, apperrors.NewInvalidInput(fmt.Sprintf("pipeline must be small or large (got %q)", a.Pipeline), nil)
	}
	if a.Index < 1 {
		return nil, apperrors.NewInvalidInput(fmt.Sprintf("index must be >= 1 (got %d)", a.Index), nil)
	}
	if a.Scale == 0 {
		a.Scale = 4
	}
	cfg, err := s.configFor(a.pipelineArgs)
	if err != nil {
		return nil, err
	}
	m, err := s.loadMask(a.Path, a.Level, boolOr(a.FeaturesWhite, a.Pipeline == "large"))
	if err != nil {
		return nil, err
	}

	var found *pipeline.Trace
	runner := pipeline.New(cfg, s.log).WithInspector(pipeline.InspectorFunc(func(t pipeline.Trace) {
		if t.Index == a.Index {
			found = &t
		}
	}))
	if a.Pipeline == "small" {
		_, err = runner.Small(m)
	} else {
		_, err = runner.Large(m)
	}
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, apperrors.NewInvalidInput(fmt.Sprintf("component %d was not measured by the %s pipeline", a.Index, a.Pipeline), nil)
	}

	comp, err := imaging.EncodePNG(imaging.RenderComponent(found.Refined, found.Origin, found.Polygon, found.Rect, a.Scale))
	if err != nil {
		return nil, err
	}
	out := &inspectComponentResult{
		Index:      found.Index,
		Seed:       point{found.Seed.X, found.Seed.Y},
		Area:       found.Area,
		Diameter:   found.Diameter,
		DiameterNm: found.Diameter * cfg.NanometresPerPixel(),
		Vertices:   len(found.Polygon),
		Component:  comp,
	}
	if c := found.Canonical; c != nil {
		canon, err := imaging.EncodePNG(imaging.RenderPolygon(c.Polygon, c.Rect, a.Scale))
		if err != nil {
			return nil, err
		}
		aligned := c.Aligned
		out.Rotation = c.Rotation
		out.Aligned = &aligned
		out.Canonical = canon
	}
	return out, nil
}

// === Diameter Map Handlers ===

type mergeMapsArgs struct {
	Large  string `json:"large"`
	Small  string `json:"small"`
	Output string `json:"output"`
}

type mergeMapsResult struct {
	Rows        int    `json:"rows"`
	Cols        int    `json:"cols"`
	SmallPixels int    `json:"small_pixels"`
	MapPixels   int    `json:"map_pixels"`
	Output      string `json:"output"`
}

func (s *Server) handleMergeMaps(args json.RawMessage) (interface{}, error) {
	var a mergeMapsArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Output == "" {
		return nil, apperrors.NewInvalidInput("output is required", nil)
	}
	large, err := aggregate.LoadNPY(a.Large)
	if err != nil {
		return nil, err
	}
	small, err := aggregate.LoadNPY(a.Small)
	if err != nil {
		return nil, err
	}
	if err := aggregate.Merge(large, small); err != nil {
		return nil, err
	}
	if err := aggregate.SaveNPY(a.Output, large); err != nil {
		return nil, err
	}

	rows, cols := large.Dims()
	return &mergeMapsResult{
		Rows:        rows,
		Cols:        cols,
		SmallPixels: nonZero(small),
		MapPixels:   nonZero(large),
		Output:      a.Output,
	}, nil
}

func nonZero(m *mat.Dense) int {
	rows, cols := m.Dims()
	n := 0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if m.At(i, j) != 0 {
				n++
			}
		}
	}
	return n
}

type renderDiameterMapArgs struct {
	Map       string  `json:"map"`
	Max       float64 `json:"max"`
	Region    region  `json:"region"`
	Scale     float64 `json:"scale"`
	LowColor  string  `json:"low_color"`
	HighColor string  `json:"high_color"`
	Output    string  `json:"output"`
}

type renderDiameterMapResult struct {
	*imaging.RenderResult
	Max    float64 `json:"max"`
	Output string  `json:"output,omitempty"`
}

func (s *Server) handleRenderDiameterMap(args json.RawMessage) (interface{}, error) {
	var a renderDiameterMapArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	palette := imaging.DefaultPalette()
	if a.LowColor != "" {
		c, err := imaging.ParseHexColor(a.LowColor)
		if err != nil {
			return nil, apperrors.NewInvalidInput("invalid low_color", err)
		}
		palette.Low = c
	}
	if a.HighColor != "" {
		c, err := imaging.ParseHexColor(a.HighColor)
		if err != nil {
			return nil, apperrors.NewInvalidInput("invalid high_color", err)
		}
		palette.High = c
	}

	m, err := aggregate.LoadNPY(a.Map)
	if err != nil {
		return nil, err
	}
	maxDiameter := a.Max
	if maxDiameter <= 0 {
		maxDiameter = mat.Max(m)
	}

	var img image.Image = imaging.DiameterHeatmap(m, maxDiameter, palette)
	if !a.Region.empty() || a.Scale != 1.0 {
		r := img.Bounds()
		if !a.Region.empty() {
			r = a.Region.rect()
		}
		if img, err = imaging.Crop(img, r, a.Scale); err != nil {
			return nil, apperrors.NewInvalidInput("invalid region", err)
		}
	}

	if a.Output != "" {
		if err := imaging.SaveImage(a.Output, img); err != nil {
			return nil, err
		}
	}
	enc, err := imaging.EncodePNG(img)
	if err != nil {
		return nil, err
	}
	return &renderDiameterMapResult{RenderResult: enc, Max: maxDiameter, Output: a.Output}, nil
}
