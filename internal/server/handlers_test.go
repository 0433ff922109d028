package server

import (
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/wire-analysis/internal/aggregate"
	apperrors "github.com/ironsheep/wire-analysis/internal/errors"
)

// createMaskFile writes a w x h mask PNG with the given feature rectangles
// and returns its path. Features are white on black when featuresWhite is
// set, black on white otherwise.
func createMaskFile(t *testing.T, w, h int, featuresWhite bool, features ...image.Rectangle) string {
	t.Helper()

	matrix, feature := color.Gray{255}, color.Gray{0}
	if featuresWhite {
		matrix, feature = feature, matrix
	}
	img := image.NewGray(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(matrix), image.Point{}, draw.Src)
	for _, r := range features {
		draw.Draw(img, r, image.NewUniform(feature), image.Point{}, draw.Src)
	}

	path := filepath.Join(t.TempDir(), "mask.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create mask file: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode mask: %v", err)
	}
	return path
}

// callTool runs a tools/call request through the full request path.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) *MCPResponse {
	t.Helper()

	paramsJSON, _ := json.Marshal(map[string]interface{}{
		"name":      name,
		"arguments": args,
	})
	resp := s.handleRequest(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// decodeResult unpacks the JSON text content of a successful tool call.
func decodeResult(t *testing.T, resp *MCPResponse, v interface{}) {
	t.Helper()

	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 || content[0]["type"] != "text" {
		t.Fatalf("unexpected content %v", result["content"])
	}
	if err := json.Unmarshal([]byte(content[0]["text"].(string)), v); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
}

// errorKind returns the failure kind of a tool error response.
func errorKind(t *testing.T, resp *MCPResponse) string {
	t.Helper()

	if resp.Error == nil {
		t.Fatal("expected a tool error")
	}
	if resp.Error.Code != -32000 {
		t.Errorf("Error code: got %d, want -32000", resp.Error.Code)
	}
	data, ok := resp.Error.Data.(map[string]string)
	if !ok {
		t.Fatalf("error data should be a map, got %T", resp.Error.Data)
	}
	return data["kind"]
}

type featuresResponse struct {
	Pipeline   string            `json:"pipeline"`
	Width      int               `json:"width"`
	Height     int               `json:"height"`
	Components int               `json:"components"`
	Measured   int               `json:"measured"`
	Forwarded  int               `json:"forwarded"`
	Ignored    int               `json:"ignored"`
	Merged     bool              `json:"merged"`
	Outputs    map[string]string `json:"outputs"`
	Report     struct {
		NanometresPerPixel float64   `json:"nm_per_pixel"`
		Diameters          []float64 `json:"diameters_nm"`
	} `json:"report"`
}

func TestHandleToolsCall_MaskInfo(t *testing.T) {
	s := newTestServer(t)
	path := createMaskFile(t, 100, 80, false, image.Rect(10, 10, 30, 20))

	var info struct {
		Width           int     `json:"width"`
		Height          int     `json:"height"`
		Format          string  `json:"format"`
		Background      int     `json:"background_pixels"`
		FeatureFraction float64 `json:"feature_fraction"`
	}
	decodeResult(t, callTool(t, s, "wire_mask_info", map[string]interface{}{"path": path}), &info)

	if info.Width != 100 || info.Height != 80 || info.Format != "png" {
		t.Errorf("unexpected info %+v", info)
	}
	if info.Background != 200 || math.Abs(info.FeatureFraction-0.025) > 1e-9 {
		t.Errorf("features: got %d px (%g), want 200 (0.025)", info.Background, info.FeatureFraction)
	}
}

func TestHandleToolsCall_NonExistentFile(t *testing.T) {
	s := newTestServer(t)

	resp := callTool(t, s, "wire_mask_info", map[string]interface{}{"path": "/nonexistent/mask.png"})
	if kind := errorKind(t, resp); kind != "missing_input" {
		t.Errorf("kind: got %s, want missing_input", kind)
	}
}

func TestHandleToolsCall_InvalidLevel(t *testing.T) {
	s := newTestServer(t)
	path := createMaskFile(t, 20, 20, false)

	resp := callTool(t, s, "wire_mask_info", map[string]interface{}{"path": path, "level": 300})
	if kind := errorKind(t, resp); kind != "invalid_input" {
		t.Errorf("kind: got %s, want invalid_input", kind)
	}
}

func TestHandleToolsCall_SmallThenLarge(t *testing.T) {
	s := newTestServer(t)
	path := createMaskFile(t, 300, 120, false,
		image.Rect(10, 10, 40, 20),  // 300 px particle
		image.Rect(50, 60, 250, 80), // 4000 px wire
	)
	outDir := t.TempDir()

	var small featuresResponse
	decodeResult(t, callTool(t, s, "wire_small_features", map[string]interface{}{
		"path":          path,
		"write_outputs": true,
		"output_dir":    outDir,
	}), &small)

	if small.Pipeline != "small" || small.Components != 2 || small.Measured != 1 || small.Forwarded != 1 {
		t.Fatalf("unexpected small result %+v", small)
	}
	if len(small.Report.Diameters) != 1 || math.Abs(small.Report.Diameters[0]-math.Sqrt(300)) > 1e-6 {
		t.Errorf("small diameters: got %v", small.Report.Diameters)
	}
	wires := filepath.Join(outDir, "mask_wires.tif")
	smallMap := filepath.Join(outDir, "mask_small_features.npy")
	if small.Outputs["wires"] != wires || small.Outputs["small_map"] != smallMap {
		t.Fatalf("outputs: got %v", small.Outputs)
	}

	report := filepath.Join(outDir, "report.json")
	diameters := filepath.Join(outDir, "diameters.npy")
	var large featuresResponse
	decodeResult(t, callTool(t, s, "wire_large_features", map[string]interface{}{
		"path":             wires,
		"small_map":        smallMap,
		"diameters_output": diameters,
		"report_output":    report,
	}), &large)

	if large.Pipeline != "large" || large.Measured != 1 || !large.Merged {
		t.Fatalf("unexpected large result %+v", large)
	}
	if math.Abs(large.Report.Diameters[0]-20) > 1e-6 {
		t.Errorf("wire diameter: got %v, want [20]", large.Report.Diameters)
	}
	if _, err := os.Stat(report); err != nil {
		t.Errorf("report not written: %v", err)
	}

	merged, err := aggregate.LoadNPY(diameters)
	if err != nil {
		t.Fatalf("LoadNPY: %v", err)
	}
	if math.Abs(merged.At(15, 20)-math.Sqrt(300)) > 1e-6 || merged.At(70, 100) != 20 {
		t.Errorf("merged map: particle %g, wire %g", merged.At(15, 20), merged.At(70, 100))
	}
}

func TestHandleToolsCall_PipelineOverrides(t *testing.T) {
	s := newTestServer(t)
	path := createMaskFile(t, 300, 120, false,
		image.Rect(10, 10, 40, 20),
		image.Rect(50, 60, 250, 80),
	)

	var res featuresResponse
	decodeResult(t, callTool(t, s, "wire_small_features", map[string]interface{}{
		"path":              path,
		"area_threshold":    100,
		"pixels_per_micron": 100,
	}), &res)
	if res.Measured != 0 || res.Forwarded != 2 {
		t.Errorf("threshold 100: measured %d, forwarded %d", res.Measured, res.Forwarded)
	}
	if res.Report.NanometresPerPixel != 10 {
		t.Errorf("nm per pixel: got %g, want 10", res.Report.NanometresPerPixel)
	}
	if res.Outputs != nil {
		t.Errorf("no files should be written without write_outputs: %v", res.Outputs)
	}
	if s.cfg.AreaThreshold != 1000 {
		t.Error("overrides must not change the server config")
	}

	resp := callTool(t, s, "wire_small_features", map[string]interface{}{"path": path, "area_threshold": 0})
	if kind := errorKind(t, resp); kind != "invalid_input" {
		t.Errorf("kind: got %s, want invalid_input", kind)
	}
}

func TestHandleToolsCall_LargeMergeMismatch(t *testing.T) {
	s := newTestServer(t)
	path := createMaskFile(t, 300, 100, true, image.Rect(50, 40, 250, 60))
	smallMap := filepath.Join(t.TempDir(), "small.npy")
	if err := aggregate.SaveNPY(smallMap, mat.NewDense(10, 10, nil)); err != nil {
		t.Fatal(err)
	}

	resp := callTool(t, s, "wire_large_features", map[string]interface{}{"path": path, "small_map": smallMap})
	if kind := errorKind(t, resp); kind != "dimension_mismatch" {
		t.Errorf("kind: got %s, want dimension_mismatch", kind)
	}
}

func TestHandleToolsCall_InspectComponent(t *testing.T) {
	s := newTestServer(t)
	path := createMaskFile(t, 300, 100, true,
		image.Rect(5, 5, 15, 15),    // component 1, a particle
		image.Rect(50, 40, 250, 60), // component 2, a wire
	)

	var wire struct {
		Index     int     `json:"index"`
		Area      int     `json:"area"`
		Diameter  float64 `json:"diameter_px"`
		Aligned   *bool   `json:"aligned"`
		Component *struct {
			Width       int    `json:"width"`
			ImageBase64 string `json:"image_base64"`
		} `json:"component"`
		Canonical *struct {
			Width int `json:"width"`
		} `json:"canonical"`
	}
	decodeResult(t, callTool(t, s, "wire_inspect_component", map[string]interface{}{
		"path":  path,
		"index": 2,
		"scale": 2,
	}), &wire)

	if wire.Index != 2 || wire.Area != 4000 || math.Abs(wire.Diameter-20) > 1e-6 {
		t.Errorf("unexpected wire %+v", wire)
	}
	if wire.Aligned == nil || !*wire.Aligned {
		t.Error("an axis-aligned wire should report aligned")
	}
	if wire.Component == nil || wire.Component.ImageBase64 == "" || wire.Canonical == nil {
		t.Fatal("missing renderings")
	}

	var particle struct {
		Diameter  float64         `json:"diameter_px"`
		Canonical json.RawMessage `json:"canonical"`
	}
	decodeResult(t, callTool(t, s, "wire_inspect_component", map[string]interface{}{
		"path":           path,
		"index":          1,
		"pipeline":       "small",
		"features_white": true,
	}), &particle)
	if math.Abs(particle.Diameter-10) > 1e-9 || particle.Canonical != nil {
		t.Errorf("unexpected particle %+v", particle)
	}

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"ignored component", map[string]interface{}{"path": path, "index": 1}},
		{"past the last component", map[string]interface{}{"path": path, "index": 9}},
		{"zero index", map[string]interface{}{"path": path, "index": 0}},
		{"bad pipeline", map[string]interface{}{"path": path, "index": 1, "pipeline": "medium"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callTool(t, s, "wire_inspect_component", tt.args)
			if kind := errorKind(t, resp); kind != "invalid_input" {
				t.Errorf("kind: got %s, want invalid_input", kind)
			}
		})
	}
}

func TestHandleToolsCall_MergeMaps(t *testing.T) {
	s := newTestServer(t)
	dir := t.TempDir()
	large := mat.NewDense(2, 3, []float64{
		20, 20, 0,
		0, 0, 0,
	})
	small := mat.NewDense(2, 3, []float64{
		0, 0, 0,
		0, 5, 5,
	})
	largePath := filepath.Join(dir, "large.npy")
	smallPath := filepath.Join(dir, "small.npy")
	for path, m := range map[string]*mat.Dense{largePath: large, smallPath: small} {
		if err := aggregate.SaveNPY(path, m); err != nil {
			t.Fatal(err)
		}
	}

	out := filepath.Join(dir, "merged.npy")
	var res mergeMapsResult
	decodeResult(t, callTool(t, s, "wire_merge_maps", map[string]interface{}{
		"large":  largePath,
		"small":  smallPath,
		"output": out,
	}), &res)
	if res.Rows != 2 || res.Cols != 3 || res.SmallPixels != 2 || res.MapPixels != 4 {
		t.Errorf("unexpected result %+v", res)
	}

	merged, err := aggregate.LoadNPY(out)
	if err != nil {
		t.Fatalf("LoadNPY: %v", err)
	}
	want := mat.NewDense(2, 3, []float64{20, 20, 0, 0, 5, 5})
	if !mat.Equal(merged, want) {
		t.Errorf("merged map:\n%v", mat.Formatted(merged))
	}

	resp := callTool(t, s, "wire_merge_maps", map[string]interface{}{"large": largePath, "small": smallPath})
	if kind := errorKind(t, resp); kind != "invalid_input" {
		t.Errorf("missing output: got %s, want invalid_input", kind)
	}
}

func TestHandleToolsCall_RenderDiameterMap(t *testing.T) {
	s := newTestServer(t)
	dir := t.TempDir()
	m := mat.NewDense(10, 20, nil)
	for j := 0; j < 20; j++ {
		m.Set(5, j, 8)
	}
	mapPath := filepath.Join(dir, "d.npy")
	if err := aggregate.SaveNPY(mapPath, m); err != nil {
		t.Fatal(err)
	}

	var full struct {
		Width    int     `json:"width"`
		Height   int     `json:"height"`
		MimeType string  `json:"mime_type"`
		Max      float64 `json:"max"`
		Output   string  `json:"output"`
	}
	out := filepath.Join(dir, "heat.png")
	decodeResult(t, callTool(t, s, "wire_render_diameter_map", map[string]interface{}{
		"map":    mapPath,
		"output": out,
	}), &full)
	if full.Width != 20 || full.Height != 10 || full.Max != 8 || full.Output != out {
		t.Errorf("unexpected render %+v", full)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("rendering not saved: %v", err)
	}

	var crop struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	decodeResult(t, callTool(t, s, "wire_render_diameter_map", map[string]interface{}{
		"map":        mapPath,
		"region":     map[string]interface{}{"x1": 0, "y1": 4, "x2": 10, "y2": 7},
		"scale":      2.0,
		"low_color":  "000080",
		"high_color": "#ffff00",
	}), &crop)
	if crop.Width != 20 || crop.Height != 6 {
		t.Errorf("cropped render: got %dx%d, want 20x6", crop.Width, crop.Height)
	}

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"bad colour", map[string]interface{}{"map": mapPath, "low_color": "#zzzzzz"}},
		{"region outside", map[string]interface{}{"map": mapPath, "region": map[string]interface{}{"x1": 50, "y1": 50, "x2": 60, "y2": 60}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callTool(t, s, "wire_render_diameter_map", tt.args)
			if kind := errorKind(t, resp); kind != "invalid_input" {
				t.Errorf("kind: got %s, want invalid_input", kind)
			}
		})
	}
}

type failingReader struct{}

func (failingReader) ReadText(image.Image) (string, error) {
	return "", errors.New("no text found")
}

func TestHandleToolsCall_ScaleBar(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 400, 150))
	draw.Draw(img, image.Rect(50, 100, 250, 106), image.NewUniform(color.Gray{255}), image.Point{}, draw.Src)
	path := filepath.Join(t.TempDir(), "sem.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	s := newTestServer(t).WithReader(failingReader{})

	var cal struct {
		PixelsPerMicron float64 `json:"pixels_per_micron"`
		Bar             struct {
			Length int `json:"length_px"`
		} `json:"bar"`
	}
	decodeResult(t, callTool(t, s, "wire_scale_bar", map[string]interface{}{
		"path":  path,
		"label": "500 nm",
	}), &cal)
	if cal.Bar.Length != 200 || cal.PixelsPerMicron != 400 {
		t.Errorf("unexpected calibration %+v", cal)
	}

	resp := callTool(t, s, "wire_scale_bar", map[string]interface{}{"path": path})
	if resp.Error == nil {
		t.Error("a failing reader should fail the tool")
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer(t)

	resp := s.handleToolsCall(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Params:  json.RawMessage(`{invalid`),
	})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("got %+v, want -32602", resp.Error)
	}
}

func TestExecuteTool_UnknownTool(t *testing.T) {
	s := newTestServer(t)

	_, err := s.executeTool("unknown_tool", json.RawMessage(`{}`))
	if err == nil {
		t.Error("executeTool should fail for unknown tool")
	}
}

func TestExecuteTool_InvalidJSON(t *testing.T) {
	s := newTestServer(t)

	_, err := s.executeTool("wire_mask_info", json.RawMessage(`{invalid`))
	if err == nil {
		t.Error("executeTool should fail for invalid JSON")
	}
}

func TestExecuteTool_MissingArguments(t *testing.T) {
	s := newTestServer(t)

	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			if _, err := s.executeTool(tool.Name, nil); err == nil {
				t.Error("a call without arguments should fail")
			}
		})
	}
}

func TestEncodeResult(t *testing.T) {
	text, err := encodeResult(map[string]int{"pixels": 200})
	if err != nil {
		t.Fatalf("encodeResult: %v", err)
	}
	if text != "{\n  \"pixels\": 200\n}" {
		t.Errorf("unexpected encoding %q", text)
	}

	if _, err := encodeResult(map[string]float64{"diameter": math.NaN()}); !apperrors.IsKind(err, apperrors.KindInternal) {
		t.Errorf("NaN result: got %v, want Internal", err)
	}
}
