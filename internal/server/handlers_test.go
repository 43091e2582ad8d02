package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ironsheep/stencil-tools-mcp/internal/curve"
	"github.com/ironsheep/stencil-tools-mcp/internal/imaging"
)

// createTestImageFile writes a gradient PNG into the test's temp dir and
// returns its path.
func createTestImageFile(t *testing.T, width, height int) string {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x * 255 / width), uint8(y * 255 / height), 90, 255})
		}
	}

	path := filepath.Join(t.TempDir(), "photo.png")
	writePNG(t, path, img)
	return path
}

// writePNG encodes img to path, replacing any existing file.
func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
}

// callTool invokes a tool through tools/call. On success the JSON text
// content is decoded into out; the JSON-RPC error, if any, is returned.
func callTool(t *testing.T, s *Server, name string, args interface{}, out interface{}) *MCPError {
	t.Helper()

	paramsJSON, err := json.Marshal(map[string]interface{}{
		"name":      name,
		"arguments": args,
	})
	if err != nil {
		t.Fatalf("failed to marshal params: %v", err)
	}

	resp := s.handleRequest(&MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: paramsJSON})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	if resp.Error != nil {
		return resp.Error
	}

	result, ok := resp.Result.(toolResult)
	if !ok {
		t.Fatalf("Result: got %T, want toolResult", resp.Result)
	}
	if len(result.Content) != 1 || result.Content[0].Type != "text" {
		t.Fatalf("unexpected content: %+v", result.Content)
	}
	if out != nil {
		if err := json.Unmarshal([]byte(result.Content[0].Text), out); err != nil {
			t.Fatalf("failed to decode tool result: %v", err)
		}
	}
	return nil
}

func mustCallTool(t *testing.T, s *Server, name string, args interface{}, out interface{}) {
	t.Helper()
	if mcpErr := callTool(t, s, name, args, out); mcpErr != nil {
		t.Fatalf("%s failed: %s: %v", name, mcpErr.Message, mcpErr.Data)
	}
}

func decodePNG(t *testing.T, enc *imaging.EncodedImage) image.Image {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(enc.ImageBase64)
	if err != nil {
		t.Fatalf("invalid base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("invalid PNG: %v", err)
	}
	return img
}

func TestHandleToolsCall_Errors(t *testing.T) {
	s := newTestServer(t)

	resp := s.handleToolsCall(&MCPRequest{JSONRPC: "2.0", ID: 1, Params: json.RawMessage(`"nope"`)})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("bad params: got %+v, want code -32602", resp.Error)
	}

	tests := []struct {
		name string
		tool string
		args interface{}
	}{
		{"unknown tool", "image_crop", map[string]interface{}{}},
		{"missing path", "stencil_load", map[string]interface{}{}},
		{"non-existent file", "stencil_load", map[string]interface{}{"path": "/nonexistent/image.png"}},
		{"wrong argument type", "stencil_load", map[string]interface{}{"path": 42}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mcpErr := callTool(t, s, tt.tool, tt.args, nil)
			if mcpErr == nil || mcpErr.Code != -32000 {
				t.Errorf("got %+v, want code -32000", mcpErr)
			}
		})
	}
}

func TestHandleToolsCall_StencilLoad(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 100, 80)

	var info loadResult
	mustCallTool(t, s, "stencil_load", map[string]interface{}{"path": imgPath}, &info)

	if info.Width != 100 || info.Height != 80 {
		t.Errorf("size: got %dx%d, want 100x80", info.Width, info.Height)
	}
	if info.Scaled {
		t.Error("small image should not be scaled")
	}
	if info.Format != "png" {
		t.Errorf("Format: got %s, want png", info.Format)
	}
	if info.DominantColors == nil || info.DominantColors.Count != DefaultDominantColors {
		t.Errorf("DominantColors: got %+v, want %d colours", info.DominantColors, DefaultDominantColors)
	}

	var bare loadResult
	mustCallTool(t, s, "stencil_load", map[string]interface{}{"path": imgPath, "colors": 0}, &bare)
	if bare.DominantColors != nil {
		t.Errorf("colors=0 should skip the analysis, got %+v", bare.DominantColors)
	}
	if mcpErr := callTool(t, s, "stencil_load", map[string]interface{}{"path": imgPath, "colors": -1}, nil); mcpErr == nil {
		t.Error("negative colors should fail")
	}
}

func TestHandleToolsCall_StencilLoad_DominantColors(t *testing.T) {
	s := newTestServer(t)

	// Three quarters red, one quarter blue.
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			c := color.NRGBA{255, 0, 0, 255}
			if x >= 6 {
				c = color.NRGBA{0, 0, 255, 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	path := filepath.Join(t.TempDir(), "flag.png")
	writePNG(t, path, img)

	var info loadResult
	mustCallTool(t, s, "stencil_load", map[string]interface{}{"path": path, "colors": 4}, &info)

	var hexes []string
	for _, c := range info.DominantColors.Colors {
		hexes = append(hexes, c.Hex)
	}
	if diff := cmp.Diff([]string{"#FF0000", "#0000FF"}, hexes); diff != "" {
		t.Errorf("dominant colours (-want +got):\n%s", diff)
	}
	if got := info.DominantColors.Colors[0].Percentage; got != 75 {
		t.Errorf("red share: got %v, want 75", got)
	}
}

func TestHandleToolsCall_StencilLoad_Reload(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 30, 20)

	var edited editCurveResult
	mustCallTool(t, s, "stencil_edit_curve", map[string]interface{}{
		"path": imgPath, "action": "insert", "x": 100, "y": 40,
	}, &edited)

	// Replace the file on disk with a different size.
	writePNG(t, imgPath, image.NewNRGBA(image.Rect(0, 0, 12, 6)))

	var cached loadResult
	mustCallTool(t, s, "stencil_load", map[string]interface{}{"path": imgPath}, &cached)
	if cached.Width != 30 {
		t.Errorf("cached width: got %d, want 30", cached.Width)
	}

	var fresh loadResult
	mustCallTool(t, s, "stencil_load", map[string]interface{}{"path": imgPath, "reload": true}, &fresh)
	if fresh.Width != 12 || fresh.Height != 6 {
		t.Errorf("reloaded size: got %dx%d, want 12x6", fresh.Width, fresh.Height)
	}

	s.mu.Lock()
	_, ok := s.sessions[imgPath]
	s.mu.Unlock()
	if ok {
		t.Error("reload should discard the editing session")
	}

	// A new session starts from the configured curves.
	var res editCurveResult
	mustCallTool(t, s, "stencil_edit_curve", map[string]interface{}{"path": imgPath, "action": "reset"}, &res)
	if res.Draft.Get(curve.ChannelAll).Len() != 2 {
		t.Errorf("draft after reload: got %v", res.Draft.Get(curve.ChannelAll))
	}
}

func TestHandleToolsCall_StencilProcess(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 40, 30)

	var res processResult
	mustCallTool(t, s, "stencil_process", map[string]interface{}{
		"path":            imgPath,
		"levels":          3,
		"opacity":         100,
		"black_and_white": true,
	}, &res)

	if res.Tier != "high" {
		t.Errorf("Tier: got %s, want high", res.Tier)
	}
	if res.Settings.Levels != 3 || res.Settings.Opacity != 100 || !res.Settings.BlackAndWhite {
		t.Errorf("Settings: got %+v", res.Settings)
	}
	if res.Palette.Count < 1 || res.Palette.Count > 3 {
		t.Errorf("Palette.Count: got %d, want 1-3", res.Palette.Count)
	}

	final := decodePNG(t, res.Final)
	if final.Bounds().Dx() != 40 || final.Bounds().Dy() != 30 {
		t.Errorf("final size: got %v", final.Bounds())
	}
	colors := make(map[color.NRGBA]bool)
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			c := color.NRGBAModel.Convert(final.At(x, y)).(color.NRGBA)
			if c.R != c.G || c.G != c.B {
				t.Fatalf("pixel (%d,%d) = %v is not grey", x, y, c)
			}
			colors[c] = true
		}
	}
	if len(colors) > 3 {
		t.Errorf("final has %d colours, want at most 3", len(colors))
	}
}

func TestHandleToolsCall_StencilProcess_Curves(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 16, 16)

	red := []map[string]int{{"x": 0, "y": 0}, {"x": 100, "y": 30}, {"x": 255, "y": 255}}
	var res processResult
	mustCallTool(t, s, "stencil_process", map[string]interface{}{
		"path":   imgPath,
		"preset": "deep-blacks",
		"curves": map[string]interface{}{"red": red},
		"tier":   "low",
	}, &res)

	preset, err := curve.LookupPreset("deep-blacks")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Settings.Curves.Get(curve.ChannelAll).Equal(preset.Curves.All) {
		t.Errorf("all curve: got %v, want preset", res.Settings.Curves.Get(curve.ChannelAll))
	}
	want := curve.MustNew(curve.Point{X: 0, Y: 0}, curve.Point{X: 100, Y: 30}, curve.Point{X: 255, Y: 255})
	if !res.Settings.Curves.Get(curve.ChannelRed).Equal(want) {
		t.Errorf("red curve: got %v, want %v", res.Settings.Curves.Get(curve.ChannelRed), want)
	}
	if res.Tier != "low" {
		t.Errorf("Tier: got %s, want low", res.Tier)
	}
}

func TestHandleToolsCall_StencilProcess_Invalid(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 8, 8)

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"levels too low", map[string]interface{}{"levels": 1}},
		{"opacity too high", map[string]interface{}{"opacity": 101}},
		{"unknown preset", map[string]interface{}{"preset": "sepia"}},
		{"unknown tier", map[string]interface{}{"tier": "medium"}},
		{"curve without endpoint", map[string]interface{}{
			"curves": map[string]interface{}{"all": []map[string]int{{"x": 0, "y": 0}, {"x": 200, "y": 255}}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.args["path"] = imgPath
			if mcpErr := callTool(t, s, "stencil_process", tt.args, nil); mcpErr == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestHandleToolsCall_CurvePresets(t *testing.T) {
	s := newTestServer(t)

	var res presetsResult
	mustCallTool(t, s, "stencil_curve_presets", map[string]interface{}{}, &res)

	var names []string
	for _, p := range res.Presets {
		names = append(names, p.Name)
	}
	want := []string{"bright-whites", "deep-blacks", "high-contrast", "linear", "stencil-contrast"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("presets (-want +got):\n%s", diff)
	}
	if res.Count != len(want) {
		t.Errorf("Count: got %d, want %d", res.Count, len(want))
	}
}

func TestHandleToolsCall_EditCurve(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 20, 20)

	edit := func(args map[string]interface{}) (editCurveResult, *MCPError) {
		t.Helper()
		args["path"] = imgPath
		var res editCurveResult
		mcpErr := callTool(t, s, "stencil_edit_curve", args, &res)
		return res, mcpErr
	}

	res, mcpErr := edit(map[string]interface{}{"channel": "red", "action": "insert", "x": 65, "y": 15})
	if mcpErr != nil {
		t.Fatalf("insert failed: %v", mcpErr.Data)
	}
	if res.Index != 1 || res.Channel != curve.ChannelRed || res.Seq == 0 {
		t.Errorf("insert: got index %d channel %s seq %d", res.Index, res.Channel, res.Seq)
	}
	if res.Draft.Get(curve.ChannelRed).Len() != 3 {
		t.Errorf("draft red curve: got %v", res.Draft.Get(curve.ChannelRed))
	}

	res, mcpErr = edit(map[string]interface{}{"channel": "red", "action": "move", "index": 1, "x": 255, "y": 40})
	if mcpErr != nil {
		t.Fatalf("move failed: %v", mcpErr.Data)
	}
	if res.Index != -1 {
		t.Errorf("moving onto the endpoint should remove the point, got index %d", res.Index)
	}
	if res.Curve.Len() != 2 {
		t.Errorf("curve after drag-to-coincide: got %v", res.Curve)
	}

	res, mcpErr = edit(map[string]interface{}{"action": "insert", "x": 128, "y": 200})
	if mcpErr != nil {
		t.Fatalf("insert on default channel failed: %v", mcpErr.Data)
	}
	if res.Channel != curve.ChannelAll {
		t.Errorf("default channel: got %s, want all", res.Channel)
	}

	res, mcpErr = edit(map[string]interface{}{"action": "reset"})
	if mcpErr != nil {
		t.Fatalf("reset failed: %v", mcpErr.Data)
	}
	if !res.Draft.Get(curve.ChannelAll).Equal(curve.Identity()) {
		t.Errorf("reset: got %v", res.Draft.Get(curve.ChannelAll))
	}

	res, mcpErr = edit(map[string]interface{}{"action": "insert", "x": 64, "y": 30})
	if mcpErr != nil {
		t.Fatalf("insert failed: %v", mcpErr.Data)
	}
	res, mcpErr = edit(map[string]interface{}{"action": "move", "at": 60, "x": 70, "y": 20})
	if mcpErr != nil {
		t.Fatalf("move by position failed: %v", mcpErr.Data)
	}
	if res.Index != 1 {
		t.Errorf("move by position: got index %d, want 1", res.Index)
	}
	if p := res.Curve.Points()[1]; p.X != 70 || p.Y != 20 {
		t.Errorf("moved point: got %+v, want (70,20)", p)
	}
	res, mcpErr = edit(map[string]interface{}{"action": "remove", "at": 75})
	if mcpErr != nil {
		t.Fatalf("remove by position failed: %v", mcpErr.Data)
	}
	if !res.Draft.Get(curve.ChannelAll).Equal(curve.Identity()) {
		t.Errorf("remove by position: got %v", res.Draft.Get(curve.ChannelAll))
	}

	res, mcpErr = edit(map[string]interface{}{"action": "preset", "preset": "deep-blacks"})
	if mcpErr != nil {
		t.Fatalf("preset failed: %v", mcpErr.Data)
	}
	preset, err := curve.LookupPreset("deep-blacks")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Draft.Equal(preset.Curves) {
		t.Errorf("preset draft: got %v, want %v", res.Draft, preset.Curves)
	}
	if res.Index != -1 || res.Seq == 0 {
		t.Errorf("preset: got index %d seq %d", res.Index, res.Seq)
	}

	failures := []map[string]interface{}{
		{"action": "remove", "index": 0},
		{"action": "remove", "at": 128},
		{"action": "preset", "preset": "sepia"},
		{"action": "insert", "x": 10},
		{"action": "move", "x": 10, "y": 10},
		{"action": "remove"},
		{"action": "smooth"},
		{"action": "reset", "channel": "blue"},
	}
	for _, args := range failures {
		if _, mcpErr := edit(args); mcpErr == nil {
			t.Errorf("edit %v should fail", args)
		}
	}
}

func TestHandleToolsCall_CommitPromotesDraft(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 24, 24)

	mustCallTool(t, s, "stencil_edit_curve", map[string]interface{}{
		"path": imgPath, "channel": "red", "action": "insert", "x": 65, "y": 15,
	}, nil)

	var res commitResult
	mustCallTool(t, s, "stencil_commit", map[string]interface{}{"path": imgPath, "timeout_ms": 10000}, &res)

	if res.Tier != "high" {
		t.Errorf("Tier: got %s, want high", res.Tier)
	}
	if res.Width != 24 || res.Height != 24 {
		t.Errorf("size: got %dx%d, want 24x24", res.Width, res.Height)
	}
	if res.Settings.Curves.Get(curve.ChannelRed).Len() != 3 {
		t.Errorf("committed red curve: got %v", res.Settings.Curves.Get(curve.ChannelRed))
	}
	if res.Palette == nil || res.Palette.Count == 0 {
		t.Error("commit returned no palette")
	}
}

func TestHandleToolsCall_UpdateSettings(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 24, 24)

	var upd updateSettingsResult
	mustCallTool(t, s, "stencil_update_settings", map[string]interface{}{
		"path": imgPath, "levels": 4, "black_and_white": true, "preset": "stencil-contrast",
	}, &upd)
	if upd.Seq == 0 {
		t.Error("update did not schedule a run")
	}
	if upd.Settings.Levels != 4 || !upd.Settings.BlackAndWhite || upd.Settings.Opacity != 50 {
		t.Errorf("Settings: got %+v", upd.Settings)
	}

	var res commitResult
	mustCallTool(t, s, "stencil_commit", map[string]interface{}{"path": imgPath}, &res)
	if res.Settings.Levels != 4 || !res.Settings.BlackAndWhite {
		t.Errorf("committed settings: got %+v", res.Settings)
	}
	for _, c := range res.Palette.Colors {
		if c.RGB.R != c.RGB.G || c.RGB.G != c.RGB.B {
			t.Errorf("black-and-white palette has colour %s", c.Hex)
		}
	}

	if mcpErr := callTool(t, s, "stencil_update_settings", map[string]interface{}{"path": imgPath, "opacity": -1}, nil); mcpErr == nil {
		t.Error("invalid opacity should fail")
	}
}

func TestHandleToolsCall_Export(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 30, 20)
	outDir := t.TempDir()

	tests := []struct {
		name     string
		args     map[string]interface{}
		format   string
		paletted bool
	}{
		{"final png", map[string]interface{}{"output": filepath.Join(outDir, "final.png")}, "png", false},
		{"curved jpeg", map[string]interface{}{"output": filepath.Join(outDir, "curved.jpg"), "artifact": "curved"}, "jpeg", false},
		{"paletted", map[string]interface{}{"output": filepath.Join(outDir, "pal.png"), "paletted": true}, "png", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.args["path"] = imgPath
			var res imaging.ExportResult
			mustCallTool(t, s, "stencil_export", tt.args, &res)

			if res.Format != tt.format || res.Paletted != tt.paletted {
				t.Errorf("got format %s paletted %v", res.Format, res.Paletted)
			}
			if res.Width != 30 || res.Height != 20 {
				t.Errorf("size: got %dx%d, want 30x20", res.Width, res.Height)
			}
			if _, err := os.Stat(res.Path); err != nil {
				t.Errorf("output missing: %v", err)
			}
			if tt.paletted && (res.Colors < 1 || res.Colors > 256) {
				t.Errorf("paletted Colors: got %d, want 1-256", res.Colors)
			}
		})
	}

	failures := []map[string]interface{}{
		{"path": imgPath},
		{"path": imgPath, "output": filepath.Join(outDir, "x.png"), "artifact": "quantized"},
		{"path": imgPath, "output": filepath.Join(outDir, "x.jpg"), "paletted": true},
	}
	for _, args := range failures {
		if mcpErr := callTool(t, s, "stencil_export", args, nil); mcpErr == nil {
			t.Errorf("export %v should fail", args)
		}
	}
}
