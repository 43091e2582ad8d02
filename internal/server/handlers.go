package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ironsheep/stencil-tools-mcp/internal/curve"
	"github.com/ironsheep/stencil-tools-mcp/internal/imaging"
	"github.com/ironsheep/stencil-tools-mcp/internal/session"
	"github.com/ironsheep/stencil-tools-mcp/internal/stencil"
)

// DefaultCommitTimeout bounds how long stencil_commit and stencil_export
// wait for a high-fidelity run.
const DefaultCommitTimeout = 30 * time.Second

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "stencil_load", "stencil_commit").
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
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		return s.errorResponse(req.ID, codeToolFailed, "Tool execution failed", err.Error())
	}

	return resultResponse(req.ID, toolResult{
		Content: []toolContent{{Type: "text", Text: mustMarshalJSON(result)}},
	})
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "stencil_load":
		return s.handleStencilLoad(args)
	case "stencil_process":
		return s.handleStencilProcess(args)
	case "stencil_curve_presets":
		return s.handleCurvePresets(args)
	case "stencil_edit_curve":
		return s.handleEditCurve(args)
	case "stencil_update_settings":
		return s.handleUpdateSettings(args)
	case "stencil_commit":
		return s.handleCommit(args)
	case "stencil_export":
		return s.handleExport(args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// toolResult is MCP's content envelope for tools/call.
type toolResult struct {
	Content []toolContent `json:"content"`
}

type toolContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// errorResponse creates a JSON-RPC error response. An empty data string is
// omitted.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	e := &MCPError{Code: code, Message: message}
	if data != "" {
		e.Data = data
	}
	return &MCPResponse{JSONRPC: "2.0", ID: id, Error: e}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// unmarshalArgs decodes tool arguments, treating missing arguments as {}.
func unmarshalArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func requirePath(path string) error {
	if path == "" {
		return fmt.Errorf("path is required")
	}
	return nil
}

// settingsArgs are the optional settings overrides shared by
// stencil_process and stencil_update_settings.
type settingsArgs struct {
	Levels        *int       `json:"levels"`
	Opacity       *int       `json:"opacity"`
	BlackAndWhite *bool      `json:"black_and_white"`
	Preset        string     `json:"preset"`
	Curves        *curve.Set `json:"curves"`
}

// apply overlays the arguments on base. A preset replaces both curves;
// explicit curves then replace the channels they name.
func (a settingsArgs) apply(base stencil.Settings) (stencil.Settings, error) {
	curves := base.Curves
	if a.Preset != "" {
		p, err := curve.LookupPreset(a.Preset)
		if err != nil {
			return stencil.Settings{}, err
		}
		curves = p.Curves
	}
	if a.Curves != nil {
		if a.Curves.All.Len() > 0 {
			curves = curves.With(curve.ChannelAll, a.Curves.All)
		}
		if a.Curves.Red.Len() > 0 {
			curves = curves.With(curve.ChannelRed, a.Curves.Red)
		}
	}

	levels, opacity, bw := base.Levels, base.Opacity, base.BlackAndWhite
	if a.Levels != nil {
		levels = *a.Levels
	}
	if a.Opacity != nil {
		opacity = *a.Opacity
	}
	if a.BlackAndWhite != nil {
		bw = *a.BlackAndWhite
	}
	return stencil.NewSettings(levels, opacity, bw, curves)
}

// === Source Handlers ===

// DefaultDominantColors is the number of dominant colours stencil_load
// reports when the caller does not ask for a count.
const DefaultDominantColors = 5

type loadArgs struct {
	Path   string `json:"path"`
	Colors *int   `json:"colors"`
	Reload bool   `json:"reload"`
}

type loadResult struct {
	*imaging.SourceInfo
	DominantColors *imaging.PaletteResult `json:"dominant_colors,omitempty"`
}

func (s *Server) handleStencilLoad(args json.RawMessage) (interface{}, error) {
	var a loadArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if err := requirePath(a.Path); err != nil {
		return nil, err
	}
	count := DefaultDominantColors
	if a.Colors != nil {
		if *a.Colors < 0 {
			return nil, fmt.Errorf("colors must not be negative, got %d", *a.Colors)
		}
		count = *a.Colors
	}
	if a.Reload {
		s.forget(a.Path)
	}

	info, err := imaging.LoadSourceInfo(s.cache, a.Path)
	if err != nil {
		return nil, err
	}
	res := &loadResult{SourceInfo: info}
	if count > 0 {
		src, err := s.cache.Load(a.Path)
		if err != nil {
			return nil, err
		}
		res.DominantColors = imaging.DominantColors(src.Pixels, count)
	}
	return res, nil
}

// === Processing Handlers ===

type processArgs struct {
	Path string `json:"path"`
	Tier string `json:"tier"`
	settingsArgs
}

type processResult struct {
	Tier      string                 `json:"tier"`
	Settings  stencil.Settings       `json:"settings"`
	Curved    *imaging.EncodedImage  `json:"curved"`
	Final     *imaging.EncodedImage  `json:"final"`
	Palette   *imaging.PaletteResult `json:"palette"`
	ElapsedMS int64                  `json:"elapsed_ms"`
}

func (s *Server) handleStencilProcess(args json.RawMessage) (interface{}, error) {
	var a processArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if err := requirePath(a.Path); err != nil {
		return nil, err
	}
	tier, err := stencil.ParseTier(a.Tier)
	if err != nil {
		return nil, err
	}
	settings, err := a.apply(s.cfg.Settings)
	if err != nil {
		return nil, err
	}
	src, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	arts, err := stencil.Process(src.Pixels, settings, tier)
	if err != nil {
		return nil, err
	}
	return newProcessResult(arts)
}

func newProcessResult(arts stencil.Artifacts) (*processResult, error) {
	curved, err := imaging.EncodePNG(arts.CurvedOnly)
	if err != nil {
		return nil, err
	}
	final, err := imaging.EncodePNG(arts.Final)
	if err != nil {
		return nil, err
	}
	return &processResult{
		Tier:      arts.Tier.String(),
		Settings:  arts.Settings,
		Curved:    curved,
		Final:     final,
		Palette:   imaging.PaletteReport(arts.Palette),
		ElapsedMS: arts.Elapsed.Milliseconds(),
	}, nil
}

type presetsResult struct {
	Presets []curve.Preset `json:"presets"`
	Count   int            `json:"count"`
}

func (s *Server) handleCurvePresets(args json.RawMessage) (interface{}, error) {
	presets := curve.Presets()
	return &presetsResult{Presets: presets, Count: len(presets)}, nil
}

// === Session Handlers ===

// pickTolerance is how far, in input intensity, a point may lie from the
// requested x when a move or remove names the point by position.
const pickTolerance = 8

type editCurveArgs struct {
	Path    string `json:"path"`
	Channel string `json:"channel"`
	Action  string `json:"action"`
	Index   *int   `json:"index"`
	At      *int   `json:"at"`
	X       *int   `json:"x"`
	Y       *int   `json:"y"`
	Preset  string `json:"preset"`
}

// pointIndex resolves the point a move or remove acts on: the explicit
// index, or the point nearest At.
func (a editCurveArgs) pointIndex(c curve.Curve) (int, error) {
	if a.Index != nil {
		return *a.Index, nil
	}
	if a.At == nil {
		return 0, fmt.Errorf("%s requires index or at", a.Action)
	}
	i := c.Nearest(*a.At, pickTolerance)
	if i < 0 {
		return 0, fmt.Errorf("no control point within %d of x=%d", pickTolerance, *a.At)
	}
	return i, nil
}

type editCurveResult struct {
	Action string `json:"action"`
	session.EditResult
	Draft curve.Set `json:"draft"`
}

func (s *Server) handleEditCurve(args json.RawMessage) (interface{}, error) {
	var a editCurveArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if err := requirePath(a.Path); err != nil {
		return nil, err
	}
	ch, err := curve.ParseChannel(a.Channel)
	if err != nil {
		return nil, err
	}
	sess, err := s.session(a.Path)
	if err != nil {
		return nil, err
	}

	var res session.EditResult
	switch a.Action {
	case "insert":
		if a.X == nil || a.Y == nil {
			return nil, fmt.Errorf("insert requires x and y")
		}
		res = sess.InsertPoint(ch, *a.X, *a.Y)
	case "move":
		if a.X == nil || a.Y == nil {
			return nil, fmt.Errorf("move requires x and y")
		}
		i, err := a.pointIndex(sess.Draft().Get(ch))
		if err != nil {
			return nil, err
		}
		res, err = sess.MovePoint(ch, i, *a.X, *a.Y)
		if err != nil {
			return nil, err
		}
	case "remove":
		i, err := a.pointIndex(sess.Draft().Get(ch))
		if err != nil {
			return nil, err
		}
		res, err = sess.RemovePoint(ch, i)
		if err != nil {
			return nil, err
		}
	case "reset":
		res = sess.ResetCurve(ch)
	case "preset":
		p, err := curve.LookupPreset(a.Preset)
		if err != nil {
			return nil, err
		}
		seq := sess.ApplyPreset(p)
		res = session.EditResult{Channel: ch, Curve: p.Curves.Get(ch), Index: -1, Seq: seq}
	default:
		return nil, fmt.Errorf("unknown action %q: want insert, move, remove, reset or preset", a.Action)
	}

	return &editCurveResult{Action: a.Action, EditResult: res, Draft: sess.Draft()}, nil
}

type updateSettingsArgs struct {
	Path string `json:"path"`
	settingsArgs
}

type updateSettingsResult struct {
	Seq      uint64           `json:"seq"`
	Settings stencil.Settings `json:"settings"`
}

func (s *Server) handleUpdateSettings(args json.RawMessage) (interface{}, error) {
	var a updateSettingsArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if err := requirePath(a.Path); err != nil {
		return nil, err
	}
	sess, err := s.session(a.Path)
	if err != nil {
		return nil, err
	}

	settings, err := a.apply(sess.Settings())
	if err != nil {
		return nil, err
	}
	seq, err := sess.Update(settings)
	if err != nil {
		return nil, err
	}
	return &updateSettingsResult{Seq: seq, Settings: settings}, nil
}

type commitArgs struct {
	Path      string `json:"path"`
	TimeoutMS int    `json:"timeout_ms"`
}

type commitResult struct {
	Seq       uint64                 `json:"seq"`
	Tier      string                 `json:"tier"`
	Settings  stencil.Settings       `json:"settings"`
	Width     int                    `json:"width"`
	Height    int                    `json:"height"`
	Palette   *imaging.PaletteResult `json:"palette"`
	ElapsedMS int64                  `json:"elapsed_ms"`
}

func (s *Server) handleCommit(args json.RawMessage) (interface{}, error) {
	var a commitArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if err := requirePath(a.Path); err != nil {
		return nil, err
	}
	sess, err := s.session(a.Path)
	if err != nil {
		return nil, err
	}

	snap, err := commitAndWait(sess, timeoutFromMS(a.TimeoutMS))
	if err != nil {
		return nil, err
	}
	arts := snap.Artifacts
	return &commitResult{
		Seq:       snap.Seq,
		Tier:      arts.Tier.String(),
		Settings:  arts.Settings,
		Width:     arts.Final.Width(),
		Height:    arts.Final.Height(),
		Palette:   imaging.PaletteReport(arts.Palette),
		ElapsedMS: arts.Elapsed.Milliseconds(),
	}, nil
}

func timeoutFromMS(ms int) time.Duration {
	if ms <= 0 {
		return DefaultCommitTimeout
	}
	return time.Duration(ms) * time.Millisecond
}

func commitAndWait(sess *session.Session, timeout time.Duration) (session.Snapshot, error) {
	seq := sess.Commit()
	if seq == 0 {
		return session.Snapshot{}, fmt.Errorf("session is closed")
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	snap, err := sess.Wait(ctx, seq)
	if err != nil {
		return session.Snapshot{}, fmt.Errorf("waiting for run %d: %w", seq, err)
	}
	return snap, nil
}

type exportArgs struct {
	Path     string `json:"path"`
	Output   string `json:"output"`
	Artifact string `json:"artifact"`
	Paletted bool   `json:"paletted"`
}

func (s *Server) handleExport(args json.RawMessage) (interface{}, error) {
	var a exportArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if err := requirePath(a.Path); err != nil {
		return nil, err
	}
	if a.Output == "" {
		return nil, fmt.Errorf("output is required")
	}
	if a.Artifact == "" {
		a.Artifact = "final"
	}
	if a.Artifact != "final" && a.Artifact != "curved" {
		return nil, fmt.Errorf("unknown artifact %q: want final or curved", a.Artifact)
	}

	sess, err := s.session(a.Path)
	if err != nil {
		return nil, err
	}
	snap, ok := sess.Latest()
	if !ok {
		if snap, err = commitAndWait(sess, DefaultCommitTimeout); err != nil {
			return nil, err
		}
	}

	buf := snap.Artifacts.Final
	if a.Artifact == "curved" {
		buf = snap.Artifacts.CurvedOnly
	}
	return imaging.Export(buf, a.Output, a.Paletted)
}
