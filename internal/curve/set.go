package curve

import (
	"fmt"
	"sort"
)

// Channel identifies which colour channels a curve applies to.
type Channel string

const (
	// ChannelAll applies to the red, green and blue channels.
	ChannelAll Channel = "all"
	// ChannelRed applies to the red channel only, after ChannelAll.
	ChannelRed Channel = "red"
)

// Channels lists the supported channels in application order.
var Channels = []Channel{ChannelAll, ChannelRed}

// ParseChannel converts a channel name to a Channel.
func ParseChannel(s string) (Channel, error) {
	switch Channel(s) {
	case ChannelAll, ChannelRed:
		return Channel(s), nil
	case "":
		return ChannelAll, nil
	}
	return "", fmt.Errorf("unknown channel: %s", s)
}

// Set holds one curve per channel. Missing channels are treated as the
// identity curve.
type Set struct {
	All Curve `json:"all"`
	Red Curve `json:"red"`
}

// DefaultSet returns a Set with identity curves on every channel.
func DefaultSet() Set {
	return Set{All: Identity(), Red: Identity()}
}

// Get returns the curve for ch, substituting the identity curve for an
// unset channel.
func (s Set) Get(ch Channel) Curve {
	var c Curve
	switch ch {
	case ChannelAll:
		c = s.All
	case ChannelRed:
		c = s.Red
	}
	if c.Len() == 0 {
		return Identity()
	}
	return c
}

// With returns a copy of s with the curve for ch replaced.
func (s Set) With(ch Channel, c Curve) Set {
	switch ch {
	case ChannelAll:
		s.All = c
	case ChannelRed:
		s.Red = c
	}
	return s
}

// Validate checks every curve in the set.
func (s Set) Validate() error {
	for _, ch := range Channels {
		if err := s.Get(ch).Validate(); err != nil {
			return fmt.Errorf("channel %s: %w", ch, err)
		}
	}
	return nil
}

// Equal reports whether both sets hold identical curves.
func (s Set) Equal(o Set) bool {
	for _, ch := range Channels {
		if !s.Get(ch).Equal(o.Get(ch)) {
			return false
		}
	}
	return true
}

// LUTs builds the master and red lookup tables for the set.
func (s Set) LUTs() (all, red LUT) {
	return BuildLUT(s.Get(ChannelAll)), BuildLUT(s.Get(ChannelRed))
}

// Preset is a named, ready-made curve set.
type Preset struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Curves      Set    `json:"curves"`
}

// sampleRed is the red-channel curve used by the stencil-contrast preset.
var sampleRed = MustNew(Point{0, 0}, Point{65, 15}, Point{190, 240}, Point{255, 255})

var presets = map[string]Preset{
	"linear": {
		Name:        "linear",
		Description: "Identity curves; the photograph is left untouched before quantization",
		Curves:      DefaultSet(),
	},
	"deep-blacks": {
		Name:        "deep-blacks",
		Description: "Crushes shadows so dark areas merge into solid black regions",
		Curves: Set{
			All: MustNew(Point{0, 0}, Point{70, 20}, Point{160, 150}, Point{255, 255}),
			Red: Identity(),
		},
	},
	"bright-whites": {
		Name:        "bright-whites",
		Description: "Lifts highlights so light areas clip to clean white skin",
		Curves: Set{
			All: MustNew(Point{0, 0}, Point{100, 110}, Point{190, 240}, Point{255, 255}),
			Red: Identity(),
		},
	},
	"stencil-contrast": {
		Name:        "stencil-contrast",
		Description: "Deep blacks and bright whites with an S-shaped red curve for skin tones",
		Curves: Set{
			All: MustNew(Point{0, 0}, Point{64, 32}, Point{192, 224}, Point{255, 255}),
			Red: sampleRed,
		},
	},
	"high-contrast": {
		Name:        "high-contrast",
		Description: "Steep S-curve on every channel for bold linework",
		Curves: Set{
			All: MustNew(Point{0, 0}, Point{80, 20}, Point{176, 236}, Point{255, 255}),
			Red: Identity(),
		},
	},
}

// LookupPreset returns the preset with the given name.
func LookupPreset(name string) (Preset, error) {
	p, ok := presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("unknown curve preset: %s", name)
	}
	return p, nil
}

// Presets returns every preset sorted by name.
func Presets() []Preset {
	out := make([]Preset, 0, len(presets))
	for _, p := range presets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}
