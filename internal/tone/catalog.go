package tone

import "strings"

// SkinTone is a skin brightness bucket
type SkinTone string

const (
	Light  SkinTone = "light"
	Medium SkinTone = "medium"
	Dark   SkinTone = "dark"
)

// Tones lists the buckets from lightest to darkest
var Tones = []SkinTone{Light, Medium, Dark}

// Palette holds suggested #RRGGBB colors per feature
type Palette struct {
	Lipstick  []string `json:"lipstick"`
	Eyeshadow []string `json:"eyeshadow"`
	Blush     []string `json:"blush"`
}

var catalog = map[SkinTone]Palette{
	Light: {
		Lipstick:  []string{"#ff6b9d", "#ff7675", "#fd79a8", "#e84393"},
		Eyeshadow: []string{"#a55eea", "#3742fa", "#ff6348", "#f8b500"},
		Blush:     []string{"#ff9ff3", "#ff6b9d", "#fd79a8", "#ff7675"},
	},
	Medium: {
		Lipstick:  []string{"#ff4757", "#c44569", "#f8b500", "#e84393"},
		Eyeshadow: []string{"#2f3542", "#ff6348", "#ff9ff3", "#a55eea"},
		Blush:     []string{"#ff7675", "#fd79a8", "#e84393", "#c44569"},
	},
	Dark: {
		Lipstick:  []string{"#c44569", "#8b0000", "#ff4757", "#e84393"},
		Eyeshadow: []string{"#2f3542", "#8b4513", "#ff6348", "#a55eea"},
		Blush:     []string{"#e84393", "#ff7675", "#c44569", "#ff4757"},
	},
}

// Recommend returns the palette for t. Unknown tones get the medium palette.
// The result is a copy and may be modified by the caller.
func Recommend(t SkinTone) Palette {
	p, ok := catalog[t]
	if !ok {
		p = catalog[Medium]
	}
	return Palette{
		Lipstick:  append([]string(nil), p.Lipstick...),
		Eyeshadow: append([]string(nil), p.Eyeshadow...),
		Blush:     append([]string(nil), p.Blush...),
	}
}

// ParseSkinTone accepts a tone name in any case
func ParseSkinTone(s string) (SkinTone, bool) {
	t := SkinTone(strings.ToLower(strings.TrimSpace(s)))
	_, ok := catalog[t]
	return t, ok
}
