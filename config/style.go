package config

import (
	"encoding/json"
	"fmt"

	"github.com/xi-editor/xi-plugin-go/style"
)

// Highlight describes how a plugin marks text: a foreground color and
// font flags.
type Highlight struct {
	Fg   uint32
	Font int
}

// DefaultHighlightColor is used when a Highlight names no color.
const DefaultHighlightColor = "red"

var StringToFont = map[string]int{
	"bold":      style.Bold,
	"underline": style.Underline,
	"italic":    style.Italic,
}

// Init sets the highlight to underlined red.
func (h *Highlight) Init() {
	fg, _ := style.ParseColor(DefaultHighlightColor)
	h.Fg = fg
	h.Font = style.Underline
}

// Span returns a span covering [start, end) with this highlight.
func (h Highlight) Span(start, end int) style.Span {
	return style.Span{Start: start, End: end, Fg: h.Fg, Font: h.Font}
}

// UnmarshalJSON decodes a JSON array of strings into a Highlight.
func (h *Highlight) UnmarshalJSON(buf []byte) error {
	raw := []string{}
	if err := json.Unmarshal(buf, &raw); err != nil {
		return fmt.Errorf("failed to unmarshal Highlight: %w", err)
	}
	return StringsToHighlight(h, raw)
}

// UnmarshalYAML decodes a YAML array of strings into a Highlight.
func (h *Highlight) UnmarshalYAML(unmarshal func(any) error) error {
	var raw []string
	if err := unmarshal(&raw); err != nil {
		return fmt.Errorf("failed to unmarshal Highlight from YAML: %w", err)
	}
	return StringsToHighlight(h, raw)
}

// StringsToHighlight parses font names ("bold", "underline", "italic") and
// a color (a name or "#rrggbb") into a Highlight. Without a color, the
// default one is used.
func StringsToHighlight(h *Highlight, raw []string) error {
	h.Font = 0
	color := DefaultHighlightColor

	for _, s := range raw {
		if font, ok := StringToFont[s]; ok {
			h.Font |= font
			continue
		}
		color = s
	}

	fg, err := style.ParseColor(color)
	if err != nil {
		return fmt.Errorf("invalid Highlight: %w", err)
	}
	h.Fg = fg
	return nil
}
