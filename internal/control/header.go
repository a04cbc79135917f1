package control

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nerrad567/conectsim/internal/device"
	"github.com/nerrad567/conectsim/internal/infrastructure/config"
)

// Card is one image header entry.
type Card struct {
	Key     string `json:"key"`
	Value   any    `json:"value"`
	Comment string `json:"comment,omitempty"`
}

// instrumentSegment stands for the instrument's name in template paths.
const instrumentSegment = "instrument"

var placeholder = regexp.MustCompile(`\{([A-Za-z0-9_.\-]+)\}`)

// DefaultCards returns the primary header cards of an instrument.
func DefaultCards(h config.HeaderConfig, instrument string) []Card {
	return []Card{
		{Key: "OBSERVAT", Value: h.Observatory, Comment: "Name of observatory"},
		{Key: "TELESCOP", Value: h.Telescope, Comment: "Telescope id."},
		{Key: "VPH", Value: "{instrument.wheel.label}", Comment: "VPH name"},
		{Key: "INSTRUME", Value: strings.ToUpper(instrument), Comment: "Name of the Instrument"},
		{Key: "ORIGIN", Value: "{control.name}", Comment: "FITS file originator"},
		{Key: "SHUTTER", Value: "{instrument.shutter.label}", Comment: "Shutter position"},
		{Key: "COVER", Value: "{instrument.cover.label}", Comment: "Cover status"},
	}
}

// Header fills the templates in cards from meta. A string value may hold
// {a.b.c} paths into meta; a leading "instrument" segment refers to the
// entry named after instrument. A value that is exactly one placeholder
// takes the referenced value with its type.
func Header(meta map[string]any, instrument string, cards []Card) ([]Card, error) {
	out := make([]Card, len(cards))
	for i, c := range cards {
		out[i] = c
		tmpl, ok := c.Value.(string)
		if !ok || !strings.Contains(tmpl, "{") {
			continue
		}

		if m := placeholder.FindStringSubmatch(tmpl); m != nil && m[0] == tmpl {
			v, err := lookup(meta, instrument, m[1])
			if err != nil {
				return nil, fmt.Errorf("card %s: %w", c.Key, err)
			}
			out[i].Value = v
			continue
		}

		var lookupErr error
		out[i].Value = placeholder.ReplaceAllStringFunc(tmpl, func(s string) string {
			v, err := lookup(meta, instrument, s[1:len(s)-1])
			if err != nil && lookupErr == nil {
				lookupErr = err
			}
			return fmt.Sprint(v)
		})
		if lookupErr != nil {
			return nil, fmt.Errorf("card %s: %w", c.Key, lookupErr)
		}
	}
	return out, nil
}

func lookup(meta map[string]any, instrument, path string) (any, error) {
	segments := strings.Split(path, ".")
	if segments[0] == instrumentSegment {
		segments[0] = instrument
	}
	var cur any = meta
	for _, seg := range segments {
		var next any
		var ok bool
		switch m := cur.(type) {
		case map[string]any:
			next, ok = m[seg]
		case device.Info:
			next, ok = m[seg]
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrHeaderPath, path)
		}
		cur = next
	}
	return cur, nil
}
