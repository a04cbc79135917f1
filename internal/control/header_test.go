package control

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/conectsim/internal/device"
	"github.com/nerrad567/conectsim/internal/infrastructure/config"
)

func headerMeta() map[string]any {
	return map[string]any{
		"control": map[string]any{"name": "conectsim"},
		"ob":      map[string]any{"object": "M31", "id": 3},
		"megara": device.Info{
			"wheel":   device.Info{"label": "LR-B", "position": 1},
			"shutter": device.Info{"label": "shutter open"},
			"cover":   device.Info{"label": "UNSET"},
		},
	}
}

func TestDefaultCards(t *testing.T) {
	cards := DefaultCards(config.HeaderConfig{Observatory: "ORM", Telescope: "GTC"}, "megara")
	var keys []string
	for _, c := range cards {
		keys = append(keys, c.Key)
	}
	assert.Equal(t, []string{"OBSERVAT", "TELESCOP", "VPH", "INSTRUME", "ORIGIN", "SHUTTER", "COVER"}, keys)
	assert.Equal(t, "MEGARA", cards[3].Value)
}

func TestHeader_FillsTemplates(t *testing.T) {
	cards := DefaultCards(config.HeaderConfig{Observatory: "ORM", Telescope: "GTC"}, "megara")
	out, err := Header(headerMeta(), "megara", cards)
	require.NoError(t, err)

	values := map[string]any{}
	for _, c := range out {
		values[c.Key] = c.Value
	}
	assert.Equal(t, map[string]any{
		"OBSERVAT": "ORM",
		"TELESCOP": "GTC",
		"VPH":      "LR-B",
		"INSTRUME": "MEGARA",
		"ORIGIN":   "conectsim",
		"SHUTTER":  "shutter open",
		"COVER":    "UNSET",
	}, values)

	assert.Equal(t, "{instrument.wheel.label}", cards[2].Value, "input cards are not modified")
}

func TestHeader_TypesAndMixedText(t *testing.T) {
	out, err := Header(headerMeta(), "megara", []Card{
		{Key: "OBSID", Value: "{ob.id}"},
		{Key: "POS", Value: "{instrument.wheel.position}"},
		{Key: "OBJECT", Value: "target {ob.object} #{ob.id}"},
		{Key: "EXPTIME", Value: 10.5},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, out[0].Value)
	assert.Equal(t, 1, out[1].Value)
	assert.Equal(t, "target M31 #3", out[2].Value)
	assert.Equal(t, 10.5, out[3].Value)
}

func TestHeader_MissingPath(t *testing.T) {
	_, err := Header(headerMeta(), "megara", []Card{{Key: "X", Value: "{ob.missing}"}})
	assert.ErrorIs(t, err, ErrHeaderPath)

	_, err = Header(headerMeta(), "megara", []Card{{Key: "X", Value: "a {instrument.grating.name} b"}})
	assert.ErrorIs(t, err, ErrHeaderPath)
}
