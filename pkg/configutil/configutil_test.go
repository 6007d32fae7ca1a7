package configutil

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateReportsMissingAndUnknown(t *testing.T) {
	err := Validate("notify.settings", map[string]any{
		"Addr":   "  ",
		"volume": 11,
	}, Schema{Required: []string{"addr"}, Optional: []string{"channel"}})

	var serr *SettingsError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, []string{"addr"}, serr.Missing)
	assert.Equal(t, []string{"volume"}, serr.Unknown)
	assert.Equal(t, "notify.settings: missing: addr; unknown: volume", err.Error())
}

func TestValidateNormalizesKeys(t *testing.T) {
	err := Validate("", map[string]any{"Timeout-MS": 10, "VOICE_ID": "v"}, Schema{
		Required: []string{"voice_id"},
		Optional: []string{"timeout_ms"},
	})
	assert.NoError(t, err)
}

func TestValidateAllowUnknown(t *testing.T) {
	assert.NoError(t, Validate("x", map[string]any{"anything": true}, Schema{AllowUnknown: true}))
}

func TestDecode(t *testing.T) {
	var out struct {
		SampleRate int           `mapstructure:"sample_rate"`
		Timeout    time.Duration `mapstructure:"timeout"`
		Phrases    []string      `mapstructure:"phrases"`
		Interim    *bool         `mapstructure:"interim"`
	}
	require.NoError(t, Decode(map[string]any{
		"sample-rate": "16000",
		"timeout":     "1500ms",
		"phrases":     "hello,world",
	}, &out))
	assert.Equal(t, 16000, out.SampleRate)
	assert.Equal(t, 1500*time.Millisecond, out.Timeout)
	assert.Equal(t, []string{"hello", "world"}, out.Phrases)
	assert.True(t, BoolValue(out.Interim, true))
}

func TestMillis(t *testing.T) {
	assert.Equal(t, 2*time.Second, Millis(0, 2*time.Second))
	assert.Equal(t, 250*time.Millisecond, Millis(250, time.Second))
	assert.Equal(t, 7, IntValue(nil, 7))
}
