// Package capture acquires microphone access and negotiates the audio encoding
// used for the recognition session.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/harunnryd/speechgate/pkg/errorsx"
	"github.com/harunnryd/speechgate/pkg/logging"
)

// Encoding is an audio container MIME type.
type Encoding string

const (
	EncodingWebM Encoding = "audio/webm"
	EncodingOgg  Encoding = "audio/ogg"
	EncodingMPEG Encoding = "audio/mpeg"
	EncodingMP4  Encoding = "audio/mp4"
)

// PreferredEncodings is the order tried when none is configured.
var PreferredEncodings = []Encoding{EncodingWebM, EncodingOgg, EncodingMPEG, EncodingMP4}

var (
	ErrPermissionDenied  = errors.New("microphone permission denied")
	ErrNoSupportedFormat = errors.New("no supported audio encoding")
)

// Platform is the media capture collaborator.
type Platform interface {
	// RequestPermission blocks until the user grants or denies microphone access.
	RequestPermission(ctx context.Context) error
	// IsTypeSupported reports whether the platform can record enc.
	IsTypeSupported(enc Encoding) bool
}

// PickEncoding returns the first entry of preference that appears in supported.
func PickEncoding(preference, supported []Encoding) (Encoding, bool) {
	for _, want := range preference {
		for _, have := range supported {
			if strings.EqualFold(string(want), string(have)) {
				return want, true
			}
		}
	}
	return "", false
}

// Capture wraps a Platform with the acquisition contract.
type Capture struct {
	platform   Platform
	preference []Encoding
	logger     *slog.Logger
}

func New(platform Platform, preference []Encoding) *Capture {
	if len(preference) == 0 {
		preference = PreferredEncodings
	}
	return &Capture{
		platform:   platform,
		preference: preference,
		logger:     logging.NewComponentLogger(slog.Default(), "capture"),
	}
}

// Acquire requests permission, then walks the preference list.
// Denial fails with ErrPermissionDenied, no match with ErrNoSupportedFormat.
// A cancelled ctx returns ctx.Err() unwrapped.
func (c *Capture) Acquire(ctx context.Context) (Encoding, error) {
	if c.platform == nil {
		return "", errorsx.Wrap(fmt.Errorf("%w: no capture platform", ErrPermissionDenied), errorsx.ReasonPermissionDenied)
	}
	if err := c.platform.RequestPermission(ctx); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		c.logger.Warn("capture_permission_denied", slog.String("error", err.Error()))
		return "", errorsx.Wrap(fmt.Errorf("%w: %v", ErrPermissionDenied, err), errorsx.ReasonPermissionDenied)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	supported := make([]Encoding, 0, len(c.preference))
	for _, enc := range c.preference {
		if c.platform.IsTypeSupported(enc) {
			supported = append(supported, enc)
		}
	}
	enc, ok := PickEncoding(c.preference, supported)
	if !ok {
		c.logger.Warn("capture_no_supported_encoding", slog.Int("tried", len(c.preference)))
		return "", errorsx.Wrap(ErrNoSupportedFormat, errorsx.ReasonUnsupportedAudioFormat)
	}
	c.logger.Debug("capture_encoding_selected", slog.String("encoding", string(enc)))
	return enc, nil
}
