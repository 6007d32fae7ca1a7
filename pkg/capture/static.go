package capture

import (
	"context"
	"errors"
	"strings"
)

// StaticPlatform answers permission and support queries from configuration.
// It serves hosts where the OS already owns the permission prompt.
type StaticPlatform struct {
	Denied    bool
	Supported []Encoding
}

func (p StaticPlatform) RequestPermission(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.Denied {
		return errors.New("permission disabled by configuration")
	}
	return nil
}

func (p StaticPlatform) IsTypeSupported(enc Encoding) bool {
	for _, s := range p.Supported {
		if strings.EqualFold(string(s), string(enc)) {
			return true
		}
	}
	return false
}

// ParseEncodings converts config strings to encodings, accepting bare names like "ogg".
func ParseEncodings(values []string) []Encoding {
	out := make([]Encoding, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if !strings.Contains(v, "/") {
			v = "audio/" + v
		}
		out = append(out, Encoding(v))
	}
	return out
}
