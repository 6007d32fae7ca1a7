// Package accesscode resolves the deployment access code that callers must present
// before a recognition session is allowed to start.
package accesscode

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultEnvKey is the variable consulted when no key is configured.
const DefaultEnvKey = "ACCESS_CODE"

// Store returns the configured access code.
type Store interface {
	AccessCode() string
}

// Static is a fixed access code.
type Static string

func (s Static) AccessCode() string { return string(s) }

// EnvStore reads the access code from the process environment, falling back to
// values parsed from dotenv files. Process environment always wins.
type EnvStore struct {
	key  string
	file map[string]string
}

// NewEnvStore parses the given dotenv files. Missing files are skipped.
func NewEnvStore(key string, files ...string) (*EnvStore, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		key = DefaultEnvKey
	}
	s := &EnvStore{key: key, file: map[string]string{}}
	for _, f := range files {
		if strings.TrimSpace(f) == "" {
			continue
		}
		values, err := godotenv.Read(f)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		for k, v := range values {
			if _, seen := s.file[k]; !seen {
				s.file[k] = v
			}
		}
	}
	return s, nil
}

// Key returns the variable name this store consults.
func (s *EnvStore) Key() string { return s.key }

func (s *EnvStore) AccessCode() string {
	if v, ok := os.LookupEnv(s.key); ok {
		return v
	}
	return s.file[s.key]
}
