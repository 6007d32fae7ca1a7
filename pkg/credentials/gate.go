// Package credentials validates the access code and remote service credentials
// before any remote resource is allocated.
package credentials

import (
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/harunnryd/speechgate/pkg/accesscode"
	"github.com/harunnryd/speechgate/pkg/errorsx"
)

var (
	ErrInvalidAccessCode  = errors.New("access code does not match")
	ErrMissingCredentials = errors.New("subscription key and region are required")
)

// Credentials identify the caller to the remote speech service.
type Credentials struct {
	SubscriptionKey string
	Region          string
}

// Complete reports whether both fields are present.
func (c Credentials) Complete() bool {
	return strings.TrimSpace(c.SubscriptionKey) != "" && strings.TrimSpace(c.Region) != ""
}

// Gate checks access codes against a Store. It has no side effects.
type Gate struct {
	store accesscode.Store
}

func NewGate(store accesscode.Store) *Gate {
	if store == nil {
		store = accesscode.Static("")
	}
	return &Gate{store: store}
}

// CheckAccessCode compares code with the configured access code.
func (g *Gate) CheckAccessCode(code string) error {
	want := g.store.AccessCode()
	if subtle.ConstantTimeCompare([]byte(code), []byte(want)) != 1 {
		return errorsx.Wrap(ErrInvalidAccessCode, errorsx.ReasonInvalidAccessCode)
	}
	return nil
}

// CheckCredentials fails when either credential field is empty.
func (g *Gate) CheckCredentials(c Credentials) error {
	if !c.Complete() {
		return errorsx.Wrap(ErrMissingCredentials, errorsx.ReasonMissingCredentials)
	}
	return nil
}

// Validate runs both checks, access code first.
func (g *Gate) Validate(code string, c Credentials) error {
	if err := g.CheckAccessCode(code); err != nil {
		return err
	}
	return g.CheckCredentials(c)
}
