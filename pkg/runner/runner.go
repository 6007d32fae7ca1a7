// Package runner drives a CLI command from start to a drained stop.
package runner

import (
	"bytes"
	"io"
	"os"

	"github.com/dimiro1/banner"
)

type State int32

const (
	StateNew State = iota
	StateRunning
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateRunning:
		return "RUNNING"
	case StateDraining:
		return "DRAINING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Drainer releases what the command holds, e.g. an active recognition session.
type Drainer interface {
	Drain() error
}

// DrainFunc adapts a function to Drainer.
type DrainFunc func() error

func (f DrainFunc) Drain() error { return f() }

const Version = "dev"

// PrintBanner writes the startup banner to w. A nil w uses stderr so stdout
// stays free for transcripts.
func PrintBanner(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	tpl := "{{ .Title \"SPEECHGATE\" \"\" 0 }}\nVersion: " + Version + "\n"
	banner.Init(w, true, false, bytes.NewBufferString(tpl))
}
