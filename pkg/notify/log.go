package notify

import (
	"log/slog"

	"github.com/harunnryd/speechgate/pkg/errorsx"
	"github.com/harunnryd/speechgate/pkg/logging"
)

// LogSink writes notifications as warnings.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(base *slog.Logger) *LogSink {
	return &LogSink{logger: logging.NewComponentLogger(base, "notify")}
}

func (s *LogSink) InvalidAccessCode(f errorsx.Failure) { s.log(MethodInvalidAccessCode, f) }
func (s *LogSink) EmptyCredentials(f errorsx.Failure)  { s.log(MethodEmptyCredentials, f) }
func (s *LogSink) RecognitionError(f errorsx.Failure)  { s.log(MethodRecognitionError, f) }
func (s *LogSink) SynthesisError(f errorsx.Failure)    { s.log(MethodSynthesisError, f) }

func (s *LogSink) log(method string, f errorsx.Failure) {
	s.logger.Warn("user_notification",
		slog.String("method", method),
		slog.String("kind", string(f.Kind)),
		slog.String("detail", f.Detail))
}
