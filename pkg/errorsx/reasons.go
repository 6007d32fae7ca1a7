package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	// Media acquisition.
	ReasonPermissionDenied       ReasonCode = "permission_denied"
	ReasonUnsupportedAudioFormat ReasonCode = "unsupported_audio_format"

	// Gate checks, raised before any remote handle exists.
	ReasonInvalidAccessCode  ReasonCode = "invalid_access_code"
	ReasonMissingCredentials ReasonCode = "missing_credentials"

	// Remote recognition.
	ReasonRecognitionStartFailed ReasonCode = "recognition_start_failed"
	ReasonInvalidCredentials     ReasonCode = "invalid_credentials"
	ReasonRecognitionCanceled    ReasonCode = "recognition_canceled"

	// Remote synthesis.
	ReasonSynthesisFailure ReasonCode = "synthesis_failure"
)

// Kinds lists every failure kind a session or synthesis call can raise.
var Kinds = []ReasonCode{
	ReasonPermissionDenied,
	ReasonUnsupportedAudioFormat,
	ReasonInvalidAccessCode,
	ReasonMissingCredentials,
	ReasonRecognitionStartFailed,
	ReasonInvalidCredentials,
	ReasonRecognitionCanceled,
	ReasonSynthesisFailure,
}
