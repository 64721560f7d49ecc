package service

// MetricsRecorder receives authentication counters.
type MetricsRecorder interface {
	RecordSignIn(method, outcome string)
	RecordSessionIssued(method string)
	RecordOAuthLink(provider string, created bool)
	RecordGuardRedirect(reason string)
	RecordRateLimited(path string)
	RecordCleanup(sessions, tokens int64)
}

// Outcome values for RecordSignIn.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
