package service

// Translator resolves localized strings. Implementations are immutable after construction.
type Translator interface {
	// T returns the message for key in locale, interpolating {name} placeholders from params.
	T(locale, key string, params map[string]string) string

	// DefaultLocale is used when no locale is known, e.g. in background jobs.
	DefaultLocale() string
}
