// Package log builds slog loggers that mask secrets.
//
// Per-site configuration injects cookies and headers such as
// Authorization into crawler requests, and seed URLs may carry tokens in
// their query string. SecureHandler masks:
//   - attributes whose key names a secret (cookie, authorization, token, ...)
//   - values that look like bearer tokens, JWTs or private keys
//   - the password and sensitive query parameters of URL values
//
// Masking applies in verbose mode too.
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Debug("fetching", "url", "https://example.com/?token=abc")
//	// url=https://example.com/?token=REDACTED
package log
