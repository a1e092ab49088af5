// Package log builds the application's slog loggers.
//
// Every logger returned here wraps its handler in a RedactingHandler, which
// masks attribute values whose key looks secret (api_key, token, password,
// authorization, ...) and rewrites credential-looking substrings such as
// "Bearer ..." or "sk-..." inside messages and string values. Export paths
// and tool names stay readable.
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
//
//	logger.Warn("analyzer skipped", "tool", "analyze_devices", "reason", msg)
package log
