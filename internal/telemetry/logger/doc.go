// Package logger provides structured logging for sessguard.
//
// It wraps log/slog with JSON output, dynamic level adjustment, and
// automatic redaction of credential material. Session tokens, one-time
// codes and passwords never reach the log stream in the clear:
// redaction is applied in the handler, so call sites do not need to be
// careful.
//
//   - logger.go: configuration and the Logger interface
//   - context.go: context propagation with request ids
//   - redact.go: sensitive data masking
package logger
