// Package logx configures habitbot's structured logging.
//
// logx.Logger is a small wrapper on top of zerolog that keeps:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured and size-rotated (lumberjack)
//   - An optional Telegram sink (min-level + rate limiting) for operators
package logx
