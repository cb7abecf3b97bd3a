// Package log provides the structured logging abstraction used by every
// logship component.
//
// Components never talk to a logging library directly. They receive a
// [Logger] and emit messages with typed [Field] values, which keeps the
// pipeline embeddable: a host application can route logship's own
// diagnostics into whatever it already uses.
//
// # Usage
//
// Use the zerolog adapter for console output:
//
//	logger := log.NewZerologAdapter(zerolog.InfoLevel)
//
// Or wrap an existing zerolog.Logger:
//
//	logger := log.NewZerologAdapterWithLogger(zl)
//
// The [NoopLogger] discards everything and is the default when no logger is
// configured.
//
// # Component loggers
//
// [Named] attaches a "component" field when the logger supports it:
//
//	storeLog := log.Named(logger, "store")
package log
