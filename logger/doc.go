// Package logger provides structured logging for spacekit clients
// using zerolog.
//
// It supports JSON and console output, log level configuration, and
// component-scoped loggers with structured fields.
//
// # Configuration
//
//	logger:
//	  level: "info"
//	  format: "json"
//	  output: "stderr"
//
// # Usage
//
//	log := logger.WithComponent("httpclient")
//	log.Info("request sent", logger.Fields(logger.FieldStatus, 200))
package logger
