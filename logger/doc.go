// Package logger provides structured logging backed by zerolog.
//
// Loggers write JSON or console output to stdout, stderr or a rotating file
// (lumberjack). Pipeline components obtain a tagged logger with Get:
//
//	log := logger.Get("orchestrator")
//	log.Info("chunk transcribed", logger.Fields(logger.FieldChunk, 2))
package logger
