// Package logging builds the slog loggers used across pretender.
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.LevelInfo,
//	    Format: logging.FormatText,
//	})
//
//	logger.Info("proxy listening", "addr", ":8888")
//
// When Config.File.Path is set, Open also writes every record to a
// size-rotated file next to stderr.
//
// Components take a *slog.Logger in their constructor or options and fall
// back to logging.Nop().
package logging
