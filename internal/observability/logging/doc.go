// Package logging provides structured logging utilities with context propagation.
//
// Key features:
//   - JSON and text output formats
//   - Request ID and segment position propagation
//   - Configurable log levels via LOG_LEVEL
//
// Example usage:
//
//	logger := logging.New(os.Stderr, logging.FormatJSON, cfg.LogLevel)
//	slog.SetDefault(logger)
//
//	func handleRequest(ctx context.Context) {
//	    logger := logging.WithRequestID(ctx, slog.Default())
//	    logger.Info("processing request")
//	}
package logging
