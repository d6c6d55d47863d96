// Package logging provides structured logging for bitparse.
//
// This package wraps a global zap logger with convenience functions. Logging is
// silent unless a level is passed to Initialize or BITPARSE_LOG_LEVEL is set, so
// library code can log freely without producing output in normal CLI use.
//
// # Log Levels
//
//   - Debug: rejected dispatch candidates, length mismatches, hex dumps
//   - Info: decode inputs and outcomes
//   - Warn: failed decodes
//   - Error: CLI failures
//
// # Structured Logging
//
//	logging.Debug("Variant candidate rejected",
//	    zap.String("candidate", "stun"),
//	    zap.Uint64("bit_offset", 0),
//	)
//
// # Configuration
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// Output goes to stderr so that decoded records on stdout stay machine readable.
// Level colors are only used when stderr is a terminal.
//
// InitializeWithFile additionally writes JSON entries to a rotating file:
//
//	err := logging.InitializeWithFile("info", logging.FileConfig{
//	    Path:      "/var/log/bitparse.log",
//	    MaxSizeMB: 10,
//	})
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. Initialize and SetLogger
// should be called once at startup.
package logging
