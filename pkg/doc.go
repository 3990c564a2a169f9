// Package pkg provides shared utilities for the usbctrl control pipe.
//
// This package contains common functionality used by the endpoint-0 engine,
// its simulated hardware layer, and the command-line tools, including:
//
//   - Structured logging via Go's standard [log/slog] package
//   - Sentinel error values for control transfer outcomes
//   - Component identifiers for log filtering
//
// # Logging
//
// The logging subsystem wraps [log/slog] with per-component context:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogDebug(pkg.ComponentControl, "state changed", "to", "IN_DATA")
//
// # Errors
//
// Control outcomes surface as sentinel values:
//
//	if errors.Is(err, pkg.ErrStall) {
//	    // The device rejected the request.
//	}
package pkg
