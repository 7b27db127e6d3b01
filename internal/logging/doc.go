// Package logging constructs the application's zerolog loggers.
//
// The log level is configured via the LOG_LEVEL environment variable
// (debug, info, warn, error), with DEBUG=true as a shortcut for debug.
// Loggers are passed into components explicitly; nothing in this module
// logs through a package-level singleton.
package logging
