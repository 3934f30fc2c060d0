// Package cli is responsible for parsing command-line arguments, validating
// user input, and handling process-level concerns like exit codes. It
// translates cobra flags and GRIDFORGE_* environment variables into the
// application's configuration and dispatches to the app lifecycles.
package cli
