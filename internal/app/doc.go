// Package app contains the core application logic. It wires the graph, the
// schema runtimes, the resolver and the process manager together and
// exposes the build and run lifecycles, decoupled from any specific
// entrypoint like a CLI or server.
package app
