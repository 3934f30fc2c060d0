// Package registry persists the schema sources a user has registered with
// gridforge.
//
// Registered schemas are loaded by the run command so that every service
// they declare is started together. The store is a single SQLite file; a
// missing file is created on Open.
package registry
