// Package executor performs the side effects pending queries ask for: file
// walks, binary lookups and transform runs. Local implements
// scheduler.Resolver on the local machine.
package executor
