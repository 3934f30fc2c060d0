// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Schema, the root container produced by loading one
// user-authored schema file.
//
// A Schema is immutable once built. Reloading a schema never edits an
// existing value field by field: the loader builds a new Schema and stores
// it under the same id. Declarations keep their identifiers across reloads
// as long as their names stay the same.
package model

import "path/filepath"

// Schema is the set of declarations loaded from a single schema URL.
type Schema struct {
	// URL is the location the schema was loaded from (file:// URL).
	URL string
	// Dir is the directory of the schema file. Relative roots and binary
	// lookups are resolved against it.
	Dir string

	FileGroups  []FileGroupID
	Transforms  []TransformID
	Collections []CollectionID
	Binaries    []BinaryID
	Services    []ServiceID
	Servers     []Server
}

// Server is a named listening endpoint declared by the schema. The core
// engine carries it for the surrounding daemon and never interprets it.
type Server struct {
	Name string
	Port int
}

// HasFileGroup reports whether the schema declares the given file group.
func (s *Schema) HasFileGroup(id FileGroupID) bool {
	for _, g := range s.FileGroups {
		if g == id {
			return true
		}
	}
	return false
}

// ResolvePath makes p absolute relative to the schema directory.
func (s *Schema) ResolvePath(p string) string {
	if p == "" {
		return s.Dir
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(s.Dir, p)
}
