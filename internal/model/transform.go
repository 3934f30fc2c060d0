// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines transforms and collections, the two declarations that
// derive new file sets from existing ones.
package model

import "github.com/vk/gridforge/internal/deps"

// Transform applies a runner to every file of its input.
//
// Input and Dependencies are opaque structured values (maps, slices and
// scalars, shaped like decoded JSON). They may embed dependency references
// of the form {"kind": ..., "id": ...} anywhere in the tree.
type Transform struct {
	Name string
	// Runner is the handle the schema runtime uses to find the user
	// function that performs the transform.
	Runner       string
	Input        any
	Dependencies any
	// OutDir is where the runtime places the files it produces.
	OutDir string
}

// CollectionItem places the files of Content below Prefix.
type CollectionItem struct {
	Prefix  string
	Content deps.Input
}

// Collection maps destination prefixes to file group or transform outputs.
type Collection struct {
	Name  string
	Items []CollectionItem
}
