// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package model provides the Go struct representation of a gridforge schema.
// Schema runtimes translate user definitions into these values and store
// them as graph inputs; queries read them back by id.
//
// # Core Concepts
//
// The model is built around a few key structures:
//
//   - Schema: The root container of one schema source. It lists the ids of
//     every entity it declares and remembers the directory relative paths
//     resolve against.
//
//   - FileGroup: A root directory plus glob items. Each item names the
//     revision strategy (time or hash) of the files it matches.
//
//   - Transform: A named runner applied to every file of its input, with a
//     dependency blob that may embed references to other entities.
//
//   - Collection: An ordered list of (prefix, content) items laid out into one
//     destination tree.
//
//   - Binary and Service: A native executable description and a long running
//     process started from it.
//
//   - File: An absolute path and its revision. Two Files are equal only if
//     both match.
//
// Why a separate model package?
//
// This package is the vocabulary shared by the graph inputs, the queries and
// the schema runtimes. It holds plain values only; all behavior lives in the
// packages that read them.
package model
