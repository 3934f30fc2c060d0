// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines binaries (toolchains) and the services that run them.
package model

// Native describes a binary that is found on the host by name.
type Native struct {
	Executable string
	Env        map[string]string
	Args       []string
}

// Binary is a logical executable declared by the schema. Native is the only
// runtime variant.
type Binary struct {
	Name   string
	Native Native
}

// ResolvedBinary is a Binary bound to an absolute executable path. It is the
// value substituted for toolchain references inside transform dependencies.
type ResolvedBinary struct {
	Executable string            `json:"executable"`
	Args       []string          `json:"args"`
	Env        map[string]string `json:"env"`
}

// Service runs a Binary as a long-lived process.
type Service struct {
	Name   string
	Binary BinaryID
}
