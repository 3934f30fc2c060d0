// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines file groups and the File value, the unit of invalidation
// for everything derived from the filesystem.
package model

import (
	"fmt"
	"strings"
)

// Strategy selects how the revision of a matched file is computed.
type Strategy uint8

const (
	// StrategyTime uses the modification time in whole seconds.
	StrategyTime Strategy = iota
	// StrategyHash uses a digest of the file content.
	StrategyHash
)

func (s Strategy) String() string {
	switch s {
	case StrategyTime:
		return "time"
	case StrategyHash:
		return "hash"
	default:
		return fmt.Sprintf("strategy(%d)", uint8(s))
	}
}

// ParseStrategy converts a user supplied name into a Strategy. An empty name
// selects StrategyTime.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "time":
		return StrategyTime, nil
	case "hash":
		return StrategyHash, nil
	default:
		return 0, fmt.Errorf("unknown file strategy %q: must be 'time' or 'hash'", name)
	}
}

// FileGroupItem is one pattern of a file group together with the strategy
// used for the files it matches.
type FileGroupItem struct {
	Pattern  string
	Strategy Strategy
}

// FileGroup is a named, glob-defined set of files below a root directory.
type FileGroup struct {
	Name  string
	Root  string
	Items []FileGroupItem
}

// File is a discovered file at a given revision. Two Files with the same
// path and revision are interchangeable.
type File struct {
	Path     string `json:"path" yaml:"path"`
	Revision uint64 `json:"revision" yaml:"revision"`
}

func (f File) String() string {
	return fmt.Sprintf("%s@%d", f.Path, f.Revision)
}
