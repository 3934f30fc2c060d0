// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Stable integer identifiers for graph inputs. Each identifier is an index
// into the arena that owns the corresponding value, so it is cheap to copy,
// comparable and totally ordered.
package model

import "fmt"

// SchemaID addresses a loaded Schema.
type SchemaID uint32

// FileGroupID addresses a FileGroup.
type FileGroupID uint32

// TransformID addresses a Transform.
type TransformID uint32

// CollectionID addresses a Collection.
type CollectionID uint32

// BinaryID addresses a Binary.
type BinaryID uint32

// ServiceID addresses a Service.
type ServiceID uint32

func (id SchemaID) String() string     { return fmt.Sprintf("schema#%d", uint32(id)) }
func (id FileGroupID) String() string  { return fmt.Sprintf("file_group#%d", uint32(id)) }
func (id TransformID) String() string  { return fmt.Sprintf("transform#%d", uint32(id)) }
func (id CollectionID) String() string { return fmt.Sprintf("collection#%d", uint32(id)) }
func (id BinaryID) String() string     { return fmt.Sprintf("binary#%d", uint32(id)) }
func (id ServiceID) String() string    { return fmt.Sprintf("service#%d", uint32(id)) }
