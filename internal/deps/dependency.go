package deps

import (
	"cmp"
	"fmt"
)

// Kind is the type of graph node a Dependency points to.
type Kind uint8

const (
	KindFileGroup Kind = iota + 1
	KindTransform
	KindToolchain
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindFileGroup:
		return "FileGroup"
	case KindTransform:
		return "Transform"
	case KindToolchain:
		return "Toolchain"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// ParseKind maps a wire name to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "FileGroup":
		return KindFileGroup, true
	case "Transform":
		return KindTransform, true
	case "Toolchain":
		return KindToolchain, true
	default:
		return 0, false
	}
}

// Dependency is a pointer to a graph node. It does not own the node.
type Dependency struct {
	Kind Kind
	ID   uint32
}

// FileGroup returns a reference to the file group with the given id.
func FileGroup(id uint32) Dependency { return Dependency{Kind: KindFileGroup, ID: id} }

// Transform returns a reference to the transform with the given id.
func Transform(id uint32) Dependency { return Dependency{Kind: KindTransform, ID: id} }

// Toolchain returns a reference to the binary with the given id.
func Toolchain(id uint32) Dependency { return Dependency{Kind: KindToolchain, ID: id} }

// Compare orders dependencies by kind, then by id.
func (d Dependency) Compare(o Dependency) int {
	if c := cmp.Compare(d.Kind, o.Kind); c != 0 {
		return c
	}
	return cmp.Compare(d.ID, o.ID)
}

// Wire returns the reference in its boundary shape.
func (d Dependency) Wire() map[string]any {
	return map[string]any{"kind": d.Kind.String(), "id": uint64(d.ID)}
}

func (d Dependency) String() string {
	return fmt.Sprintf("%s(%d)", d.Kind, d.ID)
}

// Input returns the dependency as an Input. It fails for toolchains, which
// cannot provide files.
func (d Dependency) Input() (Input, bool) {
	switch d.Kind {
	case KindFileGroup, KindTransform:
		return Input{dep: d}, true
	default:
		return Input{}, false
	}
}

// Input is a Dependency restricted to the kinds that produce files: file
// groups and transforms.
type Input struct {
	dep Dependency
}

// FileGroupInput returns an Input for the given file group.
func FileGroupInput(id uint32) Input { return Input{dep: FileGroup(id)} }

// TransformInput returns an Input for the given transform.
func TransformInput(id uint32) Input { return Input{dep: Transform(id)} }

// Dependency returns the underlying reference.
func (i Input) Dependency() Dependency { return i.dep }

// Kind returns the kind of the referenced node.
func (i Input) Kind() Kind { return i.dep.Kind }

// ID returns the id of the referenced node.
func (i Input) ID() uint32 { return i.dep.ID }

// IsZero reports whether the Input was never set.
func (i Input) IsZero() bool { return i.dep.Kind == 0 }

func (i Input) String() string { return i.dep.String() }
