// Package task defines the side-effecting jobs a pending query asks for.
//
// A query never performs I/O. When it needs something from the outside
// world it records a Task in its accumulator and reports pending; the drive
// loop executes the tasks, commits their results as graph inputs and asks
// again.
package task

import (
	"fmt"

	"github.com/vk/gridforge/internal/fileset"
	"github.com/vk/gridforge/internal/model"
)

// Kind discriminates the Task variants.
type Kind int

const (
	KindResolveRoot Kind = iota + 1
	KindResolveBinary
	KindApplyTransform
)

func (k Kind) String() string {
	switch k {
	case KindResolveRoot:
		return "resolve_root"
	case KindResolveBinary:
		return "resolve_binary"
	case KindApplyTransform:
		return "apply_transform"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Task is a tagged union; exactly one variant pointer matching Kind is set.
type Task struct {
	Kind           Kind
	ResolveRoot    *ResolveRoot
	ResolveBinary  *ResolveBinary
	ApplyTransform *ApplyTransform
}

// ResolveRoot walks one coalesced root and sorts its files into groups.
type ResolveRoot struct {
	Schema   model.SchemaID
	Root     string
	Matchers map[model.FileGroupID]*fileset.Matcher
	// Fingerprint identifies the matcher set; a stored walk is only valid
	// for the fingerprint it was made with.
	Fingerprint string
}

// ResolveBinary locates the executable of a native binary.
type ResolveBinary struct {
	Schema    model.SchemaID
	SchemaDir string
	Binary    model.BinaryID
	Native    model.Native
}

// ApplyTransform runs a transform's runner on one input file.
type ApplyTransform struct {
	Schema    model.SchemaID
	Transform model.TransformID
	Name      string
	Runner    string
	File      model.File
	// Rel is the slash separated path of File relative to the root of the
	// file group (or the output directory of the transform) it came from.
	Rel    string
	OutDir string
	// Dependencies is the transform's dependency blob with every reference
	// replaced by its resolution.
	Dependencies any
	// Digest identifies Dependencies; a result is only reused for the
	// digest it was produced with.
	Digest string
}

// NewResolveRoot wraps t in a Task.
func NewResolveRoot(t *ResolveRoot) Task { return Task{Kind: KindResolveRoot, ResolveRoot: t} }

// NewResolveBinary wraps t in a Task.
func NewResolveBinary(t *ResolveBinary) Task {
	return Task{Kind: KindResolveBinary, ResolveBinary: t}
}

// NewApplyTransform wraps t in a Task.
func NewApplyTransform(t *ApplyTransform) Task {
	return Task{Kind: KindApplyTransform, ApplyTransform: t}
}

// Key identifies the task for deduplication. Two tasks with the same key
// produce the same result.
func (t Task) Key() string {
	switch t.Kind {
	case KindResolveRoot:
		r := t.ResolveRoot
		return fmt.Sprintf("root/%d/%s/%s", r.Schema, r.Root, r.Fingerprint)
	case KindResolveBinary:
		b := t.ResolveBinary
		return fmt.Sprintf("binary/%d/%d", b.Schema, b.Binary)
	case KindApplyTransform:
		a := t.ApplyTransform
		return fmt.Sprintf("transform/%d/%d/%s/%s", a.Schema, a.Transform, a.File, a.Digest)
	default:
		panic(fmt.Sprintf("task: unknown kind %d", int(t.Kind)))
	}
}

func (t Task) String() string {
	switch t.Kind {
	case KindResolveRoot:
		return fmt.Sprintf("resolve root %s", t.ResolveRoot.Root)
	case KindResolveBinary:
		return fmt.Sprintf("resolve binary %s", t.ResolveBinary.Binary)
	case KindApplyTransform:
		return fmt.Sprintf("apply transform %s to %s", t.ApplyTransform.Name, t.ApplyTransform.File)
	default:
		return t.Kind.String()
	}
}
