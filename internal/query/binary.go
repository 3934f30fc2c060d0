package query

import (
	"fmt"
	"reflect"

	"github.com/vk/gridforge/internal/graph"
	"github.com/vk/gridforge/internal/model"
	"github.com/vk/gridforge/internal/task"
)

// BinaryKey addresses a binary of a schema.
type BinaryKey struct {
	Schema model.SchemaID
	Binary model.BinaryID
}

// BinaryResolve returns the executable, arguments and environment of a
// binary, asking for a lookup when none is stored for its descriptor.
var BinaryResolve *graph.Query[BinaryKey, model.ResolvedBinary]

func init() {
	BinaryResolve = graph.NewQuery("binary_resolve", binaryResolve)
}

func binaryResolve(c *graph.Ctx, key BinaryKey) (model.ResolvedBinary, error) {
	s, err := schema(c, key.Schema)
	if err != nil {
		return model.ResolvedBinary{}, err
	}
	b, ok := Binaries.Get(c, key.Binary)
	if !ok {
		return model.ResolvedBinary{}, fmt.Errorf("unknown %s", key.Binary)
	}

	if r, ok := binaryResolutions.Get(c, key.Binary); ok && reflect.DeepEqual(r.Native, b.Native) {
		if r.Err != nil {
			return model.ResolvedBinary{}, r.Err
		}
		return r.Resolved, nil
	}

	c.Push(task.NewResolveBinary(&task.ResolveBinary{
		Schema:    key.Schema,
		SchemaDir: s.Dir,
		Binary:    key.Binary,
		Native:    b.Native,
	}))
	return model.ResolvedBinary{}, graph.ErrPending
}
