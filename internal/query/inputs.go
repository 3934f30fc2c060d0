package query

import (
	"github.com/vk/gridforge/internal/graph"
	"github.com/vk/gridforge/internal/model"
)

// Schema content. Written by the schema runtime.
var (
	Schemas     = graph.NewArena[model.SchemaID, model.Schema]("schemas")
	FileGroups  = graph.NewArena[model.FileGroupID, model.FileGroup]("file_groups")
	Transforms  = graph.NewArena[model.TransformID, model.Transform]("transforms")
	Collections = graph.NewArena[model.CollectionID, model.Collection]("collections")
	Binaries    = graph.NewArena[model.BinaryID, model.Binary]("binaries")
	Services    = graph.NewArena[model.ServiceID, model.Service]("services")
)

// Task results. Written by the scheduler.
var (
	rootWalks         = graph.NewInput[RootKey, RootWalk]("root_walks")
	binaryResolutions = graph.NewInput[model.BinaryID, BinaryResolution]("binary_resolutions")
	transformResults  = graph.NewInput[transformResultKey, TransformResult]("transform_results")
)

// RootWalk is the stored result of walking one coalesced root.
type RootWalk struct {
	Fingerprint string
	Files       map[model.FileGroupID][]model.File
	Err         error
}

// BinaryResolution is the stored result of locating a binary.
type BinaryResolution struct {
	// Native is the descriptor the lookup was made for.
	Native   model.Native
	Resolved model.ResolvedBinary
	Err      error
}

// TransformResult is the stored output of one transform run.
type TransformResult struct {
	Output model.File
	Err    error
}

type transformResultKey struct {
	Transform model.TransformID
	Input     model.File
	Digest    string
}

// CommitRootWalk stores the result of a root walk.
func CommitRootWalk(tx *graph.Tx, key RootKey, fingerprint string, files map[model.FileGroupID][]model.File, err error) {
	if err != nil {
		err = &graph.ResolutionError{Subject: "root " + key.Root, Err: err}
		files = nil
	}
	rootWalks.Set(tx, key, RootWalk{Fingerprint: fingerprint, Files: files, Err: err})
}

// CommitBinary stores the result of a binary lookup.
func CommitBinary(tx *graph.Tx, binary model.BinaryID, native model.Native, resolved model.ResolvedBinary, err error) {
	if err != nil {
		err = &graph.ResolutionError{Subject: binary.String(), Err: err}
		resolved = model.ResolvedBinary{}
	}
	binaryResolutions.Set(tx, binary, BinaryResolution{Native: native, Resolved: resolved, Err: err})
}

// CommitTransform stores the output of running transform on input.
func CommitTransform(tx *graph.Tx, transform model.TransformID, input model.File, digest string, output model.File, err error) {
	if err != nil {
		err = &graph.ResolutionError{Subject: transform.String() + " on " + input.Path, Err: err}
		output = model.File{}
	}
	transformResults.Set(tx, transformResultKey{Transform: transform, Input: input, Digest: digest}, TransformResult{Output: output, Err: err})
}

// Refresh drops the stored root walks of schema so that the next request
// walks the file system again. Transform results stay keyed by input
// revision, so files that did not change are not transformed again.
func Refresh(db *graph.Database, schema model.SchemaID) error {
	return db.Write(func(tx *graph.Tx) error {
		rootWalks.DeleteFunc(tx, func(k RootKey, _ RootWalk) bool { return k.Schema == schema })
		return nil
	})
}
