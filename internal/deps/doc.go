// Package deps implements dependency references: typed handles to other
// graph nodes that travel inside opaque structured values.
//
// A structured value is a tree of map[string]any, []any and scalars, the
// shape produced by decoding JSON or by converting an HCL value. A reference
// is any object in that tree with a "kind" of "FileGroup", "Transform" or
// "Toolchain" and an unsigned integer "id":
//
//	{"kind": "Toolchain", "id": 3}
//
// Extract finds every reference in a value and Replace substitutes resolved
// values for them. Both walk the tree in the same order (depth first, slice
// elements left to right, object keys sorted) and neither descends into a
// reference object, so the two always agree on which positions hold
// references.
package deps
