// Package hcl is the HCL schema runtime. It evaluates *.hcl schema files
// into graph inputs and runs transforms through named Go handlers.
//
// A schema declares file groups, binaries, transforms, collections,
// services and servers:
//
//	file_group "src" {
//	  root  = "src"
//	  items = ["**/*.txt", { pattern = "**/*.lock", strategy = "hash" }]
//	}
//
//	binary "node" {
//	  executable = "node"
//	  args       = ["--enable-source-maps"]
//	}
//
//	transform "upper" {
//	  runner       = "exec"
//	  input        = file_group.src
//	  dependencies = { tool = binary.node, ext = ".out" }
//	}
//
//	collection "dist" {
//	  item {
//	    prefix  = "texts"
//	    content = transform.upper
//	  }
//	}
//
//	service "api" {
//	  binary = binary.node
//	}
//
// References such as file_group.src evaluate to {kind, id} objects; the
// engine finds and resolves them wherever they appear in a transform's
// input or dependencies.
package hcl
