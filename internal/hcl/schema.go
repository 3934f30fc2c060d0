package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot is a struct used to decode all possible top-level blocks from any file.
type fileRoot struct {
	FileGroups  []*fileGroupBlock  `hcl:"file_group,block"`
	Binaries    []*binaryBlock     `hcl:"binary,block"`
	Transforms  []*transformBlock  `hcl:"transform,block"`
	Collections []*collectionBlock `hcl:"collection,block"`
	Services    []*serviceBlock    `hcl:"service,block"`
	Servers     []*serverBlock     `hcl:"server,block"`
	Remain      hcl.Body           `hcl:",remain"`
}

type fileGroupBlock struct {
	Name  string         `hcl:"name,label"`
	Root  *string        `hcl:"root,optional"`
	Items hcl.Expression `hcl:"items"`
}

type binaryBlock struct {
	Name       string            `hcl:"name,label"`
	Executable string            `hcl:"executable"`
	Args       []string          `hcl:"args,optional"`
	Env        map[string]string `hcl:"env,optional"`
}

type transformBlock struct {
	Name         string         `hcl:"name,label"`
	Runner       string         `hcl:"runner"`
	Input        hcl.Expression `hcl:"input,optional"`
	Dependencies hcl.Expression `hcl:"dependencies,optional"`
	OutDir       *string        `hcl:"out_dir,optional"`
}

type collectionBlock struct {
	Name  string                 `hcl:"name,label"`
	Items []*collectionItemBlock `hcl:"item,block"`
}

type collectionItemBlock struct {
	Prefix  string         `hcl:"prefix,optional"`
	Content hcl.Expression `hcl:"content"`
}

type serviceBlock struct {
	Name   string         `hcl:"name,label"`
	Binary hcl.Expression `hcl:"binary"`
}

type serverBlock struct {
	Name string `hcl:"name,label"`
	Port int    `hcl:"port"`
}
