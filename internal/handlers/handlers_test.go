package handlers

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/gridforge/internal/model"
	"github.com/vk/gridforge/internal/testutil"
)

func TestRegisterHandler_DuplicatePanics(t *testing.T) {
	h := New()
	h.RegisterHandler("copy", Copy)
	assert.Panics(t, func() { h.RegisterHandler("copy", Copy) })
}

func TestBuiltin(t *testing.T) {
	h := Builtin()
	assert.Equal(t, []string{"copy", "exec"}, h.Names())
	_, ok := h.Get("exec")
	assert.True(t, ok)
	_, ok = h.Get("missing")
	assert.False(t, ok)
}

func TestCopy(t *testing.T) {
	ctx, _ := testutil.Context(t)
	src := t.TempDir()
	testutil.WriteFiles(t, src, map[string]string{"sub/a.txt": "hello"})
	outDir := t.TempDir()

	out, err := Copy(ctx, &Request{
		Transform: "copy",
		Input:     model.File{Path: filepath.Join(src, "sub", "a.txt")},
		Rel:       "sub/a.txt",
		OutDir:    outDir,
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, "sub", "a.txt"), out)
	assert.Equal(t, "hello", testutil.ReadFile(t, outDir, "sub/a.txt"))
}

func TestExec(t *testing.T) {
	cp, err := exec.LookPath("cp")
	if err != nil {
		t.Skip("cp not available")
	}
	ctx, _ := testutil.Context(t)
	src := t.TempDir()
	testutil.WriteFiles(t, src, map[string]string{"a.txt": "data"})
	outDir := t.TempDir()

	out, err := Exec(ctx, &Request{
		Transform: "rename",
		Input:     model.File{Path: filepath.Join(src, "a.txt")},
		Rel:       "a.txt",
		OutDir:    outDir,
		Dependencies: map[string]any{
			"tool": map[string]any{"executable": cp, "args": []any{"-p"}, "env": map[string]any{}},
			"ext":  ".out",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, "a.out"), out)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))
}

func TestExec_RequiresTool(t *testing.T) {
	ctx, _ := testutil.Context(t)
	_, err := Exec(ctx, &Request{Transform: "x", OutDir: t.TempDir(), Dependencies: map[string]any{}})
	assert.ErrorContains(t, err, "dependencies.tool")
}

func TestExec_CommandFailure(t *testing.T) {
	f, err := exec.LookPath("false")
	if err != nil {
		t.Skip("false not available")
	}
	ctx, _ := testutil.Context(t)
	_, err = Exec(ctx, &Request{
		Transform:    "fails",
		Input:        model.File{Path: "/nonexistent"},
		OutDir:       t.TempDir(),
		Dependencies: map[string]any{"tool": map[string]any{"executable": f}},
	})
	assert.ErrorContains(t, err, "failed")
}
