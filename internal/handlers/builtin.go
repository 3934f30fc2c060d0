package handlers

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vk/gridforge/internal/ctxlog"
)

// Copy writes the input file unchanged to OutDir/Rel.
func Copy(ctx context.Context, req *Request) (string, error) {
	out, err := outputPath(req)
	if err != nil {
		return "", err
	}
	ctxlog.FromContext(ctx).Debug("Copying file.", "from", req.Input.Path, "to", out)

	src, err := os.Open(req.Input.Path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.Create(out)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", fmt.Errorf("copying %s: %w", req.Input.Path, err)
	}
	return out, dst.Close()
}

// Exec runs the resolved binary found under the "tool" key of the
// dependency blob as `executable args... <input> <output>`.
//
// An "ext" string in the dependency blob replaces the extension of the
// output file.
func Exec(ctx context.Context, req *Request) (string, error) {
	blob, _ := req.Dependencies.(map[string]any)
	tool, ok := blob["tool"].(map[string]any)
	if !ok {
		return "", fmt.Errorf("transform %s: exec needs a resolved binary under dependencies.tool", req.Transform)
	}
	executable, _ := tool["executable"].(string)
	if executable == "" {
		return "", fmt.Errorf("transform %s: dependencies.tool has no executable", req.Transform)
	}

	out, err := outputPath(req)
	if err != nil {
		return "", err
	}

	args := stringSlice(tool["args"])
	args = append(args, req.Input.Path, out)
	cmd := exec.CommandContext(ctx, executable, args...)
	cmd.Env = append(os.Environ(), envList(tool["env"])...)

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Running transform command.", "executable", executable, "args", args)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("transform %s: %s failed: %w: %s", req.Transform, executable, err, strings.TrimSpace(string(output)))
	}
	return out, nil
}

func outputPath(req *Request) (string, error) {
	if req.OutDir == "" {
		return "", fmt.Errorf("transform %s has no output directory", req.Transform)
	}
	rel := req.Rel
	if rel == "" {
		rel = filepath.Base(req.Input.Path)
	}
	out := filepath.Join(req.OutDir, filepath.FromSlash(rel))
	if blob, ok := req.Dependencies.(map[string]any); ok {
		if ext, ok := blob["ext"].(string); ok {
			out = strings.TrimSuffix(out, filepath.Ext(out)) + ext
		}
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", err
	}
	return out, nil
}

func stringSlice(v any) []string {
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, fmt.Sprint(item))
	}
	return out
}

func envList(v any) []string {
	env, _ := v.(map[string]any)
	out := make([]string, 0, len(env))
	for k, val := range env {
		out = append(out, k+"="+fmt.Sprint(val))
	}
	sort.Strings(out)
	return out
}
