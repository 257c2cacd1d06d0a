package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, src := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	}
	return root
}

func TestRun(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.js":     `console.log("hello", require("./lib/name").name);`,
		"lib/name.js": `exports.name = "world";`,
	})

	var stdout, stderr bytes.Buffer
	code := run([]string{"-root", root, "-name", "demo", "main"}, &stdout, &stderr)

	assert.Equal(t, 0, code, stderr.String())
	assert.Equal(t, "console.log: demo: hello world\n", stdout.String())
}

func TestRunPreload(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.js":          `console.info("a");`,
		"b.js":          `console.info("b");`,
		"manifest.toml": "name = \"pre\"\npreload = [\"*.js\"]\n",
	})

	var stdout, stderr bytes.Buffer
	code := run([]string{"-root", root, "-manifest", filepath.Join(root, "manifest.toml"), "-all"}, &stdout, &stderr)

	assert.Equal(t, 0, code, stderr.String())
	assert.Equal(t, "console.info: pre: a\nconsole.info: pre: b\n", stdout.String())
}

func TestRunFailures(t *testing.T) {
	root := writeTree(t, map[string]string{"throws.js": `throw new Error("nope");`})

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no modules", []string{"-root", root}, 2},
		{"bad flag", []string{"-nope"}, 2},
		{"missing module", []string{"-root", root, "missing"}, 1},
		{"throwing module", []string{"-root", root, "throws"}, 1},
		{"missing manifest", []string{"-root", root, "-manifest", filepath.Join(root, "none.yaml"), "throws"}, 1},
		{"bad name", []string{"-root", root, "-name", "two words", "throws"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Equal(t, tt.want, run(tt.args, &stdout, &stderr))
		})
	}
}
