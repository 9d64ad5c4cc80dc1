package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-den/jsongrammar/api"
	"github.com/ai-den/jsongrammar/envconfig"
	"github.com/ai-den/jsongrammar/gbnf"
)

const integerGrammar = "root ::= space integer\ninteger ::= \"-\"? ([0-9] | [1-9] [0-9]*)\nspace ::= \"\"\n"

func setup(t *testing.T) {
	t.Helper()
	t.Setenv("JSONGRAMMAR_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("JSONGRAMMAR_WHITESPACE", "")
	t.Setenv("JSONGRAMMAR_NUM_PARALLEL", "2")
	t.Setenv("JSONGRAMMAR_HOST", "")
	envconfig.ReloadServerConfig()
	t.Cleanup(envconfig.ReloadServerConfig)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cli := NewCLI()
	cli.SetArgs(args)
	cli.SetOut(&out)
	cli.SetErr(io.Discard)
	if stdin != nil {
		cli.SetIn(stdin)
	}

	err := cli.Execute()
	return out.String(), err
}

func TestCompile(t *testing.T) {
	setup(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "int.json", `{"type": "integer"}`)

	t.Run("file", func(t *testing.T) {
		out, err := run(t, nil, "compile", path, "--whitespace", "none")
		require.NoError(t, err)
		assert.Equal(t, integerGrammar, out)
	})

	t.Run("stdin", func(t *testing.T) {
		out, err := run(t, strings.NewReader(`{"type": "integer"}`), "compile", "--whitespace", "none")
		require.NoError(t, err)
		assert.Equal(t, integerGrammar, out)
	})

	t.Run("yaml", func(t *testing.T) {
		yamlPath := writeFile(t, dir, "int.yaml", "type: integer\n")
		out, err := run(t, nil, "compile", yamlPath, "--whitespace", "none")
		require.NoError(t, err)
		assert.Equal(t, integerGrammar, out)

		out, err = run(t, strings.NewReader("type: integer\n"), "compile", "--yaml", "--whitespace", "none")
		require.NoError(t, err)
		assert.Equal(t, integerGrammar, out)
	})

	t.Run("default whitespace", func(t *testing.T) {
		out, err := run(t, nil, "compile", path)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(out, "space ::= \" \"?\n"), out)
	})

	t.Run("json", func(t *testing.T) {
		out, err := run(t, nil, "compile", path, "--whitespace", "none", "--json")
		require.NoError(t, err)

		var resp api.GrammarResponse
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		assert.Equal(t, "integer", resp.Root)
		assert.Equal(t, integerGrammar, resp.Grammar)
		assert.Equal(t, 2, resp.Productions)
	})

	t.Run("output", func(t *testing.T) {
		dest := filepath.Join(dir, "out.gbnf")
		out, err := run(t, nil, "compile", path, "--whitespace", "none", "-o", dest)
		require.NoError(t, err)
		assert.Empty(t, out)

		b, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Equal(t, integerGrammar, string(b))
	})

	t.Run("root name", func(t *testing.T) {
		out, err := run(t, strings.NewReader(`{"type": "object", "properties": {"a": {"type": "null"}}}`), "compile", "--root-name", "Thing")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(out, "root ::= space Thing\n"), out)
		assert.NoError(t, gbnf.ValidateGrammar(out))
	})

	t.Run("errors", func(t *testing.T) {
		_, err := run(t, nil, "compile", path, "--whitespace", "tabs")
		assert.ErrorContains(t, err, "tabs")

		_, err = run(t, nil, "compile", filepath.Join(dir, "nope.json"))
		assert.ErrorIs(t, err, os.ErrNotExist)

		bad := writeFile(t, dir, "bad.json", `{"type": "object", "properties": {"when": {"type": "date"}}}`)
		_, err = run(t, nil, "compile", bad)
		assert.ErrorContains(t, err, "#/properties/when")
		assert.True(t, strings.HasPrefix(err.Error(), bad+": "), err.Error())
	})
}

func TestRules(t *testing.T) {
	setup(t)
	path := writeFile(t, t.TempDir(), "int.json", `{"type": "integer"}`)

	out, err := run(t, nil, "rules", path, "--json", "--whitespace", "none")
	require.NoError(t, err)

	var rules []rule
	require.NoError(t, json.Unmarshal([]byte(out), &rules))
	assert.Equal(t, []rule{
		{Name: "root", Body: "space integer"},
		{Name: "integer", Body: `"-"? ([0-9] | [1-9] [0-9]*)`},
		{Name: "space", Body: `""`},
	}, rules)

	out, err = run(t, nil, "rules", path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "NAME"), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "root"), lines[1])
}

func TestCheck(t *testing.T) {
	setup(t)
	dir := t.TempDir()
	schema := writeFile(t, dir, "short.json", `{"type": "string", "maxLength": 1}`)
	short := writeFile(t, dir, "short-1.json", "\"a\"\n")
	wrong := writeFile(t, dir, "short-2.json", "1\n")
	long := writeFile(t, dir, "long.json", "\"abc\"\n")

	out, err := run(t, nil, "check", schema, short, wrong, "--json")
	require.NoError(t, err)

	var resp api.CheckResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Results, 2)
	assert.Equal(t, api.CheckResult{Accepted: true, Valid: true}, resp.Results[0])
	assert.False(t, resp.Results[1].Accepted)
	assert.False(t, resp.Results[1].Valid)
	assert.NotEmpty(t, resp.Results[1].Error)

	out, err = run(t, nil, "check", schema, short, long)
	assert.ErrorIs(t, err, errUnsound)
	assert.Contains(t, out, long)

	_, err = run(t, nil, "check", schema)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	setup(t)
	dir := t.TempDir()
	good := writeFile(t, dir, "good.gbnf", "root ::= \"a\" b\nb ::= [b-c]+\n")
	missing := writeFile(t, dir, "missing.gbnf", "root ::= b\n")
	noRoot := writeFile(t, dir, "noroot.gbnf", "b ::= \"b\"\n")

	out, err := run(t, nil, "validate", good)
	require.NoError(t, err)
	assert.Equal(t, good+": ok\n", out)

	out, err = run(t, nil, "validate", good, missing, noRoot)
	assert.ErrorContains(t, err, `undefined rule "b"`)
	assert.ErrorContains(t, err, `missing "root" rule`)
	assert.ErrorContains(t, err, noRoot)
	assert.Equal(t, good+": ok\n", out)
}

func TestBatch(t *testing.T) {
	setup(t)
	dir := t.TempDir()

	schemas := map[string]string{
		"a.json": `{"type": "integer"}`,
		"b.yaml": "type: array\nitems:\n  type: boolean\n",
		"c.json": `{"type": "object", "properties": {"name": {"type": "string"}}}`,
	}

	var args []string
	for name, content := range schemas {
		args = append(args, writeFile(t, dir, name, content))
	}

	out, err := run(t, nil, append([]string{"batch"}, args...)...)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 3)

	for _, name := range []string{"a.gbnf", "b.gbnf", "c.gbnf"} {
		b, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.NoError(t, gbnf.ValidateGrammar(string(b)), name)
	}

	t.Run("dir", func(t *testing.T) {
		dest := filepath.Join(t.TempDir(), "grammars")
		_, err := run(t, nil, "batch", "--dir", dest, args[0])
		require.NoError(t, err)
		assert.FileExists(t, grammarPath(dest, args[0]))
	})

	t.Run("error", func(t *testing.T) {
		bad := writeFile(t, dir, "bad.json", `{"$ref": "#/$defs/Missing"}`)
		_, err := run(t, nil, "batch", args[0], bad)
		assert.ErrorContains(t, err, bad)
	})
}

func TestGrammarPath(t *testing.T) {
	assert.Equal(t, filepath.Join("schemas", "person.gbnf"), grammarPath("", filepath.Join("schemas", "person.json")))
	assert.Equal(t, filepath.Join("out", "person.gbnf"), grammarPath("out", filepath.Join("schemas", "person.yaml")))
	assert.Equal(t, "person.gbnf", grammarPath("", "person"))
}

func TestEnv(t *testing.T) {
	setup(t)

	out, err := run(t, nil, "env")
	require.NoError(t, err)
	assert.Contains(t, out, "JSONGRAMMAR_HOST")
	assert.Contains(t, out, "127.0.0.1:11435")
	assert.Less(t, strings.Index(out, "JSONGRAMMAR_CONFIG"), strings.Index(out, "JSONGRAMMAR_WHITESPACE"))

	out, err = run(t, nil, "env", "--example-config")
	require.NoError(t, err)
	assert.Equal(t, envconfig.GenerateExampleConfig(), out)
}

func TestVersion(t *testing.T) {
	out, err := run(t, nil, "--version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "jsongrammar version "), out)
}
