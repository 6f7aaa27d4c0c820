package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_Valid(t *testing.T) {
	path := writeScenario(t, `
name: loaded
description: "A loaded scenario"
schemas:
  - prefix: /users/
    file: user.cue
steps:
  - op: save
    path: /a/
    data: { n: 1, tags: [x, y] }
    expect: { created: true }
  - op: find
    path: /
    query: "data.n = 1"
    expect: { paths: [/a/] }
assertions:
  - type: count
    path: /
    count: 2
`)
	s, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "loaded", s.Name)
	require.Len(t, s.Steps, 2)
	assert.Equal(t, map[string]any{"n": 1, "tags": []any{"x", "y"}}, s.Steps[0].Data)
	require.NotNil(t, s.Steps[0].Expect.Created)
	assert.True(t, *s.Steps[0].Expect.Created)
	assert.Equal(t, []string{"/a/"}, s.Steps[1].Expect.Paths)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "user.cue"), s.Schemas[0].File)
	assert.Equal(t, int64(2), s.Assertions[0].Count)
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"missing name", "steps: [{op: ls, path: /}]", "name is required"},
		{"no steps", "name: x", "at least one step"},
		{"unknown op", "name: x\nsteps: [{op: mv, path: /}]", `unknown op "mv"`},
		{"missing op", "name: x\nsteps: [{path: /}]", "op is required"},
		{"query outside find", "name: x\nsteps: [{op: ls, path: /, query: 'a = 1'}]", "query is only valid for find"},
		{"data outside save", "name: x\nsteps: [{op: rm, path: /a/, data: {a: 1}}]", "data is only valid for save"},
		{"top outside parents", "name: x\nsteps: [{op: ls, path: /, top: /}]", "top is only valid for parents"},
		{"unknown field", "name: x\nstep: []", "field step not found"},
		{"unknown assertion", "name: x\nsteps: [{op: ls, path: /}]\nassertions: [{type: size, path: /}]", `unknown assertion type "size"`},
		{"assertion without path", "name: x\nsteps: [{op: ls, path: /}]\nassertions: [{type: exists}]", "path is required"},
		{"data assertion without expect", "name: x\nsteps: [{op: ls, path: /}]\nassertions: [{type: data, path: /}]", "expect is required"},
		{"incomplete schema", "name: x\nschemas: [{prefix: /u/}]\nsteps: [{op: ls, path: /}]", "prefix and file are required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
