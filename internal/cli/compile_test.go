package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileText(t *testing.T) {
	out, _, err := runCLI(t, t.TempDir(), "", "compile", `name = "report"`, "/docs")
	require.NoError(t, err)
	assert.Equal(t, "substr(path, 1, ?) = ? AND name = ?\n-- p1=6 p2=\"/docs/\" p3=\"report\"\n", out)
}

func TestCompileRootScopeHasNoPrefixFilter(t *testing.T) {
	out, _, err := runCLI(t, t.TempDir(), "", "compile", `name = "report"`)
	require.NoError(t, err)
	assert.Equal(t, "name = ?\n-- p1=\"report\"\n", out)
}

func TestCompileJSON(t *testing.T) {
	out, _, err := runCLI(t, t.TempDir(), "", "--format", "json", "-C", "/docs", "compile", "data.size >= 10", "a", "--dialect", "postgres")
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	require.Equal(t, "ok", resp.Status)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "postgres", data["dialect"])
	assert.Equal(t, "/docs/a/", data["scope"])
	assert.Contains(t, data["sql"], "$1")
	assert.NotContains(t, data["sql"], "?")

	params := data["params"].([]any)
	require.NotEmpty(t, params)
	values := make([]any, len(params))
	for i, p := range params {
		values[i] = p.(map[string]any)["value"]
	}
	assert.Contains(t, values, "/docs/a/")
	assert.Contains(t, values, float64(10))
}

func TestCompileEmptyQuery(t *testing.T) {
	out, _, err := runCLI(t, t.TempDir(), "", "compile", "")
	require.NoError(t, err)
	assert.Equal(t, "1 = 1\n", out)
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode string
		wantExit int
	}{
		{"parse error", []string{"compile", "data.x =="}, "PARSE_ERROR", ExitFailure},
		{"unknown dialect", []string{"compile", "", "--dialect", "oracle"}, "COMMAND_ERROR", ExitCommandError},
		{"path escapes root", []string{"compile", "", "/.."}, "INVALID_PATH", ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := runCLI(t, t.TempDir(), "", append([]string{"--format", "json"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))

			resp := decodeResponse(t, out)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}
