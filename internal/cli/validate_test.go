package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	validDefsDir   = filepath.Join("..", "definition", "testdata", "defs")
	invalidDefsDir = filepath.Join("..", "definition", "testdata", "invalid")
)

func TestValidateValidDefinitions(t *testing.T) {
	out, _, err := execute(t, "validate", validDefsDir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ 2 popup definition(s) valid")
}

func TestValidateValidDefinitionsJSON(t *testing.T) {
	out, _, err := execute(t, "validate", "--format", "json", validDefsDir)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, []string{"newsletter-2024", "promo"}, resp.Data.Popups)
}

func TestValidateVerboseListsSelectors(t *testing.T) {
	_, errOut, err := execute(t, "validate", "-v", validDefsDir)
	require.NoError(t, err)
	assert.Contains(t, errOut, "popup promo: selector #promo")
	assert.Contains(t, errOut, "popup newsletter-2024: selector .newsletter")
}

func TestValidateInvalidDefinitions(t *testing.T) {
	out, _, err := execute(t, "validate", invalidDefsDir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "validation failed with 2 error(s)")

	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "E201: popup loud:")
	assert.Contains(t, out, "E201: popup typo:")
}

func TestValidateInvalidDefinitionsJSON(t *testing.T) {
	out, _, err := execute(t, "validate", "--format", "json", invalidDefsDir)
	require.Error(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Errors, 2)
	assert.Equal(t, "loud", resp.Data.Errors[0].Popup)
	assert.Equal(t, "typo", resp.Data.Errors[1].Popup)
	for _, issue := range resp.Data.Errors {
		assert.Equal(t, "E201", issue.Code)
	}
	assert.Equal(t, "E201", resp.Error.Code)
}

func TestValidateNonExistentDirectory(t *testing.T) {
	out, _, err := execute(t, "validate", "/nonexistent/directory/path")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E005")
	assert.Contains(t, out, "not found")
}

func TestValidateEmptyDirectory(t *testing.T) {
	_, _, err := execute(t, "validate", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E003")
}

func TestValidateNoPopups(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeFile(filepath.Join(dir, "other.cue"), "settings: debug: true\n"))

	out, _, err := execute(t, "validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "no popup definitions found")
}

func TestValidateMissingArgs(t *testing.T) {
	_, _, err := execute(t, "validate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}
