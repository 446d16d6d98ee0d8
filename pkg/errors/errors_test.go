package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifestErrorFormatsField(t *testing.T) {
	err := NewManifestError("/plugins/demo/pyproject.toml", "version", stderrors.New("required"))
	assert.Equal(t, "manifest error: /plugins/demo/pyproject.toml: field version: required", err.Error())

	var me *ManifestError
	require.True(t, stderrors.As(err, &me))
	assert.Equal(t, "version", me.Field)
}

func TestToolUnavailableErrorIncludesHint(t *testing.T) {
	err := NewToolUnavailableError("uv", "Install uv from https://docs.astral.sh/uv/", stderrors.New("executable file not found"))
	assert.Contains(t, err.Error(), "uv is not available")
	assert.Contains(t, err.Error(), "Hint: Install uv")
}

func TestProvisionErrorCarriesOutput(t *testing.T) {
	cause := stderrors.New("exit status 1")
	err := NewProvisionError("demo", "  resolution failed\n", cause)
	assert.Contains(t, err.Error(), "resolution failed")
	assert.ErrorIs(t, err, cause)
}

func TestNetworkErrorPrefersStatus(t *testing.T) {
	assert.Equal(t, "download https://x/y.zip failed with HTTP 404", NewNetworkError("https://x/y.zip", 404, nil).Error())
	assert.Contains(t, NewNetworkError("https://x/y.zip", 0, stderrors.New("timeout")).Error(), "timeout")
}

func TestArchiveErrorMessageVariants(t *testing.T) {
	assert.Equal(t, "No valid plugin found in archive", NewArchiveError("a.zip", "No valid plugin found in archive", nil).Error())
	assert.Contains(t, NewArchiveError("a.zip", "", stderrors.New("zip: not a valid zip file")).Error(), "a.zip")
}

func TestDescribeMapsTaxonomy(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		title string
	}{
		{"busy", fmt.Errorf("import: %w", ErrBusy), "Operation In Progress"},
		{"cancelled", ErrCancelled, "Cancelled"},
		{"invalid url", fmt.Errorf("%w: ftp://x", ErrInvalidURL), "Invalid URL"},
		{"tool", NewToolUnavailableError("uv", "", nil), "Required Tool Missing"},
		{"provision", NewProvisionError("demo", "", stderrors.New("x")), "Environment Setup Failed"},
		{"spawn", NewSpawnError("demo", "run", stderrors.New("x")), "Launch Failed"},
		{"archive", NewArchiveError("a.zip", "bad", nil), "Invalid Plugin Archive"},
		{"network", fmt.Errorf("wrapped: %w", NewNetworkError("u", 500, nil)), "Download Failed"},
		{"not found", NewNotFoundError("ghost"), "Plugin Not Found"},
		{"plain", stderrors.New("plain"), "Error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			title, message := Describe(tc.err)
			assert.Equal(t, tc.title, title)
			assert.Equal(t, tc.err.Error(), message)
		})
	}

	title, message := Describe(nil)
	assert.Empty(t, title)
	assert.Empty(t, message)
}

func TestNilReceiversAreSafe(t *testing.T) {
	var me *ManifestError
	var pe *ProvisionError
	var se *SpawnError
	assert.Empty(t, me.Error())
	assert.Nil(t, pe.Unwrap())
	assert.Empty(t, se.Error())
}
