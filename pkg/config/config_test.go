package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("Should load settings from a YAML file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "settings.yml")
		require.NoError(t, os.WriteFile(path, []byte(
			"workflowsFolder: /wf\ntempFolder: "+filepath.Join(dir, "temp")+"\n",
		), 0o600))
		s, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "/wf", s.WorkflowsFolder)
	})
	t.Run("Should create tempFolder if it does not exist", func(t *testing.T) {
		dir := t.TempDir()
		tempDir := filepath.Join(dir, "does-not-exist-yet")
		path := filepath.Join(dir, "settings.yml")
		require.NoError(t, os.WriteFile(path, []byte("tempFolder: "+tempDir+"\n"), 0o600))
		_, err := Load(path)
		require.NoError(t, err)
		info, statErr := os.Stat(tempDir)
		require.NoError(t, statErr)
		assert.True(t, info.IsDir())
	})
	t.Run("Should return empty settings rather than error for a missing file", func(t *testing.T) {
		s, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
		require.NoError(t, err)
		assert.Equal(t, "", s.WorkflowsFolder)
	})
	t.Run("Should override a file value from the environment", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "settings.yml")
		require.NoError(t, os.WriteFile(path, []byte("workflowsFolder: /wf\n"), 0o600))
		t.Setenv("WEXCTL_WORKFLOWSFOLDER", "/override")
		s, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "/override", s.WorkflowsFolder)
	})
}
