package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowforge/engine/engine/workflow"
)

func writeDefinition(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("Should load a startup workflow", func(t *testing.T) {
		dir := t.TempDir()
		path := writeDefinition(t, dir, "a.xml", `<Workflow id="1">
			<Name>startup-one</Name>
			<LaunchType>startup</LaunchType>
		</Workflow>`)
		w, err := Load(context.Background(), path, Options{})
		require.NoError(t, err)
		assert.Equal(t, 1, w.ID())
		assert.Equal(t, "startup-one", w.Name())
		assert.Equal(t, workflow.LaunchStartup, w.LaunchType())
	})
	t.Run("Should load a periodic workflow with a parsed period", func(t *testing.T) {
		dir := t.TempDir()
		path := writeDefinition(t, dir, "b.xml", `<Workflow id="2">
			<Name>periodic-one</Name>
			<LaunchType>periodic</LaunchType>
			<Period>5m</Period>
		</Workflow>`)
		w, err := Load(context.Background(), path, Options{})
		require.NoError(t, err)
		assert.Equal(t, workflow.LaunchPeriodic, w.LaunchType())
		assert.Equal(t, "5m0s", w.Period().String())
	})
	t.Run("Should reject a periodic workflow missing Period", func(t *testing.T) {
		dir := t.TempDir()
		path := writeDefinition(t, dir, "c.xml", `<Workflow id="3">
			<Name>periodic-missing</Name>
			<LaunchType>periodic</LaunchType>
		</Workflow>`)
		_, err := Load(context.Background(), path, Options{})
		require.Error(t, err)
	})
	t.Run("Should reject a cron workflow with an invalid expression", func(t *testing.T) {
		dir := t.TempDir()
		path := writeDefinition(t, dir, "d.xml", `<Workflow id="4">
			<Name>cron-bad</Name>
			<LaunchType>cron</LaunchType>
			<CronExpression>not a cron</CronExpression>
		</Workflow>`)
		_, err := Load(context.Background(), path, Options{})
		require.Error(t, err)
	})
	t.Run("Should reject malformed XML", func(t *testing.T) {
		dir := t.TempDir()
		path := writeDefinition(t, dir, "e.xml", `<Workflow id="5">`)
		_, err := Load(context.Background(), path, Options{})
		require.Error(t, err)
	})
	t.Run("Should reject a missing id", func(t *testing.T) {
		dir := t.TempDir()
		path := writeDefinition(t, dir, "f.xml", `<Workflow>
			<Name>no-id</Name>
			<LaunchType>startup</LaunchType>
		</Workflow>`)
		_, err := Load(context.Background(), path, Options{})
		require.Error(t, err)
	})
	t.Run("Should surface an error for a missing file", func(t *testing.T) {
		_, err := Load(context.Background(), "/nonexistent/path.xml", Options{})
		require.Error(t, err)
	})
}
