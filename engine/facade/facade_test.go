package facade

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowforge/engine/engine/core"
)

func writeDef(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
}

func startupDef(id int, name string) string {
	return `<Workflow id="` + itoa(id) + `">
		<Name>` + name + `</Name>
		<LaunchType>startup</LaunchType>
	</Workflow>`
}

func periodicDef(id int, name, period string) string {
	return `<Workflow id="` + itoa(id) + `">
		<Name>` + name + `</Name>
		<LaunchType>periodic</LaunchType>
		<Period>` + period + `</Period>
	</Workflow>`
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var digits []byte
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timed out waiting for condition")
}

func TestEngine_BootWithStartupWorkflows(t *testing.T) {
	t.Run("Should start every enabled startup workflow with no scheduler job installed", func(t *testing.T) {
		dir := t.TempDir()
		writeDef(t, dir, "a.xml", startupDef(1, "one"))
		writeDef(t, dir, "b.xml", startupDef(2, "two"))
		writeDef(t, dir, "c.xml", startupDef(3, "three"))

		e := New(Config{WorkflowsFolder: dir})
		require.NoError(t, e.Run(context.Background()))
		defer e.Stop(context.Background(), true, false)

		assert.Equal(t, 3, e.Registry().Count())
		for _, id := range []int{1, 2, 3} {
			assert.False(t, e.Scheduler().Exists(core.JobID(id)))
		}
		assert.True(t, e.Scheduler().IsStarted())
	})
}

func TestEngine_AddPeriodicWhileRunning(t *testing.T) {
	t.Run("Should register and schedule a periodic workflow added after boot", func(t *testing.T) {
		dir := t.TempDir()
		e := New(Config{WorkflowsFolder: dir})
		require.NoError(t, e.Run(context.Background()))
		defer e.Stop(context.Background(), true, false)

		writeDef(t, dir, "seven.xml", periodicDef(7, "seven", "60s"))
		waitFor(t, func() bool { return e.Registry().LookupByID(7) != nil })
		waitFor(t, func() bool { return e.Scheduler().Exists(core.JobID(7)) })
	})
}

func TestEngine_IDCollision(t *testing.T) {
	t.Run("Should keep the original entry and discard the colliding arrival", func(t *testing.T) {
		dir := t.TempDir()
		writeDef(t, dir, "A.xml", periodicDef(7, "seven-a", "60s"))
		e := New(Config{WorkflowsFolder: dir})
		require.NoError(t, e.Run(context.Background()))
		defer e.Stop(context.Background(), true, false)
		waitFor(t, func() bool { return e.Registry().LookupByID(7) != nil })

		writeDef(t, dir, "B.xml", periodicDef(7, "seven-b", "60s"))
		time.Sleep(400 * time.Millisecond)

		w := e.Registry().LookupByID(7)
		require.NotNil(t, w)
		assert.Equal(t, filepath.Join(dir, "A.xml"), w.FilePath())
		assert.Nil(t, e.Registry().LookupByFilePath(filepath.Join(dir, "B.xml")))
	})
}

func TestEngine_ChangeEventCollision(t *testing.T) {
	t.Run("Should keep the old entry and its job when a reload collides with another workflow's id", func(t *testing.T) {
		dir := t.TempDir()
		writeDef(t, dir, "A.xml", periodicDef(7, "seven", "60s"))
		writeDef(t, dir, "B.xml", periodicDef(9, "nine", "60s"))
		e := New(Config{WorkflowsFolder: dir})
		require.NoError(t, e.Run(context.Background()))
		defer e.Stop(context.Background(), true, false)
		waitFor(t, func() bool { return e.Registry().LookupByID(7) != nil })
		waitFor(t, func() bool { return e.Registry().LookupByID(9) != nil })

		// Edit A.xml to claim B.xml's id — a genuine external collision on a
		// Changed event, distinct from the new-file collision
		// TestEngine_IDCollision covers.
		writeDef(t, dir, "A.xml", periodicDef(9, "seven-renamed", "60s"))
		time.Sleep(400 * time.Millisecond)

		w := e.Registry().LookupByFilePath(filepath.Join(dir, "A.xml"))
		require.NotNil(t, w)
		assert.Equal(t, 7, w.ID())
		assert.True(t, e.Scheduler().Exists(core.JobID(7)))

		other := e.Registry().LookupByID(9)
		require.NotNil(t, other)
		assert.Equal(t, filepath.Join(dir, "B.xml"), other.FilePath())
	})
}

func TestEngine_ChangeEvent(t *testing.T) {
	t.Run("Should replace the job and keep the registry entry unique after an edit", func(t *testing.T) {
		dir := t.TempDir()
		writeDef(t, dir, "seven.xml", periodicDef(7, "seven", "60s"))
		e := New(Config{WorkflowsFolder: dir})
		require.NoError(t, e.Run(context.Background()))
		defer e.Stop(context.Background(), true, false)
		waitFor(t, func() bool { return e.Registry().LookupByID(7) != nil })

		writeDef(t, dir, "seven.xml", periodicDef(7, "seven", "10s"))
		waitFor(t, func() bool {
			w := e.Registry().LookupByID(7)
			return w != nil && w.Period() == 10*time.Second
		})
		assert.Equal(t, 1, e.Registry().Count())
	})
}

func TestEngine_DeleteEvent(t *testing.T) {
	t.Run("Should remove the workflow and its job when its file is deleted", func(t *testing.T) {
		dir := t.TempDir()
		writeDef(t, dir, "nine.xml", periodicDef(9, "nine", "60s"))
		e := New(Config{WorkflowsFolder: dir})
		require.NoError(t, e.Run(context.Background()))
		defer e.Stop(context.Background(), true, false)
		waitFor(t, func() bool { return e.Registry().LookupByID(9) != nil })

		require.NoError(t, os.Remove(filepath.Join(dir, "nine.xml")))
		waitFor(t, func() bool { return e.Registry().LookupByID(9) == nil })
		assert.False(t, e.Scheduler().Exists(core.JobID(9)))
	})
}

func TestEngine_Stop(t *testing.T) {
	t.Run("Should stop running workflows and clear persisted state", func(t *testing.T) {
		dir := t.TempDir()
		writeDef(t, dir, "one.xml", startupDef(1, "one"))
		store := &fakeStore{}
		e := New(Config{WorkflowsFolder: dir, Store: store})
		require.NoError(t, e.Run(context.Background()))

		require.NoError(t, e.Stop(context.Background(), true, true))
		assert.Equal(t, 1, store.clearStatusCountCalls)
		assert.Equal(t, 1, store.clearEntriesCalls)
		assert.False(t, e.Scheduler().IsStarted())
	})
}
