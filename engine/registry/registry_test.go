package registry

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowforge/engine/engine/workflow"
)

func newTestWorkflow(id int, path string) *workflow.Workflow {
	return workflow.New(workflow.Config{
		ID:       id,
		Name:     fmt.Sprintf("wf-%d", id),
		FilePath: path,
		Enabled:  true,
	}, nil)
}

func TestRegistry_Insert(t *testing.T) {
	t.Run("Should insert a new workflow", func(t *testing.T) {
		r := New()
		w := newTestWorkflow(1, "/wf/a.xml")
		err := r.Insert(w)
		require.NoError(t, err)
		assert.Equal(t, 1, r.Count())
	})
	t.Run("Should reject a duplicate id", func(t *testing.T) {
		r := New()
		require.NoError(t, r.Insert(newTestWorkflow(1, "/wf/a.xml")))
		err := r.Insert(newTestWorkflow(1, "/wf/b.xml"))
		require.Error(t, err)
		assert.Equal(t, 1, r.Count())
	})
	t.Run("Should reject a duplicate file path", func(t *testing.T) {
		r := New()
		require.NoError(t, r.Insert(newTestWorkflow(1, "/wf/a.xml")))
		err := r.Insert(newTestWorkflow(2, "/wf/a.xml"))
		require.Error(t, err)
		assert.Equal(t, 1, r.Count())
	})
}

func TestRegistry_RemoveByID(t *testing.T) {
	t.Run("Should remove an existing entry and its path index", func(t *testing.T) {
		r := New()
		w := newTestWorkflow(1, "/wf/a.xml")
		require.NoError(t, r.Insert(w))
		removed := r.RemoveByID(1)
		require.NotNil(t, removed)
		assert.Nil(t, r.LookupByID(1))
		assert.Nil(t, r.LookupByFilePath("/wf/a.xml"))
	})
	t.Run("Should no-op for an unknown id", func(t *testing.T) {
		r := New()
		assert.Nil(t, r.RemoveByID(99))
	})
}

func TestRegistry_RemoveByFilePath(t *testing.T) {
	t.Run("Should remove an existing entry and its id index", func(t *testing.T) {
		r := New()
		require.NoError(t, r.Insert(newTestWorkflow(1, "/wf/a.xml")))
		removed := r.RemoveByFilePath("/wf/a.xml")
		require.NotNil(t, removed)
		assert.Nil(t, r.LookupByID(1))
	})
}

func TestRegistry_Snapshot(t *testing.T) {
	t.Run("Should return every registered workflow", func(t *testing.T) {
		r := New()
		require.NoError(t, r.Insert(newTestWorkflow(1, "/wf/a.xml")))
		require.NoError(t, r.Insert(newTestWorkflow(2, "/wf/b.xml")))
		assert.Len(t, r.Snapshot(), 2)
	})
}
