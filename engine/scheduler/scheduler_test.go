package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_SchedulePeriodic(t *testing.T) {
	t.Run("Should fire the installed job repeatedly", func(t *testing.T) {
		s := New()
		s.Start()
		defer s.Shutdown()

		var fires int32
		require.NoError(t, s.SchedulePeriodic("Workflow Job 1", 50*time.Millisecond, func() {
			atomic.AddInt32(&fires, 1)
		}))
		assert.True(t, s.Exists("Workflow Job 1"))
		time.Sleep(180 * time.Millisecond)
		assert.GreaterOrEqual(t, atomic.LoadInt32(&fires), int32(2))
	})

	t.Run("Should be idempotent when rescheduling the same job id", func(t *testing.T) {
		s := New()
		s.Start()
		defer s.Shutdown()

		require.NoError(t, s.SchedulePeriodic("Workflow Job 1", time.Hour, func() {}))
		require.NoError(t, s.SchedulePeriodic("Workflow Job 1", time.Hour, func() {}))
		assert.True(t, s.Exists("Workflow Job 1"))
	})
}

func TestScheduler_Unschedule(t *testing.T) {
	t.Run("Should remove an installed job", func(t *testing.T) {
		s := New()
		require.NoError(t, s.SchedulePeriodic("Workflow Job 1", time.Hour, func() {}))
		assert.True(t, s.Unschedule("Workflow Job 1"))
		assert.False(t, s.Exists("Workflow Job 1"))
	})
	t.Run("Should report false for an unknown job id", func(t *testing.T) {
		s := New()
		assert.False(t, s.Unschedule("missing"))
	})
}
