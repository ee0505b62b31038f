package jobs

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingCleaner struct {
	runs atomic.Int64
}

func (c *countingCleaner) CleanSymlinks() {
	c.runs.Add(1)
}

func TestCleanupJob(t *testing.T) {
	t.Run("creates job with correct interval", func(t *testing.T) {
		job := NewCleanupJob(&countingCleaner{}, 5*time.Minute)

		assert.NotNil(t, job)
		assert.Equal(t, 5*time.Minute, job.interval)
	})

	t.Run("sweeps once on start", func(t *testing.T) {
		cleaner := &countingCleaner{}
		job := NewCleanupJob(cleaner, time.Hour)

		job.Start()
		assert.Eventually(t, func() bool {
			return cleaner.runs.Load() == 1
		}, time.Second, 5*time.Millisecond)
		job.Stop()
	})

	t.Run("sweeps again on each tick", func(t *testing.T) {
		cleaner := &countingCleaner{}
		job := NewCleanupJob(cleaner, 20*time.Millisecond)

		job.Start()
		assert.Eventually(t, func() bool {
			return cleaner.runs.Load() >= 3
		}, time.Second, 5*time.Millisecond)
		job.Stop()
	})

	t.Run("stops without panic", func(t *testing.T) {
		job := NewCleanupJob(&countingCleaner{}, 100*time.Millisecond)

		job.Start()
		time.Sleep(10 * time.Millisecond)
		job.Stop()
	})
}
