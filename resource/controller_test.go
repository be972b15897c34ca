package resource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestNilControllerImposesNoLimits(t *testing.T) {
	var c *Controller

	assert.True(t, c.AllowAutoSave())
	assert.True(t, c.TryAcquireUpload())
	require.NoError(t, c.AcquireUpload(context.Background()))
	c.ReleaseUpload()
	assert.Equal(t, int64(0), c.SkippedAutoSaves())
}

func TestAutoSaveThrottle(t *testing.T) {
	t.Run("Unlimited", func(t *testing.T) {
		c := NewController(Config{})
		for i := 0; i < 100; i++ {
			assert.True(t, c.AllowAutoSave())
		}
		assert.Equal(t, int64(0), c.SkippedAutoSaves())
	})

	t.Run("Limited", func(t *testing.T) {
		// One save per hour with burst 1: second call must be denied.
		c := NewController(Config{AutoSaveRate: rate.Every(time.Hour), AutoSaveBurst: 1})

		assert.True(t, c.AllowAutoSave())
		assert.False(t, c.AllowAutoSave())
		assert.Equal(t, int64(1), c.SkippedAutoSaves())
	})
}

func TestUploadSlots(t *testing.T) {
	c := NewController(Config{MaxConcurrentUploads: 2})

	require.True(t, c.TryAcquireUpload())
	require.True(t, c.TryAcquireUpload())
	assert.False(t, c.TryAcquireUpload())

	c.ReleaseUpload()
	assert.True(t, c.TryAcquireUpload())

	c.ReleaseUpload()
	c.ReleaseUpload()

	require.NoError(t, c.AcquireUpload(context.Background()))
	c.ReleaseUpload()
}
