package usecase_test

import (
	"sync"
	"testing"

	"agent-orchestrator/internal/usecase"

	"github.com/stretchr/testify/assert"
)

func TestSessionRegistry(t *testing.T) {
	t.Run("Get before Put returns nil", func(t *testing.T) {
		registry := usecase.NewSessionRegistry()
		assert.Nil(t, registry.Get("missing"))
	})

	t.Run("Put then Delete", func(t *testing.T) {
		registry := usecase.NewSessionRegistry()
		handle := putHandle(registry, "sess-1", 3)

		assert.Same(t, handle, registry.Get("sess-1"))
		registry.Delete("sess-1")
		assert.Nil(t, registry.Get("sess-1"))
	})

	t.Run("IndexLock is stable per session", func(t *testing.T) {
		registry := usecase.NewSessionRegistry()
		assert.Same(t, registry.IndexLock("a"), registry.IndexLock("a"))
		assert.NotSame(t, registry.IndexLock("a"), registry.IndexLock("b"))
	})

	t.Run("Concurrent access is safe", func(t *testing.T) {
		registry := usecase.NewSessionRegistry()
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					putHandle(registry, "shared", 3)
					_ = registry.Get("shared")
					_ = registry.IndexLock("shared")
				}
			}()
		}
		wg.Wait()
		assert.NotNil(t, registry.Get("shared"))
	})
}
