package memory_test

import (
	"testing"

	"github.com/PabloGalante/taskpilot/internal/adapters/storage/memory"
	"github.com/PabloGalante/taskpilot/internal/adapters/storage/storetest"
	"github.com/PabloGalante/taskpilot/internal/domain"
)

func TestTaskStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) domain.TaskStore {
		return memory.NewTaskStore()
	})
}
