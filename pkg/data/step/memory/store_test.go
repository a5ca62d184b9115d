package memory

import (
	"testing"

	"github.com/alizeeshan1234/er-transfer/pkg/data/step/tests"
)

func TestStepMemoryStore(t *testing.T) {
	testStore := New()
	teardown := func() {
		testStore.(*store).reset()
	}

	tests.RunTests(t, testStore, teardown)
}
