package memory

import (
	"testing"

	"github.com/mean-dao/payment-streaming-server/pkg/msp/data/treasury/tests"
)

func TestTreasuryMemoryStore(t *testing.T) {
	testStore := New()
	teardown := func() {
		testStore.(*store).reset()
	}
	tests.RunTests(t, testStore, teardown)
}
