package machine

import (
	"sync"
	"testing"
)

func TestCurrentIsStableAcrossConcurrentLookups(t *testing.T) {
	const lookups = 16
	results := make([]Identity, lookups)

	var wg sync.WaitGroup
	for i := 0; i < lookups; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			results[slot] = Current()
		}(i)
	}
	wg.Wait()

	first := results[0]
	if first.OS == "" {
		t.Fatal("expected OS to be populated")
	}
	if first.Runtime == "" {
		t.Fatal("expected runtime version to be populated")
	}
	if first.Hostname == "" {
		t.Fatal("expected hostname to be populated")
	}
	for i, got := range results {
		if got != first {
			t.Fatalf("lookup %d diverged: %+v vs %+v", i, got, first)
		}
	}
}
