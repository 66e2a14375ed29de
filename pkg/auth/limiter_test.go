package auth

import "testing"

func TestLimiterPoolAllowsBurstThenThrottles(t *testing.T) {
	p := newLimiterPool(SecConfig{RPS: 1, Burst: 3})

	for i := 0; i < 3; i++ {
		if !p.Allow("key-1") {
			t.Fatalf("request %d within burst was throttled", i+1)
		}
	}
	if p.Allow("key-1") {
		t.Fatalf("request beyond burst was allowed")
	}

	// other callers have their own bucket
	if !p.Allow("key-2") {
		t.Fatalf("fresh key throttled by another key's bucket")
	}
}

func TestLimiterPoolDefaultsWhenUnconfigured(t *testing.T) {
	p := newLimiterPool(SecConfig{})
	for i := 0; i < defaultBurst; i++ {
		if !p.Allow("k") {
			t.Fatalf("request %d within default burst was throttled", i+1)
		}
	}
	if p.Allow("k") {
		t.Fatalf("request beyond default burst was allowed")
	}
}
