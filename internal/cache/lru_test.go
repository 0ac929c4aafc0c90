package cache

import (
	"fmt"
	"testing"
	"time"
)

// attribution-shaped value, mirroring what the explainer caches
type cachedAttr struct {
	method string
	scores map[string]float64
}

func sampleKey(i int) string {
	return fmt.Sprintf("sha256:%04x", i)
}

func TestLRUWithTTLHitMissAndEviction(t *testing.T) {
	c, err := NewLRUWithTTL[string, *cachedAttr](3, 0)
	if err != nil {
		t.Fatalf("NewLRUWithTTL: %v", err)
	}
	defer c.Close()

	attr := &cachedAttr{method: "kernel_shap", scores: map[string]float64{"age": 0.4}}
	c.Set(sampleKey(1), attr)

	got, ok := c.Get(sampleKey(1))
	if !ok || got.method != "kernel_shap" {
		t.Fatalf("Get(%s) = (%v, %v), want cached attribution", sampleKey(1), got, ok)
	}

	if _, ok := c.Get("sha256:ffff"); ok {
		t.Error("unknown feature-vector hash should miss")
	}

	// Filling past capacity evicts the least recently used entry.
	c.Set(sampleKey(2), &cachedAttr{method: "coefficients"})
	c.Set(sampleKey(3), &cachedAttr{method: "importances"})
	c.Set(sampleKey(4), &cachedAttr{method: "kernel_shap"})

	if _, ok := c.Get(sampleKey(1)); ok {
		t.Error("oldest attribution should have been evicted")
	}
	if _, ok := c.Get(sampleKey(4)); !ok {
		t.Error("newest attribution should be resident")
	}
}

func TestLRUWithTTLExpiry(t *testing.T) {
	c, err := NewLRUWithTTL[string, *cachedAttr](10, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewLRUWithTTL: %v", err)
	}
	defer c.Close()

	c.Set(sampleKey(1), &cachedAttr{method: "kernel_shap"})
	if _, ok := c.Get(sampleKey(1)); !ok {
		t.Fatal("entry should be readable before its TTL")
	}

	time.Sleep(100 * time.Millisecond)

	if _, ok := c.Get(sampleKey(1)); ok {
		t.Error("entry should have expired")
	}
}

func TestLRUWithTTLStats(t *testing.T) {
	c, err := NewLRUWithTTL[string, *cachedAttr](5, 0)
	if err != nil {
		t.Fatalf("NewLRUWithTTL: %v", err)
	}
	defer c.Close()

	c.Set(sampleKey(1), &cachedAttr{method: "kernel_shap"})
	c.Set(sampleKey(2), &cachedAttr{method: "coefficients"})

	c.Get(sampleKey(1)) // hit
	c.Get(sampleKey(1)) // hit
	c.Get(sampleKey(9)) // miss

	stats := c.Stats()
	if stats.Hits != 2 {
		t.Errorf("Stats.Hits = %d, want 2", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("Stats.Misses = %d, want 1", stats.Misses)
	}
	if stats.Size != 2 {
		t.Errorf("Stats.Size = %d, want 2", stats.Size)
	}

	wantRate := 2.0 / 3.0
	if stats.HitRate < wantRate-0.01 || stats.HitRate > wantRate+0.01 {
		t.Errorf("Stats.HitRate = %f, want ~%f", stats.HitRate, wantRate)
	}
}

func TestLRUWithTTLDeleteAndClear(t *testing.T) {
	c, err := NewLRUWithTTL[string, *cachedAttr](5, 0)
	if err != nil {
		t.Fatalf("NewLRUWithTTL: %v", err)
	}
	defer c.Close()

	c.Set(sampleKey(1), &cachedAttr{method: "kernel_shap"})
	c.Delete(sampleKey(1))
	if _, ok := c.Get(sampleKey(1)); ok {
		t.Error("deleted entry should miss")
	}

	c.Set(sampleKey(2), &cachedAttr{method: "coefficients"})
	c.Set(sampleKey(3), &cachedAttr{method: "importances"})
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() = %d after Clear, want 0", c.Len())
	}
}

func TestLRUWithTTLCleanupExpired(t *testing.T) {
	c, err := NewLRUWithTTL[string, *cachedAttr](10, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewLRUWithTTL: %v", err)
	}
	defer c.Close()

	for i := 1; i <= 3; i++ {
		c.Set(sampleKey(i), &cachedAttr{method: "kernel_shap"})
	}

	time.Sleep(100 * time.Millisecond)

	if removed := c.CleanupExpired(); removed != 3 {
		t.Errorf("CleanupExpired() = %d, want 3", removed)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d after sweep, want 0", c.Len())
	}
}

func TestLRUWithTTLConcurrentAccess(t *testing.T) {
	c, err := NewLRUWithTTL[string, *cachedAttr](64, time.Minute)
	if err != nil {
		t.Fatalf("NewLRUWithTTL: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})
	for w := 0; w < 4; w++ {
		go func(w int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 200; i++ {
				key := sampleKey((w*200 + i) % 32)
				c.Set(key, &cachedAttr{method: "kernel_shap"})
				c.Get(key)
			}
		}(w)
	}
	for w := 0; w < 4; w++ {
		<-done
	}

	stats := c.Stats()
	if stats.Hits+stats.Misses == 0 {
		t.Error("expected lookups to be counted")
	}
}
