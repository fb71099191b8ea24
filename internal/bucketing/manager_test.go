package bucketing

import (
	"sync"
	"testing"

	"company-service/internal/config"
)

func newTestManager() *BucketingManager {
	return NewBucketingManager(&config.Config{
		Bucketing: config.BucketingConfig{CompanyBuckets: 64},
	})
}

func TestGetCompanyBucketIsStable(t *testing.T) {
	bm := newTestManager()

	first := bm.GetCompanyBucket("d3b2a1c0-1111-2222-3333-444455556666")
	for i := 0; i < 100; i++ {
		if got := bm.GetCompanyBucket("d3b2a1c0-1111-2222-3333-444455556666"); got != first {
			t.Fatalf("bucket changed: %d vs %d", first, got)
		}
	}
}

func TestGetCompanyBucketRange(t *testing.T) {
	bm := newTestManager()

	ids := []string{"a", "b", "company-1", "company-2", "d3b2a1c0-1111-2222-3333-444455556666"}
	for _, id := range ids {
		bucket := bm.GetCompanyBucket(id)
		if bucket < 0 || bucket >= 64 {
			t.Fatalf("bucket %d for %q out of range", bucket, id)
		}
	}
}

func TestGetCompanyBucketConcurrent(t *testing.T) {
	bm := newTestManager()
	want := bm.GetCompanyBucket("shared-id")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				if got := bm.GetCompanyBucket("shared-id"); got != want {
					t.Errorf("bucket changed under concurrency: %d vs %d", got, want)
					return
				}
			}
		}()
	}
	wg.Wait()
}
