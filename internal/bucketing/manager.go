package bucketing

import (
	"hash"
	"sync"
	"time"

	"github.com/spaolacci/murmur3"

	"company-service/internal/config"
)

// BucketingManager assigns companies to fixed hash buckets. The bucket
// is part of the companies partition key, so assignment must stay
// stable for the lifetime of a deployment.
type BucketingManager struct {
	companyBuckets int
	hasherPool     sync.Pool
	config         *config.Config
}

func NewBucketingManager(cfg *config.Config) *BucketingManager {
	bm := &BucketingManager{
		companyBuckets: cfg.Bucketing.CompanyBuckets,
		config:         cfg,
	}

	// Pool of hash functions to avoid allocation overhead on hot paths
	bm.hasherPool = sync.Pool{
		New: func() interface{} {
			return murmur3.New64()
		},
	}

	return bm
}

// GetCompanyBucket returns the consistent bucket for a company ID
// (0 to companyBuckets-1).
func (bm *BucketingManager) GetCompanyBucket(companyID string) int {
	return bm.getBucket(companyID, bm.companyBuckets)
}

// GetDateBucket returns the UTC date bucket used for audit rows
func (bm *BucketingManager) GetDateBucket() string {
	return time.Now().UTC().Format("2006-01-02")
}

func (bm *BucketingManager) GetCompanyBuckets() int {
	return bm.companyBuckets
}

func (bm *BucketingManager) getBucket(key string, numBuckets int) int {
	hash := bm.getHash(key)
	return int(hash % uint64(numBuckets))
}

func (bm *BucketingManager) getHash(key string) uint64 {
	hasher := bm.hasherPool.Get().(hash.Hash64)
	defer bm.hasherPool.Put(hasher)

	hasher.Reset()
	hasher.Write([]byte(key))
	return hasher.Sum64()
}
