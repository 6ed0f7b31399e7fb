package solana

import (
	"context"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
)

type blockhashSource interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
}

// BlockhashCache reuses a recent blockhash for ttl to avoid one RPC round
// trip per transfer
type BlockhashCache struct {
	mu     sync.Mutex
	block  *rpc.LatestBlockhashResult
	expiry time.Time
	ttl    time.Duration
}

func NewBlockhashCache(ttl time.Duration) *BlockhashCache {
	return &BlockhashCache{
		ttl: ttl,
	}
}

// Get returns the cached blockhash, refreshing it once it expired
func (c *BlockhashCache) Get(ctx context.Context, node blockhashSource) (*rpc.LatestBlockhashResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.block != nil && time.Now().Before(c.expiry) {
		return c.block, nil
	}
	result, err := node.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return nil, err
	}

	c.block = result.Value
	c.expiry = time.Now().Add(c.ttl)

	return c.block, nil
}
