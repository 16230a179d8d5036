package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"shop/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

const productDetailTTL = 60 * time.Second

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

// 商品詳細のリードスルーキャッシュ。
// rdbがnilならキャッシュ無効（そのままfetchに落ちる）。
type ProductCache struct {
	rdb *redis.Client
}

func NewProductCache(rdb *redis.Client) *ProductCache {
	return &ProductCache{rdb: rdb}
}

func (c *ProductCache) key(id int64) string {
	return fmt.Sprintf("product:detail:%d", id)
}

// GetOrFetch はキャッシュヒットならそれを、ミスならfetchして保存して返す。
// redisのエラーではリクエストを落とさない。
func (c *ProductCache) GetOrFetch(ctx context.Context, id int64, fetch func() (model.Product, error)) (model.Product, error) {
	if c == nil || c.rdb == nil {
		return fetch()
	}

	raw, err := c.rdb.Get(ctx, c.key(id)).Result()
	if err == nil {
		var p model.Product
		if jsonErr := json.Unmarshal([]byte(raw), &p); jsonErr == nil {
			return p, nil
		}
		//壊れたエントリは捨てる
		_ = c.rdb.Del(ctx, c.key(id)).Err()
	}

	p, err := fetch()
	if err != nil {
		return model.Product{}, err
	}

	if data, jsonErr := json.Marshal(p); jsonErr == nil {
		_ = c.rdb.Set(ctx, c.key(id), data, productDetailTTL).Err()
	}

	return p, nil
}
