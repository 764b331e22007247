package catalog

import (
	"sync"
	"time"
)

// Cache は有効期限付きのインメモリキャッシュ。
// エントリ数に上限があり、上限到達時は最も期限の近いエントリを追い出す。
// 外部APIの読み取り結果の保持を想定しており、スレッドセーフに動作する。
type Cache struct {
	mu         sync.Mutex
	entries    map[string]cacheEntry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time // テスト用に差し替え可能
}

type cacheEntry struct {
	value     any
	expiresAt time.Time
}

// NewCache は指定TTLと最大エントリ数のCacheを生成する。
// maxEntriesが0以下の場合は1として扱う。
func NewCache(ttl time.Duration, maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return &Cache{
		entries:    make(map[string]cacheEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get はキーに対応する値を返す。未登録または期限切れの場合はfalseを返す。
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.value, true
}

// Set はキーに値を登録する。
// 上限到達時はまず期限切れエントリを掃除し、それでも満杯なら
// 最も期限の近いエントリを1件追い出す。
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictLocked()
	}
	c.entries[key] = cacheEntry{
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	}
}

// Len は現在のエントリ数を返す（期限切れ含む）。
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictLocked は期限切れエントリを削除し、1件も消えなければ
// 最も期限の近いエントリを追い出す。呼び出し側がロックを保持すること。
func (c *Cache) evictLocked() {
	now := c.now()
	removed := false
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
			removed = true
		}
	}
	if removed {
		return
	}

	var oldestKey string
	var oldestExpiry time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.expiresAt.Before(oldestExpiry) {
			oldestKey = key
			oldestExpiry = entry.expiresAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
