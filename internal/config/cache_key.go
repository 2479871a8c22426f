package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SessionLockKey returns the lock key serializing writers of one exam session
func (r *CacheKeyStruct) SessionLockKey(sessionID string) string {
	return fmt.Sprintf("session:%s:lock", sessionID)
}

// PaperPayloadKey returns the cache key for a generated paper's full payload
func (r *CacheKeyStruct) PaperPayloadKey(paperID string) string {
	return fmt.Sprintf("paper:%s:payload", paperID)
}

// PaperMonitorChannel returns the Redis PubSub channel name for a paper's live session feed
func (r *CacheKeyStruct) PaperMonitorChannel(paperID string) string {
	return fmt.Sprintf("paper:%s:monitor", paperID)
}

// StartRateKey returns the fixed-window counter key for session starts from one client
func (r *CacheKeyStruct) StartRateKey(clientIP string, window int64) string {
	return fmt.Sprintf("ratelimit:start:%s:%d", clientIP, window)
}

var CacheKey = NewCacheKeyStruct()
