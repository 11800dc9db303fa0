// Package cache provides the read-through cache for conversation and
// message listings. Entries live for DefaultTTL and every mutating
// operation evicts the keys it touches.
package cache

import (
	"context"
	"fmt"
	"time"
)

// DefaultTTL bounds how stale a served conversation or message list can be.
const DefaultTTL = 5 * time.Minute

type Cache interface {
	// GetJSON unmarshals the cached value into dst and reports a hit.
	// Expired or corrupt entries are treated as misses.
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// ConversationsKey caches the conversation list of one user.
func ConversationsKey(userID string) string {
	return fmt.Sprintf("user:%s:conversations", userID)
}

// MessagesKey caches the message list of one conversation.
func MessagesKey(userID, conversationID string) string {
	return fmt.Sprintf("user:%s:messages:%s", userID, conversationID)
}
