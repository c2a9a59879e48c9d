package risk

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/richxcame/cardshield/pkg/cache"
	redisclient "github.com/richxcame/cardshield/pkg/redis"
)

// VelocityStore tracks per-customer transaction windows in Redis sorted
// sets. Members encode the amount so a single window read yields both the
// count and the cumulative total.
type VelocityStore struct {
	redis  *redisclient.Client
	window time.Duration
}

// NewVelocityStore creates the store. window defaults to one hour.
func NewVelocityStore(redis *redisclient.Client, window time.Duration) *VelocityStore {
	if window <= 0 {
		window = time.Hour
	}
	return &VelocityStore{redis: redis, window: window}
}

// Record adds a transaction to the customer's window.
func (s *VelocityStore) Record(ctx context.Context, userID uuid.UUID, amount float64, at time.Time) error {
	key := cache.Keys.VelocityWindow(userID.String())
	member := fmt.Sprintf("%s:%.2f", uuid.New(), amount)

	if err := s.redis.AddToWindow(ctx, key, member, at); err != nil {
		return err
	}
	// The window only needs to outlive its own span.
	return s.redis.Expire(ctx, key, s.window*2)
}

// RecordTransaction adds a scored payment to its customer's window.
func (s *VelocityStore) RecordTransaction(ctx context.Context, payment PaymentContext) error {
	at := payment.Timestamp
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return s.Record(ctx, payment.UserID, payment.Amount, at)
}

// RecentActivity trims expired entries and returns the live window stats.
func (s *VelocityStore) RecentActivity(ctx context.Context, userID uuid.UUID, window time.Duration) (TransactionStats, error) {
	if window <= 0 {
		window = s.window
	}
	key := cache.Keys.VelocityWindow(userID.String())

	if err := s.redis.TrimWindow(ctx, key, time.Now().Add(-window)); err != nil {
		return TransactionStats{}, err
	}

	members, err := s.redis.WindowMembers(ctx, key)
	if err != nil {
		return TransactionStats{}, err
	}

	stats := TransactionStats{Count: int64(len(members))}
	for _, member := range members {
		idx := strings.LastIndexByte(member, ':')
		if idx < 0 {
			continue
		}
		amount, err := strconv.ParseFloat(member[idx+1:], 64)
		if err != nil {
			continue
		}
		stats.Total += amount
	}

	return stats, nil
}
