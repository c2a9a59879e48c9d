//go:build integration

package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richxcame/cardshield/internal/card"
	"github.com/richxcame/cardshield/internal/risk"
	"github.com/richxcame/cardshield/pkg/cache"
	"github.com/richxcame/cardshield/pkg/config"
	redisclient "github.com/richxcame/cardshield/pkg/redis"
	"github.com/richxcame/cardshield/test/helpers"
)

type scoringFixture struct {
	service  *risk.Service
	repo     *risk.Repository
	denyList *card.DenyListRepository
	zones    *risk.ZoneRepository
}

func setupRedis(t *testing.T) *redisclient.Client {
	t.Helper()

	cfg := config.RedisConfig{
		Host: getEnvOr("TEST_REDIS_HOST", "localhost"),
		Port: getEnvOr("TEST_REDIS_PORT", "6379"),
		DB:   9, // dedicated test DB
	}

	client, err := redisclient.NewRedisClient(&cfg)
	require.NoError(t, err)

	require.NoError(t, client.Client.FlushDB(context.Background()).Err())
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func getEnvOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func newScoringFixture(t *testing.T) *scoringFixture {
	t.Helper()

	pool := helpers.SetupTestDatabase(t)
	helpers.ResetTables(t, pool,
		"risk_assessments", "transactions", "behavior_profiles",
		"device_profiles", "risk_zones", "card_deny_list",
	)

	redisClient := setupRedis(t)
	cacheManager := cache.NewManager(redisClient)

	repo := risk.NewRepository(pool, cacheManager)
	denyList := card.NewDenyListRepository(pool, cacheManager)
	zones := risk.NewZoneRepository(pool, cacheManager)
	velocity := risk.NewVelocityStore(redisClient, time.Hour)

	analyzers := []risk.Analyzer{
		risk.NewVelocityAnalyzer(velocity, time.Hour),
		risk.NewGeoAnalyzer(repo, zones),
		risk.NewDeviceAnalyzer(repo),
		risk.NewBehaviorAnalyzer(repo),
		risk.NewCardPatternAnalyzer(denyList),
		risk.NewAmountAnalyzer(),
	}

	store, err := risk.NewConfigStore(risk.DefaultConfiguration(config.FraudConfig{
		Enabled:     true,
		Sensitivity: "medium",
	}))
	require.NoError(t, err)

	service := risk.NewService(analyzers, store, repo, nil).
		WithRecorders(repo, velocity)

	return &scoringFixture{
		service:  service,
		repo:     repo,
		denyList: denyList,
		zones:    zones,
	}
}

func TestScoringFlow_CleanTransaction(t *testing.T) {
	fx := newScoringFixture(t)
	ctx := context.Background()

	verdict, err := fx.service.AnalyzeRisk(ctx, risk.PaymentContext{
		UserID:    uuid.New(),
		Amount:    42.50,
		Currency:  "USD",
		Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)

	assert.Equal(t, risk.RiskLevelLow, verdict.Level)
	assert.Less(t, verdict.Score, 30.0)
}

func TestScoringFlow_DenyListedCardIsCritical(t *testing.T) {
	fx := newScoringFixture(t)
	ctx := context.Background()

	cardData := &card.CardData{
		Number:      "4111111111111111",
		ExpiryMonth: 12,
		ExpiryYear:  2030,
		CVV:         "123",
	}

	require.NoError(t, fx.denyList.Add(ctx, &card.DenyListEntry{
		Fingerprint: cardData.Fingerprint(),
		Reason:      "confirmed fraud",
		AddedAt:     time.Now().UTC(),
	}))

	verdict, err := fx.service.AnalyzeRisk(ctx, risk.PaymentContext{
		UserID:    uuid.New(),
		Amount:    25,
		Currency:  "USD",
		CardData:  cardData,
		Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)

	assert.Equal(t, risk.RiskLevelCritical, verdict.Level)
	assert.Equal(t, 100.0, verdict.Score)
}

func TestScoringFlow_VelocityBuildsAcrossRequests(t *testing.T) {
	fx := newScoringFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	// Six rapid transactions push the user over the count limit. History
	// recording is asynchronous, so give each write a moment to land.
	for i := 0; i < 6; i++ {
		_, err := fx.service.AnalyzeRisk(ctx, risk.PaymentContext{
			UserID:    userID,
			Amount:    10,
			Currency:  "USD",
			Timestamp: time.Now().UTC(),
		})
		require.NoError(t, err)
		time.Sleep(50 * time.Millisecond)
	}

	verdict, err := fx.service.AnalyzeRisk(ctx, risk.PaymentContext{
		UserID:    userID,
		Amount:    10,
		Currency:  "USD",
		Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)

	assert.Contains(t, verdict.FactorTypes(), risk.FactorVelocity)
	assert.Greater(t, verdict.Score, 0.0)
}

func TestScoringFlow_RiskZoneFlagsGeolocation(t *testing.T) {
	fx := newScoringFixture(t)
	ctx := context.Background()

	err := fx.zones.CreateZone(ctx, &risk.RiskZone{
		ID:        uuid.New(),
		Label:     "downtown test zone",
		Latitude:  40.7580,
		Longitude: -73.9855,
		RadiusKm:  1,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	verdict, err := fx.service.AnalyzeRisk(ctx, risk.PaymentContext{
		UserID:    uuid.New(),
		Amount:    20,
		Currency:  "USD",
		Location:  &risk.Location{Latitude: 40.7580, Longitude: -73.9855},
		Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)

	assert.Contains(t, verdict.FactorTypes(), risk.FactorGeolocation)
}

func TestScoringFlow_AssessmentPersisted(t *testing.T) {
	fx := newScoringFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	verdict, err := fx.service.AnalyzeRisk(ctx, risk.PaymentContext{
		UserID:    userID,
		Amount:    15000,
		Currency:  "USD",
		Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Greater(t, verdict.Score, 30.0)

	// Reload through the repository used by the admin API
	stored, err := fx.repo.GetAssessment(ctx, verdict.ID)
	require.NoError(t, err)
	assert.Equal(t, verdict.Score, stored.Score)
	assert.Equal(t, verdict.Level, stored.Level)
	assert.Equal(t, userID, stored.UserID)
}
