package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oglasnik/internal/models/db_models"
	"oglasnik/internal/models/request_models"
	"oglasnik/pkg/utils"
)

func int32ptr(v int32) *int32 { return &v }
func strptr(v string) *string { return &v }

func seedPromo(repo *fakePromoCodeRepo, promo db_models.PromoCode) {
	clone := promo
	repo.codes[promo.Code] = &clone
}

func TestRedeemUnknownCode(t *testing.T) {
	repo := newFakePromoCodeRepo()
	svc := NewPromoCodeService(repo)

	result, err := svc.Redeem(context.Background(), "NOPE", uuid.New(), uuid.New(), "automobili", uuid.New(), time.Now())
	require.NoError(t, err)
	assert.False(t, result.Applied)
	assert.Equal(t, utils.ReasonCodeNotFound, result.RejectReason)
}

func TestRedeemExpiredCodeRejected(t *testing.T) {
	repo := newFakePromoCodeRepo()
	past := time.Now().Add(-time.Hour).Unix()
	seedPromo(repo, db_models.PromoCode{Code: "OLD", Active: true, StartsAt: past - 3600, EndsAt: &past})
	svc := NewPromoCodeService(repo)

	result, err := svc.Redeem(context.Background(), "OLD", uuid.New(), uuid.New(), "automobili", uuid.New(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, utils.ReasonCodeNotFound, result.RejectReason)
}

func TestRedeemNormalizesCode(t *testing.T) {
	repo := newFakePromoCodeRepo()
	seedPromo(repo, db_models.PromoCode{Code: "SUMMER10", Active: true, StartsAt: 1})
	svc := NewPromoCodeService(repo)

	result, err := svc.Redeem(context.Background(), "  summer10 ", uuid.New(), uuid.New(), "automobili", uuid.New(), time.Now())
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Equal(t, "SUMMER10", result.Code)
}

func TestRedeemGlobalLimitReached(t *testing.T) {
	repo := newFakePromoCodeRepo()
	seedPromo(repo, db_models.PromoCode{Code: "FULL", Active: true, StartsAt: 1, MaxUses: int32ptr(5), UsedCount: 5})
	svc := NewPromoCodeService(repo)

	result, err := svc.Redeem(context.Background(), "FULL", uuid.New(), uuid.New(), "automobili", uuid.New(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, utils.ReasonGlobalLimitReached, result.RejectReason)
}

func TestRedeemSegmentation(t *testing.T) {
	carsOnly := uuid.New()
	repo := newFakePromoCodeRepo()
	seedPromo(repo, db_models.PromoCode{
		Code:              "CARS",
		Active:            true,
		StartsAt:          1,
		AllowedCategories: pq.StringArray{"automobili"},
		AllowedPackages:   pq.StringArray{carsOnly.String()},
	})
	svc := NewPromoCodeService(repo)
	ctx := context.Background()

	result, err := svc.Redeem(ctx, "CARS", uuid.New(), uuid.New(), "nekretnine", carsOnly, time.Now())
	require.NoError(t, err)
	assert.Equal(t, utils.ReasonCategoryNotAllowed, result.RejectReason)

	result, err = svc.Redeem(ctx, "CARS", uuid.New(), uuid.New(), "automobili", uuid.New(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, utils.ReasonPackageNotAllowed, result.RejectReason)

	result, err = svc.Redeem(ctx, "CARS", uuid.New(), uuid.New(), "automobili", carsOnly, time.Now())
	require.NoError(t, err)
	assert.True(t, result.Applied)
}

func TestRedeemPerUserLimit(t *testing.T) {
	repo := newFakePromoCodeRepo()
	seedPromo(repo, db_models.PromoCode{Code: "ONCE", Active: true, StartsAt: 1, MaxUsesPerUser: int32ptr(1)})
	svc := NewPromoCodeService(repo)
	ctx := context.Background()
	userID := uuid.New()

	result, err := svc.Redeem(ctx, "ONCE", userID, uuid.New(), "automobili", uuid.New(), time.Now())
	require.NoError(t, err)
	assert.True(t, result.Applied)

	result, err = svc.Redeem(ctx, "ONCE", userID, uuid.New(), "automobili", uuid.New(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, utils.ReasonUserLimitReached, result.RejectReason)

	// A different user is still within their own limit.
	result, err = svc.Redeem(ctx, "ONCE", uuid.New(), uuid.New(), "automobili", uuid.New(), time.Now())
	require.NoError(t, err)
	assert.True(t, result.Applied)
}

func TestRedeemAppliesOverridePrice(t *testing.T) {
	repo := newFakePromoCodeRepo()
	seedPromo(repo, db_models.PromoCode{Code: "DISC", Active: true, StartsAt: 1, OverrideStripePriceID: strptr("price_discounted")})
	svc := NewPromoCodeService(repo)

	result, err := svc.Redeem(context.Background(), "DISC", uuid.New(), uuid.New(), "automobili", uuid.New(), time.Now())
	require.NoError(t, err)
	require.True(t, result.Applied)
	require.NotNil(t, result.OverrideStripePriceID)
	assert.Equal(t, "price_discounted", *result.OverrideStripePriceID)
}

// Eight buyers race for the single remaining use. Exactly one redemption
// may land; the rest must come back rejected, never over-applied.
func TestRedeemLastUseUnderContention(t *testing.T) {
	repo := newFakePromoCodeRepo()
	seedPromo(repo, db_models.PromoCode{Code: "LAST1", Active: true, StartsAt: 1, MaxUses: int32ptr(1)})
	svc := NewPromoCodeService(repo)

	const racers = 8
	results := make([]*RedeemResult, racers)
	errs := make([]error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Redeem(context.Background(), "LAST1", uuid.New(), uuid.New(), "automobili", uuid.New(), time.Now())
		}(i)
	}
	wg.Wait()

	applied := 0
	for i, result := range results {
		require.NoError(t, errs[i])
		if result.Applied {
			applied++
			continue
		}
		// Losers that read before the winner wrote see the race reason;
		// later readers see the limit as already exhausted.
		assert.Contains(t, []string{utils.ReasonRaceConditionLimit, utils.ReasonGlobalLimitReached}, result.RejectReason)
	}
	assert.Equal(t, 1, applied)
	assert.EqualValues(t, 1, repo.codes["LAST1"].UsedCount)
	assert.Len(t, repo.redemptions, 1)
}

func TestUpsertCodeNormalizesAndDefaultsStart(t *testing.T) {
	repo := newFakePromoCodeRepo()
	svc := NewPromoCodeService(repo)

	promo, err := svc.UpsertCode(context.Background(), &request_models.UpsertPromoCodeRequest{
		Code:   "  spring20 ",
		Active: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "SPRING20", promo.Code)
	assert.NotZero(t, promo.StartsAt)
}
