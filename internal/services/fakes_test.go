package services

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"oglasnik/internal/models/db_models"
	"oglasnik/internal/repositories"
)

// In-memory fakes mirroring the conditional-update semantics of the
// real repositories, so the race-sensitive paths can be exercised
// without a database.

type fakePromotionRepo struct {
	mu         sync.Mutex
	promotions map[uuid.UUID]*db_models.ListingPromotion
	seq        int64
}

func newFakePromotionRepo() *fakePromotionRepo {
	return &fakePromotionRepo{promotions: make(map[uuid.UUID]*db_models.ListingPromotion)}
}

func (f *fakePromotionRepo) Create(ctx context.Context, p *db_models.ListingPromotion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertLocked(p)
	return nil
}

func (f *fakePromotionRepo) insertLocked(p *db_models.ListingPromotion) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	f.seq++
	if p.CreatedAt == 0 {
		p.CreatedAt = f.seq
	}
	clone := *p
	f.promotions[p.ID] = &clone
}

func (f *fakePromotionRepo) AdmitWithSlotGuard(ctx context.Context, p *db_models.ListingPromotion, maxSlots int32, durationDays int32, now int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var active int64
	for _, existing := range f.promotions {
		if existing.Category == p.Category && existing.Status == db_models.PromotionActive &&
			existing.EndsAt != nil && *existing.EndsAt > now {
			active++
		}
	}

	if active < int64(maxSlots) {
		startsAt := now
		endsAt := now + int64(durationDays)*86400
		p.Status = db_models.PromotionActive
		p.StartsAt = &startsAt
		p.EndsAt = &endsAt
	} else {
		p.Status = db_models.PromotionQueued
	}

	f.insertLocked(p)
	return nil
}

func (f *fakePromotionRepo) GetByID(ctx context.Context, id uuid.UUID) (*db_models.ListingPromotion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.promotions[id]
	if !ok {
		return nil, nil
	}
	clone := *p
	return &clone, nil
}

func (f *fakePromotionRepo) FindByPaymentIntent(ctx context.Context, paymentIntentID string) (*db_models.ListingPromotion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.promotions {
		if p.PaymentIntentID == paymentIntentID {
			clone := *p
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakePromotionRepo) ActivateQueued(ctx context.Context, id uuid.UUID, startsAt int64, endsAt int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.promotions[id]
	if !ok || p.Status != db_models.PromotionQueued {
		return false, nil
	}
	p.Status = db_models.PromotionActive
	p.StartsAt = &startsAt
	p.EndsAt = &endsAt
	return true, nil
}

func (f *fakePromotionRepo) MarkExpired(ctx context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.promotions[id]
	if !ok || p.Status != db_models.PromotionActive {
		return false, nil
	}
	p.Status = db_models.PromotionExpired
	return true, nil
}

func (f *fakePromotionRepo) Revoke(ctx context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.promotions[id]
	if !ok || (p.Status != db_models.PromotionQueued && p.Status != db_models.PromotionActive) {
		return false, nil
	}
	p.Status = db_models.PromotionRevoked
	return true, nil
}

func (f *fakePromotionRepo) ListDueActive(ctx context.Context, now int64) ([]db_models.ListingPromotion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var due []db_models.ListingPromotion
	for _, p := range f.promotions {
		if p.Status == db_models.PromotionActive && p.EndsAt != nil && *p.EndsAt <= now {
			due = append(due, *p)
		}
	}
	return due, nil
}

func (f *fakePromotionRepo) CountActiveInCategory(ctx context.Context, category string, now int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, p := range f.promotions {
		if p.Category == category && p.Status == db_models.PromotionActive &&
			p.EndsAt != nil && *p.EndsAt > now {
			count++
		}
	}
	return count, nil
}

func (f *fakePromotionRepo) ListQueuedInCategory(ctx context.Context, category string, limit int) ([]db_models.ListingPromotion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var queued []db_models.ListingPromotion
	for _, p := range f.promotions {
		if p.Category == category && p.Status == db_models.PromotionQueued {
			queued = append(queued, *p)
		}
	}
	sort.Slice(queued, func(i, j int) bool {
		if queued[i].PriorityWeight != queued[j].PriorityWeight {
			return queued[i].PriorityWeight > queued[j].PriorityWeight
		}
		return queued[i].CreatedAt < queued[j].CreatedAt
	})
	if limit > 0 && len(queued) > limit {
		queued = queued[:limit]
	}
	return queued, nil
}

func (f *fakePromotionRepo) ListQueuedCategories(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := map[string]bool{}
	var categories []string
	for _, p := range f.promotions {
		if p.Status == db_models.PromotionQueued && !seen[p.Category] {
			seen[p.Category] = true
			categories = append(categories, p.Category)
		}
	}
	sort.Strings(categories)
	return categories, nil
}

type fakeSlotLimitRepo struct {
	mu     sync.Mutex
	limits map[string]int32
}

func newFakeSlotLimitRepo() *fakeSlotLimitRepo {
	return &fakeSlotLimitRepo{limits: make(map[string]int32)}
}

func (f *fakeSlotLimitRepo) GetMaxSlots(ctx context.Context, category string) (int32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if max, ok := f.limits[category]; ok {
		return max, nil
	}
	return repositories.DefaultMaxSlots, nil
}

func (f *fakeSlotLimitRepo) ListLimits(ctx context.Context) ([]db_models.PromotionSlotLimit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var limits []db_models.PromotionSlotLimit
	for category, max := range f.limits {
		limits = append(limits, db_models.PromotionSlotLimit{Category: category, MaxSlots: max, Active: true})
	}
	return limits, nil
}

func (f *fakeSlotLimitRepo) UpsertLimit(ctx context.Context, limit *db_models.PromotionSlotLimit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limits[limit.Category] = limit.MaxSlots
	return nil
}

type fakePackageRepo struct {
	packages map[uuid.UUID]*db_models.ProductPackage
	prices   map[string]*db_models.ProductPackagePrice // key packageID+category
}

func newFakePackageRepo() *fakePackageRepo {
	return &fakePackageRepo{
		packages: make(map[uuid.UUID]*db_models.ProductPackage),
		prices:   make(map[string]*db_models.ProductPackagePrice),
	}
}

func (f *fakePackageRepo) GetPackageByID(ctx context.Context, packageID uuid.UUID) (*db_models.ProductPackage, error) {
	return f.packages[packageID], nil
}

func (f *fakePackageRepo) GetCategoryPrice(ctx context.Context, packageID uuid.UUID, category string) (*db_models.ProductPackagePrice, error) {
	return f.prices[packageID.String()+"/"+category], nil
}

type fakeAdRepo struct {
	ads map[uuid.UUID]*db_models.Ad
}

func newFakeAdRepo() *fakeAdRepo {
	return &fakeAdRepo{ads: make(map[uuid.UUID]*db_models.Ad)}
}

func (f *fakeAdRepo) GetListingByID(ctx context.Context, listingID uuid.UUID) (*db_models.Ad, error) {
	return f.ads[listingID], nil
}

type fakeUserFlagRepo struct {
	mu    sync.Mutex
	flags map[uuid.UUID]*db_models.UserPromotionFlag
}

func newFakeUserFlagRepo() *fakeUserFlagRepo {
	return &fakeUserFlagRepo{flags: make(map[uuid.UUID]*db_models.UserPromotionFlag)}
}

func (f *fakeUserFlagRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*db_models.UserPromotionFlag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	flag, ok := f.flags[userID]
	if !ok {
		return nil, nil
	}
	clone := *flag
	return &clone, nil
}

func (f *fakeUserFlagRepo) RecordRefund(ctx context.Context, userID uuid.UUID, now int64, blockThreshold int32) (*db_models.UserPromotionFlag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	flag, ok := f.flags[userID]
	if !ok {
		flag = &db_models.UserPromotionFlag{UserID: userID}
		f.flags[userID] = flag
	}
	flag.RefundCount30d++
	flag.LastRefundAt = &now
	if flag.RefundCount30d >= blockThreshold {
		flag.IsBlocked = true
	}
	clone := *flag
	return &clone, nil
}

func (f *fakeUserFlagRepo) SetDisputeActive(ctx context.Context, userID uuid.UUID, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	flag, ok := f.flags[userID]
	if !ok {
		flag = &db_models.UserPromotionFlag{UserID: userID}
		f.flags[userID] = flag
	}
	flag.ActiveDispute = active
	return nil
}

func (f *fakeUserFlagRepo) UnblockCooledDown(ctx context.Context, cutoff int64) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var unblocked []uuid.UUID
	for _, flag := range f.flags {
		if flag.IsBlocked && !flag.ActiveDispute && flag.LastRefundAt != nil && *flag.LastRefundAt < cutoff {
			flag.IsBlocked = false
			flag.RefundCount30d = 0
			unblocked = append(unblocked, flag.UserID)
		}
	}
	return unblocked, nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []db_models.AuditLogEntry
}

func newFakeAuditRepo() *fakeAuditRepo {
	return &fakeAuditRepo{}
}

func (f *fakeAuditRepo) Append(ctx context.Context, entry *db_models.AuditLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAuditRepo) AppendAll(ctx context.Context, entries []db_models.AuditLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entries...)
	return nil
}

func (f *fakeAuditRepo) countByType(eventType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, entry := range f.entries {
		if entry.EventType == eventType {
			count++
		}
	}
	return count
}

type fakePromoCodeRepo struct {
	mu          sync.Mutex
	codes       map[string]*db_models.PromoCode
	redemptions []db_models.PromoCodeRedemption
}

func newFakePromoCodeRepo() *fakePromoCodeRepo {
	return &fakePromoCodeRepo{codes: make(map[string]*db_models.PromoCode)}
}

func (f *fakePromoCodeRepo) GetActiveByCode(ctx context.Context, code string, now int64) (*db_models.PromoCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	promo, ok := f.codes[code]
	if !ok || !promo.Active || promo.StartsAt > now {
		return nil, nil
	}
	if promo.EndsAt != nil && *promo.EndsAt <= now {
		return nil, nil
	}
	clone := *promo
	return &clone, nil
}

func (f *fakePromoCodeRepo) CountUserRedemptions(ctx context.Context, code string, userID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, r := range f.redemptions {
		if r.Code == code && r.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (f *fakePromoCodeRepo) RedeemAtomically(ctx context.Context, code string, userID uuid.UUID, listingID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	promo, ok := f.codes[code]
	if !ok {
		return false, nil
	}
	if promo.MaxUses != nil && promo.UsedCount >= *promo.MaxUses {
		return false, nil
	}
	promo.UsedCount++
	f.redemptions = append(f.redemptions, db_models.PromoCodeRedemption{
		Code: code, UserID: userID, ListingID: listingID,
	})
	return true, nil
}

func (f *fakePromoCodeRepo) ListCodes(ctx context.Context) ([]db_models.PromoCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var codes []db_models.PromoCode
	for _, promo := range f.codes {
		codes = append(codes, *promo)
	}
	return codes, nil
}

func (f *fakePromoCodeRepo) UpsertCode(ctx context.Context, promo *db_models.PromoCode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.codes[promo.Code]; ok {
		promo.UsedCount = existing.UsedCount
	}
	clone := *promo
	f.codes[promo.Code] = &clone
	return nil
}

type fakeReferralRepo struct {
	mu           sync.Mutex
	partners     map[string]*db_models.ReferralPartner
	attributions map[string]*db_models.ReferralAttribution
	keys         map[uuid.UUID]*db_models.PartnerAPIKey
	payoutRows   []repositories.PartnerPayoutRow
	partnerErr   error
}

func newFakeReferralRepo() *fakeReferralRepo {
	return &fakeReferralRepo{
		partners:     make(map[string]*db_models.ReferralPartner),
		attributions: make(map[string]*db_models.ReferralAttribution),
		keys:         make(map[uuid.UUID]*db_models.PartnerAPIKey),
	}
}

func (f *fakeReferralRepo) GetActivePartner(ctx context.Context, code string) (*db_models.ReferralPartner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.partnerErr != nil {
		return nil, f.partnerErr
	}
	partner, ok := f.partners[code]
	if !ok || !partner.Active {
		return nil, nil
	}
	clone := *partner
	return &clone, nil
}

func (f *fakeReferralRepo) UpsertAttribution(ctx context.Context, attribution *db_models.ReferralAttribution) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *attribution
	f.attributions[attribution.CheckoutSessionID] = &clone
	return nil
}

func (f *fakeReferralRepo) CreatePartnerKey(ctx context.Context, key *db_models.PartnerAPIKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if key.ID == uuid.Nil {
		key.ID = uuid.New()
	}
	clone := *key
	f.keys[key.ID] = &clone
	return nil
}

func (f *fakeReferralRepo) RevokePartnerKey(ctx context.Context, keyID uuid.UUID, now int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key, ok := f.keys[keyID]
	if !ok || key.RevokedAt != nil {
		return false, nil
	}
	key.RevokedAt = &now
	return true, nil
}

func (f *fakeReferralRepo) ListActiveKeys(ctx context.Context) ([]db_models.PartnerAPIKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []db_models.PartnerAPIKey
	for _, key := range f.keys {
		if key.RevokedAt == nil {
			keys = append(keys, *key)
		}
	}
	return keys, nil
}

func (f *fakeReferralRepo) PartnerPayouts(ctx context.Context, from int64, to int64) ([]repositories.PartnerPayoutRow, error) {
	return f.payoutRows, nil
}

func (f *fakeReferralRepo) ListPartnerAttributions(ctx context.Context, partnerCode string, from int64, to int64, limit int, offset int) ([]db_models.ReferralAttribution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []db_models.ReferralAttribution
	for _, attribution := range f.attributions {
		if attribution.IsSelfReferral || attribution.PartnerCode == nil || *attribution.PartnerCode != partnerCode {
			continue
		}
		if attribution.CreatedAt < from || attribution.CreatedAt >= to {
			continue
		}
		matched = append(matched, *attribution)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt > matched[j].CreatedAt })
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

type fakeEventRepo struct {
	mu       sync.Mutex
	seen     map[string]bool
	released []string
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{seen: make(map[string]bool)}
}

func (f *fakeEventRepo) RecordEvent(ctx context.Context, eventID string, eventType string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen[eventID] {
		return false, nil
	}
	f.seen[eventID] = true
	return true, nil
}

func (f *fakeEventRepo) ReleaseEvent(ctx context.Context, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.seen, eventID)
	f.released = append(f.released, eventID)
	return nil
}
