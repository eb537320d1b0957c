package response_models

type PromotionCheckoutResponse struct {
	// PredictedStatus is "active" when the category currently has a free
	// slot, "queued" otherwise. The binding decision is made by the
	// payment webhook under the category lock, after the payment settles.
	PredictedStatus string `json:"predicted_status"`

	StripePriceID     string `json:"stripe_price_id"`
	AppliedPromoCode  string `json:"applied_promo_code,omitempty"`
	PromoRejectReason string `json:"promo_reject_reason,omitempty"`
	ReferralCode      string `json:"referral_code,omitempty"`
}

type SweepResultResponse struct {
	ExpiredCount   int `json:"expired_count"`
	ActivatedCount int `json:"activated_count"`
	UnblockedCount int `json:"unblocked_count"`
}
