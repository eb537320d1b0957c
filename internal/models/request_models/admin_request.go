package request_models

type UpsertPromoCodeRequest struct {
	Code           string `json:"code" binding:"required"`
	Active         bool   `json:"active"`
	StartsAt       int64  `json:"starts_at"`
	EndsAt         *int64 `json:"ends_at"`
	MaxUses        *int32 `json:"max_uses"`
	MaxUsesPerUser *int32 `json:"max_uses_per_user"`

	AllowedCategories []string `json:"allowed_categories"`
	AllowedPackages   []string `json:"allowed_packages"`

	OverrideStripePriceID *string `json:"override_stripe_price_id"`
}

type UpsertSlotLimitRequest struct {
	Category string `json:"category" binding:"required"`
	MaxSlots int32  `json:"max_slots" binding:"required"`
	Active   bool   `json:"active"`
}

type CreatePartnerKeyRequest struct {
	PartnerCode string `json:"partner_code" binding:"required"`
}

type RevokePartnerKeyRequest struct {
	KeyID string `json:"key_id" binding:"required"`
}
