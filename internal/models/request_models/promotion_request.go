package request_models

type CreatePromotionCheckoutRequest struct {
	ListingID    string `json:"listing_id" binding:"required"`
	PackageID    string `json:"package_id" binding:"required"`
	PromoCode    string `json:"promo_code"`
	ReferralCode string `json:"referral_code"`

	UTMSource   string `json:"utm_source"`
	UTMMedium   string `json:"utm_medium"`
	UTMCampaign string `json:"utm_campaign"`
	UTMContent  string `json:"utm_content"`
	UTMTerm     string `json:"utm_term"`
}
