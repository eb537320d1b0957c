package response_models

type PartnerKeyResponse struct {
	ID          string `json:"id"`
	PartnerCode string `json:"partner_code"`
	// RawKey is returned exactly once, at creation.
	RawKey    string `json:"raw_key,omitempty"`
	CreatedAt int64  `json:"created_at"`
	Warning   string `json:"warning,omitempty"`
}

type PartnerPayoutResponse struct {
	PartnerCode      string  `json:"partner_code"`
	PayoutPercent    float64 `json:"payout_percent"`
	AttributionCount int64   `json:"attribution_count"`
	GrossMinor       int64   `json:"gross_minor"`
	PayoutMinor      int64   `json:"payout_minor"`
}

type PartnerPayoutReportResponse struct {
	From    int64                   `json:"from"`
	To      int64                   `json:"to"`
	Payouts []PartnerPayoutResponse `json:"payouts"`
}

type PartnerConversionResponse struct {
	ListingID   string `json:"listing_id"`
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
	CreatedAt   int64  `json:"created_at"`
}

// PartnerMetricsResponse is the partner-facing view of their own
// referrals: payout summary plus a page of conversions. Self-referrals
// are excluded from both.
type PartnerMetricsResponse struct {
	PartnerCode      string                      `json:"partner_code"`
	From             int64                       `json:"from"`
	To               int64                       `json:"to"`
	AttributionCount int64                       `json:"attribution_count"`
	GrossMinor       int64                       `json:"gross_minor"`
	PayoutPercent    float64                     `json:"payout_percent"`
	PayoutMinor      int64                       `json:"payout_minor"`
	Conversions      []PartnerConversionResponse `json:"conversions"`
}
