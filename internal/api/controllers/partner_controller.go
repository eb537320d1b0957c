package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"oglasnik/internal/services"
	"oglasnik/pkg/utils"
)

type PartnerController struct {
	referralService services.ReferralService
}

func NewPartnerController(referralService services.ReferralService) *PartnerController {
	return &PartnerController{
		referralService: referralService,
	}
}

// GetMetrics godoc
// @Summary Referral metrics for the authenticated partner
// @Description Payout summary and paginated conversions over a unix-seconds range, defaulting to the trailing 30 days
// @Tags Partners
// @Produce json
// @Param X-Partner-Key header string true "Partner API key"
// @Success 200 {object} utils.APIResponse
// @Router /partner/metrics [get]
func (p *PartnerController) GetMetrics(c *gin.Context) {
	rawKey := c.GetHeader("X-Partner-Key")
	if rawKey == "" {
		utils.RespondError(c, http.StatusUnauthorized, "X-Partner-Key header missing")
		return
	}

	partnerCode, err := p.referralService.AuthenticateKey(c.Request.Context(), rawKey)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	if partnerCode == "" {
		utils.RespondError(c, http.StatusUnauthorized, "Invalid or revoked partner key")
		return
	}

	now := time.Now().Unix()
	from := parseUnixParam(c.Query("date_from"), now-30*86400)
	to := parseUnixParam(c.Query("date_to"), now)
	limit := parseIntParam(c.Query("limit"), 50)
	offset := parseIntParam(c.Query("offset"), 0)

	metrics, err := p.referralService.PartnerMetrics(c.Request.Context(), partnerCode, from, to, limit, offset)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, metrics, "")
}

func parseIntParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
