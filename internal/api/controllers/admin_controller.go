package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"oglasnik/internal/models/request_models"
	"oglasnik/internal/services"
	"oglasnik/pkg/utils"
)

type AdminController struct {
	promoService     services.PromoCodeService
	referralService  services.ReferralService
	promotionService services.PromotionService
}

func NewAdminController(
	promoService services.PromoCodeService,
	referralService services.ReferralService,
	promotionService services.PromotionService,
) *AdminController {
	return &AdminController{
		promoService:     promoService,
		referralService:  referralService,
		promotionService: promotionService,
	}
}

func (a *AdminController) ListPromoCodes(c *gin.Context) {
	codes, err := a.promoService.ListCodes(c.Request.Context())
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, codes, "")
}

func (a *AdminController) UpsertPromoCode(c *gin.Context) {
	var request request_models.UpsertPromoCodeRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	promo, err := a.promoService.UpsertCode(c.Request.Context(), &request)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, promo, "Promo code saved")
}

func (a *AdminController) ListSlotLimits(c *gin.Context) {
	limits, err := a.promotionService.ListSlotLimits(c.Request.Context())
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, limits, "")
}

func (a *AdminController) UpsertSlotLimit(c *gin.Context) {
	var request request_models.UpsertSlotLimitRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	limit, err := a.promotionService.UpsertSlotLimit(c.Request.Context(), &request)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, limit, "Slot limit saved")
}

func (a *AdminController) CreatePartnerKey(c *gin.Context) {
	var request request_models.CreatePartnerKeyRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	key, err := a.referralService.CreatePartnerKey(c.Request.Context(), request.PartnerCode)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, key, "Partner key created")
}

func (a *AdminController) RevokePartnerKey(c *gin.Context) {
	var request request_models.RevokePartnerKeyRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	keyID, err := uuid.Parse(request.KeyID)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "invalid key_id")
		return
	}

	revoked, err := a.referralService.RevokePartnerKey(c.Request.Context(), keyID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	if !revoked {
		utils.RespondError(c, http.StatusNotFound, "Key not found or already revoked")
		return
	}
	utils.RespondSuccess(c, gin.H{"key_id": request.KeyID}, "Partner key revoked")
}

// GetPayouts reports per-partner referral payouts over a unix-seconds
// range, defaulting to the trailing 30 days.
func (a *AdminController) GetPayouts(c *gin.Context) {
	now := time.Now().Unix()
	from := parseUnixParam(c.Query("date_from"), now-30*86400)
	to := parseUnixParam(c.Query("date_to"), now)

	report, err := a.referralService.PartnerPayouts(c.Request.Context(), from, to)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, report, "")
}

func parseUnixParam(raw string, fallback int64) int64 {
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return value
}
