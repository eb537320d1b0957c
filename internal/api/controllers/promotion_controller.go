package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"oglasnik/internal/models/request_models"
	"oglasnik/internal/services"
	"oglasnik/pkg/utils"
)

type PromotionController struct {
	promotionService services.PromotionService
}

func NewPromotionController(promotionService services.PromotionService) *PromotionController {
	return &PromotionController{
		promotionService: promotionService,
	}
}

// CreateCheckout godoc
// @Summary Purchase a promotion for one of the caller's listings
// @Description Validates promo/referral codes and resolves the checkout price; the promotion itself is admitted by the payment webhook once the payment settles
// @Tags Promotions
// @Accept json
// @Produce json
// @Param request body request_models.CreatePromotionCheckoutRequest true "Create Promotion Request"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /promotions/checkout [post]
func (p *PromotionController) CreateCheckout(c *gin.Context) {
	var request request_models.CreatePromotionCheckoutRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	userIDRaw := c.GetString("user_id")
	if userIDRaw == "" {
		utils.RespondError(c, http.StatusBadRequest, "user_id is required")
		return
	}
	userID, err := uuid.Parse(userIDRaw)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "invalid user_id")
		return
	}

	response, err := p.promotionService.RequestPromotion(c.Request.Context(), userID, c.GetString("email"), &request)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, response, "Promotion request accepted")
}

// RunSweep triggers one expiry sweep cycle. Intended for an operational
// scheduler; the same cycle also runs on the in-process ticker.
func (p *PromotionController) RunSweep(c *gin.Context) {
	result, err := p.promotionService.RunExpirySweep(c.Request.Context())
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, result, "Sweep completed")
}

func (p *PromotionController) Revoke(c *gin.Context) {
	promotionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "invalid promotion id")
		return
	}

	if err := p.promotionService.Revoke(c.Request.Context(), promotionID); err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, gin.H{"promotion_id": promotionID.String()}, "Promotion revoked")
}
