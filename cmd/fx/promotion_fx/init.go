package promotion_fx

import (
	"go.uber.org/fx"

	"oglasnik/internal/api/controllers"
	"oglasnik/internal/repositories"
	"oglasnik/internal/services"
)

var Module = fx.Provide(
	repositories.NewPromotionRepository,
	repositories.NewSlotLimitRepository,
	repositories.NewPackageRepository,
	repositories.NewAdRepository,
	repositories.NewUserFlagRepository,
	repositories.NewAuditRepository,
	services.NewPromotionService,
	controllers.NewPromotionController,
)
