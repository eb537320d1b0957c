package referral_fx

import (
	"go.uber.org/fx"

	"oglasnik/internal/api/controllers"
	"oglasnik/internal/repositories"
	"oglasnik/internal/services"
)

var Module = fx.Provide(
	repositories.NewReferralRepository,
	services.NewReferralService,
	controllers.NewPartnerController,
)
