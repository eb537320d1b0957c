package promo_fx

import (
	"go.uber.org/fx"

	"oglasnik/internal/repositories"
	"oglasnik/internal/services"
)

var Module = fx.Provide(
	repositories.NewPromoCodeRepository,
	services.NewPromoCodeService,
)
