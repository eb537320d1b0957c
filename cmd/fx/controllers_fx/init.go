package controllers_fx

import (
	"go.uber.org/fx"

	"oglasnik/internal/api/controllers"
)

var Module = fx.Options(
	fx.Provide(controllers.NewAdminController))
