package payment_fx

import (
	"os"
	"strconv"

	"go.uber.org/fx"

	"oglasnik/internal/api/controllers"
	"oglasnik/internal/repositories"
	"oglasnik/internal/services"
)

var Module = fx.Provide(
	repositories.NewPaymentEventRepository,
	provideEventConfig,
	services.NewPaymentEventService,
	controllers.NewPaymentController,
)

func provideEventConfig() services.PaymentEventConfig {
	threshold := int64(3)
	if raw := os.Getenv("REFUND_BLOCK_THRESHOLD"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 32); err == nil && parsed > 0 {
			threshold = parsed
		}
	}
	return services.PaymentEventConfig{RefundBlockThreshold: int32(threshold)}
}
