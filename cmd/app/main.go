package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/fx"

	"oglasnik/cmd/fx/controllers_fx"
	"oglasnik/cmd/fx/db_fx"
	"oglasnik/cmd/fx/payment_fx"
	"oglasnik/cmd/fx/promo_fx"
	"oglasnik/cmd/fx/promotion_fx"
	"oglasnik/cmd/fx/referral_fx"
	"oglasnik/internal/api/controllers"
	"oglasnik/internal/services"
	mem "oglasnik/pkg/memcache"
	"oglasnik/pkg/middleware"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment")
	}

	app := fx.New(
		db_fx.Module,
		promo_fx.Module,
		referral_fx.Module,
		promotion_fx.Module,
		payment_fx.Module,
		controllers_fx.Module,

		fx.Provide(ProvideRouter),
		fx.Invoke(StartServer),
		fx.Invoke(StartSweepScheduler),
	)

	app.Run()
}

func StartServer(lc fx.Lifecycle, engine *gin.Engine) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Println("Starting HTTP server at ${PORT}")
				if err := engine.Run(":" + os.Getenv("PORT")); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Println("Stopping HTTP server")
			return nil
		},
	})
}

// StartSweepScheduler runs the expiry sweep on a fixed interval for the
// lifetime of the process. An external scheduler can additionally hit
// POST /internal/sweep; both paths are safe to overlap because every
// transition is state-guarded.
func StartSweepScheduler(lc fx.Lifecycle, promotionService services.PromotionService) {
	interval := 60 * time.Second
	if raw := os.Getenv("SWEEP_INTERVAL_SECONDS"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			interval = time.Duration(parsed) * time.Second
		}
	}

	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					select {
					case <-done:
						return
					case <-ticker.C:
						result, err := promotionService.RunExpirySweep(context.Background())
						if err != nil {
							log.Printf("sweep: cycle failed: %v", err)
							continue
						}
						if result.ExpiredCount > 0 || result.ActivatedCount > 0 || result.UnblockedCount > 0 {
							log.Printf("sweep: expired=%d activated=%d unblocked=%d",
								result.ExpiredCount, result.ActivatedCount, result.UnblockedCount)
						}
					}
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(done)
			return nil
		},
	})
}

func ProvideRouter(
	promotionController *controllers.PromotionController,
	paymentController *controllers.PaymentController,
	adminController *controllers.AdminController,
	partnerController *controllers.PartnerController) *gin.Engine {

	r := gin.Default()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(middleware.TraceIDMiddleware())
	r.Use(middleware.CORSMiddleware())

	RegisterRoutes(r, promotionController, paymentController, adminController, partnerController)

	return r
}

func RegisterRoutes(r *gin.Engine,
	promotionController *controllers.PromotionController,
	paymentController *controllers.PaymentController,
	adminController *controllers.AdminController,
	partnerController *controllers.PartnerController) {

	checkoutLimiter := middleware.RateLimitMiddleware(mem.NewRateWindows(), 10, time.Minute)
	partnerLimiter := middleware.RateLimitMiddleware(mem.NewRateWindows(), 30, time.Minute)

	promotions := r.Group("/promotions")
	promotions.POST("/checkout",
		middleware.JWTAuthMiddleware(), checkoutLimiter, promotionController.CreateCheckout)

	r.POST("/webhooks/stripe", paymentController.HandleWebhook)
	r.POST("/internal/sweep", promotionController.RunSweep)

	partner := r.Group("/partner")
	partner.GET("/metrics", partnerLimiter, partnerController.GetMetrics)

	admin := r.Group("/admin",
		middleware.JWTAuthMiddleware(), middleware.RoleMiddleware("admin"))
	admin.GET("/promo-codes", adminController.ListPromoCodes)
	admin.POST("/promo-codes", adminController.UpsertPromoCode)
	admin.GET("/slot-limits", adminController.ListSlotLimits)
	admin.POST("/slot-limits", adminController.UpsertSlotLimit)
	admin.POST("/partner-keys", adminController.CreatePartnerKey)
	admin.POST("/partner-keys/revoke", adminController.RevokePartnerKey)
	admin.GET("/payouts", adminController.GetPayouts)
	admin.POST("/promotions/:id/revoke", promotionController.Revoke)
}
