package controllers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"oglasnik/internal/services"
	"oglasnik/pkg/utils"
)

type PaymentController struct {
	eventService services.PaymentEventService
}

func NewPaymentController(eventService services.PaymentEventService) *PaymentController {
	return &PaymentController{
		eventService: eventService,
	}
}

// HandleWebhook verifies the Stripe signature, maps the payload onto a
// ProviderEvent and hands it to the event processor. A retryable
// processing failure answers 500 so Stripe redelivers; everything else
// is acknowledged with 200.
func (p *PaymentController) HandleWebhook(c *gin.Context) {
	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.Printf("webhook: error reading request body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	event, err := webhook.ConstructEvent(rawBody, c.GetHeader("Stripe-Signature"), os.Getenv("STRIPE_WEBHOOK_SECRET"))
	if err != nil {
		log.Printf("webhook: signature verification failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid webhook signature"})
		return
	}

	providerEvent, err := mapStripeEvent(&event)
	if err != nil {
		log.Printf("webhook: error parsing event %s payload: %v", event.ID, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid webhook payload"})
		return
	}

	if err := p.eventService.HandleEvent(c.Request.Context(), providerEvent); err != nil {
		if utils.IsRetryable(err) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		utils.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func mapStripeEvent(event *stripe.Event) (*services.ProviderEvent, error) {
	providerEvent := &services.ProviderEvent{
		ID:       event.ID,
		Type:     string(event.Type),
		Metadata: map[string]string{},
	}

	switch string(event.Type) {
	case services.EventCheckoutCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, err
		}
		providerEvent.CheckoutSessionID = session.ID
		providerEvent.AmountTotal = session.AmountTotal
		providerEvent.Currency = string(session.Currency)
		if session.Metadata != nil {
			providerEvent.Metadata = session.Metadata
		}
		if session.PaymentIntent != nil {
			providerEvent.PaymentIntentID = session.PaymentIntent.ID
		}
		if session.CustomerDetails != nil {
			providerEvent.CustomerEmail = session.CustomerDetails.Email
		}

	case services.EventChargeRefunded:
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			return nil, err
		}
		providerEvent.AmountTotal = charge.AmountRefunded
		providerEvent.Currency = string(charge.Currency)
		if charge.Metadata != nil {
			providerEvent.Metadata = charge.Metadata
		}
		if charge.PaymentIntent != nil {
			providerEvent.PaymentIntentID = charge.PaymentIntent.ID
		}

	case services.EventDisputeCreated, services.EventDisputeClosed:
		var dispute stripe.Dispute
		if err := json.Unmarshal(event.Data.Raw, &dispute); err != nil {
			return nil, err
		}
		providerEvent.AmountTotal = dispute.Amount
		providerEvent.Currency = string(dispute.Currency)
		if dispute.PaymentIntent != nil {
			providerEvent.PaymentIntentID = dispute.PaymentIntent.ID
		}
	}

	return providerEvent, nil
}
