package db_models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPromotionStatusTransitions(t *testing.T) {
	statuses := []PromotionStatus{PromotionQueued, PromotionActive, PromotionExpired, PromotionRevoked}

	allowed := map[PromotionStatus]map[PromotionStatus]bool{
		PromotionQueued: {PromotionActive: true, PromotionRevoked: true},
		PromotionActive: {PromotionExpired: true, PromotionRevoked: true},
	}

	for _, from := range statuses {
		for _, to := range statuses {
			assert.Equal(t, allowed[from][to], from.CanTransitionTo(to),
				"transition %s -> %s", from, to)
		}
	}
}

func TestPromotionStatusTerminal(t *testing.T) {
	assert.False(t, PromotionQueued.IsTerminal())
	assert.False(t, PromotionActive.IsTerminal())
	assert.True(t, PromotionExpired.IsTerminal())
	assert.True(t, PromotionRevoked.IsTerminal())
}
