package mailer

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osteria-app/osteria-backend/pkg/config"
	"github.com/osteria-app/osteria-backend/pkg/logger"
	"github.com/osteria-app/osteria-backend/pkg/types"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
}

func TestNewDispatcherFallsBackToNoop(t *testing.T) {
	d, err := NewDispatcher(config.SMTPConfig{}, testLogger())
	require.NoError(t, err)

	// The no-op dispatcher swallows sends without error.
	require.NoError(t, d.SendOrderConfirmation(context.Background(), OrderConfirmation{To: "a@b.c"}))
	require.NoError(t, d.SendGiftCode(context.Background(), GiftDelivery{To: "a@b.c"}))
}

func TestNewDispatcherRequiresLogger(t *testing.T) {
	_, err := NewDispatcher(config.SMTPConfig{}, nil)
	require.Error(t, err)
}

func TestOrderConfirmationBody(t *testing.T) {
	body := orderConfirmationBody(OrderConfirmation{
		To:      "buyer@example.com",
		OrderID: "ord-1",
		Lines: []types.CartLine{
			{Name: "Margherita", Quantity: 2, UnitAmount: 950},
		},
		CouponCode:    "SAVE10",
		DiscountCents: 190,
		TotalCents:    1710,
	})
	assert.True(t, strings.Contains(body, "2x Margherita"))
	assert.True(t, strings.Contains(body, "€19.00"))
	assert.True(t, strings.Contains(body, "SAVE10"))
	assert.True(t, strings.Contains(body, "€17.10"))
	assert.True(t, strings.Contains(body, "ord-1"))
}

func TestGiftDeliveryBody(t *testing.T) {
	body := giftDeliveryBody(GiftDelivery{Code: "GC-ABCDEF", ValueCents: 5500})
	assert.True(t, strings.Contains(body, "GC-ABCDEF"))
	assert.True(t, strings.Contains(body, "€55.00"))
}
