package mailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	gomail "gopkg.in/gomail.v2"

	"github.com/osteria-app/osteria-backend/pkg/config"
	"github.com/osteria-app/osteria-backend/pkg/logger"
	"github.com/osteria-app/osteria-backend/pkg/types"
)

// OrderConfirmation is the payload for the post-payment confirmation mail.
type OrderConfirmation struct {
	To            string
	OrderID       string
	TotalCents    int64
	Lines         []types.CartLine
	CouponCode    string
	DiscountCents int64
}

// GiftDelivery carries a freshly minted gift code to its buyer.
type GiftDelivery struct {
	To         string
	Code       string
	ValueCents int64
}

// Dispatcher sends transactional mail. Implementations must be safe to call
// after a finalized order commits; failures are the caller's to log and drop.
type Dispatcher interface {
	SendOrderConfirmation(ctx context.Context, msg OrderConfirmation) error
	SendGiftCode(ctx context.Context, msg GiftDelivery) error
}

type smtpDispatcher struct {
	dialer *gomail.Dialer
	from   string
	logger *logger.Logger
}

// NewDispatcher returns an SMTP-backed dispatcher, or a logging no-op when
// SMTP credentials are absent so local environments work without a relay.
func NewDispatcher(cfg config.SMTPConfig, logg *logger.Logger) (Dispatcher, error) {
	if logg == nil {
		return nil, fmt.Errorf("mailer logger required")
	}
	if !cfg.Configured() {
		logg.Warn(context.Background(), "smtp not configured, outbound mail disabled")
		return &noopDispatcher{logger: logg}, nil
	}
	return &smtpDispatcher{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		logger: logg,
	}, nil
}

func (d *smtpDispatcher) SendOrderConfirmation(ctx context.Context, msg OrderConfirmation) error {
	if msg.To == "" {
		return fmt.Errorf("recipient required")
	}
	m := gomail.NewMessage()
	m.SetHeader("From", d.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", fmt.Sprintf("Order confirmation %s", msg.OrderID))
	m.SetBody("text/plain", orderConfirmationBody(msg))

	if err := d.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("sending order confirmation: %w", err)
	}
	d.logger.Info(d.logger.WithOrderID(ctx, msg.OrderID), "order confirmation sent")
	return nil
}

func (d *smtpDispatcher) SendGiftCode(ctx context.Context, msg GiftDelivery) error {
	if msg.To == "" {
		return fmt.Errorf("recipient required")
	}
	m := gomail.NewMessage()
	m.SetHeader("From", d.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", "Your gift code")
	m.SetBody("text/plain", giftDeliveryBody(msg))

	if err := d.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("sending gift code: %w", err)
	}
	d.logger.Info(ctx, "gift code mail sent")
	return nil
}

type noopDispatcher struct {
	logger *logger.Logger
}

func (d *noopDispatcher) SendOrderConfirmation(ctx context.Context, msg OrderConfirmation) error {
	d.logger.Info(d.logger.WithOrderID(ctx, msg.OrderID), "smtp disabled, dropping order confirmation")
	return nil
}

func (d *noopDispatcher) SendGiftCode(ctx context.Context, _ GiftDelivery) error {
	d.logger.Info(ctx, "smtp disabled, dropping gift code mail")
	return nil
}

func orderConfirmationBody(msg OrderConfirmation) string {
	var b strings.Builder
	b.WriteString("Thank you for your order!\n\n")
	for _, line := range msg.Lines {
		fmt.Fprintf(&b, "%dx %s  %s\n", line.Quantity, line.Name, formatEuros(line.UnitAmount*line.Quantity))
	}
	if msg.DiscountCents > 0 {
		fmt.Fprintf(&b, "\nDiscount (%s): -%s\n", msg.CouponCode, formatEuros(msg.DiscountCents))
	}
	fmt.Fprintf(&b, "\nTotal charged: %s\n", formatEuros(msg.TotalCents))
	fmt.Fprintf(&b, "Order reference: %s\n", msg.OrderID)
	return b.String()
}

func giftDeliveryBody(msg GiftDelivery) string {
	var b strings.Builder
	b.WriteString("Your gift code is ready.\n\n")
	fmt.Fprintf(&b, "Code: %s\n", msg.Code)
	fmt.Fprintf(&b, "Value: %s\n\n", formatEuros(msg.ValueCents))
	b.WriteString("Enter the code at checkout to spend it. Unused balance stays on the code.\n")
	return b.String()
}

func formatEuros(cents int64) string {
	return "€" + decimal.NewFromInt(cents).Div(decimal.NewFromInt(100)).StringFixed(2)
}
