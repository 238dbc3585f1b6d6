package discount

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/osteria-app/osteria-backend/pkg/db"
	"github.com/osteria-app/osteria-backend/pkg/db/models"
	"github.com/osteria-app/osteria-backend/pkg/enums"
	pkgerrors "github.com/osteria-app/osteria-backend/pkg/errors"
)

// GiftBonusPercent is the bonus credited on top of a paid gift purchase.
const GiftBonusPercent = 10

// giftCodeMintAttempts bounds retries on gift-code uniqueness collisions.
const giftCodeMintAttempts = 3

// Evaluation is the outcome of resolving a raw code against both discount
// sources. Applies=false is the uniform answer for unknown, exhausted, and
// zero-valued codes.
type Evaluation struct {
	Applies        bool
	Kind           enums.DiscountKind
	Code           string
	DiscountCents  int64
	RemainingCents int64

	// AmountOff and PercentOff echo the stored discount fields for the cart
	// UI. For gift codes AmountOff is the applicable balance.
	AmountOff  *int64
	PercentOff *int64
}

// Service resolves discount codes and mutates their balances at
// finalization time.
type Service interface {
	Evaluate(ctx context.Context, rawCode string, subtotalCents int64) (*Evaluation, error)
	LookupGiftCode(ctx context.Context, rawCode string) (*models.GiftCode, error)
	ApplyDecrement(ctx context.Context, tx *gorm.DB, code string, discountCents int64) error
	MintGiftCode(ctx context.Context, tx *gorm.DB, valueCents int64, email string) (*models.GiftCode, error)
}

type service struct {
	repo Repository
}

// NewService builds a discount service with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("discount repository required")
	}
	return &service{repo: repo}, nil
}

// Evaluate resolves a raw code against gift codes first (case-insensitive),
// then coupons (uppercased). It is a pure read; balances are untouched.
//
// An empty or whitespace-only code means "no discount", not an error.
func (s *service) Evaluate(ctx context.Context, rawCode string, subtotalCents int64) (*Evaluation, error) {
	if subtotalCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subtotal must not be negative")
	}
	code := strings.TrimSpace(rawCode)
	if code == "" {
		return &Evaluation{}, nil
	}

	giftCode, err := s.repo.FindGiftCodeByCode(ctx, code)
	switch {
	case err == nil:
		if giftCode.RemainingCents <= 0 {
			return &Evaluation{}, nil
		}
		discountCents := giftCode.RemainingCents
		if discountCents > subtotalCents {
			discountCents = subtotalCents
		}
		return &Evaluation{
			Applies:        true,
			Kind:           enums.DiscountKindGiftCode,
			Code:           giftCode.Code,
			DiscountCents:  discountCents,
			RemainingCents: giftCode.RemainingCents,
			AmountOff:      &discountCents,
		}, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		// fall through to coupon lookup
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "looking up gift code")
	}

	upper := strings.ToUpper(code)
	coupon, err := s.repo.FindCouponByCode(ctx, upper)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &Evaluation{}, nil
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "looking up coupon")
	}

	if coupon.RemainingUses <= 0 {
		return &Evaluation{}, nil
	}
	discountCents := couponDiscount(coupon, subtotalCents)
	if discountCents <= 0 {
		return &Evaluation{}, nil
	}
	return &Evaluation{
		Applies:       true,
		Kind:          enums.DiscountKindCoupon,
		Code:          coupon.Code,
		DiscountCents: discountCents,
		AmountOff:     coupon.AmountOff,
		PercentOff:    coupon.PercentOff,
	}, nil
}

// LookupGiftCode fetches a stored-value code by its printed form, used to
// show the holder their remaining balance. Depleted codes still resolve.
func (s *service) LookupGiftCode(ctx context.Context, rawCode string) (*models.GiftCode, error) {
	code := strings.TrimSpace(rawCode)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gift code required")
	}
	giftCode, err := s.repo.FindGiftCodeByCode(ctx, code)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "gift code not found")
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "looking up gift code")
	}
	return giftCode, nil
}

// ApplyDecrement consumes one coupon use or debits a gift balance for a
// discount that was resolved at checkout time. The source is re-identified
// here (gift first, then coupon) because only the canonical code survives in
// the snapshot. A code deleted since checkout is not an error.
func (s *service) ApplyDecrement(ctx context.Context, tx *gorm.DB, code string, discountCents int64) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil
	}
	repo := s.repo.WithTx(tx)

	debited, err := repo.DebitGiftCode(ctx, code, discountCents)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "debiting gift code")
	}
	if debited {
		return nil
	}

	if _, err := repo.ConsumeCouponUse(ctx, strings.ToUpper(code)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consuming coupon use")
	}
	return nil
}

// MintGiftCode creates a stored-value code worth the paid amount plus the
// fixed bonus. The code is opaque and unguessable.
func (s *service) MintGiftCode(ctx context.Context, tx *gorm.DB, valueCents int64, email string) (*models.GiftCode, error) {
	if valueCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gift value must be positive")
	}
	total := valueCents + GiftBonus(valueCents)
	repo := s.repo.WithTx(tx)

	var lastErr error
	for attempt := 0; attempt < giftCodeMintAttempts; attempt++ {
		giftCode := &models.GiftCode{
			ID:             uuid.New(),
			Code:           newGiftCodeString(),
			ValueCents:     total,
			RemainingCents: total,
			CustomerEmail:  email,
		}
		err := repo.CreateGiftCode(ctx, giftCode)
		if err == nil {
			return giftCode, nil
		}
		if !db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating gift code")
		}
		lastErr = err
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, lastErr, "creating gift code")
}

// GiftBonus returns the bonus credited for a paid gift amount, rounded half
// up.
func GiftBonus(valueCents int64) int64 {
	return roundHalfUp(decimal.NewFromInt(valueCents).Mul(decimal.NewFromInt(GiftBonusPercent)).Div(decimal.NewFromInt(100)))
}

// Total computes the amount owed after a discount. Never negative.
func Total(subtotalCents, discountCents int64) int64 {
	total := subtotalCents - discountCents
	if total < 0 {
		return 0
	}
	return total
}

// couponDiscount applies amount_off with priority over percent_off. Percent
// discounts round half up. A discount larger than the subtotal is allowed;
// Total floors the owed amount at zero.
func couponDiscount(coupon *models.Coupon, subtotalCents int64) int64 {
	switch {
	case coupon.AmountOff != nil && *coupon.AmountOff > 0:
		return *coupon.AmountOff
	case coupon.PercentOff != nil && *coupon.PercentOff > 0:
		return roundHalfUp(
			decimal.NewFromInt(subtotalCents).
				Mul(decimal.NewFromInt(*coupon.PercentOff)).
				Div(decimal.NewFromInt(100)),
		)
	default:
		return 0
	}
}

func roundHalfUp(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}

func newGiftCodeString() string {
	return "GC-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:16]
}
