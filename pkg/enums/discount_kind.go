package enums

import "fmt"

// DiscountKind identifies which discount source a resolved code belongs to.
type DiscountKind string

const (
	DiscountKindCoupon   DiscountKind = "coupon"
	DiscountKindGiftCode DiscountKind = "gift_code"
)

var validDiscountKinds = []DiscountKind{
	DiscountKindCoupon,
	DiscountKindGiftCode,
}

// String implements fmt.Stringer.
func (d DiscountKind) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DiscountKind.
func (d DiscountKind) IsValid() bool {
	for _, candidate := range validDiscountKinds {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDiscountKind converts raw input into a DiscountKind.
func ParseDiscountKind(value string) (DiscountKind, error) {
	for _, candidate := range validDiscountKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid discount kind %q", value)
}
