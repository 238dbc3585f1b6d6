package types

import "encoding/json"

// SnapshotVersion tags the serialized order snapshot so finalize-time parsing
// stays total across schema revisions.
const SnapshotVersion = 1

// CartLine is a single cart entry captured at checkout time. Unit amounts are
// minor currency units and never re-read from the product catalog afterwards.
type CartLine struct {
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	UnitAmount int64  `json:"unit_amount"`
	Quantity   int64  `json:"quantity"`
	Currency   string `json:"currency"`
}

// OrderSnapshot is the payload persisted with a pending order and copied onto
// the durable order row. CouponCode holds the canonical applied code, empty
// when no discount applied.
type OrderSnapshot struct {
	Version       int        `json:"version"`
	Cart          []CartLine `json:"cart"`
	CouponCode    string     `json:"coupon_code,omitempty"`
	DiscountCents int64      `json:"discount_cents"`
}

// Encode serializes the snapshot for storage.
func (s OrderSnapshot) Encode() (string, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// DecodeOrderSnapshot parses a stored snapshot. Unknown fields are ignored and
// a missing version is treated as version 1 so legacy rows stay readable.
func DecodeOrderSnapshot(raw string) (OrderSnapshot, error) {
	var snapshot OrderSnapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return OrderSnapshot{}, err
	}
	if snapshot.Version == 0 {
		snapshot.Version = SnapshotVersion
	}
	return snapshot, nil
}
