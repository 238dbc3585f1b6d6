package enums

// CaptureStatus is the settlement state reported by the payment provider for
// a capture attempt. Only CaptureStatusCompleted counts as settled; every
// other value is treated uniformly as "not yet settled".
type CaptureStatus string

const (
	CaptureStatusCompleted CaptureStatus = "COMPLETED"
	CaptureStatusPending   CaptureStatus = "PENDING"
	CaptureStatusDeclined  CaptureStatus = "DECLINED"
	CaptureStatusVoided    CaptureStatus = "VOIDED"
)

// String implements fmt.Stringer.
func (c CaptureStatus) String() string {
	return string(c)
}

// Settled reports whether funds have actually been captured.
func (c CaptureStatus) Settled() bool {
	return c == CaptureStatusCompleted
}
