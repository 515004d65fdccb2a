package domain

// MovementKind identifies the operation moving tokens.
type MovementKind string

const (
	MovementTransfer       MovementKind = "transfer"
	MovementForcedTransfer MovementKind = "forced_transfer"
	MovementWithdrawal     MovementKind = "withdrawal"
	MovementCancellation   MovementKind = "cancellation"
)

// MovementRequest is a token movement presented to transfer enforcement.
type MovementRequest struct {
	Mint        string
	From        string // source wallet
	To          string // destination wallet
	Amount      uint64
	Kind        MovementKind
	BypassPause bool // reserve admin exemption, set only by the forced transfer path
}

// Decision is the enforcement verdict for a MovementRequest.
type Decision struct {
	Allowed bool
	Reason  error // nil when Allowed
}

// Allow is the positive verdict.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny rejects with reason.
func Deny(reason error) Decision {
	return Decision{Reason: reason}
}

// Err returns nil for an allowed decision and the reason otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return d.Reason
}
