package domain

// AuditEvent records one committed operation or enforcement decision.
// Corresponds to audit_events table in ClickHouse.
type AuditEvent struct {
	ID         string // uuid
	Mint       string
	Scope      string // registry address or deployment address
	Operation  string // e.g. create_holder, withdraw, enforce
	Caller     string
	Outcome    string // ok | denied | rejected
	Code       string // error code, empty on success
	Attributes map[string]string
	Timestamp  int64 // unix milliseconds
}
