// Package models provides the data structures shared by the pattern engine,
// its caches and the ledger store adapters.
package models

// PatternRole identifies which pattern map a learned association belongs to.
type PatternRole string

// Pattern roles
const (
	// RoleDebitUnknown patterns predict the debit account when the credit
	// side is the tenant's bank account.
	RoleDebitUnknown PatternRole = "debit-unknown"
	// RoleCreditUnknown patterns predict the credit account when the debit
	// side is the tenant's bank account.
	RoleCreditUnknown PatternRole = "credit-unknown"
	// RoleReference patterns predict the reference number per bank account.
	RoleReference PatternRole = "reference"
)

// AllRoles lists every pattern role in reporting order.
var AllRoles = []PatternRole{RoleDebitUnknown, RoleCreditUnknown, RoleReference}

// Field names a predictable transaction field.
type Field string

// Predictable fields
const (
	FieldDebet           Field = "Debet"
	FieldCredit          Field = "Credit"
	FieldReferenceNumber Field = "ReferenceNumber"
)

// AllFields lists every predictable field in reporting order.
var AllFields = []Field{FieldDebet, FieldCredit, FieldReferenceNumber}

// BankSide reports on which side of an entry the tenant's bank account sits.
type BankSide int

// Bank sides
const (
	BankSideNone BankSide = iota
	BankSideDebit
	BankSideCredit
)

func (s BankSide) String() string {
	switch s {
	case BankSideDebit:
		return "debit"
	case BankSideCredit:
		return "credit"
	default:
		return "none"
	}
}

// CacheKind distinguishes the two process-local caches.
type CacheKind string

// Cache kinds
const (
	CacheKindPatterns  CacheKind = "patterns"
	CacheKindAggregate CacheKind = "aggregate"
)

// CacheState is the lifecycle state of one tenant's cache entry.
type CacheState string

// Cache states
const (
	CacheStateEmpty      CacheState = "empty"
	CacheStatePopulating CacheState = "populating"
	CacheStatePopulated  CacheState = "populated"
	CacheStateStale      CacheState = "stale"
)

// File permissions
const (
	PermissionDirectory = 0750
	PermissionDataFile  = 0644
)
