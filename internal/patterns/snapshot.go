// Package patterns mines a tenant's ledger history into pattern maps and
// predicts missing account codes and reference numbers from them.
package patterns

import (
	"sort"
	"time"

	"github.com/PeterGeers/myAdmin-sub005/internal/accounts"
	"github.com/PeterGeers/myAdmin-sub005/internal/models"
	"github.com/PeterGeers/myAdmin-sub005/internal/textutils"
)

// referenceKey addresses the reference map: bank account plus verb.
type referenceKey struct {
	bankAccount string
	verb        string
}

// Snapshot is the immutable result of one mining pass for one tenant. It is
// published to readers as a unit and never modified afterwards, so it is safe
// for concurrent use without locking.
type Snapshot struct {
	Tenant     string
	Classifier *accounts.Classifier
	// VerbOptions are the extraction settings the maps were keyed with;
	// predictions must extract verbs with the same settings.
	VerbOptions textutils.VerbOptions
	MinedAt     time.Time
	From        time.Time
	To          time.Time

	debit     map[string]models.Pattern
	credit    map[string]models.Pattern
	reference map[referenceKey]models.Pattern
	summary   models.PatternSummary
}

// Debit returns the debit-unknown pattern for verb.
func (s *Snapshot) Debit(verb string) (models.Pattern, bool) {
	p, ok := s.debit[verb]
	return p, ok
}

// Credit returns the credit-unknown pattern for verb.
func (s *Snapshot) Credit(verb string) (models.Pattern, bool) {
	p, ok := s.credit[verb]
	return p, ok
}

// Reference returns the reference pattern for a bank account and verb.
func (s *Snapshot) Reference(bankAccount, verb string) (models.Pattern, bool) {
	p, ok := s.reference[referenceKey{bankAccount: accounts.NormalizeCode(bankAccount), verb: verb}]
	return p, ok
}

// Summary returns a copy of the mining summary.
func (s *Snapshot) Summary() models.PatternSummary {
	out := s.summary
	out.PatternsByType = make(map[models.PatternRole]int, len(s.summary.PatternsByType))
	for role, n := range s.summary.PatternsByType {
		out.PatternsByType[role] = n
	}
	return out
}

// Len returns the number of patterns across all three maps.
func (s *Snapshot) Len() int {
	return len(s.debit) + len(s.credit) + len(s.reference)
}

// Patterns lists the patterns of the given roles (all roles when none are
// given), ordered by role, then descending count, then verb and bank account.
func (s *Snapshot) Patterns(roles ...models.PatternRole) []models.Pattern {
	if len(roles) == 0 {
		roles = models.AllRoles
	}
	want := make(map[models.PatternRole]bool, len(roles))
	for _, r := range roles {
		want[r] = true
	}

	out := make([]models.Pattern, 0, s.Len())
	if want[models.RoleDebitUnknown] {
		for _, p := range s.debit {
			out = append(out, p)
		}
	}
	if want[models.RoleCreditUnknown] {
		for _, p := range s.credit {
			out = append(out, p)
		}
	}
	if want[models.RoleReference] {
		for _, p := range s.reference {
			out = append(out, p)
		}
	}

	rank := make(map[models.PatternRole]int, len(models.AllRoles))
	for i, r := range models.AllRoles {
		rank[r] = i
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Role != b.Role {
			return rank[a.Role] < rank[b.Role]
		}
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.Verb != b.Verb {
			return a.Verb < b.Verb
		}
		return a.BankAccount < b.BankAccount
	})
	return out
}
