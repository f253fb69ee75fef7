// Package accounts decides which side of a ledger line is the tenant's own
// bank account, based on the tenant's known-account table.
package accounts

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/PeterGeers/myAdmin-sub005/internal/ledgererror"
	"github.com/PeterGeers/myAdmin-sub005/internal/logging"
	"github.com/PeterGeers/myAdmin-sub005/internal/models"
)

// Source supplies the known bank-account codes of a tenant.
type Source interface {
	FetchKnownAccounts(ctx context.Context, tenant string) ([]string, error)
}

// Classifier answers "is this code one of the tenant's bank accounts".
// A Classifier is immutable once built and safe for concurrent use.
type Classifier struct {
	tenant string
	known  map[string]struct{}
}

// NewClassifier builds a classifier from a list of account codes.
// Blank codes are ignored.
func NewClassifier(tenant string, codes []string) *Classifier {
	known := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		if c := NormalizeCode(code); c != "" {
			known[c] = struct{}{}
		}
	}
	return &Classifier{tenant: tenant, known: known}
}

// Load fetches the tenant's known accounts and builds a classifier. A store
// failure is returned; an empty table is not an error: it is logged as
// lookup-unavailable and yields a classifier that treats nothing as a bank
// account.
func Load(ctx context.Context, src Source, tenant string, logger logging.Logger) (*Classifier, error) {
	codes, err := src.FetchKnownAccounts(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch known accounts: %w", err)
	}

	c := NewClassifier(tenant, codes)
	if c.Empty() {
		logging.OrNop(logger).WithError(ledgererror.ErrLookupUnavailable).Warn(
			"No known bank accounts for tenant, predictions disabled",
			logging.Field{Key: logging.FieldTenant, Value: tenant})
	}
	return c, nil
}

// Tenant returns the tenant the classifier was built for.
func (c *Classifier) Tenant() string {
	return c.tenant
}

// IsBank reports whether code is a known bank account of the tenant.
func (c *Classifier) IsBank(code string) bool {
	if c == nil {
		return false
	}
	_, ok := c.known[NormalizeCode(code)]
	return ok
}

// Side reports which side of a debit/credit pair is the bank account.
// Transfers between two own bank accounts, and lines with no bank account,
// report BankSideNone.
func (c *Classifier) Side(debet, credit string) models.BankSide {
	debitIsBank := c.IsBank(debet)
	creditIsBank := c.IsBank(credit)
	switch {
	case debitIsBank && !creditIsBank:
		return models.BankSideDebit
	case creditIsBank && !debitIsBank:
		return models.BankSideCredit
	default:
		return models.BankSideNone
	}
}

// Empty reports whether the tenant has no known accounts.
func (c *Classifier) Empty() bool {
	return c == nil || len(c.known) == 0
}

// Accounts returns the known account codes in sorted order.
func (c *Classifier) Accounts() []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.known))
	for code := range c.known {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// NormalizeCode trims an account code and removes inner whitespace so that
// "1002 " and "10 02" compare equal to "1002".
func NormalizeCode(code string) string {
	return strings.Join(strings.Fields(code), "")
}
