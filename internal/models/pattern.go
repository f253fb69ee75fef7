package models

import "time"

// Pattern is a learned association between a counterparty verb and a value
// for one tenant. Patterns are derived during mining and replaced wholesale
// when the tenant's cache entry is repopulated.
type Pattern struct {
	Tenant      string      `json:"tenant" yaml:"tenant"`
	Role        PatternRole `json:"role" yaml:"role"`
	BankAccount string      `json:"bank_account,omitempty" yaml:"bank_account,omitempty"`
	Verb        string      `json:"verb" yaml:"verb"`
	Value       string      `json:"value" yaml:"value"`
	Count       int         `json:"count" yaml:"count"`
	LastSeen    time.Time   `json:"last_seen" yaml:"last_seen"`
}

// PredictionResult is the outcome of one field prediction. It is produced per
// call and never stored.
type PredictionResult struct {
	Field       Field   `json:"field" yaml:"field"`
	Value       string  `json:"value" yaml:"value"`
	Confidence  float64 `json:"confidence" yaml:"confidence"`
	Occurrences int     `json:"occurrences" yaml:"occurrences"`
}

// PatternSummary describes a tenant's mined pattern maps.
type PatternSummary struct {
	Tenant            string              `json:"tenant" yaml:"tenant"`
	TotalTransactions int                 `json:"total_transactions" yaml:"total_transactions"`
	TotalPatterns     int                 `json:"total_patterns" yaml:"total_patterns"`
	PatternsByType    map[PatternRole]int `json:"patterns_by_type" yaml:"patterns_by_type"`
	BankOnDebit       int                 `json:"bank_on_debit" yaml:"bank_on_debit"`
	BankOnCredit      int                 `json:"bank_on_credit" yaml:"bank_on_credit"`
	MinedAt           time.Time           `json:"mined_at" yaml:"mined_at"`
}
