package models

import "github.com/shopspring/decimal"

// AggregateRow is one grouped sum returned by an aggregate query.
type AggregateRow struct {
	Category          string          `json:"category" yaml:"category" csv:"Category"`
	TaxClassification string          `json:"tax_classification" yaml:"tax_classification" csv:"TaxClassification"`
	Amount            decimal.Decimal `json:"amount" yaml:"amount" csv:"Amount"`
}

// CacheKindStats reports the counters of one cache.
type CacheKindStats struct {
	Kind             CacheKind `json:"kind" yaml:"kind"`
	Hits             uint64    `json:"hits" yaml:"hits"`
	Misses           uint64    `json:"misses" yaml:"misses"`
	HitRatePercent   float64   `json:"hit_rate_percent" yaml:"hit_rate_percent"`
	Entries          int       `json:"entries" yaml:"entries"`
	PopulatedTenants []string  `json:"populated_tenants" yaml:"populated_tenants"`
	Populations      uint64    `json:"populations" yaml:"populations"`
	Failures         uint64    `json:"failures" yaml:"failures"`
}

// CacheStats is the operational snapshot returned by the service.
type CacheStats struct {
	HitRatePercent   float64          `json:"hit_rate_percent" yaml:"hit_rate_percent"`
	MemoryEntries    int              `json:"memory_entries" yaml:"memory_entries"`
	PopulatedTenants []string         `json:"populated_tenants" yaml:"populated_tenants"`
	Kinds            []CacheKindStats `json:"kinds" yaml:"kinds"`
}
