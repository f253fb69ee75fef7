package logging

// Standardized field names for structured logging.
const (
	FieldTenant      = "tenant"
	FieldCacheKind   = "cache_kind"
	FieldRunID       = "run_id"
	FieldOperation   = "operation"
	FieldStatus      = "status"
	FieldError       = "error"
	FieldDuration    = "duration_ms"
	FieldCount       = "count"
	FieldAttempt     = "attempt"
	FieldField       = "field"
	FieldVerb        = "verb"
	FieldConfidence  = "confidence"
	FieldStoreDriver = "store_driver"
)
