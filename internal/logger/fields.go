package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields, propagated through the context.
const (
	FieldRequestID   = "request_id"
	FieldRunID       = "run_id"
	FieldComponent   = "component"
	FieldCandidateID = "candidate_id"
	FieldCatalogID   = "catalog_id"
	FieldMediaKind   = "media_kind"
	FieldSource      = "source"
)

// Metric fields, attached per entry for aggregation.
const (
	FieldDurationMs = "duration_ms"
	FieldCount      = "count"
	FieldStatus     = "status"
	FieldReason     = "reason"
)
