package logging

// Shared structured-log field names. Using the constants keeps the JSON
// output greppable across components.
const (
	FieldComponent  = "component"
	FieldRunID      = "run_id"
	FieldDeadlineID = "deadline_id"
	FieldOwnerID    = "owner_id"
	FieldAssetID    = "asset_id"
	FieldCategory   = "category"
	FieldChannel    = "channel_id"
	FieldTier       = "tier"
	FieldSource     = "source"
	FieldThreshold  = "threshold_days"
	FieldDuration   = "duration"
	FieldError      = "error"
)
