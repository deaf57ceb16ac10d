package metrics

// Common metric attribute keys to keep telemetry consistent/searchable.
const (
	AttrMethod   = "method"
	AttrPath     = "path"
	AttrStatus   = "status"
	AttrProvider = "provider"
	AttrPoller   = "poller"
	AttrCache    = "cache"
	AttrReason   = "reason"
	AttrMoment   = "moment_type"
	AttrOutcome  = "outcome"
)
