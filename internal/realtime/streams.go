package realtime

// Named realtime streams used across the platform.
//
// StreamNotifications is shared: one envelope per business event reaches every
// subscriber, regardless of how many notification rows the event produced.
// StreamNdaStatus is delivered per-user only.
const (
	StreamNotifications = "notifications"
	StreamNdaStatus     = "nda.status"
)

// Event names carried on the streams.
const (
	EventNotification    = "notification"
	EventNdaStatusUpdate = "nda-status-update"
)
