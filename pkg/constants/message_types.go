package constants

// Message type constants used by both orchestrator and worker services
const (
	MessageTypeSyncLocation   = "sync_location"
	MessageTypeAutoReplySweep = "auto_reply_sweep"
)
