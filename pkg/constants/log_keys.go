package constants

// Structured log attribute keys
const (
	ReviewID     = "review_id"
	ConnectionID = "connection_id"
	LocationID   = "location_id"
	BusinessID   = "business_id"
	Platform     = "platform"
	MessageID    = "message_id"
)
