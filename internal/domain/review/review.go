package review

import "time"

// ReplyStatus is the lifecycle state of the reply attached to a Review.
// The zero value is "unprocessed" and is persisted as NULL.
type ReplyStatus string

const (
	StatusUnprocessed     ReplyStatus = ""
	StatusSkipped         ReplyStatus = "skipped"
	StatusPendingApproval ReplyStatus = "pending_approval"
	StatusApproved        ReplyStatus = "approved"
	StatusPosted          ReplyStatus = "posted"
	StatusFailed          ReplyStatus = "failed"
	StatusRejected        ReplyStatus = "rejected"
)

func (s ReplyStatus) String() string {
	if s == StatusUnprocessed {
		return "unprocessed"
	}
	return string(s)
}

// IsTerminal reports whether no further transition is allowed out of s.
func (s ReplyStatus) IsTerminal() bool {
	return s == StatusPosted || s == StatusRejected
}

// TerminalStatuses lists the statuses that lock a Review's reply.
func TerminalStatuses() []ReplyStatus {
	return []ReplyStatus{StatusPosted, StatusRejected}
}

// CanTransition reports whether a Review in status from may move to status to.
// Re-entering the current non-terminal status is allowed (idempotent writes).
func CanTransition(from, to ReplyStatus) bool {
	if from.IsTerminal() {
		return false
	}
	return to != StatusUnprocessed
}

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// ClassifyRating maps a 1-5 star rating onto the sentiment buckets used by
// the auto-reply gate: 4-5 positive, 3 neutral, 1-2 negative.
func ClassifyRating(rating int) Sentiment {
	switch {
	case rating >= 4:
		return SentimentPositive
	case rating == 3:
		return SentimentNeutral
	default:
		return SentimentNegative
	}
}

// Suggestions is an AI-authored reply draft with alternatives.
type Suggestions struct {
	Draft      string   `json:"draft"`
	Variations []string `json:"variations,omitempty"`
	Rationale  string   `json:"rationale,omitempty"`
}

type Review struct {
	ID                   string
	BusinessID           string
	LocationID           string
	SourceID             string
	Platform             string
	ExternalID           string
	Author               string
	Rating               int
	Content              string
	PublishedAt          time.Time
	Sentiment            *string
	Tags                 []string
	Response             *string
	RespondedAt          *time.Time
	ReplyStatus          ReplyStatus
	ReplyError           *string
	AISuggestions        *Suggestions
	ReplyStatusChangedAt *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Incoming is a platform review already mapped onto the internal scale,
// ready to be ingested.
type Incoming struct {
	BusinessID      string
	LocationID      string
	SourceID        string
	Platform        string
	ExternalID      string
	Author          string
	Rating          int
	Content         string
	PublishedAt     time.Time
	Tags            []string
	ExistingReply   *string
	ExistingReplyAt *time.Time
}

type AuthorType string

const (
	AuthorUser AuthorType = "user"
	AuthorAuto AuthorType = "auto"
)

type SourceType string

const (
	SourceManual SourceType = "manual"
	SourceAI     SourceType = "ai"
)

type RecordStatus string

const (
	RecordDraft    RecordStatus = "draft"
	RecordApproved RecordStatus = "approved"
	RecordPosted   RecordStatus = "posted"
	RecordFailed   RecordStatus = "failed"
	RecordRejected RecordStatus = "rejected"
)

// ReplyRecord is one audit entry of a reply attempt. Once posted it is never
// modified again.
type ReplyRecord struct {
	ID         string
	ReviewID   string
	Content    string
	AuthorType AuthorType
	SourceType SourceType
	Status     RecordStatus
	UserID     *string
	Error      *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
