package dto

import (
	"time"

	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/review"
)

type ReviewResponse struct {
	ID            string              `json:"id"`
	BusinessID    string              `json:"businessId"`
	LocationID    string              `json:"locationId"`
	SourceID      string              `json:"sourceId,omitempty"`
	Platform      string              `json:"platform"`
	ExternalID    string              `json:"externalId"`
	Author        string              `json:"author"`
	Rating        int                 `json:"rating"`
	Content       string              `json:"content"`
	PublishedAt   time.Time           `json:"publishedAt"`
	Sentiment     *string             `json:"sentiment"`
	Tags          []string            `json:"tags"`
	Response      *string             `json:"response"`
	RespondedAt   *time.Time          `json:"respondedAt"`
	ReplyStatus   *string             `json:"replyStatus"`
	ReplyError    *string             `json:"replyError"`
	AISuggestions *review.Suggestions `json:"aiSuggestions,omitempty"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

// FromReview renders an unprocessed status as null.
func FromReview(r *review.Review) *ReviewResponse {
	if r == nil {
		return nil
	}
	var status *string
	if r.ReplyStatus != review.StatusUnprocessed {
		s := r.ReplyStatus.String()
		status = &s
	}
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return &ReviewResponse{
		ID:            r.ID,
		BusinessID:    r.BusinessID,
		LocationID:    r.LocationID,
		SourceID:      r.SourceID,
		Platform:      r.Platform,
		ExternalID:    r.ExternalID,
		Author:        r.Author,
		Rating:        r.Rating,
		Content:       r.Content,
		PublishedAt:   r.PublishedAt,
		Sentiment:     r.Sentiment,
		Tags:          tags,
		Response:      r.Response,
		RespondedAt:   r.RespondedAt,
		ReplyStatus:   status,
		ReplyError:    r.ReplyError,
		AISuggestions: r.AISuggestions,
		UpdatedAt:     r.UpdatedAt,
	}
}

type ManualReplyRequest struct {
	Comment    string  `json:"comment"`
	AuthorType string  `json:"authorType,omitempty"`
	SourceType string  `json:"sourceType,omitempty"`
	UserID     *string `json:"userId,omitempty"`
}

type ApproveReplyRequest struct {
	Comment string  `json:"comment,omitempty"`
	UserID  *string `json:"userId,omitempty"`
}

type JobAccepted struct {
	Accepted  bool   `json:"accepted"`
	RequestID string `json:"requestId"`
}
