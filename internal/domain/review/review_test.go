package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from ReplyStatus
		to   ReplyStatus
		want bool
	}{
		{"unprocessed to pending", StatusUnprocessed, StatusPendingApproval, true},
		{"unprocessed to posted", StatusUnprocessed, StatusPosted, true},
		{"failed to approved", StatusFailed, StatusApproved, true},
		{"approved re-entered", StatusApproved, StatusApproved, true},
		{"back to unprocessed", StatusSkipped, StatusUnprocessed, false},
		{"posted is terminal", StatusPosted, StatusFailed, false},
		{"rejected is terminal", StatusRejected, StatusApproved, false},
		{"rejected to rejected", StatusRejected, StatusRejected, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestCheckTransitionWrapsSentinel(t *testing.T) {
	err := CheckTransition(StatusPosted, StatusApproved)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Contains(t, err.Error(), "posted -> approved")

	assert.NoError(t, CheckTransition(StatusUnprocessed, StatusSkipped))
}

func TestClassifyRating(t *testing.T) {
	assert.Equal(t, SentimentPositive, ClassifyRating(5))
	assert.Equal(t, SentimentPositive, ClassifyRating(4))
	assert.Equal(t, SentimentNeutral, ClassifyRating(3))
	assert.Equal(t, SentimentNegative, ClassifyRating(2))
	assert.Equal(t, SentimentNegative, ClassifyRating(1))
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "unprocessed", StatusUnprocessed.String())
	assert.Equal(t, "pending_approval", StatusPendingApproval.String())
	assert.True(t, StatusPosted.IsTerminal())
	assert.False(t, StatusFailed.IsTerminal())
	assert.ElementsMatch(t, []ReplyStatus{StatusPosted, StatusRejected}, TerminalStatuses())
}
