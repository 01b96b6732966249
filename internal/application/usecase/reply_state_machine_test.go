package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/connection"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/platform"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/review"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type stateMachineFixture struct {
	reviews     *memReviews
	replies     *memReplies
	connections *memConnections
	adapter     *mocks.MockAdapter
	sm          *ReplyStateMachine
}

func newStateMachineFixture(t *testing.T, seed ...*review.Review) *stateMachineFixture {
	ctrl := gomock.NewController(t)
	adapter := mocks.NewMockAdapter(ctrl)
	adapter.EXPECT().Platform().Return(connection.PlatformGoogle).AnyTimes()

	f := &stateMachineFixture{
		reviews: newMemReviews(seed...),
		replies: &memReplies{},
		connections: newMemConnections(&connection.Connection{
			ID:         "conn-1",
			LocationID: "loc-1",
			Platform:   connection.PlatformGoogle,
			Status:     connection.StatusActive,
		}),
		adapter: adapter,
	}
	f.sm = NewReplyStateMachine(f.reviews, f.replies, f.connections, platform.NewRegistry(adapter), discardLogger())
	f.sm.now = func() time.Time { return fixedNow }
	return f
}

func seededReview(id string, status review.ReplyStatus) *review.Review {
	return &review.Review{
		ID:          id,
		BusinessID:  "biz-1",
		LocationID:  "loc-1",
		SourceID:    "conn-1",
		Platform:    connection.PlatformGoogle,
		ExternalID:  "ext-" + id,
		Rating:      5,
		Content:     "Lovely stay",
		PublishedAt: fixedNow.Add(-48 * time.Hour),
		ReplyStatus: status,
	}
}

func incoming(externalID string) review.Incoming {
	return review.Incoming{
		BusinessID:  "biz-1",
		LocationID:  "loc-1",
		SourceID:    "conn-1",
		Platform:    connection.PlatformGoogle,
		ExternalID:  externalID,
		Author:      "Ana",
		Rating:      2,
		Content:     "Cold room",
		PublishedAt: fixedNow.Add(-time.Hour),
	}
}

func TestIngestCreatesUnprocessedReview(t *testing.T) {
	f := newStateMachineFixture(t)

	r, created, err := f.sm.Ingest(context.Background(), incoming("g-1"))

	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, review.StatusUnprocessed, r.ReplyStatus)
	require.NotNil(t, r.Sentiment)
	assert.Equal(t, string(review.SentimentNegative), *r.Sentiment)

	edited := incoming("g-1")
	edited.Rating = 4
	edited.Content = "Cold room, but staff fixed the heating"
	again, created, err := f.sm.Ingest(context.Background(), edited)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, r.ID, again.ID)

	assert.Len(t, f.reviews.rows, 1)
	stored := f.reviews.get(r.ID)
	assert.Equal(t, 4, stored.Rating)
	assert.Equal(t, "Cold room, but staff fixed the heating", stored.Content)
	require.NotNil(t, stored.Sentiment)
	assert.Equal(t, string(review.SentimentPositive), *stored.Sentiment)
	assert.Equal(t, review.StatusUnprocessed, stored.ReplyStatus)
}

func TestIngestMirrorsExistingPlatformReply(t *testing.T) {
	f := newStateMachineFixture(t, seededReview("rev-a", review.StatusPendingApproval))
	repliedAt := fixedNow.Add(-30 * time.Minute)
	in := incoming("ext-rev-a")
	in.ExistingReply = ptr("Thanks for the feedback")
	in.ExistingReplyAt = &repliedAt

	r, created, err := f.sm.Ingest(context.Background(), in)

	require.NoError(t, err)
	assert.False(t, created)
	stored := f.reviews.get("rev-a")
	assert.Equal(t, review.StatusPosted, stored.ReplyStatus)
	assert.Equal(t, "Thanks for the feedback", *stored.Response)
	assert.Equal(t, repliedAt, *stored.ReplyStatusChangedAt)
	assert.Equal(t, r.ReplyStatus, stored.ReplyStatus)
}

func TestIngestValidatesInput(t *testing.T) {
	f := newStateMachineFixture(t)
	in := incoming("g-2")
	in.Rating = 0

	_, _, err := f.sm.Ingest(context.Background(), in)

	assert.ErrorIs(t, err, review.ErrValidation)
}

func TestSubmitManualReplyPosts(t *testing.T) {
	f := newStateMachineFixture(t, seededReview("rev-a", review.StatusUnprocessed))
	postedAt := fixedNow.Add(time.Second)
	f.adapter.EXPECT().
		PostReply(gomock.Any(), gomock.Any(), "ext-rev-a", "Thank you!").
		Return(&platform.PostResult{UpdateTime: postedAt}, nil)

	r, err := f.sm.SubmitManualReply(context.Background(), "rev-a", "Thank you!", ManualReplyOptions{UserID: ptr("user-1")})

	require.NoError(t, err)
	assert.Equal(t, review.StatusPosted, r.ReplyStatus)
	assert.Equal(t, postedAt, *r.RespondedAt)

	records, _ := f.replies.ListByReview(context.Background(), "rev-a")
	require.Len(t, records, 1)
	assert.Equal(t, review.RecordPosted, records[0].Status)
	assert.Equal(t, review.AuthorUser, records[0].AuthorType)
	assert.Equal(t, review.SourceManual, records[0].SourceType)
}

func TestSubmitManualReplyRecordsPlatformFailure(t *testing.T) {
	f := newStateMachineFixture(t, seededReview("rev-a", review.StatusFailed))
	f.adapter.EXPECT().
		PostReply(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("quota exceeded"))

	r, err := f.sm.SubmitManualReply(context.Background(), "rev-a", "Sorry to hear", ManualReplyOptions{})

	require.Error(t, err)
	require.NotNil(t, r)
	stored := f.reviews.get("rev-a")
	assert.Equal(t, review.StatusFailed, stored.ReplyStatus)
	assert.Contains(t, *stored.ReplyError, "quota exceeded")

	records, _ := f.replies.ListByReview(context.Background(), "rev-a")
	require.Len(t, records, 1)
	assert.Equal(t, review.RecordFailed, records[0].Status)
}

func TestSubmitManualReplyOnDisconnectedSource(t *testing.T) {
	f := newStateMachineFixture(t, seededReview("rev-a", review.StatusUnprocessed))
	f.connections.rows["conn-1"].Status = connection.StatusDisconnected

	_, err := f.sm.SubmitManualReply(context.Background(), "rev-a", "Hi", ManualReplyOptions{})

	assert.ErrorIs(t, err, connection.ErrDisconnected)
	assert.Equal(t, review.StatusFailed, f.reviews.get("rev-a").ReplyStatus)
}

func TestTerminalReviewsRefuseChanges(t *testing.T) {
	for _, status := range review.TerminalStatuses() {
		t.Run(status.String(), func(t *testing.T) {
			f := newStateMachineFixture(t, seededReview("rev-a", status))
			ctx := context.Background()

			_, err := f.sm.SubmitManualReply(ctx, "rev-a", "late reply", ManualReplyOptions{})
			assert.ErrorIs(t, err, review.ErrInvalidTransition)

			_, err = f.sm.MarkSkipped(ctx, "rev-a", "no")
			assert.ErrorIs(t, err, review.ErrInvalidTransition)

			_, err = f.sm.MarkApproved(ctx, "rev-a", "draft", nil)
			assert.ErrorIs(t, err, review.ErrInvalidTransition)

			assert.Equal(t, status, f.reviews.get("rev-a").ReplyStatus)
		})
	}
}

func TestRejectReply(t *testing.T) {
	f := newStateMachineFixture(t, seededReview("rev-a", review.StatusPendingApproval))
	ctx := context.Background()
	require.NoError(t, f.replies.Create(ctx, &review.ReplyRecord{ReviewID: "rev-a", Content: "draft", Status: review.RecordDraft}))

	r, err := f.sm.RejectReply(ctx, "rev-a")
	require.NoError(t, err)
	assert.Equal(t, review.StatusRejected, r.ReplyStatus)
	assert.Nil(t, r.Response)

	records, _ := f.replies.ListByReview(ctx, "rev-a")
	assert.Equal(t, review.RecordRejected, records[0].Status)

	again, err := f.sm.RejectReply(ctx, "rev-a")
	require.NoError(t, err)
	assert.Equal(t, review.StatusRejected, again.ReplyStatus)
}

func TestRejectPostedReplyIsRefused(t *testing.T) {
	f := newStateMachineFixture(t, seededReview("rev-a", review.StatusPosted))

	_, err := f.sm.RejectReply(context.Background(), "rev-a")

	assert.ErrorIs(t, err, review.ErrInvalidTransition)
}

func TestApprovePendingWithStoredDraft(t *testing.T) {
	f := newStateMachineFixture(t, seededReview("rev-a", review.StatusUnprocessed))
	ctx := context.Background()
	_, err := f.sm.MarkPendingApproval(ctx, "rev-a", &review.Suggestions{Draft: "We are sorry"})
	require.NoError(t, err)

	r, err := f.sm.ApprovePending(ctx, "rev-a", "", ptr("user-1"))

	require.NoError(t, err)
	assert.Equal(t, review.StatusApproved, r.ReplyStatus)
	assert.Equal(t, "We are sorry", *r.Response)
	records, _ := f.replies.ListByReview(ctx, "rev-a")
	require.Len(t, records, 1)
	assert.Equal(t, review.RecordApproved, records[0].Status)
}

func TestApprovePendingWithEditedContent(t *testing.T) {
	f := newStateMachineFixture(t, seededReview("rev-a", review.StatusUnprocessed))
	ctx := context.Background()
	_, err := f.sm.MarkPendingApproval(ctx, "rev-a", &review.Suggestions{Draft: "We are sorry"})
	require.NoError(t, err)

	r, err := f.sm.ApprovePending(ctx, "rev-a", "We are very sorry", nil)

	require.NoError(t, err)
	assert.Equal(t, "We are very sorry", *r.Response)
	records, _ := f.replies.ListByReview(ctx, "rev-a")
	require.Len(t, records, 2)
	assert.Equal(t, review.RecordRejected, records[0].Status)
	assert.Equal(t, review.RecordApproved, records[1].Status)
	assert.Equal(t, review.SourceManual, records[1].SourceType)
}

func TestApprovePendingRequiresPendingStatus(t *testing.T) {
	f := newStateMachineFixture(t, seededReview("rev-a", review.StatusSkipped))

	_, err := f.sm.ApprovePending(context.Background(), "rev-a", "text", nil)

	assert.ErrorIs(t, err, review.ErrInvalidTransition)
}

func TestPostApprovedUsesOpenRecord(t *testing.T) {
	f := newStateMachineFixture(t, seededReview("rev-a", review.StatusUnprocessed))
	ctx := context.Background()
	_, err := f.sm.MarkApproved(ctx, "rev-a", "Thanks a lot", nil)
	require.NoError(t, err)
	f.adapter.EXPECT().
		PostReply(gomock.Any(), gomock.Any(), "ext-rev-a", "Thanks a lot").
		Return(&platform.PostResult{}, nil)

	r, err := f.sm.PostApproved(ctx, "rev-a")

	require.NoError(t, err)
	assert.Equal(t, review.StatusPosted, r.ReplyStatus)
	assert.Equal(t, fixedNow, *r.RespondedAt)
	records, _ := f.replies.ListByReview(ctx, "rev-a")
	require.Len(t, records, 1)
	assert.Equal(t, review.RecordPosted, records[0].Status)
}

func TestPostApprovedRequiresApprovedStatus(t *testing.T) {
	f := newStateMachineFixture(t, seededReview("rev-a", review.StatusPendingApproval))

	_, err := f.sm.PostApproved(context.Background(), "rev-a")

	assert.ErrorIs(t, err, review.ErrInvalidTransition)
}

func TestMarkApprovedRejectsEmptyDraft(t *testing.T) {
	f := newStateMachineFixture(t, seededReview("rev-a", review.StatusUnprocessed))

	_, err := f.sm.MarkApproved(context.Background(), "rev-a", "  ", nil)

	assert.ErrorIs(t, err, review.ErrValidation)
	assert.Equal(t, review.StatusUnprocessed, f.reviews.get("rev-a").ReplyStatus)
}
