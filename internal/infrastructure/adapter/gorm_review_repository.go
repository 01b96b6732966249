package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/review"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/pkg/entities"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const unprocessedCondition = "(reply_status IS NULL OR reply_status = '')"

type GormReviewRepository struct {
	db *gorm.DB
}

func NewGormReviewRepository(database *gorm.DB) *GormReviewRepository {
	return &GormReviewRepository{db: database}
}

func (r *GormReviewRepository) FindByID(ctx context.Context, id string) (*review.Review, error) {
	var data entities.ReviewData
	if err := r.db.WithContext(ctx).First(&data, "id = ?", id).Error; err != nil {
		return nil, translateNotFound(err, review.ErrNotFound)
	}
	return reviewFromData(&data), nil
}

func (r *GormReviewRepository) FindByExternalID(ctx context.Context, platform, externalID, locationID string) (*review.Review, error) {
	var data entities.ReviewData
	err := r.db.WithContext(ctx).
		Where("platform = ? AND external_id = ? AND location_id = ?", platform, externalID, locationID).
		First(&data).Error
	if err != nil {
		return nil, translateNotFound(err, review.ErrNotFound)
	}
	return reviewFromData(&data), nil
}

func (r *GormReviewRepository) Create(ctx context.Context, rv *review.Review) (bool, error) {
	data := reviewToData(rv)
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "platform"}, {Name: "external_id"}, {Name: "location_id"}},
			DoNothing: true,
		}).
		Create(data)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	rv.ID = data.ID
	rv.CreatedAt = data.CreatedAt
	rv.UpdatedAt = data.UpdatedAt
	return true, nil
}

func (r *GormReviewRepository) UpdateIngested(ctx context.Context, rv *review.Review, includeReply bool) error {
	updates := map[string]any{
		"author":       rv.Author,
		"rating":       rv.Rating,
		"content":      rv.Content,
		"published_at": rv.PublishedAt,
		"sentiment":    rv.Sentiment,
		"source_id":    nullableString(rv.SourceID),
		"tags":         datatypes.JSONSlice[string](rv.Tags),
	}
	if includeReply {
		updates["response"] = rv.Response
		updates["responded_at"] = rv.RespondedAt
	}
	return r.db.WithContext(ctx).Model(&entities.ReviewData{}).Where("id = ?", rv.ID).Updates(updates).Error
}

// SaveReplyState writes the reply fields unless the stored row has already
// reached a terminal status.
func (r *GormReviewRepository) SaveReplyState(ctx context.Context, rv *review.Review) error {
	suggestions, err := marshalSuggestions(rv.AISuggestions)
	if err != nil {
		return err
	}
	updates := map[string]any{
		"reply_status":            statusColumn(rv.ReplyStatus),
		"response":                rv.Response,
		"responded_at":            rv.RespondedAt,
		"reply_error":             rv.ReplyError,
		"ai_suggestions":          suggestions,
		"reply_status_changed_at": rv.ReplyStatusChangedAt,
	}
	res := r.db.WithContext(ctx).Model(&entities.ReviewData{}).
		Where("id = ?", rv.ID).
		Where("reply_status IS NULL OR reply_status NOT IN ?", terminalStatuses()).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	current, err := r.FindByID(ctx, rv.ID)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: review %s is already %s", review.ErrInvalidTransition, rv.ID, current.ReplyStatus)
}

func (r *GormReviewRepository) FindByStatus(ctx context.Context, filter review.Filter) ([]*review.Review, error) {
	query := r.db.WithContext(ctx).Model(&entities.ReviewData{})
	if filter.Status == review.StatusUnprocessed {
		query = query.Where(unprocessedCondition)
	} else {
		query = query.Where("reply_status = ?", string(filter.Status))
	}
	if filter.BusinessID != "" {
		query = query.Where("business_id = ?", filter.BusinessID)
	}
	if filter.AfterID != "" {
		query = query.Where("id > ?", filter.AfterID)
	}
	if !filter.ChangedBefore.IsZero() {
		query = query.Where("reply_status_changed_at < ?", filter.ChangedBefore)
	}

	var rows []entities.ReviewData
	if err := query.Order("id ASC").Limit(filter.Limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	reviews := make([]*review.Review, len(rows))
	for i := range rows {
		reviews[i] = reviewFromData(&rows[i])
	}
	return reviews, nil
}

func (r *GormReviewRepository) CountRepliedSince(ctx context.Context, businessID, locationID string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.ReviewData{}).
		Where("business_id = ? AND location_id = ?", businessID, locationID).
		Where("reply_status IN ?", []string{string(review.StatusApproved), string(review.StatusPosted)}).
		Where("reply_status_changed_at >= ?", since).
		Count(&count).Error
	return count, err
}

func (r *GormReviewRepository) ListBusinessesWithPendingReplies(ctx context.Context, afterBusinessID string, limit int) ([]string, error) {
	query := r.db.WithContext(ctx).Model(&entities.ReviewData{}).
		Distinct("business_id").
		Where(unprocessedCondition+" OR reply_status IN ?", []string{string(review.StatusApproved), string(review.StatusFailed)})
	if afterBusinessID != "" {
		query = query.Where("business_id > ?", afterBusinessID)
	}
	var ids []string
	err := query.Order("business_id ASC").Limit(limit).Pluck("business_id", &ids).Error
	return ids, err
}

type GormReplyRecordRepository struct {
	db *gorm.DB
}

func NewGormReplyRecordRepository(database *gorm.DB) *GormReplyRecordRepository {
	return &GormReplyRecordRepository{db: database}
}

func (r *GormReplyRecordRepository) Create(ctx context.Context, record *review.ReplyRecord) error {
	data := &entities.ReplyRecordData{
		ID:         record.ID,
		ReviewID:   record.ReviewID,
		Content:    record.Content,
		AuthorType: string(record.AuthorType),
		SourceType: string(record.SourceType),
		Status:     string(record.Status),
		UserID:     record.UserID,
		Error:      record.Error,
	}
	if err := r.db.WithContext(ctx).Create(data).Error; err != nil {
		return err
	}
	record.ID = data.ID
	record.CreatedAt = data.CreatedAt
	record.UpdatedAt = data.UpdatedAt
	return nil
}

// UpdateStatus never touches a posted record.
func (r *GormReplyRecordRepository) UpdateStatus(ctx context.Context, id string, status review.RecordStatus, errMessage *string) error {
	res := r.db.WithContext(ctx).Model(&entities.ReplyRecordData{}).
		Where("id = ? AND status <> ?", id, string(review.RecordPosted)).
		Updates(map[string]any{
			"status":     string(status),
			"error":      errMessage,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: reply record %s is posted or missing", review.ErrInvalidTransition, id)
	}
	return nil
}

func (r *GormReplyRecordRepository) FindLatestOpen(ctx context.Context, reviewID string) (*review.ReplyRecord, error) {
	var data entities.ReplyRecordData
	err := r.db.WithContext(ctx).
		Where("review_id = ? AND status IN ?", reviewID, []string{string(review.RecordDraft), string(review.RecordApproved)}).
		Order("created_at DESC").
		First(&data).Error
	if err != nil {
		return nil, translateNotFound(err, review.ErrNotFound)
	}
	return replyRecordFromData(&data), nil
}

func (r *GormReplyRecordRepository) ListByReview(ctx context.Context, reviewID string) ([]*review.ReplyRecord, error) {
	var rows []entities.ReplyRecordData
	if err := r.db.WithContext(ctx).Where("review_id = ?", reviewID).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	records := make([]*review.ReplyRecord, len(rows))
	for i := range rows {
		records[i] = replyRecordFromData(&rows[i])
	}
	return records, nil
}

func translateNotFound(err, notFound error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return err
}

func terminalStatuses() []string {
	statuses := review.TerminalStatuses()
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func statusColumn(status review.ReplyStatus) *string {
	if status == review.StatusUnprocessed {
		return nil
	}
	s := string(status)
	return &s
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func marshalSuggestions(s *review.Suggestions) (datatypes.JSON, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ai suggestions: %w", err)
	}
	return datatypes.JSON(b), nil
}

func reviewToData(rv *review.Review) *entities.ReviewData {
	suggestions, _ := marshalSuggestions(rv.AISuggestions)
	return &entities.ReviewData{
		ID:                   rv.ID,
		BusinessID:           rv.BusinessID,
		LocationID:           rv.LocationID,
		SourceID:             nullableString(rv.SourceID),
		Platform:             rv.Platform,
		ExternalID:           rv.ExternalID,
		Author:               rv.Author,
		Rating:               rv.Rating,
		Content:              rv.Content,
		PublishedAt:          rv.PublishedAt,
		Sentiment:            rv.Sentiment,
		Tags:                 datatypes.JSONSlice[string](rv.Tags),
		Response:             rv.Response,
		RespondedAt:          rv.RespondedAt,
		ReplyStatus:          statusColumn(rv.ReplyStatus),
		ReplyError:           rv.ReplyError,
		AISuggestions:        suggestions,
		ReplyStatusChangedAt: rv.ReplyStatusChangedAt,
	}
}

func reviewFromData(data *entities.ReviewData) *review.Review {
	rv := &review.Review{
		ID:                   data.ID,
		BusinessID:           data.BusinessID,
		LocationID:           data.LocationID,
		Platform:             data.Platform,
		ExternalID:           data.ExternalID,
		Author:               data.Author,
		Rating:               data.Rating,
		Content:              data.Content,
		PublishedAt:          data.PublishedAt,
		Sentiment:            data.Sentiment,
		Tags:                 []string(data.Tags),
		Response:             data.Response,
		RespondedAt:          data.RespondedAt,
		ReplyError:           data.ReplyError,
		ReplyStatusChangedAt: data.ReplyStatusChangedAt,
		CreatedAt:            data.CreatedAt,
		UpdatedAt:            data.UpdatedAt,
	}
	if data.SourceID != nil {
		rv.SourceID = *data.SourceID
	}
	if data.ReplyStatus != nil {
		rv.ReplyStatus = review.ReplyStatus(*data.ReplyStatus)
	}
	if len(data.AISuggestions) > 0 {
		var s review.Suggestions
		if err := json.Unmarshal(data.AISuggestions, &s); err == nil {
			rv.AISuggestions = &s
		}
	}
	return rv
}

func replyRecordFromData(data *entities.ReplyRecordData) *review.ReplyRecord {
	return &review.ReplyRecord{
		ID:         data.ID,
		ReviewID:   data.ReviewID,
		Content:    data.Content,
		AuthorType: review.AuthorType(data.AuthorType),
		SourceType: review.SourceType(data.SourceType),
		Status:     review.RecordStatus(data.Status),
		UserID:     data.UserID,
		Error:      data.Error,
		CreatedAt:  data.CreatedAt,
		UpdatedAt:  data.UpdatedAt,
	}
}
