package adapter

import (
	"context"
	"time"

	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/connection"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/synclog"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/pkg/entities"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type GormConnectionRepository struct {
	db *gorm.DB
}

func NewGormConnectionRepository(database *gorm.DB) *GormConnectionRepository {
	return &GormConnectionRepository{db: database}
}

func (r *GormConnectionRepository) FindByID(ctx context.Context, id string) (*connection.Connection, error) {
	var data entities.ReviewSourceData
	if err := r.db.WithContext(ctx).First(&data, "id = ?", id).Error; err != nil {
		return nil, translateNotFound(err, connection.ErrNotFound)
	}
	return connectionFromData(&data), nil
}

func (r *GormConnectionRepository) FindActiveByLocation(ctx context.Context, locationID string) ([]*connection.Connection, error) {
	var rows []entities.ReviewSourceData
	err := r.db.WithContext(ctx).
		Where("location_id = ? AND status = ?", locationID, string(connection.StatusActive)).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	conns := make([]*connection.Connection, len(rows))
	for i := range rows {
		conns[i] = connectionFromData(&rows[i])
	}
	return conns, nil
}

func (r *GormConnectionRepository) ListActiveLocations(ctx context.Context, afterLocationID string, limit int) ([]string, error) {
	query := r.db.WithContext(ctx).Model(&entities.ReviewSourceData{}).
		Distinct("location_id").
		Where("status = ?", string(connection.StatusActive))
	if afterLocationID != "" {
		query = query.Where("location_id > ?", afterLocationID)
	}
	var ids []string
	err := query.Order("location_id ASC").Limit(limit).Pluck("location_id", &ids).Error
	return ids, err
}

// UpdateTokenIfUnchanged is a compare-and-swap on access_token: when two
// callers refresh concurrently only the first write lands.
func (r *GormConnectionRepository) UpdateTokenIfUnchanged(ctx context.Context, conn *connection.Connection, staleAccessToken string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&entities.ReviewSourceData{}).
		Where("id = ? AND access_token = ?", conn.ID, staleAccessToken).
		Updates(map[string]any{
			"access_token":  conn.AccessToken,
			"refresh_token": nullableString(conn.RefreshToken),
			"expires_at":    conn.ExpiresAt,
			"metadata":      datatypes.NewJSONType(conn.Metadata),
			"status":        string(conn.Status),
			"last_error":    nil,
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormConnectionRepository) MarkError(ctx context.Context, id string, message string) error {
	return r.db.WithContext(ctx).Model(&entities.ReviewSourceData{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     string(connection.StatusError),
			"last_error": message,
			"updated_at": time.Now(),
		}).Error
}

func connectionFromData(data *entities.ReviewSourceData) *connection.Connection {
	conn := &connection.Connection{
		ID:          data.ID,
		BusinessID:  data.BusinessID,
		LocationID:  data.LocationID,
		Platform:    data.Platform,
		AccessToken: data.AccessToken,
		ExpiresAt:   data.ExpiresAt,
		Metadata:    data.Metadata.Data(),
		Status:      connection.Status(data.Status),
		LastError:   data.LastError,
		CreatedAt:   data.CreatedAt,
		UpdatedAt:   data.UpdatedAt,
	}
	if data.RefreshToken != nil {
		conn.RefreshToken = *data.RefreshToken
	}
	return conn
}

type GormSyncLogRepository struct {
	db *gorm.DB
}

func NewGormSyncLogRepository(database *gorm.DB) *GormSyncLogRepository {
	return &GormSyncLogRepository{db: database}
}

func (r *GormSyncLogRepository) Append(ctx context.Context, log *synclog.SyncLog) error {
	data := &entities.SyncLogData{
		ID:               log.ID,
		SourceID:         log.SourceID,
		LocationID:       log.LocationID,
		Platform:         log.Platform,
		Status:           string(log.Status),
		ReviewsSynced:    log.ReviewsSynced,
		ReviewsFailed:    log.ReviewsFailed,
		ErrorMessage:     log.ErrorMessage,
		ErrorStack:       log.ErrorStack,
		RequestSnapshot:  datatypes.JSONMap(log.RequestSnapshot),
		ResponseSnapshot: datatypes.JSONMap(log.ResponseSnapshot),
		StartedAt:        log.StartedAt,
		FinishedAt:       log.FinishedAt,
		DurationMs:       log.DurationMs,
	}
	if err := r.db.WithContext(ctx).Create(data).Error; err != nil {
		return err
	}
	log.ID = data.ID
	return nil
}
