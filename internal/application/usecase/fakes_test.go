package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/business"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/connection"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/review"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/synclog"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr[T any](v T) *T { return &v }

// memReviews mimics the gorm repository: rows are copied in and out and
// SaveReplyState refuses to overwrite a terminal row.
type memReviews struct {
	mu     sync.Mutex
	rows   map[string]*review.Review
	nextID int
}

func newMemReviews(seed ...*review.Review) *memReviews {
	m := &memReviews{rows: make(map[string]*review.Review)}
	for _, r := range seed {
		c := *r
		m.rows[r.ID] = &c
	}
	return m
}

func (m *memReviews) get(id string) *review.Review {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *m.rows[id]
	return &c
}

func (m *memReviews) FindByID(_ context.Context, id string) (*review.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, review.ErrNotFound
	}
	c := *r
	return &c, nil
}

func (m *memReviews) FindByExternalID(_ context.Context, platform, externalID, locationID string) (*review.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.Platform == platform && r.ExternalID == externalID && r.LocationID == locationID {
			c := *r
			return &c, nil
		}
	}
	return nil, review.ErrNotFound
}

func (m *memReviews) Create(_ context.Context, r *review.Review) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.rows {
		if existing.Platform == r.Platform && existing.ExternalID == r.ExternalID && existing.LocationID == r.LocationID {
			return false, nil
		}
	}
	m.nextID++
	r.ID = fmt.Sprintf("rev-%03d", m.nextID)
	c := *r
	m.rows[r.ID] = &c
	return true, nil
}

func (m *memReviews) UpdateIngested(_ context.Context, r *review.Review, includeReply bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := m.rows[r.ID]
	stored.Author, stored.Rating, stored.Content, stored.PublishedAt = r.Author, r.Rating, r.Content, r.PublishedAt
	stored.Sentiment, stored.SourceID, stored.Tags = r.Sentiment, r.SourceID, r.Tags
	if includeReply {
		stored.Response, stored.RespondedAt = r.Response, r.RespondedAt
	}
	return nil
}

func (m *memReviews) SaveReplyState(_ context.Context, r *review.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.rows[r.ID]
	if !ok {
		return review.ErrNotFound
	}
	if stored.ReplyStatus.IsTerminal() {
		return fmt.Errorf("%w: review %s is already %s", review.ErrInvalidTransition, r.ID, stored.ReplyStatus)
	}
	stored.ReplyStatus = r.ReplyStatus
	stored.Response = r.Response
	stored.RespondedAt = r.RespondedAt
	stored.ReplyError = r.ReplyError
	stored.AISuggestions = r.AISuggestions
	stored.ReplyStatusChangedAt = r.ReplyStatusChangedAt
	return nil
}

func (m *memReviews) FindByStatus(_ context.Context, f review.Filter) ([]*review.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*review.Review
	for _, r := range m.rows {
		if r.ReplyStatus != f.Status || (f.BusinessID != "" && r.BusinessID != f.BusinessID) || r.ID <= f.AfterID {
			continue
		}
		if !f.ChangedBefore.IsZero() && (r.ReplyStatusChangedAt == nil || !r.ReplyStatusChangedAt.Before(f.ChangedBefore)) {
			continue
		}
		c := *r
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memReviews) CountRepliedSince(_ context.Context, businessID, locationID string, since time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.rows {
		if r.BusinessID != businessID || r.LocationID != locationID {
			continue
		}
		if r.ReplyStatus != review.StatusApproved && r.ReplyStatus != review.StatusPosted {
			continue
		}
		if r.ReplyStatusChangedAt != nil && !r.ReplyStatusChangedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *memReviews) ListBusinessesWithPendingReplies(context.Context, string, int) ([]string, error) {
	return nil, nil
}

type memReplies struct {
	mu      sync.Mutex
	records []*review.ReplyRecord
	clock   int
}

func (m *memReplies) Create(_ context.Context, record *review.ReplyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock++
	record.ID = fmt.Sprintf("reply-%d", m.clock)
	record.CreatedAt = time.Unix(int64(m.clock), 0)
	c := *record
	m.records = append(m.records, &c)
	return nil
}

func (m *memReplies) UpdateStatus(_ context.Context, id string, status review.RecordStatus, errMessage *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.ID == id {
			if r.Status == review.RecordPosted {
				return review.ErrInvalidTransition
			}
			r.Status = status
			r.Error = errMessage
			return nil
		}
	}
	return review.ErrNotFound
}

func (m *memReplies) FindLatestOpen(_ context.Context, reviewID string) (*review.ReplyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.records) - 1; i >= 0; i-- {
		r := m.records[i]
		if r.ReviewID == reviewID && (r.Status == review.RecordDraft || r.Status == review.RecordApproved) {
			c := *r
			return &c, nil
		}
	}
	return nil, review.ErrNotFound
}

func (m *memReplies) ListByReview(_ context.Context, reviewID string) ([]*review.ReplyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*review.ReplyRecord
	for _, r := range m.records {
		if r.ReviewID == reviewID {
			c := *r
			out = append(out, &c)
		}
	}
	return out, nil
}

type memConnections struct {
	mu     sync.Mutex
	rows   map[string]*connection.Connection
	marked map[string]string
	// beforeUpdate runs inside UpdateTokenIfUnchanged to simulate a racing writer.
	beforeUpdate func(stored *connection.Connection)
}

func newMemConnections(seed ...*connection.Connection) *memConnections {
	m := &memConnections{rows: make(map[string]*connection.Connection), marked: make(map[string]string)}
	for _, c := range seed {
		cp := *c
		m.rows[c.ID] = &cp
	}
	return m
}

func (m *memConnections) FindByID(_ context.Context, id string) (*connection.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok {
		return nil, connection.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memConnections) FindActiveByLocation(_ context.Context, locationID string) ([]*connection.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*connection.Connection
	for _, c := range m.rows {
		if c.LocationID == locationID && c.Status != connection.StatusDisconnected {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memConnections) ListActiveLocations(_ context.Context, after string, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, c := range m.rows {
		if c.Status != connection.StatusDisconnected && c.LocationID > after && !seen[c.LocationID] {
			seen[c.LocationID] = true
			out = append(out, c.LocationID)
		}
	}
	sort.Strings(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memConnections) UpdateTokenIfUnchanged(_ context.Context, conn *connection.Connection, stale string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := m.rows[conn.ID]
	if m.beforeUpdate != nil {
		m.beforeUpdate(stored)
	}
	if stored.AccessToken != stale {
		return false, nil
	}
	cp := *conn
	m.rows[conn.ID] = &cp
	return true, nil
}

func (m *memConnections) MarkError(_ context.Context, id, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marked[id] = message
	if c, ok := m.rows[id]; ok {
		c.Status = connection.StatusError
		c.LastError = &message
	}
	return nil
}

type memSyncLogs struct {
	mu      sync.Mutex
	entries []*synclog.SyncLog
}

func (m *memSyncLogs) Append(_ context.Context, log *synclog.SyncLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, log)
	return nil
}

type staticBusinesses map[string]*business.Profile

func (s staticBusinesses) FindProfile(_ context.Context, businessID string) (*business.Profile, error) {
	return s[businessID], nil
}

type memLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func newMemLocker() *memLocker { return &memLocker{held: make(map[string]bool)} }

func (l *memLocker) Acquire(_ context.Context, key string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func (l *memLocker) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}

func (l *memLocker) Close() error { return nil }

func (l *memLocker) Ping(context.Context) error { return nil }
