package connection

//go:generate mockgen -source=connection.go -destination=../../mocks/mock_connection.go -package=mocks -exclude_interfaces=Repository

import (
	"context"
	"errors"
	"time"
)

type Status string

const (
	StatusActive       Status = "active"
	StatusError        Status = "error"
	StatusDisconnected Status = "disconnected"
)

const (
	PlatformGoogle   = "google"
	PlatformFacebook = "facebook"
)

// Metadata keys written by the OAuth bootstrap.
const (
	MetadataAccountID       = "account_id"
	MetadataLocationID      = "location_id"
	MetadataPageID          = "page_id"
	MetadataUserAccessToken = "user_access_token"
)

var (
	ErrNotFound           = errors.New("connection not found")
	ErrDisconnected       = errors.New("connection is disconnected")
	ErrTokenRefreshFailed = errors.New("token refresh failed")
)

// renewalKeys names, per platform, the metadata entry that holds the credential
// used to mint the next access token. Platforms not listed renew with the
// connection's refresh token.
var renewalKeys = map[string]string{
	PlatformFacebook: MetadataUserAccessToken,
}

// Connection is an OAuth-authorized binding between a location and an account
// on an external review platform.
type Connection struct {
	ID           string
	BusinessID   string
	LocationID   string
	Platform     string
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
	Metadata     map[string]string
	Status       Status
	LastError    *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Token is the result of a successful credential refresh.
type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	// RenewalKey is set when the platform rotated a renewal credential that is
	// stored outside RefreshToken (e.g. a page's long-lived user token).
	RenewalKey string
}

type Refresher interface {
	Refresh(ctx context.Context, renewalKey string, conn *Connection) (*Token, error)
}

type Repository interface {
	FindByID(ctx context.Context, id string) (*Connection, error)
	FindActiveByLocation(ctx context.Context, locationID string) ([]*Connection, error)
	// ListActiveLocations pages through location ids having at least one
	// active connection, ordered by id.
	ListActiveLocations(ctx context.Context, afterLocationID string, limit int) ([]string, error)
	// UpdateTokenIfUnchanged stores the credentials of conn only if the row
	// still carries staleAccessToken, reporting whether the write happened.
	UpdateTokenIfUnchanged(ctx context.Context, conn *Connection, staleAccessToken string) (bool, error)
	// MarkError flags the connection without touching its credentials.
	MarkError(ctx context.Context, id string, message string) error
}

func (c *Connection) Meta(key string) string {
	if c.Metadata == nil {
		return ""
	}
	return c.Metadata[key]
}

// RenewalKey returns the credential that must be presented to the platform to
// obtain a fresh access token.
func (c *Connection) RenewalKey() string {
	if key, ok := renewalKeys[c.Platform]; ok {
		return c.Meta(key)
	}
	return c.RefreshToken
}

// NeedsRefresh reports whether the access token must be renewed before use.
// Connections without a renewal key or without an expiry are used as-is.
func (c *Connection) NeedsRefresh(now time.Time, margin time.Duration) bool {
	if c.RenewalKey() == "" || c.ExpiresAt == nil {
		return false
	}
	return now.After(c.ExpiresAt.Add(-margin))
}

// ApplyToken copies a refreshed token onto the connection and reactivates it.
func (c *Connection) ApplyToken(t *Token) {
	c.AccessToken = t.AccessToken
	if t.RefreshToken != "" {
		c.RefreshToken = t.RefreshToken
	}
	if !t.ExpiresAt.IsZero() {
		expiresAt := t.ExpiresAt
		c.ExpiresAt = &expiresAt
	}
	if key, ok := renewalKeys[c.Platform]; ok && t.RenewalKey != "" {
		if c.Metadata == nil {
			c.Metadata = make(map[string]string)
		}
		c.Metadata[key] = t.RenewalKey
	}
	c.Status = StatusActive
	c.LastError = nil
}
