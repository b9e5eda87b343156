// Package session keeps refresh tokens in redis, one record per access
// token id (jti). A refresh rotates both the jti and the refresh token.
// RevokeSubject ends every session a user opened before it ran.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/siteboss-backend/pkg/config"
	redisclient "github.com/angelmondragon/siteboss-backend/pkg/redis"
)

const refreshTokenBytes = 32

var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	errNoAccessID = errors.New("access id is required")
)

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	AccessSessionKey(accessID string) string
	SubjectRevocationKey(subject string) string
}

// record is the redis value. Only a digest of the refresh token is kept,
// so a leaked dump cannot be replayed. SignedInAt survives rotation.
type record struct {
	TokenHash  string    `json:"token_sha256"`
	Subject    string    `json:"subject"`
	IssuedAt   time.Time `json:"issued_at"`
	SignedInAt time.Time `json:"signed_in_at"`
}

func (r record) signedIn() time.Time {
	if r.SignedInAt.IsZero() {
		return r.IssuedAt
	}
	return r.SignedInAt
}

func (r record) matches(token string) bool {
	want := digest(token)
	return r.TokenHash != "" && subtle.ConstantTimeCompare([]byte(r.TokenHash), []byte(want)) == 1
}

// Rotation is what a successful refresh hands back.
type Rotation struct {
	AccessID     string
	RefreshToken string
	Subject      string
}

type Manager struct {
	store sessionStore
	keyer sessionKeyer
	ttl   time.Duration
	now   func() time.Time
}

// AccessSessionChecker is the read side the auth middleware needs.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// NewManager requires the refresh TTL to outlive the access token, or a
// client could be left holding a valid jwt with no way to renew it.
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	ttl := cfg.RefreshTokenTTL()
	access := time.Duration(cfg.ExpirationMinutes) * time.Minute
	switch {
	case ttl <= 0:
		return nil, errors.New("refresh token ttl must be positive")
	case ttl <= access:
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", ttl, access)
	}
	return &Manager{store: client, keyer: client, ttl: ttl, now: time.Now}, nil
}

// NewAccessID mints the jti that doubles as the session key.
func NewAccessID() string {
	return uuid.NewString()
}

// Generate opens a session for accessID owned by subject and returns its
// refresh token.
func (m *Manager) Generate(ctx context.Context, accessID, subject string) (string, error) {
	switch {
	case strings.TrimSpace(accessID) == "":
		return "", errNoAccessID
	case strings.TrimSpace(subject) == "":
		return "", errors.New("subject is required")
	}
	return m.open(ctx, accessID, subject, m.now().UTC())
}

// Rotate trades a refresh token for a new session of the same subject.
// The old session is deleted, so each refresh token works once.
func (m *Manager) Rotate(ctx context.Context, oldAccessID, provided string) (Rotation, error) {
	if strings.TrimSpace(oldAccessID) == "" || strings.TrimSpace(provided) == "" {
		return Rotation{}, ErrInvalidRefreshToken
	}
	oldKey := m.keyer.AccessSessionKey(oldAccessID)
	current, err := m.load(ctx, oldKey)
	if err != nil {
		return Rotation{}, err
	}
	if !current.matches(provided) {
		return Rotation{}, ErrInvalidRefreshToken
	}
	live, err := m.live(ctx, current)
	if err != nil {
		return Rotation{}, err
	}
	if !live {
		_ = m.store.Del(ctx, oldKey)
		return Rotation{}, ErrInvalidRefreshToken
	}

	next := Rotation{AccessID: NewAccessID(), Subject: current.Subject}
	if next.RefreshToken, err = m.open(ctx, next.AccessID, current.Subject, current.signedIn()); err != nil {
		return Rotation{}, err
	}
	if err := m.store.Del(ctx, oldKey); err != nil {
		return Rotation{}, err
	}
	return next, nil
}

// Revoke ends the session of accessID. Unknown ids are not an error.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return errNoAccessID
	}
	return m.store.Del(ctx, m.keyer.AccessSessionKey(accessID))
}

// RevokeSubject ends every session subject signed in to so far, rotated
// ones included. The mark outlives any session it could cover.
func (m *Manager) RevokeSubject(ctx context.Context, subject string) error {
	if strings.TrimSpace(subject) == "" {
		return errors.New("subject is required")
	}
	cut := m.now().UTC().Format(time.RFC3339Nano)
	return m.store.Set(ctx, m.keyer.SubjectRevocationKey(subject), cut, m.ttl)
}

func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, errNoAccessID
	}
	rec, err := m.load(ctx, m.keyer.AccessSessionKey(accessID))
	switch {
	case errors.Is(err, ErrInvalidRefreshToken):
		return false, nil
	case err != nil:
		return false, err
	}
	return m.live(ctx, rec)
}

// live reports whether rec was opened after the last RevokeSubject of its
// subject.
func (m *Manager) live(ctx context.Context, rec record) (bool, error) {
	raw, err := m.store.Get(ctx, m.keyer.SubjectRevocationKey(rec.Subject))
	switch {
	case redisclient.IsMissing(err):
		return true, nil
	case err != nil:
		return false, err
	}
	cut, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return false, fmt.Errorf("decode revocation of %s: %w", rec.Subject, err)
	}
	return rec.signedIn().After(cut), nil
}

func (m *Manager) open(ctx context.Context, accessID, subject string, signedIn time.Time) (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("refresh token entropy: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)

	raw, err := json.Marshal(record{TokenHash: digest(token), Subject: subject, IssuedAt: m.now().UTC(), SignedInAt: signedIn})
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}
	if err := m.store.Set(ctx, m.keyer.AccessSessionKey(accessID), string(raw), m.ttl); err != nil {
		return "", err
	}
	return token, nil
}

func (m *Manager) load(ctx context.Context, key string) (record, error) {
	raw, err := m.store.Get(ctx, key)
	switch {
	case redisclient.IsMissing(err):
		return record{}, ErrInvalidRefreshToken
	case err != nil:
		return record{}, err
	}
	var rec record
	if json.Unmarshal([]byte(raw), &rec) != nil || rec.TokenHash == "" {
		return record{}, ErrInvalidRefreshToken
	}
	return rec, nil
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
