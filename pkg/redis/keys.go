package redis

import "strings"

const namespace = "sb"

// key joins parts under the service namespace, skipping blanks.
func key(parts ...string) string {
	var b strings.Builder
	b.WriteString(namespace)
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			b.WriteByte(':')
			b.WriteString(part)
		}
	}
	return b.String()
}

// IdempotencyKey scopes a client supplied Idempotency-Key.
func (c *Client) IdempotencyKey(scope, id string) string { return key("idempotency", scope, id) }

// LockKey names a distributed job lock.
func (c *Client) LockKey(name string) string { return key("lock", name) }

// AccessSessionKey holds the session behind one access token id.
func (c *Client) AccessSessionKey(accessID string) string { return key("session", "access", accessID) }

// SubjectRevocationKey holds when a user's sessions were last revoked.
func (c *Client) SubjectRevocationKey(subject string) string { return key("session", "revoked", subject) }

// RealtimeChannel carries row inserts of one table for one owner.
func (c *Client) RealtimeChannel(ownerID, table string) string { return key("realtime", ownerID, table) }
