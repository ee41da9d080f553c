package rollover

import "sync"

// ClaimSource identifies which evening trigger holds the session claim.
type ClaimSource int

const (
	ClaimNone ClaimSource = iota
	ClaimNotification
	ClaimAppOpen
)

// SessionClaim prevents the two evening triggers (notification tap and
// app-open detection) from both activating in one session. The first
// Claim wins; the other source is blocked until Release. One instance
// lives per chat session and is threaded through both trigger call sites.
type SessionClaim struct {
	mu     sync.Mutex
	holder ClaimSource
}

func NewSessionClaim() *SessionClaim {
	return &SessionClaim{}
}

// Claim attempts to take the session for the given source. It returns
// true if the source now holds the claim, including when it already did.
func (c *SessionClaim) Claim(source ClaimSource) bool {
	if source == ClaimNone {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.holder == ClaimNone || c.holder == source {
		c.holder = source
		return true
	}
	return false
}

// ClaimedBy reports whether the given source currently holds the claim.
func (c *SessionClaim) ClaimedBy(source ClaimSource) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.holder == source
}

// Release clears the claim so a later independent trigger in the same
// session is not blocked forever.
func (c *SessionClaim) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.holder = ClaimNone
}
