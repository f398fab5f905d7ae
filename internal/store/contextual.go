package store

import "sync"

// Contextual carries cross-page UI context: the profile a coach is
// currently looking at.
type Contextual struct {
	mu            sync.RWMutex
	userProfileID string
}

func (c *Contextual) SetUserProfileID(id string) {
	c.mu.Lock()
	c.userProfileID = id
	c.mu.Unlock()
}

func (c *Contextual) ClearUserProfileID() { c.SetUserProfileID("") }

// UserProfileID returns the selected profile ID and whether one is set.
func (c *Contextual) UserProfileID() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userProfileID, c.userProfileID != ""
}
