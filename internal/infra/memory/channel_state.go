package memory

import (
	"context"
	"sync"
	"time"
)

// ChannelState tracks per-channel question cooldowns and the topic of the
// last posted question. Used when Redis is not configured.
type ChannelState struct {
	cooldown time.Duration
	clock    func() time.Time

	mu     sync.Mutex
	until  map[string]time.Time
	topics map[string]string
}

func NewChannelState(cooldown time.Duration) *ChannelState {
	return &ChannelState{
		cooldown: cooldown,
		clock:    time.Now,
		until:    make(map[string]time.Time),
		topics:   make(map[string]string),
	}
}

// AllowQuestion reports whether a new question may be posted in the channel
// and, when allowed, starts the next cooldown window.
func (c *ChannelState) AllowQuestion(_ context.Context, channelID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock()
	if deadline, ok := c.until[channelID]; ok && now.Before(deadline) {
		return false, nil
	}
	c.until[channelID] = now.Add(c.cooldown)
	return true, nil
}

// ReleaseQuestion reopens the window claimed by AllowQuestion, used when the
// question could not actually be posted.
func (c *ChannelState) ReleaseQuestion(_ context.Context, channelID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.until, channelID)
	return nil
}

func (c *ChannelState) LastTopic(_ context.Context, channelID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.topics[channelID], nil
}

func (c *ChannelState) SetLastTopic(_ context.Context, channelID, topic string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topics[channelID] = topic
	return nil
}
