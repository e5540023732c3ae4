package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// ChannelState keeps per-channel quiz state in Redis so cooldowns and topic
// rotation survive restarts and are shared across bot instances.
//
// Keys:
//
//	quiz:cooldown:{channelID}  SET NX PX window marker
//	quiz:topic:{channelID}     topic of the last posted question
type ChannelState struct {
	client   *redis.Client
	cooldown time.Duration
	topicTTL time.Duration
}

func NewChannelState(client *redis.Client, cooldown, topicTTL time.Duration) *ChannelState {
	return &ChannelState{client: client, cooldown: cooldown, topicTTL: topicTTL}
}

// AllowQuestion atomically claims the cooldown window for a channel. The
// SET NX call is the arbiter, so concurrent bot instances cannot both post.
func (c *ChannelState) AllowQuestion(ctx context.Context, channelID string) (bool, error) {
	return c.client.SetNX(ctx, c.cooldownKey(channelID), "1", c.cooldown).Result()
}

// ReleaseQuestion reopens the window claimed by AllowQuestion, used when the
// question could not actually be posted.
func (c *ChannelState) ReleaseQuestion(ctx context.Context, channelID string) error {
	return c.client.Del(ctx, c.cooldownKey(channelID)).Err()
}

func (c *ChannelState) LastTopic(ctx context.Context, channelID string) (string, error) {
	topic, err := c.client.Get(ctx, c.topicKey(channelID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return topic, err
}

func (c *ChannelState) SetLastTopic(ctx context.Context, channelID, topic string) error {
	return c.client.Set(ctx, c.topicKey(channelID), topic, c.topicTTL).Err()
}

func (c *ChannelState) cooldownKey(channelID string) string {
	return "quiz:cooldown:" + channelID
}

func (c *ChannelState) topicKey(channelID string) string {
	return "quiz:topic:" + channelID
}
