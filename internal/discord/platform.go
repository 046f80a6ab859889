package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/p-blackswan/support-relay/internal/lru"
	"github.com/p-blackswan/support-relay/internal/retry"
	"github.com/p-blackswan/support-relay/internal/router"
)

// Private ticket threads archive after a day of inactivity.
const threadArchiveMinutes = 1440

// Platform implements router.Platform on the Discord REST API.
type Platform struct {
	api   API
	dms   *lru.Cache[string, string] // user id -> DM channel id
	retry retry.Config
}

var _ router.Platform = (*Platform)(nil)

// NewPlatform creates a Platform.
func NewPlatform(api API) *Platform {
	return &Platform{
		api:   api,
		dms:   lru.New[string, string](1024, 0),
		retry: retry.DefaultConfig(),
	}
}

// CreatePrivateThread starts a private thread under parentChannelID.
func (p *Platform) CreatePrivateThread(ctx context.Context, parentChannelID, name string) (string, error) {
	ch, err := p.api.ThreadStartComplex(parentChannelID, &discordgo.ThreadStart{
		Name:                name,
		Type:                discordgo.ChannelTypeGuildPrivateThread,
		AutoArchiveDuration: threadArchiveMinutes,
		Invitable:           true,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", wrap("create thread", err)
	}
	return ch.ID, nil
}

// SendMessage posts content to a channel or thread.
func (p *Platform) SendMessage(ctx context.Context, channelID, content string) (string, error) {
	msg, err := p.api.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	if err != nil {
		return "", wrap("send message", err)
	}
	return msg.ID, nil
}

// DeleteMessage removes a message.
func (p *Platform) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return wrap("delete message", p.api.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)))
}

// SendDirect DMs a user, opening the DM channel on first use. Opening the
// channel is idempotent and retried; the send itself is not.
func (p *Platform) SendDirect(ctx context.Context, userID, content string) error {
	channelID, ok := p.dms.Get(userID)
	if !ok {
		ch, err := retry.Value(ctx, p.retry, func(ctx context.Context) (*discordgo.Channel, error) {
			ch, err := p.api.UserChannelCreate(userID, discordgo.WithContext(ctx))
			return ch, wrap("open DM", err)
		})
		if err != nil {
			return err
		}
		channelID = ch.ID
		p.dms.Put(userID, channelID)
	}
	if _, err := p.api.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx)); err != nil {
		p.dms.Delete(userID)
		return wrap("send DM", err)
	}
	return nil
}

// DeleteChannel deletes a channel or thread.
func (p *Platform) DeleteChannel(ctx context.Context, channelID string) error {
	_, err := p.api.ChannelDelete(channelID, discordgo.WithContext(ctx))
	return wrap("delete channel", err)
}
