package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/p-blackswan/support-relay/internal/retry"
	"github.com/p-blackswan/support-relay/internal/router"
)

type channelKind int

const (
	kindOther channelKind = iota
	kindDM
	kindThread
)

func kindOf(ch *discordgo.Channel) channelKind {
	switch ch.Type {
	case discordgo.ChannelTypeDM, discordgo.ChannelTypeGroupDM:
		return kindDM
	case discordgo.ChannelTypeGuildPublicThread,
		discordgo.ChannelTypeGuildPrivateThread,
		discordgo.ChannelTypeGuildNewsThread:
		return kindThread
	default:
		return kindOther
	}
}

// channelKind resolves a channel through the cache, the gateway state, then REST.
func (a *App) channelKind(ctx context.Context, channelID string) (channelKind, error) {
	if k, ok := a.channels.Get(channelID); ok {
		return k, nil
	}
	var ch *discordgo.Channel
	if a.state != nil {
		ch, _ = a.state.Channel(channelID)
	}
	if ch == nil {
		var err error
		ch, err = retry.Value(ctx, a.retry, func(ctx context.Context) (*discordgo.Channel, error) {
			ch, err := a.api.Channel(channelID, discordgo.WithContext(ctx))
			return ch, wrap("fetch channel", err)
		})
		if err != nil {
			return kindOther, err
		}
	}
	k := kindOf(ch)
	a.channels.Put(channelID, k)
	return k, nil
}

func (a *App) handleMessage(ctx context.Context, m *discordgo.Message) error {
	if m == nil || m.Author == nil || m.Author.ID == a.self() {
		return nil
	}

	if m.GuildID == "" {
		return a.router.HandleDirectMessage(ctx, router.DirectMessage{
			ChannelID: m.ChannelID,
			MessageID: m.ID,
			Author:    toUser(m.Author, nil),
			Content:   m.Content,
		})
	}

	if m.GuildID != a.guildID {
		return nil
	}
	kind, err := a.channelKind(ctx, m.ChannelID)
	if err != nil {
		return err
	}
	if kind != kindThread {
		return nil
	}
	return a.router.HandleThreadMessage(ctx, router.ThreadMessage{
		ThreadID:  m.ChannelID,
		MessageID: m.ID,
		Author:    toUser(m.Author, m.Member),
		Content:   m.Content,
	})
}

func (a *App) handleReaction(ctx context.Context, r *discordgo.MessageReaction, member *discordgo.Member) error {
	if r == nil || r.UserID == a.self() {
		return nil
	}

	loc := router.LocationOther
	switch {
	case r.GuildID == "":
		loc = router.LocationDM
	case r.GuildID == a.guildID:
		kind, err := a.channelKind(ctx, r.ChannelID)
		if err != nil {
			return err
		}
		if kind == kindThread {
			loc = router.LocationThread
		}
	}
	if loc == router.LocationOther {
		return nil
	}

	var reactor router.User
	if member != nil && member.User != nil {
		reactor = toUser(member.User, member)
	} else {
		u, err := a.fetchUser(ctx, r.UserID)
		if err != nil {
			return err
		}
		reactor = toUser(u, nil)
	}
	if reactor.Bot {
		return nil
	}

	msg, err := retry.Value(ctx, a.retry, func(ctx context.Context) (*discordgo.Message, error) {
		msg, err := a.api.ChannelMessage(r.ChannelID, r.MessageID, discordgo.WithContext(ctx))
		return msg, wrap("fetch message", err)
	})
	if err != nil {
		return err
	}

	return a.router.HandleReaction(ctx, router.Reaction{
		ChannelID:      r.ChannelID,
		Location:       loc,
		Reactor:        reactor,
		Emoji:          r.Emoji.MessageFormat(),
		MessageContent: msg.Content,
	})
}

func (a *App) fetchUser(ctx context.Context, userID string) (*discordgo.User, error) {
	return retry.Value(ctx, a.retry, func(ctx context.Context) (*discordgo.User, error) {
		u, err := a.api.User(userID, discordgo.WithContext(ctx))
		return u, wrap("fetch user", err)
	})
}

// toUser converts a discordgo user. Display name prefers the guild nickname,
// then the global name, then the account name.
func toUser(u *discordgo.User, m *discordgo.Member) router.User {
	out := router.User{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.Username,
		Bot:         u.Bot,
	}
	if u.GlobalName != "" {
		out.DisplayName = u.GlobalName
	}
	if m != nil && m.Nick != "" {
		out.DisplayName = m.Nick
	}
	return out
}
