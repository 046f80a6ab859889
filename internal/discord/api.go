// Package discord connects the ticket router to Discord through discordgo:
// it translates gateway events into router calls and implements the
// router's Platform on top of the REST API.
package discord

import (
	"errors"

	"github.com/bwmarrin/discordgo"

	perrors "github.com/p-blackswan/support-relay/internal/errors"
)

// API abstracts the discordgo session for testing.
type API interface {
	ThreadStartComplex(channelID string, data *discordgo.ThreadStart, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelDelete(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	ApplicationCommandBulkOverwrite(appID, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

var _ API = (*discordgo.Session)(nil)

// Intents the relay needs: DMs and guild messages with content, reactions
// on both, and members for nicknames and roles.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildMessageReactions |
	discordgo.IntentsDirectMessages |
	discordgo.IntentsDirectMessageReactions |
	discordgo.IntentsMessageContent

// NewSession creates a bot session with the relay's intents.
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, perrors.NewPlatformError("create session", 0, err)
	}
	s.Identify.Intents = Intents
	return s, nil
}

// wrap tags a discordgo error with the failed operation and HTTP status.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	status := 0
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		status = restErr.Response.StatusCode
	}
	return perrors.NewPlatformError(op, status, err)
}
