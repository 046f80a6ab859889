package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	perrors "github.com/p-blackswan/support-relay/internal/errors"
	"github.com/p-blackswan/support-relay/internal/retry"
	"github.com/p-blackswan/support-relay/internal/router"
)

const transferTargetOption = "staff"

// Commands returns the guild slash commands of the relay.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        router.CommandClaim,
			Description: "Claim this ticket",
		},
		{
			Name:        router.CommandTransfer,
			Description: "Transfer this ticket to another staff member",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        transferTargetOption,
					Description: "Staff member to transfer ticket to",
					Required:    true,
				},
			},
		},
		{
			Name:        router.CommandClose,
			Description: "Close this ticket",
		},
	}
}

func (a *App) handleInteraction(ctx context.Context, i *discordgo.Interaction) error {
	if i == nil || i.Type != discordgo.InteractionApplicationCommand {
		return nil
	}
	data := i.ApplicationCommandData()

	caller, err := a.member(ctx, i.GuildID, i.Member, i.User)
	if err != nil {
		return err
	}
	inv := router.Invocation{ChannelID: i.ChannelID, Caller: caller}
	resp := &interactionResponder{api: a.api, interaction: i}

	a.logger.Debug().
		Str("command", data.Name).
		Str("channel_id", i.ChannelID).
		Str("caller", caller.DisplayName).
		Msg("command invoked")

	switch data.Name {
	case router.CommandClaim:
		return a.router.Claim(ctx, inv, resp)
	case router.CommandTransfer:
		target, err := a.transferTarget(ctx, i.GuildID, data)
		if err != nil {
			return err
		}
		return a.router.Transfer(ctx, inv, target, resp)
	case router.CommandClose:
		return a.router.Close(ctx, inv, resp)
	default:
		a.logger.Warn().Str("command", data.Name).Msg("unknown command")
		return nil
	}
}

// member builds a router.Member. Outside a guild there are no roles.
func (a *App) member(ctx context.Context, guildID string, m *discordgo.Member, u *discordgo.User) (router.Member, error) {
	if m == nil {
		if u == nil {
			return router.Member{}, fmt.Errorf("interaction without user: %w", perrors.ErrInvalidInput)
		}
		return router.Member{User: toUser(u, nil)}, nil
	}
	if m.User != nil {
		u = m.User
	}
	if u == nil {
		return router.Member{}, fmt.Errorf("member without user: %w", perrors.ErrInvalidInput)
	}

	out := router.Member{
		User:          toUser(u, m),
		Administrator: m.Permissions&discordgo.PermissionAdministrator != 0,
	}
	for _, roleID := range m.Roles {
		name, err := a.roleName(ctx, guildID, roleID)
		if err != nil {
			return router.Member{}, err
		}
		out.Roles = append(out.Roles, router.Role{ID: roleID, Name: name})
	}
	return out, nil
}

// transferTarget resolves the staff option from the interaction's resolved data.
func (a *App) transferTarget(ctx context.Context, guildID string, data discordgo.ApplicationCommandInteractionData) (router.Member, error) {
	var userID string
	for _, opt := range data.Options {
		if opt.Name == transferTargetOption {
			if id, ok := opt.Value.(string); ok {
				userID = id
			}
		}
	}
	if userID == "" {
		return router.Member{}, fmt.Errorf("transfer without %s option: %w", transferTargetOption, perrors.ErrInvalidInput)
	}

	var (
		u *discordgo.User
		m *discordgo.Member
	)
	if data.Resolved != nil {
		u = data.Resolved.Users[userID]
		m = data.Resolved.Members[userID]
	}
	if u == nil {
		var err error
		u, err = a.fetchUser(ctx, userID)
		if err != nil {
			return router.Member{}, err
		}
	}
	return a.member(ctx, guildID, m, u)
}

// roleName looks a role up in the cache, the gateway state, then REST.
// Unknown roles resolve to an empty name.
func (a *App) roleName(ctx context.Context, guildID, roleID string) (string, error) {
	key := guildID + ":" + roleID
	if name, ok := a.roles.Get(key); ok {
		return name, nil
	}
	if a.state != nil {
		if role, err := a.state.Role(guildID, roleID); err == nil && role != nil {
			a.roles.Put(key, role.Name)
			return role.Name, nil
		}
	}

	roles, err := retry.Value(ctx, a.retry, func(ctx context.Context) ([]*discordgo.Role, error) {
		roles, err := a.api.GuildRoles(guildID, discordgo.WithContext(ctx))
		return roles, wrap("fetch roles", err)
	})
	if err != nil {
		return "", err
	}
	name := ""
	for _, role := range roles {
		a.roles.Put(guildID+":"+role.ID, role.Name)
		if role.ID == roleID {
			name = role.Name
		}
	}
	return name, nil
}

// interactionResponder answers a slash command.
type interactionResponder struct {
	api         API
	interaction *discordgo.Interaction
}

func (r *interactionResponder) Respond(ctx context.Context, reply router.Reply) error {
	data := &discordgo.InteractionResponseData{Content: reply.Content}
	if reply.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := r.api.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	}, discordgo.WithContext(ctx))
	return wrap("respond to interaction", err)
}
