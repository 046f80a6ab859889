package router

import (
	"context"
	"time"
)

// User is a Discord account as seen by the router.
type User struct {
	ID          string
	Username    string // account name, used for thread names and user-facing notices
	DisplayName string // guild nickname, falling back to the global name, then Username
	Bot         bool
}

// Role is a guild role held by a member.
type Role struct {
	ID   string
	Name string
}

// Member is a guild member with the bits the permission checks need.
type Member struct {
	User
	Roles         []Role
	Administrator bool
}

// DirectMessage is a message sent to the bot in a DM channel.
type DirectMessage struct {
	ChannelID string
	MessageID string
	Author    User
	Content   string
}

// ThreadMessage is a message posted inside a guild thread.
type ThreadMessage struct {
	ThreadID  string
	MessageID string
	Author    User
	Content   string
}

// Location says where a reacted-to message lives.
type Location int

const (
	LocationOther Location = iota
	LocationDM
	LocationThread
)

// Reaction is a reaction added to a message.
type Reaction struct {
	ChannelID      string
	Location       Location
	Reactor        User
	Emoji          string
	MessageContent string // text of the reacted-to message
}

// Invocation is a slash command call.
type Invocation struct {
	ChannelID string
	Caller    Member
}

// Reply answers a slash command. Ephemeral replies are visible to the caller only.
type Reply struct {
	Content   string
	Ephemeral bool
}

// Responder answers the interaction that triggered a command.
type Responder interface {
	Respond(ctx context.Context, reply Reply) error
}

// Platform is the chat platform the router drives.
type Platform interface {
	CreatePrivateThread(ctx context.Context, parentChannelID, name string) (threadID string, err error)
	SendMessage(ctx context.Context, channelID, content string) (messageID string, err error)
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	SendDirect(ctx context.Context, userID, content string) error
	DeleteChannel(ctx context.Context, channelID string) error
}

// Config is the router's view of the deployment settings.
type Config struct {
	SupportChannelID string
	SupportRoleID    string
	SupportRoleName  string
	ServerName       string
	WarningTTL       time.Duration
}
