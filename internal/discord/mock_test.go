package discord

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/p-blackswan/support-relay/internal/router"
)

// mockAPI implements API for testing.
type mockAPI struct {
	mu sync.Mutex

	channels map[string]*discordgo.Channel
	users    map[string]*discordgo.User
	messages map[string]*discordgo.Message
	roles    []*discordgo.Role

	threadStarts   []*discordgo.ThreadStart
	sent           []sentMessage
	deleted        []string
	dmOpens        []string
	channelDeletes []string
	responses      []*discordgo.InteractionResponse
	registered     []*discordgo.ApplicationCommand
	registerApp    string
	registerGuild  string

	channelFetches int
	roleFetches    int
	sendErr        error
	channelErrs    []error // returned by Channel in order before succeeding
}

type sentMessage struct {
	ChannelID string
	Content   string
}

func newMockAPI() *mockAPI {
	return &mockAPI{
		channels: make(map[string]*discordgo.Channel),
		users:    make(map[string]*discordgo.User),
		messages: make(map[string]*discordgo.Message),
	}
}

func notFound(what string) error {
	return &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusNotFound},
		Message:  &discordgo.APIErrorMessage{Code: 10003, Message: "Unknown " + what},
	}
}

func serverError() error {
	return &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusBadGateway},
		Message:  &discordgo.APIErrorMessage{Message: "upstream unavailable"},
	}
}

func (m *mockAPI) ThreadStartComplex(channelID string, data *discordgo.ThreadStart, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threadStarts = append(m.threadStarts, data)
	return &discordgo.Channel{ID: fmt.Sprintf("thread-%d", len(m.threadStarts)), ParentID: channelID, Type: data.Type}, nil
}

func (m *mockAPI) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	m.sent = append(m.sent, sentMessage{ChannelID: channelID, Content: content})
	return &discordgo.Message{ID: fmt.Sprintf("msg-%d", len(m.sent)), ChannelID: channelID}, nil
}

func (m *mockAPI) ChannelMessageDelete(channelID, messageID string, _ ...discordgo.RequestOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, channelID+"/"+messageID)
	return nil
}

func (m *mockAPI) ChannelMessage(channelID, messageID string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[messageID]
	if !ok {
		return nil, notFound("message")
	}
	return msg, nil
}

func (m *mockAPI) UserChannelCreate(recipientID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dmOpens = append(m.dmOpens, recipientID)
	return &discordgo.Channel{ID: "dm-" + recipientID, Type: discordgo.ChannelTypeDM}, nil
}

func (m *mockAPI) ChannelDelete(channelID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channelDeletes = append(m.channelDeletes, channelID)
	return &discordgo.Channel{ID: channelID}, nil
}

func (m *mockAPI) Channel(channelID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channelFetches++
	if len(m.channelErrs) > 0 {
		err := m.channelErrs[0]
		m.channelErrs = m.channelErrs[1:]
		return nil, err
	}
	ch, ok := m.channels[channelID]
	if !ok {
		return nil, notFound("channel")
	}
	return ch, nil
}

func (m *mockAPI) User(userID string, _ ...discordgo.RequestOption) (*discordgo.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, notFound("user")
	}
	return u, nil
}

func (m *mockAPI) GuildRoles(_ string, _ ...discordgo.RequestOption) ([]*discordgo.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roleFetches++
	return m.roles, nil
}

func (m *mockAPI) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
	return nil
}

func (m *mockAPI) ApplicationCommandBulkOverwrite(appID, guildID string, commands []*discordgo.ApplicationCommand, _ ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registerApp = appID
	m.registerGuild = guildID
	m.registered = commands
	return commands, nil
}

// recordingRouter implements TicketRouter for testing.
type recordingRouter struct {
	dms       []router.DirectMessage
	threads   []router.ThreadMessage
	reactions []router.Reaction
	claims    []router.Invocation
	transfers []router.Member
	closes    []router.Invocation
	err       error
	panicMsg  string
}

func (r *recordingRouter) HandleDirectMessage(_ context.Context, msg router.DirectMessage) error {
	if r.panicMsg != "" {
		panic(r.panicMsg)
	}
	r.dms = append(r.dms, msg)
	return r.err
}

func (r *recordingRouter) HandleThreadMessage(_ context.Context, msg router.ThreadMessage) error {
	r.threads = append(r.threads, msg)
	return r.err
}

func (r *recordingRouter) HandleReaction(_ context.Context, re router.Reaction) error {
	r.reactions = append(r.reactions, re)
	return r.err
}

func (r *recordingRouter) Claim(ctx context.Context, inv router.Invocation, resp router.Responder) error {
	r.claims = append(r.claims, inv)
	return resp.Respond(ctx, router.Reply{Content: "claimed"})
}

func (r *recordingRouter) Transfer(ctx context.Context, _ router.Invocation, target router.Member, resp router.Responder) error {
	r.transfers = append(r.transfers, target)
	return resp.Respond(ctx, router.Reply{Content: "denied", Ephemeral: true})
}

func (r *recordingRouter) Close(_ context.Context, inv router.Invocation, _ router.Responder) error {
	r.closes = append(r.closes, inv)
	return r.err
}
