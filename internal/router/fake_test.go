package router

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/support-relay/internal/metrics"
	"github.com/p-blackswan/support-relay/internal/templates"
	"github.com/p-blackswan/support-relay/internal/ticket"
)

type sentMessage struct {
	ChannelID string
	ID        string
	Content   string
}

type createdThread struct {
	ParentID string
	Name     string
	ID       string
}

type deletedMessage struct {
	ChannelID string
	MessageID string
}

// fakePlatform implements Platform for testing.
type fakePlatform struct {
	mu       sync.Mutex
	seq      int
	threads  []createdThread
	messages []sentMessage
	directs  []sentMessage
	deleted  []deletedMessage
	channels []string

	createDelay time.Duration
	createErr   error
	sendErr     map[string]error // by channel ID
	directErr   error
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{sendErr: make(map[string]error)}
}

func (f *fakePlatform) next(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakePlatform) CreatePrivateThread(_ context.Context, parentID, name string) (string, error) {
	if f.createDelay > 0 {
		time.Sleep(f.createDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	id := f.next("thread")
	f.threads = append(f.threads, createdThread{ParentID: parentID, Name: name, ID: id})
	return id, nil
}

func (f *fakePlatform) SendMessage(_ context.Context, channelID, content string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.sendErr[channelID]; err != nil {
		return "", err
	}
	id := f.next("msg")
	f.messages = append(f.messages, sentMessage{ChannelID: channelID, ID: id, Content: content})
	return id, nil
}

func (f *fakePlatform) DeleteMessage(_ context.Context, channelID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, deletedMessage{ChannelID: channelID, MessageID: messageID})
	return nil
}

func (f *fakePlatform) SendDirect(_ context.Context, userID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.directErr != nil {
		return f.directErr
	}
	f.directs = append(f.directs, sentMessage{ChannelID: userID, Content: content})
	return nil
}

func (f *fakePlatform) DeleteChannel(_ context.Context, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels = append(f.channels, channelID)
	return nil
}

func (f *fakePlatform) messagesIn(channelID string) []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentMessage
	for _, m := range f.messages {
		if m.ChannelID == channelID {
			out = append(out, m)
		}
	}
	return out
}

// fakeResponder records interaction replies.
type fakeResponder struct {
	replies []Reply
}

func (f *fakeResponder) Respond(_ context.Context, reply Reply) error {
	f.replies = append(f.replies, reply)
	return nil
}

func (f *fakeResponder) last() Reply {
	if len(f.replies) == 0 {
		return Reply{}
	}
	return f.replies[len(f.replies)-1]
}

const (
	testChannel  = "support-channel"
	testRoleID   = "role-support"
	testRoleName = "Support Crew"
	testServer   = "Saudia Virtual"
)

func newTestRouter(t *testing.T) (*Router, *fakePlatform) {
	t.Helper()
	p := newFakePlatform()
	r := New(Config{
		SupportChannelID: testChannel,
		SupportRoleID:    testRoleID,
		SupportRoleName:  testRoleName,
		ServerName:       testServer,
		WarningTTL:       10 * time.Millisecond,
	}, p, ticket.NewRegistry(), templates.MustCompile(templates.Defaults()), metrics.New(), zerolog.Nop())
	return r, p
}

func user(id, name string) User {
	return User{ID: id, Username: name, DisplayName: name}
}

func staff(id, name string) Member {
	return Member{User: user(id, name), Roles: []Role{{ID: testRoleID, Name: testRoleName}}}
}

func dm(u User, content string) DirectMessage {
	return DirectMessage{ChannelID: "dm-" + u.ID, MessageID: "m-" + content, Author: u, Content: content}
}
