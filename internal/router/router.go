// Package router implements the ticket relay: user DMs become private staff
// threads, claimed staff replies go back to the user, and the claim, transfer
// and close commands move a ticket through its lifecycle.
package router

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	perrors "github.com/p-blackswan/support-relay/internal/errors"
	"github.com/p-blackswan/support-relay/internal/metrics"
	"github.com/p-blackswan/support-relay/internal/requestid"
	"github.com/p-blackswan/support-relay/internal/templates"
	"github.com/p-blackswan/support-relay/internal/ticket"
)

const emptyQuote = "[No text content]"

// Rejection reasons for staff thread messages.
const (
	reasonUnclaimed    = "unclaimed"
	reasonOtherClaimer = "claimed_by_other"
)

// Router owns the ticket state and relays events between users and staff.
type Router struct {
	cfg      Config
	platform Platform
	tickets  *ticket.Registry
	render   *templates.Renderer
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// New creates a router.
func New(cfg Config, platform Platform, tickets *ticket.Registry, render *templates.Renderer, m *metrics.Metrics, logger zerolog.Logger) *Router {
	return &Router{
		cfg:      cfg,
		platform: platform,
		tickets:  tickets,
		render:   render,
		metrics:  m,
		logger:   logger.With().Str("component", "router").Logger(),
	}
}

func (r *Router) log(ctx context.Context) *zerolog.Logger {
	l := r.logger.With().Str("request_id", requestid.FromContext(ctx)).Logger()
	return &l
}

// HandleDirectMessage relays a user DM into the user's ticket thread,
// opening a new ticket when the user has none.
func (r *Router) HandleDirectMessage(ctx context.Context, msg DirectMessage) error {
	if msg.Author.Bot {
		return nil
	}

	// Two quick DMs from one user must not both open a thread.
	unlock := r.tickets.LockUser(msg.Author.ID)
	defer unlock()

	threadID, ok := r.tickets.ThreadFor(msg.Author.ID)
	if !ok {
		return r.openTicket(ctx, msg)
	}

	// An existing ticket never gets a second thread. A DM for a thread
	// removed outside the bot is dropped.
	err := r.relayToThread(ctx, threadID, msg)
	if perrors.IsNotFound(err) {
		r.log(ctx).Warn().
			Err(err).
			Str("user_id", msg.Author.ID).
			Str("thread_id", threadID).
			Msg("ticket thread gone, dropping DM")
		return nil
	}
	return err
}

func (r *Router) relayToThread(ctx context.Context, threadID string, msg DirectMessage) error {
	text, err := r.render.Render(templates.RelayUser, templates.Data{
		Username: msg.Author.Username,
		Content:  msg.Content,
	})
	if err != nil {
		return err
	}
	if _, err := r.platform.SendMessage(ctx, threadID, text); err != nil {
		return fmt.Errorf("relaying DM to thread %s: %w", threadID, err)
	}
	r.metrics.RecordRelay(metrics.DirectionToThread, "message")
	r.log(ctx).Debug().
		Str("user_id", msg.Author.ID).
		Str("thread_id", threadID).
		Msg("DM relayed to thread")
	return nil
}

func (r *Router) openTicket(ctx context.Context, msg DirectMessage) error {
	data := templates.Data{
		Username:    msg.Author.Username,
		UserID:      msg.Author.ID,
		Content:     msg.Content,
		RoleMention: roleMention(r.cfg.SupportRoleID),
	}

	name, err := r.render.Render(templates.ThreadName, data)
	if err != nil {
		return err
	}
	threadID, err := r.platform.CreatePrivateThread(ctx, r.cfg.SupportChannelID, name)
	if err != nil {
		return fmt.Errorf("creating ticket thread for %s: %w", msg.Author.ID, err)
	}
	if _, err := r.tickets.Open(msg.Author.ID, threadID); err != nil {
		return fmt.Errorf("recording ticket for %s: %w", msg.Author.ID, err)
	}
	r.metrics.RecordOpened(r.tickets.Len())

	r.log(ctx).Info().
		Str("user_id", msg.Author.ID).
		Str("username", msg.Author.Username).
		Str("thread_id", threadID).
		Msg("ticket opened")

	notice, err := r.render.Render(templates.NewTicket, data)
	if err != nil {
		return err
	}
	if _, err := r.platform.SendMessage(ctx, threadID, notice); err != nil {
		return fmt.Errorf("posting ticket notice: %w", err)
	}

	ack, err := r.render.Render(templates.Acknowledgement, data)
	if err != nil {
		return err
	}
	if _, err := r.platform.SendMessage(ctx, msg.ChannelID, ack); err != nil {
		return fmt.Errorf("acknowledging ticket: %w", err)
	}
	return nil
}

// HandleThreadMessage enforces claim-before-reply and relays the current
// claimant's messages to the ticket owner.
func (r *Router) HandleThreadMessage(ctx context.Context, msg ThreadMessage) error {
	if msg.Author.Bot {
		return nil
	}

	claim, ok := r.tickets.ClaimFor(msg.ThreadID)
	if !ok {
		return r.reject(ctx, msg, reasonUnclaimed, templates.ClaimRequired)
	}
	// Claims are matched by display name, so a rename drops the claim.
	if claim.StaffName != msg.Author.DisplayName {
		return r.reject(ctx, msg, reasonOtherClaimer, templates.ClaimedByOther)
	}

	owner, ok := r.tickets.OwnerOf(msg.ThreadID)
	if !ok {
		r.log(ctx).Debug().Str("thread_id", msg.ThreadID).Msg("claimed thread has no ticket owner, dropping reply")
		return nil
	}

	text, err := r.render.Render(templates.StaffReply, templates.Data{
		StaffName:  claim.StaffName,
		RoleLabel:  claim.RoleLabel,
		Content:    msg.Content,
		ServerName: r.cfg.ServerName,
	})
	if err != nil {
		return err
	}
	if err := r.platform.SendDirect(ctx, owner, text); err != nil {
		return fmt.Errorf("relaying staff reply to %s: %w", owner, err)
	}
	r.metrics.RecordRelay(metrics.DirectionToUser, "message")
	r.log(ctx).Debug().
		Str("thread_id", msg.ThreadID).
		Str("staff", claim.StaffName).
		Str("user_id", owner).
		Msg("staff reply relayed")
	return nil
}

// reject deletes a staff message and shows a warning for WarningTTL.
// The deleted message is not kept anywhere.
func (r *Router) reject(ctx context.Context, msg ThreadMessage, reason string, warning templates.Name) error {
	r.metrics.RecordRejected(reason)
	r.log(ctx).Info().
		Str("thread_id", msg.ThreadID).
		Str("author_id", msg.Author.ID).
		Str("reason", reason).
		Msg("staff reply rejected")

	if err := r.platform.DeleteMessage(ctx, msg.ThreadID, msg.MessageID); err != nil {
		return fmt.Errorf("deleting rejected reply: %w", err)
	}
	text, err := r.render.Render(warning, templates.Data{Mention: userMention(msg.Author.ID)})
	if err != nil {
		return err
	}
	warnID, err := r.platform.SendMessage(ctx, msg.ThreadID, text)
	if err != nil {
		return fmt.Errorf("posting claim warning: %w", err)
	}

	timer := time.NewTimer(r.cfg.WarningTTL)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}

	// Clean up the warning even when shutting down.
	if err := r.platform.DeleteMessage(context.WithoutCancel(ctx), msg.ThreadID, warnID); err != nil {
		return fmt.Errorf("deleting claim warning: %w", err)
	}
	return nil
}

// HandleReaction mirrors reactions between a user's DM and the ticket thread.
func (r *Router) HandleReaction(ctx context.Context, re Reaction) error {
	if re.Reactor.Bot {
		return nil
	}

	content := re.MessageContent
	if content == "" {
		content = emptyQuote
	}

	switch re.Location {
	case LocationDM:
		threadID, ok := r.tickets.ThreadFor(re.Reactor.ID)
		if !ok {
			return nil
		}
		text, err := r.render.Render(templates.UserReaction, templates.Data{
			Username: re.Reactor.Username,
			Emoji:    re.Emoji,
			Content:  content,
		})
		if err != nil {
			return err
		}
		if _, err := r.platform.SendMessage(ctx, threadID, text); err != nil {
			return fmt.Errorf("relaying user reaction: %w", err)
		}
		r.metrics.RecordRelay(metrics.DirectionToThread, "reaction")

	case LocationThread:
		claim, ok := r.tickets.ClaimFor(re.ChannelID)
		if !ok {
			return nil
		}
		owner, ok := r.tickets.OwnerOf(re.ChannelID)
		if !ok {
			return nil
		}
		text, err := r.render.Render(templates.StaffReaction, templates.Data{
			StaffName: claim.StaffName,
			Emoji:     re.Emoji,
			Content:   content,
		})
		if err != nil {
			return err
		}
		if err := r.platform.SendDirect(ctx, owner, text); err != nil {
			return fmt.Errorf("relaying staff reaction: %w", err)
		}
		r.metrics.RecordRelay(metrics.DirectionToUser, "reaction")
	}
	return nil
}

func userMention(id string) string { return "<@" + id + ">" }

func roleMention(id string) string { return "<@&" + id + ">" }
