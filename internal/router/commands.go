package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/p-blackswan/support-relay/internal/templates"
	"github.com/p-blackswan/support-relay/internal/ticket"
)

// Command names as registered with Discord.
const (
	CommandClaim    = "claim"
	CommandTransfer = "transfer"
	CommandClose    = "close"
)

// Label used in the closing notice when nobody claimed the ticket.
const fallbackLabel = "Support Team"

// Command results for metrics.
const (
	resultOK         = "ok"
	resultStaffOnly  = "staff_only"
	resultNotClaimed = "not_claimed"
	resultIneligible = "ineligible_target"
)

// HasSupportRole reports whether m holds the configured support role,
// matched by role ID or role name.
func (r *Router) HasSupportRole(m Member) bool {
	for _, role := range m.Roles {
		if r.cfg.SupportRoleID != "" && role.ID == r.cfg.SupportRoleID {
			return true
		}
		if r.cfg.SupportRoleName != "" && role.Name == r.cfg.SupportRoleName {
			return true
		}
	}
	return false
}

// Claim makes the caller the claimant of the invoking thread, replacing any
// previous claim. The thread does not have to back a ticket.
func (r *Router) Claim(ctx context.Context, inv Invocation, resp Responder) error {
	if !r.HasSupportRole(inv.Caller) {
		return r.deny(ctx, CommandClaim, resultStaffOnly, templates.StaffOnly, resp)
	}

	claim := r.tickets.SetClaim(inv.ChannelID, ticket.Claim{
		StaffID:   inv.Caller.ID,
		StaffName: inv.Caller.DisplayName,
		RoleLabel: r.cfg.SupportRoleName,
	})
	r.metrics.RecordCommand(CommandClaim, resultOK)
	r.log(ctx).Info().
		Str("thread_id", inv.ChannelID).
		Str("staff_id", claim.StaffID).
		Str("staff", claim.StaffName).
		Msg("ticket claimed")

	return r.respond(ctx, resp, templates.Claimed, templates.Data{StaffName: claim.StaffName}, false)
}

// Transfer hands an already claimed thread to target, who must hold the
// support role or be an administrator.
func (r *Router) Transfer(ctx context.Context, inv Invocation, target Member, resp Responder) error {
	if !r.HasSupportRole(inv.Caller) {
		return r.deny(ctx, CommandTransfer, resultStaffOnly, templates.StaffOnly, resp)
	}
	if _, ok := r.tickets.ClaimFor(inv.ChannelID); !ok {
		return r.deny(ctx, CommandTransfer, resultNotClaimed, templates.NotClaimed, resp)
	}
	if !r.HasSupportRole(target) && !target.Administrator {
		return r.deny(ctx, CommandTransfer, resultIneligible, templates.IneligibleTarget, resp)
	}

	prev, err := r.tickets.Transfer(inv.ChannelID, ticket.Claim{
		StaffID:   target.ID,
		StaffName: target.DisplayName,
		RoleLabel: r.cfg.SupportRoleName,
	})
	if errors.Is(err, ticket.ErrNotClaimed) {
		// Closed between the check and the transfer.
		return r.deny(ctx, CommandTransfer, resultNotClaimed, templates.NotClaimed, resp)
	}
	if err != nil {
		return err
	}
	r.metrics.RecordCommand(CommandTransfer, resultOK)
	r.log(ctx).Info().
		Str("thread_id", inv.ChannelID).
		Str("from", prev.StaffName).
		Str("to", target.DisplayName).
		Str("by", inv.Caller.DisplayName).
		Msg("ticket transferred")

	return r.respond(ctx, resp, templates.Transferred, templates.Data{StaffName: target.DisplayName}, false)
}

// Close sends the owner a closing notice, forgets the ticket, announces the
// closure and deletes the thread.
func (r *Router) Close(ctx context.Context, inv Invocation, resp Responder) error {
	if !r.HasSupportRole(inv.Caller) {
		return r.deny(ctx, CommandClose, resultStaffOnly, templates.StaffOnly, resp)
	}

	claim, ok := r.tickets.ClaimFor(inv.ChannelID)
	if !ok {
		claim = ticket.Claim{StaffName: fallbackLabel, RoleLabel: fallbackLabel}
	}

	if owner, ok := r.tickets.OwnerOf(inv.ChannelID); ok {
		text, err := r.render.Render(templates.ClosingNotice, templates.Data{
			StaffName:  claim.StaffName,
			RoleLabel:  claim.RoleLabel,
			ServerName: r.cfg.ServerName,
		})
		if err != nil {
			return err
		}
		if err := r.platform.SendDirect(ctx, owner, text); err != nil {
			return fmt.Errorf("sending closing notice to %s: %w", owner, err)
		}
		r.tickets.Close(inv.ChannelID)
		r.metrics.RecordClosed(r.tickets.Len())
		r.log(ctx).Info().
			Str("thread_id", inv.ChannelID).
			Str("user_id", owner).
			Str("by", inv.Caller.DisplayName).
			Msg("ticket closed")
	} else {
		r.tickets.Close(inv.ChannelID)
	}
	r.metrics.RecordCommand(CommandClose, resultOK)

	if err := r.respond(ctx, resp, templates.Closed, templates.Data{}, false); err != nil {
		return err
	}
	// Deletes whatever channel the command ran in, ticket thread or not.
	if err := r.platform.DeleteChannel(ctx, inv.ChannelID); err != nil {
		return fmt.Errorf("deleting ticket thread %s: %w", inv.ChannelID, err)
	}
	return nil
}

func (r *Router) deny(ctx context.Context, command, result string, name templates.Name, resp Responder) error {
	r.metrics.RecordCommand(command, result)
	r.log(ctx).Info().Str("command", command).Str("result", result).Msg("command rejected")
	return r.respond(ctx, resp, name, templates.Data{RoleLabel: r.cfg.SupportRoleName}, true)
}

func (r *Router) respond(ctx context.Context, resp Responder, name templates.Name, data templates.Data, ephemeral bool) error {
	text, err := r.render.Render(name, data)
	if err != nil {
		return err
	}
	if err := resp.Respond(ctx, Reply{Content: text, Ephemeral: ephemeral}); err != nil {
		return fmt.Errorf("responding to %s: %w", name, err)
	}
	return nil
}
