package ops

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/p-blackswan/support-relay/internal/ticket"
)

// liveness handles GET /healthz.
func (s *Server) liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// readiness handles GET /readyz.
func (s *Server) readiness(c *fiber.Ctx) error {
	report := s.checker.Check(c.Context())
	if !report.Ready {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "not_ready",
			"checks": report.Checks,
		})
	}
	return c.JSON(fiber.Map{
		"status": "ready",
		"checks": report.Checks,
	})
}

type ticketView struct {
	UserID   string       `json:"user_id"`
	ThreadID string       `json:"thread_id"`
	State    ticket.State `json:"state"`
	OpenedAt time.Time    `json:"opened_at"`
}

type ticketsResponse struct {
	Summary ticket.Summary `json:"summary"`
	Tickets []ticketView   `json:"tickets"`
}

// listTickets handles GET /tickets. Pass ?state=claimed or ?state=unclaimed
// to filter.
func (s *Server) listTickets(c *fiber.Ctx) error {
	filter := ticket.State(c.Query("state"))
	switch filter {
	case "", ticket.StateClaimed, ticket.StateUnclaimed:
	default:
		return fiber.NewError(fiber.StatusBadRequest, "state must be claimed or unclaimed")
	}

	resp := ticketsResponse{
		Summary: s.tickets.Summary(),
		Tickets: []ticketView{},
	}
	for _, t := range s.tickets.Tickets() {
		state := s.tickets.StateOf(t.ThreadID)
		if filter != "" && state != filter {
			continue
		}
		resp.Tickets = append(resp.Tickets, ticketView{
			UserID:   t.UserID,
			ThreadID: t.ThreadID,
			State:    state,
			OpenedAt: t.OpenedAt,
		})
	}
	return c.JSON(resp)
}
