package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-bot/internal/api/dto"
	"github.com/spec-kit/support-bot/internal/domain"
	"github.com/spec-kit/support-bot/internal/service"
)

// SetupHandler publishes the ticket and subscription panels.
type SetupHandler struct {
	desk *service.DeskService
}

// NewSetupHandler constructs handler.
func NewSetupHandler(desk *service.DeskService) *SetupHandler {
	return &SetupHandler{desk: desk}
}

// PublishPanel POST /setup/:panel.
func (h *SetupHandler) PublishPanel(c *fiber.Ctx) error {
	var req dto.ActorRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.desk.Setup(c.UserContext(), req.ActorID, domain.Panel(pathParam(c, "panel"))); err != nil {
		return err
	}
	return c.SendStatus(http.StatusAccepted)
}
