package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-bot/internal/api/dto"
	"github.com/spec-kit/support-bot/internal/domain"
	"github.com/spec-kit/support-bot/internal/service"
	apperrors "github.com/spec-kit/support-bot/pkg/util/errorutil"
)

// SubscriptionsHandler exposes purchase and grant status endpoints.
type SubscriptionsHandler struct {
	desk          *service.DeskService
	subscriptions *service.SubscriptionService
}

// NewSubscriptionsHandler constructs handler.
func NewSubscriptionsHandler(desk *service.DeskService, subscriptions *service.SubscriptionService) *SubscriptionsHandler {
	return &SubscriptionsHandler{desk: desk, subscriptions: subscriptions}
}

// Purchase POST /subscriptions/purchase.
func (h *SubscriptionsHandler) Purchase(c *fiber.Ctx) error {
	var req dto.PurchaseRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	task, err := h.desk.PurchaseRequested(c.UserContext(), req.UserID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": dto.PurchaseResponse{
		UserID:      req.UserID,
		ActivatesAt: task.DueAt(),
	}})
}

// Status GET /subscriptions/:userID.
func (h *SubscriptionsHandler) Status(c *fiber.Ctx) error {
	grant, err := h.subscriptions.Status(c.UserContext(), pathParam(c, "userID"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": grantResponse(grant)})
}

// CancelPurchase DELETE /subscriptions/purchase/:userID drops a pending
// activation. Grants already applied are left alone.
func (h *SubscriptionsHandler) CancelPurchase(c *fiber.Ctx) error {
	userID := pathParam(c, "userID")
	if !h.subscriptions.CancelPurchase(userID) {
		return apperrors.NewNotFound("pending purchase", map[string]any{"user_id": userID})
	}
	return c.SendStatus(http.StatusNoContent)
}

// List GET /subscriptions.
func (h *SubscriptionsHandler) List(c *fiber.Ctx) error {
	grants, err := h.subscriptions.List(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]dto.GrantResponse, 0, len(grants))
	for _, g := range grants {
		out = append(out, grantResponse(g))
	}
	return c.JSON(fiber.Map{"data": out})
}

func grantResponse(grant domain.Grant) dto.GrantResponse {
	return dto.GrantResponse{
		UserID:    grant.UserID,
		GrantedAt: grant.GrantedAt,
		ExpiresAt: grant.ExpiresAt,
	}
}
