package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/hoyn-app/profile-qr/internal/api/dto"
	"github.com/hoyn-app/profile-qr/internal/auth"
	"github.com/hoyn-app/profile-qr/internal/service"
)

const maxHistoryLimit = 500

// QRHandler exposes issuance and scan history for profile owners.
type QRHandler struct {
	qr *service.QRService
}

// NewQRHandler constructs handler.
func NewQRHandler(qr *service.QRService) *QRHandler {
	return &QRHandler{qr: qr}
}

// Issue handles POST /v1/profiles/:id/qr.
func (h *QRHandler) Issue(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	profileID := strings.TrimSpace(c.Params("id"))
	if profileID == "" {
		return fiber.NewError(http.StatusBadRequest, "profile id required")
	}

	issued, err := h.qr.Issue(c.UserContext(), caller, profileID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewIssueQRResponse(issued)})
}

// History handles GET /v1/profiles/:id/scans?days=&limit=.
func (h *QRHandler) History(c *fiber.Ctx) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	profileID := strings.TrimSpace(c.Params("id"))

	days := c.QueryInt("days", service.DefaultScanHistoryDays)
	if days <= 0 {
		return fiber.NewError(http.StatusBadRequest, "days must be positive")
	}
	limit := c.QueryInt("limit", 100)
	if limit <= 0 || limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	scans, err := h.qr.History(c.UserContext(), caller, profileID, days, limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewScanHistoryResponse(profileID, days, scans)})
}

func callerFrom(c *fiber.Ctx) (service.Caller, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return service.Caller{}, fiber.NewError(http.StatusUnauthorized, "authentication required")
	}
	return service.Caller{Type: principal.SubjectType, ID: principal.SubjectID}, nil
}
