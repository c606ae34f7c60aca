package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/hoyn-app/profile-qr/internal/api/dto"
	"github.com/hoyn-app/profile-qr/internal/service"
)

// OriginHeader carries the client-reported scanner origin.
const OriginHeader = "X-Scanner-Origin"

// ScanHandler verifies envelopes presented by scanning clients.
type ScanHandler struct {
	qr *service.QRService
}

// NewScanHandler constructs handler.
func NewScanHandler(qr *service.QRService) *ScanHandler {
	return &ScanHandler{qr: qr}
}

// Submit handles POST /v1/scan.
func (h *ScanHandler) Submit(c *fiber.Ctx) error {
	var req dto.ScanRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	return h.verify(c, req.Envelope)
}

// Lookup handles GET /v1/scan?d=<envelope>, the URL encoded into QR codes.
func (h *ScanHandler) Lookup(c *fiber.Ctx) error {
	return h.verify(c, c.Query("d"))
}

func (h *ScanHandler) verify(c *fiber.Ctx, envelope string) error {
	envelope = strings.TrimSpace(envelope)
	if envelope == "" {
		return fiber.NewError(http.StatusBadRequest, "envelope required")
	}
	origin := strings.TrimSpace(c.Get(OriginHeader))

	accepted, err := h.qr.Scan(c.UserContext(), envelope, origin)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewScanResponse(accepted)})
}
