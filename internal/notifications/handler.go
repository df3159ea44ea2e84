package notifications

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/meetscribe/backend/pkg/response"
)

// RegisterDeviceRequest is the body for POST /devices.
type RegisterDeviceRequest struct {
	PushToken string `json:"push_token" binding:"required"`
	Platform  string `json:"platform"`
}

// Handler handles push-device HTTP endpoints.
type Handler struct {
	devices *DeviceRepository
	logger  *zap.Logger
}

// NewHandler creates a notifications handler.
func NewHandler(devices *DeviceRepository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{devices: devices, logger: logger}
}

// RegisterDevice handles POST /devices. Registering the same token twice updates it.
func (h *Handler) RegisterDevice(c *gin.Context) {
	var req RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	device, err := h.devices.Upsert(c.Request.Context(), req.PushToken, req.Platform)
	if err != nil {
		h.logger.Error("register device failed", zap.Error(err))
		response.Internal(c, "failed to register device")
		return
	}
	response.OK(c, device)
}
