package http

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	domainErrors "github.com/agendasalud/payment-service/internal/domain/errors"
	"github.com/agendasalud/payment-service/internal/usecase"
)

type DepositHandler struct {
	deposits *usecase.DepositService
	logger   *zap.Logger
}

func NewDepositHandler(deposits *usecase.DepositService, logger *zap.Logger) *DepositHandler {
	return &DepositHandler{
		deposits: deposits,
		logger:   logger,
	}
}

type createDepositRequest struct {
	AppointmentID string `json:"appointment_id" validate:"required,uuid"`
	PayerEmail    string `json:"payer_email" validate:"required,email"`
}

// CreateDepositPreference processes POST /api/deposits
func (h *DepositHandler) CreateDepositPreference(c echo.Context) error {
	var req createDepositRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	appointmentID, err := uuid.Parse(req.AppointmentID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid appointment_id"})
	}

	pref, err := h.deposits.CreatePreference(c.Request().Context(), appointmentID, req.PayerEmail)
	if err != nil {
		if errors.Is(err, domainErrors.ErrAppointmentNotFound) || errors.Is(err, domainErrors.ErrProfessionalNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
		}
		h.logger.Error("Deposit preference request failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"preference_id":      pref.ID,
		"init_point":         pref.InitPoint,
		"sandbox_init_point": pref.SandboxInitPoint,
	})
}
