package http

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	domainErrors "github.com/agendasalud/payment-service/internal/domain/errors"
	"github.com/agendasalud/payment-service/internal/domain/model"
	domainRepo "github.com/agendasalud/payment-service/internal/domain/repository"
	"github.com/agendasalud/payment-service/internal/middleware/auth"
	"github.com/agendasalud/payment-service/internal/usecase"
)

type SubscriptionHandler struct {
	subscriptions *usecase.SubscriptionService
	pros          domainRepo.ProfessionalRepository
	logger        *zap.Logger
}

func NewSubscriptionHandler(subscriptions *usecase.SubscriptionService, pros domainRepo.ProfessionalRepository, logger *zap.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptions: subscriptions,
		pros:          pros,
		logger:        logger,
	}
}

type createSubscriptionRequest struct {
	PlanID        string `json:"plan_id" validate:"required,uuid"`
	BillingPeriod string `json:"billing_period" validate:"required,oneof=MONTHLY ANNUAL"`
	Recurring     bool   `json:"recurring"`
}

type changePlanRequest struct {
	PlanID        string `json:"plan_id" validate:"required,uuid"`
	BillingPeriod string `json:"billing_period" validate:"required,oneof=MONTHLY ANNUAL"`
}

// professionalFromContext resolves the authenticated user to their
// professional profile.
func (h *SubscriptionHandler) professionalFromContext(c echo.Context) (*model.Professional, error) {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return nil, err
	}

	pro, err := h.pros.GetByUserID(c.Request().Context(), user.UserID)
	if err != nil {
		return nil, c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to resolve professional",
		})
	}
	if pro == nil {
		return nil, c.JSON(http.StatusNotFound, echo.Map{
			"error": "professional profile not found",
		})
	}

	return pro, nil
}

// CreateSubscription processes POST /api/subscriptions
func (h *SubscriptionHandler) CreateSubscription(c echo.Context) error {
	pro, err := h.professionalFromContext(c)
	if err != nil {
		return err
	}

	var req createSubscriptionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	planID, err := uuid.Parse(req.PlanID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid plan_id"})
	}
	period := model.BillingPeriod(req.BillingPeriod)

	ctx := c.Request().Context()

	if req.Recurring {
		pre, err := h.subscriptions.CreateRecurring(ctx, pro.ID, planID, period)
		if err != nil {
			return h.mapServiceError(c, err)
		}
		return c.JSON(http.StatusCreated, echo.Map{
			"preapproval_id": pre.ID,
			"init_point":     pre.InitPoint,
		})
	}

	pref, err := h.subscriptions.CreateManualPreference(ctx, pro.ID, planID, period)
	if err != nil {
		return h.mapServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"preference_id":      pref.ID,
		"init_point":         pref.InitPoint,
		"sandbox_init_point": pref.SandboxInitPoint,
	})
}

// GetSubscription processes GET /api/subscriptions/me
func (h *SubscriptionHandler) GetSubscription(c echo.Context) error {
	pro, err := h.professionalFromContext(c)
	if err != nil {
		return err
	}

	view, err := h.subscriptions.GetStatus(c.Request().Context(), pro.ID)
	if err != nil {
		return h.mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, view)
}

// CancelSubscription processes DELETE /api/subscriptions/me
func (h *SubscriptionHandler) CancelSubscription(c echo.Context) error {
	pro, err := h.professionalFromContext(c)
	if err != nil {
		return err
	}

	sub, err := h.subscriptions.Cancel(c.Request().Context(), pro.ID)
	if err != nil {
		return h.mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, sub)
}

// ChangePlan processes POST /api/subscriptions/me/change-plan
func (h *SubscriptionHandler) ChangePlan(c echo.Context) error {
	pro, err := h.professionalFromContext(c)
	if err != nil {
		return err
	}

	var req changePlanRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	planID, err := uuid.Parse(req.PlanID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid plan_id"})
	}

	pre, err := h.subscriptions.ChangePlan(c.Request().Context(), pro.ID, planID, model.BillingPeriod(req.BillingPeriod))
	if err != nil {
		return h.mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"preapproval_id": pre.ID,
		"init_point":     pre.InitPoint,
	})
}

func (h *SubscriptionHandler) mapServiceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domainErrors.ErrPlanNotFound),
		errors.Is(err, domainErrors.ErrProfessionalNotFound),
		errors.Is(err, domainErrors.ErrNoSubscription):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	default:
		h.logger.Error("Subscription request failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
