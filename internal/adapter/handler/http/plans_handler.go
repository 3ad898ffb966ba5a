package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/agendasalud/payment-service/internal/domain/model"
	domainRepo "github.com/agendasalud/payment-service/internal/domain/repository"
)

type PlansHandler struct {
	plans  domainRepo.PlanRepository
	logger *zap.Logger
}

func NewPlansHandler(plans domainRepo.PlanRepository, logger *zap.Logger) *PlansHandler {
	return &PlansHandler{
		plans:  plans,
		logger: logger,
	}
}

// GetPlans processes GET /api/plans
func (h *PlansHandler) GetPlans(c echo.Context) error {
	plans, err := h.plans.ListActive(c.Request().Context())
	if err != nil {
		h.logger.Error("Error fetching plans", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to fetch plans",
		})
	}

	if plans == nil {
		plans = []*model.SubscriptionPlan{}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"plans": plans,
	})
}
