package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/maheshrc27/insights-pipeline/internal/service"
)

type DashboardHandler struct {
	s         service.DashboardService
	accountID string
	log       zerolog.Logger
}

// NewDashboardHandler serves the dashboard of the configured account.
func NewDashboardHandler(s service.DashboardService, accountID string, log zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{s: s, accountID: accountID, log: log}
}

func (h *DashboardHandler) Summary(c *fiber.Ctx) error {
	summary, err := h.s.Summary(c.UserContext(), h.accountID)
	if err != nil {
		h.log.Error().Err(err).Msg("dashboard summary")
		return errorJSON(c, fiber.StatusInternalServerError, "Unable to load dashboard summary")
	}
	return c.JSON(summary)
}

func (h *DashboardHandler) ContentCalendar(c *fiber.Ctx) error {
	posts, err := h.s.ContentCalendar(c.UserContext(), h.accountID)
	if err != nil {
		h.log.Error().Err(err).Msg("content calendar")
		return errorJSON(c, fiber.StatusInternalServerError, "Unable to load content calendar")
	}
	return c.JSON(posts)
}

func (h *DashboardHandler) InsightsOverview(c *fiber.Ctx) error {
	overview, err := h.s.InsightsOverview(c.UserContext(), h.accountID)
	if err != nil {
		h.log.Error().Err(err).Msg("insights overview")
		return errorJSON(c, fiber.StatusInternalServerError, "Unable to load insights overview")
	}
	return c.JSON(overview)
}

func (h *DashboardHandler) AccountSummary(c *fiber.Ctx) error {
	accountID := c.Params("account_id")
	if accountID == "" {
		return errorJSON(c, fiber.StatusBadRequest, "Instagram Account ID is required")
	}

	summary, err := h.s.AccountSummary(c.UserContext(), accountID)
	if err != nil {
		h.log.Error().Err(err).Str("account_id", accountID).Msg("account summary")
		return errorJSON(c, fiber.StatusInternalServerError, "Unable to load account summary")
	}
	return c.JSON(summary)
}

func (h *DashboardHandler) FollowerDemographics(c *fiber.Ctx) error {
	accountID := c.Params("account_id")
	if accountID == "" {
		return errorJSON(c, fiber.StatusBadRequest, "Instagram Account ID is required")
	}

	demographics, err := h.s.FollowerDemographics(c.UserContext(), accountID)
	if err != nil {
		h.log.Error().Err(err).Str("account_id", accountID).Msg("follower demographics")
		return errorJSON(c, fiber.StatusInternalServerError, "Unable to load follower demographics")
	}
	return c.JSON(demographics)
}
