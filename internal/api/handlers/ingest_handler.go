package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	job "github.com/maheshrc27/insights-pipeline/internal/jobs"
)

type IngestHandler struct {
	job *job.IngestJob
}

func NewIngestHandler(j *job.IngestJob) *IngestHandler {
	return &IngestHandler{job: j}
}

// Run blocks until the pipeline finishes and returns its report.
func (h *IngestHandler) Run(c *fiber.Ctx) error {
	report, err := h.job.RunNow(c.UserContext())
	if errors.Is(err, job.ErrAlreadyRunning) {
		return errorJSON(c, fiber.StatusConflict, err.Error())
	}
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(report)
}

func (h *IngestHandler) LastReport(c *fiber.Ctx) error {
	report := h.job.LastReport()
	if report == nil {
		return errorJSON(c, fiber.StatusNotFound, "No ingestion run has finished yet")
	}
	return c.JSON(report)
}
