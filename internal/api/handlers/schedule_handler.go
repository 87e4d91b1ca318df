package handlers

import (
	"io"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/maheshrc27/insights-pipeline/internal/service"
)

type ScheduleHandler struct {
	s   service.ScheduleService
	log zerolog.Logger
}

func NewScheduleHandler(s service.ScheduleService, log zerolog.Logger) *ScheduleHandler {
	return &ScheduleHandler{s: s, log: log}
}

func (h *ScheduleHandler) ScheduleInstagramPost(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("media")
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Media file is required")
	}
	if fileHeader.Filename == "" {
		return errorJSON(c, fiber.StatusBadRequest, "Media file name is empty")
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.log.Error().Err(err).Msg("open uploaded media")
		return errorJSON(c, fiber.StatusBadRequest, "Unable to read media file")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.log.Error().Err(err).Msg("read uploaded media")
		return errorJSON(c, fiber.StatusBadRequest, "Unable to read media file")
	}

	var scheduledAt int64
	if raw := c.FormValue("scheduled_publish_time"); raw != "" {
		scheduledAt, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return errorJSON(c, fiber.StatusBadRequest, "Scheduled publish time must be a unix timestamp")
		}
	}
	useOptimalHour, _ := strconv.ParseBool(c.FormValue("use_optimal_hour", "false"))

	result, err := h.s.Schedule(c.UserContext(), &service.ScheduleRequest{
		AccountID:      c.FormValue("ig_account_id"),
		Caption:        c.FormValue("caption"),
		Hashtags:       c.FormValue("hashtags"),
		ScheduledAt:    scheduledAt,
		UseOptimalHour: useOptimalHour,
		FileName:       fileHeader.Filename,
		File:           data,
	})
	if err != nil {
		status := StatusFor(err)
		if status >= fiber.StatusInternalServerError {
			h.log.Error().Err(err).Int("status", status).Msg("schedule instagram post")
		}
		return errorJSON(c, status, err.Error())
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":                "Post successfully scheduled!",
		"instagram_post_id":      result.InstagramPostID,
		"container_id":           result.ContainerID,
		"media_url":              result.MediaURL,
		"scheduled_publish_time": result.PublishAt,
	})
}
