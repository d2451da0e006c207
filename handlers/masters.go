package handlers

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/asayao-fp/keiba/models"
)

// Jockeys searches the jockey roster by name substring, or lists it all
// when no filter is given.
func (h *Handler) Jockeys(c echo.Context) error {
	var jockeys []models.Jockey
	q := h.db.NewSelect().
		Model(&jockeys).
		OrderExpr("j.jockey_code ASC").
		Limit(200)

	if name := c.QueryParam("name"); name != "" {
		q = q.Where("j.jockey_name LIKE ?", fmt.Sprintf("%%%s%%", name))
	}

	if err := q.Scan(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, jockeys)
}

// Trainers searches the trainer roster by name substring.
func (h *Handler) Trainers(c echo.Context) error {
	var trainers []models.Trainer
	q := h.db.NewSelect().
		Model(&trainers).
		OrderExpr("t.trainer_code ASC").
		Limit(200)

	if name := c.QueryParam("name"); name != "" {
		q = q.Where("t.trainer_name LIKE ?", fmt.Sprintf("%%%s%%", name))
	}

	if err := q.Scan(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, trainers)
}
