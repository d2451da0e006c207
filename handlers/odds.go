package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/asayao-fp/keiba/models"
)

// RaceOdds returns the latest place-odds quotes for one race.
func (h *Handler) RaceOdds(c echo.Context) error {
	key := c.Param("key")

	var quotes []models.PlaceOdds
	err := h.db.NewSelect().
		Model(&quotes).
		Where("po.race_key = ?", key).
		OrderExpr("po.horse_no ASC").
		Scan(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, quotes)
}
