package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/asayao-fp/keiba/models"
)

// Races lists races, optionally filtered by date range (yyyymmdd),
// course code, grade code, or restricted to graded races only.
func (h *Handler) Races(c echo.Context) error {
	var races []models.Race
	q := h.db.NewSelect().
		Model(&races).
		OrderExpr("rc.yyyymmdd DESC, rc.race_no ASC").
		Limit(500)

	if from := c.QueryParam("from"); from != "" {
		q = q.Where("rc.yyyymmdd >= ?", from)
	}
	if to := c.QueryParam("to"); to != "" {
		q = q.Where("rc.yyyymmdd <= ?", to)
	}
	if course := c.QueryParam("course"); course != "" {
		q = q.Where("rc.course_code = ?", course)
	}
	if grade := c.QueryParam("grade"); grade != "" {
		q = q.Where("rc.grade_code = ?", grade)
	}
	if c.QueryParam("graded") == "true" {
		q = q.Where("TRIM(rc.grade_code) != ''")
	}

	if err := q.Scan(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, races)
}

// GetRace returns one race by its exact key.
func (h *Handler) GetRace(c echo.Context) error {
	key := c.Param("key")

	race := &models.Race{}
	err := h.db.NewSelect().Model(race).
		Where("rc.race_key = ?", key).
		Scan(c.Request().Context())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, race)
}

// Dates returns all distinct race dates, optionally filtered by course code.
func (h *Handler) Dates(c echo.Context) error {
	course := c.QueryParam("course")

	var dates []string
	q := h.db.NewSelect().
		TableExpr("races").
		ColumnExpr("DISTINCT yyyymmdd").
		OrderExpr("yyyymmdd DESC")

	if course != "" {
		q = q.Where("course_code = ?", course)
	}

	if err := q.Scan(c.Request().Context(), &dates); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, dates)
}
