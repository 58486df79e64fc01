package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fixlytaller/fixly-session/internal/core/ports"
)

// RepairHandler serves the archived repair deletion endpoint.
type RepairHandler struct {
	service ports.RepairService
}

func NewRepairHandler(service ports.RepairService) *RepairHandler {
	return &RepairHandler{service: service}
}

type deleteRepairRequest struct {
	ID int64 `param:"id" validate:"required,gt=0"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

// DeleteArchived deletes an archived repair and its history.
//
// @Summary      Delete an archived repair
// @Tags         historial
// @Produce      json
// @Param        id            path    int     true   "Repair id"
// @Param        X-Master-Key  header  string  false  "Master key (or masterKey in the JSON body)"
// @Success      200  {object}  okResponse
// @Failure      400  {object}  map[string]any
// @Failure      403  {object}  map[string]any
// @Failure      404  {object}  map[string]any
// @Failure      409  {object}  map[string]any
// @Failure      500  {object}  map[string]any
// @Router       /api/historial/{id} [delete]
func (h *RepairHandler) DeleteArchived(c echo.Context) error {
	id, err := bindRepairID(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteArchived(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, okResponse{OK: true})
}

// RequireRepairID rejects a malformed :id before any other route middleware
// runs, so a bad id is reported even when the master key is also wrong.
func (h *RepairHandler) RequireRepairID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := bindRepairID(c); err != nil {
			return err
		}
		return next(c)
	}
}

func bindRepairID(c echo.Context) (int64, error) {
	var req deleteRepairRequest
	if err := (&echo.DefaultBinder{}).BindPathParams(c, &req); err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "bad_id")
	}
	if err := c.Validate(&req); err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "bad_id")
	}
	return req.ID, nil
}
