package reports

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nestorcamelo12/hospitales/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/reports/dashboard", h.Dashboard)
}

func (h *Handler) Dashboard(c echo.Context) error {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "No autenticado")
	}
	d, err := h.svc.Dashboard(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"status": "success", "data": d})
}
