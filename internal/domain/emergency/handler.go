package emergency

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/nestorcamelo12/hospitales/internal/platform/auth"
	"github.com/nestorcamelo12/hospitales/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/emergencias", h.List)
	api.GET("/emergencias/:id", h.Get)
	api.PUT("/emergencias/:id", h.Update)
	api.GET("/patients/:id/emergencias", h.ListByPatient)

	// Registration - paramedics (admins always pass)
	api.POST("/emergencias", h.Create, auth.RequireRole(auth.RoleParamedic))
}

func (h *Handler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "JSON inválido")
	}
	view, err := h.svc.Create(c.Request().Context(), in, p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"status":  "success",
		"message": "Emergencia creada exitosamente. Notificaciones enviadas.",
		"data":    view,
	})
}

func (h *Handler) Update(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "JSON inválido")
	}
	if err := h.svc.Update(c.Request().Context(), id, in, p); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Emergencia actualizada exitosamente",
	})
}

func (h *Handler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	detail, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"status": "success", "data": detail})
}

func (h *Handler) List(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c, pagination.DefaultPerPage)
	hospitalID, _ := strconv.ParseInt(c.QueryParam("hospital_id"), 10, 64)
	items, total, err := h.svc.List(c.Request().Context(), c.QueryParam("estado"), hospitalID, pg, p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, pg, total))
}

func (h *Handler) ListByPatient(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c, pagination.DefaultPerPage)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), id, pg)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, pg, total))
}

func principal(c echo.Context) (auth.Principal, error) {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return auth.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "No autenticado")
	}
	return p, nil
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "ID inválido")
	}
	return id, nil
}
