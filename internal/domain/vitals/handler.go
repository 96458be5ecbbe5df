package vitals

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/nestorcamelo12/hospitales/internal/domain/vitalsign"
	"github.com/nestorcamelo12/hospitales/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/vitals", h.Create)
	api.GET("/vitals", h.List)
	api.GET("/vitals/:id", h.Get)
	api.GET("/patients/:id/vitals", h.ListByPatient)
}

func (h *Handler) Create(c echo.Context) error {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "No autenticado")
	}
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "JSON inválido")
	}
	r, err := h.svc.Record(c.Request().Context(), in, p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"status":  "success",
		"message": "Signo vital registrado exitosamente",
		"data":    r,
	})
}

func (h *Handler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	r, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"status": "success", "data": r})
}

func (h *Handler) List(c echo.Context) error {
	f := Filter{
		PatientID:   queryInt64(c, "paciente_id"),
		EmergencyID: queryInt64(c, "emergencia_id"),
		Limit:       int(queryInt64(c, "limit")),
	}
	if raw := c.QueryParam("tipo"); raw != "" {
		t, ok := vitalsign.ParseType(raw)
		if !ok {
			return echo.NewHTTPError(http.StatusBadRequest, "Tipo de signo vital no válido")
		}
		f.Type = t
	}
	items, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"status": "success", "data": items})
}

func (h *Handler) ListByPatient(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListByPatient(c.Request().Context(), id, int(queryInt64(c, "limit")))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"status": "success", "data": items})
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "ID inválido")
	}
	return id, nil
}

func queryInt64(c echo.Context, name string) int64 {
	v, _ := strconv.ParseInt(c.QueryParam(name), 10, 64)
	return v
}
