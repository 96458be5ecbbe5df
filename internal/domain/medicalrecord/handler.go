package medicalrecord

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
	api.GET("/patients/:id/medical-records", h.ListByPatient)
	api.GET("/medical-records/:id", h.Get)

	api.POST("/patients/:id/medical-records", h.Create, auth.RequireRole(auth.RolePhysician))
}

func (h *Handler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	patientID, err := pathID(c)
	if err != nil {
		return err
	}
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "JSON inválido")
	}
	rec, err := h.svc.Create(c.Request().Context(), patientID, in, p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"status":  "success",
		"message": "Registro médico creado exitosamente",
		"data":    rec,
	})
}

func (h *Handler) Get(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	rec, err := h.svc.Get(c.Request().Context(), id, p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"status": "success", "data": rec})
}

func (h *Handler) ListByPatient(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	patientID, err := pathID(c)
	if err != nil {
		return err
	}
	page := pagination.FromContext(c, DefaultPerPage)
	if page.PerPage > MaxPerPage {
		page.PerPage = MaxPerPage
	}
	items, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, page, p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, page, total))
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
