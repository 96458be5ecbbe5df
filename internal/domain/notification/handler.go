package notification

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
	api.GET("/notifications", h.List)
	api.PUT("/notifications/mark-all-read", h.MarkAllRead)
	api.PUT("/notifications/:id/read", h.MarkRead)
}

type listResponse struct {
	Status      string          `json:"status"`
	Data        []*Notification `json:"data"`
	Meta        pagination.Meta `json:"meta"`
	UnreadCount int             `json:"unread_count"`
}

func (h *Handler) List(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c, 20)
	inbox, err := h.svc.List(c.Request().Context(), p.UserID, c.QueryParam("unread_only") == "1", pg)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listResponse{
		Status:      "success",
		Data:        inbox.Items,
		Meta:        pg.Meta(inbox.Total),
		UnreadCount: inbox.UnreadCount,
	})
}

func (h *Handler) MarkRead(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "ID inválido")
	}
	if err := h.svc.MarkRead(c.Request().Context(), id, p.UserID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Notificación marcada como leída",
	})
}

func (h *Handler) MarkAllRead(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	count, err := h.svc.MarkAllRead(c.Request().Context(), p.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Todas las notificaciones marcadas como leídas",
		"count":   count,
	})
}

func principal(c echo.Context) (auth.Principal, error) {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return auth.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "No autenticado")
	}
	return p, nil
}
