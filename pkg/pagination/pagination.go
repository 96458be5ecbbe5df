package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Params holds page/per_page query parameters.
type Params struct {
	Page    int
	PerPage int
}

// FromContext reads page and per_page. Missing or invalid values fall back
// to page 1 and defaultPerPage; per_page is capped at MaxPerPage.
func FromContext(c echo.Context, defaultPerPage int) Params {
	if defaultPerPage <= 0 {
		defaultPerPage = DefaultPerPage
	}
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(c.QueryParam("per_page"))
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return Params{Page: page, PerPage: perPage}
}

func (p Params) Limit() int {
	return p.PerPage
}

func (p Params) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Meta describes the page that was returned.
type Meta struct {
	Total    int `json:"total"`
	Page     int `json:"page"`
	PerPage  int `json:"per_page"`
	LastPage int `json:"last_page"`
}

func (p Params) Meta(total int) Meta {
	last := 0
	if p.PerPage > 0 {
		last = (total + p.PerPage - 1) / p.PerPage
	}
	return Meta{Total: total, Page: p.Page, PerPage: p.PerPage, LastPage: last}
}

// Response is the paginated list envelope.
type Response struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data"`
	Meta   Meta        `json:"meta"`
}

func NewResponse(data interface{}, p Params, total int) *Response {
	return &Response{Status: "success", Data: data, Meta: p.Meta(total)}
}
