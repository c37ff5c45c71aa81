package router

import (
	"net/http"

	"github.com/DjordjeVuckovic/facetq/internal/api/dto"
	"github.com/DjordjeVuckovic/facetq/internal/apperr"
	"github.com/DjordjeVuckovic/facetq/internal/schema"
	"github.com/DjordjeVuckovic/facetq/internal/search"
	"github.com/labstack/echo/v4"
)

type SearchRouter struct {
	e       *echo.Echo
	service *search.Service
}

func NewSearchRouter(e *echo.Echo, service *search.Service) *SearchRouter {
	return &SearchRouter{
		e:       e,
		service: service,
	}
}

func (r *SearchRouter) Bind() {
	v1 := r.e.Group("/v1")
	v1.POST("/search", r.searchHandler)
	v1.POST("/render", r.renderHandler)
	v1.POST("/documents", r.indexHandler)
	v1.GET("/schema", r.schemaHandler)
}

func (r *SearchRouter) bind(c echo.Context) (dto.SearchRequest, search.Request, error) {
	var body dto.SearchRequest
	if err := c.Bind(&body); err != nil {
		return body, search.Request{}, apperr.NewValidationWrap("invalid request body", err)
	}
	req, err := body.ToSearch(r.service.Schema())
	return body, req, err
}

// @Summary Search documents
// @Tags search
// @Accept json
// @Produce json
// @Param request body dto.SearchRequest true "filter, facets and page"
// @Success 200 {object} search.Response
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Failure 501 {object} map[string]string
// @Router /v1/search [post]
func (r *SearchRouter) searchHandler(c echo.Context) error {
	_, req, err := r.bind(c)
	if err != nil {
		return err
	}
	res, err := r.service.Search(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// @Summary Render the backend query for a request without running it
// @Tags search
// @Accept json
// @Produce json
// @Param request body dto.SearchRequest true "filter, facets and target backend"
// @Success 200 {object} search.Rendered
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /v1/render [post]
func (r *SearchRouter) renderHandler(c echo.Context) error {
	body, req, err := r.bind(c)
	if err != nil {
		return err
	}
	backend, err := body.BackendType()
	if err != nil {
		return apperr.NewValidationWrap("invalid backend", err)
	}
	out, err := r.service.Render(req, backend)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// @Summary Index documents
// @Tags documents
// @Accept json
// @Produce json
// @Param request body dto.IndexRequest true "documents with their children"
// @Success 201 {object} dto.IndexResponse
// @Failure 400 {object} map[string]string
// @Failure 501 {object} map[string]string
// @Router /v1/documents [post]
func (r *SearchRouter) indexHandler(c echo.Context) error {
	var body dto.IndexRequest
	if err := c.Bind(&body); err != nil {
		return apperr.NewValidationWrap("invalid request body", err)
	}
	if len(body.Documents) == 0 {
		return apperr.NewValidation("documents are required")
	}
	n, err := r.service.Index(c.Request().Context(), body.Documents, body.Context)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, dto.IndexResponse{Indexed: n})
}

// @Summary Active document schema
// @Tags schema
// @Produce json
// @Success 200 {object} schema.Spec
// @Router /v1/schema [get]
func (r *SearchRouter) schemaHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, schema.SpecOf(r.service.Schema()))
}
