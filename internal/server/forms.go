package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"dynaform/internal/core"
	"dynaform/internal/store"
	"dynaform/internal/validation"
)

// CreateForm handles POST /api/forms
func (h *Handler) CreateForm(c echo.Context) error {
	var req core.FormCreate
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewInvalidRequestError("invalid request body: "+err.Error(), err))
	}

	if len(req.Name) < 3 {
		return handleError(c, core.NewInvalidRequestError("Name must be at least 3 characters", nil))
	}

	schema := validation.ParseSchema(req.SchemaDefinition)
	if len(schema) == 0 {
		return handleError(c, core.NewInvalidRequestError("Schema cannot be empty", nil))
	}

	ctx := c.Request().Context()

	exists, err := h.store.FormNameExists(ctx, req.Name, 0)
	if err != nil {
		return handleError(c, err)
	}
	if exists {
		return handleError(c, core.NewConflictError(fmt.Sprintf("Form '%s' already exists", req.Name)))
	}

	// Optional owner details are validated against the form's own schema.
	if len(req.UserDetails) > 0 {
		if res := validation.Validate(req.UserDetails, schema); !res.Valid {
			return handleError(c, core.NewValidationError(res.Errors))
		}
	}

	if email := docEmail(req.UserDetails); email != "" {
		exists, err := h.store.FormEmailExists(ctx, email, 0)
		if err != nil {
			return handleError(c, err)
		}
		if exists {
			return handleError(c, core.NewConflictError(fmt.Sprintf("Email '%s' already exists in system", email)))
		}
	}

	form, err := h.store.CreateForm(ctx, &core.Form{
		Name:             req.Name,
		Description:      req.Description,
		SchemaDefinition: req.SchemaDefinition,
		Data:             marshalDoc(req.Data),
		UserDetails:      marshalDoc(req.UserDetails),
	})
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(http.StatusOK, form)
}

// ListForms handles GET /api/forms
func (h *Handler) ListForms(c echo.Context) error {
	search := c.QueryParam("search")
	sort := c.QueryParam("sort")
	if sort == "" {
		sort = "created_at"
	}
	order := c.QueryParam("order")
	if order == "" {
		order = "desc"
	}
	skip := queryInt(c, "skip", 0)
	if skip < 0 {
		skip = 0
	}
	limit := clamp(queryInt(c, "limit", 100), 1, 1000)

	forms, total, err := h.store.ListForms(c.Request().Context(), store.FormListParams{
		Search: search,
		Sort:   sort,
		Order:  order,
		Skip:   skip,
		Limit:  limit,
	})
	if err != nil {
		return handleError(c, err)
	}
	if forms == nil {
		forms = []*core.Form{}
	}

	searchMode := "all"
	if search != "" {
		searchMode = "prefix"
	}

	return c.JSON(http.StatusOK, &core.FormList{
		Total:      total,
		Skip:       skip,
		Limit:      limit,
		Forms:      forms,
		SearchMode: searchMode,
		Sort:       sort,
		Order:      order,
	})
}

// GetForm handles GET /api/forms/:id
func (h *Handler) GetForm(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return handleError(c, err)
	}

	form, err := h.store.GetForm(c.Request().Context(), id)
	if err != nil {
		return handleError(c, formLookupError(id, err))
	}
	return c.JSON(http.StatusOK, form)
}

// UpdateForm handles PUT /api/forms/:id
func (h *Handler) UpdateForm(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return handleError(c, err)
	}

	var req core.FormCreate
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewInvalidRequestError("invalid request body: "+err.Error(), err))
	}

	ctx := c.Request().Context()

	form, err := h.store.GetForm(ctx, id)
	if err != nil {
		return handleError(c, formLookupError(id, err))
	}

	// Name uniqueness only matters when the name actually changed.
	if req.Name != form.Name {
		exists, err := h.store.FormNameExists(ctx, req.Name, id)
		if err != nil {
			return handleError(c, err)
		}
		if exists {
			return handleError(c, core.NewConflictError(fmt.Sprintf("Form name '%s' already exists", req.Name)))
		}
	}

	schema := validation.ParseSchema(req.SchemaDefinition)
	if len(req.UserDetails) > 0 {
		if res := validation.Validate(req.UserDetails, schema); !res.Valid {
			return handleError(c, core.NewValidationError(res.Errors))
		}
	}

	if email := docEmail(req.UserDetails); email != "" {
		exists, err := h.store.FormEmailExists(ctx, email, id)
		if err != nil {
			return handleError(c, err)
		}
		if exists {
			return handleError(c, core.NewConflictError(fmt.Sprintf("Email '%s' already in use", email)))
		}
	}

	form.Name = req.Name
	form.Description = req.Description
	form.SchemaDefinition = req.SchemaDefinition
	form.Data = marshalDoc(req.Data)
	form.UserDetails = marshalDoc(req.UserDetails)

	updated, err := h.store.UpdateForm(ctx, form)
	if err != nil {
		return handleError(c, formLookupError(id, err))
	}
	return c.JSON(http.StatusOK, updated)
}

// DeleteForm handles DELETE /api/forms/:id
func (h *Handler) DeleteForm(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return handleError(c, err)
	}

	if err := h.store.DeleteForm(c.Request().Context(), id); err != nil {
		return handleError(c, formLookupError(id, err))
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Form %d deleted", id),
	})
}

// FormStats handles GET /api/forms/stats/summary
func (h *Handler) FormStats(c echo.Context) error {
	total, err := h.store.CountForms(c.Request().Context())
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, &core.FormStats{
		TotalForms: total,
		Cached:     true,
	})
}

func formLookupError(id int64, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return core.NewNotFoundError(fmt.Sprintf("Form %d not found", id))
	}
	return err
}

// marshalDoc renders an optional request document as raw JSON, defaulting
// to the empty object.
func marshalDoc(m map[string]any) json.RawMessage {
	if len(m) == 0 {
		return json.RawMessage("{}")
	}
	b, err := json.Marshal(m)
	if err != nil {
		return json.RawMessage("{}")
	}
	return b
}

// docEmail pulls the email value out of a request document, if any.
func docEmail(m map[string]any) string {
	if v, ok := m["email"].(string); ok {
		return v
	}
	return ""
}
