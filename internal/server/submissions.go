package server

import (
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/labstack/echo/v4"

	"dynaform/internal/core"
	"dynaform/internal/store"
	"dynaform/internal/validation"
)

// CreateSubmission handles POST /api/submissions
func (h *Handler) CreateSubmission(c echo.Context) error {
	var req core.SubmissionCreate
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewInvalidRequestError("invalid request body: "+err.Error(), err))
	}

	ctx := c.Request().Context()

	form, err := h.store.GetForm(ctx, req.FormSchemaID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return handleError(c, core.NewNotFoundError("Form not found"))
		}
		return handleError(c, err)
	}

	schema := validation.ParseSchema(form.SchemaDefinition)
	if res := validation.Validate(req.Data, schema); !res.Valid {
		return handleError(c, core.NewValidationError(res.Errors))
	}

	// Duplicate detection by email within the form. Duplicates are flagged,
	// not rejected.
	isDuplicate := false
	email := docEmail(req.Data)
	if email != "" {
		isDuplicate, err = h.store.SubmissionEmailExists(ctx, form.ID, email)
		if err != nil {
			return handleError(c, err)
		}
	}

	sub, err := h.store.CreateSubmission(ctx, &core.Submission{
		FormSchemaID:     form.ID,
		FormName:         form.Name,
		Data:             marshalDoc(req.Data),
		UserEmail:        email,
		ValidationStatus: "valid",
		IsDuplicate:      isDuplicate,
	})
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(http.StatusOK, sub)
}

// ListSubmissions handles GET /api/submissions
func (h *Handler) ListSubmissions(c echo.Context) error {
	formID := int64(queryInt(c, "form_id", 0))
	if formID == 0 {
		return handleError(c, core.NewInvalidRequestError("form_id required", nil))
	}

	ctx := c.Request().Context()

	form, err := h.store.GetForm(ctx, formID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return handleError(c, core.NewNotFoundError("Form not found"))
		}
		return handleError(c, err)
	}

	sort := c.QueryParam("sort")
	if sort == "" {
		sort = "created_at"
	}
	order := c.QueryParam("order")
	if order == "" {
		order = "desc"
	}
	page := queryInt(c, "page", 1)
	if page < 1 {
		page = 1
	}
	limit := clamp(queryInt(c, "limit", 20), 5, 100)

	subs, total, err := h.store.ListSubmissions(ctx, store.SubmissionListParams{
		FormID: formID,
		Email:  c.QueryParam("email"),
		Sort:   sort,
		Order:  order,
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return handleError(c, err)
	}
	if subs == nil {
		subs = []*core.Submission{}
	}

	totalPages := (total + limit - 1) / limit

	return c.JSON(http.StatusOK, &core.SubmissionList{
		FormID:      formID,
		FormName:    form.Name,
		Total:       total,
		Page:        page,
		Limit:       limit,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrev:     page > 1,
		Submissions: subs,
	})
}

// GetSubmission handles GET /api/submissions/:id
func (h *Handler) GetSubmission(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return handleError(c, err)
	}

	sub, err := h.store.GetSubmission(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return handleError(c, core.NewNotFoundError("Submission not found"))
		}
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, sub)
}

// DeleteSubmission handles DELETE /api/submissions/:id
func (h *Handler) DeleteSubmission(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return handleError(c, err)
	}

	if err := h.store.DeleteSubmission(c.Request().Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return handleError(c, core.NewNotFoundError("Submission not found"))
		}
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"ok":      true,
		"message": fmt.Sprintf("Submission %d deleted", id),
	})
}

// SubmissionAnalytics handles GET /api/submissions/analytics/:id
func (h *Handler) SubmissionAnalytics(c echo.Context) error {
	formID, err := pathID(c)
	if err != nil {
		return handleError(c, err)
	}

	ctx := c.Request().Context()

	form, err := h.store.GetForm(ctx, formID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return handleError(c, core.NewNotFoundError("Form not found"))
		}
		return handleError(c, err)
	}

	total, duplicates, err := h.store.SubmissionStats(ctx, formID)
	if err != nil {
		return handleError(c, err)
	}

	unique := 0
	percentage := 0.0
	if total > 0 {
		unique = total - duplicates
		percentage = math.Round(float64(duplicates)/float64(total)*100*100) / 100
	}

	return c.JSON(http.StatusOK, &core.SubmissionAnalytics{
		FormID:               formID,
		FormName:             form.Name,
		TotalSubmissions:     total,
		UniqueSubmissions:    unique,
		DuplicateSubmissions: duplicates,
		DuplicatePercentage:  percentage,
	})
}
