package controllers

import (
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"

	"techcafe/internal/delivery/http/helpers"
	"techcafe/internal/domain"
)

var discountCodeRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{3,50}$`)

// CreateDiscountRequest is the request body for POST /manage/gatherings/{gatheringID}/discounts.
type CreateDiscountRequest struct {
	Code       string `json:"code"`
	Percentage *int   `json:"discount_percentage"`
}

// Validate implements Validator.
func (d CreateDiscountRequest) Validate() []string {
	return helpers.ValidationMessages(validation.ValidateStruct(&d,
		validation.Field(&d.Code, validation.Required,
			validation.Match(discountCodeRegex).Error("must be 3 to 50 letters, digits, dashes or underscores")),
		validation.Field(&d.Percentage, validation.NotNil, validation.Min(0), validation.Max(100)),
	))
}

// SetDiscountStatusRequest is the request body for PATCH /manage/discounts/{discountID}.
type SetDiscountStatusRequest struct {
	Status *bool `json:"status"`
}

// Validate implements Validator.
func (s SetDiscountStatusRequest) Validate() []string {
	if s.Status == nil {
		return []string{"status: cannot be blank"}
	}
	return nil
}

// DiscountLookupSuccessResponse is the success response envelope for GET /discounts/{code} (200).
type DiscountLookupSuccessResponse struct {
	Data  *domain.DiscountLookup `json:"data"`
	Error *helpers.APIError      `json:"error"`
}

// DiscountSuccessResponse is the success response envelope for staff endpoints returning one discount.
type DiscountSuccessResponse struct {
	Data  *domain.Discount  `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// ListDiscountsSuccessResponse is the success response envelope for GET /manage/gatherings/{gatheringID}/discounts (200).
type ListDiscountsSuccessResponse struct {
	Data  []*domain.Discount `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

type DiscountController struct {
	Logger  *slog.Logger
	Service domain.DiscountService
}

func NewDiscountController(logger *slog.Logger, svc domain.DiscountService) *DiscountController {
	return &DiscountController{
		Logger:  logger,
		Service: svc,
	}
}

// LookupDiscount godoc
// @Summary Look up a discount code
// @Description Returns the percentage and gathering of an active code. Inactive and unknown codes are not found.
// @Tags discounts
// @Produce json
// @Param code path string true "Discount code"
// @Success 200 {object} controllers.DiscountLookupSuccessResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /discounts/{code} [get]
func (c *DiscountController) LookupDiscount(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.PathValue("code"))
	if !discountCodeRegex.MatchString(code) {
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "discount not found")
		return
	}
	lookup, err := c.Service.LookupActive(r.Context(), code)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, lookup)
}

// ListDiscounts godoc
// @Summary List the discounts of a gathering
// @Tags manage
// @Produce json
// @Security BearerAuth
// @Param gatheringID path string true "Gathering ID (UUID)"
// @Success 200 {object} controllers.ListDiscountsSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /manage/gatherings/{gatheringID}/discounts [get]
func (c *DiscountController) ListDiscounts(w http.ResponseWriter, r *http.Request) {
	gatheringID := r.PathValue("gatheringID")
	if !uuidRegex.MatchString(gatheringID) {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid gatheringID")
		return
	}
	list, err := c.Service.ListDiscounts(r.Context(), gatheringID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if list == nil {
		list = []*domain.Discount{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, list)
}

// CreateDiscount godoc
// @Summary Create a discount code
// @Tags manage
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param gatheringID path string true "Gathering ID (UUID)"
// @Param body body CreateDiscountRequest true "Code and percentage (0-100)"
// @Success 201 {object} controllers.DiscountSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Router /manage/gatherings/{gatheringID}/discounts [post]
func (c *DiscountController) CreateDiscount(w http.ResponseWriter, r *http.Request) {
	gatheringID := r.PathValue("gatheringID")
	if !uuidRegex.MatchString(gatheringID) {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid gatheringID")
		return
	}
	var req CreateDiscountRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	d, err := c.Service.CreateDiscount(r.Context(), gatheringID, req.Code, *req.Percentage)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, d)
}

// SetDiscountStatus godoc
// @Summary Activate or deactivate a discount
// @Tags manage
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param discountID path string true "Discount ID (UUID)"
// @Param body body SetDiscountStatusRequest true "New status"
// @Success 200 {object} controllers.DiscountSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /manage/discounts/{discountID} [patch]
func (c *DiscountController) SetDiscountStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("discountID")
	if !uuidRegex.MatchString(id) {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid discountID")
		return
	}
	var req SetDiscountStatusRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	d, err := c.Service.SetDiscountStatus(r.Context(), id, *req.Status)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, d)
}
