package controllers

import (
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"techcafe/internal/delivery/http/helpers"
	"techcafe/internal/domain"
)

// uuidRegex matches a canonical UUID string (8-4-4-4-12 hex).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// GatheringListItem is the list view of a gathering: a snippet instead of the description and no link.
type GatheringListItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Snippet     string    `json:"snippet"`
	PosterURL   string    `json:"poster_url,omitempty"`
	Price       int64     `json:"price"`
	Date        time.Time `json:"date"`
	IsOnline    bool      `json:"is_online"`
	IsHeld      bool      `json:"is_held"`
	IsOccupied  bool      `json:"is_occupied"`
	MaxSeats    int       `json:"max_seats"`
	FilledSeats int       `json:"filled_seats"`
	EmptySeats  int       `json:"empty_seats"`
}

func newGatheringListItem(g *domain.Gathering) GatheringListItem {
	return GatheringListItem{
		ID:          g.ID,
		Title:       g.Title,
		Snippet:     g.Snippet(),
		PosterURL:   g.PosterURL,
		Price:       g.Price,
		Date:        g.Date,
		IsOnline:    g.IsOnline,
		IsHeld:      g.IsHeld,
		IsOccupied:  g.IsOccupied,
		MaxSeats:    g.MaxSeats,
		FilledSeats: g.FilledSeats,
		EmptySeats:  g.EmptySeats(),
	}
}

// GatheringDetail is the public detail view. The online link is only shown to ticket holders.
type GatheringDetail struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PosterURL   string    `json:"poster_url,omitempty"`
	Address     string    `json:"address,omitempty"`
	Price       int64     `json:"price"`
	Date        time.Time `json:"date"`
	IsOnline    bool      `json:"is_online"`
	IsHeld      bool      `json:"is_held"`
	IsOccupied  bool      `json:"is_occupied"`
	Presenters  []string  `json:"presenters"`
	MaxSeats    int       `json:"max_seats"`
	FilledSeats int       `json:"filled_seats"`
	EmptySeats  int       `json:"empty_seats"`
}

func newGatheringDetail(g *domain.Gathering) GatheringDetail {
	presenters := g.Presenters
	if presenters == nil {
		presenters = []string{}
	}
	return GatheringDetail{
		ID:          g.ID,
		Title:       g.Title,
		Description: g.Description,
		PosterURL:   g.PosterURL,
		Address:     g.Address,
		Price:       g.Price,
		Date:        g.Date,
		IsOnline:    g.IsOnline,
		IsHeld:      g.IsHeld,
		IsOccupied:  g.IsOccupied,
		Presenters:  presenters,
		MaxSeats:    g.MaxSeats,
		FilledSeats: g.FilledSeats,
		EmptySeats:  g.EmptySeats(),
	}
}

// ListGatheringsResponse is the response body for GET /gatherings.
type ListGatheringsResponse struct {
	Items      []GatheringListItem    `json:"items"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// ListGatheringsSuccessResponse is the success response envelope for GET /gatherings (200).
type ListGatheringsSuccessResponse struct {
	Data  ListGatheringsResponse `json:"data"`
	Error *helpers.APIError      `json:"error"`
}

// GatheringDetailSuccessResponse is the success response envelope for GET /gatherings/{gatheringID} (200).
type GatheringDetailSuccessResponse struct {
	Data  GatheringDetail   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// GatheringSuccessResponse is the success response envelope for staff endpoints returning a full gathering.
type GatheringSuccessResponse struct {
	Data  *domain.Gathering `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// UpdateGatheringSuccessResponse is the success response envelope for PATCH /manage/gatherings/{gatheringID} (200).
type UpdateGatheringSuccessResponse struct {
	Data  *domain.GatheringUpdateResult `json:"data"`
	Error *helpers.APIError             `json:"error"`
}

// CreateGatheringRequest is the request body for POST /manage/gatherings.
type CreateGatheringRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PosterURL   string    `json:"poster_url"`
	Address     string    `json:"address"`
	Price       int64     `json:"price"`
	Link        string    `json:"link"`
	Date        time.Time `json:"date"`
	MaxSeats    int       `json:"max_seats"`
	IsOnline    bool      `json:"is_online"`
	IsOccupied  bool      `json:"is_occupied"`
}

// Validate implements Validator. The link/online rule is checked by the service.
func (g CreateGatheringRequest) Validate() []string {
	return helpers.ValidationMessages(validation.ValidateStruct(&g,
		validation.Field(&g.Title, validation.Required, validation.Length(1, 255), helpers.NoMarkup),
		validation.Field(&g.Description, helpers.NoMarkup),
		validation.Field(&g.PosterURL, is.URL),
		validation.Field(&g.Address, validation.Length(0, 500), helpers.NoMarkup),
		validation.Field(&g.Price, validation.Min(0)),
		validation.Field(&g.Link, is.URL),
		validation.Field(&g.Date, validation.Required),
		validation.Field(&g.MaxSeats, validation.Min(0)),
	))
}

// UpdateGatheringRequest is the request body for PATCH /manage/gatherings/{gatheringID}.
// Setting is_held to true prunes unpaid registrations and deactivates discounts.
type UpdateGatheringRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	PosterURL   *string    `json:"poster_url"`
	Address     *string    `json:"address"`
	Price       *int64     `json:"price"`
	Link        *string    `json:"link"`
	Date        *time.Time `json:"date"`
	MaxSeats    *int       `json:"max_seats"`
	IsOnline    *bool      `json:"is_online"`
	IsHeld      *bool      `json:"is_held"`
	IsOccupied  *bool      `json:"is_occupied"`
}

// Validate implements Validator.
func (u UpdateGatheringRequest) Validate() []string {
	return helpers.ValidationMessages(validation.ValidateStruct(&u,
		validation.Field(&u.Title, validation.Length(1, 255), helpers.NoMarkup),
		validation.Field(&u.Description, helpers.NoMarkup),
		validation.Field(&u.PosterURL, is.URL),
		validation.Field(&u.Address, validation.Length(0, 500), helpers.NoMarkup),
		validation.Field(&u.Price, validation.Min(0)),
		validation.Field(&u.Link, is.URL),
		validation.Field(&u.MaxSeats, validation.Min(0)),
	))
}

func (u UpdateGatheringRequest) patch() domain.GatheringPatch {
	return domain.GatheringPatch{
		Title:       u.Title,
		Description: u.Description,
		PosterURL:   u.PosterURL,
		Address:     u.Address,
		Price:       u.Price,
		Link:        u.Link,
		Date:        u.Date,
		MaxSeats:    u.MaxSeats,
		IsOnline:    u.IsOnline,
		IsHeld:      u.IsHeld,
		IsOccupied:  u.IsOccupied,
	}
}

// SetPresentersRequest is the request body for PUT /manage/gatherings/{gatheringID}/presenters.
type SetPresentersRequest struct {
	UserIDs []string `json:"user_ids"`
}

// Validate implements Validator.
func (p SetPresentersRequest) Validate() []string {
	return helpers.ValidationMessages(validation.ValidateStruct(&p,
		validation.Field(&p.UserIDs, validation.NotNil, validation.Each(validation.Match(uuidRegex).Error("must be a UUID"))),
	))
}

// GatheringController serves the public catalog and the staff gathering endpoints.
type GatheringController struct {
	Logger  *slog.Logger
	Service domain.GatheringService
}

func NewGatheringController(logger *slog.Logger, svc domain.GatheringService) *GatheringController {
	return &GatheringController{
		Logger:  logger,
		Service: svc,
	}
}

// ListGatherings godoc
// @Summary List gatherings
// @Description Paginated public list. search matches the title case-insensitively; ordering is one of date, -date, is_held, -is_held, is_occupied, -is_occupied.
// @Tags gatherings
// @Produce json
// @Param search query string false "Title search"
// @Param ordering query string false "Ordering"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.ListGatheringsSuccessResponse
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /gatherings [get]
func (c *GatheringController) ListGatherings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := domain.GatheringListParams{
		Search:           strings.TrimSpace(q.Get("search")),
		Ordering:         q.Get("ordering"),
		PaginationParams: helpers.ParsePagination(r),
	}
	list, total, err := c.Service.ListGatherings(r.Context(), params)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	items := make([]GatheringListItem, 0, len(list))
	for _, g := range list {
		items = append(items, newGatheringListItem(g))
	}
	meta := helpers.NewPaginationMeta(params.PaginationParams, total)
	helpers.WriteJSONSuccess(w, http.StatusOK, ListGatheringsResponse{Items: items, Pagination: meta})
}

// GetGathering godoc
// @Summary Get a gathering
// @Tags gatherings
// @Produce json
// @Param gatheringID path string true "Gathering ID (UUID)"
// @Success 200 {object} controllers.GatheringDetailSuccessResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /gatherings/{gatheringID} [get]
func (c *GatheringController) GetGathering(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("gatheringID")
	if !uuidRegex.MatchString(id) {
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "gathering not found")
		return
	}
	g, err := c.Service.GetGathering(r.Context(), id)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, newGatheringDetail(g))
}

// CreateGathering godoc
// @Summary Create a gathering
// @Description Staff only. An online gathering needs a link and an in-person one must not have one.
// @Tags manage
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateGatheringRequest true "Gathering data"
// @Success 201 {object} controllers.GatheringSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /manage/gatherings [post]
func (c *GatheringController) CreateGathering(w http.ResponseWriter, r *http.Request) {
	var req CreateGatheringRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	g, err := c.Service.CreateGathering(r.Context(), &domain.Gathering{
		Title:       req.Title,
		Description: req.Description,
		PosterURL:   req.PosterURL,
		Address:     req.Address,
		Price:       req.Price,
		Link:        req.Link,
		Date:        req.Date,
		MaxSeats:    req.MaxSeats,
		IsOnline:    req.IsOnline,
		IsOccupied:  req.IsOccupied,
	})
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, g)
}

// UpdateGathering godoc
// @Summary Update a gathering
// @Description Staff only. Marking a gathering held prunes its unpaid registrations (priced gatherings only) and deactivates its discounts in the same transaction.
// @Tags manage
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param gatheringID path string true "Gathering ID (UUID)"
// @Param body body UpdateGatheringRequest true "Fields to update (all optional)"
// @Success 200 {object} controllers.UpdateGatheringSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /manage/gatherings/{gatheringID} [patch]
func (c *GatheringController) UpdateGathering(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("gatheringID")
	if !uuidRegex.MatchString(id) {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid gatheringID")
		return
	}
	var req UpdateGatheringRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	res, err := c.Service.UpdateGathering(r.Context(), id, req.patch())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, res)
}

// DeleteGathering godoc
// @Summary Delete a gathering
// @Tags manage
// @Security BearerAuth
// @Param gatheringID path string true "Gathering ID (UUID)"
// @Success 204 "No Content"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /manage/gatherings/{gatheringID} [delete]
func (c *GatheringController) DeleteGathering(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("gatheringID")
	if !uuidRegex.MatchString(id) {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid gatheringID")
		return
	}
	if err := c.Service.DeleteGathering(r.Context(), id); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetPresenters godoc
// @Summary Replace the presenters of a gathering
// @Tags manage
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param gatheringID path string true "Gathering ID (UUID)"
// @Param body body SetPresentersRequest true "Presenter user IDs"
// @Success 200 {object} controllers.GatheringSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /manage/gatherings/{gatheringID}/presenters [put]
func (c *GatheringController) SetPresenters(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("gatheringID")
	if !uuidRegex.MatchString(id) {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "invalid gatheringID")
		return
	}
	var req SetPresentersRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	g, err := c.Service.SetPresenters(r.Context(), id, req.UserIDs)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, g)
}
