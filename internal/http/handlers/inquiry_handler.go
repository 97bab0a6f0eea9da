// Inquiry HTTP handlers.
//
// This file exposes the inquiry workflow:
//   - GET    /inquiries              (list)
//   - POST   /inquiries              (create)
//   - GET    /inquiries/{id}         (details, remote response merged)
//   - GET    /inquiries/{id}/edit    (edit form data)
//   - PUT    /inquiries/{id}         (edit)
//   - POST   /inquiries/{id}/edit    (edit, form post)
//   - GET    /inquiries/{id}/delete  (delete confirmation)
//   - DELETE /inquiries/{id}         (delete)
//   - POST   /inquiries/{id}/delete  (delete, form post)
//
// JSON clients receive the resource (or 204). Form posts
// (application/x-www-form-urlencoded, multipart/form-data) are answered with
// 303 See Other to the listing once the action succeeded.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-inquiry-backend/internal/domain"
	"github.com/tbourn/go-inquiry-backend/internal/http/middleware"
	"github.com/tbourn/go-inquiry-backend/internal/repo"
	"github.com/tbourn/go-inquiry-backend/internal/services"
)

// IdempotencyScopeCreate namespaces Idempotency-Key records for POST /inquiries.
const IdempotencyScopeCreate = "inquiries.create"

// InquiryService defines the workflow consumed by the HTTP handlers.
//
// Implementations must honor the provided context for cancellation and
// timeouts.
type InquiryService interface {
	List(ctx context.Context, userID string) ([]domain.Inquiry, error)
	Details(ctx context.Context, userID, id string) (*domain.Inquiry, error)
	Get(ctx context.Context, userID, id string) (*domain.Inquiry, error)
	Create(ctx context.Context, userID string, in services.CreateInput) (*domain.Inquiry, error)
	Update(ctx context.Context, userID, id string, in services.UpdateInput) (*domain.Inquiry, error)
	Delete(ctx context.Context, userID, id string) error
}

// Handlers groups the inquiry endpoints.
type Handlers struct {
	svc InquiryService

	// idemDB stores Idempotency-Key records; nil disables replay support.
	idemDB  *gorm.DB
	idemTTL time.Duration
}

// New constructs Handlers. db may be nil, in which case Idempotency-Key
// headers are accepted but not remembered.
func New(svc InquiryService, db *gorm.DB, idemTTL time.Duration) *Handlers {
	if idemTTL <= 0 {
		idemTTL = 24 * time.Hour
	}
	return &Handlers{svc: svc, idemDB: db, idemTTL: idemTTL}
}

// userID is the principal resolved by middleware.Identity.
func userID(c *gin.Context) string { return middleware.CurrentUserID(c) }

//
// DTOs
//

// CreateInquiryRequest is the payload for creating an inquiry.
type CreateInquiryRequest struct {
	Question string `json:"question" form:"question" example:"When does the spring term start?"`
	Response string `json:"response" form:"response" example:""`
}

// UpdateInquiryRequest is the payload for editing an inquiry. ID must equal
// the path id. Version is the optimistic concurrency token last read; omit
// it to overwrite whatever is stored.
type UpdateInquiryRequest struct {
	ID       string `json:"id"       form:"id"       example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	Question string `json:"question" form:"question" example:"When does the autumn term start?"`
	Response string `json:"response" form:"response"`
	Version  int    `json:"version"  form:"version"  example:"1"`
}

// ListInquiriesResponse wraps the caller's inquiries.
type ListInquiriesResponse struct {
	Inquiries []domain.Inquiry `json:"inquiries"`
}

//
// Helpers
//

// isForm reports whether the request is an HTML form submission.
func isForm(c *gin.Context) bool {
	switch c.ContentType() {
	case gin.MIMEPOSTForm, gin.MIMEMultipartPOSTForm:
		return true
	}
	return false
}

// listingPath returns the list URL for the collection the request addressed.
func listingPath(c *gin.Context) string {
	p := c.Request.URL.Path
	if i := strings.LastIndex(p, "/inquiries"); i >= 0 {
		return p[:i+len("/inquiries")]
	}
	return "/inquiries"
}

// failService maps workflow errors onto HTTP responses.
func failService(c *gin.Context, err error, fallbackCode string) {
	var (
		ve *services.ValidationError
		me *services.MirrorError
	)
	switch {
	case errors.Is(err, services.ErrInquiryNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "inquiry not found")
	case errors.As(err, &ve):
		failFields(c, http.StatusUnprocessableEntity, ErrCodeValidation, services.ErrValidation.Error(), ve.Fields)
	case errors.Is(err, services.ErrConcurrencyConflict):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.As(err, &me):
		fail(c, http.StatusBadGateway, ErrCodeDirectoryFailed, me.Error())
	case errors.Is(err, context.DeadlineExceeded):
		fail(c, http.StatusGatewayTimeout, fallbackCode, err.Error())
	default:
		fail(c, http.StatusInternalServerError, fallbackCode, err.Error())
	}
}

// done finishes a mutating action: 303 for forms, the JSON body otherwise.
func done(c *gin.Context, status int, body any) {
	if isForm(c) {
		seeOther(c, listingPath(c))
		return
	}
	if body == nil {
		noContent(c)
		return
	}
	ok(c, status, body)
}

//
// Handlers
//

// ListInquiries godoc
// @ID          listInquiries
// @Summary     List inquiries
// @Description Returns every inquiry owned by the current user, oldest first.
// @Tags        Inquiries
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object} handlers.ListInquiriesResponse
// @Failure     401  {object} handlers.ErrorResponse "Unauthenticated"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /inquiries [get]
func (h *Handlers) ListInquiries(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context(), userID(c))
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, ListInquiriesResponse{Inquiries: items})
}

// GetInquiry godoc
// @ID          getInquiry
// @Summary     Inquiry details
// @Description Returns one inquiry; the response text is read from the CRM.
// @Tags        Inquiries
// @Produce     json
// @Security    BearerAuth
// @Param       id   path     string  true  "Inquiry ID (UUID)"  format(uuid)
// @Success     200  {object} domain.Inquiry
// @Failure     404  {object} handlers.ErrorResponse "Inquiry not found"
// @Failure     502  {object} handlers.ErrorResponse "CRM call failed"
// @Router      /inquiries/{id} [get]
func (h *Handlers) GetInquiry(c *gin.Context) {
	inq, err := h.svc.Details(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		failService(c, err, ErrCodeGetFailed)
		return
	}
	ok(c, http.StatusOK, inq)
}

// EditForm godoc
// @ID          editInquiryForm
// @Summary     Inquiry edit form data
// @Description Returns the locally stored inquiry, including its version token.
// @Tags        Inquiries
// @Produce     json
// @Security    BearerAuth
// @Param       id   path     string  true  "Inquiry ID (UUID)"  format(uuid)
// @Success     200  {object} domain.Inquiry
// @Failure     404  {object} handlers.ErrorResponse "Inquiry not found"
// @Router      /inquiries/{id}/edit [get]
func (h *Handlers) EditForm(c *gin.Context) {
	h.getLocal(c)
}

// DeleteConfirm godoc
// @ID          deleteInquiryConfirm
// @Summary     Inquiry delete confirmation
// @Description Returns the inquiry that a subsequent delete would remove.
// @Tags        Inquiries
// @Produce     json
// @Security    BearerAuth
// @Param       id   path     string  true  "Inquiry ID (UUID)"  format(uuid)
// @Success     200  {object} domain.Inquiry
// @Failure     404  {object} handlers.ErrorResponse "Inquiry not found"
// @Router      /inquiries/{id}/delete [get]
func (h *Handlers) DeleteConfirm(c *gin.Context) {
	h.getLocal(c)
}

func (h *Handlers) getLocal(c *gin.Context) {
	inq, err := h.svc.Get(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		failService(c, err, ErrCodeGetFailed)
		return
	}
	ok(c, http.StatusOK, inq)
}

// CreateInquiry godoc
// @ID          createInquiry
// @Summary     Create an inquiry
// @Description Stores the inquiry and mirrors it to the CRM. Supports Idempotency-Key.
// @Tags        Inquiries
// @Accept      json
// @Accept      x-www-form-urlencoded
// @Produce     json
// @Security    BearerAuth
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"
// @Param       body             body    handlers.CreateInquiryRequest  true  "New inquiry"
// @Success     201  {object} domain.Inquiry
// @Success     303  {string} string "Form post: redirect to listing"
// @Failure     400  {object} handlers.ErrorResponse "Malformed body"
// @Failure     422  {object} handlers.ErrorResponse "Validation failed"
// @Failure     502  {object} handlers.ErrorResponse "CRM call failed"
// @Router      /inquiries [post]
func (h *Handlers) CreateInquiry(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)

	var req CreateInquiryRequest
	if err := c.ShouldBind(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}

	// Idempotency (replay path).
	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey != "" && h.idemDB != nil {
		if rec, err := repo.GetIdempotency(ctx, h.idemDB, uid, IdempotencyScopeCreate, idemKey, time.Now().UTC()); err == nil {
			if prev, err := h.svc.Get(ctx, uid, rec.ResourceID); err == nil {
				c.Header("Idempotency-Replayed", "true")
				done(c, http.StatusOK, prev)
				return
			}
		}
	}

	inq, err := h.svc.Create(ctx, uid, services.CreateInput{Question: req.Question, Response: req.Response})
	if err != nil {
		// The local row is committed even when the mirror failed; remember the
		// key so a retry replays it instead of creating a second inquiry.
		var me *services.MirrorError
		if inq != nil && errors.As(err, &me) {
			h.rememberCreate(c, uid, idemKey, inq.ID, http.StatusBadGateway)
		}
		failService(c, err, ErrCodeCreateFailed)
		return
	}
	h.rememberCreate(c, uid, idemKey, inq.ID, http.StatusCreated)

	c.Header("Location", listingPath(c)+"/"+inq.ID)
	done(c, http.StatusCreated, inq)
}

// UpdateInquiry godoc
// @ID          updateInquiry
// @Summary     Edit an inquiry
// @Description Updates question and response with an optimistic version check, then updates the CRM question.
// @Tags        Inquiries
// @Accept      json
// @Accept      x-www-form-urlencoded
// @Produce     json
// @Security    BearerAuth
// @Param       id    path    string  true  "Inquiry ID (UUID)"  format(uuid)
// @Param       body  body    handlers.UpdateInquiryRequest  true  "Edited inquiry"
// @Success     200  {object} domain.Inquiry
// @Success     303  {string} string "Form post: redirect to listing"
// @Failure     404  {object} handlers.ErrorResponse "Inquiry not found or id mismatch"
// @Failure     409  {object} handlers.ErrorResponse "Concurrent modification"
// @Failure     422  {object} handlers.ErrorResponse "Validation failed"
// @Failure     502  {object} handlers.ErrorResponse "CRM call failed"
// @Router      /inquiries/{id} [put]
// @Router      /inquiries/{id}/edit [post]
func (h *Handlers) UpdateInquiry(c *gin.Context) {
	var req UpdateInquiryRequest
	if err := c.ShouldBind(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}

	inq, err := h.svc.Update(c.Request.Context(), userID(c), c.Param("id"), services.UpdateInput{
		ID:       strings.TrimSpace(req.ID),
		Question: req.Question,
		Response: req.Response,
		Version:  req.Version,
	})
	if err != nil {
		failService(c, err, ErrCodeUpdateFailed)
		return
	}
	done(c, http.StatusOK, inq)
}

// DeleteInquiry godoc
// @ID          deleteInquiry
// @Summary     Delete an inquiry
// @Description Removes the CRM mirror and, once that succeeded, the local record.
// @Tags        Inquiries
// @Produce     json
// @Security    BearerAuth
// @Param       id   path     string  true  "Inquiry ID (UUID)"  format(uuid)
// @Success     204  {string} string "No Content"
// @Success     303  {string} string "Form post: redirect to listing"
// @Failure     404  {object} handlers.ErrorResponse "Inquiry not found"
// @Failure     502  {object} handlers.ErrorResponse "CRM call failed"
// @Router      /inquiries/{id} [delete]
// @Router      /inquiries/{id}/delete [post]
func (h *Handlers) DeleteInquiry(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		failService(c, err, ErrCodeDeleteFailed)
		return
	}
	done(c, http.StatusNoContent, nil)
}

// rememberCreate stores the idempotency record for a create, best effort.
func (h *Handlers) rememberCreate(c *gin.Context, uid, key, inquiryID string, status int) {
	if key == "" || h.idemDB == nil {
		return
	}
	_, err := repo.CreateIdempotency(c.Request.Context(), h.idemDB, uid, IdempotencyScopeCreate, key, inquiryID, status, h.idemTTL)
	if err != nil && !errors.Is(err, repo.ErrDuplicate) {
		lg := middleware.LoggerFrom(c)
		lg.Warn().Err(err).Str("inquiry_id", inquiryID).Msg("idempotency record not stored")
	}
}
