// Package services – InquiryService
//
// This file implements InquiryService, which owns the inquiry workflow: it
// validates and normalizes input, enforces ownership, persists to the local
// store and mirrors every change to the remote directory under the same id.
//
// The dual-write is sequential and uncoordinated. Create and Update commit
// locally first and return the remote failure untouched. Delete stages the
// local removal in a transaction and commits only after the remote delete
// succeeded.
//
// Observability: all public methods are OpenTelemetry-instrumented and log
// through the request-scoped zerolog logger carried by the context.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/tbourn/go-inquiry-backend/internal/domain"
	"github.com/tbourn/go-inquiry-backend/internal/repo"
)

// InquiryRepo defines the repository contract required by InquiryService.
type InquiryRepo interface {
	// ListInquiries returns every inquiry owned by userID.
	ListInquiries(ctx context.Context, db *gorm.DB, userID string) ([]domain.Inquiry, error)

	// GetInquiry fetches an inquiry by id ensuring it belongs to the user.
	GetInquiry(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Inquiry, error)

	// InquiryExists reports whether the user still owns an inquiry with id.
	InquiryExists(ctx context.Context, db *gorm.DB, id, userID string) (bool, error)

	// CreateInquiry inserts a fully populated inquiry.
	CreateInquiry(ctx context.Context, db *gorm.DB, inq *domain.Inquiry) error

	// UpdateInquiry writes inq if the stored version equals expectedVersion.
	UpdateInquiry(ctx context.Context, db *gorm.DB, inq *domain.Inquiry, expectedVersion int) error

	// DeleteInquiry removes an inquiry owned by userID.
	DeleteInquiry(ctx context.Context, db *gorm.DB, id, userID string) error
}

// Mirror is the remote copy of an inquiry (crm.InquiryMirror in production).
type Mirror interface {
	Create(ctx context.Context, id, question, response, contactID string) error
	UpdateQuestion(ctx context.Context, id, question string) error
	Delete(ctx context.Context, id string) error
	Response(ctx context.Context, id string) (string, error)
}

// CreateInput is the user-editable part of a new inquiry.
type CreateInput struct {
	Question string
	Response string
}

// UpdateInput is a submitted edit. ID must match the addressed inquiry.
// Version is the token the client read; zero means "whatever is stored now".
type UpdateInput struct {
	ID       string
	Question string
	Response string
	Version  int
}

// InquiryService coordinates the local store and the remote mirror.
type InquiryService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the inquiry repository used by this service.
	Repo InquiryRepo
	// Mirror receives every change after the local write.
	Mirror Mirror

	// QuestionMaxLen and ResponseMaxLen cap input by rune length (0 = no cap).
	QuestionMaxLen int
	ResponseMaxLen int

	// NewID generates inquiry ids.
	NewID func() string
}

// NewInquiryService constructs an InquiryService with default limits.
func NewInquiryService(db *gorm.DB, r InquiryRepo, m Mirror) *InquiryService {
	return &InquiryService{
		DB:             db,
		Repo:           r,
		Mirror:         m,
		QuestionMaxLen: 2000,
		ResponseMaxLen: 4000,
		NewID:          uuid.NewString,
	}
}

var tracer = otel.Tracer("services/InquiryService")

func startSpan(ctx context.Context, name, userID, id string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("user.id", userID)}
	if id != "" {
		attrs = append(attrs, attribute.String("inquiry.id", id))
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// List returns all inquiries owned by userID.
func (s *InquiryService) List(ctx context.Context, userID string) (_ []domain.Inquiry, err error) {
	ctx, span := startSpan(ctx, "List", userID, "")
	defer func() { endSpan(span, err) }()

	return s.Repo.ListInquiries(ctx, s.DB, userID)
}

// Get returns the locally stored inquiry (edit form, delete confirmation).
func (s *InquiryService) Get(ctx context.Context, userID, id string) (_ *domain.Inquiry, err error) {
	ctx, span := startSpan(ctx, "Get", userID, id)
	defer func() { endSpan(span, err) }()

	return s.load(ctx, userID, id)
}

// Details returns the local inquiry with Response replaced by the remote
// copy. Nothing is persisted.
func (s *InquiryService) Details(ctx context.Context, userID, id string) (_ *domain.Inquiry, err error) {
	ctx, span := startSpan(ctx, "Details", userID, id)
	defer func() { endSpan(span, err) }()

	inq, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	resp, err := s.Mirror.Response(ctx, inq.ID)
	if err != nil {
		return nil, &MirrorError{Op: "response", Err: err}
	}
	inq.Response = resp
	return inq, nil
}

// Create validates input, stores a new inquiry owned by userID and mirrors it.
// A mirror failure is returned after the local row has been committed.
func (s *InquiryService) Create(ctx context.Context, userID string, in CreateInput) (_ *domain.Inquiry, err error) {
	ctx, span := startSpan(ctx, "Create", userID, "")
	defer func() { endSpan(span, err) }()

	question, response, err := s.validate(in.Question, in.Response)
	if err != nil {
		return nil, err
	}

	inq := &domain.Inquiry{
		ID:       s.NewID(),
		Question: question,
		Response: response,
		UserID:   userID,
	}
	span.SetAttributes(attribute.String("inquiry.id", inq.ID))

	if err := s.Repo.CreateInquiry(ctx, s.DB, inq); err != nil {
		return nil, err
	}
	log := zerolog.Ctx(ctx)
	log.Debug().Str("inquiry_id", inq.ID).Msg("inquiry stored locally")

	if err := s.Mirror.Create(ctx, inq.ID, inq.Question, inq.Response, userID); err != nil {
		log.Error().Err(err).Str("inquiry_id", inq.ID).Str("op", "create").Msg("mirror failed after local commit")
		return inq, &MirrorError{Op: "create", Err: err}
	}
	return inq, nil
}

// Update applies an edit with an optimistic version check, then rewrites the
// question on the mirror.
func (s *InquiryService) Update(ctx context.Context, userID, id string, in UpdateInput) (_ *domain.Inquiry, err error) {
	ctx, span := startSpan(ctx, "Update", userID, id)
	defer func() { endSpan(span, err) }()

	if id == "" || in.ID != id {
		return nil, ErrInquiryNotFound
	}
	question, response, err := s.validate(in.Question, in.Response)
	if err != nil {
		return nil, err
	}
	cur, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	expected := in.Version
	if expected <= 0 {
		expected = cur.Version
	}
	upd := *cur
	upd.Question = question
	upd.Response = response
	upd.UserID = userID

	if err := s.Repo.UpdateInquiry(ctx, s.DB, &upd, expected); err != nil {
		if !errors.Is(err, repo.ErrStaleVersion) {
			return nil, err
		}
		exists, xerr := s.Repo.InquiryExists(ctx, s.DB, id, userID)
		if xerr != nil {
			return nil, xerr
		}
		if !exists {
			return nil, ErrInquiryNotFound
		}
		return nil, ErrConcurrencyConflict
	}

	log := zerolog.Ctx(ctx)
	if err := s.Mirror.UpdateQuestion(ctx, upd.ID, upd.Question); err != nil {
		log.Error().Err(err).Str("inquiry_id", upd.ID).Str("op", "update").Msg("mirror failed after local commit")
		return &upd, &MirrorError{Op: "update", Err: err}
	}
	log.Debug().Str("inquiry_id", upd.ID).Int("version", upd.Version).Msg("inquiry updated")
	return &upd, nil
}

// Delete removes the inquiry locally and remotely. The local removal is
// committed only once the mirror delete succeeded.
func (s *InquiryService) Delete(ctx context.Context, userID, id string) (err error) {
	ctx, span := startSpan(ctx, "Delete", userID, id)
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(id) == "" {
		return ErrInquiryNotFound
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.Repo.DeleteInquiry(ctx, tx, id, userID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrInquiryNotFound
			}
			return err
		}
		if err := s.Mirror.Delete(ctx, id); err != nil {
			return &MirrorError{Op: "delete", Err: err}
		}
		return nil
	})
	if err != nil {
		return err
	}
	zerolog.Ctx(ctx).Debug().Str("inquiry_id", id).Msg("inquiry deleted")
	return nil
}

// load is the guarded lookup shared by every action.
func (s *InquiryService) load(ctx context.Context, userID, id string) (*domain.Inquiry, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInquiryNotFound
	}
	inq, err := s.Repo.GetInquiry(ctx, s.DB, id, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInquiryNotFound
		}
		return nil, err
	}
	if inq == nil {
		return nil, ErrInquiryNotFound
	}
	return inq, nil
}

// validate normalizes both fields and checks them against the limits.
func (s *InquiryService) validate(question, response string) (string, string, error) {
	question = normalizeText(question)
	response = normalizeText(response)

	fields := map[string]string{}
	switch {
	case question == "":
		fields["question"] = "is required"
	case s.QuestionMaxLen > 0 && utf8.RuneCountInString(question) > s.QuestionMaxLen:
		fields["question"] = fmt.Sprintf("must be at most %d characters", s.QuestionMaxLen)
	}
	if s.ResponseMaxLen > 0 && utf8.RuneCountInString(response) > s.ResponseMaxLen {
		fields["response"] = fmt.Sprintf("must be at most %d characters", s.ResponseMaxLen)
	}
	if len(fields) > 0 {
		return "", "", &ValidationError{Fields: fields}
	}
	return question, response, nil
}

// normalizeText trims surrounding whitespace and converts to NFC so that
// visually identical input is stored identically.
func normalizeText(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "�")
	}
	return strings.TrimSpace(norm.NFC.String(s))
}
