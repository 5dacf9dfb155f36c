package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/oXide0/simplicity/internal/models"
	"github.com/oXide0/simplicity/internal/repository"
	"github.com/oXide0/simplicity/pkg/dates"
	appErrors "github.com/oXide0/simplicity/pkg/errors"
)

type announcementRepository interface {
	List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, error)
	GetByID(ctx context.Context, id string) (*models.Announcement, error)
	Create(ctx context.Context, announcement *models.Announcement, categoryIDs []int64) error
	Update(ctx context.Context, announcement *models.Announcement, categoryIDs []int64) error
	Delete(ctx context.Context, id string) (bool, error)
}

// AnnouncementService handles announcement workflows. Validation runs
// here so malformed payloads never reach the repository.
type AnnouncementService struct {
	repo      announcementRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAnnouncementService constructs the service.
func NewAnnouncementService(repo announcementRepository, validate *validator.Validate, logger *zap.Logger) *AnnouncementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AnnouncementService{repo: repo, validator: validate, logger: logger}
	svc.validator.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	svc.validator.RegisterValidation("pubdate", func(fl validator.FieldLevel) bool {
		_, err := parsePublicationDate(fl.Field().String())
		return err == nil
	})
	return svc
}

// AnnouncementRequest is the shared create/update payload. Both
// operations replace every field, including the whole category set.
type AnnouncementRequest struct {
	Title           string  `json:"title" validate:"notblank"`
	Body            string  `json:"body" validate:"notblank"`
	PublicationDate string  `json:"publicationDate" validate:"notblank,pubdate"`
	CategoryIDs     []int64 `json:"categoryIds" validate:"required,min=1"`
}

// validationMessages maps struct field and failed tag to the message
// shown to clients. Every violation is collected, not just the first.
var validationMessages = map[string]map[string]string{
	"Title": {"notblank": "Title is required"},
	"Body":  {"notblank": "Body is required"},
	"PublicationDate": {
		"notblank": "Publication date is required",
		"pubdate":  "Publication date must be a valid date",
	},
	"CategoryIDs": {
		"required": "At least one category is required",
		"min":      "At least one category is required",
	},
}

func (s *AnnouncementService) validate(req AnnouncementRequest) error {
	err := s.validator.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	messages := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		if msg, ok := validationMessages[fe.StructField()][fe.Tag()]; ok {
			messages = append(messages, msg)
		} else {
			messages = append(messages, fe.Error())
		}
	}
	return appErrors.Clone(appErrors.ErrValidation, strings.Join(messages, ". "))
}

// List returns announcements matching the filter, most recently
// updated first.
func (s *AnnouncementService) List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, error) {
	announcements, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list announcements")
	}
	return announcements, nil
}

// Get returns an announcement by id.
func (s *AnnouncementService) Get(ctx context.Context, id string) (*models.Announcement, error) {
	announcement, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Announcement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get announcement")
	}
	return announcement, nil
}

// Create validates the payload and stores a new announcement. The
// returned record carries the assigned id, equal created/updated
// timestamps and the full category set.
func (s *AnnouncementService) Create(ctx context.Context, req AnnouncementRequest) (*models.Announcement, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	publicationDate, _ := parsePublicationDate(req.PublicationDate)
	announcement := &models.Announcement{
		Title:           req.Title,
		Body:            req.Body,
		PublicationDate: publicationDate,
	}
	if err := s.repo.Create(ctx, announcement, dedupeIDs(req.CategoryIDs)); err != nil {
		if errors.Is(err, repository.ErrUnknownCategory) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "One or more category ids do not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create announcement")
	}
	return announcement, nil
}

// Update validates the payload and fully replaces an existing
// announcement, categories included.
func (s *AnnouncementService) Update(ctx context.Context, id string, req AnnouncementRequest) (*models.Announcement, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	publicationDate, _ := parsePublicationDate(req.PublicationDate)
	announcement := &models.Announcement{
		ID:              id,
		Title:           req.Title,
		Body:            req.Body,
		PublicationDate: publicationDate,
	}
	if err := s.repo.Update(ctx, announcement, dedupeIDs(req.CategoryIDs)); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Announcement not found")
		case errors.Is(err, repository.ErrUnknownCategory):
			return nil, appErrors.Clone(appErrors.ErrValidation, "One or more category ids do not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update announcement")
	}
	return announcement, nil
}

// Delete removes an announcement by id.
func (s *AnnouncementService) Delete(ctx context.Context, id string) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete announcement")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "Announcement not found")
	}
	return nil
}

// parsePublicationDate accepts the canonical RFC 3339 form or the
// editable "MM/DD/YYYY HH:mm" form that edit clients submit.
func parsePublicationDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return dates.Decode(raw)
}

// dedupeIDs drops duplicate category ids while keeping order, so an
// announcement never carries the same category twice.
func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	result := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
