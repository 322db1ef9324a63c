package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/promptvault-api/internal/dto"
	"github.com/noah-isme/promptvault-api/internal/models"
	"github.com/noah-isme/promptvault-api/internal/observability"
	"github.com/noah-isme/promptvault-api/internal/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

var (
	// ErrPromptNotFound indicates the prompt does not exist or is hidden from the caller.
	ErrPromptNotFound = errors.New("prompt not found")
	// ErrPromptForbidden indicates the caller may see but not modify the prompt.
	ErrPromptForbidden = errors.New("only the prompt owner can perform this action")
	// ErrPromptInvalid indicates the prompt has no usable title or content after sanitising.
	ErrPromptInvalid = errors.New("prompt title and content are required")
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the file is not a text document.
	ErrUploadTypeNotAllowed = errors.New("file type not allowed")
)

// Actor identifies the caller of a service operation.
type Actor struct {
	ID   uint
	Role string
}

// IsAdmin reports whether the actor bypasses ownership checks.
func (a Actor) IsAdmin() bool {
	return strings.EqualFold(strings.TrimSpace(a.Role), "admin")
}

// CanManage reports whether the actor owns the prompt or is an admin.
func (a Actor) CanManage(prompt models.Prompt) bool {
	return a.IsAdmin() || (a.ID != 0 && a.ID == prompt.UserID)
}

// CanView reports whether the prompt is visible to the actor.
func (a Actor) CanView(prompt models.Prompt) bool {
	return !prompt.IsPrivate() || a.CanManage(prompt)
}

// FileStorage abstracts upload destinations.
type FileStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// PromptOptions tunes prompt intake.
type PromptOptions struct {
	MaxUploadMB      int
	EvaluateOnCreate bool
}

// PromptService manages the prompt library.
type PromptService interface {
	Create(ctx context.Context, actor Actor, req dto.PromptCreateRequest) (dto.PromptResponse, error)
	Upload(ctx context.Context, actor Actor, file *multipart.FileHeader, meta dto.PromptUploadRequest) (dto.PromptResponse, error)
	Get(ctx context.Context, id uint, actor Actor) (dto.PromptResponse, error)
	List(ctx context.Context, actor Actor, req dto.PromptListRequest) (dto.PromptListResult, error)
	Use(ctx context.Context, id uint, actor Actor) (dto.PromptUsageResponse, error)
}

type promptService struct {
	repo        repository.PromptRepository
	evaluations EvaluationService
	storage     FileStorage
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	opts        PromptOptions
	maxSize     int64
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewPromptService constructs a prompt service. Storage and evaluations are optional.
func NewPromptService(repo repository.PromptRepository, evaluations EvaluationService, storage FileStorage, validate *validator.Validate, opts PromptOptions, logger zerolog.Logger) PromptService {
	if validate == nil {
		validate = validator.New()
	}
	if opts.MaxUploadMB <= 0 {
		opts.MaxUploadMB = 2
	}
	return &promptService{
		repo:        repo,
		evaluations: evaluations,
		storage:     storage,
		validator:   validate,
		sanitizer:   bluemonday.StrictPolicy(),
		opts:        opts,
		maxSize:     int64(opts.MaxUploadMB) * 1024 * 1024,
		logger:      logger.With().Str("component", "prompt_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/promptvault-api/internal/service/prompt"),
	}
}

func (s *promptService) Create(ctx context.Context, actor Actor, req dto.PromptCreateRequest) (dto.PromptResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.PromptResponse{}, err
	}

	prompt := models.Prompt{
		UserID:      actor.ID,
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
		Visibility:  req.Visibility,
		Tags:        req.Tags,
	}
	return s.store(ctx, &prompt)
}

func (s *promptService) Upload(ctx context.Context, actor Actor, file *multipart.FileHeader, meta dto.PromptUploadRequest) (dto.PromptResponse, error) {
	ctx, span := s.tracer.Start(ctx, "prompt.upload")
	defer span.End()

	span.SetAttributes(attribute.Int64("upload.max_bytes", s.maxSize))

	start := time.Now()
	defer func() {
		observability.UploadLatency().Observe(time.Since(start).Seconds())
	}()

	if file == nil {
		err := errors.New("file is required")
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return dto.PromptResponse{}, err
	}
	span.SetAttributes(
		attribute.String("upload.original_name", strings.TrimSpace(file.Filename)),
		attribute.Int64("upload.request_size", file.Size),
	)

	if err := s.validator.Struct(meta); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return dto.PromptResponse{}, err
	}

	if file.Size > s.maxSize {
		return dto.PromptResponse{}, s.reject(span, "size", ErrUploadTooLarge)
	}

	handle, err := file.Open()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "open failed")
		return dto.PromptResponse{}, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return dto.PromptResponse{}, err
	}
	if int64(buf.Len()) > s.maxSize {
		return dto.PromptResponse{}, s.reject(span, "size", ErrUploadTooLarge)
	}

	fileType := normalizeMime(mimetype.Detect(buf.Bytes()).String())
	span.SetAttributes(attribute.String("upload.detected_mime", fileType))
	if !isTextType(fileType) || !utf8.Valid(buf.Bytes()) {
		return dto.PromptResponse{}, s.reject(span, "type", ErrUploadTypeNotAllowed)
	}

	checksum := sha256.Sum256(buf.Bytes())
	name := sanitizeFileName(file.Filename)

	title := strings.TrimSpace(meta.Title)
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(file.Filename), filepath.Ext(file.Filename))
	}

	prompt := models.Prompt{
		UserID:      actor.ID,
		Title:       title,
		Description: meta.Description,
		Content:     buf.String(),
		MimeType:    fileType,
		Checksum:    hex.EncodeToString(checksum[:]),
		Visibility:  meta.Visibility,
		Tags:        splitTags(meta.Tags),
	}

	if err := s.prepare(&prompt); err != nil {
		return dto.PromptResponse{}, s.reject(span, "content", err)
	}

	if s.storage != nil {
		prompt.FileURL, err = s.storage.Upload(ctx, name, bytes.NewReader(buf.Bytes()))
		if err != nil {
			observability.UploadRejected().WithLabelValues("storage").Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, "storage failed")
			return dto.PromptResponse{}, err
		}
	}

	response, err := s.persist(ctx, &prompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		return dto.PromptResponse{}, err
	}

	observability.UploadRequests().WithLabelValues(fileType).Inc()
	span.SetStatus(codes.Ok, "stored")
	return response, nil
}

// store sanitises and persists a prompt, then optionally scores it. An evaluation failure never
// fails the submission.
func (s *promptService) store(ctx context.Context, prompt *models.Prompt) (dto.PromptResponse, error) {
	if err := s.prepare(prompt); err != nil {
		return dto.PromptResponse{}, err
	}
	return s.persist(ctx, prompt)
}

// prepare sanitises a prompt in place. It must run once per prompt.
func (s *promptService) prepare(prompt *models.Prompt) error {
	prompt.Title = strings.TrimSpace(s.sanitizer.Sanitize(prompt.Title))
	prompt.Description = strings.TrimSpace(s.sanitizer.Sanitize(prompt.Description))
	prompt.Content = strings.TrimSpace(prompt.Content)
	if prompt.Title == "" || prompt.Content == "" {
		return ErrPromptInvalid
	}
	if prompt.Visibility == "" {
		prompt.Visibility = models.PromptVisibilityPublic
	}
	prompt.Tags = mergeTags(prompt.Tags)
	return nil
}

func (s *promptService) persist(ctx context.Context, prompt *models.Prompt) (dto.PromptResponse, error) {
	if err := s.repo.Create(ctx, prompt); err != nil {
		return dto.PromptResponse{}, err
	}

	s.logger.Info().Uint("prompt_id", prompt.ID).Uint("user_id", prompt.UserID).Msg("prompt stored")

	var evaluation *dto.EvaluationResponse
	if s.opts.EvaluateOnCreate && s.evaluations != nil {
		result, err := s.evaluations.EvaluatePrompt(ctx, prompt, TriggerCreate)
		switch {
		case err == nil:
			evaluation = &result
		case errors.Is(err, ErrEvaluatorUnavailable):
			s.logger.Debug().Uint("prompt_id", prompt.ID).Msg("evaluation skipped, no provider configured")
		default:
			s.logger.Warn().Err(err).Uint("prompt_id", prompt.ID).Msg("evaluation on create failed")
		}
	}

	response := dto.NewPromptResponse(*prompt)
	response.Evaluation = evaluation
	return response, nil
}

func (s *promptService) Get(ctx context.Context, id uint, actor Actor) (dto.PromptResponse, error) {
	prompt, err := s.load(ctx, id, actor)
	if err != nil {
		return dto.PromptResponse{}, err
	}
	return dto.NewPromptResponse(prompt), nil
}

func (s *promptService) List(ctx context.Context, actor Actor, req dto.PromptListRequest) (dto.PromptListResult, error) {
	page := req.Page
	if page <= 0 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	filter := repository.PromptFilter{
		Search:     req.Search,
		Category:   req.Category,
		Complexity: req.Complexity,
		Tags:       req.Tags,
		ViewerID:   actor.ID,
		AllPrivate: actor.IsAdmin(),
		Sort:       req.Sort,
		Page:       page,
		PageSize:   pageSize,
	}
	if req.Mine {
		owner := actor.ID
		filter.OwnerID = &owner
	}

	prompts, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.PromptListResult{}, err
	}

	items := make([]dto.PromptResponse, 0, len(prompts))
	for _, prompt := range prompts {
		items = append(items, dto.NewPromptResponse(prompt))
	}

	return dto.PromptListResult{
		Items:      items,
		Pagination: dto.NewPaginationMeta(page, pageSize, total),
	}, nil
}

func (s *promptService) Use(ctx context.Context, id uint, actor Actor) (dto.PromptUsageResponse, error) {
	if _, err := s.load(ctx, id, actor); err != nil {
		return dto.PromptUsageResponse{}, err
	}

	count, err := s.repo.IncrementUsage(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PromptUsageResponse{}, ErrPromptNotFound
		}
		return dto.PromptUsageResponse{}, err
	}
	return dto.PromptUsageResponse{ID: id, UsageCount: count}, nil
}

// load hides private prompts from everyone but their owner and admins.
func (s *promptService) load(ctx context.Context, id uint, actor Actor) (models.Prompt, error) {
	prompt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Prompt{}, ErrPromptNotFound
		}
		return models.Prompt{}, err
	}
	if !actor.CanView(prompt) {
		return models.Prompt{}, ErrPromptNotFound
	}
	return prompt, nil
}

func (s *promptService) reject(span trace.Span, reason string, err error) error {
	observability.UploadRejected().WithLabelValues(reason).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, reason+" rejected")
	return err
}

func sanitizeFileName(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = strings.ToLower(base)
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		if r == '-' || r == '_' {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = fmt.Sprintf("prompt-%d", time.Now().Unix())
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = ".txt"
	}
	return base + ext
}

// normalizeMime drops parameters such as charset.
func normalizeMime(m string) string {
	lower := strings.ToLower(strings.TrimSpace(m))
	if idx := strings.Index(lower, ";"); idx >= 0 {
		lower = strings.TrimSpace(lower[:idx])
	}
	return lower
}

func isTextType(m string) bool {
	if strings.HasPrefix(m, "text/") {
		return true
	}
	switch m {
	case "application/json", "application/x-ndjson":
		return true
	default:
		return false
	}
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return strings.Split(raw, ",")
}
