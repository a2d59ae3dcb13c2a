package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"drravalement/site/internal/ids"
	"drravalement/site/internal/models"
	"drravalement/site/internal/queue"
	"drravalement/site/internal/repository"
)

var (
	ErrQuoteInvalid    = errors.New("invalid quote request")
	ErrQuoteTransition = errors.New("quote status transition not allowed")
)

type QuoteStore interface {
	Create(ctx context.Context, quote models.Quote) error
	GetByID(ctx context.Context, id string) (models.Quote, error)
	List(ctx context.Context, status models.QuoteStatus, limit, offset int) ([]models.Quote, error)
	UpdateStatus(ctx context.Context, id string, status models.QuoteStatus) error
	Delete(ctx context.Context, id string) error
}

type JobQueue interface {
	Enqueue(ctx context.Context, jobType string, data any) error
}

// Services offered by the company; quote requests must name one of them.
var Services = map[string]string{
	"ravalement":         "Ravalement de façade",
	"isolation":          "Isolation thermique par l'extérieur",
	"peinture":           "Peinture extérieure",
	"nettoyage":          "Nettoyage et démoussage",
	"enduit":             "Enduit et crépi",
	"fissures":           "Réparation de fissures",
	"impermeabilisation": "Imperméabilisation",
}

type QuoteInput struct {
	Name      string
	Email     string
	Phone     string
	Service   string
	SurfaceM2 float64
	Message   string
}

// QuoteCreatedJob is the payload of the quote.created job.
type QuoteCreatedJob struct {
	QuoteID   string  `json:"quoteId"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Phone     string  `json:"phone"`
	Service   string  `json:"service"`
	SurfaceM2 float64 `json:"surfaceM2"`
	Message   string  `json:"message"`
}

type QuoteService struct {
	quotes QuoteStore
	jobs   JobQueue
	log    zerolog.Logger
}

func NewQuoteService(quotes QuoteStore, jobs JobQueue, log zerolog.Logger) *QuoteService {
	return &QuoteService{quotes: quotes, jobs: jobs, log: log}
}

func (in QuoteInput) validate() error {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Phone) == "" {
		return ErrQuoteInvalid
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(in.Email)); err != nil {
		return ErrQuoteInvalid
	}
	if _, ok := Services[in.Service]; !ok {
		return ErrQuoteInvalid
	}
	if in.SurfaceM2 < 0 || in.SurfaceM2 > 100000 {
		return ErrQuoteInvalid
	}
	if len(in.Message) > 5000 {
		return ErrQuoteInvalid
	}
	return nil
}

// Submit stores a quote request and schedules the office notification.
// A failed enqueue does not fail the submission.
func (s *QuoteService) Submit(ctx context.Context, input QuoteInput) (models.Quote, error) {
	if err := input.validate(); err != nil {
		return models.Quote{}, err
	}

	now := time.Now().UTC()
	quote := models.Quote{
		ID:        ids.New(),
		Name:      strings.TrimSpace(input.Name),
		Email:     normalizeEmail(input.Email),
		Phone:     strings.TrimSpace(input.Phone),
		Service:   input.Service,
		SurfaceM2: input.SurfaceM2,
		Message:   strings.TrimSpace(input.Message),
		Status:    models.QuoteStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.quotes.Create(ctx, quote); err != nil {
		return models.Quote{}, err
	}

	if s.jobs != nil {
		job := QuoteCreatedJob{
			QuoteID:   quote.ID,
			Name:      quote.Name,
			Email:     quote.Email,
			Phone:     quote.Phone,
			Service:   quote.Service,
			SurfaceM2: quote.SurfaceM2,
			Message:   quote.Message,
		}
		if err := s.jobs.Enqueue(ctx, queue.JobQuoteCreated, job); err != nil {
			s.log.Warn().Err(err).Str("quote_id", quote.ID).Msg("enqueue quote notification failed")
		}
	}

	s.log.Info().Str("quote_id", quote.ID).Str("service", quote.Service).Msg("quote submitted")
	return quote, nil
}

func (s *QuoteService) List(ctx context.Context, status models.QuoteStatus, limit, offset int) ([]models.Quote, error) {
	return s.quotes.List(ctx, status, limit, offset)
}

func (s *QuoteService) UpdateStatus(ctx context.Context, id string, status models.QuoteStatus) (models.Quote, error) {
	quote, err := s.quotes.GetByID(ctx, id)
	if err != nil {
		return models.Quote{}, err
	}
	if !quote.Status.CanTransition(status) {
		return models.Quote{}, ErrQuoteTransition
	}
	if err := s.quotes.UpdateStatus(ctx, id, status); err != nil {
		return models.Quote{}, err
	}
	quote.Status = status
	quote.UpdatedAt = time.Now().UTC()
	return quote, nil
}

func (s *QuoteService) Delete(ctx context.Context, id string) error {
	return s.quotes.Delete(ctx, id)
}

var (
	_ QuoteStore = (*repository.QuoteRepository)(nil)
	_ JobQueue   = (*queue.Producer)(nil)
)
