package service

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/taskguru/taskguru-api/internal/dto"
	"github.com/taskguru/taskguru-api/internal/models"
	"github.com/taskguru/taskguru-api/internal/observability"
	"github.com/taskguru/taskguru-api/internal/repository"
	"github.com/taskguru/taskguru-api/pkg/payments"
)

// ErrPaymentsUnavailable indicates no payment provider is configured.
var ErrPaymentsUnavailable = errors.New("payments are not configured")

// PaymentService creates Stripe payment intents for tasks.
type PaymentService interface {
	CreateIntent(ctx context.Context, userUID string, payload dto.PaymentIntentRequest) (dto.PaymentIntentResponse, error)
	History(ctx context.Context, userUID string, limit, offset int) ([]models.PaymentIntentRecord, error)
}

type paymentService struct {
	intents         payments.IntentCreator
	records         repository.PaymentRepository
	tasks           repository.TaskRepository
	validator       *validator.Validate
	defaultCurrency string
	logger          zerolog.Logger
}

// NewPaymentService builds the payment service. intents may be nil when
// Stripe is not configured.
func NewPaymentService(intents payments.IntentCreator, records repository.PaymentRepository, tasks repository.TaskRepository, validate *validator.Validate, defaultCurrency string, logger zerolog.Logger) PaymentService {
	if defaultCurrency == "" {
		defaultCurrency = "bwp"
	}

	return &paymentService{
		intents:         intents,
		records:         records,
		tasks:           tasks,
		validator:       validate,
		defaultCurrency: defaultCurrency,
		logger:          logger.With().Str("component", "payment_service").Logger(),
	}
}

func (s *paymentService) CreateIntent(ctx context.Context, userUID string, payload dto.PaymentIntentRequest) (dto.PaymentIntentResponse, error) {
	if s.intents == nil {
		return dto.PaymentIntentResponse{}, ErrPaymentsUnavailable
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.PaymentIntentResponse{}, err
	}

	task, err := s.tasks.FindByID(ctx, payload.TaskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PaymentIntentResponse{}, ErrTaskNotFound
		}
		return dto.PaymentIntentResponse{}, err
	}

	currency := strings.ToLower(strings.TrimSpace(payload.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}

	amountMinor := int64(math.Round(payload.Amount * 100))

	intent, err := s.intents.CreateIntent(ctx, amountMinor, currency, map[string]string{
		"taskId": strconv.FormatUint(uint64(task.ID), 10),
		"userId": userUID,
	})
	if err != nil {
		observability.PaymentIntents().WithLabelValues("error").Inc()
		return dto.PaymentIntentResponse{}, err
	}

	record := models.PaymentIntentRecord{
		TaskID:           task.ID,
		UserUID:          userUID,
		Amount:           intent.Amount,
		Currency:         intent.Currency,
		ProviderIntentID: intent.ID,
		Status:           intent.Status,
	}
	if err := s.records.Create(ctx, &record); err != nil {
		// The intent already exists with the provider; losing the audit row
		// is logged but does not fail the request.
		s.logger.Error().Err(err).Str("intent_id", intent.ID).Msg("failed to record payment intent")
	}

	observability.PaymentIntents().WithLabelValues("ok").Inc()

	return dto.PaymentIntentResponse{
		ClientSecret: intent.ClientSecret,
		IntentID:     intent.ID,
		Amount:       intent.Amount,
		Currency:     intent.Currency,
	}, nil
}

func (s *paymentService) History(ctx context.Context, userUID string, limit, offset int) ([]models.PaymentIntentRecord, error) {
	return s.records.ListByUser(ctx, userUID, limit, offset)
}
