package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/taskguru/taskguru-api/internal/dto"
	"github.com/taskguru/taskguru-api/internal/models"
	"github.com/taskguru/taskguru-api/internal/repository"
	"github.com/taskguru/taskguru-api/pkg/payments"
)

type intentCreatorStub struct {
	lastAmount   int64
	lastCurrency string
	lastMetadata map[string]string
}

func (s *intentCreatorStub) CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (payments.Intent, error) {
	s.lastAmount = amountMinor
	s.lastCurrency = currency
	s.lastMetadata = metadata
	return payments.Intent{
		ID:           "pi_test_123",
		ClientSecret: "pi_test_123_secret",
		Amount:       amountMinor,
		Currency:     currency,
		Status:       "requires_payment_method",
	}, nil
}

func TestPaymentServiceCreateIntentConvertsToMinorUnits(t *testing.T) {
	db := setupServiceDB(t)
	ctx := context.Background()

	task := models.Task{Title: "Fix the deck", Description: "details", Budget: 199.99, Status: models.TaskStatusAssigned, ClientUID: "client-1"}
	require.NoError(t, db.Create(&task).Error)

	stub := &intentCreatorStub{}
	svc := NewPaymentService(stub, repository.NewPaymentRepository(db), repository.NewTaskRepository(db), testValidator(), "bwp", zerolog.Nop())

	response, err := svc.CreateIntent(ctx, "client-1", dto.PaymentIntentRequest{TaskID: task.ID, Amount: 199.99})
	require.NoError(t, err)
	require.Equal(t, "pi_test_123", response.IntentID)
	require.EqualValues(t, 19999, response.Amount)
	require.Equal(t, "bwp", response.Currency)
	require.EqualValues(t, 19999, stub.lastAmount)
	require.Equal(t, "client-1", stub.lastMetadata["userId"])

	records, err := svc.History(ctx, "client-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.EqualValues(t, 19999, records[0].Amount)
	require.Equal(t, "pi_test_123", records[0].ProviderIntentID)
}

func TestPaymentServiceCurrencyOverride(t *testing.T) {
	db := setupServiceDB(t)

	task := models.Task{Title: "Trim hedges", Description: "details", Budget: 50, Status: models.TaskStatusAssigned, ClientUID: "client-1"}
	require.NoError(t, db.Create(&task).Error)

	stub := &intentCreatorStub{}
	svc := NewPaymentService(stub, repository.NewPaymentRepository(db), repository.NewTaskRepository(db), testValidator(), "bwp", zerolog.Nop())

	response, err := svc.CreateIntent(context.Background(), "client-1", dto.PaymentIntentRequest{TaskID: task.ID, Amount: 50, Currency: "USD"})
	require.NoError(t, err)
	require.Equal(t, "usd", response.Currency)
	require.Equal(t, "usd", stub.lastCurrency)
}

func TestPaymentServiceRequiresExistingTask(t *testing.T) {
	db := setupServiceDB(t)

	svc := NewPaymentService(&intentCreatorStub{}, repository.NewPaymentRepository(db), repository.NewTaskRepository(db), testValidator(), "bwp", zerolog.Nop())

	_, err := svc.CreateIntent(context.Background(), "client-1", dto.PaymentIntentRequest{TaskID: 42, Amount: 100})
	require.ErrorIs(t, err, ErrTaskNotFound)
}

func TestPaymentServiceUnavailableWithoutProvider(t *testing.T) {
	db := setupServiceDB(t)

	svc := NewPaymentService(nil, repository.NewPaymentRepository(db), repository.NewTaskRepository(db), testValidator(), "bwp", zerolog.Nop())

	_, err := svc.CreateIntent(context.Background(), "client-1", dto.PaymentIntentRequest{TaskID: 1, Amount: 100})
	require.ErrorIs(t, err, ErrPaymentsUnavailable)
}
