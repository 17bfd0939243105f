package services

import (
	"context"
	"io"
	"log/slog"

	"github.com/farellandr/ticketgate/config"
	"github.com/farellandr/ticketgate/internal/mailer"
	"github.com/farellandr/ticketgate/internal/payment"
	"github.com/stretchr/testify/mock"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateCheckout(ctx context.Context, req payment.CheckoutRequest) (*payment.Checkout, error) {
	args := m.Called(ctx, req)
	if checkout, ok := args.Get(0).(*payment.Checkout); ok {
		return checkout, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGateway) GetPayment(ctx context.Context, id string) (*payment.Payment, error) {
	args := m.Called(ctx, id)
	if p, ok := args.Get(0).(*payment.Payment); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockSender struct {
	mock.Mock
}

func (m *MockSender) SendConfirmation(ctx context.Context, c mailer.Confirmation) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

type MockConfirmer struct {
	mock.Mock
}

func (m *MockConfirmer) ConfirmPayment(ctx context.Context, inscriptionID, providerRef string) (bool, error) {
	args := m.Called(ctx, inscriptionID, providerRef)
	return args.Bool(0), args.Error(1)
}

type MockGuard struct {
	mock.Mock
}

func (m *MockGuard) Acquire(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockGuard) Release(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

const testBaseURL = "https://tickets.example.com"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCatalog() config.Catalog {
	return config.DefaultCatalog()
}
