package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"packloop-client/internal/apiclient"
	"packloop-client/internal/domain"
	"packloop-client/internal/service"
)

const hexID = "64a1b2c3d4e5f60718293a4b"

func TestTransactionResolver_ResolveBorrow(t *testing.T) {
	ctx := context.Background()

	t.Run("Transaction id goes through detail fetch", func(t *testing.T) {
		api := new(MockPlatformAPI)
		resolver := service.NewTransactionResolver(api, 1000)

		txn := &domain.BorrowTransaction{
			ID:     hexID,
			Type:   domain.TransactionTypeBorrow,
			Status: domain.StatusPending,
		}
		api.On("GetTransaction", ctx, hexID).Return(txn, nil)

		got, err := resolver.ResolveBorrow(ctx, service.ScanToken{Kind: service.TokenTransactionID, Value: hexID})
		require.NoError(t, err)
		assert.Equal(t, txn, got)
		api.AssertNotCalled(t, "ListTransactions")
	})

	t.Run("Unknown id falls back to history scan", func(t *testing.T) {
		api := new(MockPlatformAPI)
		resolver := service.NewTransactionResolver(api, 1000)

		api.On("GetTransaction", ctx, hexID).Return(nil, apiclient.ErrNotFound)
		api.On("ListTransactions", ctx, "", 1, 1000).Return([]domain.BorrowTransaction{}, nil)

		_, err := resolver.ResolveBorrow(ctx, service.ScanToken{Kind: service.TokenTransactionID, Value: hexID})
		assert.ErrorIs(t, err, service.ErrNoPendingRequest)
	})

	t.Run("Serial match requires pending borrow state", func(t *testing.T) {
		api := new(MockPlatformAPI)
		resolver := service.NewTransactionResolver(api, 1000)

		history := []domain.BorrowTransaction{
			{
				ID:      "a",
				Type:    domain.TransactionTypeReturn,
				Status:  domain.StatusCompleted,
				Product: domain.ProductRef{SerialNumber: "PL-CUP-0001"},
			},
			{
				ID:      "b",
				Type:    domain.TransactionTypeBorrow,
				Status:  domain.StatusPending,
				Product: domain.ProductRef{SerialNumber: "PL-CUP-0001"},
			},
		}
		api.On("ListTransactions", ctx, "", 1, 1000).Return(history, nil)

		got, err := resolver.ResolveBorrow(ctx, service.ScanToken{Kind: service.TokenSerialNumber, Value: "PL-CUP-0001"})
		require.NoError(t, err)
		assert.Equal(t, "b", got.ID)
	})

	t.Run("Borrowing status is not pending", func(t *testing.T) {
		api := new(MockPlatformAPI)
		resolver := service.NewTransactionResolver(api, 1000)

		history := []domain.BorrowTransaction{
			{
				ID:      "a",
				Type:    domain.TransactionTypeBorrow,
				Status:  domain.StatusBorrowing,
				Product: domain.ProductRef{SerialNumber: "PL-CUP-0001"},
			},
		}
		api.On("ListTransactions", ctx, "", 1, 1000).Return(history, nil)

		_, err := resolver.ResolveBorrow(ctx, service.ScanToken{Kind: service.TokenSerialNumber, Value: "PL-CUP-0001"})
		assert.ErrorIs(t, err, service.ErrNoPendingRequest)
	})

	t.Run("Waiting and pending_pickup count as pending", func(t *testing.T) {
		for _, status := range []domain.TransactionStatus{domain.StatusWaiting, domain.StatusPendingPickup} {
			api := new(MockPlatformAPI)
			resolver := service.NewTransactionResolver(api, 1000)
			history := []domain.BorrowTransaction{
				{
					ID:      "x",
					Type:    domain.TransactionTypeBorrow,
					Status:  status,
					Product: domain.ProductRef{SerialNumber: "PL-CUP-0001"},
				},
			}
			api.On("ListTransactions", ctx, "", 1, 1000).Return(history, nil)

			got, err := resolver.ResolveBorrow(ctx, service.ScanToken{Kind: service.TokenSerialNumber, Value: "PL-CUP-0001"})
			require.NoError(t, err)
			assert.Equal(t, "x", got.ID)
		}
	})

	t.Run("Page size is bounded", func(t *testing.T) {
		api := new(MockPlatformAPI)
		resolver := service.NewTransactionResolver(api, 5000)
		api.On("ListTransactions", ctx, "", 1, 1000).Return([]domain.BorrowTransaction{}, nil)

		_, err := resolver.ResolveBorrow(ctx, service.ScanToken{Kind: service.TokenSerialNumber, Value: "nope"})
		assert.ErrorIs(t, err, service.ErrNoPendingRequest)
		api.AssertExpectations(t)
	})
}

func TestTransactionResolver_ResolveReturnSerial(t *testing.T) {
	ctx := context.Background()

	t.Run("Serial passes through", func(t *testing.T) {
		api := new(MockPlatformAPI)
		resolver := service.NewTransactionResolver(api, 1000)

		serial, err := resolver.ResolveReturnSerial(ctx, service.ScanToken{Kind: service.TokenSerialNumber, Value: "PL-BOX-0007"})
		require.NoError(t, err)
		assert.Equal(t, "PL-BOX-0007", serial)
	})

	t.Run("Empty serial is rejected", func(t *testing.T) {
		api := new(MockPlatformAPI)
		resolver := service.NewTransactionResolver(api, 1000)

		_, err := resolver.ResolveReturnSerial(ctx, service.ScanToken{Kind: service.TokenSerialNumber, Value: ""})
		assert.ErrorIs(t, err, service.ErrSerialRequired)
	})

	t.Run("Transaction id is never reinterpreted as a serial", func(t *testing.T) {
		api := new(MockPlatformAPI)
		resolver := service.NewTransactionResolver(api, 1000)

		api.On("GetTransaction", ctx, hexID).Return(nil, apiclient.ErrNotFound)

		_, err := resolver.ResolveReturnSerial(ctx, service.ScanToken{Kind: service.TokenTransactionID, Value: hexID})
		assert.ErrorIs(t, err, service.ErrSerialRequired)
		api.AssertNotCalled(t, "ListTransactions")
	})

	t.Run("Resolvable id still rejected but carries the serial", func(t *testing.T) {
		api := new(MockPlatformAPI)
		resolver := service.NewTransactionResolver(api, 1000)

		txn := &domain.BorrowTransaction{
			ID:      hexID,
			Type:    domain.TransactionTypeBorrow,
			Status:  domain.StatusBorrowing,
			Product: domain.ProductRef{SerialNumber: "PL-CUP-0001"},
		}
		api.On("GetTransaction", ctx, hexID).Return(txn, nil)

		_, err := resolver.ResolveReturnSerial(ctx, service.ScanToken{Kind: service.TokenTransactionID, Value: hexID})
		require.ErrorIs(t, err, service.ErrSerialRequired)
		assert.Contains(t, err.Error(), "PL-CUP-0001")
	})
}
