package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReturnCategory(t *testing.T) {
	returnedAt := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		status     TransactionStatus
		returnedAt *time.Time
		expected   ReturnCategory
	}{
		{"Completed", StatusCompleted, nil, CategorySuccess},
		{"Returned", StatusReturned, nil, CategorySuccess},
		{"Failed", StatusFailed, nil, CategoryFailed},
		{"Cancelled", StatusCancelled, nil, CategoryFailed},
		{"Pending falls through", StatusPending, nil, CategoryProcessing},
		{"Borrowing falls through", StatusBorrowing, nil, CategoryProcessing},
		{"Failed but returned wins", StatusFailed, &returnedAt, CategorySuccess},
		{"Cancelled but returned wins", StatusCancelled, &returnedAt, CategorySuccess},
		{"Pending but returned wins", StatusPending, &returnedAt, CategorySuccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := BorrowTransaction{
				Type:       TransactionTypeReturn,
				Status:     tt.status,
				ReturnedAt: tt.returnedAt,
			}
			assert.Equal(t, tt.expected, txn.ReturnCategory())
		})
	}
}

func TestIsSuccessfulReturn(t *testing.T) {
	returnedAt := time.Now()

	t.Run("Return with returnedAt is successful despite failed status", func(t *testing.T) {
		txn := BorrowTransaction{Type: TransactionTypeReturn, Status: StatusFailed, ReturnedAt: &returnedAt}
		assert.True(t, txn.IsSuccessfulReturn())
	})

	t.Run("Borrow is never a successful return", func(t *testing.T) {
		txn := BorrowTransaction{Type: TransactionTypeBorrow, Status: StatusCompleted, ReturnedAt: &returnedAt}
		assert.False(t, txn.IsSuccessfulReturn())
	})
}

func TestOverdueDays(t *testing.T) {
	due := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)

	t.Run("Not yet due", func(t *testing.T) {
		txn := BorrowTransaction{DueDate: due}
		now := due.Add(-time.Hour)
		assert.Equal(t, 0, txn.OverdueDays(now))
		assert.False(t, txn.IsOverdue(now))
	})

	t.Run("Due this instant", func(t *testing.T) {
		txn := BorrowTransaction{DueDate: due}
		assert.Equal(t, 0, txn.OverdueDays(due))
	})

	t.Run("One hour late rounds up to one day", func(t *testing.T) {
		txn := BorrowTransaction{DueDate: due}
		now := due.Add(time.Hour)
		assert.Equal(t, 1, txn.OverdueDays(now))
		assert.True(t, txn.IsOverdue(now))
	})

	t.Run("Exactly one day late", func(t *testing.T) {
		txn := BorrowTransaction{DueDate: due}
		assert.Equal(t, 1, txn.OverdueDays(due.Add(24*time.Hour)))
	})

	t.Run("A day and a minute rounds up to two", func(t *testing.T) {
		txn := BorrowTransaction{DueDate: due}
		assert.Equal(t, 2, txn.OverdueDays(due.Add(24*time.Hour+time.Minute)))
	})

	t.Run("ReturnedAt anchors the computation when set", func(t *testing.T) {
		returnedAt := due.Add(3 * 24 * time.Hour)
		txn := BorrowTransaction{DueDate: due, ReturnedAt: &returnedAt}
		// now is far later, but the return moment is what counts
		assert.Equal(t, 3, txn.OverdueDays(due.Add(30*24*time.Hour)))
	})

	t.Run("Returned early is never overdue", func(t *testing.T) {
		returnedAt := due.Add(-time.Hour)
		txn := BorrowTransaction{DueDate: due, ReturnedAt: &returnedAt}
		assert.Equal(t, 0, txn.OverdueDays(due.Add(24*time.Hour)))
	})

	t.Run("Zero due date is never overdue", func(t *testing.T) {
		txn := BorrowTransaction{}
		assert.Equal(t, 0, txn.OverdueDays(time.Now()))
	})
}
