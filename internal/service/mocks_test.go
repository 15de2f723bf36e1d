package service_test

import (
	"context"
	"io"
	"sync"

	"github.com/stretchr/testify/mock"

	"packloop-client/internal/domain"
	"packloop-client/internal/service"
)

// MockPlatformAPI
type MockPlatformAPI struct {
	mock.Mock
}

func (m *MockPlatformAPI) GetBusinessProfile(ctx context.Context) (*domain.BusinessProfile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BusinessProfile), args.Error(1)
}

func (m *MockPlatformAPI) ListTransactions(ctx context.Context, status string, page, pageSize int) ([]domain.BorrowTransaction, error) {
	args := m.Called(ctx, status, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BorrowTransaction), args.Error(1)
}

func (m *MockPlatformAPI) GetTransaction(ctx context.Context, id string) (*domain.BorrowTransaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BorrowTransaction), args.Error(1)
}

func (m *MockPlatformAPI) ConfirmBorrow(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPlatformAPI) GetDamagePolicy(ctx context.Context) (domain.DamagePolicy, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.DamagePolicy), args.Error(1)
}

func (m *MockPlatformAPI) CheckReturn(ctx context.Context, serial, note string, observations []domain.DamageObservation, images map[domain.DamageFace]io.Reader) (*domain.ReturnPreview, error) {
	args := m.Called(ctx, serial, note, observations, images)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReturnPreview), args.Error(1)
}

func (m *MockPlatformAPI) ConfirmReturn(ctx context.Context, serial string, submission domain.ReturnSubmission) (*domain.BorrowTransaction, error) {
	args := m.Called(ctx, serial, submission)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BorrowTransaction), args.Error(1)
}

// MockResolver
type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) ResolveBorrow(ctx context.Context, token service.ScanToken) (*domain.BorrowTransaction, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BorrowTransaction), args.Error(1)
}

func (m *MockResolver) ResolveReturnSerial(ctx context.Context, token service.ScanToken) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

// fakeCamera records lifecycle calls; thread-safe because decode dispatch
// and close can race in tests.
type fakeCamera struct {
	mu          sync.Mutex
	permission  bool
	startCalls  int
	stopCalls   int
	torchStates []bool
}

func newFakeCamera() *fakeCamera {
	return &fakeCamera{permission: true}
}

func (c *fakeCamera) RequestPermission(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.permission, nil
}

func (c *fakeCamera) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startCalls++
	return nil
}

func (c *fakeCamera) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopCalls++
}

func (c *fakeCamera) SetTorch(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.torchStates = append(c.torchStates, on)
}

func (c *fakeCamera) stops() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopCalls
}

type fakeHaptics struct {
	mu     sync.Mutex
	pulses int
}

func (h *fakeHaptics) Vibrate() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pulses++
}

func (h *fakeHaptics) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pulses
}

// recordingHandler captures scan outcomes and the camera state at the moment
// they were delivered.
type recordingHandler struct {
	mu             sync.Mutex
	camera         *fakeCamera
	borrows        []*domain.BorrowTransaction
	serials        []string
	failures       []error
	stopsAtDeliver []int
}

func (h *recordingHandler) BorrowResolved(txn *domain.BorrowTransaction) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.borrows = append(h.borrows, txn)
	h.stopsAtDeliver = append(h.stopsAtDeliver, h.camera.stops())
}

func (h *recordingHandler) ReturnSerialResolved(serial string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.serials = append(h.serials, serial)
	h.stopsAtDeliver = append(h.stopsAtDeliver, h.camera.stops())
}

func (h *recordingHandler) ScanFailed(mode service.ScanMode, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures = append(h.failures, err)
	h.stopsAtDeliver = append(h.stopsAtDeliver, h.camera.stops())
}
