package service

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"packloop-client/internal/logger"
)

// ScanMode selects which workflow a decode feeds.
type ScanMode string

const (
	ScanModeBorrow ScanMode = "borrow"
	ScanModeReturn ScanMode = "return"
)

// ScanState is the scanner lifecycle. A single discriminated state replaces
// the lock/closed boolean pair so invalid combinations cannot exist.
type ScanState int

const (
	ScanClosed ScanState = iota
	ScanIdle
	ScanProcessing
)

// TokenKind classifies a decoded QR payload.
type TokenKind string

const (
	TokenSerialNumber  TokenKind = "serial_number"
	TokenTransactionID TokenKind = "transaction_id"
)

// ScanToken is a classified QR payload.
type ScanToken struct {
	Kind  TokenKind
	Value string
}

// Server-assigned transaction ids are 24 hex characters.
var transactionIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// ParseScanToken extracts a serial number or transaction id from a raw
// decode. Deep links of the form scheme://item/{id} are unwrapped first; the
// scheme name is not checked, only the item path shape.
func ParseScanToken(raw string) ScanToken {
	value := strings.TrimSpace(raw)
	if u, err := url.Parse(value); err == nil && u.Scheme != "" {
		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		switch {
		case u.Host == "item" && len(segments) > 0 && segments[0] != "":
			value = segments[0]
		case len(segments) == 2 && segments[0] == "item" && segments[1] != "":
			value = segments[1]
		}
	}
	if transactionIDPattern.MatchString(value) {
		return ScanToken{Kind: TokenTransactionID, Value: value}
	}
	return ScanToken{Kind: TokenSerialNumber, Value: value}
}

var (
	ErrCameraPermissionDenied = errors.New("camera permission denied")
	ErrScannerClosed          = errors.New("scanner is not open")
	// ErrScannerBusy signals a decode arriving while another is resolving.
	// The second decode is dropped, never queued.
	ErrScannerBusy = errors.New("scanner is already processing a code")
)

// ScanCoordinator owns the camera-scanning lifecycle and decode dispatch for
// the borrow and return flows through one scanner surface with a mode
// switch. At most one decode resolves at a time; the camera is fully
// released before any follow-up surface is shown.
type ScanCoordinator struct {
	mu         sync.Mutex
	state      ScanState
	mode       ScanMode
	torchOn    bool
	userClosed bool

	camera   CameraController
	haptics  HapticFeedback
	resolver TransactionResolver
	handler  ScanHandler
}

func NewScanCoordinator(camera CameraController, haptics HapticFeedback, resolver TransactionResolver, handler ScanHandler) *ScanCoordinator {
	return &ScanCoordinator{
		camera:   camera,
		haptics:  haptics,
		resolver: resolver,
		handler:  handler,
	}
}

// State returns the current scanner state.
func (s *ScanCoordinator) State() ScanState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Open requests camera permission if needed, starts the camera and moves the
// scanner to idle. Opening an already-open scanner only switches the mode.
func (s *ScanCoordinator) Open(ctx context.Context, mode ScanMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != ScanClosed {
		s.mode = mode
		return nil
	}

	granted, err := s.camera.RequestPermission(ctx)
	if err != nil {
		return err
	}
	if !granted {
		return ErrCameraPermissionDenied
	}
	if err := s.camera.Start(ctx); err != nil {
		return err
	}
	s.state = ScanIdle
	s.mode = mode
	s.userClosed = false
	logger.Debug("Scanner opened", "mode", mode)
	return nil
}

// AutoReopen opens the scanner on behalf of a navigation trigger. Suppressed
// after the user explicitly closed the scanner, until the next manual Open.
func (s *ScanCoordinator) AutoReopen(ctx context.Context, mode ScanMode) error {
	s.mu.Lock()
	suppressed := s.userClosed
	s.mu.Unlock()
	if suppressed {
		logger.Debug("Scanner auto-reopen suppressed by user close")
		return nil
	}
	return s.Open(ctx, mode)
}

// ToggleTorch flips the torch while the scanner is open.
func (s *ScanCoordinator) ToggleTorch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == ScanClosed {
		return
	}
	s.torchOn = !s.torchOn
	s.camera.SetTorch(s.torchOn)
}

// Close tears the scanner down on a user tap and suppresses pending
// auto-reopens.
func (s *ScanCoordinator) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userClosed = true
	s.teardownLocked()
}

// teardownLocked releases the camera: torch off, camera stopped, state
// closed. Must run before any follow-up modal claims the screen.
func (s *ScanCoordinator) teardownLocked() {
	if s.state == ScanClosed {
		return
	}
	if s.torchOn {
		s.camera.SetTorch(false)
		s.torchOn = false
	}
	s.camera.Stop()
	s.state = ScanClosed
	logger.Debug("Scanner torn down")
}

// HandleDecode processes one decoded QR payload. The processing lock is
// acquired before any asynchronous work and released on every path; a decode
// arriving while locked is dropped. The scanner is torn down before the
// handler is invoked so the follow-up surface never competes with the camera
// view.
func (s *ScanCoordinator) HandleDecode(ctx context.Context, raw string) error {
	s.mu.Lock()
	switch s.state {
	case ScanClosed:
		s.mu.Unlock()
		return ErrScannerClosed
	case ScanProcessing:
		s.mu.Unlock()
		return ErrScannerBusy
	}
	s.state = ScanProcessing
	mode := s.mode
	s.mu.Unlock()

	released := false
	release := func() {
		if released {
			return
		}
		released = true
		s.mu.Lock()
		s.teardownLocked()
		s.mu.Unlock()
	}
	defer release()

	if s.haptics != nil {
		s.haptics.Vibrate()
	}
	token := ParseScanToken(raw)
	logger.Debug("Decoded scan payload", "mode", mode, "kind", token.Kind)

	switch mode {
	case ScanModeReturn:
		serial, err := s.resolver.ResolveReturnSerial(ctx, token)
		release()
		if err != nil {
			s.handler.ScanFailed(mode, err)
			return err
		}
		s.handler.ReturnSerialResolved(serial)
	default:
		txn, err := s.resolver.ResolveBorrow(ctx, token)
		release()
		if err != nil {
			s.handler.ScanFailed(mode, err)
			return err
		}
		s.handler.BorrowResolved(txn)
	}
	return nil
}
