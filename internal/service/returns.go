package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"

	"packloop-client/internal/apiclient"
	"packloop-client/internal/domain"
	"packloop-client/internal/logger"
)

var (
	// ErrSerialMissing blocks submission before anything reaches the server.
	ErrSerialMissing = errors.New("serial number is required")
	// ErrCheckRequired gates confirm behind a successful check response.
	ErrCheckRequired = errors.New("a successful check is required before confirming a return")
	// ErrUnstableConnection is the user-facing class for network and timeout
	// failures during check or confirm.
	ErrUnstableConnection = errors.New("unstable connection, please retry")
	// ErrStaleCheck marks a check response that arrived for a session the
	// user has already abandoned or replaced.
	ErrStaleCheck = errors.New("check response arrived for a superseded return session")
)

// ReturnSession holds the transient state of one return flow: the serial,
// the six face observations and, after a successful check, the server's
// authoritative preview. Discarded once the flow completes or is abandoned;
// nothing here is persisted.
type ReturnSession struct {
	id           uuid.UUID
	serial       string
	note         string
	observations map[domain.DamageFace]domain.DamageObservation
	preview      *domain.ReturnPreview
}

// Serial returns the item serial this session is returning.
func (s *ReturnSession) Serial() string { return s.serial }

// SetNote sets the free-form note submitted with the return.
func (s *ReturnSession) SetNote(note string) { s.note = note }

// SetObservation records what was seen on one face. An empty issue or "none"
// clears any damage on that face but keeps the photo.
func (s *ReturnSession) SetObservation(face domain.DamageFace, issue, imagePath string) {
	s.observations[face] = domain.DamageObservation{Face: face, Issue: issue, ImagePath: imagePath}
}

// Observations returns the recorded observations in face display order.
func (s *ReturnSession) Observations() []domain.DamageObservation {
	out := make([]domain.DamageObservation, 0, len(s.observations))
	for _, face := range domain.AllFaces() {
		if obs, ok := s.observations[face]; ok {
			out = append(out, obs)
		}
	}
	return out
}

// Preview returns the server's check response, nil before a successful check.
func (s *ReturnSession) Preview() *domain.ReturnPreview { return s.preview }

// ImageOpener opens a captured face photo for upload. Injectable for tests.
type ImageOpener func(path string) (io.ReadCloser, error)

func defaultImageOpener(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

type returnFlow struct {
	mu        sync.Mutex
	api       PlatformAPI
	openImage ImageOpener

	policy       domain.DamagePolicy
	policyLoaded bool

	// current stamps the one session whose check response may be applied;
	// responses for any other session are discarded as stale.
	current *ReturnSession
}

// NewReturnFlow creates the return protocol driver.
func NewReturnFlow(api PlatformAPI) ReturnFlow {
	return &returnFlow{api: api, openImage: defaultImageOpener}
}

// NewReturnFlowWithOpener creates the driver with a custom image opener.
func NewReturnFlowWithOpener(api PlatformAPI, open ImageOpener) ReturnFlow {
	return &returnFlow{api: api, openImage: open}
}

// Begin opens a new return session for the given serial, superseding any
// session still in flight. The damage policy is fetched lazily on first use
// and cached; a missing policy is not an error, the local preview just
// renders from an empty table until the server answers.
func (f *returnFlow) Begin(ctx context.Context, serial string) (*ReturnSession, error) {
	if serial == "" {
		return nil, ErrSerialMissing
	}
	f.ensurePolicy(ctx)

	session := &ReturnSession{
		id:           uuid.New(),
		serial:       serial,
		observations: make(map[domain.DamageFace]domain.DamageObservation),
	}
	f.mu.Lock()
	f.current = session
	f.mu.Unlock()
	return session, nil
}

func (f *returnFlow) ensurePolicy(ctx context.Context) {
	f.mu.Lock()
	loaded := f.policyLoaded
	f.mu.Unlock()
	if loaded {
		return
	}

	policy, err := f.api.GetDamagePolicy(ctx)
	if err != nil {
		if errors.Is(err, apiclient.ErrNotFound) {
			// a business without a configured policy is not an error
			logger.Debug("Damage policy not configured", "error", err)
		} else {
			logger.Warn("Damage policy fetch failed, preview will use empty table", "error", err)
		}
		return
	}
	f.mu.Lock()
	f.policy = policy
	f.policyLoaded = true
	f.mu.Unlock()
}

func (f *returnFlow) policySnapshot() domain.DamagePolicy {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.policy
}

// LocalPreview recomputes the client-side assessment from the session's
// current observations. Synchronous and side-effect-free; runs on every
// selection change. Never submitted: the server's check result is the value
// that counts.
func (f *returnFlow) LocalPreview(session *ReturnSession) domain.DamageAssessment {
	return AssessDamage(session.Observations(), f.policySnapshot())
}

// Check runs phase one: uploads the face images and issue tags, stores the
// server's preview on the session. Only runs on explicit user submission
// because of the upload cost. A response landing after the session was
// superseded is discarded.
func (f *returnFlow) Check(ctx context.Context, session *ReturnSession) (*domain.ReturnPreview, error) {
	if session == nil || session.serial == "" {
		return nil, ErrSerialMissing
	}

	observations := session.Observations()
	images := make(map[domain.DamageFace]io.Reader)
	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()
	for _, obs := range observations {
		if obs.ImagePath == "" {
			continue
		}
		file, err := f.openImage(obs.ImagePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s face image: %w", obs.Face, err)
		}
		closers = append(closers, file)
		images[obs.Face] = file
	}

	preview, err := f.api.CheckReturn(ctx, session.serial, session.note, observations, images)
	if err != nil {
		if errors.Is(err, apiclient.ErrNetwork) {
			return nil, fmt.Errorf("%w: %v", ErrUnstableConnection, err)
		}
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil || f.current.id != session.id {
		logger.Debug("Discarding stale check response", "serial", session.serial)
		return nil, ErrStaleCheck
	}
	session.preview = preview
	return preview, nil
}

// Confirm runs phase two: persists the return with exactly the values and
// temp image URLs the server computed during check. Never auto-retried on an
// ambiguous failure; the server may already have applied it, so the user
// must re-verify transaction status instead.
func (f *returnFlow) Confirm(ctx context.Context, session *ReturnSession) (*domain.BorrowTransaction, error) {
	f.mu.Lock()
	if session == nil || f.current == nil || f.current.id != session.id {
		f.mu.Unlock()
		return nil, ErrCheckRequired
	}
	preview := session.preview
	f.mu.Unlock()
	if preview == nil {
		return nil, ErrCheckRequired
	}

	submission := domain.ReturnSubmission{
		Note:              preview.Note,
		DamageFaces:       preview.DamageFaces,
		TempImages:        preview.TempImages,
		TotalDamagePoints: preview.TotalDamagePoints,
		FinalCondition:    preview.FinalCondition,
	}
	txn, err := f.api.ConfirmReturn(ctx, session.serial, submission)
	if err != nil {
		if errors.Is(err, apiclient.ErrNetwork) {
			return nil, fmt.Errorf("%w: the return may already be recorded, verify the transaction status before submitting again", ErrUnstableConnection)
		}
		return nil, err
	}

	f.mu.Lock()
	if f.current != nil && f.current.id == session.id {
		f.current = nil
	}
	f.mu.Unlock()
	return txn, nil
}

// Abandon drops the session; any in-flight check response for it will be
// discarded when it lands.
func (f *returnFlow) Abandon(session *ReturnSession) {
	if session == nil {
		return
	}
	f.mu.Lock()
	if f.current != nil && f.current.id == session.id {
		f.current = nil
	}
	f.mu.Unlock()
}
