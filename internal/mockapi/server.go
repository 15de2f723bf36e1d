// Package mockapi is an in-process stand-in for the packaging platform
// backend. It implements just the endpoints the client core consumes, over
// in-memory state, and can serve either of the backend's two known response
// layouts so the client's defensive decoding stays exercised.
package mockapi

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"packloop-client/internal/domain"
	"packloop-client/internal/service"
)

// Server holds the mock backend's state.
type Server struct {
	mu           sync.Mutex
	transactions map[string]*domain.BorrowTransaction
	policy       []domain.PolicyEntry
	tempImages   map[string][]byte
	profile      domain.BusinessProfile
	lastReturn   *domain.ReturnSubmission

	// WrapResponses switches list and preview payloads between the
	// backend's wrapped ({"data":{"items":...}}, {"data":{"preview":...}})
	// and flat ({"data":[...]}, {"data":{...}}) layouts.
	WrapResponses bool

	now func() time.Time
}

// NewServer creates a mock backend seeded with the standard damage policy.
func NewServer() *Server {
	return &Server{
		transactions: make(map[string]*domain.BorrowTransaction),
		tempImages:   make(map[string][]byte),
		policy: []domain.PolicyEntry{
			{Issue: domain.IssueScratchHeavy, Points: 2},
			{Issue: domain.IssueDentSmall, Points: 2},
			{Issue: domain.IssueDentLarge, Points: 5},
			{Issue: domain.IssueCrackSmall, Points: 5},
			{Issue: domain.IssueCrackLarge, Points: 13},
			{Issue: domain.IssueDeformed, Points: 13},
			{Issue: domain.IssueBroken, Points: 13},
		},
		profile: domain.BusinessProfile{
			ID:    uuid.NewString(),
			Name:  "Demo Refill Bar",
			Email: "demo@packloop.test",
		},
		now: time.Now,
	}
}

// Router returns the mux router serving the platform endpoints.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/business/profile", s.handleProfile).Methods(http.MethodGet)
	r.HandleFunc("/business/transactions", s.handleListTransactions).Methods(http.MethodGet)
	r.HandleFunc("/business/transactions/{id}", s.handleGetTransaction).Methods(http.MethodGet)
	r.HandleFunc("/business/transactions/{id}/confirm", s.handleConfirmBorrow).Methods(http.MethodPost)
	r.HandleFunc("/business/damage-policy", s.handleDamagePolicy).Methods(http.MethodGet)
	r.HandleFunc("/business/returns/{serial}/check", s.handleCheckReturn).Methods(http.MethodPost)
	r.HandleFunc("/business/returns/{serial}/confirm", s.handleConfirmReturn).Methods(http.MethodPost)
	r.HandleFunc("/temp-images/{key}", s.handleTempImage).Methods(http.MethodGet)
	return r
}

// AddTransaction seeds a transaction. Missing ids get a 24-hex id assigned.
func (s *Server) AddTransaction(t domain.BorrowTransaction) domain.BorrowTransaction {
	if t.ID == "" {
		t.ID = newTransactionID()
	}
	s.mu.Lock()
	s.transactions[t.ID] = &t
	s.mu.Unlock()
	return t
}

// SetPolicy replaces the damage policy table.
func (s *Server) SetPolicy(entries []domain.PolicyEntry) {
	s.mu.Lock()
	s.policy = entries
	s.mu.Unlock()
}

// LastReturnSubmission returns the most recent confirm-return body received.
func (s *Server) LastReturnSubmission() *domain.ReturnSubmission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReturn
}

// TempImageCount reports how many face photos have been uploaded.
func (s *Server) TempImageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tempImages)
}

// newTransactionID mimics the backend's 24-hex object ids.
func newTransactionID() string {
	return uuid.NewString()[:8] + uuid.NewString()[:8] + uuid.NewString()[:8]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, v any) {
	writeJSON(w, http.StatusOK, map[string]any{"data": v})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	profile := s.profile
	s.mu.Unlock()
	writeData(w, profile)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")

	s.mu.Lock()
	items := make([]domain.BorrowTransaction, 0, len(s.transactions))
	for _, t := range s.transactions {
		if status != "" && string(t.Status) != status {
			continue
		}
		items = append(items, *t)
	}
	wrap := s.WrapResponses
	s.mu.Unlock()

	if wrap {
		writeData(w, map[string]any{"items": items})
		return
	}
	writeData(w, items)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	t, ok := s.transactions[id]
	var copied domain.BorrowTransaction
	if ok {
		copied = *t
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}
	writeData(w, copied)
}

func (s *Server) handleConfirmBorrow(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[id]
	if !ok {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}
	if t.Type != domain.TransactionTypeBorrow {
		writeError(w, http.StatusConflict, "transaction is not a borrow request")
		return
	}
	switch t.Status {
	case domain.StatusPending, domain.StatusWaiting, domain.StatusPendingPickup:
		t.Status = domain.StatusBorrowing
	default:
		writeError(w, http.StatusConflict, "transaction is not awaiting confirmation")
		return
	}
	writeData(w, *t)
}

func (s *Server) handleDamagePolicy(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	policy := s.policy
	s.mu.Unlock()
	if len(policy) == 0 {
		writeError(w, http.StatusNotFound, "damage policy not configured")
		return
	}
	writeData(w, policy)
}

func (s *Server) handleCheckReturn(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	note := r.FormValue("note")
	faces := make(map[string]string)
	observations := make([]domain.DamageObservation, 0, 6)
	for _, face := range domain.AllFaces() {
		issue := r.FormValue("issues[" + string(face) + "]")
		if issue == "" {
			continue
		}
		faces[string(face)] = issue
		observations = append(observations, domain.DamageObservation{Face: face, Issue: issue})
	}

	var tempImages []string
	if r.MultipartForm != nil {
		for _, face := range domain.AllFaces() {
			headers := r.MultipartForm.File["images["+string(face)+"]"]
			for _, header := range headers {
				file, err := header.Open()
				if err != nil {
					writeError(w, http.StatusBadRequest, "unreadable image part")
					return
				}
				payload, err := io.ReadAll(file)
				file.Close()
				if err != nil {
					writeError(w, http.StatusBadRequest, "unreadable image part")
					return
				}
				key := uuid.NewString()
				s.mu.Lock()
				s.tempImages[key] = payload
				s.mu.Unlock()
				tempImages = append(tempImages, "/temp-images/"+key)
			}
		}
	}

	s.mu.Lock()
	policy := domain.NewDamagePolicy(s.policy)
	wrap := s.WrapResponses
	s.mu.Unlock()

	assessment := service.AssessDamage(observations, policy)
	preview := domain.ReturnPreview{
		TempImages:        tempImages,
		TotalDamagePoints: assessment.TotalPoints,
		FinalCondition:    assessment.Condition,
		DamageFaces:       faces,
		Note:              note,
	}
	if wrap {
		writeData(w, map[string]any{"preview": preview})
		return
	}
	writeData(w, preview)
}

func (s *Server) handleConfirmReturn(w http.ResponseWriter, r *http.Request) {
	serial := mux.Vars(r)["serial"]

	var submission domain.ReturnSubmission
	if err := json.NewDecoder(r.Body).Decode(&submission); err != nil {
		writeError(w, http.StatusBadRequest, "invalid confirm-return body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastReturn = &submission

	var target *domain.BorrowTransaction
	for _, t := range s.transactions {
		if t.Product.SerialNumber == serial && t.Type == domain.TransactionTypeReturn && t.ReturnedAt == nil {
			target = t
			break
		}
	}
	if target == nil {
		returnedAt := s.now()
		target = &domain.BorrowTransaction{
			ID:         newTransactionID(),
			Type:       domain.TransactionTypeReturn,
			Product:    domain.ProductRef{SerialNumber: serial},
			ReturnedAt: &returnedAt,
		}
		s.transactions[target.ID] = target
	} else {
		returnedAt := s.now()
		target.ReturnedAt = &returnedAt
	}
	target.Status = domain.StatusReturned
	writeData(w, *target)
}

func (s *Server) handleTempImage(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	s.mu.Lock()
	payload, ok := s.tempImages[key]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "temp image not found")
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(payload)
}
