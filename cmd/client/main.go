package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"packloop-client/internal/apiclient"
	"packloop-client/internal/config"
	"packloop-client/internal/domain"
	"packloop-client/internal/jobs"
	"packloop-client/internal/logger"
	"packloop-client/internal/mockapi"
	"packloop-client/internal/scheduler"
	"packloop-client/internal/security"
	"packloop-client/internal/service"
)

// terminalCamera satisfies the camera contract for a headless run: the
// decode comes from the -code flag, not a device camera.
type terminalCamera struct{}

func (terminalCamera) RequestPermission(ctx context.Context) (bool, error) { return true, nil }
func (terminalCamera) Start(ctx context.Context) error                     { return nil }
func (terminalCamera) Stop()                                               {}
func (terminalCamera) SetTorch(on bool)                                    {}

type terminalHaptics struct{}

func (terminalHaptics) Vibrate() { fmt.Println("* bzzt *") }

// workflowHandler performs the follow-up a mobile screen would show after a
// decode resolves: confirm the borrow, or walk the two-phase return.
type workflowHandler struct {
	api       *apiclient.Client
	returns   service.ReturnFlow
	faces     map[domain.DamageFace]faceInput
	note      string
	assumeYes bool
}

type faceInput struct {
	issue     string
	imagePath string
}

func (h *workflowHandler) BorrowResolved(txn *domain.BorrowTransaction) {
	fmt.Printf("Pending borrow found: %s (item %s, status %s)\n", txn.ID, txn.Product.SerialNumber, txn.Status)
	if !h.confirm("Confirm this borrow?") {
		fmt.Println("Borrow left pending.")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := h.api.ConfirmBorrow(ctx, txn.ID); err != nil {
		fmt.Printf("Borrow confirmation failed: %v\n", err)
		return
	}
	fmt.Println("Borrow confirmed.")
}

func (h *workflowHandler) ReturnSerialResolved(serial string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	session, err := h.returns.Begin(ctx, serial)
	if err != nil {
		fmt.Printf("Could not start return: %v\n", err)
		return
	}
	for face, input := range h.faces {
		session.SetObservation(face, input.issue, input.imagePath)
	}
	session.SetNote(h.note)

	local := h.returns.LocalPreview(session)
	fmt.Printf("Local preview: %d points, condition %s\n", local.TotalPoints, local.Condition)

	preview, err := h.returns.Check(ctx, session)
	if err != nil {
		fmt.Printf("Return check failed: %v\n", err)
		return
	}
	fmt.Printf("Server check: %d points, condition %s, %d photo(s) uploaded\n",
		preview.TotalDamagePoints, preview.FinalCondition, len(preview.TempImages))

	if !h.confirm("Confirm this return with the server-computed values?") {
		h.returns.Abandon(session)
		fmt.Println("Return abandoned.")
		return
	}
	txn, err := h.returns.Confirm(ctx, session)
	if err != nil {
		fmt.Printf("Return confirmation failed: %v\n", err)
		return
	}
	fmt.Printf("Return recorded: transaction %s, status %s\n", txn.ID, txn.Status)
}

func (h *workflowHandler) ScanFailed(mode service.ScanMode, err error) {
	fmt.Printf("Scan (%s) did not resolve: %v\n", mode, err)
}

func (h *workflowHandler) confirm(prompt string) bool {
	if h.assumeYes {
		return true
	}
	fmt.Printf("%s [y/N] ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, _ := reader.ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// parseFaces reads -faces values like "front=dent_small@/tmp/f.jpg,back=none".
func parseFaces(spec string) (map[domain.DamageFace]faceInput, error) {
	faces := make(map[domain.DamageFace]faceInput)
	if spec == "" {
		return faces, nil
	}
	valid := make(map[domain.DamageFace]bool)
	for _, f := range domain.AllFaces() {
		valid[f] = true
	}
	for _, part := range strings.Split(spec, ",") {
		name, rest, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			return nil, fmt.Errorf("invalid face spec %q, expected face=issue[@image]", part)
		}
		face := domain.DamageFace(name)
		if !valid[face] {
			return nil, fmt.Errorf("unknown face %q", name)
		}
		issue, image, _ := strings.Cut(rest, "@")
		faces[face] = faceInput{issue: issue, imagePath: image}
	}
	return faces, nil
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "Path to configuration file")
	mode := flag.String("mode", "borrow", "Scan mode: borrow or return")
	code := flag.String("code", "", "Decoded QR payload (serial number, transaction id, or deep link)")
	facesSpec := flag.String("faces", "", "Face observations, e.g. front=dent_small@/tmp/front.jpg,back=none")
	note := flag.String("note", "", "Note submitted with a return")
	assumeYes := flag.Bool("yes", false, "Confirm prompts automatically")
	useMock := flag.Bool("mock", false, "Run against an in-process mock backend")
	watch := flag.Bool("watch", false, "Keep running with the background refresh scheduler")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting packloop client", "log_level", cfg.Log.Level, "mode", *mode)

	if *useMock {
		baseURL, err := startMockBackend()
		if err != nil {
			log.Fatalf("Failed to start mock backend: %v", err)
		}
		cfg.API.BaseURL = baseURL
		if cfg.Auth.AccessToken == "" {
			cfg.Auth.AccessToken = "demo-token"
		}
		logger.Info("Using in-process mock backend", "base_url", baseURL)
	}

	tokens := security.NewStaticTokenProvider(cfg.Auth.AccessToken)
	api := apiclient.New(cfg.API.BaseURL, tokens, apiclient.Options{
		Timeout:         cfg.GetAPITimeout(),
		HistoryPageSize: cfg.API.HistoryPageSize,
	})

	profile, err := api.GetBusinessProfile(context.Background())
	if err != nil {
		log.Fatalf("Failed to fetch business profile: %v", err)
	}
	logger.Info("Operating as business", "name", profile.Name, "id", profile.ID)

	history := service.NewHistoryService(api, cfg.API.HistoryPageSize)
	if _, err := history.Refresh(context.Background()); err != nil {
		logger.Warn("Initial history refresh failed", "error", err)
	}
	counts := history.TabCounts()
	fmt.Printf("Transactions — borrow: %d, returned: %d, overdue: %d\n", counts.Borrow, counts.Returned, counts.Overdue)
	for category, n := range history.ReturnCategoryCounts() {
		fmt.Printf("  returns %s: %d\n", category, n)
	}

	faces, err := parseFaces(*facesSpec)
	if err != nil {
		log.Fatalf("Invalid -faces value: %v", err)
	}

	resolver := service.NewTransactionResolver(api, cfg.API.HistoryPageSize)
	returns := service.NewReturnFlow(api)
	handler := &workflowHandler{
		api:       api,
		returns:   returns,
		faces:     faces,
		note:      *note,
		assumeYes: *assumeYes,
	}

	var haptics service.HapticFeedback
	if cfg.Scanner.Haptics {
		haptics = terminalHaptics{}
	}
	coordinator := service.NewScanCoordinator(terminalCamera{}, haptics, resolver, handler)

	if *code != "" {
		if err := coordinator.Open(context.Background(), service.ScanMode(*mode)); err != nil {
			log.Fatalf("Failed to open scanner: %v", err)
		}
		if err := coordinator.HandleDecode(context.Background(), *code); err != nil {
			logger.Warn("Decode did not complete", "error", err)
		}
	}

	if *watch || cfg.Scheduler.Enabled {
		runner := jobs.NewJobRunner(history, cfg)
		sched := scheduler.NewScheduler(runner)
		sched.Start()
		defer sched.Stop()

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info("Shutting down")
	}
}

// startMockBackend serves the in-process backend on a loopback port and
// seeds it with a couple of demo transactions.
func startMockBackend() (string, error) {
	server := mockapi.NewServer()
	due := time.Now().Add(-48 * time.Hour)
	server.AddTransaction(domain.BorrowTransaction{
		Type:       domain.TransactionTypeBorrow,
		Status:     domain.StatusPending,
		Product:    domain.ProductRef{SerialNumber: "PL-CUP-0001", ProductGroup: "cup", Size: "M"},
		BorrowDate: time.Now().Add(-72 * time.Hour),
		DueDate:    due,
	})
	server.AddTransaction(domain.BorrowTransaction{
		Type:    domain.TransactionTypeReturn,
		Status:  domain.StatusPending,
		Product: domain.ProductRef{SerialNumber: "PL-BOX-0007", ProductGroup: "box", Size: "L"},
		DueDate: time.Now().Add(24 * time.Hour),
	})

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}
	go http.Serve(listener, server.Router())
	return "http://" + listener.Addr().String(), nil
}
