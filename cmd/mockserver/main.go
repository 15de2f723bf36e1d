package main

import (
	"flag"
	"log"
	"net/http"
	"time"

	"packloop-client/internal/domain"
	"packloop-client/internal/logger"
	"packloop-client/internal/mockapi"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:8787", "Listen address")
	wrap := flag.Bool("wrap", false, "Serve wrapped response shapes ({data:{items:...}})")
	logLevel := flag.String("log-level", "info", "Log level")
	flag.Parse()

	logger.Initialize(*logLevel, "text")

	server := mockapi.NewServer()
	server.WrapResponses = *wrap
	server.AddTransaction(domain.BorrowTransaction{
		Type:       domain.TransactionTypeBorrow,
		Status:     domain.StatusPending,
		Product:    domain.ProductRef{SerialNumber: "PL-CUP-0001", ProductGroup: "cup", Size: "M"},
		BorrowDate: time.Now().Add(-24 * time.Hour),
		DueDate:    time.Now().Add(6 * 24 * time.Hour),
	})

	logger.Info("Mock platform backend listening", "addr", *addr, "wrapped_responses", *wrap)
	if err := http.ListenAndServe(*addr, server.Router()); err != nil {
		log.Fatalf("Mock backend failed: %v", err)
	}
}
