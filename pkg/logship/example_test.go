package logship_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bft-labs/logship/pkg/logship"
)

// ExampleNew shows writing and reading entries without starting delivery.
func ExampleNew() {
	dir, err := os.MkdirTemp("", "logship-example")
	if err != nil {
		fmt.Println(err)
		return
	}
	defer os.RemoveAll(dir)

	cfg := logship.DefaultConfig()
	cfg.StorePath = filepath.Join(dir, "log", "log.db")

	ls, err := logship.New(cfg)
	if err != nil {
		fmt.Printf("failed to create logship: %v\n", err)
		return
	}
	defer ls.Close()

	ls.WriteLog(logship.SeverityInfo, "service started")
	ls.WriteLog(logship.SeverityWarning, "disk 91% full")

	ctx := context.Background()
	for block := range ls.Blocks(ctx, logship.SeverityWarning, false) {
		lines := strings.Split(block, "\n")
		fmt.Println(lines[0], lines[2])
	}

	// Output: WARNING: disk 91% full
}

// ExampleLogship_Handler shows recording slog records.
func ExampleLogship_Handler() {
	dir, err := os.MkdirTemp("", "logship-example")
	if err != nil {
		fmt.Println(err)
		return
	}
	defer os.RemoveAll(dir)

	cfg := logship.DefaultConfig()
	cfg.StorePath = filepath.Join(dir, "log.db")
	ls, err := logship.New(cfg)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer ls.Close()

	logger := slog.New(ls.Handler(slog.LevelInfo))
	logger.Error("charge failed", "order", 42)

	for block := range ls.Blocks(context.Background(), logship.SeveritySevere, false) {
		fmt.Println(strings.Split(block, "\n")[2])
	}

	// Output: charge failed order=42
}

// Example_withEventHandler shows receiving delivery events.
func Example_withEventHandler() {
	cfg := logship.DefaultConfig()
	cfg.Delivery.Transport = logship.TransportWebhook
	cfg.Delivery.WebhookURL = "https://logs.example.com/ingest"
	cfg.Delivery.Subject = "[app] log report"

	ls, err := logship.New(cfg, logship.WithEventHandler(&printHandler{}))
	if err != nil {
		fmt.Printf("failed to create logship: %v\n", err)
		return
	}
	_ = ls // Start, write, Close...
}

type printHandler struct{}

func (printHandler) OnStateChange(e logship.StateChangeEvent) {
	fmt.Printf("state %s -> %s (%s)\n", e.Previous, e.Current, e.Reason)
}

func (printHandler) OnSendSuccess(e logship.SendSuccessEvent) {
	fmt.Printf("sent %d bytes, marked %d entries in %v\n", e.BytesSent, e.EntriesMarked, e.Duration)
}

func (printHandler) OnSendError(e logship.SendErrorEvent) {
	fmt.Printf("dropped %d bytes: %v\n", e.BytesDropped, e.Error)
}
