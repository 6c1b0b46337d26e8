// FILE: src/cmd/kinlog/status.go
package main

import (
	"context"
	"os"
	"time"
)

const statusInterval = 30 * time.Second

func enableStatusReporter() bool {
	return os.Getenv("KINLOG_DISABLE_STATUS_REPORTER") != "1"
}

// Periodically logs receiver status
func statusReporter(ctx context.Context, svc *receiveService) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logServiceStatus(svc)
		}
	}
}

func logServiceStatus(svc *receiveService) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("msg", "Panic in status reporter",
				"component", "status_reporter",
				"panic", r)
		}
	}()

	stats := svc.GetStats()
	logger.Debug("msg", "Status report",
		"component", "status_reporter",
		"records_dropped", stats["records_dropped"],
		"time", time.Now().Format("15:04:05"))

	if ledger, ok := stats["ledger"].(map[string]any); ok {
		logger.Info("msg", "Ledger status",
			"component", "status_reporter",
			"records_assigned", ledger["records_assigned"],
			"total_throttled", ledger["total_throttled"])
	}
	for _, name := range []string{"http", "tcp"} {
		if s, ok := stats[name].(map[string]any); ok {
			logger.Info("msg", "Receiver status",
				"component", "status_reporter",
				"receiver", name,
				"stats", s)
		}
	}
	if out, ok := stats["output"].(map[string]any); ok {
		logger.Info("msg", "Output status",
			"component", "status_reporter",
			"type", out["type"],
			"total_processed", out["total_processed"],
			"total_invalid", out["total_invalid"])
	}
}
