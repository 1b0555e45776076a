package ledger

import (
	"context"
	"log/slog"

	"github.com/mmynk/splitledger/internal/calculator"
)

// LogSink logs the transfer instructions of every report.
type LogSink struct {
	Logger *slog.Logger
}

// Publish implements Sink.
func (s LogSink) Publish(_ context.Context, report *Report) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if report.Settlement.Settled {
		logger.Info("All accounts are settled", "version", report.Version)
		return nil
	}
	logger.Info("Settlement updated",
		"version", report.Version,
		"transfers", len(report.Settlement.Transfers),
		"total", calculator.FormatAmount(report.Settlement.TotalTransferred()),
	)
	for _, t := range report.Settlement.Transfers {
		logger.Info("Transfer",
			"version", report.Version,
			"from", t.From,
			"to", t.To,
			"amount", calculator.FormatAmount(t.Amount),
		)
	}
	return nil
}
