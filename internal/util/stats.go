package util

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pterm/pterm"
)

// ──────────────────────────────────────────────────────────────────────────────
// Global stats singleton
// ──────────────────────────────────────────────────────────────────────────────

// Stats is the process-wide session/traffic counter.
var Stats = &stats{}

type stats struct {
	OpenedSessions atomic.Int64 // cumulative count of sessions established since process start
	ClosedSessions atomic.Int64 // cumulative count of sessions torn down since process start
	BytesSent      atomic.Int64 // cumulative payload bytes sent
	BytesRecv      atomic.Int64 // cumulative payload bytes received
	PingsSent      atomic.Int64 // cumulative keep-alive probes sent
}

func (s *stats) AddSession()    { s.OpenedSessions.Add(1) }
func (s *stats) RemoveSession() { s.ClosedSessions.Add(1) }
func (s *stats) AddSent(n int)  { s.BytesSent.Add(int64(n)) }
func (s *stats) AddRecv(n int)  { s.BytesRecv.Add(int64(n)) }
func (s *stats) AddPing()       { s.PingsSent.Add(1) }

// ──────────────────────────────────────────────────────────────────────────────
// Periodic reporter
// ──────────────────────────────────────────────────────────────────────────────

// reportInterval is how often the reporter samples and logs the counters.
const reportInterval = 10 * time.Second

// StartStatsReporter launches a goroutine that logs traffic statistics
// every reportInterval. Quiet intervals (no session churn, negligible
// traffic) are skipped. It stops when ctx is cancelled.
func StartStatsReporter(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(reportInterval)
		defer ticker.Stop()

		var prevSent, prevRecv, prevOpened, prevClosed int64
		for {
			select {
			case <-ticker.C:
				opened := Stats.OpenedSessions.Load()
				closed := Stats.ClosedSessions.Load()
				sent := Stats.BytesSent.Load()
				recv := Stats.BytesRecv.Load()

				outS := float64(sent-prevSent) / reportInterval.Seconds()
				inS := float64(recv-prevRecv) / reportInterval.Seconds()
				newSess := opened - prevOpened
				deadSess := closed - prevClosed

				if newSess > 0 || deadSess > 0 || inS > 10 || outS > 10 {
					pterm.DefaultLogger.Info(formatStats(inS, outS, newSess, deadSess, opened-closed))
				}

				prevSent = sent
				prevRecv = recv
				prevOpened = opened
				prevClosed = closed

			case <-ctx.Done():
				return
			}
		}
	}()
}

// byteUnits defines the units for formatting byte counts in a human-readable way.
var byteUnits = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"}

// formatBytes formats a byte count into a human-readable string with fixed width (exactly 8 chars)
// for example: "99.0   B", " 1.5 KiB", " 0.1 MiB", "98.9 GiB", etc.
func formatBytes(b float64) string {
	unitIdx := 0

	// to prevent "100.0 KiB", which is 9 chars
	for b > 99 && unitIdx < 5 {
		b /= 1024
		unitIdx++
	}

	return fmt.Sprintf("%4.1f %3s", b, byteUnits[unitIdx])
}

// formatStats returns a formatted string of the current stats for display in the logger.
func formatStats(inS, outS float64, newSess, deadSess, live int64) string {
	return fmt.Sprintf("In: %s/s | Out: %s/s | Sessions: %2d↑ %2d↓ (%d live)",
		formatBytes(inS),
		formatBytes(outS),
		newSess,
		deadSess,
		live,
	)
}
