package monitoring

import (
	"database/sql"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/process"
)

// UsageReporter periodically logs store sizes and the process's own resource
// usage. The cadence is a standard cron expression.
type UsageReporter struct {
	db       *sql.DB
	schedule cron.Schedule
	done     chan bool
}

// NewUsageReporter creates a reporter from a cron expression.
func NewUsageReporter(db *sql.DB, cronExpr string) (*UsageReporter, error) {
	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return nil, err
	}
	return &UsageReporter{
		db:       db,
		schedule: schedule,
		done:     make(chan bool),
	}, nil
}

// Run starts the reporting loop. It reports once on start, then follows the
// schedule until Stop is called.
func (ur *UsageReporter) Run() {
	log.Info().Msg("Starting background usage reporter...")
	ur.report()

	for {
		next := ur.schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ur.done:
			timer.Stop()
			log.Info().Msg("Stopping background usage reporter.")
			return
		case <-timer.C:
			ur.report()
		}
	}
}

// Stop halts the reporting loop.
func (ur *UsageReporter) Stop() {
	ur.done <- true
}

func (ur *UsageReporter) report() {
	snap, err := ur.Snapshot()
	if err != nil {
		log.Error().Err(err).Msg("UsageReporter: Failed to collect snapshot")
		return
	}

	event := log.Info().
		Int64("users", snap.Users).
		Int64("kweks", snap.Kweks)
	if snap.CPUPercent >= 0 {
		event = event.Float64("cpu_percent", snap.CPUPercent)
	}
	if snap.RSSBytes > 0 {
		event = event.Uint64("rss_bytes", snap.RSSBytes)
	}
	event.Msg("Usage report")
}

// Snapshot holds one round of collected figures.
type Snapshot struct {
	Users      int64
	Kweks      int64
	CPUPercent float64
	RSSBytes   uint64
}

// Snapshot counts the stored records and samples the process's CPU and
// resident memory. Process stats failing is not fatal; the counts still
// get reported.
func (ur *UsageReporter) Snapshot() (Snapshot, error) {
	snap := Snapshot{CPUPercent: -1}

	if err := ur.db.QueryRow("SELECT COUNT(*) FROM users").Scan(&snap.Users); err != nil {
		return Snapshot{}, err
	}
	if err := ur.db.QueryRow("SELECT COUNT(*) FROM kweks").Scan(&snap.Kweks); err != nil {
		return Snapshot{}, err
	}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Warn().Err(err).Msg("UsageReporter: Non-fatal error opening process stats")
		return snap, nil
	}
	if cpu, err := proc.CPUPercent(); err == nil {
		snap.CPUPercent = cpu
	}
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		snap.RSSBytes = mem.RSS
	}
	return snap, nil
}
