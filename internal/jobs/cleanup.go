package jobs

import (
	"time"

	"github.com/rs/zerolog/log"
)

type symlinkCleaner interface {
	CleanSymlinks()
}

// CleanupJob periodically sweeps the HLS directory for segment aliases
// whose targets the media server has already rotated away.
type CleanupJob struct {
	store    symlinkCleaner
	interval time.Duration
	done     chan struct{}
}

func NewCleanupJob(store symlinkCleaner, interval time.Duration) *CleanupJob {
	return &CleanupJob{
		store:    store,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (j *CleanupJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("symlink cleanup job started")
}

func (j *CleanupJob) Stop() {
	close(j.done)
	log.Info().Msg("symlink cleanup job stopped")
}

func (j *CleanupJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.store.CleanSymlinks()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.store.CleanSymlinks()
		}
	}
}
