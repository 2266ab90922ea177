package job

import (
	"github.com/learnboard/learnboard/logger"
	"github.com/learnboard/learnboard/util/common"
	"github.com/learnboard/learnboard/util/metrics"
	"github.com/learnboard/learnboard/web/cache"
)

// SessionCleanupJob purges expired sessions and publishes how many remain.
type SessionCleanupJob struct {
	backend cache.Backend
}

func NewSessionCleanupJob(backend cache.Backend) *SessionCleanupJob {
	return &SessionCleanupJob{backend: backend}
}

// Here Run is an interface method of the Job interface
func (j *SessionCleanupJob) Run() {
	defer common.Recover("session cleanup job")

	active := j.backend.Cleanup()
	metrics.SessionsActive.Set(float64(active))
	logger.Debugf("session cleanup: %d active", active)
}
