// Package scheduler runs the periodic maintenance jobs: nightly cleanup of
// orphaned uploads and a weekly statistics refresh for the query planner.
package scheduler

import (
	"time"

	"elevator-memo/internal/config"
	"elevator-memo/internal/models"
	"elevator-memo/internal/storage"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Scheduler struct {
	cron   *cron.Cron
	cfg    *config.Config
	store  *storage.Store
	logger *zap.Logger
}

func New(cfg *config.Config, store *storage.Store, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		cfg:    cfg,
		store:  store,
		logger: logger,
	}
}

// Start registers the jobs and starts the cron loop: file cleanup every night
// at 02:00, database maintenance every Sunday at 03:00.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 2 * * *", s.cleanupFiles); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 3 * * 0", s.refreshStatistics); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("scheduler started")
	return nil
}

// Stop halts the cron loop and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) cleanupFiles() {
	maxAge := time.Duration(s.cfg.Uploads.MaxAgeDays) * 24 * time.Hour
	removed, err := s.store.CleanupOrphans(maxAge, fileReferenced)
	if err != nil {
		s.logger.Error("upload cleanup failed", zap.Error(err))
		return
	}

	size, err := s.store.DirSize()
	if err != nil {
		s.logger.Warn("failed to measure uploads directory", zap.Error(err))
	}
	s.logger.Info("upload cleanup completed",
		zap.Int("removed", removed),
		zap.Int64("uploads_bytes", size))
}

// fileReferenced reports whether any memo or signature row still points at
// the given upload.
func fileReferenced(filename string) (bool, error) {
	var memoRefs int64
	if err := models.DB.Model(&models.Memo{}).
		Where("tester_signature_path LIKE ?", "%"+filename+"%").
		Count(&memoRefs).Error; err != nil {
		return true, err
	}
	if memoRefs > 0 {
		return true, nil
	}

	var signatureRefs int64
	if err := models.DB.Model(&models.Signature{}).
		Where("filename = ?", filename).
		Count(&signatureRefs).Error; err != nil {
		return true, err
	}
	return signatureRefs > 0, nil
}

// refreshStatistics re-analyzes the main tables so planner estimates stay
// close to reality. SQLite has no per-table ANALYZE worth running here.
func (s *Scheduler) refreshStatistics() {
	if s.cfg.Database.Type == "sqlite" {
		return
	}
	for _, table := range []string{"memos", "users", "signatures"} {
		if err := models.DB.Exec("ANALYZE " + table).Error; err != nil {
			s.logger.Error("statistics refresh failed",
				zap.String("table", table), zap.Error(err))
		}
	}
	s.logger.Info("statistics refresh completed")
}
