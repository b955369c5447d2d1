package jobs

import (
	"context"
	"time"

	"backoffice/app/tables"
	"backoffice/core/config"
	"backoffice/core/logger"
	"backoffice/core/scheduler"
)

const DatasetSyncTask = "dataset_sync"

// DatasetSyncJob refreshes tables from the upstream backend
type DatasetSyncJob struct {
	service *tables.TableService
	tags    []string
	logger  logger.Logger
}

func NewDatasetSyncJob(service *tables.TableService, tags []string, log logger.Logger) *DatasetSyncJob {
	return &DatasetSyncJob{service: service, tags: tags, logger: log}
}

// Execute syncs the configured tags, or every known tag when none are set
func (j *DatasetSyncJob) Execute(ctx context.Context) error {
	start := time.Now()
	err := j.service.SyncAll(ctx, j.tags)
	if err != nil {
		j.logger.Error("Dataset sync finished with errors",
			logger.Duration("duration", time.Since(start)),
			logger.String("error", err.Error()))
		return err
	}
	j.logger.Info("Dataset sync finished", logger.Duration("duration", time.Since(start)))
	return nil
}

// SetupScheduler registers all scheduled jobs with the cron scheduler. The
// sync job is only enabled when an upstream backend is configured.
func SetupScheduler(cfg *config.Config, service *tables.TableService, log logger.Logger) *scheduler.CronScheduler {
	cronScheduler := scheduler.NewCronScheduler(log)

	enabled := service != nil && service.Upstream != nil && service.Upstream.Configured() && cfg.SyncCron != ""
	job := NewDatasetSyncJob(service, cfg.SyncTags, log)

	err := cronScheduler.RegisterTask(&scheduler.CronTask{
		Name:        DatasetSyncTask,
		Description: "Replace tables with the upstream backend's datasets",
		CronExpr:    cfg.SyncCron,
		Handler:     job.Execute,
		Enabled:     enabled,
	})
	if err != nil {
		log.Error("failed to register dataset sync job", logger.String("error", err.Error()))
	}

	return cronScheduler
}
