package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/contentlens/analyzer-api/internal/config"
	"github.com/contentlens/analyzer-api/internal/domain/apikey"
	"github.com/contentlens/analyzer-api/internal/tasks"
)

// RunWorkers hosts the asynq server and scheduler until ctx is cancelled.
// Scheduled jobs: display-counter resets on calendar boundaries and the
// hourly expired-key sweep.
func RunWorkers(ctx context.Context, cfg *config.Config, keyRepo apikey.Repository, logger *zap.Logger) error {
	redisConnOpts := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	srv := asynq.NewServer(
		redisConnOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Named("AsynqServerErrorHandler").Error("Asynq task processing failed",
					zap.String("task_type", task.Type()),
					zap.ByteString("payload", task.Payload()),
					zap.Error(err),
				)
			}),
			Logger: NewAsynqLoggerAdapter(logger.Named("AsynqServer")),
		},
	)

	mux := asynq.NewServeMux()

	resetHandler := tasks.NewUsageResetHandler(keyRepo, logger)
	mux.HandleFunc(tasks.TypeDailyUsageReset, resetHandler.ProcessDailyReset)
	mux.HandleFunc(tasks.TypeMonthlyUsageReset, resetHandler.ProcessMonthlyReset)

	expireHandler := tasks.NewKeyExpireHandler(keyRepo, logger)
	mux.HandleFunc(tasks.TypeAPIKeyExpire, expireHandler.ProcessTask)

	scheduler := asynq.NewScheduler(
		redisConnOpts,
		&asynq.SchedulerOpts{
			Logger: NewAsynqLoggerAdapter(logger.Named("AsynqScheduler")),
		},
	)

	if err := registerSchedules(scheduler, logger); err != nil {
		return err
	}

	errChan := make(chan error, 2)

	go func() {
		logger.Info("Starting Asynq Server...")
		if err := srv.Run(mux); err != nil {
			errChan <- fmt.Errorf("asynq server error: %w", err)
			return
		}
		errChan <- nil
	}()

	go func() {
		logger.Info("Starting Asynq Scheduler...")
		if err := scheduler.Run(); err != nil {
			errChan <- fmt.Errorf("asynq scheduler error: %w", err)
			return
		}
		errChan <- nil
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down Asynq Scheduler...")
		scheduler.Shutdown()
		logger.Info("Shutting down Asynq Server...")
		srv.Shutdown()
		return nil
	case err := <-errChan:
		scheduler.Shutdown()
		srv.Shutdown()
		return err
	}
}

func registerSchedules(scheduler *asynq.Scheduler, logger *zap.Logger) error {
	dailyReset, err := tasks.NewDailyUsageResetTask()
	if err != nil {
		return fmt.Errorf("scheduler task creation error: %w", err)
	}
	// Calendar boundaries are UTC, matching the rate-limit buckets.
	if _, err := scheduler.Register("0 0 * * *", dailyReset); err != nil {
		return fmt.Errorf("scheduler registration error: %w", err)
	}

	monthlyReset, err := tasks.NewMonthlyUsageResetTask()
	if err != nil {
		return fmt.Errorf("scheduler task creation error: %w", err)
	}
	if _, err := scheduler.Register("0 0 1 * *", monthlyReset); err != nil {
		return fmt.Errorf("scheduler registration error: %w", err)
	}

	keyExpire, err := tasks.NewAPIKeyExpireTask()
	if err != nil {
		return fmt.Errorf("scheduler task creation error: %w", err)
	}
	if _, err := scheduler.Register("@every 1h", keyExpire); err != nil {
		return fmt.Errorf("scheduler registration error: %w", err)
	}

	logger.Info("Registered periodic gateway maintenance tasks",
		zap.Strings("tasks", []string{tasks.TypeDailyUsageReset, tasks.TypeMonthlyUsageReset, tasks.TypeAPIKeyExpire}),
	)
	return nil
}

type asynqLoggerAdapter struct {
	logger *zap.Logger
}

func NewAsynqLoggerAdapter(logger *zap.Logger) *asynqLoggerAdapter {
	return &asynqLoggerAdapter{logger: logger.WithOptions(zap.AddCallerSkip(1))}
}

func (l *asynqLoggerAdapter) Debug(args ...interface{}) {
	l.logger.Debug(fmt.Sprint(args...))
}
func (l *asynqLoggerAdapter) Info(args ...interface{}) {
	l.logger.Info(fmt.Sprint(args...))
}
func (l *asynqLoggerAdapter) Warn(args ...interface{}) {
	l.logger.Warn(fmt.Sprint(args...))
}
func (l *asynqLoggerAdapter) Error(args ...interface{}) {
	l.logger.Error(fmt.Sprint(args...))
}
func (l *asynqLoggerAdapter) Fatal(args ...interface{}) {
	l.logger.Fatal(fmt.Sprint(args...))
}
