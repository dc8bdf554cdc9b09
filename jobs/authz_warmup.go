package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/snd-erp/snd-erp/internal/authz"
	jobmetrics "github.com/snd-erp/snd-erp/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// JobAuthzCacheWarmup labels warmup runs in logs and metrics.
const JobAuthzCacheWarmup = "authz:cache:warmup"

const (
	defaultWarmupWindow = 24 * time.Hour
	defaultWarmupLimit  = 500
)

// ActiveUserSource lists users with sessions created since a cutoff.
type ActiveUserSource interface {
	RecentlyActiveUsers(ctx context.Context, since time.Time, limit int) ([]int64, error)
}

// AuthzWarmupJob pre-populates the permission cache for recently active
// users. The cache is process-local, so the loop runs inside the API process
// against the same evaluator that serves requests; warming from another
// process would fill a map no request ever reads.
type AuthzWarmupJob struct {
	Evaluator *authz.Evaluator
	Users     ActiveUserSource
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	// Window and Limit bound which users get warmed. Zero values fall back
	// to the job defaults.
	Window time.Duration
	Limit  int
	clock  func() time.Time
}

// NewAuthzWarmupJob wires dependencies for the warmup loop.
func NewAuthzWarmupJob(evaluator *authz.Evaluator, pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *AuthzWarmupJob {
	return &AuthzWarmupJob{
		Evaluator: evaluator,
		Users:     pgActiveUserSource{pool: pool},
		Logger:    logger,
		Metrics:   metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Start runs one warmup immediately, then one per interval until the context
// is canceled. Intended to be launched as a goroutine at startup so the first
// requests after a deploy hit a warm cache.
func (j *AuthzWarmupJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = authz.DefaultCacheTTL
	}
	if err := j.Run(ctx); err != nil {
		j.logger().Error("authz cache warmup", slog.Any("error", err))
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger().Error("authz cache warmup", slog.Any("error", err))
			}
		}
	}
}

// Run resolves and caches permission snapshots for recently active users.
func (j *AuthzWarmupJob) Run(ctx context.Context) (err error) {
	if j == nil || j.Users == nil {
		return errors.New("authz warmup: not configured")
	}
	window := j.Window
	if window <= 0 {
		window = defaultWarmupWindow
	}
	limit := j.Limit
	if limit <= 0 {
		limit = defaultWarmupLimit
	}

	tracker := j.metrics().Track(JobAuthzCacheWarmup)
	defer func() {
		err = tracker.End(err)
	}()

	logger := j.logger().With(slog.Duration("window", window), slog.Int("limit", limit))
	logger.Info("starting authz cache warmup")

	userIDs, err := j.Users.RecentlyActiveUsers(ctx, j.now().Add(-window), limit)
	if err != nil {
		logger.Error("load warmup users", slog.Any("error", err))
		return err
	}
	if len(userIDs) == 0 {
		logger.Info("no users discovered for warmup")
		return nil
	}

	start := j.now()
	warmed := 0
	for _, userID := range userIDs {
		if err = j.warmUser(ctx, userID); err != nil {
			logger.Error("warm user", slog.Int64("user_id", userID), slog.Any("error", err))
			return err
		}
		warmed++
	}

	logger.Info("completed authz cache warmup", slog.Int("users", warmed), slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *AuthzWarmupJob) warmUser(ctx context.Context, userID int64) error {
	if j.Evaluator == nil {
		return nil
	}
	userCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := j.Evaluator.Warm(userCtx, userID); err != nil {
		// A user deleted between discovery and warmup is not a failure.
		if errors.Is(err, authz.ErrNotFound) {
			return nil
		}
		return err
	}
	return nil
}

type pgActiveUserSource struct {
	pool *pgxpool.Pool
}

func (s pgActiveUserSource) RecentlyActiveUsers(ctx context.Context, since time.Time, limit int) ([]int64, error) {
	if s.pool == nil {
		return nil, errors.New("authz warmup: pool not configured")
	}
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT s.user_id
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.created_at >= $1 AND u.is_active
		ORDER BY s.user_id
		LIMIT $2`,
		since, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	userIDs := make([]int64, 0)
	for rows.Next() {
		var userID int64
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		userIDs = append(userIDs, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return userIDs, nil
}

func (j *AuthzWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", JobAuthzCacheWarmup))
	}
	return slog.Default().With(slog.String("job", JobAuthzCacheWarmup))
}

func (j *AuthzWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *AuthzWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
