package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/yourusername/pdf-extractor/internal/metrics"
)

// EvictionPolicy はファイルを削除対象とするかを判定します。
type EvictionPolicy interface {
	Expired(obj ObjectInfo, now time.Time) bool
}

// TTLPolicy は最終更新から TTL を過ぎたファイルを削除対象とします。
type TTLPolicy struct {
	TTL time.Duration
}

// Expired implements EvictionPolicy.
func (p TTLPolicy) Expired(obj ObjectInfo, now time.Time) bool {
	if p.TTL <= 0 {
		return false
	}
	return now.Sub(obj.ModTime) >= p.TTL
}

// KeepAll は何も削除しないポリシーです。
type KeepAll struct{}

// Expired implements EvictionPolicy.
func (KeepAll) Expired(ObjectInfo, time.Time) bool { return false }

// tempStore は書き込み途中で残った一時ファイルを扱えるストアです。
type tempStore interface {
	ListTemp(ctx context.Context) ([]ObjectInfo, error)
	DeleteTemp(ctx context.Context, name string) error
}

// Sweeper はストアを定期的に走査し、ポリシーに従ってファイルを削除します。
type Sweeper struct {
	store  Store
	policy EvictionPolicy
	logger zerolog.Logger
	now    func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

// NewSweeper は Sweeper を作成します。
func NewSweeper(store Store, policy EvictionPolicy, logger zerolog.Logger) *Sweeper {
	if policy == nil {
		policy = KeepAll{}
	}
	return &Sweeper{
		store:  store,
		policy: policy,
		logger: logger,
		now:    time.Now,
	}
}

// Sweep は期限切れファイルを削除し、削除件数を返します。
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	objects, err := s.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("ストアの一覧取得に失敗しました: %w", err)
	}

	now := s.now()
	removed := 0
	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if !s.policy.Expired(obj, now) {
			continue
		}
		if err := s.store.Delete(ctx, obj.Name); err != nil {
			s.logger.Warn().Err(err).Str("file", obj.Name).Msg("failed to evict file")
			continue
		}
		removed++
	}

	if ts, ok := s.store.(tempStore); ok {
		removed += s.sweepTemp(ctx, ts, now)
	}

	metrics.IncEvicted(removed)
	if removed > 0 {
		s.logger.Info().Int("removed", removed).Msg("evicted expired files")
	}
	return removed, nil
}

// sweepTemp はクラッシュ等で残った一時ファイルを更新時刻でポリシーに掛けて削除します。
func (s *Sweeper) sweepTemp(ctx context.Context, ts tempStore, now time.Time) int {
	temps, err := ts.ListTemp(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to list temp files")
		return 0
	}
	removed := 0
	for _, obj := range temps {
		if ctx.Err() != nil || !s.policy.Expired(obj, now) {
			continue
		}
		if err := ts.DeleteTemp(ctx, obj.Name); err != nil {
			s.logger.Warn().Err(err).Str("file", obj.Name).Msg("failed to evict temp file")
			continue
		}
		removed++
	}
	return removed
}

// Start は cron 式（例: "@every 1m"）で定期スイープを開始します。
func (s *Sweeper) Start(schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return fmt.Errorf("sweeper already running")
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.Error().Err(err).Msg("store sweep failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	c.Start()
	s.cron = c
	return nil
}

// Stop は定期スイープを止め、実行中のスイープの完了を待ちます。
func (s *Sweeper) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
}
