package server

import (
	"context"
	"log"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/redis/go-redis/v9"

	core "github.com/Jaden-Nix/swarmverify/internal/resolver/core"
	"github.com/Jaden-Nix/swarmverify/internal/store"
)

// Scheduler periodically sweeps open markets whose resolution date has
// passed and resolves them sequentially. A Redis lock keeps replicas from
// running the same sweep concurrently.
type Scheduler struct {
	Store    *store.Store
	Orch     Resolver
	Rdb      *redis.Client
	Schedule string
	Logger   *log.Logger
	Stop     chan struct{}

	lastSweep time.Time
}

const sweepLockKey = "swarmverify:sweep:lock"

func (s *Scheduler) Start() {
	ticker := time.NewTicker(time.Minute)
	go func() {
		for {
			select {
			case <-s.Stop:
				ticker.Stop()
				return
			case <-ticker.C:
				if s.due(time.Now()) {
					s.sweep()
				}
			}
		}
	}()
}

// due reports whether a sweep should run now. Supports "@hourly", "@daily",
// and standard cron expressions; an unparsable spec falls back to hourly.
func (s *Scheduler) due(now time.Time) bool {
	if s.lastSweep.IsZero() {
		return true
	}
	switch s.Schedule {
	case "", "@hourly":
		return now.Sub(s.lastSweep) >= time.Hour
	case "@daily":
		return now.Sub(s.lastSweep) >= 24*time.Hour
	default:
		expr, err := cronexpr.Parse(s.Schedule)
		if err != nil {
			return now.Sub(s.lastSweep) >= time.Hour
		}
		return !expr.Next(s.lastSweep).After(now)
	}
}

func (s *Scheduler) sweep() {
	ctx := context.Background()
	s.lastSweep = time.Now()

	if s.Rdb != nil {
		ok, err := s.Rdb.SetNX(ctx, sweepLockKey, "1", 10*time.Minute).Result()
		if err != nil || !ok {
			return
		}
		defer s.Rdb.Del(ctx, sweepLockKey)
	}

	markets, err := s.Store.ListDueMarkets(ctx, 50)
	if err != nil {
		s.Logger.Printf("sweep: listing due markets: %v", err)
		return
	}
	if len(markets) == 0 {
		return
	}
	s.Logger.Printf("sweep: %d due markets", len(markets))

	// Sequential on purpose: each resolution already fans out internally,
	// and batch-level parallelism would multiply reasoning-backend load.
	for _, m := range markets {
		res, err := s.Orch.Resolve(ctx, m)
		if err != nil {
			s.Logger.Printf("sweep: market %s failed: %v", m.ID, err)
			continue
		}
		if err := s.Store.SaveResolution(ctx, res); err != nil {
			s.Logger.Printf("sweep: market %s save failed: %v", m.ID, err)
			continue
		}
		switch res.Path {
		case core.PathSecondPass:
			sp := s.Orch.SecondPass(ctx, m, res)
			if err := s.Store.SaveSecondPass(ctx, res.ID, sp); err != nil {
				s.Logger.Printf("sweep: market %s second pass save failed: %v", m.ID, err)
			}
		case core.PathAutoResolve:
			if err := s.Store.MarkMarketResolved(ctx, m.ID, res.Outcome); err != nil {
				s.Logger.Printf("sweep: market %s resolve transition failed: %v", m.ID, err)
			}
		}
	}
}
