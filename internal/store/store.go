package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/Jaden-Nix/swarmverify/config"
	core "github.com/Jaden-Nix/swarmverify/internal/resolver/core"
)

// Store is the Postgres-backed resolution ledger. Resolutions are append-only;
// a market row only ever moves from open to resolved.
type Store struct {
	DB *sql.DB
}

// ErrNotFound is returned for lookups of ids that do not exist.
var ErrNotFound = errors.New("store: not found")

// Market statuses.
const (
	MarketStatusOpen     = "open"
	MarketStatusResolved = "resolved"
)

func New(ctx context.Context, cfg config.PostgresConfig) (*Store, error) {
	return NewWithDSN(ctx, cfg.DSN())
}

// NewWithDSN constructs the Store using an explicit Postgres DSN.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// NewWithDB wraps an existing connection; tests use it with sqlmock.
func NewWithDB(db *sql.DB) *Store {
	return &Store{DB: db}
}

// Market operations

func (s *Store) CreateMarket(ctx context.Context, m core.Market) (string, error) {
	var id string
	err := s.DB.QueryRowContext(ctx, `
INSERT INTO markets (title, description, category, resolution_date, status)
VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		m.Title, m.Description, m.Category, m.ResolutionDate, MarketStatusOpen).Scan(&id)
	return id, err
}

func (s *Store) GetMarket(ctx context.Context, id string) (core.Market, error) {
	var m core.Market
	err := s.DB.QueryRowContext(ctx, `
SELECT id, title, description, category, resolution_date FROM markets WHERE id=$1`, id).
		Scan(&m.ID, &m.Title, &m.Description, &m.Category, &m.ResolutionDate)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Market{}, ErrNotFound
	}
	return m, err
}

// ListDueMarkets returns open markets whose resolution date has passed,
// oldest first, capped at limit.
func (s *Store) ListDueMarkets(ctx context.Context, limit int) ([]core.Market, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, title, description, category, resolution_date FROM markets
WHERE status=$1 AND resolution_date <= NOW()
ORDER BY resolution_date ASC LIMIT $2`, MarketStatusOpen, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.Market
	for rows.Next() {
		var m core.Market
		if err := rows.Scan(&m.ID, &m.Title, &m.Description, &m.Category, &m.ResolutionDate); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MarkMarketResolved records the final outcome on the market row. Only open
// markets transition; resolving twice is a no-op reported as ErrNotFound.
func (s *Store) MarkMarketResolved(ctx context.Context, marketID string, outcome core.Outcome) error {
	res, err := s.DB.ExecContext(ctx, `
UPDATE markets SET status=$1, final_outcome=$2, resolved_at=NOW()
WHERE id=$3 AND status=$4`, MarketStatusResolved, string(outcome), marketID, MarketStatusOpen)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Resolution operations

func (s *Store) SaveResolution(ctx context.Context, r core.Resolution) error {
	votes, err := json.Marshal(r.AgentVotes)
	if err != nil {
		return fmt.Errorf("marshal agent votes: %w", err)
	}
	agents, err := json.Marshal(r.Agents)
	if err != nil {
		return fmt.Errorf("marshal agent details: %w", err)
	}
	scoring, err := json.Marshal(r.Scoring)
	if err != nil {
		return fmt.Errorf("marshal scoring: %w", err)
	}
	sources, err := json.Marshal(r.Sources)
	if err != nil {
		return fmt.Errorf("marshal sources: %w", err)
	}
	_, err = s.DB.ExecContext(ctx, `
INSERT INTO resolutions (id, market_id, outcome, confidence, rationale, sources, agent_votes, agents, scoring, path, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		r.ID, r.MarketID, string(r.Outcome), r.Confidence, r.Rationale,
		sources, votes, agents, scoring, string(r.Path), r.Timestamp)
	return err
}

func (s *Store) GetResolution(ctx context.Context, id string) (core.Resolution, error) {
	var (
		r       core.Resolution
		outcome string
		path    string
		sources []byte
		votes   []byte
		agents  []byte
		scoring []byte
	)
	err := s.DB.QueryRowContext(ctx, `
SELECT id, market_id, outcome, confidence, rationale, sources, agent_votes, agents, scoring, path, created_at
FROM resolutions WHERE id=$1`, id).
		Scan(&r.ID, &r.MarketID, &outcome, &r.Confidence, &r.Rationale,
			&sources, &votes, &agents, &scoring, &path, &r.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Resolution{}, ErrNotFound
	}
	if err != nil {
		return core.Resolution{}, err
	}
	r.Outcome = core.Outcome(outcome)
	r.Path = core.ResolutionPath(path)
	if err := unmarshalColumn(sources, &r.Sources); err != nil {
		return core.Resolution{}, err
	}
	if err := unmarshalColumn(votes, &r.AgentVotes); err != nil {
		return core.Resolution{}, err
	}
	if err := unmarshalColumn(agents, &r.Agents); err != nil {
		return core.Resolution{}, err
	}
	if err := unmarshalColumn(scoring, &r.Scoring); err != nil {
		return core.Resolution{}, err
	}
	return r, nil
}

// ListResolutionsByMarket returns every resolution recorded for a market,
// newest first. The ledger keeps all of them, including re-runs.
func (s *Store) ListResolutionsByMarket(ctx context.Context, marketID string) ([]core.Resolution, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, market_id, outcome, confidence, rationale, path, created_at
FROM resolutions WHERE market_id=$1 ORDER BY created_at DESC`, marketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.Resolution
	for rows.Next() {
		var (
			r       core.Resolution
			outcome string
			path    string
		)
		if err := rows.Scan(&r.ID, &r.MarketID, &outcome, &r.Confidence, &r.Rationale, &path, &r.Timestamp); err != nil {
			return nil, err
		}
		r.Outcome = core.Outcome(outcome)
		r.Path = core.ResolutionPath(path)
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveSecondPass appends the second-pass evidence record for a resolution.
func (s *Store) SaveSecondPass(ctx context.Context, resolutionID string, sp core.SecondPassResult) error {
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO second_passes (resolution_id, outcome, confidence, rationale, first_pass_confidence, created_at)
VALUES ($1,$2,$3,$4,$5,$6)`,
		resolutionID, string(sp.Outcome), sp.Confidence, sp.Rationale, sp.FirstPassConfidence, time.Now())
	return err
}

// GetSecondPass returns the most recent second-pass record for a resolution.
func (s *Store) GetSecondPass(ctx context.Context, resolutionID string) (core.SecondPassResult, error) {
	var (
		sp      core.SecondPassResult
		outcome string
	)
	err := s.DB.QueryRowContext(ctx, `
SELECT outcome, confidence, rationale, first_pass_confidence
FROM second_passes WHERE resolution_id=$1 ORDER BY created_at DESC LIMIT 1`, resolutionID).
		Scan(&outcome, &sp.Confidence, &sp.Rationale, &sp.FirstPassConfidence)
	if errors.Is(err, sql.ErrNoRows) {
		return core.SecondPassResult{}, ErrNotFound
	}
	if err != nil {
		return core.SecondPassResult{}, err
	}
	sp.Outcome = core.Outcome(outcome)
	sp.IsSecondPass = true
	return sp, nil
}

func unmarshalColumn(raw []byte, dst interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
