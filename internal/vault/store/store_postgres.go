package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"custodia/internal/vault"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

var updateDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "custodia_vault_update_duration_ms",
	Help:    "Latency of vault read-modify-write transactions in milliseconds",
	Buckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250},
})

// PostgresStore persists each vault as one row, with owned collections
// (milestones, history, validation records, domain events) as JSONB. Keeping
// the aggregate in a single row lets SELECT ... FOR UPDATE serialize all
// lifecycle operations per vault id.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const schema = `
CREATE TABLE IF NOT EXISTS vaults (
    id                     TEXT PRIMARY KEY,
    creator                TEXT        NOT NULL,
    amount                 TEXT        NOT NULL,
    start_ts               TIMESTAMPTZ NOT NULL,
    end_ts                 TIMESTAMPTZ NOT NULL,
    success_destination    TEXT        NOT NULL,
    failure_destination    TEXT        NOT NULL,
    status                 TEXT        NOT NULL,
    created_at             TIMESTAMPTZ NOT NULL,
    funded_at              TIMESTAMPTZ,
    milestone_validated_at TIMESTAMPTZ,
    cancelled_at           TIMESTAMPTZ,
    milestones             JSONB       NOT NULL DEFAULT '[]',
    history                JSONB       NOT NULL DEFAULT '[]',
    validation_records     JSONB       NOT NULL DEFAULT '[]',
    domain_events          JSONB       NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_vaults_status  ON vaults (status);
CREATE INDEX IF NOT EXISTS idx_vaults_creator ON vaults (creator);
`

// Migrate creates the vaults table when absent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate vaults schema: %w", err)
	}
	return nil
}

const vaultColumns = `id, creator, amount, start_ts, end_ts, success_destination,
failure_destination, status, created_at, funded_at, milestone_validated_at,
cancelled_at, milestones, history, validation_records, domain_events`

func (s *PostgresStore) Create(ctx context.Context, v *vault.Vault) error {
	milestones, history, records, events, err := marshalCollections(v)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
        INSERT INTO vaults (`+vaultColumns+`)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
    `, v.ID, v.Creator, v.Amount, v.StartTimestamp, v.EndTimestamp,
		v.SuccessDestination, v.FailureDestination, v.Status, v.CreatedAt,
		v.FundedAt, v.MilestoneValidatedAt, v.CancelledAt,
		milestones, history, records, events)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert vault: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, vaultID id.VaultID) (*vault.Vault, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+vaultColumns+` FROM vaults WHERE id = $1`, vaultID)
	return scanVault(row)
}

func (s *PostgresStore) Update(ctx context.Context, vaultID id.VaultID, fn func(*vault.Vault) error) (*vault.Vault, error) {
	start := time.Now()
	defer func() {
		updateDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin vault update: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `SELECT `+vaultColumns+` FROM vaults WHERE id = $1 FOR UPDATE`, vaultID)
	v, err := scanVault(row)
	if err != nil {
		return nil, err
	}

	if err := fn(v); err != nil {
		return nil, err
	}

	milestones, history, records, events, err := marshalCollections(v)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `
        UPDATE vaults SET
            status = $2, funded_at = $3, milestone_validated_at = $4,
            cancelled_at = $5, milestones = $6, history = $7,
            validation_records = $8, domain_events = $9
        WHERE id = $1
    `, v.ID, v.Status, v.FundedAt, v.MilestoneValidatedAt, v.CancelledAt,
		milestones, history, records, events); err != nil {
		return nil, fmt.Errorf("update vault: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit vault update: %w", err)
	}
	return v, nil
}

// sortColumns whitelists ORDER BY targets; amount casts to numeric so
// decimal strings sort by value, not lexically.
var sortColumns = map[string]string{
	SortCreatedAt:    "created_at",
	SortAmount:       "amount::numeric",
	SortEndTimestamp: "end_ts",
	SortStatus:       "status",
}

func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]*vault.Vault, int, error) {
	filter = filter.Normalize()

	where := ""
	args := []any{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Creator != "" {
		args = append(args, filter.Creator)
		where += fmt.Sprintf(" AND creator = $%d", len(args))
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM vaults WHERE true`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count vaults: %w", err)
	}

	direction := "ASC"
	if filter.Order == OrderDesc {
		direction = "DESC"
	}
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)
	query := fmt.Sprintf(`SELECT %s FROM vaults WHERE true%s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		vaultColumns, where, sortColumns[filter.SortBy], direction, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list vaults: %w", err)
	}
	defer rows.Close()

	var out []*vault.Vault
	for rows.Next() {
		v, err := scanVault(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate vaults: %w", err)
	}
	if out == nil {
		out = []*vault.Vault{}
	}
	return out, total, nil
}

func marshalCollections(v *vault.Vault) (milestones, history, records, events []byte, err error) {
	if milestones, err = json.Marshal(v.Milestones); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal milestones: %w", err)
	}
	if history, err = json.Marshal(v.History); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal history: %w", err)
	}
	if records, err = json.Marshal(v.ValidationRecords); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal validation records: %w", err)
	}
	if events, err = json.Marshal(v.DomainEvents); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal domain events: %w", err)
	}
	return milestones, history, records, events, nil
}

func scanVault(row pgx.Row) (*vault.Vault, error) {
	var (
		v          vault.Vault
		milestones []byte
		history    []byte
		records    []byte
		events     []byte
	)
	err := row.Scan(&v.ID, &v.Creator, &v.Amount, &v.StartTimestamp, &v.EndTimestamp,
		&v.SuccessDestination, &v.FailureDestination, &v.Status, &v.CreatedAt,
		&v.FundedAt, &v.MilestoneValidatedAt, &v.CancelledAt,
		&milestones, &history, &records, &events)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan vault: %w", err)
	}
	if err := json.Unmarshal(milestones, &v.Milestones); err != nil {
		return nil, fmt.Errorf("unmarshal milestones: %w", err)
	}
	if err := json.Unmarshal(history, &v.History); err != nil {
		return nil, fmt.Errorf("unmarshal history: %w", err)
	}
	if err := json.Unmarshal(records, &v.ValidationRecords); err != nil {
		return nil, fmt.Errorf("unmarshal validation records: %w", err)
	}
	if err := json.Unmarshal(events, &v.DomainEvents); err != nil {
		return nil, fmt.Errorf("unmarshal domain events: %w", err)
	}
	return &v, nil
}
