package postgres

import (
	"context"
	"fmt"

	"solana-security-token/internal/domain"
	"solana-security-token/internal/storage"
)

// DeploymentStore implements storage.DeploymentStore using PostgreSQL.
type DeploymentStore struct {
	q querier
}

// Insert adds a new deployment. Returns ErrDuplicateKey if address exists.
func (s *DeploymentStore) Insert(ctx context.Context, d *domain.VestingDeployment) error {
	if d == nil || d.Address == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO vesting_deployments (
			address, mint, nonce, escrow_wallet, max_release_delay, min_timelock_amount, schedule_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.q.Exec(ctx, query,
		d.Address,
		d.Mint,
		i64(d.Nonce),
		d.EscrowWallet,
		i64(d.MaxReleaseDelay),
		i64(d.MinTimelockAmount),
		i64(d.ScheduleCount),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		if isForeignKeyError(err) {
			return storage.ErrInvalidInput
		}
		return fmt.Errorf("insert deployment: %w", err)
	}
	return nil
}

// Get retrieves a deployment. Returns ErrNotFound if not exists.
func (s *DeploymentStore) Get(ctx context.Context, address string) (*domain.VestingDeployment, error) {
	query := `
		SELECT ` + deploymentColumns + `
		FROM vesting_deployments
		WHERE address = $1
		FOR UPDATE
	`

	d, err := scanDeployment(s.q.QueryRow(ctx, query, address))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get deployment: %w", err)
	}
	return d, nil
}

// GetByEscrow retrieves the deployment of mint whose escrow is wallet.
// Returns ErrNotFound if wallet is no escrow of mint.
func (s *DeploymentStore) GetByEscrow(ctx context.Context, mint, wallet string) (*domain.VestingDeployment, error) {
	query := `
		SELECT ` + deploymentColumns + `
		FROM vesting_deployments
		WHERE mint = $1 AND escrow_wallet = $2
	`

	d, err := scanDeployment(s.q.QueryRow(ctx, query, mint, wallet))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get deployment by escrow: %w", err)
	}
	return d, nil
}

const deploymentColumns = `address, mint, nonce, escrow_wallet, max_release_delay, min_timelock_amount, schedule_count`

func scanDeployment(row rowScanner) (*domain.VestingDeployment, error) {
	var (
		d                              domain.VestingDeployment
		nonce, delay, minAmount, count int64
	)
	err := row.Scan(
		&d.Address,
		&d.Mint,
		&nonce,
		&d.EscrowWallet,
		&delay,
		&minAmount,
		&count,
	)
	if err != nil {
		return nil, err
	}
	d.Nonce = u64(nonce)
	d.MaxReleaseDelay = u64(delay)
	d.MinTimelockAmount = u64(minAmount)
	d.ScheduleCount = u64(count)
	return &d, nil
}

// Update overwrites an existing deployment. Returns ErrNotFound if not exists.
func (s *DeploymentStore) Update(ctx context.Context, d *domain.VestingDeployment) error {
	if d == nil {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE vesting_deployments
		SET escrow_wallet = $2, max_release_delay = $3, min_timelock_amount = $4, schedule_count = $5
		WHERE address = $1
	`

	tag, err := s.q.Exec(ctx, query,
		d.Address,
		d.EscrowWallet,
		i64(d.MaxReleaseDelay),
		i64(d.MinTimelockAmount),
		i64(d.ScheduleCount),
	)
	if err != nil {
		return fmt.Errorf("update deployment: %w", err)
	}
	if !updated(tag) {
		return storage.ErrNotFound
	}
	return nil
}

// ScheduleStore implements storage.ScheduleStore using PostgreSQL.
type ScheduleStore struct {
	q querier
}

// Insert adds a new schedule. Returns ErrDuplicateKey if (deployment, id) exists.
func (s *ScheduleStore) Insert(ctx context.Context, rs *domain.ReleaseSchedule) error {
	if rs == nil || rs.Deployment == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO release_schedules (
			deployment, id, release_count, delay_until_first_release_seconds,
			initial_release_bips, period_between_releases_seconds, signer_hash
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.q.Exec(ctx, query,
		rs.Deployment,
		i64(rs.ID),
		i64(rs.ReleaseCount),
		i64(rs.DelayUntilFirstReleaseSeconds),
		i64(rs.InitialReleaseBips),
		i64(rs.PeriodBetweenReleasesSeconds),
		rs.SignerHash,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		if isForeignKeyError(err) {
			return storage.ErrInvalidInput
		}
		return fmt.Errorf("insert schedule: %w", err)
	}
	return nil
}

const scheduleColumns = `deployment, id, release_count, delay_until_first_release_seconds,
	initial_release_bips, period_between_releases_seconds, signer_hash`

// Get retrieves a schedule. Returns ErrNotFound if not exists.
func (s *ScheduleStore) Get(ctx context.Context, deployment string, id uint64) (*domain.ReleaseSchedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM release_schedules WHERE deployment = $1 AND id = $2`

	rs, err := scanSchedule(s.q.QueryRow(ctx, query, deployment, i64(id)))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	return rs, nil
}

// ListByDeployment retrieves all schedules of a deployment, ordered by id ASC.
func (s *ScheduleStore) ListByDeployment(ctx context.Context, deployment string) ([]*domain.ReleaseSchedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM release_schedules WHERE deployment = $1 ORDER BY id ASC`

	rows, err := s.q.Query(ctx, query, deployment)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	var schedules []*domain.ReleaseSchedule
	for rows.Next() {
		rs, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule row: %w", err)
		}
		schedules = append(schedules, rs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedule rows: %w", err)
	}
	return schedules, nil
}

func scanSchedule(row rowScanner) (*domain.ReleaseSchedule, error) {
	var (
		rs                             domain.ReleaseSchedule
		id, count, delay, bips, period int64
	)
	if err := row.Scan(&rs.Deployment, &id, &count, &delay, &bips, &period, &rs.SignerHash); err != nil {
		return nil, err
	}
	rs.ID = u64(id)
	rs.ReleaseCount = u64(count)
	rs.DelayUntilFirstReleaseSeconds = u64(delay)
	rs.InitialReleaseBips = u64(bips)
	rs.PeriodBetweenReleasesSeconds = u64(period)
	return &rs, nil
}

// TimelockStore implements storage.TimelockStore using PostgreSQL.
type TimelockStore struct {
	q querier
}

// Insert adds a new timelock. Returns ErrDuplicateKey if (deployment, recipient, id) exists.
func (s *TimelockStore) Insert(ctx context.Context, t *domain.Timelock) error {
	if t == nil || t.Deployment == "" || t.Recipient == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO timelocks (
			deployment, recipient, id, schedule_id, total_amount,
			commencement_timestamp, tokens_transferred, cancelable_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.q.Exec(ctx, query,
		t.Deployment,
		t.Recipient,
		i64(t.ID),
		i64(t.ScheduleID),
		i64(t.TotalAmount),
		i64(t.CommencementTimestamp),
		i64(t.TokensTransferred),
		append([]string{}, t.CancelableBy...),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		if isForeignKeyError(err) {
			return storage.ErrInvalidInput
		}
		return fmt.Errorf("insert timelock: %w", err)
	}
	return nil
}

const timelockColumns = `deployment, recipient, id, schedule_id, total_amount,
	commencement_timestamp, tokens_transferred, cancelable_by`

// Get retrieves a timelock. Returns ErrNotFound if not exists.
func (s *TimelockStore) Get(ctx context.Context, deployment, recipient string, id uint64) (*domain.Timelock, error) {
	query := `SELECT ` + timelockColumns + ` FROM timelocks
		WHERE deployment = $1 AND recipient = $2 AND id = $3
		FOR UPDATE`

	t, err := scanTimelock(s.q.QueryRow(ctx, query, deployment, recipient, i64(id)))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get timelock: %w", err)
	}
	return t, nil
}

// Update overwrites an existing timelock. Returns ErrNotFound if not exists.
func (s *TimelockStore) Update(ctx context.Context, t *domain.Timelock) error {
	if t == nil {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE timelocks
		SET schedule_id = $4, total_amount = $5, commencement_timestamp = $6,
			tokens_transferred = $7, cancelable_by = $8
		WHERE deployment = $1 AND recipient = $2 AND id = $3
	`

	tag, err := s.q.Exec(ctx, query,
		t.Deployment,
		t.Recipient,
		i64(t.ID),
		i64(t.ScheduleID),
		i64(t.TotalAmount),
		i64(t.CommencementTimestamp),
		i64(t.TokensTransferred),
		append([]string{}, t.CancelableBy...),
	)
	if err != nil {
		return fmt.Errorf("update timelock: %w", err)
	}
	if !updated(tag) {
		return storage.ErrNotFound
	}
	return nil
}

// ListByRecipient retrieves all timelocks of a recipient, ordered by id ASC.
func (s *TimelockStore) ListByRecipient(ctx context.Context, deployment, recipient string) ([]*domain.Timelock, error) {
	query := `SELECT ` + timelockColumns + ` FROM timelocks
		WHERE deployment = $1 AND recipient = $2
		ORDER BY id ASC
		FOR UPDATE`

	rows, err := s.q.Query(ctx, query, deployment, recipient)
	if err != nil {
		return nil, fmt.Errorf("list timelocks: %w", err)
	}
	defer rows.Close()

	var locks []*domain.Timelock
	for rows.Next() {
		t, err := scanTimelock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan timelock row: %w", err)
		}
		locks = append(locks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate timelock rows: %w", err)
	}
	return locks, nil
}

// CountByRecipient returns the number of timelocks ever created for a recipient.
// Timelocks are never deleted and ids are dense, so this is max(id) + 1.
func (s *TimelockStore) CountByRecipient(ctx context.Context, deployment, recipient string) (uint64, error) {
	query := `SELECT COALESCE(MAX(id) + 1, 0) FROM timelocks WHERE deployment = $1 AND recipient = $2`

	var n int64
	if err := s.q.QueryRow(ctx, query, deployment, recipient).Scan(&n); err != nil {
		return 0, fmt.Errorf("count timelocks: %w", err)
	}
	return u64(n), nil
}

func scanTimelock(row rowScanner) (*domain.Timelock, error) {
	var (
		t                                     domain.Timelock
		id, schedule, total, start, withdrawn int64
	)
	err := row.Scan(
		&t.Deployment,
		&t.Recipient,
		&id,
		&schedule,
		&total,
		&start,
		&withdrawn,
		&t.CancelableBy,
	)
	if err != nil {
		return nil, err
	}
	t.ID = u64(id)
	t.ScheduleID = u64(schedule)
	t.TotalAmount = u64(total)
	t.CommencementTimestamp = u64(start)
	t.TokensTransferred = u64(withdrawn)
	return &t, nil
}

// Compile-time interface check.
var (
	_ storage.DeploymentStore = (*DeploymentStore)(nil)
	_ storage.ScheduleStore   = (*ScheduleStore)(nil)
	_ storage.TimelockStore   = (*TimelockStore)(nil)
)
