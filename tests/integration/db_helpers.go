package integration

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/firmahq/firma/internal/database"
	"github.com/firmahq/firma/internal/models"
	"github.com/firmahq/firma/internal/repositories"
	"github.com/google/uuid"
)

// TestDB manages PostgreSQL testcontainer and database operations
type TestDB struct {
	Container  testcontainers.Container
	ConnString string
	Pool       *pgxpool.Pool
	DB         *database.DB
}

// SetupTestDatabase creates a PostgreSQL testcontainer, runs migrations, returns TestDB
func SetupTestDatabase(ctx context.Context) (*TestDB, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("firma"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	dbWrapper := &database.DB{
		Pool: pool,
	}

	return &TestDB{
		Container:  container,
		ConnString: connStr,
		Pool:       pool,
		DB:         dbWrapper,
	}, nil
}

// runMigrations executes all goose migrations
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir, err := filepath.Abs("../../migrations")
	if err != nil {
		return fmt.Errorf("failed to get migrations path: %w", err)
	}

	goose.SetLogger(log.New(nil, "", 0))

	// Goose needs a stdlib DB connection
	sqlDB := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer sqlDB.Close()

	if err := goose.UpContext(ctx, sqlDB, migrationsDir); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

// Teardown stops the container and closes the connection pool
func (db *TestDB) Teardown(ctx context.Context) error {
	if db.Pool != nil {
		db.Pool.Close()
	}
	if db.Container != nil {
		return db.Container.Terminate(ctx)
	}
	return nil
}

// CleanupTables truncates all tables for test isolation
func (db *TestDB) CleanupTables(ctx context.Context) error {
	tables := []string{
		"signature_attempts",
		"signatures",
		"phone_verifications",
		"ip_risk",
		"petitions",
	}

	for _, table := range tables {
		if _, err := db.Pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return nil
}

// InitializeRepositories creates all repository instances from database wrapper
func InitializeRepositories(db *database.DB) (
	*repositories.PetitionRepository,
	*repositories.SignatureRepository,
	*repositories.AttemptRepository,
	*repositories.IPRiskRepository,
	*repositories.PhoneVerificationRepository,
) {
	return repositories.NewPetitionRepository(db),
		repositories.NewSignatureRepository(db),
		repositories.NewAttemptRepository(db),
		repositories.NewIPRiskRepository(db),
		repositories.NewPhoneVerificationRepository(db)
}

// SeedPetition inserts a petition with the given status and counters
func SeedPetition(ctx context.Context, pool *pgxpool.Pool, status string, current, target int) (*models.Petition, error) {
	query := `
		INSERT INTO petitions (id, title, description, creator_id, creator_email, status,
		                       current_signatures, target_signatures, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING id, title, description, creator_id, creator_email, status,
		          current_signatures, target_signatures, created_at, updated_at
	`

	var p models.Petition
	err := pool.QueryRow(ctx, query,
		uuid.New(), "Test petition", "A petition used by integration tests with enough description text.",
		uuid.New(), "creator@example.com", status, current, target,
	).Scan(
		&p.ID, &p.Title, &p.Description, &p.CreatorID, &p.CreatorEmail,
		&p.Status, &p.CurrentSignatures, &p.TargetSignatures, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert petition: %w", err)
	}

	return &p, nil
}

// SeedSignature inserts a committed signature for a petition and phone
func SeedSignature(ctx context.Context, pool *pgxpool.Pool, petitionID uuid.UUID, phone string) (uuid.UUID, error) {
	id := uuid.New()
	query := `
		INSERT INTO signatures (id, petition_id, signer_name, signer_phone, is_anonymous,
		                        verification_method, verified_at, ip_address, user_agent,
		                        fingerprint, created_at)
		VALUES ($1, $2, 'Seeded Signer', $3, false, 'sms', NOW(), '203.0.113.1', 'seed', 'seed-fp', NOW())
	`

	if _, err := pool.Exec(ctx, query, id, petitionID, phone); err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert signature: %w", err)
	}

	return id, nil
}

// SeedVerifiedPhone marks a phone as having completed verification
func SeedVerifiedPhone(ctx context.Context, pool *pgxpool.Pool, phone string) error {
	query := `
		INSERT INTO phone_verifications (phone_number, secret, counter, code_sent_at, verified_at, created_at)
		VALUES ($1, 'SEEDEDSECRET', 1, NOW(), NOW(), NOW())
		ON CONFLICT (phone_number) DO UPDATE SET verified_at = NOW()
	`

	if _, err := pool.Exec(ctx, query, phone); err != nil {
		return fmt.Errorf("failed to seed verified phone: %w", err)
	}

	return nil
}
