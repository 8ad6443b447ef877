package persistence

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/sac/membership/internal/domain/bulk"
	"github.com/sac/membership/internal/domain/membership"
	"github.com/sac/membership/internal/domain/people"
	"github.com/sac/membership/internal/domain/shared"
	"github.com/sac/membership/internal/infrastructure/config"
	"github.com/sac/membership/internal/infrastructure/migration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	_ "github.com/lib/pq"
)

// startPostgres runs a throwaway postgres container and returns its config
func startPostgres(t *testing.T) *config.DatabaseConfig {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container tests are skipped in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("sac_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return &config.DatabaseConfig{
		Driver:       "postgres",
		Host:         host,
		Port:         port.Int(),
		User:         "postgres",
		Password:     "postgres",
		DBName:       "sac_test",
		SSLMode:      "disable",
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}
}

func TestPostgres_MigrationsMatchRepositories(t *testing.T) {
	cfg := startPostgres(t)
	ctx := context.Background()

	sqlDB, err := sql.Open("postgres", cfg.DSN())
	require.NoError(t, err)
	path, err := filepath.Abs(filepath.Join("..", "..", "..", migration.DefaultPath))
	require.NoError(t, err)
	m, err := migration.New(sqlDB, path, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	require.NoError(t, m.Up())
	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.NotZero(t, version)
	pending, err := m.Pending()
	require.NoError(t, err)
	assert.Empty(t, pending)

	db, err := NewDatabase(cfg, zap.NewNop(), "silent")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	bern := seedSektion(t, db.DB, "SAC Bern")

	persons := NewGormPersonRepository(db.DB)
	p, err := people.NewPerson("Anna", "Aebi")
	require.NoError(t, err)
	require.NoError(t, p.SetMembershipNumber(100))
	require.NoError(t, persons.Save(ctx, p))

	roles := NewGormRoleRepository(db.DB)
	role, err := membership.NewRole(p.ID, bern.mitglieder, membership.RoleMitglied,
		membership.BeitragskategorieAdult, shared.NewDate(2024, time.January, 1), nil)
	require.NoError(t, err)
	require.NoError(t, roles.Save(ctx, role))

	found, err := roles.FindByLayerID(ctx, bern.sektion.ID)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, p.ID, found[0].PersonID)

	tx := NewGormTransactor(db.DB)
	err = tx.InTransaction(ctx, func(ctx context.Context) error {
		byNumber, err := persons.FindByMembershipNumber(ctx, 100)
		if err != nil {
			return err
		}
		return byNumber.Rename("Anna", "Aebi-Keller")
	})
	require.NoError(t, err)

	runs := NewGormImportRunRepository(db.DB)
	run, err := bulk.NewImportRun(bulk.ImporterPeople, "people.csv", 10)
	require.NoError(t, err)
	require.NoError(t, runs.Save(ctx, run))
	listed, err := runs.FindAll(ctx, bulk.ImportRunFilter{OrderBy: "file_name"})
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	require.NoError(t, m.Down())
	version, _, err = m.Version()
	require.NoError(t, err)
	assert.Zero(t, version)
}
