package pgxdbtest

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for pgtestdb
	"github.com/peterldowns/pgtestdb"
	"github.com/stretchr/testify/require"

	"github.com/screwyprof/stakecheck/pkg/pgxdb"
)

// ServerConfig locates the PostgreSQL server that hosts throwaway test databases
type ServerConfig struct {
	User     string `env:"PGTEST_USER" envDefault:"stakecheck"`
	Password string `env:"PGTEST_PASSWORD" envDefault:"stakecheck"`
	Host     string `env:"PGTEST_HOST" envDefault:"localhost"`
	Port     string `env:"PGTEST_PORT" envDefault:"5432"`
	Options  string `env:"PGTEST_OPTIONS" envDefault:"sslmode=disable"`
}

// Config returns the pgtestdb configuration for the test server
func Config() pgtestdb.Config {
	server := env.Must(env.ParseAs[ServerConfig]())

	return pgtestdb.Config{
		DriverName: "pgx",
		User:       server.User,
		Password:   server.Password,
		Host:       server.Host,
		Port:       server.Port,
		Options:    server.Options,
	}
}

// Connect opens a small pool to a test database and closes it when the test ends
func Connect(t *testing.T, dbURL string) *pgxpool.Pool {
	t.Helper()

	pool, err := pgxdb.NewConnection(t.Context(), dbURL,
		pgxdb.WithMaxConns(2),
		pgxdb.WithConnectTimeout(5*time.Second),
	)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	t.Logf("testdbconf: %s", dbURL)

	return pool
}
