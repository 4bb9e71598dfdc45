//nolint:errcheck // testsetup
package tcpostgres

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mpapenbr/sessionreplay/pkg/db/migrate"
	database "github.com/mpapenbr/sessionreplay/pkg/db/postgres"
)

// create a pg connection pool for the capture testdatabase
func SetupTestDb() *pgxpool.Pool {
	ctx := context.Background()
	port, err := nat.NewPort("tcp", "5432")
	if err != nil {
		log.Fatal(err)
	}
	container, err := SetupPostgres(ctx,
		WithPort(port.Port()),
		WithInitialDatabase("postgres", "password", "postgres"),
		WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
		WithName("sessionreplay-test"),
	)
	if err != nil {
		log.Fatal(err)
	}
	containerPort, _ := container.MappedPort(ctx, port)
	host, _ := container.Host(ctx)
	dbUrl := fmt.Sprintf("postgresql://postgres:password@%s:%s/postgres",
		host, containerPort.Port())

	return setupWithUrl(ctx, dbUrl)
}

// SetupExternalTestDb uses the database given by env TESTDB_URL
func SetupExternalTestDb() *pgxpool.Pool {
	return setupWithUrl(context.Background(), os.Getenv("TESTDB_URL"))
}

func setupWithUrl(ctx context.Context, dbUrl string) *pgxpool.Pool {
	if err := migrate.MigrateDb(dbUrl); err != nil {
		log.Fatal(err)
	}
	pool, err := database.InitWithUrl(ctx, dbUrl)
	if err != nil {
		log.Fatal(err)
	}
	return pool
}

// ClearAllTables removes all captures. Dependent rows are deleted by cascade.
func ClearAllTables(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from session")
}
