package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

type PostgresInfo struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
}

func (pi PostgresInfo) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable", pi.Host, pi.Port, pi.User, pi.Password, pi.Database)
}

var postgresDialect = dialect{
	name:         "postgres",
	dollarParams: true,
	migrationTable: `CREATE TABLE IF NOT EXISTS migration
("id" SERIAL PRIMARY KEY, "query" TEXT)`,
	migrations: pgMigration,
}

func NewPostgres(ctx context.Context, pgInfo PostgresInfo) (*SQL, error) {
	db, err := sql.Open("postgres", pgInfo.DSN())
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	s, err := newSQL(ctx, db, postgresDialect)
	if err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}
