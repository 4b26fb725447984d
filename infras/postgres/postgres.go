package postgres

//nolint:revive
import (
	"errors"
	"hotel/config"
	"net"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

const (
	maxIdleConnections = 10
	maxOpenConnections = 10
	connMaxLifetime    = 30 * time.Minute
)

// Connection holds the read pool for queries and the write pool that owns every
// transaction, including the per-room booking lock.
type Connection struct {
	Read  *sqlx.DB
	Write *sqlx.DB
}

// endpoint is one configured database server.
type endpoint struct {
	role     string
	host     string
	port     string
	user     string
	password string
	name     string
	sslMode  string
	timezone string
}

func (e endpoint) dsn() string {
	query := url.Values{}
	query.Set("sslmode", e.sslMode)

	if e.timezone != "" {
		query.Set("timezone", e.timezone)
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(e.user, e.password),
		Host:     net.JoinHostPort(e.host, e.port),
		Path:     "/" + e.name,
		RawQuery: query.Encode(),
	}

	return u.String()
}

func New(cfg *config.Config) *Connection {
	pg := cfg.DB.Postgres
	read := pg.Read
	write := pg.Write

	return &Connection{
		Read: connect(endpoint{
			role: "read", host: read.Host, port: read.Port, user: read.Username, password: read.Password,
			name: pg.Prefix + read.Name, sslMode: read.SSLMode, timezone: read.Timezone,
		}, pg.MaxRetry, pg.RetryWaitTime),
		Write: connect(endpoint{
			role: "write", host: write.Host, port: write.Port, user: write.Username, password: write.Password,
			name: pg.Prefix + write.Name, sslMode: write.SSLMode, timezone: write.Timezone,
		}, pg.MaxRetry, pg.RetryWaitTime),
	}
}

// Close releases both pools.
func (c *Connection) Close() error {
	return errors.Join(c.Read.Close(), c.Write.Close())
}

// connect retries until the server answers or maxRetry attempts are spent, then exits.
func connect(e endpoint, maxRetry, waitSeconds int) *sqlx.DB {
	logger := log.With().Str("role", e.role).Str("host", e.host).Str("port", e.port).Str("db", e.name).Logger()

	for attempt := 1; attempt <= max(maxRetry, 1); attempt++ {
		db, err := sqlx.Connect("postgres", e.dsn())
		if err == nil {
			db.SetMaxIdleConns(maxIdleConnections)
			db.SetMaxOpenConns(maxOpenConnections)
			db.SetConnMaxLifetime(connMaxLifetime)

			logger.Info().Msg("Connected to database")

			return db
		}

		logger.Error().Err(err).Int("attempt", attempt).Msg("Failed connecting to database, retrying")
		time.Sleep(time.Duration(waitSeconds) * time.Second)
	}

	logger.Fatal().Int("attempts", maxRetry).Msg("Giving up connecting to database")

	return nil
}
