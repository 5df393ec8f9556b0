package identity

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/vaultline/securesession/pkg/apperr"
	"github.com/vaultline/securesession/pkg/container"
)

// PostgresConfig holds the connection parameters for PostgresRegistry.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// PostgresRegistry resolves identities against a `peer_keys` table.
type PostgresRegistry struct {
	db *sql.DB
}

// NewPostgresRegistry opens a connection pool and ensures the backing
// table exists.
func NewPostgresRegistry(cfg PostgresConfig) (*PostgresRegistry, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("identity: connect to postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("identity: ping postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	r := &PostgresRegistry{db: db}
	if err := r.initSchema(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *PostgresRegistry) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS peer_keys (
		peer_id    VARCHAR(256) PRIMARY KEY,
		public_key BYTEA NOT NULL,
		created_at TIMESTAMP DEFAULT NOW()
	);
	`
	_, err := r.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("identity: init schema: %w", err)
	}
	return nil
}

// Register stores or replaces the raw signing public key for id.
func (r *PostgresRegistry) Register(id, signPubKey []byte) error {
	const query = `
		INSERT INTO peer_keys (peer_id, public_key)
		VALUES ($1, $2)
		ON CONFLICT (peer_id) DO UPDATE SET public_key = EXCLUDED.public_key
	`
	_, err := r.db.Exec(query, hex.EncodeToString(id), signPubKey)
	if err != nil {
		return fmt.Errorf("identity: register peer: %w", err)
	}
	return nil
}

// Lookup implements Registry.
func (r *PostgresRegistry) Lookup(id []byte) ([]byte, error) {
	const query = `SELECT public_key FROM peer_keys WHERE peer_id = $1`

	var pubKey []byte
	err := r.db.QueryRow(query, hex.EncodeToString(id)).Scan(&pubKey)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("identity: unknown peer %q: %w", hex.EncodeToString(id), apperr.ErrInvalidParameter)
	}
	if err != nil {
		return nil, fmt.Errorf("identity: query peer: %w", err)
	}
	return container.Build(container.TagECPubKey, pubKey), nil
}

// Close releases the underlying connection pool.
func (r *PostgresRegistry) Close() error {
	return r.db.Close()
}
