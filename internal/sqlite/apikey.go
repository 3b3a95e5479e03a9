package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/rpggio/apontador/internal/repository"
)

// APIKeyRepository resolves bearer tokens to operator names
type APIKeyRepository struct {
	db *DB
}

// NewAPIKeyRepository creates a new APIKeyRepository
func NewAPIKeyRepository(db *DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// HashToken returns the stored form of a token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Add stores a token for an operator.
func (r *APIKeyRepository) Add(ctx context.Context, token, operator, description string) error {
	if token == "" || operator == "" {
		return repository.ErrInvalidInput
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO api_keys (key_hash, operator, description) VALUES (?, ?, ?)`,
		HashToken(token), operator, description)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to add api key: %w", err)
	}
	return nil
}

// ResolveOperator returns the operator owning token and stamps last use.
func (r *APIKeyRepository) ResolveOperator(ctx context.Context, token string) (string, error) {
	hash := HashToken(token)
	var operator string
	err := r.db.QueryRowContext(ctx, `SELECT operator FROM api_keys WHERE key_hash = ?`, hash).Scan(&operator)
	if err == sql.ErrNoRows {
		return "", repository.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve api key: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `UPDATE api_keys SET last_used = ? WHERE key_hash = ?`, time.Now(), hash); err != nil {
		return "", fmt.Errorf("failed to stamp api key: %w", err)
	}
	return operator, nil
}
