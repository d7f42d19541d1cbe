package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"account-lifecycle/internal/domain"
)

// ErrCodeConsumed indica que el código ya no existía al intentar canjearlo.
var ErrCodeConsumed = errors.New("verification code already consumed")

// PgVerificationCodeRepository persiste códigos de un solo uso en Postgres.
type PgVerificationCodeRepository struct {
	pool *pgxpool.Pool
}

func NewPgVerificationCodeRepository(pool *pgxpool.Pool) *PgVerificationCodeRepository {
	return &PgVerificationCodeRepository{pool: pool}
}

func (r *PgVerificationCodeRepository) Create(ctx context.Context, code domain.VerificationCode) error {
	if !code.Purpose.Valid() {
		return domain.ErrUnknownPurpose
	}
	const query = `
		INSERT INTO verification_codes (code, user_id, purpose, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	var expiresAt *time.Time
	if !code.ExpiresAt.IsZero() {
		expiresAt = &code.ExpiresAt
	}
	_, err := r.pool.Exec(ctx, query,
		code.Code,
		code.UserID,
		string(code.Purpose),
		code.CreatedAt,
		expiresAt,
	)
	return mapWriteError(err)
}

// FindByCode devuelve pgx.ErrNoRows si no existe un código con ese propósito.
func (r *PgVerificationCodeRepository) FindByCode(ctx context.Context, code string, purpose domain.CodePurpose) (domain.VerificationCode, error) {
	const query = `
		SELECT code, user_id, purpose, created_at, expires_at
		FROM verification_codes
		WHERE code = $1 AND purpose = $2
	`
	var (
		vc        domain.VerificationCode
		p         string
		expiresAt *time.Time
	)
	err := r.pool.QueryRow(ctx, query, code, string(purpose)).Scan(
		&vc.Code,
		&vc.UserID,
		&p,
		&vc.CreatedAt,
		&expiresAt,
	)
	if err != nil {
		return domain.VerificationCode{}, err
	}
	vc.Purpose = domain.CodePurpose(p)
	if expiresAt != nil {
		vc.ExpiresAt = *expiresAt
	}
	return vc, nil
}

// Consume borra el código de forma condicional. Devuelve false si otra
// petición ya lo había consumido.
func (r *PgVerificationCodeRepository) Consume(ctx context.Context, code string, purpose domain.CodePurpose) (bool, error) {
	const query = `
		DELETE FROM verification_codes
		WHERE code = $1 AND purpose = $2
	`
	tag, err := r.pool.Exec(ctx, query, code, string(purpose))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// RedeemVerification borra el código de verificación y marca al usuario como
// verificado en una misma transacción.
func (r *PgVerificationCodeRepository) RedeemVerification(ctx context.Context, code string, at time.Time) error {
	const update = `
		UPDATE users
		SET verified = TRUE, updated_at = $2
		WHERE id = $1
	`
	return r.redeem(ctx, code, domain.PurposeEmailVerification, update, at)
}

// RedeemPasswordReset borra el código de reset y guarda el nuevo hash en una
// misma transacción.
func (r *PgVerificationCodeRepository) RedeemPasswordReset(ctx context.Context, code, passwordHash string, at time.Time) error {
	const update = `
		UPDATE users
		SET updated_at = $2, password_hash = $3
		WHERE id = $1
	`
	return r.redeem(ctx, code, domain.PurposePasswordReset, update, at, passwordHash)
}

// redeem devuelve ErrCodeConsumed si el código ya no existe y pgx.ErrNoRows si
// el usuario dueño desapareció. En ambos casos la transacción se revierte.
// Un segundo DELETE concurrente sobre la misma fila espera al primero y no
// encuentra nada.
func (r *PgVerificationCodeRepository) redeem(ctx context.Context, code string, purpose domain.CodePurpose, update string, args ...any) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const consume = `
		DELETE FROM verification_codes
		WHERE code = $1 AND purpose = $2
		RETURNING user_id
	`
	var userID string
	if err := tx.QueryRow(ctx, consume, code, string(purpose)).Scan(&userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCodeConsumed
		}
		return err
	}

	tag, err := tx.Exec(ctx, update, append([]any{userID}, args...)...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return tx.Commit(ctx)
}
