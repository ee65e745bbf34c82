package local

import (
	"context"
	"database/sql"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type userRecord struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID            uuid.UUID  `bun:"id,pk,type:uuid"`
	Email         string     `bun:"email,unique,nullzero"`
	PasswordHash  string     `bun:"password_hash"`
	DisplayName   string     `bun:"display_name"`
	PhoneNumber   string     `bun:"phone_number,nullzero"`
	EmailVerified bool       `bun:"is_email_verified"`
	Anonymous     bool       `bun:"is_anonymous"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

type store struct {
	db *bun.DB
}

func newStore(ctx context.Context, dsn string) (*store, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open emulator database")
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if _, err := db.NewCreateTable().
		Model((*userRecord)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create emulator users table")
	}

	return &store{db: db}, nil
}

func (s *store) close() error {
	return s.db.Close()
}

func (s *store) create(ctx context.Context, rec *userRecord) error {
	if _, err := s.db.NewInsert().Model(rec).Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to insert user")
	}
	return nil
}

func (s *store) getByID(ctx context.Context, id uuid.UUID) (*userRecord, error) {
	rec := &userRecord{}
	err := s.db.NewSelect().Model(rec).Where("usr.id = ?", id).Scan(ctx)
	return handleScan(rec, err)
}

func (s *store) getByEmail(ctx context.Context, email string) (*userRecord, error) {
	rec := &userRecord{}
	err := s.db.NewSelect().Model(rec).Where("usr.email = ?", email).Scan(ctx)
	return handleScan(rec, err)
}

func (s *store) getByPhone(ctx context.Context, number string) (*userRecord, error) {
	rec := &userRecord{}
	err := s.db.NewSelect().Model(rec).Where("usr.phone_number = ?", number).Scan(ctx)
	return handleScan(rec, err)
}

func (s *store) updatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	_, err := s.db.NewUpdate().
		Model((*userRecord)(nil)).
		Set("password_hash = ?", hash).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update password")
	}
	return nil
}

func (s *store) markEmailVerified(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.NewUpdate().
		Model((*userRecord)(nil)).
		Set("is_email_verified = ?", true).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mark email verified")
	}
	return nil
}

func handleScan(rec *userRecord, err error) (*userRecord, error) {
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to query user")
	}
	return rec, nil
}
