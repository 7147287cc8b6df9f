package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/acp-gateway/internal/model"
)

// mysqlDuplicateEntry is the server error number for unique key violations.
const mysqlDuplicateEntry = 1062

const userColumns = "id,email,phone,wallet_address,balance,go_points,go_tier,joined_at"

// UserRepo is the MySQL implementation of UserStore over the 'users' table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (model.User, error) {
	var (
		u                    model.User
		email, phone, wallet sql.NullString
		tier                 string
	)
	err := row.Scan(&u.ID, &email, &phone, &wallet, &u.Balance, &u.GoPoints, &tier, &u.JoinedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, err
	}
	u.Email = email.String
	u.Phone = phone.String
	u.WalletAddress = wallet.String
	u.GoTier = model.Tier(tier)
	return u, nil
}

// FindByID fetches a user by id.
func (r *UserRepo) FindByID(ctx context.Context, id string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// FindByIdentity fetches a user by the normalized identity field.
func (r *UserRepo) FindByIdentity(ctx context.Context, ident model.Identity) (model.User, error) {
	ident = ident.Normalize()
	var column string
	switch ident.Kind() {
	case model.IdentityEmail:
		column = "email"
	case model.IdentityPhone:
		column = "phone"
	case model.IdentityWallet:
		column = "wallet_address"
	default:
		return model.User{}, ErrNotFound
	}
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE "+column+"=? LIMIT 1", ident.Value()))
}

// Create inserts a user row.  Unique keys on email, phone and
// wallet_address make the first writer win.
func (r *UserRepo) Create(ctx context.Context, u model.User) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES (?,?,?,?,?,?,?,?)",
		u.ID, nullString(u.Email), nullString(u.Phone), nullString(u.WalletAddress),
		u.Balance, u.GoPoints, string(u.GoTier), u.JoinedAt)
	if err != nil {
		if isDuplicate(err) {
			return ErrIdentityExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
