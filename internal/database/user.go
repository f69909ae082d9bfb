package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jason-s-yu/battlecards/internal/auth"
	"github.com/jason-s-yu/battlecards/internal/models"
	"github.com/jason-s-yu/battlecards/internal/rating"
)

var (
	// ErrEmailTaken is returned when an account with the same email exists.
	ErrEmailTaken = errors.New("email already exists")
	// ErrInvalidCredentials covers both unknown emails and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const userColumns = `id, COALESCE(email, ''), password, username, is_ephemeral, is_admin, wins, losses, draws, rating, rating_rd, rating_vol`

// isUniqueViolation reports whether err is a Postgres unique constraint failure.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// nullableEmail stores guests with a NULL email so the unique index ignores them.
func nullableEmail(email string) *string {
	if email == "" {
		return nil
	}
	return &email
}

// CreateUser inserts a user, hashing the password unless the user is a guest.
func CreateUser(ctx context.Context, user *models.User) error {
	if DB == nil {
		return ErrNoDatabase
	}
	if user.ID == uuid.Nil {
		id, err := uuid.NewRandom()
		if err != nil {
			return fmt.Errorf("failed to generate user id: %w", err)
		}
		user.ID = id
	}
	if user.Username == "" {
		user.Username = "Guest"
	}
	if user.RatingRD == 0 {
		start := rating.Default()
		user.Rating, user.RatingRD, user.RatingVolatility = start.Value, start.RD, start.Volatility
	}

	if !user.IsEphemeral {
		hash, err := auth.CreateHash(user.Password, auth.Params)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		user.Password = hash
	}

	q := `INSERT INTO users (id, email, password, username, is_ephemeral, is_admin, rating, rating_rd, rating_vol)
	      VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, q,
			user.ID, nullableEmail(user.Email), user.Password, user.Username,
			user.IsEphemeral, user.IsAdmin,
			user.Rating, user.RatingRD, user.RatingVolatility,
		)
		return execErr
	})
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.Email, &u.Password, &u.Username,
		&u.IsEphemeral, &u.IsAdmin,
		&u.Wins, &u.Losses, &u.Draws,
		&u.Rating, &u.RatingRD, &u.RatingVolatility,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if DB == nil {
		return nil, ErrNoDatabase
	}
	return scanUser(DB.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email))
}

func GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if DB == nil {
		return nil, ErrNoDatabase
	}
	return scanUser(DB.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
}

// AuthenticateUser checks the credentials and returns a signed token for the account.
func AuthenticateUser(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := GetUserByEmail(ctx, email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", fmt.Errorf("user lookup: %w", err)
	}

	match, err := auth.ComparePasswordAndHash(password, user.Password)
	if err != nil || !match {
		return nil, "", ErrInvalidCredentials
	}

	token, err := auth.CreateJWT(user.ID, false)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create jwt: %w", err)
	}
	return user, token, nil
}

// ClaimGuest turns a guest row into a full account, keeping its battle record.
func ClaimGuest(ctx context.Context, u *models.User) error {
	if DB == nil {
		return ErrNoDatabase
	}
	hashed, err := auth.CreateHash(u.Password, auth.Params)
	if err != nil {
		return err
	}

	q := `UPDATE users SET email = $1, password = $2, username = $3, is_ephemeral = FALSE
	      WHERE id = $4 AND is_ephemeral`
	err = pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, e := tx.Exec(ctx, q, nullableEmail(u.Email), hashed, u.Username, u.ID)
		if e != nil {
			return e
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return nil
	})
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("failed to claim guest user: %w", err)
	}
	u.Password = hashed
	u.IsEphemeral = false
	return nil
}
