package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgconn"
	_ "github.com/jackc/pgx/v4/stdlib"
)

const uniqueViolation = "23505"

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{
		db: db,
	}
}

func (r *UserRepo) Add(ctx context.Context, u *User) (string, error) {
	photo := u.Photo
	if photo == "" {
		photo = DefaultPhoto
	}
	row := r.db.QueryRowContext(ctx,
		"INSERT INTO users(name, email, password, photo, roll_number) VALUES($1, $2, $3, $4, $5) RETURNING id",
		u.Name, u.Email, u.Password, photo, u.RollNumber)

	var id string
	if err := row.Scan(&id); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ``, ErrEmailTaken
		}
		return ``, fmt.Errorf("user/repo: user wasn't added: %w", err)
	}
	if id == "" {
		return ``, errors.New("user/repo: user wasn't added, empty id returned")
	}
	return id, nil
}

func (r *UserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	row := r.db.QueryRowContext(ctx, "SELECT id FROM users WHERE email=$1", email)
	var id string
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("user/repo: could not scan row: %w", err)
	}
	return true, nil
}

func (r *UserRepo) GetById(ctx context.Context, uid string) (*User, error) {
	if err := checkId(uid); err != nil {
		return nil, err
	}
	row := r.db.QueryRowContext(ctx,
		"SELECT id, name, email, photo, roll_number, number_of_posts, number_of_complaints FROM users WHERE id=$1", uid)
	u := new(User)
	err := row.Scan(&u.Id, &u.Name, &u.Email, &u.Photo, &u.RollNumber, &u.NumberOfPosts, &u.NumberOfComplaints)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user/repo: user %s: %w", uid, ErrNotFound)
		}
		return nil, fmt.Errorf("user/repo: could not scan row: %w", err)
	}
	return u, nil
}

// GetOwner loads the fields shown next to a blog.
func (r *UserRepo) GetOwner(ctx context.Context, uid string) (*Owner, error) {
	if err := checkId(uid); err != nil {
		return nil, err
	}
	row := r.db.QueryRowContext(ctx, "SELECT id, name, photo, roll_number FROM users WHERE id=$1", uid)
	o := new(Owner)
	if err := row.Scan(&o.Id, &o.Name, &o.Photo, &o.RollNumber); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user/repo: owner %s: %w", uid, ErrNotFound)
		}
		return nil, fmt.Errorf("user/repo: could not scan row: %w", err)
	}
	return o, nil
}

// Returns all users. Used only for seeding the DB.
func (r *UserRepo) GetAll(ctx context.Context) ([]*User, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, email, photo, roll_number FROM users")
	if err != nil {
		return nil, fmt.Errorf("user/repo: failed executing query for getting all users: %w", err)
	}
	defer rows.Close()

	users := []*User{}
	for rows.Next() {
		u := new(User)
		if err := rows.Scan(&u.Id, &u.Name, &u.Email, &u.Photo, &u.RollNumber); err != nil {
			return nil, fmt.Errorf("user/repo: could not scan row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("user/repo: rows iteration failed: %w", err)
	}

	return users, nil
}

// RecomputeCounter overwrites counter c of user uid with the value returned
// by count. The user row stays locked while count runs, so concurrent
// recomputes for the same user are serialized and the last one to commit
// has seen every blog committed before it.
func (r *UserRepo) RecomputeCounter(ctx context.Context, uid string, c Counter, count func(context.Context) (int, error)) (int, error) {
	if !c.Valid() {
		return 0, fmt.Errorf("user/repo: %q: %w", c, ErrUnknownCounter)
	}
	if err := checkId(uid); err != nil {
		return 0, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("user/repo: can't begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id string
	err = tx.QueryRowContext(ctx, "SELECT id FROM users WHERE id=$1 FOR UPDATE", uid).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("user/repo: user %s: %w", uid, ErrNotFound)
		}
		return 0, fmt.Errorf("user/repo: can't lock user row: %w", err)
	}

	n, err := count(ctx)
	if err != nil {
		return 0, err
	}

	// c is one of the whitelisted column names.
	query := fmt.Sprintf("UPDATE users SET %s=$1 WHERE id=$2", c)
	if _, err := tx.ExecContext(ctx, query, n, uid); err != nil {
		return 0, fmt.Errorf("user/repo: can't update %s: %w", c, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("user/repo: can't commit %s: %w", c, err)
	}
	return n, nil
}

// checkId rejects ids the bigint primary key can't hold: no such user exists.
func checkId(uid string) error {
	if _, err := strconv.ParseInt(uid, 10, 64); err != nil {
		return fmt.Errorf("user/repo: user %s: %w", uid, ErrNotFound)
	}
	return nil
}
