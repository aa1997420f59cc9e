package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/carwash-dashboard/internal/model"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,COALESCE(name,''),email,password,COALESCE(role,''),COALESCE(status,'active'),remember_token,token_expires,last_login,created_at,updated_at"

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var (
		u        model.User
		remember sql.NullString
		expires  sql.NullTime
		last     sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.Role, &u.Status, &remember, &expires, &last, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	if remember.Valid {
		u.RememberHash = &remember.String
	}
	if expires.Valid {
		u.TokenExpires = &expires.Time
	}
	if last.Valid {
		u.LastLogin = &last.Time
	}
	return u, nil
}

// Create inserts a user with an already hashed password and returns its ID.
func (r *UserRepo) Create(ctx context.Context, name, email, passwordHash, role string) (int64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, password, role, status) VALUES (?,?,?,?,?)",
		name, email, passwordHash, role, model.StatusActive)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	return res.LastInsertId()
}

// GetByEmail matches case-insensitively so rows written before addresses
// were normalized still resolve.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE LOWER(email)=? LIMIT 1", email))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// UpdatePassword replaces the stored credential.
func (r *UserRepo) UpdatePassword(ctx context.Context, id int64, hash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password=?, updated_at=? WHERE id=?", hash, time.Now().UTC(), id)
	return err
}

// TouchLastLogin records a successful login.
func (r *UserRepo) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET last_login=? WHERE id=?", at, id)
	return err
}

// GetProfile reads the editable account fields of id.
func (r *UserRepo) GetProfile(ctx context.Context, id int64) (model.Profile, error) {
	var p model.Profile
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,COALESCE(name,''),email,COALESCE(phone,''),COALESCE(username,''),COALESCE(role,''),COALESCE(profile_image,'') FROM users WHERE id=? LIMIT 1", id).
		Scan(&p.ID, &p.Name, &p.Email, &p.Phone, &p.Username, &p.Role, &p.ImagePath)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Profile{}, ErrNotFound
	}
	return p, err
}

// UpdateProfile writes name, email, phone, username and profile image.
// Role and status are never touched here.
func (r *UserRepo) UpdateProfile(ctx context.Context, p model.Profile) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET name=?, email=?, phone=NULLIF(?,''), username=NULLIF(?,''), profile_image=NULLIF(?,''), updated_at=? WHERE id=?",
		p.Name, strings.ToLower(strings.TrimSpace(p.Email)), p.Phone, p.Username, p.ImagePath, time.Now().UTC(), p.ID)
	if isDuplicate(err) {
		return ErrEmailExists
	}
	return err
}
