package store

import (
	"database/sql"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/playgambit/backend/internal/apikey"
	"github.com/playgambit/backend/internal/errs"
	"github.com/playgambit/backend/internal/models"
)

// CheckPassword verifies a password against a user's stored hash. Users with
// no password (temporary users) never match.
func CheckPassword(u *models.User, password string) bool {
	if !u.PasswordHash.Valid {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash.String), []byte(password)) == nil
}

// FindUser looks up a user by id.
func (s *Store) FindUser(id int64) (models.User, error) {
	var user models.User
	err := s.db.Get(&user, `SELECT * FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, errs.ErrNoSuchUser
	}
	if err != nil {
		return models.User{}, errs.Database(err)
	}
	return user, nil
}

// FindUserByAPIKey looks up the user a raw api key belongs to.
func (s *Store) FindUserByAPIKey(key apikey.Key) (models.User, error) {
	var user models.User
	err := s.db.Get(&user, `SELECT * FROM users WHERE api_key_hash = $1`, key.Hash().String())
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, errs.ErrInvalidAPIKey
	}
	if err != nil {
		return models.User{}, errs.Database(err)
	}
	return user, nil
}

func (s *Store) findUserByEmail(email string) (models.User, error) {
	var user models.User
	err := s.db.Get(&user, `SELECT * FROM users WHERE email = $1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, errs.ErrNoSuchUser
	}
	if err != nil {
		return models.User{}, errs.Database(err)
	}
	return user, nil
}

// FindUserByCredentials looks up a user by email and verifies their password.
func (s *Store) FindUserByCredentials(email, password string) (models.User, error) {
	user, err := s.findUserByEmail(email)
	if errors.Is(err, errs.ErrNoSuchUser) {
		return models.User{}, errs.ErrIncorrectCredentials
	}
	if err != nil {
		return models.User{}, err
	}
	if !CheckPassword(&user, password) {
		return models.User{}, errs.ErrIncorrectCredentials
	}
	return user, nil
}

func (s *Store) insertUser(name string, email, passwordHash sql.NullString) (models.User, error) {
	user := models.User{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		APIKeyHash:   apikey.New().Hash().String(),
	}
	err := s.db.QueryRowx(
		`INSERT INTO users (name, email, password_hash, api_key_hash)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		user.Name, user.Email, user.PasswordHash, user.APIKeyHash,
	).Scan(&user.ID)
	if err != nil {
		return models.User{}, errs.Database(err)
	}
	return user, nil
}

// NewUser creates a user with login credentials. The initial api key hash is
// random and unknown to anyone; a usable key comes from GenerateAPIKey.
func (s *Store) NewUser(name, email, password string) (models.User, error) {
	_, err := s.findUserByEmail(email)
	if err == nil {
		return models.User{}, errs.ErrEmailAlreadyTaken
	}
	if !errors.Is(err, errs.ErrNoSuchUser) {
		return models.User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, errs.Database(err)
	}
	return s.insertUser(name,
		sql.NullString{String: email, Valid: true},
		sql.NullString{String: string(hash), Valid: true})
}

// NewTmpUser creates a user with no login credentials, reachable only through
// an api key.
func (s *Store) NewTmpUser(name string) (models.User, error) {
	return s.insertUser(name, sql.NullString{}, sql.NullString{})
}

// SaveUser writes a user's mutable fields back to the database.
func (s *Store) SaveUser(u *models.User) error {
	_, err := s.db.Exec(
		`UPDATE users SET name = $1, email = $2, password_hash = $3, api_key_hash = $4 WHERE id = $5`,
		u.Name, u.Email, u.PasswordHash, u.APIKeyHash, u.ID)
	if err != nil {
		return errs.Database(err)
	}
	return nil
}

// GenerateAPIKey mints a fresh api key for a user, persists its hash, and
// returns the raw key. Any previous key stops working.
func (s *Store) GenerateAPIKey(u *models.User) (apikey.Key, error) {
	key := apikey.New()
	u.APIKeyHash = key.Hash().String()
	if err := s.SaveUser(u); err != nil {
		return apikey.Key{}, err
	}
	return key, nil
}

// SetPassword replaces a user's password.
func (s *Store) SetPassword(u *models.User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errs.Database(err)
	}
	u.PasswordHash = sql.NullString{String: string(hash), Valid: true}
	return s.SaveUser(u)
}
