// internal/auth/auth.go
//
// Accounts for players who want stats across games.
// Responsibilities:
//   - User CRUD against the users table (bcrypt password hashes).
//   - HS256 JWT issue/verify, auth cookie handling.
//   - Stat bookkeeping (games played, wins, streak) inside a caller's tx.
//
// Guests never need an account; they are tracked by an anonymous cookie and
// their games are claimed on signup/login.

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUsernameTaken      = errors.New("username taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUserNotFound       = errors.New("user not found")
)

// ValidationError describes bad signup input; its message is safe to show.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	GamesPlayed  int       `json:"gamesPlayed"`
	Wins         int       `json:"wins"`
	Streak       int       `json:"streak"`
	MaxStreak    int       `json:"maxStreak"`
}

// Options configures a Service.
type Options struct {
	Secret     string
	TokenTTL   time.Duration
	CookieName string
	Secure     bool // production: Secure + SameSite=None cookies
}

type Service struct {
	db   *sql.DB
	opts Options
	now  func() time.Time
}

func NewService(db *sql.DB, opts Options) *Service {
	if opts.CookieName == "" {
		opts.CookieName = "worldle_token"
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 14 * 24 * time.Hour
	}
	return &Service{db: db, opts: opts, now: time.Now}
}

// CreateUser validates input, checks uniqueness, hashes the password and inserts the user.
func (s *Service) CreateUser(ctx context.Context, username, pw string) (*User, error) {
	username = normalizeUsername(username)
	if err := validateSignup(username, pw); err != nil {
		return nil, err
	}
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE username=?`, username).Scan(&exists)
	if err == nil {
		return nil, ErrUsernameTaken
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("check username: %w", err)
	}

	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &User{
		ID:           GenID(),
		Username:     username,
		PasswordHash: string(h),
		CreatedAt:    s.now().UTC().Truncate(time.Second),
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, created_at) VALUES (?,?,?,?)`,
		u.ID, u.Username, u.PasswordHash, u.CreatedAt.Format(time.RFC3339)); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// Authenticate checks a username/password pair.
func (s *Service) Authenticate(ctx context.Context, username, pw string) (*User, error) {
	u, err := s.findBy(ctx, `username=?`, normalizeUsername(username))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(pw)) != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// FindByID loads a user row.
func (s *Service) FindByID(ctx context.Context, id string) (*User, error) {
	return s.findBy(ctx, `id=?`, id)
}

func (s *Service) findBy(ctx context.Context, where string, arg any) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at, games_played, wins, streak, max_streak
		 FROM users WHERE `+where, arg)
	var u User
	var created string
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &created, &u.GamesPlayed, &u.Wins, &u.Streak, &u.MaxStreak)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &u, nil
}

// BumpStats increments games played and updates wins/streak, within tx.
func BumpStats(ctx context.Context, tx *sql.Tx, userID string, won bool) error {
	var gp, wins, streak, best int
	row := tx.QueryRowContext(ctx, `SELECT games_played, wins, streak, max_streak FROM users WHERE id=?`, userID)
	if err := row.Scan(&gp, &wins, &streak, &best); err != nil {
		return err
	}
	gp++
	if won {
		wins++
		streak++
	} else {
		streak = 0
	}
	if streak > best {
		best = streak
	}
	_, err := tx.ExecContext(ctx,
		`UPDATE users SET games_played=?, wins=?, streak=?, max_streak=? WHERE id=?`,
		gp, wins, streak, best, userID)
	return err
}

// ClaimAnonGames moves anonymous games to a user account.
func (s *Service) ClaimAnonGames(ctx context.Context, anonID, userID string) (int64, error) {
	if anonID == "" || userID == "" {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE games SET user_id=?, anonymous_id=NULL WHERE anonymous_id=?`, userID, anonID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ------------------------------ JWT & cookies ------------------------------

// Claims is what the auth middleware puts in the request context.
type Claims struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Sign creates an HS256 JWT with id/username that expires after TokenTTL.
func (s *Service) Sign(u *User) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.opts.TokenTTL)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":       u.ID,
		"username": u.Username,
		"exp":      exp.Unix(),
		"iat":      now.Unix(),
	})
	ss, err := t.SignedString([]byte(s.opts.Secret))
	return ss, exp, err
}

// Parse verifies a token and extracts its claims.
func (s *Service) Parse(token string) (Claims, error) {
	mc := jwt.MapClaims{}
	t, err := jwt.ParseWithClaims(token, mc, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.opts.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !t.Valid {
		return Claims{}, ErrInvalidToken
	}
	id, _ := mc["id"].(string)
	username, _ := mc["username"].(string)
	if id == "" || username == "" {
		return Claims{}, ErrInvalidToken
	}
	return Claims{ID: id, Username: username}, nil
}

// SetCookie writes the auth token cookie.
func (s *Service) SetCookie(w http.ResponseWriter, token string, exp time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.opts.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.Secure,
		SameSite: s.sameSite(),
		Expires:  exp,
	})
}

// ClearCookie deletes the auth token cookie.
func (s *Service) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.opts.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.Secure,
		SameSite: s.sameSite(),
		MaxAge:   -1,
	})
}

// SameSite is None for Secure cookies (cross-site client), Lax otherwise.
func (s *Service) sameSite() http.SameSite {
	if s.opts.Secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

// TokenFrom extracts a bearer token from the Authorization header or the auth cookie.
func (s *Service) TokenFrom(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(s.opts.CookieName); err == nil {
		return c.Value
	}
	return ""
}

// ------------------------------- validation --------------------------------

func normalizeUsername(u string) string { return strings.TrimSpace(u) }

func validateSignup(u, p string) error {
	if len(u) < 3 || len(u) > 24 {
		return &ValidationError{"username must be 3–24 chars"}
	}
	for _, r := range u {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return &ValidationError{"username: letters, numbers, underscore only"}
		}
	}
	if len(p) < 8 || len(p) > 72 {
		return &ValidationError{"password must be 8–72 chars"}
	}
	return nil
}
