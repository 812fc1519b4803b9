package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"invtrack/internal/domain"
	"invtrack/internal/repos"
	"invtrack/internal/tokens"
	"invtrack/internal/validate"
)

// BcryptCost is the work factor for new password hashes.
var BcryptCost = 12

type AuthService struct {
	Users       *repos.UserRepo
	Tokens      *tokens.Manager
	EmailDomain string
}

func NewAuthService(users *repos.UserRepo, tok *tokens.Manager, emailDomain string) *AuthService {
	if emailDomain == "" {
		emailDomain = "inventory.local"
	}
	return &AuthService{Users: users, Tokens: tok, EmailDomain: emailDomain}
}

type RegisterInput struct {
	Username string
	Password string
	Name     string
}

func (in *RegisterInput) Validate() []validate.FieldError {
	var errs validate.Errors
	var ok bool
	in.Username, ok = validate.Username(in.Username)
	errs.Check(ok, "username", "3 to 32 letters, digits or underscores")
	errs.Check(validate.Password(in.Password), "password", "at least 6 characters")
	in.Name, ok = validate.Name(in.Name)
	errs.Check(ok, "name", "at least 2 characters")
	return errs
}

// email synthesizes the sign-in identifier the account is stored under.
func (s *AuthService) email(username string) string {
	return strings.ToLower(username) + "@" + s.EmailDomain
}

func (s *AuthService) newUser(ctx context.Context, username, password, name, role string) (*domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return nil, backend("hash password", err)
	}
	u := &domain.User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     s.email(username),
		Name:      name,
		Hash:      string(hash),
		Role:      role,
		CreatedAt: domain.Now(),
	}
	if err := s.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repos.ErrDuplicate) {
			return nil, conflict("username already taken")
		}
		return nil, backend("create user", err)
	}
	return u, nil
}

// EnsureAdmin creates the "admin" account when it does not exist yet.
func (s *AuthService) EnsureAdmin(ctx context.Context, password string) (bool, error) {
	_, err := s.Users.ByUsername(ctx, "admin")
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repos.ErrNotFound) {
		return false, backend("lookup admin", err)
	}
	if _, err := s.newUser(ctx, "admin", password, "Administrator", domain.RoleAdmin); err != nil {
		return false, err
	}
	return true, nil
}

// Register creates an OPERATOR account and signs it in on sid.
func (s *AuthService) Register(ctx context.Context, sid string, in RegisterInput) (*domain.User, error) {
	if err := invalid(in.Validate()); err != nil {
		return nil, err
	}
	u, err := s.newUser(ctx, in.Username, in.Password, in.Name, domain.RoleOperator)
	if err != nil {
		return nil, err
	}
	if sid != "" {
		if err := s.Users.BindSession(ctx, sid, u.ID); err != nil {
			return nil, backend("bind session", err)
		}
	}
	return u, nil
}

func (s *AuthService) authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	u, err := s.Users.ByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			return nil, ErrBadCreds
		}
		return nil, backend("lookup user", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return nil, ErrBadCreds
	}
	return u, nil
}

func (s *AuthService) Login(ctx context.Context, sid, username, password string) (*domain.User, error) {
	u, err := s.authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if err := s.Users.BindSession(ctx, sid, u.ID); err != nil {
		return nil, backend("bind session", err)
	}
	return u, nil
}

func (s *AuthService) Logout(ctx context.Context, sid string) error {
	return backend("unbind session", s.Users.UnbindSession(ctx, sid))
}

func (s *AuthService) CurrentUser(ctx context.Context, sid string) (*domain.User, error) {
	u, err := s.Users.SessionUser(ctx, sid)
	if errors.Is(err, repos.ErrNotFound) {
		return nil, notFound("session")
	}
	return u, backend("session user", err)
}

// IssueToken checks credentials and returns a bearer token for the API.
func (s *AuthService) IssueToken(ctx context.Context, username, password string) (string, *domain.User, error) {
	u, err := s.authenticate(ctx, username, password)
	if err != nil {
		return "", nil, err
	}
	tok, err := s.Tokens.Issue(u.ID, u.Role)
	if err != nil {
		return "", nil, backend("issue token", err)
	}
	return tok, u, nil
}

// TokenUser resolves a bearer token to its (still existing) user.
func (s *AuthService) TokenUser(ctx context.Context, token string) (*domain.User, error) {
	c, err := s.Tokens.Validate(token)
	if err != nil {
		return nil, err
	}
	u, err := s.Users.ByID(ctx, c.UserID)
	if errors.Is(err, repos.ErrNotFound) {
		return nil, tokens.ErrInvalidToken
	}
	return u, backend("token user", err)
}
