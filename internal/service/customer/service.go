package customer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/domain"
	"storefront/internal/logging"
	custrepo "storefront/internal/repository/customer"
	tokenrepo "storefront/internal/repository/token"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials is returned when email/password do not match.
	ErrInvalidCredentials = domain.Errorf(domain.EUNAUTHORIZED, "", "Invalid email or password")
	// ErrInvalidToken indicates the provided token could not be validated.
	ErrInvalidToken = domain.Errorf(domain.EUNAUTHORIZED, "", "Invalid or expired token")
	// ErrEmailTaken is returned by Signup when the email is already registered.
	ErrEmailTaken = domain.Errorf(domain.ECONFLICT, "", "An account with this email already exists")
)

// CartMerger folds the anonymous cart seen before login into the user's cart.
type CartMerger interface {
	MergeOnLogin(ctx context.Context, userID string, pre domain.PreLogin) error
}

// KeyRotator replaces an anonymous session key once the visitor logs in.
type KeyRotator interface {
	RotateKey(ctx context.Context, key string) (string, error)
}

// Service handles customer signup/login flows.
type Service struct {
	repo        custrepo.Repository
	tokens      *tokenManager
	carts       CartMerger
	rotator     KeyRotator
	logger      *zap.Logger
	accessTTL   time.Duration
	refreshTTL  time.Duration
	passwordMin int
}

type Option func(*Service)

// WithKeyRotator makes Login rotate the anonymous session key before the
// cart merge runs.
func WithKeyRotator(r KeyRotator) Option {
	return func(s *Service) { s.rotator = r }
}

// New creates a Service with sane defaults. carts may be nil, in which case
// logins never touch carts.
func New(repo custrepo.Repository, tokens tokenrepo.Repository, carts CartMerger, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		tokens:      newTokenManager(tokens, time.Now),
		carts:       carts,
		logger:      logging.OrNop(logger),
		accessTTL:   48 * time.Hour,
		refreshTTL:  30 * 24 * time.Hour,
		passwordMin: 8,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignupInput captures fields expected by the signup endpoint.
type SignupInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Session is the result of a successful login.
type Session struct {
	Customer     *domain.Customer
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
	// SessionKey is the rotated anonymous session key, empty when no
	// rotation took place.
	SessionKey string
}

// Signup registers a new customer.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*domain.Customer, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	fields := map[string]string{}
	if email == "" || !strings.Contains(email, "@") {
		fields["email"] = "a valid email address is required"
	}
	password := strings.TrimSpace(in.Password)
	if err := validatePassword(password, s.passwordMin); err != nil {
		fields["password"] = err.Error()
	}
	if len(fields) > 0 {
		return nil, domain.NewValidationError("customer.signup", fields)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	c, err := s.repo.Create(ctx, domain.Customer{
		Email:        email,
		PasswordHash: string(hashed),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
	})
	if errors.Is(err, domain.ErrAlreadyExists) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("customer signed up", zap.String("customer_id", c.ID))
	return c, nil
}

// Login validates credentials, issues tokens, rotates the anonymous session
// key and merges the anonymous cart described by pre into the customer's
// cart. A failed rotation or merge does not fail the login.
func (s *Service) Login(ctx context.Context, email, password string, pre domain.PreLogin) (*Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	password = strings.TrimSpace(password)
	c, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	sess, err := s.newSession(ctx, c)
	if err != nil {
		return nil, err
	}

	if s.rotator != nil && pre.CookieSessionKey != "" {
		key, err := s.rotator.RotateKey(ctx, pre.CookieSessionKey)
		if err != nil {
			s.logger.Warn("session rotation failed", zap.String("customer_id", c.ID), zap.Error(err))
		} else {
			sess.SessionKey = key
			pre.CurrentSessionKey = key
		}
	}

	if s.carts != nil {
		if err := s.carts.MergeOnLogin(ctx, c.ID, pre); err != nil {
			s.logger.Error("cart merge on login failed",
				zap.String("customer_id", c.ID),
				zap.String("pre_login_cart_id", pre.CartID),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("customer logged in", zap.String("customer_id", c.ID))
	return sess, nil
}

// Refresh exchanges a refresh token for a new token pair. The presented
// refresh token is revoked so it can be used only once.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	t, err := s.tokens.validate(ctx, refreshToken, tokenrepo.KindRefresh)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.revoke(ctx, t.Token); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	c, err := s.repo.GetByID(ctx, t.CustomerID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	return s.newSession(ctx, c)
}

// PruneTokens deletes expired tokens and reports how many were removed.
func (s *Service) PruneTokens(ctx context.Context) (int64, error) {
	n, err := s.tokens.prune(ctx)
	if err != nil {
		return 0, fmt.Errorf("customer: prune tokens: %w", err)
	}
	if n > 0 {
		s.logger.Debug("expired tokens pruned", zap.Int64("count", n))
	}
	return n, nil
}

func (s *Service) newSession(ctx context.Context, c *domain.Customer) (*Session, error) {
	access, err := s.tokens.issue(ctx, c.ID, tokenrepo.KindAccess, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("customer: issue access token: %w", err)
	}
	refresh, err := s.tokens.issue(ctx, c.ID, tokenrepo.KindRefresh, s.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("customer: issue refresh token: %w", err)
	}
	return &Session{
		Customer:     c,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    s.AccessTTLSeconds(),
	}, nil
}

// LookupByToken returns the customer bound to a valid access token.
func (s *Service) LookupByToken(ctx context.Context, token string) (*domain.Customer, error) {
	t, err := s.tokens.validate(ctx, token, tokenrepo.KindAccess)
	if err != nil {
		return nil, err
	}
	c, err := s.repo.GetByID(ctx, t.CustomerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return c, nil
}

// Logout revokes an access token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	err := s.tokens.revoke(ctx, token)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}

// AccessTTLSeconds exposes the access token lifetime in seconds.
func (s *Service) AccessTTLSeconds() int {
	return int(s.accessTTL.Seconds())
}

func validatePassword(p string, min int) error {
	trimmed := strings.TrimSpace(p)
	if len(trimmed) < min {
		return fmt.Errorf("password must be at least %d characters", min)
	}
	hasUpper := false
	hasLower := false
	hasDigit := false
	for _, r := range trimmed {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return errors.New("password must contain at least 1 uppercase letter, 1 lowercase letter, and 1 number")
	}
	return nil
}
