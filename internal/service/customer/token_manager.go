package customer

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"storefront/internal/domain"
	tokenrepo "storefront/internal/repository/token"
)

const issueAttempts = 5

var errTokenCollision = errors.New("customer: token collision")

// tokenManager issues opaque random tokens and checks them against storage.
type tokenManager struct {
	repo tokenrepo.Repository
	now  func() time.Time
}

func newTokenManager(repo tokenrepo.Repository, now func() time.Time) *tokenManager {
	return &tokenManager{repo: repo, now: now}
}

func (m *tokenManager) issue(ctx context.Context, customerID string, kind tokenrepo.Kind, ttl time.Duration) (string, error) {
	expiresAt := m.now().Add(ttl)
	for range issueAttempts {
		value, err := randomToken()
		if err != nil {
			return "", err
		}
		err = m.repo.Create(ctx, tokenrepo.Token{
			Token:      value,
			CustomerID: customerID,
			Kind:       kind,
			ExpiresAt:  expiresAt,
		})
		if err == nil {
			return value, nil
		}
		if !errors.Is(err, domain.ErrAlreadyExists) {
			return "", err
		}
	}
	return "", errTokenCollision
}

// validate returns the stored token when it exists, has the wanted kind and
// has not expired. Expired tokens are removed on sight.
func (m *tokenManager) validate(ctx context.Context, value string, kind tokenrepo.Kind) (*tokenrepo.Token, error) {
	if value == "" {
		return nil, ErrInvalidToken
	}
	t, err := m.repo.Get(ctx, value)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if t.Kind != kind || t.CustomerID == "" {
		return nil, ErrInvalidToken
	}
	if t.Expired(m.now()) {
		_ = m.repo.Delete(ctx, value)
		return nil, ErrInvalidToken
	}
	return t, nil
}

func (m *tokenManager) revoke(ctx context.Context, value string) error {
	return m.repo.Delete(ctx, value)
}

func (m *tokenManager) prune(ctx context.Context) (int64, error) {
	return m.repo.DeleteExpired(ctx, m.now())
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
