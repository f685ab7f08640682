package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neomorfeo/tillpoint/internal/domain"
)

// SignupInput is a self-service registration.
type SignupInput struct {
	Email    string      `validate:"required,email,max=254"`
	Password string      `validate:"required,min=8,max=72"`
	FullName string      `validate:"required,max=120"`
	Role     domain.Role `validate:"required"`
}

// AccountService registers and authenticates principals.
type AccountService struct {
	principals domain.PrincipalRepository
	hasher     domain.PasswordHasher
	tokens     domain.TokenIssuer
	now        func() time.Time
}

// NewAccountService creates an account service.
func NewAccountService(principals domain.PrincipalRepository, hasher domain.PasswordHasher, tokens domain.TokenIssuer) *AccountService {
	return &AccountService{
		principals: principals,
		hasher:     hasher,
		tokens:     tokens,
		now:        time.Now,
	}
}

// Signup creates an unscoped principal and returns it with a bearer token.
// Only store owners and customers may register themselves; everyone else is
// created by someone already inside a store.
func (s *AccountService) Signup(ctx context.Context, in SignupInput) (domain.Principal, string, error) {
	if err := validateInput(in); err != nil {
		return domain.Principal{}, "", err
	}
	if in.Role != domain.RoleStoreAdmin && in.Role != domain.RoleCustomer {
		return domain.Principal{}, "", &domain.ValidationError{Field: "role", Reason: "must be store_admin or customer"}
	}

	if _, err := s.principals.GetByEmail(ctx, in.Email); err == nil {
		return domain.Principal{}, "", &domain.ConflictError{Resource: "user", Key: domain.NormalizeEmail(in.Email)}
	} else if !errors.Is(err, domain.ErrPrincipalNotFound) {
		return domain.Principal{}, "", fmt.Errorf("looking up email: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return domain.Principal{}, "", fmt.Errorf("hashing password: %w", err)
	}

	p := domain.NewPrincipal(newID(), in.Email, in.FullName, hash, in.Role)
	if err := s.principals.Create(ctx, p); err != nil {
		return domain.Principal{}, "", err
	}

	token, err := s.tokens.Issue(p)
	if err != nil {
		return domain.Principal{}, "", fmt.Errorf("issuing token: %w", err)
	}
	return p, token, nil
}

// Login checks credentials. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *AccountService) Login(ctx context.Context, email, password string) (domain.Principal, string, error) {
	p, err := s.principals.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrPrincipalNotFound) {
			return domain.Principal{}, "", errBadCredentials
		}
		return domain.Principal{}, "", fmt.Errorf("looking up email: %w", err)
	}
	if !s.hasher.Verify(p.PasswordHash, password) {
		return domain.Principal{}, "", errBadCredentials
	}

	p.LastLoginAt = s.now().UTC()
	if err := s.principals.Update(ctx, p); err != nil {
		return domain.Principal{}, "", fmt.Errorf("recording login: %w", err)
	}

	token, err := s.tokens.Issue(p)
	if err != nil {
		return domain.Principal{}, "", fmt.Errorf("issuing token: %w", err)
	}
	return p, token, nil
}

// Authenticate resolves a bearer token to the current principal record.
func (s *AccountService) Authenticate(ctx context.Context, token string) (domain.Principal, error) {
	id, err := s.tokens.Parse(token)
	if err != nil {
		return domain.Principal{}, &domain.AuthError{Kind: domain.Unauthorized, Reason: "invalid token"}
	}

	p, err := s.principals.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrPrincipalNotFound) {
			return domain.Principal{}, &domain.AuthError{Kind: domain.Unauthorized, Reason: "unknown principal"}
		}
		return domain.Principal{}, err
	}
	return p, nil
}

// EnsurePlatformAdmin creates the platform operator account if no principal
// holds email yet. Platform operators cannot sign up, so this is the only way
// one comes to exist. It reports whether an account was created.
func (s *AccountService) EnsurePlatformAdmin(ctx context.Context, email, password string) (bool, error) {
	if err := validateInput(SignupInput{Email: email, Password: password, FullName: "Platform", Role: domain.RolePlatformAdmin}); err != nil {
		return false, err
	}

	existing, err := s.principals.GetByEmail(ctx, email)
	if err == nil {
		if existing.Role != domain.RolePlatformAdmin {
			return false, &domain.ConflictError{Resource: "user", Key: existing.Email}
		}
		return false, nil
	}
	if !errors.Is(err, domain.ErrPrincipalNotFound) {
		return false, fmt.Errorf("looking up email: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return false, fmt.Errorf("hashing password: %w", err)
	}
	if err := s.principals.Create(ctx, domain.NewPrincipal(newID(), email, "Platform operator", hash, domain.RolePlatformAdmin)); err != nil {
		return false, err
	}
	return true, nil
}

var errBadCredentials = &domain.AuthError{Kind: domain.Unauthorized, Reason: "invalid email or password"}
