package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	e "github.com/quizhive/quizhive/internal/quizhive/errors"
	"github.com/quizhive/quizhive/internal/quizhive/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// UserStore is the slice of the repository the resolver needs.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
}

// ProviderConfig describes the third-party identity provider.
type ProviderConfig struct {
	// Issuer is the expected iss claim, e.g. "https://tenant.auth0.com/".
	Issuer string
	// Audience is the expected aud claim.
	Audience string
	// JWKSURL is the well-known signing-key endpoint.
	JWKSURL string
}

// Resolver maps a bearer credential to a durable user record, provisioning
// one on first sight of a valid third-party identity.
type Resolver struct {
	users    UserStore
	signer   *Signer
	keys     *KeySet
	provider ProviderConfig
	logger   *zap.Logger
}

func NewResolver(users UserStore, signer *Signer, provider ProviderConfig, logger *zap.Logger) *Resolver {
	return &Resolver{
		users:    users,
		signer:   signer,
		keys:     NewKeySet(provider.JWKSURL),
		provider: provider,
		logger:   logger.Named("identity"),
	}
}

// Resolve classifies the credential by its unverified owner claim, verifies
// it on the matching path, and returns the user for the resolved email.
func (r *Resolver) Resolve(ctx context.Context, tokenString string) (*models.User, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("%w: missing credential", e.ErrUnauthenticated)
	}

	// The owner claim is read before any verification; it only selects the
	// verification path, it proves nothing by itself.
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("%w: malformed credential", e.ErrUnauthenticated)
	}

	var email string
	var err error
	if owner, _ := claims["owner"].(string); owner == r.signer.Issuer() {
		email, err = r.signer.Verify(tokenString)
	} else {
		email, err = r.verifyThirdParty(tokenString)
	}
	if err != nil {
		return nil, err
	}

	return r.lookupOrProvision(ctx, email)
}

func (r *Resolver) verifyThirdParty(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString,
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			kid, _ := token.Header["kid"].(string)
			if kid == "" {
				return nil, fmt.Errorf("missing kid header")
			}
			return r.keys.Key(kid)
		},
		jwt.WithAudience(r.provider.Audience),
		jwt.WithIssuer(r.provider.Issuer),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", e.ErrInvalidCredential, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("%w: invalid token claims", e.ErrInvalidCredential)
	}

	email, _ := claims["email"].(string)
	if email == "" {
		// Some providers namespace custom claims under the audience.
		email, _ = claims[r.provider.Audience+"/email"].(string)
	}
	if email == "" {
		return "", fmt.Errorf("%w: no email claim", e.ErrInvalidCredential)
	}
	return email, nil
}

// lookupOrProvision is the one place identity creation happens outside
// explicit registration. A concurrent first-sighting loses the insert to the
// unique email index and falls back to a re-fetch instead of failing.
func (r *Resolver) lookupOrProvision(ctx context.Context, email string) (*models.User, error) {
	user, err := r.users.GetUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, e.ErrNotFound) {
		return nil, err
	}

	placeholder, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user = &models.User{
		Email:        email,
		Username:     strings.SplitN(email, "@", 2)[0],
		PasswordHash: string(placeholder),
	}

	if err := r.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, e.ErrConflict) {
			return r.users.GetUserByEmail(ctx, email)
		}
		return nil, err
	}
	r.logger.Info("provisioned user from identity token", zap.String("email", email))
	return user, nil
}
