package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	RoleAdmin    = "admin"
	RoleReviewer = "reviewer"
	RoleWorker   = "worker"
)

var (
	ErrEmptyToken    = errors.New("authorization token is required")
	ErrInvalidToken  = errors.New("token is invalid")
	ErrExpiredToken  = errors.New("token is expired")
	ErrRevokedToken  = errors.New("token is revoked")
	ErrWeakSecretKey = errors.New("jwt secret must be at least 32 bytes")
)

// Claims identify the caller of a request.
type Claims struct {
	UserID    uuid.UUID
	Role      string
	TokenID   string
	ExpiresAt time.Time
}

// RevocationList answers whether a token id was revoked at logout.
type RevocationList interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

const tokenBlacklistPrefix = "auth:token:blacklist:"

type redisRevocations struct {
	rdb *redis.Client
}

func NewRedisRevocations(rdb *redis.Client) RevocationList {
	return &redisRevocations{rdb: rdb}
}

func (r *redisRevocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.rdb.Exists(ctx, tokenBlacklistPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type Verifier struct {
	secret      []byte
	revocations RevocationList
}

// NewVerifier builds a HS256 verifier. revocations may be nil.
func NewVerifier(secret string, revocations RevocationList) (*Verifier, error) {
	if len(secret) < 32 {
		return nil, ErrWeakSecretKey
	}
	return &Verifier{secret: []byte(secret), revocations: revocations}, nil
}

type jwtClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func (v *Verifier) ParseToken(ctx context.Context, token string) (Claims, error) {
	raw := strings.TrimSpace(token)
	if raw == "" {
		return Claims{}, ErrEmptyToken
	}

	parsed := &jwtClaims{}
	parsedToken, err := jwt.ParseWithClaims(raw, parsed, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpiredToken
		}
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsedToken.Valid {
		return Claims{}, ErrInvalidToken
	}

	userID, err := uuid.Parse(parsed.UserID)
	if err != nil || userID == uuid.Nil {
		return Claims{}, fmt.Errorf("%w: user_id missing", ErrInvalidToken)
	}
	switch parsed.Role {
	case RoleAdmin, RoleReviewer, RoleWorker:
	default:
		return Claims{}, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, parsed.Role)
	}
	if parsed.ExpiresAt == nil {
		return Claims{}, fmt.Errorf("%w: exp missing", ErrInvalidToken)
	}

	claims := Claims{
		UserID:    userID,
		Role:      parsed.Role,
		TokenID:   parsed.ID,
		ExpiresAt: parsed.ExpiresAt.Time,
	}

	// an unreachable blacklist does not lock everyone out
	if claims.TokenID != "" && v.revocations != nil {
		if revoked, err := v.revocations.IsRevoked(ctx, claims.TokenID); err == nil && revoked {
			return Claims{}, ErrRevokedToken
		}
	}
	return claims, nil
}

// IssueToken signs a token for userID. Tokens are normally issued by the auth
// service; this is used by tooling and tests.
func (v *Verifier) IssueToken(userID uuid.UUID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwtClaims{
		UserID: userID.String(),
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

type claimsKey struct{}

func withClaims(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

func claimsFrom(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(Claims)
	return claims, ok
}

func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", errors.New("authorization header missing")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", errors.New("authorization header must be Bearer token")
	}
	return strings.TrimSpace(parts[1]), nil
}

// authorize wraps h so it only runs for callers holding one of roles.
// No roles means any authenticated caller.
func (v *Verifier) authorize(h http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		claims, err := v.ParseToken(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		if len(roles) > 0 && !hasRole(claims.Role, roles) {
			writeError(w, http.StatusForbidden, fmt.Sprintf("role %s may not perform this action", claims.Role))
			return
		}
		h(w, r.WithContext(withClaims(r.Context(), claims)))
	}
}

func hasRole(role string, allowed []string) bool {
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}
