package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("jwt-manager")

const issuer = "workflow-orchestrator"

// JWTManager issues and validates the tokens that bind a browser to its
// session.
type JWTManager struct {
	signingKey string
	algorithm  string
	keyID      string
	tracer     trace.Tracer
}

// Claims represents the JWT claims of a session token
type Claims struct {
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// NewJWTManager creates a JWT manager signing with secret
func NewJWTManager(secret string) (*JWTManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("session token secret is required")
	}

	return &JWTManager{
		signingKey: secret,
		algorithm:  "HS256",
		keyID:      "default",
		tracer:     tracer,
	}, nil
}

// GenerateToken issues a token for sessionID valid for duration
func (jm *JWTManager) GenerateToken(ctx context.Context, sessionID string, duration time.Duration) (string, time.Time, error) {
	_, span := jm.tracer.Start(ctx, "jwt.generate_token")
	defer span.End()

	span.SetAttributes(attribute.String("session.id", sessionID))

	now := time.Now()
	expiresAt := now.Add(duration)
	claims := &Claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   sessionID,
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.GetSigningMethod(jm.algorithm), claims)
	token.Header["kid"] = jm.keyID

	tokenString, err := token.SignedString([]byte(jm.signingKey))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	span.SetAttributes(
		attribute.String("jwt.id", claims.ID),
		attribute.String("jwt.expires_at", claims.ExpiresAt.String()),
	)

	return tokenString, expiresAt, nil
}

// ValidateToken validates a session token
func (jm *JWTManager) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	_, span := jm.tracer.Start(ctx, "jwt.validate_token")
	defer span.End()

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jm.algorithm {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		if kid, ok := token.Header["kid"].(string); ok && kid != jm.keyID {
			span.SetAttributes(attribute.String("jwt.kid_mismatch", kid))
		}
		return []byte(jm.signingKey), nil
	}, jwt.WithIssuer(issuer))

	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, fmt.Errorf("invalid token claims")
	}

	span.SetAttributes(
		attribute.String("session.id", claims.SessionID),
		attribute.String("jwt.id", claims.ID),
	)

	return claims, nil
}

// RefreshToken issues a new token for the session of a still valid token
func (jm *JWTManager) RefreshToken(ctx context.Context, tokenString string, duration time.Duration) (string, time.Time, error) {
	ctx, span := jm.tracer.Start(ctx, "jwt.refresh_token")
	defer span.End()

	claims, err := jm.ValidateToken(ctx, tokenString)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("cannot refresh invalid token: %w", err)
	}

	return jm.GenerateToken(ctx, claims.SessionID, duration)
}
