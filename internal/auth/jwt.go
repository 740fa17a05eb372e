// Package auth issues and verifies join capabilities: short-lived HS256 tokens
// minted by the REST layer that allow one connection to join one room as one role.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"relay/internal/core/domain/model/kernel"
)

// AnyRoom in the room claim lets an admin capability join every room.
const AnyRoom = "*"

var (
	ErrAuthDisabled = errors.New("join capabilities are disabled")
	ErrInvalidToken = errors.New("invalid join capability")
)

// Claims is the capability payload. Subject is the identifier the holder acts as.
type Claims struct {
	Role string `json:"role"`
	Room string `json:"room"`
	jwt.RegisteredClaims
}

// CapabilityService signs and verifies join capabilities.
type CapabilityService struct {
	secret []byte
	expiry time.Duration
}

func NewCapabilityService(secret string, expiry time.Duration) *CapabilityService {
	return &CapabilityService{secret: []byte(secret), expiry: expiry}
}

// Enabled reports whether a secret is configured.
func (s *CapabilityService) Enabled() bool {
	return s != nil && len(s.secret) > 0
}

// Issue signs a capability for subject to join room as role.
func (s *CapabilityService) Issue(subject string, role kernel.Role, room string) (string, error) {
	if !s.Enabled() {
		return "", ErrAuthDisabled
	}
	if strings.TrimSpace(subject) == "" {
		return "", errors.New("subject required")
	}

	now := time.Now()
	claims := Claims{
		Role: role.String(),
		Room: room,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	}
	if s.expiry <= 0 {
		claims.ExpiresAt = nil
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify parses and validates a capability.
func (s *CapabilityService) Verify(token string) (*Claims, error) {
	if !s.Enabled() {
		return nil, ErrAuthDisabled
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyJoin checks that token grants role on room. Only admin capabilities may
// carry AnyRoom.
func (s *CapabilityService) VerifyJoin(token string, role kernel.Role, room kernel.RoomKey) error {
	claims, err := s.Verify(token)
	if err != nil {
		return err
	}
	if claims.Role != role.String() {
		return ErrInvalidToken
	}
	if claims.Room == room.String() {
		return nil
	}
	if claims.Room == AnyRoom && role == kernel.RoleAdmin {
		return nil
	}
	return ErrInvalidToken
}
