package authorization

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

// SuperAdminRole is granted every permission without a lookup
const SuperAdminRole = "Super Admin"

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// Claims are the JWT claims issued to back-office users
type Claims struct {
	Name        string   `json:"name,omitempty"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

type AuthorizationService struct {
	DB     *gorm.DB
	secret []byte

	mu    sync.RWMutex
	roles map[string]map[string]bool
}

func NewAuthorizationService(db *gorm.DB, secret string) *AuthorizationService {
	return &AuthorizationService{
		DB:     db,
		secret: []byte(secret),
		roles:  make(map[string]map[string]bool),
	}
}

// IssueToken signs an HS256 token for subject with the given role
func (s *AuthorizationService) IssueToken(subject, name, role string, ttl time.Duration) (string, error) {
	if len(s.secret) == 0 {
		return "", errors.New("JWT secret is not configured")
	}
	now := time.Now()
	claims := Claims{
		Name: name,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ParseToken validates an HS256 token and returns its claims
func (s *AuthorizationService) ParseToken(raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrMissingToken
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// RolePermissions returns the "resource:action" keys granted to role. Results
// are cached until InvalidateRoles.
func (s *AuthorizationService) RolePermissions(role string) (map[string]bool, error) {
	s.mu.RLock()
	perms, ok := s.roles[role]
	s.mu.RUnlock()
	if ok {
		return perms, nil
	}

	var r Role
	err := s.DB.Preload("Permissions").Where("name = ?", role).First(&r).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load role %s: %w", role, err)
	}

	perms = make(map[string]bool, len(r.Permissions))
	for _, p := range r.Permissions {
		perms[p.Key()] = true
	}

	s.mu.Lock()
	s.roles[role] = perms
	s.mu.Unlock()
	return perms, nil
}

// InvalidateRoles drops the role permission cache
func (s *AuthorizationService) InvalidateRoles() {
	s.mu.Lock()
	s.roles = make(map[string]map[string]bool)
	s.mu.Unlock()
}

// HasPermission reports whether claims allow action on resource. Permissions
// carried in the token are honoured in addition to the role's.
func (s *AuthorizationService) HasPermission(claims *Claims, resource, action string) (bool, error) {
	if claims == nil {
		return false, nil
	}
	if claims.Role == SuperAdminRole {
		return true, nil
	}

	key := resource + ":" + action
	for _, p := range claims.Permissions {
		if p == key || p == resource+":*" {
			return true, nil
		}
	}

	perms, err := s.RolePermissions(claims.Role)
	if err != nil {
		return false, err
	}
	return perms[key], nil
}

// Permissions lists the effective permission keys of claims
func (s *AuthorizationService) Permissions(claims *Claims) ([]string, error) {
	set := make(map[string]bool)
	for _, p := range claims.Permissions {
		set[p] = true
	}
	if claims.Role == SuperAdminRole {
		set["*:*"] = true
	} else {
		perms, err := s.RolePermissions(claims.Role)
		if err != nil {
			return nil, err
		}
		for p := range perms {
			set[p] = true
		}
	}

	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

// ListRoles returns every role with its permissions
func (s *AuthorizationService) ListRoles() ([]Role, error) {
	var roles []Role
	if err := s.DB.Preload("Permissions").Order("id").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func bearerToken(header string) string {
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
