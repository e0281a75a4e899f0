package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/nimashkithmal/NKmoviehub-sub000/internal/models"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

type Claims struct {
	UserID uuid.UUID       `json:"userId"`
	Role   models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

type Auth struct {
	secret    []byte
	expiresIn time.Duration
	now       func() time.Time
}

func NewAuth(secret string, expiresIn time.Duration) (*Auth, error) {
	if secret == "" {
		return nil, fmt.Errorf("auth: jwt secret is required")
	}
	if expiresIn <= 0 {
		return nil, fmt.Errorf("auth: token lifetime must be positive")
	}
	return &Auth{secret: []byte(secret), expiresIn: expiresIn, now: time.Now}, nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GenerateToken signs a bearer token for the user and returns it with its
// expiry.
func (a *Auth) GenerateToken(user *models.User) (string, time.Time, error) {
	now := a.now()
	exp := now.Add(a.expiresIn)
	claims := Claims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (a *Auth) ValidateToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == uuid.Nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

var roleRank = map[models.UserRole]int{
	models.RoleUser:  1,
	models.RoleAdmin: 2,
}

// CheckPermission reports whether role meets required. Admins pass user checks.
func (a *Auth) CheckPermission(role, required models.UserRole) bool {
	have, ok := roleRank[role]
	if !ok {
		return false
	}
	return have >= roleRank[required]
}
