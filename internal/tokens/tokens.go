package tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const PurposeForgotPassword = "forgotPassword"

var (
	ErrEmptySecret    = errors.New("signing secret is empty")
	ErrWrongPurpose   = errors.New("token purpose mismatch")
	ErrUnexpectedSign = errors.New("unexpected sign method")
)

type AuthClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type ResetClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

type Signer struct {
	AuthSecret  []byte
	ResetSecret []byte
	AuthTTL     time.Duration
	ResetTTL    time.Duration
	now         func() time.Time
}

func NewSigner(authSecret, resetSecret []byte, authTTL, resetTTL time.Duration) *Signer {
	return &Signer{
		AuthSecret:  authSecret,
		ResetSecret: resetSecret,
		AuthTTL:     authTTL,
		ResetTTL:    resetTTL,
		now:         time.Now,
	}
}

func (s *Signer) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

// SignAuth returns a login token for userID and its expiry.
func (s *Signer) SignAuth(userID, role string) (string, time.Time, error) {
	if len(s.AuthSecret) == 0 {
		return "", time.Time{}, ErrEmptySecret
	}
	iat := s.clock()
	exp := iat.Add(s.AuthTTL)
	claims := AuthClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tkn, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.AuthSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tkn, exp, nil
}

// SignReset returns a time-boxed password reset token bound to userID.
func (s *Signer) SignReset(userID string) (string, time.Time, error) {
	if len(s.ResetSecret) == 0 {
		return "", time.Time{}, ErrEmptySecret
	}
	iat := s.clock()
	exp := iat.Add(s.ResetTTL)
	claims := ResetClaims{
		Purpose: PurposeForgotPassword,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tkn, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.ResetSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tkn, exp, nil
}

// VerifyReset parses a reset token signed by s.
func (s *Signer) VerifyReset(tokenStr string) (*ResetClaims, error) {
	return ResetClaimsFromToken(tokenStr, s.ResetSecret)
}

func AuthClaimsFromToken(tokenStr string, secret []byte) (*AuthClaims, error) {
	var claims AuthClaims
	if err := parse(tokenStr, secret, &claims); err != nil {
		return nil, err
	}
	return &claims, nil
}

func ResetClaimsFromToken(tokenStr string, secret []byte) (*ResetClaims, error) {
	var claims ResetClaims
	if err := parse(tokenStr, secret, &claims); err != nil {
		return nil, err
	}
	if claims.Purpose != PurposeForgotPassword {
		return nil, ErrWrongPurpose
	}
	return &claims, nil
}

func parse(tokenStr string, secret []byte, claims jwt.Claims) error {
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrUnexpectedSign
		}
		return secret, nil
	})
	if err != nil {
		return err
	}
	if !tkn.Valid {
		return jwt.ErrTokenInvalidClaims
	}
	return nil
}
