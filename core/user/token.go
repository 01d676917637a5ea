package user

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const DefaultResetTimeout = 3 * 24 * time.Hour

var (
	salt = []byte("jamii.core.user.token")

	// errors
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	tsEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)
)

// TokenGenerator makes and checks password reset tokens.
// A token stops working once the password it was made for changes.
type TokenGenerator struct {
	key     [sha256.Size]byte
	timeout time.Duration
	now     func() time.Time // mockable
}

func NewTokenGenerator(secret string, timeout time.Duration) *TokenGenerator {
	if timeout <= 0 {
		timeout = DefaultResetTimeout
	}
	return &TokenGenerator{
		key:     sha256.Sum256(append(append([]byte{}, salt...), secret...)),
		timeout: timeout,
		now:     time.Now,
	}
}

// EncodeUID base64 encodes the user ID for use in links.
func EncodeUID(usr User) string {
	return base64.RawURLEncoding.EncodeToString([]byte(usr.ID))
}

func DecodeUID(uid string) (string, error) {
	id, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil || len(id) == 0 {
		return "", ErrInvalidToken
	}
	return string(id), nil
}

// MakeToken generates a password reset token for usr.
func (g *TokenGenerator) MakeToken(usr User) string {
	return g.makeTokenWithTimestamp(usr, numDaysSince2001(g.now()))
}

// VerifyToken checks that token was made for usr and has not expired.
func (g *TokenGenerator) VerifyToken(usr User, token string) error {
	parts := strings.SplitN(token, "-", 2)
	if len(parts) < 2 {
		return ErrInvalidToken
	}

	data, err := tsEncoding.DecodeString(parts[0])
	if err != nil {
		return ErrInvalidToken
	}
	ts, err := strconv.Atoi(string(data))
	if err != nil {
		return ErrInvalidToken
	}

	// check that token has not been tampered with
	if subtle.ConstantTimeCompare([]byte(g.makeTokenWithTimestamp(usr, ts)), []byte(token)) == 0 {
		return ErrInvalidToken
	}

	if numDaysSince2001(g.now())-ts > int(g.timeout/(24*time.Hour)) {
		return ErrTokenExpired
	}
	return nil
}

func (g *TokenGenerator) makeTokenWithTimestamp(usr User, ts int) string {
	return fmt.Sprintf("%s-%s", tsEncoding.EncodeToString([]byte(strconv.Itoa(ts))), g.sign(hashValue(usr, ts)))
}

func (g *TokenGenerator) sign(val []byte) string {
	h := hmac.New(sha256.New, g.key[:])
	h.Write(val) // never fails
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func numDaysSince2001(t time.Time) int {
	ref := time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	return int(math.Ceil(t.Sub(ref).Hours() / 24))
}

func hashValue(usr User, ts int) []byte {
	var val bytes.Buffer
	val.WriteString(usr.ID)
	val.Write(usr.PasswordHash)
	val.WriteString(usr.Email)
	val.WriteString(strconv.Itoa(ts))
	return val.Bytes()
}
