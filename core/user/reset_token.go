package user

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/mamamind47/sfa-efilling-sub001/core"
)

var (
	resetSalt = []byte("sfa-efiling.core.user.reset_token")
	b32       = base32.StdEncoding.WithPadding(base32.NoPadding)

	errInvalidToken = errors.New("invalid token")
	errTokenExpired = errors.New("token expired")
)

// resetTokens issues password reset tokens of the form `<base32 day>-<signature>`.
// The signature covers the password hash and the last login, so a token stops
// working once the password changes or the user logs in.
type resetTokens struct {
	secret  []byte
	timeout time.Duration
}

// EncodeUID base64 encodes the ID of usr for password reset links.
func EncodeUID(usr User) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatInt(usr.ID, 10)))
}

func decodeUID(uid string) (int64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(string(raw), 10, 64)
}

func (rt resetTokens) make(usr User) string {
	return rt.makeWithDay(usr, daysSince2001(core.NowFunc()))
}

func (rt resetTokens) verify(usr User, token string) error {
	parts := strings.SplitN(token, "-", 2)
	if token == "" || len(parts) < 2 {
		return errInvalidToken
	}
	data, err := b32.DecodeString(parts[0])
	if err != nil {
		return errInvalidToken
	}
	day, err := strconv.Atoi(string(data))
	if err != nil {
		return errInvalidToken
	}

	if subtle.ConstantTimeCompare([]byte(rt.makeWithDay(usr, day)), []byte(token)) == 0 {
		return errInvalidToken
	}
	if daysSince2001(core.NowFunc())-day > int(rt.timeout/(24*time.Hour)) {
		return errTokenExpired
	}
	return nil
}

func (rt resetTokens) makeWithDay(usr User, day int) string {
	return b32.EncodeToString([]byte(strconv.Itoa(day))) + "-" + rt.sign(hashValue(usr, day))
}

func (rt resetTokens) sign(val []byte) string {
	key := sha256.Sum256(append(append([]byte(nil), resetSalt...), rt.secret...))
	h := hmac.New(sha256.New, key[:])
	h.Write(val)
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func daysSince2001(t time.Time) int {
	ref := time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	return int(math.Ceil(t.Sub(ref).Hours() / 24))
}

func hashValue(usr User, day int) []byte {
	var val bytes.Buffer
	val.WriteString(strconv.FormatInt(usr.ID, 10))
	val.Write(usr.PasswordHash)
	if usr.LastLogin.Valid {
		val.WriteString(usr.LastLogin.Time.UTC().Format(time.RFC3339Nano))
	}
	val.WriteString(strconv.Itoa(day))
	return val.Bytes()
}
