package fingerprint

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// Generator produces deterministic correlation tokens binding a signature
// attempt's metadata. Tokens are an audit aid, not an authorization check:
// investigators use them to correlate committed signatures with the attempt
// log after the fact.
type Generator struct {
	secret []byte
}

func New(secret string) *Generator {
	return &Generator{secret: []byte(secret)}
}

const delimiter = "\x1f"

// Generate returns the hex HMAC-SHA256 over (phone, ip, userAgent,
// timestamp). The same inputs always yield the same token; any change to
// the timestamp yields a different one, so replayed metadata never matches
// an earlier token.
func (g *Generator) Generate(phone, ip, userAgent string, ts time.Time) string {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(strings.Join([]string{
		phone,
		ip,
		userAgent,
		strconv.FormatInt(ts.UnixMilli(), 10),
	}, delimiter)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the token for the given inputs and compares it to the
// candidate in constant time.
func (g *Generator) Verify(token, phone, ip, userAgent string, ts time.Time) bool {
	expected := g.Generate(phone, ip, userAgent, ts)
	return hmac.Equal([]byte(expected), []byte(token))
}
