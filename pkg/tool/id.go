package tool

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

func GenerateUUIDV7() string {
	return uuid.Must(uuid.NewV7()).String()
}

const couponAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateCouponCode returns prefix + "-" + n random characters from an
// alphabet without look-alike glyphs, e.g. SPIN-7KQ2ZD.
func GenerateCouponCode(prefix string, n int) string {
	if n <= 0 {
		n = 6
	}
	var b strings.Builder
	if prefix != "" {
		b.WriteString(prefix)
		b.WriteByte('-')
	}
	size := big.NewInt(int64(len(couponAlphabet)))
	for i := 0; i < n; i++ {
		v, err := rand.Int(rand.Reader, size)
		if err != nil {
			// crypto/rand does not fail on supported platforms; fall back to uuid entropy
			v = big.NewInt(int64(uuid.New()[i%16]) % size.Int64())
		}
		b.WriteByte(couponAlphabet[v.Int64()])
	}
	return b.String()
}
