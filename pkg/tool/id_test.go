package tool

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateCouponCode_PrefixAndLength(t *testing.T) {
	code := GenerateCouponCode("SPIN", 6)
	require.True(t, strings.HasPrefix(code, "SPIN-"))
	require.Len(t, code, len("SPIN-")+6)
	for _, r := range strings.TrimPrefix(code, "SPIN-") {
		require.True(t, strings.ContainsRune(couponAlphabet, r), "unexpected rune %q", r)
	}
}

func TestGenerateCouponCode_DefaultLengthWithoutPrefix(t *testing.T) {
	code := GenerateCouponCode("", 0)
	require.Len(t, code, 6)
	require.NotContains(t, code, "-")
}

func TestGenerateUUIDV7_Unique(t *testing.T) {
	require.NotEqual(t, GenerateUUIDV7(), GenerateUUIDV7())
}
