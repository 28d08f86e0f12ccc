package solana

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize_RedactsAPIKey(t *testing.T) {
	in := "POST https://api.helius.xyz/v0/transactions?api-key=sk_live_abcdef123456 failed"
	out := sanitize(in)
	assert.Contains(t, out, "api-key=REDACTED")
	assert.NotContains(t, out, "sk_live_abcdef123456")
}

func TestSanitize_DropsStackTrace(t *testing.T) {
	in := "request failed: timeout\ngoroutine 1 [running]:\nmain.main()"
	out := sanitize(in)
	assert.Equal(t, "request failed: timeout", out)
}

func TestClassifyHTTPError(t *testing.T) {
	cases := []struct {
		name          string
		status        int
		body          string
		wantRetryable bool
	}{
		{"rate limited", 429, "too many requests", true},
		{"server error", 503, "service unavailable", true},
		{"invalid param", 400, "Invalid param: mint", false},
		{"wrong size", 400, "WrongSize: expected 32 bytes", false},
		{"other 4xx", 404, "not found", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := classifyHTTPError(tc.status, tc.body)
			assert.Error(t, err)
			isNonRetryable := err != nil && errorsIs(err)
			assert.Equal(t, !tc.wantRetryable, isNonRetryable)
		})
	}
}

func errorsIs(err error) bool {
	return err != nil && (err == ErrNonRetryable || containsNonRetryable(err))
}

func containsNonRetryable(err error) bool {
	for err != nil {
		if err == ErrNonRetryable {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func TestIsValidBase58(t *testing.T) {
	assert.True(t, IsValidBase58("So11111111111111111111111111111111111111112"))
	assert.False(t, IsValidBase58(""))
	assert.False(t, IsValidBase58("not-base58!!!"))
}
