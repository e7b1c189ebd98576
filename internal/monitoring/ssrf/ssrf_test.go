package ssrf

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/priceping/priceping/internal/monitoring/checkerr"
)

func TestValidate_AllowsPublicHosts(t *testing.T) {
	for _, raw := range []string{
		"https://example.com/product/42",
		"http://shop.example.co.uk",
		"https://8.8.8.8/page",
		"https://169.253.1.1", // close to link-local but outside it
	} {
		u, err := Validate(raw)
		require.NoError(t, err, raw)
		require.NotNil(t, u)
	}
}

func TestValidate_BlocksPrivateAndReserved(t *testing.T) {
	cases := []string{
		"http://localhost/admin",
		"http://LOCALHOST:8080",
		"http://127.0.0.1",
		"http://127.255.0.1",
		"http://10.0.0.5",
		"http://172.16.0.1",
		"http://172.31.255.255",
		"http://192.168.1.1",
		"http://0.0.0.0",
		"http://169.254.169.254/latest/meta-data/",
		"http://metadata.google.internal/computeMetadata/v1/",
		"http://224.0.0.1",
		"http://[::1]/",
		"http://[fe80::1]/",
		"http://[fc00::1]/",
		"http://[fd00::1]/",
	}
	for _, raw := range cases {
		_, err := Validate(raw)
		require.Error(t, err, raw)
		assert.Equal(t, checkerr.KindBlockedBySite, checkerr.KindOf(err), raw)
	}
}

func TestValidate_Boundaries172Range(t *testing.T) {
	// only 172.16-31 is private
	_, err := Validate("http://172.15.0.1")
	assert.NoError(t, err)
	_, err = Validate("http://172.32.0.1")
	assert.NoError(t, err)
}

func TestValidate_SchemeAndParseFailures(t *testing.T) {
	_, err := Validate("ftp://example.com/file")
	var ce *checkerr.Error
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, checkerr.KindUnsupportedScheme, ce.Kind)

	_, err = Validate("javascript:alert(1)")
	assert.Equal(t, checkerr.KindUnsupportedScheme, checkerr.KindOf(err))

	_, err = Validate("http://")
	assert.Equal(t, checkerr.KindInvalidURL, checkerr.KindOf(err))

	_, err = Validate("://no-scheme")
	assert.Error(t, err)
}

func TestIsBlocked_FailsClosed(t *testing.T) {
	assert.True(t, IsBlocked("not a url at all\x7f"))
	assert.True(t, IsBlocked(""))
	assert.False(t, IsBlocked("https://example.com"))
}
