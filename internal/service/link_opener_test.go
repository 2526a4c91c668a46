package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/ondemand-reports-api/pkg/errors"
	"github.com/noah-isme/ondemand-reports-api/pkg/storage"
)

func TestSignedLinkOpenerRoundTrip(t *testing.T) {
	opener := NewSignedLinkOpener(storage.NewSignedURLSigner("secret", time.Minute), "/api/v1/reports/open/")

	link, err := opener.Open(context.Background(), "r1", "https://files.example.com/r1.csv")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(link, "/api/v1/reports/open/"))

	target, err := opener.Resolve(strings.TrimPrefix(link, "/api/v1/reports/open/"))
	require.NoError(t, err)
	assert.Equal(t, "https://files.example.com/r1.csv", target)
}

func TestSignedLinkOpenerRejectsBadInput(t *testing.T) {
	opener := NewSignedLinkOpener(storage.NewSignedURLSigner("secret", time.Minute), "/open")

	_, err := opener.Open(context.Background(), "r1", "not a url")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))

	_, err = opener.Resolve("garbage")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestDirectLinkOpener(t *testing.T) {
	link, err := DirectLinkOpener{}.Open(context.Background(), "r1", "https://x/y.csv")
	require.NoError(t, err)
	assert.Equal(t, "https://x/y.csv", link)
}
