package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageCatalogDefaults(t *testing.T) {
	catalog, err := NewMessageCatalog("en", nil)
	require.NoError(t, err)
	assert.Equal(t, "en", catalog.Locale())
	assert.NotEmpty(t, catalog.Lookup(MessageKeyFetchFailed))
	assert.NotEmpty(t, catalog.Lookup(MessageKeyRequestFailed))
	assert.Empty(t, catalog.Lookup("messages.unknown"))
}

func TestMessageCatalogOverrides(t *testing.T) {
	catalog, err := NewMessageCatalog("xx", map[string]string{
		MessageKeyRequestFailed: "Already requested",
		"custom.key":            "Custom",
	})
	require.NoError(t, err)
	assert.Equal(t, "en", catalog.Locale())
	assert.Equal(t, "Already requested", catalog.Lookup(MessageKeyRequestFailed))
	assert.Equal(t, "Custom", catalog.Lookup("custom.key"))
}

func TestMessageCatalogNilSafe(t *testing.T) {
	var catalog *TranslatorCatalog
	assert.Empty(t, catalog.Lookup(MessageKeyFetchFailed))
}
