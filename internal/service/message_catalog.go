package service

import (
	"fmt"

	"github.com/go-playground/locales"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
)

// Message keys used by the report panel.
const (
	MessageKeyFetchFailed   = "messages.fmsg.m0004"
	MessageKeyRequestFailed = "frmelmnts.lbl.requestFailed"
	MessageKeyNoData        = "messages.stmsg.m0007"
)

// MessageCatalog resolves human readable text for message keys.
// Unknown keys resolve to an empty string.
type MessageCatalog interface {
	Lookup(key string) string
}

var defaultMessages = map[string]string{
	MessageKeyFetchFailed:   "Could not fetch data, try again later",
	MessageKeyRequestFailed: "This report has already been requested and is still being generated. Please try again later.",
	MessageKeyNoData:        "There is no data available",
}

// TranslatorCatalog is a MessageCatalog backed by universal-translator.
type TranslatorCatalog struct {
	trans ut.Translator
}

// NewMessageCatalog builds a catalog for locale seeded with the default English
// texts; overrides replace or extend them.
func NewMessageCatalog(locale string, overrides map[string]string) (*TranslatorCatalog, error) {
	fallback := en.New()
	supported := []locales.Translator{fallback}
	uni := ut.New(fallback, supported...)

	trans, found := uni.GetTranslator(locale)
	if !found {
		trans = uni.GetFallback()
	}
	for key, text := range defaultMessages {
		if err := trans.Add(key, text, true); err != nil {
			return nil, fmt.Errorf("register message %s: %w", key, err)
		}
	}
	for key, text := range overrides {
		if err := trans.Add(key, text, true); err != nil {
			return nil, fmt.Errorf("register message %s: %w", key, err)
		}
	}
	return &TranslatorCatalog{trans: trans}, nil
}

// Lookup returns the text for key or "" when the key is unknown.
func (c *TranslatorCatalog) Lookup(key string) string {
	if c == nil || c.trans == nil {
		return ""
	}
	text, err := c.trans.T(key)
	if err != nil {
		return ""
	}
	return text
}

// Locale returns the catalog's locale name.
func (c *TranslatorCatalog) Locale() string {
	if c == nil || c.trans == nil {
		return ""
	}
	return c.trans.Locale()
}
