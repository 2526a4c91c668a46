package service

import (
	"context"
	"net/url"
	"strings"
	"time"

	appErrors "github.com/noah-isme/ondemand-reports-api/pkg/errors"
)

// LinkOpener turns an upstream download URL into the link handed to the user.
type LinkOpener interface {
	Open(ctx context.Context, requestID, target string) (string, error)
}

type linkSigner interface {
	Generate(requestID, target string) (string, time.Time, error)
	Parse(token string) (string, string, error)
}

// SignedLinkOpener issues short-lived signed links served by the open-link route.
type SignedLinkOpener struct {
	signer   linkSigner
	basePath string
}

// NewSignedLinkOpener constructs an opener whose links live under basePath.
func NewSignedLinkOpener(signer linkSigner, basePath string) *SignedLinkOpener {
	return &SignedLinkOpener{signer: signer, basePath: strings.TrimRight(basePath, "/")}
}

// Open implements LinkOpener.
func (o *SignedLinkOpener) Open(_ context.Context, requestID, target string) (string, error) {
	if _, err := url.ParseRequestURI(target); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid download url")
	}
	token, _, err := o.signer.Generate(requestID, target)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}
	return o.basePath + "/" + token, nil
}

// Resolve returns the download URL behind token.
func (o *SignedLinkOpener) Resolve(token string) (string, error) {
	_, target, err := o.signer.Parse(token)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "download link invalid or expired")
	}
	return target, nil
}

// DirectLinkOpener hands out the upstream URL unchanged.
type DirectLinkOpener struct{}

// Open implements LinkOpener.
func (DirectLinkOpener) Open(_ context.Context, _ string, target string) (string, error) {
	return target, nil
}
