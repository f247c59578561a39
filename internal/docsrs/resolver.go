package docsrs

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/dangattringer/rust-rag/internal/crate"
	"github.com/dangattringer/rust-rag/internal/logger"
	"github.com/dangattringer/rust-rag/internal/transport"
)

const titleSelector = "h1#crate-title"

// Getter fetches a page as text.
type Getter interface {
	Get(ctx context.Context, url string) (string, error)
}

// Resolver finds the version of a crate to download.
type Resolver struct {
	client  Getter
	baseURL string
	logger  zerolog.Logger
}

// NewResolver creates a resolver against baseURL.
func NewResolver(client Getter, baseURL string, logger zerolog.Logger) *Resolver {
	return &Resolver{
		client:  client,
		baseURL: baseURL,
		logger:  logger,
	}
}

// ResolveLatest returns the latest published version of name.
func (r *Resolver) ResolveLatest(ctx context.Context, name string) (string, error) {
	pageURL := LatestURL(r.baseURL, name)

	body, err := r.client.Get(ctx, pageURL)
	if err != nil {
		return "", classify(ctx, err, name, "", pageURL, "crate not found")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", &crate.NotFoundError{Name: name, URL: pageURL, Reason: "unreadable metadata page", Err: crate.ErrNoVersion}
	}

	title := doc.Find(titleSelector).First()
	if title.Length() == 0 {
		return "", &crate.NotFoundError{Name: name, URL: pageURL, Reason: "no crate title on metadata page", Err: crate.ErrNoVersion}
	}

	version, ok := crate.ExtractVersion(title.Text())
	if !ok {
		return "", &crate.NotFoundError{Name: name, URL: pageURL, Reason: "no version in crate title", Err: crate.ErrNoVersion}
	}

	log := logger.ForRun(ctx, r.logger)
	log.Debug().
		Str("latest", version).
		Msg("Resolved latest version")

	return version, nil
}

// Resolve builds a Crate ready for download. Without a requested version
// the latest one is used. With one, the latest version is still looked up
// for reporting, but the requested version is what gets downloaded.
func (r *Resolver) Resolve(ctx context.Context, name, requested string) (*crate.Crate, error) {
	c, err := crate.New(name, requested)
	if err != nil {
		return nil, err
	}
	if c.RequestedVersion != "" {
		if err := crate.ValidateVersion(c.RequestedVersion); err != nil {
			return nil, err
		}
	}

	log := logger.ForRun(ctx, r.logger)

	latest, err := r.ResolveLatest(ctx, c.Name())
	switch {
	case err == nil:
		c.LatestVersion = latest
	case c.RequestedVersion != "" && errors.Is(err, crate.ErrNoVersion):
		// The page exists but names no version; the requested one still can.
		log.Warn().
			Err(err).
			Str("requested", c.RequestedVersion).
			Msg("Latest version unavailable, continuing with requested version")
	default:
		return nil, err
	}

	if c.RequestedVersion == "" {
		c.Version = latest
		return c, nil
	}

	c.Version = c.RequestedVersion
	if latest != "" && latest != c.RequestedVersion {
		log.Warn().
			Str("requested", c.RequestedVersion).
			Str("latest", latest).
			Msg(crate.DescribeMismatch(c.RequestedVersion, latest))
	}
	return c, nil
}

// classify maps a transport error to a crate error kind. Cancellation is
// returned as is: it is the caller's decision, not a network failure.
func classify(ctx context.Context, err error, name, version, url, notFoundReason string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var statusErr *transport.StatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode == http.StatusNotFound {
			return &crate.NotFoundError{Name: name, Version: version, URL: url, Reason: notFoundReason}
		}
		return &crate.TransientNetworkError{
			Name:       name,
			Version:    version,
			URL:        url,
			StatusCode: statusErr.StatusCode,
			Err:        err,
		}
	}
	return &crate.TransientNetworkError{Name: name, Version: version, URL: url, Err: err}
}
