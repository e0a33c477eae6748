package fetcher

import "errors"

var (
	// ErrInvalidURL indicates that the URL is malformed or uses a scheme other than http/https.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrPrivateIP indicates that the URL resolves to a private, loopback or link-local address.
	ErrPrivateIP = errors.New("URL resolves to private IP address")

	// ErrTooManyRedirects indicates that the redirect limit was exceeded.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrBodyTooLarge indicates that the response exceeded MaxBodySize.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrTimeout indicates that the request exceeded the fetch timeout.
	ErrTimeout = errors.New("fetch timeout")

	// ErrNoContent indicates that no readable text could be extracted from the page.
	ErrNoContent = errors.New("no readable content found")

	// ErrUnsupportedContentType indicates a response that is neither HTML nor plain text.
	ErrUnsupportedContentType = errors.New("unsupported content type")
)
