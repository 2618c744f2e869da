// Package protocol is the scheme-dispatch boundary: given a URL it picks
// the Handler that knows how to analyze and fetch it. Only HTTP(S) is
// wired to the real engine; FTP is a typed stub so the dispatch surface
// is ready without pretending the transport exists yet.
package protocol

import (
	"context"
	"net/url"

	"github.com/crane-dl/crane/internal/types"
)

// Handler analyzes and fetches a URL for one transport scheme.
// Download exists on the interface for completeness with non-HTTP
// schemes; the HTTP implementation in this package is never called
// through it — the queue manager drives HTTP downloads through
// internal/engine directly, since that's where chunk planning and
// retry live.
type Handler interface {
	Analyze(ctx context.Context, rawURL string) (*types.UrlAnalysis, error)
	Download(ctx context.Context, rawURL, savePath string, opts types.DownloadOptions) (*types.DownloadResult, error)
	SupportsMultiConnection() bool
}

// HandlerForURL parses rawURL and returns the Handler for its scheme,
// or an ErrUnsupportedScheme CoreError for anything else.
func HandlerForURL(rawURL string) (Handler, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, types.WrapError(types.ErrURLParse, rawURL, err)
	}

	switch u.Scheme {
	case "http", "https":
		return HTTPHandler{}, nil
	case "ftp", "ftps":
		return FTPHandler{}, nil
	default:
		return nil, types.NewError(types.ErrUnsupportedScheme, u.Scheme)
	}
}
