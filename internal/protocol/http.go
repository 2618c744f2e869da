package protocol

import (
	"context"

	"github.com/crane-dl/crane/internal/analyzer"
	"github.com/crane-dl/crane/internal/types"
)

// HTTPHandler implements Handler for http/https URLs.
type HTTPHandler struct{}

func (HTTPHandler) Analyze(ctx context.Context, rawURL string) (*types.UrlAnalysis, error) {
	return analyzer.AnalyzeURL(ctx, rawURL)
}

// Download is never invoked in practice: the queue manager fetches
// HTTP(S) downloads through internal/engine directly so it can plan
// chunks and wire bandwidth limiting, rather than through this
// single-shot interface. It returns an explicit error instead of
// panicking so a future caller that does reach it fails cleanly.
func (HTTPHandler) Download(ctx context.Context, rawURL, savePath string, opts types.DownloadOptions) (*types.DownloadResult, error) {
	return nil, types.NewError(types.ErrInvalidState, "HTTP downloads run through the engine directly, not ProtocolHandler.Download")
}

func (HTTPHandler) SupportsMultiConnection() bool { return true }
