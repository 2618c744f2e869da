package protocol

import (
	"context"

	"github.com/crane-dl/crane/internal/types"
)

// FTPHandler is a dispatch placeholder: FTP URLs parse and route
// correctly, but neither analysis nor download is implemented yet.
type FTPHandler struct{}

func (FTPHandler) Analyze(ctx context.Context, rawURL string) (*types.UrlAnalysis, error) {
	return nil, types.NewError(types.ErrInvalidState, "FTP analysis is not implemented")
}

func (FTPHandler) Download(ctx context.Context, rawURL, savePath string, opts types.DownloadOptions) (*types.DownloadResult, error) {
	return nil, types.NewError(types.ErrInvalidState, "FTP download is not implemented")
}

func (FTPHandler) SupportsMultiConnection() bool { return false }
