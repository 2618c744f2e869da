// Package analyzer probes a URL before a download starts: size, MIME
// type, resumability, server-suggested filename, and category. It never
// downloads the body — HEAD first, falling back to a 1-byte range GET
// for servers that reject or mishandle HEAD.
package analyzer

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/crane-dl/crane/internal/mimecat"
	"github.com/crane-dl/crane/internal/safety"
	"github.com/crane-dl/crane/internal/sanitize"
	"github.com/crane-dl/crane/internal/types"
	"github.com/crane-dl/crane/internal/utils"
	"github.com/vfaronov/httpheader"
)

const (
	connectTimeout = 10 * time.Second
	overallTimeout = 30 * time.Second
)

// newClient builds an http.Client bounded by overallTimeout and guarded
// by the SSRF-safe redirect policy; connectTimeout governs only the TCP
// handshake via the dialer embedded in http.DefaultTransport's clone.
func newClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: connectTimeout}).DialContext
	return &http.Client{
		Timeout:       overallTimeout,
		Transport:     transport,
		CheckRedirect: safety.SafeRedirectPolicy(),
	}
}

// AnalyzeURL validates rawURL against the SSRF filter, then probes it
// over HTTP(S): HEAD first, falling back to a Range: bytes=0-0 GET when
// the HEAD request errors or returns a non-2xx status. If the response
// used for analysis is still non-2xx, AnalyzeURL returns an HTTP error.
func AnalyzeURL(ctx context.Context, rawURL string) (*types.UrlAnalysis, error) {
	if err := safety.Validate(rawURL); err != nil {
		return nil, err
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, types.WrapError(types.ErrURLParse, "malformed URL", err)
	}

	client := newClient()

	resp, err := probe(ctx, client, rawURL, http.MethodHead)
	if err != nil || !isSuccess(resp.StatusCode) {
		if err == nil {
			resp.Body.Close()
		}
		utils.Debug("analyzer: HEAD unusable for %s, falling back to range GET", rawURL)
		resp, err = probeRange(ctx, client, rawURL)
		if err != nil {
			return nil, types.WrapError(types.ErrNetwork, "probe request failed", err)
		}
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return nil, types.NewHTTPError(resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	effectiveURL := u
	if resp.Request != nil && resp.Request.URL != nil {
		effectiveURL = resp.Request.URL
	}

	analysis := &types.UrlAnalysis{URL: effectiveURL.String()}
	applyResponse(analysis, resp)
	resolveFilename(analysis, resp, effectiveURL)
	resolveCategory(analysis)

	return analysis, nil
}

func isSuccess(status int) bool { return status >= 200 && status < 300 }

// probe issues method against rawURL and returns the response as is;
// callers must Close its body.
func probe(ctx context.Context, client *http.Client, rawURL, method string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return client.Do(req)
}

// probeRange issues a single-byte range GET, the fallback used when the
// HEAD request fails or returns a non-2xx status.
func probeRange(ctx context.Context, client *http.Client, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Range", "bytes=0-0")
	return client.Do(req)
}

// applyResponse fills in size, MIME type, resumability, and the server
// header from resp. For a 206 response the size comes from Content-Range
// (Content-Length on a ranged response is just the range size, not the
// total); for 200 it comes straight from Content-Length.
func applyResponse(analysis *types.UrlAnalysis, resp *http.Response) {
	if server := resp.Header.Get("Server"); server != "" {
		analysis.Server = &server
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mime := strings.TrimSpace(strings.SplitN(ct, ";", 2)[0])
		if mime != "" {
			analysis.MimeType = &mime
		}
	}

	usedRangeGet := resp.StatusCode == http.StatusPartialContent
	if usedRangeGet {
		if total, ok := parseContentRangeTotal(resp.Header.Get("Content-Range")); ok {
			analysis.TotalSize = &total
		}
	} else if cl := resp.ContentLength; cl >= 0 {
		analysis.TotalSize = &cl
	}

	accept := strings.Contains(strings.ToLower(resp.Header.Get("Accept-Ranges")), "bytes")
	analysis.Resumable = usedRangeGet || accept
}

// parseContentRangeTotal extracts TOTAL from a "bytes START-END/TOTAL"
// header value. A "*" total (size unknown) reports ok=false.
func parseContentRangeTotal(value string) (int64, bool) {
	value = strings.TrimPrefix(strings.TrimSpace(value), "bytes ")
	parts := strings.SplitN(value, "/", 2)
	if len(parts) != 2 {
		return 0, false
	}
	if parts[1] == "*" {
		return 0, false
	}
	total, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return 0, false
	}
	return total, true
}

// resolveFilename applies the priority order: Content-Disposition (RFC
// 5987 extended or plain quoted form), then the URL's last path segment,
// then "download" — each candidate passed through sanitize.Sanitize.
func resolveFilename(analysis *types.UrlAnalysis, resp *http.Response, u *url.URL) {
	if _, name, err := httpheader.ContentDisposition(resp.Header); err == nil && name != "" {
		analysis.Filename = sanitize.Sanitize(name)
		return
	}

	if base := path.Base(u.Path); base != "" && base != "." && base != "/" {
		if decoded, err := url.PathUnescape(base); err == nil {
			analysis.Filename = sanitize.Sanitize(decoded)
			return
		}
		analysis.Filename = sanitize.Sanitize(base)
		return
	}

	analysis.Filename = sanitize.Sanitize("")
}

// resolveCategory derives the FileCategory from the MIME type first,
// falling back to the filename's extension when the MIME type yields
// CategoryOther (a generic or absent Content-Type).
func resolveCategory(analysis *types.UrlAnalysis) {
	if analysis.MimeType != nil {
		if cat := mimecat.CategorizeMime(*analysis.MimeType); cat != types.CategoryOther {
			analysis.Category = cat
			return
		}
	}
	analysis.Category = mimecat.CategorizeExtension(analysis.Filename)
}
