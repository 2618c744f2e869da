package cmd

// DownloadRequest is the body of POST /download, matching the
// browser-extension bridge's wire contract (§6 EXTERNAL INTERFACES):
// URL is required, Filename/Path are optional overrides.
type DownloadRequest struct {
	URL         string `json:"url"`
	Filename    string `json:"filename,omitempty"`
	Path        string `json:"path,omitempty"`
	Connections int    `json:"connections,omitempty"`
	Referrer    string `json:"referrer,omitempty"`
	Cookies     string `json:"cookies,omitempty"`
	UserAgent   string `json:"user_agent,omitempty"`
}

// downloadResponse is returned by a successful POST /download.
type downloadResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

// downloadItem is one row of GET /list or the body of GET /status.
type downloadItem struct {
	ID         string  `json:"id"`
	URL        string  `json:"url"`
	Filename   string  `json:"filename"`
	Status     string  `json:"status"`
	TotalSize  int64   `json:"total_size"`
	Downloaded int64   `json:"downloaded"`
	Speed      float64 `json:"speed"`
	ETASeconds int64   `json:"eta_seconds,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// actionResponse is returned by POST /pause, /resume, /rm.
type actionResponse struct {
	Status string `json:"status"`
}
