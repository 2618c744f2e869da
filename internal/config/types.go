// Package config loads, persists, and merges the TOML application
// configuration consumed by the core: download defaults, concurrency
// ceiling, bandwidth limit and schedule, and network/appearance settings
// owned by the surrounding shell.
package config

import "fmt"

// NotificationLevel controls how aggressively the shell surfaces
// completion/failure notifications.
type NotificationLevel string

const (
	NotificationAll        NotificationLevel = "all"
	NotificationFailedOnly NotificationLevel = "failedonly"
	NotificationNever      NotificationLevel = "never"
)

func (n NotificationLevel) MarshalText() ([]byte, error) { return []byte(n), nil }
func (n *NotificationLevel) UnmarshalText(b []byte) error {
	*n = NotificationLevel(b)
	return nil
}

// DuplicateAction controls what happens when a download would overwrite
// an existing file.
type DuplicateAction string

const (
	DuplicateAsk       DuplicateAction = "ask"
	DuplicateRename    DuplicateAction = "rename"
	DuplicateOverwrite DuplicateAction = "overwrite"
	DuplicateSkip      DuplicateAction = "skip"
)

func (d DuplicateAction) MarshalText() ([]byte, error) { return []byte(d), nil }
func (d *DuplicateAction) UnmarshalText(b []byte) error {
	*d = DuplicateAction(b)
	return nil
}

// ProxyMode selects how outbound connections are routed.
type ProxyMode string

const (
	ProxyNone   ProxyMode = "none"
	ProxySystem ProxyMode = "system"
	ProxyHTTP   ProxyMode = "http"
	ProxySocks5 ProxyMode = "socks5"
)

func (p ProxyMode) MarshalText() ([]byte, error) { return []byte(p), nil }
func (p *ProxyMode) UnmarshalText(b []byte) error {
	*p = ProxyMode(b)
	return nil
}

// Theme selects the shell's color scheme.
type Theme string

const (
	ThemeSystem Theme = "system"
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
)

func (t Theme) MarshalText() ([]byte, error) { return []byte(t), nil }
func (t *Theme) UnmarshalText(b []byte) error {
	*t = Theme(b)
	return nil
}

// FontSize selects the shell's font scale.
type FontSize string

const (
	FontSmall   FontSize = "small"
	FontDefault FontSize = "default"
	FontLarge   FontSize = "large"
)

func (f FontSize) MarshalText() ([]byte, error) { return []byte(f), nil }
func (f *FontSize) UnmarshalText(b []byte) error {
	*f = FontSize(b)
	return nil
}

// AppConfig is the full TOML document. The core only reads the
// Downloads and Network sections, and the CLI shell reads
// General.DownloadLocation; the rest of General, FileOrganization, and
// Appearance exist so that every section the shell writes round-trips
// without loss.
type AppConfig struct {
	General          GeneralConfig  `toml:"general" json:"general"`
	Downloads        DownloadsConfig `toml:"downloads" json:"downloads"`
	FileOrganization FileOrgConfig  `toml:"file_organization" json:"file_organization"`
	Network          NetworkConfig  `toml:"network" json:"network"`
	Appearance       AppearanceConfig `toml:"appearance" json:"appearance"`
}

type GeneralConfig struct {
	DownloadLocation  string            `toml:"download_location" json:"download_location"`
	LaunchAtStartup   bool              `toml:"launch_at_startup" json:"launch_at_startup"`
	MinimizeToTray    bool              `toml:"minimize_to_tray" json:"minimize_to_tray"`
	NotificationLevel NotificationLevel `toml:"notification_level" json:"notification_level"`
	Language          string            `toml:"language" json:"language"`
	AutoUpdate        bool              `toml:"auto_update" json:"auto_update"`
}

// Only the fields the core actually reads matter for correctness; the
// shell section's remaining fields are carried through verbatim.
type DownloadsConfig struct {
	DefaultConnections int    `toml:"default_connections" json:"default_connections"`
	MaxConcurrent       int    `toml:"max_concurrent" json:"max_concurrent"`
	BandwidthLimit      *int64 `toml:"bandwidth_limit,omitempty" json:"bandwidth_limit"`
	AutoResume          bool   `toml:"auto_resume" json:"auto_resume"`
	LargeFileThreshold  *int64 `toml:"large_file_threshold,omitempty" json:"large_file_threshold"`
}

type FileOrgConfig struct {
	AutoCategorize     bool              `toml:"auto_categorize" json:"auto_categorize"`
	DateSubfolders     bool              `toml:"date_subfolders" json:"date_subfolders"`
	DuplicateHandling  DuplicateAction   `toml:"duplicate_handling" json:"duplicate_handling"`
	CategoryFolders    map[string]string `toml:"category_folders" json:"category_folders"`
}

type NetworkConfig struct {
	Proxy         ProxyConfig          `toml:"proxy" json:"proxy"`
	UserAgent     *string              `toml:"user_agent,omitempty" json:"user_agent"`
	SpeedSchedule []SpeedScheduleEntry `toml:"speed_schedule" json:"speed_schedule"`
}

type ProxyConfig struct {
	Mode     ProxyMode `toml:"mode" json:"mode"`
	Host     *string   `toml:"host,omitempty" json:"host"`
	Port     *int      `toml:"port,omitempty" json:"port"`
	Username *string   `toml:"username,omitempty" json:"username"`
	Password *string   `toml:"password,omitempty" json:"password"`
}

type AppearanceConfig struct {
	Theme       Theme    `toml:"theme" json:"theme"`
	AccentColor string   `toml:"accent_color" json:"accent_color"`
	FontSize    FontSize `toml:"font_size" json:"font_size"`
	CompactMode bool     `toml:"compact_mode" json:"compact_mode"`
}

// SpeedScheduleEntry is a wall-clock window overriding the bandwidth
// limit; StartHour/EndHour are in [0, 23], and the window wraps midnight
// when StartHour > EndHour.
type SpeedScheduleEntry struct {
	StartHour int    `toml:"start_hour" json:"start_hour"`
	EndHour   int    `toml:"end_hour" json:"end_hour"`
	Limit     *int64 `toml:"limit,omitempty" json:"limit"`
}

func defaultDownloadLocation() string {
	if dir, err := defaultDownloadDir(); err == nil {
		return dir
	}
	return "."
}

// DefaultAppConfig returns the configuration the shell ships with on
// first run, matching every default the original implementation sets.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		General: GeneralConfig{
			DownloadLocation:  defaultDownloadLocation(),
			LaunchAtStartup:   false,
			MinimizeToTray:    true,
			NotificationLevel: NotificationAll,
			Language:          "en",
			AutoUpdate:        true,
		},
		Downloads: DownloadsConfig{
			DefaultConnections: 8,
			MaxConcurrent:      3,
			BandwidthLimit:     nil,
			AutoResume:         true,
			LargeFileThreshold: nil,
		},
		FileOrganization: FileOrgConfig{
			AutoCategorize:    true,
			DateSubfolders:    false,
			DuplicateHandling: DuplicateAsk,
			CategoryFolders:   map[string]string{},
		},
		Network: NetworkConfig{
			Proxy:         ProxyConfig{Mode: ProxyNone},
			UserAgent:     nil,
			SpeedSchedule: nil,
		},
		Appearance: AppearanceConfig{
			Theme:       ThemeDark,
			AccentColor: "#3B82F6",
			FontSize:    FontDefault,
			CompactMode: false,
		},
	}
}

func (c AppConfig) String() string {
	return fmt.Sprintf("AppConfig{connections=%d max_concurrent=%d}", c.Downloads.DefaultConnections, c.Downloads.MaxConcurrent)
}
