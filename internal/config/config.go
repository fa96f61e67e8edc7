package config

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"strings"
	"time"
)

// Config holds all application configuration. JSON tags mirror the on-disk
// config file; flags and environment variables layer on top of it.
type Config struct {
	NetworkInterface string            `json:"network_interface"`
	HTTPListen       string            `json:"http_listen"`
	Detection        DetectionConfig   `json:"detection"`
	Alerts           AlertsConfig      `json:"alerts"`
	OSINT            OSINTConfig       `json:"osint"`
	Geolocation      GeolocationConfig `json:"geolocation"`
	Chat             ChatConfig        `json:"chat"`
	Storage          StorageConfig     `json:"storage"`

	// Runtime switches, flag-only.
	Debug    bool `json:"-"`
	MockMode bool `json:"-"`
}

// DetectionConfig carries the detector thresholds and the sliding-window
// width shared by the volumetric detectors.
type DetectionConfig struct {
	DDoSThreshold         int     `json:"ddos_threshold"`
	PortScanThreshold     int     `json:"port_scan_threshold"`
	SQLInjectionThreshold int     `json:"sql_injection_threshold"`
	XSSThreshold          int     `json:"xss_threshold"`
	SYNFloodThreshold     int     `json:"syn_flood_threshold"`
	SynAckRatioThreshold  float64 `json:"syn_ack_ratio_threshold"`
	TimeWindowSeconds     int     `json:"time_window_seconds"`
}

// Window returns the sliding-window width for DDoS, port-scan and SYN-flood
// state.
func (d DetectionConfig) Window() time.Duration {
	return time.Duration(d.TimeWindowSeconds) * time.Second
}

// AlertsConfig controls throttling and email delivery. Credentials normally
// arrive through the environment, not the file.
type AlertsConfig struct {
	Enabled         bool     `json:"enabled"`
	ThrottleSeconds int      `json:"throttle_seconds"`
	SMTPServer      string   `json:"smtp_server"`
	SMTPPort        int      `json:"smtp_port"`
	SenderEmail     string   `json:"sender_email"`
	SenderPassword  string   `json:"sender_password"`
	RecipientEmails []string `json:"recipient_emails"`
}

// Throttle returns the minimum spacing between alerts per (source, kind).
func (a AlertsConfig) Throttle() time.Duration {
	return time.Duration(a.ThrottleSeconds) * time.Second
}

// OSINTConfig names the blocklist feeds and their refresh cadence.
type OSINTConfig struct {
	FeodoTrackerURL     string `json:"feodo_tracker_url"`
	URLHausURL          string `json:"urlhaus_url"`
	UpdateIntervalHours int    `json:"update_interval_hours"`
}

// UpdateInterval returns the refresh cadence as a duration.
func (o OSINTConfig) UpdateInterval() time.Duration {
	return time.Duration(o.UpdateIntervalHours) * time.Hour
}

// GeolocationConfig selects the primary lookup provider.
type GeolocationConfig struct {
	Enabled     bool   `json:"enabled"`
	APIProvider string `json:"api_provider"`
	APIKey      string `json:"api_key"`
}

// ChatConfig controls the LLM assistant endpoint. The API key only ever
// arrives through the environment.
type ChatConfig struct {
	Enabled bool   `json:"enabled"`
	Model   string `json:"model"`
	APIKey  string `json:"-"`
}

// StorageConfig locates the legacy CSV log and the sqlite event log.
type StorageConfig struct {
	LogFile string `json:"log_file"`
	DBFile  string `json:"db_file"`
}

// Default returns the built-in configuration, matching config.json shipped
// with the project.
func Default() *Config {
	return &Config{
		NetworkInterface: "eth0",
		HTTPListen:       ":8080",
		Detection: DetectionConfig{
			DDoSThreshold:         300,
			PortScanThreshold:     10,
			SQLInjectionThreshold: 3,
			XSSThreshold:          3,
			SYNFloodThreshold:     200,
			SynAckRatioThreshold:  0.1,
			TimeWindowSeconds:     10,
		},
		Alerts: AlertsConfig{
			Enabled:         true,
			ThrottleSeconds: 300,
			SMTPServer:      "smtp.gmail.com",
			SMTPPort:        587,
		},
		OSINT: OSINTConfig{
			FeodoTrackerURL:     "https://feodotracker.abuse.ch/downloads/ipblocklist.txt",
			URLHausURL:          "https://urlhaus.abuse.ch/downloads/text/",
			UpdateIntervalHours: 24,
		},
		Geolocation: GeolocationConfig{
			Enabled:     true,
			APIProvider: "ipapi",
		},
		Chat: ChatConfig{
			Model: "claude-3-5-haiku-latest",
		},
		Storage: StorageConfig{
			LogFile: "data/realtime_logs.csv",
			DBFile:  "data/threats.db",
		},
	}
}

// Load layers the configuration: defaults, then the JSON file, then command
// line flags, then environment variables.
func Load() *Config {
	var (
		configPath = flag.String("config", "config.json", "Path to JSON configuration file")
		iface      = flag.String("iface", "", "Capture interface (overrides config file)")
		listen     = flag.String("listen", "", "HTTP listen address (overrides config file)")
		debug      = flag.Bool("debug", false, "Enable verbose debug logging")
		mock       = flag.Bool("mock", false, "Replay synthetic traffic instead of live capture")
	)
	flag.Parse()

	cfg := Default()
	cfg.mergeFile(*configPath)

	if *iface != "" {
		cfg.NetworkInterface = *iface
	}
	if *listen != "" {
		cfg.HTTPListen = *listen
	}
	cfg.Debug = *debug
	cfg.MockMode = *mock

	cfg.applyEnv()
	return cfg
}

// mergeFile overlays the JSON file onto the receiver. Keys absent from the
// file keep their current values; an unreadable or invalid file leaves the
// receiver untouched.
func (c *Config) mergeFile(path string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: could not read config %s: %v", path, err)
		}
		return
	}

	merged := *c
	if err := json.Unmarshal(raw, &merged); err != nil {
		log.Printf("Warning: invalid config %s, using defaults: %v", path, err)
		return
	}
	*c = merged
}

// applyEnv applies environment overrides, the highest-priority layer.
func (c *Config) applyEnv() {
	c.NetworkInterface = getEnv("NETWORK_INTERFACE", c.NetworkInterface)
	c.Alerts.SenderEmail = getEnv("ALERT_SENDER_EMAIL", c.Alerts.SenderEmail)
	c.Alerts.SenderPassword = getEnv("ALERT_SENDER_PASSWORD", c.Alerts.SenderPassword)
	if recipients := getEnv("ALERT_RECIPIENT_EMAILS", ""); recipients != "" {
		c.Alerts.RecipientEmails = splitList(recipients)
	}
	c.Chat.APIKey = getEnv("ANTHROPIC_API_KEY", c.Chat.APIKey)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
