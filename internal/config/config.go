// Package config implements RuntimeConfig (C9, spec.md §4.9/§6): a typed
// configuration struct loaded from YAML, with placeholder-secret
// rejection, shell allow-list validation, and TLS material checks,
// generalizing the teacher's own YAML-driven tables (deviceid.go) to the
// bridge's full option set.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// PlaceholderSecret is the known placeholder value that must never reach
// production; startup refuses to run with it configured (spec.md §9
// Testable property 10, "Startup refusal").
const PlaceholderSecret = "CHANGE_ME"

// RuntimeConfig is the full enumerated option set from spec.md §6.
type RuntimeConfig struct {
	// Booleans (default off unless noted).
	MQTTTLS           bool `yaml:"mqtt_tls"`
	MQTTTLSInsecure   bool `yaml:"mqtt_tls_insecure"`
	MetricsEnabled    bool `yaml:"metrics_enabled"`
	AllowNonTmpPaths  bool `yaml:"allow_non_tmp_paths"`
	DiscoveryEnabled  bool `yaml:"discovery_enabled"`

	AllowFileRead      bool `yaml:"allow_file_read"`
	AllowFileWrite     bool `yaml:"allow_file_write"`
	AllowFileRemove    bool `yaml:"allow_file_remove"`
	AllowDatastoreGet  bool `yaml:"allow_datastore_get"`
	AllowDatastorePut  bool `yaml:"allow_datastore_put"`
	AllowMailboxRead   bool `yaml:"allow_mailbox_read"`
	AllowMailboxWrite  bool `yaml:"allow_mailbox_write"`
	AllowShellRun      bool `yaml:"allow_shell_run"`
	AllowShellRunAsync bool `yaml:"allow_shell_run_async"`
	AllowShellPoll     bool `yaml:"allow_shell_poll"`
	AllowShellKill     bool `yaml:"allow_shell_kill"`
	AllowConsoleInput  bool `yaml:"allow_console_input"`
	AllowDigitalRead   bool `yaml:"allow_digital_read"`
	AllowDigitalWrite  bool `yaml:"allow_digital_write"`
	AllowDigitalMode   bool `yaml:"allow_digital_mode"`
	AllowAnalogRead    bool `yaml:"allow_analog_read"`
	AllowAnalogWrite   bool `yaml:"allow_analog_write"`

	// Numeric settings.
	AckTimeoutMS            int `yaml:"ack_timeout_ms"`
	RetryLimit              int `yaml:"retry_limit"`
	ResponseTimeoutMS       int `yaml:"response_timeout_ms"`
	MQTTQueueLimit          int `yaml:"mqtt_queue_limit"`
	ConsoleQueueLimitBytes  int `yaml:"console_queue_limit_bytes"`
	MailboxQueueLimit       int `yaml:"mailbox_queue_limit"`
	MailboxQueueBytesLimit  int `yaml:"mailbox_queue_bytes_limit"`
	PendingPinRequestLimit  int `yaml:"pending_pin_request_limit"`
	FileWriteMaxBytes       int `yaml:"file_write_max_bytes"`
	FileStorageQuotaBytes   int `yaml:"file_storage_quota_bytes"`
	BridgeSummaryInterval   int `yaml:"bridge_summary_interval"`
	BridgeHandshakeInterval int `yaml:"bridge_handshake_interval"`

	// Strings.
	SerialPort         string `yaml:"serial_port"`
	SerialBaud         string `yaml:"serial_baud"`
	SerialSharedSecret string `yaml:"serial_shared_secret"`
	MQTTHost           string `yaml:"mqtt_host"`
	MQTTPort           string `yaml:"mqtt_port"`
	MQTTUser           string `yaml:"mqtt_user"`
	MQTTPass           string `yaml:"mqtt_pass"`
	MQTTCAFile         string `yaml:"mqtt_cafile"`
	MQTTCertFile       string `yaml:"mqtt_certfile"`
	MQTTKeyFile        string `yaml:"mqtt_keyfile"`
	MQTTTopicPrefix    string `yaml:"mqtt_topic_prefix"`
	FileSystemRoot     string `yaml:"file_system_root"`
	MQTTSpoolDir       string `yaml:"mqtt_spool_dir"`
	AllowedCommands    string `yaml:"allowed_commands"`
}

// Default returns a RuntimeConfig with every spec-mandated default applied
// (Open Question 1's 115200 baud, 200/5/2000 link timing from
// internal/protocol's generated defaults, "br/" topic prefix).
func Default() *RuntimeConfig {
	return &RuntimeConfig{
		AckTimeoutMS:            200,
		RetryLimit:              5,
		ResponseTimeoutMS:       2000,
		MQTTQueueLimit:          256,
		ConsoleQueueLimitBytes:  4096,
		MailboxQueueLimit:       32,
		MailboxQueueBytesLimit:  16384,
		PendingPinRequestLimit:  16,
		FileWriteMaxBytes:       4096,
		FileStorageQuotaBytes:   1 << 20,
		BridgeSummaryInterval:   30,
		BridgeHandshakeInterval: 60,
		SerialPort:              "/dev/ttyUSB0",
		SerialBaud:              "115200",
		MQTTHost:                "localhost",
		MQTTPort:                "1883",
		MQTTTopicPrefix:         "br/",
		FileSystemRoot:          "/tmp/bridge-files",
		MQTTSpoolDir:            "/tmp/bridge-spool",
	}
}

// Load reads path as YAML over Default(), then validates the result.
func Load(path string) (*RuntimeConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// AllowedCommandList splits the space-separated allowed_commands string.
// A "*" entry is returned as is; authz.NewPolicy and service.NewProcess
// read it as a wildcard.
func (c *RuntimeConfig) AllowedCommandList() []string {
	return strings.Fields(c.AllowedCommands)
}
