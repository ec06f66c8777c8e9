package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ExitCode enumerates the four process exit codes spec.md §6 assigns.
type ExitCode int

const (
	ExitClean               ExitCode = 0
	ExitConfigRejected      ExitCode = 1
	ExitCryptoSelfTestFailed ExitCode = 2
	ExitTaskFailure          ExitCode = 3
)

// RejectedError wraps a configuration rejection (exit code 1): placeholder
// secret, missing TLS material, or a malformed allow-list.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string { return "config: rejected: " + e.Reason }

func rejected(format string, args ...any) error {
	return &RejectedError{Reason: fmt.Sprintf(format, args...)}
}

// Validate applies every check spec.md §6/§9 requires, returning a
// *RejectedError (exit code 1) on the first failure.
func (c *RuntimeConfig) Validate() error {
	if c.SerialSharedSecret == PlaceholderSecret {
		return rejected("serial_shared_secret is still set to the placeholder value")
	}
	if _, err := strconv.Atoi(c.SerialBaud); err != nil {
		return rejected("serial_baud %q is not numeric", c.SerialBaud)
	}
	if c.AckTimeoutMS <= 0 {
		return rejected("ack_timeout_ms must be positive")
	}
	if c.RetryLimit < 0 {
		return rejected("retry_limit must not be negative")
	}
	if c.ResponseTimeoutMS <= 0 {
		return rejected("response_timeout_ms must be positive")
	}
	if c.MQTTQueueLimit <= 0 {
		return rejected("mqtt_queue_limit must be positive")
	}
	if c.FileWriteMaxBytes <= 0 || c.FileStorageQuotaBytes <= 0 {
		return rejected("file_write_max_bytes and file_storage_quota_bytes must be positive")
	}
	if c.FileWriteMaxBytes > c.FileStorageQuotaBytes {
		return rejected("file_write_max_bytes (%d) exceeds file_storage_quota_bytes (%d)", c.FileWriteMaxBytes, c.FileStorageQuotaBytes)
	}
	if !c.AllowNonTmpPaths {
		if !strings.HasPrefix(c.FileSystemRoot, "/tmp") {
			return rejected("file_system_root %q is outside /tmp and allow_non_tmp_paths is not set", c.FileSystemRoot)
		}
		if !strings.HasPrefix(c.MQTTSpoolDir, "/tmp") {
			return rejected("mqtt_spool_dir %q is outside /tmp and allow_non_tmp_paths is not set", c.MQTTSpoolDir)
		}
	}
	if err := c.validateAllowedCommands(); err != nil {
		return err
	}
	if err := c.validateTLS(); err != nil {
		return err
	}
	return nil
}

func (c *RuntimeConfig) validateAllowedCommands() error {
	fields := c.AllowedCommandList()
	for i, f := range fields {
		if f == "*" && len(fields) != 1 {
			return rejected("allowed_commands: %q wildcard must be the only entry", "*")
		}
		if f == "" {
			return rejected("allowed_commands: empty entry at position %d", i)
		}
	}
	return nil
}

func (c *RuntimeConfig) validateTLS() error {
	if !c.MQTTTLS {
		return nil
	}
	if c.MQTTCAFile != "" {
		if _, err := os.Stat(c.MQTTCAFile); err != nil {
			return rejected("mqtt_cafile %q: %v", c.MQTTCAFile, err)
		}
	}
	certSet := c.MQTTCertFile != ""
	keySet := c.MQTTKeyFile != ""
	if certSet != keySet {
		return rejected("mqtt_certfile and mqtt_keyfile must be set together")
	}
	if certSet {
		if _, err := os.Stat(c.MQTTCertFile); err != nil {
			return rejected("mqtt_certfile %q: %v", c.MQTTCertFile, err)
		}
		if _, err := os.Stat(c.MQTTKeyFile); err != nil {
			return rejected("mqtt_keyfile %q: %v", c.MQTTKeyFile, err)
		}
	}
	return nil
}
