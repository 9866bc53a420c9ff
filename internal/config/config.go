package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"ansible-bootstrap/pkg/utils"
)

type Config struct {
	SSH     SSHConfig
	Files   FilesConfig
	Server  ServerConfig
	Logging LoggingConfig
}

type SSHConfig struct {
	Port        int
	KeyPath     string
	KeyBits     int
	DefaultUser string
}

// FilesConfig holds the generated and log file locations, relative to the
// working directory unless absolute.
type FilesConfig struct {
	Inventory  string
	AnsibleCfg string
	SetupLog   string
	VerifyLog  string
}

type ServerConfig struct {
	Host         string
	Port         int
	AllowOrigins []string
}

type LoggingConfig struct {
	Level string
}

// LoadEnvFile loads variables from a dotenv file into the process
// environment. A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func LoadConfig() *Config {
	return &Config{
		SSH: SSHConfig{
			Port:        getEnvAsInt("SSH_PORT", 22),
			KeyPath:     expandHome(getEnvAsString("SSH_KEY_PATH", defaultKeyPath())),
			KeyBits:     getEnvAsInt("SSH_KEY_BITS", 4096),
			DefaultUser: getEnvAsString("SSH_DEFAULT_USER", "ubuntu"),
		},
		Files: FilesConfig{
			Inventory:  getEnvAsString("INVENTORY_FILE", "inventory.yml"),
			AnsibleCfg: getEnvAsString("ANSIBLE_CFG_FILE", "ansible.cfg"),
			SetupLog:   getEnvAsString("SETUP_LOG_FILE", "ansible_setup.log"),
			VerifyLog:  getEnvAsString("VERIFY_LOG_FILE", "ansible_verification.log"),
		},
		Server: ServerConfig{
			Host:         getEnvAsString("SERVER_HOST", "127.0.0.1"),
			Port:         getEnvAsInt("SERVER_PORT", 8080),
			AllowOrigins: getEnvAsSlice("CORS_ALLOW_ORIGINS", []string{"http://localhost:3000"}),
		},
		Logging: LoggingConfig{
			Level: getEnvAsString("LOG_LEVEL", "info"),
		},
	}
}

// Validate rejects values that would only fail later, mid-run.
func (c *Config) Validate() error {
	if err := utils.ValidatePort(c.SSH.Port); err != nil {
		return fmt.Errorf("SSH_PORT: %w", err)
	}
	if err := utils.ValidatePort(c.Server.Port); err != nil {
		return fmt.Errorf("SERVER_PORT: %w", err)
	}
	if c.SSH.KeyPath == "" {
		return fmt.Errorf("SSH_KEY_PATH must not be empty")
	}
	if c.SSH.KeyBits < 2048 {
		return fmt.Errorf("SSH_KEY_BITS must be at least 2048, got %d", c.SSH.KeyBits)
	}
	if c.Files.Inventory == "" || c.Files.AnsibleCfg == "" {
		return fmt.Errorf("INVENTORY_FILE and ANSIBLE_CFG_FILE must not be empty")
	}
	return nil
}

func defaultKeyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".ssh", "id_rsa")
	}
	return filepath.Join(home, ".ssh", "id_rsa")
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func getEnvAsString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
