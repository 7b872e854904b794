package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CameraConfig holds configuration for the capture pipeline
type CameraConfig struct {
	Driver string `json:"driver"`
	Facing string `json:"facing"`
	Format string `json:"format"`
}

type ServerConfig struct {
	Enabled bool   `json:"enabled"`
	IP      string `json:"ip"`
	Port    string `json:"port"`
}

type AppConfig struct {
	Server       ServerConfig `json:"server"`
	CameraConfig CameraConfig `json:"camera"`
	StorePath    string       `json:"store_path"`
}

// Default config
func defaultConfig() *AppConfig {
	return &AppConfig{
		CameraConfig: CameraConfig{
			Driver: "webcam",
			Facing: "back",
			Format: "jpeg",
		},
		Server: ServerConfig{
			Enabled: false,
			IP:      "localhost",
			Port:    "8080",
		},
	}
}

// getConfigPath ensures the config directory and file follow the Linux XDG convention
func getConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("unable to determine user home directory: %w", err)
	}

	// Define the path to the ~/.config/camauth directory
	configDir := filepath.Join(homeDir, ".config", "camauth")

	// Ensure the directory exists
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("error creating config directory: %w", err)
	}

	// Return the full path to the config file
	return filepath.Join(configDir, "config.json"), nil
}

// Load reads the config file from the ~/.config/camauth directory and returns a config object
func Load() (*AppConfig, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, fmt.Errorf("error getting config path: %v", err)
	}

	// Load the default config to fill in missing fields. The store path
	// default depends on the config location, so it is filled here rather
	// than in defaultConfig.
	config := defaultConfig()
	config.StorePath = filepath.Join(filepath.Dir(configPath), "codes.json")

	// Check if the config file exists and return the default config if not
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return config, nil
	}

	configFile, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("error opening config file: %v", err)
	}
	defer configFile.Close()

	data, err := io.ReadAll(configFile)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	// Unmarshal into the default config
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error unmarshalling config file: %v", err)
	}

	// A file that writes the store path out as empty gets the default back.
	if config.StorePath == "" {
		config.StorePath = filepath.Join(filepath.Dir(configPath), "codes.json")
	}

	return config, nil
}

// Save writes the config to the ~/.config/camauth directory
func Save(config *AppConfig) error {
	configPath, err := getConfigPath()
	if err != nil {
		return fmt.Errorf("error getting config path: %v", err)
	}

	// Marshal the config to JSON
	configBytes, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshalling config: %v", err)
	}

	// Write the config file
	if err := os.WriteFile(configPath, configBytes, 0644); err != nil {
		return fmt.Errorf("error writing config file: %v", err)
	}

	return nil
}
