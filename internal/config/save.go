package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// defaultFileConfig mirrors Config with yaml tags for writing the default
// config file; viper reads it back via the mapstructure tags on Config.
type defaultFileConfig struct {
	AMQP struct {
		URL string `yaml:"url"`
	} `yaml:"amqp"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Sedex struct {
		SenderID    string   `yaml:"sender_id"`
		MultiSender bool     `yaml:"multi_sender"`
		SenderIDs   []string `yaml:"sender_ids,omitempty"`
		ReceiptDir  string   `yaml:"receipt_dir"`
	} `yaml:"sedex"`
	Consumers struct {
		TransactionStateWorkers int `yaml:"transaction_state_workers"`
		SedexStateWorkers       int `yaml:"sedex_state_workers"`
	} `yaml:"consumers"`
	Log struct {
		Level string `yaml:"level"`
		JSON  bool   `yaml:"json"`
	} `yaml:"log"`
}

// WriteDefaultConfig writes the built-in defaults as a starter config
// file at path, creating parent directories as needed.
func WriteDefaultConfig(path string) error {
	defaults := Defaults()

	var out defaultFileConfig
	out.AMQP.URL = defaults.AMQP.URL
	out.Database.Path = defaults.Database.Path
	out.Sedex.SenderID = defaults.Sedex.SenderID
	out.Sedex.MultiSender = defaults.Sedex.MultiSender
	out.Sedex.SenderIDs = defaults.Sedex.SenderIDs
	out.Sedex.ReceiptDir = defaults.Sedex.ReceiptDir
	out.Consumers.TransactionStateWorkers = defaults.Consumers.TransactionStateWorkers
	out.Consumers.SedexStateWorkers = defaults.Consumers.SedexStateWorkers
	out.Log.Level = defaults.Log.Level
	out.Log.JSON = defaults.Log.JSON

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("marshaling default config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}
