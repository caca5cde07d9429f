package config

import (
	"errors"
	"os"
	"runtime"
	"strings"

	"gopkg.in/yaml.v2"

	"ikh/dicom-tree/internal/logging"
)

type S3Config struct {
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type Config struct {
	DirectoryPath  string         `yaml:"directory_path"`
	OutputPath     string         `yaml:"output_path"`
	TagFile        string         `yaml:"tag_file"`
	FilterFile     string         `yaml:"filter_file"`
	Recursive      int            `yaml:"recursive"`
	Workers        int            `yaml:"workers"`
	SkipUnreadable bool           `yaml:"skip_unreadable"`
	CSVPath        string         `yaml:"csv_path"`
	MetricsFile    string         `yaml:"metrics_file"`
	ApiUrl         string         `yaml:"api_url"`
	Timeout        int            `yaml:"timeout"`
	Log            logging.Config `yaml:"log"`
	S3             S3Config       `yaml:"s3"`
}

func Default() *Config {
	return &Config{
		Timeout: 10,
		Log:     logging.Config{Level: "info"},
		S3:      S3Config{Region: "us-east-1"},
	}
}

// ReadConfig loads a YAML file over the defaults.
func ReadConfig(filePath string) (*Config, error) {
	file, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	config := Default()
	err = yaml.Unmarshal(file, config)
	if err != nil {
		return nil, err
	}

	return config, nil
}

// WorkerCount resolves Workers, where zero or less means two per CPU.
func (c *Config) WorkerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU() * 2
}

// Validate reports every required setting that is missing.
func (c *Config) Validate() error {
	var missing []string
	if c.DirectoryPath == "" {
		missing = append(missing, "input")
	}
	if c.OutputPath == "" {
		missing = append(missing, "output")
	}
	if c.TagFile == "" {
		missing = append(missing, "tags")
	}
	if len(missing) > 0 {
		return errors.New("missing required setting(s): " + strings.Join(missing, ", "))
	}
	if c.Recursive < 0 {
		return errors.New("recursive must not be negative")
	}
	return nil
}
