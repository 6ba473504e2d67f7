// Package config layers the credential and endpoint settings from flags,
// environment variables, and an optional google-ads.yaml style config file,
// with flags winning over environment over file. A .env file in the working
// directory is auto-loaded before the environment is read.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variable names, matching the conventions of the official
// Google Ads client libraries.
const (
	EnvDeveloperToken  = "GOOGLE_ADS_DEVELOPER_TOKEN"
	EnvAccessToken     = "GOOGLE_ADS_ACCESS_TOKEN"
	EnvClientID        = "GOOGLE_ADS_CLIENT_ID"
	EnvClientSecret    = "GOOGLE_ADS_CLIENT_SECRET"
	EnvRefreshToken    = "GOOGLE_ADS_REFRESH_TOKEN"
	EnvLoginCustomerID = "GOOGLE_ADS_LOGIN_CUSTOMER_ID"
	EnvCustomerID      = "GOOGLE_ADS_CUSTOMER_ID"
	EnvEndpoint        = "GOOGLE_ADS_ENDPOINT"
	EnvDescriptor      = "GOOGLE_ADS_DESCRIPTOR"
	EnvConfigFile      = "GOOGLE_ADS_CONFIG"
)

// DefaultDescriptorPath is where the external build step drops the schema
// bundle.
const DefaultDescriptorPath = "schemas/googleads.desc"

const defaultConfigFile = "google-ads.yaml"

// Settings is the merged configuration consumed by the credential manager
// and the dispatcher.
type Settings struct {
	DeveloperToken  string
	AccessToken     string
	ClientID        string
	ClientSecret    string
	RefreshToken    string
	LoginCustomerID string
	CustomerID      string
	Endpoint        string
	DescriptorPath  string
}

// fileSettings is the yaml shape of the config file, following the
// google-ads.yaml key convention.
type fileSettings struct {
	DeveloperToken  string `yaml:"developer_token"`
	AccessToken     string `yaml:"access_token"`
	ClientID        string `yaml:"client_id"`
	ClientSecret    string `yaml:"client_secret"`
	RefreshToken    string `yaml:"refresh_token"`
	LoginCustomerID string `yaml:"login_customer_id"`
	CustomerID      string `yaml:"customer_id"`
	Endpoint        string `yaml:"endpoint"`
	Descriptor      string `yaml:"descriptor"`
}

// Load merges the three sources. flags holds the values parsed from the
// command line (empty string means unset); configPath is the --config flag,
// falling back to $GOOGLE_ADS_CONFIG and then ./google-ads.yaml if present.
func Load(flags Settings, configPath string) (Settings, error) {
	// Missing .env is the normal case.
	_ = godotenv.Load()

	var s Settings
	path := configPath
	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}
	if path != "" {
		fs, err := readFile(path)
		if err != nil {
			return Settings{}, err
		}
		s = Settings{
			DeveloperToken:  fs.DeveloperToken,
			AccessToken:     fs.AccessToken,
			ClientID:        fs.ClientID,
			ClientSecret:    fs.ClientSecret,
			RefreshToken:    fs.RefreshToken,
			LoginCustomerID: fs.LoginCustomerID,
			CustomerID:      fs.CustomerID,
			Endpoint:        fs.Endpoint,
			DescriptorPath:  fs.Descriptor,
		}
	}

	overlay(&s.DeveloperToken, os.Getenv(EnvDeveloperToken))
	overlay(&s.AccessToken, os.Getenv(EnvAccessToken))
	overlay(&s.ClientID, os.Getenv(EnvClientID))
	overlay(&s.ClientSecret, os.Getenv(EnvClientSecret))
	overlay(&s.RefreshToken, os.Getenv(EnvRefreshToken))
	overlay(&s.LoginCustomerID, os.Getenv(EnvLoginCustomerID))
	overlay(&s.CustomerID, os.Getenv(EnvCustomerID))
	overlay(&s.Endpoint, os.Getenv(EnvEndpoint))
	overlay(&s.DescriptorPath, os.Getenv(EnvDescriptor))

	overlay(&s.DeveloperToken, flags.DeveloperToken)
	overlay(&s.AccessToken, flags.AccessToken)
	overlay(&s.ClientID, flags.ClientID)
	overlay(&s.ClientSecret, flags.ClientSecret)
	overlay(&s.RefreshToken, flags.RefreshToken)
	overlay(&s.LoginCustomerID, flags.LoginCustomerID)
	overlay(&s.CustomerID, flags.CustomerID)
	overlay(&s.Endpoint, flags.Endpoint)
	overlay(&s.DescriptorPath, flags.DescriptorPath)

	if s.DescriptorPath == "" {
		s.DescriptorPath = DefaultDescriptorPath
	}
	return s, nil
}

func overlay(dst *string, val string) {
	if val != "" {
		*dst = val
	}
}

func readFile(path string) (*fileSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var fs fileSettings
	if err := yaml.Unmarshal(data, &fs); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return &fs, nil
}
