package models

import (
	"path"

	"github.com/kardianos/osext"
)

// AppConfig is the application's main configuration structure
type AppConfig struct {
	// The IP address to listen at - including the port number
	ListenAddress string `json:"listenAddress"`
	// Optional shared secret the API gateway has to send in the x-api-key
	// header. Leave empty to disable the check (e.g. for local development)
	InternalAPIKey string `json:"internalApiKey"`
	// The pagination limits applied to discovery and listing requests
	Pagination PaginationConfig `json:"pagination"`
}

// PaginationConfig bounds the page sizes clients may request
type PaginationConfig struct {
	// Page size used when the client does not request one
	DefaultPageSize uint `json:"defaultPageSize"`
	// Largest page size a client may request
	MaxPageSize uint `json:"maxPageSize"`
}

// GetDefaultConfig returns the default configuration values for the application
func GetDefaultConfig() *AppConfig {
	return &AppConfig{
		ListenAddress: ":3000",
		Pagination: PaginationConfig{
			DefaultPageSize: 20,
			MaxPageSize:     100,
		},
	}
}

// DefaultConfigFile returns the default location of the configuration file
// right beside the application executable
func DefaultConfigFile() (string, error) {
	execDir, err := osext.ExecutableFolder()
	if err != nil {
		return "", err
	}
	return path.Join(execDir, "config.json"), nil
}
