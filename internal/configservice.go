package internal

import (
	"encoding/json"
	"net/http"
	"os"
	"sync"

	"github.com/derWhity/eventdesk/internal/ctxhelper"
	"github.com/derWhity/eventdesk/internal/log"
	"github.com/derWhity/eventdesk/internal/models"
	"github.com/pkg/errors"
	"golang.org/x/net/context"
)

var (
	// ErrIllegalAPIKey is the error returned when the gateway sent an API key that does
	// not match the configured internal key
	ErrIllegalAPIKey = MakeError(http.StatusUnauthorized, ErrCodeIllegalAPIKey, "Invalid API key")
)

// ConfigService provides access to the application's configuration
type ConfigService interface {
	// CheckAPIKey validates the API key sent by the gateway against the configured
	// internal key. An empty configured key disables the check.
	CheckAPIKey(apiKey string) error
	// Load loads the application config from its default file location
	Load(ctx context.Context) error
	// LoadFromFile loads the configuration from the given JSON file
	LoadFromFile(ctx context.Context, filename string) error
	// Write writes the current application configuration to the default file name
	Write(ctx context.Context) error
	// WriteToFile writes the current application configuration to a JSON file
	WriteToFile(ctx context.Context, filename string) error
	// GetConfig returns the current application configuration
	GetConfig(ctx context.Context) models.AppConfig
}

// -- ConfigService implementation -------------------------------------------------------------------------------------

type configService struct {
	configFilename string
	mu             sync.RWMutex
	config         *models.AppConfig
}

// NewConfigService creates a new configuration service instance with the given default file name
func NewConfigService(configFilename string) ConfigService {
	return &configService{
		configFilename: configFilename,
	}
}

// CheckAPIKey validates the API key sent by the gateway against the configured internal key
func (s *configService) CheckAPIKey(apiKey string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.config == nil || s.config.InternalAPIKey == "" {
		return nil
	}
	if apiKey != s.config.InternalAPIKey {
		return ErrIllegalAPIKey
	}
	return nil
}

// Load loads the application config from its default file location
func (s *configService) Load(ctx context.Context) error {
	return s.LoadFromFile(ctx, s.configFilename)
}

// LoadFromFile loads the configuration from the given JSON file
func (s *configService) LoadFromFile(ctx context.Context, filename string) error {
	logger := ctxhelper.Logger(ctx)
	logger.WithField(log.FldFile, filename).Info("Loading configuration file")
	conf := models.GetDefaultConfig()
	f, err := os.Open(filename)
	if err != nil {
		return errors.Wrap(err, "LoadFromFile: cannot load configuration file")
	}
	defer f.Close()
	if err = json.NewDecoder(f).Decode(&conf); err != nil {
		return errors.Wrap(err, "LoadFromFile: Failed to decode configuration file")
	}
	s.mu.Lock()
	s.config = conf
	s.mu.Unlock()
	return nil
}

// Write writes the current application configuration to the default file name
func (s *configService) Write(ctx context.Context) error {
	return s.WriteToFile(ctx, s.configFilename)
}

// WriteToFile writes the current application configuration to a JSON file
func (s *configService) WriteToFile(ctx context.Context, filename string) error {
	logger := ctxhelper.Logger(ctx)
	logger.WithField(log.FldFile, filename).Info("Writing configuration file")
	f, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "WriteToFile: Cannot open configuration file '%s' to write to", filename)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "    ")
	conf := s.GetConfig(ctx)
	if err := enc.Encode(&conf); err != nil {
		return errors.Wrap(err, "WriteToFile: Failed to serialize configuration data")
	}
	return nil
}

// GetConfig returns the current application configuration
func (s *configService) GetConfig(ctx context.Context) models.AppConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.config != nil {
		return *s.config
	}
	return *models.GetDefaultConfig()
}
