package mediamtx

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the subset of the MediaMTX configuration rtspcam renders.
// Protocols other than RTSP are disabled so a session only claims the ports it reports.
type Config struct {
	LogLevel          string         `yaml:"logLevel"`
	LogDestinations   []string       `yaml:"logDestinations"`
	API               bool           `yaml:"api"`
	APIAddress        string         `yaml:"apiAddress,omitempty"`
	RTSP              bool           `yaml:"rtsp"`
	RTSPAddress       string         `yaml:"rtspAddress"`
	RTSPTransports    []string       `yaml:"rtspTransports"`
	RTMP              bool           `yaml:"rtmp"`
	HLS               bool           `yaml:"hls"`
	WebRTC            bool           `yaml:"webrtc"`
	SRT               bool           `yaml:"srt"`
	AuthMethod        string         `yaml:"authMethod"`
	AuthInternalUsers []InternalUser `yaml:"authInternalUsers"`

	Paths map[string]PathConfig `yaml:"paths"`
}

// InternalUser represents an internal authentication user
type InternalUser struct {
	User        string       `yaml:"user"`
	Pass        string       `yaml:"pass"`
	IPs         []string     `yaml:"ips"`
	Permissions []Permission `yaml:"permissions"`
}

// Permission represents a user permission
type Permission struct {
	Action string `yaml:"action"`
	Path   string `yaml:"path,omitempty"`
}

// PathConfig represents a MediaMTX path configuration
type PathConfig struct {
	Source string `yaml:"source"`
}

// SourcePublisher makes a path accept a feed pushed by a client.
const SourcePublisher = "publisher"

// NewConfig creates a configuration serving RTSP over TCP on rtspAddress.
// An empty apiAddress disables the control API.
func NewConfig(rtspAddress, apiAddress string) *Config {
	return &Config{
		LogLevel:        "info",
		LogDestinations: []string{"stdout"},
		API:             apiAddress != "",
		APIAddress:      apiAddress,
		RTSP:            true,
		RTSPAddress:     rtspAddress,
		RTSPTransports:  []string{"tcp"},
		AuthMethod:      "internal",
		AuthInternalUsers: []InternalUser{
			{
				User: "any",
				Pass: "",
				IPs:  []string{},
				Permissions: []Permission{
					{Action: "publish"},
					{Action: "read"},
					{Action: "playback"},
					{Action: "api"},
				},
			},
		},

		Paths: make(map[string]PathConfig),
	}
}

// AddStream adds a publisher path to the configuration
func (c *Config) AddStream(pathName string) error {
	if pathName == "" {
		return fmt.Errorf("path name cannot be empty")
	}
	if _, exists := c.Paths[pathName]; exists {
		return fmt.Errorf("path %q already configured", pathName)
	}
	c.Paths[pathName] = PathConfig{Source: SourcePublisher}
	return nil
}

// RemoveStream removes a stream path from the configuration
func (c *Config) RemoveStream(pathName string) {
	delete(c.Paths, pathName)
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to YAML: %w", err)
	}
	return data, nil
}

// WriteToFile writes the configuration to a YAML file
func (c *Config) WriteToFile(filename string) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}

	if err := os.WriteFile(filename, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML config: %w", err)
	}

	// Ensure paths map is initialized
	if config.Paths == nil {
		config.Paths = make(map[string]PathConfig)
	}
	return &config, nil
}
