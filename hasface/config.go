package hasface

// DefaultDetectURL is the detection endpoint used when none is configured.
const DefaultDetectURL = "http://api.face.com/faces/detect.json"

// Config holds the settings read on every validation call. It may be toggled
// between calls, e.g. to switch validation off for a test run.
type Config struct {
	EnableValidation bool   `yaml:"enable_validation"`
	APIKey           string `yaml:"api_key"`
	APISecret        string `yaml:"api_secret"`
	DetectURL        string `yaml:"detect_url" validate:"required_if=EnableValidation true,omitempty,url"`
	// Hostname, when set, is prefixed to image paths which are then fetched over HTTP.
	Hostname string `yaml:"hostname" validate:"omitempty,url"`
}

// DefaultConfig returns a config with validation enabled against DefaultDetectURL.
func DefaultConfig() *Config {
	return &Config{
		EnableValidation: true,
		DetectURL:        DefaultDetectURL,
	}
}
