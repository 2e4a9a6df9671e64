// Package config parses the enclosing program's command-line surface,
// layering BOXPLAYER_* environment variables as defaults under each flag.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the fixed set of settings the emulator needs: program
// directory, display geometry, network port, frame rate, and pixel sink
// selection.
type Config struct {
	ProgramDir string
	Width      int
	Height     int
	Port       int
	FPS        int
	Output     string // "png" | "raw" | "framebuffer"
	OutputPath string
	DeviceID   string
	LogLevel   string
}

// ValidOutputs are the pixel sink kinds accepted by --output.
var ValidOutputs = []string{"png", "raw", "framebuffer"}

// Load parses args (normally os.Args[1:]) against the flag set, defaulting
// every flag from its BOXPLAYER_* environment variable, then validates the
// result. Before reading any BOXPLAYER_* variable, it loads a dotenv file
// named by BOXPLAYER_ENV_FILE (default ".env" in the working directory) so
// a deployment can pin its configuration in one file instead of exporting
// variables by hand; real environment variables still take precedence over
// values from the file.
func Load(args []string) (*Config, error) {
	envFile := getEnv("BOXPLAYER_ENV_FILE", ".env")
	if err := LoadEnvFile(envFile); err != nil {
		return nil, fmt.Errorf("config: load env file %s: %w", envFile, err)
	}

	fs := flag.NewFlagSet("boxplayer", flag.ContinueOnError)

	programDir := fs.String("program-dir", getEnv("BOXPLAYER_PROGRAM_DIR", "./programs"), "directory holding program XML and uploaded media")
	width := fs.Int("width", getEnvInt("BOXPLAYER_WIDTH", 128), "display width in pixels")
	height := fs.Int("height", getEnvInt("BOXPLAYER_HEIGHT", 64), "display height in pixels")
	port := fs.Int("port", getEnvInt("BOXPLAYER_PORT", 10001), "TCP control-channel port")
	fps := fs.Int("fps", getEnvInt("BOXPLAYER_FPS", 30), "render frame rate")
	output := fs.String("output", getEnv("BOXPLAYER_OUTPUT", "png"), "pixel sink: png, raw, or framebuffer")
	outputPath := fs.String("output-path", getEnv("BOXPLAYER_OUTPUT_PATH", "./frame.png"), "destination for the png or framebuffer sink")
	deviceID := fs.String("device-id", getEnv("BOXPLAYER_DEVICE_ID", "boxplayer01"), "device identity reported to SDK clients and the discovery beacon")
	logLevel := fs.String("log-level", getEnv("BOXPLAYER_LOG_LEVEL", "info"), "log verbosity: debug, info, warn")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := &Config{
		ProgramDir: *programDir,
		Width:      *width,
		Height:     *height,
		Port:       *port,
		FPS:        *fps,
		Output:     strings.ToLower(*output),
		OutputPath: *outputPath,
		DeviceID:   *deviceID,
		LogLevel:   strings.ToLower(*logLevel),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects a configuration that would fail later in a confusing
// way (bad sink kind, non-positive geometry), so startup errors are fatal
// and reported with a clear message rather than surfacing as a panic deep
// in the compositor or sink.
func (c *Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("config: width and height must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("config: fps must be positive, got %d", c.FPS)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: port out of range: %d", c.Port)
	}
	valid := false
	for _, o := range ValidOutputs {
		if c.Output == o {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("config: invalid --output %q, want one of %v", c.Output, ValidOutputs)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}
