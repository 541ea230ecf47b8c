package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"go-bwfilter/pkg/threshold"
)

// EnvPrefix prefixes the environment overrides, e.g. BWFILTER_SIGMA.
const EnvPrefix = "BWFILTER"

// Settings are the values read from the configuration file.
type Settings struct {
	Skeleton   string  `envconfig:"SKELETON"`
	Definition string  `envconfig:"DEFINITION"`
	Sigma      float64 `envconfig:"SIGMA"`
}

// Config holds everything a run needs from the command line and the
// configuration file.
type Config struct {
	StreamLength     int
	FarmWorkers      int
	HistogramWorkers int
	FilterWorkers    int
	Settings
}

// Default returns the configuration used when nothing is supplied.
func Default() Config {
	return Config{
		StreamLength:     1,
		FarmWorkers:      1,
		HistogramWorkers: 1,
		FilterWorkers:    1,
		Settings: Settings{
			Skeleton:   "sf",
			Definition: "hd",
			Sigma:      0.1,
		},
	}
}

// Filename is the input image selected by the definition.
func (c Config) Filename() string {
	return "test" + c.Definition + ".bmp"
}

// Load builds a configuration from positional args, the file at path and
// the environment, in that order of precedence from lowest to highest for
// the file settings. A missing file leaves the defaults in place.
func Load(path string, args []string) (Config, error) {
	cfg := Default()
	ParseArgs(args, &cfg)

	if path != "" {
		if err := LoadFile(path, &cfg.Settings); err != nil {
			return cfg, err
		}
	}
	if err := envconfig.Process(EnvPrefix, &cfg.Settings); err != nil {
		return cfg, errors.Wrap(err, "read environment")
	}

	cfg.Sigma = threshold.ClampSigma(cfg.Sigma)
	return cfg, nil
}

// ParseArgs reads streamLength nWorkersFarm nWorkersHistogram nWorkersFilter.
// Missing or malformed values keep their defaults; worker counts below one
// and negative stream lengths are treated as malformed.
func ParseArgs(args []string, cfg *Config) {
	fields := []struct {
		dst *int
		min int
	}{
		{&cfg.StreamLength, 0},
		{&cfg.FarmWorkers, 1},
		{&cfg.HistogramWorkers, 1},
		{&cfg.FilterWorkers, 1},
	}
	for i, f := range fields {
		if i >= len(args) {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(args[i]))
		if err != nil || n < f.min {
			continue
		}
		*f.dst = n
	}
}

// LoadFile applies the configuration file at path to s. The format is
// chosen by extension: .yaml/.yml, .toml, anything else is the line format
//
//	-skeleton
//	pf
//	-sigma
//	0.2
//
// Unknown keys are ignored and malformed numbers keep the current value.
func LoadFile(path string, s *Settings) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return loadStructured(path, s, yaml.Unmarshal)
	case ".toml":
		return loadStructured(path, s, toml.Unmarshal)
	default:
		return loadLines(path, s)
	}
}

func loadStructured(path string, s *Settings, unmarshal func([]byte, any) error) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "read config %s", path)
	}

	values := map[string]any{}
	if err := unmarshal(data, &values); err != nil {
		return errors.Wrapf(err, "parse config %s", path)
	}
	for key, value := range values {
		s.apply(key, fmt.Sprint(value))
	}
	return nil
}

func loadLines(path string, s *Settings) error {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "open config %s", path)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		key := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(key, "-") {
			continue
		}
		if !scanner.Scan() {
			break
		}
		s.apply(strings.TrimPrefix(key, "-"), scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "read config %s", path)
	}
	return nil
}

func (s *Settings) apply(key, value string) {
	value = strings.TrimSpace(value)
	switch strings.ToLower(key) {
	case "skeleton":
		s.Skeleton = value
	case "definition":
		s.Definition = value
	case "sigma":
		if sigma, err := strconv.ParseFloat(value, 64); err == nil {
			s.Sigma = sigma
		}
	}
}
