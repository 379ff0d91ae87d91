package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// config holds the effective settings: YAML file values overridden by
// command-line flags.
type config struct {
	Packet         bool   `yaml:"packet"`
	Sequence       bool   `yaml:"sequence"`
	AMF3           bool   `yaml:"amf3"`
	UseCollections bool   `yaml:"use_collections"`
	UseProxies     bool   `yaml:"use_proxies"`
	NoReferences   bool   `yaml:"no_references"`
	FlexMessages   bool   `yaml:"flex_messages"`
	LogLevel       string `yaml:"log_level"`

	input string
}

func defaultConfig() config {
	return config{LogLevel: "info"}
}

func parseFlags(args []string) (config, error) {
	fs := pflag.NewFlagSet("amfdump", pflag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	cfg := defaultConfig()
	configPath := fs.String("config", "", "YAML config file")
	fs.BoolVar(&cfg.Packet, "packet", cfg.Packet, "decode a NetConnection packet instead of a bare value")
	fs.BoolVar(&cfg.Sequence, "sequence", cfg.Sequence, "decode values until the input is exhausted")
	fs.BoolVar(&cfg.AMF3, "amf3", cfg.AMF3, "decode AMF3 instead of AMF0")
	fs.BoolVar(&cfg.FlexMessages, "flex-messages", cfg.FlexMessages, "register the flex.messaging.messages classes")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug|info|warn|error")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	if *configPath != "" {
		fileCfg := defaultConfig()
		raw, err := os.ReadFile(*configPath)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
		// Flags set explicitly on the command line win over the file.
		merged := fileCfg
		fs.Visit(func(f *pflag.Flag) {
			switch f.Name {
			case "packet":
				merged.Packet = cfg.Packet
			case "sequence":
				merged.Sequence = cfg.Sequence
			case "amf3":
				merged.AMF3 = cfg.AMF3
			case "flex-messages":
				merged.FlexMessages = cfg.FlexMessages
			case "log-level":
				merged.LogLevel = cfg.LogLevel
			}
		})
		cfg = merged
	}

	if fs.NArg() > 1 {
		return cfg, fmt.Errorf("expected at most one input file, got %d", fs.NArg())
	}
	if fs.NArg() == 1 {
		cfg.input = fs.Arg(0)
	}
	return cfg, nil
}
