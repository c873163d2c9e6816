package config

import (
	"flag"
	"strings"
)

var (
	flagConfig = flag.String("config", "", "Path to config file")
	flagDebug  = flag.Bool("debug", false, "Enable debug logging")
	flagLog    = flag.String("log", "", "Write logs to this file")
	flagFPS    = flag.Int("fps", 0, "Motion frames per second")
	flagNoIK   = flag.Bool("noik", false, "Disable IK solving")
	flagData   = flag.String("data", "", "Comma-separated directories searched for model and motion files")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagLog != "" {
		cfg.Logging.LogFile = *flagLog
	}
	if *flagFPS > 0 {
		cfg.Animation.FPS = *flagFPS
	}
	if *flagNoIK {
		cfg.Animation.IKEnabled = false
	}
	if *flagData != "" {
		var paths []string
		for _, p := range strings.Split(*flagData, ",") {
			if p = strings.TrimSpace(p); p != "" {
				paths = append(paths, p)
			}
		}
		// Flag directories are searched before configured ones
		cfg.Data.SearchPaths = append(paths, cfg.Data.SearchPaths...)
	}
}
