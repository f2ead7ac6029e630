package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagDepth      = flag.Int("depth", 0, "Fractal depth (1-8)")
	flagSpinRate   = flag.Float64("spin-rate", -1, "Spin rate in multiples of pi per second")
	flagSeed       = flag.Int("seed", 0, "Hash grid seed")
	flagSeedSet    = false
	flagResolution = flag.Int("resolution", 0, "Hash grid resolution (1-512)")
	flagWorkers    = flag.Int("workers", -1, "Worker count (0 = GOMAXPROCS)")
	flagFrames     = flag.Int("frames", -1, "Frames to simulate (0 = until interrupted)")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			flagSeedSet = true
		}
	})
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
	if *flagDepth > 0 {
		cfg.Fractal.Depth = *flagDepth
	}
	if *flagSpinRate >= 0 {
		cfg.Fractal.SpinRate = float32(*flagSpinRate)
	}
	if flagSeedSet {
		cfg.Hash.Seed = int32(*flagSeed)
	}
	if *flagResolution > 0 {
		cfg.Hash.Resolution = *flagResolution
	}
	if *flagWorkers >= 0 {
		cfg.Parallel.Workers = *flagWorkers
	}
	if *flagFrames >= 0 {
		cfg.Run.Frames = *flagFrames
	}
}
