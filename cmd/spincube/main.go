// Command spincube renders the spinning cube on a registered host.
//
// Without a windowing host linked in, the headless host is used and the
// frames go to the noop backend. This is useful to exercise the full frame
// path (uploads, passes, submission, presentation) and to check a config.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/gogpu/spincube"
	"github.com/gogpu/spincube/host"
)

func main() {
	var (
		configPath = flag.String("config", "", "TOML config file")
		hostName   = flag.String("host", "", "host to open (default: best available; one of "+strings.Join(host.List(), ", ")+")")
		frames     = flag.Int("frames", 120, "frames to render, 0 runs until interrupted")
		step       = flag.Float64("step", 1.0/60, "seconds per frame, 0 uses the wall clock")
		width      = flag.Uint("width", 0, "surface width (overrides config)")
		height     = flag.Uint("height", 0, "surface height (overrides config)")
		spirv      = flag.Bool("spirv", false, "compile shaders to SPIR-V (overrides config)")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	spincube.SetLogger(logger)

	cfg := spincube.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = spincube.LoadConfig(*configPath); err != nil {
			log.Fatal(err)
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "width":
			cfg.Width = uint32(*width)
		case "height":
			cfg.Height = uint32(*height)
		case "spirv":
			cfg.SPIRV = *spirv
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	opts := host.Options{Width: cfg.Width, Height: cfg.Height}
	var (
		h   host.Host
		err error
	)
	if *hostName != "" {
		h, err = host.NewByName(*hostName, opts)
	} else {
		h, err = host.New(opts)
	}
	if err != nil {
		log.Fatalf("open host: %v", err)
	}
	defer h.Close()

	r, err := spincube.New(h, h, spincube.WithConfig(cfg))
	if err != nil {
		log.Fatalf("create renderer: %v", err)
	}
	defer r.Close()

	var clock spincube.Clock = spincube.NewStepClock(*step)
	if *step <= 0 {
		clock = spincube.NewWallClock()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runErr := r.Run(ctx, clock, *frames)
	stats := r.Stats()
	logger.Info("done",
		"rendered", stats.Rendered,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"unpresented", stats.Unpresented)
	if runErr != nil && ctx.Err() == nil {
		r.Close()
		h.Close()
		log.Fatalf("run: %v", runErr)
	}
}
