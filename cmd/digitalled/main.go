package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/conntest"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/digitalled/effect"
	"github.com/coreman2200/digitalled/internal/config"
	diag "github.com/coreman2200/digitalled/internal/diagnostics"
	"github.com/coreman2200/digitalled/internal/preview"
	"github.com/coreman2200/digitalled/model"
	"github.com/coreman2200/digitalled/spi"
)

func main() {
	// ---- Flags (override config.yaml when set) ----
	var (
		configPath = flag.String("config", "config.yaml", "path to config.yaml")
		leds       = flag.Int("leds", 0, "number of LEDs in the chain")
		port       = flag.String("port", "", "SPI port, e.g. /dev/spidev0.0 (default: first available)")
		speed      = flag.Int64("speed", 0, "SPI clock in Hz")
		fps        = flag.Int("fps", 0, "refresh rate of the rainbow loop")
		addr       = flag.String("addr", "", "preview HTTP listen address, \"-\" disables it")
		program    = flag.String("program", "", "effect program file (YAML or JSON)")
		sim        = flag.Bool("sim", false, "force simulation (no hardware output)")
		term       = flag.Bool("term", false, "draw frames in the terminal")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	// ---- Config ----
	cfg := config.Default()
	if c, err := config.Load(*configPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Fatal().Err(err).Str("path", *configPath).Msg("config load failed")
		}
		log.Debug().Str("path", *configPath).Msg("no config file; using defaults")
	} else {
		cfg = c
	}
	if *leds > 0 {
		cfg.Leds = *leds
	}
	if *port != "" {
		cfg.SPI.Port = *port
	}
	if *speed > 0 {
		cfg.SPI.SpeedHz = *speed
	}
	if *fps > 0 {
		cfg.FPS = *fps
	}
	if *addr != "" {
		cfg.Preview.Addr = *addr
	}
	if cfg.Preview.Addr == "-" {
		cfg.Preview.Addr = ""
	}
	if *program != "" {
		cfg.Effect.Program = *program
	}
	if *sim {
		cfg.Sim = true
	}
	if *term {
		cfg.Preview.Terminal = true
	}
	if *verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	zerolog.SetGlobalLevel(cfg.Level())

	// ---- Bus: SPI, or a discarding bus in simulation ----
	bus, closeBus := openBus(cfg)
	defer closeBus()

	// ---- Preview ----
	hub := preview.NewHub(time.Duration(cfg.Preview.ThrottleMs)*time.Millisecond, nil)
	var srv *http.Server
	if cfg.Preview.Addr != "" {
		srv = &http.Server{
			Addr:         cfg.Preview.Addr,
			Handler:      withCORS(hub.Handler()),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			log.Info().Str("addr", cfg.Preview.Addr).Msg("preview server starting")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("preview server stopped")
			}
		}()
	}

	// ---- Run until SIGINT/SIGTERM (or q in the terminal preview) ----
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	publish := hub.PublishFrame
	if cfg.Preview.Terminal {
		tv, err := preview.NewTerminal(nil)
		if err != nil {
			log.Fatal().Err(err).Msg("terminal preview")
		}
		// the screen owns the tty from here on
		log.Logger = log.Output(zerolog.Nop())
		defer tv.Close()
		go tv.Run(stop)
		publish = func(frame []byte) {
			hub.PublishFrame(frame)
			tv.PublishFrame(frame)
		}
	}

	// ---- Strip + driver ----
	strip := model.NewStrip(cfg.Leds)
	drv, err := spi.New(bus, strip, &spi.Opts{
		Timeout:      cfg.Timeout(),
		RetryOnError: cfg.SPI.RetryOnError,
		Hooks: spi.Hooks{
			Frame: publish,
			Error: hub.PublishError,
		},
	})
	if err != nil {
		log.Warn().Err(err).Msg("initial frame failed")
	}
	hub.PushDiag(diag.StripInit(cfg.Leds, bus.String()))

	if cfg.Effect.Program != "" {
		runProgram(ctx, cfg, drv)
	} else {
		spi.NewLooper(drv, cfg.FPS, effect.Rainbow(5*time.Second), nil).Run(ctx)
	}

	log.Info().Uint64("frames", drv.Frames()).Uint64("failures", drv.Failures()).Msg("shutting down")
	if err := drv.Halt(); err != nil {
		log.Warn().Err(err).Msg("halt")
	}
	if srv != nil {
		_ = srv.Close()
	}
}

// programFor loads the configured program. effect.loop can only switch
// looping on.
func programFor(cfg *config.Config) (effect.Program, error) {
	prog, err := effect.LoadProgram(cfg.Effect.Program)
	if err != nil {
		return prog, err
	}
	if cfg.Effect.Loop {
		prog.Loop = true
	}
	return prog, nil
}

func runProgram(ctx context.Context, cfg *config.Config, drv *spi.Driver) {
	prog, err := programFor(cfg)
	if err != nil {
		log.Error().Err(err).Msg("effect program")
		return
	}
	p := effect.NewPlayer(effect.New(effect.StripTarget(drv.Strip(), drv.Update), nil))
	if cfg.Effect.Steps > 0 {
		p.Steps = cfg.Effect.Steps
	}
	p.Delay = time.Duration(cfg.Effect.DelayMs) * time.Millisecond
	if err := p.Run(ctx, prog); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("effect program aborted")
	}
}

func openBus(cfg *config.Config) (conn.Conn, func()) {
	sim := func() (conn.Conn, func()) {
		log.Info().Int("leds", cfg.Leds).Msg("simulation bus, frames only reach the preview")
		return &conntest.Discard{D: conn.Half}, func() {}
	}
	if cfg.Sim {
		return sim()
	}
	p, err := spi.Open(cfg.SPI.Port, physic.Frequency(cfg.SPI.SpeedHz)*physic.Hertz, cfg.SPI.Mode)
	if err != nil {
		log.Warn().Err(err).Str("port", cfg.SPI.Port).Msg("SPI init failed; falling back to SIM")
		return sim()
	}
	return p, func() { _ = p.Close() }
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(200)
			return
		}
		h.ServeHTTP(w, r)
	})
}
