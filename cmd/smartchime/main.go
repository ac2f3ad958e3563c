// Command smartchime drives the doorbell chime: rotary encoders, an OLED
// status display, an on-demand HDMI video display and sound playback, all
// fed by MQTT notifications.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/smartchime/internal/audio"
	"github.com/sweeney/smartchime/internal/config"
	"github.com/sweeney/smartchime/internal/display"
	"github.com/sweeney/smartchime/internal/encoder"
	"github.com/sweeney/smartchime/internal/event"
	"github.com/sweeney/smartchime/internal/gpio"
	"github.com/sweeney/smartchime/internal/ingress"
	"github.com/sweeney/smartchime/internal/metrics"
	"github.com/sweeney/smartchime/internal/mqtt"
	"github.com/sweeney/smartchime/internal/orchestrator"
	"github.com/sweeney/smartchime/internal/playback"
	"github.com/sweeney/smartchime/internal/status"
	"github.com/sweeney/smartchime/internal/throttle"
	"github.com/sweeney/smartchime/internal/web"
)

func main() {
	path := flag.StringP("config", "c", config.DefaultPath, "Path to the YAML configuration file")
	debug := flag.Bool("debug", false, "Log at debug level (overrides log.level)")
	httpAddr := flag.String("http", "", "HTTP status address (overrides http.addr, \"off\" disables)")
	printConfig := flag.Bool("print-config", false, "Print the effective configuration and exit")
	flag.Parse()

	cfg, warnings, err := config.Load(*path)
	if err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
	applyOverrides(cfg, *debug, *httpAddr)

	slog.SetDefault(newLogger(os.Stderr, cfg.Log.Level))
	for _, w := range warnings {
		slog.Warn("config", "warning", w)
	}

	if *printConfig {
		if err := writeConfig(os.Stdout, cfg); err != nil {
			slog.Error("fatal", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func applyOverrides(cfg *config.Config, debug bool, httpAddr string) {
	if debug {
		cfg.Log.Level = "debug"
	}
	switch httpAddr {
	case "":
	case "off":
		cfg.HTTP.Addr = ""
	default:
		cfg.HTTP.Addr = httpAddr
	}
}

func writeConfig(w io.Writer, cfg *config.Config) error {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func run(cfg *config.Config) error {
	metrics.Register(prometheus.DefaultRegisterer)

	gate := newGate(cfg)

	// Encoders first: a missing GPIO line is fatal before anything else
	// touches the network.
	var (
		controllers []*encoder.Controller
		readers     []gpio.Reader
	)
	defer func() {
		for _, r := range readers {
			r.Close()
		}
	}()
	for _, ec := range cfg.GPIO.Encoders {
		ctrl, err := encoder.NewController(encoder.Binding{Name: ec.Name, Rotate: ec.Rotate, Press: ec.Press}, gate, cfg.GPIO.StepsPerDetent, cfg.GPIO.Debounce)
		if err != nil {
			return err
		}
		r, err := gpio.NewRealReader(cfg.GPIO.Chip, gpio.Pins{CLK: ec.CLK, DT: ec.DT, SW: ec.SW})
		if err != nil {
			return fmt.Errorf("init encoder %s: %w", ec.Name, err)
		}
		controllers = append(controllers, ctrl)
		readers = append(readers, r)
	}

	// Audio
	sounds, err := audio.LoadLibrary(cfg.Audio.Directory, cfg.Audio.DefaultSound)
	if err != nil {
		return err
	}
	dev := audio.NewDevice(audio.DeviceConfig{
		Player:       cfg.Audio.Player,
		MixerCommand: cfg.Audio.Mixer.Command,
		Card:         cfg.Audio.Mixer.Device,
		Control:      cfg.Audio.Mixer.Control,
	})
	defer dev.Stop()
	arbiter := playback.NewArbiter(playback.Config{
		VolumeStep:    cfg.Audio.VolumeStep,
		InitialVolume: cfg.Audio.InitialVolume,
		MaxPlayback:   cfg.Audio.MaxPlayback,
	}, dev, gate, sounds)
	arbiter.Init()

	// Displays
	font, err := display.LoadFont(cfg.Displays.OLED.Font, cfg.Displays.OLED.FontSize)
	if err != nil {
		return err
	}
	composer, err := display.NewComposer(composerConfig(cfg), font)
	if err != nil {
		return err
	}
	var (
		statusDisplay display.StatusDisplay
		frames        web.FrameSource
	)
	if cfg.Displays.OLED.Enabled {
		panel, err := display.OpenPanel(display.PanelConfig{
			SPIPort:  cfg.Displays.OLED.SPIPort,
			DCPin:    cfg.Displays.OLED.DCPin,
			ResetPin: cfg.Displays.OLED.ResetPin,
			Width:    cfg.Displays.OLED.Width,
			Height:   cfg.Displays.OLED.Height,
		})
		if err != nil {
			// The daemon stays useful without the panel; frames still reach
			// /display.png.
			slog.Warn("status display unavailable", "error", err)
			metrics.RecordDeviceError("oled")
		}
		raster := display.NewRaster(panel, font, cfg.Displays.OLED.Width, cfg.Displays.OLED.Height)
		defer raster.Close()
		statusDisplay = raster
		frames = raster
	}

	var largeDev display.LargeDisplay = headless{}
	if cfg.Displays.HDMI.Enabled {
		largeDev = display.NewHDMI(display.HDMIConfig{
			PowerCommand: cfg.Displays.HDMI.PowerCommand,
			Player:       cfg.Displays.HDMI.Player,
			PlayerArgs:   cfg.Displays.HDMI.PlayerArgs,
			Framebuffer:  cfg.Displays.HDMI.Framebuffer,
		})
	}
	large := display.NewLarge(display.LargeConfig{
		DefaultStream: cfg.Video.DefaultStream,
		Hold:          cfg.Displays.HDMI.Hold,
		ManualHold:    cfg.Displays.HDMI.ManualHold,
	}, largeDev)
	defer large.Close()

	// Status tracker (before STARTUP so the snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		TickMs:      cfg.Controls.Tick.Milliseconds(),
		PollMs:      cfg.GPIO.Poll.Milliseconds(),
		DebounceMs:  cfg.GPIO.Debounce.Milliseconds(),
		HeartbeatMs: cfg.MQTT.Heartbeat.Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		HTTPAddr:    cfg.HTTP.Addr,
		SoundDir:    cfg.Audio.Directory,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	// MQTT
	client, err := mqtt.NewRealClient(mqtt.Options{
		Broker:      cfg.MQTT.Broker,
		Username:    cfg.MQTT.Username,
		Password:    cfg.MQTT.Password,
		ClientID:    cfg.MQTT.ClientID,
		SystemTopic: cfg.MQTT.Topics.System,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	intents := make(chan event.Intent, cfg.Controls.QueueSize)
	events := make(chan event.External, cfg.Controls.QueueSize)

	in := ingress.New(ingress.Topics{
		Doorbell: cfg.MQTT.Topics.Doorbell,
		Motion:   cfg.MQTT.Topics.Motion,
		Message:  cfg.MQTT.Topics.Message,
		Track:    cfg.MQTT.Topics.Track,
	}, events, nil)
	if err := in.Start(client); err != nil {
		return err
	}

	// HTTP status server
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, frames, prometheus.DefaultGatherer)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("http server error", "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		slog.Info("http status server listening", "addr", cfg.HTTP.Addr)
	}

	var motionSound string
	if cfg.Audio.MotionSound != "" {
		motionSound = sounds.PathOf(cfg.Audio.MotionSound)
	}
	o := orchestrator.New(orchestrator.Config{
		Heartbeat:        cfg.MQTT.Heartbeat,
		MotionSound:      motionSound,
		AutoShowDoorbell: cfg.AutoShows("doorbell"),
		AutoShowMotion:   cfg.AutoShows("motion"),
	}, orchestrator.Deps{
		Arbiter:    arbiter,
		Composer:   composer,
		Status:     statusDisplay,
		Large:      large,
		Encoders:   controllers,
		Tracker:    tracker,
		Publisher:  client,
		Connection: client,
		Network:    readNetworkInfo,
	}, time.Now)

	o.Start()
	slog.Info("started",
		"tick", cfg.Controls.Tick,
		"poll", cfg.GPIO.Poll,
		"debounce", cfg.GPIO.Debounce,
		"broker", cfg.MQTT.Broker,
		"heartbeat", cfg.MQTT.Heartbeat,
		"encoders", len(controllers),
		"sounds", sounds.Len(),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	ticker := time.NewTicker(cfg.Controls.Tick)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	for i, ctrl := range controllers {
		ctrl, r := ctrl, readers[i]
		g.Go(func() error {
			return ctrl.Run(gctx, r, cfg.GPIO.Poll, time.Now, intents)
		})
	}
	g.Go(func() error {
		defer cancel()
		return o.Run(gctx, intents, events, ticker.C, sigCh)
	})

	return g.Wait()
}

// newGate resolves the configured throttle windows against the loop tick.
func newGate(cfg *config.Config) *throttle.Gate {
	intervals := make(map[throttle.Category]time.Duration)
	for k, d := range cfg.Intervals() {
		intervals[throttle.Category(k)] = d
	}
	return throttle.NewGate(intervals)
}

func composerConfig(cfg *config.Config) display.ComposerConfig {
	oled := cfg.Displays.OLED
	loc := time.Local
	if oled.Timezone != "" {
		// Validated at load time.
		if l, err := time.LoadLocation(oled.Timezone); err == nil {
			loc = l
		}
	}
	slots := make([]display.Slot, len(oled.Widgets))
	for i, w := range oled.Widgets {
		slots[i] = display.Slot{Kind: display.WidgetKind(w.Kind), X: w.X, Y: w.Y, Width: w.Width, Scroll: w.Scroll}
	}
	return display.ComposerConfig{
		Width:          oled.Width,
		Height:         oled.Height,
		ScrollStep:     oled.ScrollStep,
		ClockFormat:    oled.ClockFormat,
		Location:       loc,
		NoticeDuration: oled.NoticeDuration,
		Slots:          slots,
	}
}

// headless stands in for the video display when it is disabled. The toggle
// state is still tracked and reported.
type headless struct{}

func (headless) Show(display.Source) error { return nil }
func (headless) Hide() error                { return nil }

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
