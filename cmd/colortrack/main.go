package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/banshee-data/colortrack/internal/camera"
	"github.com/banshee-data/colortrack/internal/config"
	"github.com/banshee-data/colortrack/internal/db"
	"github.com/banshee-data/colortrack/internal/feed"
	"github.com/banshee-data/colortrack/internal/input"
	"github.com/banshee-data/colortrack/internal/ledstrip"
	"github.com/banshee-data/colortrack/internal/mailbox"
	"github.com/banshee-data/colortrack/internal/monitor"
	"github.com/banshee-data/colortrack/internal/monitoring"
	"github.com/banshee-data/colortrack/internal/preview"
	"github.com/banshee-data/colortrack/internal/tracker"
	"github.com/banshee-data/colortrack/internal/version"
	"github.com/banshee-data/colortrack/internal/vision"
)

var (
	configFile    = flag.String("config", "", "Path to JSON startup config")
	width         = flag.Int("width", 400, "Frame width after resize (200-4000)")
	middlePercent = flag.Int("middle-percent", 15, "Tolerance band as a percent of half the frame width (2-98)")
	flipX         = flag.Bool("flip-x", false, "Flip frames vertically")
	flipY         = flag.Bool("flip-y", false, "Flip frames horizontally")
	single        = flag.Bool("single", false, "Track the largest blob instead of the midpoint of two")
	grpcListen    = flag.String("grpc-listen", "[::]:50051", "Position feed listen address")
	maxClients    = flag.Int("max-clients", 16, "Maximum concurrent feed streams (0 for unlimited)")
	httpListen    = flag.String("http-listen", "", "Preview and monitor listen address (empty disables)")
	display       = flag.Bool("display", false, "Annotate frames and read keyboard commands from the terminal")
	leds          = flag.Bool("leds", false, "Drive the alignment indicator LEDs")
	ledPort       = flag.String("led-port", "/dev/ttyACM0", "Serial port of the LED controller")
	cameraSpec    = flag.String("camera", "synthetic", "Frame source: synthetic[:WxH], dir:PATH, screen[:X,Y,W,H]")
	bgr           = flag.String("bgr", "174,56,5", "Target colour as b,g,r")
	hsvRange      = flag.Int("hsv-range", 20, "Hue tolerance on the 0-179 scale")
	minimumPixels = flag.Int("minimum-pixels", 100, "Smallest blob area in pixels")
	dbPath        = flag.String("db", "", "SQLite position log (empty disables)")
	snapshotDir   = flag.String("snapshot-dir", "snapshots", "Directory for saved snapshots")
	debug         = flag.Bool("debug", false, "Log every published position")
	showVersion   = flag.Bool("version", false, "Print version and exit")
)

// loadConfig merges the optional config file with explicitly set flags;
// flags win.
func loadConfig() (*config.TrackerConfig, error) {
	cfg := config.EmptyTrackerConfig()
	if *configFile != "" {
		var err error
		if cfg, err = config.LoadTrackerConfig(*configFile); err != nil {
			return nil, err
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "width":
			cfg.Width = width
		case "middle-percent":
			cfg.MiddlePercent = middlePercent
		case "flip-x":
			cfg.FlipX = flipX
		case "flip-y":
			cfg.FlipY = flipY
		case "single":
			cfg.SingleObject = single
		case "grpc-listen":
			cfg.GRPCListen = grpcListen
		case "max-clients":
			cfg.MaxClients = maxClients
		case "http-listen":
			cfg.HTTPListen = httpListen
		case "leds":
			cfg.LEDs = leds
		case "led-port":
			cfg.LEDPort = ledPort
		case "camera":
			cfg.Camera = cameraSpec
		case "bgr":
			cfg.BGRColor = bgr
		case "hsv-range":
			cfg.HSVRange = hsvRange
		case "minimum-pixels":
			cfg.MinimumPixels = minimumPixels
		case "db":
			cfg.DBPath = dbPath
		case "snapshot-dir":
			cfg.SnapshotDir = snapshotDir
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	monitoring.SetDebug(*debug)

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	target, err := config.ParseBGR(cfg.GetBGRColor())
	if err != nil {
		log.Fatalf("Invalid colour: %v", err)
	}
	finder, err := vision.NewColorFinder(target, cfg.GetHSVRange(), cfg.GetMinimumPixels())
	if err != nil {
		log.Fatalf("Invalid segmentation settings: %v", err)
	}

	cam, err := camera.Open(cfg.GetCamera(), target)
	if err != nil {
		log.Fatalf("Unable to open camera %q: %v", cfg.GetCamera(), err)
	}

	mb := mailbox.New()
	feedSvc := feed.NewService(feed.Config{ListenAddr: cfg.GetGRPCListen(), MaxClients: cfg.GetMaxClients()}, mb)
	if err := feedSvc.Start(); err != nil {
		log.Printf("Unable to start location server: %v", err)
		cam.Close()
		os.Exit(1)
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store *db.DB
	if path := cfg.GetDBPath(); path != "" {
		if store, err = db.OpenDB(path); err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer store.Close()

		rec := db.NewRecorder(store, mb.Subscribe("recorder"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := rec.Run(context.Background()); err != nil {
				log.Printf("Recorder stopped: %v", err)
			}
		}()
	}

	strip := ledstrip.Probe(cfg.GetLEDs(), cfg.GetLEDPort(), ledstrip.PortOptions{})
	defer strip.Close()

	commands := input.NewQueue(32)
	runtime := cfg.Runtime()

	mode := tracker.Dual
	if cfg.GetSingleObject() {
		mode = tracker.Single
	}
	opts := tracker.Options{
		Camera:    cam,
		Segmenter: finder,
		Publisher: mb,
		Runtime:   runtime,
		Mode:      mode,
		LEDs:      strip,
		Commands:  commands,
		Snapshots: preview.NewSnapshotWriter(cfg.GetSnapshotDir()),
		Annotate:  *display,
	}
	if store != nil {
		opts.SnapshotDB = store
	}

	pv := preview.NewServer(cfg.GetHTTPListen())
	if pv.Enabled() {
		opts.Preview = pv
	}
	loop, err := tracker.New(opts)
	if err != nil {
		log.Fatalf("Failed to build tracking loop: %v", err)
	}

	if pv.Enabled() {
		mux := pv.ServeMux()
		src := monitor.Sources{
			Mailbox:  mb,
			Runtime:  runtime,
			Loop:     loop,
			Feed:     feedSvc,
			Commands: commands,
		}
		if store != nil {
			src.History = store
			if err := store.AttachAdminRoutes(mux); err != nil {
				log.Printf("Admin routes unavailable: %v", err)
			}
		}
		monitor.NewWebServer(src).AttachRoutes(mux)
		if err := pv.Start(); err != nil {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}

	inputCtx, stopInput := context.WithCancel(ctx)
	inputDone := make(chan struct{})
	if *display {
		if term := input.NewTerminal(commands); term != nil {
			go func() {
				defer close(inputDone)
				if err := term.Run(inputCtx); err != nil {
					log.Printf("Keyboard input stopped: %v", err)
				}
			}()
		} else {
			log.Printf("stdin is not a terminal, keyboard commands disabled")
			close(inputDone)
		}
	} else {
		close(inputDone)
	}

	log.Printf("colortrack %s: camera=%s feed=%s", version.String(), cfg.GetCamera(), feedSvc.Addr())

	// The loop owns the main goroutine until interrupted or told to quit.
	if err := loop.Run(ctx); err != nil {
		log.Printf("Tracking loop error: %v", err)
	}
	// Wait for the keyboard reader so the terminal leaves raw mode before exit.
	stopInput()
	<-inputDone

	log.Printf("shutting down...")
	feedSvc.Stop()
	mb.Close()
	wg.Wait()
	pv.Stop()

	log.Printf("Graceful shutdown complete")
}
