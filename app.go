package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/kwv/headmesh/headshape"
)

// App encapsulates the application state and dependencies
type App struct {
	Config     *headshape.Config
	Session    *headshape.Session
	MQTTClient *headshape.MQTTClient
	Publisher  *headshape.Publisher

	// CLI Flags (effectively dependencies)
	ConfigFile   string
	LoadFile     string
	DigitizerURL string
	DataDir      string
	ResolutionMM int
	OutputFile   string
	RenderFormat string
	PlaneName    string
	WarmSpec     string
	HttpPort     int
	MqttMode     bool
	HttpMode     bool
}

// AppOptions carries parsed CLI flags into the App.
type AppOptions struct {
	ConfigFile   string
	LoadFile     string
	DigitizerURL string
	DataDir      string
	ResolutionMM int
	OutputFile   string
	RenderFormat string
	PlaneName    string
	WarmSpec     string
	HttpPort     int
	MqttMode     bool
	HttpMode     bool
}

// NewApp creates a new App instance
func NewApp() *App {
	return &App{}
}

// ApplyOptions applies CLI options to the App instance
func (a *App) ApplyOptions(opts AppOptions) {
	a.ConfigFile = opts.ConfigFile
	a.LoadFile = opts.LoadFile
	a.DigitizerURL = opts.DigitizerURL
	a.DataDir = opts.DataDir
	a.ResolutionMM = opts.ResolutionMM
	a.OutputFile = opts.OutputFile
	a.RenderFormat = opts.RenderFormat
	a.PlaneName = opts.PlaneName
	a.WarmSpec = opts.WarmSpec
	a.HttpPort = opts.HttpPort
	a.MqttMode = opts.MqttMode
	a.HttpMode = opts.HttpMode
}

// loadConfig resolves and loads the configuration file, falling back to
// defaults when no file exists.
func (a *App) loadConfig() *headshape.Config {
	resolved := a.ConfigFile
	if a.DataDir != "." && resolved == "config.yaml" {
		resolved = filepath.Join(a.DataDir, "config.yaml")
	}

	if _, err := os.Stat(resolved); err == nil {
		config, err := headshape.LoadConfig(resolved)
		if err != nil {
			log.Fatalf("Failed to load config: %v (looked at %s)", err, resolved)
		}
		log.Printf("Loaded config from %s", resolved)
		a.Config = config
		return config
	}

	config := &headshape.Config{}
	headshape.ApplyDefaults(config)
	a.Config = config
	return config
}

// newSession builds an unloaded session from the configured bounds.
func (a *App) newSession(config *headshape.Config) *headshape.Session {
	session := headshape.NewSession(config.Resolution, &headshape.VoxelDecimator{})
	a.Session = session
	return session
}

// loadSource installs the source cloud from the digitizer endpoint or a local
// file, whichever is configured. Returns an error when neither is set.
func (a *App) loadSource() error {
	url := a.DigitizerURL
	if url == "" && a.Config != nil {
		url = a.Config.DigitizerURL
	}
	if url != "" {
		cloud, err := headshape.FetchCloudFromAPI(url)
		if err != nil {
			return err
		}
		log.Printf("Fetched %d points from %s", len(cloud), url)
		return a.Session.SetSourceCloud(cloud)
	}

	if a.LoadFile == "" {
		return fmt.Errorf("no source: provide --load or a digitizer URL")
	}
	path := a.LoadFile
	if a.DataDir != "." && !filepath.IsAbs(path) {
		path = filepath.Join(a.DataDir, path)
	}
	if err := a.Session.LoadFile(path); err != nil {
		return err
	}
	log.Printf("Loaded head-shape cloud from %s", path)
	return nil
}

// applyStartupState applies the resolution flag and the warm range after a
// successful load.
func (a *App) applyStartupState() {
	if a.ResolutionMM > 0 {
		if err := a.Session.SetResolution(a.ResolutionMM); err != nil {
			log.Fatalf("Failed to set resolution %d mm: %v", a.ResolutionMM, err)
		}
	}

	warm := a.WarmSpec
	if warm == "" && a.Config.Warm != nil {
		warm = fmt.Sprintf("%d:%d", a.Config.Warm.FromMM, a.Config.Warm.ToMM)
	}
	if warm != "" {
		from, to, err := parseWarmSpec(warm)
		if err != nil {
			log.Fatalf("Invalid warm range %q: %v", warm, err)
		}
		if err := a.Session.Warm(from, to); err != nil {
			log.Fatalf("Failed to warm cache: %v", err)
		}
		fmt.Printf("Warmed decimation cache for %d-%d mm\n", from, to)
	}
}

// RunParseOnly loads the cloud, prints summary statistics, and exits.
func (a *App) RunParseOnly() {
	config := a.loadConfig()
	a.newSession(config)

	if err := a.loadSource(); err != nil {
		log.Fatalf("Error loading head-shape cloud: %v", err)
	}
	a.applyStartupState()

	visible, err := a.Session.Visible()
	if err != nil {
		log.Fatalf("Error reading visible set: %v", err)
	}
	reference, err := a.Session.Reference()
	if err != nil {
		log.Fatalf("Error reading reference set: %v", err)
	}

	fmt.Printf("=== session %s ===\n", a.Session.ID())
	fmt.Printf("Resolution: %d mm (reference at %d mm)\n",
		a.Session.Resolution(), config.Resolution.ReferenceMM)
	printSummary("Visible", headshape.Summarize(visible))
	printSummary("Reference", headshape.Summarize(reference))
}

func printSummary(name string, s headshape.CloudSummary) {
	fmt.Printf("%s: %d points\n", name, s.Count)
	if s.Count == 0 {
		return
	}
	fmt.Printf("  Centroid: (%.1f, %.1f, %.1f)\n", s.Centroid.X, s.Centroid.Y, s.Centroid.Z)
	fmt.Printf("  Extent: (%.1f, %.1f, %.1f) to (%.1f, %.1f, %.1f)\n",
		s.Min.X, s.Min.Y, s.Min.Z, s.Max.X, s.Max.Y, s.Max.Z)
	fmt.Printf("  Spread: (%.1f, %.1f, %.1f) mm\n", s.Spread.X, s.Spread.Y, s.Spread.Z)
}

// RunExport loads the cloud and writes the visible and reference sets to the
// output file. The format follows the file extension: .json for the full
// payload, anything else for the plain-text digitizer format.
func (a *App) RunExport() {
	config := a.loadConfig()
	a.newSession(config)

	if err := a.loadSource(); err != nil {
		log.Fatalf("Error loading head-shape cloud: %v", err)
	}
	a.applyStartupState()

	var err error
	if strings.HasSuffix(a.OutputFile, ".json") {
		err = headshape.ExportJSON(a.Session, a.OutputFile)
	} else {
		err = headshape.ExportText(a.Session, a.OutputFile)
	}
	if err != nil {
		log.Fatalf("Error exporting: %v", err)
	}

	count, _ := a.Session.PointCount()
	fmt.Printf("Exported %d points to %s\n", count, a.OutputFile)
}

// RunRender loads the cloud and renders the projected point sets to a file.
func (a *App) RunRender() {
	config := a.loadConfig()
	a.newSession(config)

	if err := a.loadSource(); err != nil {
		log.Fatalf("Error loading head-shape cloud: %v", err)
	}
	a.applyStartupState()

	visible, err := a.Session.Visible()
	if err != nil {
		log.Fatalf("Error reading visible set: %v", err)
	}
	reference, err := a.Session.Reference()
	if err != nil {
		log.Fatalf("Error reading reference set: %v", err)
	}

	plane := headshape.PlaneXY
	if a.PlaneName == "xz" {
		plane = headshape.PlaneXZ
	}

	format := a.RenderFormat
	if format != "raster" && format != "vector" {
		log.Fatalf("Invalid format: %s (must be raster or vector)", format)
	}

	if format == "raster" {
		renderer := headshape.NewPointRenderer(visible, reference)
		renderer.Plane = plane
		if err := renderer.SavePNG(a.OutputFile); err != nil {
			log.Fatalf("Error rendering raster: %v", err)
		}
		fmt.Printf("Created raster: %s\n", a.OutputFile)
		return
	}

	outputPath := a.OutputFile
	if !strings.HasSuffix(outputPath, ".svg") && !strings.HasSuffix(outputPath, ".png") {
		outputPath = strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".svg"
	}

	outFile, err := os.Create(outputPath)
	if err != nil {
		log.Fatalf("Error creating output file %s: %v", outputPath, err)
	}
	defer func() {
		if err := outFile.Close(); err != nil {
			log.Printf("Warning: error closing output file %s: %v", outputPath, err)
		}
	}()

	renderer := headshape.NewVectorPointRenderer(visible, reference)
	renderer.Plane = plane

	if strings.HasSuffix(outputPath, ".png") {
		err = renderer.RenderToPNG(outFile)
	} else {
		err = renderer.RenderToSVG(outFile)
	}
	if err != nil {
		log.Fatalf("Error rendering vector: %v", err)
	}
	fmt.Printf("Created vector: %s\n", outputPath)
}

// RunService starts the combined MQTT and/or HTTP service
func (a *App) RunService() {
	fmt.Println("Starting headmesh service...")

	config := a.loadConfig()
	session := a.newSession(config)

	// Load the source cloud if one is configured; the service can also start
	// unloaded and receive a cloud via POST /reload later.
	if a.LoadFile != "" || a.DigitizerURL != "" || config.DigitizerURL != "" {
		if err := a.loadSource(); err != nil {
			log.Fatalf("Error loading head-shape cloud: %v", err)
		}
		a.applyStartupState()
	} else {
		log.Println("No source configured; waiting for POST /reload")
	}

	// Start MQTT if enabled
	if a.MqttMode {
		onPick := func(visibleIndex int) {
			if err := session.ExcludePoint(visibleIndex); err != nil {
				log.Printf("Error excluding picked point %d: %v", visibleIndex, err)
			}
		}
		onResolve := func(resolutionMM int) {
			if err := session.SetResolution(resolutionMM); err != nil {
				log.Printf("Error setting resolution %d mm: %v", resolutionMM, err)
			}
		}

		mqttClient, err := headshape.InitMQTT(config, onPick, onResolve)
		if err != nil {
			log.Fatalf("Failed to initialize MQTT: %v", err)
		}
		a.MQTTClient = mqttClient

		if mqttClient == nil {
			log.Fatal("MQTT broker not configured in config.yaml")
		}

		// Publish a state snapshot after every session mutation
		a.Publisher = headshape.NewPublisher(mqttClient.GetClient())
		a.Publisher.SetPrefix(config.MQTT.PublishPrefix)
		session.Subscribe(a.Publisher.Observer())
		fmt.Println("MQTT state publisher initialized")
	}

	// Start HTTP server if enabled
	if a.HttpMode {
		reload := func() error {
			if err := a.loadSource(); err != nil {
				return err
			}
			a.applyStartupState()
			return nil
		}
		httpServer := newHTTPServer(session, config, reload)
		go func() {
			addr := fmt.Sprintf("0.0.0.0:%d", a.HttpPort)
			log.Printf("[HTTP] Starting server on %s", addr)
			if err := http.ListenAndServe(addr, httpServer); err != nil {
				log.Fatalf("[HTTP] Server error: %v", err)
			}
		}()
	}

	// Print service info
	fmt.Println("\nService Running")
	fmt.Println("===============")

	if a.MqttMode {
		fmt.Println("\nMQTT:")
		fmt.Printf("  Pick events:        %s/pick\n", config.MQTT.PublishPrefix)
		fmt.Printf("  Resolution changes: %s/resolution\n", config.MQTT.PublishPrefix)
		fmt.Printf("  State published to: %s/points\n", config.MQTT.PublishPrefix)
	}

	if a.HttpMode {
		fmt.Printf("\nHTTP endpoints (port %d):\n", a.HttpPort)
		fmt.Println("  GET  /health          - Health check")
		fmt.Println("  GET  /points.json     - Visible point set")
		fmt.Println("  GET  /reference.json  - Reference point set")
		fmt.Println("  GET  /summary.json    - Visible set statistics")
		fmt.Println("  GET  /outline.geojson - Projected GeoJSON outline")
		fmt.Println("  GET  /points.png      - Rendered point sets (raster)")
		fmt.Println("  GET  /points.svg      - Rendered point sets (vector)")
		fmt.Println("  POST /resolution      - Change active resolution")
		fmt.Println("  POST /exclude         - Exclude a picked point")
		fmt.Println("  POST /reload          - Reload the source cloud")
	}

	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan

	fmt.Println("\nShutting down service...")
	if a.MQTTClient != nil {
		a.MQTTClient.Disconnect()
	}
	fmt.Println("Service stopped")
}

// parseWarmSpec parses a "FROM:TO" millimeter range.
func parseWarmSpec(spec string) (from, to int, err error) {
	if _, err := fmt.Sscanf(spec, "%d:%d", &from, &to); err != nil {
		return 0, 0, fmt.Errorf("expected FROM:TO, got %q", spec)
	}
	if to < from {
		return 0, 0, fmt.Errorf("range end %d below start %d", to, from)
	}
	return from, to, nil
}
