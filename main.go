package main

import (
	"flag"
	"fmt"
)

// Version is set at build time via -ldflags
var Version = "dev"

var (
	configFile   = flag.String("config", "config.yaml", "Path to configuration file")
	loadFile     = flag.String("load", "", "Path to a head-shape cloud file (.json or .txt)")
	digitizerURL = flag.String("digitizer-url", "", "Digitizer REST endpoint serving the cloud (overrides config)")
	dataDir      = flag.String("data-dir", ".", "Directory containing cloud files and config")
	resolutionMM = flag.Int("resolution", 0, "Decimation resolution in millimeters (default: from config)")
	parseOnly    = flag.Bool("parse-only", false, "Load the cloud, print summary statistics, and exit")
	exportOnly   = flag.Bool("export", false, "Export the visible and reference sets and exit")
	renderOnly   = flag.Bool("render", false, "Render the projected point sets and exit")
	outputFile   = flag.String("output", "points.json", "Output file for --export and --render modes")
	renderFormat = flag.String("format", "raster", "Render format: raster or vector")
	planeName    = flag.String("plane", "xy", "Projection plane for renders and outlines: xy or xz")
	warmSpec     = flag.String("warm", "", "Precompute decimations for a resolution range: FROM:TO (mm)")
	mqttMode     = flag.Bool("mqtt", false, "Run MQTT service mode for viewer pick events")
	httpMode     = flag.Bool("http", false, "Enable HTTP server for point sets and renders")
	httpPort     = flag.Int("http-port", 8080, "HTTP server port (default 8080)")
)

func main() {
	flag.Parse()
	fmt.Printf("headmesh version: %s\n", Version)

	app := NewApp()
	app.ApplyOptions(AppOptions{
		ConfigFile:   *configFile,
		LoadFile:     *loadFile,
		DigitizerURL: *digitizerURL,
		DataDir:      *dataDir,
		ResolutionMM: *resolutionMM,
		OutputFile:   *outputFile,
		RenderFormat: *renderFormat,
		PlaneName:    *planeName,
		WarmSpec:     *warmSpec,
		HttpPort:     *httpPort,
		MqttMode:     *mqttMode,
		HttpMode:     *httpMode,
	})

	if *parseOnly {
		app.RunParseOnly()
		return
	}

	if *exportOnly {
		app.RunExport()
		return
	}

	if *renderOnly {
		app.RunRender()
		return
	}

	if *mqttMode || *httpMode {
		app.RunService()
		return
	}

	fmt.Println("headmesh service starting...")
	fmt.Println("Use --parse-only to print cloud statistics")
	fmt.Println("Use --export to write the visible and reference sets")
	fmt.Println("Use --render to output a projected point image")
	fmt.Println("Use --mqtt to run MQTT service mode")
	fmt.Println("Use --http to run HTTP server mode")
	fmt.Println("Use --mqtt --http to run both MQTT and HTTP together")
	fmt.Println("\nConfiguration:")
	fmt.Println("  config.yaml - MQTT settings and resolution bounds")
}
