package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ironsheep/wire-analysis/internal/contour"
	"github.com/ironsheep/wire-analysis/internal/geom"
	"github.com/ironsheep/wire-analysis/internal/logger"
	"github.com/ironsheep/wire-analysis/internal/morph"
	"github.com/ironsheep/wire-analysis/internal/scalebar"
	"github.com/ironsheep/wire-analysis/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func usage(w io.Writer) {
	fmt.Fprintln(w, "wire-analysis - particle and wire diameters from segmented micrographs")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: wire-analysis <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  small <mask>              Measure particles; write <name>_small_features.npy and <name>_wires.tif")
	fmt.Fprintln(w, "  large <mask>              Measure wires from <name>_wires.tif, merge the small map, write the report")
	fmt.Fprintln(w, "  analyze <mask>            Run small then large in one go")
	fmt.Fprintln(w, "  calibrate <micrograph>    Read the scale bar and print pixels per micron")
	fmt.Fprintln(w, "  render <map.npy> <out>    Render a diameter map as a heatmap")
	fmt.Fprintln(w, "  serve                     Run the MCP server on stdin/stdout (default)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  --version, -v    Print version information")
	fmt.Fprintln(w, "  --help, -h       Print this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'wire-analysis <command> -h' for the flags of a command.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment variables:")
	fmt.Fprintf(w, "  %s=debug    Enable debug logging\n", logger.EnvLevel)
	fmt.Fprintln(w, "  WIRE_AREA_THRESHOLD, WIRE_ITERATIONS, WIRE_SMOOTHING_ITERATIONS, ...")
	fmt.Fprintln(w, "                                 Override config file values")
}

func main() {
	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	} else if len(args) > 0 {
		switch args[0] {
		case "--version", "-v":
			cmd, args = "version", args[1:]
		case "--help", "-h":
			cmd, args = "help", args[1:]
		}
	}

	switch cmd {
	case "version":
		fmt.Printf("wire-analysis %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		fmt.Printf("  Morphology: %s\n", morph.Backend)
		fmt.Printf("  Contours:   %s (rectangles: %s)\n", contour.Backend, geom.RectBackend)
		fmt.Printf("  OCR:        %s %s\n", scalebar.OCRBackend, scalebar.OCRVersion())
		return
	case "help":
		usage(os.Stdout)
		return
	}

	// Logs go to stderr; stdout is for MCP protocol and command output.
	log := logger.FromEnv()
	server.Version = Version

	var err error
	switch cmd {
	case "serve":
		err = runServe(args, log)
	case "small":
		err = runSmall(args, log, os.Stdout)
	case "large":
		err = runLarge(args, log, os.Stdout)
	case "analyze":
		err = runAnalyze(args, log, os.Stdout)
	case "calibrate":
		err = runCalibrate(args, os.Stdout)
	case "render":
		err = runRender(args, os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		usage(os.Stderr)
		os.Exit(2)
	}
	if err != nil {
		log.Error().Err(err).Str("command", cmd).Msg("command failed")
		os.Exit(1)
	}
}
