package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"io"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/wire-analysis/internal/aggregate"
	"github.com/ironsheep/wire-analysis/internal/config"
	"github.com/ironsheep/wire-analysis/internal/imaging"
	"github.com/ironsheep/wire-analysis/internal/pipeline"
	"github.com/ironsheep/wire-analysis/internal/scalebar"
	"github.com/ironsheep/wire-analysis/internal/server"
)

// pipelineFlags are shared by the commands that run a pipeline.
type pipelineFlags struct {
	configPath    string
	outDir        string
	featuresWhite bool
	ppm           float64
	debugDir      string
}

func newPipelineFlags(name string) (*flag.FlagSet, *pipelineFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	f := &pipelineFlags{}
	fs.StringVar(&f.configPath, "config", "", "TOML config file")
	fs.StringVar(&f.outDir, "out", "", "output directory (default: beside the mask)")
	fs.BoolVar(&f.featuresWhite, "features-white", false, "features are bright on a dark matrix")
	fs.Float64Var(&f.ppm, "ppm", 0, "pixels per micron (overrides config)")
	fs.StringVar(&f.debugDir, "debug-dir", "", "write per-wire debug images here")
	return fs, f
}

func (f *pipelineFlags) config() (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	if f.ppm > 0 {
		cfg.PixelsPerMicron = f.ppm
	}
	return cfg, nil
}

// parseMaskArgs parses flags and the single mask argument.
func parseMaskArgs(name string, args []string) (string, *config.Config, *pipelineFlags, error) {
	fs, f := newPipelineFlags(name)
	if err := fs.Parse(args); err != nil {
		return "", nil, nil, err
	}
	if fs.NArg() != 1 {
		return "", nil, nil, fmt.Errorf("usage: wire-analysis %s [flags] <mask>", name)
	}
	cfg, err := f.config()
	if err != nil {
		return "", nil, nil, err
	}
	return fs.Arg(0), cfg, f, nil
}

func runServe(args []string, log zerolog.Logger) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "TOML config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	log.Debug().
		Str("version", Version).
		Str("built", BuildTime).
		Str("commit", GitCommit).
		Msg("wire-analysis MCP server starting")
	return server.New(cfg, log).Run()
}

func runSmall(args []string, log zerolog.Logger, stdout io.Writer) error {
	path, cfg, f, err := parseMaskArgs("small", args)
	if err != nil {
		return err
	}
	m, err := imaging.LoadMask(imaging.NewImageCache(), path, cfg.MaskLevel, f.featuresWhite)
	if err != nil {
		return err
	}
	res, err := pipeline.Small(m, cfg, log)
	if err != nil {
		return err
	}

	out := pipeline.OutputsFor(path, f.outDir)
	if err := writeSmallOutputs(res, out); err != nil {
		return err
	}
	printSummary(stdout, res.Report(cfg))
	fmt.Fprintf(stdout, "  forwarded to large: %d\n", res.Forwarded)
	fmt.Fprintf(stdout, "  wrote %s, %s\n", out.SmallMap, out.Wires)
	return nil
}

func writeSmallOutputs(res *pipeline.SmallResult, out pipeline.Outputs) error {
	if err := aggregate.SaveNPY(out.SmallMap, res.Map); err != nil {
		return err
	}
	return imaging.SaveMask(out.Wires, res.Residual, true)
}

func runLarge(args []string, log zerolog.Logger, stdout io.Writer) error {
	path, cfg, f, err := parseMaskArgs("large", args)
	if err != nil {
		return err
	}
	out := pipeline.OutputsFor(path, f.outDir)

	// Both handoff files must exist before the slow run.
	small, err := aggregate.LoadNPY(out.SmallMap)
	if err != nil {
		return err
	}
	m, err := imaging.LoadMask(imaging.NewImageCache(), out.Wires, cfg.MaskLevel, true)
	if err != nil {
		return err
	}

	runner := pipeline.New(cfg, log)
	views, err := attachDebugViews(runner, f.debugDir)
	if err != nil {
		return err
	}
	res, err := runner.Large(m)
	if err != nil {
		return err
	}
	if err := finishLarge(res, small, cfg, out, stdout); err != nil {
		return err
	}
	return reportDebugViews(views, stdout)
}

// attachDebugViews hooks per-wire debug output into runner when dir is set.
func attachDebugViews(runner *pipeline.Runner, dir string) (*debugViews, error) {
	if dir == "" {
		return nil, nil
	}
	views, err := newDebugViews(dir)
	if err != nil {
		return nil, err
	}
	runner.WithInspector(views)
	return views, nil
}

func reportDebugViews(views *debugViews, stdout io.Writer) error {
	if views == nil {
		return nil
	}
	if views.err != nil {
		return views.err
	}
	fmt.Fprintf(stdout, "  wrote %d debug images to %s\n", views.written, views.dir)
	return nil
}

func runAnalyze(args []string, log zerolog.Logger, stdout io.Writer) error {
	path, cfg, f, err := parseMaskArgs("analyze", args)
	if err != nil {
		return err
	}
	m, err := imaging.LoadMask(imaging.NewImageCache(), path, cfg.MaskLevel, f.featuresWhite)
	if err != nil {
		return err
	}

	runner := pipeline.New(cfg, log)
	small, err := runner.Small(m)
	if err != nil {
		return err
	}
	out := pipeline.OutputsFor(path, f.outDir)
	if err := writeSmallOutputs(small, out); err != nil {
		return err
	}
	printSummary(stdout, small.Report(cfg))

	views, err := attachDebugViews(runner, f.debugDir)
	if err != nil {
		return err
	}
	large, err := runner.Large(small.Residual)
	if err != nil {
		return err
	}
	if err := finishLarge(large, small.Map, cfg, out, stdout); err != nil {
		return err
	}
	return reportDebugViews(views, stdout)
}

// finishLarge merges the small map, writes the diameter map and report, and
// prints the wire summary.
func finishLarge(res *pipeline.LargeResult, small *mat.Dense, cfg *config.Config, out pipeline.Outputs, stdout io.Writer) error {
	if err := res.MergeMap(small); err != nil {
		return err
	}
	if err := aggregate.SaveNPY(out.Diameters, res.Map); err != nil {
		return err
	}
	report := res.Report(cfg)
	if err := report.Save(out.Report); err != nil {
		return err
	}
	printSummary(stdout, report)
	fmt.Fprintf(stdout, "  ignored (too small): %d\n", res.Ignored)
	fmt.Fprintf(stdout, "  wrote %s, %s\n", out.Diameters, out.Report)
	return nil
}

func printSummary(w io.Writer, r pipeline.Report) {
	s := r.Summary
	fmt.Fprintf(w, "%s: %d features at %.4g nm/px\n", r.Pipeline, s.Count, r.NanometresPerPixel)
	if s.Count > 0 {
		fmt.Fprintf(w, "  diameter nm: mean %.1f  median %.1f  sd %.1f  range %.1f-%.1f\n",
			s.Mean, s.Median, s.StdDev, s.Min, s.Max)
	}
	if len(r.Skipped) > 0 {
		fmt.Fprintf(w, "  skipped: %d\n", len(r.Skipped))
	}
}

func runCalibrate(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("calibrate", flag.ContinueOnError)
	label := fs.String("label", "", "bar label such as \"500 nm\" (skips OCR)")
	dark := fs.Bool("dark", false, "dark bar on a light panel")
	level := fs.Uint("level", 0, "bar threshold 1-255 (default 128)")
	minLength := fs.Int("min-length", 0, "shortest accepted bar in pixels")
	region := fs.String("region", "", "search region x1,y1,x2,y2")
	lang := fs.String("lang", "eng", "Tesseract language")
	tessdata := fs.String("tessdata", "", "Tesseract training data directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: wire-analysis calibrate [flags] <micrograph>")
	}
	if *level > 255 {
		return fmt.Errorf("level must be in 1..255 (got %d)", *level)
	}

	opts := scalebar.Options{Dark: *dark, Level: uint8(*level), MinLength: *minLength}
	if *region != "" {
		var r image.Rectangle
		if _, err := fmt.Sscanf(*region, "%d,%d,%d,%d", &r.Min.X, &r.Min.Y, &r.Max.X, &r.Max.Y); err != nil {
			return fmt.Errorf("invalid region %q: %w", *region, err)
		}
		opts.Region = r
	}

	img, err := imaging.NewImageCache().Load(fs.Arg(0))
	if err != nil {
		return err
	}
	var reader scalebar.Reader = &scalebar.TesseractReader{Language: *lang, TessdataPrefix: *tessdata}
	if *label != "" {
		reader = fixedLabel(*label)
	}
	cal, err := scalebar.Detect(img, reader, opts)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(cal)
}

type fixedLabel string

func (l fixedLabel) ReadText(image.Image) (string, error) {
	return string(l), nil
}

func runRender(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	maxDiameter := fs.Float64("max", 0, "diameter drawn in the high colour (default: map maximum)")
	low := fs.String("low", "", "hex colour for thin features")
	high := fs.String("high", "", "hex colour for thick features")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: wire-analysis render [flags] <map.npy> <out.png>")
	}

	palette := imaging.DefaultPalette()
	if *low != "" {
		c, err := imaging.ParseHexColor(*low)
		if err != nil {
			return err
		}
		palette.Low = c
	}
	if *high != "" {
		c, err := imaging.ParseHexColor(*high)
		if err != nil {
			return err
		}
		palette.High = c
	}

	m, err := aggregate.LoadNPY(fs.Arg(0))
	if err != nil {
		return err
	}
	img := imaging.DiameterHeatmap(m, *maxDiameter, palette)
	if err := imaging.SaveImage(fs.Arg(1), img); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s (%dx%d)\n", fs.Arg(1), img.Bounds().Dx(), img.Bounds().Dy())
	return nil
}
