// Command bonesnap renders armature animations from skeleton descriptors into
// image sequences, without a GPU.
//
//	bonesnap -dir assets/skeletons -out out -armature knight -animated
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/phanxgames/bones"
	"github.com/phanxgames/bones/loader"
)

func main() {
	configFile := flag.String("config", "", "Path to a YAML config file")
	dir := flag.String("dir", "", "Skeleton descriptor directory (default: .)")
	regions := flag.String("regions", "", "Directory of region images (PNG or WebP)")
	output := flag.String("out", "", "Output directory (default: snapshots)")
	format := flag.String("format", "", "Frame format: webp or png (default: webp)")
	fps := flag.Int("fps", 0, "Frames per second (default: 24)")
	frames := flag.Int("frames", 0, "Frames per clip (default: one loop)")
	size := flag.Int("size", 0, "Output width and height in pixels (default: 256)")
	workers := flag.Int("workers", 0, "Number of worker goroutines (default: NumCPU)")
	animated := flag.Bool("animated", false, "Write one animated WebP per clip")
	poses := flag.Bool("poses", false, "Also write each clip's poses as YAML")
	skeleton := flag.String("skeleton", "", "Render only this skeleton")
	armature := flag.String("armature", "", "Render only this armature")
	animation := flag.String("animation", "", "Render only this animation")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Parse()

	var cfg Config
	if *configFile != "" {
		var err error
		cfg, err = LoadConfig(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	cfg.Resolve(Flags{
		Dir:       *dir,
		Regions:   *regions,
		Output:    *output,
		Format:    *format,
		FPS:       *fps,
		Frames:    *frames,
		Size:      *size,
		Workers:   *workers,
		Animated:  *animated,
		Poses:     *poses,
		Skeleton:  *skeleton,
		Armature:  *armature,
		Animation: *animation,
	})

	log := newLogger(*verbose)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	os.Exit(run(ctx, cfg, log))
}

func newLogger(verbose bool) *zap.Logger {
	zc := zap.NewDevelopmentConfig()
	zc.DisableStacktrace = true
	zc.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	log, err := zc.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// run loads descriptors, renders every planned clip and returns the exit
// code.
func run(ctx context.Context, cfg Config, log *zap.Logger) int {
	cache := bones.NewDataCache(bones.WithCacheLogger(log))
	lib := loader.NewLibrary(cfg.Dir, cache, loader.WithLogger(log), loader.WithConcurrency(cfg.Workers))
	names, err := lib.LoadAll(ctx)
	if err != nil {
		log.Warn("some descriptors failed to load", zap.Error(err))
	}
	if len(names) == 0 {
		log.Error("no skeletons loaded", zap.String("dir", cfg.Dir))
		return 1
	}

	jobs, err := plan(cache, cfg.Jobs)
	if err != nil {
		log.Warn("job selection", zap.Error(err))
	}
	if len(jobs) == 0 {
		log.Info("nothing to render")
		return 0
	}

	imgs, err := loadRegions(cfg.Regions)
	if err != nil {
		log.Warn("region images", zap.Error(err))
	}
	r, err := newRenderer(cfg, bones.NewFactory(cache, bones.WithLogger(log)), imgs, log)
	if err != nil {
		log.Error("bad output settings", zap.Error(err))
		return 1
	}

	log.Info("rendering",
		zap.Int("clips", len(jobs)),
		zap.Int("workers", cfg.Workers),
		zap.String("output", cfg.Output))
	start := time.Now()
	results, err := r.run(ctx, jobs)
	if err != nil {
		log.Error("render interrupted", zap.Error(err))
		return 1
	}

	failed, files := 0, 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
		files += len(res.Files)
	}
	log.Info("done",
		zap.Int("rendered", len(results)-failed),
		zap.Int("failed", failed),
		zap.Int("files", files),
		zap.Duration("took", time.Since(start)))
	if failed > 0 {
		return 1
	}
	return 0
}
