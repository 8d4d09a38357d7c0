package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/HugoSmits86/nativewebp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/phanxgames/bones"
	"github.com/phanxgames/bones/snapshot"
)

// Job selects what to render. Empty fields match everything.
type Job struct {
	Skeleton  string `yaml:"skeleton"`
	Armature  string `yaml:"armature"`
	Animation string `yaml:"animation"`
}

func (j Job) String() string {
	anim := j.Animation
	if anim == "" {
		anim = "setup"
	}
	return j.Skeleton + "/" + j.Armature + "/" + anim
}

// Result is the outcome of one clip.
type Result struct {
	Job    Job
	Frames int
	Files  []string
	Err    error
}

// plan expands job patterns against the loaded skeletons. Armatures
// without animations get one setup-pose job.
func plan(cache *bones.DataCache, patterns []Job) ([]Job, error) {
	if len(patterns) == 0 {
		patterns = []Job{{}}
	}
	var (
		jobs []Job
		errs []error
	)
	for _, p := range patterns {
		skeletons := cache.Names()
		if p.Skeleton != "" {
			if _, ok := cache.Get(p.Skeleton); !ok {
				errs = append(errs, fmt.Errorf("%w: %q", bones.ErrSkeletonNotFound, p.Skeleton))
				continue
			}
			skeletons = []string{p.Skeleton}
		}
		matched := false
		for _, skName := range skeletons {
			sk, _ := cache.Get(skName)
			for _, armName := range sk.ArmatureNames() {
				if p.Armature != "" && p.Armature != armName {
					continue
				}
				arm, _ := sk.Armature(armName)
				anims := arm.AnimationNames()
				if p.Animation != "" {
					if !arm.HasAnimation(p.Animation) {
						continue
					}
					anims = []string{p.Animation}
				}
				if len(anims) == 0 {
					anims = []string{""}
				}
				for _, anim := range anims {
					jobs = append(jobs, Job{Skeleton: skName, Armature: armName, Animation: anim})
					matched = true
				}
			}
		}
		if !matched && (p.Armature != "" || p.Animation != "") {
			errs = append(errs, fmt.Errorf("bonesnap: nothing matches %s", p))
		}
	}
	slices.SortFunc(jobs, func(a, b Job) int { return strings.Compare(a.String(), b.String()) })
	jobs = slices.Compact(jobs)
	return jobs, errors.Join(errs...)
}

// renderer renders clips on a bounded worker pool, one armature per worker.
type renderer struct {
	cfg     Config
	format  snapshot.Format
	factory *bones.Factory
	opts    snapshot.Options
	log     *zap.Logger
}

func newRenderer(cfg Config, factory *bones.Factory, regions map[string]image.Image, log *zap.Logger) (*renderer, error) {
	format, err := snapshot.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	if cfg.Animated && format != snapshot.FormatWebP {
		return nil, errors.New("bonesnap: animated output requires webp")
	}
	opts := snapshot.DefaultOptions()
	opts.Width, opts.Height = cfg.Size, cfg.Size
	opts.Supersample = cfg.Supersample
	opts.Padding = cfg.Padding
	opts.Regions = regions
	opts.Bones = on(cfg.Layers.Bones)
	opts.BoundingBoxes = on(cfg.Layers.BoundingBoxes)
	opts.Meshes = on(cfg.Layers.Meshes)
	opts.Images = on(cfg.Layers.Images)
	return &renderer{cfg: cfg, format: format, factory: factory, opts: opts, log: log}, nil
}

// run renders every job and returns one result per job in order. It stops
// early only when ctx is cancelled.
func (r *renderer) run(ctx context.Context, jobs []Job) ([]Result, error) {
	results := make([]Result, len(jobs))
	var done atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.cfg.Workers, 1))
	for i, job := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			res := r.render(ctx, job)
			results[i] = res
			n := done.Add(1)
			if res.Err != nil {
				if errors.Is(res.Err, context.Canceled) {
					return res.Err
				}
				r.log.Warn("clip failed", zap.Stringer("clip", job), zap.Error(res.Err))
				return nil
			}
			r.log.Info("clip rendered",
				zap.Stringer("clip", job),
				zap.Int("frames", res.Frames),
				zap.Duration("took", time.Since(start)),
				zap.String("progress", fmt.Sprintf("%d/%d", n, len(jobs))))
			return nil
		})
	}
	return results, g.Wait()
}

func (r *renderer) render(ctx context.Context, job Job) Result {
	res := Result{Job: job}
	a, err := r.factory.BuildArmature(job.Armature, job.Skeleton, nil)
	if err != nil {
		res.Err = err
		return res
	}
	defer a.Dispose()

	frames := max(r.cfg.Frames, 1)
	if job.Animation != "" {
		if _, err := a.Animation().Play(job.Animation, 0); err != nil {
			res.Err = err
			return res
		}
		if r.cfg.Frames <= 0 {
			d, _ := a.Data().AnimationDuration(job.Animation)
			frames = max(int(math.Ceil(d*float64(r.cfg.FPS)-1e-9)), 1)
		}
	}

	dt := 1 / float64(r.cfg.FPS)
	poses := make([]bones.Pose, 0, frames)
	for i := range frames {
		if err := ctx.Err(); err != nil {
			res.Err = err
			return res
		}
		step := dt
		if i == 0 {
			step = 0
		}
		if err := a.AdvanceTime(step); err != nil {
			res.Err = fmt.Errorf("frame %d: %w", i, err)
			return res
		}
		poses = append(poses, a.CurrentPose())
	}
	res.Frames = len(poses)
	images := snapshot.Sequence(poses, r.opts)

	anim := job.Animation
	if anim == "" {
		anim = "setup"
	}
	base := filepath.Join(r.cfg.Output, job.Skeleton, job.Armature+"_"+anim)
	if r.cfg.Animated {
		path := base + snapshot.FormatWebP.Ext()
		if err := writeAnimation(path, images, uint(1000/r.cfg.FPS)); err != nil {
			res.Err = err
			return res
		}
		res.Files = append(res.Files, path)
	} else {
		for i, img := range images {
			path := fmt.Sprintf("%s_%03d%s", base, i, r.format.Ext())
			if err := snapshot.WriteFile(path, img); err != nil {
				res.Err = err
				return res
			}
			res.Files = append(res.Files, path)
		}
	}
	if r.cfg.Poses {
		path := base + ".yaml"
		if err := writePoses(path, poses); err != nil {
			res.Err = err
			return res
		}
		res.Files = append(res.Files, path)
	}
	return res
}

func writeAnimation(path string, frames []image.Image, frameMillis uint) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := snapshot.EncodeAnimation(f, frames, frameMillis); err != nil {
		_ = f.Close()
		return fmt.Errorf("bonesnap: encode %s: %w", path, err)
	}
	return f.Close()
}

func writePoses(path string, poses []bones.Pose) error {
	data, err := yaml.Marshal(poses)
	if err != nil {
		return fmt.Errorf("bonesnap: marshal poses: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// loadRegions reads PNG and WebP files from dir, keyed by file name without
// extension.
func loadRegions(dir string) (map[string]image.Image, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("bonesnap: regions: %w", err)
	}
	regions := make(map[string]image.Image)
	var errs []error
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".png" && ext != ".webp") {
			continue
		}
		img, err := decodeImage(filepath.Join(dir, e.Name()), ext)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		regions[strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))] = img
	}
	return regions, errors.Join(errs...)
}

func decodeImage(path, ext string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var img image.Image
	if ext == ".webp" {
		img, err = nativewebp.Decode(f)
	} else {
		img, err = png.Decode(f)
	}
	if err != nil {
		return nil, fmt.Errorf("bonesnap: decode %s: %w", path, err)
	}
	return img, nil
}
