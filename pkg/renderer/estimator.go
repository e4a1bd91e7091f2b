package renderer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"time"

	"github.com/df07/go-multiquad-light/pkg/core"
	"github.com/df07/go-multiquad-light/pkg/lights"
	"github.com/df07/go-multiquad-light/pkg/log"
	"github.com/df07/go-multiquad-light/pkg/scene"
)

var logger = log.New("renderer")

// ErrNoReceivers is returned when the scene has nothing to estimate
var ErrNoReceivers = errors.New("scene has no receivers")

// Shadow rays stop this fraction short of the sampled point
const shadowEpsilon = 1e-6

// Heuristic selects how light and hemisphere samples are weighted against each other
type Heuristic int

const (
	PowerHeuristic Heuristic = iota // beta = 2
	BalanceHeuristic
)

// ParseHeuristic returns the heuristic with the given name
func ParseHeuristic(name string) (Heuristic, error) {
	switch name {
	case "power":
		return PowerHeuristic, nil
	case "balance":
		return BalanceHeuristic, nil
	default:
		return PowerHeuristic, fmt.Errorf("unknown heuristic %q (want power or balance)", name)
	}
}

func (h Heuristic) String() string {
	if h == BalanceHeuristic {
		return "balance"
	}
	return "power"
}

// weight is the MIS weight of a sample of strategy f against strategy g
func (h Heuristic) weight(fPdf, gPdf float64) float64 {
	if h == BalanceHeuristic {
		return core.BalanceHeuristic(1, fPdf, 1, gPdf)
	}
	return core.PowerHeuristic(1, fPdf, 1, gPdf)
}

// EstimatorConfig contains estimation configuration
type EstimatorConfig struct {
	Workers         int       // Number of parallel workers (0 = auto-detect)
	SamplesPerPoint int       // Samples taken at every receiver
	BatchSize       int       // Samples per task
	Seed            int64     // Seed of the per-task samplers, zero included
	RayEpsilon      float64   // Minimum hit distance from the receiver
	Heuristic       Heuristic // MIS weighting
}

// DefaultEstimatorConfig returns sensible default values
func DefaultEstimatorConfig() EstimatorConfig {
	return EstimatorConfig{
		Workers:         0,
		SamplesPerPoint: 1024,
		BatchSize:       256,
		Seed:            42,
		RayEpsilon:      1e-4,
	}
}

// Merge overrides the fields of c that are set in other. The seed is always
// taken from other since zero is a valid seed.
func (c *EstimatorConfig) Merge(other EstimatorConfig) {
	if other.Workers != 0 {
		c.Workers = other.Workers
	}
	if other.SamplesPerPoint != 0 {
		c.SamplesPerPoint = other.SamplesPerPoint
	}
	if other.BatchSize != 0 {
		c.BatchSize = other.BatchSize
	}
	c.Seed = other.Seed
	if other.RayEpsilon != 0 {
		c.RayEpsilon = other.RayEpsilon
	}
	if other.Heuristic != PowerHeuristic {
		c.Heuristic = other.Heuristic
	}
}

// DirectLighting estimates irradiance at receivers for a single thread
type DirectLighting struct {
	scene       *scene.Scene
	config      EstimatorConfig
	threadIndex int
}

// NewDirectLighting creates an estimator that samples the light as threadIndex
func NewDirectLighting(s *scene.Scene, config EstimatorConfig, threadIndex int) *DirectLighting {
	return &DirectLighting{scene: s, config: config, threadIndex: threadIndex}
}

// EstimateReceiver takes samples at one receiver. Each sample combines one
// light sample and one cosine-weighted hemisphere sample with the power heuristic.
func (dl *DirectLighting) EstimateReceiver(receiverIndex, samples int, sampler core.Sampler) EstimateResult {
	result := EstimateResult{Receiver: receiverIndex}
	receiver := dl.scene.Receivers[receiverIndex]

	for i := 0; i < samples; i++ {
		irradiance, failed, occluded := dl.sample(receiver, sampler)
		if failed {
			result.Failed++
		}
		if occluded {
			result.Occluded++
		}
		result.Stats.AddSample(irradiance)
	}
	return result
}

// sample returns one irradiance estimate at the receiver
func (dl *DirectLighting) sample(receiver scene.Receiver, sampler core.Sampler) (core.Vec3, bool, bool) {
	s := dl.scene
	point, normal := receiver.Point, receiver.Normal
	irradiance := core.Vec3{}
	failed, occluded := false, false

	// Light sampling
	lightSample, _, ok := lights.SampleLight(s.Lights, s.LightSampler, dl.threadIndex, point, sampler)
	if !ok {
		failed = true
	} else if cosTheta := normal.Dot(lightSample.Direction); cosTheta > 0 {
		ray := core.NewRay(point, lightSample.Direction)
		if s.Light.Occluded(ray, dl.config.RayEpsilon, lightSample.Distance*(1-shadowEpsilon)) {
			occluded = true
		} else {
			weight := dl.config.Heuristic.weight(lightSample.PDF, core.CosineHemispherePDF(cosTheta))
			irradiance = irradiance.Add(lightSample.Emission.Multiply(cosTheta * weight / lightSample.PDF))
		}
	}

	// Hemisphere sampling
	direction := core.SampleCosineHemisphere(normal, sampler.Get2D()).Normalize()
	cosTheta := normal.Dot(direction)
	if cosTheta <= 0 {
		return irradiance, failed, occluded
	}
	hit, ok := s.Light.Intersect(core.NewRay(point, direction), dl.config.RayEpsilon, math.Inf(1))
	if !ok {
		return irradiance, failed, occluded
	}
	emission := s.Light.Emission(hit)
	if emission.IsZero() {
		return irradiance, failed, occluded
	}

	// Same hit as the emission lookup, so both strategies agree on the quad
	lightPdf := s.Light.InboundPdfHit(dl.threadIndex, hit, point, direction) *
		s.LightSampler.GetLightProbability(0, point)
	bsdfPdf := core.CosineHemispherePDF(cosTheta)
	weight := dl.config.Heuristic.weight(bsdfPdf, lightPdf)
	irradiance = irradiance.Add(emission.Multiply(cosTheta * weight / bsdfPdf))

	return irradiance, failed, occluded
}

// ReceiverEstimate is the estimate at one receiver
type ReceiverEstimate struct {
	Receiver scene.Receiver
	Stats    ReceiverStats
}

// Result is the outcome of Estimate
type Result struct {
	Receivers []ReceiverEstimate
	Stats     EstimateStats
}

// Estimate computes the direct irradiance at every receiver of the scene.
// The light is prepared for the resolved worker count and cleaned up afterwards.
// Results depend on the seed only, not on the number of workers.
func Estimate(ctx context.Context, s *scene.Scene, config EstimatorConfig) (*Result, error) {
	cfg := DefaultEstimatorConfig()
	cfg.Merge(config)
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.SamplesPerPoint < 0 || cfg.BatchSize < 0 {
		return nil, fmt.Errorf("invalid sample counts: %d samples in batches of %d", cfg.SamplesPerPoint, cfg.BatchSize)
	}
	if len(s.Receivers) == 0 {
		return nil, ErrNoReceivers
	}

	startTime := time.Now()
	if err := s.Preprocess(cfg.Workers); err != nil {
		return nil, err
	}
	defer s.Cleanup()

	// Split every receiver into batches with their own seeds
	seeds := rand.New(rand.NewSource(cfg.Seed))
	var tasks []EstimateTask
	for r := range s.Receivers {
		for done := 0; done < cfg.SamplesPerPoint; done += cfg.BatchSize {
			tasks = append(tasks, EstimateTask{
				TaskID:   len(tasks),
				Receiver: r,
				Samples:  min(cfg.BatchSize, cfg.SamplesPerPoint-done),
				Seed:     seeds.Int63(),
			})
		}
	}
	logger.Infof("estimating %d receivers of %q with %d samples each (%d tasks, %d workers, %v heuristic)",
		len(s.Receivers), s.Name, cfg.SamplesPerPoint, len(tasks), cfg.Workers, cfg.Heuristic)

	pool := NewWorkerPool(s, cfg, cfg.Workers, len(tasks))
	pool.Start(ctx)
	for _, task := range tasks {
		pool.SubmitTask(task)
	}

	results := make([]EstimateResult, len(tasks))
	for range tasks {
		result, ok := pool.GetResult()
		if !ok {
			break
		}
		results[result.TaskID] = result
	}
	pool.Stop()

	// Merge in task order so the sums do not depend on scheduling
	out := &Result{Receivers: make([]ReceiverEstimate, len(s.Receivers))}
	for i, r := range s.Receivers {
		out.Receivers[i].Receiver = r
	}
	for _, result := range results {
		if result.Error != nil {
			return nil, result.Error
		}
		out.Receivers[result.Receiver].Stats.Merge(result.Stats)
		out.Stats.TotalSamples += result.Stats.SampleCount
		out.Stats.FailedLightSamples += result.Failed
		out.Stats.OccludedSamples += result.Occluded
	}

	out.Stats.TotalReceivers = len(s.Receivers)
	out.Stats.Workers = pool.WorkerStats()
	for i := range out.Stats.Workers {
		out.Stats.Workers[i].CacheHits, out.Stats.Workers[i].CacheMisses = s.Light.CacheStats(i)
	}
	out.Stats.Duration = time.Since(startTime)

	logger.Infof("estimate finished in %v: %d samples, %d failed, %d occluded",
		out.Stats.Duration, out.Stats.TotalSamples, out.Stats.FailedLightSamples, out.Stats.OccludedSamples)
	return out, nil
}
