package renderer

import (
	"math"
	"time"

	"github.com/df07/go-multiquad-light/pkg/core"
)

// EstimateStats contains statistics about an estimate
type EstimateStats struct {
	TotalReceivers     int           // Number of receivers estimated
	TotalSamples       int           // Total number of samples taken
	FailedLightSamples int           // Light samples that returned no direction
	OccludedSamples    int           // Light samples blocked by another quad
	Workers            []WorkerStats // Per worker breakdown, indexed by worker ID
	Duration           time.Duration
}

// WorkerStats tracks the work done by one worker
type WorkerStats struct {
	ID          int
	Tasks       int
	Samples     int
	CacheHits   uint64 // Weight cache lookups answered from the previous query
	CacheMisses uint64
}

// ReceiverStats tracks sampling statistics for a single receiver
type ReceiverStats struct {
	IrradianceAccum  core.Vec3 // RGB accumulator for the final result
	LuminanceAccum   float64   // Luminance accumulator for the error estimate
	LuminanceSqAccum float64   // Luminance squared for variance
	SampleCount      int       // Number of samples taken
}

// AddSample adds a new irradiance sample to the receiver statistics
func (rs *ReceiverStats) AddSample(irradiance core.Vec3) {
	rs.IrradianceAccum = rs.IrradianceAccum.Add(irradiance)
	luminance := irradiance.Luminance()
	rs.LuminanceAccum += luminance
	rs.LuminanceSqAccum += luminance * luminance
	rs.SampleCount++
}

// Merge adds the samples of other to rs
func (rs *ReceiverStats) Merge(other ReceiverStats) {
	rs.IrradianceAccum = rs.IrradianceAccum.Add(other.IrradianceAccum)
	rs.LuminanceAccum += other.LuminanceAccum
	rs.LuminanceSqAccum += other.LuminanceSqAccum
	rs.SampleCount += other.SampleCount
}

// GetIrradiance returns the current average irradiance
func (rs *ReceiverStats) GetIrradiance() core.Vec3 {
	if rs.SampleCount == 0 {
		return core.Vec3{X: 0, Y: 0, Z: 0}
	}
	return rs.IrradianceAccum.Multiply(1.0 / float64(rs.SampleCount))
}

// Variance returns the sample variance of the luminance
func (rs *ReceiverStats) Variance() float64 {
	if rs.SampleCount < 2 {
		return 0
	}
	n := float64(rs.SampleCount)
	mean := rs.LuminanceAccum / n
	return math.Max(0, (rs.LuminanceSqAccum-n*mean*mean)/(n-1))
}

// StdError returns the standard error of the mean luminance
func (rs *ReceiverStats) StdError() float64 {
	if rs.SampleCount == 0 {
		return 0
	}
	return math.Sqrt(rs.Variance() / float64(rs.SampleCount))
}
