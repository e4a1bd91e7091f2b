package lights

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/df07/go-multiquad-light/pkg/core"
	"github.com/df07/go-multiquad-light/pkg/geometry"
	"github.com/df07/go-multiquad-light/pkg/log"
	"github.com/df07/go-multiquad-light/pkg/material"
)

// ErrMaterialIndex is returned when a quad references a material that does not exist
var ErrMaterialIndex = errors.New("material index out of range")

var logger = log.New("lights")

// MultiQuadLight is a single primitive made of many quad emitters. It answers
// ray queries through a QuadBVH and samples the quads with two selection
// trees: a SolidAngleTree for directions towards a shading point and an
// EmissiveTree for emitted rays.
//
// Trees and per-thread caches exist only between PrepareForRender and
// CleanupAfterRender. Calls taking a threadIndex may run concurrently as
// long as each goroutine uses its own index.
type MultiQuadLight struct {
	geometry  *geometry.QuadGeometry
	materials []*material.QuadMaterial
	bounds    core.AABB

	// Built by PrepareForRender
	precomputed []precomputedQuad
	bvh         *geometry.QuadBVH
	sampleTree  *EmissiveTree
	evalTree    *SolidAngleTree
	samplers    []*sampleCache

	proxyMu    sync.Mutex
	proxy      *geometry.TriangleMesh
	proxyBuilt bool
}

var (
	_ Light     = (*MultiQuadLight)(nil)
	_ Primitive = (*MultiQuadLight)(nil)
	_ Light     = (*QuadLight)(nil)
)

// NewMultiQuadLight creates an aggregate light over geom. Every quad's
// material index must refer to an entry of materials.
func NewMultiQuadLight(geom *geometry.QuadGeometry, materials []*material.QuadMaterial) (*MultiQuadLight, error) {
	for i, mat := range materials {
		if mat == nil {
			return nil, fmt.Errorf("material %d: nil material", i)
		}
		if err := mat.Validate(); err != nil {
			return nil, err
		}
	}
	for i := 0; i < geom.Len(); i++ {
		if m := geom.Quad(i).Material; m < 0 || m >= len(materials) {
			return nil, fmt.Errorf("quad %d: %w: %d", i, ErrMaterialIndex, m)
		}
	}

	return &MultiQuadLight{
		geometry:  geom,
		materials: materials,
		bounds:    geom.Bounds(),
	}, nil
}

func (l *MultiQuadLight) Type() LightType {
	return LightTypeArea
}

// Geometry returns the quad store
func (l *MultiQuadLight) Geometry() *geometry.QuadGeometry {
	return l.geometry
}

// PrepareForRender builds the intersection and selection trees and allocates
// one cache slot per thread. threadCount <= 0 uses the number of CPUs.
func (l *MultiQuadLight) PrepareForRender(threadCount int) {
	if threadCount <= 0 {
		threadCount = runtime.NumCPU()
	}
	start := time.Now()

	l.precomputed = precomputeQuads(l.geometry, l.materials)
	l.bvh = geometry.NewQuadBVH(l.geometry)
	l.sampleTree = NewEmissiveTree(l.geometry, l.materials)
	l.evalTree = NewSolidAngleTree(l.geometry, l.precomputed)
	l.samplers = make([]*sampleCache, threadCount)

	elapsed := time.Since(start)
	prepareDuration.Observe(elapsed.Seconds())
	preparedQuads.Set(float64(l.geometry.Len()))

	logger.Infof("prepared %d quads for %d threads in %v", l.geometry.Len(), threadCount, elapsed)
	logger.Debugf("intersection tree: %+v", l.bvh.Stats())
	logger.Debugf("selection trees: %d nodes, depth %d, power %g",
		l.evalTree.NodeCount(), l.evalTree.Depth(), l.sampleTree.TotalPower())
}

// CleanupAfterRender releases the trees and caches. The light must be
// prepared again before it can be sampled.
func (l *MultiQuadLight) CleanupAfterRender() {
	var hits, misses uint64
	for _, c := range l.samplers {
		if c == nil {
			continue
		}
		hits += c.hits
		misses += c.misses
	}
	if len(l.samplers) > 0 {
		logger.Debugf("weight cache: %d hits, %d misses", hits, misses)
	}

	l.precomputed = nil
	l.bvh = nil
	l.sampleTree = nil
	l.evalTree = nil
	l.samplers = nil

	l.proxyMu.Lock()
	l.proxy = nil
	l.proxyBuilt = false
	l.proxyMu.Unlock()
}

// IsSamplable reports whether the light was prepared with at least one thread
func (l *MultiQuadLight) IsSamplable() bool {
	return l.evalTree != nil && len(l.samplers) > 0
}

// MakeSamplable allocates the cache slot of threadIndex ahead of sampling
func (l *MultiQuadLight) MakeSamplable(threadIndex int) {
	l.cache(threadIndex)
}

// cache returns the slot of threadIndex, allocating it on first use
func (l *MultiQuadLight) cache(threadIndex int) *sampleCache {
	if l.evalTree == nil {
		panic("lights: MultiQuadLight sampled before PrepareForRender")
	}
	if threadIndex < 0 || threadIndex >= len(l.samplers) {
		panic(fmt.Sprintf("lights: thread index %d out of range [0, %d)", threadIndex, len(l.samplers)))
	}
	c := l.samplers[threadIndex]
	if c == nil {
		c = newSampleCache(l.evalTree.NodeCount())
		l.samplers[threadIndex] = c
	}
	return c
}

// ensureWeights returns the cache of threadIndex holding the weights for p
func (l *MultiQuadLight) ensureWeights(threadIndex int, p core.Vec3) *sampleCache {
	c := l.cache(threadIndex)
	if c.matches(p) {
		c.hits++
		cacheHits.Inc()
		return c
	}
	c.misses++
	cacheMisses.Inc()
	l.evalTree.buildSampleWeights(c, p)
	return c
}

func (l *MultiQuadLight) intersectionTree() *geometry.QuadBVH {
	if l.bvh == nil {
		panic("lights: MultiQuadLight intersected before PrepareForRender")
	}
	return l.bvh
}

// Intersect returns the closest quad hit with t in [tMin, tMax]
func (l *MultiQuadLight) Intersect(ray core.Ray, tMin, tMax float64) (geometry.QuadHit, bool) {
	return l.intersectionTree().Intersect(ray, tMin, tMax)
}

// Occluded reports whether any quad is hit with t in [tMin, tMax]
func (l *MultiQuadLight) Occluded(ray core.Ray, tMin, tMax float64) bool {
	return l.intersectionTree().Occluded(ray, tMin, tMax)
}

// HitBackside reports whether the hit arrived from behind the quad normal
func (l *MultiQuadLight) HitBackside(hit geometry.QuadHit) bool {
	return hit.Backside
}

// IntersectionInfo describes the surface at a hit
func (l *MultiQuadLight) IntersectionInfo(ray core.Ray, hit geometry.QuadHit) IntersectionInfo {
	q := l.geometry.Quad(hit.Quad)
	point := ray.At(hit.T)
	scale := math.Max(math.Max(math.Abs(point.X), math.Abs(point.Y)), math.Abs(point.Z))
	return IntersectionInfo{
		Point:    point,
		Normal:   q.Normal,
		UV:       core.NewVec2(hit.U, hit.V),
		Epsilon:  rayEpsilon * math.Max(1, scale),
		Material: q.Material,
		Backside: hit.Backside,
	}
}

// TangentSpace returns an orthonormal frame aligned with the quad's first edge
func (l *MultiQuadLight) TangentSpace(hit geometry.QuadHit) (core.Vec3, core.Vec3, bool) {
	q := l.geometry.Quad(hit.Quad)
	tangent := q.Edge0.Normalize()
	if tangent.IsZero() {
		return core.Vec3{}, core.Vec3{}, false
	}
	return tangent, q.Normal.Cross(tangent), true
}

// Emission returns the radiance leaving the hit side of the quad
func (l *MultiQuadLight) Emission(hit geometry.QuadHit) core.Vec3 {
	return l.materials[l.geometry.Quad(hit.Quad).Material].Emit(hit.Backside)
}

// IsEmissive reports whether any quad emits light
func (l *MultiQuadLight) IsEmissive() bool {
	for i := 0; i < l.geometry.Len(); i++ {
		if l.materials[l.geometry.Quad(i).Material].IsEmissive() {
			return true
		}
	}
	return false
}

// Bounds returns the union of all quad bounds
func (l *MultiQuadLight) Bounds() core.AABB {
	return l.bounds
}

// AsTriangleMesh returns a two-triangles-per-quad proxy of the light,
// built on first use
func (l *MultiQuadLight) AsTriangleMesh() *geometry.TriangleMesh {
	l.proxyMu.Lock()
	defer l.proxyMu.Unlock()
	if !l.proxyBuilt {
		l.proxy = geometry.NewQuadProxyMesh(l.geometry)
		l.proxyBuilt = true
	}
	return l.proxy
}

// NumMaterials returns the number of materials referenced by index
func (l *MultiQuadLight) NumMaterials() int {
	return len(l.materials)
}

// Material returns material i
func (l *MultiQuadLight) Material(i int) *material.QuadMaterial {
	return l.materials[i]
}

// InvertParametrization maps surface coordinates back to a position.
// An aggregate has no global parametrization, so this always fails.
func (l *MultiQuadLight) InvertParametrization(uv core.Vec2) (core.Vec3, bool) {
	return core.Vec3{}, false
}

func (l *MultiQuadLight) IsDelta() bool {
	return false
}

func (l *MultiQuadLight) IsInfinite() bool {
	return false
}

// Clone returns an unprepared copy with its own geometry and shared materials
func (l *MultiQuadLight) Clone() *MultiQuadLight {
	return &MultiQuadLight{
		geometry:  l.geometry.Clone(),
		materials: l.materials,
		bounds:    l.bounds,
	}
}

// SampleInboundDirection picks a quad with the solid-angle tree, then a
// uniform point on it, and returns the direction from point towards it
func (l *MultiQuadLight) SampleInboundDirection(threadIndex int, point core.Vec3, sampler core.Sampler) (LightSample, bool) {
	if !point.IsFinite() {
		inboundFailed.Inc()
		return LightSample{}, false
	}
	c := l.ensureWeights(threadIndex, point)

	quad, selection, ok := l.evalTree.sample(c, sampler.Get1D())
	if !ok {
		inboundFailed.Inc()
		return LightSample{}, false
	}

	q := l.geometry.Quad(quad)
	uv := sampler.Get2D()
	target := q.PointAt(uv.X, uv.Y)

	toLight := target.Subtract(point)
	distanceSquared := toLight.LengthSquared()
	if distanceSquared == 0 {
		inboundFailed.Inc()
		return LightSample{}, false
	}
	distance := math.Sqrt(distanceSquared)
	direction := toLight.Multiply(1 / distance)

	// direction is FROM point TO light; a front face hit opposes the normal
	cosTheta := q.Normal.Dot(direction)
	emission := l.materials[q.Material].Emit(cosTheta > 0)
	if emission.IsZero() {
		inboundFailed.Inc()
		return LightSample{}, false
	}
	pdf := solidAnglePDF(selection/q.Area, distanceSquared, cosTheta)
	if pdf == 0 {
		inboundFailed.Inc()
		return LightSample{}, false
	}

	inboundOK.Inc()
	return LightSample{
		Point:     target,
		Normal:    q.Normal,
		Direction: direction,
		Distance:  distance,
		Emission:  emission,
		PDF:       pdf,
		Quad:      quad,
	}, true
}

// InboundPdf returns the density of SampleInboundDirection producing direction.
// The nearest quad along the direction is the one that is evaluated.
func (l *MultiQuadLight) InboundPdf(threadIndex int, point, direction core.Vec3) float64 {
	direction = direction.Normalize()
	if !point.IsFinite() || direction.IsZero() {
		return 0
	}
	hit, ok := l.Intersect(core.NewRay(point, direction), rayEpsilon, math.Inf(1))
	if !ok {
		return 0
	}
	return l.InboundPdfHit(threadIndex, hit, point, direction)
}

// InboundPdfHit is InboundPdf for a hit the caller already found
func (l *MultiQuadLight) InboundPdfHit(threadIndex int, hit geometry.QuadHit, point, direction core.Vec3) float64 {
	if !point.IsFinite() || hit.Quad < 0 || hit.Quad >= l.geometry.Len() {
		return 0
	}
	c := l.ensureWeights(threadIndex, point)
	selection := l.evalTree.probability(c, hit.Quad)
	if selection == 0 {
		return 0
	}

	q := l.geometry.Quad(hit.Quad)
	hitPoint := q.PointAt(hit.U, hit.V)
	toLight := hitPoint.Subtract(point)
	distanceSquared := toLight.LengthSquared()
	if distanceSquared == 0 {
		return 0
	}
	cosTheta := q.Normal.Dot(toLight) / math.Sqrt(distanceSquared)
	if l.materials[q.Material].Emit(cosTheta > 0).IsZero() {
		return 0
	}
	return solidAnglePDF(selection/q.Area, distanceSquared, cosTheta)
}

// SampleOutboundDirection picks a quad by power, a uniform point on it and a
// cosine-weighted direction leaving one of its emitting sides
func (l *MultiQuadLight) SampleOutboundDirection(threadIndex int, sampler core.Sampler) (EmissionSample, bool) {
	if l.sampleTree == nil {
		panic("lights: MultiQuadLight sampled before PrepareForRender")
	}
	quad, selection, ok := l.sampleTree.Pick(sampler.Get1D())
	if !ok {
		outboundFailed.Inc()
		return EmissionSample{}, false
	}

	q := l.geometry.Quad(quad)
	uv := sampler.Get2D()
	point := q.PointAt(uv.X, uv.Y)

	sample := SampleEmissionDirection(point, q.Normal, selection/q.Area, l.materials[q.Material], sampler.Get2D())
	if !(sample.DirectionPDF > 0) {
		outboundFailed.Inc()
		return EmissionSample{}, false
	}
	sample.Quad = quad

	outboundOK.Inc()
	return sample, true
}

// EmissionPdf returns the position and direction densities of
// SampleOutboundDirection producing a ray leaving hit in direction
func (l *MultiQuadLight) EmissionPdf(hit geometry.QuadHit, direction core.Vec3) (pdfPos, pdfDir float64) {
	if l.sampleTree == nil || hit.Quad < 0 || hit.Quad >= l.geometry.Len() {
		return 0, 0
	}
	q := l.geometry.Quad(hit.Quad)
	pdfPos = l.sampleTree.Probability(hit.Quad) / q.Area
	pdfDir = EmissionDirectionPDF(q.Normal, direction.Normalize(), l.materials[q.Material])
	return pdfPos, pdfDir
}

// ApproximateRadiance returns the total selection weight at point
func (l *MultiQuadLight) ApproximateRadiance(threadIndex int, point core.Vec3) float64 {
	if !point.IsFinite() {
		return 0
	}
	total := l.ensureWeights(threadIndex, point).totalWeight()
	if math.IsNaN(total) || math.IsInf(total, 0) || total < 0 {
		return 0
	}
	return total
}

// LightStats summarises a prepared light
type LightStats struct {
	Quads             int
	EmissiveQuads     int
	TotalArea         float64
	TotalPower        float64
	SelectionNodes    int
	SelectionDepth    int
	IntersectionStats geometry.BVHStats
}

// Stats returns statistics of the prepared trees
func (l *MultiQuadLight) Stats() LightStats {
	if l.evalTree == nil {
		panic("lights: MultiQuadLight stats requested before PrepareForRender")
	}
	stats := LightStats{
		Quads:             l.geometry.Len(),
		TotalArea:         l.geometry.TotalArea(),
		TotalPower:        l.sampleTree.TotalPower(),
		SelectionNodes:    l.evalTree.NodeCount(),
		SelectionDepth:    l.evalTree.Depth(),
		IntersectionStats: l.bvh.Stats(),
	}
	for i := 0; i < l.geometry.Len(); i++ {
		if l.materials[l.geometry.Quad(i).Material].IsEmissive() {
			stats.EmissiveQuads++
		}
	}
	return stats
}

// CacheStats returns the weight cache hits and misses of threadIndex
func (l *MultiQuadLight) CacheStats(threadIndex int) (hits, misses uint64) {
	if threadIndex < 0 || threadIndex >= len(l.samplers) || l.samplers[threadIndex] == nil {
		return 0, 0
	}
	return l.samplers[threadIndex].hits, l.samplers[threadIndex].misses
}
