package server

import (
	"math"
	"net/http"
	"net/url"

	"github.com/df07/go-multiquad-light/pkg/core"
	"github.com/df07/go-multiquad-light/pkg/geometry"
	"github.com/df07/go-multiquad-light/pkg/material"
)

// InspectResponse represents the JSON response for ray inspection
type InspectResponse struct {
	Hit        bool                   `json:"hit"`
	Quad       int                    `json:"quad"`
	Point      [3]float64             `json:"point"`
	Normal     [3]float64             `json:"normal"`
	Distance   float64                `json:"distance"`
	FrontFace  bool                   `json:"frontFace"`
	Emission   [3]float64             `json:"emission"` // Radiance leaving the hit side
	InboundPdf float64                `json:"inboundPdf"`
	Properties map[string]interface{} `json:"properties"`
}

// extractMaterialInfo extracts the material properties of a quad
func extractMaterialInfo(mat *material.QuadMaterial) map[string]interface{} {
	return map[string]interface{}{
		"name":     mat.Name,
		"emission": [3]float64{mat.Emission.X, mat.Emission.Y, mat.Emission.Z},
		"twoSided": mat.TwoSided,
	}
}

// extractGeometryInfo extracts the geometry properties of a quad
func extractGeometryInfo(q *geometry.Quad) map[string]interface{} {
	return map[string]interface{}{
		"base":   [3]float64{q.Base.X, q.Base.Y, q.Base.Z},
		"edge0":  [3]float64{q.Edge0.X, q.Edge0.Y, q.Edge0.Z},
		"edge1":  [3]float64{q.Edge1.X, q.Edge1.Y, q.Edge1.Z},
		"normal": [3]float64{q.Normal.X, q.Normal.Y, q.Normal.Z},
		"area":   q.Area,
	}
}

// parseVec3Param parses the x, y and z components of a point or direction
func parseVec3Param(values url.Values, prefix string, defaultValue core.Vec3) (core.Vec3, error) {
	const limit = 1e9
	x, err := parseFloatParam(values, prefix+"x", defaultValue.X, -limit, limit)
	if err != nil {
		return core.Vec3{}, err
	}
	y, err := parseFloatParam(values, prefix+"y", defaultValue.Y, -limit, limit)
	if err != nil {
		return core.Vec3{}, err
	}
	z, err := parseFloatParam(values, prefix+"z", defaultValue.Z, -limit, limit)
	if err != nil {
		return core.Vec3{}, err
	}
	return core.NewVec3(x, y, z), nil
}

// handleInspect casts a ray against the light of a built-in scene
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	sceneID := query.Get("scene")
	if sceneID == "" {
		sceneID = "grid"
	}

	origin, err := parseVec3Param(query, "o", core.NewVec3(0, 0, 0))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid origin: "+err.Error())
		return
	}
	direction, err := parseVec3Param(query, "d", core.NewVec3(0, 1, 0))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid direction: "+err.Error())
		return
	}
	if direction.IsZero() {
		writeError(w, http.StatusBadRequest, "Direction must not be zero")
		return
	}
	direction = direction.Normalize()

	sceneObj, err := s.createScene(sceneID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := sceneObj.Preprocess(1); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer sceneObj.Cleanup()

	light := sceneObj.Light
	ray := core.NewRay(origin, direction)
	hit, ok := light.Intersect(ray, 1e-6, math.Inf(1))
	if !ok {
		writeJSON(w, http.StatusOK, InspectResponse{Hit: false, Quad: -1})
		return
	}

	info := light.IntersectionInfo(ray, hit)
	quad := light.Geometry().Quad(hit.Quad)
	emission := light.Emission(hit)
	writeJSON(w, http.StatusOK, InspectResponse{
		Hit:        true,
		Quad:       hit.Quad,
		Point:      [3]float64{info.Point.X, info.Point.Y, info.Point.Z},
		Normal:     [3]float64{info.Normal.X, info.Normal.Y, info.Normal.Z},
		Distance:   hit.T,
		FrontFace:  !hit.Backside,
		Emission:   [3]float64{emission.X, emission.Y, emission.Z},
		InboundPdf: light.InboundPdfHit(0, hit, origin, direction),
		Properties: map[string]interface{}{
			"material": extractMaterialInfo(light.Material(quad.Material)),
			"geometry": extractGeometryInfo(quad),
		},
	})
}
