package cmd

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/df07/go-multiquad-light/pkg/loaders"
	"github.com/df07/go-multiquad-light/pkg/scene"
	"github.com/urfave/cli"
)

// Convert the quad faces of ply meshes into scene files.
func ImportPLY(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	if ctx.NArg() == 0 {
		return errors.New("no ply files given")
	}
	emission := ctx.Float64("emission")
	cfg := scene.ImportConfig{
		Emission:  [3]float64{emission, emission, emission},
		TwoSided:  ctx.Bool("two-sided"),
		Tolerance: ctx.Float64("tolerance"),
	}

	for idx := 0; idx < ctx.NArg(); idx++ {
		plyFile := ctx.Args().Get(idx)
		if !strings.HasSuffix(plyFile, ".ply") {
			logger.Warningf("skipping unsupported file %s", plyFile)
			continue
		}

		data, err := loaders.LoadPLY(plyFile)
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(filepath.Base(plyFile), ".ply")
		desc, err := scene.NewDescriptionFromPLY(name, data, cfg)
		if err != nil {
			return err
		}
		if _, err := desc.Build(); err != nil {
			return err
		}

		jsonFile := strings.TrimSuffix(plyFile, ".ply") + ".json"
		if err := desc.SaveFile(jsonFile); err != nil {
			return err
		}
		logger.Noticef("wrote %d quads with %d materials to %s", len(desc.Quads), len(desc.Materials), jsonFile)
	}
	return nil
}
