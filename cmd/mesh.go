package cmd

import (
	"os"

	"github.com/urfave/cli"
)

// Export the triangle proxy of the scene light as a wavefront obj file.
func ExportMesh(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	sc, err := loadScene(ctx)
	if err != nil {
		return err
	}
	mesh := sc.Light.AsTriangleMesh()

	out := ctx.String("out")
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := mesh.WriteOBJ(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	logger.Noticef("wrote %d triangles to %s", mesh.GetTriangleCount(), out)
	return nil
}
