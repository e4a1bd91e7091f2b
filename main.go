package main

import (
	"fmt"
	"os"

	"github.com/df07/go-multiquad-light/cmd"
	"github.com/urfave/cli"
)

func newApp() *cli.App {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "multiquad"
	app.Usage = "sample and inspect aggregate quad area lights"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringFlag{
			Name:  "log",
			Usage: "per module log levels, e.g. lights=debug,renderer=info",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:   "list",
			Usage:  "list the built-in scenes",
			Action: cmd.ListScenes,
		},
		{
			Name:  "grid",
			Usage: "generate a scene file with a grid of emitting quads",
			Description: `
Write a rows x cols grid of downward facing quads centered above the origin,
together with a 3x3 patch of receivers on the floor.`,
			Flags: []cli.Flag{
				cli.IntFlag{Name: "rows", Value: 16, Usage: "grid rows"},
				cli.IntFlag{Name: "cols", Value: 16, Usage: "grid columns"},
				cli.Float64Flag{Name: "cell", Value: 1, Usage: "quad edge length"},
				cli.Float64Flag{Name: "gap", Value: 0.25, Usage: "spacing between quads"},
				cli.Float64Flag{Name: "height", Value: 4, Usage: "height of the grid"},
				cli.Float64Flag{Name: "emission", Value: 4, Usage: "emitted radiance"},
				cli.BoolFlag{Name: "two-sided", Usage: "emit from both faces"},
				cli.BoolFlag{Name: "colored", Usage: "use a different hue for every column"},
				cli.Float64Flag{Name: "jitter", Usage: "maximum random rotation of each quad in degrees"},
				cli.Int64Flag{Name: "seed", Value: 1, Usage: "seed of the jitter"},
				cli.StringFlag{Name: "out, o", Value: "grid.json", Usage: "scene file to write, - for stdout"},
			},
			Action: cmd.GenerateGrid,
		},
		{
			Name:  "import",
			Usage: "convert the quad faces of ply meshes into scene files",
			Description: `
Read every quad face of each ply file as a parallelogram spanned by its first,
second and fourth vertex. Meshes with vertex colors get one material per
distinct face color. The scene is written next to the mesh with a .json
extension.`,
			ArgsUsage: "mesh1.ply mesh2.ply ...",
			Flags: []cli.Flag{
				cli.Float64Flag{Name: "emission", Value: 1, Usage: "emitted radiance, scales vertex colors"},
				cli.BoolFlag{Name: "two-sided", Usage: "emit from both faces"},
				cli.Float64Flag{Name: "tolerance", Value: 1e-4, Usage: "allowed parallelogram error relative to the longest edge"},
			},
			Action: cmd.ImportPLY,
		},
		{
			Name:      "info",
			Usage:     "display light and tree statistics",
			ArgsUsage: "[scene_file.json]",
			Flags:     []cli.Flag{cmd.SceneFlag},
			Action:    cmd.SceneInfo,
		},
		{
			Name:  "estimate",
			Usage: "estimate direct irradiance at the scene receivers",
			Description: `
Combine light sampling and cosine-weighted hemisphere sampling with multiple
importance sampling at every receiver. Receivers are split into batches that
run on a pool of workers, each owning one sampling cache of the light.`,
			ArgsUsage: "[scene_file.json]",
			Flags: []cli.Flag{
				cmd.SceneFlag,
				cli.IntFlag{Name: "spp", Value: 1024, Usage: "samples per receiver"},
				cli.IntFlag{Name: "batch", Value: 256, Usage: "samples per task"},
				cli.IntFlag{Name: "workers, w", Usage: "number of workers, 0 for one per cpu"},
				cli.Int64Flag{Name: "seed", Value: 42, Usage: "sampler seed, 0 is a valid seed"},
				cli.StringFlag{Name: "heuristic", Value: "power", Usage: "MIS weights: power or balance"},
				cli.BoolFlag{Name: "metrics", Usage: "display the light's sampling metrics"},
			},
			Action: cmd.EstimateLighting,
		},
		{
			Name:      "emit",
			Usage:     "sample emitted rays and compare quad frequencies with their power",
			ArgsUsage: "[scene_file.json]",
			Flags: []cli.Flag{
				cmd.SceneFlag,
				cli.IntFlag{Name: "samples, n", Value: 100000, Usage: "number of emitted rays"},
				cli.IntFlag{Name: "top", Value: 10, Usage: "number of quads to display, 0 for all"},
				cli.Int64Flag{Name: "seed", Value: 42, Usage: "sampler seed"},
			},
			Action: cmd.SampleEmission,
		},
		{
			Name:      "mesh",
			Usage:     "export the light as a triangle mesh",
			ArgsUsage: "[scene_file.json]",
			Flags: []cli.Flag{
				cmd.SceneFlag,
				cli.StringFlag{Name: "out, o", Value: "light.obj", Usage: "wavefront obj file to write"},
			},
			Action: cmd.ExportMesh,
		},
		{
			Name:  "serve",
			Usage: "serve estimates and metrics over http",
			Description: `
Expose /api/estimate and /api/inspect for the built-in scenes together with
the light's prometheus metrics on /metrics.`,
			Flags: []cli.Flag{
				cli.IntFlag{Name: "port, p", Value: 8080, Usage: "port to serve on"},
			},
			Action: cmd.Serve,
		},
	}
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
