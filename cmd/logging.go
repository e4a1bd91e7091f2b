package cmd

import (
	"github.com/df07/go-multiquad-light/pkg/log"
	"github.com/urfave/cli"
)

var logger = log.New("multiquad")

func setupLogging(ctx *cli.Context) error {
	if ctx.GlobalBool("v") {
		log.SetLevel(log.Info)
	}

	if ctx.GlobalBool("vv") {
		log.SetLevel(log.Debug)
	}

	// Module levels win over -v and -vv
	return log.SetModuleLevels(ctx.GlobalString("log"))
}
