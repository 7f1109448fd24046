package cmd

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/Sansait/Paralight/asset/scene"
	"github.com/Sansait/Paralight/asset/scene/writer"
	"github.com/urfave/cli"
)

// Compile builtin scenes into zip archives that bundle the triangles with a
// prebuilt acceleration structure.
func CompileScene(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	if ctx.NArg() == 0 {
		return errors.New("missing scene argument")
	}

	opts, err := buildOptions(ctx)
	if err != nil {
		return err
	}

	outDir := ctx.String("out-dir")
	for idx := 0; idx < ctx.NArg(); idx++ {
		name := ctx.Args().Get(idx)
		if strings.HasSuffix(name, ".zip") {
			logger.Warningf("skipping already compiled scene %s", name)
			continue
		}

		ls, err := loadScene(name)
		if err != nil {
			return err
		}

		logger.Noticef("compiling scene: %s", name)
		sc, err := scene.Compile(ls.state.Snapshot(), opts)
		if err != nil {
			return err
		}

		logger.Noticef("scene information:\n%s", sc.Stats())

		zipFile := filepath.Join(outDir, name+".zip")
		if err = writer.WriteScene(sc, zipFile); err != nil {
			return err
		}
		logger.Noticef("wrote compiled scene to %s", zipFile)
	}

	return nil
}
