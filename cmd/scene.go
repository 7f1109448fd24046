package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Sansait/Paralight/accel"
	"github.com/Sansait/Paralight/asset/scene/reader"
	"github.com/Sansait/Paralight/scene"
	"github.com/urfave/cli"
)

// A scene ready for rendering. structure is nil when the scene was not
// loaded from a compiled snapshot.
type loadedScene struct {
	state     *scene.State
	structure *accel.Structure
}

// Load the scene named by the first command argument.
func sceneArg(ctx *cli.Context) (*loadedScene, error) {
	if ctx.NArg() != 1 {
		return nil, fmt.Errorf("missing scene argument; expected a compiled .zip scene or one of: %s", strings.Join(scene.BuiltinNames(), ", "))
	}
	return loadScene(ctx.Args().First())
}

// Load a builtin scene by name or a compiled scene from a local path or url
// ending in .zip.
func loadScene(name string) (*loadedScene, error) {
	if !strings.HasSuffix(name, ".zip") {
		state, err := scene.Builtin(name)
		if err != nil {
			return nil, err
		}
		return &loadedScene{state: state}, nil
	}

	compiled, err := reader.ReadScene(name)
	if err != nil {
		return nil, err
	}

	state, structure, err := compiled.Load()
	if errors.Is(err, accel.ErrEmptyGeometry) {
		logger.Warningf("scene %q contains no triangles", compiled.Name)
	} else if err != nil {
		return nil, err
	}

	return &loadedScene{state: state, structure: structure}, nil
}

// Display scene information.
func ShowSceneInfo(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	if ctx.NArg() != 1 {
		return errors.New("missing compiled scene zip file")
	}

	sceneFile := ctx.Args().First()
	if !strings.HasSuffix(sceneFile, ".zip") {
		return errors.New("only compiled scene files with a .zip extension are supported")
	}

	sc, err := reader.ReadScene(sceneFile)
	if err != nil {
		return err
	}

	logger.Noticef("scene information:\n%s", sc.Stats())
	return nil
}
