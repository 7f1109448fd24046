package reader

import (
	"fmt"
	"strings"

	"github.com/Sansait/Paralight/asset"
	"github.com/Sansait/Paralight/asset/scene"
)

// The Reader interface is implemented by all scene readers.
type Reader interface {
	// Read scene definition from a resource.
	Read(*asset.Resource) (*scene.Compiled, error)
}

// Read a compiled scene from a local file or a http/https URL.
func ReadScene(pathToScene string) (*scene.Compiled, error) {
	if !strings.HasSuffix(pathToScene, ".zip") {
		return nil, fmt.Errorf("readScene: unsupported file format %q; only compiled .zip scenes are supported", pathToScene)
	}

	res, err := asset.NewResource(pathToScene, nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	return newZipSceneReader().Read(res)
}
