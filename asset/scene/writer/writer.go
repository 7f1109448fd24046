package writer

import "github.com/Sansait/Paralight/asset/scene"

// The Writer interface is implemented by all scene writers.
type Writer interface {
	// Write scene definition
	Write(*scene.Compiled) error
}

// Write scene to binary format.
func WriteScene(sc *scene.Compiled, filename string) error {
	writer := newZipSceneWriter(filename)
	return writer.Write(sc)
}
