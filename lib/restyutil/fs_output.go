package restyutil

import (
	"log/slog"
	"os"
	"path/filepath"
)

// FilesystemOutput writes each request transcript to its own file in a
// directory, the directory is cleared when the output is created.
type FilesystemOutput struct {
	directory string
	prefix    string
}

func NewFilesystemOutput(dir, prefix string) (FilesystemOutput, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return FilesystemOutput{}, err
	}
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"-*.txt"))
	if err != nil {
		return FilesystemOutput{}, err
	}
	for _, m := range matches {
		os.Remove(m)
	}
	err = os.MkdirAll(dir, 0777)
	if err != nil {
		return FilesystemOutput{}, err
	}
	return FilesystemOutput{directory: dir, prefix: prefix}, nil
}

func (o FilesystemOutput) Write(id string, contents string) {
	path := filepath.Join(o.directory, o.prefix+"-"+id+".txt")
	err := os.WriteFile(path, []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write message info file", "path", path, "err", err)
		return
	}
	slog.Debug("saved http transcript", "path", path)
}
