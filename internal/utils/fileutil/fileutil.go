package fileutil

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// AtomicWriteFile writes data to a temporary file and then renames it to the target file.
// AtomicWriteFile 将数据写入临时文件，然后将其重命名为目标文件。
func AtomicWriteFile(fsys afero.Fs, filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename) // #nosec G703 // Safe: filepath.Dir cleans the path preventing traversal
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmpFile, err := afero.TempFile(fsys, dir, "atomic-*.tmp")
	if err != nil {
		return err
	}
	defer fsys.Remove(tmpFile.Name()) // Clean up if something fails

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return err
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	if err := fsys.Chmod(tmpFile.Name(), perm); err != nil {
		return err
	}

	return fsys.Rename(tmpFile.Name(), filename) // #nosec G703 // filename is validated by caller
}

// ReadLines reads all non-empty lines from a file, skipping '#' comments.
// A missing file yields no lines.
// ReadLines 读取文件中的所有非空行，忽略以 '#' 开头的注释。
func ReadLines(fsys afero.Fs, filePath string) ([]string, error) {
	if filePath == "" {
		return nil, nil
	}
	safePath := filepath.Clean(filePath) // Sanitize path to prevent directory traversal
	content, err := afero.ReadFile(fsys, safePath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, line := range strings.Split(string(content), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !strings.HasPrefix(trimmed, "#") {
			lines = append(lines, trimmed)
		}
	}
	return lines, nil
}

// Exists reports whether path exists on fsys.
func Exists(fsys afero.Fs, path string) bool {
	ok, err := afero.Exists(fsys, path)
	return err == nil && ok
}
