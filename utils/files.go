package utils

import (
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Exists reports whether path exists and whether it is a directory.
func Exists(path string) (isDir bool, exists bool, err error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return info.IsDir(), true, nil
}

// IsFile reports whether path is an existing regular file.
func IsFile(path string) bool {
	isDir, exists, err := Exists(path)
	return err == nil && exists && !isDir
}

// IsDir reports whether path is an existing directory.
func IsDir(path string) bool {
	isDir, exists, err := Exists(path)
	return err == nil && exists && isDir
}

// CreateDir creates the directory and any missing parents.
func CreateDir(path string) error {
	return os.MkdirAll(path, os.ModePerm)
}

// Extension returns the lowercased file extension including the dot.
func Extension(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// CutStem splits a file name into its stem and lowercased extension.
// "photo.JPG" -> ("photo", ".jpg").
func CutStem(fileName string) (stem, ext string) {
	ext = Extension(fileName)
	stem = fileName[:len(fileName)-len(ext)]
	return stem, ext
}

// ListFiles returns the names of regular files in dir whose extension is in
// exts, sorted for deterministic processing order. A nil exts matches all.
func ListFiles(dir string, exts []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var allowed map[string]struct{}
	if exts != nil {
		allowed = make(map[string]struct{}, len(exts))
		for _, e := range exts {
			allowed[strings.ToLower(e)] = struct{}{}
		}
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if allowed != nil {
			if _, ok := allowed[Extension(entry.Name())]; !ok {
				continue
			}
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)
	return files, nil
}

// FileSize returns the size of the file in bytes, or 0 when it cannot be
// stated.
func FileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB", "PB"}

// HumanSize renders a byte count as a human-readable string, e.g. "2 KB".
func HumanSize(sizeBytes int64) string {
	if sizeBytes <= 0 {
		return "0 B"
	}
	i := int(math.Floor(math.Log(float64(sizeBytes)) / math.Log(1024)))
	if i >= len(sizeUnits) {
		i = len(sizeUnits) - 1
	}
	v := math.Round(float64(sizeBytes)/math.Pow(1024, float64(i))*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + sizeUnits[i]
}
