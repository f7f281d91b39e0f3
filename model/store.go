package model

import (
	"path/filepath"

	"github.com/mano8/imgtools-m8/errors"
	"github.com/mano8/imgtools-m8/utils"
)

// FileStore probes a directory of .pb model files for one family. Probing
// is a plain directory listing; loading is delegated to the injected
// LoaderFunc so the inference engine stays a black box.
type FileStore struct {
	dir    string
	family string
	loader LoaderFunc
}

// NewFileStore creates a store over dir for the given family (DefaultFamily
// when empty).
func NewFileStore(dir, family string, loader LoaderFunc) (*FileStore, error) {
	if family == "" {
		family = DefaultFamily
	}
	if !IsFamily(family) {
		return nil, errors.NewInvalidSetting("model_name", family, "unknown model family")
	}
	if !utils.IsDir(dir) {
		return nil, errors.NewInvalidSetting("model_path", dir, "not a directory")
	}
	if loader == nil {
		return nil, errors.NewConfiguration("model loader is required")
	}
	return &FileStore{dir: dir, family: family, loader: loader}, nil
}

// Family returns the family the store probes for.
func (s *FileStore) Family() string {
	return s.family
}

// Descriptors lists the family's model files present in the directory,
// ordered by scale.
func (s *FileStore) Descriptors() ([]Descriptor, error) {
	names, err := utils.ListFiles(s.dir, []string{".pb"})
	if err != nil {
		return nil, errors.NewIO(s.dir, err)
	}
	byScale := make(map[int]Descriptor)
	for _, name := range names {
		family, scale, ok := ParseFileName(name)
		if !ok || family != s.family {
			continue
		}
		byScale[scale] = Descriptor{
			Family:   family,
			Scale:    scale,
			FilePath: filepath.Join(s.dir, name),
		}
	}
	set := make(map[int]struct{}, len(byScale))
	for scale := range byScale {
		set[scale] = struct{}{}
	}
	descriptors := make([]Descriptor, 0, len(byScale))
	for _, scale := range sortedScales(set) {
		descriptors = append(descriptors, byScale[scale])
	}
	return descriptors, nil
}

// AvailableScales implements Store.
func (s *FileStore) AvailableScales() ([]int, error) {
	descriptors, err := s.Descriptors()
	if err != nil {
		return nil, err
	}
	scales := make([]int, 0, len(descriptors))
	for _, d := range descriptors {
		scales = append(scales, d.Scale)
	}
	return scales, nil
}

// Load implements Store. The scale must be valid for the family and a
// matching model file must exist.
func (s *FileStore) Load(scale int) (Handle, error) {
	if !IsValidScale(s.family, scale) {
		return nil, errors.NewInvalidScale(s.family, scale, FamilyScales(s.family))
	}
	descriptors, err := s.Descriptors()
	if err != nil {
		return nil, err
	}
	for _, d := range descriptors {
		if d.Scale == scale {
			return s.loader(d)
		}
	}
	return nil, errors.NewModelNotFound(s.family, scale)
}

var _ Store = (*FileStore)(nil)
