// Package model resolves super-resolution models: probing model files on
// disk, validating requested scales and selecting the scale that covers a
// batch. Inference itself is a collaborator hidden behind Handle; this
// package never parses model file contents.
package model

import (
	"image"
	"sort"
	"strconv"
	"strings"

	"github.com/mano8/imgtools-m8/utils"
)

// DefaultFamily is used when the configuration names no model family.
const DefaultFamily = "edsr"

// families maps each supported model family to its valid scale factors.
var families = map[string][]int{
	"edsr":   {2, 3, 4},
	"espcn":  {2, 3, 4},
	"fsrcnn": {2, 3, 4},
	"lapsrn": {2, 4, 8},
}

// Descriptor identifies one model file: a family, the single integer scale
// it upsamples by, and where its weights live.
type Descriptor struct {
	Family   string `json:"family"`
	Scale    int    `json:"scale"`
	FilePath string `json:"file_path"`
}

// Handle is a loaded super-resolution model. Upscale multiplies both image
// dimensions by Scale; it is safe for reuse across a batch because the
// loaded model is read-only.
type Handle interface {
	Scale() int
	Upscale(img image.Image) (image.Image, error)
}

// Store is the capability interface over a model backend: list which scales
// are available and load one of them. Alternate backends can be substituted
// without touching planning logic.
type Store interface {
	AvailableScales() ([]int, error)
	Load(scale int) (Handle, error)
}

// LoaderFunc turns a probed descriptor into a usable handle.
type LoaderFunc func(Descriptor) (Handle, error)

// IsFamily reports whether name is a known model family.
func IsFamily(name string) bool {
	_, ok := families[strings.ToLower(name)]
	return ok
}

// FamilyScales returns the valid scale set of a family, nil if unknown.
func FamilyScales(name string) []int {
	scales, ok := families[strings.ToLower(name)]
	if !ok {
		return nil
	}
	out := make([]int, len(scales))
	copy(out, scales)
	return out
}

// IsValidScale reports whether scale belongs to the family's valid set.
func IsValidScale(family string, scale int) bool {
	for _, s := range FamilyScales(family) {
		if s == scale {
			return true
		}
	}
	return false
}

// ParseFileName extracts family and scale from a model file name of the
// form {FAMILY}_x{scale}.pb, e.g. EDSR_x2.pb. The second return value is
// false when the name does not follow the convention.
func ParseFileName(fileName string) (family string, scale int, ok bool) {
	stem, ext := utils.CutStem(fileName)
	if ext != ".pb" {
		return "", 0, false
	}
	idx := strings.LastIndex(strings.ToLower(stem), "_x")
	if idx <= 0 {
		return "", 0, false
	}
	family = strings.ToLower(stem[:idx])
	scale, err := strconv.Atoi(stem[idx+2:])
	if err != nil || scale < 1 || !IsFamily(family) {
		return "", 0, false
	}
	return family, scale, true
}

func sortedScales(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Ints(out)
	return out
}
