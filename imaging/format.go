package imaging

import (
	"strings"

	"github.com/mano8/imgtools-m8/errors"
	"github.com/mano8/imgtools-m8/utils"
)

// Per-format defaults applied when an option is left unset.
const (
	DefaultJPEGQuality = 95
	DefaultWEBPQuality = 95
)

// FormatSpec is one requested output encoding: a target extension plus the
// recognized per-format options. Options that do not apply to the chosen
// format are ignored, as are unknown configuration keys (viper drops them
// before they ever reach this struct).
type FormatSpec struct {
	// Ext selects the encoder: .jpg/.jpeg/.jpe, .png or .webp.
	Ext string `mapstructure:"ext" json:"ext" yaml:"ext"`

	// Quality applies to JPEG and WEBP, range 0-100; 0 means default.
	Quality int `mapstructure:"quality" json:"quality,omitempty" yaml:"quality"`

	// Progressive and Optimize are the JPEG flags of the original tool,
	// range 0-1. The pure-Go encoder emits baseline JPEGs, so they are
	// validated and accepted for configuration compatibility only.
	Progressive int `mapstructure:"progressive" json:"progressive,omitempty" yaml:"progressive"`
	Optimize    int `mapstructure:"optimize" json:"optimize,omitempty" yaml:"optimize"`

	// Compression is the PNG level, range -1..9; -1 keeps the codec default.
	Compression int `mapstructure:"compression" json:"compression,omitempty" yaml:"compression" default:"-1"`
}

// writableExtensions are the encodings Encode can produce.
var writableExtensions = []string{".jpg", ".jpeg", ".jpe", ".png", ".webp"}

// IsWritableExt reports whether the codec can encode to ext.
func IsWritableExt(ext string) bool {
	lowered := strings.ToLower(ext)
	for _, e := range writableExtensions {
		if e == lowered {
			return true
		}
	}
	return false
}

// Validate checks the spec eagerly, before any image is touched.
func (s FormatSpec) Validate() error {
	if !IsWritableExt(s.Ext) {
		return errors.NewInvalidSetting("ext", s.Ext, "unsupported output format")
	}
	if s.Quality < 0 || s.Quality > 100 {
		return errors.NewInvalidSetting("quality", s.Quality, "must be in 0..100")
	}
	if s.Progressive < 0 || s.Progressive > 1 {
		return errors.NewInvalidSetting("progressive", s.Progressive, "must be 0 or 1")
	}
	if s.Optimize < 0 || s.Optimize > 1 {
		return errors.NewInvalidSetting("optimize", s.Optimize, "must be 0 or 1")
	}
	if s.Compression < -1 || s.Compression > 9 {
		return errors.NewInvalidSetting("compression", s.Compression, "must be in -1..9")
	}
	return nil
}

// IsJPEG reports whether the spec targets a JPEG encoding.
func (s FormatSpec) IsJPEG() bool {
	return utils.IsJPEGExt(s.Ext)
}

// quality returns the effective quality for JPEG/WEBP encodings.
func (s FormatSpec) quality() int {
	if s.Quality == 0 {
		if s.IsJPEG() {
			return DefaultJPEGQuality
		}
		return DefaultWEBPQuality
	}
	return s.Quality
}

// NormalizedExt returns the lowercased extension with the dot.
func (s FormatSpec) NormalizedExt() string {
	return strings.ToLower(s.Ext)
}
