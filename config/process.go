package config

import (
	"github.com/go-playground/validator/v10"

	"github.com/mano8/imgtools-m8/errors"
	"github.com/mano8/imgtools-m8/imaging"
	"github.com/mano8/imgtools-m8/scaling"
	"github.com/mano8/imgtools-m8/utils"
)

// OutputEntry pairs one size constraint with the encodings to produce at
// that size.
type OutputEntry struct {
	FixedWidth  int                  `mapstructure:"fixed_width" json:"fixed_width,omitempty" yaml:"fixed_width" validate:"gte=0"`
	FixedHeight int                  `mapstructure:"fixed_height" json:"fixed_height,omitempty" yaml:"fixed_height" validate:"gte=0"`
	Formats     []imaging.FormatSpec `mapstructure:"formats" json:"formats" yaml:"formats" validate:"required,min=1"`
}

// Constraint returns the entry's size constraint.
func (e OutputEntry) Constraint() scaling.Constraint {
	return scaling.Constraint{FixedWidth: e.FixedWidth, FixedHeight: e.FixedHeight}
}

// ModelSettings selects the super-resolution model. All fields optional:
// an empty Path disables upscaling entirely, an empty Name means the
// default family, a zero Scale means auto-selection.
type ModelSettings struct {
	Path  string `mapstructure:"path" json:"path,omitempty" yaml:"path"`
	Name  string `mapstructure:"model_name" json:"model_name,omitempty" yaml:"model_name" default:"edsr"`
	Scale int    `mapstructure:"scale" json:"scale,omitempty" yaml:"scale" validate:"gte=0"`
}

// Enabled reports whether a model directory is configured.
func (m ModelSettings) Enabled() bool {
	return m.Path != ""
}

// Process is the whole run configuration.
type Process struct {
	SourcePath string        `mapstructure:"source_path" json:"source_path" yaml:"source_path" validate:"required"`
	OutputPath string        `mapstructure:"output_path" json:"output_path" yaml:"output_path" validate:"required"`
	Outputs    []OutputEntry `mapstructure:"output_formats" json:"output_formats" yaml:"output_formats" validate:"required,min=1,dive"`
	Model      ModelSettings `mapstructure:"model_conf" json:"model_conf,omitempty" yaml:"model_conf"`

	// Jobs bounds how many sources are processed concurrently in batch
	// mode; 1 keeps the sequential driver.
	Jobs int `mapstructure:"jobs" json:"jobs,omitempty" yaml:"jobs" default:"1" validate:"gte=1"`
}

var validate = validator.New()

// Validate checks the whole process configuration eagerly so a bad run
// fails before any image is touched.
func (p Process) Validate() error {
	if err := validate.Struct(p); err != nil {
		return errors.WrapWithType(err, errors.ErrorTypeConfiguration, "invalid process configuration")
	}
	if !utils.IsFile(p.SourcePath) && !utils.IsDir(p.SourcePath) {
		return errors.NewInvalidSetting("source_path", p.SourcePath, "not an existing file or directory")
	}
	for i, entry := range p.Outputs {
		if err := entry.Constraint().Validate(); err != nil {
			return errors.FromError(err).WithDetail("output_entry", i)
		}
		for _, spec := range entry.Formats {
			if err := spec.Validate(); err != nil {
				return errors.FromError(err).WithDetail("output_entry", i)
			}
		}
	}
	return nil
}
