package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"

	"datacleaner/internal/exporter"
)

// Step types understood by the default registry.
const (
	StepDropColumns = "drop_columns"
	StepMissing     = "missing"
	StepDedupe      = "dedupe"
	StepConvert     = "convert"
)

// ErrInvalidDefinition wraps every problem found in a pipeline file.
var ErrInvalidDefinition = errors.New("invalid pipeline definition")

// Definition is a pipeline file.
type Definition struct {
	Input     string     `yaml:"input" validate:"required"`
	Sheet     string     `yaml:"sheet"`
	Delimiter string     `yaml:"delimiter" validate:"omitempty,len=1"`
	Output    string     `yaml:"output"`
	BOM       bool       `yaml:"bom"`
	Steps     []StepSpec `yaml:"steps" validate:"required,min=1,dive"`
}

// StepSpec configures one step. Which fields apply depends on Type.
type StepSpec struct {
	Type            string   `yaml:"type" validate:"required"`
	Columns         []string `yaml:"columns"`
	Strategy        string   `yaml:"strategy"`
	Column          string   `yaml:"column"`
	To              string   `yaml:"to"`
	ContinueOnError bool     `yaml:"continue_on_error"`
}

var definitionValidator = validator.New()

// ParseDefinition decodes and validates a pipeline document. Unknown keys
// are rejected.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.UnmarshalStrict(data, &def); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}
	if err := definitionValidator.Struct(&def); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return nil, fmt.Errorf("%w: %s", ErrInvalidDefinition, strings.Join(msgs, "; "))
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}
	if def.Output == "" {
		def.Output = exporter.ExportFileName
	}
	return &def, nil
}

// LoadDefinition reads a pipeline file. Relative input and output paths are
// resolved against the file's directory.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline: %w", err)
	}
	def, err := ParseDefinition(data)
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	if !filepath.IsAbs(def.Input) {
		def.Input = filepath.Join(base, def.Input)
	}
	if !filepath.IsAbs(def.Output) {
		def.Output = filepath.Join(base, def.Output)
	}
	return def, nil
}
