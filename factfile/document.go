package factfile

import (
	"bytes"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Document is the on-disk form of a fact set. JSON documents are accepted
// too, JSON being a subset of YAML.
type Document struct {
	// Package is the Go package name used by generated registration code.
	Package string `yaml:"package" validate:"omitempty,alphanum"`

	Types     []TypeSpec     `yaml:"types" validate:"dive"`
	Providers []ProviderSpec `yaml:"providers" validate:"dive"`
	Events    []EventSpec    `yaml:"events" validate:"dive"`
}

// TypeSpec declares one type.
type TypeSpec struct {
	Name       string   `yaml:"name" validate:"required"`
	Params     []string `yaml:"params" validate:"dive,required"`
	Super      string   `yaml:"super"`
	Interfaces []string `yaml:"interfaces" validate:"dive,required"`
	Opaque     bool     `yaml:"opaque"`
}

// ProviderSpec declares either a component (Component set, constructed
// through Constructors) or a factory (Factory set, invoked through Call).
type ProviderSpec struct {
	Component string `yaml:"component" validate:"required_without=Factory,excluded_with=Factory"`
	Factory   string `yaml:"factory" validate:"required_without=Component"`

	Constructors []ConstructorSpec `yaml:"constructors" validate:"excluded_with=Factory,dive"`

	Owner    string   `yaml:"owner" validate:"excluded_with=Component"`
	Produces string   `yaml:"produces" validate:"excluded_with=Component"`
	Params   []string `yaml:"params" validate:"excluded_with=Component,dive,required"`
	Call     string   `yaml:"call" validate:"required_with=Factory,excluded_with=Component"`

	Policy          string            `yaml:"policy" validate:"omitempty,oneof=once per-instance"`
	Order           int               `yaml:"order"`
	DefaultFallback bool              `yaml:"defaultFallback"`
	Fields          []FieldSpec       `yaml:"fields" validate:"dive"`
	Initializers    []InitializerSpec `yaml:"initializers" validate:"dive"`
}

// Name is the component type or the factory name.
func (p ProviderSpec) Name() string {
	if p.Component != "" {
		return p.Component
	}
	return p.Factory
}

// ConstructorSpec declares one constructor of a component.
type ConstructorSpec struct {
	Params   []string `yaml:"params" validate:"dive,required"`
	Selected bool     `yaml:"selected"`
	Call     string   `yaml:"call" validate:"required"`
}

// FieldSpec declares a field injection. Set names the setter symbol.
type FieldSpec struct {
	Name  string `yaml:"name" validate:"required"`
	Type  string `yaml:"type" validate:"required"`
	Final bool   `yaml:"final"`
	Set   string `yaml:"set"`
}

// InitializerSpec declares a post-construction initializer.
type InitializerSpec struct {
	Name     string   `yaml:"name" validate:"required"`
	Priority int      `yaml:"priority"`
	Params   []string `yaml:"params" validate:"dive,required"`
	Call     string   `yaml:"call" validate:"required"`
}

// EventSpec declares an event handler. Params is checked by di.Plan, which
// reports a parameter count other than one as di.ErrEventParameterCount.
type EventSpec struct {
	Name   string   `yaml:"name" validate:"required"`
	Owner  string   `yaml:"owner"`
	Params []string `yaml:"params" validate:"dive,required"`
	Call   string   `yaml:"call" validate:"required"`
}

var validate = validator.New()

// Load reads and parses the document at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "factfile: read %s", path)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "factfile: %s", path)
	}
	return doc, nil
}

// Parse decodes and validates a document. Unknown keys are rejected.
func Parse(data []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "decode")
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks the structural rules of the document.
func (d *Document) Validate() error {
	if err := validate.Struct(d); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ValidationError lists every rule a document breaks.
type ValidationError struct {
	Problems []string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return "factfile: invalid document: " + strings.Join(e.Problems, "; ")
}

func formatValidationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.Wrap(err, "factfile: validate")
	}
	out := ValidationError{Problems: make([]string, 0, len(verrs))}
	for _, fe := range verrs {
		out.Problems = append(out.Problems, formatFieldError(fe))
	}
	return out
}

func formatFieldError(fe validator.FieldError) string {
	// Document.Providers[0].Call -> providers[0].call
	field := strings.ToLower(strings.TrimPrefix(fe.Namespace(), "Document."))

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "required_without":
		return field + " is required when " + strings.ToLower(fe.Param()) + " is empty"
	case "required_with":
		return field + " is required with " + strings.ToLower(fe.Param())
	case "excluded_with":
		return field + " cannot be combined with " + strings.ToLower(fe.Param())
	case "oneof":
		return field + " must be one of: " + fe.Param()
	default:
		return field + " is invalid"
	}
}
