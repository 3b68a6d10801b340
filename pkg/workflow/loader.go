package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dukex/chatflow/pkg/models"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var ErrInvalidDocument = errors.New("invalid workflow document")

// FormatFromPath picks the document format from the file extension, JSON by default.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// LoadDefinition reads a workflow definition file in JSON or YAML.
func LoadDefinition(path string) (*models.WorkflowDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file %s: %w", path, err)
	}

	return DecodeDefinition(data, FormatFromPath(path))
}

// DecodeDefinition checks the document against the workflow document schema and
// decodes it. Graph level rules are left to Validate.
func DecodeDefinition(data []byte, format Format) (*models.WorkflowDefinition, error) {
	document := data

	if format == FormatYAML {
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}

		converted, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}

		document = converted
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(models.WorkflowDocumentSchema()),
		gojsonschema.NewBytesLoader(document),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}

		return nil, fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(problems, "; "))
	}

	var def models.WorkflowDefinition
	if err := json.Unmarshal(document, &def); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	return &def, nil
}

// EncodeDefinition renders a definition in the requested format.
func EncodeDefinition(def *models.WorkflowDefinition, format Format) ([]byte, error) {
	encoded, err := json.MarshalIndent(def, "", "  ")
	if err != nil {
		return nil, err
	}

	if format != FormatYAML {
		return encoded, nil
	}

	var raw any
	if err := json.Unmarshal(encoded, &raw); err != nil {
		return nil, err
	}

	return yaml.Marshal(raw)
}
