package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dukex/chatflow/pkg/models"
	"github.com/dukex/chatflow/pkg/workflow"
)

var ErrInvalidWorkflow = errors.New("workflow is invalid")

// validateFile prints every finding of the workflow in path and fails when any of them
// is an error.
func validateFile(w io.Writer, path string) error {
	definition, err := workflow.LoadDefinition(path)
	if err != nil {
		return err
	}

	report := workflow.Validate(definition)

	for _, finding := range report.Findings {
		location := ""
		if finding.NodeID != "" {
			location = " [" + finding.NodeID + "]"
		}

		fmt.Fprintf(w, "%-7s%s %s\n", finding.Severity, location, finding.Message)
	}

	if !report.Valid {
		return fmt.Errorf("%s: %w (%d errors)", path, ErrInvalidWorkflow, len(report.Errors()))
	}

	fmt.Fprintf(w, "%s is valid (%d nodes, %d warnings)\n", path, len(definition.Nodes), len(report.Warnings()))

	return nil
}

// initFile writes the default workflow template, in YAML for .yaml/.yml paths.
func initFile(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		}
	}

	encoded, err := workflow.EncodeDefinition(models.NewDefaultWorkflow(), workflow.FormatFromPath(path))
	if err != nil {
		return err
	}

	return os.WriteFile(path, encoded, 0o600)
}
