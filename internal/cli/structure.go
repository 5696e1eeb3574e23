package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/raphaelgruber/chatdb-go/internal/stream"
	"github.com/raphaelgruber/chatdb-go/internal/structure"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var structureFormat string

var structureCmd = &cobra.Command{
	Use:   "structure [file]",
	Short: "Describe the shape of the first record in an export",
	Long: `Describe the structure of the first chat record in an export.

Every field is reduced to its JSON type. Nested objects are described
recursively; arrays are described by their first element, and empty arrays
are shown as "array". Only the first record is read.

Examples:
  chatdb structure
  chatdb structure export.json --format yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStructure,
}

func init() {
	structureCmd.Flags().StringVarP(&structureFormat, "format", "f", "json", "output format (json|yaml)")
}

func runStructure(cmd *cobra.Command, args []string) error {
	if structureFormat != "json" && structureFormat != "yaml" {
		return fmt.Errorf("invalid format %q (want json or yaml)", structureFormat)
	}

	path, err := resolveInput(args, ".", cfg.InputPattern)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	node, err := structure.First(f)
	if errors.Is(err, stream.ErrEmpty) {
		return fmt.Errorf("%s: export contains no records", path)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	logger.Debug("inferred structure", "input", path, "fields", len(node.Fields))
	return writeStructure(cmd.OutOrStdout(), node, structureFormat)
}

func writeStructure(w io.Writer, node *structure.Node, format string) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(node); err != nil {
			return err
		}
		return enc.Close()
	}

	out, err := json.MarshalIndent(node, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
