package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/koscakluka/relay-core/core/events"
)

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema [kind]",
		Short: "Print the JSON schema of wire payloads",
		Long:  "schema prints the JSON schema of the payload carried by each event kind, for validating producers on the other side of the bus. With no argument it prints the schema of every kind.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := events.Kinds()
			if len(args) == 1 {
				kind := events.Kind(args[0])
				if !events.KnownKind(kind) {
					return fmt.Errorf("unknown event kind %q (known: %v)", args[0], kinds)
				}
				kinds = []events.Kind{kind}
			}

			schemas := map[events.Kind]any{}
			for _, kind := range kinds {
				schema, err := events.SchemaFor(kind)
				if err != nil {
					return fmt.Errorf("failed to build schema for %s: %w", kind, err)
				}
				schemas[kind] = schema
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			if len(kinds) == 1 {
				return encoder.Encode(schemas[kinds[0]])
			}
			return encoder.Encode(schemas)
		},
	}
}
