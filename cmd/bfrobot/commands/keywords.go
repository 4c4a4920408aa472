package commands

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/boardfarm/bfrobot/pkg/config"
	"github.com/boardfarm/bfrobot/pkg/keywords"
	"github.com/boardfarm/bfrobot/pkg/lifecycle"
	"github.com/boardfarm/bfrobot/pkg/telemetry"
)

func newKeywordsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keywords",
		Short: "List the available keywords",
		Long: `List the keyword catalog: the built-in device accessors plus any
keywords contributed by registered plugins.`,
		Example: `  # Human-readable table
  bfrobot keywords

  # Machine-readable listing
  bfrobot keywords --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := buildCatalog(cmd)
			if err != nil {
				return err
			}

			if jsonOutput {
				type entry struct {
					Name      string   `json:"name"`
					Module    string   `json:"module"`
					Doc       string   `json:"doc,omitempty"`
					Arguments []string `json:"arguments"`
					Tags      []string `json:"tags,omitempty"`
				}
				var out []entry
				for _, kw := range cat.Keywords() {
					out = append(out, entry{
						Name:      kw.Name,
						Module:    kw.Module,
						Doc:       kw.Doc,
						Arguments: kw.Arguments(),
						Tags:      kw.Tags,
					})
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KEYWORD\tMODULE\tARGUMENTS\tDOC")
			for _, kw := range cat.Keywords() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					kw.Name, kw.Module, strings.Join(kw.Arguments(), ", "), kw.Doc)
			}
			return w.Flush()
		},
	}

	return cmd
}

// buildCatalog assembles the keyword catalog without deploying anything.
func buildCatalog(cmd *cobra.Command) (*keywords.Catalog, error) {
	telCfg := telemetry.DefaultConfig()
	telCfg.Logging.Level = "error"
	tel, err := telemetry.New(cmd.Context(), telCfg)
	if err != nil {
		return nil, err
	}

	coord := lifecycle.NewCoordinator(&config.RunOptions{}, nil, tel)
	lib := keywords.NewLibrary(coord, tel)

	cat := keywords.NewCatalog()
	if err := lib.RegisterInto(cat); err != nil {
		return nil, err
	}
	return cat, nil
}
