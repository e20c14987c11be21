package cli

import (
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/roach88/spider/connection"
	"github.com/roach88/spider/dialect"
)

// DialectInfo describes one registered dialect.
type DialectInfo struct {
	Name     string   `json:"name"`
	Language string   `json:"language"`
	Drivers  []string `json:"drivers,omitempty"`
}

// NewDialectsCommand creates the dialects command.
func NewDialectsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "dialects",
		Short:         "List dialects, their script languages and drivers",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{
				Format:    rootOpts.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   rootOpts.Verbose,
			}

			infos, err := listDialects()
			if err != nil {
				return formatter.Fail(err)
			}
			if formatter.Format == "json" {
				return formatter.Success(infos)
			}

			table := tablewriter.NewWriter(formatter.Writer)
			table.SetHeader([]string{"Dialect", "Language", "Drivers"})
			for _, info := range infos {
				table.Append([]string{info.Name, info.Language, strings.Join(info.Drivers, ", ")})
			}
			table.Render()
			return nil
		},
	}
}

func listDialects() ([]DialectInfo, error) {
	byDialect := map[string][]string{}
	for _, alias := range connection.Drivers() {
		d, _ := connection.DefaultDialect(alias)
		byDialect[d] = append(byDialect[d], alias)
	}

	names := dialect.Names()
	infos := make([]DialectInfo, 0, len(names))
	for _, name := range names {
		proc, err := dialect.Lookup(name)
		if err != nil {
			return nil, err
		}
		infos = append(infos, DialectInfo{Name: name, Language: proc.Language(), Drivers: byDialect[name]})
	}
	return infos, nil
}
