package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/deppfellow/platform-user/internal/database"
	"github.com/deppfellow/platform-user/internal/script"
)

// NewAPICommand groups the commands that inspect and invoke scripts locally.
func NewAPICommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "api",
		Short: "Inspect and invoke handler scripts",
	}

	cmd.AddCommand(newAPIListCommand(), newAPIRunCommand())

	return cmd
}

func newAPIListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered scripts and their parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := NewRegistry()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tMETHOD\tPATH\tPARAMS\tDESCRIPTION")
			for _, def := range registry.All() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", def.Name, def.Method, def.Path, describeParams(def.Params), def.Description)
			}
			return w.Flush()
		},
	}
}

// describeParams renders params as "id:Integer, name:String*" where * marks required ones.
func describeParams(params []script.ParamSpec) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		part := p.Name + ":" + p.Type
		if p.Required {
			part += "*"
		}
		parts = append(parts, part)
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

type runOptions struct {
	params  []string
	migrate bool
}

func newAPIRunCommand() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <name> [--param key=value ...]",
		Short: "Invoke a script against the configured store and print its envelope",
		Long: `Invoke a script against the configured store and print its envelope.

Examples:
  platform-user api run saveUser --param name=Alice --param loginName=alice
  platform-user api run getDetail --param id=1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAPI(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.params, "param", "P", nil, "Script parameter as key=value (repeatable)")
	cmd.Flags().BoolVar(&opts.migrate, "migrate", false, "Apply migrations before invoking the script")

	return cmd
}

// parseParams turns key=value pairs into a parameter bag. Later pairs win.
func parseParams(pairs []string) (script.Values, error) {
	values := script.Values{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected key=value", pair)
		}
		values[key] = value
	}
	return values, nil
}

func runAPI(cmd *cobra.Command, name string, opts *runOptions) error {
	registry, err := NewRegistry()
	if err != nil {
		return err
	}

	def, ok := registry.Lookup(name)
	if !ok {
		return fmt.Errorf("unknown script %q, see 'platform-user api list'", name)
	}

	params, err := parseParams(opts.params)
	if err != nil {
		return err
	}

	cfg, log, err := loadCLIConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = log.WithContext(ctx)

	db, err := database.New(cfg, &log, nil)
	if err != nil {
		return err
	}
	defer db.Close()

	if opts.migrate {
		if err := db.Migrate(ctx); err != nil {
			return err
		}
	}

	env, err := def.Func(ctx, params, db.Accessor())
	if err != nil {
		return fmt.Errorf("script %s failed: %w", def.Name, err)
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(env)
}
