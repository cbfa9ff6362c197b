package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/metastore/internal/cli/ui"
	"github.com/conduit-lang/metastore/internal/orm/entity"
	"github.com/conduit-lang/metastore/internal/orm/metadata"
)

// writeFlags are shared by set and update
type writeFlags struct {
	valueType string
	owner     int64
	access    string
}

func (f *writeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.valueType, "type", "t", "", "force the value type (text or integer)")
	cmd.Flags().Int64Var(&f.owner, "owner", 0, "owner guid (defaults to --as)")
	cmd.Flags().StringVarP(&f.access, "access", "a", "private", "access: private, logged_in, public, friends or an id")
}

func (f *writeFlags) parse() (metadata.ValueType, int64, error) {
	vt, err := metadata.ParseValueType(f.valueType)
	if err != nil {
		return "", 0, err
	}
	access, err := parseAccess(f.access)
	if err != nil {
		return "", 0, err
	}
	return vt, access, nil
}

// parseAccess accepts an access name or a numeric access id
func parseAccess(s string) (int64, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "private", "":
		return entity.AccessPrivate, nil
	case "logged_in", "loggedin":
		return entity.AccessLoggedIn, nil
	case "public":
		return entity.AccessPublic, nil
	case "friends":
		return entity.AccessFriends, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid access %q", s)
	}
	return id, nil
}

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", what, s)
	}
	return id, nil
}

// storeError formats a store failure for the terminal
func storeError(operation string, err error, flags *globalFlags) error {
	return fmt.Errorf("%s", ui.StoreError(operation, err, flags.noColor))
}

func newGetCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one metadata record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "metadata id")
			if err != nil {
				return err
			}
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				r, err := a.store.Get(ctx, id)
				if err != nil {
					return storeError("GET", err, flags)
				}
				url, _ := a.store.GetURL(ctx, id)
				ui.RenderRecord(cmd.OutOrStdout(), r, url, flags.noColor)
				return nil
			})
		},
	}
}

func newURLCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "url <id>",
		Short: "Print the export URL of a metadata record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "metadata id")
			if err != nil {
				return err
			}
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				url, err := a.store.GetURL(ctx, id)
				if err != nil {
					return storeError("URL", err, flags)
				}
				fmt.Fprintln(cmd.OutOrStdout(), url)
				return nil
			})
		},
	}
}

func newSetCommand(flags *globalFlags) *cobra.Command {
	var (
		wf       writeFlags
		multiple bool
		fromJSON string
	)

	cmd := &cobra.Command{
		Use:   "set <entity> [<name> <value>]",
		Short: "Attach metadata to an entity",
		Long: `Attach a named value to an entity.

An existing value with the same name is updated in place unless
--multiple is given. --json sets several names at once, in name order,
stopping at the first failure:

  metastore set 42 color red --access public
  metastore set 42 --json '{"rating": 4, "color": "red"}'`,
		Args: func(cmd *cobra.Command, args []string) error {
			if fromJSON != "" {
				return cobra.ExactArgs(1)(cmd, args)
			}
			return cobra.ExactArgs(3)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			guid, err := parseID(args[0], "entity guid")
			if err != nil {
				return err
			}
			vt, access, err := wf.parse()
			if err != nil {
				return err
			}
			params := metadata.CreateParams{
				EntityGUID:    guid,
				ValueType:     vt,
				OwnerGUID:     wf.owner,
				AccessID:      access,
				AllowMultiple: multiple,
			}

			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				out := cmd.OutOrStdout()
				if fromJSON != "" {
					values, err := decodeValues(fromJSON)
					if err != nil {
						return err
					}
					if err := a.store.CreateFromMap(ctx, guid, values, params); err != nil {
						return storeError("SET", err, flags)
					}
					ui.WriteSuccess(out, fmt.Sprintf("Set %s on entity %d", strings.Join(sortedKeys(values), ", "), guid), flags.noColor)
					return nil
				}

				params.Name = args[1]
				params.Value = args[2]
				id, err := a.store.Create(ctx, params)
				if err != nil {
					return storeError("SET", err, flags)
				}
				ui.WriteSuccess(out, fmt.Sprintf("Set %s on entity %d (metadata %d)", params.Name, guid, id), flags.noColor)
				return nil
			})
		},
	}

	wf.register(cmd)
	cmd.Flags().BoolVarP(&multiple, "multiple", "m", false, "add another value even if the name is already set")
	cmd.Flags().StringVar(&fromJSON, "json", "", "JSON object of name/value pairs")
	return cmd
}

// decodeValues parses a JSON object keeping integers as int64
func decodeValues(s string) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewBufferString(s))
	dec.UseNumber()
	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid --json: %w", err)
	}
	for k, v := range raw {
		switch val := v.(type) {
		case json.Number:
			if n, err := val.Int64(); err == nil {
				raw[k] = n
			} else {
				raw[k] = val.String()
			}
		case string, bool:
		default:
			return nil, fmt.Errorf("invalid --json: %q must be a string, number or bool", k)
		}
	}
	return raw, nil
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func newUpdateCommand(flags *globalFlags) *cobra.Command {
	var wf writeFlags

	cmd := &cobra.Command{
		Use:   "update <id> <name> <value>",
		Short: "Replace the name and value of a metadata record",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "metadata id")
			if err != nil {
				return err
			}
			vt, access, err := wf.parse()
			if err != nil {
				return err
			}
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				err := a.store.Update(ctx, metadata.UpdateParams{
					ID:        id,
					Name:      args[1],
					Value:     args[2],
					ValueType: vt,
					OwnerGUID: wf.owner,
					AccessID:  access,
				})
				if err != nil {
					return storeError("UPDATE", err, flags)
				}
				ui.WriteSuccess(cmd.OutOrStdout(), fmt.Sprintf("Updated metadata %d", id), flags.noColor)
				return nil
			})
		},
	}

	wf.register(cmd)
	return cmd
}

func newDeleteCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one metadata record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "metadata id")
			if err != nil {
				return err
			}
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				if err := a.store.Delete(ctx, id); err != nil {
					return storeError("DELETE", err, flags)
				}
				ui.WriteSuccess(cmd.OutOrStdout(), fmt.Sprintf("Deleted metadata %d", id), flags.noColor)
				return nil
			})
		},
	}
}
