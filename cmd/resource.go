package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bnema/stock-admin-cli/internal/adapters/store"
	"github.com/bnema/stock-admin-cli/internal/application"
	"github.com/bnema/stock-admin-cli/internal/domain"
	"github.com/spf13/cobra"
)

func newListCmd(app *app) *cobra.Command {
	var (
		page       int
		perPage    int
		sortField  string
		descending bool
		filters    []string
	)

	cmd := &cobra.Command{
		Use:   "list <resource>",
		Short: "List records with pagination, sorting, and filtering",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := restoreSession(cmd, app); err != nil {
				return err
			}

			filter, err := parseFilterFlags(filters)
			if err != nil {
				return err
			}

			result, err := app.data.List(cmd.Context(), args[0],
				application.Pagination{Page: page, PerPage: perPage},
				application.Sort{Field: sortField, Descending: descending},
				filter,
			)
			if err != nil {
				return remoteErr(cmd, app, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "total: %d\n", result.Total)
			return printJSON(cmd, result.Items)
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number (1-based)")
	cmd.Flags().IntVar(&perPage, "per-page", 10, "Records per page")
	cmd.Flags().StringVar(&sortField, "sort", "id", "Sort field")
	cmd.Flags().BoolVar(&descending, "desc", false, "Sort descending")
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "Filter entry as field=value (repeatable)")

	return cmd
}

func newGetCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <resource> <id>",
		Short: "Fetch one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := restoreSession(cmd, app); err != nil {
				return err
			}

			record, err := app.data.GetOne(cmd.Context(), args[0], args[1])
			if err != nil {
				return remoteErr(cmd, app, err)
			}
			return printJSON(cmd, record)
		},
	}
}

func newCreateCmd(app *app) *cobra.Command {
	var data string

	cmd := &cobra.Command{
		Use:   "create <resource>",
		Short: "Create a record from a JSON payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := restoreSession(cmd, app); err != nil {
				return err
			}

			payload, err := parseRecordFlag(data)
			if err != nil {
				return err
			}

			record, err := app.data.Create(cmd.Context(), args[0], payload)
			if err != nil {
				return remoteErr(cmd, app, err)
			}

			syncProductAggregates(cmd, app, args[0], record, nil)
			return printJSON(cmd, record)
		},
	}

	cmd.Flags().StringVar(&data, "data", "", "Record payload as JSON")
	_ = cmd.MarkFlagRequired("data")

	return cmd
}

func newUpdateCmd(app *app) *cobra.Command {
	var data string

	cmd := &cobra.Command{
		Use:   "update <resource> <id> [id...]",
		Short: "Update one or more records with the same JSON payload",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := restoreSession(cmd, app); err != nil {
				return err
			}

			resource, ids := args[0], args[1:]
			payload, err := parseRecordFlag(data)
			if err != nil {
				return err
			}

			previous := lookupWarehouseRefs(cmd, app, resource, ids)

			if len(ids) == 1 {
				record, err := app.data.Update(cmd.Context(), resource, ids[0], payload)
				if err != nil {
					return remoteErr(cmd, app, err)
				}
				syncProductAggregates(cmd, app, resource, record, previous)
				return printJSON(cmd, record)
			}

			result, err := app.data.UpdateMany(cmd.Context(), resource, ids, payload)
			if err != nil {
				return remoteErr(cmd, app, err)
			}
			syncProductAggregates(cmd, app, resource, payload, previous)
			return printBatchResult(cmd, result)
		},
	}

	cmd.Flags().StringVar(&data, "data", "", "Record payload as JSON")
	_ = cmd.MarkFlagRequired("data")

	return cmd
}

func newDeleteCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <resource> <id> [id...]",
		Short: "Delete one or more records",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := restoreSession(cmd, app); err != nil {
				return err
			}

			resource, ids := args[0], args[1:]
			previous := lookupWarehouseRefs(cmd, app, resource, ids)

			if len(ids) == 1 {
				if _, err := app.data.Delete(cmd.Context(), resource, ids[0], nil); err != nil {
					return remoteErr(cmd, app, err)
				}
				syncProductAggregates(cmd, app, resource, nil, previous)
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s/%s\n", resource, ids[0])
				return nil
			}

			result, err := app.data.DeleteMany(cmd.Context(), resource, ids)
			if err != nil {
				return remoteErr(cmd, app, err)
			}
			syncProductAggregates(cmd, app, resource, nil, previous)
			return printBatchResult(cmd, result)
		},
	}
}

// lookupWarehouseRefs snapshots the warehouse references of products about to
// be mutated, so their old warehouses can be recomputed afterwards. Best
// effort: an unreadable record just misses its recompute.
func lookupWarehouseRefs(cmd *cobra.Command, app *app, resource string, ids []string) []string {
	if resource != domain.ResourceProducts {
		return nil
	}

	refs := make([]string, 0, len(ids))
	for _, id := range ids {
		record, err := app.client.Get(cmd.Context(), resource, id, store.ListOptions{Fields: "id,warehouse"})
		if err != nil {
			continue
		}
		if ref := record.String("warehouse"); ref != "" {
			refs = append(refs, ref)
		}
	}
	return refs
}

// syncProductAggregates recomputes every warehouse a product mutation may
// have touched: the previous references plus the one in the written payload.
func syncProductAggregates(cmd *cobra.Command, app *app, resource string, written domain.Record, previousRefs []string) {
	if resource != domain.ResourceProducts {
		return
	}

	refs := append([]string(nil), previousRefs...)
	if written != nil {
		if ref := written.String("warehouse"); ref != "" {
			refs = append(refs, ref)
		}
	}
	app.aggregates.RecomputeMany(cmd.Context(), refs)
}

func parseFilterFlags(entries []string) (application.Filter, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	filter := application.Filter{}
	for _, entry := range entries {
		field, value, ok := strings.Cut(entry, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid filter %q: expected field=value", entry)
		}
		filter[field] = value
	}
	return filter, nil
}

func parseRecordFlag(data string) (domain.Record, error) {
	var record domain.Record
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("parse --data payload: %w", err)
	}
	return record, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func printBatchResult(cmd *cobra.Command, result application.BatchResult) error {
	fmt.Fprintf(cmd.OutOrStdout(), "succeeded: %d, failed: %d\n",
		len(result.Succeeded), len(result.Failures))
	for _, failure := range result.Failures {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s: %s\n", failure.ID, failure.Message)
	}
	return result.Err()
}
