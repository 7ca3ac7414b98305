package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/tomyedwab/opsql/bridge"
)

var (
	execLocation string
	execJSON     bool
)

var execCmd = &cobra.Command{
	Use:   "exec <name> <sql> [params...]",
	Short: "Execute one SQL statement against a database",
	Long: `Opens the named database under the base path (or --location), runs one
statement and prints its rows. Parameters are bound positionally: integers and
floats are bound as numbers, NULL as null and everything else as text.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadSettings(cmd)
		if err != nil {
			return err
		}

		b := bridge.New(bridge.Config{BusyTimeout: cfg.BusyTimeout, Logger: logger})
		defer b.CloseAll()

		name := args[0]
		dir := bridge.ResolveLocation(cfg.BasePath, execLocation)
		if err := b.Open(cmd.Context(), name, dir, bridge.OpenOptions{CRSQLitePath: cfg.CRSQLitePath}); err != nil {
			return err
		}

		params := make([]any, 0, len(args)-2)
		for _, arg := range args[2:] {
			params = append(params, parseParam(arg))
		}

		res, err := b.Execute(cmd.Context(), name, args[1], params)
		if err != nil {
			return err
		}

		if execJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		return renderResult(res)
	},
}

func init() {
	execCmd.Flags().StringVar(&execLocation, "location", "", "Location override for the database, see getDbPath")
	execCmd.Flags().BoolVar(&execJSON, "json", false, "Print the result as JSON")
}

func parseParam(arg string) any {
	if strings.EqualFold(arg, "null") {
		return nil
	}
	if i, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(arg, 64); err == nil {
		return f
	}
	return arg
}

func renderResult(res *bridge.QueryResult) error {
	if len(res.Columns) > 0 {
		data := pterm.TableData{res.Columns}
		for _, row := range res.Rows {
			cells := make([]string, len(row))
			for i, v := range row {
				cells[i] = formatValue(v)
			}
			data = append(data, cells)
		}
		if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
			return err
		}
	}
	pterm.Printfln("rowsAffected: %d", res.RowsAffected)
	if res.RowsAffected > 0 {
		pterm.Printfln("insertId: %d", res.InsertID)
	}
	return nil
}

func formatValue(v any) string {
	switch e := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return fmt.Sprintf("x'%X'", e)
	default:
		return fmt.Sprint(e)
	}
}
