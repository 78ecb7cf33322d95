package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"filmgen/internal/domain"
	"filmgen/internal/recovery"
)

func newRecoverCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "recover [file|-]",
		Short: "Recover a shot list from raw model output",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			shots, strategy, err := recovery.ParseShots(raw)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{"strategy": strategy, "shots": shots})
			}
			fmt.Fprintln(out, renderShots(shots))
			fmt.Fprintf(out, "%d shots recovered (%s)\n", len(shots), strategy)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print normalized shots as JSON")
	return cmd
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read %s: %w", args[0], err)
	}
	return string(data), nil
}

func renderShots(shots []domain.ShotRecord) string {
	rows := make([][]string, 0, len(shots))
	for _, s := range shots {
		duration := "-"
		if s.DurationSeconds != nil {
			duration = strconv.Itoa(*s.DurationSeconds) + "s"
		}
		rows = append(rows, []string{
			strconv.Itoa(s.ShotNumber),
			string(s.ShotType),
			string(s.CameraAngle),
			string(s.Movement),
			duration,
			strings.Join(s.Characters, ", "),
			s.Description,
		})
	}
	return renderTable(
		[]string{"#", "Type", "Angle", "Movement", "Duration", "Characters", "Description"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight},
	)
}
