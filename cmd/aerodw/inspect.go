//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 Aaron Mathis aaron.mathis@gmail.com
//
// This file is part of AeroDW.
//
// AeroDW is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// AeroDW is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with AeroDW. If not, see https://www.gnu.org/licenses/.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aaronlmathis/aerodw/writers"
)

func newInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file.parquet>",
		Short: "Print the schema and row count of an exported Parquet table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			summary, err := writers.InspectParquet(f)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if summary.Table != "" {
				fmt.Fprintf(out, "table:      %s\n", summary.Table)
			}
			fmt.Fprintf(out, "rows:       %d\n", summary.Rows)
			fmt.Fprintf(out, "row groups: %d\n", summary.RowGroups)
			fmt.Fprintf(out, "fields:\n")
			for i, field := range summary.Fields {
				fmt.Fprintf(out, "  %d: %s (%s)\n", i, field.Name, field.Type)
			}
			return nil
		},
	}
}
