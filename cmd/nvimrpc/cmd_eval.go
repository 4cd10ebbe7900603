// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/nvimrpc/services/nvim/api"
)

func newEvalCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "eval <expr>",
		Short: "Evaluate a Vimscript expression in a fresh editor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := startEditor(cmd.Context(), a.cfg, a.logger, nil)
			if err != nil {
				return err
			}
			return e.run(cmd.Context(), evalFunc(args[0], cmd.OutOrStdout()))
		},
	}
}

// evalFunc evaluates expr and prints the result.
func evalFunc(expr string, out io.Writer) func(context.Context, *api.Nvim) error {
	return func(ctx context.Context, nv *api.Nvim) error {
		v, err := nv.Eval(ctx, expr)
		if err != nil {
			return fmt.Errorf("eval: %w", err)
		}
		if s, ok := v.AsString(); ok {
			_, err = fmt.Fprintln(out, s)
		} else {
			_, err = fmt.Fprintln(out, v)
		}
		return err
	}
}
