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

func newVersionCmd(a *app) *cobra.Command {
	var (
		queryEditor bool
		minVersion  string
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the nvimrpc version and optionally the editor's",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "nvimrpc %s\n", version)
			if !queryEditor && minVersion == "" {
				return nil
			}

			e, err := startEditor(cmd.Context(), a.cfg, a.logger, nil)
			if err != nil {
				return err
			}
			return e.run(cmd.Context(), editorVersionFunc(cmd.OutOrStdout(), minVersion))
		},
	}

	cmd.Flags().BoolVar(&queryEditor, "editor", false, "Also print the editor's version and API level")
	cmd.Flags().StringVar(&minVersion, "min", "", "Fail unless the editor is at least this version (e.g. 0.9.0)")
	return cmd
}

// editorVersionFunc prints the editor's version and checks it against min.
func editorVersionFunc(out io.Writer, min string) func(context.Context, *api.Nvim) error {
	return func(ctx context.Context, nv *api.Nvim) error {
		info, err := nv.GetAPIInfo(ctx)
		if err != nil {
			return fmt.Errorf("get api info: %w", err)
		}
		fmt.Fprintf(out, "nvim %s (api level %d, channel %d)\n", info.Version, info.Version.APILevel, info.ChannelID)
		if min == "" {
			return nil
		}
		return api.CheckMinVersion(info, min)
	}
}

// clientInfo identifies this program to the editor.
func clientInfo() api.ClientInfo {
	return api.ClientInfo{
		Name:       "nvimrpc",
		Type:       "ui",
		Attributes: map[string]string{"version": version},
	}
}
