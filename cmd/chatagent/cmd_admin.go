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
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func runModelsCommand(cmd *cobra.Command, args []string) error {
	client := newAPIClient(serverURL)
	resp, err := client.Models(cmd.Context())
	if err != nil {
		return err
	}
	if len(resp.Providers) == 0 {
		fmt.Println("No providers configured on the server.")
		return nil
	}

	names := make([]string, 0, len(resp.Providers))
	for name := range resp.Providers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		models := resp.Providers[name]
		if len(models) == 0 {
			fmt.Printf("%s: (any model)\n", name)
			continue
		}
		fmt.Printf("%s: %s\n", name, strings.Join(models, ", "))
	}
	return nil
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	client := newAPIClient(serverURL)
	list, err := client.ListSessions(cmd.Context())
	if err != nil {
		return err
	}
	if list.Count == 0 {
		fmt.Println("No live sessions.")
		return nil
	}

	for _, s := range list.Sessions {
		line := fmt.Sprintf("%s  %-18s turns=%d", s.SessionID, s.Status, s.Turns)
		if len(s.PendingTools) > 0 {
			line += "  pending=" + strings.Join(s.PendingTools, ",")
		}
		if s.LastActiveAt > 0 {
			line += "  last_active=" + time.UnixMilli(s.LastActiveAt).Format(time.RFC3339)
		}
		fmt.Println(line)
	}
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	client := newAPIClient(serverURL)
	if err := client.DeleteSession(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted session %s\n", args[0])
	return nil
}
