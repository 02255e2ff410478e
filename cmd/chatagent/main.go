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
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/chatagent/cmd/chatagent/config"
	"github.com/AleutianAI/chatagent/pkg/logging"
)

// --- Global Command Variables ---
var (
	serverURL    string
	providerName string
	modelName    string
	sessionID    string
	showThoughts bool
	logLevel     string

	rootCmd = &cobra.Command{
		Use:   "chatagent",
		Short: "A cli for the Aleutian chat agent orchestrator",
		Long: `Chatagent talks to the Aleutian chat orchestrator: it streams
conversations, lets you approve or reject tool calls the model wants
to make, and manages live sessions.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Load(); err != nil {
				return fmt.Errorf("config: %w", err)
			}
			applyConfigDefaults()

			logger := logging.New(logging.Config{
				Level:   logging.ParseLevel(logLevel),
				LogDir:  config.Global.Logging.Dir,
				Service: "chatagent-cli",
			})
			slog.SetDefault(logger.Slog())
			return nil
		},
	}

	chatCmd = &cobra.Command{
		Use:   "chat [message]",
		Short: "Start an interactive chat, or send a single message",
		Long: `With no arguments, opens an interactive chat loop. With a message
argument, sends it and exits after the reply.

When the model wants to call tools the stream pauses and you are asked
to approve or reject the calls before the turn continues.`,
		RunE: runChatCommand,
	}

	modelsCmd = &cobra.Command{
		Use:   "models",
		Short: "List the providers and models the server offers",
		RunE:  runModelsCommand,
	}

	sessionsCmd = &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and manage live chat sessions",
	}

	sessionsListCmd = &cobra.Command{
		Use:   "list",
		Short: "List live sessions on the server",
		RunE:  runSessionsList,
	}

	sessionsDeleteCmd = &cobra.Command{
		Use:   "delete [session_id]",
		Short: "Delete an idle session",
		Args:  cobra.ExactArgs(1),
		RunE:  runSessionsDelete,
	}
)

// applyConfigDefaults fills flag values the user did not set from the
// loaded config file.
func applyConfigDefaults() {
	if serverURL == "" {
		serverURL = config.Global.Server.URL
	}
	if providerName == "" {
		providerName = config.Global.Chat.Provider
	}
	if modelName == "" {
		modelName = config.Global.Chat.Model
	}
	if !showThoughts {
		showThoughts = config.Global.Chat.ShowThoughts
	}
	if logLevel == "" {
		logLevel = config.Global.Logging.Level
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Orchestrator base URL (default from config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")

	chatCmd.Flags().StringVar(&providerName, "provider", "", "Model provider to use")
	chatCmd.Flags().StringVar(&modelName, "model", "", "Model to use")
	chatCmd.Flags().StringVar(&sessionID, "session", "", "Resume an existing session")
	chatCmd.Flags().BoolVar(&showThoughts, "thoughts", false, "Show model reasoning notes")

	sessionsCmd.AddCommand(sessionsListCmd, sessionsDeleteCmd)
	rootCmd.AddCommand(chatCmd, modelsCmd, sessionsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
