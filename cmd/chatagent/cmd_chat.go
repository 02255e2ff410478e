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
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/chatagent/cmd/chatagent/config"
	"github.com/AleutianAI/chatagent/pkg/ux"
	"github.com/AleutianAI/chatagent/services/orchestrator/datatypes"
)

func runChatCommand(cmd *cobra.Command, args []string) error {
	client := newAPIClient(serverURL)

	// Set up graceful shutdown with signal handling
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancel()
	}()

	loop := &chatLoop{
		client:    client,
		sessionID: sessionID,
		input:     bufio.NewReader(os.Stdin),
		output:    os.Stdout,
	}

	if len(args) > 0 {
		return loop.sendMessage(ctx, strings.Join(args, " "))
	}
	return loop.runInteractive(ctx)
}

// chatLoop drives one CLI conversation against the orchestrator.
type chatLoop struct {
	client    *apiClient
	sessionID string
	input     *bufio.Reader
	output    io.Writer
}

func (l *chatLoop) runInteractive(ctx context.Context) error {
	fmt.Fprintln(l.output, "Connected. Type a message, or 'exit' to quit.")
	for {
		fmt.Fprint(l.output, "\n> ")
		line, err := l.readLine(ctx)
		if err != nil {
			if err == io.EOF || ctx.Err() != nil {
				fmt.Fprintln(l.output)
				return nil
			}
			return err
		}

		message := strings.TrimSpace(line)
		switch {
		case message == "":
			continue
		case message == "exit" || message == "quit":
			l.printGoodbye()
			return nil
		}

		if err := l.sendMessage(ctx, message); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(l.output, "Error: %v\n", err)
		}
	}
}

// sendMessage runs one full turn: stream the reply, and keep resolving
// approval pauses until the turn completes.
func (l *chatLoop) sendMessage(ctx context.Context, message string) error {
	body, err := l.client.StreamChat(ctx, datatypes.ChatStreamRequest{
		SessionID: l.sessionID,
		Message:   message,
		Provider:  providerName,
		Model:     modelName,
	})
	if err != nil {
		return err
	}

	result, err := l.processStream(body)
	if err != nil {
		return err
	}

	for result.Suspended() {
		decision, err := l.promptDecision(ctx, result.PendingCalls)
		if err != nil {
			return err
		}
		body, err := l.client.Resume(ctx, datatypes.ResumeRequest{
			SessionID: result.SessionID,
			Decision:  decision,
		})
		if err != nil {
			return err
		}
		result, err = l.processStream(body)
		if err != nil {
			return err
		}
	}
	return nil
}

func (l *chatLoop) processStream(body io.ReadCloser) (*ux.StreamResult, error) {
	defer body.Close()

	result, err := ux.NewStreamProcessorWithWriter(l.output, showThoughts).Process(body)
	if err != nil {
		return nil, err
	}
	if result.SessionID != "" {
		l.sessionID = result.SessionID
	}
	if config.Global.Chat.VerifyChain {
		if verification := ux.NewChainVerifier().Verify(result.Events); !verification.Valid {
			fmt.Fprintf(l.output, "\nWarning: stream integrity check failed: %s\n",
				verification.Reason)
		}
	}
	return result, nil
}

// promptDecision shows the pending tool calls and asks for approval.
func (l *chatLoop) promptDecision(ctx context.Context, calls []ux.ToolCallInfo) (string, error) {
	fmt.Fprintln(l.output, "\nThe model wants to run:")
	for i, call := range calls {
		args := strings.TrimSpace(string(call.Arguments))
		if args == "" || args == "{}" || args == "null" {
			fmt.Fprintf(l.output, "  %d. %s\n", i+1, call.Name)
		} else {
			fmt.Fprintf(l.output, "  %d. %s %s\n", i+1, call.Name, args)
		}
	}

	for {
		fmt.Fprint(l.output, "Approve? [y/N] ")
		line, err := l.readLine(ctx)
		if err != nil {
			if err == io.EOF {
				return datatypes.DecisionReject, nil
			}
			return "", err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return datatypes.DecisionApprove, nil
		case "", "n", "no":
			return datatypes.DecisionReject, nil
		}
	}
}

// readLine reads one input line, honoring context cancellation.
func (l *chatLoop) readLine(ctx context.Context) (string, error) {
	type readResult struct {
		line string
		err  error
	}
	ch := make(chan readResult, 1)
	go func() {
		line, err := l.input.ReadString('\n')
		ch <- readResult{line, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		return r.line, r.err
	}
}

func (l *chatLoop) printGoodbye() {
	if l.sessionID != "" {
		fmt.Fprintf(l.output, "Session %s kept on the server; resume with --session %s\n",
			l.sessionID, l.sessionID)
	}
}
