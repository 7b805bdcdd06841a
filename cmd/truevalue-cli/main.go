// Copyright (C) 2025 TrueValue AI (engineering@truevalueai.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command truevalue-cli is the terminal client for the TrueValue server.
//
// Usage:
//
//	truevalue-cli query "Is a 2BR in Dubai Marina at 2M AED a good buy?"
//	truevalue-cli chat
//	truevalue-cli tools
//	truevalue-cli zones jvc
//
// The server address defaults to http://localhost:8080 and can be overridden
// with TRUEVALUE_URL.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// userIDFlag keys the server-side conversation session; follow-up questions
// in chat mode reuse it.
var userIDFlag string

func main() {
	rootCmd := &cobra.Command{
		Use:   "truevalue-cli",
		Short: "Terminal client for the TrueValue real-estate analysis server",
	}

	queryCmd := &cobra.Command{
		Use:   "query [question]",
		Short: "Run one investment analysis query",
		Args:  cobra.MinimumNArgs(1),
		Run:   runQueryCommand,
	}
	queryCmd.Flags().StringVar(&userIDFlag, "user", "", "User ID for conversation continuity")

	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive analysis session with follow-up memory",
		Run:   runChatCommand,
	}
	chatCmd.Flags().StringVar(&userIDFlag, "user", "", "User ID for conversation continuity")

	toolsCmd := &cobra.Command{
		Use:   "tools",
		Short: "List the analysis tools the server exposes",
		Run:   runToolsCommand,
	}

	zonesCmd := &cobra.Command{
		Use:   "zones [zone]",
		Short: "Show supply pipeline research for a zone",
		Args:  cobra.ExactArgs(1),
		Run:   runZonesCommand,
	}

	rootCmd.AddCommand(queryCmd, chatCmd, toolsCmd, zonesCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getServerBaseURL resolves the server address from TRUEVALUE_URL.
func getServerBaseURL() string {
	if url := os.Getenv("TRUEVALUE_URL"); url != "" {
		return url
	}
	return "http://localhost:8080"
}
