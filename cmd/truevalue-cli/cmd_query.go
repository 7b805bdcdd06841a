// Copyright (C) 2025 TrueValue AI (engineering@truevalueai.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// queryRequest is the payload for POST /v1/estate/query.
type queryRequest struct {
	Query  string `json:"query"`
	UserID string `json:"user_id,omitempty"`
}

// queryResponse mirrors the server's QueryResponse.
type queryResponse struct {
	Answer    string   `json:"answer"`
	ToolsUsed []string `json:"tools_used"`
	Usage     struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	ElapsedMS int64 `json:"elapsed_ms"`
}

// errorResponse mirrors the server's error envelope.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func runQueryCommand(_ *cobra.Command, args []string) {
	question := strings.Join(args, " ")
	fmt.Printf("Analyzing: %s\n", question)
	runAnalysisQuery(question, userIDFlag, true)
}

func runChatCommand(_ *cobra.Command, _ []string) {
	userID := userIDFlag
	if userID == "" {
		userID = "cli-" + uuid.NewString()[:8]
	}
	fmt.Println("TrueValue analysis chat. Follow-up questions reuse your session.")
	fmt.Println("Type 'exit' to quit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if question == "exit" || question == "quit" || question == "q" {
			fmt.Println("Goodbye.")
			break
		}
		runAnalysisQuery(question, userID, false)
	}
}

// runAnalysisQuery calls the server and prints the answer. The server runs
// the full tool loop; no client-side orchestration is needed. fatal controls
// whether transport failures exit the process (one-shot mode) or just print
// (chat mode).
func runAnalysisQuery(question, userID string, fatal bool) {
	client := &http.Client{Timeout: 5 * time.Minute}
	queryURL := getServerBaseURL() + "/v1/estate/query"

	payload, _ := json.Marshal(queryRequest{Query: question, UserID: userID})

	done := make(chan bool)
	go showSpinner("Analyzing", done)

	resp, err := client.Post(queryURL, "application/json", bytes.NewReader(payload))
	done <- true
	fmt.Print("\r                                                \r")

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: TrueValue server unavailable at %s\n", queryURL)
		fmt.Fprintf(os.Stderr, "Start it with: ANTHROPIC_API_KEY=sk-... ./truevalue\n")
		fmt.Fprintf(os.Stderr, "Or set TRUEVALUE_URL to override the default address.\n")
		if fatal {
			log.Fatalf("connection failed: %v", err)
		}
		return
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "warning: close response body: %v\n", closeErr)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("failed to read response: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Code != "" {
			fmt.Fprintf(os.Stderr, "\nServer error [%s]: %s\n", errResp.Code, errResp.Error)
		} else {
			fmt.Fprintf(os.Stderr, "\nServer error (HTTP %d): %s\n", resp.StatusCode, string(body))
		}
		if fatal {
			os.Exit(1)
		}
		return
	}

	var result queryResponse
	if err := json.Unmarshal(body, &result); err != nil {
		log.Fatalf("failed to decode response: %v", err)
	}

	fmt.Printf("\n%s\n", result.Answer)
	if len(result.ToolsUsed) > 0 {
		fmt.Printf("\n[tools: %s | %d tokens | %.1fs]\n",
			strings.Join(result.ToolsUsed, ", "),
			result.Usage.InputTokens+result.Usage.OutputTokens,
			float64(result.ElapsedMS)/1000)
	}
}

func runToolsCommand(_ *cobra.Command, _ []string) {
	var body struct {
		Count int `json:"count"`
		Tools []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"tools"`
	}
	fetchJSON("/v1/estate/tools", &body)

	fmt.Printf("%d analysis tools:\n\n", body.Count)
	for _, tool := range body.Tools {
		fmt.Printf("  %-24s %s\n", tool.Name, tool.Description)
	}
}

func runZonesCommand(_ *cobra.Command, args []string) {
	var body map[string]any
	fetchJSON("/v1/estate/zones/"+args[0]+"/pipeline", &body)

	out, _ := json.MarshalIndent(body, "", "  ")
	fmt.Println(string(out))
}

// fetchJSON GETs a server path and decodes the response, exiting on failure.
func fetchJSON(path string, out any) {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(getServerBaseURL() + path)
	if err != nil {
		log.Fatalf("TrueValue server unavailable: %v", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "warning: close response body: %v\n", closeErr)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("failed to read response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("server error (HTTP %d): %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		log.Fatalf("failed to decode response: %v", err)
	}
}

// showSpinner displays the animation until done is signalled.
func showSpinner(msg string, done chan bool) {
	chars := []string{"▖", "▘", "▝", "▗"}
	i := 0

	fmt.Print("\033[?25l")
	defer fmt.Print("\033[?25h")

	for {
		select {
		case <-done:
			return
		default:
			fmt.Printf("\r%s  %s... \033[K", chars[i%len(chars)], msg)
			i++
			time.Sleep(100 * time.Millisecond)
		}
	}
}
