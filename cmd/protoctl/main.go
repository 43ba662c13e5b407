// Package main implements the protoctl CLI for manual operations against the
// protocold HTTP server.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL for the protocold HTTP server
	serverURL string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "protoctl",
	Short: "CLI for protocold HTTP server operations",
	Long: `protoctl is a command-line interface for the protocold daemon.
It selects protocols for a context, submits feedback scores, inspects
registered protocols, and triggers maintenance cycles.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8420", "protocold server URL")
	rootCmd.AddCommand(selectCmd)
	rootCmd.AddCommand(feedbackCmd)
	rootCmd.AddCommand(protocolsCmd)
	rootCmd.AddCommand(deregisterCmd)
	rootCmd.AddCommand(improveCmd)
	rootCmd.AddCommand(evolveCmd)
	rootCmd.AddCommand(healthCmd)
}

var (
	selectEmotion     string
	selectIntent      string
	selectEnvironment string
)

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Select and execute a protocol for a context",
	Long: `Select a protocol for the given context and execute it.

Examples:
  # Select for a sad, resting user
  protoctl select --emotion sad --intent rest

  # Use a different server
  protoctl select --server http://localhost:9000 --emotion happy --intent create`,
	RunE: runSelect,
}

var feedbackCmd = &cobra.Command{
	Use:   "feedback <protocol> <score>",
	Short: "Submit a feedback score for a protocol",
	Long: `Submit a feedback score in [0, 5] for a named protocol.

Examples:
  protoctl feedback emotional_comfort 4.5`,
	Args: cobra.ExactArgs(2),
	RunE: runFeedback,
}

var protocolsCmd = &cobra.Command{
	Use:   "protocols",
	Short: "List registered protocols with their statistics",
	RunE:  runProtocols,
}

var deregisterCmd = &cobra.Command{
	Use:   "deregister <protocol>",
	Short: "Remove a protocol from the registry",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeregister,
}

var improveCmd = &cobra.Command{
	Use:   "improve",
	Short: "Run an improvement cycle now",
	RunE:  runImprove,
}

var evolveCmd = &cobra.Command{
	Use:   "evolve",
	Short: "Run an evolution cycle now",
	RunE:  runEvolve,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check protocold server health",
	RunE:  runHealth,
}

func init() {
	selectCmd.Flags().StringVar(&selectEmotion, "emotion", "", "context emotion (e.g. happy, sad)")
	selectCmd.Flags().StringVar(&selectIntent, "intent", "", "context intent (e.g. work, rest)")
	selectCmd.Flags().StringVar(&selectEnvironment, "environment", "", "context environment")
}

// Request/response bodies matching internal/http.

type selectRequest struct {
	Emotion     string `json:"emotion"`
	Intent      string `json:"intent"`
	Environment string `json:"environment"`
}

type selectResponse struct {
	Protocol string  `json:"protocol"`
	Strategy string  `json:"strategy"`
	Response string  `json:"response"`
	Reward   float64 `json:"reward"`
}

type feedbackRequest struct {
	Protocol string  `json:"protocol"`
	Score    float64 `json:"score"`
}

type feedbackResponse struct {
	Protocol string  `json:"protocol"`
	Score    float64 `json:"score"`
	Reward   float64 `json:"reward"`
	Strategy string  `json:"strategy"`
}

type protocolsResponse struct {
	Strategy  string `json:"strategy"`
	Protocols []struct {
		Name       string  `json:"name"`
		Reward     float64 `json:"reward"`
		Executions uint64  `json:"executions"`
	} `json:"protocols"`
}

type evolutionResponse struct {
	Registered int `json:"registered"`
}

func runSelect(cmd *cobra.Command, args []string) error {
	var resp selectResponse
	err := postJSON("/api/v1/select", selectRequest{
		Emotion:     selectEmotion,
		Intent:      selectIntent,
		Environment: selectEnvironment,
	}, &resp)
	if err != nil {
		return err
	}

	fmt.Println(resp.Response)
	fmt.Fprintf(os.Stderr, "[protoctl] protocol=%s strategy=%s reward=%.2f\n",
		resp.Protocol, resp.Strategy, resp.Reward)
	return nil
}

func runFeedback(cmd *cobra.Command, args []string) error {
	var score float64
	if _, err := fmt.Sscanf(args[1], "%f", &score); err != nil {
		return fmt.Errorf("invalid score %q: %w", args[1], err)
	}

	var resp feedbackResponse
	if err := postJSON("/api/v1/feedback", feedbackRequest{Protocol: args[0], Score: score}, &resp); err != nil {
		return err
	}

	fmt.Printf("%s: score=%.2f reward=%.2f strategy=%s\n",
		resp.Protocol, resp.Score, resp.Reward, resp.Strategy)
	return nil
}

func runProtocols(cmd *cobra.Command, args []string) error {
	var resp protocolsResponse
	if err := getJSON("/api/v1/protocols", &resp); err != nil {
		return err
	}

	fmt.Printf("active strategy: %s\n", resp.Strategy)
	for _, p := range resp.Protocols {
		fmt.Printf("  %-30s reward=%.2f executions=%d\n", p.Name, p.Reward, p.Executions)
	}
	return nil
}

func runDeregister(cmd *cobra.Command, args []string) error {
	path := "/api/v1/protocols/" + url.PathEscape(args[0])
	req, err := http.NewRequest(http.MethodDelete, serverURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := newClient().Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return statusError(resp)
	}
	fmt.Printf("deregistered %s\n", args[0])
	return nil
}

func runImprove(cmd *cobra.Command, args []string) error {
	var reports []struct {
		Name       string  `json:"name"`
		Tier       string  `json:"tier"`
		Reward     float64 `json:"reward"`
		Executions uint64  `json:"executions"`
	}
	if err := postJSON("/api/v1/cycles/improvement", nil, &reports); err != nil {
		return err
	}

	for _, r := range reports {
		fmt.Printf("  %-30s %-18s reward=%.2f executions=%d\n", r.Name, r.Tier, r.Reward, r.Executions)
	}
	return nil
}

func runEvolve(cmd *cobra.Command, args []string) error {
	var resp evolutionResponse
	if err := postJSON("/api/v1/cycles/evolution", nil, &resp); err != nil {
		return err
	}
	fmt.Printf("registered %d mutant(s)\n", resp.Registered)
	return nil
}

func runHealth(cmd *cobra.Command, args []string) error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := getJSON("/healthz", &resp); err != nil {
		return err
	}
	fmt.Printf("protocold is %s\n", resp.Status)
	return nil
}

func newClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

func postJSON(path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(http.MethodPost, serverURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := newClient().Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", serverURL+path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func getJSON(path string, out any) error {
	resp, err := newClient().Get(serverURL + path)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", serverURL+path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func statusError(resp *http.Response) error {
	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return fmt.Errorf("server returned status %d (failed to read response body: %w)", resp.StatusCode, readErr)
	}
	return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
}
