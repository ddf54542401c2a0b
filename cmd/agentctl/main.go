package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	version = "dev"

	// Global flags
	serverURL string
	sessionID string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "agentctl",
	Short:   "Interact with the agent orchestrator",
	Version: version,
}

var indexCmd = &cobra.Command{
	Use:   "index <file>",
	Short: "Index a document for the session",
	Long: `Index a text or PDF document so the session can answer questions about it.

Re-indexing replaces the previous index atomically; queries running at the
same time see either the old or the new index, never a mix.

Examples:
  # Index a plain text file
  agentctl index notes.txt --session demo

  # Index a PDF without waiting for completion
  agentctl index report.pdf --session demo --async`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

var askCmd = &cobra.Command{
	Use:   "ask <query>",
	Short: "Ask the agent a question",
	Long: `Ask a question. Weather questions are answered from the live weather
service; anything else is answered from the session's indexed document.

Examples:
  agentctl ask "weather in Berlin today" --session demo
  agentctl ask "what does the document say about pricing" --session demo --top-k 6`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

var dropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Discard the session's index",
	RunE:  runDrop,
}

var jobCmd = &cobra.Command{
	Use:   "job <job-id>",
	Short: "Show the status of an async indexing job",
	Args:  cobra.ExactArgs(1),
	RunE:  runJob,
}

var (
	asyncIndex bool
	topK       int
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("ORCHESTRATOR_URL", "http://localhost:9020"), "orchestrator base URL")
	rootCmd.PersistentFlags().StringVar(&sessionID, "session", "default", "session identifier")

	indexCmd.Flags().BoolVar(&asyncIndex, "async", false, "queue the document and return immediately")
	askCmd.Flags().IntVar(&topK, "top-k", 0, "number of context chunks to retrieve (0 = server default)")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(dropCmd)
	rootCmd.AddCommand(jobCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 120 * time.Second}
}

func indexURL() string {
	url := fmt.Sprintf("%s/v1/sessions/%s/index", strings.TrimRight(serverURL, "/"), sessionID)
	if asyncIndex {
		url += "?async=true"
	}
	return url
}

func runIndex(cmd *cobra.Command, args []string) error {
	path := args[0]

	var (
		req *http.Request
		err error
	)
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		req, err = newPDFRequest(path)
	} else {
		req, err = newTextRequest(path)
	}
	if err != nil {
		return err
	}

	resp, err := httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("index request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("index failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	fmt.Println(strings.TrimSpace(string(body)))
	return nil
}

func newTextRequest(path string) (*http.Request, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	payload, err := json.Marshal(map[string]string{"text": string(content)})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, indexURL(), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func newPDFRequest(path string) (*http.Request, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, indexURL(), &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req, nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	payload, err := json.Marshal(map[string]any{
		"session_id": sessionID,
		"query":      args[0],
		"top_k":      topK,
	})
	if err != nil {
		return err
	}

	url := strings.TrimRight(serverURL, "/") + "/v1/agent/answer"
	resp, err := httpClient().Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("answer request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("answer failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var answer struct {
		Answer    string `json:"answer"`
		Route     string `json:"route"`
		FromCache bool   `json:"from_cache"`
	}
	if err := json.Unmarshal(body, &answer); err != nil {
		return fmt.Errorf("decode answer: %w", err)
	}

	fmt.Printf("[%s]", answer.Route)
	if answer.FromCache {
		fmt.Printf(" (cached)")
	}
	fmt.Printf("\n%s\n", answer.Answer)
	return nil
}

func runDrop(cmd *cobra.Command, args []string) error {
	url := fmt.Sprintf("%s/v1/sessions/%s/index", strings.TrimRight(serverURL, "/"), sessionID)
	req, err := http.NewRequest(http.MethodDelete, url, nil)
	if err != nil {
		return err
	}

	resp, err := httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("drop request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("drop failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	fmt.Println("index dropped")
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	url := fmt.Sprintf("%s/v1/jobs/%s", strings.TrimRight(serverURL, "/"), args[0])
	resp, err := httpClient().Get(url)
	if err != nil {
		return fmt.Errorf("job request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("job lookup failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	fmt.Println(strings.TrimSpace(string(body)))
	return nil
}
