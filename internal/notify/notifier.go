package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Notifier delivers rendered reports to a webhook channel and persists them
// on disk. Send is best-effort; failures are reported to the caller but are
// never fatal to an analysis job.
type Notifier struct {
	webhookURL string
	reportsDir string
	client     *http.Client
	log        zerolog.Logger
}

// New creates a new notifier
func New(webhookURL, reportsDir string, log zerolog.Logger) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		reportsDir: reportsDir,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log.With().Str("component", "notifier").Logger(),
	}
}

// IsAvailable reports whether a push channel is configured
func (n *Notifier) IsAvailable() bool {
	return n != nil && n.webhookURL != ""
}

// Send pushes markdown content to the configured webhook.
// Returns false when no channel is configured or the push failed.
func (n *Notifier) Send(content string) bool {
	if !n.IsAvailable() || content == "" {
		return false
	}

	payload, err := json.Marshal(map[string]interface{}{
		"msgtype": "markdown",
		"markdown": map[string]string{
			"content": content,
		},
	})
	if err != nil {
		n.log.Error().Err(err).Msg("Failed to encode webhook payload")
		return false
	}

	resp, err := n.client.Post(n.webhookURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		n.log.Warn().Err(err).Msg("Webhook push failed")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		n.log.Warn().Int("status", resp.StatusCode).Msg("Webhook returned non-200")
		return false
	}

	n.log.Info().Msg("Report pushed to webhook")
	return true
}

// SaveToFile writes report content under the reports directory and returns
// the full path. An empty filename defaults to a dated report name.
func (n *Notifier) SaveToFile(content, filename string) (string, error) {
	if filename == "" {
		filename = fmt.Sprintf("report_%s.md", time.Now().Format("20060102"))
	}

	if err := os.MkdirAll(n.reportsDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}

	path := filepath.Join(n.reportsDir, filename)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	return path, nil
}

// FileNotifier is a no-push notifier used by review jobs triggered from the
// web UI: it only persists reports and always reports the push channel as
// unavailable.
type FileNotifier struct {
	reportsDir string
}

// NewFileNotifier creates a save-only notifier
func NewFileNotifier(reportsDir string) *FileNotifier {
	return &FileNotifier{reportsDir: reportsDir}
}

// IsAvailable always returns false
func (f *FileNotifier) IsAvailable() bool {
	return false
}

// Send always returns false
func (f *FileNotifier) Send(content string) bool {
	return false
}

// SaveToFile writes report content under the reports directory
func (f *FileNotifier) SaveToFile(content, filename string) (string, error) {
	if filename == "" {
		filename = fmt.Sprintf("market_review_%s.md", time.Now().Format("20060102"))
	}

	if err := os.MkdirAll(f.reportsDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}

	path := filepath.Join(f.reportsDir, filename)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	return path, nil
}
