package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

type payload struct {
	StudyID string `json:"study_id"`
	RunID   string `json:"run_id"`
	Output  string `json:"output"`
}

// Notifier tells an external API that a study has been written to the
// output tree.
type Notifier struct {
	apiUrl string
	runID  string
	output string
	client *http.Client
}

func New(apiUrl string, timeout time.Duration, runID, output string) *Notifier {
	return &Notifier{
		apiUrl: apiUrl,
		runID:  runID,
		output: output,
		client: &http.Client{Timeout: timeout},
	}
}

func (n *Notifier) NotifyStudyReady(ctx context.Context, studyID string) error {
	jsonPayload, err := json.Marshal(payload{StudyID: studyID, RunID: n.runID, Output: n.output})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.apiUrl, bytes.NewReader(jsonPayload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API request failed with status code: %d", resp.StatusCode)
	}

	return nil
}

// NotifyAll posts every study in order and returns how many failed.
// Failures are logged and never stop the remaining notifications.
func (n *Notifier) NotifyAll(ctx context.Context, studyIDs []string, logger *zap.Logger) int {
	failed := 0
	for _, id := range studyIDs {
		if err := n.NotifyStudyReady(ctx, id); err != nil {
			failed++
			logger.Warn("study notification failed", zap.String("study_uid", id), zap.Error(err))
			continue
		}
		logger.Debug("study ready", zap.String("study_uid", id))
	}
	return failed
}
