package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sluice/internal/config"
)

const userAgent = "Sluice-Go/0.1.0"

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifySessionFinalized(ctx context.Context, target string, segments int, reason string) error
	NotifyReassemblyCompleted(ctx context.Context, target, artifact string) error
	NotifyReassemblyExhausted(ctx context.Context, target, sessionDir string) error
	NotifyUploadCompleted(ctx context.Context, target, objectKey string) error
	NotifyRunCompleted(ctx context.Context, sessions, failed int, duration time.Duration) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint: topic,
		client:   client,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifySessionFinalized(ctx context.Context, target string, segments int, reason string) error {
	target = strings.TrimSpace(target)
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown"
	}
	data := payload{
		title:   "Sluice - Session Finalized",
		message: fmt.Sprintf("Session finalized: %s (%d segments, %s)", target, segments, reason),
		tags:    []string{"sluice", "session", "finalized"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyReassemblyCompleted(ctx context.Context, target, artifact string) error {
	target = strings.TrimSpace(target)
	artifact = strings.TrimSpace(artifact)
	data := payload{
		title:   "Sluice - Capture Ready",
		message: fmt.Sprintf("Capture ready: %s\nFile: %s", target, artifact),
		tags:    []string{"sluice", "reassembly", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyReassemblyExhausted(ctx context.Context, target, sessionDir string) error {
	target = strings.TrimSpace(target)
	sessionDir = strings.TrimSpace(sessionDir)
	data := payload{
		title:    "Sluice - Reassembly Failed",
		message:  fmt.Sprintf("Reassembly exhausted for %s\nSegments kept at: %s\nManual recovery required", target, sessionDir),
		tags:     []string{"sluice", "reassembly", "exhausted"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyUploadCompleted(ctx context.Context, target, objectKey string) error {
	target = strings.TrimSpace(target)
	objectKey = strings.TrimSpace(objectKey)
	data := payload{
		title:   "Sluice - Uploaded",
		message: fmt.Sprintf("Uploaded capture for %s\nObject: %s", target, objectKey),
		tags:    []string{"sluice", "upload", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, sessions, failed int, duration time.Duration) error {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()
	if duration == 0 {
		durationText = "0s"
	}

	var title string
	var message string
	if failed == 0 {
		title = "Sluice - Run Complete"
		message = fmt.Sprintf("Capture run complete: %d sessions in %s", sessions, durationText)
	} else {
		title = "Sluice - Run Complete (with errors)"
		message = fmt.Sprintf("Capture run complete: %d succeeded, %d failed in %s", sessions, failed, durationText)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"sluice", "run", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Sluice - Error",
		message:  builder.String(),
		tags:     []string{"sluice", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Sluice - Test",
		message:  "Notification system test",
		tags:     []string{"sluice", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifySessionFinalized(context.Context, string, int, string) error { return nil }
func (noopService) NotifyReassemblyCompleted(context.Context, string, string) error   { return nil }
func (noopService) NotifyReassemblyExhausted(context.Context, string, string) error   { return nil }
func (noopService) NotifyUploadCompleted(context.Context, string, string) error       { return nil }
func (noopService) NotifyRunCompleted(context.Context, int, int, time.Duration) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error                  { return nil }
func (noopService) TestNotification(context.Context) error                            { return nil }
