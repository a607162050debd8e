package detect

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const (
	VerdictAI      = "AI"
	VerdictNatural = "Natural"
)

var (
	// ErrDetectionFailed means the classifier exited non-zero or could not start.
	ErrDetectionFailed = errors.New("AI detection failed")
	// ErrUnexpectedOutput means the classifier exited cleanly but printed
	// something other than a verdict.
	ErrUnexpectedOutput = errors.New("unexpected AI detection output")
)

// DetectionError carries the trimmed classifier output for the caller.
type DetectionError struct {
	Kind    error
	Details string
	Err     error
}

func (e *DetectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %s: %v", e.Kind, e.Details, e.Err)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Details)
}

func (e *DetectionError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Classifier runs an external image-authenticity script as
// `<Python> <Script> <image path>` and reads a single verdict from stdout.
type Classifier struct {
	Python    string
	Script    string
	UploadDir string
	Timeout   time.Duration
	logger    *slog.Logger
}

func NewClassifier(python, script, uploadDir string, timeout time.Duration, logger *slog.Logger) *Classifier {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Classifier{
		Python:    python,
		Script:    script,
		UploadDir: uploadDir,
		Timeout:   timeout,
		logger:    logger,
	}
}

// ClassifyUpload stores r in the upload directory, classifies it and removes
// the file again whatever the outcome.
func (c *Classifier) ClassifyUpload(ctx context.Context, r io.Reader) (string, error) {
	if err := os.MkdirAll(c.UploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	f, err := os.CreateTemp(c.UploadDir, "upload-*")
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close upload: %w", err)
	}
	return c.Classify(ctx, path)
}

// Classify runs the script against the image at path.
func (c *Classifier) Classify(ctx context.Context, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve image path: %w", err)
	}
	script, err := filepath.Abs(c.Script)
	if err != nil {
		return "", fmt.Errorf("resolve script path: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, c.Python, script, abs)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if stderr.Len() > 0 {
		c.logger.WarnContext(ctx, "classifier stderr", "output", strings.TrimSpace(stderr.String()))
	}
	out := strings.TrimSpace(stdout.String())
	c.logger.InfoContext(ctx, "image classified", "result", out, "exit_code", cmd.ProcessState.ExitCode())

	if runErr != nil {
		return "", &DetectionError{Kind: ErrDetectionFailed, Details: out, Err: runErr}
	}
	switch out {
	case VerdictAI, VerdictNatural:
		return out, nil
	default:
		return "", &DetectionError{Kind: ErrUnexpectedOutput, Details: out}
	}
}
