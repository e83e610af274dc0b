package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/3leaps/bucketdeck/pkg/filelist"
	"github.com/3leaps/bucketdeck/pkg/output"
	"github.com/3leaps/bucketdeck/pkg/provider"
)

var (
	successIcon = color.GreenString("✓")
	errorIcon   = color.RedString("✗")
)

// consoleNotifier prints manager notifications for a terminal session.
type consoleNotifier struct {
	out io.Writer
}

func (n consoleNotifier) Notify(note filelist.Notification) {
	subject := note.Message
	if note.Key != "" {
		subject = fmt.Sprintf("%s: %s", note.Message, note.Key)
	}
	if note.Kind == filelist.NotifyFailure {
		if note.Err != nil {
			subject = fmt.Sprintf("%s (%v)", subject, note.Err)
		}
		_, _ = fmt.Fprintf(n.out, "%s %s\n", errorIcon, subject)
		return
	}
	_, _ = fmt.Fprintf(n.out, "%s %s\n", successIcon, subject)
}

// jsonlNotifier writes notifications as JSONL records.
type jsonlNotifier struct {
	ctx context.Context
	w   output.Writer
}

func (n jsonlNotifier) Notify(note filelist.Notification) {
	rec := &output.NotificationRecord{
		Kind:    note.Kind.String(),
		Op:      note.Op,
		Key:     note.Key,
		Message: note.Message,
	}
	if note.Err != nil {
		rec.Code = output.ErrorCode(note.Err)
		rec.Error = note.Err.Error()
	}
	_ = n.w.WriteNotification(n.ctx, rec)
}

// promptConfirmer asks on in before each delete. Anything but y or yes declines.
type promptConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func newPromptConfirmer(in io.Reader, out io.Writer) *promptConfirmer {
	return &promptConfirmer{in: bufio.NewReader(in), out: out}
}

func (c *promptConfirmer) Confirm(ctx context.Context, obj provider.ObjectDescriptor) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, _ = fmt.Fprintf(c.out, "Delete %s (%s)? [y/N]: ", obj.Key, formatSize(obj.Size))
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		if err == io.EOF {
			return false, nil
		}
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
		TB = 1024 * GB
	)

	switch {
	case bytes >= TB:
		return fmt.Sprintf("%.1f TB", float64(bytes)/TB)
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
