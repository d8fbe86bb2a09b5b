// Package notification delivers session results: an in-process event queue
// for the control goroutine and desktop toasts for the user.
package notification

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// ErrUnsupported is returned when the platform has no toast mechanism
var ErrUnsupported = errors.New("desktop notifications not supported on this platform")

// NotificationType represents the type of notification
type NotificationType string

const (
	// TypeInfo is an informational notification
	TypeInfo NotificationType = "info"
	// TypeWarning is a warning notification
	TypeWarning NotificationType = "warning"
	// TypeError is an error notification
	TypeError NotificationType = "error"
	// TypeSuccess is a success notification
	TypeSuccess NotificationType = "success"
)

// Notification is one desktop toast
type Notification struct {
	Title   string
	Message string
	Type    NotificationType
}

// Notifier shows toasts
type Notifier interface {
	Send(n *Notification) error
}

// CommandRunner runs an external command
type CommandRunner func(name string, args ...string) error

func runCommand(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

// NotificationManager sends toasts through the platform notification tool:
// osascript on macOS and notify-send on Linux
type NotificationManager struct {
	appName string
	goos    string
	run     CommandRunner
}

// NewNotificationManager creates a new notification manager
func NewNotificationManager(appName string) *NotificationManager {
	return &NotificationManager{
		appName: appName,
		goos:    runtime.GOOS,
		run:     runCommand,
	}
}

// WithRunner replaces the command runner and target platform
func (nm *NotificationManager) WithRunner(goos string, run CommandRunner) *NotificationManager {
	nm.goos = goos
	nm.run = run
	return nm
}

func appleScriptQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// Send shows a notification
func (nm *NotificationManager) Send(notification *Notification) error {
	if notification == nil {
		return fmt.Errorf("notification cannot be nil")
	}

	title := notification.Title
	if title == "" {
		title = nm.appName
	}

	var err error
	switch nm.goos {
	case "darwin":
		script := fmt.Sprintf("display notification %s with title %s",
			appleScriptQuote(notification.Message), appleScriptQuote(title))
		err = nm.run("osascript", "-e", script)
	case "linux":
		urgency := "normal"
		if notification.Type == TypeError {
			urgency = "critical"
		}
		err = nm.run("notify-send", "--app-name="+nm.appName, "--urgency="+urgency, title, notification.Message)
	default:
		return ErrUnsupported
	}
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	return nil
}

// SendInfo sends an informational notification
func (nm *NotificationManager) SendInfo(title, message string) error {
	return nm.Send(&Notification{Title: title, Message: message, Type: TypeInfo})
}

// SendWarning sends a warning notification
func (nm *NotificationManager) SendWarning(title, message string) error {
	return nm.Send(&Notification{Title: title, Message: message, Type: TypeWarning})
}

// SendError sends an error notification
func (nm *NotificationManager) SendError(title, message string) error {
	return nm.Send(&Notification{Title: title, Message: message, Type: TypeError})
}
