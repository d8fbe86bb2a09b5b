package notification

import (
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/yok-tottii/EzRec/internal/i18n"
	"github.com/yok-tottii/EzRec/internal/session"
)

// Presenter turns events and states into user-facing text. Failures and
// too-short recordings are also shown as toasts when a Notifier is set.
type Presenter struct {
	tr          *i18n.Translator
	notifier    Notifier
	minDuration atomic.Int64
}

// NewPresenter creates a presenter. notifier may be nil.
func NewPresenter(tr *i18n.Translator, notifier Notifier, minDuration time.Duration) *Presenter {
	if tr == nil {
		tr = i18n.NewDefaultTranslator(i18n.LanguageEnglish)
	}
	p := &Presenter{tr: tr, notifier: notifier}
	p.minDuration.Store(int64(minDuration))
	return p
}

// SetMinDuration changes the limit quoted in too-short messages
func (p *Presenter) SetMinDuration(d time.Duration) {
	p.minDuration.Store(int64(d))
}

// SetLanguage switches the language of all later messages
func (p *Presenter) SetLanguage(language i18n.Language) {
	p.tr.SetLanguage(language)
}

// Text translates a fixed message key
func (p *Presenter) Text(key string) string {
	return p.tr.Translate(key)
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Message returns the translated text for an event
func (p *Presenter) Message(ev Event) string {
	params := map[string]string{
		"file":     filepath.Base(ev.File),
		"duration": ev.Duration.Round(100 * time.Millisecond).String(),
		"min":      time.Duration(p.minDuration.Load()).String(),
		"error":    errText(ev.Err),
		"bytes":    strconv.FormatInt(ev.Bytes, 10),
	}

	var key string
	switch ev.Kind {
	case RecordingStarted:
		key = "event.recording_started"
	case RecordingSucceeded:
		key = "event.recording_succeeded"
	case RecordingTooShort:
		key = "event.recording_too_short"
	case RecordingFailed:
		key = "event.recording_failed"
	case PlaybackStarted:
		key = "event.playback_started"
	case PlaybackFinished:
		key = "event.playback_finished"
	case PlaybackFailed:
		key = "event.playback_failed"
	case Progress:
		key = "event.progress"
	default:
		return ev.Kind.String()
	}
	return p.tr.TranslateWithFormat(key, params)
}

// Present returns the event text and, for failures and too-short
// recordings, shows it as a toast. A toast error never hides the text.
func (p *Presenter) Present(ev Event) (string, error) {
	msg := p.Message(ev)
	if p.notifier == nil {
		return msg, nil
	}

	var typ NotificationType
	switch ev.Kind {
	case RecordingFailed, PlaybackFailed:
		typ = TypeError
	case RecordingTooShort:
		typ = TypeWarning
	default:
		return msg, nil
	}
	return msg, p.notifier.Send(&Notification{
		Title:   p.tr.Translate("app.name"),
		Message: msg,
		Type:    typ,
	})
}

// Status returns the translated label for a machine snapshot
func (p *Presenter) Status(snap session.Snapshot) string {
	switch snap.State {
	case session.Idle:
		return p.tr.Translate("status.idle")
	case session.Starting:
		return p.tr.Translate("status.starting")
	case session.Active:
		if snap.Direction == session.Play {
			return p.tr.Translate("status.playing")
		}
		return p.tr.Translate("status.recording")
	case session.Stopping:
		return p.tr.Translate("status.stopping")
	default:
		return p.tr.Translate("status.failed")
	}
}

// Buttons returns the record and play button labels for a machine snapshot
// and whether play is enabled
func (p *Presenter) Buttons(snap session.Snapshot, haveRecording bool) (record, play string, playEnabled bool) {
	record = p.tr.Translate("button.record")
	play = p.tr.Translate("button.play")
	if snap.State == session.Idle {
		return record, play, haveRecording
	}
	if snap.Direction == session.Record {
		record = p.tr.Translate("button.stop")
	} else {
		play = p.tr.Translate("button.playing")
	}
	return record, play, false
}
