// Copyright (c) 2025 Masaki Kondo
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mkondo/mindchat-tui/internal/config"
	"github.com/mkondo/mindchat-tui/internal/history"
	"github.com/mkondo/mindchat-tui/internal/model"
	"github.com/mkondo/mindchat-tui/internal/speech"
	"github.com/mkondo/mindchat-tui/internal/tasks"
)

// =============================================================================
// ERRORS
// =============================================================================

// Sentinel errors for refused commands. Compare with errors.Is.
var (
	// ErrBusy is returned when a command is refused because a background
	// task occupies the relevant slot.
	ErrBusy = &ControllerError{Message: "a background task is still running"}

	// ErrEmptyMessage is returned for blank or whitespace-only submissions.
	ErrEmptyMessage = &ControllerError{Message: "message is empty"}

	// ErrRecording is returned when a command conflicts with an active
	// recording.
	ErrRecording = &ControllerError{Message: "recording is in progress"}

	// ErrUnknownMode is returned for a mode key not present in the config.
	ErrUnknownMode = &ControllerError{Message: "unknown mode"}
)

// ControllerError represents a refused controller command.
type ControllerError struct {
	Message string
}

// Error implements the error interface.
func (e *ControllerError) Error() string {
	return e.Message
}

// Is implements errors.Is support.
func (e *ControllerError) Is(target error) bool {
	t, ok := target.(*ControllerError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// =============================================================================
// COLLABORATOR INTERFACES
// =============================================================================

// Generator is the inference collaborator: one blocking call that turns a
// message history plus system prompt into a reply.
type Generator interface {
	GenerateReply(ctx context.Context, history []model.Message, systemPrompt string) (string, error)
}

// =============================================================================
// CONTROLLER
// =============================================================================

// taskPin records which mode and conversation a background task was started
// against. Completion handlers resolve against the pin, never against
// whatever is "current" by the time the task finishes, so results cannot
// leak across conversations.
type taskPin struct {
	modeKey string
	convID  string
}

// Controller is the top-level application controller: it owns one
// ModeSession per configured mode, the two background task slots, and the
// collaborator clients. Every command runs on the interactive goroutine and
// mutates exactly one store synchronously before (optionally) handing work
// to the orchestrator.
type Controller struct {
	cfg      *config.Config
	sessions map[string]*ModeSession
	order    []string
	active   string

	orch        *tasks.Orchestrator
	generator   Generator
	transcriber speech.Transcriber
	recorder    speech.Recorder
	notifier    Notifier

	// pins maps a started task id to the mode/conversation it belongs to.
	pins map[string]taskPin
}

// Deps are the collaborators handed to the controller.
type Deps struct {
	Generator   Generator
	Transcriber speech.Transcriber
	Recorder    speech.Recorder
	Notifier    Notifier

	// NotifyOutcome receives each task's terminal outcome. The TUI passes a
	// function that re-enters the interactive loop (tea.Program.Send);
	// tests pass a channel writer. The receiver must eventually call
	// HandleOutcome on the interactive goroutine.
	NotifyOutcome func(tasks.Outcome)
}

// NewController opens one history store per configured mode and wires the
// orchestrator. The first configured mode starts active.
func NewController(cfg *config.Config, deps Deps) (*Controller, error) {
	if len(cfg.Modes) == 0 {
		return nil, fmt.Errorf("no modes configured")
	}

	c := &Controller{
		cfg:         cfg,
		sessions:    make(map[string]*ModeSession),
		orch:        tasks.New(deps.NotifyOutcome),
		generator:   deps.Generator,
		transcriber: deps.Transcriber,
		recorder:    deps.Recorder,
		notifier:    deps.Notifier,
		pins:        make(map[string]taskPin),
	}

	opts := history.Options{
		MaxConversations: cfg.History.MaxConversations,
		MaxFavorites:     cfg.History.MaxFavorites,
	}
	for _, mode := range cfg.Modes {
		store, err := history.Open(cfg.HistoryPath(mode.Key), opts)
		if err != nil {
			return nil, fmt.Errorf("open history for mode %s: %w", mode.Key, err)
		}
		c.sessions[mode.Key] = NewModeSession(mode, store)
		c.order = append(c.order, mode.Key)
	}
	c.active = cfg.Modes[0].Key

	return c, nil
}

// Active returns the active mode session.
func (c *Controller) Active() *ModeSession {
	return c.sessions[c.active]
}

// ActiveKey returns the active mode key.
func (c *Controller) ActiveKey() string {
	return c.active
}

// ModeKeys returns the configured mode keys in order.
func (c *Controller) ModeKeys() []string {
	keys := make([]string, len(c.order))
	copy(keys, c.order)
	return keys
}

// Orchestrator exposes slot state to the UI (busy checks for key handling).
func (c *Controller) Orchestrator() *tasks.Orchestrator {
	return c.orch
}

// =============================================================================
// STARTUP & MODE SWITCHING
// =============================================================================

// Bootstrap opens the most recent conversation of the active mode, creating
// one when the history is empty, and pushes the initial view state.
func (c *Controller) Bootstrap() {
	c.openHeadConversation()
}

// SwitchMode activates another mode. Refused while any background task is
// running: the mode being left keeps its pointer, and its history stays
// untouched until its in-flight work resolves against the pinned ids.
func (c *Controller) SwitchMode(key string) error {
	if c.orch.AnyBusy() {
		c.notifier.Warn("切り替えできません", "処理が終わるまでお待ちください。")
		return ErrBusy
	}
	if c.recorder != nil && c.recorder.Recording() {
		c.notifier.Warn("切り替えできません", "録音を停止してください。")
		return ErrRecording
	}
	if _, ok := c.sessions[key]; !ok {
		return ErrUnknownMode
	}

	c.active = key
	c.openHeadConversation()
	return nil
}

// openHeadConversation selects the most recent conversation of the active
// mode, creating one if the store is empty.
func (c *Controller) openHeadConversation() {
	sess := c.Active()

	if sess.CurrentID() == "" {
		if list := sess.Store.List(); len(list) > 0 {
			sess.SetCurrent(list[0].ID)
		} else {
			conv, err := sess.Store.Create()
			c.reportPersistence(err)
			sess.SetCurrent(conv.ID)
		}
	}

	conv, err := sess.Store.Get(sess.CurrentID())
	if err != nil {
		// The pointed-at conversation was evicted; fall back to a fresh one.
		conv, err = sess.Store.Create()
		c.reportPersistence(err)
		sess.SetCurrent(conv.ID)
	}

	c.notifier.ConversationDisplayed(conv)
	c.notifier.ListChanged(sess.Store.List())
}

// =============================================================================
// CONVERSATION COMMANDS
// =============================================================================

// CreateConversation opens a fresh conversation in the active mode.
func (c *Controller) CreateConversation() {
	sess := c.Active()
	conv, err := sess.Store.Create()
	c.reportPersistence(err)
	sess.SetCurrent(conv.ID)
	c.notifier.ConversationDisplayed(conv)
	c.notifier.ListChanged(sess.Store.List())
}

// SelectConversation opens an existing conversation in the active mode.
func (c *Controller) SelectConversation(id string) {
	sess := c.Active()
	conv, err := sess.Store.Get(id)
	if err != nil {
		c.notifier.Warn("履歴の読み込みに失敗しました", err.Error())
		return
	}
	sess.SetCurrent(conv.ID)
	c.notifier.ConversationDisplayed(conv)
}

// ToggleFavorite flips the favorite flag of a conversation in the active
// mode. The favorite ceiling is surfaced as a user-facing warning with no
// state change.
func (c *Controller) ToggleFavorite(id string) {
	sess := c.Active()
	_, err := sess.Store.ToggleFavorite(id)
	switch {
	case errors.Is(err, history.ErrFavoriteLimit):
		c.notifier.Warn("お気に入り制限",
			fmt.Sprintf("お気に入りは%d件までです。", c.cfg.History.MaxFavorites))
		return
	case errors.Is(err, history.ErrNotFound):
		c.notifier.Warn("お気に入りの更新に失敗しました", err.Error())
		return
	default:
		c.reportPersistence(err)
	}
	c.notifier.ListChanged(sess.Store.List())
}

// =============================================================================
// MESSAGE SUBMISSION & INFERENCE
// =============================================================================

// SubmitMessage validates and sends a user message: synchronous optimistic
// append, then an inference task carrying an immutable history snapshot.
// Refused while the inference slot is busy or a recording is active.
func (c *Controller) SubmitMessage(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if c.orch.Busy(tasks.KindInference) {
		return ErrBusy
	}
	if c.recorder != nil && c.recorder.Recording() {
		return ErrRecording
	}

	sess := c.Active()
	if sess.CurrentID() == "" {
		conv, err := sess.Store.Create()
		c.reportPersistence(err)
		sess.SetCurrent(conv.ID)
	}

	conv, err := sess.Store.AppendMessage(sess.CurrentID(), model.NewUserMessage(text))
	if errors.Is(err, history.ErrNotFound) {
		c.notifier.Warn("送信に失敗しました", err.Error())
		return err
	}
	c.reportPersistence(err)
	sess.ClearPendingInput()

	c.notifier.ConversationDisplayed(conv)
	c.notifier.ListChanged(sess.Store.List())

	// The task only sees this snapshot; the store is never touched from the
	// background goroutine.
	snapshot := conv.Messages
	prompt := sess.Mode.SystemPrompt

	taskID, err := c.orch.Start(tasks.KindInference, conv.ID, func(ctx context.Context) (string, error) {
		return c.generator.GenerateReply(ctx, snapshot, prompt)
	})
	if err != nil {
		// Slot raced busy; roll the optimistic append back right away.
		c.rollback(c.active, conv.ID)
		return err
	}

	c.pins[taskID] = taskPin{modeKey: c.active, convID: conv.ID}
	c.notifier.BusyChanged(true, "AIが考え中です...")
	return nil
}

// HandleOutcome applies a task's terminal notification to application
// state. It must run on the interactive goroutine; it is the only path by
// which background results re-enter the stores.
func (c *Controller) HandleOutcome(out tasks.Outcome) {
	pin, ok := c.pins[out.TaskID]
	if !ok {
		return
	}
	delete(c.pins, out.TaskID)

	switch out.Kind {
	case tasks.KindInference:
		c.handleInferenceOutcome(pin, out)
	case tasks.KindTranscription:
		c.handleTranscriptionOutcome(pin, out)
	}
}

func (c *Controller) handleInferenceOutcome(pin taskPin, out tasks.Outcome) {
	c.notifier.BusyChanged(false, "")

	if out.Failed() {
		c.rollback(pin.modeKey, pin.convID)
		c.notifier.Warn("応答生成に失敗しました", out.Err.Error())
		return
	}

	// Append targets the conversation the task was started against, not
	// whatever is current now.
	sess := c.sessions[pin.modeKey]
	conv, err := sess.Store.AppendMessage(pin.convID, model.NewAssistantMessage(out.Text))
	if errors.Is(err, history.ErrNotFound) {
		c.notifier.Warn("応答の保存に失敗しました", err.Error())
		return
	}
	c.reportPersistence(err)

	if pin.modeKey == c.active {
		if sess.CurrentID() == pin.convID {
			c.notifier.ConversationDisplayed(conv)
		}
		c.notifier.ListChanged(sess.Store.List())
	}
}

// rollback undoes the optimistic user append on the pinned conversation and
// re-renders if it is still on screen.
func (c *Controller) rollback(modeKey, convID string) {
	sess := c.sessions[modeKey]
	conv, err := sess.Store.RemoveTrailingUserMessage(convID)
	if err != nil {
		if !errors.Is(err, history.ErrNotFound) {
			c.reportPersistence(err)
		}
		return
	}

	if modeKey == c.active {
		if sess.CurrentID() == convID {
			c.notifier.ConversationDisplayed(conv)
		}
		c.notifier.ListChanged(sess.Store.List())
	}
}

// =============================================================================
// VOICE INPUT
// =============================================================================

// StartRecording begins microphone capture. Refused while inference or a
// previous transcription is still running.
func (c *Controller) StartRecording() error {
	if c.recorder == nil || c.transcriber == nil {
		c.notifier.Warn("音声入力は利用できません", "音声入力が無効になっています。")
		return ErrRecording
	}
	if c.orch.Busy(tasks.KindInference) || c.orch.Busy(tasks.KindTranscription) {
		return ErrBusy
	}
	if c.recorder.Recording() {
		return ErrRecording
	}

	if err := c.recorder.Start(); err != nil {
		c.notifier.Warn("録音を開始できませんでした", err.Error())
		return err
	}
	c.notifier.RecordingChanged(true, "録音中... もう一度押すと停止します")
	return nil
}

// StopRecording ends the capture and hands the audio to the transcription
// slot. Recognized text lands in the pending input buffer; it is never sent
// automatically.
func (c *Controller) StopRecording() error {
	if c.recorder == nil || !c.recorder.Recording() {
		return nil
	}

	pcm, sampleRate, err := c.recorder.Stop()
	c.notifier.RecordingChanged(false, "")
	if err != nil {
		c.notifier.Warn("録音の停止に失敗しました", err.Error())
		return err
	}
	if len(pcm) == 0 {
		c.notifier.Warn("音声を認識できませんでした", "録音データがありません。")
		return nil
	}

	taskID, err := c.orch.Start(tasks.KindTranscription, "", func(ctx context.Context) (string, error) {
		return c.transcriber.Transcribe(ctx, pcm, sampleRate)
	})
	if err != nil {
		c.notifier.Warn("音声認識を開始できませんでした", err.Error())
		return err
	}

	c.pins[taskID] = taskPin{modeKey: c.active}
	c.notifier.BusyChanged(true, "音声を認識しています...")
	return nil
}

func (c *Controller) handleTranscriptionOutcome(pin taskPin, out tasks.Outcome) {
	c.notifier.BusyChanged(false, "")

	if out.Failed() {
		c.notifier.Warn("音声認識に失敗しました", out.Err.Error())
		return
	}

	// Text belongs to the mode the recording was made in. If the user has
	// since switched modes it is dropped: the buffer it was meant for is no
	// longer on screen and nothing was persisted.
	if pin.modeKey != c.active {
		return
	}

	sess := c.Active()
	c.notifier.InputSuggested(sess.AppendPendingInput(out.Text))
}

// ApplyStyling applies a hot-reloaded configuration's presentation fields
// to the mode sessions. Only titles, assistant labels and accent colors
// change at runtime; prompts, retention limits and collaborator endpoints
// take effect on the next start. Must run on the interactive goroutine.
func (c *Controller) ApplyStyling(cfg *config.Config) {
	for _, sess := range c.sessions {
		mode, ok := cfg.Mode(sess.Mode.Key)
		if !ok {
			continue
		}
		sess.Mode.Title = mode.Title
		sess.Mode.AssistantLabel = mode.AssistantLabel
		sess.Mode.Accent = mode.Accent
	}
}

// =============================================================================
// SHUTDOWN
// =============================================================================

// Shutdown cancels all background work, waits for the task goroutines to
// stop, and flushes every store. No notification is delivered once this
// begins.
func (c *Controller) Shutdown() {
	c.orch.CancelAll()
	for _, key := range c.order {
		c.sessions[key].Store.Save()
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// reportPersistence surfaces a failed history write as a warning. The
// in-memory mutation already succeeded, so the user's message is not lost;
// it just is not durable until a later write succeeds.
func (c *Controller) reportPersistence(err error) {
	var perr *history.PersistenceError
	if errors.As(err, &perr) {
		c.notifier.Warn("履歴の保存に失敗しました", perr.Error())
	}
}
