// Copyright (c) 2025 Masaki Kondo
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkondo/mindchat-tui/internal/config"
	"github.com/mkondo/mindchat-tui/internal/model"
	"github.com/mkondo/mindchat-tui/internal/tasks"
)

// =============================================================================
// FAKES
// =============================================================================

// fakeGenerator blocks on gate so tests control when inference finishes.
type fakeGenerator struct {
	gate  chan struct{}
	reply string
	err   error

	gotHistory []model.Message
	gotPrompt  string
}

func newFakeGenerator(reply string, err error) *fakeGenerator {
	return &fakeGenerator{gate: make(chan struct{}), reply: reply, err: err}
}

func (g *fakeGenerator) GenerateReply(ctx context.Context, history []model.Message, systemPrompt string) (string, error) {
	g.gotHistory = history
	g.gotPrompt = systemPrompt
	select {
	case <-g.gate:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return g.reply, g.err
}

type fakeTranscriber struct {
	text string
	err  error
}

func (t *fakeTranscriber) Transcribe(ctx context.Context, pcm []byte, sampleRate int) (string, error) {
	return t.text, t.err
}

type fakeRecorder struct {
	recording bool
	pcm       []byte
}

func (r *fakeRecorder) Start() error {
	r.recording = true
	return nil
}

func (r *fakeRecorder) Stop() ([]byte, int, error) {
	r.recording = false
	return r.pcm, 16000, nil
}

func (r *fakeRecorder) Recording() bool {
	return r.recording
}

// spyNotifier records every notification for assertions.
type spyNotifier struct {
	displayed []*model.Conversation
	lists     [][]model.Summary
	busy      []bool
	recording []bool
	suggested []string
	warnings  []string
}

func (n *spyNotifier) ListChanged(s []model.Summary)               { n.lists = append(n.lists, s) }
func (n *spyNotifier) ConversationDisplayed(c *model.Conversation) { n.displayed = append(n.displayed, c) }
func (n *spyNotifier) BusyChanged(b bool, _ string)                { n.busy = append(n.busy, b) }
func (n *spyNotifier) RecordingChanged(r bool, _ string)           { n.recording = append(n.recording, r) }
func (n *spyNotifier) InputSuggested(text string)                  { n.suggested = append(n.suggested, text) }
func (n *spyNotifier) Warn(title, _ string)                        { n.warnings = append(n.warnings, title) }

func (n *spyNotifier) lastDisplayed() *model.Conversation {
	if len(n.displayed) == 0 {
		return nil
	}
	return n.displayed[len(n.displayed)-1]
}

// =============================================================================
// HARNESS
// =============================================================================

type harness struct {
	ctrl     *Controller
	gen      *fakeGenerator
	rec      *fakeRecorder
	notifier *spyNotifier
	outcomes chan tasks.Outcome
}

func newHarness(t *testing.T, gen *fakeGenerator, tr *fakeTranscriber) *harness {
	t.Helper()

	cfg := &config.Config{
		DataDir: t.TempDir(),
		History: config.HistoryConfig{MaxConversations: 10, MaxFavorites: 2},
		Modes: []config.ModeConfig{
			{Key: "counsel", Title: "相談", AssistantLabel: "Mind-Chat", SystemPrompt: "counsel prompt"},
			{Key: "career", Title: "キャリア", AssistantLabel: "Mind-Chat", SystemPrompt: "career prompt"},
		},
	}

	h := &harness{
		gen:      gen,
		rec:      &fakeRecorder{pcm: []byte{1, 2, 3, 4}},
		notifier: &spyNotifier{},
		outcomes: make(chan tasks.Outcome, 4),
	}

	ctrl, err := NewController(cfg, Deps{
		Generator:   gen,
		Transcriber: tr,
		Recorder:    h.rec,
		Notifier:    h.notifier,
		NotifyOutcome: func(out tasks.Outcome) {
			h.outcomes <- out
		},
	})
	require.NoError(t, err)
	h.ctrl = ctrl
	ctrl.Bootstrap()
	return h
}

// pump waits for the next terminal outcome and applies it on the test
// goroutine, the way the TUI loop does.
func (h *harness) pump(t *testing.T) tasks.Outcome {
	t.Helper()
	select {
	case out := <-h.outcomes:
		h.ctrl.HandleOutcome(out)
		return out
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for task outcome")
		return tasks.Outcome{}
	}
}

// =============================================================================
// TESTS
// =============================================================================

func TestBootstrap_CreatesConversationWhenEmpty(t *testing.T) {
	h := newHarness(t, newFakeGenerator("", nil), &fakeTranscriber{})

	require.NotNil(t, h.notifier.lastDisplayed())
	assert.NotEmpty(t, h.ctrl.Active().CurrentID())
	assert.Equal(t, 1, h.ctrl.Active().Store.Len())
}

func TestSubmitMessage_Success(t *testing.T) {
	gen := newFakeGenerator("応答です", nil)
	h := newHarness(t, gen, &fakeTranscriber{})

	require.NoError(t, h.ctrl.SubmitMessage("こんにちは"))

	// Optimistic append is visible before the task finishes.
	conv := h.notifier.lastDisplayed()
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, model.RoleUser, conv.Messages[0].Role)

	close(gen.gate)
	h.pump(t)

	conv = h.notifier.lastDisplayed()
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, model.RoleAssistant, conv.Messages[1].Role)
	assert.Equal(t, "応答です", conv.Messages[1].Content)
	assert.Equal(t, "counsel prompt", gen.gotPrompt)
	assert.Equal(t, []bool{true, false}, h.notifier.busy)
}

func TestSubmitMessage_FailureRollsBack(t *testing.T) {
	gen := newFakeGenerator("", errors.New("model unavailable"))
	h := newHarness(t, gen, &fakeTranscriber{})

	require.NoError(t, h.ctrl.SubmitMessage("相談があります"))
	close(gen.gate)
	h.pump(t)

	// The optimistic user message is gone, exactly as if never sent.
	conv, err := h.ctrl.Active().Store.Get(h.ctrl.Active().CurrentID())
	require.NoError(t, err)
	assert.Empty(t, conv.Messages)
	assert.Contains(t, h.notifier.warnings, "応答生成に失敗しました")
}

func TestSubmitMessage_EmptyRefused(t *testing.T) {
	h := newHarness(t, newFakeGenerator("", nil), &fakeTranscriber{})

	assert.ErrorIs(t, h.ctrl.SubmitMessage("   \n\t"), ErrEmptyMessage)
	conv, err := h.ctrl.Active().Store.Get(h.ctrl.Active().CurrentID())
	require.NoError(t, err)
	assert.Empty(t, conv.Messages)
}

func TestSubmitMessage_RefusedWhileBusy(t *testing.T) {
	gen := newFakeGenerator("最初の応答", nil)
	h := newHarness(t, gen, &fakeTranscriber{})

	require.NoError(t, h.ctrl.SubmitMessage("一つ目"))
	assert.ErrorIs(t, h.ctrl.SubmitMessage("二つ目"), ErrBusy)

	close(gen.gate)
	h.pump(t)

	// Only the accepted message and its reply exist.
	conv, err := h.ctrl.Active().Store.Get(h.ctrl.Active().CurrentID())
	require.NoError(t, err)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "一つ目", conv.Messages[0].Content)
}

func TestHandleOutcome_PinnedToLaunchConversation(t *testing.T) {
	gen := newFakeGenerator("遅れて届いた応答", nil)
	h := newHarness(t, gen, &fakeTranscriber{})

	require.NoError(t, h.ctrl.SubmitMessage("元の会話への質問"))
	origID := h.ctrl.Active().CurrentID()

	// User opens a fresh conversation while inference is still running.
	h.ctrl.CreateConversation()
	require.NotEqual(t, origID, h.ctrl.Active().CurrentID())

	close(gen.gate)
	h.pump(t)

	// The reply landed in the conversation it was started against.
	orig, err := h.ctrl.Active().Store.Get(origID)
	require.NoError(t, err)
	require.Len(t, orig.Messages, 2)
	assert.Equal(t, "遅れて届いた応答", orig.Messages[1].Content)

	current, err := h.ctrl.Active().Store.Get(h.ctrl.Active().CurrentID())
	require.NoError(t, err)
	assert.Empty(t, current.Messages)
}

func TestSwitchMode(t *testing.T) {
	h := newHarness(t, newFakeGenerator("", nil), &fakeTranscriber{})

	require.NoError(t, h.ctrl.SwitchMode("career"))
	assert.Equal(t, "career", h.ctrl.ActiveKey())
	assert.NotEmpty(t, h.ctrl.Active().CurrentID())

	assert.ErrorIs(t, h.ctrl.SwitchMode("nonexistent"), ErrUnknownMode)
	assert.Equal(t, "career", h.ctrl.ActiveKey())
}

func TestSwitchMode_RefusedWhileBusy(t *testing.T) {
	gen := newFakeGenerator("応答", nil)
	h := newHarness(t, gen, &fakeTranscriber{})

	require.NoError(t, h.ctrl.SubmitMessage("質問"))
	assert.ErrorIs(t, h.ctrl.SwitchMode("career"), ErrBusy)
	assert.Equal(t, "counsel", h.ctrl.ActiveKey())

	close(gen.gate)
	h.pump(t)
	require.NoError(t, h.ctrl.SwitchMode("career"))
}

func TestSwitchMode_KeepsPerModeState(t *testing.T) {
	gen := newFakeGenerator("応答", nil)
	h := newHarness(t, gen, &fakeTranscriber{})

	require.NoError(t, h.ctrl.SubmitMessage("counselの話"))
	close(gen.gate)
	h.pump(t)
	counselID := h.ctrl.Active().CurrentID()

	require.NoError(t, h.ctrl.SwitchMode("career"))
	assert.Equal(t, 1, h.ctrl.Active().Store.Len())

	require.NoError(t, h.ctrl.SwitchMode("counsel"))
	assert.Equal(t, counselID, h.ctrl.Active().CurrentID())
	conv, err := h.ctrl.Active().Store.Get(counselID)
	require.NoError(t, err)
	assert.Len(t, conv.Messages, 2)
}

func TestToggleFavorite_LimitWarns(t *testing.T) {
	h := newHarness(t, newFakeGenerator("", nil), &fakeTranscriber{})
	store := h.ctrl.Active().Store

	var ids []string
	ids = append(ids, h.ctrl.Active().CurrentID())
	for i := 0; i < 2; i++ {
		conv, err := store.Create()
		require.NoError(t, err)
		ids = append(ids, conv.ID)
	}

	h.ctrl.ToggleFavorite(ids[0])
	h.ctrl.ToggleFavorite(ids[1])
	assert.Empty(t, h.notifier.warnings)

	// Third favorite exceeds the ceiling of 2.
	h.ctrl.ToggleFavorite(ids[2])
	assert.Contains(t, h.notifier.warnings, "お気に入り制限")
	assert.Equal(t, 2, store.FavoriteCount())
}

func TestRecording_TranscriptionFeedsPendingInput(t *testing.T) {
	h := newHarness(t, newFakeGenerator("", nil), &fakeTranscriber{text: "音声からの入力"})

	require.NoError(t, h.ctrl.StartRecording())
	assert.True(t, h.rec.Recording())
	assert.Equal(t, []bool{true}, h.notifier.recording)

	require.NoError(t, h.ctrl.StopRecording())
	h.pump(t)

	assert.Equal(t, []string{"音声からの入力"}, h.notifier.suggested)
	assert.Equal(t, "音声からの入力", h.ctrl.Active().PendingInput())

	// The recognized text was buffered, never sent.
	conv, err := h.ctrl.Active().Store.Get(h.ctrl.Active().CurrentID())
	require.NoError(t, err)
	assert.Empty(t, conv.Messages)
}

func TestRecording_SubmitRefusedWhileRecording(t *testing.T) {
	h := newHarness(t, newFakeGenerator("", nil), &fakeTranscriber{text: "x"})

	require.NoError(t, h.ctrl.StartRecording())
	assert.ErrorIs(t, h.ctrl.SubmitMessage("録音中の送信"), ErrRecording)
	assert.ErrorIs(t, h.ctrl.SwitchMode("career"), ErrRecording)
}

func TestRecording_TranscriptionDroppedAfterModeSwitch(t *testing.T) {
	h := newHarness(t, newFakeGenerator("", nil), &fakeTranscriber{text: "迷子のテキスト"})

	require.NoError(t, h.ctrl.StartRecording())
	require.NoError(t, h.ctrl.StopRecording())

	// Wait for the task to finish, switch modes, then deliver the outcome.
	var out tasks.Outcome
	select {
	case out = <-h.outcomes:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for transcription")
	}
	require.NoError(t, h.ctrl.SwitchMode("career"))

	h.ctrl.HandleOutcome(out)

	assert.Empty(t, h.notifier.suggested)
	assert.Empty(t, h.ctrl.Active().PendingInput())
}

func TestRecording_TranscriptionFailureWarns(t *testing.T) {
	h := newHarness(t, newFakeGenerator("", nil),
		&fakeTranscriber{err: errors.New("server unreachable")})

	require.NoError(t, h.ctrl.StartRecording())
	require.NoError(t, h.ctrl.StopRecording())
	h.pump(t)

	assert.Contains(t, h.notifier.warnings, "音声認識に失敗しました")
	assert.Empty(t, h.ctrl.Active().PendingInput())
}

func TestApplyStyling_PresentationOnly(t *testing.T) {
	h := newHarness(t, newFakeGenerator("", nil), &fakeTranscriber{})

	reloaded := &config.Config{
		History: config.HistoryConfig{MaxConversations: 1, MaxFavorites: 1},
		Modes: []config.ModeConfig{
			{Key: "counsel", Title: "心の相談", AssistantLabel: "こころ", SystemPrompt: "changed", Accent: "#FF00FF"},
			{Key: "extra", Title: "未知", SystemPrompt: "x"},
		},
	}
	h.ctrl.ApplyStyling(reloaded)

	mode := h.ctrl.Active().Mode
	assert.Equal(t, "心の相談", mode.Title)
	assert.Equal(t, "こころ", mode.AssistantLabel)
	assert.Equal(t, "#FF00FF", mode.Accent)

	// Behavioral fields stay as loaded at startup.
	assert.Equal(t, "counsel prompt", mode.SystemPrompt)

	// Modes absent from the reload keep their styling; modes the reload
	// adds are not created at runtime.
	assert.Equal(t, "キャリア", h.ctrl.sessions["career"].Mode.Title)
	assert.NotContains(t, h.ctrl.sessions, "extra")
	assert.Equal(t, []string{"counsel", "career"}, h.ctrl.ModeKeys())
}

func TestShutdown_SuppressesLateOutcome(t *testing.T) {
	gen := newFakeGenerator("届かない応答", nil)
	h := newHarness(t, gen, &fakeTranscriber{})

	require.NoError(t, h.ctrl.SubmitMessage("質問"))
	close(gen.gate)

	h.ctrl.Shutdown()

	// After CancelAll returns no notification may arrive.
	select {
	case out := <-h.outcomes:
		t.Fatalf("unexpected outcome after shutdown: %+v", out)
	case <-time.After(100 * time.Millisecond):
	}

	_, err := h.ctrl.Orchestrator().Start(tasks.KindInference, "", func(ctx context.Context) (string, error) {
		return "", nil
	})
	assert.ErrorIs(t, err, tasks.ErrStopped)
}
