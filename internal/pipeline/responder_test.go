package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliasbr/fanvoice/internal/models"
	"github.com/eliasbr/fanvoice/internal/storage"
)

type fakeCompleter struct {
	reply string
	err   error
	calls int
}

func (f *fakeCompleter) Reply(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.reply, f.err
}

type fakeSynth struct {
	audio []byte
	err   error
	texts []string
}

func (f *fakeSynth) Synthesize(_ context.Context, text string) ([]byte, error) {
	f.texts = append(f.texts, text)
	return f.audio, f.err
}

type fakeSender struct {
	err   error
	chats []string
	audio [][]byte
}

func (f *fakeSender) SendVoiceReply(_ context.Context, chatID string, audio []byte) error {
	f.chats = append(f.chats, chatID)
	f.audio = append(f.audio, audio)
	return f.err
}

type memStore struct {
	mu      sync.Mutex
	letters []models.DeadLetter
}

func (m *memStore) CreateDeadLetter(_ context.Context, d *models.DeadLetter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.letters = append(m.letters, *d)
	return nil
}

func (m *memStore) GetDeadLetter(_ context.Context, id string) (*models.DeadLetter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.letters {
		if m.letters[i].ID == id {
			d := m.letters[i]
			return &d, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListDeadLetters(_ context.Context, _, _ int) ([]models.DeadLetter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.DeadLetter(nil), m.letters...), nil
}

func (m *memStore) DeleteDeadLetter(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.letters {
		if m.letters[i].ID == id {
			m.letters = append(m.letters[:i], m.letters[i+1:]...)
			break
		}
	}
	return nil
}

func (m *memStore) GetStats(_ context.Context) (*storage.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &storage.Stats{
		TotalDeadLetters: int64(len(m.letters)),
		ByStage:          map[string]int64{},
	}
	for _, d := range m.letters {
		stats.ByStage[string(d.Stage)]++
	}
	return stats, nil
}

func (m *memStore) Migrate(_ context.Context) error { return nil }
func (m *memStore) Close() error                    { return nil }

func (m *memStore) stages() []models.Stage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stages []models.Stage
	for _, d := range m.letters {
		stages = append(stages, d.Stage)
	}
	return stages
}

func testJob() Job {
	return Job{
		ID:      "job_test",
		Message: models.InboundMessage{ChatID: "c1", UserID: "u1", Text: "hi"},
	}
}

func TestRespondHappyPath(t *testing.T) {
	completer := &fakeCompleter{reply: "hey you"}
	synth := &fakeSynth{audio: []byte("mp3")}
	sender := &fakeSender{}
	store := &memStore{}

	r := NewResponder(completer, synth, sender, store, zerolog.Nop())
	r.Respond(context.Background(), testJob())

	assert.Equal(t, 1, completer.calls)
	require.Equal(t, []string{"hey you"}, synth.texts)
	require.Equal(t, []string{"c1"}, sender.chats)
	assert.Equal(t, []byte("mp3"), sender.audio[0])
	assert.Empty(t, store.stages())
}

func TestRespondCompletionFailureDeadLetters(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("api down")}
	synth := &fakeSynth{audio: []byte("mp3")}
	sender := &fakeSender{}
	store := &memStore{}

	r := NewResponder(completer, synth, sender, store, zerolog.Nop())
	r.Respond(context.Background(), testJob())

	assert.Empty(t, synth.texts)
	assert.Empty(t, sender.chats)
	assert.Equal(t, []models.Stage{models.StageCompletion}, store.stages())
}

func TestRespondSynthesisFailureDeadLetters(t *testing.T) {
	completer := &fakeCompleter{reply: "hey"}
	synth := &fakeSynth{err: errors.New("status 500")}
	sender := &fakeSender{}
	store := &memStore{}

	r := NewResponder(completer, synth, sender, store, zerolog.Nop())
	r.Respond(context.Background(), testJob())

	assert.Empty(t, sender.chats)
	assert.Equal(t, []models.Stage{models.StageSynthesis}, store.stages())
}

func TestRespondSendFailureDeadLetters(t *testing.T) {
	completer := &fakeCompleter{reply: "hey"}
	synth := &fakeSynth{audio: []byte("mp3")}
	sender := &fakeSender{err: errors.New("upload rejected")}
	store := &memStore{}

	r := NewResponder(completer, synth, sender, store, zerolog.Nop())
	r.Respond(context.Background(), testJob())

	assert.Equal(t, []models.Stage{models.StageSend}, store.stages())
}

func TestRespondNilSenderStopsAfterSynthesis(t *testing.T) {
	completer := &fakeCompleter{reply: "hey"}
	synth := &fakeSynth{audio: []byte("mp3")}
	store := &memStore{}

	r := NewResponder(completer, synth, nil, store, zerolog.Nop())
	r.Respond(context.Background(), testJob())

	require.Equal(t, []string{"hey"}, synth.texts)
	assert.Empty(t, store.stages())
}

func TestRespondDeadLetterCarriesMessage(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("boom")}
	store := &memStore{}

	r := NewResponder(completer, &fakeSynth{}, nil, store, zerolog.Nop())
	r.Respond(context.Background(), testJob())

	letters, err := store.ListDeadLetters(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, letters, 1)
	assert.Equal(t, "c1", letters[0].ChatID)
	assert.Equal(t, "u1", letters[0].UserID)
	assert.Equal(t, "hi", letters[0].Text)
	assert.Equal(t, "boom", letters[0].Error)
	assert.NotEmpty(t, letters[0].ID)
}
