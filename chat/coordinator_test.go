package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeLog struct {
	mu     sync.Mutex
	logs   map[string][]Message
	broker *Broker

	ensureCalls int
	failAppend  error
}

func newFakeLog() *fakeLog {
	return &fakeLog{logs: make(map[string][]Message), broker: NewBroker()}
}

func (f *fakeLog) EnsureExists(ctx context.Context, conversationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensureCalls++
	if _, ok := f.logs[conversationID]; !ok {
		f.logs[conversationID] = []Message{}
	}
	return nil
}

func (f *fakeLog) Append(ctx context.Context, conversationID string, msg Message) error {
	f.mu.Lock()
	if f.failAppend != nil {
		f.mu.Unlock()
		return f.failAppend
	}
	f.logs[conversationID] = append(f.logs[conversationID], msg)
	snapshot := append([]Message(nil), f.logs[conversationID]...)
	f.mu.Unlock()

	f.broker.Publish(conversationID, snapshot)
	return nil
}

func (f *fakeLog) Messages(ctx context.Context, conversationID string) ([]Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.logs[conversationID]...), nil
}

func (f *fakeLog) Subscribe(ctx context.Context, conversationID string, fn func([]Message)) (Unsubscribe, error) {
	unsub := f.broker.Subscribe(conversationID, fn)
	snapshot, _ := f.Messages(ctx, conversationID)
	fn(snapshot)
	return unsub, nil
}

type fakeIndex struct {
	mu      sync.Mutex
	entries map[string]map[string]IndexEntry // userID -> conversationID -> entry
	failFor map[string]error                 // userID -> error
	patches int
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{
		entries: make(map[string]map[string]IndexEntry),
		failFor: make(map[string]error),
	}
}

func (f *fakeIndex) seed(userID, conversationID, counterpartID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.entries[userID] == nil {
		f.entries[userID] = make(map[string]IndexEntry)
	}
	f.entries[userID][conversationID] = IndexEntry{
		ConversationID: conversationID,
		Counterpart:    User{ID: counterpartID},
	}
}

func (f *fakeIndex) Entries(ctx context.Context, userID string) ([]IndexEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []IndexEntry
	for _, entry := range f.entries[userID] {
		out = append(out, entry)
	}
	return out, nil
}

func (f *fakeIndex) UpsertEntry(ctx context.Context, userID, conversationID string, patch EntryPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor[userID]; err != nil {
		return err
	}
	entry, ok := f.entries[userID][conversationID]
	if !ok {
		return nil // entries are only created at conversation creation
	}
	entry.LastMessage = patch.LastMessage
	entry.IsSeen = patch.IsSeen
	entry.UpdatedAt = patch.UpdatedAt
	f.entries[userID][conversationID] = entry
	f.patches++
	return nil
}

func (f *fakeIndex) MarkSeen(ctx context.Context, userID, conversationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[userID][conversationID]
	if !ok {
		return nil
	}
	entry.IsSeen = true
	f.entries[userID][conversationID] = entry
	return nil
}

func (f *fakeIndex) entry(t *testing.T, userID, conversationID string) IndexEntry {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[userID][conversationID]
	if !ok {
		t.Fatalf("no index entry for %s/%s", userID, conversationID)
	}
	return entry
}

type fakeBlocks struct {
	mu      sync.Mutex
	blocked map[string]map[string]bool
}

func newFakeBlocks() *fakeBlocks {
	return &fakeBlocks{blocked: make(map[string]map[string]bool)}
}

func (f *fakeBlocks) SetBlocked(ctx context.Context, userID, targetID string, blocked bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.blocked[userID] == nil {
		f.blocked[userID] = make(map[string]bool)
	}
	if blocked {
		f.blocked[userID][targetID] = true
	} else {
		delete(f.blocked[userID], targetID)
	}
	return nil
}

func (f *fakeBlocks) IsBlocked(ctx context.Context, userID, targetID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blocked[userID][targetID], nil
}

type fakeBlobs struct {
	uploads int
	fail    error
}

func (f *fakeBlobs) Upload(ctx context.Context, name string, data []byte) (string, error) {
	if f.fail != nil {
		return "", f.fail
	}
	f.uploads++
	return "https://blobs.test/" + name, nil
}

type fixture struct {
	logs   *fakeLog
	index  *fakeIndex
	blocks *fakeBlocks
	blobs  *fakeBlobs
	coord  *SyncCoordinator
}

const (
	convID = "c1"
	u1     = "u1"
	u2     = "u2"
)

func newFixture() *fixture {
	f := &fixture{
		logs:   newFakeLog(),
		index:  newFakeIndex(),
		blocks: newFakeBlocks(),
		blobs:  &fakeBlobs{},
	}
	f.index.seed(u1, convID, u2)
	f.index.seed(u2, convID, u1)
	f.coord = NewSyncCoordinator(f.logs, f.index, f.blocks, f.blobs)
	return f
}

func TestSendAppendsExactlyOneMessage(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	msg, err := f.coord.SendMessage(ctx, convID, u1, u2, "hi", nil)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if msg == nil {
		t.Fatal("expected a message, got no-op")
	}

	log, _ := f.logs.Messages(ctx, convID)
	if len(log) != 1 {
		t.Fatalf("log length = %d, want 1", len(log))
	}
	if log[0].SenderID != u1 || log[0].Text != "hi" {
		t.Fatalf("unexpected last message: %+v", log[0])
	}

	sender := f.index.entry(t, u1, convID)
	if sender.LastMessage != "hi" || !sender.IsSeen {
		t.Fatalf("sender entry = %+v, want lastMessage hi and seen", sender)
	}
	recipient := f.index.entry(t, u2, convID)
	if recipient.LastMessage != "hi" || recipient.IsSeen {
		t.Fatalf("recipient entry = %+v, want lastMessage hi and unseen", recipient)
	}
}

func TestSendBlockedEitherDirection(t *testing.T) {
	ctx := context.Background()

	for name, setup := range map[string]func(*fixture){
		"recipient blocks sender": func(f *fixture) { f.blocks.SetBlocked(ctx, u2, u1, true) },
		"sender blocks recipient": func(f *fixture) { f.blocks.SetBlocked(ctx, u1, u2, true) },
		"mutual": func(f *fixture) {
			f.blocks.SetBlocked(ctx, u1, u2, true)
			f.blocks.SetBlocked(ctx, u2, u1, true)
		},
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture()
			setup(f)

			_, err := f.coord.SendMessage(ctx, convID, u1, u2, "hi", nil)
			if !errors.Is(err, ErrBlocked) {
				t.Fatalf("err = %v, want ErrBlocked", err)
			}

			log, _ := f.logs.Messages(ctx, convID)
			if len(log) != 0 {
				t.Fatalf("log length = %d, want 0", len(log))
			}
			if f.index.patches != 0 {
				t.Fatalf("index patches = %d, want 0", f.index.patches)
			}
		})
	}
}

func TestBlockedPairStillReadsHistory(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.coord.SendMessage(ctx, convID, u1, u2, "hi", nil); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	f.blocks.SetBlocked(ctx, u2, u1, true)

	if _, err := f.coord.SendMessage(ctx, convID, u1, u2, "again", nil); !errors.Is(err, ErrBlocked) {
		t.Fatalf("err = %v, want ErrBlocked", err)
	}

	log, err := f.logs.Messages(ctx, convID)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(log) != 1 || log[0].Text != "hi" {
		t.Fatalf("history changed under block: %+v", log)
	}
}

func TestSendEmptyComposerIsNoOp(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for _, text := range []string{"", "   ", "\n\t"} {
		msg, err := f.coord.SendMessage(ctx, convID, u1, u2, text, nil)
		if err != nil || msg != nil {
			t.Fatalf("SendMessage(%q) = (%v, %v), want no-op", text, msg, err)
		}
	}

	log, _ := f.logs.Messages(ctx, convID)
	if len(log) != 0 {
		t.Fatalf("log length = %d, want 0", len(log))
	}
}

func TestUploadFailureAbortsSend(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.blobs.fail = errors.New("quota exceeded")

	_, err := f.coord.SendMessage(ctx, convID, u1, u2, "with pic", &Attachment{Name: "pic.png", Data: []byte{1}})
	var uploadErr *UploadError
	if !errors.As(err, &uploadErr) {
		t.Fatalf("err = %v, want *UploadError", err)
	}

	// No text-only fallback: the whole send aborts.
	log, _ := f.logs.Messages(ctx, convID)
	if len(log) != 0 {
		t.Fatalf("log length = %d, want 0", len(log))
	}
	if f.index.patches != 0 {
		t.Fatalf("index patches = %d, want 0", f.index.patches)
	}
}

func TestAttachmentURLOnMessage(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	msg, err := f.coord.SendMessage(ctx, convID, u1, u2, "", &Attachment{Name: "pic.png", Data: []byte{1}})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if msg.Img != "https://blobs.test/pic.png" {
		t.Fatalf("msg.Img = %q", msg.Img)
	}
	if f.blobs.uploads != 1 {
		t.Fatalf("uploads = %d, want 1", f.blobs.uploads)
	}
}

func TestIndexFailureDoesNotFailSend(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.index.failFor[u2] = errors.New("write timeout")

	msg, err := f.coord.SendMessage(ctx, convID, u1, u2, "hi", nil)
	if err != nil || msg == nil {
		t.Fatalf("SendMessage = (%v, %v), want success", msg, err)
	}

	log, _ := f.logs.Messages(ctx, convID)
	if len(log) != 1 {
		t.Fatalf("log length = %d, want 1", len(log))
	}
	// The sender's patch still landed even though the recipient's dropped.
	if sender := f.index.entry(t, u1, convID); sender.LastMessage != "hi" {
		t.Fatalf("sender entry = %+v", sender)
	}
	if recipient := f.index.entry(t, u2, convID); recipient.LastMessage != "" {
		t.Fatalf("recipient entry patched despite failure: %+v", recipient)
	}
}

func TestAppendFailurePropagates(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.logs.failAppend = ErrWriteConflict

	_, err := f.coord.SendMessage(ctx, convID, u1, u2, "hi", nil)
	if !errors.Is(err, ErrWriteConflict) {
		t.Fatalf("err = %v, want ErrWriteConflict", err)
	}
	// The index is only patched after a durable append.
	if f.index.patches != 0 {
		t.Fatalf("index patches = %d, want 0", f.index.patches)
	}
}

func TestEnsureExistsIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.coord.SendMessage(ctx, convID, u1, u2, "one", nil); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if err := f.logs.EnsureExists(ctx, convID); err != nil {
		t.Fatalf("EnsureExists: %v", err)
	}

	log, _ := f.logs.Messages(ctx, convID)
	if len(log) != 1 {
		t.Fatalf("log length = %d after re-ensure, want 1", len(log))
	}
}

func TestSimultaneousSendsBothLand(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		f.coord.SendMessage(ctx, convID, u1, u2, "from u1", nil)
	}()
	go func() {
		defer wg.Done()
		f.coord.SendMessage(ctx, convID, u2, u1, "from u2", nil)
	}()
	wg.Wait()

	log, _ := f.logs.Messages(ctx, convID)
	if len(log) != 2 {
		t.Fatalf("log length = %d, want 2 (no message may be lost)", len(log))
	}
	seen := map[string]bool{}
	for _, msg := range log {
		seen[msg.Text] = true
	}
	if !seen["from u1"] || !seen["from u2"] {
		t.Fatalf("log = %+v, want both messages in some order", log)
	}
}

func TestWatchDeliversSnapshots(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	var mu sync.Mutex
	var snapshots [][]Message
	unsub, err := f.coord.Watch(ctx, convID, func(snapshot []Message) {
		mu.Lock()
		snapshots = append(snapshots, snapshot)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer unsub()

	mu.Lock()
	if len(snapshots) != 1 || len(snapshots[0]) != 0 {
		t.Fatalf("want one immediate empty snapshot, got %+v", snapshots)
	}
	mu.Unlock()

	if _, err := f.coord.SendMessage(ctx, convID, u1, u2, "hi", nil); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(snapshots) != 2 {
		t.Fatalf("snapshot count = %d, want 2", len(snapshots))
	}
	// Snapshots are total, never deltas.
	if got := snapshots[1]; len(got) != 1 || got[0].Text != "hi" {
		t.Fatalf("second snapshot = %+v", got)
	}
}

func TestSendComposed(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	comp := &Composer{Text: "hello"}
	msg, err := f.coord.SendComposed(ctx, convID, u1, u2, comp)
	if err != nil || msg == nil {
		t.Fatalf("SendComposed = (%v, %v)", msg, err)
	}
	if comp.Text != "" || comp.Attachment != nil {
		t.Fatalf("composer not cleared after durable send: %+v", comp)
	}
}

func TestFailedSendKeepsComposer(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.blobs.fail = errors.New("transport down")

	comp := &Composer{Text: "hello", Attachment: &Attachment{Name: "pic.png", Data: []byte{1}}}
	if _, err := f.coord.SendComposed(ctx, convID, u1, u2, comp); err == nil {
		t.Fatal("expected upload failure")
	}
	// The user retries manually from the still-populated composer.
	if comp.Text != "hello" || comp.Attachment == nil {
		t.Fatalf("composer cleared on failed send: %+v", comp)
	}
}

func TestMessageTimestampsFromClock(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.coord.now = func() time.Time { return fixed }

	msg, err := f.coord.SendMessage(ctx, convID, u1, u2, "hi", nil)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if !msg.CreatedAt.Equal(fixed) {
		t.Fatalf("CreatedAt = %v, want %v", msg.CreatedAt, fixed)
	}
	if entry := f.index.entry(t, u1, convID); !entry.UpdatedAt.Equal(fixed) {
		t.Fatalf("entry UpdatedAt = %v, want %v", entry.UpdatedAt, fixed)
	}
}
