// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ingest tracks document uploads against the backend's ingestion
// pipeline. Each upload is represented in the conversation as an upload-card
// message that advances through queued, processing and a terminal state while
// a background poller follows the backend job.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/chattaio/chattai-tui/internal/backend"
	"github.com/chattaio/chattai-tui/internal/model"
	"github.com/chattaio/chattai-tui/internal/store"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultPollInterval is how often a pending job is checked.
	DefaultPollInterval = 2 * time.Second

	// jobCompleted and jobFailed are the backend's terminal job states.
	// Anything else counts as still processing.
	jobCompleted = "completed"
	jobFailed    = "failed"
)

// =============================================================================
// EVENT TYPES
// =============================================================================

// EventKind classifies tracker notifications.
type EventKind int

const (
	// EventQueued signals that an upload card was added to the conversation.
	EventQueued EventKind = iota
	// EventProcessing signals that the backend accepted the file and the
	// poller started following the job.
	EventProcessing
	// EventIndexed signals that the document finished indexing.
	EventIndexed
	// EventFailed signals that the upload or the ingestion job failed.
	EventFailed
)

// Event describes a change to an upload card. MessageID identifies the
// card message in the conversation.
type Event struct {
	Kind      EventKind
	MessageID string
	Filename  string
	Err       error
}

// NotifyFunc receives tracker events. It is called from background
// goroutines and must be safe for concurrent use.
type NotifyFunc func(Event)

// =============================================================================
// TRACKER
// =============================================================================

// Tracker uploads files to the backend and polls their ingestion jobs,
// keeping the conversation's upload cards in sync.
type Tracker struct {
	store        *store.Store
	client       *backend.Client
	notify       NotifyFunc
	pollInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTracker creates a tracker. notify may be nil.
func NewTracker(st *store.Store, client *backend.Client, notify NotifyFunc) *Tracker {
	if notify == nil {
		notify = func(Event) {}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Tracker{
		store:        st,
		client:       client,
		notify:       notify,
		pollInterval: DefaultPollInterval,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// WithPollInterval overrides how often job status is checked.
func (t *Tracker) WithPollInterval(d time.Duration) *Tracker {
	if d > 0 {
		t.pollInterval = d
	}
	return t
}

// Upload adds an upload card for the file and starts the upload in the
// background. The card appears immediately in the queued state.
func (t *Tracker) Upload(path string) string {
	filename := filepath.Base(path)
	card := model.NewUploadCardMessage(filename)
	t.store.Dispatch(store.AppendMessage{Message: card})
	t.notify(Event{Kind: EventQueued, MessageID: card.ID, Filename: filename})

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.run(card.ID, filename, path)
	}()
	return card.ID
}

// Close stops all background uploads and pollers and waits for them to
// finish. In-flight jobs keep running on the backend.
func (t *Tracker) Close() {
	t.cancel()
	t.wg.Wait()
}

// run performs the upload and, if the backend queued a job, polls it to
// completion.
func (t *Tracker) run(messageID, filename, path string) {
	resp, err := t.client.UploadFile(t.ctx, path)
	if err != nil {
		t.fail(messageID, filename, err)
		return
	}

	// Deduplicated uploads finish immediately; there is no job to follow.
	if resp.Skipped() {
		t.complete(messageID, filename, fmt.Sprintf("✅ Already indexed: %s", filename))
		return
	}

	t.patchCard(messageID, func(card *model.UploadCard) {
		card.Status = model.UploadProcessing
		card.JobID = resp.JobID
	})
	t.notify(Event{Kind: EventProcessing, MessageID: messageID, Filename: filename})

	t.poll(messageID, filename, resp.JobID)
}

// poll follows the ingestion job until it reaches a terminal state.
// Transient status errors are ignored and the job is checked again on the
// next tick.
func (t *Tracker) poll(messageID, filename, jobID string) {
	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.ctx.Done():
			return
		case <-ticker.C:
		}

		status, err := t.client.JobStatus(t.ctx, jobID)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			continue
		}

		switch status.Status {
		case jobCompleted:
			t.complete(messageID, filename, fmt.Sprintf("✅ Indexed: %s", filename))
			return
		case jobFailed:
			detail := status.Error
			if detail == "" {
				detail = "ingestion failed"
			}
			t.fail(messageID, filename, errors.New(detail))
			return
		}
	}
}

// complete marks the card done and announces the result in the conversation.
func (t *Tracker) complete(messageID, filename, announcement string) {
	t.patchCard(messageID, func(card *model.UploadCard) {
		card.Status = model.UploadDone
	})
	t.store.Dispatch(store.AppendMessage{Message: model.NewSystemMessage(announcement)})
	t.notify(Event{Kind: EventIndexed, MessageID: messageID, Filename: filename})
}

// fail marks the card failed with a human-readable detail.
func (t *Tracker) fail(messageID, filename string, err error) {
	detail := err.Error()
	var backendErr *backend.BackendError
	if errors.As(err, &backendErr) {
		detail = backendErr.UserDetail()
	}
	t.patchCard(messageID, func(card *model.UploadCard) {
		card.Status = model.UploadFailed
		card.Error = detail
	})
	t.notify(Event{Kind: EventFailed, MessageID: messageID, Filename: filename, Err: err})
}

// patchCard applies fn to the current card state and dispatches the result.
func (t *Tracker) patchCard(messageID string, fn func(*model.UploadCard)) {
	card := t.currentCard(messageID)
	if card == nil {
		card = &model.UploadCard{}
	}
	fn(card)
	t.store.Dispatch(store.UpdateMessage{
		ID:    messageID,
		Patch: model.MessagePatch{UploadCard: card},
	})
}

// currentCard returns a copy of the card as stored, or nil if the message
// is gone or the conversation changed.
func (t *Tracker) currentCard(messageID string) *model.UploadCard {
	conv, ok := t.store.ActiveConversation()
	if !ok {
		return nil
	}
	idx := conv.FindMessage(messageID)
	if idx < 0 || conv.Messages[idx].UploadCard == nil {
		return nil
	}
	card := *conv.Messages[idx].UploadCard
	return &card
}
