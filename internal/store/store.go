// Package store holds conversation and generated-image records in process
// memory. Records live for the lifetime of the process; there is no eviction
// and no durable backing.
package store

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/Minggyul/AI-Image-Craft/internal/chat"
)

// ErrNotFound is returned when a lookup or update names an id the store never
// issued. Callers translate it into a "resource missing" response.
var ErrNotFound = errors.New("store: conversation not found")

// Store is the persistence contract used by the orchestrator and handlers.
type Store interface {
	CreateConversation(initial []chat.Message) (chat.Conversation, error)
	GetConversation(id int) (chat.Conversation, error)
	UpdateConversationMessages(id int, messages []chat.Message) (chat.Conversation, error)
	SaveGeneratedImage(prompt, filePath string, conversationID *int) (chat.GeneratedImage, error)
	GetGeneratedImages(conversationID int) ([]chat.GeneratedImage, error)
}

// MemStore is the in-memory Store. The mutex makes id allocation and map
// access atomic; it does not guard against two concurrent turns writing the
// same conversation (last write wins).
type MemStore struct {
	mu sync.Mutex

	conversations map[int]chat.Conversation
	images        []chat.GeneratedImage

	nextConversationID int
	nextImageID        int
}

// New creates an empty MemStore. Ids start at 1.
func New() *MemStore {
	return &MemStore{
		conversations:      make(map[int]chat.Conversation),
		nextConversationID: 1,
		nextImageID:        1,
	}
}

// CreateConversation allocates the next id and stores the given message list
// (nil is stored as an empty list) with the current timestamp.
func (s *MemStore) CreateConversation(initial []chat.Message) (chat.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextConversationID
	s.nextConversationID++

	conv := chat.Conversation{
		ID:        id,
		Messages:  slices.Clone(initial),
		CreatedAt: time.Now(),
	}
	if conv.Messages == nil {
		conv.Messages = []chat.Message{}
	}
	s.conversations[id] = conv
	return conv, nil
}

// GetConversation returns the conversation or ErrNotFound. The returned
// message list is a copy; mutating it does not affect the store.
func (s *MemStore) GetConversation(id int) (chat.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return chat.Conversation{}, ErrNotFound
	}
	conv.Messages = slices.Clone(conv.Messages)
	return conv, nil
}

// UpdateConversationMessages replaces the conversation's entire message list.
// This is the sole mutation path: callers compute the full next-state list and
// commit it in one write.
func (s *MemStore) UpdateConversationMessages(id int, messages []chat.Message) (chat.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return chat.Conversation{}, ErrNotFound
	}
	conv.Messages = slices.Clone(messages)
	s.conversations[id] = conv

	conv.Messages = slices.Clone(conv.Messages)
	return conv, nil
}

// SaveGeneratedImage allocates the next image id and records one successful
// render. The conversation back-reference is not checked for existence.
func (s *MemStore) SaveGeneratedImage(prompt, filePath string, conversationID *int) (chat.GeneratedImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	img := chat.GeneratedImage{
		ID:             s.nextImageID,
		Prompt:         prompt,
		FilePath:       filePath,
		ConversationID: conversationID,
		CreatedAt:      time.Now(),
	}
	s.nextImageID++
	s.images = append(s.images, img)
	return img, nil
}

// GetGeneratedImages returns all image records for the conversation in
// insertion order.
func (s *MemStore) GetGeneratedImages(conversationID int) ([]chat.GeneratedImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []chat.GeneratedImage{}
	for _, img := range s.images {
		if img.ConversationID != nil && *img.ConversationID == conversationID {
			out = append(out, img)
		}
	}
	return out, nil
}
