package store

import (
	"errors"
	"testing"

	"github.com/Minggyul/AI-Image-Craft/internal/chat"
	"github.com/stretchr/testify/require"
)

func TestCreateConversation_AssignsIncreasingIDs(t *testing.T) {
	s := New()

	first, err := s.CreateConversation(nil)
	require.NoError(t, err)
	second, err := s.CreateConversation(nil)
	require.NoError(t, err)

	require.Equal(t, 1, first.ID)
	require.Equal(t, 2, second.ID)
	require.NotNil(t, first.Messages)
	require.Empty(t, first.Messages)
	require.False(t, first.CreatedAt.IsZero())
}

func TestGetConversation_NotFound(t *testing.T) {
	s := New()

	_, err := s.GetConversation(42)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateConversationMessages_UnknownID(t *testing.T) {
	s := New()

	_, err := s.UpdateConversationMessages(7, []chat.Message{{Role: chat.RoleUser, Content: "hi"}})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateConversationMessages_ReplacesWholeList(t *testing.T) {
	s := New()
	conv, err := s.CreateConversation([]chat.Message{{Role: chat.RoleUser, Content: "old"}})
	require.NoError(t, err)

	next := []chat.Message{
		{Role: chat.RoleUser, Content: "old"},
		{Role: chat.RoleAssistant, Content: "new"},
	}
	updated, err := s.UpdateConversationMessages(conv.ID, next)
	require.NoError(t, err)
	require.Len(t, updated.Messages, 2)

	got, err := s.GetConversation(conv.ID)
	require.NoError(t, err)
	require.Equal(t, next, got.Messages)
}

// Two writers committing against the same conversation are not guarded; the
// later full-list write wins. This characterizes the behavior, it does not
// endorse it.
func TestUpdateConversationMessages_LastWriteWins(t *testing.T) {
	s := New()
	conv, err := s.CreateConversation(nil)
	require.NoError(t, err)

	listA := []chat.Message{{Role: chat.RoleUser, Content: "from writer A"}}
	listB := []chat.Message{{Role: chat.RoleUser, Content: "from writer B"}}

	_, err = s.UpdateConversationMessages(conv.ID, listA)
	require.NoError(t, err)
	_, err = s.UpdateConversationMessages(conv.ID, listB)
	require.NoError(t, err)

	got, err := s.GetConversation(conv.ID)
	require.NoError(t, err)
	require.Equal(t, listB, got.Messages)
}

func TestGetConversation_ReturnsCopy(t *testing.T) {
	s := New()
	conv, err := s.CreateConversation([]chat.Message{{Role: chat.RoleUser, Content: "hi"}})
	require.NoError(t, err)

	got, err := s.GetConversation(conv.ID)
	require.NoError(t, err)
	got.Messages[0].Content = "mutated"

	again, err := s.GetConversation(conv.ID)
	require.NoError(t, err)
	require.Equal(t, "hi", again.Messages[0].Content)
}

func TestSaveGeneratedImage_AssignsIncreasingIDs(t *testing.T) {
	s := New()

	first, err := s.SaveGeneratedImage("a cat", "/images/a.png", nil)
	require.NoError(t, err)
	second, err := s.SaveGeneratedImage("a dog", "/images/b.png", nil)
	require.NoError(t, err)

	require.Equal(t, 1, first.ID)
	require.Equal(t, 2, second.ID)
	require.Nil(t, first.ConversationID)
}

func TestGetGeneratedImages_FiltersByConversation(t *testing.T) {
	s := New()
	one, two := 1, 2

	_, err := s.SaveGeneratedImage("first for one", "/images/1.png", &one)
	require.NoError(t, err)
	_, err = s.SaveGeneratedImage("for two", "/images/2.png", &two)
	require.NoError(t, err)
	_, err = s.SaveGeneratedImage("second for one", "/images/3.png", &one)
	require.NoError(t, err)
	_, err = s.SaveGeneratedImage("orphan", "/images/4.png", nil)
	require.NoError(t, err)

	images, err := s.GetGeneratedImages(one)
	require.NoError(t, err)
	require.Len(t, images, 2)
	require.Equal(t, "first for one", images[0].Prompt)
	require.Equal(t, "second for one", images[1].Prompt)

	empty, err := s.GetGeneratedImages(99)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestErrNotFound_IsDistinguishable(t *testing.T) {
	s := New()
	_, err := s.GetConversation(1)
	require.True(t, errors.Is(err, ErrNotFound))
}
