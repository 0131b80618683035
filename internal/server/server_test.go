package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Minggyul/AI-Image-Craft/internal/agent"
	"github.com/Minggyul/AI-Image-Craft/internal/chat"
	"github.com/Minggyul/AI-Image-Craft/internal/config"
	"github.com/Minggyul/AI-Image-Craft/internal/refine"
	"github.com/Minggyul/AI-Image-Craft/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type stubRefiner struct {
	reply chat.Message
	err   error
}

func (s *stubRefiner) Refine(ctx context.Context, history []chat.Message) (chat.Message, error) {
	if s.err != nil {
		return chat.Message{}, s.err
	}
	return s.reply, nil
}

type stubRenderer struct {
	path string
	err  error
}

func (s *stubRenderer) Render(ctx context.Context, prompt string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.path, nil
}

func newTestRouter(t *testing.T, refiner agent.Refiner, renderer agent.Renderer) (*gin.Engine, *store.MemStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	memStore := store.New()
	turnAgent := agent.New(memStore, refiner, renderer)
	srv := New(memStore, turnAgent)
	router := srv.Router(config.ImagesConfig{Dir: t.TempDir(), PublicPath: "/images"})
	return router, memStore
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func defaultStubs() (*stubRefiner, *stubRenderer) {
	refiner := &stubRefiner{
		reply: chat.Message{
			Role: chat.RoleAssistant,
			FunctionCall: &chat.FunctionCall{
				Name:      refine.FunctionName,
				Arguments: `{"prompt": "a red cube"}`,
			},
		},
	}
	renderer := &stubRenderer{path: "/images/test.png"}
	return refiner, renderer
}

func TestCreateConversation_ReturnsIncreasingIDs(t *testing.T) {
	refiner, renderer := defaultStubs()
	router, _ := newTestRouter(t, refiner, renderer)

	first := doJSON(router, http.MethodPost, "/api/conversations", "")
	require.Equal(t, http.StatusOK, first.Code)

	var conv chat.Conversation
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &conv))
	require.Equal(t, 1, conv.ID)
	require.Empty(t, conv.Messages)

	second := doJSON(router, http.MethodPost, "/api/conversations", "")
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &conv))
	require.Equal(t, 2, conv.ID)
}

func TestGetConversation_NotFound(t *testing.T) {
	refiner, renderer := defaultStubs()
	router, _ := newTestRouter(t, refiner, renderer)

	w := doJSON(router, http.MethodGet, "/api/conversations/99", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "Conversation not found")
}

func TestGetConversation_NonIntegerID(t *testing.T) {
	refiner, renderer := defaultStubs()
	router, _ := newTestRouter(t, refiner, renderer)

	w := doJSON(router, http.MethodGet, "/api/conversations/abc", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostMessage_FullTurn(t *testing.T) {
	refiner, renderer := defaultStubs()
	router, memStore := newTestRouter(t, refiner, renderer)

	created, err := memStore.CreateConversation(nil)
	require.NoError(t, err)

	w := doJSON(router, http.MethodPost, "/api/conversations/1/messages",
		`{"message": {"role": "user", "content": "draw a red cube"}}`)
	require.Equal(t, http.StatusOK, w.Code)

	var conv chat.Conversation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conv))
	require.Equal(t, created.ID, conv.ID)
	require.Len(t, conv.Messages, 3)
	require.Equal(t, chat.RoleFunction, conv.Messages[2].Role)
	require.Equal(t, "generate_image", conv.Messages[2].Name)
	require.JSONEq(t, `{"imagePath":"/images/test.png"}`, conv.Messages[2].Content)
}

func TestPostMessage_InvalidBody(t *testing.T) {
	refiner, renderer := defaultStubs()
	router, memStore := newTestRouter(t, refiner, renderer)
	_, err := memStore.CreateConversation(nil)
	require.NoError(t, err)

	for _, body := range []string{``, `{}`, `{"message": "plain string"}`} {
		w := doJSON(router, http.MethodPost, "/api/conversations/1/messages", body)
		require.Equal(t, http.StatusBadRequest, w.Code, "body %q", body)
		require.Contains(t, w.Body.String(), "Invalid message format")
	}
}

func TestPostMessage_InvalidRole(t *testing.T) {
	refiner, renderer := defaultStubs()
	router, memStore := newTestRouter(t, refiner, renderer)
	_, err := memStore.CreateConversation(nil)
	require.NoError(t, err)

	w := doJSON(router, http.MethodPost, "/api/conversations/1/messages",
		`{"message": {"role": "robot", "content": "beep"}}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostMessage_UnknownConversation(t *testing.T) {
	refiner, renderer := defaultStubs()
	router, memStore := newTestRouter(t, refiner, renderer)

	w := doJSON(router, http.MethodPost, "/api/conversations/13/messages",
		`{"message": {"role": "user", "content": "hi"}}`)
	require.Equal(t, http.StatusNotFound, w.Code)

	// A failed lookup leaves no side effects behind.
	images, err := memStore.GetGeneratedImages(13)
	require.NoError(t, err)
	require.Empty(t, images)
}

func TestPostMessage_RefinementFailure(t *testing.T) {
	refiner := &stubRefiner{err: errors.New("model unavailable")}
	router, memStore := newTestRouter(t, refiner, &stubRenderer{})
	_, err := memStore.CreateConversation(nil)
	require.NoError(t, err)

	w := doJSON(router, http.MethodPost, "/api/conversations/1/messages",
		`{"message": {"role": "user", "content": "hi"}}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Contains(t, w.Body.String(), "model unavailable")

	stored, err := memStore.GetConversation(1)
	require.NoError(t, err)
	require.Empty(t, stored.Messages)
}

func TestListImages_FiltersByConversation(t *testing.T) {
	refiner, renderer := defaultStubs()
	router, memStore := newTestRouter(t, refiner, renderer)

	one, two := 1, 2
	_, err := memStore.SaveGeneratedImage("cube", "/images/1.png", &one)
	require.NoError(t, err)
	_, err = memStore.SaveGeneratedImage("sphere", "/images/2.png", &two)
	require.NoError(t, err)

	w := doJSON(router, http.MethodGet, "/api/conversations/1/images", "")
	require.Equal(t, http.StatusOK, w.Code)

	var images []chat.GeneratedImage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &images))
	require.Len(t, images, 1)
	require.Equal(t, "cube", images[0].Prompt)
}

func TestHealthz(t *testing.T) {
	refiner, renderer := defaultStubs()
	router, _ := newTestRouter(t, refiner, renderer)

	w := doJSON(router, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
}
