package meme_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/memebin/service/internal/meme"
	"github.com/memebin/service/internal/response"
)

func newTestRouter() (*chi.Mux, *mockRepo, *mockStorage) {
	repo := new(mockRepo)
	store := new(mockStorage)
	svc := meme.NewService(repo, store, testBucket, 15*time.Minute)
	h := meme.NewHandler(svc)

	r := chi.NewRouter()
	r.Route("/memes", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
	return r, repo, store
}

// multipartBody builds a multipart form with a title field and, when
// filename is non-empty, a file part carrying the given content type.
func multipartBody(t *testing.T, title, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	assert.NoError(t, w.WriteField("title", title))

	if filename != "" {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		assert.NoError(t, err)
		_, err = part.Write(content)
		assert.NoError(t, err)
	}

	assert.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var env response.Envelope
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func TestHandler_List(t *testing.T) {
	r, repo, store := newTestRouter()

	repo.On("Count", mock.Anything).Return(int64(1), nil)
	repo.On("List", mock.Anything, 10, 0).Return([]*meme.Meme{record(1, "cat", "a.jpg")}, nil)
	store.On("PresignedURL", mock.Anything, testBucket, "a.jpg", mock.Anything).Return("http://minio/memes/a.jpg", nil)

	req := httptest.NewRequest(http.MethodGet, "/memes", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)

	data := env.Data.(map[string]interface{})
	assert.Equal(t, float64(1), data["total"])
	assert.Equal(t, float64(1), data["page"])
	assert.Equal(t, float64(10), data["pageSize"])
	assert.Len(t, data["items"], 1)
}

func TestHandler_List_BadPagination(t *testing.T) {
	r, _, _ := newTestRouter()

	for _, target := range []string{
		"/memes?page=0",
		"/memes?page=abc",
		"/memes?page_size=0",
		"/memes?page_size=101",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestHandler_Get_NotFound(t *testing.T) {
	r, repo, _ := newTestRouter()

	repo.On("GetByID", mock.Anything, int64(99)).Return(nil, meme.ErrNotFound)

	req := httptest.NewRequest(http.MethodGet, "/memes/99", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "meme not found", env.Error)
}

func TestHandler_Get_BadID(t *testing.T) {
	r, _, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/memes/notanumber", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Create(t *testing.T) {
	r, repo, store := newTestRouter()

	store.On("Upload", mock.Anything, testBucket, mock.MatchedBy(jpegKey), mock.Anything, mock.Anything, "image/jpeg").Return(nil)
	repo.On("Create", mock.Anything, "cat.jpg", testBucket, mock.MatchedBy(jpegKey)).
		Return(record(1, "cat.jpg", "abc.jpg"), nil)
	store.On("PresignedURL", mock.Anything, testBucket, "abc.jpg", mock.Anything).Return("http://minio/memes/abc.jpg", nil)

	body, contentType := multipartBody(t, "cat.jpg", "cat.jpg", "image/jpeg", bytes.Repeat([]byte{0xd8}, 10<<10))
	req := httptest.NewRequest(http.MethodPost, "/memes", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)

	data := env.Data.(map[string]interface{})
	assert.Equal(t, "cat.jpg", data["title"])
	assert.Equal(t, "abc.jpg", data["objectKey"])
	assert.NotEmpty(t, data["url"])
}

func TestHandler_Create_MissingFile(t *testing.T) {
	r, repo, store := newTestRouter()

	body, contentType := multipartBody(t, "cat", "", "", nil)
	req := httptest.NewRequest(http.MethodPost, "/memes", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_Create_UnsupportedMedia(t *testing.T) {
	r, _, _ := newTestRouter()

	body, contentType := multipartBody(t, "nope", "virus.exe", "application/octet-stream", []byte{0x4d})
	req := httptest.NewRequest(http.MethodPost, "/memes", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Contains(t, env.Error, "unsupported media type")
}

func TestHandler_Create_StorageFailure(t *testing.T) {
	r, _, store := newTestRouter()

	store.On("Upload", mock.Anything, testBucket, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("boom"))

	body, contentType := multipartBody(t, "cat", "cat.png", "image/png", []byte{0x89})
	req := httptest.NewRequest(http.MethodPost, "/memes", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandler_Update_TitleOnly(t *testing.T) {
	r, repo, store := newTestRouter()

	repo.On("GetByID", mock.Anything, int64(7)).Return(record(7, "old", "keep.jpg"), nil)
	repo.On("Update", mock.Anything, int64(7), "cat (renamed)", "").
		Return(record(7, "cat (renamed)", "keep.jpg"), nil)
	store.On("PresignedURL", mock.Anything, testBucket, "keep.jpg", mock.Anything).Return("http://minio/memes/keep.jpg", nil)

	body, contentType := multipartBody(t, "cat (renamed)", "", "", nil)
	req := httptest.NewRequest(http.MethodPut, "/memes/7", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	data := env.Data.(map[string]interface{})
	assert.Equal(t, "cat (renamed)", data["title"])
	assert.Equal(t, "keep.jpg", data["objectKey"])
	store.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_Delete(t *testing.T) {
	r, repo, store := newTestRouter()

	repo.On("GetByID", mock.Anything, int64(3)).Return(record(3, "bye", "bye.gif"), nil)
	store.On("Delete", mock.Anything, testBucket, "bye.gif").Return(nil)
	repo.On("Delete", mock.Anything, int64(3)).Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/memes/3", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	data := env.Data.(map[string]interface{})
	assert.Equal(t, "meme deleted", data["message"])
}

func TestHandler_Delete_NotFound(t *testing.T) {
	r, repo, _ := newTestRouter()

	repo.On("GetByID", mock.Anything, int64(404)).Return(nil, meme.ErrNotFound)

	req := httptest.NewRequest(http.MethodDelete, "/memes/404", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// Lifecycle walk-through: create, rename without a new file, delete, get.
func TestHandler_Lifecycle(t *testing.T) {
	repo := new(mockRepo)
	store := new(mockStorage)
	svc := meme.NewService(repo, store, testBucket, 15*time.Minute)
	ctx := context.Background()

	created := record(1, "cat.jpg", "k1.jpg")
	store.On("Upload", mock.Anything, testBucket, mock.MatchedBy(jpegKey), mock.Anything, mock.Anything, "image/jpeg").Return(nil)
	repo.On("Create", mock.Anything, "cat.jpg", testBucket, mock.MatchedBy(jpegKey)).Return(created, nil)
	store.On("PresignedURL", mock.Anything, testBucket, "k1.jpg", mock.Anything).Return("http://minio/memes/k1.jpg", nil)

	v, err := svc.Create(ctx, "cat.jpg", bytes.NewReader(bytes.Repeat([]byte{1}, 10<<10)), 10<<10, "cat.jpg", "image/jpeg")
	assert.NoError(t, err)
	assert.NotEmpty(t, v.Title)
	assert.True(t, jpegKey(v.ObjectKey))
	assert.NotEmpty(t, v.URL)

	renamed := record(1, "cat (renamed)", "k1.jpg")
	repo.On("GetByID", mock.Anything, int64(1)).Return(created, nil).Once()
	repo.On("Update", mock.Anything, int64(1), "cat (renamed)", "").Return(renamed, nil)

	v, err = svc.Update(ctx, 1, "cat (renamed)", nil, 0, "", "")
	assert.NoError(t, err)
	assert.Equal(t, "cat (renamed)", v.Title)
	assert.Equal(t, "k1.jpg", v.ObjectKey)

	repo.On("GetByID", mock.Anything, int64(1)).Return(renamed, nil).Once()
	store.On("Delete", mock.Anything, testBucket, "k1.jpg").Return(nil)
	repo.On("Delete", mock.Anything, int64(1)).Return(nil)

	deleted, err := svc.Delete(ctx, 1)
	assert.NoError(t, err)
	assert.True(t, deleted)

	repo.On("GetByID", mock.Anything, int64(1)).Return(nil, meme.ErrNotFound).Once()
	_, err = svc.Get(ctx, 1)
	assert.ErrorIs(t, err, meme.ErrNotFound)
}
