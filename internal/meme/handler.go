package meme

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/memebin/service/internal/response"
)

// Handler holds HTTP handlers for meme endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a new meme Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type deletedData struct {
	Message string `json:"message" example:"meme deleted"`
}

// List godoc
//
//	@Summary		List memes
//	@Description	Returns a paginated list of memes. Each item carries a freshly generated, time-limited access URL for its image; an item whose URL could not be resolved is returned with an empty url.
//	@Tags			memes
//	@Produce		json
//	@Param			page		query		int	false	"Page number (default 1)"
//	@Param			page_size	query		int	false	"Items per page (default 10, max 100)"
//	@Success		200			{object}	response.Envelope{data=Page}
//	@Failure		400			{object}	response.Envelope
//	@Failure		500			{object}	response.Envelope
//	@Router			/memes [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, ok := queryInt(r, "page", 1)
	if !ok || page < 1 {
		response.BadRequest(w, "page must be a positive integer")
		return
	}
	pageSize, ok := queryInt(r, "page_size", defaultPageSize)
	if !ok || pageSize < 1 || pageSize > maxPageSize {
		response.BadRequest(w, "page_size must be between 1 and 100")
		return
	}

	result, err := h.svc.List(r.Context(), page, pageSize)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, result)
}

// Get godoc
//
//	@Summary		Get meme
//	@Description	Returns a single meme by id with a fresh access URL for its image.
//	@Tags			memes
//	@Produce		json
//	@Param			id	path		int	true	"Meme ID"
//	@Success		200	{object}	response.Envelope{data=View}
//	@Failure		400	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/memes/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.BadRequest(w, "invalid meme id")
		return
	}

	v, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, v)
}

// Create godoc
//
//	@Summary		Create meme
//	@Description	Creates a meme from a title and an image file (png, jpg, jpeg, or gif). The image is stored first; the metadata record is only written once the upload succeeds.
//	@Tags			memes
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			title	formData	string	true	"Meme title"
//	@Param			file	formData	file	true	"Image file"
//	@Success		201		{object}	response.Envelope{data=View}
//	@Failure		400		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/memes [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	title, file, header, err := parseUploadForm(r, true)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	defer file.Close()

	v, err := h.svc.Create(r.Context(), title, file, header.Size, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.Created(w, v)
}

// Update godoc
//
//	@Summary		Update meme
//	@Description	Replaces the title and optionally the image. A new image is uploaded under a new object key; the previous object is left in place for offline cleanup.
//	@Tags			memes
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			id		path		int		true	"Meme ID"
//	@Param			title	formData	string	true	"New title"
//	@Param			file	formData	file	false	"Replacement image file"
//	@Success		200		{object}	response.Envelope{data=View}
//	@Failure		400		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/memes/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.BadRequest(w, "invalid meme id")
		return
	}

	title, file, header, err := parseUploadForm(r, false)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	var v *View
	if file != nil {
		defer file.Close()
		v, err = h.svc.Update(r.Context(), id, title, file, header.Size, header.Filename, header.Header.Get("Content-Type"))
	} else {
		v, err = h.svc.Update(r.Context(), id, title, nil, 0, "", "")
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, v)
}

// Delete godoc
//
//	@Summary		Delete meme
//	@Description	Removes the stored image and then the metadata record. If the image removal fails the record is kept so the delete can be retried.
//	@Tags			memes
//	@Produce		json
//	@Param			id	path		int	true	"Meme ID"
//	@Success		200	{object}	response.Envelope{data=deletedData}
//	@Failure		400	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/memes/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.BadRequest(w, "invalid meme id")
		return
	}

	deleted, err := h.svc.Delete(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !deleted {
		response.NotFound(w, "meme not found")
		return
	}
	response.OK(w, deletedData{Message: "meme deleted"})
}

// writeError maps service errors to HTTP status codes.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "meme not found")
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrUnsupportedMedia):
		response.BadRequest(w, err.Error())
	default:
		response.InternalError(w)
	}
}

// parseUploadForm extracts the title and the optional file part from a
// multipart form. When fileRequired is set a missing file is an error.
// The returned file is nil when the request carried none.
func parseUploadForm(r *http.Request, fileRequired bool) (string, multipart.File, *multipart.FileHeader, error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return "", nil, nil, errors.New("invalid multipart form")
	}

	title := r.FormValue("title")

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		if fileRequired {
			return "", nil, nil, errors.New("image file is required")
		}
		return title, nil, nil, nil
	}
	if err != nil {
		return "", nil, nil, errors.New("invalid image file")
	}
	return title, file, header, nil
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func queryInt(r *http.Request, key string, fallback int) (int, bool) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
