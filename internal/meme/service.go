package meme

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/memebin/service/internal/storage"
)

// ErrInvalidInput is returned when a required field is missing or empty.
var ErrInvalidInput = errors.New("invalid input")

// ErrUnsupportedMedia is returned when the upload is not an allowed image type.
var ErrUnsupportedMedia = errors.New("unsupported media type")

// ErrStorageWrite is returned when the blob upload fails; no metadata is written.
var ErrStorageWrite = errors.New("object storage write failed")

// ErrStorageDelete is returned when the blob removal fails; the metadata row is retained.
var ErrStorageDelete = errors.New("object storage delete failed")

// ErrStorageRead is returned when an access URL cannot be resolved.
var ErrStorageRead = errors.New("object storage read failed")

const (
	maxPageSize     = 100
	defaultPageSize = 10
)

// MetadataStore is the slice of the repository the service needs. *Repository
// implements it; tests substitute a double.
type MetadataStore interface {
	Count(ctx context.Context) (int64, error)
	List(ctx context.Context, limit, offset int) ([]*Meme, error)
	GetByID(ctx context.Context, id int64) (*Meme, error)
	Create(ctx context.Context, title, bucket, objectKey string) (*Meme, error)
	Update(ctx context.Context, id int64, title, objectKey string) (*Meme, error)
	Delete(ctx context.Context, id int64) error
}

// View is the externally visible projection of a Meme: the record plus a
// freshly resolved, time-limited access URL. The URL is never persisted or
// cached; it is recomputed on every read.
type View struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Bucket    string    `json:"bucket"`
	ObjectKey string    `json:"objectKey"`
	URL       string    `json:"url,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Page is a paginated listing of meme views. Total counts every record,
// not just the current window.
type Page struct {
	Items    []View `json:"items"`
	Total    int64  `json:"total"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
}

// Service keeps the metadata store and the object store consistent across
// create, update, and delete. There is no transaction spanning both stores;
// consistency relies on strict operation ordering — the blob write happens
// before the metadata write on create/update, and the blob removal happens
// before the row delete on delete.
type Service struct {
	repo       MetadataStore
	store      storage.ObjectStorage
	bucket     string
	presignTTL time.Duration
}

// NewService creates a new meme Service writing objects into bucket.
func NewService(repo MetadataStore, store storage.ObjectStorage, bucket string, presignTTL time.Duration) *Service {
	return &Service{repo: repo, store: store, bucket: bucket, presignTTL: presignTTL}
}

// List returns one page of memes ordered by id ascending, plus the total
// record count. A presign failure for a single record degrades that item to
// an empty URL rather than failing the whole page.
func (s *Service) List(ctx context.Context, page, pageSize int) (*Page, error) {
	if page < 1 || pageSize < 1 || pageSize > maxPageSize {
		return nil, fmt.Errorf("%w: page=%d pageSize=%d", ErrInvalidInput, page, pageSize)
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, err
	}

	offset := (page - 1) * pageSize
	memes, err := s.repo.List(ctx, pageSize, offset)
	if err != nil {
		return nil, err
	}

	items := make([]View, 0, len(memes))
	for _, m := range memes {
		items = append(items, s.view(ctx, m))
	}

	return &Page{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// Get returns the meme with the given id, or ErrNotFound.
func (s *Service) Get(ctx context.Context, id int64) (*View, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	v := s.view(ctx, m)
	return &v, nil
}

// Create validates the upload, writes the blob, and only then inserts the
// metadata row — a failed upload leaves no trace in either store.
func (s *Service) Create(ctx context.Context, title string, content io.Reader, size int64, filename, contentType string) (*View, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if content == nil || filename == "" {
		return nil, fmt.Errorf("%w: image file is required", ErrInvalidInput)
	}
	if err := validateUpload(filename, contentType); err != nil {
		return nil, err
	}

	key := newObjectKey(filename)
	if err := s.store.Upload(ctx, s.bucket, key, content, size, contentType); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}

	m, err := s.repo.Create(ctx, title, s.bucket, key)
	if err != nil {
		return nil, err
	}

	v := s.view(ctx, m)
	return &v, nil
}

// Update replaces the title and optionally the image. A nil content reader
// means title-only. When new content is uploaded the record is repointed at
// the new object key; the superseded blob is left in place for an offline
// sweep rather than deleted eagerly.
func (s *Service) Update(ctx context.Context, id int64, title string, content io.Reader, size int64, filename, contentType string) (*View, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	prev, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var key string
	if content != nil {
		if filename == "" {
			return nil, fmt.Errorf("%w: filename is required", ErrInvalidInput)
		}
		if err := validateUpload(filename, contentType); err != nil {
			return nil, err
		}
		key = newObjectKey(filename)
		if err := s.store.Upload(ctx, s.bucket, key, content, size, contentType); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorageWrite, err)
		}
		log.Printf("meme %d: object %q superseded by %q", id, prev.ObjectKey, key)
	}

	m, err := s.repo.Update(ctx, id, title, key)
	if err != nil {
		return nil, err
	}

	v := s.view(ctx, m)
	return &v, nil
}

// Delete removes the blob first and the metadata row second, so a failed
// blob removal keeps the row and the delete can be retried. Returns false
// when no meme matches id.
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	m, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := s.store.Delete(ctx, m.Bucket, m.ObjectKey); err != nil {
		return false, fmt.Errorf("%w: %v", ErrStorageDelete, err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			// Row vanished between the lookup and the delete; the blob is
			// gone either way, so report success.
			return true, nil
		}
		return false, err
	}
	return true, nil
}

// IsNotFound returns true when the error indicates a missing meme.
func (s *Service) IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// view projects a record into its external shape with a fresh access URL.
// A presign failure degrades the URL to empty; the record itself is returned.
func (s *Service) view(ctx context.Context, m *Meme) View {
	v := View{
		ID:        m.ID,
		Title:     m.Title,
		Bucket:    m.Bucket,
		ObjectKey: m.ObjectKey,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	url, err := s.store.PresignedURL(ctx, m.Bucket, m.ObjectKey, s.presignTTL)
	if err != nil {
		log.Printf("meme %d: %v", m.ID, fmt.Errorf("%w: %v", ErrStorageRead, err))
		return v
	}
	v.URL = url
	return v
}
