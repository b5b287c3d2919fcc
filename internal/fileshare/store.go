// Package fileshare implements the File Exchange: an in-memory shared
// file store plus the stream endpoint that serves upload, download,
// and delete requests.
//
// Adapted from disk-backed storage keyed by a UUID to a pure
// in-memory store keyed by a monotonically increasing file ID: no
// persistence across restarts, integer IDs throughout.
package fileshare

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// Default limits, overridable at construction.
const (
	DefaultMaxFileSize  = 100 * 1024 * 1024        // MAX_FILE_SIZE
	DefaultMaxTotalSize = DefaultMaxFileSize * 10 // MAX_FILE_SIZE * MAX_USERS
)

var (
	// ErrTooLarge is UPLOAD-TOO-LARGE: declared size exceeds the per-file limit.
	ErrTooLarge = errors.New("fileshare: declared size exceeds maximum file size")
	// ErrStorageFull is returned when an upload would exceed the total-bytes ceiling.
	ErrStorageFull = errors.New("fileshare: storage full")
	// ErrIncomplete is UPLOAD-INCOMPLETE: EOF before size bytes were read.
	ErrIncomplete = errors.New("fileshare: upload incomplete")
	// ErrNotFound is returned by Download/Delete for an unknown file ID.
	ErrNotFound = errors.New("fileshare: file not found")
	// ErrUnauthorized is UNAUTHORIZED-DELETE: the requester is not the uploader.
	ErrUnauthorized = errors.New("fileshare: requester is not the uploader")
)

// File is a shared file record.
type File struct {
	ID               uint64
	Filename         string
	Size             int64
	UploaderID       uint32
	UploaderUsername string
	Bytes            []byte
	Timestamp        time.Time
}

// Store is the in-memory file store guarded by its own leaf-level
// lock, independent of the Participant Registry's lock.
type Store struct {
	maxFileSize  int64
	maxTotalSize int64

	mu         sync.RWMutex
	files      map[uint64]*File
	totalBytes int64
	nextID     atomic.Uint64

	onUpload func(*File)
	onDelete func(fileID uint64)
}

// NewStore constructs an empty store with the given per-file and
// total-bytes ceilings. Pass 0 for either to use the package default.
func NewStore(maxFileSize, maxTotalSize int64) *Store {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	if maxTotalSize <= 0 {
		maxTotalSize = DefaultMaxTotalSize
	}
	return &Store{
		maxFileSize:  maxFileSize,
		maxTotalSize: maxTotalSize,
		files:        make(map[uint64]*File),
	}
}

// SetOnUpload registers a callback invoked, outside the store's lock,
// after a successful upload.
func (s *Store) SetOnUpload(fn func(*File)) { s.onUpload = fn }

// SetOnDelete registers a callback invoked, outside the store's lock,
// after a successful delete.
func (s *Store) SetOnDelete(fn func(fileID uint64)) { s.onDelete = fn }

// Upload reads exactly size bytes from r and stores them under a new
// file ID. A declared size above the per-file ceiling is rejected
// before any read (UPLOAD-TOO-LARGE); an EOF before size bytes have
// been read discards the partial body (UPLOAD-INCOMPLETE) and stores
// nothing.
func (s *Store) Upload(uploaderID uint32, uploaderUsername, filename string, size int64, r io.Reader) (*File, error) {
	if size > s.maxFileSize {
		return nil, ErrTooLarge
	}

	s.mu.RLock()
	projected := s.totalBytes + size
	s.mu.RUnlock()
	if projected > s.maxTotalSize {
		return nil, ErrStorageFull
	}

	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, ErrIncomplete
	}

	f := &File{
		ID:               s.nextID.Add(1) - 1,
		Filename:         filename,
		Size:             size,
		UploaderID:       uploaderID,
		UploaderUsername: uploaderUsername,
		Bytes:            buf,
		Timestamp:        time.Now(),
	}

	s.mu.Lock()
	s.files[f.ID] = f
	s.totalBytes += size
	s.mu.Unlock()

	if s.onUpload != nil {
		s.onUpload(f)
	}
	return f, nil
}

// TotalBytes reports the current sum of stored file sizes, used by the
// ambient metrics logger and ops status endpoint.
func (s *Store) TotalBytes() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalBytes
}

// FileCount reports the number of files currently stored.
func (s *Store) FileCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}

// Download looks up a file by ID.
func (s *Store) Download(id uint64) (*File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[id]
	if !ok {
		return nil, ErrNotFound
	}
	return f, nil
}

// Delete removes a file if pid matches its uploader ID.
func (s *Store) Delete(id uint64, pid uint32) error {
	s.mu.Lock()
	f, ok := s.files[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	if f.UploaderID != pid {
		s.mu.Unlock()
		return ErrUnauthorized
	}
	delete(s.files, id)
	s.totalBytes -= f.Size
	s.mu.Unlock()

	if s.onDelete != nil {
		s.onDelete(id)
	}
	return nil
}
