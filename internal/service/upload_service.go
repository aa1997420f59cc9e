package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/iliyamo/carwash-dashboard/internal/media/sniffer"
)

// Object key prefixes per upload kind.
const (
	KindVehicle = "vehicles"
	KindLogo    = "logos"
	KindProfile = "profiles"
)

// DefaultVehicleImage is shown for vehicles without a photo.
const DefaultVehicleImage = "/assets/images/default-car.png"

var (
	ErrFileTooLarge    = errors.New("file too large")
	ErrNotAnImage      = errors.New("file is not a supported image")
	ErrTypeMismatch    = errors.New("declared content type does not match file")
	ErrEmptyFile       = errors.New("empty file")
	ErrStorageDisabled = errors.New("object storage not configured")
)

// ObjectStorage is the subset of storage.ObjectStore used by uploads.
type ObjectStorage interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Exists(ctx context.Context, key string) (bool, error)
	PublicURL(key string) string
}

// StoredImage describes an accepted upload.
type StoredImage struct {
	Key  string
	URL  string
	MIME string
	Size int64
}

// UploadService validates image uploads and writes them to object storage.
type UploadService struct {
	store    ObjectStorage
	maxBytes int64
	log      zerolog.Logger
	now      func() time.Time
}

func NewUploadService(store ObjectStorage, maxBytes int64, log zerolog.Logger) *UploadService {
	return &UploadService{store: store, maxBytes: maxBytes, log: log, now: time.Now}
}

// Upload checks fh (size, sniffed type, declared type) and stores it under
// kind/yyyy/mm/dd/<uuid>.<ext>.
func (s *UploadService) Upload(ctx context.Context, kind string, fh *multipart.FileHeader) (StoredImage, error) {
	if s.store == nil {
		return StoredImage{}, ErrStorageDisabled
	}
	if fh == nil || fh.Size == 0 {
		return StoredImage{}, ErrEmptyFile
	}
	if s.maxBytes > 0 && fh.Size > s.maxBytes {
		return StoredImage{}, ErrFileTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return StoredImage{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	result, head, err := sniffer.Detect(f)
	if err != nil {
		if errors.Is(err, sniffer.ErrUnknownType) {
			return StoredImage{}, ErrNotAnImage
		}
		return StoredImage{}, fmt.Errorf("read head: %w", err)
	}
	if !result.Raster() {
		return StoredImage{}, ErrNotAnImage
	}
	if declared := sniffer.MimeTypeFromHTTP(http.Header(fh.Header)); declared != "" && declared != "application/octet-stream" && declared != result.MIME {
		// image/jpg is a common alias sent by older browsers.
		if !(declared == "image/jpg" && result.Type == sniffer.TypeJPEG) {
			return StoredImage{}, fmt.Errorf("%w: declared %s, actual %s", ErrTypeMismatch, declared, result.MIME)
		}
	}

	key := s.buildObjectKey(kind, result.Ext())
	body := io.MultiReader(bytes.NewReader(head), f)
	if err := s.store.Put(ctx, key, body, fh.Size, result.MIME); err != nil {
		return StoredImage{}, err
	}
	return StoredImage{Key: key, URL: s.store.PublicURL(key), MIME: result.MIME, Size: fh.Size}, nil
}

func (s *UploadService) buildObjectKey(kind, ext string) string {
	datePrefix := s.now().UTC().Format("2006/01/02")
	return path.Join(kind, datePrefix, fmt.Sprintf("%s.%s", uuid.NewString(), ext))
}

// PublicURL maps a stored image path to a browser URL.  Empty paths give
// fallback; absolute URLs and site paths from older rows pass through.
func (s *UploadService) PublicURL(stored, fallback string) string {
	stored = strings.TrimSpace(stored)
	switch {
	case stored == "":
		return fallback
	case strings.HasPrefix(stored, "http://"), strings.HasPrefix(stored, "https://"), strings.HasPrefix(stored, "/"):
		return stored
	case s.store == nil:
		return fallback
	}
	return s.store.PublicURL(stored)
}

// ImageCheck is the presence report of a stored object.
type ImageCheck struct {
	Key    string `json:"image_path"`
	Exists bool   `json:"exists"`
	Error  string `json:"error,omitempty"`
}

// Check reports whether each stored object key still exists.  Site paths
// from older rows cannot be checked and are reported as missing.
func (s *UploadService) Check(ctx context.Context, keys []string) []ImageCheck {
	out := make([]ImageCheck, 0, len(keys))
	for _, k := range keys {
		c := ImageCheck{Key: k}
		switch {
		case s.store == nil:
			c.Error = ErrStorageDisabled.Error()
		case strings.HasPrefix(k, "/") || strings.Contains(k, "://"):
			c.Error = "not an object key"
		default:
			ok, err := s.store.Exists(ctx, k)
			if err != nil {
				s.log.Warn().Err(err).Str("key", k).Msg("stat object failed")
				c.Error = "lookup failed"
			}
			c.Exists = ok
		}
		out = append(out, c)
	}
	return out
}
