package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jpegBytes = append([]byte{0xff, 0xd8, 0xff, 0xe0}, bytes.Repeat([]byte{0x11}, 700)...)

// fileHeader builds a real multipart.FileHeader for content.
func fileHeader(t *testing.T, filename, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["file"][0]
}

func newUploads(store ObjectStorage, max int64) *UploadService {
	s := NewUploadService(store, max, zerolog.Nop())
	s.now = func() time.Time { return time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC) }
	return s
}

func TestUploadStoresWholeFile(t *testing.T) {
	var gotKey, gotType string
	var gotBody []byte
	store := &mockObjects{PutFunc: func(_ context.Context, key string, r io.Reader, size int64, ct string) error {
		gotKey, gotType = key, ct
		b, err := io.ReadAll(r)
		gotBody = b
		assert.Equal(t, int64(len(b)), size)
		return err
	}}
	res, err := newUploads(store, 5<<20).Upload(context.Background(), KindVehicle, fileHeader(t, "car.jpg", "image/jpeg", jpegBytes))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(gotKey, "vehicles/2026/05/04/"), gotKey)
	assert.True(t, strings.HasSuffix(gotKey, ".jpg"))
	assert.Equal(t, "image/jpeg", gotType)
	assert.Equal(t, jpegBytes, gotBody)
	assert.Equal(t, "https://cdn.test/"+gotKey, res.URL)
}

func TestUploadRejections(t *testing.T) {
	store := &mockObjects{PutFunc: func(context.Context, string, io.Reader, int64, string) error {
		t.Fatal("rejected files must not be stored")
		return nil
	}}
	svc := newUploads(store, 600)

	_, err := svc.Upload(context.Background(), KindLogo, fileHeader(t, "big.jpg", "image/jpeg", jpegBytes))
	assert.ErrorIs(t, err, ErrFileTooLarge)

	svc = newUploads(store, 5<<20)
	_, err = svc.Upload(context.Background(), KindLogo, fileHeader(t, "x.php", "image/png", []byte("<?php system($_GET['c']); ?>")))
	assert.ErrorIs(t, err, ErrNotAnImage)

	_, err = svc.Upload(context.Background(), KindLogo, fileHeader(t, "x.svg", "image/svg+xml", []byte("<svg onload=alert(1)></svg>")))
	assert.ErrorIs(t, err, ErrNotAnImage)

	_, err = svc.Upload(context.Background(), KindLogo, fileHeader(t, "x.png", "image/png", jpegBytes))
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestUploadAcceptsJpgAlias(t *testing.T) {
	store := &mockObjects{PutFunc: func(context.Context, string, io.Reader, int64, string) error { return nil }}
	_, err := newUploads(store, 5<<20).Upload(context.Background(), KindVehicle, fileHeader(t, "a.jpg", "image/jpg", jpegBytes))
	assert.NoError(t, err)
}

func TestUploadWithoutStorage(t *testing.T) {
	_, err := newUploads(nil, 0).Upload(context.Background(), KindVehicle, fileHeader(t, "a.jpg", "", jpegBytes))
	assert.ErrorIs(t, err, ErrStorageDisabled)
}

func TestPublicURL(t *testing.T) {
	svc := newUploads(&mockObjects{}, 0)
	assert.Equal(t, DefaultVehicleImage, svc.PublicURL("", DefaultVehicleImage))
	assert.Equal(t, "/uploads/old.png", svc.PublicURL("/uploads/old.png", DefaultVehicleImage))
	assert.Equal(t, "https://elsewhere/a.png", svc.PublicURL("https://elsewhere/a.png", ""))
	assert.Equal(t, "https://cdn.test/vehicles/a.jpg", svc.PublicURL("vehicles/a.jpg", ""))
	assert.Equal(t, "fallback", newUploads(nil, 0).PublicURL("vehicles/a.jpg", "fallback"))
}

func TestCheck(t *testing.T) {
	store := &mockObjects{ExistsFunc: func(_ context.Context, key string) (bool, error) {
		switch key {
		case "vehicles/ok.jpg":
			return true, nil
		case "vehicles/broken.jpg":
			return false, errors.New("timeout")
		}
		return false, nil
	}}
	got := newUploads(store, 0).Check(context.Background(), []string{"vehicles/ok.jpg", "vehicles/gone.jpg", "vehicles/broken.jpg", "/legacy/a.png"})
	require.Len(t, got, 4)
	assert.True(t, got[0].Exists)
	assert.False(t, got[1].Exists)
	assert.Empty(t, got[1].Error)
	assert.Equal(t, "lookup failed", got[2].Error)
	assert.Equal(t, "not an object key", got[3].Error)
}
