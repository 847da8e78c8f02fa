package FirebaseHandlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"log"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

const (
	pictureQuality = 75
	urlExpiry      = 24 * time.Hour
)

var errNoBucket = errors.New("no storage bucket configured")

// PictureStore keeps profile pictures in Cloud Storage under profilePics/.
type PictureStore struct {
	Bucket *storage.BucketHandle
}

// transcodeJPEG re-encodes any supported image as a JPEG.
func transcodeJPEG(r io.Reader) ([]byte, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decoding picture: %w", err)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: pictureQuality}); err != nil {
		return nil, fmt.Errorf("encoding picture: %w", err)
	}
	return buf.Bytes(), nil
}

func newPictureName() string {
	return profilePicPrefix + uuid.NewString() + ".jpg"
}

// Upload stores the picture and returns its object name.
func (p *PictureStore) Upload(ctx context.Context, r io.Reader) (string, error) {
	if p == nil || p.Bucket == nil {
		return "", errNoBucket
	}
	data, err := transcodeJPEG(r)
	if err != nil {
		return "", err
	}
	name := newPictureName()
	writer := p.Bucket.Object(name).NewWriter(ctx)
	writer.ContentType = "image/jpeg"
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return "", fmt.Errorf("uploading %s: %w", name, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("uploading %s: %w", name, err)
	}
	return name, nil
}

func (p *PictureStore) Delete(ctx context.Context, name string) {
	if p == nil || p.Bucket == nil || !strings.HasPrefix(name, profilePicPrefix) {
		return
	}
	if err := p.Bucket.Object(name).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		log.Printf("Failed to delete picture %s: %v", name, err)
	}
}

// URL signs a short lived download link; "" when there is no picture.
func (p *PictureStore) URL(name string) string {
	if p == nil || p.Bucket == nil || name == "" {
		return ""
	}
	url, err := p.Bucket.SignedURL(name, &storage.SignedURLOptions{
		Method:  "GET",
		Expires: time.Now().Add(urlExpiry),
		Scheme:  storage.SigningSchemeV4,
	})
	if err != nil {
		log.Printf("Failed to sign %s: %v", name, err)
		return ""
	}
	return url
}

// summarize keeps the order of ids and skips users that no longer exist.
func summarize(ids []string, users map[string]User, pictures *PictureStore) []UserSummary {
	summaries := make([]UserSummary, 0, len(ids))
	for _, id := range ids {
		user, ok := users[id]
		if !ok {
			continue
		}
		summaries = append(summaries, UserSummary{
			Id:            id,
			Name:          user.Name,
			ProfilePicUrl: pictures.URL(user.ProfilePic),
		})
	}
	return summaries
}
