// Package imagestore guarda as fotos de produto no Google Cloud Storage.
package imagestore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"

	apperror "gostore/internal/errors"
)

// MaxImageBytes é o tamanho máximo aceito para upload.
const MaxImageBytes = 8 << 20

const publicBaseURL = "https://storage.googleapis.com"

var allowedTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// ValidateImage detecta o tipo pelo conteúdo e devolve content-type e extensão.
func ValidateImage(data []byte) (string, string, error) {
	if len(data) == 0 {
		return "", "", apperror.NewValidationError("Arquivo de imagem vazio.")
	}
	if len(data) > MaxImageBytes {
		return "", "", apperror.NewValidationError("A imagem deve ter no máximo 8 MB.")
	}
	contentType := http.DetectContentType(data)
	ext, ok := allowedTypes[contentType]
	if !ok {
		return "", "", apperror.NewValidationError(fmt.Sprintf("Formato de imagem não suportado: %s. Use JPEG, PNG ou WEBP.", contentType))
	}
	return contentType, ext, nil
}

// ObjectPath monta o caminho do objeto: products/<id>/<uuid>.<ext>.
func ObjectPath(productID, ext string) string {
	return fmt.Sprintf("products/%s/%s.%s", productID, uuid.NewString(), ext)
}

// GCSStore grava imagens em um bucket com leitura pública (IAM uniforme).
type GCSStore struct {
	Client *storage.Client
	Bucket string
}

// NewGCSStore cria o store para o bucket informado.
func NewGCSStore(client *storage.Client, bucket string) *GCSStore {
	return &GCSStore{Client: client, Bucket: strings.TrimSpace(bucket)}
}

// PublicURL devolve a URL estável do objeto.
func (s *GCSStore) PublicURL(objectPath string) string {
	return fmt.Sprintf("%s/%s/%s", publicBaseURL, s.Bucket, objectPath)
}

// Upload valida e grava a imagem do produto, devolvendo a URL pública.
func (s *GCSStore) Upload(ctx context.Context, productID string, data []byte) (string, error) {
	if s.Client == nil || s.Bucket == "" {
		return "", apperror.NewInternalError("Armazenamento de imagens não configurado.", errors.New("imagestore: client ou bucket ausente"))
	}
	contentType, ext, err := ValidateImage(data)
	if err != nil {
		return "", err
	}

	objectPath := ObjectPath(productID, ext)
	w := s.Client.Bucket(s.Bucket).Object(objectPath).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=31536000"
	w.Metadata = map[string]string{
		"productId":  productID,
		"uploadedAt": time.Now().UTC().Format(time.RFC3339),
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", apperror.NewInternalError("Falha ao enviar imagem.", err)
	}
	if err := w.Close(); err != nil {
		return "", apperror.NewInternalError("Falha ao finalizar envio da imagem.", err)
	}

	return s.PublicURL(objectPath), nil
}

// Delete remove o objeto referenciado pela URL pública. URLs de outros hosts são ignoradas.
func (s *GCSStore) Delete(ctx context.Context, publicURL string) error {
	prefix := fmt.Sprintf("%s/%s/", publicBaseURL, s.Bucket)
	if s.Client == nil || !strings.HasPrefix(publicURL, prefix) {
		return nil
	}
	objectPath := strings.TrimPrefix(publicURL, prefix)
	err := s.Client.Bucket(s.Bucket).Object(objectPath).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return err
	}
	return nil
}
