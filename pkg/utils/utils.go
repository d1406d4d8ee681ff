package utils

import (
	"ProctorGolang/internal/entity"
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	ErrEmptyImage       = errors.New("image is empty")
	ErrInvalidBase64    = errors.New("image is not valid base64")
	ErrUndecodableImage = errors.New("image could not be decoded")
	ErrFileTooLarge     = errors.New("file size exceeds limit")
	ErrNotAnImage       = errors.New("uploaded file is not an image")
)

type IUtils interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
	ValidateImageFile(file *multipart.FileHeader) error
	ReadImageFile(file *multipart.FileHeader) ([]byte, error)
	DecodeBase64Image(data string) (*entity.Frame, error)
	DecodeImage(data []byte) (*entity.Frame, error)
	EncodeJPEG(frame *entity.Frame, quality int) ([]byte, error)
}

// DefaultMaxFrameDimension caps decoded frame width and height.
const DefaultMaxFrameDimension = 4096

type utils struct {
	maxFileSize       int64
	maxFrameDimension int
}

// New reads FRAME_MAX_DIMENSION, defaulting to DefaultMaxFrameDimension.
func New() IUtils {
	maxDim := DefaultMaxFrameDimension
	if v, err := strconv.Atoi(os.Getenv("FRAME_MAX_DIMENSION")); err == nil && v > 0 {
		maxDim = v
	}

	return &utils{
		maxFileSize:       5 * 1024 * 1024,
		maxFrameDimension: maxDim,
	}
}

func (u *utils) NewULIDFromTimestamp(t time.Time) (string, error) {
	ms := ulid.Timestamp(t)
	entropy := ulid.Monotonic(rand.Reader, 0)

	id, err := ulid.New(ms, entropy)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

func (u *utils) ValidateImageFile(file *multipart.FileHeader) error {
	if file == nil {
		return ErrEmptyImage
	}

	if file.Size > u.maxFileSize {
		return ErrFileTooLarge
	}

	contentType := file.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		return ErrNotAnImage
	}

	return nil
}

func (u *utils) ReadImageFile(file *multipart.FileHeader) ([]byte, error) {
	if err := u.ValidateImageFile(file); err != nil {
		return nil, err
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	return io.ReadAll(io.LimitReader(src, u.maxFileSize))
}

// DecodeBase64Image accepts raw base64 or a data URL as produced by
// canvas.toDataURL.
func (u *utils) DecodeBase64Image(data string) (*entity.Frame, error) {
	data = strings.TrimSpace(data)
	if i := strings.Index(data, ","); strings.HasPrefix(data, "data:") && i >= 0 {
		data = data[i+1:]
	}
	if data == "" {
		return nil, ErrEmptyImage
	}

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBase64, err)
		}
	}

	return u.DecodeImage(raw)
}

func (u *utils) DecodeImage(data []byte) (*entity.Frame, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}

	// The header is checked first so an oversized frame is never allocated.
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodableImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > u.maxFrameDimension || cfg.Height > u.maxFrameDimension {
		return nil, fmt.Errorf("%w: %dx%d exceeds %dx%d", ErrUndecodableImage, cfg.Width, cfg.Height, u.maxFrameDimension, u.maxFrameDimension)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodableImage, err)
	}

	return entity.NewFrameFromImage(img), nil
}

func (u *utils) EncodeJPEG(frame *entity.Frame, quality int) ([]byte, error) {
	if frame == nil {
		return nil, ErrEmptyImage
	}
	if quality <= 0 || quality > 100 {
		quality = 80
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame.Image(), &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
