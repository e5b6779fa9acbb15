package service

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/swiftmeta/internal/config"
	"github.com/swiftmeta/internal/logger"
	"github.com/swiftmeta/internal/storage"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// UploadResult 上传结果
type UploadResult struct {
	URL  string `json:"url"`
	ID   string `json:"id"`
	Type string `json:"type"`
}

// UploadService 图片上传服务
type UploadService struct {
	cfg   config.UploadConfig
	store storage.Store
	now   func() time.Time
}

// NewUploadService 创建文件上传服务实例
func NewUploadService(cfg config.UploadConfig, store storage.Store) *UploadService {
	return &UploadService{cfg: cfg, store: store, now: time.Now}
}

// SaveImage 校验并保存表单中的图片
func (s *UploadService) SaveImage(ctx context.Context, file *multipart.FileHeader) (*UploadResult, error) {
	if file == nil {
		return nil, invalidField("file", "is required")
	}
	data, err := readMultipartFile(file, s.cfg.MaxSize)
	if err != nil {
		return nil, err
	}
	return s.StoreImage(ctx, file.Filename, data)
}

// StoreImage 按扩展名、探测到的 MIME 与尺寸校验后写入对象存储
func (s *UploadService) StoreImage(ctx context.Context, filename string, data []byte) (*UploadResult, error) {
	if len(data) == 0 {
		return nil, invalidField("file", "is empty")
	}
	if s.cfg.MaxSize > 0 && int64(len(data)) > s.cfg.MaxSize {
		return nil, fmt.Errorf("%w: max %d MB", ErrFileTooLarge, s.cfg.MaxSize/1024/1024)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if len(s.cfg.AllowedExtensions) > 0 {
		if ext == "" || !isAllowedExtension(ext, s.cfg.AllowedExtensions) {
			return nil, fmt.Errorf("%w: extension %q", ErrFileTypeNotAllowed, ext)
		}
	}

	mtype := mimetype.Detect(data)
	if !isAllowedMIME(mtype, s.cfg.AllowedTypes) || !strings.HasPrefix(mtype.String(), "image/") {
		return nil, fmt.Errorf("%w: %s", ErrFileTypeNotAllowed, mtype.String())
	}

	width, height, err := decodeImageDimensions(bytes.NewReader(data), mtype.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileTypeNotAllowed, err)
	}
	if (s.cfg.MaxWidth > 0 && width > s.cfg.MaxWidth) || (s.cfg.MaxHeight > 0 && height > s.cfg.MaxHeight) {
		return nil, fmt.Errorf("%w: max %dx%d", ErrImageTooLarge, s.cfg.MaxWidth, s.cfg.MaxHeight)
	}

	now := s.now()
	key := fmt.Sprintf("images/%s/%s/%s%s", now.Format("2006"), now.Format("01"), uuid.NewString(), ext)
	obj, err := s.store.Upload(ctx, key, data, mtype.String())
	if err != nil {
		logger.Warnw("upload_image_store_failed", "key", key, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	return &UploadResult{URL: obj.URL, ID: obj.ID, Type: mtype.String()}, nil
}

func readMultipartFile(file *multipart.FileHeader, maxSize int64) ([]byte, error) {
	if maxSize > 0 && file.Size > maxSize {
		return nil, fmt.Errorf("%w: max %d MB", ErrFileTooLarge, maxSize/1024/1024)
	}
	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	reader := io.Reader(src)
	if maxSize > 0 {
		reader = io.LimitReader(src, maxSize+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%w: max %d MB", ErrFileTooLarge, maxSize/1024/1024)
	}
	return data, nil
}

func isAllowedMIME(mtype *mimetype.MIME, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, candidate := range allowed {
		if mtype.Is(strings.TrimSpace(candidate)) {
			return true
		}
	}
	return false
}

func isAllowedExtension(ext string, allowed []string) bool {
	for _, allowedExt := range allowed {
		normalized := strings.ToLower(strings.TrimSpace(allowedExt))
		if normalized == "" {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		if strings.EqualFold(ext, normalized) {
			return true
		}
	}
	return false
}

func decodeImageDimensions(src io.ReadSeeker, contentType string) (int, int, error) {
	if strings.EqualFold(contentType, "image/webp") {
		width, height, err := decodeWebPDimensions(src)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid webp image: %w", err)
		}
		return width, height, nil
	}

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return 0, 0, err
	}
	cfg, _, err := image.DecodeConfig(src)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid image: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

func decodeWebPDimensions(src io.ReadSeeker) (int, int, error) {
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return 0, 0, err
	}

	header := make([]byte, 12)
	if _, err := io.ReadFull(src, header); err != nil {
		return 0, 0, err
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WEBP" {
		return 0, 0, fmt.Errorf("bad RIFF header")
	}

	for {
		chunkHeader := make([]byte, 8)
		if _, err := io.ReadFull(src, chunkHeader); err != nil {
			return 0, 0, err
		}
		chunkType := string(chunkHeader[0:4])
		chunkSize := int64(binary.LittleEndian.Uint32(chunkHeader[4:8]))

		switch chunkType {
		case "VP8X", "VP8 ", "VP8L":
			data := make([]byte, chunkSize)
			if _, err := io.ReadFull(src, data); err != nil {
				return 0, 0, err
			}
			return webpChunkDimensions(chunkType, data)
		}

		skip := chunkSize + chunkSize%2
		if _, err := src.Seek(skip, io.SeekCurrent); err != nil {
			return 0, 0, err
		}
	}
}

func webpChunkDimensions(chunkType string, data []byte) (int, int, error) {
	switch chunkType {
	case "VP8X":
		if len(data) < 10 {
			return 0, 0, fmt.Errorf("short VP8X chunk")
		}
		width := 1 + int(data[4]) + int(data[5])<<8 + int(data[6])<<16
		height := 1 + int(data[7]) + int(data[8])<<8 + int(data[9])<<16
		return width, height, nil
	case "VP8 ":
		if len(data) < 10 {
			return 0, 0, fmt.Errorf("short VP8 chunk")
		}
		width := int(binary.LittleEndian.Uint16(data[6:8]) & 0x3FFF)
		height := int(binary.LittleEndian.Uint16(data[8:10]) & 0x3FFF)
		return width, height, nil
	default:
		if len(data) < 5 || data[0] != 0x2f {
			return 0, 0, fmt.Errorf("bad VP8L chunk")
		}
		bits := binary.LittleEndian.Uint32(data[1:5])
		width := int(bits&0x3FFF) + 1
		height := int((bits>>14)&0x3FFF) + 1
		return width, height, nil
	}
}
