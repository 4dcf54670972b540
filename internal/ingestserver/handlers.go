package ingestserver

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"clipkeeper/internal/fileutil"
	"clipkeeper/internal/logging"
)

func (s *Server) handleSentences(c *gin.Context) {
	limit := defaultSentenceLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxSentenceLimit)
	}
	sentences, err := s.dataset.RandomSentences(c.Request.Context(), limit)
	if err != nil {
		s.internalError(c, "list sentences", err)
		return
	}
	c.JSON(http.StatusOK, sentences)
}

func (s *Server) handleImportSentences(c *gin.Context) {
	var items []SentenceInput
	if err := c.ShouldBindJSON(&items); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be a JSON array of sentences"})
		return
	}
	for i, item := range items {
		if err := s.validate.Struct(item); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": describeValidation(i, err)})
			return
		}
	}
	n, err := s.dataset.ImportSentences(c.Request.Context(), items)
	if err != nil {
		s.internalError(c, "import sentences", err)
		return
	}
	logging.WithContext(c.Request.Context(), s.logger).Info("sentences imported", logging.Int("count", n))
	c.JSON(http.StatusOK, gin.H{"message": "imported " + strconv.Itoa(n) + " sentences", "imported": n})
}

// handleUpload streams the multipart body. Text fields must arrive before the
// video part; fields that arrive later only affect the sidecar and the
// recordings row, never the storage location.
func (s *Server) handleUpload(c *gin.Context) {
	if s.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)
	}
	reader, err := c.Request.MultipartReader()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expected multipart/form-data"})
		return
	}

	fields := make(map[string]string)
	var (
		clipPath string
		clipSize int64
	)
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.discardClip(clipPath)
			s.rejectBody(c, err)
			return
		}
		if part.FormName() == "video" {
			if clipPath != "" {
				_, _ = io.Copy(io.Discard, part)
				continue
			}
			clipPath, clipSize, err = s.clips.save(metaFrom(fields), part)
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					s.rejectBody(c, err)
					return
				}
				s.internalError(c, "store clip", err)
				return
			}
			continue
		}
		value, err := io.ReadAll(io.LimitReader(part, maxFieldBytes))
		if err != nil {
			s.discardClip(clipPath)
			s.rejectBody(c, err)
			return
		}
		fields[part.FormName()] = string(value)
	}

	if clipPath == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no video file uploaded"})
		return
	}

	meta := metaFrom(fields)
	ctx := c.Request.Context()
	log := logging.WithContext(ctx, s.logger)
	if strings.TrimSpace(meta.SentenceText) != "" {
		if _, err := writeSidecar(clipPath, meta.SentenceText); err != nil {
			s.discardClip(clipPath)
			s.internalError(c, "write sidecar", err)
			return
		}
	}
	rec := Recording{
		SentenceID:   meta.sentenceID(),
		SentenceText: meta.SentenceText,
		UserName:     meta.UserName,
		UserGender:   meta.UserGender,
		UserAge:      meta.UserAge,
		FilePath:     clipPath,
		SizeBytes:    clipSize,
		RequestID:    requestID(c),
		CreatedAt:    time.Now(),
	}
	if _, err := s.dataset.InsertRecording(ctx, rec); err != nil {
		s.discardClip(clipPath)
		s.internalError(c, "record upload", err)
		return
	}
	log.Info("clip received",
		logging.String("path", clipPath),
		logging.Int64(logging.FieldSentenceID, rec.SentenceID),
		logging.Int64("size_bytes", clipSize),
	)
	c.JSON(http.StatusOK, gin.H{"status": "ok", "path": clipPath})
}

func (s *Server) handleRecordings(c *gin.Context) {
	limit := 50
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = min(n, maxSentenceLimit)
		}
	}
	recs, err := s.dataset.Recordings(c.Request.Context(), limit)
	if err != nil {
		s.internalError(c, "list recordings", err)
		return
	}
	if recs == nil {
		recs = []Recording{}
	}
	c.JSON(http.StatusOK, recs)
}

func (s *Server) handleStatus(c *gin.Context) {
	sentences, recordings, err := s.dataset.Counts(c.Request.Context())
	if err != nil {
		s.internalError(c, "status", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sentences": sentences, "recordings": recordings})
}

func metaFrom(fields map[string]string) uploadMeta {
	return uploadMeta{
		UserName:     strings.TrimSpace(fields["userName"]),
		UserGender:   strings.TrimSpace(fields["userGender"]),
		UserAge:      strings.TrimSpace(fields["userAge"]),
		SentenceID:   strings.TrimSpace(fields["sentenceId"]),
		SentenceText: fields["sentenceText"],
	}
}

func (s *Server) rejectBody(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload too large"})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "malformed multipart body"})
}

func (s *Server) discardClip(path string) {
	if path == "" {
		return
	}
	for _, p := range []string{path, sidecarPath(path)} {
		if err := fileutil.RemoveIfExists(p); err != nil {
			s.logger.Warn("failed to remove partial upload", logging.String("path", p), logging.Error(err))
		}
	}
}

func (s *Server) internalError(c *gin.Context, operation string, err error) {
	logging.ErrorWithContext(logging.WithContext(c.Request.Context(), s.logger), operation+" failed", "server_error",
		logging.Error(err),
	)
	c.JSON(http.StatusInternalServerError, gin.H{"error": operation + " failed"})
}
