package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"echobook/internal/domain"
	"echobook/internal/domain/ports/adapter"
	"echobook/internal/infra/logging"
	"echobook/internal/usecase"
)

const (
	defaultPage     = 1
	defaultPageSize = 20
	// Parts above this size are spooled to temp files by net/http.
	multipartMemory = 32 << 20
)

type Options struct {
	MaxUploadBytes int64
	RequestTimeout time.Duration
	CORSOrigins    []string
	// Limiter guards the mutating routes; nil disables rate limiting.
	Limiter Middleware
}

// Server exposes the job and voice use cases over HTTP.
type Server struct {
	jobs   usecase.JobUseCase
	voices usecase.VoiceUseCase
	opts   Options
	log    *zerolog.Logger
}

func NewServer(jobs usecase.JobUseCase, voices usecase.VoiceUseCase, opts Options, logger *zerolog.Logger) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 100 << 20
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	return &Server{jobs: jobs, voices: voices, opts: opts, log: logger}
}

// Routes builds the router with the full middleware stack.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(TraceID())
	r.Use(RequestLog(s.log))
	r.Use(Recover(s.log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", traceHeader},
		ExposedHeaders: []string{"Content-Disposition", traceHeader},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	// Artifact streams can outlast any request timeout; the client's
	// connection bounds them instead.
	r.Get("/download/{job_id}", s.handleDownload)

	r.Group(func(r chi.Router) {
		if s.opts.RequestTimeout > 0 {
			r.Use(Timeout(s.opts.RequestTimeout))
		}
		r.Get("/status/{job_id}", s.handleStatus)
		r.Get("/voices", s.handleListVoices)

		r.Group(func(r chi.Router) {
			if s.opts.Limiter != nil {
				r.Use(s.opts.Limiter)
			}
			r.Post("/upload", s.handleUpload)
			r.Post("/clone-voice", s.handleCloneVoice)
		})
	})
	return r
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, name, cleanup, err := s.formFile(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer cleanup()

	res, err := s.jobs.Submit(r.Context(), usecase.Upload{
		FileName: name,
		Body:     file,
		VoiceID:  strings.TrimSpace(r.FormValue("voice_uuid")),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Status(r.Context(), chi.URLParam(r, "job_id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	art, err := s.jobs.Download(r.Context(), chi.URLParam(r, "job_id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer art.Body.Close()

	h := w.Header()
	h.Set("Content-Type", art.ContentType)
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.FileName))
	if art.Size > 0 {
		h.Set("Content-Length", strconv.FormatInt(art.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, art.Body); err != nil {
		l := logging.With(r.Context(), s.log)
		l.Warn().Err(err).Msg("download interrupted")
	}
}

func (s *Server) handleListVoices(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", defaultPage)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	size, err := queryInt(r, "page_size", defaultPageSize)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.voices.List(r.Context(), page, size)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"voices": res.Items})
}

func (s *Server) handleCloneVoice(w http.ResponseWriter, r *http.Request) {
	file, name, cleanup, err := s.formFile(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer cleanup()

	res, err := s.voices.Clone(r.Context(), usecase.CloneRequest{
		Name:     strings.TrimSpace(r.FormValue("name")),
		FileName: name,
		Body:     file,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

var errUploadTooLarge = errors.New("upload too large")

// formFile parses the multipart body and returns the "file" part.
func (s *Server) formFile(w http.ResponseWriter, r *http.Request) (io.Reader, string, func(), error) {
	if r.ContentLength > s.opts.MaxUploadBytes {
		return nil, "", nil, errUploadTooLarge
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", nil, errUploadTooLarge
		}
		return nil, "", nil, fmt.Errorf("%w: expected multipart form data", domain.ErrInvalidInput)
	}
	cleanup := func() { _ = r.MultipartForm.RemoveAll() }

	f, hdr, err := r.FormFile("file")
	if err != nil {
		cleanup()
		return nil, "", nil, fmt.Errorf("%w: file is required", domain.ErrInvalidInput)
	}
	return f, hdr.Filename, func() { _ = f.Close(); cleanup() }, nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", domain.ErrInvalidInput, key)
	}
	return n, nil
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := statusFor(err)
	l := logging.With(r.Context(), s.log)
	ev := l.Warn()
	if status >= http.StatusInternalServerError {
		ev = l.Error()
	}
	ev.Err(err).Int("status", status).Msg("request failed")
	writeDetail(w, status, detail)
}

func statusFor(err error) (int, string) {
	var perr *adapter.ProviderError
	switch {
	case errors.Is(err, errUploadTooLarge):
		return http.StatusRequestEntityTooLarge, err.Error()
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, strings.TrimPrefix(err.Error(), domain.ErrInvalidInput.Error()+": ")
	case errors.Is(err, domain.ErrJobNotFound):
		return http.StatusNotFound, domain.ErrJobNotFound.Error()
	case errors.Is(err, domain.ErrJobNotReady):
		return http.StatusBadRequest, domain.ErrJobNotReady.Error()
	case errors.Is(err, domain.ErrArtifactMissing):
		return http.StatusNotFound, domain.ErrArtifactMissing.Error()
	case errors.Is(err, domain.ErrWorkflowFailed):
		return http.StatusInternalServerError, err.Error()
	case errors.As(err, &perr):
		return http.StatusBadGateway, perr.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
