package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/dchest/uniuri"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	json "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"formparse/encoding"
	"formparse/form"
)

// TransactionIDHeader is the response header carrying the id every request is logged with.
const TransactionIDHeader = "X-Transaction-ID"

const transactionIDLength = 20

type serverImpl struct {
	logger        zerolog.Logger
	parser        form.Parser
	limits        form.Limits
	resultsLogger form.ResultsLogger
}

// NewServer creates the HTTP handler that parses posted form bodies and reports what was found.
func NewServer(logger zerolog.Logger, parser form.Parser, limits form.Limits, resultsLogger form.ResultsLogger) http.Handler {
	s := &serverImpl{
		logger:        logger,
		parser:        parser,
		limits:        limits,
		resultsLogger: resultsLogger,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.healthz)
	r.Post("/forms", s.parseForm)
	r.Put("/forms", s.parseForm)
	r.Post("/urlencode", s.urlEncode)

	return r
}

type fileSummary struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType,omitempty"`
	Size        int64  `json:"size"`
}

type formResponse struct {
	TransactionID  string                   `json:"transactionId"`
	Fields         map[string][]string      `json:"fields"`
	Files          map[string][]fileSummary `json:"files"`
	Warnings       []string                 `json:"warnings,omitempty"`
	RemainingBytes int64                    `json:"remainingBytes"`
}

type errorResponse struct {
	TransactionID string `json:"transactionId"`
	Error         string `json:"error"`
}

func (s *serverImpl) healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok\n"))
}

func (s *serverImpl) parseForm(w http.ResponseWriter, r *http.Request) {
	req := &httpFormRequest{r: r, transactionID: uniuri.NewLen(transactionIDLength)}
	logger := s.logger.With().Str("transactionID", req.transactionID).Logger()
	w.Header().Set(TransactionIDHeader, req.transactionID)

	res, err := s.parser.Parse(logger, req)
	if err != nil {
		status := http.StatusBadRequest
		if form.IsSizeLimitExceeded(err) {
			status = http.StatusRequestEntityTooLarge
			s.resultsLogger.SizeLimitExceeded(req, s.limits, err)
		} else {
			s.resultsLogger.BodyParseError(req, err)
		}

		logger.Info().Err(err).Int("status", status).Msg("Rejected request body")
		s.writeJSON(logger, w, status, &errorResponse{TransactionID: req.transactionID, Error: err.Error()})
		return
	}
	defer res.Close()

	// Whatever the parser left unread still counts against the content length limit.
	remaining, err := io.Copy(io.Discard, res.Stream)
	if err != nil {
		status := http.StatusBadRequest
		if form.IsSizeLimitExceeded(err) {
			status = http.StatusRequestEntityTooLarge
			s.resultsLogger.SizeLimitExceeded(req, s.limits, err)
		}
		s.writeJSON(logger, w, status, &errorResponse{TransactionID: req.transactionID, Error: err.Error()})
		return
	}

	s.resultsLogger.FormParsed(req, res)

	resp := &formResponse{
		TransactionID:  req.transactionID,
		Fields:         map[string][]string{},
		Files:          map[string][]fileSummary{},
		Warnings:       res.Warnings,
		RemainingBytes: remaining,
	}
	for k, v := range res.Fields.All() {
		resp.Fields[k] = append(resp.Fields[k], v)
	}
	for k, f := range res.Files.All() {
		resp.Files[k] = append(resp.Files[k], fileSummary{Filename: f.Filename, ContentType: f.ContentType, Size: f.Size})
	}

	s.writeJSON(logger, w, http.StatusOK, resp)
}

type urlEncodeRequest struct {
	Pairs     [][2]string `json:"pairs"`
	Separator string      `json:"separator"`
	Sort      bool        `json:"sort"`
}

func (s *serverImpl) urlEncode(w http.ResponseWriter, r *http.Request) {
	var in urlEncodeRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	opts := encoding.EncodeOptions{Separator: '&', Sort: in.Sort}
	switch len(in.Separator) {
	case 0:
	case 1:
		opts.Separator = in.Separator[0]
	default:
		http.Error(w, "separator must be a single byte", http.StatusBadRequest)
		return
	}

	pairs := func(yield func(string, string) bool) {
		for _, p := range in.Pairs {
			if !yield(p[0], p[1]) {
				return
			}
		}
	}

	var buf bytes.Buffer
	if err := encoding.URLEncode(&buf, pairs, opts); err != nil {
		s.logger.Error().Err(err).Msg("Error while encoding pairs")
		http.Error(w, "encoding failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/x-www-form-urlencoded")
	w.Write(buf.Bytes())
}

func (s *serverImpl) writeJSON(logger zerolog.Logger, w http.ResponseWriter, status int, v interface{}) {
	bb, err := json.Marshal(v)
	if err != nil {
		logger.Error().Err(err).Msg("Error while marshaling JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(bb)
}

// Serve runs handler on lis until ctx is cancelled, then shuts down gracefully within shutdownTimeout.
func Serve(ctx context.Context, logger zerolog.Logger, lis net.Listener, handler http.Handler, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 30 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("address", lis.Addr().String()).Msg("Starting form parsing server")
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("Shutting down form parsing server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
