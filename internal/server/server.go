// Package server exposes the provider's HTTP surface: a polling
// endpoint and the full check-and-pay endpoint, both gated by the same
// payment challenge.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"sentinelwatch/internal/model"
	"sentinelwatch/internal/payment"
	"sentinelwatch/internal/service"
)

// Options tune the HTTP listener.
type Options struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Server serves GET /price and POST /price-check.
type Server struct {
	opts    Options
	checker *service.Checker
	logger  zerolog.Logger
	httpSrv *http.Server
}

// New constructs the provider server.
func New(opts Options, checker *service.Checker, logger zerolog.Logger) *Server {
	if opts.Addr == "" {
		opts.Addr = ":8402"
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 15 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 30 * time.Second
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}

	s := &Server{
		opts:    opts,
		checker: checker,
		logger:  logger.With().Str("component", "server").Logger(),
	}
	s.httpSrv = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}
	return s
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/price", s.handlePrice)
	mux.HandleFunc("/price-check", s.handlePriceCheck)
	return mux
}

// Run serves until ctx is cancelled, then drains.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	s.logger.Info().Str("addr", listener.Addr().String()).Msg("provider listening")

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpSrv.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	}
}

// proofFromRequest extracts and validates the payment headers. A proof
// without an instrument tag is malformed, not assumed default.
func proofFromRequest(r *http.Request) (model.PaymentProof, bool, error) {
	proofID := r.Header.Get(payment.HeaderPaymentProof)
	if proofID == "" {
		return model.PaymentProof{}, false, nil
	}

	instrument := model.Instrument(r.Header.Get(payment.HeaderInstrumentUsed))
	if instrument == "" {
		return model.PaymentProof{}, true, errors.New("proof submitted without " + payment.HeaderInstrumentUsed)
	}
	if instrument != model.InstrumentUSDC && instrument != model.InstrumentSOL {
		return model.PaymentProof{}, true, errors.New("unknown payment instrument")
	}

	return model.PaymentProof{ID: proofID, Instrument: instrument}, true, nil
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	proof, present, err := proofFromRequest(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !present || !s.checker.VerifyProof(r.Context(), proof) {
		s.writeChallenge(w)
		return
	}

	quote := s.checker.Quote(r.Context())
	s.writeJSON(w, http.StatusOK, payment.CheckResponse{
		Price:          quote.Price,
		Timestamp:      quote.Timestamp.UTC().Format(time.RFC3339),
		Source:         quote.Source,
		Paid:           true,
		ProofID:        proof.ID,
		InstrumentUsed: proof.Instrument,
	})
}

func (s *Server) handlePriceCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req payment.CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.MonitorID == "" {
		s.writeError(w, http.StatusBadRequest, "monitorId required")
		return
	}
	if _, err := model.ParseDirection(string(req.Direction)); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Network != s.checker.Network() {
		s.writeError(w, http.StatusConflict, "monitor network does not match provider network")
		return
	}

	proof, present, err := proofFromRequest(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The price pipeline is reached only after verification; an absent
	// or failed proof earns the same challenge.
	if !present || !s.checker.VerifyProof(r.Context(), proof) {
		s.writeChallenge(w)
		return
	}

	quote, activity := s.checker.Check(r.Context(), req, proof)
	s.writeJSON(w, http.StatusOK, payment.CheckResponse{
		Price:          quote.Price,
		Timestamp:      quote.Timestamp.UTC().Format(time.RFC3339),
		Source:         quote.Source,
		Paid:           true,
		ProofID:        proof.ID,
		InstrumentUsed: proof.Instrument,
		Activity: &payment.ActivityBody{
			ID:        activity.ID,
			MonitorID: activity.MonitorID,
			Price:     activity.Price,
			Triggered: activity.Triggered,
			Status:    string(activity.Status),
			Timestamp: activity.Timestamp.UTC().Format(time.RFC3339),
		},
	})
}

func (s *Server) writeChallenge(w http.ResponseWriter) {
	challenge := s.checker.Challenge()

	w.Header().Set("WWW-Authenticate", payment.AuthScheme)
	w.Header().Set(payment.HeaderPaymentRequired, challenge.Amount.String())
	w.Header().Set(payment.HeaderPaymentInstrument, string(challenge.DefaultInstrument))

	s.writeJSON(w, http.StatusPaymentRequired, payment.ChallengeBody{
		Amount:              challenge.Amount,
		Recipient:           challenge.Recipient,
		DefaultInstrument:   challenge.DefaultInstrument,
		AcceptedInstruments: challenge.AcceptedInstruments,
		Message:             challenge.Message,
	})
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error().Err(err).Msg("write response")
	}
}
