package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"slices"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/libp2p/go-reuseport"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/quic-go/quic-go/http3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"example.com/fuzzy-inference/base/zaplog"
	"example.com/fuzzy-inference/core/fuzzy"
	"example.com/fuzzy-inference/core/inference"
	"example.com/fuzzy-inference/core/model"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
	maxRequestBytes   = 1 << 20
)

// Config configures the inference service. Zero resolutions select the
// engine defaults.
type Config struct {
	ModelFile           string
	ListenAddr          string
	MetricsAddr         string
	QUICAddr            string
	TLSCertFile         string
	TLSKeyFile          string
	WatchModel          bool
	Resolution          int
	ConditionResolution int
	OutputVariable      string
}

// snapshot is an immutable pairing of a model and the engine built from it.
// Reloads replace the whole snapshot.
type snapshot struct {
	model    *model.Model
	engine   *inference.Engine
	loadedAt time.Time
}

type Server struct {
	log   *zap.Logger
	cfg   Config
	snap  atomic.Pointer[snapshot]
	mtrcs *serverMetrics
}

// New loads the configured model and returns a server ready to serve it.
func New(log *zap.Logger, cfg Config) (*Server, error) {
	if cfg.ModelFile == "" {
		return nil, errMissingModelFile
	}
	s := &Server{
		log:   zaplog.OrNop(log),
		cfg:   cfg,
		mtrcs: serverMtrcs.Load(),
	}
	snap, err := s.load()
	if err != nil {
		return nil, err
	}
	s.store(snap)
	return s, nil
}

func (s *Server) load() (*snapshot, error) {
	m, err := model.LoadFile(s.log, s.cfg.ModelFile)
	if err != nil {
		return nil, err
	}
	e := inference.New(s.log, m.Rules, m.Variables, s.cfg.ConditionResolution)
	if _, err := e.Stages(""); err != nil {
		return nil, err
	}
	return &snapshot{
		model:    m,
		engine:   e,
		loadedAt: time.Now(),
	}, nil
}

func (s *Server) store(snap *snapshot) {
	s.snap.Store(snap)
	s.mtrcs.modelRules.Set(float64(len(snap.model.Rules)))
}

// Reload rereads the model file. On failure the previously loaded model
// stays in service.
func (s *Server) Reload() error {
	snap, err := s.load()
	if err != nil {
		s.mtrcs.modelReloadErrors.Inc()
		s.log.Error("failed to reload model, keeping previous one",
			zap.String("file", s.cfg.ModelFile), zap.Error(err))
		return err
	}
	s.store(snap)
	s.mtrcs.modelReloads.Inc()
	s.log.Info("reloaded model",
		zap.String("file", s.cfg.ModelFile),
		zap.Int("rules", len(snap.model.Rules)),
		zap.Int("variables", len(snap.model.Variables)),
	)
	return nil
}

// Model returns the model currently in service.
func (s *Server) Model() *model.Model { return s.snap.Load().model }

// Run listens on the configured addresses and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	if s.cfg.ListenAddr == "" {
		return errMissingListen
	}
	ln, err := reuseport.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves HTTP requests on ln, plus the optional HTTP/3, metrics and
// model watch tasks, until ctx is done or one of them fails.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	handler := s.Handler()
	hs := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	var h3 *http3.Server
	if s.cfg.QUICAddr != "" {
		if s.cfg.TLSCertFile == "" || s.cfg.TLSKeyFile == "" {
			ln.Close()
			return errMissingTLSPair
		}
		tlsCfg, err := newTLSConfig(s.cfg.TLSCertFile, s.cfg.TLSKeyFile)
		if err != nil {
			ln.Close()
			return err
		}
		h3 = &http3.Server{
			Addr:      s.cfg.QUICAddr,
			Handler:   handler,
			TLSConfig: tlsCfg,
		}
	}

	var ms *http.Server
	if s.cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		ms = &http.Server{
			Addr:              s.cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: readHeaderTimeout,
		}
	}

	var w *fsnotify.Watcher
	if s.cfg.WatchModel {
		var err error
		w, err = newModelWatcher(s.cfg.ModelFile)
		if err != nil {
			ln.Close()
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("server listening via HTTP", zap.Stringer("addr", ln.Addr()))
		return ignoreClosed(hs.Serve(ln))
	})
	if h3 != nil {
		g.Go(func() error {
			s.log.Info("server listening via HTTP/3", zap.String("addr", h3.Addr))
			err := h3.ListenAndServe()
			if ctx.Err() != nil {
				return nil
			}
			return ignoreClosed(err)
		})
	}
	if ms != nil {
		g.Go(func() error {
			s.log.Info("serving metrics", zap.String("addr", ms.Addr))
			return ignoreClosed(ms.ListenAndServe())
		})
	}
	if w != nil {
		g.Go(func() error {
			return s.watch(ctx, w)
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := hs.Shutdown(sctx)
		if h3 != nil {
			err = errors.Join(err, h3.Close())
		}
		if ms != nil {
			err = errors.Join(err, ms.Shutdown(sctx))
		}
		if err != nil {
			s.log.Info("failed to shut down cleanly", zap.Error(err))
		}
		return nil
	})
	return g.Wait()
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func variableNames(vars map[string]*fuzzy.Variable) []string {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
