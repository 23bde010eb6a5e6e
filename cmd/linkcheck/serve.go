package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/linkcheck/internal/server"
)

// stopTimeout bounds the graceful shutdown of local servers.
const stopTimeout = 5 * time.Second

// serverSet starts at most one local server per address and stops them all
// at the end of the command. Several start URLs on the same address share
// its server.
type serverSet struct {
	mu      sync.Mutex
	logger  *slog.Logger
	running map[string]servedRoot
}

type servedRoot struct {
	srv  *server.Server
	root string
}

func newServerSet(logger *slog.Logger) *serverSet {
	return &serverSet{
		logger:  logger,
		running: make(map[string]servedRoot),
	}
}

// ensure serves root on the address of startURL unless it is served there
// already. Serving a different root on a busy address is an error.
func (s *serverSet) ensure(ctx context.Context, root, startURL string) error {
	srv, err := server.New(root, startURL, server.WithLogger(s.logger))
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	addr := srv.Addr()
	if r, ok := s.running[addr]; ok {
		if r.root != root {
			return fmt.Errorf("%s already serves %s, cannot serve %s", addr, r.root, root)
		}
		return nil
	}
	if err := srv.Start(ctx); err != nil {
		return err
	}
	s.running[addr] = servedRoot{srv: srv, root: root}
	return nil
}

// stopAll shuts down every started server.
func (s *serverSet) stopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	for addr, r := range s.running {
		if err := r.srv.Stop(ctx); err != nil {
			s.logger.Error("failed to stop local server", "addr", addr, "error", err)
		}
		delete(s.running, addr)
	}
}
