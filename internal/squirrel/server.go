package squirrel

import (
	"context"
	"fmt"
)

// Server runs the single-threaded event loop: receive a notification,
// classify it, filter it and dispatch it to completion before taking the next.
type Server struct {
	root     string
	filter   PathFilter
	squirrel *Squirrel
	logger   Logger
}

// NewServer creates the event loop for the tree rooted at root.
func NewServer(root string, filter PathFilter, squirrel *Squirrel, logger Logger) *Server {
	return &Server{
		root:     root,
		filter:   filter,
		squirrel: squirrel,
		logger:   logger,
	}
}

// Serve consumes notifications until ctx is cancelled or the channel closes.
// Watch-source errors are logged and do not stop the loop. A dispatch failure
// is returned immediately.
func (s *Server) Serve(ctx context.Context, notifications <-chan Notification, errs <-chan error) error {
	s.logger.Info("watching", "root", s.root)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("shutting down")
			return nil

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.logger.Warn("watch error", "error", err)

		case n, ok := <-notifications:
			if !ok {
				return nil
			}
			if err := s.Handle(n); err != nil {
				return err
			}
		}
	}
}

// Handle processes a single notification.
func (s *Server) Handle(n Notification) error {
	event, err := Classify(n, s.root)
	if err != nil {
		s.logger.Warn("dropping event", "kind", n.Kind.String(), "path", n.Path, "error", err)
		return nil
	}

	target, ok := event.Target()
	if !ok {
		return nil
	}
	if !s.filter.Allow(target) {
		return nil
	}

	s.logger.Debug("received", "event", event.String())
	if err := s.squirrel.Dispatch(event); err != nil {
		return fmt.Errorf("dispatching %s: %w", event, err)
	}
	return nil
}
