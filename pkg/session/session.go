// Package session is the engine's view of an ephemeral compute session.
// Session creation and deletion belong to an external collaborator; this
// package wires the sync reconciler into the two lifecycle points the
// engine cares about: creation (initial download) and teardown (final
// upload before the session's resources are reclaimed).
package session

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/client"
	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/errors"
	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/sync"
)

// Session couples a session id with the reconciler for its sync bindings.
type Session struct {
	ID string

	reconciler *sync.Reconciler
}

// New creates a Session for the given bindings. The bindings are fixed for
// the session's lifetime.
func New(c client.Client, id string, bindings []sync.Binding) (*Session, error) {
	reconciler, err := sync.NewReconciler(c, id, bindings)
	if err != nil {
		return nil, errors.WithContext(err, "create reconciler")
	}
	return &Session{ID: id, reconciler: reconciler}, nil
}

// Reconciler returns the session's sync reconciler.
func (s *Session) Reconciler() *sync.Reconciler {
	return s.reconciler
}

// OnCreate runs the initial download sync that populates the session's
// mount paths from their bound contexts. Downloads run asynchronously;
// the returned task resolves when they finish.
func (s *Session) OnCreate(ctx context.Context) (*sync.Task, error) {
	task, err := s.reconciler.InitialSync(ctx)
	if err != nil {
		return nil, errors.WithContext(err, "initial sync")
	}

	task.Notify(func(result sync.Result) {
		if result.Err != nil {
			log.WithError(result.Err).WithField("session", s.ID).
				Warn("Initial context download did not complete cleanly")
		}
	})
	return task, nil
}

// OnTeardown runs synchronously before the session's compute resources
// are released. When syncBeforeRelease is set, the final upload pass must
// complete (or fail explicitly) before this returns.
func (s *Session) OnTeardown(ctx context.Context, syncBeforeRelease bool) error {
	if !syncBeforeRelease {
		log.WithField("session", s.ID).Debug("Skipping final upload on teardown")
		return nil
	}
	return s.reconciler.ReleaseSync(ctx)
}
