package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"time"

	"github.com/misicnenad/fith-on/internal/remote"
	"github.com/misicnenad/fith-on/internal/sections"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newWatchCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stay connected and print the collection whenever it changes",
		Long: `watch keeps probing the API, reloads when the connection comes back and follows
the server's change stream so edits made elsewhere show up. Stop it with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()
			return s.watch(cmd.Context(), c.stdout)
		},
	}
}

// watch runs the observer, the engine and the change stream until ctx is done.
func (s *session) watch(ctx context.Context, w io.Writer) error {
	states, unsubscribe := s.engine.Subscribe()
	defer unsubscribe()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		s.observer.Run(groupCtx)
		return nil
	})
	group.Go(func() error {
		if err := s.engine.Run(groupCtx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		s.followChanges(groupCtx)
		return nil
	})
	group.Go(func() error {
		var shown []sections.Section
		first := true
		for {
			select {
			case <-groupCtx.Done():
				return nil
			case state, ok := <-states:
				if !ok {
					return nil
				}
				if state.Busy || (!first && reflect.DeepEqual(state.Sections, shown)) {
					continue
				}
				if !first {
					fmt.Fprintln(w)
				}
				fmt.Fprintf(w, "== %s ==\n", time.Now().Format(time.TimeOnly))
				printSections(w, state.Sections)
				shown = state.Sections
				first = false
			}
		}
	})
	return group.Wait()
}

// followChanges asks the engine to reload on every change announced by the server,
// reconnecting after each probe interval while the stream is unavailable.
func (s *session) followChanges(ctx context.Context) {
	for {
		if !s.observer.IsOffline() {
			err := s.client.StreamChanges(ctx, func(event remote.ChangeEvent) {
				s.logger.Debug("section change announced",
					zap.String("operation", event.Operation),
					zap.Strings("section_ids", event.SectionIDs))
				s.engine.Refresh()
			})
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				s.logger.Debug("change stream interrupted", zap.Error(err))
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.ProbeInterval):
		}
	}
}
