package sync

import (
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/agbcloud/agbcloud-sdk-sub000/cmd/util"
	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/client"
	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/config"
	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/contexts"
	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/errors"
	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/fswatch"
	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/sync"
)

// New creates the `sync` command.
func New() *cobra.Command {
	var sessionID, dir, contextName, path string
	var download, watch bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize mounted paths with their bound contexts",
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(sessionID, dir, contextName, path, download, watch); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "",
		"The session whose sync tasks should run")
	cmd.Flags().StringVar(&dir, "dir", ".",
		"The workspace directory containing the sync config")
	cmd.Flags().StringVar(&contextName, "context", "",
		"Sync only the binding for this context")
	cmd.Flags().StringVar(&path, "path", "",
		"Sync only the binding at this mount path")
	cmd.Flags().BoolVar(&download, "download", false,
		"Download from the contexts instead of uploading to them")
	cmd.Flags().BoolVar(&watch, "watch", false,
		"Keep running and re-upload whenever in-scope files change")
	return cmd
}

func run(sessionID, dir, contextName, path string, download, watch bool) error {
	if sessionID == "" {
		return errors.ValidationError{Reason: "--session is required"}
	}
	if watch && download {
		return errors.ValidationError{Reason: "--watch only applies to uploads"}
	}

	c, userConfig, err := util.GetClient()
	if err != nil {
		return err
	}

	syncConfig, err := config.ParseSyncConfig(dir)
	if err != nil {
		return err
	}

	ctx := context.Background()
	directory := contexts.NewDirectory(c, userConfig.Region)

	// The sync config names contexts; the control plane speaks ids. First
	// use of a name creates the context.
	var bindings []sync.Binding
	var targetContextID string
	for _, mount := range syncConfig.Contexts {
		handle, err := directory.Get(ctx, contexts.GetOptions{
			Name:   mount.Context,
			Create: true,
		})
		if err != nil {
			return errors.WithContext(err,
				fmt.Sprintf("resolve context %q", mount.Context))
		}

		if mount.Context == contextName {
			targetContextID = handle.ID
		}
		bindings = append(bindings, sync.Binding{
			ContextID: handle.ID,
			MountPath: mount.Path,
			Policy:    mount.Policy,
		})
	}

	if contextName != "" && targetContextID == "" {
		return errors.ValidationError{
			Reason: fmt.Sprintf("context %q isn't declared in %s",
				contextName, syncConfig.GetPath())}
	}

	reconciler, err := sync.NewReconciler(c, sessionID, bindings)
	if err != nil {
		return err
	}

	req := sync.Request{ContextID: targetContextID, Path: path}
	if download {
		req.TaskType = client.TaskDownload
	}

	if err := runPass(ctx, reconciler, req); err != nil {
		return err
	}
	if !watch {
		fmt.Fprintln(os.Stderr, "Synced.")
		return nil
	}

	return watchLoop(ctx, reconciler, req, bindings)
}

func runPass(ctx context.Context, reconciler *sync.Reconciler, req sync.Request) error {
	result, err := reconciler.SyncAndWait(ctx, req)
	if err != nil {
		return err
	}

	log.WithField("status", result.LastStatus).Debug("Sync pass finished")
	return nil
}

// watchLoop re-runs the upload pass whenever an in-scope file under any
// mount path changes. Bursts of writes are coalesced by the watcher.
func watchLoop(ctx context.Context, reconciler *sync.Reconciler,
	req sync.Request, bindings []sync.Binding) error {

	triggers := make(chan struct{}, 1)
	for _, binding := range bindings {
		updates, err := fswatch.Watch(binding.MountPath, binding.Policy.BWList)
		if err != nil {
			return errors.WithContext(err,
				fmt.Sprintf("watch %q", binding.MountPath))
		}

		go func() {
			for range updates {
				select {
				case triggers <- struct{}{}:
				default:
				}
			}
		}()
	}

	fmt.Fprintln(os.Stderr, "Watching for changes. Press Ctrl-C to stop.")
	for range triggers {
		if err := runPass(ctx, reconciler, req); err != nil {
			// Keep watching after a failed pass. The next change retries.
			fmt.Fprintln(os.Stderr, errors.GetPrintableMessage(err))
		}
	}
	return nil
}
