package sync

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/client"
	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/errors"
	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/policy"
)

// InitialSync triggers the download pass that populates mount paths when a
// session is created. Only bindings whose download policy is automatic
// participate. The pass runs asynchronously (the DownloadAsync strategy);
// the returned Task resolves when every triggered download is terminal.
func (r *Reconciler) InitialSync(ctx context.Context) (*Task, error) {
	var targets []*boundContext
	for _, bound := range r.allBindings() {
		download := bound.binding.Policy.Download
		if download != nil && download.AutoDownload {
			targets = append(targets, bound)
		}
	}

	if len(targets) == 0 {
		return completedTask(Result{Success: true}), nil
	}

	req := Request{TaskType: client.TaskDownload}
	req.applyDefaults()
	return r.syncTargets(ctx, targets, req)
}

// ReleaseSync performs the final upload pass before a session's compute
// resources are reclaimed. It blocks until every upload is terminal: this
// is the mechanism that prevents write-then-delete-session data loss.
// Bindings whose upload policy isn't automatic, or whose strategy isn't
// upload-before-release, are skipped.
func (r *Reconciler) ReleaseSync(ctx context.Context) error {
	var failed []errors.FileFailure
	for _, bound := range r.allBindings() {
		upload := bound.binding.Policy.Upload
		if upload == nil || !upload.AutoUpload ||
			upload.Strategy != policy.UploadBeforeResourceRelease {
			continue
		}

		req := Request{TaskType: client.TaskUpload}
		req.applyDefaults()

		task, err := r.syncTargets(ctx, []*boundContext{bound}, req)
		if err != nil {
			return errors.WithContext(err, "final upload")
		}

		result := task.Wait()
		if result.Err != nil {
			if partial, ok := result.Err.(errors.PartialSyncError); ok {
				failed = append(failed, partial.Failed...)
				continue
			}
			return errors.WithContext(result.Err, "final upload")
		}

		log.WithFields(log.Fields{
			"context": bound.binding.ContextID,
			"path":    bound.binding.MountPath,
		}).Info("Uploaded context before release")
	}

	if len(failed) > 0 {
		return errors.PartialSyncError{Failed: failed}
	}
	return nil
}

func completedTask(result Result) *Task {
	task := newTask(func() {})
	task.complete(result)
	return task
}
