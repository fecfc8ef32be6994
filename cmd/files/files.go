package files

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agbcloud/agbcloud-sdk-sub000/cmd/util"
	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/blob"
	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/contexts"
)

// New creates the `file` command tree for single-object operations.
func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "file",
		Short: "Move single objects in and out of a context",
	}
	cmd.AddCommand(
		newUpload(),
		newDownload(),
		newDelete(),
		newList(),
	)
	return cmd
}

func getGateway() (*blob.Gateway, *contexts.Directory, error) {
	c, userConfig, err := util.GetClient()
	if err != nil {
		return nil, nil, err
	}
	return blob.NewGateway(c), contexts.NewDirectory(c, userConfig.Region), nil
}

func resolveContext(ctx context.Context, directory *contexts.Directory,
	name string) (string, error) {

	handle, err := directory.Get(ctx, contexts.GetOptions{Name: name})
	if err != nil {
		return "", err
	}
	return handle.ID, nil
}

func newUpload() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <context> <path> <local-path>",
		Short: "Upload a local file into a context",
		Args:  cobra.ExactArgs(3),
		Run: func(_ *cobra.Command, args []string) {
			gateway, directory, err := getGateway()
			if err != nil {
				util.HandleFatalError(err)
			}

			ctx := context.Background()
			contextID, err := resolveContext(ctx, directory, args[0])
			if err != nil {
				util.HandleFatalError(err)
			}

			if err := gateway.Upload(ctx, contextID, args[1], args[2]); err != nil {
				util.HandleFatalError(err)
			}
			fmt.Printf("Uploaded %s to %s:%s\n", args[2], args[0], args[1])
		},
	}
}

func newDownload() *cobra.Command {
	return &cobra.Command{
		Use:   "download <context> <path> <local-path>",
		Short: "Download an object from a context to a local file",
		Args:  cobra.ExactArgs(3),
		Run: func(_ *cobra.Command, args []string) {
			gateway, directory, err := getGateway()
			if err != nil {
				util.HandleFatalError(err)
			}

			ctx := context.Background()
			contextID, err := resolveContext(ctx, directory, args[0])
			if err != nil {
				util.HandleFatalError(err)
			}

			if err := gateway.Download(ctx, contextID, args[1], args[2]); err != nil {
				util.HandleFatalError(err)
			}
			fmt.Printf("Downloaded %s:%s to %s\n", args[0], args[1], args[2])
		},
	}
}

func newDelete() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <context> <path>",
		Short: "Delete an object from a context",
		Args:  cobra.ExactArgs(2),
		Run: func(_ *cobra.Command, args []string) {
			gateway, directory, err := getGateway()
			if err != nil {
				util.HandleFatalError(err)
			}

			ctx := context.Background()
			contextID, err := resolveContext(ctx, directory, args[0])
			if err != nil {
				util.HandleFatalError(err)
			}

			if err := gateway.DeleteFile(ctx, contextID, args[1]); err != nil {
				util.HandleFatalError(err)
			}
			fmt.Printf("Deleted %s:%s\n", args[0], args[1])
		},
	}
}

func newList() *cobra.Command {
	var folder string
	var page, pageSize int
	cmd := &cobra.Command{
		Use:   "list <context>",
		Short: "List the objects stored in a context",
		Args:  cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			gateway, directory, err := getGateway()
			if err != nil {
				util.HandleFatalError(err)
			}

			ctx := context.Background()
			contextID, err := resolveContext(ctx, directory, args[0])
			if err != nil {
				util.HandleFatalError(err)
			}

			result, err := gateway.ListFiles(ctx, contextID, folder, page, pageSize)
			if err != nil {
				util.HandleFatalError(err)
			}

			for _, entry := range result.Entries {
				fmt.Printf("%s\t%d\t%s\n", entry.Path, entry.Size,
					entry.ModTime.Format("2006-01-02 15:04:05"))
			}
			if result.Total > page*pageSize {
				fmt.Printf("... %d objects total; rerun with --page %d\n",
					result.Total, page+1)
			}
		},
	}
	cmd.Flags().StringVar(&folder, "folder", "/", "Only list objects under this folder")
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 50, "Page size")
	return cmd
}
