package contexts

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/agbcloud/agbcloud-sdk-sub000/cmd/util"
	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/clear"
	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/client"
	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/contexts"
)

// New creates the `context` command tree.
func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "context",
		Short: "Manage persistent contexts",
	}
	cmd.AddCommand(
		newCreate(),
		newGet(),
		newList(),
		newUpdate(),
		newDelete(),
		newClear(),
	)
	return cmd
}

func getDirectory(region string) (*contexts.Directory, error) {
	c, userConfig, err := util.GetClient()
	if err != nil {
		return nil, err
	}
	if region == "" {
		region = userConfig.Region
	}
	return contexts.NewDirectory(c, region), nil
}

func newCreate() *cobra.Command {
	var region string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new context",
		Args:  cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			directory, err := getDirectory(region)
			if err != nil {
				util.HandleFatalError(err)
			}

			handle, err := directory.Create(context.Background(), args[0])
			if err != nil {
				util.HandleFatalError(err)
			}
			fmt.Printf("Created context %q (%s)\n", handle.Name, handle.ID)
		},
	}
	cmd.Flags().StringVar(&region, "region", "", "Region to create the context in")
	return cmd
}

func newGet() *cobra.Command {
	var region string
	var create bool
	cmd := &cobra.Command{
		Use:   "get <name>",
		Short: "Look up a context by name",
		Args:  cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			directory, err := getDirectory(region)
			if err != nil {
				util.HandleFatalError(err)
			}

			handle, err := directory.Get(context.Background(), contexts.GetOptions{
				Name:   args[0],
				Create: create,
			})
			if err != nil {
				util.HandleFatalError(err)
			}
			printHandle(handle)
		},
	}
	cmd.Flags().StringVar(&region, "region", "", "Region to look up the context in")
	cmd.Flags().BoolVar(&create, "create", false,
		"Create the context if it doesn't exist")
	return cmd
}

func newList() *cobra.Command {
	var maxResults int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List contexts",
		Run: func(_ *cobra.Command, _ []string) {
			directory, err := getDirectory("")
			if err != nil {
				util.HandleFatalError(err)
			}

			// Follow the cursor until the control plane signals the end of
			// results.
			page := client.PageRequest{MaxResults: maxResults}
			for {
				result, err := directory.List(context.Background(), page)
				if err != nil {
					util.HandleFatalError(err)
				}

				for _, handle := range result.Contexts {
					printHandle(handle)
				}

				if result.NextToken == "" {
					break
				}
				page.NextToken = result.NextToken
			}
		},
	}
	cmd.Flags().IntVar(&maxResults, "max-results", 10, "Page size")
	return cmd
}

func newUpdate() *cobra.Command {
	return &cobra.Command{
		Use:   "update <name> <new-name>",
		Short: "Rename a context",
		Args:  cobra.ExactArgs(2),
		Run: func(_ *cobra.Command, args []string) {
			directory, err := getDirectory("")
			if err != nil {
				util.HandleFatalError(err)
			}

			ctx := context.Background()
			handle, err := directory.Get(ctx, contexts.GetOptions{Name: args[0]})
			if err != nil {
				util.HandleFatalError(err)
			}

			handle.Name = args[1]
			handle.LastUsedAt = time.Now()
			if err := directory.Update(ctx, handle); err != nil {
				util.HandleFatalError(err)
			}
			fmt.Printf("Renamed context %q to %q\n", args[0], args[1])
		},
	}
}

func newDelete() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a context and its stored data",
		Args:  cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			directory, err := getDirectory("")
			if err != nil {
				util.HandleFatalError(err)
			}

			ctx := context.Background()
			handle, err := directory.Get(ctx, contexts.GetOptions{Name: args[0]})
			if err != nil {
				util.HandleFatalError(err)
			}

			if err := directory.Delete(ctx, handle); err != nil {
				util.HandleFatalError(err)
			}
			fmt.Printf("Deleted context %q\n", handle.Name)
		},
	}
}

func newClear() *cobra.Command {
	var timeout, pollInterval time.Duration
	var async bool
	cmd := &cobra.Command{
		Use:   "clear <name>",
		Short: "Empty a context's stored data",
		Args:  cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			c, _, err := util.GetClient()
			if err != nil {
				util.HandleFatalError(err)
			}

			ctx := context.Background()
			directory, err := getDirectory("")
			if err != nil {
				util.HandleFatalError(err)
			}

			handle, err := directory.Get(ctx, contexts.GetOptions{Name: args[0]})
			if err != nil {
				util.HandleFatalError(err)
			}

			controller := clear.NewController(c)
			if async {
				result, err := controller.ClearAsync(ctx, handle.ID)
				if err != nil {
					util.HandleFatalError(err)
				}
				fmt.Printf("Clearing context %q (state %s)\n", handle.Name, result.State)
				return
			}

			result, err := controller.Clear(ctx, handle.ID, timeout, pollInterval)
			if err != nil {
				util.HandleFatalError(err)
			}
			fmt.Printf("Cleared context %q (state %s)\n", handle.Name, result.State)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", clear.DefaultTimeout,
		"How long to wait for the clear to finish")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", clear.DefaultPollInterval,
		"How often to check the clear status")
	cmd.Flags().BoolVar(&async, "async", false,
		"Trigger the clear without waiting for it to finish")
	return cmd
}

func printHandle(handle contexts.Handle) {
	fmt.Printf("%s\t%s\tcreated %s\tlast used %s\n",
		handle.ID, handle.Name,
		handle.CreatedAt.Format(time.RFC3339),
		handle.LastUsedAt.Format(time.RFC3339))
}
