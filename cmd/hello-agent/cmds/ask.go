package cmds

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/go-go-golems/hello-agent/pkg/conversation"
	"github.com/go-go-golems/hello-agent/pkg/events"
	"github.com/go-go-golems/hello-agent/pkg/inference/toolloop"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

const askEventsTopic = "ask-events"

type askOptions struct {
	PrintHistory bool
	PrintEvents  bool
}

func NewAskCommand() *cobra.Command {
	opts := askOptions{}
	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Run a single message through the agent in-process and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings()
			if err != nil {
				return err
			}
			loop, err := buildLoop(s)
			if err != nil {
				return err
			}
			return runAsk(cmd.Context(), loop, strings.Join(args, " "), opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&opts.PrintHistory, "history", false, "Print the resulting history as YAML")
	cmd.Flags().BoolVar(&opts.PrintEvents, "events", false, "Log the run events")
	return cmd
}

// runAsk runs one message through loop and writes the answer to w. With PrintEvents, run
// events are routed through an in-memory pub/sub and logged as they arrive.
func runAsk(ctx context.Context, loop *toolloop.Loop, text string, opts askOptions, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = events.WithMetadata(ctx, events.EventMetadata{
		RunID:    uuid.NewString(),
		ThreadID: uuid.NewString(),
	})

	var res *toolloop.Result
	run := func(ctx context.Context) error {
		var err error
		res, err = loop.Run(ctx, conversation.Conversation{}, text)
		return err
	}

	var runErr error
	if opts.PrintEvents {
		runErr = runWithEventLog(ctx, run)
	} else {
		runErr = run(ctx)
	}

	if opts.PrintHistory && res != nil {
		if err := printHistory(w, res); err != nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}
	_, err := fmt.Fprintln(w, res.FinalText)
	return err
}

func runWithEventLog(ctx context.Context, run func(context.Context) error) error {
	pubSub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, events.NewWatermillLogger(log.Logger))

	logCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	eg := errgroup.Group{}
	// gochannel drops messages published before anyone subscribed
	messages, err := pubSub.Subscribe(logCtx, askEventsTopic)
	if err != nil {
		return errors.Wrap(err, "failed to subscribe to run events")
	}
	eg.Go(func() error {
		return events.LogMessages(logCtx, messages)
	})

	runErr := run(events.WithEventSinks(ctx, events.NewWatermillSink(pubSub, askEventsTopic)))

	// closing the pub/sub closes the subscription, which ends LogMessages once drained
	_ = pubSub.Close()
	_ = eg.Wait()
	return runErr
}

func printHistory(w io.Writer, res *toolloop.Result) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer func() {
		_ = enc.Close()
	}()
	if err := enc.Encode(res); err != nil {
		return errors.Wrap(err, "failed to encode history")
	}
	return nil
}
