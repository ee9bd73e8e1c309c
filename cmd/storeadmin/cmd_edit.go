package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-storeform/pkg/client"
	"github.com/goliatone/go-storeform/pkg/navigate"
	"github.com/goliatone/go-storeform/pkg/notify"
	"github.com/goliatone/go-storeform/pkg/prompt"
	"github.com/goliatone/go-storeform/pkg/registry"
	"github.com/goliatone/go-storeform/pkg/session"
	"github.com/goliatone/go-storeform/pkg/state"
	"github.com/goliatone/go-storeform/pkg/submit"
)

func newEditCmd(a *app) *cobra.Command {
	var role, codeField string
	cmd := &cobra.Command{
		Use:   "edit <entity> [id]",
		Short: "Create or update a record interactively",
		Long: `Loads the record (when an id is given) and every lookup list the form
needs, prompts for each field, validates locally and submits.

Examples:
  storeadmin edit coupon
  storeadmin edit inventory 42
  storeadmin edit coupon --generate-code coupon_code`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id string
			if len(args) == 2 {
				id = args[1]
			}
			return a.edit(cmd, args[0], id, role, codeField)
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "require the session to hold this role")
	cmd.Flags().StringVar(&codeField, "generate-code", "", "fill this field with a random code before prompting")
	return cmd
}

func (a *app) edit(cmd *cobra.Command, entity, id, role, codeField string) error {
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	form, ok := a.registry.Form(entity)
	if !ok {
		return fmt.Errorf("%w %q", registry.ErrUnknownEntity, entity)
	}

	sess, err := a.sessions.Load()
	if errors.Is(err, session.ErrNotFound) {
		return fmt.Errorf("%w: run storeadmin login", session.ErrMissing)
	}
	if err != nil {
		return err
	}
	if err := sess.Guard(role, time.Now()); err != nil {
		return err
	}

	storeID := sess.StoreID
	if storeID == "" {
		storeID = a.cfg.API.StoreID
	}
	api, err := client.New(a.cfg.API.BaseURL,
		client.WithHTTPClient(&http.Client{Timeout: a.cfg.GetTimeout()}),
		client.WithTokenSource(sess.TokenSource()),
		client.WithStoreID(storeID),
		client.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	logger := a.logger.With(zap.String("entity", entity))
	store := state.New(form, state.WithID(id))
	coord, err := submit.New(form, store, api,
		submit.WithNotifier(notify.Multi{notify.NewWriter(out), notify.NewLogSink(logger)}),
		submit.WithNavigator(terminalNavigator(out)),
		submit.WithLogger(logger),
		submit.WithRedirectDelay(a.cfg.GetRedirectDelay()),
	)
	if err != nil {
		return err
	}
	defer coord.Close()

	ctx := cmd.Context()
	// A missing lookup list only disables its selects; the editor skips them.
	if err := coord.Load(ctx, id); err != nil && !errors.Is(err, submit.ErrLookupFailed) {
		return err
	}
	if codeField != "" {
		code, err := coord.GenerateCode(codeField)
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		fmt.Fprintf(out, "Generated %s\n", code)
	}

	editor, err := prompt.New(coord,
		prompt.WithDriver(prompt.NewSurveyDriver(out)),
		prompt.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	res, err := editor.Edit(ctx)
	if errors.Is(err, prompt.ErrCancelled) || errors.Is(err, prompt.ErrAborted) {
		fmt.Fprintln(out, "Nothing saved")
		return nil
	}
	if err != nil {
		return err
	}
	if res.Outcome != submit.OutcomeSaved {
		return fmt.Errorf("%s not saved: %s", entity, res.Message)
	}
	// Let the success toast run its course before exiting.
	coord.Wait()
	return nil
}

func terminalNavigator(out io.Writer) navigate.Navigator {
	return navigate.Func(func(path string, st navigate.State) {
		if id := navigate.IDFrom(st); id != "" {
			fmt.Fprintf(out, "→ %s (%s)\n", path, id)
			return
		}
		fmt.Fprintf(out, "→ %s\n", path)
	})
}
