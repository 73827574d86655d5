package command

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/adamavenir/huddle/internal/db"
	"github.com/adamavenir/huddle/internal/metrics"
	"github.com/adamavenir/huddle/internal/notify"
	"github.com/adamavenir/huddle/internal/realtime"
	"github.com/adamavenir/huddle/internal/session"
	"github.com/adamavenir/huddle/internal/types"
)

const watchHelp = `Type a message and press enter to send it to the open thread.
  /threads                      list threads on the current tab
  /open <id>                    open a thread
  /close                        close the open thread
  /tab my-threads|all-threads   switch tabs
  /join [id]                    ask to join (defaults to the open thread)
  /approve <id> <user-id>       approve a join request
  /reject <id> <user-id>        reject a join request
  /create title | description | location
  /rename <title>               retitle the open thread
  /delete <id>                  delete a thread
  /refresh                      reload the thread list
  /quit                         leave`

// NewWatchCmd creates the interactive watch command.
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [thread-id]",
		Short: "Stay connected and chat in real time",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runWatch,
	}
	cmd.Flags().String("metrics-addr", "", "serve prometheus metrics on this address (e.g. :9090)")
	cmd.Flags().Bool("desktop", false, "also send notices as desktop notifications")
	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, err := GetContext(cmd)
	if err != nil {
		return writeCommandError(cmd, err)
	}
	creds, err := ctx.RequireUser()
	if err != nil {
		return writeCommandError(cmd, err)
	}

	runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store db.StateStore
	if opened, err := db.Open(runCtx, ctx.Config.StateURL, ctx.ConfigDir); err != nil {
		ctx.Logger.Warn("state store unavailable, view will not be restored", "err", err)
	} else {
		store = opened
		defer opened.Close()
	}

	desktop, _ := cmd.Flags().GetBool("desktop")
	sinks := []notify.Sink{notify.NewTerminalSink(cmd.ErrOrStderr())}
	if desktop || ctx.Config.DesktopNotify {
		sinks = append(sinks, notify.NewDesktopSink("huddle"))
	}
	notices := notify.New(sinks, notify.WithLogger(ctx.Logger))
	defer notices.Close()

	m := metrics.New()
	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		srv := &http.Server{Addr: addr, Handler: m.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				ctx.Logger.Error("metrics server failed", "addr", addr, "err", err)
			}
		}()
		defer srv.Close()
	}

	var live atomic.Pointer[session.Session]
	client, err := realtime.Dial(runCtx, realtime.Options{
		URL:   ctx.Config.WSURL,
		Token: creds.Token,
		OnConnect: func() {
			m.SetConnected(true)
			if s := live.Load(); s != nil {
				s.Resync()
			}
		},
		OnDisconnect: func(err error) {
			m.SetConnected(false)
			ctx.Logger.Error("realtime connection lost for good", "err", err)
		},
		Logger: ctx.Logger,
	})
	if err != nil {
		return writeCommandError(cmd, fmt.Errorf("connect %s: %w", ctx.Config.WSURL, err))
	}

	sess, err := session.New(session.Options{
		User:           creds.User,
		API:            ctx.API,
		Transport:      client,
		Store:          store,
		Notices:        notices,
		Metrics:        m,
		CredentialsDir: ctx.ConfigDir,
		Logger:         ctx.Logger,
	})
	if err != nil {
		_ = client.Close()
		return writeCommandError(cmd, err)
	}
	live.Store(sess)
	defer sess.Close()

	if err := sess.Start(runCtx); err != nil {
		return writeCommandError(cmd, err)
	}

	out := cmd.OutOrStdout()
	w := &watcher{sess: sess, out: out, lines: scanLines(cmd.InOrStdin())}
	off := client.On(w.printEvent)
	defer off()

	fmt.Fprintf(out, "Connected as %s. Type /help for commands.\n", creds.User.Username)
	if len(args) == 1 {
		w.open(args[0])
	} else if st := sess.State(); st.Open != nil {
		fmt.Fprintf(out, "Restored %s\n", st.Open.Title)
	}

	for {
		select {
		case <-runCtx.Done():
			return nil
		case <-sess.Done():
			return writeCommandError(cmd, sess.Err())
		case line, ok := <-w.lines:
			if !ok {
				return nil
			}
			if quit := w.handle(runCtx, line); quit {
				return nil
			}
		}
	}
}

type watcher struct {
	sess  *session.Session
	out   io.Writer
	lines <-chan string
}

func scanLines(in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

// parseInput splits a slash command into its name and arguments. Plain text
// returns an empty name.
func parseInput(line string) (string, []string) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return "", nil
	}
	fields := strings.Fields(line[1:])
	if len(fields) == 0 {
		return "", nil
	}
	return strings.ToLower(fields[0]), fields[1:]
}

// parseCreate reads "title | description | location".
func parseCreate(args []string) (types.NewThreadInput, bool) {
	parts := strings.Split(strings.Join(args, " "), "|")
	if len(parts) != 3 {
		return types.NewThreadInput{}, false
	}
	return types.NewThreadInput{
		Title:            strings.TrimSpace(parts[0]),
		Description:      strings.TrimSpace(parts[1]),
		Location:         strings.TrimSpace(parts[2]),
		RequiresApproval: true,
	}, true
}

func (w *watcher) handle(ctx context.Context, line string) bool {
	if strings.TrimSpace(line) == "" {
		return false
	}
	name, args := parseInput(line)
	switch name {
	case "":
		if err := w.sess.Send(line); err != nil {
			w.fail(err)
		}
	case "quit", "exit":
		return true
	case "help":
		fmt.Fprintln(w.out, watchHelp)
	case "threads":
		w.listThreads()
	case "open":
		if len(args) != 1 {
			w.usage("/open <id>")
			return false
		}
		w.open(args[0])
	case "close":
		w.report(w.sess.CloseThread())
	case "tab":
		if len(args) != 1 {
			w.usage("/tab my-threads|all-threads")
			return false
		}
		w.report(w.sess.SetTab(types.Tab(args[0])))
	case "join":
		id := w.sess.State().OpenID()
		if len(args) == 1 {
			id = args[0]
		}
		if id == "" {
			w.usage("/join <id>")
			return false
		}
		_, err := w.sess.RequestJoin(ctx, id)
		w.report(err)
	case "approve", "reject":
		if len(args) != 2 {
			w.usage("/" + name + " <id> <user-id>")
			return false
		}
		w.report(w.sess.HandleRequest(ctx, args[0], args[1], name == "approve"))
	case "create":
		input, ok := parseCreate(args)
		if !ok {
			w.usage("/create title | description | location")
			return false
		}
		_, err := w.sess.CreateThread(ctx, input)
		w.report(err)
	case "rename":
		id := w.sess.State().OpenID()
		if id == "" || len(args) == 0 {
			w.usage("/rename <title> (with a thread open)")
			return false
		}
		_, err := w.sess.UpdateThread(ctx, id, map[string]any{"title": strings.Join(args, " ")})
		w.report(err)
	case "delete":
		if len(args) != 1 {
			w.usage("/delete <id>")
			return false
		}
		_, err := w.sess.DeleteThread(ctx, args[0], w.confirm)
		if errors.Is(err, session.ErrNotConfirmed) {
			fmt.Fprintln(w.out, "Cancelled")
			return false
		}
		w.report(err)
	case "refresh":
		w.report(w.sess.Refresh(ctx))
	default:
		fmt.Fprintf(w.out, "Unknown command /%s. Type /help for commands.\n", name)
	}
	return false
}

// confirm reads the answer from the input stream. Refreshes pause while the
// prompt is up.
func (w *watcher) confirm(prompt session.DeletePrompt) bool {
	_ = w.sess.SetModal(true)
	defer func() { _ = w.sess.SetModal(false) }()
	fmt.Fprintf(w.out, "%s%s%s\n%s\n\nContinue? [y/N] ", bold, prompt.Title, reset, prompt.Message)
	line, ok := <-w.lines
	if !ok {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func (w *watcher) open(id string) {
	if err := w.sess.Open(id); err != nil {
		w.fail(err)
		return
	}
	st := w.sess.State()
	view := st.OpenView()
	if view == nil {
		return
	}
	fmt.Fprintln(w.out, FormatThreadDetail(*view, st.UserID(), time.Now()))
	switch st.Gate {
	case types.GatePending:
		fmt.Fprintln(w.out, yellow+"Your join request is pending approval."+reset)
	case types.GateJoinPrompt:
		fmt.Fprintln(w.out, yellow+"This thread requires approval. Use /join to ask."+reset)
	}
}

func (w *watcher) listThreads() {
	st := w.sess.State()
	threads := st.Threads
	if st.Tab == types.TabMyThreads {
		threads = st.Owned
	}
	if len(threads) == 0 {
		fmt.Fprintf(w.out, "No threads on %s\n", st.Tab)
		return
	}
	now := time.Now()
	for _, t := range threads {
		fmt.Fprintln(w.out, FormatThread(t, st.UserID(), now))
	}
}

// printEvent shows chat for the open thread. It runs after the session has
// applied the event.
func (w *watcher) printEvent(ev types.Event) {
	msg, ok := ev.(types.NewMessageEvent)
	if !ok {
		return
	}
	st := w.sess.State()
	if st.Open == nil || st.Locked {
		return
	}
	if msg.ThreadID != "" && msg.ThreadID != st.Open.ID {
		return
	}
	fmt.Fprintln(w.out, FormatMessage(msg.Message))
}

func (w *watcher) usage(text string) {
	fmt.Fprintf(w.out, "Usage: %s\n", text)
}

func (w *watcher) report(err error) {
	if err != nil {
		w.fail(err)
	}
}

func (w *watcher) fail(err error) {
	fmt.Fprintf(w.out, "%s%s%s\n", red, err.Error(), reset)
}
