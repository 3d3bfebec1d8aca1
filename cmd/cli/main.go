// Command smportal is a command-line client for the SM portal site API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"

	"github.com/and161185/sm-portal/internal/config"
	"github.com/and161185/sm-portal/internal/errs"
	"github.com/and161185/sm-portal/internal/gateway"
	"github.com/and161185/sm-portal/internal/notify"
	"github.com/and161185/sm-portal/internal/qna"
	"github.com/and161185/sm-portal/internal/reference"
	"github.com/and161185/sm-portal/internal/session"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// app is the state shared by every subcommand of one invocation.
type app struct {
	cfgFile        string
	baseURL        string
	verbose        bool
	nonInteractive bool

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	cfg      *config.Config
	log      *zap.Logger
	jar      *cookiejar.Jar
	gw       *gateway.Gateway
	session  *session.Store
	posts    *qna.PostStore
	comments *qna.CommentStore
	refs     *reference.Store
}

// setup loads configuration and wires the gateway and stores.
func (a *app) setup() error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.baseURL != "" {
		cfg.BaseURL = a.baseURL
	}
	if a.nonInteractive {
		cfg.Interactive = false
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrValidation, err)
	}
	a.cfg = cfg

	if a.log, err = newLogger(cfg.LogLevel, a.verbose); err != nil {
		return err
	}

	a.jar, err = cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return err
	}

	a.gw, err = gateway.New(gateway.Options{
		BaseURL:    cfg.BaseURL,
		HTTPClient: &http.Client{Jar: a.jar},
		Timeout:    cfg.Timeout,
		Logger:     a.log,
		Notifier:   a.notifier(),
	})
	if err != nil {
		return err
	}
	a.session = session.NewStore(a.gw, a.log)
	a.gw.BindSession(a.session)
	a.posts = qna.NewPostStore(a.gw)
	a.comments = qna.NewCommentStore(a.gw)
	a.refs = reference.NewStore(a.gw)

	if err := restoreState(statePath(), cfg.BaseURL, a.jar, a.session); err != nil {
		a.log.Debug("no saved session", zap.Error(err))
	}
	return nil
}

// notifier logs notices and, in interactive mode, also asks the user to
// acknowledge them on the command's own stdin/stdout.
func (a *app) notifier() gateway.Notifier {
	var n gateway.Notifier = notify.Log{L: a.log}
	if a.cfg.Interactive {
		in, out := a.promptIO()
		n = notify.Multi{n, &notify.Prompt{Stdin: in, Stdout: out}}
	}
	return n
}

// persist saves cookies and the session snapshot; it runs after every command,
// failed ones included, so an expiry observed mid-command is remembered.
func (a *app) persist() {
	if a.session == nil {
		return
	}
	if err := saveState(statePath(), a.cfg.BaseURL, a.jar, a.session.Snapshot()); err != nil {
		a.log.Warn("save session state", zap.Error(err))
	}
	_ = a.log.Sync()
}

func newLogger(level string, verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	zc := zap.NewProductionConfig()
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zc.Level = lvl
	return zc.Build()
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "smportal",
		Short:         "Command-line client for the SM portal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations["offline"] == "true" {
				return nil
			}
			return a.setup()
		},
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.PersistentFlags().StringVar(&a.cfgFile, "config", config.DefaultPath(), "config file path")
	root.PersistentFlags().StringVar(&a.baseURL, "base-url", "", "API base URL (overrides config)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose logging")
	root.PersistentFlags().BoolVar(&a.nonInteractive, "non-interactive", false, "never prompt; log notices instead")

	root.AddCommand(
		newVersionCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newPasswdCmd(a),
		newProfileCmd(a),
		newAdminsCmd(a),
		newQnACmd(a),
		newRefsCmd(a),
		newCategoriesCmd(a),
		newStatusCmd(a),
	)
	return root
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the client version",
		Annotations: map[string]string{"offline": "true"},
		Args:        cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			fmt.Fprintf(a.stdout, "smportal %s (%s)\n", version, buildDate)
		},
	}
}

// run executes one CLI invocation.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	root := newRootCmd(a)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	a.persist()
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fail(os.Stderr, err)
	}
}

// ---- utils ----

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// describe turns an error into a one-line message for the terminal.
func describe(err error) string {
	var msg string
	var he *errs.HTTPError
	if errors.As(err, &he) && he.Message != "" {
		msg = ": " + he.Message
	}
	switch {
	case errors.Is(err, errs.ErrUnauthenticated):
		return "login required (run `smportal login`)"
	case errors.Is(err, errs.ErrForbidden):
		return "wrong password or not allowed" + msg
	case errors.Is(err, errs.ErrNotFound):
		return "not found" + msg
	case errors.Is(err, errs.ErrRateLimited):
		return "too many attempts, try again later"
	case errors.Is(err, errs.ErrConflict):
		return "conflict" + msg
	case errors.Is(err, errs.ErrValidation):
		if he != nil {
			return "rejected" + msg
		}
		return err.Error()
	case errors.Is(err, errs.ErrNetwork):
		return "cannot reach server: " + err.Error()
	}
	return err.Error()
}

func fail(w io.Writer, err error) {
	fmt.Fprintln(w, "error:", describe(err))
	os.Exit(1)
}
