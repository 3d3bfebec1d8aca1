package main

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"

	"github.com/and161185/sm-portal/internal/errs"
	"github.com/and161185/sm-portal/internal/model"
)

// readAll reads a file, or stdin when p is "-".
func readAll(stdin io.Reader, p string) ([]byte, error) {
	if p == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(p)
}

// text returns inline when set, otherwise the contents of file.
func (a *app) text(inline, file, what string) (string, error) {
	if inline != "" {
		return inline, nil
	}
	if file == "" {
		return "", errs.Validation("%s is required", what)
	}
	b, err := readAll(a.stdin, file)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(b), "\n"), nil
}

// secret returns the flag value or asks for it with a masked prompt.
func (a *app) secret(flagVal, label string) (model.Password, error) {
	if flagVal != "" {
		return model.Password(flagVal), nil
	}
	if !a.cfg.Interactive {
		return "", errs.Validation("%s is required", strings.ToLower(label))
	}
	in, out := a.promptIO()
	p := promptui.Prompt{Label: label, Mask: '*', Stdin: in, Stdout: out}
	v, err := p.Run()
	if err != nil {
		return "", err
	}
	return model.Password(v), nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// promptIO adapts the command's streams to what promptui expects. Files are
// passed through so the terminal can still be put in raw mode.
func (a *app) promptIO() (io.ReadCloser, io.WriteCloser) {
	in, ok := a.stdin.(io.ReadCloser)
	if !ok {
		in = io.NopCloser(a.stdin)
	}
	out, ok := a.stdout.(io.WriteCloser)
	if !ok {
		out = nopWriteCloser{a.stdout}
	}
	return in, out
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, errs.Validation("invalid id %q", s)
	}
	return id, nil
}
