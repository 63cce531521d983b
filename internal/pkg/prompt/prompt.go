package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/term"
)

// Terminal asks the user for credentials on the controlling terminal
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
}

func NewTerminal() *Terminal {
	return &Terminal{
		in:  bufio.NewReader(os.Stdin),
		out: os.Stderr,
		fd:  int(os.Stdin.Fd()),
	}
}

func (t *Terminal) Username() (string, error) {
	fmt.Fprint(t.out, "username: ")
	line, err := t.in.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", errors.Wrap(err, "reading username")
	}

	return strings.TrimSpace(line), nil
}

// Password reads a password with echo disabled
func (t *Terminal) Password() (string, error) {
	if !term.IsTerminal(t.fd) {
		return "", errors.New("no terminal available for password prompt (use --password or NEST_PASSWORD)")
	}

	fmt.Fprint(t.out, "password: ")
	b, err := term.ReadPassword(t.fd)
	fmt.Fprintln(t.out)
	if err != nil {
		return "", errors.Wrap(err, "reading password")
	}

	return string(b), nil
}
