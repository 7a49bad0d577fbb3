// Package dialer hands phone numbers to the platform's tel: URL handler.
package dialer

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Opener launches a URL with whatever the host has registered for its scheme.
type Opener interface {
	Open(ctx context.Context, url string) error
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, url string) error

// Open implements Opener.
func (f OpenerFunc) Open(ctx context.Context, url string) error { return f(ctx, url) }

// Dialer turns a phone number into a tel: URL and opens it.
type Dialer struct {
	opener Opener
}

// New returns a Dialer using opener, or ExecOpener when opener is nil.
func New(opener Opener) *Dialer {
	if opener == nil {
		opener = ExecOpener{}
	}
	return &Dialer{opener: opener}
}

// Dial opens tel:<number>. An empty number does nothing. The number is passed
// through as entered.
func (d *Dialer) Dial(ctx context.Context, number string) error {
	if number == "" {
		return nil
	}
	if err := d.opener.Open(ctx, URL(number)); err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	return nil
}

// URL returns the tel: URL for number.
func URL(number string) string {
	return "tel:" + number
}

// ExecOpener runs the desktop URL opener: open on macOS, xdg-open elsewhere.
type ExecOpener struct {
	// Command overrides the opener binary.
	Command string
}

// Open implements Opener.
func (o ExecOpener) Open(ctx context.Context, url string) error {
	name := o.command()
	out, err := exec.CommandContext(ctx, name, url).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %w: %s", name, url, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (o ExecOpener) command() string {
	if o.Command != "" {
		return o.Command
	}
	if runtime.GOOS == "darwin" {
		return "open"
	}
	return "xdg-open"
}
