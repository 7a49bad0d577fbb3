// Command lifeline manages the emergency contact list and dials contacts.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"lifeline/internal/config"
	"lifeline/internal/dialer"
	"lifeline/internal/views"
	"lifeline/pkg/domain"
)

var (
	exitFunc  = os.Exit
	newOpener = func() dialer.Opener { return dialer.ExecOpener{} }
)

const usage = `usage: lifeline [-env FILE] <command> [flags]

commands:
  list                          show the contacts in display order
  add  [-name N] [-phone P] [-icon I]
  edit <id> [-name N] [-phone P] [-icon I]
  delete <id>
  dial <id>                     call the contact's number
  icons                         list selectable icons
`

func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("lifeline", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { _, _ = fmt.Fprint(stderr, usage) }
	envFile := fs.String("env", config.DefaultEnvFile, "optional .env file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return 2
	}
	cmd, cmdArgs := rest[0], rest[1:]
	if cmd == "icons" {
		for _, icon := range domain.SelectableIcons() {
			_, _ = fmt.Fprintf(stdout, "%s %s\n", views.Glyph(icon), icon)
		}
		return 0
	}

	cfg, err := config.LoadFile(*envFile)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "configuration: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	a, err := openApp(ctx, cfg, stderr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "startup: %v\n", err)
		return 1
	}

	code := dispatch(ctx, a, cmd, cmdArgs, stdout, stderr)
	if err := a.close(ctx); err != nil {
		_, _ = fmt.Fprintf(stderr, "shutdown: %v\n", err)
		if code == 0 {
			code = 1
		}
	}
	return code
}

func dispatch(ctx context.Context, a *app, cmd string, args []string, stdout, stderr io.Writer) int {
	var err error
	switch cmd {
	case "list":
		err = runList(a, stdout)
	case "add":
		err = runAdd(ctx, a, args, stdout, stderr)
	case "edit":
		err = runEdit(ctx, a, args, stdout, stderr)
	case "delete":
		err = runDelete(ctx, a, args, stdout)
	case "dial":
		err = runDial(ctx, a, args, stdout)
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n%s", cmd, usage)
		return 2
	}
	if errors.Is(err, errUsage) {
		return 2
	}
	if notice, ok := views.NoticeFor(err); ok {
		_, _ = fmt.Fprintf(stderr, "%s: %s\n", notice.Title, notice.Message)
		return 1
	}
	return 0
}
