package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"lifeline/internal/views"
)

var errUsage = errors.New("usage")

func runList(a *app, stdout io.Writer) error {
	for _, tile := range a.dashboard.Tiles() {
		phone := tile.PhoneNumber
		if !tile.Dialable {
			phone = "-"
		}
		if _, err := fmt.Fprintf(stdout, "%s\t%s %s\t%s\n", tile.ID, tile.Glyph, tile.Name, phone); err != nil {
			return err
		}
	}
	return nil
}

// bufferFlags registers -name/-phone/-icon and applies the ones given on the command line.
func bufferFlags(name string, stderr io.Writer) (*flag.FlagSet, func(*views.Buffer)) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	contactName := fs.String("name", "", "contact name")
	phone := fs.String("phone", "", "phone number")
	icon := fs.String("icon", "", "icon name (see lifeline icons)")
	return fs, func(buf *views.Buffer) {
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "name":
				buf.Name = *contactName
			case "phone":
				buf.PhoneNumber = *phone
			case "icon":
				buf.IconName = *icon
			}
		})
	}
}

func runAdd(ctx context.Context, a *app, args []string, stdout, stderr io.Writer) error {
	fs, apply := bufferFlags("add", stderr)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	buf := a.settings.BeginAdd()
	apply(&buf)
	c, err := a.settings.Save(ctx, buf)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout, "added %s\t%s\n", c.ID, c.Name)
	return err
}

func runEdit(ctx context.Context, a *app, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		_, _ = fmt.Fprintln(stderr, "edit: contact id required")
		return errUsage
	}
	id := args[0]
	fs, apply := bufferFlags("edit", stderr)
	if err := fs.Parse(args[1:]); err != nil {
		return errUsage
	}
	buf, ok := a.settings.BeginEdit(id)
	if !ok {
		return fmt.Errorf("contact %s not found", id)
	}
	apply(&buf)
	c, err := a.settings.Save(ctx, buf)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout, "updated %s\t%s\n", c.ID, c.Name)
	return err
}

func runDelete(ctx context.Context, a *app, args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return errUsage
	}
	if err := a.settings.Delete(ctx, args[0]); err != nil {
		return err
	}
	_, err := fmt.Fprintf(stdout, "deleted %s\n", args[0])
	return err
}

func runDial(ctx context.Context, a *app, args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return errUsage
	}
	if !a.dashboard.Tap(ctx, args[0]) {
		_, err := fmt.Fprintf(stdout, "nothing to dial for %s\n", args[0])
		return err
	}
	_, err := fmt.Fprintf(stdout, "dialing %s\n", args[0])
	return err
}
