package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/and161185/rollbook/internal/contact"
	"github.com/and161185/rollbook/internal/model"
	"github.com/and161185/rollbook/internal/service"
)

var (
	errUsage         = errors.New("usage")
	errNotLoggedIn   = errors.New("not logged in (run: rollbook login -u <username> -p <password>)")
	errUsernameTaken = errors.New("username already exists")
	errBadLogin      = errors.New("invalid username or password")
)

// userMessage is the text shown to a person for err.
func userMessage(err error) string {
	switch {
	case errors.Is(err, errUsernameTaken):
		return "Username already exists"
	case errors.Is(err, errBadLogin):
		return "Invalid username or password"
	}
	return err.Error()
}

var sessionCommands = map[string]bool{
	"logout": true, "whoami": true, "add": true, "list": true, "rm": true, "analyze": true,
}

type insights interface {
	AnalyzeAttendance(ctx context.Context, records []model.AttendanceRecord) string
	RefineMessage(ctx context.Context, text string) string
}

type app struct {
	auth       service.AuthService
	attendance service.AttendanceService
	insights   insights
	contact    *contact.Service
	out        io.Writer
}

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// session restores the persisted login.
func (a *app) session(ctx context.Context) (*model.User, error) {
	u, err := a.auth.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errNotLoggedIn
	}
	return u, nil
}

// text resolves "-" to stdin.
func text(v string) (string, error) {
	if v != "-" {
		return v, nil
	}
	b, err := readAll("-")
	return strings.TrimRight(string(b), "\n"), err
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "version":
		fmt.Fprintf(a.out, "rollbook %s (%s)\n", version, buildDate)
		return nil
	case "register":
		return a.register(ctx, rest)
	case "login":
		return a.login(ctx, rest)
	case "refine":
		return a.refine(ctx, rest)
	case "contact":
		return a.sendContact(ctx, rest)
	}

	if !sessionCommands[cmd] {
		return errUsage
	}
	u, err := a.session(ctx)
	if err != nil {
		return err
	}
	switch cmd {
	case "logout":
		if err := a.auth.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "ok")
	case "whoami":
		printJSON(a.out, u)
	case "add":
		return a.add(ctx, rest)
	case "list":
		records, err := a.attendance.List(ctx)
		if err != nil {
			return err
		}
		printJSON(a.out, records)
	case "rm":
		fs := newFlags("rm")
		id := fs.String("id", "", "record id")
		if err := fs.Parse(rest); err != nil || *id == "" {
			return errUsage
		}
		if err := a.attendance.Remove(ctx, *id); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "ok")
	case "analyze":
		records, err := a.attendance.List(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, a.insights.AnalyzeAttendance(ctx, records))
	}
	return nil
}

func credentialFlags(name string, args []string) (string, string, error) {
	fs := newFlags(name)
	u := fs.String("u", "", "username")
	p := fs.String("p", "", "password")
	if err := fs.Parse(args); err != nil || *u == "" || *p == "" {
		return "", "", errUsage
	}
	return *u, *p, nil
}

func (a *app) register(ctx context.Context, args []string) error {
	u, p, err := credentialFlags("register", args)
	if err != nil {
		return err
	}
	ok, err := a.auth.Register(ctx, model.User{Username: u, Role: model.RoleTeacher}, p)
	if err != nil {
		return err
	}
	if !ok {
		return errUsernameTaken
	}
	fmt.Fprintln(a.out, "ok")
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	u, p, err := credentialFlags("login", args)
	if err != nil {
		return err
	}
	user, err := a.auth.Login(ctx, u, p)
	if err != nil {
		return err
	}
	if user == nil {
		return errBadLogin
	}
	printJSON(a.out, user)
	return nil
}

func (a *app) add(ctx context.Context, args []string) error {
	fs := newFlags("add")
	name := fs.String("name", "", "student name")
	date := fs.String("date", "", "YYYY-MM-DD (default today)")
	status := fs.String("status", "", "Present|Absent|Late (default Present)")
	if err := fs.Parse(args); err != nil || *name == "" {
		return errUsage
	}
	rec, err := a.attendance.Add(ctx, model.NewRecord{
		StudentName: *name,
		Date:        *date,
		Status:      model.Status(*status),
	})
	if err != nil {
		return err
	}
	printJSON(a.out, rec)
	return nil
}

func (a *app) refine(ctx context.Context, args []string) error {
	fs := newFlags("refine")
	msg := fs.String("text", "", "message, or - for stdin")
	if err := fs.Parse(args); err != nil || *msg == "" {
		return errUsage
	}
	t, err := text(*msg)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, a.insights.RefineMessage(ctx, t))
	return nil
}

func (a *app) sendContact(ctx context.Context, args []string) error {
	fs := newFlags("contact")
	var f contact.Form
	fs.StringVar(&f.Name, "name", "", "your name")
	fs.StringVar(&f.Email, "email", "", "reply address")
	fs.StringVar(&f.Subject, "subject", "", "subject")
	fs.StringVar(&f.Message, "message", "", "message, or - for stdin")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	m, err := text(f.Message)
	if err != nil {
		return err
	}
	f.Message = m

	res, err := a.contact.Send(ctx, f)
	if err != nil {
		return err
	}
	printJSON(a.out, res)
	if !res.Success {
		return errors.New(res.Message)
	}
	return nil
}
