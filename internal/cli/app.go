package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/brestid/internal/common"
	"github.com/dmitrijs2005/brestid/internal/server/models"
)

// AuthProvider is the slice of the auth service the operator tool needs.
type AuthProvider interface {
	Register(ctx context.Context, email, password, name string) (*models.PublicUser, error)
	PruneSessions(ctx context.Context) (int64, error)
}

type App struct {
	auth   AuthProvider
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(auth AuthProvider) *App {
	return &App{auth: auth, reader: bufio.NewReader(os.Stdin), out: os.Stdout}
}

// Run executes a single operator command and returns its error.
func (a *App) Run(ctx context.Context, command string) error {
	switch command {
	case "adduser":
		return a.addUser(ctx)
	case "prune":
		return a.prune(ctx)
	default:
		fmt.Fprintln(a.out, "Usage: brestid-cli <command>")
		fmt.Fprintln(a.out, "Commands:")
		fmt.Fprintln(a.out, "  adduser   create a user interactively")
		fmt.Fprintln(a.out, "  prune     delete expired session rows")
		if command == "" {
			return nil
		}
		return fmt.Errorf("unknown command: %s", command)
	}
}

func (a *App) addUser(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return err
	}

	name, err := GetSimpleText(a.reader, "Name (optional)", a.out)
	if err != nil {
		return err
	}

	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}

	user, err := a.auth.Register(ctx, email, string(password), name)
	if err != nil {
		var ve *common.ValidationError
		if errors.As(err, &ve) {
			for _, f := range ve.Fields {
				fmt.Fprintf(a.out, "%s: %s\n", f.Field, f.Message)
			}
			return err
		}
		if errors.Is(err, common.ErrEmailTaken) {
			fmt.Fprintln(a.out, "A user with this email already exists")
			return err
		}
		return err
	}

	fmt.Fprintf(a.out, "Created user %s (%s)\n", user.Email, user.ID)
	return nil
}

func (a *App) prune(ctx context.Context) error {
	deleted, err := a.auth.PruneSessions(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted %d expired sessions\n", deleted)
	return nil
}
