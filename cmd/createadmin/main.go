// Command createadmin creates an online banking administrator.
// Missing flags are asked for interactively; the password is read without echo.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"banco/internal/app"
	"banco/internal/bizerror"
	"banco/internal/config"
	"banco/internal/database"
	"banco/internal/logging"
	"banco/internal/service"

	"golang.org/x/term"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("createadmin", flag.ContinueOnError)
	var req service.CreateAdminRequest
	fs.StringVar(&req.Email, "email", "", "administrator email")
	fs.StringVar(&req.Username, "username", "", "administrator username")
	fs.StringVar(&req.Password, "password", "", "administrator password")
	fs.StringVar(&req.FirstName, "first_name", "", "first name")
	fs.StringVar(&req.LastName, "last_name", "", "last name")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	in := bufio.NewReader(os.Stdin)
	var err error
	for _, f := range []struct {
		label string
		dest  *string
	}{
		{"Email", &req.Email},
		{"Username", &req.Username},
		{"Password", &req.Password},
		{"Nombre", &req.FirstName},
		{"Apellido", &req.LastName},
	} {
		if *f.dest != "" {
			continue
		}
		if f.dest == &req.Password {
			*f.dest, err = promptSecret(in, f.label)
		} else {
			*f.dest, err = prompt(in, f.label)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Log.WithError(err).Error("invalid configuration")
		return 1
	}
	logging.Configure(cfg.IsRelease(), cfg.LogLevel)

	db, err := database.NewConnection(cfg)
	if err != nil {
		logging.Log.WithError(err).Error("database connection failed")
		return 1
	}

	a := app.New(db, cfg, nil)
	customer, err := a.Customers.CreateAdmin(context.Background(), req)
	if errors.Is(err, bizerror.ErrDuplicateName) {
		fmt.Fprintf(os.Stderr, "Un usuario con email %s o username %s ya existe.\n", req.Email, req.Username)
		return 1
	}
	if err != nil {
		logging.Log.WithError(err).Error("create admin failed")
		return 1
	}

	fmt.Printf("Administrador %s creado exitosamente.\n", customer.Email)
	return 0
}

func prompt(in *bufio.Reader, label string) (string, error) {
	fmt.Printf("%s: ", label)
	return readLine(in)
}

func readLine(in *bufio.Reader) (string, error) {
	line, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func promptSecret(in *bufio.Reader, label string) (string, error) {
	fmt.Printf("%s: ", label)
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return readLine(in)
	}
	raw, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
