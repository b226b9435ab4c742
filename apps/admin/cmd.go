package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/trezcool/college/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db     *sqlx.DB
	engine string
	usrSvc *user.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose command (up, down, status, version, ...) on the embedded migrations")
	fmt.Println("  adduser -username USERNAME -email EMAIL -name NAME [-role admin|faculty|student] - create an account")
	fmt.Println("  resetpassword -username USERNAME - reset user's password")
	fmt.Println("  setupadmin - create the bootstrap admin unless an admin exists")
}

// promptPassword reads a password from the terminal without echoing it.
func promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserUname := addUserCmd.String("username", "", "The username. The password will be prompted next.")
	addUserEmail := addUserCmd.String("email", "", "The email address.")
	addUserName := addUserCmd.String("name", "", "The full name.")
	addUserRole := addUserCmd.String("role", user.RoleAdmin, "One of admin, faculty or student.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username. The password will be prompted next.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(ctx, args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserUname == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		name := *addUserName
		if name == "" {
			name = *addUserUname
		}
		usr, err := cli.usrSvc.AddUser(ctx, user.NewUser{
			FullName: name,
			Username: *addUserUname,
			Email:    *addUserEmail,
			Password: pwd,
			Role:     *addUserRole,
		})
		if err != nil {
			return err
		}
		fmt.Printf("%s %q created\n", usr.Role, usr.Username)
		return nil

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		_, err = cli.usrSvc.ResetPassword(ctx, *resetPasswordUname, pwd)
		return err

	case "setupadmin":
		usr, created, err := cli.usrSvc.SetupAdmin(ctx)
		if err != nil {
			return err
		}
		if created {
			fmt.Printf("admin %q created\n", usr.Username)
		} else {
			fmt.Println("an admin already exists")
		}
		return nil

	default:
		cli.printUsage()
		return errHelp
	}
}
