// Command isoshare uploads the ISO images of a build to 123pan through the
// open platform API and prints a share link for them.
//
// Usage:
//
//	isoshare [flags] access_key secret_key scheduled|manual [build_number]
//
// Pass "-" as secret_key to type it on the terminal instead.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/dmitrijs2005/isoshare/internal/app"
	"github.com/dmitrijs2005/isoshare/internal/common"
	"github.com/dmitrijs2005/isoshare/internal/config"
	"github.com/dmitrijs2005/isoshare/internal/credential"
	"github.com/dmitrijs2005/isoshare/internal/logging"
)

// Set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run(context.Background(), os.Args, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(stderr, "warning: loading .env: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newCLI(stdout, stderr).RunContext(ctx, args)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
	}
	return app.ExitCode(err)
}

func newCLI(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:            "isoshare",
		Usage:           "upload build ISO images to 123pan and share them",
		ArgsUsage:       "access_key secret_key scheduled|manual [build_number]",
		Version:         version,
		Writer:          stdout,
		ErrWriter:       stderr,
		HideHelpCommand: true,
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "JSON config `FILE` applied before flags",
				EnvVars: []string{"ISOSHARE_CONFIG"},
			},
		}, config.Flags(config.Default())...),
		OnUsageError: func(_ *cli.Context, err error, _ bool) error {
			return fmt.Errorf("%w: %w", common.ErrUsage, err)
		},
		Action: func(c *cli.Context) error {
			return action(c, stdout, stderr)
		},
	}
}

func action(c *cli.Context, stdout, stderr io.Writer) error {
	if c.NArg() < 3 || c.NArg() > 4 {
		_ = cli.ShowAppHelp(c)
		return fmt.Errorf("%w: expected %s", common.ErrUsage, c.App.ArgsUsage)
	}
	args := c.Args()

	cfg := config.Default()
	if err := config.LoadJSON(c.String("config"), cfg); err != nil {
		return fmt.Errorf("%w: %w", common.ErrUsage, err)
	}
	config.ApplyFlags(c, cfg)

	log, err := logging.New(stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrUsage, err)
	}

	secret := credential.NewSecret(args.Get(1))
	if args.Get(1) == "-" {
		secret, err = app.PromptSecret(stderr, int(os.Stdin.Fd()))
		if err != nil {
			return err
		}
	}
	defer secret.Destroy()

	a, err := app.NewApp(cfg, log, app.WithOutput(stdout))
	if err != nil {
		return err
	}

	_, err = a.Run(c.Context, app.Params{
		AccessKey:   args.Get(0),
		SecretKey:   secret,
		Mode:        args.Get(2),
		BuildNumber: args.Get(3),
	})
	return err
}
