package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/urfave/cli/v2"

	"go.inout.gg/pwnshield/pwnshieldchecker"
	"go.inout.gg/pwnshield/pwnshieldpassword"
	"go.inout.gg/pwnshield/pwnshieldrange"
	"go.inout.gg/pwnshield/pwnshieldverifier"
)

var errEmptyPassword = errors.New("pwnshield: no password on stdin")

type config struct {
	Endpoint   string        `env:"PWNSHIELD_ENDPOINT"    envDefault:"https://api.pwnedpasswords.com/range/"`
	Timeout    time.Duration `env:"PWNSHIELD_TIMEOUT"     envDefault:"5s"`
	UserAgent  string        `env:"PWNSHIELD_USER_AGENT"  envDefault:"pwnshield"`
	AddPadding bool          `env:"PWNSHIELD_ADD_PADDING" envDefault:"false"`
	LogLevel   slog.Level    `env:"PWNSHIELD_LOG_LEVEL"   envDefault:"warn"`
}

func loadConfig() (config, error) {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("pwnshield: failed to parse environment: %w", err)
	}

	return cfg, nil
}

func newChecker(cfg config, logger *slog.Logger) *pwnshieldchecker.Checker {
	opts := []func(*pwnshieldrange.Config){
		pwnshieldrange.WithEndpoint(cfg.Endpoint),
		pwnshieldrange.WithUserAgent(cfg.UserAgent),
	}
	if cfg.AddPadding {
		opts = append(opts, pwnshieldrange.WithPadding())
	}

	return pwnshieldchecker.New(pwnshieldchecker.NewConfig(
		pwnshieldchecker.WithLogger(logger),
		pwnshieldchecker.WithTimeout(cfg.Timeout),
		pwnshieldchecker.WithClient(pwnshieldrange.New(pwnshieldrange.NewConfig(opts...))),
	))
}

// readPassword reads the first line of r. Passwords are never taken from
// arguments so they do not end up in the shell history.
func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("pwnshield: failed to read password: %w", err)
	}

	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errEmptyPassword
	}

	return password, nil
}

func checkerFromEnv(c *cli.Context) (*pwnshieldchecker.Checker, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: cfg.LogLevel}))

	return newChecker(cfg, logger), nil
}

func setup(c *cli.Context) (*pwnshieldchecker.Checker, string, error) {
	checker, err := checkerFromEnv(c)
	if err != nil {
		return nil, "", err
	}

	password, err := readPassword(c.App.Reader)
	if err != nil {
		return nil, "", cli.Exit(err, 2)
	}

	return checker, password, nil
}

func policyFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "min-length",
			Usage: "minimum password length",
			Value: pwnshieldverifier.DefaultMinLength,
		},
		&cli.StringFlag{
			Name:  "required-chars",
			Usage: `required character groups separated by "::"`,
		},
	}
}

func newVerifier(c *cli.Context, checker pwnshieldverifier.BreachChecker) (pwnshieldverifier.PasswordVerifier, error) {
	var chars pwnshieldverifier.PasswordRequiredChars
	if err := chars.Parse(c.String("required-chars")); err != nil {
		return nil, cli.Exit(err, 2)
	}

	verifier, err := pwnshieldverifier.New(pwnshieldverifier.NewConfig(
		pwnshieldverifier.WithMinLength(c.Int("min-length")),
		pwnshieldverifier.WithRequiredChars(chars),
		pwnshieldverifier.WithBreachChecker(checker),
	))
	if err != nil {
		return nil, cli.Exit(err, 2)
	}

	return verifier, nil
}

func newApp() *cli.App {
	//nolint:exhaustruct
	return &cli.App{
		Name:  "pwnshield",
		Usage: "check passwords against the Pwned Passwords breach corpus",
		Commands: []*cli.Command{
			{
				Name:  "check",
				Usage: "exit with status 1 if the password read from stdin has been breached",
				Action: func(c *cli.Context) error {
					checker, password, err := setup(c)
					if err != nil {
						return err
					}

					if checker.IsBreached(c.Context, password) {
						return cli.Exit("password found in breach corpus", 1)
					}

					_, _ = fmt.Fprintln(c.App.Writer, "password not found in breach corpus")

					return nil
				},
			},
			{
				Name:  "verify",
				Usage: "verify the password read from stdin against the password policy",
				Flags: policyFlags(),
				Action: func(c *cli.Context) error {
					checker, password, err := setup(c)
					if err != nil {
						return err
					}

					verifier, err := newVerifier(c, checker)
					if err != nil {
						return err
					}

					var verr *pwnshieldverifier.PasswordVerificationError
					if err := verifier.Verify(c.Context, password); errors.As(err, &verr) {
						for _, reason := range verr.Reasons {
							_, _ = fmt.Fprintln(c.App.Writer, reason)
						}

						return cli.Exit("password rejected", 1)
					}

					_, _ = fmt.Fprintln(c.App.Writer, "password accepted")

					return nil
				},
			},
			{
				Name:  "generate",
				Usage: "print a random password that passes the password policy and is not breached",
				Flags: append([]cli.Flag{
					&cli.IntFlag{
						Name:  "length",
						Usage: "generated password length",
						Value: pwnshieldpassword.DefaultGeneratedLength,
					},
					&cli.StringFlag{
						Name:  "alphabet",
						Usage: "characters the password is drawn from",
						Value: pwnshieldpassword.DefaultGeneratedAlphabet,
					},
				}, policyFlags()...),
				Action: func(c *cli.Context) error {
					checker, err := checkerFromEnv(c)
					if err != nil {
						return err
					}

					verifier, err := newVerifier(c, checker)
					if err != nil {
						return err
					}

					generator := pwnshieldpassword.NewGenerator(pwnshieldpassword.NewGeneratorConfig(
						pwnshieldpassword.WithGeneratedLength(c.Int("length")),
						pwnshieldpassword.WithGeneratedAlphabet(c.String("alphabet")),
						pwnshieldpassword.WithGeneratorVerifier(verifier),
					))

					password, err := generator.Generate(c.Context)
					if err != nil {
						return cli.Exit(err, 1)
					}

					_, _ = fmt.Fprintln(c.App.Writer, password)

					return nil
				},
			},
		},
	}
}
