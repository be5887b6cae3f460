// Command hashcompat identifies, verifies and produces legacy password
// hashes from the command line.
//
//	hashcompat identify '$1$test$pi/xDtU5WFVRqYS6BMU8X/'
//	hashcompat hash -scheme bcrypt
//	hashcompat verify -user scott F894844C34402B67
//	hashcompat info '$argon2id$v=19$m=65536,t=3,p=2$...'
//	hashcompat backends
//
// Secrets are read from the terminal without echo, or from the first line
// of standard input when it is not a terminal.  The hashing policy comes
// from -config (YAML) or, when no file is given, from PASSLIB_* environment
// variables.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/hasbyte1/go-passlib-utils/hashing"
)

const programName = "hashcompat"

// exit codes
const (
	exitOK       = 0
	exitMismatch = 1
	exitError    = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type command struct {
	name    string
	usage   string
	summary string
	run     func(e *env, args []string) error
}

var commands = []command{
	{"identify", "identify HASH", "print the scheme that recognises HASH", cmdIdentify},
	{"hash", "hash [-scheme NAME] [-user NAME]", "hash a secret read from stdin", cmdHash},
	{"verify", "verify [-scheme NAME] [-user NAME] HASH", "verify a secret read from stdin against HASH", cmdVerify},
	{"info", "info HASH", "print the parameters encoded in HASH", cmdInfo},
	{"backends", "backends", "resolve and list the checksum engine of every scheme", cmdBackends},
}

// env carries the streams and the flags shared by every command.
type env struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	flags     *flag.FlagSet
	config    string
	envPrefix string
	scheme    string
	user      string

	manager *hashing.Manager
	logger  *logrus.Logger
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return exitError
	}
	i := lookupCommand(args[0])
	if i < 0 {
		if args[0] != "-h" && args[0] != "-help" && args[0] != "help" {
			fmt.Fprintf(stderr, "%s: unknown command %q\n", programName, args[0])
		}
		usage(stderr)
		return exitError
	}
	cmd := commands[i]

	e := &env{stdin: stdin, stdout: stdout, stderr: stderr}
	e.flags = flag.NewFlagSet(programName+" "+cmd.name, flag.ContinueOnError)
	e.flags.SetOutput(stderr)
	e.flags.StringVar(&e.config, "config", "", "Path to a YAML hashing policy (optional)")
	e.flags.StringVar(&e.envPrefix, "env-prefix", hashing.DefaultEnvPrefix, "Environment variable prefix used when -config is not set")
	e.flags.StringVar(&e.scheme, "scheme", "", "Scheme to use instead of the policy default or the detected one")
	e.flags.StringVar(&e.user, "user", "", "Username for cisco_pix, cisco_asa and oracle10")
	e.flags.Usage = func() {
		fmt.Fprintf(stderr, "usage: %s %s\n", programName, cmd.usage)
		e.flags.PrintDefaults()
	}
	if err := e.flags.Parse(args[1:]); err != nil {
		return exitError
	}

	if err := e.setup(); err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", programName, err)
		return exitError
	}

	err := cmd.run(e, e.flags.Args())
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errMismatch):
		fmt.Fprintln(stdout, "mismatch")
		return exitMismatch
	default:
		e.logger.WithField("command", cmd.name).WithError(err).Debug("command failed")
		fmt.Fprintf(stderr, "%s: %v\n", programName, err)
		return exitError
	}
}

func lookupCommand(name string) int {
	for i, c := range commands {
		if c.name == name {
			return i
		}
	}
	return -1
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "usage: %s <command> [flags] [args]\n\ncommands:\n", programName)
	for _, c := range commands {
		fmt.Fprintf(w, "  %-10s %s\n", c.name, c.summary)
	}
}

// setup loads the policy, configures logging and builds the manager.
func (e *env) setup() error {
	var cfg *hashing.Config
	var err error
	if e.config != "" {
		cfg, err = hashing.LoadConfig(e.config)
	} else {
		cfg, err = hashing.LoadConfigFromEnv(e.envPrefix)
	}
	if err != nil {
		return fmt.Errorf("cannot load policy: %w", err)
	}

	e.logger = logrus.New()
	e.logger.SetOutput(e.stderr)
	if err := cfg.ConfigureLogger(e.logger); err != nil {
		return err
	}
	hashing.SetLogger(e.logger)

	e.manager, err = cfg.NewManager()
	if err != nil {
		return fmt.Errorf("cannot build manager: %w", err)
	}
	return nil
}

var errMismatch = errors.New("secret does not match")

func oneArg(e *env, args []string) (string, error) {
	if len(args) != 1 {
		e.flags.Usage()
		return "", fmt.Errorf("expected exactly one argument, got %d", len(args))
	}
	return args[0], nil
}

func cmdIdentify(e *env, args []string) error {
	hash, err := oneArg(e, args)
	if err != nil {
		return err
	}
	name, ok := e.manager.Identify(hash)
	if !ok {
		return fmt.Errorf("%w: no registered scheme recognises the hash", hashing.ErrFormat)
	}
	fmt.Fprintln(e.stdout, name)
	return nil
}

func cmdHash(e *env, args []string) error {
	if len(args) != 0 {
		e.flags.Usage()
		return fmt.Errorf("unexpected arguments %v", args)
	}
	secret, err := e.readSecret("Password: ")
	if err != nil {
		return err
	}
	var hasher interface {
		Hash(secret string, opts ...hashing.CallOption) (string, error)
	} = e.manager
	if e.scheme != "" {
		if hasher, err = e.manager.Handler(hashing.SchemeName(e.scheme)); err != nil {
			return err
		}
	}
	hash, err := hasher.Hash(secret, hashing.WithUser(e.user))
	if err != nil {
		return err
	}
	fmt.Fprintln(e.stdout, hash)
	return nil
}

func cmdVerify(e *env, args []string) error {
	hash, err := oneArg(e, args)
	if err != nil {
		return err
	}
	secret, err := e.readSecret("Password: ")
	if err != nil {
		return err
	}
	var ok bool
	if e.scheme != "" {
		ok, err = e.manager.VerifyWith(hashing.SchemeName(e.scheme), secret, hash, hashing.WithUser(e.user))
	} else {
		ok, err = e.manager.Verify(secret, hash, hashing.WithUser(e.user))
	}
	if err != nil {
		return err
	}
	if !ok {
		return errMismatch
	}
	fmt.Fprintln(e.stdout, "ok")
	if needs, err := e.manager.NeedsUpdate(hash); err == nil && needs {
		e.logger.WithField("scheme", e.manager.Default()).Info("hash should be upgraded")
	}
	return nil
}

func cmdInfo(e *env, args []string) error {
	hash, err := oneArg(e, args)
	if err != nil {
		return err
	}
	info, err := e.manager.Info(hash)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "scheme=%s\n", info.Scheme)
	keys := make([]string, 0, len(info.Params))
	for k := range info.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(e.stdout, "%s=%v\n", k, info.Params[k])
	}
	return nil
}

func cmdBackends(e *env, args []string) error {
	if len(args) != 0 {
		e.flags.Usage()
		return fmt.Errorf("unexpected arguments %v", args)
	}
	for _, name := range e.manager.SchemeNames() {
		s, err := e.manager.Handler(name)
		if err != nil {
			return err
		}
		h, ok := s.(*hashing.Handler)
		if !ok {
			continue
		}
		selected, err := h.Backend()
		if err != nil {
			fmt.Fprintf(e.stdout, "%-20s unavailable (%v)\n", name, err)
			continue
		}
		fmt.Fprintf(e.stdout, "%-20s %-10s candidates=%s\n", name, selected, strings.Join(h.Backends(), ","))
	}
	return nil
}

// readSecret prompts on the terminal without echo, or reads one line from a
// non-interactive stdin.
func (e *env) readSecret(prompt string) (string, error) {
	if f, ok := e.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(e.stderr, prompt)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(e.stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(e.stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
