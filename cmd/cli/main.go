// Command notevault is a CLI client for the NoteVault service.
package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/uuid/v5"
	"golang.org/x/term"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/status"

	grpcserver "github.com/and161185/notevault/internal/server/grpc"
)

// ---- config/session store ----

// sessionFile is what login leaves on disk. The note key lives next to it in key.bin.
type sessionFile struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	Salt      []byte    `json:"salt"`
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "notevault")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "notevault")
}

func sessionPath() string { return filepath.Join(cfgDir(), "session.json") }

func keyPath() string { return filepath.Join(cfgDir(), "key.bin") }

func saveSession(s sessionFile) error {
	if err := os.MkdirAll(cfgDir(), 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(sessionPath(), b, 0o600)
}

func loadSession() (sessionFile, error) {
	var s sessionFile
	b, err := os.ReadFile(sessionPath())
	if err != nil {
		return s, errNoSession
	}
	if err := json.Unmarshal(b, &s); err != nil {
		return s, err
	}
	if s.Token == "" || !time.Now().Before(s.ExpiresAt) {
		return s, errNoSession
	}
	return s, nil
}

var errNoSession = errors.New("no valid session (login required)")

func saveKey(key []byte) error {
	if err := os.MkdirAll(cfgDir(), 0o700); err != nil {
		return err
	}
	return os.WriteFile(keyPath(), key, 0o600)
}

func loadKey() ([]byte, error) {
	b, err := os.ReadFile(keyPath())
	if err != nil {
		return nil, errors.New("no note key; login first")
	}
	return b, nil
}

// clearSession removes the token and the note key.
func clearSession() error {
	var firstErr error
	for _, p := range []string{sessionPath(), keyPath()} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ---- grpc dial ----

func loadTLS(caPath string, insecure bool) (credentials.TransportCredentials, error) {
	if insecure {
		return credentials.NewTLS(&tls.Config{InsecureSkipVerify: true}), nil
	}
	if caPath == "" {
		return credentials.NewClientTLSFromCert(nil, ""), nil
	}
	pem, err := os.ReadFile(caPath)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.New("bad CA cert")
	}
	return credentials.NewTLS(&tls.Config{RootCAs: pool}), nil
}

func dial(addr, caPath string, insecure bool) (*grpc.ClientConn, *grpcserver.Client, error) {
	creds, err := loadTLS(caPath, insecure)
	if err != nil {
		return nil, nil, err
	}
	cc, err := grpc.NewClient(addr, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, nil, err
	}
	return cc, grpcserver.NewClient(cc), nil
}

// ---- utils ----

func readAll(in io.Reader, p string) ([]byte, error) {
	if p == "-" {
		return io.ReadAll(in)
	}
	return os.ReadFile(p)
}

// readPassword is swapped out in tests.
var readPassword = term.ReadPassword

// promptPassword reads *v from the terminal without echo when the flag was left empty.
func promptPassword(label string, v *string) error {
	if *v != "" {
		return nil
	}
	fmt.Fprintf(os.Stderr, "%s: ", label)
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("read %s: %w", label, err)
	}
	if len(pw) == 0 {
		return fmt.Errorf("empty %s", label)
	}
	*v = string(pw)
	return nil
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func usage() {
	fmt.Fprintf(os.Stderr, `notevault CLI
Usage:
  notevault -addr HOST:PORT [-cacert file | -insecure] <cmd> [args]

Commands:
  version
  register   -email <email> [-password <password>] [-name <name>]
  login      -email <email> [-password <password>]   (saves token and note key)
  logout
  profile    [-name <new name>]
  passwd     [-old <password>] [-new <password>]     (re-encrypts notes)

Passwords left off the command line are read from the terminal.
  add        -title <title> -file <path|->
  ls
  cat        -id <uuid>
  edit       -id <uuid> [-title <title>] [-file <path|->]
  rm         -id <uuid>
`)
	os.Exit(2)
}

// ---- main ----

var (
	version   = "dev"
	buildDate = "unknown"
)

// main dispatches subcommands and configures TLS for RPC calls.
func main() {
	addr := flag.String("addr", "localhost:8443", "server addr")
	caPath := flag.String("cacert", "", "CA cert (PEM)")
	insecure := flag.Bool("insecure", false, "skip cert verify (dev)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)
	if cmd == "version" {
		fmt.Printf("notevault %s (%s)\n", version, buildDate)
		return
	}
	run, ok := commands[cmd]
	if !ok {
		usage()
	}

	cc, cli, err := dial(*addr, *caPath, *insecure)
	if err != nil {
		fail(err)
	}
	defer cc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &app{cli: cli, in: os.Stdin, out: os.Stdout}
	if err := run(a, ctx, flag.Args()[1:]); err != nil {
		fail(err)
	}
}

func fail(err error) {
	if s, ok := status.FromError(err); ok {
		fmt.Fprintf(os.Stderr, "rpc error: code=%s msg=%s\n", s.Code(), s.Message())
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
