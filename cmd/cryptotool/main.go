// Package main provides a command-line front end to the crypto engine for
// self-tests, key generation, symmetric envelopes and digests.
package main

import (
	"bytes"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/cryptoengine"
	"github.com/opd-ai/cryptoengine/asym"
	"github.com/opd-ai/cryptoengine/logging"
)

// globalConfig holds flags shared by every subcommand.
type globalConfig struct {
	configPath string
	backend    string
	logLevel   string
}

func (g *globalConfig) register(fs *flag.FlagSet) {
	fs.StringVar(&g.configPath, "config", "", "TOML options file")
	fs.StringVar(&g.backend, "backend", "", "Override backend (library, reference)")
	fs.StringVar(&g.logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
}

// engine builds an engine from the config file and flag overrides.
func (g *globalConfig) engine(stderr io.Writer) (*cryptoengine.Engine, error) {
	opts := cryptoengine.NewOptions()
	opts.LogLevel = "warn"
	if g.configPath != "" {
		loaded, err := cryptoengine.LoadOptions(g.configPath)
		if err != nil {
			return nil, err
		}
		opts = loaded
	}
	if g.backend != "" {
		opts.Backend = cryptoengine.Backend(g.backend)
	}
	if g.logLevel != "" {
		opts.LogLevel = g.logLevel
	}
	logger := logrus.New()
	logger.SetOutput(stderr)
	if level, err := logging.ParseLevel(opts.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	opts.Logger = logger
	return cryptoengine.New(opts)
}

type command struct {
	name  string
	usage string
	run   func(args []string, stdin io.Reader, stdout, stderr io.Writer) error
}

var commands = []command{
	{"selftest", "run known-answer checks on both backends", runSelfTest},
	{"keygen", "generate a 3des, rsa or dsa key", runKeygen},
	{"encrypt", "encrypt stdin or -in, print hex", runEncrypt},
	{"decrypt", "decrypt hex from stdin or -in", runDecrypt},
	{"digest", "hash stdin or -in", runDigest},
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "cryptotool - crypto engine command-line interface")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintf(w, "  cryptotool <command> [options]\n\n")
	fmt.Fprintln(w, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-9s %s\n", c.name, c.usage)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  cryptotool keygen -type 3des")
	fmt.Fprintln(w, "  echo -n AUDIT-TEST | cryptotool encrypt -key 0101...01")
	fmt.Fprintln(w, "  cryptotool digest -alg md5 -in file.bin")
}

// run dispatches a subcommand and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "-help" || args[0] == "help" {
		printUsage(stderr)
		if len(args) == 0 {
			return 2
		}
		return 0
	}
	for _, c := range commands {
		if c.name != args[0] {
			continue
		}
		if err := c.run(args[1:], stdin, stdout, stderr); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return 0
			}
			fmt.Fprintf(stderr, "cryptotool %s: %v\n", c.name, err)
			return 1
		}
		return 0
	}
	fmt.Fprintf(stderr, "cryptotool: unknown command %q\n\n", args[0])
	printUsage(stderr)
	return 2
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func newFlagSet(name string, stderr io.Writer, g *globalConfig) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	g.register(fs)
	return fs
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func runSelfTest(args []string, _ io.Reader, stdout, stderr io.Writer) error {
	var g globalConfig
	fs := newFlagSet("selftest", stderr, &g)
	if err := fs.Parse(args); err != nil {
		return err
	}
	backends := []cryptoengine.Backend{cryptoengine.BackendLibrary, cryptoengine.BackendReference}
	if g.backend != "" {
		backends = []cryptoengine.Backend{cryptoengine.Backend(g.backend)}
	}
	for _, b := range backends {
		g.backend = string(b)
		e, err := g.engine(stderr)
		if err != nil {
			return err
		}
		if err := e.SelfTest(); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s: ok\n", b)
	}
	return nil
}

func runKeygen(args []string, _ io.Reader, stdout, stderr io.Writer) error {
	var (
		g       globalConfig
		keyType string
		bits    int
		crt     bool
		smallE  bool
	)
	fs := newFlagSet("keygen", stderr, &g)
	fs.StringVar(&keyType, "type", "3des", "Key type (3des, rsa, dsa)")
	fs.IntVar(&bits, "bits", 1024, "Modulus size for rsa, prime size for dsa")
	fs.BoolVar(&crt, "crt", true, "Emit the 8-element CRT form of an rsa private key")
	fs.BoolVar(&smallE, "e3", false, "Use public exponent 3 instead of 65537")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, err := g.engine(stderr)
	if err != nil {
		return err
	}

	switch strings.ToLower(keyType) {
	case "3des":
		key, err := e.Generate3DESKey()
		if err != nil {
			return err
		}
		kcv, err := e.KeyCheckValue(key)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "key: %s\nkcv: %s\n", hex.EncodeToString(key), hex.EncodeToString(kcv))
	case "rsa":
		pair, err := e.RSAKey(bits, crt, !smallE)
		if err != nil {
			return err
		}
		printMaterial(stdout, "public", pair.Public, []string{"n", "e"})
		names := []string{"n", "d"}
		if crt {
			names = []string{"n", "d", "e", "p", "q", "dp", "dq", "qinv"}
		}
		printMaterial(stdout, "private", pair.Private, names)
	case "dsa":
		pair, err := e.DSAKey(bits)
		if err != nil {
			return err
		}
		printMaterial(stdout, "dsa", pair.Full(), []string{"p", "q", "g", "y", "x"})
	default:
		return fmt.Errorf("unknown key type %q", keyType)
	}
	return nil
}

func printMaterial(w io.Writer, label string, key asym.KeyMaterial, names []string) {
	fmt.Fprintf(w, "[%s]\n", label)
	for i, v := range key {
		fmt.Fprintf(w, "%s = %s\n", names[i], hex.EncodeToString(v))
	}
}

type envelopeFlags struct {
	g      globalConfig
	alg    string
	keyHex string
	in     string
}

func parseEnvelope(name string, args []string, stderr io.Writer) (*envelopeFlags, []byte, error) {
	f := &envelopeFlags{}
	fs := newFlagSet(name, stderr, &f.g)
	fs.StringVar(&f.alg, "alg", cryptoengine.DefaultAlgorithm, "Algorithm (3DES/ECB/PKCS5, 3DES/CBC/PKCS5, RC4)")
	fs.StringVar(&f.keyHex, "key", "", "Key as hex")
	fs.StringVar(&f.in, "in", "", "Input file (default: stdin)")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if f.keyHex == "" {
		return nil, nil, errors.New("-key is required")
	}
	key, err := hex.DecodeString(f.keyHex)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid -key: %w", err)
	}
	return f, key, nil
}

func runEncrypt(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	f, key, err := parseEnvelope("encrypt", args, stderr)
	if err != nil {
		return err
	}
	data, err := readInput(f.in, stdin)
	if err != nil {
		return err
	}
	e, err := f.g.engine(stderr)
	if err != nil {
		return err
	}
	ct, err := e.Encrypt(f.alg, data, key)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, hex.EncodeToString(ct))
	return nil
}

func runDecrypt(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	f, key, err := parseEnvelope("decrypt", args, stderr)
	if err != nil {
		return err
	}
	raw, err := readInput(f.in, stdin)
	if err != nil {
		return err
	}
	ct, err := hex.DecodeString(string(bytes.TrimSpace(raw)))
	if err != nil {
		return fmt.Errorf("input is not hex: %w", err)
	}
	e, err := f.g.engine(stderr)
	if err != nil {
		return err
	}
	pt, err := e.Decrypt(f.alg, ct, key)
	if err != nil {
		return err
	}
	_, err = stdout.Write(pt)
	return err
}

func runDigest(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var (
		g      globalConfig
		alg    string
		in     string
		macKey string
	)
	fs := newFlagSet("digest", stderr, &g)
	fs.StringVar(&alg, "alg", cryptoengine.DigestSHA1, "Digest (SHA1, MD5, MD2)")
	fs.StringVar(&in, "in", "", "Input file (default: stdin)")
	fs.StringVar(&macKey, "hmac-key", "", "Compute an HMAC with this hex key")
	if err := fs.Parse(args); err != nil {
		return err
	}
	data, err := readInput(in, stdin)
	if err != nil {
		return err
	}
	e, err := g.engine(stderr)
	if err != nil {
		return err
	}

	var sum []byte
	if macKey != "" {
		key, err := hex.DecodeString(macKey)
		if err != nil {
			return fmt.Errorf("invalid -hmac-key: %w", err)
		}
		sum, err = e.MAC(alg, key, data)
		if err != nil {
			return err
		}
	} else if sum, err = e.Digest(alg, data); err != nil {
		return err
	}
	fmt.Fprintln(stdout, hex.EncodeToString(sum))
	return nil
}
