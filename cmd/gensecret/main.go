package main

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
)

const defaultSecretKeyBytesLen = 32

// Prints random key suitable for SECRET_KEY
func main() {
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error while generating secret key: %v\n", err)
		os.Exit(1)
	}
}

func run(w io.Writer, args []string) error {
	fs := pflag.NewFlagSet("gensecret", pflag.ContinueOnError)
	size := fs.IntP("bytes", "b", defaultSecretKeyBytesLen, "Key length in bytes")
	encoding := fs.StringP("encoding", "e", "hex", "Output encoding (hex, base64)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *size < 16 {
		return fmt.Errorf("key is too short: %d bytes, at least 16 required", *size)
	}

	b := make([]byte, *size)
	if _, err := rand.Read(b); err != nil {
		return err
	}

	switch *encoding {
	case "hex":
		_, err := fmt.Fprintln(w, hex.EncodeToString(b))
		return err
	case "base64":
		_, err := fmt.Fprintln(w, base64.RawURLEncoding.EncodeToString(b))
		return err
	default:
		return fmt.Errorf("unknown encoding %q", *encoding)
	}
}
