// Command gp is a CLI client for the gophpress gRPC API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc/status"

	pv "github.com/and161185/gophpress/api/pressv1"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// cli carries the global flags to every subcommand.
type cli struct {
	conn    connOpts
	timeout time.Duration
}

func (c *cli) ctx(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), c.timeout)
}

// client dials anonymously.
func (c *cli) client() (pv.PressClient, func(), error) { return dialer(c.conn, "") }

// authed dials with the saved session token.
func (c *cli) authed() (pv.PressClient, func(), error) {
	tf, err := loadToken()
	if err != nil {
		return nil, nil, err
	}
	return dialer(c.conn, tf.AccessToken)
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "gp",
		Short:         "gophpress command line client",
		Version:       fmt.Sprintf("%s (%s)", version, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&c.conn.addr, "addr", "localhost:8443", "server addr")
	pf.StringVar(&c.conn.caPath, "cacert", "", "CA cert (PEM)")
	pf.BoolVar(&c.conn.insecure, "insecure", false, "skip cert verify (dev)")
	pf.BoolVar(&c.conn.plaintext, "plaintext", false, "connect without TLS")
	pf.DurationVar(&c.timeout, "timeout", 30*time.Second, "per-command deadline")

	root.AddCommand(
		registerCmd(c),
		loginCmd(c),
		logoutCmd(),
		whoamiCmd(c),
		settingsCmd(c),
		postCmd(c),
	)
	return root
}

// main dispatches subcommands and reports RPC errors by code.
func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, describeErr(err))
		os.Exit(1)
	}
}

func describeErr(err error) string {
	if s, ok := status.FromError(err); ok {
		return fmt.Sprintf("rpc error: code=%s msg=%s", s.Code(), s.Message())
	}
	return err.Error()
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
