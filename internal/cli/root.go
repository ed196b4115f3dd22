package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Settings keys, also readable from TOLLCTL_* environment variables and
// the optional config file.
const (
	keyBaseURL   = "base_url"
	keyTokenFile = "token_file"
	keyFormat    = "format"
	keyTimeout   = "timeout"
)

var (
	version = "dev"
	commit  = "unknown"
)

// SetVersionInfo sets the version reported by --version.
func SetVersionInfo(v, c string) {
	version, commit = v, c
}

// app carries what every command needs; there is one per root command.
type app struct {
	v   *viper.Viper
	out io.Writer
}

func (a *app) tokenFile() TokenFile { return TokenFile{Path: a.v.GetString(keyTokenFile)} }

func (a *app) format() (string, error) {
	f := strings.ToLower(a.v.GetString(keyFormat))
	if f != "json" && f != "csv" {
		return "", errors.Errorf("invalid --format %q: must be json or csv", f)
	}
	return f, nil
}

// client returns an API client carrying the stored token, if any.
func (a *app) client() (*Client, error) {
	token, err := a.tokenFile().Load()
	if err != nil {
		return nil, err
	}
	return NewClient(a.v.GetString(keyBaseURL), token, a.v.GetDuration(keyTimeout)), nil
}

// print writes a response body; JSON is indented, anything else is copied.
func (a *app) print(resp *Response) error {
	if resp.NoContent() {
		_, err := fmt.Fprintln(a.out, "No data for the requested parameters.")
		return err
	}
	if strings.Contains(resp.ContentType, "json") {
		var buf bytes.Buffer
		if err := json.Indent(&buf, resp.Body, "", "  "); err == nil {
			buf.WriteByte('\n')
			_, err := a.out.Write(buf.Bytes())
			return err
		}
	}
	_, err := a.out.Write(resp.Body)
	return err
}

// NewRootCommand builds tollctl.  Output goes to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	a := &app{v: viper.New(), out: out}
	var cfgFile string

	root := &cobra.Command{
		Use:   "tollctl",
		Short: "Command-line client for the toll settlement API",
		Long: `tollctl queries settlement reports and runs the admin operations of the
toll settlement service.

Examples:
  tollctl login --username admin --passw freepasses4all
  tollctl resetstations
  tollctl addpasses --source passes-sample.csv
  tollctl chargesby --opid AM --from 20220101 --to 20220131 --format csv
  tollctl netcharges --opid1 AM --opid2 NAO --from 20220101 --to 20220131`,
		Version:       fmt.Sprintf("%s (commit %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cfgFile != "" {
				a.v.SetConfigFile(cfgFile)
				if err := a.v.ReadInConfig(); err != nil {
					return errors.Wrap(err, "read config file")
				}
			}
			return nil
		},
	}
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (optional)")
	pf.String("base-url", "http://localhost:9115/api", "API base URL")
	pf.String("token-file", DefaultTokenPath(), "where the login token is kept")
	pf.String("format", "json", "response format: json or csv")
	pf.Duration("timeout", 2*time.Minute, "request timeout")

	_ = a.v.BindPFlag(keyBaseURL, pf.Lookup("base-url"))
	_ = a.v.BindPFlag(keyTokenFile, pf.Lookup("token-file"))
	_ = a.v.BindPFlag(keyFormat, pf.Lookup("format"))
	_ = a.v.BindPFlag(keyTimeout, pf.Lookup("timeout"))
	a.v.SetEnvPrefix("TOLLCTL")
	a.v.AutomaticEnv()

	root.AddCommand(
		loginCmd(a), logoutCmd(a),
		healthcheckCmd(a), resetPassesCmd(a), resetStationsCmd(a), addPassesCmd(a), adminCmd(a),
		stationPassesCmd(a), passAnalysisCmd(a), passesCostCmd(a), chargesByCmd(a), netChargesCmd(a),
	)
	return root
}

// Execute runs tollctl with the process arguments.
func Execute(ctx context.Context, out io.Writer) error {
	return NewRootCommand(out).ExecuteContext(ctx)
}
