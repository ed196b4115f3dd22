package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

func required(cmd *cobra.Command, names ...string) {
	for _, n := range names {
		_ = cmd.MarkFlagRequired(n)
	}
}

func loginCmd(a *app) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			resp, err := c.PostForm(cmd.Context(), "/login", url.Values{"username": {username}, "password": {password}})
			if err != nil {
				return err
			}
			var body struct {
				Token string `json:"token"`
			}
			if err := decode(resp, &body); err != nil {
				return err
			}
			if err := a.tokenFile().Save(body.Token); err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.out, "Login successful.")
			return err
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "user name")
	cmd.Flags().StringVar(&password, "passw", "", "password")
	required(cmd, "username", "passw")
	return cmd
}

func logoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Invalidate the stored session token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			if c.Token == "" {
				return fmt.Errorf("not logged in")
			}
			if _, err := c.Post(cmd.Context(), "/logout", nil); err != nil {
				return err
			}
			if err := a.tokenFile().Remove(); err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.out, "Logged out.")
			return err
		},
	}
}

func healthcheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "healthcheck",
		Short: "Check storage connectivity and row counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			resp, err := c.Get(cmd.Context(), "/admin/healthcheck", nil)
			if err != nil {
				return err
			}
			return a.print(resp)
		},
	}
}

// adminPost builds a command that POSTs to path and prints the answer.
func adminPost(a *app, use, short, path string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			resp, err := c.Post(cmd.Context(), path, nil)
			if err != nil {
				return err
			}
			return a.print(resp)
		},
	}
}

func resetPassesCmd(a *app) *cobra.Command {
	return adminPost(a, "resetpasses", "Delete every pass and tag", "/admin/resetpasses")
}

func resetStationsCmd(a *app) *cobra.Command {
	return adminPost(a, "resetstations", "Reload operators and stations from the reference file", "/admin/resetstations")
}

func addPassesCmd(a *app) *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "addpasses",
		Short: "Upload a passes CSV file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := a.format()
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			resp, err := c.Upload(cmd.Context(), "/admin/addpasses", url.Values{"format": {format}}, source)
			if err != nil {
				return err
			}
			return a.print(resp)
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "CSV file to upload")
	required(cmd, "source")
	return cmd
}

func adminCmd(a *app) *cobra.Command {
	var (
		usermod            bool
		username, password string
		role, company      string
	)
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "User administration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !usermod {
				return cmd.Help()
			}
			if username == "" || password == "" {
				return fmt.Errorf("--usermod needs --username and --passw")
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			resp, err := c.PostJSON(cmd.Context(), "/admin/usermod", map[string]string{
				"username":   username,
				"password":   password,
				"role":       role,
				"company_id": company,
			})
			if err != nil {
				return err
			}
			return a.print(resp)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&usermod, "usermod", false, "create a user or change its password")
	f.StringVar(&username, "username", "", "user name")
	f.StringVar(&password, "passw", "", "password")
	f.StringVar(&role, "role", "", "OPERATOR (default) or ADMIN")
	f.StringVar(&company, "company", "", "operator code of an OPERATOR account")
	return cmd
}

// report builds a settlement report command.  segments name the flags
// whose values form the URL path after prefix, in order.
func report(a *app, use, short, prefix string, segments ...string) *cobra.Command {
	values := make([]string, len(segments))
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := a.format()
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			path := prefix
			for _, v := range values {
				path += "/" + url.PathEscape(v)
			}
			resp, err := c.Get(cmd.Context(), path, url.Values{"format": {format}})
			if err != nil {
				return err
			}
			return a.print(resp)
		},
	}
	for i, name := range segments {
		cmd.Flags().StringVar(&values[i], name, "", flagUsage[name])
	}
	required(cmd, segments...)
	return cmd
}

var flagUsage = map[string]string{
	"station":   "station id, e.g. NAO01",
	"stationop": "operator owning the stations, e.g. KO",
	"tagop":     "operator issuing the tags, e.g. AM",
	"opid":      "operator id, e.g. AM",
	"opid1":     "requesting operator id",
	"opid2":     "counterparty operator id",
	"from":      "first day, YYYYMMDD",
	"to":        "last day, YYYYMMDD",
}

func stationPassesCmd(a *app) *cobra.Command {
	return report(a, "tollstationpasses", "Passes through one station", "/tollStationPasses", "station", "from", "to")
}

func passAnalysisCmd(a *app) *cobra.Command {
	return report(a, "passanalysis", "Passes of one operator's tags at another's stations", "/passAnalysis", "stationop", "tagop", "from", "to")
}

func passesCostCmd(a *app) *cobra.Command {
	return report(a, "passescost", "Count and cost of passes between two operators", "/passesCost", "stationop", "tagop", "from", "to")
}

func chargesByCmd(a *app) *cobra.Command {
	return report(a, "chargesby", "Charges of visiting operators at one operator's stations", "/chargesBy", "opid", "from", "to")
}

func netChargesCmd(a *app) *cobra.Command {
	return report(a, "netcharges", "Net balance between two operators", "/netCharges", "opid1", "opid2", "from", "to")
}
