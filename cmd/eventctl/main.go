// eventctl is a command-line client for the event factory HTTP API.
//
// Every command runs as the account given by --account and may attach a
// payment with --deposit:
//
//	eventctl --account host.near --deposit 100 create spacejam --title "Space Jam"
//	eventctl --account alice.near --deposit 25 buy spacejam.events.near
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/Shivanand-hulikatti/event-factory/internal/handler"
	"github.com/Shivanand-hulikatti/event-factory/internal/model"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// command is one eventctl subcommand.
type command struct {
	usage string
	args  int
	run   func(c *client, args []string) error
}

var commands = map[string]command{
	"create": {"create <name> [--title ... --date ...]", 1, func(c *client, args []string) error {
		body := model.CreateEventRequest{Name: args[0], Details: c.details}
		return c.send(http.MethodPost, "/factory/events", body)
	}},
	"list": {"list", 0, func(c *client, _ []string) error {
		return c.send(http.MethodGet, "/factory/events", nil)
	}},
	"status": {"status <name>", 1, func(c *client, args []string) error {
		return c.send(http.MethodGet, "/factory/events/"+url.PathEscape(args[0]), nil)
	}},
	"show": {"show <address> [field]", 1, func(c *client, args []string) error {
		path := "/events/" + url.PathEscape(args[0])
		if len(args) > 1 {
			path += "/" + args[1]
		}
		return c.send(http.MethodGet, path, nil)
	}},
	"has-ticket": {"has-ticket <address> <account>", 2, func(c *client, args []string) error {
		return c.send(http.MethodGet, eventPath(args[0], "tickets", args[1]), nil)
	}},
	"add-cohost": {"add-cohost <address> <account>", 2, func(c *client, args []string) error {
		return c.send(http.MethodPost, eventPath(args[0], "cohosts"), model.AccountRequest{Account: model.AccountID(args[1])})
	}},
	"remove-cohost": {"remove-cohost <address> <account>", 2, func(c *client, args []string) error {
		return c.send(http.MethodDelete, eventPath(args[0], "cohosts", args[1]), nil)
	}},
	"add-guest": {"add-guest <address> <account>", 2, func(c *client, args []string) error {
		return c.send(http.MethodPost, eventPath(args[0], "guests"), model.AccountRequest{Account: model.AccountID(args[1])})
	}},
	"remove-guest": {"remove-guest <address> <account>", 2, func(c *client, args []string) error {
		return c.send(http.MethodDelete, eventPath(args[0], "guests", args[1]), nil)
	}},
	"set-details": {"set-details <address> [--title ... --date ...]", 1, func(c *client, args []string) error {
		return c.send(http.MethodPut, eventPath(args[0], "details"), c.details)
	}},
	"set-max-tickets": {"set-max-tickets <address> <n>", 2, func(c *client, args []string) error {
		n, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("max tickets: %w", err)
		}
		return c.send(http.MethodPut, eventPath(args[0], "max-tickets"), model.MaxTicketsRequest{MaxTickets: uint32(n)})
	}},
	"set-price": {"set-price <address> <amount>", 2, func(c *client, args []string) error {
		price, err := model.ParseAmount(args[1])
		if err != nil {
			return err
		}
		return c.send(http.MethodPut, eventPath(args[0], "ticket-price"), model.TicketPriceRequest{Price: price})
	}},
	"go-public": {"go-public <address>", 1, func(c *client, args []string) error {
		return c.send(http.MethodPost, eventPath(args[0], "public"), nil)
	}},
	"buy": {"buy <address>", 1, func(c *client, args []string) error {
		return c.send(http.MethodPost, eventPath(args[0], "tickets"), nil)
	}},
	"payout": {"payout <address>", 1, func(c *client, args []string) error {
		return c.send(http.MethodPost, eventPath(args[0], "payout"), nil)
	}},
	"balance": {"balance <account>", 1, func(c *client, args []string) error {
		return c.send(http.MethodGet, "/accounts/"+url.PathEscape(args[0])+"/balance", nil)
	}},
}

func eventPath(address string, parts ...string) string {
	path := "/events/" + url.PathEscape(address)
	for _, p := range parts {
		path += "/" + url.PathEscape(p)
	}
	return path
}

func run(argv []string, stdout io.Writer) error {
	c := &client{out: stdout}
	var date string

	flagSet := pflag.NewFlagSet("eventctl", pflag.ContinueOnError)
	flagSet.StringVarP(&c.server, "server", "s", envOr("EVENTCTL_SERVER", "http://localhost:8080"), "event factory server URL")
	flagSet.StringVarP(&c.account, "account", "a", os.Getenv("EVENTCTL_ACCOUNT"), "account to call as")
	flagSet.StringVarP(&c.deposit, "deposit", "d", "", "amount to attach to the call")
	flagSet.StringVar(&c.details.Title, "title", "", "event title")
	flagSet.StringVar(&c.details.Location, "location", "", "event location")
	flagSet.StringVar(&c.details.Description, "description", "", "event description")
	flagSet.StringVar(&c.details.ImageURL, "image-url", "", "event image URL")
	flagSet.StringVar(&date, "date", "", "event date (RFC 3339)")
	flagSet.DurationVar(&c.timeout, "timeout", 10*time.Second, "request timeout")
	flagSet.BoolP("help", "h", false, "show help")
	// Flags may follow the command and its arguments.
	flagSet.SetInterspersed(true)

	if err := flagSet.Parse(argv); err != nil {
		if err == pflag.ErrHelp {
			printHelp(stdout, flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help || flagSet.NArg() == 0 {
		printHelp(stdout, flagSet)
		return nil
	}
	if date != "" {
		t, err := time.Parse(time.RFC3339, date)
		if err != nil {
			return fmt.Errorf("--date: %w", err)
		}
		c.details.Date = t.UnixNano()
	}

	name, args := flagSet.Arg(0), flagSet.Args()[1:]
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q (run with --help)", name)
	}
	if len(args) < cmd.args {
		return fmt.Errorf("usage: eventctl %s", cmd.usage)
	}
	return cmd.run(c, args)
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintln(w, "Usage: eventctl [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\n", commands[name].usage)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprint(w, flagSet.FlagUsages())
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// client sends calls to the server and prints the responses.
type client struct {
	server  string
	account string
	deposit string
	timeout time.Duration
	details model.EventDetails
	out     io.Writer
}

func (c *client) send(method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, strings.TrimRight(c.server, "/")+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.account != "" {
		req.Header.Set(handler.HeaderAccount, c.account)
	}
	if c.deposit != "" {
		req.Header.Set(handler.HeaderDeposit, c.deposit)
	}

	resp, err := (&http.Client{Timeout: c.timeout}).Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var e model.ErrorResponse
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status, e.Error)
		}
		return fmt.Errorf("%s", resp.Status)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		fmt.Fprintln(c.out, "ok")
		return nil
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		_, err = c.out.Write(data)
		return err
	}
	_, err = fmt.Fprintln(c.out, strings.TrimSpace(pretty.String()))
	return err
}
