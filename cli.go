package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/define42/pterodash/internal/logger"
	"github.com/define42/pterodash/internal/pterodactyl"
	"github.com/define42/pterodash/internal/settings"
)

// cliEnv is what every panel command needs: the operator's settings store
// and the client options.
type cliEnv struct {
	store   *settings.Store
	log     *zap.Logger
	out     io.Writer
	json    bool
	closeFn func() error
}

func openCLIEnv(cmd *cobra.Command) (*cliEnv, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log := zap.NewNop()
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		log = logger.New(&cfg.Log)
	}

	backend, err := openBackend(cmd.Context(), cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open settings store: %w", err)
	}
	user, _ := cmd.Flags().GetString("user")
	store := settings.NewStore(backend, storeKey(cfg.Store.Key, user, cfg.LDAP.Enabled()))
	if err := store.Load(cmd.Context()); err != nil {
		_ = backend.Close()
		return nil, err
	}

	jsonMode, _ := cmd.Flags().GetBool("json")
	return &cliEnv{
		store:   store,
		log:     log,
		out:     cmd.OutOrStdout(),
		json:    jsonMode,
		closeFn: backend.Close,
	}, nil
}

func (e *cliEnv) Close() error { return e.closeFn() }

func (e *cliEnv) options() []pterodactyl.Option {
	return []pterodactyl.Option{pterodactyl.WithLogger(e.log)}
}

func (e *cliEnv) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(e.out, string(data))
	return err
}

// withEnv opens the CLI environment around fn.
func withEnv(fn func(cmd *cobra.Command, env *cliEnv, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		env, err := openCLIEnv(cmd)
		if err != nil {
			return err
		}
		defer env.Close()
		return fn(cmd, env, args)
	}
}

func newSettingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the stored panel connection",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the stored settings with keys masked",
		Args:  cobra.NoArgs,
		RunE:  withEnv(runSettingsShow),
	}

	set := &cobra.Command{
		Use:   "set",
		Short: "Replace the stored settings",
		Args:  cobra.NoArgs,
		RunE:  withEnv(runSettingsSet),
	}
	set.Flags().String("panel-url", "", "Panel base URL")
	set.Flags().String("client-key", "", "Client API key")
	set.Flags().String("application-key", "", "Application API key")
	set.Flags().Bool("prompt", false, "Read the API keys from a hidden prompt")

	cmd.AddCommand(show, set)
	return cmd
}

func runSettingsShow(_ *cobra.Command, env *cliEnv, _ []string) error {
	masked := env.store.Settings().Masked()
	if env.json {
		return env.printJSON(masked)
	}
	w := tabwriter.NewWriter(env.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Panel URL\t%s\n", orDash(masked.PanelURL))
	fmt.Fprintf(w, "Client API key\t%s\n", orDash(masked.ClientAPIKey))
	fmt.Fprintf(w, "Application API key\t%s\n", orDash(masked.ApplicationAPIKey))
	fmt.Fprintf(w, "Configured\t%t\n", env.store.IsConfigured())
	return w.Flush()
}

func runSettingsSet(cmd *cobra.Command, env *cliEnv, _ []string) error {
	next := env.store.Settings()
	if cmd.Flags().Changed("panel-url") {
		next.PanelURL, _ = cmd.Flags().GetString("panel-url")
	}
	if cmd.Flags().Changed("client-key") {
		next.ClientAPIKey, _ = cmd.Flags().GetString("client-key")
	}
	if cmd.Flags().Changed("application-key") {
		next.ApplicationAPIKey, _ = cmd.Flags().GetString("application-key")
	}
	if prompt, _ := cmd.Flags().GetBool("prompt"); prompt {
		in := bufio.NewReader(cmd.InOrStdin())
		var err error
		if next.ClientAPIKey, err = promptSecret(cmd, in, "Client API key", next.ClientAPIKey); err != nil {
			return err
		}
		if next.ApplicationAPIKey, err = promptSecret(cmd, in, "Application API key", next.ApplicationAPIKey); err != nil {
			return err
		}
	}

	if err := env.store.Save(cmd.Context(), next); err != nil {
		switch {
		case errors.Is(err, settings.ErrPanelURLRequired):
			return errors.New(messagesEN.PanelURLRequired)
		case errors.Is(err, settings.ErrAPIKeyRequired):
			return errors.New(messagesEN.APIKeyRequired)
		}
		return err
	}
	if env.json {
		return env.printJSON(env.store.Settings().Masked())
	}
	_, err := fmt.Fprintln(env.out, color.GreenString(messagesEN.SettingsSaved))
	return err
}

// promptSecret reads one line without echo when stdin is a terminal. An empty
// answer keeps current.
func promptSecret(cmd *cobra.Command, in *bufio.Reader, label, current string) (string, error) {
	hint := ""
	if current != "" {
		hint = " [" + settings.MaskKey(current) + "]"
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s%s: ", label, hint)

	var line string
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read %s: %w", label, err)
		}
		line = string(raw)
	} else {
		raw, err := in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read %s: %w", label, err)
		}
		line = raw
	}

	if line = strings.TrimSpace(line); line == "" {
		return current, nil
	}
	return line, nil
}

func newServersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "servers",
		Short: "Work with panel servers",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List servers visible to the client API key",
		Args:  cobra.NoArgs,
		RunE:  withEnv(runServersList),
	}

	resources := &cobra.Command{
		Use:   "resources <identifier>",
		Short: "Show live resource usage of a server",
		Args:  cobra.ExactArgs(1),
		RunE:  withEnv(runServerResources),
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a server through the application API",
		Args:  cobra.NoArgs,
		RunE:  withEnv(runServerCreate),
	}
	create.Flags().String("name", "", "Server name")
	create.Flags().String("description", "", "Server description")
	create.Flags().Int("cpu", 0, "CPU limit in percent")
	create.Flags().Int("memory", 0, "Memory limit in MB")
	create.Flags().Int("disk", 0, "Disk limit in MB")
	create.Flags().Int("egg", 0, "Egg id")
	create.Flags().String("image", "", "Docker image")
	create.Flags().String("startup", "", "Startup command")
	create.Flags().Int("owner", 0, "Owner user id")
	create.Flags().Int("allocation", 0, "Default allocation id")
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("egg")
	_ = create.MarkFlagRequired("image")
	_ = create.MarkFlagRequired("startup")

	open := &cobra.Command{
		Use:   "open <identifier>",
		Short: "Print the panel page that manages a server",
		Args:  cobra.ExactArgs(1),
		RunE:  withEnv(runServerOpen),
	}

	cmd.AddCommand(list, resources, create, open)
	return cmd
}

// headerColor carries an escape as long as the status colours. Only headers
// over coloured columns use it, so tabwriter counts those cells alike.
var headerColor = color.New(color.FgHiWhite)

func statusColor(status pterodactyl.ServerStatus) string {
	text := status.Display()
	switch {
	case status.Online():
		return color.GreenString(text)
	case status == pterodactyl.StatusInstalling || status == pterodactyl.StatusRestoringBackup:
		return color.YellowString(text)
	default:
		return color.RedString(text)
	}
}

func runServersList(cmd *cobra.Command, env *cliEnv, _ []string) error {
	session, err := env.store.Settings().ClientSession(env.options()...)
	if err != nil {
		return err
	}
	servers, err := session.ListServers(cmd.Context())
	if err != nil {
		return fmt.Errorf("%s: %w", messagesEN.LoadServersFailed, err)
	}
	if env.json {
		return env.printJSON(servers)
	}
	if len(servers) == 0 {
		_, err := fmt.Fprintln(env.out, messagesEN.NoServers)
		return err
	}

	w := tabwriter.NewWriter(env.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "IDENTIFIER\tNAME\t%s\tNODE\tDESCRIPTION\n", headerColor.Sprint("STATUS"))
	for _, s := range servers {
		description := s.Description
		if strings.TrimSpace(description) == "" {
			description = messagesEN.NoDescription
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.Identifier, s.Name, statusColor(s.Status), orDash(string(s.Node)), description)
	}
	return w.Flush()
}

func runServerResources(cmd *cobra.Command, env *cliEnv, args []string) error {
	session, err := env.store.Settings().ClientSession(env.options()...)
	if err != nil {
		return err
	}
	usage, err := session.ServerResources(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if env.json {
		return env.printJSON(usage)
	}

	w := tabwriter.NewWriter(env.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "State\t%s\n", statusColor(pterodactyl.ServerStatus(usage.CurrentState)))
	fmt.Fprintf(w, "Suspended\t%t\n", usage.IsSuspended)
	fmt.Fprintf(w, "CPU\t%.2f%%\n", usage.Resources.CPUAbsolute)
	fmt.Fprintf(w, "Memory\t%s\n", humanBytes(usage.Resources.MemoryBytes))
	fmt.Fprintf(w, "Disk\t%s\n", humanBytes(usage.Resources.DiskBytes))
	fmt.Fprintf(w, "Network in\t%s\n", humanBytes(usage.Resources.NetworkRxBytes))
	fmt.Fprintf(w, "Network out\t%s\n", humanBytes(usage.Resources.NetworkTxBytes))
	fmt.Fprintf(w, "Uptime\t%ds\n", usage.Resources.Uptime/1000)
	return w.Flush()
}

func runServerCreate(cmd *cobra.Command, env *cliEnv, _ []string) error {
	session, err := env.store.Settings().ApplicationSession(env.options()...)
	if err != nil {
		if errors.Is(err, settings.ErrNoApplicationKey) || errors.Is(err, settings.ErrNotConfigured) {
			return errors.New(messagesEN.CreateNeedsAppKey)
		}
		return err
	}

	flags := cmd.Flags()
	payload := pterodactyl.CreateServerRequest{}
	payload.Name, _ = flags.GetString("name")
	payload.Description, _ = flags.GetString("description")
	payload.Egg, _ = flags.GetInt("egg")
	payload.DockerImage, _ = flags.GetString("image")
	payload.Startup, _ = flags.GetString("startup")
	payload.User, _ = flags.GetInt("owner")
	payload.Limits.CPU, _ = flags.GetInt("cpu")
	payload.Limits.Memory, _ = flags.GetInt("memory")
	payload.Limits.Disk, _ = flags.GetInt("disk")
	if allocation, _ := flags.GetInt("allocation"); allocation != 0 {
		payload.Allocation = &pterodactyl.Allocation{Default: allocation}
	}

	created, err := session.CreateServer(cmd.Context(), payload)
	if err != nil {
		return fmt.Errorf("%s: %w", messagesEN.CreateFailed, err)
	}
	if env.json {
		return env.printJSON(created)
	}
	_, err = fmt.Fprintf(env.out, "%s %s (%s)\n", color.GreenString(messagesEN.ServerCreated), created.Name, orDash(created.Identifier))
	return err
}

func runServerOpen(_ *cobra.Command, env *cliEnv, args []string) error {
	current := env.store.Settings()
	if current.PanelURL == "" {
		return settings.ErrNotConfigured
	}
	_, err := fmt.Fprintln(env.out, current.ServerURL(url.PathEscape(args[0])))
	return err
}

func newNodesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nodes",
		Short: "Work with panel nodes",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List nodes through the application API",
		Args:  cobra.NoArgs,
		RunE:  withEnv(runNodesList),
	})
	return cmd
}

func runNodesList(cmd *cobra.Command, env *cliEnv, _ []string) error {
	session, err := env.store.Settings().ApplicationSession(env.options()...)
	if err != nil {
		return err
	}
	nodes, err := session.ListNodes(cmd.Context())
	if err != nil {
		return err
	}
	if env.json {
		return env.printJSON(nodes)
	}

	w := tabwriter.NewWriter(env.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tNAME\tFQDN\tMEMORY\tDISK\t%s\n", headerColor.Sprint("MAINTENANCE"))
	for _, n := range nodes {
		maintenance := color.GreenString("no")
		if n.MaintenanceMode {
			maintenance = color.YellowString("yes")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d MB\t%d MB\t%s\n", n.ID, n.Name, n.FQDN, n.Memory, n.Disk, maintenance)
	}
	return w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
