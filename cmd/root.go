package cmd

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"gazellekit/gazelle"
	"gazellekit/internal"
	"gazellekit/utils"
)

var (
	trackerName string
	apiKey      string
	useSession  bool
	htmlOnly    bool
	proxyURL    string
	cookieDir   string
	quiet       bool
	debug       bool
	logLevel    string
	logFile     string
	config      *internal.Config
)

var rootCmd = &cobra.Command{
	Use:     "gzl",
	Short:   "Client for gazelle-family private trackers",
	Version: "v1.0.0",
	Long: `gazellekit is a command-line client for gazelle-family private trackers
(RED and OPS), supporting both the bearer-token JSON API and the legacy
session-cookie login flow.

Examples:
  gzl --tracker RED account
  gzl --tracker OPS torrent 123456
  gzl --tracker RED download 123456 -o release.torrent
  gzl --tracker RED upload release.torrent --group 4321 --unknown
  gzl --tracker OPS riplog 123456 1 -o rip.log

Environment Variables:
  GZL_RED_API_KEY   API key for RED
  GZL_OPS_API_KEY   API key for OPS
  GZL_COOKIE_DIR    Directory for persisted session cookies
  GZL_PROXY         Proxy URL (http, https or socks5)
  GZL_TIMEOUT       HTTP timeout in seconds`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfiguration(); err != nil {
			return fmt.Errorf("configuration error: %v", err)
		}

		if err := internal.InitLogger(config); err != nil {
			return fmt.Errorf("failed to initialize logger: %v", err)
		}

		internal.LogDebug("configuration loaded: tracker=%s, timeout=%d, debug=%v, quiet=%v",
			trackerName, config.TimeoutSec, config.EnableDebug, config.QuietMode)

		return nil
	},
	SilenceUsage: true,
}

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Show the authenticated account's keys and id",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, err := buildClient(ctx)
		if err != nil {
			return err
		}

		acct, err := client.AccountInfo(ctx)
		if err != nil {
			return err
		}
		announce, err := client.AnnounceURL(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Tracker:  %s\n", client.Profile().Name)
		fmt.Printf("Username: %s\n", acct.Username)
		fmt.Printf("User ID:  %d\n", acct.UserID)
		fmt.Printf("Announce: %s\n", announce)
		return nil
	},
}

var torrentCmd = &cobra.Command{
	Use:   "torrent <id>",
	Short: "Show info for a torrent by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid torrent id: %s", args[0])
		}

		client, err := buildClient(ctx)
		if err != nil {
			return err
		}

		query := url.Values{}
		query.Set("id", strconv.Itoa(id))
		info, err := client.TorrentInfo(ctx, query)
		if err != nil {
			return err
		}

		fmt.Printf("Title:    %s (%d)\n", info.Title, info.Year)
		fmt.Printf("Torrent:  %d (group %d)\n", info.TorrentID, info.GroupID)
		fmt.Printf("Release:  %s / %s / %s\n", info.Medium, info.Format, info.Encoding)
		if info.Remastered {
			fmt.Printf("Edition:  %d %s %s\n", info.RemasterYear, info.RemasterLabel, info.RemasterTitle)
		}
		fmt.Printf("Uploader: %s (%d)\n", info.Uploader, info.UploaderID)
		fmt.Printf("Tags:     %s\n", strings.Join(info.Tags, ", "))
		return nil
	},
}

var (
	downloadOutput string
)

var downloadCmd = &cobra.Command{
	Use:   "download <id>",
	Short: "Download a torrent metafile by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid torrent id: %s", args[0])
		}

		client, err := buildClient(ctx)
		if err != nil {
			return err
		}

		data, err := client.DownloadTorrent(ctx, id)
		if err != nil {
			return err
		}

		output := downloadOutput
		if output == "" {
			output = fmt.Sprintf("%s-%d.torrent", strings.ToLower(client.Profile().Name), id)
		}
		if utils.FileExists(output) {
			return fmt.Errorf("refusing to overwrite existing file: %s", output)
		}

		if err := saveWithProgress(output, data); err != nil {
			return err
		}
		internal.LogInfo("saved torrent metafile to %s", output)
		return nil
	},
}

var (
	uploadGroup   int
	uploadUnknown bool
	uploadLogs    []string
	uploadFromID  int
)

var uploadCmd = &cobra.Command{
	Use:   "upload <torrent-file>",
	Short: "Upload a torrent metafile, seeding the form from an existing torrent",
	Long: `Upload a torrent metafile. The upload form is seeded from an existing
torrent on the same tracker (--from), optionally targeting an existing
group (--group). The metafile's announce URL and source tag are rewritten
for the destination tracker before upload.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if uploadFromID == 0 {
			return fmt.Errorf("--from <torrent-id> is required to seed the upload form")
		}

		torrentBytes, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("could not read torrent file: %w", err)
		}

		client, err := buildClient(ctx)
		if err != nil {
			return err
		}

		query := url.Values{}
		query.Set("id", strconv.Itoa(uploadFromID))
		info, err := client.TorrentInfo(ctx, query)
		if err != nil {
			return err
		}

		data := gazelle.FromTorrentInfo(info)
		data.Unknown = uploadUnknown

		files := &gazelle.TorrentFiles{
			TorrentName: filepath.Base(args[0]),
			Torrent:     torrentBytes,
		}
		for _, logPath := range uploadLogs {
			logBytes, err := os.ReadFile(logPath)
			if err != nil {
				return fmt.Errorf("could not read log file: %w", err)
			}
			files.RipLogs = append(files.RipLogs, gazelle.RipLogFile{
				Name: filepath.Base(logPath),
				Data: logBytes,
			})
		}

		result, err := client.Upload(ctx, data, files, uploadGroup)
		if err != nil {
			return err
		}

		if result.TorrentID != 0 {
			fmt.Printf("Uploaded torrent %d (group %d)\n", result.TorrentID, result.GroupID)
		}
		fmt.Printf("View: %s\n", result.ViewURL)
		return nil
	},
}

var riplogOutput string

var riplogCmd = &cobra.Command{
	Use:   "riplog <torrent-id> <log-id>",
	Short: "Download and verify a rip log (OPS only)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		torrentID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid torrent id: %s", args[0])
		}
		logID, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid log id: %s", args[1])
		}

		client, err := buildClient(ctx)
		if err != nil {
			return err
		}

		data, err := client.RipLog(ctx, torrentID, logID)
		if err != nil {
			return err
		}

		output := riplogOutput
		if output == "" {
			output = fmt.Sprintf("riplog-%d-%d.log", torrentID, logID)
		}

		if err := saveWithProgress(output, data); err != nil {
			return err
		}
		internal.LogInfo("saved verified rip log to %s", output)
		return nil
	},
}

// loadConfiguration builds the effective config from defaults, environment
// and flags
func loadConfiguration() error {
	config = internal.DefaultConfig()
	config.LoadFromEnv()

	if proxyURL != "" {
		config.ProxyURL = proxyURL
	}
	if cookieDir != "" {
		config.CookieDir = cookieDir
	}
	if logLevel != "" {
		config.LogLevel = logLevel
	}
	if logFile != "" {
		config.LogFile = logFile
	}
	config.EnableDebug = debug
	config.QuietMode = quiet

	return config.ValidateConfig()
}

// buildClient constructs the tracker client selected by the flags
func buildClient(ctx context.Context) (*gazelle.Client, error) {
	id := gazelle.TrackerID(strings.ToUpper(trackerName))

	transportConfig := &utils.HTTPTransportConfig{
		Timeout:   time.Duration(config.TimeoutSec) * time.Second,
		ProxyURL:  config.ProxyURL,
		UserAgent: config.UserAgent,
	}

	if useSession || htmlOnly {
		creds := internal.CredentialFunc(promptCredentials)
		if htmlOnly {
			return gazelle.NewHTMLClient(ctx, id, creds, config.CookieDir, transportConfig)
		}
		return gazelle.NewSessionClient(ctx, id, creds, config.CookieDir, transportConfig)
	}

	key := apiKey
	if key == "" {
		switch id {
		case gazelle.RED:
			key = config.RedAPIKey
		case gazelle.OPS:
			key = config.OpsAPIKey
		}
	}

	switch id {
	case gazelle.RED:
		return gazelle.NewRedClient(ctx, key, transportConfig)
	case gazelle.OPS:
		return gazelle.NewOpsClient(ctx, key, transportConfig)
	default:
		return nil, fmt.Errorf("unknown tracker: %s (use RED or OPS)", trackerName)
	}
}

// promptCredentials reads username and password from the terminal.
// Invoked only when no valid persisted session exists.
func promptCredentials() (string, string, error) {
	reader := bufio.NewReader(os.Stdin)

	fmt.Fprint(os.Stderr, "Username: ")
	username, err := reader.ReadString('\n')
	if err != nil {
		return "", "", err
	}

	fmt.Fprint(os.Stderr, "Password: ")
	password, err := reader.ReadString('\n')
	if err != nil {
		return "", "", err
	}

	return strings.TrimSpace(username), strings.TrimSpace(password), nil
}

// saveWithProgress writes data to path, showing a byte progress bar
// unless quiet mode is on
func saveWithProgress(path string, data []byte) error {
	if err := utils.EnsureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	reader := utils.NewProgressReader(bytes.NewReader(data), int64(len(data)), "Saving: ", config.QuietMode)
	defer reader.Finish()

	_, err = io.Copy(file, reader)
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&trackerName, "tracker", "T", "RED", "Tracker to talk to (RED or OPS)")
	rootCmd.PersistentFlags().StringVarP(&apiKey, "api-key", "k", "", "API key (defaults to GZL_<TRACKER>_API_KEY)")
	rootCmd.PersistentFlags().BoolVar(&useSession, "session", false, "Authenticate with a session cookie instead of an API key")
	rootCmd.PersistentFlags().BoolVar(&htmlOnly, "html", false, "Treat the tracker as HTML-only (implies --session)")
	rootCmd.PersistentFlags().StringVar(&proxyURL, "proxy", "", "Proxy URL (http, https or socks5)")
	rootCmd.PersistentFlags().StringVar(&cookieDir, "cookie-dir", "", "Directory for persisted session cookies")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Log to file instead of stderr")

	downloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "", "Output path for the metafile")

	uploadCmd.Flags().IntVar(&uploadFromID, "from", 0, "Torrent id to seed the upload form from")
	uploadCmd.Flags().IntVar(&uploadGroup, "group", 0, "Destination group id (skips group-level fields)")
	uploadCmd.Flags().BoolVar(&uploadUnknown, "unknown", false, "Flag the upload as an unknown release")
	uploadCmd.Flags().StringSliceVar(&uploadLogs, "log", nil, "Rip log file to attach (repeatable)")

	riplogCmd.Flags().StringVarP(&riplogOutput, "output", "o", "", "Output path for the rip log")

	rootCmd.AddCommand(accountCmd, torrentCmd, downloadCmd, uploadCmd, riplogCmd)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
