package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	pkg "github.com/deweblabs/depost/pkg/internal"
	localCache "github.com/deweblabs/depost/pkg/internal/cache"
	"github.com/deweblabs/depost/pkg/internal/identity"
	"github.com/deweblabs/depost/pkg/internal/models"
	"github.com/deweblabs/depost/pkg/internal/pinning"
	"github.com/deweblabs/depost/pkg/internal/secrets"
	"github.com/deweblabs/depost/pkg/internal/session"
	"github.com/deweblabs/depost/pkg/internal/store"
	"github.com/deweblabs/depost/pkg/internal/thread"
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
}

func main() {
	// Booting screen
	fmt.Println(color.MagentaString(" ____                       _\n|  _ \\  ___ _ __   ___  ___| |_\n| | | |/ _ \\ '_ \\ / _ \\/ __| __|\n| |_| |  __/ |_) | (_) \\__ \\ |_\n|____/ \\___| .__/ \\___/|___/\\__|\n           |_|"))
	fmt.Printf("%s v%s\n", color.New(color.FgHiMagenta).Add(color.Bold).Sprintf("Depost"), pkg.AppVersion)
	fmt.Printf("The social feed pinned onto content-addressed storage\n")
	color.HiBlack("=====================================================\n")

	// Configure settings
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.SetConfigName("settings")
	viper.SetConfigType("toml")

	// Load settings
	if err := viper.ReadInConfig(); err != nil {
		log.Panic().Err(err).Msg("An error occurred when loading settings.")
	}

	// Warm up the local cache
	if err := localCache.NewStore(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when initializing local cache.")
	}

	// Resolve the current principal
	provider := identity.NewStaticProvider(
		viper.GetString("identity.email"),
		viper.GetString("identity.display_name"),
	)
	principal := provider.CurrentPrincipal()
	if principal == nil {
		log.Fatal().Msg("No identity configured, set identity.email in settings.")
	}

	// Pull the substrate credentials out of the vault
	vault := secrets.NewFileVault(viper.GetString("secrets.vault_path"))
	credential, err := vault.GetCredentials(context.Background(), principal.Email)
	if err != nil {
		log.Fatal().Err(err).Msg("An error occurred when reading the credential vault.")
	}
	if credential == nil || !credential.Complete() {
		credential = &models.Credential{
			APIKey: viper.GetString("substrate.api_key"),
			Secret: viper.GetString("substrate.secret"),
		}
	}

	// Connect to the pinning substrate
	pins, err := pinning.NewHTTPClient(
		viper.GetString("substrate.endpoint"),
		viper.GetString("substrate.gateway"),
		*credential,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("An error occurred when configuring the pinning substrate client.")
	}
	if err := pins.Probe(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when authenticating against the pinning substrate.")
	}
	if err := vault.SetCredentials(context.Background(), principal.Email, *credential); err != nil {
		log.Warn().Err(err).Msg("An error occurred when storing credentials into the vault.")
	}

	// Boot the feed session
	feed := session.New(*principal, store.New(pins), pins)
	if err := feed.Refresh(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when loading the feed.")
	}
	printFeed(feed)

	// Configure timed tasks
	quartz := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(&log.Logger)))
	quartz.AddFunc(viper.GetString("session.refresh_interval"), func() {
		if err := feed.Refresh(context.Background()); err != nil {
			log.Error().Err(err).Msg("An error occurred when refreshing the feed.")
			return
		}
		printFeed(feed)
	})
	quartz.Start()

	// Messages
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	quartz.Stop()
}

func printFeed(feed *session.Session) {
	threads := feed.Threads()
	if len(threads) == 0 {
		color.HiBlack("No posts found. Create your first post to get started!")
		return
	}

	thread.Walk(threads, func(node *thread.Node, depth int) {
		indent := strings.Repeat("  ", depth)
		post := node.Post

		header := fmt.Sprintf(
			"%s%s %s",
			indent,
			color.CyanString(post.Author),
			color.HiBlackString(formatRelative(post.Timestamp)),
		)
		fmt.Println(header)
		fmt.Printf("%s%s\n", indent, post.Content)

		footer := fmt.Sprintf(
			"%s%s %d  %s %d",
			indent,
			color.RedString("likes"), post.Counters.Likes,
			color.BlueString("views"), post.Counters.Views,
		)
		if len(post.Tags) > 0 {
			footer += "  " + color.MagentaString("#"+strings.Join(post.Tags, " #"))
		}
		fmt.Println(footer)
		fmt.Println()
	})
}

func formatRelative(timestamp time.Time) string {
	diff := time.Since(timestamp)
	switch {
	case diff >= 24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	case diff >= time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return "Just now"
	}
}
