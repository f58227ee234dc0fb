package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/park285/epic-reminder-bot/internal/bot"
	"github.com/park285/epic-reminder-bot/internal/config"
	"github.com/park285/epic-reminder-bot/internal/relay"
	"github.com/park285/epic-reminder-bot/internal/store"
)

var checkWatch time.Duration

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify configuration and connectivity",
	Long: `Load the configuration and try every dependency once: database,
redis and, for the relay gateway, its /config endpoint. With --watch the
relay stream is opened and inbound messages are printed for that long.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().DurationVar(&checkWatch, "watch", 0, "print relay stream messages for this long")
}

func runCheck(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	fmt.Fprintf(out, "config ok: gateway=%s prefix=%s database=%s\n", cfg.Gateway, cfg.CommandPrefix, cfg.DatabaseDriver)

	var failed bool
	report := func(name string, err error) {
		if err != nil {
			failed = true
			fmt.Fprintf(out, "%s error: %v\n", name, err)
			return
		}
		fmt.Fprintf(out, "%s ok\n", name)
	}

	db, err := store.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err == nil {
		st := store.New(db)
		err = st.Ping()
		if sqlDB, derr := db.DB(); derr == nil {
			defer sqlDB.Close()
		}
	}
	report("database", err)

	rdb, err := bot.OpenRedis(ctx, cfg.RedisURL)
	if err == nil {
		_ = rdb.Close()
	}
	report("redis", err)

	if cfg.Gateway == config.GatewayRelay {
		headers := relay.IdentityHeaders(cfg.XUserID, cfg.XUserEmail, cfg.XSessionID)
		client := relay.NewClient(cfg.RelayBaseURL, relay.WithHeaderProvider(headers), relay.WithTimeout(8*time.Second))
		cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		rc, err := client.GetConfig(cctx)
		cancel()
		if err == nil {
			fmt.Fprintf(out, "relay: name=%s version=%s platform=%s rate=%d\n", rc.Name, rc.Version, rc.Platform, rc.MessageRate)
		}
		report("relay /config", err)

		if checkWatch > 0 {
			report("relay stream", watchRelay(ctx, out, cfg.RelayWSURL, headers, checkWatch))
		}
	}

	if failed {
		return errors.New("one or more checks failed")
	}
	return nil
}

func watchRelay(ctx context.Context, out io.Writer, url string, headers relay.HeaderProvider, d time.Duration) error {
	ws := relay.NewWebSocket(url, 0, time.Second)
	ws.SetHeaderProvider(headers)
	ws.OnStateChange(func(state relay.WebSocketState) {
		fmt.Fprintf(out, "ws state: %s\n", state)
	})
	ws.OnMessage(func(msg *relay.Message) {
		from := "?"
		if msg.Sender != nil {
			from = msg.Sender.Name
		}
		fmt.Fprintf(out, "ws msg room=%s from=%s text=%q embeds=%d\n", msg.Room, from, msg.Msg, len(msg.Embeds))
	})

	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err := ws.Connect(cctx)
	cancel()
	if err != nil {
		return err
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
	closeCtx, cancelClose := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelClose()
	return ws.Close(closeCtx)
}
