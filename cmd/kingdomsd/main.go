package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/kingdomsgo/server/internal/auth"
	"github.com/kingdomsgo/server/internal/config"
	"github.com/kingdomsgo/server/internal/console"
	"github.com/kingdomsgo/server/internal/core"
	"github.com/kingdomsgo/server/internal/core/event"
	"github.com/kingdomsgo/server/internal/handler"
	gonet "github.com/kingdomsgo/server/internal/net"
	"github.com/kingdomsgo/server/internal/net/packet"
	"github.com/kingdomsgo/server/internal/persist"
	"github.com/kingdomsgo/server/internal/scripting"
	"github.com/kingdomsgo/server/internal/system"
	"github.com/kingdomsgo/server/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var cli struct {
	Port           uint16 `name:"port" default:"7777" help:"Listen port."`
	DB             string `name:"db" default:"game.db" help:"SQLite database path."`
	KingdomsConfig string `name:"kingdoms-config" default:"kingdoms.json" help:"Kingdoms JSON file."`
	TickRate       int    `name:"tick-rate" default:"20" help:"Simulation ticks per second."`
	MaxPlayers     int    `name:"max-players" default:"1000" help:"Maximum concurrent connections."`
	Config         string `name:"config" optional:"" help:"Optional TOML file for ambient settings."`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner() {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m            kingdomsd  v0.1.0              \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m      serveur de royaumes multi-mondes     \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
}

func printSection(title string) {
	lineLen := 45 - len(title)
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	kong.Parse(&cli,
		kong.Name("kingdomsd"),
		kong.Description("Authoritative multi-kingdom game server."),
	)

	// 1. Config: TOML ambient settings, then command-line overrides.
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Server.Port = cli.Port
	cfg.Server.DBPath = cli.DB
	cfg.Server.KingdomsPath = cli.KingdomsConfig
	cfg.Server.TickRate = cli.TickRate
	cfg.Server.MaxPlayers = cli.MaxPlayers

	// 2. Logger.
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner()

	// 3. The KDF must work before any account can be trusted.
	if err := auth.SelfTest(); err != nil {
		return fmt.Errorf("password KDF self-test: %w", err)
	}

	// 4. Database + persistence worker + repositories.
	printSection("base de donnees")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := persist.OpenDB(ctx, cfg.Server.DBPath, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()
	printOK("SQLite initialisee (" + cfg.Server.DBPath + ")")

	worker := persist.NewWorker(db, log)
	defer worker.Shutdown()
	accountRepo := persist.NewAccountRepo(worker, log)
	playerRepo := persist.NewPlayerRepo(worker, log)
	printOK("worker de persistance demarre")
	fmt.Println()

	// 5. Kingdoms.
	printSection("royaumes")

	registry, err := world.LoadRegistry(cfg.Server.KingdomsPath)
	if err != nil {
		log.Warn("kingdoms file unavailable, using the default kingdom",
			zap.String("path", cfg.Server.KingdomsPath),
			zap.Error(err),
		)
		registry = world.DefaultRegistry()
	}
	kingdoms := world.BuildKingdoms(registry, log)
	printStat("royaumes charges", len(kingdoms))

	// 5a. Optional Lua game systems.
	luaEngine, err := scripting.NewEngine(cfg.Server.ScriptsPath, log)
	if err != nil {
		return fmt.Errorf("lua engine: %w", err)
	}
	defer luaEngine.Close()
	if luaEngine.HasKingdomTick() {
		for _, k := range kingdoms {
			k.AddSystem(system.NewScriptSystem(luaEngine))
		}
		printOK("scripts lua charges")
	}
	fmt.Println()

	// 6. Event bus with logging subscribers.
	bus := event.NewBus(log)
	event.Subscribe(bus, func(ev event.PlayerLoggedIn) {
		log.Debug("event: PlayerLoggedIn",
			zap.Int64("account", ev.AccountID),
			zap.String("username", ev.Username),
			zap.Bool("guest", ev.Guest),
		)
	})
	event.Subscribe(bus, func(ev event.PlayerJoinedKingdom) {
		log.Info("event: PlayerJoinedKingdom",
			zap.Int64("account", ev.AccountID),
			zap.Int("kingdom", ev.KingdomID),
		)
	})
	event.Subscribe(bus, func(ev event.PlayerDisconnected) {
		log.Debug("event: PlayerDisconnected",
			zap.Uint32("peer", ev.PeerID),
			zap.Int64("account", ev.AccountID),
		)
	})

	// 7. Network: host, sessions, dispatcher, manager.
	printSection("reseau")

	sessions := gonet.NewSessionManager(log)
	host, err := gonet.NewTCPHost(cfg.Server.Port, cfg.Server.MaxPlayers, cfg.Network, log)
	if err != nil {
		return fmt.Errorf("transport host: %w", err)
	}
	pktReg := packet.NewRegistry(log)
	netMgr := gonet.NewManager(host, pktReg, sessions, log)

	// 8. Console + game loop.
	consoleSys := console.NewSystem(log)
	loop := core.NewGameLoop(cfg, netMgr, sessions, worker, playerRepo, kingdoms, consoleSys, bus, log)

	// 9. Handlers.
	deps := &handler.Deps{
		Accounts:  accountRepo,
		Players:   playerRepo,
		Sessions:  sessions,
		Net:       netMgr,
		Kingdoms:  kingdoms,
		Registry:  registry,
		Limiter:   handler.NewRateLimiter(cfg.RateLimit),
		RunOnMain: loop.RunOnMain,
		Bus:       bus,
		Log:       log,
	}
	handler.RegisterAll(pktReg, deps)

	// 10. Console commands + signals.
	console.RegisterServerCommands(consoleSys, console.CommandContext{
		DBPath:     cfg.Server.DBPath,
		StopServer: loop.Stop,
		Log:        log,
	})
	consoleSys.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("signal received, shutting down", zap.String("signal", sig.String()))
		loop.Stop()
	}()

	printReady(fmt.Sprintf("ecoute sur %s", netMgr.Addr()))
	printReady(fmt.Sprintf("boucle de jeu a %d Hz (tick %s)", cfg.Server.TickRate, cfg.Server.TickPeriod()))
	fmt.Println()

	// 11. Blocks until Stop.
	loop.Run()

	log.Info("server stopped cleanly")
	return nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
