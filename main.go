package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"betbot-go/cogs"
	"betbot-go/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var botStatus = "starting"

func main() {
	godotenv.Load()

	if err := utils.InitializeLogger(os.Getenv("ENV")); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer utils.SyncLogger()

	utils.RegisterMetrics()
	go startHealthServer()

	ledger := utils.NewLedger(utils.StartingBalance)
	if err := utils.SetupDatabase(); err != nil {
		utils.Log.Warn("database setup failed, continuing without persistence", zap.Error(err))
	} else if utils.DatabaseAvailable() {
		utils.Log.Info("database connected")
		defer utils.CloseDatabase()
		restoreLedger(ledger)
	}

	token := os.Getenv("BOT_TOKEN")
	if token == "" {
		utils.Log.Error("BOT_TOKEN not set - Discord bot will not connect")
		botStatus = "no_token"
		select {}
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		utils.Log.Error("failed to create Discord session", zap.Error(err))
		botStatus = "error"
		select {}
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsGuildMessageReactions

	msgr := utils.NewDiscordMessenger(session)
	round := utils.NewRoundState()
	sessions := utils.NewSessionManager()
	sched := utils.NewLiveMessageScheduler(utils.LiveUpdateBatchWindow)
	defer sched.Stop()

	reactions := cogs.NewReactionCog(msgr, ledger, round, sessions, sched)
	defer reactions.Stop()
	betting := cogs.NewBettingCog(session, msgr, ledger, round, sessions, sched, reactions)
	sessionCog := cogs.NewSessionCog(session, msgr, ledger, sessions, sched, reactions)
	defer sessionCog.Stop()
	economy := cogs.NewEconomyCog(ledger, round)
	help := cogs.NewHelpCog()

	session.AddHandler(func(s *discordgo.Session, event *discordgo.Ready) {
		onReady(s, event, reactions, betting, sched)
	})
	session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageReactionAdd) {
		reactions.HandleReactionAdd(reactionEvent(m.MessageReaction))
	})
	session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageReactionRemove) {
		reactions.HandleReactionRemove(reactionEvent(m.MessageReaction))
	})
	session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type != discordgo.InteractionApplicationCommand {
			return
		}
		switch i.ApplicationCommandData().Name {
		case "openbet", "lockbets", "declarewinner", "closebet", "bet", "betall",
			"mybet", "bettinginfo", "setbetchannel", "togglebettimer":
			betting.HandleCommand(s, i)
		case "opensession", "locksession", "declaresessionwinner", "closesession",
			"sessionbet", "sessions":
			sessionCog.HandleCommand(s, i)
		case "balance", "give", "take", "setbal":
			economy.HandleCommand(s, i)
		case "help":
			help.HandleCommand(s, i)
		}
	})

	if err := session.Open(); err != nil {
		utils.Log.Error("failed to open Discord connection", zap.Error(err))
		botStatus = "connection_failed"
		select {}
	}
	defer session.Close()

	utils.Log.Info("bot is now running, press CTRL+C to exit")
	botStatus = "running"

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-stop

	utils.Log.Info("gracefully shutting down")
	botStatus = "shutting_down"
}

func onReady(s *discordgo.Session, event *discordgo.Ready, reactions *cogs.ReactionCog, betting *cogs.BettingCog, sched *utils.LiveMessageScheduler) {
	utils.Log.Info("logged in",
		zap.String("username", event.User.Username),
		zap.String("id", event.User.ID))
	botStatus = "online"

	reactions.SetSelf(event.User.ID)
	sched.SetTarget(betting.RefreshLiveMessages)

	if err := s.UpdateStatusComplex(discordgo.UpdateStatusData{
		Activities: []*discordgo.Activity{
			{Name: "Pari-Mutuel Betting", Type: discordgo.ActivityTypeGame},
		},
		Status: "online",
	}); err != nil {
		utils.Log.Warn("failed to update status", zap.Error(err))
	}

	if err := registerSlashCommands(s); err != nil {
		utils.Log.Error("failed to register slash commands", zap.Error(err))
	}
}

func registerSlashCommands(s *discordgo.Session) error {
	var commands []*discordgo.ApplicationCommand
	commands = append(commands, cogs.RegisterBettingCommands()...)
	commands = append(commands, cogs.RegisterSessionCommands()...)
	commands = append(commands, cogs.RegisterEconomyCommands()...)
	commands = append(commands, cogs.RegisterHelpCommands()...)

	for _, command := range commands {
		if _, err := s.ApplicationCommandCreate(s.State.User.ID, "", command); err != nil {
			return fmt.Errorf("failed to create command %s: %w", command.Name, err)
		}
	}
	utils.Log.Info("registered slash commands", zap.Int("count", len(commands)))
	return nil
}

func restoreLedger(ledger *utils.Ledger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	balances, err := utils.LoadBalances(ctx)
	if err != nil {
		utils.Log.Warn("failed to load balances", zap.Error(err))
	}
	bets, err := utils.LoadBets(ctx)
	if err != nil {
		utils.Log.Warn("failed to load bets", zap.Error(err))
	}
	ledger.Restore(balances, bets)
	ledger.EnablePersistence()
	utils.Log.Info("ledger restored",
		zap.Int("balances", len(balances)),
		zap.Int("bet_scopes", len(bets)))
}

func reactionEvent(r *discordgo.MessageReaction) cogs.ReactionEvent {
	return cogs.ReactionEvent{
		MessageID: r.MessageID,
		ChannelID: r.ChannelID,
		UserID:    r.UserID,
		Emoji:     r.Emoji.APIName(),
	}
}

func startHealthServer() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", utils.MetricsHandler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","service":"betbot","bot_status":"%s"}`, botStatus)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "Discord Bot Status: %s", botStatus)
	})

	utils.Log.Info("health server starting", zap.String("port", port))
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		utils.Log.Error("health server error", zap.Error(err))
	}
}
