package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Gabo8286/luna-engine/internal/bus"
	"github.com/Gabo8286/luna-engine/internal/channel"
	"github.com/Gabo8286/luna-engine/internal/config"
	"github.com/Gabo8286/luna-engine/internal/engine"
	"github.com/Gabo8286/luna-engine/internal/interpreter"
	"github.com/Gabo8286/luna-engine/internal/ledger"
	"github.com/Gabo8286/luna-engine/internal/profile"
	"github.com/Gabo8286/luna-engine/internal/recovery"
	"github.com/Gabo8286/luna-engine/internal/store"
)

// EngineFactory creates the engine for a command run (allows test injection).
// The bus is nil in plain CLI mode; the daemon passes one so proactive
// findings reach the channels.
type EngineFactory func(cfg *config.Config, b *bus.MessageBus) (*engine.Engine, error)

func DefaultEngineFactory(cfg *config.Config, b *bus.MessageBus) (*engine.Engine, error) {
	st, err := store.NewStore(cfg.Store.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := store.MigrateFromFile(filepath.Join(config.ConfigDir(), "state.json"), st); err != nil {
		log.Printf("[luna] legacy state import warning: %v", err)
	}
	e, err := engine.New(cfg, st, engine.Options{Bus: b})
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return e, nil
}

// CoachOptions carries injectable dependencies for the coach command.
type CoachOptions struct {
	EngineFactory EngineFactory
	Stdin         io.Reader
	Stdout        io.Writer
}

// DaemonOptions carries injectable dependencies for the daemon command.
type DaemonOptions struct {
	EngineFactory EngineFactory
	SignalChan    chan os.Signal
}

var rootCmd = &cobra.Command{
	Use:   "luna",
	Short: "luna - adaptive productivity coach",
}

var coachCmd = &cobra.Command{
	Use:   "coach",
	Short: "Talk to the coach in single message or REPL mode",
	RunE:  runCoach,
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the coach daemon (channels + proactive guidance)",
	RunE:  runDaemon,
}

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize config and data directory",
	RunE:  runOnboard,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show luna status",
	RunE:  runStatus,
}

var messageFlag string

func init() {
	coachCmd.Flags().StringVarP(&messageFlag, "message", "m", "", "Single message to send")
	rootCmd.AddCommand(coachCmd, daemonCmd, onboardCmd, statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCoach(cmd *cobra.Command, args []string) error {
	return runCoachWithOptions(CoachOptions{})
}

// runCoachWithOptions runs the coach with injectable dependencies for testing.
func runCoachWithOptions(opts CoachOptions) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	factory := opts.EngineFactory
	if factory == nil {
		factory = DefaultEngineFactory
	}
	e, err := factory(cfg, nil)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := e.Start(ctx); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}
	defer e.Close()

	stdin := opts.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	// Single message mode
	if messageFlag != "" {
		fmt.Fprintln(stdout, dispatch(ctx, e, messageFlag))
		return nil
	}

	// REPL mode
	fmt.Fprintln(stdout, "luna coach (type 'help' for commands, 'exit' to quit)")
	scanner := bufio.NewScanner(stdin)
	for {
		fmt.Fprint(stdout, "\n> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}
		fmt.Fprintln(stdout, dispatch(ctx, e, input))
	}
	return nil
}

func runDaemon(cmd *cobra.Command, args []string) error {
	return runDaemonWithOptions(DaemonOptions{})
}

// runDaemonWithOptions runs the daemon with injectable dependencies for
// testing. It blocks until SIGINT or SIGTERM.
func runDaemonWithOptions(opts DaemonOptions) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	b := bus.NewMessageBus(cfg.Daemon.BusBuffer)

	factory := opts.EngineFactory
	if factory == nil {
		factory = DefaultEngineFactory
	}
	e, err := factory(cfg, b)
	if err != nil {
		return err
	}

	mgr, err := channel.NewManager(cfg.Channels, b)
	if err != nil {
		return fmt.Errorf("init channels: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := e.Start(ctx); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}
	if err := mgr.StartAll(ctx); err != nil {
		_ = e.Close()
		return fmt.Errorf("start channels: %w", err)
	}

	go b.DispatchOutbound(ctx)
	go serveInbound(ctx, e, b)

	sigChan := opts.SignalChan
	if sigChan == nil {
		sigChan = make(chan os.Signal, 1)
	}
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	log.Printf("[daemon] running (channels: %v)", mgr.EnabledChannels())
	<-sigChan
	log.Printf("[daemon] shutting down")

	cancel()
	_ = mgr.StopAll()
	return e.Close()
}

// serveInbound routes channel messages through the command dispatcher and
// pushes the replies back to the chat they came from.
func serveInbound(ctx context.Context, e *engine.Engine, b *bus.MessageBus) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-b.Inbound:
			reply := dispatch(ctx, e, msg.Content)
			if reply == "" {
				continue
			}
			b.Outbound <- bus.Notification{
				Channel:   msg.Channel,
				ChatID:    msg.ChatID,
				Kind:      bus.KindStatus,
				Body:      reply,
				Timestamp: time.Now(),
			}
		}
	}
}

func runOnboard(cmd *cobra.Command, args []string) error {
	cfgDir := config.ConfigDir()
	cfgPath := config.ConfigPath()

	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		cfg := config.DefaultConfig()
		cfg.Coach.RecoveryCatalog = filepath.Join(cfgDir, "recovery.yaml")
		if err := config.SaveConfig(cfg); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Printf("Created config: %s\n", cfgPath)
	} else {
		fmt.Printf("Config already exists: %s\n", cfgPath)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Store.DBPath), 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	writeIfNotExists(filepath.Join(cfgDir, "recovery.yaml"), defaultRecoveryYAML)

	fmt.Println("\nNext steps:")
	fmt.Println("  1. Run 'luna coach' to talk to the coach")
	fmt.Printf("  2. Edit %s to enable channels for the daemon\n", cfgPath)
	fmt.Println("  3. Run 'luna daemon' for proactive guidance over Telegram or a webhook")

	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Config: error (%v)\n", err)
		return nil
	}

	fmt.Printf("Config: %s\n", config.ConfigPath())
	fmt.Printf("Database: %s\n", cfg.Store.DBPath)
	if cfg.Coach.UserName != "" {
		fmt.Printf("User: %s\n", cfg.Coach.UserName)
	}
	fmt.Printf("Proactive on start: %v (every %d min)\n", cfg.Coach.ProactiveOnStart, cfg.Coach.CheckIntervalMinutes)

	if tok := cfg.Channels.Telegram.Token; tok != "" && len(tok) > 8 {
		masked := tok[:4] + "..." + tok[len(tok)-4:]
		fmt.Printf("Telegram: enabled=%v token=%s\n", cfg.Channels.Telegram.Enabled, masked)
	} else if tok != "" {
		fmt.Printf("Telegram: enabled=%v token=set\n", cfg.Channels.Telegram.Enabled)
	} else {
		fmt.Printf("Telegram: enabled=%v\n", cfg.Channels.Telegram.Enabled)
	}
	fmt.Printf("Webhook: enabled=%v\n", cfg.Channels.Webhook.Enabled)

	if _, err := os.Stat(cfg.Store.DBPath); err != nil {
		fmt.Println("State: none yet (run 'luna onboard', then 'luna coach')")
		return nil
	}
	st, err := store.NewStore(cfg.Store.DBPath)
	if err != nil {
		fmt.Printf("State: unreadable (%v)\n", err)
		return nil
	}
	defer st.Close()

	rec, err := st.Load()
	if err != nil || rec == nil {
		fmt.Println("State: empty")
		return nil
	}
	fmt.Printf("Stage: %s (week %d)\n", rec.Profile.Stage, rec.Profile.WeekInStage)
	fmt.Printf("Well-being: %d/10, system health: %d/10\n", rec.Profile.WellBeing, rec.Profile.SystemHealth)
	fmt.Printf("Insights: %d, reminders: %d\n", len(rec.Ledger.Insights), len(rec.Ledger.Reminders))
	if rec.RecoveryProgress != nil {
		fmt.Printf("Recovery: %s in progress\n", rec.RecoveryProgress.Name)
	}

	return nil
}

// dispatch executes one coach command line and returns the reply. The first
// word picks the command; anything unrecognized goes to the interpreter for
// suggestions. The interpreter's canonical command names are accepted as
// aliases so suggestions can be sent straight back.
func dispatch(ctx context.Context, e *engine.Engine, line string) string {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return ""
	}
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	switch cmd {
	case "help":
		return helpText
	case "status", "show-status":
		return statusText(e)
	case "insights":
		return insightsText(e.Insights())
	case "dismiss":
		if len(args) != 1 {
			return "usage: dismiss <insight-id>"
		}
		id, ok := matchInsightID(e, args[0])
		if !ok {
			return fmt.Sprintf("no insight matches %q", args[0])
		}
		e.DismissInsight(id)
		return "Dismissed."
	case "check":
		insights := e.CheckForProactiveGuidance()
		if len(insights) == 0 {
			return "Nothing new; you are on track."
		}
		return insightsText(insights)
	case "review", "trigger-assessment":
		a := e.TriggerAssessment(nil, nil, nil)
		return fmt.Sprintf("Assessment recorded: %s stage, %.0f%% complete.", a.Stage, a.Completion*100)
	case "assessments":
		return assessmentsText(e.Assessments())
	case "wellbeing", "record-well-being":
		return scoreCommand(args, "wellbeing", e.RecordWellBeing)
	case "health":
		return scoreCommand(args, "health", e.RecordSystemHealth)
	case "energy", "record-energy":
		return energyCommand(e, args)
	case "metric":
		return metricCommand(e, args)
	case "advance", "advance-stage":
		p := e.AdvanceStage()
		return fmt.Sprintf("Stage: %s (week %d).", p.Stage, p.WeekInStage)
	case "week":
		p := e.AdvanceWeek()
		return fmt.Sprintf("Week %d of the %s stage.", p.WeekInStage, p.Stage)
	case "principle":
		if len(args) == 0 {
			return "usage: principle <id>"
		}
		e.MarkPrincipleComplete(strings.Join(args, "-"))
		return "Principle marked complete."
	case "remind", "schedule-reminder":
		return remindCommand(e, args)
	case "reminders":
		return remindersText(e.PendingReminders())
	case "done":
		if len(args) != 1 {
			return "usage: done <reminder-id>"
		}
		id, ok := matchReminderID(e, args[0])
		if !ok {
			return fmt.Sprintf("no pending reminder matches %q", args[0])
		}
		e.CompleteReminder(id)
		return "Completed."
	case "recover", "start-recovery":
		return recoverCommand(e, args)
	case "recovery":
		return recoveryText(e)
	case "step":
		return stepCommand(e, args)
	case "addstep":
		if len(args) == 0 {
			return "usage: addstep <text>"
		}
		if !e.AddRecoveryStep(strings.Join(args, " ")) {
			return "No recovery in progress."
		}
		return "Step added."
	case "finish":
		done, ok := e.FinishRecovery()
		if !ok {
			return "No recovery in progress."
		}
		return fmt.Sprintf("Recovery finished: %d step(s) completed.", len(done.CompletedSteps))
	case "pattern", "record-pattern":
		if len(args) == 0 {
			return "usage: pattern <observed behavior>"
		}
		p, ok := e.RecordBehaviorPattern(ledger.BehaviorPattern{Pattern: strings.Join(args, " ")})
		if !ok {
			return "Could not record that pattern."
		}
		return fmt.Sprintf("Pattern noted (seen %d time(s)).", p.Frequency)
	case "patterns":
		return patternsText(e.BehaviorPatterns())
	case "proactive":
		return proactiveCommand(e, args)
	case "prefs":
		return prefsCommand(e, args)
	default:
		return suggestText(ctx, e, line)
	}
}

func scoreCommand(args []string, name string, record func(int)) string {
	if len(args) != 1 {
		return fmt.Sprintf("usage: %s <1-10>", name)
	}
	score, err := strconv.Atoi(args[0])
	if err != nil || score < 1 || score > 10 {
		return fmt.Sprintf("usage: %s <1-10>", name)
	}
	record(score)
	return fmt.Sprintf("Noted: %s %d/10.", name, score)
}

func energyCommand(e *engine.Engine, args []string) string {
	const usage = "usage: energy <hour 0-23> <low|medium|high>"
	if len(args) != 2 {
		return usage
	}
	hour, err := strconv.Atoi(args[0])
	if err != nil || hour < 0 || hour > 23 {
		return usage
	}
	level := profile.EnergyLevel(strings.ToLower(args[1]))
	if level != profile.EnergyLow && level != profile.EnergyMedium && level != profile.EnergyHigh {
		return usage
	}
	e.RecordEnergy(hour, level)
	return fmt.Sprintf("Noted: %s energy around %02d:00.", level, hour)
}

func metricCommand(e *engine.Engine, args []string) string {
	usage := fmt.Sprintf("usage: metric <id> <value> (tracked: %s)", strings.Join(metricIDs(e), ", "))
	if len(args) != 2 {
		return usage
	}
	value, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return usage
	}
	for _, m := range e.Profile().Metrics {
		if m.ID == args[0] {
			m.Current = value
			e.RecordMetric(m)
			return fmt.Sprintf("%s: %.1f (target %.1f).", m.Name, m.Current, m.Target)
		}
	}
	return fmt.Sprintf("unknown metric %q (tracked: %s)", args[0], strings.Join(metricIDs(e), ", "))
}

func metricIDs(e *engine.Engine) []string {
	metrics := e.Profile().Metrics
	ids := make([]string, 0, len(metrics))
	for _, m := range metrics {
		ids = append(ids, m.ID)
	}
	return ids
}

func remindCommand(e *engine.Engine, args []string) string {
	const usage = "usage: remind [duration] <title> (e.g. remind 2h stretch)"
	if len(args) == 0 {
		return usage
	}
	delay := 24 * time.Hour
	if d, err := time.ParseDuration(args[0]); err == nil && d > 0 {
		delay = d
		args = args[1:]
	}
	if len(args) == 0 {
		return usage
	}
	r := e.ScheduleReminder(ledger.Reminder{
		Kind:        ledger.ReminderGoalCheck,
		Title:       strings.Join(args, " "),
		ScheduledAt: time.Now().Add(delay),
	})
	return fmt.Sprintf("Reminder %q set for %s.", r.Title, r.ScheduledAt.Format("Mon 15:04"))
}

func recoverCommand(e *engine.Engine, args []string) string {
	if len(args) != 1 {
		return "usage: recover <level>\n" + catalogText(e.RecoveryCatalog())
	}
	level, err := strconv.Atoi(args[0])
	if err != nil {
		return "usage: recover <level>"
	}
	if !e.StartRecovery(level) {
		return fmt.Sprintf("no recovery level %d\n%s", level, catalogText(e.RecoveryCatalog()))
	}
	prog, _ := e.RecoveryProgress()
	return fmt.Sprintf("Recovery started: %s (~%d min).\nFirst step: %s", prog.Name, prog.EstimatedMinutes, prog.CurrentStep)
}

func stepCommand(e *engine.Engine, args []string) string {
	prog, ok := e.RecoveryProgress()
	if !ok {
		return "No recovery in progress; start one with 'recover <level>'."
	}
	step := strings.Join(args, " ")
	if step == "" {
		step = prog.CurrentStep
	}
	if step == "" {
		return "No step outstanding; 'finish' to wrap up or 'addstep <text>' to add one."
	}
	e.CompleteRecoveryStep(step)
	prog, _ = e.RecoveryProgress()
	if prog.CurrentStep == "" {
		return fmt.Sprintf("Step done (%d completed). Nothing left; 'finish' when ready.", len(prog.CompletedSteps))
	}
	return fmt.Sprintf("Step done (%d completed). Next: %s", len(prog.CompletedSteps), prog.CurrentStep)
}

func proactiveCommand(e *engine.Engine, args []string) string {
	if len(args) == 0 {
		if e.ProactiveEnabled() {
			return "Proactive guidance is on."
		}
		return "Proactive guidance is off."
	}
	switch strings.ToLower(args[0]) {
	case "on":
		e.EnableProactiveMode()
		return "Proactive guidance on."
	case "off":
		e.DisableProactiveMode()
		return "Proactive guidance off."
	default:
		return "usage: proactive [on|off]"
	}
}

func prefsCommand(e *engine.Engine, args []string) string {
	if len(args) == 0 {
		return prefsText(e.Preferences())
	}
	switch strings.ToLower(args[0]) {
	case "tone":
		if len(args) != 2 {
			return "usage: prefs tone <style>"
		}
		p := e.UpdatePreferences(store.PreferencesPatch{Tone: &args[1]})
		return fmt.Sprintf("Tone: %s.", p.Tone)
	case "cadence":
		if len(args) != 2 {
			return "usage: prefs cadence <minutes>"
		}
		minutes, err := strconv.Atoi(args[1])
		if err != nil || minutes < 0 {
			return "usage: prefs cadence <minutes>"
		}
		p := e.UpdatePreferences(store.PreferencesPatch{CadenceMinutes: &minutes})
		if p.CadenceMinutes == 0 {
			return "Cadence: config default (applies on next start)."
		}
		return fmt.Sprintf("Cadence: every %d minutes (applies on next start).", p.CadenceMinutes)
	case "channel":
		if len(args) != 2 {
			return "usage: prefs channel <name|all>"
		}
		name := args[1]
		if name == "all" {
			name = ""
		}
		p := e.UpdatePreferences(store.PreferencesPatch{NotifyChannel: &name})
		if p.NotifyChannel == "" {
			return "Notifications broadcast to all channels."
		}
		return fmt.Sprintf("Notifications go to %s.", p.NotifyChannel)
	case "quiet":
		if len(args) != 3 {
			return "usage: prefs quiet <start-hour> <end-hour>"
		}
		start, err1 := strconv.Atoi(args[1])
		end, err2 := strconv.Atoi(args[2])
		if err1 != nil || err2 != nil {
			return "usage: prefs quiet <start-hour> <end-hour>"
		}
		p := e.UpdatePreferences(store.PreferencesPatch{QuietHoursStart: &start, QuietHoursEnd: &end})
		return fmt.Sprintf("Quiet hours: %02d:00-%02d:00.", p.QuietHoursStart, p.QuietHoursEnd)
	default:
		return "usage: prefs [tone|cadence|channel|quiet] ..."
	}
}

func suggestText(ctx context.Context, e *engine.Engine, line string) string {
	actions := e.SuggestActions(ctx, line, "")
	if len(actions) == 0 {
		return "I did not catch a command. Type 'help' for the list."
	}
	var sb strings.Builder
	sb.WriteString("Did you mean:")
	for _, a := range actions {
		sb.WriteString("\n  ")
		sb.WriteString(suggestionLine(a))
	}
	return sb.String()
}

// suggestionLine renders an interpreter suggestion as the command the user
// would type to run it.
func suggestionLine(a interpreter.Action) string {
	cmd := a.Command
	switch a.Command {
	case "record-well-being":
		cmd = "wellbeing"
		if s, ok := a.Args["score"]; ok {
			cmd += " " + s
		} else {
			cmd += " <1-10>"
		}
	case "start-recovery":
		cmd = "recover"
		if l, ok := a.Args["level"]; ok {
			cmd += " " + l
		} else {
			cmd += " 1"
		}
	case "trigger-assessment":
		cmd = "review"
	case "schedule-reminder":
		cmd = "remind <duration> <title>"
	case "advance-stage":
		cmd = "advance"
	case "record-energy":
		cmd = "energy"
		if h, ok := a.Args["hour"]; ok {
			cmd += " " + h + " <low|medium|high>"
		} else {
			cmd += " <hour> <low|medium|high>"
		}
	case "show-status":
		cmd = "status"
	case "record-pattern":
		cmd = "pattern <observed behavior>"
	}
	return fmt.Sprintf("%s (%.0f%% match)", cmd, a.Confidence*100)
}

func statusText(e *engine.Engine) string {
	p := e.Profile()
	prefs := e.Preferences()

	lines := []string{
		fmt.Sprintf("Stage: %s (week %d of %d)", p.Stage, p.WeekInStage, profile.StageWeeks[p.Stage]),
		fmt.Sprintf("Well-being: %d/10, system health: %d/10", p.WellBeing, p.SystemHealth),
	}
	if p.LastAssessment != nil {
		lines = append(lines, "Last review: "+p.LastAssessment.Format("2006-01-02"))
	} else {
		lines = append(lines, "Last review: never")
	}
	if prog, ok := e.RecoveryProgress(); ok {
		lines = append(lines, fmt.Sprintf("Recovery: %s, %d step(s) remaining", prog.Name, len(prog.RemainingSteps)))
	}
	proactive := "off"
	if e.ProactiveEnabled() {
		proactive = "on"
	}
	if prefs.CadenceMinutes > 0 {
		proactive += fmt.Sprintf(", every %d min", prefs.CadenceMinutes)
	}
	lines = append(lines,
		fmt.Sprintf("Insights: %d, pending reminders: %d", len(e.Insights()), len(e.PendingReminders())),
		"Proactive guidance: "+proactive,
	)
	return strings.Join(lines, "\n")
}

func insightsText(insights []ledger.Insight) string {
	if len(insights) == 0 {
		return "No insights right now."
	}
	var lines []string
	for i, ins := range insights {
		lines = append(lines, fmt.Sprintf("%d. [%s] %s (id %s)", i+1, ins.Priority, ins.Title, shortID(ins.ID)))
		if ins.Description != "" {
			lines = append(lines, "   "+ins.Description)
		}
		for _, item := range ins.ActionItems {
			lines = append(lines, "   - "+item)
		}
	}
	return strings.Join(lines, "\n")
}

func remindersText(rems []ledger.Reminder) string {
	if len(rems) == 0 {
		return "No pending reminders."
	}
	lines := make([]string, 0, len(rems))
	for _, r := range rems {
		lines = append(lines, fmt.Sprintf("%s at %s (id %s)", r.Title, r.ScheduledAt.Format("Mon 15:04"), shortID(r.ID)))
	}
	return strings.Join(lines, "\n")
}

func assessmentsText(list []ledger.Assessment) string {
	if len(list) == 0 {
		return "No assessments yet; run 'review'."
	}
	lines := make([]string, 0, len(list))
	for _, a := range list {
		lines = append(lines, fmt.Sprintf("%s: %s stage, %.0f%% complete", a.TakenAt.Format("2006-01-02"), a.Stage, a.Completion*100))
	}
	return strings.Join(lines, "\n")
}

func patternsText(pats []ledger.BehaviorPattern) string {
	if len(pats) == 0 {
		return "No patterns recorded."
	}
	lines := make([]string, 0, len(pats))
	for _, p := range pats {
		lines = append(lines, fmt.Sprintf("%s (seen %d, confidence %.0f%%, %s)", p.Pattern, p.Frequency, p.Confidence*100, p.Impact))
	}
	return strings.Join(lines, "\n")
}

func recoveryText(e *engine.Engine) string {
	prog, ok := e.RecoveryProgress()
	if !ok {
		return "No recovery in progress.\n" + catalogText(e.RecoveryCatalog())
	}
	lines := []string{fmt.Sprintf("%s (level %d, ~%d min, started %s)", prog.Name, prog.Level, prog.EstimatedMinutes, prog.StartedAt.Format("Mon 15:04"))}
	for _, s := range prog.CompletedSteps {
		lines = append(lines, "  [x] "+s)
	}
	for _, s := range prog.RemainingSteps {
		lines = append(lines, "  [ ] "+s)
	}
	return strings.Join(lines, "\n")
}

func catalogText(levels []recovery.Level) string {
	lines := []string{"Recovery levels:"}
	for _, lv := range levels {
		lines = append(lines, fmt.Sprintf("  %d: %s (~%d min)", lv.Level, lv.Name, lv.Minutes))
	}
	return strings.Join(lines, "\n")
}

func prefsText(p store.Preferences) string {
	proactive := "off"
	if p.Proactive {
		proactive = "on"
	}
	channel := p.NotifyChannel
	if channel == "" {
		channel = "all"
	}
	cadence := "config default"
	if p.CadenceMinutes > 0 {
		cadence = fmt.Sprintf("every %d min", p.CadenceMinutes)
	}
	return strings.Join([]string{
		"Proactive: " + proactive,
		"Cadence: " + cadence,
		"Tone: " + p.Tone,
		"Notify channel: " + channel,
		fmt.Sprintf("Quiet hours: %02d:00-%02d:00", p.QuietHoursStart, p.QuietHoursEnd),
	}, "\n")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func matchInsightID(e *engine.Engine, prefix string) (string, bool) {
	for _, ins := range e.Insights() {
		if strings.HasPrefix(ins.ID, prefix) {
			return ins.ID, true
		}
	}
	return "", false
}

func matchReminderID(e *engine.Engine, prefix string) (string, bool) {
	for _, r := range e.PendingReminders() {
		if strings.HasPrefix(r.ID, prefix) {
			return r.ID, true
		}
	}
	return "", false
}

func writeIfNotExists(path, content string) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		_ = os.WriteFile(path, []byte(content), 0644)
		fmt.Printf("  Created: %s\n", path)
	}
}

const helpText = `Commands:
  status                           current stage, scores and counters
  insights                         list active insights
  dismiss <id>                     dismiss an insight
  check                            run the guidance rules now
  review                           record a progress assessment
  assessments                      list past assessments
  wellbeing <1-10>                 record today's well-being
  health <1-10>                    record system health
  energy <hour> <low|medium|high>  record an energy observation
  metric <id> <value>              update a tracked metric
  advance                          advance to the next stage
  week                             advance a week within the stage
  principle <id>                   mark a principle complete
  remind [duration] <title>        schedule a reminder (e.g. remind 2h stretch)
  reminders                        list pending reminders
  done <id>                        complete a reminder
  recover <level>                  start a recovery
  recovery                         show recovery progress and levels
  step [text]                      complete the current (or named) step
  addstep <text>                   add a follow-up step
  finish                           finish the recovery
  pattern <text>                   record an observed behavior pattern
  patterns                         list behavior patterns
  proactive [on|off]               toggle proactive guidance
  prefs [tone|cadence|channel|quiet] ...  show or tune preferences
Anything else is read as free text and matched to suggestions.`

const defaultRecoveryYAML = `# Recovery catalog. Each level is a remediation plan the coach can start
# with 'recover <level>'. Edit freely; invalid entries are skipped.
levels:
  - level: 1
    name: Light reset
    action: Step away from the screen, stretch, and clear your immediate workspace
    minutes: 30
  - level: 2
    name: Half-day reset
    action: "Block out the rest of the day: close open loops, take a long break, and plan tomorrow at half load"
    minutes: 240
  - level: 3
    name: Full recovery day
    action: Take a full day away from structured work and do only restorative activities
    minutes: 480
`
