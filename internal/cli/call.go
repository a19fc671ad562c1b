package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/prashanna2005/SkillBridge/internal/call"
	"github.com/prashanna2005/SkillBridge/internal/config"
	"github.com/prashanna2005/SkillBridge/internal/logging"
	"github.com/prashanna2005/SkillBridge/internal/media"
	"github.com/prashanna2005/SkillBridge/internal/negotiation"
	"github.com/prashanna2005/SkillBridge/internal/signalclient"
)

var (
	flagRoom       string
	flagUser       string
	flagVideo      bool
	flagServer     string
	flagSTUN       string
	flagGuard      time.Duration
	flagHangupIn   time.Duration
	flagShareAfter time.Duration
	flagShareFor   time.Duration
)

var callCmd = &cobra.Command{
	Use:   "call",
	Short: "Join a session room as a call participant",
	Long: `Join a session room and run the call until hangup.

Examples:
  sbcall call --room session-42
  sbcall call --room session-42 --video --server ws://localhost:4000/ws
  sbcall call --room session-42 --video --share-after 5s --share-for 10s`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagRoom == "" {
			return fmt.Errorf("--room is required")
		}
		return runCall(cmd.Context())
	},
}

func init() {
	callCmd.Flags().StringVar(&flagRoom, "room", "", "session room id to join")
	callCmd.Flags().StringVar(&flagUser, "user", "", "user id announced to the peer")
	callCmd.Flags().BoolVar(&flagVideo, "video", false, "video call (default voice)")
	callCmd.Flags().StringVar(&flagServer, "server", "", "signaling server websocket URL (empty: loopback demo mode)")
	callCmd.Flags().StringVar(&flagSTUN, "stun", "", "STUN server URL")
	callCmd.Flags().DurationVar(&flagGuard, "guard", 0, "guard timeout for the connecting state")
	callCmd.Flags().DurationVar(&flagHangupIn, "hangup-in", 0, "hang up automatically after this long connected (0: until interrupted)")
	callCmd.Flags().DurationVar(&flagShareAfter, "share-after", 0, "start a screen-share drill this long after connecting")
	callCmd.Flags().DurationVar(&flagShareFor, "share-for", 10*time.Second, "how long the screen-share drill runs")
	rootCmd.AddCommand(callCmd)
}

func runCall(ctx context.Context) error {
	cfg, err := config.Load(config.Options{
		SignalingURL: flagServer,
		STUNServer:   flagSTUN,
		GuardTimeout: flagGuard,
	})
	if err != nil {
		return err
	}
	log := logging.New(cfg.LogLevel)

	kind := call.TypeVoice
	if flagVideo {
		kind = call.TypeVideo
	}

	strategy, driver := buildStrategy(cfg, log)
	sess := call.New(call.Config{
		RoomID:       flagRoom,
		Kind:         kind,
		Devices:      media.SyntheticDevices{},
		Strategy:     strategy,
		GuardTimeout: cfg.GuardTimeout,
		Logger:       log,
		OnStatus: func(st call.Status) {
			printStatus("status: " + string(st))
		},
	})

	printTitle(fmt.Sprintf("SkillBridge %s call, room %s", kind, flagRoom))
	if err := sess.Start(ctx); err != nil {
		// Media failure is fatal to the attempt: report and close.
		return err
	}
	defer sess.End()

	if driver != nil && flagShareAfter > 0 {
		go screenShareDrill(ctx, driver)
	}

	var hangup <-chan time.Time
	if flagHangupIn > 0 {
		hangup = time.After(flagHangupIn)
	}
	awaitEnd(ctx, sess, hangup)

	printOK(fmt.Sprintf("call ended after %s", sess.Duration()))
	return nil
}

// awaitEnd blocks until the call finishes: remote hangup, the optional
// hangup timer, or cancellation of the command context (interrupt). The
// latter two hang up through the session so teardown still runs.
func awaitEnd(ctx context.Context, sess *call.Session, hangup <-chan time.Time) {
	select {
	case <-sess.Done():
	case <-hangup:
		sess.End()
	case <-ctx.Done():
		sess.End()
	}
}

// buildStrategy picks the negotiation strategy once, up front: a real
// signaled call when an endpoint is configured and reachable, loopback
// otherwise. A failed dial or peer-connection setup degrades to loopback
// rather than failing the call.
func buildStrategy(cfg *config.Config, log zerolog.Logger) (call.Strategy, *negotiation.Driver) {
	loopback := &call.Loopback{Delay: cfg.LoopbackDelay}
	if cfg.SignalingURL == "" {
		printStatus("no signaling server configured, running in loopback mode")
		return loopback, nil
	}

	sc := signalclient.NewClient(cfg.SignalingURL)
	if err := sc.Connect(); err != nil {
		log.Warn().Err(err).Msg("signaling server unreachable, falling back to loopback")
		return loopback, nil
	}

	pc, err := negotiation.NewPeerConnection(cfg.STUNServer, &logging.PionFactory{Log: log})
	if err != nil {
		log.Warn().Err(err).Msg("peer connection setup failed, falling back to loopback")
		sc.Close()
		return loopback, nil
	}

	events := signalclient.NewEvents(sc)
	go events.Start()

	driver := negotiation.NewDriver(negotiation.Config{
		RoomID:   flagRoom,
		UserID:   flagUser,
		Peer:     pc,
		Signaler: sc,
		Events:   events,
		Devices:  media.SyntheticDevices{},
		Logger:   log,
	})
	return driver, driver
}

// screenShareDrill swaps the outgoing video track to a display capture and
// back, exercising the track-replacement path against a live peer.
func screenShareDrill(ctx context.Context, driver *negotiation.Driver) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(flagShareAfter):
	}
	if err := driver.StartScreenShare(ctx); err != nil {
		PrintError("screen share: " + err.Error())
		return
	}
	printStatus("screen share started")

	select {
	case <-ctx.Done():
	case <-time.After(flagShareFor):
	}
	if err := driver.StopScreenShare(); err != nil {
		PrintError("screen share stop: " + err.Error())
		return
	}
	printStatus("screen share stopped, camera restored")
}
