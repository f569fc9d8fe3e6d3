// Command qclient is the thin terminal client for the quote server:
// it issues a STREAM or CANCEL command over TCP, then (for STREAM)
// keeps a UDP socket alive to receive and render quotes until
// interrupted.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ndrandal/feed-simulator/go-feed/internal/client"
	"github.com/ndrandal/feed-simulator/go-feed/internal/quote"
)

// exitInvalidUDP mirrors the reference client's ExitCode::InvalidUDP:
// the UDP callback URL could not be constructed.
const exitInvalidUDP = 2

var (
	flagSocket  string
	flagPort    int
	flagUDPPort int
	flagFile    string
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()

	root := &cobra.Command{
		Use:           "qclient",
		Short:         "Thin terminal client for the quote server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagSocket, "socket", "127.0.0.1", "command front-end host")
	root.PersistentFlags().IntVar(&flagPort, "port", 8888, "command front-end TCP port")
	root.PersistentFlags().IntVar(&flagUDPPort, "udp", 0, "local UDP port to receive quotes on (required)")
	root.MarkPersistentFlagRequired("udp")

	streamCmd := &cobra.Command{
		Use:   "stream",
		Short: "subscribe to quotes and render them until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStream(log)
		},
	}
	streamCmd.Flags().StringVar(&flagFile, "file", "", "path to a file of tickers, one per line (default: all tickers)")

	cancelCmd := &cobra.Command{
		Use:   "cancel",
		Short: "cancel an existing subscription for this UDP callback",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCancel(log)
		},
	}

	root.AddCommand(streamCmd, cancelCmd)
	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("qclient: exiting")
		var qerr *quote.Error
		if errors.As(err, &qerr) && qerr.Kind == quote.KindUDPURL {
			os.Exit(exitInvalidUDP)
		}
		os.Exit(1)
	}
}

func validateFlags() error {
	if err := client.ValidatePort(flagPort); err != nil {
		return err
	}
	return client.ValidatePort(flagUDPPort)
}

// sendCommand dials the command front-end, skips the banner, writes
// line, and returns the single reply line it receives.
func sendCommand(addr, line string) (string, error) {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return "", fmt.Errorf("connect to %s: %w", addr, err)
	}
	defer conn.Close()

	r := bufio.NewReader(conn)
	for {
		banner, err := r.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("reading banner: %w", err)
		}
		if strings.EqualFold(strings.TrimSpace(banner), "READY") {
			break
		}
	}

	if _, err := conn.Write([]byte(line + "\n")); err != nil {
		return "", fmt.Errorf("sending command: %w", err)
	}

	reply, err := r.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading reply: %w", err)
	}
	return strings.TrimSpace(reply), nil
}

func runStream(log zerolog.Logger) error {
	if err := validateFlags(); err != nil {
		return err
	}

	cs, err := client.NewClientSet(flagSocket, flagPort, flagUDPPort)
	if err != nil {
		return err
	}

	cmdLine, err := cs.StreamCommand(flagFile)
	if err != nil {
		return err
	}

	reply, err := sendCommand(cs.ServerAddr, cmdLine)
	if err != nil {
		return err
	}
	log.Info().Str("reply", reply).Msg("qclient: server accepted STREAM")
	if !strings.HasPrefix(reply, "OK") {
		return fmt.Errorf("server rejected STREAM: %s", reply)
	}

	udpClient, err := client.Bind(&net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: flagUDPPort}, os.Stdout)
	if err != nil {
		return err
	}
	defer udpClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{}, 2)
	go func() { udpClient.RunPingLoop(ctx); done <- struct{}{} }()
	go func() { udpClient.RunRecvLoop(ctx); done <- struct{}{} }()

	log.Info().Int("udp_port", flagUDPPort).Msg("qclient: streaming, press ctrl-c to stop")
	<-sigCh
	log.Info().Msg("qclient: shutting down")
	cancel()
	<-done
	<-done

	reply, err = sendCommand(cs.ServerAddr, cs.CancelCommand())
	if err != nil {
		log.Warn().Err(err).Msg("qclient: failed to send CANCEL on exit")
		return nil
	}
	log.Info().Str("reply", reply).Msg("qclient: canceled subscription on exit")
	return nil
}

func runCancel(log zerolog.Logger) error {
	if err := validateFlags(); err != nil {
		return err
	}

	cs, err := client.NewClientSet(flagSocket, flagPort, flagUDPPort)
	if err != nil {
		return err
	}

	reply, err := sendCommand(cs.ServerAddr, cs.CancelCommand())
	if err != nil {
		return err
	}
	log.Info().Str("reply", reply).Msg("qclient: server acknowledged CANCEL")
	if !strings.HasPrefix(reply, "OK") {
		return fmt.Errorf("server rejected CANCEL: %s", reply)
	}
	return nil
}
