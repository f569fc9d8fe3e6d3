package client

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/ndrandal/feed-simulator/go-feed/internal/quote"
)

// PortMin and PortMax bound the TCP and UDP ports this client will
// accept on the command line; they exclude the privileged range and
// the ephemeral range reserved by most kernels for outbound sockets.
const (
	PortMin = 1024
	PortMax = 49151
)

// ValidatePort rejects a port outside [PortMin, PortMax].
func ValidatePort(port int) error {
	if port < PortMin || port > PortMax {
		return quote.CommandError("port %d out of allowed range %d-%d", port, PortMin, PortMax)
	}
	return nil
}

// ClientSet holds the resolved addressing for one CLI invocation: the
// TCP address of the command front-end, and the udp:// callback URL
// this client will STREAM/CANCEL against.
type ClientSet struct {
	ServerAddr string // host:port of the command front-end
	UDPURL     string // udp://127.0.0.1:<port>/ callback address advertised to the server
}

// NewClientSet resolves the server socket and the local UDP callback
// URL from the validated socket/port/udpPort trio. It fails with a
// quote.KindUDPURL error if the callback URL it builds does not parse,
// mirroring the reference client's make_udp_url/ExitCode::InvalidUDP.
func NewClientSet(socket string, port, udpPort int) (ClientSet, error) {
	rawUDPURL := fmt.Sprintf("udp://127.0.0.1:%d/", udpPort)
	if _, err := url.Parse(rawUDPURL); err != nil {
		return ClientSet{}, quote.UDPURLError("build udp callback url (port %d): %v", udpPort, err)
	}

	return ClientSet{
		ServerAddr: fmt.Sprintf("%s:%d", socket, port),
		UDPURL:     rawUDPURL,
	}, nil
}

// StreamCommand builds the STREAM command line for cs. An empty
// tickerFile means subscribe to every ticker; otherwise tickerFile is
// read as one ticker per non-blank line and joined into a comma list.
// A file with no tickers in it also subscribes to every ticker.
func (cs ClientSet) StreamCommand(tickerFile string) (string, error) {
	if tickerFile == "" {
		return fmt.Sprintf("STREAM %s ALL", cs.UDPURL), nil
	}

	tickers, err := readTickerFile(tickerFile)
	if err != nil {
		return "", err
	}
	if len(tickers) == 0 {
		return fmt.Sprintf("STREAM %s ALL", cs.UDPURL), nil
	}
	return fmt.Sprintf("STREAM %s %s", cs.UDPURL, strings.Join(tickers, ",")), nil
}

// CancelCommand builds the CANCEL command line for cs.
func (cs ClientSet) CancelCommand() string {
	return fmt.Sprintf("CANCEL %s", cs.UDPURL)
}

func readTickerFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, quote.CommandError("open ticker file %s: %v", path, err)
	}
	defer f.Close()

	var tickers []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		ticker := strings.ToUpper(strings.TrimSpace(scanner.Text()))
		if ticker == "" {
			continue
		}
		tickers = append(tickers, ticker)
	}
	if err := scanner.Err(); err != nil {
		return nil, quote.CommandError("read ticker file %s: %v", path, err)
	}
	return tickers, nil
}
