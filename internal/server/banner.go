package server

// welcomeServer and welcomeInfo are the advisory text sent to every
// new connection before the READY terminator. Clients are expected to
// skip everything up to and including the terminator line.
const (
	welcomeServer = "Successful connection to Quote Server!\n\n"

	welcomeInfo = `Commands:
1. Stream all tickers:
STREAM <udp-url> ALL
 Example: STREAM udp://127.0.0.1:34254/ ALL

2. Stream individual tickers:
STREAM <udp-url> <TICKERS, ...>
 Example: STREAM udp://127.0.0.1:34254/ PSA,EMR,DUK,PYPL

3. Cancel a previously requested stream:
CANCEL <udp-url>

Note: issuing a new STREAM without first canceling an existing one is
a silent no-op; the original subscription keeps running.

`

	welcomeTerminator = "READY\n"
)

// Reply detail strings. Several are kept in Russian to match the
// reference implementation's wire protocol exactly — clients parse
// these as opaque detail strings, not natural language.
const (
	detailStreamStarted  = "stream started"
	detailCanceled       = "canceled"
	detailEmptyLine      = "empty line"
	detailInvalidCommand = "invalid command"
	detailIncomplete     = "команда неполная"
	detailBadUDPAddr     = "некорректный udp-адрес"
	detailUDPOnly        = "поддерживается только UDP"
	detailBadTickers     = "некорректные тикеры"
)
